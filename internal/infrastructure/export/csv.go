package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/kirillkom/invoice-intake/internal/core/domain"
)

// writeCSV emits the snapshot as stacked sections, each with its own header
// row and separated by a blank line, so the file opens cleanly in a
// spreadsheet without a schema.
func writeCSV(w io.Writer, snapshot *domain.Snapshot) error {
	cw := csv.NewWriter(w)

	records := [][]string{
		{"invoice_id", "validation_status"},
		{snapshot.InvoiceID, string(snapshot.Validation.Status)},
		{},
		{"kind", "value", "confidence", "source_rule"},
	}
	for _, field := range snapshot.Fields {
		records = append(records, []string{
			field.Kind,
			field.Value,
			formatFloat(field.Confidence),
			field.SourceRule,
		})
	}

	records = append(records, []string{}, []string{"position", "description", "quantity", "unit_price", "amount"})
	for i, item := range snapshot.LineItems {
		records = append(records, []string{
			strconv.Itoa(i + 1),
			item.Description,
			strconv.Itoa(item.Quantity),
			formatFloat(item.UnitPrice),
			formatFloat(item.Amount),
		})
	}

	records = append(records, []string{}, []string{"kind", "original", "corrected", "accepted", "timestamp"})
	for _, rec := range snapshot.Corrections {
		records = append(records, []string{
			rec.Kind,
			rec.Original,
			rec.Corrected,
			strconv.FormatBool(rec.Accepted),
			rec.Timestamp.UTC().Format(time.RFC3339),
		})
	}

	for _, record := range records {
		if len(record) == 0 {
			// csv.Writer refuses empty records; write the separator directly.
			cw.Flush()
			if err := cw.Error(); err != nil {
				return fmt.Errorf("write csv: %w", err)
			}
			if _, err := io.WriteString(w, "\n"); err != nil {
				return fmt.Errorf("write csv separator: %w", err)
			}
			continue
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
