package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/invoice-intake/internal/core/domain"
)

const (
	sheetSummary     = "Summary"
	sheetFields      = "Fields"
	sheetLineItems   = "Line Items"
	sheetCorrections = "Corrections"
)

func writeXLSX(w io.Writer, snapshot *domain.Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}
	for _, sheet := range []string{sheetFields, sheetLineItems, sheetCorrections} {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
	}

	summary := [][]any{
		{"Invoice ID", snapshot.InvoiceID},
		{"Validation Status", string(snapshot.Validation.Status)},
		{"Fields", len(snapshot.Fields)},
		{"Line Items", len(snapshot.LineItems)},
		{"Corrections", len(snapshot.Corrections)},
	}
	if err := writeRows(f, sheetSummary, summary); err != nil {
		return err
	}

	fields := [][]any{{"Kind", "Value", "Confidence", "Source Rule"}}
	for _, field := range snapshot.Fields {
		fields = append(fields, []any{field.Kind, field.Value, field.Confidence, field.SourceRule})
	}
	if err := writeRows(f, sheetFields, fields); err != nil {
		return err
	}

	items := [][]any{{"Position", "Description", "Quantity", "Unit Price", "Amount"}}
	for i, item := range snapshot.LineItems {
		items = append(items, []any{i + 1, item.Description, item.Quantity, item.UnitPrice, item.Amount})
	}
	if err := writeRows(f, sheetLineItems, items); err != nil {
		return err
	}

	corrections := [][]any{{"Kind", "Original", "Corrected", "Accepted", "Timestamp"}}
	for _, rec := range snapshot.Corrections {
		corrections = append(corrections, []any{rec.Kind, rec.Original, rec.Corrected, rec.Accepted, rec.Timestamp.UTC()})
	}
	if err := writeRows(f, sheetCorrections, corrections); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name for row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d on %s: %w", i+1, sheet, err)
		}
	}
	return nil
}
