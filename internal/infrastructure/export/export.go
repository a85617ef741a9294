// Package export renders invoice snapshots for download: canonical JSON, a
// flattened CSV, or a multi-sheet XLSX workbook.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/kirillkom/invoice-intake/internal/core/domain"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts the format query value; empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", domain.WrapError(domain.ErrInvalidInput, "parse export format", fmt.Errorf("unsupported format %q", s))
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json"
	}
}

func (f Format) Filename(invoiceID string) string {
	return fmt.Sprintf("invoice_%s.%s", invoiceID, f)
}

// Write renders the snapshot in the requested format.
func Write(w io.Writer, format Format, snapshot *domain.Snapshot) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, snapshot)
	case FormatXLSX:
		return writeXLSX(w, snapshot)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snapshot); err != nil {
			return fmt.Errorf("encode snapshot json: %w", err)
		}
		return nil
	}
}
