package domain

import "time"

// Snapshot is the structured export form of one invoice: selected fields,
// ordered line items, the validation report, and the full correction log.
type Snapshot struct {
	InvoiceID   string               `json:"invoice_id"`
	Fields      []SnapshotField      `json:"fields"`
	LineItems   []SnapshotLineItem   `json:"line_items"`
	Validation  ValidationReport     `json:"validation"`
	Corrections []SnapshotCorrection `json:"corrections"`
}

type SnapshotField struct {
	Kind       string  `json:"kind"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	SourceRule string  `json:"source_rule"`
}

type SnapshotLineItem struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Amount      float64 `json:"amount"`
}

type SnapshotCorrection struct {
	Kind      string    `json:"kind"`
	Original  string    `json:"original"`
	Corrected string    `json:"corrected"`
	Accepted  bool      `json:"accepted"`
	Timestamp time.Time `json:"timestamp"`
}

// BuildSnapshot assembles the export view. Field values reflect the current
// resolution, corrections included in log order.
func BuildSnapshot(invoiceID string, extraction Extraction, report ValidationReport, log []CorrectionRecord) Snapshot {
	fields := make([]SnapshotField, 0, len(extraction.Fields))
	for _, field := range extraction.Fields {
		fields = append(fields, SnapshotField{
			Kind:       string(field.Kind),
			Value:      ResolveCurrentValue(field, log),
			Confidence: field.Confidence,
			SourceRule: field.Rule,
		})
	}

	items := make([]SnapshotLineItem, 0, len(extraction.LineItems))
	for _, item := range extraction.LineItems {
		items = append(items, SnapshotLineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Amount,
		})
	}

	corrections := make([]SnapshotCorrection, 0, len(log))
	for _, rec := range log {
		corrections = append(corrections, SnapshotCorrection{
			Kind:      string(rec.Kind),
			Original:  rec.Original,
			Corrected: rec.Corrected,
			Accepted:  rec.Accepted,
			Timestamp: rec.CreatedAt,
		})
	}

	return Snapshot{
		InvoiceID:   invoiceID,
		Fields:      fields,
		LineItems:   items,
		Validation:  report,
		Corrections: corrections,
	}
}
