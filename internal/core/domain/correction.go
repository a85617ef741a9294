package domain

import "time"

// CorrectionRecord is one reviewer action on a selected field. Records are
// append-only; resolution is last-write-wins by CreatedAt.
type CorrectionRecord struct {
	ID                 string    `json:"id"`
	InvoiceID          string    `json:"invoice_id"`
	Kind               FieldKind `json:"kind"`
	Original           string    `json:"original"`
	OriginalConfidence float64   `json:"original_confidence"`
	Corrected          string    `json:"corrected"`
	Accepted           bool      `json:"accepted"`
	Rule               string    `json:"rule"`
	CreatedAt          time.Time `json:"created_at"`
}

// ResolveCurrentValue returns the field's effective value: the most recent
// correction for its kind if any exists, else the extractor's selection.
func ResolveCurrentValue(field ExtractedField, log []CorrectionRecord) string {
	value := field.Normalized
	var latest time.Time
	for _, rec := range log {
		if rec.Kind != field.Kind {
			continue
		}
		if rec.CreatedAt.Before(latest) {
			continue
		}
		latest = rec.CreatedAt
		value = rec.Corrected
	}
	return value
}
