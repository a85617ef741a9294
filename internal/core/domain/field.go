package domain

import "fmt"

type FieldKind string

const (
	KindInvoiceNumber FieldKind = "invoice_number"
	KindDate          FieldKind = "date"
	KindSupplier      FieldKind = "supplier"
	KindTotal         FieldKind = "total"
	KindVAT           FieldKind = "vat"
	KindSubtotal      FieldKind = "subtotal"
	KindLineItem      FieldKind = "line_item"
)

// ScalarFieldKinds lists the kinds that select exactly one candidate per
// invoice. Line items are handled as an ordered collection instead.
var ScalarFieldKinds = []FieldKind{
	KindInvoiceNumber,
	KindDate,
	KindSupplier,
	KindTotal,
	KindVAT,
	KindSubtotal,
}

func ParseFieldKind(s string) (FieldKind, error) {
	for _, kind := range ScalarFieldKinds {
		if string(kind) == s {
			return kind, nil
		}
	}
	if s == string(KindLineItem) {
		return KindLineItem, nil
	}
	return "", WrapError(ErrInvalidInput, "parse field kind", fmt.Errorf("unknown kind %q", s))
}

func (k FieldKind) Numeric() bool {
	return k == KindTotal || k == KindVAT || k == KindSubtotal
}

func (k FieldKind) Required() bool {
	return k == KindInvoiceNumber || k == KindTotal
}

// NewConfidence rejects values outside [0,1]. A rule emitting an out-of-range
// score is an internal bug, not a bad document.
func NewConfidence(v float64) (float64, error) {
	if v < 0 || v > 1 {
		return 0, WrapError(ErrRange, "new confidence", fmt.Errorf("confidence %v outside [0,1]", v))
	}
	return v, nil
}

// ClampConfidence bounds adjusted scores without erroring; used after
// bonus/penalty arithmetic where drifting past the edges is expected.
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Candidate is one rule's proposal for a field, before selection.
type Candidate struct {
	Kind       FieldKind
	Raw        string
	Normalized string
	Confidence float64
	Rule       string
	Priority   int
	Line       int
}

// ExtractedField is the selected candidate for a field kind.
type ExtractedField struct {
	Kind       FieldKind `json:"kind"`
	Raw        string    `json:"raw"`
	Normalized string    `json:"normalized"`
	Confidence float64   `json:"confidence"`
	Rule       string    `json:"rule"`
	Line       int       `json:"line"`
}

// LineItem order matches document order and is never rearranged.
type LineItem struct {
	Position    int     `json:"position"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Amount      float64 `json:"amount"`
	Confidence  float64 `json:"confidence"`
}

// Extraction is the full output of one extractor run over a document.
type Extraction struct {
	Fields    []ExtractedField
	LineItems []LineItem
}

// Field returns the selected field for a kind, or nil when no rule matched.
// Absence is a normal outcome and distinct from low confidence.
func (e Extraction) Field(kind FieldKind) *ExtractedField {
	for i := range e.Fields {
		if e.Fields[i].Kind == kind {
			return &e.Fields[i]
		}
	}
	return nil
}
