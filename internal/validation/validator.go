// Package validation checks an extraction against format, plausibility and
// arithmetic rules and folds the result into a per-invoice report.
package validation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/kirillkom/invoice-intake/internal/core/domain"
	"github.com/kirillkom/invoice-intake/internal/extract"
)

// Config holds validation thresholds. Zero values are replaced by defaults in
// New so callers can set only what they tune.
type Config struct {
	// ConfidenceThreshold marks fields below it with a review warning.
	ConfidenceThreshold float64
	// AbsTolerance / RelTolerance bound acceptable arithmetic drift between
	// Total and Subtotal+VAT (and the line-item sum). The larger of the two
	// applies.
	AbsTolerance float64
	RelTolerance float64
	// MaxVATShare flags a VAT amount above this fraction of the total.
	MaxVATShare float64
}

func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: 0.7,
		AbsTolerance:        0.01,
		RelTolerance:        0.01,
		MaxVATShare:         0.30,
	}
}

// Validator implements ports.InvoiceValidator. Stateless and safe for
// concurrent use.
type Validator struct {
	cfg Config
}

func New(cfg Config) *Validator {
	def := DefaultConfig()
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = def.ConfidenceThreshold
	}
	if cfg.AbsTolerance <= 0 {
		cfg.AbsTolerance = def.AbsTolerance
	}
	if cfg.RelTolerance <= 0 {
		cfg.RelTolerance = def.RelTolerance
	}
	if cfg.MaxVATShare <= 0 {
		cfg.MaxVATShare = def.MaxVATShare
	}
	return &Validator{cfg: cfg}
}

// Validate checks every selected field plus the invoice-level arithmetic.
// It never rejects a document: the outcome is a report, and only the caller
// decides what to do with an "error" status.
func (v *Validator) Validate(extraction domain.Extraction) domain.ValidationReport {
	issues := make([]domain.FieldIssue, 0, len(domain.ScalarFieldKinds))

	for _, kind := range domain.ScalarFieldKinds {
		field := extraction.Field(kind)
		if field == nil {
			if kind.Required() {
				issues = append(issues, domain.FieldIssue{
					Kind:   kind,
					Status: domain.ValidationError,
					Reason: fmt.Sprintf("required field %s not found", kind),
				})
			}
			continue
		}

		issue := v.ValidateField(kind, field.Normalized)
		if issue.Status == domain.ValidationValid && field.Confidence < v.cfg.ConfidenceThreshold {
			issue = domain.FieldIssue{
				Kind:   kind,
				Status: domain.ValidationWarning,
				Reason: fmt.Sprintf("confidence %.2f below review threshold %.2f", field.Confidence, v.cfg.ConfidenceThreshold),
			}
		}
		issues = append(issues, issue)
	}

	issues = append(issues, v.crossCheck(extraction)...)
	issues = append(issues, v.vatShare(extraction)...)
	issues = append(issues, v.lineItemSum(extraction)...)

	return domain.NewValidationReport(issues)
}

// ValidateField re-checks a single normalized value, as used when a reviewer
// submits a correction.
func (v *Validator) ValidateField(kind domain.FieldKind, value string) domain.FieldIssue {
	if err := domain.CheckFormat(kind, value); err != nil {
		return domain.FieldIssue{Kind: kind, Status: domain.ValidationError, Reason: err.Error()}
	}
	if kind.Numeric() {
		amount, err := domain.ParseAmount(value)
		if err == nil && domain.AmountTooLarge(amount) {
			return domain.FieldIssue{
				Kind:   kind,
				Status: domain.ValidationWarning,
				Reason: fmt.Sprintf("amount %s above plausibility ceiling", value),
			}
		}
	}
	return domain.FieldIssue{Kind: kind, Status: domain.ValidationValid, Reason: "ok"}
}

// crossCheck verifies Total = Subtotal + VAT within tolerance. A mismatch is
// a warning: extracted numbers stay untouched and a reviewer resolves it.
func (v *Validator) crossCheck(extraction domain.Extraction) []domain.FieldIssue {
	total, okT := numericValue(extraction, domain.KindTotal)
	subtotal, okS := numericValue(extraction, domain.KindSubtotal)
	vat, okV := numericValue(extraction, domain.KindVAT)
	if !okT || !okS || !okV {
		return nil
	}

	delta := extract.CrossCheckDelta(total, subtotal, vat)
	tolerance := extract.CrossCheckTolerance(total, v.cfg.AbsTolerance, v.cfg.RelTolerance)
	if !delta.GreaterThan(tolerance) {
		return nil
	}
	return []domain.FieldIssue{{
		Kind:   domain.KindTotal,
		Status: domain.ValidationWarning,
		Reason: fmt.Sprintf("total %s does not match subtotal %s + vat %s (off by %s)", total, subtotal, vat, delta),
	}}
}

func (v *Validator) vatShare(extraction domain.Extraction) []domain.FieldIssue {
	total, okT := numericValue(extraction, domain.KindTotal)
	vat, okV := numericValue(extraction, domain.KindVAT)
	if !okT || !okV || !total.IsPositive() {
		return nil
	}
	share := vat.Div(total)
	if share.LessThanOrEqual(decimal.NewFromFloat(v.cfg.MaxVATShare)) {
		return nil
	}
	return []domain.FieldIssue{{
		Kind:   domain.KindVAT,
		Status: domain.ValidationWarning,
		Reason: fmt.Sprintf("vat %s is %s of total %s, above %.0f%%", vat, share.Round(2), total, v.cfg.MaxVATShare*100),
	}}
}

// lineItemSum compares the parsed line items against the stated total. Only
// runs when both sides exist; partial item extraction is too common to treat
// as more than a warning.
func (v *Validator) lineItemSum(extraction domain.Extraction) []domain.FieldIssue {
	total, ok := numericValue(extraction, domain.KindTotal)
	if !ok || len(extraction.LineItems) == 0 {
		return nil
	}

	sum := decimal.Zero
	for _, item := range extraction.LineItems {
		sum = sum.Add(decimal.NewFromFloat(item.Amount))
	}

	// Items are pre-tax on most invoices; accept either the subtotal or the
	// total as the matching side.
	if subtotal, okS := numericValue(extraction, domain.KindSubtotal); okS {
		if withinTolerance(v.cfg, sum, subtotal) {
			return nil
		}
	}
	if withinTolerance(v.cfg, sum, total) {
		return nil
	}
	return []domain.FieldIssue{{
		Kind:   domain.KindLineItem,
		Status: domain.ValidationWarning,
		Reason: fmt.Sprintf("line items sum to %s, which matches neither subtotal nor total %s", sum, total),
	}}
}

func withinTolerance(cfg Config, got, want decimal.Decimal) bool {
	tolerance := extract.CrossCheckTolerance(want, cfg.AbsTolerance, cfg.RelTolerance)
	return !got.Sub(want).Abs().GreaterThan(tolerance)
}

func numericValue(extraction domain.Extraction, kind domain.FieldKind) (decimal.Decimal, bool) {
	field := extraction.Field(kind)
	if field == nil {
		return decimal.Zero, false
	}
	amount, err := domain.ParseAmount(field.Normalized)
	if err != nil {
		return decimal.Zero, false
	}
	return amount, true
}
