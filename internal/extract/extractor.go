package extract

import (
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/kirillkom/invoice-intake/internal/core/domain"
)

// Extractor scans source text with a rule table and selects one candidate per
// scalar field kind. It is a pure function of (text, rule set); instances are
// safe for concurrent use.
type Extractor struct {
	rules *RuleSet
}

func New(rules *RuleSet) *Extractor {
	return &Extractor{rules: rules}
}

// Extract runs every rule over every line, scores candidates, selects the
// winner per field kind, applies the numeric cross-check, and parses line
// items. Empty text yields an empty extraction, not an error.
func (e *Extractor) Extract(text domain.SourceText) domain.Extraction {
	if len(text.Lines) == 0 {
		return domain.Extraction{Fields: []domain.ExtractedField{}, LineItems: []domain.LineItem{}}
	}

	fields := make([]domain.ExtractedField, 0, len(domain.ScalarFieldKinds))
	for _, kind := range domain.ScalarFieldKinds {
		candidates := e.candidatesFor(kind, text)
		if selected := selectCandidate(candidates); selected != nil {
			fields = append(fields, domain.ExtractedField{
				Kind:       selected.Kind,
				Raw:        selected.Raw,
				Normalized: selected.Normalized,
				Confidence: selected.Confidence,
				Rule:       selected.Rule,
				Line:       selected.Line,
			})
		}
	}

	extraction := domain.Extraction{
		Fields:    fields,
		LineItems: e.extractLineItems(text),
	}
	e.applyCrossCheck(&extraction)
	return extraction
}

func (e *Extractor) candidatesFor(kind domain.FieldKind, text domain.SourceText) []domain.Candidate {
	var out []domain.Candidate
	for _, rule := range e.rules.Fields[kind] {
		base, err := domain.NewConfidence(rule.BaseConfidence)
		if err != nil {
			// Out-of-range score from a rule is an internal bug: drop the
			// rule's candidates and keep extracting the rest.
			slog.Error("dropping rule with out-of-range confidence", "rule", rule.ID, "error", err)
			continue
		}
		for _, line := range text.Lines {
			match := rule.re.FindStringSubmatch(line.Text)
			if match == nil || len(match) < 2 || match[1] == "" {
				continue
			}
			out = append(out, e.scoreCandidate(kind, rule, base, match[1], line.Number, len(text.Lines)))
		}
	}
	return out
}

func (e *Extractor) scoreCandidate(kind domain.FieldKind, rule Rule, base float64, raw string, line, totalLines int) domain.Candidate {
	confidence := base + rule.weight

	normalized, err := domain.NormalizeValue(kind, raw)
	if err != nil {
		normalized = raw
	}
	if domain.CheckFormat(kind, normalized) == nil {
		confidence += e.rules.Scoring.FormatBonus
	}
	if suspiciousRegion(kind, line, totalLines) {
		confidence -= e.rules.Scoring.RegionPenalty
	}

	return domain.Candidate{
		Kind:       kind,
		Raw:        raw,
		Normalized: normalized,
		Confidence: domain.ClampConfidence(confidence),
		Rule:       rule.ID,
		Priority:   rule.Priority,
		Line:       line,
	}
}

// suspiciousRegion flags matches far from where the field normally sits:
// amounts at the very top of a document, a supplier name at the very bottom.
func suspiciousRegion(kind domain.FieldKind, line, totalLines int) bool {
	if totalLines < 4 {
		return false
	}
	switch {
	case kind.Numeric():
		return line*5 <= totalLines // first fifth of the document
	case kind == domain.KindSupplier:
		return line*5 > totalLines*4 // last fifth
	default:
		return false
	}
}

// selectCandidate picks the winner: highest confidence, then higher rule
// priority (lower number), then earliest position in the text.
func selectCandidate(candidates []domain.Candidate) *domain.Candidate {
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		ca, cb := candidates[a], candidates[b]
		if ca.Confidence != cb.Confidence {
			return ca.Confidence > cb.Confidence
		}
		if ca.Priority != cb.Priority {
			return ca.Priority < cb.Priority
		}
		return ca.Line < cb.Line
	})
	return &candidates[0]
}

// applyCrossCheck adjusts the confidence of the numeric trio when all three
// are present: Total ≈ Subtotal + VAT earns a bonus, a mismatch beyond
// tolerance costs a penalty. The values themselves are never rejected.
func (e *Extractor) applyCrossCheck(extraction *domain.Extraction) {
	total := extraction.Field(domain.KindTotal)
	subtotal := extraction.Field(domain.KindSubtotal)
	vat := extraction.Field(domain.KindVAT)
	if total == nil || subtotal == nil || vat == nil {
		return
	}

	totalAmt, err1 := domain.ParseAmount(total.Normalized)
	subAmt, err2 := domain.ParseAmount(subtotal.Normalized)
	vatAmt, err3 := domain.ParseAmount(vat.Normalized)
	if err1 != nil || err2 != nil || err3 != nil {
		return
	}

	delta := CrossCheckDelta(totalAmt, subAmt, vatAmt)
	tolerance := CrossCheckTolerance(totalAmt, e.rules.Scoring.AbsTolerance, e.rules.Scoring.RelTolerance)

	adjust := e.rules.Scoring.CrossCheckBonus
	if delta.GreaterThan(tolerance) {
		adjust = -e.rules.Scoring.CrossCheckPenalty
	}
	for _, field := range []*domain.ExtractedField{total, subtotal, vat} {
		field.Confidence = domain.ClampConfidence(field.Confidence + adjust)
	}
}

// CrossCheckDelta is |Total - (Subtotal + VAT)|.
func CrossCheckDelta(total, subtotal, vat decimal.Decimal) decimal.Decimal {
	return total.Sub(subtotal.Add(vat)).Abs()
}

// CrossCheckTolerance is max(absolute, relative share of the total).
func CrossCheckTolerance(total decimal.Decimal, abs, rel float64) decimal.Decimal {
	absTol := decimal.NewFromFloat(abs)
	relTol := total.Abs().Mul(decimal.NewFromFloat(rel))
	if relTol.GreaterThan(absTol) {
		return relTol
	}
	return absTol
}
