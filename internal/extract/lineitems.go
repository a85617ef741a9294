package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kirillkom/invoice-intake/internal/core/domain"
)

// Line-item shapes, most specific first. Confidence mirrors how much of the
// tuple was read from the document versus derived.
var (
	itemFullRe     = regexp.MustCompile(`^(.{5,50}?)\s+([0-9]{1,4})\s+\$?\s*([0-9][0-9,]*(?:\.[0-9]+)?)\s+\$?\s*([0-9][0-9,]*(?:\.[0-9]+)?)$`)
	itemQtyPriceRe = regexp.MustCompile(`^(.{5,50}?)\s+([0-9]{1,4})\s+\$?\s*([0-9][0-9,]*(?:\.[0-9]+)?)$`)
	itemPriceRe    = regexp.MustCompile(`^(.{5,50}?)\s+\$?\s*([0-9][0-9,]*(?:\.[0-9]+)?)$`)

	// Lines carrying scalar field labels are headers/summary rows, not items.
	itemSkipRe = regexp.MustCompile(`(?i)^\s*(?:invoice|inv\b|bill|doc\b|reference|ref\b|date|subtotal|sub\s+total|net\s+amount|total|vat|tax|gst|amount|balance|from|supplier|vendor|sold\s+by|description|qty|quantity)\b`)
)

func (e *Extractor) extractLineItems(text domain.SourceText) []domain.LineItem {
	items := make([]domain.LineItem, 0)
	seen := make(map[string]bool)

	for _, line := range text.Lines {
		trimmed := strings.TrimSpace(line.Text)
		if len(trimmed) < 5 || itemSkipRe.MatchString(trimmed) {
			continue
		}

		item, ok := parseLineItem(trimmed)
		if !ok {
			continue
		}
		key := strings.ToLower(item.Description)
		if len(item.Description) <= 2 || seen[key] {
			continue
		}
		seen[key] = true
		item.Position = len(items) + 1
		items = append(items, item)
	}
	return items
}

func parseLineItem(line string) (domain.LineItem, bool) {
	if m := itemFullRe.FindStringSubmatch(line); m != nil {
		qty, err1 := strconv.Atoi(m[2])
		unit, err2 := parsePrice(m[3])
		amount, err3 := parsePrice(m[4])
		if err1 == nil && err2 == nil && err3 == nil {
			return domain.LineItem{Description: strings.TrimSpace(m[1]), Quantity: qty, UnitPrice: unit, Amount: amount, Confidence: 0.9}, true
		}
	}
	if m := itemQtyPriceRe.FindStringSubmatch(line); m != nil {
		qty, err1 := strconv.Atoi(m[2])
		unit, err2 := parsePrice(m[3])
		if err1 == nil && err2 == nil {
			return domain.LineItem{Description: strings.TrimSpace(m[1]), Quantity: qty, UnitPrice: unit, Amount: float64(qty) * unit, Confidence: 0.8}, true
		}
	}
	if m := itemPriceRe.FindStringSubmatch(line); m != nil {
		price, err := parsePrice(m[2])
		if err == nil {
			return domain.LineItem{Description: strings.TrimSpace(m[1]), Quantity: 1, UnitPrice: price, Amount: price, Confidence: 0.7}, true
		}
	}
	return domain.LineItem{}, false
}

func parsePrice(raw string) (float64, error) {
	amount, err := domain.ParseAmount(raw)
	if err != nil {
		return 0, err
	}
	value, _ := amount.Round(2).Float64()
	return value, nil
}
