package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Accepted date layouts, day-first preferred over US order on ambiguity.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"02.01.2006",
	"2006/01/02",
	"2 Jan 2006",
	"2 January 2006",
	"2 Jan 06",
}

var (
	ordinalSuffixRe  = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)\b`)
	invoiceNumberRe  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9\-/._]*$`)
	amountJunkRe     = regexp.MustCompile(`[$,\s]`)
	maxPlausibleCost = decimal.RequireFromString("999999.99")
)

// NormalizeDate parses a raw date string into ISO form (2006-01-02).
func NormalizeDate(raw string) (string, error) {
	v := ordinalSuffixRe.ReplaceAllString(strings.TrimSpace(raw), "$1")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", WrapError(ErrValidation, "normalize date", fmt.Errorf("unrecognized date %q", raw))
}

// ParseAmount parses a monetary string, tolerating currency signs and
// thousands separators.
func ParseAmount(raw string) (decimal.Decimal, error) {
	cleaned := amountJunkRe.ReplaceAllString(raw, "")
	if cleaned == "" {
		return decimal.Zero, WrapError(ErrValidation, "parse amount", fmt.Errorf("empty amount %q", raw))
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, WrapError(ErrValidation, "parse amount", fmt.Errorf("unparseable amount %q", raw))
	}
	return amount, nil
}

// AmountTooLarge reports the original system's plausibility ceiling.
func AmountTooLarge(amount decimal.Decimal) bool {
	return amount.GreaterThan(maxPlausibleCost)
}

// CheckFormat applies the per-kind format rule. The same check gates
// extraction bonuses, validation, and reviewer corrections.
func CheckFormat(kind FieldKind, value string) error {
	value = strings.TrimSpace(value)
	switch kind {
	case KindInvoiceNumber:
		if utf8.RuneCountInString(value) < 3 {
			return WrapError(ErrValidation, "check invoice number", fmt.Errorf("too short: %q", value))
		}
		if !invoiceNumberRe.MatchString(value) {
			return WrapError(ErrValidation, "check invoice number", fmt.Errorf("invalid characters: %q", value))
		}
		return nil
	case KindDate:
		_, err := NormalizeDate(value)
		return err
	case KindTotal, KindVAT, KindSubtotal:
		amount, err := ParseAmount(value)
		if err != nil {
			return err
		}
		if amount.IsNegative() {
			return WrapError(ErrValidation, "check amount", fmt.Errorf("negative amount %q", value))
		}
		if !amount.Equal(amount.Round(2)) {
			return WrapError(ErrValidation, "check amount", fmt.Errorf("more than two fractional digits: %q", value))
		}
		return nil
	case KindSupplier:
		if utf8.RuneCountInString(value) < 2 {
			return WrapError(ErrValidation, "check supplier", fmt.Errorf("too short: %q", value))
		}
		return nil
	default:
		return WrapError(ErrInvalidInput, "check format", fmt.Errorf("no scalar format rule for kind %q", kind))
	}
}

// NormalizeValue converts a raw match into the stored form: ISO dates,
// two-decimal amounts, trimmed text.
func NormalizeValue(kind FieldKind, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	switch kind {
	case KindDate:
		return NormalizeDate(raw)
	case KindTotal, KindVAT, KindSubtotal:
		amount, err := ParseAmount(raw)
		if err != nil {
			return "", err
		}
		return amount.Round(2).StringFixed(2), nil
	case KindInvoiceNumber:
		return strings.ToUpper(raw), nil
	default:
		return raw, nil
	}
}
