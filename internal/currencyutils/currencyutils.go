// Package currencyutils parses and formats the monetary amounts found on card
// statements.
package currencyutils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrEmptyAmount is returned for blank amount cells.
var ErrEmptyAmount = errors.New("empty amount")

var (
	symbolPattern   = regexp.MustCompile(`[€$£¥₣₹\s\x{00a0}]|\b(?:USD|EUR|CHF|GBP|ARS|MXN|COP|CLP)\b`)
	amountLike      = regexp.MustCompile(`^\(?-?\$?\s?-?\d{1,3}(?:[,.' ]\d{3})*(?:[.,]\d{1,2})?\)?-?$|^\(?-?\$?\s?-?\d+(?:[.,]\d{1,2})?\)?-?$`)
	trailingCredit  = regexp.MustCompile(`(?i)\s*(CR|DR)$`)
	trailingMinus   = regexp.MustCompile(`^(.*\d)-$`)
	parenthesisWrap = regexp.MustCompile(`^\((.*)\)$`)
)

// ParseAmount converts a statement amount into a decimal.
//
// Accepted notations include "1,234.56", "1.234,56", "$(123.45)" (negative),
// "123.45-" (negative), "-$12.00" and "45.10 CR". Blank or non-numeric input
// returns an error; callers decide whether to drop the record.
func ParseAmount(amountStr string) (decimal.Decimal, error) {
	s := strings.TrimSpace(amountStr)
	if s == "" {
		return decimal.Zero, ErrEmptyAmount
	}

	negative := false
	if m := trailingCredit.FindStringSubmatch(s); m != nil {
		negative = strings.EqualFold(m[1], "CR")
		s = strings.TrimSpace(trailingCredit.ReplaceAllString(s, ""))
	}

	s = symbolPattern.ReplaceAllString(s, "")
	if m := parenthesisWrap.FindStringSubmatch(s); m != nil {
		negative = !negative
		s = m[1]
	}
	if m := trailingMinus.FindStringSubmatch(s); m != nil {
		negative = !negative
		s = m[1]
	}
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}
	// "$-12" and "-$12" both land here once the symbol is stripped.
	s = strings.TrimPrefix(s, "+")

	d, err := decimal.NewFromString(StandardizeAmount(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// StandardizeAmount rewrites thousands and decimal separators into the form
// decimal.NewFromString expects.
func StandardizeAmount(amountStr string) string {
	s := strings.ReplaceAll(amountStr, "'", "")
	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")

	switch {
	case hasComma && hasDot:
		if strings.LastIndex(s, ".") < strings.LastIndex(s, ",") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		parts := strings.Split(s, ",")
		if len(parts) == 2 && len(parts[1]) <= 2 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}
	return s
}

// IsAmountLike reports whether a cell looks like a monetary amount. Bare
// integers without separators qualify only when short, so that card numbers
// and years are not mistaken for amounts.
func IsAmountLike(cell string) bool {
	s := strings.TrimSpace(cell)
	if s == "" {
		return false
	}
	s = trailingCredit.ReplaceAllString(s, "")
	s = symbolPattern.ReplaceAllString(s, "")
	if !amountLike.MatchString(s) {
		return false
	}
	if !strings.ContainsAny(s, ".,") && len(strings.Trim(s, "()-$")) > 4 {
		return false
	}
	return true
}

// FormatAmount renders an amount with two decimals and a currency marker.
func FormatAmount(amount decimal.Decimal, currency string) string {
	formatted := amount.StringFixed(2)
	switch strings.ToUpper(currency) {
	case "":
		return formatted
	case "USD":
		return "$" + formatted
	case "EUR":
		return "€" + formatted
	case "GBP":
		return "£" + formatted
	default:
		return strings.ToUpper(currency) + " " + formatted
	}
}

// Tolerance is the largest difference treated as equal when reconciling
// totals.
var Tolerance = decimal.NewFromFloat(0.01)

// WithinTolerance compares the magnitudes of two totals. Statements print
// totals unsigned while records may carry either sign.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Abs().Sub(b.Abs()).Abs().LessThanOrEqual(Tolerance)
}
