// Package textutils extracts card numbers, totals and keywords from the free
// text found in statement cells and lines.
package textutils

import (
	"regexp"
	"strings"
)

var last4Patterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:[X*]{4}[\s\-]?){3}(\d{4})`),
	regexp.MustCompile(`(?i)\*+\s?(\d{4})\b`),
	regexp.MustCompile(`(?i)ending(?:\s+in)?\s*:?\s*(\d{4})\b`),
	regexp.MustCompile(`(?i)terminad[ao](?:\s+en)?\s*:?\s*(\d{4})\b`),
	regexp.MustCompile(`\.{2,}\s?(\d{4})\b`),
	regexp.MustCompile(`\b\d{4}[\s\-]?\d{4}[\s\-]?\d{4}[\s\-]?(\d{4})\b`),
	regexp.MustCompile(`^\s*(\d{4})\s*$`),
}

// ExtractLast4 returns the last four digits of a masked or full card number
// found in s, or "" when none is present.
func ExtractLast4(s string) string {
	for _, re := range last4Patterns {
		if m := re.FindStringSubmatch(s); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}

var declaredTotal = regexp.MustCompile(`(?i)\btotal\b.*?(\$?\s?\(?-?\d[\d,' ]*[.,]\d{2}\)?)\s*$`)

// ExtractDeclaredTotal returns the amount text of a "Total USD 748.22" style
// line, or "" if line is not a total line.
func ExtractDeclaredTotal(line string) string {
	m := declaredTotal.FindStringSubmatch(strings.TrimSpace(line))
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

var currencyTotal = regexp.MustCompile(`(?i)\btotal\s*:?\s*(?:USD|EUR|CHF|GBP|ARS|MXN|COP|CLP)\b`)

// IsCurrencyTotal reports whether line is a total qualified by a currency
// code, such as "Total USD 748.22". Those lines are a block's grand total;
// "Total Payments" and similar lines are partial sums.
func IsCurrencyTotal(line string) bool {
	return currencyTotal.MatchString(line)
}

// ContainsAny reports whether s contains any keyword, case-insensitively.
// Keywords must be lower case.
func ContainsAny(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

var spaces = regexp.MustCompile(`\s+`)

// NormalizeHeader lower-cases a header cell and collapses its whitespace.
func NormalizeHeader(cell string) string {
	return spaces.ReplaceAllString(strings.ToLower(strings.TrimSpace(cell)), " ")
}

// CleanMerchant trims a merchant description and collapses inner whitespace.
func CleanMerchant(s string) string {
	return spaces.ReplaceAllString(strings.TrimSpace(s), " ")
}

// JoinRow renders a spreadsheet row as a single line, skipping empty cells.
func JoinRow(row []string) string {
	parts := make([]string, 0, len(row))
	for _, c := range row {
		if c = strings.TrimSpace(c); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " | ")
}

// IsBlankRow reports whether every cell is empty.
func IsBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
