// Package columns locates the semantic columns of a statement table, first by
// header text and then, when headers are missing or unhelpful, by the shape of
// the cell values.
package columns

import (
	"strings"
	"unicode"

	"fjacquet/card-expenses/internal/currencyutils"
	"fjacquet/card-expenses/internal/dateutils"
	"fjacquet/card-expenses/internal/textutils"
)

// NotFound is returned when no column qualifies.
const NotFound = -1

// Header keywords, lower case. Order inside a list does not matter; the
// leftmost matching column wins.
var (
	PostingDateKeywords = []string{"posting date", "post date", "fecha de contabilizaci", "fecha contable", "fecha de registro"}
	TranDateKeywords    = []string{"tran date", "trans date", "transaction date", "fecha de transacci", "fecha de operaci", "fecha operaci"}
	DateKeywords        = []string{"date", "fecha"}
	MerchantKeywords    = []string{"supplier", "merchant", "description", "descripci", "comercio", "proveedor", "concepto", "detalle"}
	AmountKeywords      = []string{"amount", "importe", "monto", "valor"}
	AccountKeywords     = []string{"account", "card", "cuenta", "tarjeta"}
)

// DetectColumn returns the first column whose header contains any keyword.
func DetectColumn(header []string, keywords []string) int {
	for i, cell := range header {
		h := textutils.NormalizeHeader(cell)
		if h == "" {
			continue
		}
		for _, k := range keywords {
			if strings.Contains(h, k) {
				return i
			}
		}
	}
	return NotFound
}

// DetectColumnByContent scores each column by how many data cells satisfy
// predicate. The highest score wins, ties go to the leftmost column, and a
// column with no matching cell never wins.
func DetectColumnByContent(rows [][]string, predicate func(string) bool) int {
	return detectByContent(rows, predicate, nil)
}

func detectByContent(rows [][]string, predicate func(string) bool, skip map[int]bool) int {
	scores := map[int]int{}
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
		for i, cell := range row {
			if skip[i] {
				continue
			}
			if predicate(strings.TrimSpace(cell)) {
				scores[i]++
			}
		}
	}

	best, bestScore := NotFound, 0
	for i := 0; i < width; i++ {
		if scores[i] > bestScore {
			best, bestScore = i, scores[i]
		}
	}
	return best
}

// IsMerchantLike accepts free text that is neither a date nor an amount.
func IsMerchantLike(cell string) bool {
	if cell == "" || dateutils.IsDateLike(cell) || currencyutils.IsAmountLike(cell) {
		return false
	}
	letters := 0
	for _, r := range cell {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters >= 3
}

// IsAccountLike accepts masked or full card numbers.
func IsAccountLike(cell string) bool {
	if cell == "" || currencyutils.IsAmountLike(cell) {
		return false
	}
	return textutils.ExtractLast4(cell) != ""
}

// Layout is the set of column indexes the tabular extractor needs. Any field
// may be NotFound; Date and Amount are required for extraction.
type Layout struct {
	PostingDate int
	TranDate    int
	Merchant    int
	Amount      int
	Account     int
}

// Date returns the column used as the record date.
func (l Layout) Date() int {
	if l.TranDate != NotFound {
		return l.TranDate
	}
	return l.PostingDate
}

// DetectLayout resolves every column from the header, falling back to content
// detection over data for the ones the header does not name.
func DetectLayout(header []string, data [][]string) Layout {
	l := Layout{
		PostingDate: DetectColumn(header, PostingDateKeywords),
		TranDate:    DetectColumn(header, TranDateKeywords),
		Merchant:    DetectColumn(header, MerchantKeywords),
		Amount:      DetectColumn(header, AmountKeywords),
		Account:     DetectColumn(header, AccountKeywords),
	}

	if l.PostingDate == NotFound && l.TranDate == NotFound {
		l.PostingDate = DetectColumn(header, DateKeywords)
	}

	taken := func() map[int]bool {
		m := map[int]bool{}
		for _, c := range []int{l.PostingDate, l.TranDate, l.Merchant, l.Amount, l.Account} {
			if c != NotFound {
				m[c] = true
			}
		}
		return m
	}

	if l.PostingDate == NotFound && l.TranDate == NotFound {
		l.PostingDate = detectByContent(data, dateutils.IsDateLike, taken())
	}
	if l.Amount == NotFound {
		l.Amount = detectByContent(data, currencyutils.IsAmountLike, taken())
	}
	if l.Account == NotFound {
		l.Account = detectByContent(data, IsAccountLike, taken())
	}
	if l.Merchant == NotFound {
		l.Merchant = detectByContent(data, IsMerchantLike, taken())
	}
	return l
}

// IsHeaderRow reports whether a row is a statement table header: it names a
// date column, a merchant column and an amount column, and none of its cells
// is itself a date.
func IsHeaderRow(row []string) bool {
	hasDate := DetectColumn(row, DateKeywords) != NotFound
	hasMerchant := DetectColumn(row, MerchantKeywords) != NotFound
	hasAmount := DetectColumn(row, AmountKeywords) != NotFound
	if !hasDate || !hasMerchant || !hasAmount {
		return false
	}
	for _, c := range row {
		if dateutils.IsDateLike(c) {
			return false
		}
	}
	return true
}
