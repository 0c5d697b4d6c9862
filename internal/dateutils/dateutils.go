// Package dateutils recognizes and parses the date notations printed on card
// statements (US, European, ISO, and English or Spanish month names).
package dateutils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	DateLayoutISO      = "2006-01-02"
	DateLayoutUS       = "01/02/2006"
	DateLayoutUSShort  = "01/02/06"
	DateLayoutEuropean = "02.01.2006"
	DateLayoutMonthAbr = "02-Jan-2006"
)

// CommonFormats is tried in order by ParseDate. US month-first layouts come
// before day-first ones because the statements are issued in USD.
var CommonFormats = []string{
	DateLayoutISO,
	DateLayoutUS,
	"1/2/2006",
	DateLayoutUSShort,
	"1/2/06",
	"01-02-2006",
	"01-02-06",
	"02/01/2006",
	DateLayoutEuropean,
	"2006/01/02",
	DateLayoutMonthAbr,
	"2-Jan-2006",
	"02-Jan-06",
	"2 Jan 2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
}

var spanishMonths = strings.NewReplacer(
	"enero", "Jan", "febrero", "Feb", "marzo", "Mar", "abril", "Apr", "mayo", "May", "junio", "Jun",
	"julio", "Jul", "agosto", "Aug", "septiembre", "Sep", "setiembre", "Sep", "octubre", "Oct",
	"noviembre", "Nov", "diciembre", "Dec",
	"ene", "Jan", "abr", "Apr", "ago", "Aug", "dic", "Dec", "sept", "Sep",
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	dateLike   = []*regexp.Regexp{
		regexp.MustCompile(`^\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4}$`),
		regexp.MustCompile(`^\d{4}[/.\-]\d{1,2}[/.\-]\d{1,2}(?:[ T]\d{2}:\d{2}(?::\d{2})?.*)?$`),
		regexp.MustCompile(`(?i)^\d{1,2}[\s\-/]+[a-záé]{3,10}\.?(?:[\s\-/]+\d{2,4})?$`),
		regexp.MustCompile(`(?i)^[a-záé]{3,10}\.?\s+\d{1,2}(?:,?\s+\d{2,4})?$`),
		regexp.MustCompile(`^\d{1,2}/\d{1,2}$`),
	}
	monthWord   = regexp.MustCompile(`(?i)[a-záé]{3,10}`)
	knownMonths = map[string]bool{}
)

func init() {
	for _, m := range []string{
		"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "sept", "oct", "nov", "dec",
		"january", "february", "march", "april", "june", "july", "august", "september", "october", "november", "december",
		"ene", "abr", "ago", "dic", "enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto",
		"septiembre", "setiembre", "octubre", "noviembre", "diciembre",
	} {
		knownMonths[m] = true
	}
}

// CleanDateString trims and collapses whitespace.
func CleanDateString(dateStr string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(dateStr), " ")
}

// IsDateLike reports whether a cell has the shape of a date. It does not
// validate the calendar value.
func IsDateLike(cell string) bool {
	s := CleanDateString(cell)
	if s == "" || len(s) > 32 {
		return false
	}
	for i, re := range dateLike {
		if !re.MatchString(s) {
			continue
		}
		if i == 2 || i == 3 {
			word := strings.TrimSuffix(strings.ToLower(monthWord.FindString(s)), ".")
			return knownMonths[word]
		}
		return true
	}
	return false
}

// ParseDate parses dateStr with CommonFormats after translating Spanish month
// names. It returns the matching layout.
func ParseDate(dateStr string) (time.Time, string, error) {
	s := CleanDateString(dateStr)
	if s == "" {
		return time.Time{}, "", fmt.Errorf("unable to parse date: empty")
	}
	s = translateMonths(s)

	for _, layout := range CommonFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, layout, nil
		}
	}
	return time.Time{}, "", fmt.Errorf("unable to parse date: %s", dateStr)
}

func translateMonths(s string) string {
	lower := strings.ToLower(s)
	translated := spanishMonths.Replace(lower)
	if translated == lower {
		return s
	}
	// time.Parse wants "Jan", not "jan".
	return translated
}

// SameDay reports whether dateStr parses to the calendar day of t.
func SameDay(dateStr string, t time.Time) bool {
	d, _, err := ParseDate(dateStr)
	if err != nil {
		return false
	}
	y1, m1, d1 := d.Date()
	y2, m2, d2 := t.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// Renderings returns the textual forms a statement could use for t. It is
// used to check whether a date literally occurs in a source document.
func Renderings(t time.Time) []string {
	return []string{
		t.Format(DateLayoutISO),
		t.Format(DateLayoutUS),
		t.Format("1/2/2006"),
		t.Format(DateLayoutUSShort),
		t.Format("02/01/2006"),
		t.Format(DateLayoutEuropean),
		t.Format(DateLayoutMonthAbr),
		t.Format("Jan 2, 2006"),
	}
}
