// Package normalizer turns raw records from either extraction path into
// canonical transactions. It is the single place where amounts are parsed,
// signs are fixed, dates are chosen and checked, and the exclusion rule is
// applied for the last time before persistence.
package normalizer

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"fjacquet/card-expenses/internal/carddirectory"
	"fjacquet/card-expenses/internal/currencyutils"
	"fjacquet/card-expenses/internal/dateutils"
	"fjacquet/card-expenses/internal/logging"
	"fjacquet/card-expenses/internal/models"
	"fjacquet/card-expenses/internal/textutils"
)

// Minimum record count and ratio used to flag collapsed dates: a set of at
// least collapseMinRecords records whose distinct dates times
// collapseRatio is still below the record count.
const (
	collapseMinRecords = 4
	collapseRatio      = 4
)

// Options carries everything Normalize needs besides the records.
type Options struct {
	// Currency applied to every transaction. Empty means models.DefaultCurrency.
	Currency  string
	Directory *carddirectory.Directory
	// OriginalDates maps spreadsheet row ids to the date cell as displayed.
	OriginalDates map[int]string
	// SourceText is the text the records were read from; a date equal to
	// today is only kept when it occurs in it verbatim.
	SourceText string
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger logging.Logger
}

// Diagnostic describes one record that was dropped or altered.
type Diagnostic struct {
	Index    int    `json:"index" yaml:"index"`
	Row      int    `json:"row" yaml:"row"`
	Merchant string `json:"merchant,omitempty" yaml:"merchant,omitempty"`
	Value    string `json:"value,omitempty" yaml:"value,omitempty"`
	Reason   string `json:"reason" yaml:"reason"`
}

// Diagnostics summarizes what normalization had to do.
type Diagnostics struct {
	Dropped       []Diagnostic `json:"dropped,omitempty" yaml:"dropped,omitempty"`
	MissingDates  []Diagnostic `json:"missing_dates,omitempty" yaml:"missing_dates,omitempty"`
	TodayDates    []Diagnostic `json:"today_dates,omitempty" yaml:"today_dates,omitempty"`
	Excluded      int          `json:"excluded" yaml:"excluded"`
	PatchedDates  int          `json:"patched_dates" yaml:"patched_dates"`
	CollapsedDate string       `json:"collapsed_date,omitempty" yaml:"collapsed_date,omitempty"`
	Collapsed     int          `json:"collapsed" yaml:"collapsed"`
}

// Diagnostic reasons.
const (
	ReasonUnparsableAmount = "unparsable amount"
	ReasonMissingDate      = "no date in record"
	ReasonTodayDate        = "date equals run date and is absent from source"
)

// Normalize maps records to transactions. path decides the sign convention
// and the representative fallback:
//   - PathLLM: amounts become negative magnitudes; the group name is trusted,
//     an empty one falls back to the directory, then models.Unknown.
//   - PathTabular: amounts keep their source sign; an empty representative
//     falls back to the directory, then models.Unassigned.
func Normalize(records []models.RawRecord, path models.ExtractionPath, opts Options) ([]models.Transaction, Diagnostics) {
	logger := logging.OrDefault(opts.Logger)
	dir := opts.Directory
	if dir == nil {
		dir = carddirectory.Default()
	}
	currency := strings.ToUpper(strings.TrimSpace(opts.Currency))
	if currency == "" {
		currency = models.DefaultCurrency
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	today := now()

	var diag Diagnostics
	positional := positionalDates(records, opts.OriginalDates)

	out := make([]models.Transaction, 0, len(records))
	for i, rec := range records {
		merchant := textutils.CleanMerchant(rec.Merchant)
		account := accountOf(rec.Account)

		if excluded(dir, account, rec.Representative, merchant) {
			diag.Excluded++
			logger.Debug("Excluded system account transaction",
				logging.Field{Key: logging.FieldAccount, Value: account},
				logging.Field{Key: logging.FieldRow, Value: rec.SourceRow()})
			continue
		}

		amount, err := currencyutils.ParseAmount(rec.Amount)
		if err != nil {
			diag.Dropped = append(diag.Dropped, Diagnostic{
				Index: i, Row: rec.SourceRow(), Merchant: merchant, Value: rec.Amount, Reason: ReasonUnparsableAmount,
			})
			logger.Warn("Dropping record with unparsable amount",
				logging.Field{Key: logging.FieldRow, Value: rec.SourceRow()},
				logging.Field{Key: logging.FieldReason, Value: err.Error()})
			continue
		}
		if path == models.PathLLM {
			amount = amount.Abs().Neg()
		}

		tx := models.Transaction{
			ID:         uuid.NewString(),
			Account:    account,
			Merchant:   merchant,
			Amount:     amount,
			Currency:   currency,
			Status:     models.StatusPending,
			AssignedTo: representative(dir, path, rec.Representative, account),
			SourceRow:  rec.SourceRow(),
		}

		date, patched := originalDate(rec, i, opts.OriginalDates, positional)
		if patched {
			diag.PatchedDates++
		} else {
			date = firstNonEmpty(rec.TransactionDate, rec.PostingDate)
		}

		switch {
		case date == "":
			diag.MissingDates = append(diag.MissingDates, Diagnostic{Index: i, Row: tx.SourceRow, Merchant: merchant, Reason: ReasonMissingDate})
		case !patched && dateutils.SameDay(date, today) && !inSource(opts.SourceText, date, today):
			diag.TodayDates = append(diag.TodayDates, Diagnostic{Index: i, Row: tx.SourceRow, Merchant: merchant, Value: date, Reason: ReasonTodayDate})
			logger.Warn("Discarding date equal to run date",
				logging.Field{Key: logging.FieldRow, Value: tx.SourceRow},
				logging.Field{Key: "date", Value: date})
			tx.AddComment(models.TodayDateNote)
			date = ""
		}
		tx.Date = date

		out = append(out, tx)
	}

	if path == models.PathLLM {
		if dominant, n := flagCollapsedDates(out); n > 0 {
			diag.CollapsedDate = dominant
			diag.Collapsed = n
			logger.Warn("Extracted dates look collapsed",
				logging.Field{Key: "date", Value: dominant},
				logging.Field{Key: logging.FieldCount, Value: n})
		}
	}

	logger.Debug("Normalized records",
		logging.Field{Key: logging.FieldCount, Value: len(out)},
		logging.Field{Key: "dropped", Value: len(diag.Dropped)},
		logging.Field{Key: "excluded", Value: diag.Excluded})
	return out, diag
}

// accountOf returns the last four digits when they can be found, else the
// trimmed raw text.
func accountOf(raw string) string {
	if last4 := textutils.ExtractLast4(raw); last4 != "" {
		return last4
	}
	return strings.TrimSpace(raw)
}

// excluded applies the directory rule. A record without a card number that
// the model filed under the system account's holder is checked against that
// account.
func excluded(dir *carddirectory.Directory, account, group, merchant string) bool {
	if dir.IsExcludedAccount(account, merchant) {
		return true
	}
	if account != "" || group == "" {
		return false
	}
	for _, e := range dir.Entries() {
		if e.Excluded && strings.EqualFold(e.Representative, strings.TrimSpace(group)) {
			return dir.IsExcludedAccount(e.Last4, merchant)
		}
	}
	return false
}

func representative(dir *carddirectory.Directory, path models.ExtractionPath, group, account string) string {
	if name := strings.TrimSpace(group); name != "" {
		return name
	}
	if name, ok := dir.Resolve(account); ok {
		return name
	}
	if path == models.PathLLM {
		return models.Unknown
	}
	return models.Unassigned
}

// positionalDates lines up original dates with records by position. It is
// only used when no record carries a row id and both lists have the same
// length; otherwise it returns nil.
func positionalDates(records []models.RawRecord, originals map[int]string) []string {
	if len(originals) == 0 || len(originals) != len(records) {
		return nil
	}
	for _, r := range records {
		if r.Row != nil {
			return nil
		}
	}
	rows := make([]int, 0, len(originals))
	for row := range originals {
		rows = append(rows, row)
	}
	sort.Ints(rows)
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = originals[row]
	}
	return out
}

func originalDate(rec models.RawRecord, i int, originals map[int]string, positional []string) (string, bool) {
	if rec.Row != nil {
		if d := strings.TrimSpace(originals[*rec.Row]); d != "" {
			return d, true
		}
		return "", false
	}
	if i < len(positional) {
		if d := strings.TrimSpace(positional[i]); d != "" {
			return d, true
		}
	}
	return "", false
}

// flagCollapsedDates comments every transaction carrying the dominant date
// when too few distinct dates remain. It returns that date and how many
// transactions were flagged.
func flagCollapsedDates(txs []models.Transaction) (string, int) {
	if len(txs) < collapseMinRecords {
		return "", 0
	}
	counts := map[string]int{}
	for _, t := range txs {
		if t.Date != "" {
			counts[t.Date]++
		}
	}
	if len(counts) == 0 || len(counts)*collapseRatio >= len(txs) {
		return "", 0
	}

	dominant, best := "", 0
	for _, t := range txs {
		if c := counts[t.Date]; c > best {
			dominant, best = t.Date, c
		}
	}
	for i := range txs {
		if txs[i].Date == dominant {
			txs[i].AddComment(models.CollapsedDateNote)
		}
	}
	return dominant, best
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// inSource reports whether the source text shows date either as written or
// in any common rendering of today.
func inSource(text, date string, today time.Time) bool {
	if text == "" {
		return false
	}
	if strings.Contains(text, date) {
		return true
	}
	for _, r := range dateutils.Renderings(today) {
		if strings.Contains(text, r) {
			return true
		}
	}
	return false
}
