// Package tabular extracts transactions directly from spreadsheet rows,
// without a model call. A statement may hold several blocks, each introduced
// by its own header row and usually belonging to one cardholder.
package tabular

import (
	"strings"

	"fjacquet/card-expenses/internal/carddirectory"
	"fjacquet/card-expenses/internal/columns"
	"fjacquet/card-expenses/internal/currencyutils"
	"fjacquet/card-expenses/internal/dateutils"
	"fjacquet/card-expenses/internal/logging"
	"fjacquet/card-expenses/internal/models"
	"fjacquet/card-expenses/internal/parsererror"
	"fjacquet/card-expenses/internal/reconcile"
	"fjacquet/card-expenses/internal/textutils"
)

// SkipKeywords mark structural rows (period banners, totals, balances, page
// footers). They only apply to rows without a date in the date column.
var SkipKeywords = []string{
	"statement period", "periodo", "total", "subtotal", "balance", "saldo",
	"page ", "página", "pagina", "previous", "new charges", "credit limit",
}

// preambleDepth is how many rows above a header are searched for the block's
// card number.
const preambleDepth = 5

// Extraction is the outcome of a tabular pass.
type Extraction struct {
	Records       []models.RawRecord
	Blocks        []models.StatementBlock
	Discrepancies []models.Discrepancy
	Skipped       int
	Excluded      int
}

// Extractor implements the direct tabular path.
type Extractor struct {
	directory *carddirectory.Directory
	logger    logging.Logger
}

// New creates a tabular extractor. A nil directory uses the built-in table.
func New(directory *carddirectory.Directory, logger logging.Logger) *Extractor {
	if directory == nil {
		directory = carddirectory.Default()
	}
	return &Extractor{directory: directory, logger: logging.OrDefault(logger)}
}

// Extract splits rows into blocks and pulls one raw record per transaction
// row. It fails with a ColumnDetectionError when a block has no date or amount
// column; the caller is expected to fall back to the LLM path.
func (e *Extractor) Extract(rows [][]string) (*Extraction, error) {
	blocks := splitBlocks(rows)
	if len(blocks) == 0 {
		return nil, &parsererror.ColumnDetectionError{Column: "header"}
	}

	out := &Extraction{}
	for i := range blocks {
		b := &blocks[i]
		if err := e.extractBlock(rows, b, out); err != nil {
			return nil, err
		}
		out.Blocks = append(out.Blocks, *b)
	}

	out.Discrepancies = reconcile.CheckBlocks(out.Blocks, out.Records, e.logger)

	e.logger.Info("Tabular extraction finished",
		logging.Field{Key: logging.FieldCount, Value: len(out.Records)},
		logging.Field{Key: logging.FieldBlock, Value: len(out.Blocks)},
		logging.Field{Key: "skipped", Value: out.Skipped},
		logging.Field{Key: "excluded", Value: out.Excluded})
	return out, nil
}

// splitBlocks uses every header row as a block marker. Without any marker the
// first non-blank row is the single header, unless it is already data.
func splitBlocks(rows [][]string) []models.StatementBlock {
	var headers []int
	for i, r := range rows {
		if columns.IsHeaderRow(r) {
			headers = append(headers, i)
		}
	}

	if len(headers) == 0 {
		first := -1
		for i, r := range rows {
			if !textutils.IsBlankRow(r) {
				first = i
				break
			}
		}
		if first < 0 {
			return nil
		}
		b := models.StatementBlock{Index: 0, HeaderRow: first, StartRow: first + 1, EndRow: len(rows)}
		if looksLikeData(rows[first]) {
			b.HeaderRow = -1
			b.StartRow = first
		}
		return []models.StatementBlock{b}
	}

	blocks := make([]models.StatementBlock, 0, len(headers))
	for k, h := range headers {
		end := len(rows)
		if k+1 < len(headers) {
			end = headers[k+1]
		}
		blocks = append(blocks, models.StatementBlock{Index: k, HeaderRow: h, StartRow: h + 1, EndRow: end})
	}
	return blocks
}

func looksLikeData(row []string) bool {
	for _, c := range row {
		if dateutils.IsDateLike(c) || currencyutils.IsAmountLike(c) {
			return true
		}
	}
	return false
}

func (e *Extractor) extractBlock(rows [][]string, b *models.StatementBlock, out *Extraction) error {
	var header []string
	if b.HeaderRow >= 0 {
		header = rows[b.HeaderRow]
	}
	data := rows[b.StartRow:b.EndRow]
	layout := columns.DetectLayout(header, data)

	if layout.Date() == columns.NotFound {
		return &parsererror.ColumnDetectionError{Column: "date", Block: b.Index + 1}
	}
	if layout.Amount == columns.NotFound {
		return &parsererror.ColumnDetectionError{Column: "amount", Block: b.Index + 1}
	}

	b.Account = preambleAccount(rows, b.HeaderRow)
	if b.Account != "" {
		if name, ok := e.directory.Resolve(b.Account); ok {
			b.Representative = name
		} else {
			b.Representative = models.Unassigned
		}
	}

	log := e.logger.WithField(logging.FieldBlock, b.Index)
	// A currency-qualified total wins; otherwise the last total line does.
	grandTotal := false
	for i := b.StartRow; i < b.EndRow; i++ {
		row := rows[i]
		if textutils.IsBlankRow(row) {
			continue
		}

		date := cell(row, layout.Date())
		amountText := cell(row, layout.Amount)

		if !dateutils.IsDateLike(date) && textutils.ContainsAny(textutils.JoinRow(row), SkipKeywords) {
			line := textutils.JoinRow(row)
			if total := textutils.ExtractDeclaredTotal(line); total != "" {
				qualified := textutils.IsCurrencyTotal(line)
				if d, err := currencyutils.ParseAmount(total); err == nil && (qualified || !grandTotal) {
					b.DeclaredTotal = &d
					grandTotal = grandTotal || qualified
				}
			}
			out.Skipped++
			continue
		}

		amount, err := currencyutils.ParseAmount(amountText)
		if err != nil && !dateutils.IsDateLike(date) {
			// Neither a date nor an amount: a banner or a preamble row.
			out.Skipped++
			continue
		}
		if err == nil && amount.IsZero() && strings.TrimSpace(date) == "" {
			out.Skipped++
			continue
		}

		merchant := textutils.CleanMerchant(cell(row, layout.Merchant))
		account := b.Account
		if layout.Account != columns.NotFound {
			raw := cell(row, layout.Account)
			if last4 := textutils.ExtractLast4(raw); last4 != "" {
				account = last4
			} else if strings.TrimSpace(raw) != "" {
				account = strings.TrimSpace(raw)
			}
		}

		if e.directory.IsExcludedAccount(account, merchant) {
			log.Debug("Dropping system account row",
				logging.Field{Key: logging.FieldRow, Value: i},
				logging.Field{Key: logging.FieldAccount, Value: account})
			out.Excluded++
			continue
		}

		rep := models.Unassigned
		if name, ok := e.directory.Resolve(account); ok {
			rep = name
		}

		out.Records = append(out.Records, models.RawRecord{
			PostingDate:     cell(row, layout.PostingDate),
			TransactionDate: cell(row, layout.TranDate),
			Account:         account,
			Merchant:        merchant,
			Amount:          strings.TrimSpace(amountText),
			Row:             models.RowRef(i),
			Representative:  rep,
			Block:           b.Index,
		})
	}
	return nil
}

// preambleAccount looks upward from the header for a line naming a card,
// stopping at the previous header or a transaction row.
func preambleAccount(rows [][]string, headerRow int) string {
	for i := headerRow - 1; i >= 0 && i >= headerRow-preambleDepth; i-- {
		row := rows[i]
		if columns.IsHeaderRow(row) {
			return ""
		}
		if looksLikeTransaction(row) {
			return ""
		}
		if last4 := textutils.ExtractLast4(textutils.JoinRow(row)); last4 != "" {
			return last4
		}
	}
	return ""
}

func looksLikeTransaction(row []string) bool {
	hasDate, hasAmount := false, false
	for _, c := range row {
		hasDate = hasDate || dateutils.IsDateLike(c)
		hasAmount = hasAmount || currencyutils.IsAmountLike(c)
	}
	return hasDate && hasAmount
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
