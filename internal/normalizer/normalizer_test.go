package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/card-expenses/internal/carddirectory"
	"fjacquet/card-expenses/internal/dateutils"
	"fjacquet/card-expenses/internal/logging"
	"fjacquet/card-expenses/internal/models"
)

var runDate = time.Date(2024, time.March, 10, 9, 30, 0, 0, time.UTC)

func opts() Options {
	return Options{
		Directory: carddirectory.Default(),
		Now:       func() time.Time { return runDate },
		Logger:    logging.NewMockLogger(),
	}
}

func TestNormalize_LLMPath(t *testing.T) {
	o := opts()
	o.Currency = "eur"
	records := []models.RawRecord{
		{Representative: "Ana Diaz", TransactionDate: "01/15/2024", Account: "*XXXX-XXXX-XXXX-1234", Merchant: "  UBER   TRIP ", Amount: "12.50"},
		{Representative: "Ana Diaz", TransactionDate: "01/16/2024", Account: "1234", Merchant: "REFUND", Amount: "-4.00"},
	}

	txs, diag := Normalize(records, models.PathLLM, o)
	require.Len(t, txs, 2)

	first := txs[0]
	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, txs[1].ID)
	assert.Equal(t, "1234", first.Account)
	assert.Equal(t, "UBER TRIP", first.Merchant)
	assert.Equal(t, "-12.5", first.Amount.String())
	assert.Equal(t, "EUR", first.Currency)
	assert.Equal(t, models.StatusPending, first.Status)
	assert.Equal(t, "Ana Diaz", first.AssignedTo)
	assert.Equal(t, "01/15/2024", first.Date)
	assert.Equal(t, -1, first.SourceRow)

	assert.Equal(t, "-4", txs[1].Amount.String(), "LLM amounts are always negative magnitudes")
	assert.Empty(t, diag.Dropped)
}

func TestNormalize_TabularKeepsSourceSign(t *testing.T) {
	records := []models.RawRecord{
		{Representative: "Alejandro Ruiz", PostingDate: "01/05/2024", Account: "0421", Merchant: "OFFICE", Amount: "$(123.45)", Row: models.RowRef(3)},
		{Representative: "Alejandro Ruiz", PostingDate: "01/06/2024", Account: "0421", Merchant: "HOTEL", Amount: "1,234.56", Row: models.RowRef(4)},
	}

	txs, _ := Normalize(records, models.PathTabular, opts())
	require.Len(t, txs, 2)
	assert.Equal(t, "-123.45", txs[0].Amount.String())
	assert.Equal(t, "1234.56", txs[1].Amount.String())
	assert.Equal(t, models.DefaultCurrency, txs[0].Currency)
	assert.Equal(t, 4, txs[1].SourceRow)
}

func TestNormalize_ExclusionOnEveryPath(t *testing.T) {
	records := []models.RawRecord{
		{Representative: "Hemisphere Trading O", Account: "...1785", Merchant: "Payment - Auto Payment Deduction", Amount: "$500.00", PostingDate: "01/31/2024"},
		{Representative: "Hemisphere Trading O", Merchant: "AUTO PAYMENT DEDUCTION", Amount: "500.00", PostingDate: "01/31/2024"},
		{Representative: "Hemisphere Trading O", Account: "1785", Merchant: "OFFICE DEPOT", Amount: "45.00", PostingDate: "01/30/2024"},
		{Representative: "Alejandro Ruiz", Account: "0421", Merchant: "AUTO PAYMENT DEDUCTION", Amount: "10.00", PostingDate: "01/30/2024"},
	}

	for _, path := range []models.ExtractionPath{models.PathLLM, models.PathTabular} {
		t.Run(string(path), func(t *testing.T) {
			txs, diag := Normalize(records, path, opts())
			assert.Equal(t, 2, diag.Excluded)
			require.Len(t, txs, 2)
			assert.Equal(t, "OFFICE DEPOT", txs[0].Merchant, "system card kept when the description does not match")
			assert.Equal(t, "0421", txs[1].Account, "description alone does not exclude")

			dir := carddirectory.Default()
			for _, tx := range txs {
				assert.False(t, dir.IsExcludedAccount(tx.Account, tx.Merchant))
			}
		})
	}
}

func TestNormalize_UnparsableAmountsAreDropped(t *testing.T) {
	records := []models.RawRecord{
		{Merchant: "GOOD", Amount: "10.00", PostingDate: "01/01/2024"},
		{Merchant: "BAD", Amount: "N/A", PostingDate: "01/02/2024", Row: models.RowRef(9)},
		{Merchant: "EMPTY", Amount: "", PostingDate: "01/03/2024"},
	}

	txs, diag := Normalize(records, models.PathTabular, opts())
	require.Len(t, txs, 1)
	assert.Equal(t, "GOOD", txs[0].Merchant)

	require.Len(t, diag.Dropped, 2)
	assert.Equal(t, Diagnostic{Index: 1, Row: 9, Merchant: "BAD", Value: "N/A", Reason: ReasonUnparsableAmount}, diag.Dropped[0])
	assert.Equal(t, "EMPTY", diag.Dropped[1].Merchant)
}

func TestNormalize_DateSelection(t *testing.T) {
	records := []models.RawRecord{
		{Merchant: "BOTH", PostingDate: "01/16/2024", TransactionDate: "01/15/2024", Amount: "1.00"},
		{Merchant: "POSTING", PostingDate: "01/16/2024", Amount: "1.00"},
		{Merchant: "NONE", Amount: "1.00"},
	}

	txs, diag := Normalize(records, models.PathTabular, opts())
	require.Len(t, txs, 3)
	assert.Equal(t, "01/15/2024", txs[0].Date)
	assert.Equal(t, "01/16/2024", txs[1].Date)
	assert.Equal(t, "", txs[2].Date, "a missing date is never filled with today")
	require.Len(t, diag.MissingDates, 1)
	assert.Equal(t, "NONE", diag.MissingDates[0].Merchant)
}

func TestNormalize_NeverToday(t *testing.T) {
	records := []models.RawRecord{
		{Merchant: "SUSPICIOUS", TransactionDate: "03/10/2024", Amount: "1.00"},
		{Merchant: "ISO TODAY", TransactionDate: "2024-03-10", Amount: "1.00"},
		{Merchant: "YESTERDAY", TransactionDate: "03/09/2024", Amount: "1.00"},
	}

	t.Run("absent from source", func(t *testing.T) {
		o := opts()
		o.SourceText = "statement printed 03/09/2024"
		txs, diag := Normalize(records, models.PathLLM, o)
		require.Len(t, txs, 3)

		assert.Equal(t, "", txs[0].Date)
		assert.Contains(t, txs[0].Comments, models.TodayDateNote)
		assert.Equal(t, "", txs[1].Date)
		assert.Equal(t, "03/09/2024", txs[2].Date)
		assert.Len(t, diag.TodayDates, 2)

		for _, tx := range txs {
			assert.False(t, dateutils.SameDay(tx.Date, runDate))
		}
	})

	t.Run("present verbatim in source", func(t *testing.T) {
		o := opts()
		o.SourceText = "03/10/2024 SUSPICIOUS 1.00"
		txs, diag := Normalize(records[:1], models.PathLLM, o)
		require.Len(t, txs, 1)
		assert.Equal(t, "03/10/2024", txs[0].Date)
		assert.Empty(t, diag.TodayDates)
	})

	t.Run("present in another rendering", func(t *testing.T) {
		o := opts()
		o.SourceText = "Mar 10, 2024 ISO TODAY 1.00"
		txs, diag := Normalize(records[1:2], models.PathLLM, o)
		require.Len(t, txs, 1)
		assert.Equal(t, "2024-03-10", txs[0].Date)
		assert.Empty(t, diag.TodayDates)
	})
}

func TestNormalize_PatchesDatesByRowID(t *testing.T) {
	o := opts()
	o.OriginalDates = map[int]string{4: "15-Jan-2024", 5: "16-Jan-2024", 6: "20-Jan-2024"}

	// The model reordered the rows, collapsed the dates and dropped row 6.
	records := []models.RawRecord{
		{Merchant: "STARBUCKS", TransactionDate: "01/31/2024", Amount: "4.00", Row: models.RowRef(5)},
		{Merchant: "UBER", TransactionDate: "01/31/2024", Amount: "12.50", Row: models.RowRef(4)},
		{Merchant: "UNKNOWN ROW", TransactionDate: "01/31/2024", Amount: "1.00", Row: models.RowRef(99)},
	}

	txs, diag := Normalize(records, models.PathLLM, o)
	require.Len(t, txs, 3)
	assert.Equal(t, "16-Jan-2024", txs[0].Date)
	assert.Equal(t, "15-Jan-2024", txs[1].Date)
	assert.Equal(t, "01/31/2024", txs[2].Date, "no original for the row, model date kept")
	assert.Equal(t, 2, diag.PatchedDates)
	assert.Equal(t, 5, txs[0].SourceRow)
}

func TestNormalize_PositionalPatchOnlyWhenSafe(t *testing.T) {
	originals := map[int]string{10: "01/02/2024", 3: "01/01/2024"}

	t.Run("same count and no ids", func(t *testing.T) {
		o := opts()
		o.OriginalDates = originals
		records := []models.RawRecord{
			{Merchant: "A", TransactionDate: "01/31/2024", Amount: "1.00"},
			{Merchant: "B", TransactionDate: "01/31/2024", Amount: "1.00"},
		}
		txs, diag := Normalize(records, models.PathLLM, o)
		require.Len(t, txs, 2)
		assert.Equal(t, "01/01/2024", txs[0].Date)
		assert.Equal(t, "01/02/2024", txs[1].Date)
		assert.Equal(t, 2, diag.PatchedDates)
	})

	t.Run("count mismatch", func(t *testing.T) {
		o := opts()
		o.OriginalDates = originals
		records := []models.RawRecord{
			{Merchant: "A", TransactionDate: "01/31/2024", Amount: "1.00"},
		}
		txs, diag := Normalize(records, models.PathLLM, o)
		require.Len(t, txs, 1)
		assert.Equal(t, "01/31/2024", txs[0].Date)
		assert.Zero(t, diag.PatchedDates)
	})
}

func TestNormalize_CollapsedDates(t *testing.T) {
	var records []models.RawRecord
	for _, m := range []string{"A", "B", "C", "D", "E"} {
		records = append(records, models.RawRecord{Merchant: m, TransactionDate: "01/31/2024", Amount: "1.00"})
	}

	t.Run("llm path is flagged", func(t *testing.T) {
		txs, diag := Normalize(records, models.PathLLM, opts())
		require.Len(t, txs, 5)
		assert.Equal(t, "01/31/2024", diag.CollapsedDate)
		assert.Equal(t, 5, diag.Collapsed)
		for _, tx := range txs {
			assert.Equal(t, "01/31/2024", tx.Date, "dates are never auto-corrected")
			assert.Equal(t, models.CollapsedDateNote, tx.Comments)
		}
	})

	t.Run("tabular path is literal", func(t *testing.T) {
		txs, diag := Normalize(records, models.PathTabular, opts())
		assert.Empty(t, diag.CollapsedDate)
		assert.Empty(t, txs[0].Comments)
	})

	t.Run("enough distinct dates", func(t *testing.T) {
		varied := append([]models.RawRecord(nil), records...)
		varied[0].TransactionDate = "01/02/2024"
		txs, diag := Normalize(varied, models.PathLLM, opts())
		assert.Empty(t, diag.CollapsedDate)
		assert.Empty(t, txs[1].Comments)

		_, diag = Normalize(records[:4], models.PathLLM, opts())
		assert.Empty(t, diag.CollapsedDate, "too few records to judge")
	})
}

func TestNormalize_RepresentativeFallbacks(t *testing.T) {
	records := []models.RawRecord{
		{Account: "0421", Merchant: "A", Amount: "1.00"},
		{Account: "7777", Merchant: "B", Amount: "1.00"},
	}

	txs, _ := Normalize(records, models.PathLLM, opts())
	assert.Equal(t, "Alejandro Ruiz", txs[0].AssignedTo)
	assert.Equal(t, models.Unknown, txs[1].AssignedTo)

	txs, _ = Normalize(records, models.PathTabular, opts())
	assert.Equal(t, models.Unassigned, txs[1].AssignedTo)
}
