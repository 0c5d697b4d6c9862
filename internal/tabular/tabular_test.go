package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/card-expenses/internal/carddirectory"
	"fjacquet/card-expenses/internal/logging"
	"fjacquet/card-expenses/internal/models"
	"fjacquet/card-expenses/internal/parsererror"
)

func twoBlockStatement() [][]string {
	return [][]string{
		{"Corporate Card Statement"},
		{"Statement period 01/01/2024 - 01/31/2024"},
		{"Card ending in 0421"},
		{"Posting Date", "Tran Date", "Supplier", "Amount"},
		{"01/16/2024", "01/15/2024", "UBER TRIP", "12.50"},
		{"01/17/2024", "01/16/2024", "STARBUCKS", "4.00"},
		{"Total USD", "", "", "16.50"},
		{},
		{"Card ending in 0937"},
		{"Posting Date", "Tran Date", "Supplier", "Amount"},
		{"01/20/2024", "01/19/2024", "DELTA AIR", "320.00"},
		{"", "", "LATE FEE ADJ", "5.00"},
		{"", "", "ROUNDING", "0.00"},
		{"Page 1 of 1"},
	}
}

func TestExtract_MultiBlock(t *testing.T) {
	ex := New(carddirectory.Default(), logging.NewMockLogger())

	res, err := ex.Extract(twoBlockStatement())
	require.NoError(t, err)

	require.Len(t, res.Blocks, 2)
	assert.Equal(t, "0421", res.Blocks[0].Account)
	assert.Equal(t, "Alejandro Ruiz", res.Blocks[0].Representative)
	require.NotNil(t, res.Blocks[0].DeclaredTotal)
	assert.Equal(t, "16.5", res.Blocks[0].DeclaredTotal.String())
	assert.Equal(t, "Beatriz Salgado", res.Blocks[1].Representative)

	require.Len(t, res.Records, 4)
	assert.Equal(t, []string{"Alejandro Ruiz", "Alejandro Ruiz", "Beatriz Salgado", "Beatriz Salgado"},
		[]string{res.Records[0].Representative, res.Records[1].Representative, res.Records[2].Representative, res.Records[3].Representative})

	first := res.Records[0]
	assert.Equal(t, "01/16/2024", first.PostingDate)
	assert.Equal(t, "01/15/2024", first.TransactionDate)
	assert.Equal(t, "UBER TRIP", first.Merchant)
	assert.Equal(t, "12.50", first.Amount)
	assert.Equal(t, 4, first.SourceRow())
	assert.Equal(t, 0, first.Block)

	assert.Empty(t, res.Discrepancies)
}

func TestExtract_ZeroAmountWithoutDateIsSkipped(t *testing.T) {
	res, err := New(nil, logging.NewMockLogger()).Extract(twoBlockStatement())
	require.NoError(t, err)

	var merchants []string
	for _, r := range res.Records {
		merchants = append(merchants, r.Merchant)
	}
	assert.Contains(t, merchants, "LATE FEE ADJ")
	assert.NotContains(t, merchants, "ROUNDING")
}

func TestExtract_ExclusionAndAccountColumn(t *testing.T) {
	rows := [][]string{
		{"Account", "Posting Date", "Supplier", "Amount"},
		{"*XXXX-XXXX-XXXX-1785", "01/05/2024", "AUTO PAYMENT DEDUCTION", "-1500.00"},
		{"*XXXX-XXXX-XXXX-1785", "01/06/2024", "OFFICE DEPOT", "45.00"},
		{"*XXXX-XXXX-XXXX-9999", "01/07/2024", "CAFE", "3.00"},
	}

	res, err := New(carddirectory.Default(), logging.NewMockLogger()).Extract(rows)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Excluded)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "1785", res.Records[0].Account)
	assert.Equal(t, "Hemisphere Trading O", res.Records[0].Representative)
	assert.Equal(t, "9999", res.Records[1].Account)
	assert.Equal(t, models.Unassigned, res.Records[1].Representative)
}

func TestExtract_HeaderlessSingleBlock(t *testing.T) {
	rows := [][]string{
		{"01/15/2024", "UBER", "12.50"},
		{"01/16/2024", "LYFT", "8.00"},
	}

	res, err := New(nil, logging.NewMockLogger()).Extract(rows)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "UBER", res.Records[0].Merchant)
	assert.Equal(t, 0, res.Records[0].SourceRow())
	assert.Equal(t, -1, res.Blocks[0].HeaderRow)
}

func TestExtract_DeclaredTotalMismatch(t *testing.T) {
	rows := [][]string{
		{"Posting Date", "Supplier", "Amount"},
		{"01/05/2024", "HOTEL", "100.00"},
		{"Total", "", "120.00"},
	}

	logger := logging.NewMockLogger()
	res, err := New(nil, logger).Extract(rows)
	require.NoError(t, err)
	require.Len(t, res.Discrepancies, 1)
	assert.Equal(t, "120", res.Discrepancies[0].Declared.String())
	assert.NotEmpty(t, logger.GetEntriesByLevel("WARN"))
	assert.Len(t, res.Records, 1, "advisory check never drops records")
}

func TestExtract_DeclaredTotalPicksGrandTotal(t *testing.T) {
	tests := []struct {
		name   string
		totals [][]string
		want   string
	}{
		{
			name:   "currency total after partial total",
			totals: [][]string{{"Total Payments", "", "500.00"}, {"Total USD", "", "748.22"}},
			want:   "748.22",
		},
		{
			name:   "currency total before partial total",
			totals: [][]string{{"Total USD", "", "748.22"}, {"Total Payments", "", "500.00"}},
			want:   "748.22",
		},
		{
			name:   "last unqualified total",
			totals: [][]string{{"Total Payments", "", "500.00"}, {"Total Charges", "", "748.22"}},
			want:   "748.22",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := [][]string{
				{"Posting Date", "Supplier", "Amount"},
				{"01/05/2024", "HOTEL", "700.00"},
				{"01/06/2024", "TAXI", "48.22"},
			}
			rows = append(rows, tt.totals...)

			res, err := New(nil, logging.NewMockLogger()).Extract(rows)
			require.NoError(t, err)
			require.Len(t, res.Blocks, 1)
			require.NotNil(t, res.Blocks[0].DeclaredTotal)
			assert.Equal(t, tt.want, res.Blocks[0].DeclaredTotal.StringFixed(2))
			assert.Empty(t, res.Discrepancies)
		})
	}
}

func TestExtract_UnparsableAmountKeptForNormalizer(t *testing.T) {
	rows := [][]string{
		{"Posting Date", "Supplier", "Amount"},
		{"01/05/2024", "HOTEL", "n/a"},
	}

	res, err := New(nil, logging.NewMockLogger()).Extract(rows)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "n/a", res.Records[0].Amount)
}

func TestExtract_ColumnDetectionFailure(t *testing.T) {
	tests := []struct {
		name   string
		rows   [][]string
		column string
	}{
		{name: "no date column", rows: [][]string{{"Name", "Notes"}, {"foo", "bar"}}, column: "date"},
		{name: "empty sheet", rows: [][]string{{}, {""}}, column: "header"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(nil, logging.NewMockLogger()).Extract(tt.rows)
			var colErr *parsererror.ColumnDetectionError
			require.ErrorAs(t, err, &colErr)
			assert.Equal(t, tt.column, colErr.Column)
		})
	}
}
