package columns

import (
	"testing"

	"fjacquet/card-expenses/internal/currencyutils"
	"fjacquet/card-expenses/internal/dateutils"

	"github.com/stretchr/testify/assert"
)

func TestDetectColumn(t *testing.T) {
	header := []string{"Posting Date", "Tran Date", "Supplier", "Amount"}

	assert.Equal(t, 0, DetectColumn(header, PostingDateKeywords))
	assert.Equal(t, 1, DetectColumn(header, TranDateKeywords))
	assert.Equal(t, 2, DetectColumn(header, MerchantKeywords))
	assert.Equal(t, 3, DetectColumn(header, AmountKeywords))
	assert.Equal(t, NotFound, DetectColumn(header, AccountKeywords))
	assert.Equal(t, 0, DetectColumn(header, DateKeywords), "leftmost match wins")
}

func TestDetectColumnByContent(t *testing.T) {
	rows := [][]string{
		{"01/15/2024", "UBER", "12.50", "01/16/2024"},
		{"01/16/2024", "AMAZON", "99.99", "01/17/2024"},
		{"", "Statement period", "", ""},
	}

	t.Run("tie goes to first column", func(t *testing.T) {
		assert.Equal(t, 0, DetectColumnByContent(rows, dateutils.IsDateLike))
	})

	t.Run("highest score wins", func(t *testing.T) {
		assert.Equal(t, 2, DetectColumnByContent(rows, currencyutils.IsAmountLike))
	})

	t.Run("no matches", func(t *testing.T) {
		assert.Equal(t, NotFound, DetectColumnByContent(rows, func(string) bool { return false }))
		assert.Equal(t, NotFound, DetectColumnByContent(nil, dateutils.IsDateLike))
	})
}

func TestDetectLayout_FromHeader(t *testing.T) {
	header := []string{"Account", "Posting Date", "Tran Date", "Supplier", "Amount"}
	l := DetectLayout(header, nil)

	assert.Equal(t, Layout{Account: 0, PostingDate: 1, TranDate: 2, Merchant: 3, Amount: 4}, l)
	assert.Equal(t, 2, l.Date())
}

func TestDetectLayout_ContentFallback(t *testing.T) {
	header := []string{"", "", "", ""}
	data := [][]string{
		{"*XXXX-XXXX-XXXX-0421", "01/15/2024", "STARBUCKS 123", "$4.50"},
		{"*XXXX-XXXX-XXXX-0421", "01/16/2024", "DELTA AIR", "$(120.00)"},
	}

	l := DetectLayout(header, data)
	assert.Equal(t, 0, l.Account)
	assert.Equal(t, 1, l.PostingDate)
	assert.Equal(t, NotFound, l.TranDate)
	assert.Equal(t, 2, l.Merchant)
	assert.Equal(t, 3, l.Amount)
	assert.Equal(t, 1, l.Date())
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsMerchantLike("WALMART #123"))
	assert.False(t, IsMerchantLike("12.00"))
	assert.False(t, IsMerchantLike("01/01/2024"))
	assert.False(t, IsMerchantLike("A1"))

	assert.True(t, IsAccountLike("XXXX XXXX XXXX 1234"))
	assert.False(t, IsAccountLike("12.00"))
	assert.False(t, IsAccountLike("HOTEL"))
}

func TestIsHeaderRow(t *testing.T) {
	tests := []struct {
		name string
		row  []string
		want bool
	}{
		{name: "full header", row: []string{"Posting Date", "Tran Date", "Supplier", "Amount"}, want: true},
		{name: "spanish header", row: []string{"Fecha", "Descripción", "Importe"}, want: true},
		{name: "missing amount", row: []string{"Posting Date", "Supplier"}, want: false},
		{name: "data row", row: []string{"01/15/2024", "Amount due", "Description", "10.00"}, want: false},
		{name: "blank", row: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsHeaderRow(tt.row))
		})
	}
}
