package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fjacquet/card-expenses/internal/logging"
	"fjacquet/card-expenses/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tx(date, account, merchant, amount string) models.Transaction {
	return models.Transaction{Date: date, Account: account, Merchant: merchant, Amount: decimal.RequireFromString(amount)}
}

func TestBatchAggregator_FindStatements(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.xlsx", "a.pdf", "notes.txt", ".hidden.pdf", "c.CSV"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.pdf"), 0750))

	files, err := NewBatchAggregator(logging.NewMockLogger()).FindStatements(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.pdf"),
		filepath.Join(dir, "b.xlsx"),
		filepath.Join(dir, "c.CSV"),
	}, files)

	_, err = NewBatchAggregator(nil).FindStatements(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestBatchAggregator_AggregateTransactions(t *testing.T) {
	logger := logging.NewMockLogger()
	ba := NewBatchAggregator(logger)

	results := map[string][]models.Transaction{
		"jan.pdf": {
			tx("01/15/2024", "0421", "HOTEL", "-700.00"),
			tx("01/20/2024", "0421", "TAXI", "-12.00"),
			tx("01/20/2024", "0421", "TAXI", "-12.00"),
		},
		"feb.xlsx": {
			tx("20-Jan-2024", "0421", "taxi ", "-12"),
			tx("02/02/2024", "5523", "CAFE", "-4.00"),
		},
	}
	process := func(_ context.Context, path string) ([]models.Transaction, error) {
		if path == "bad.pdf" {
			return nil, errors.New("unreadable")
		}
		return results[path], nil
	}

	summary := ba.AggregateTransactions(context.Background(), []string{"bad.pdf", "feb.xlsx", "jan.pdf"}, process)

	assert.Equal(t, []string{"feb.xlsx", "jan.pdf"}, summary.Processed)
	require.Len(t, summary.Failed, 1)
	assert.Equal(t, "bad.pdf", summary.Failed[0].File)
	require.Len(t, summary.Transactions, 5)
	assert.Equal(t, "CAFE", summary.Transactions[1].Merchant, "files keep their order")
	assert.Equal(t, 1, summary.Duplicates, "same-file repeats are not duplicates")
	assert.True(t, logger.HasEntry("ERROR", "Failed to process statement"))
	assert.True(t, logger.HasEntry("WARN", "Potential duplicate transaction"))
}

func TestBatchAggregator_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	summary := NewBatchAggregator(nil).AggregateTransactions(ctx, []string{"a.pdf"}, func(context.Context, string) ([]models.Transaction, error) {
		called = true
		return nil, nil
	})
	assert.False(t, called)
	require.Len(t, summary.Failed, 1)
	assert.ErrorIs(t, summary.Failed[0].Err, context.Canceled)
}

func TestArePotentialDuplicates(t *testing.T) {
	base := tx("01/20/2024", "0421", "TAXI", "-12.00")
	tests := []struct {
		name  string
		other models.Transaction
		want  bool
	}{
		{"identical", base, true},
		{"other rendering of the day", tx("2024-01-20", "0421", "Taxi", "-12"), true},
		{"other day", tx("01/21/2024", "0421", "TAXI", "-12.00"), false},
		{"other account", tx("01/20/2024", "5523", "TAXI", "-12.00"), false},
		{"other amount", tx("01/20/2024", "0421", "TAXI", "-12.50"), false},
		{"other merchant", tx("01/20/2024", "0421", "UBER", "-12.00"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, arePotentialDuplicates(base, tt.other))
		})
	}

	assert.False(t, arePotentialDuplicates(tx("", "0421", "TAXI", "-1"), tx("", "0421", "TAXI", "-1")), "blank dates never match")
}

func TestGenerateSourceFileHeader(t *testing.T) {
	ba := NewBatchAggregator(nil)
	ba.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }

	header := ba.GenerateSourceFileHeader([]string{"/in/jan.pdf", "/in/feb.xlsx"})
	assert.True(t, strings.HasPrefix(header, "# Consolidated from source files:\n"))
	assert.Contains(t, header, "# - jan.pdf\n")
	assert.Contains(t, header, "# - feb.xlsx\n")
	assert.Contains(t, header, "# Generated on: 2024-03-01 09:30:00")

	assert.Equal(t, "", ba.GenerateSourceFileHeader(nil))
}
