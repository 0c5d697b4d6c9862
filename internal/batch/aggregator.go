// Package batch processes a directory of statements and consolidates their
// transactions per representative.
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"fjacquet/card-expenses/internal/dateutils"
	"fjacquet/card-expenses/internal/logging"
	"fjacquet/card-expenses/internal/models"
	"fjacquet/card-expenses/internal/textextract"
)

// ProcessFunc handles one statement file.
type ProcessFunc func(ctx context.Context, path string) ([]models.Transaction, error)

// FileError records a statement that could not be processed.
type FileError struct {
	File string
	Err  error
}

// Summary is the outcome of one batch run.
type Summary struct {
	Files        []string
	Processed    []string
	Failed       []FileError
	Transactions []models.Transaction
	Duplicates   int
}

// BatchAggregator walks a directory and aggregates the transactions of
// every supported statement in it.
type BatchAggregator struct {
	logger logging.Logger
	now    func() time.Time
}

// NewBatchAggregator creates a new batch aggregator.
func NewBatchAggregator(logger logging.Logger) *BatchAggregator {
	return &BatchAggregator{logger: logging.OrDefault(logger), now: time.Now}
}

// FindStatements lists the supported files directly inside dir, sorted by name.
func (ba *BatchAggregator) FindStatements(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if textextract.IsSupported(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// AggregateTransactions runs process on every file. A failed file is logged
// and skipped. Transactions keep their per-file order; files follow each
// other in name order.
func (ba *BatchAggregator) AggregateTransactions(ctx context.Context, files []string, process ProcessFunc) *Summary {
	summary := &Summary{Files: files}
	var origins []int

	for i, file := range files {
		if ctx.Err() != nil {
			summary.Failed = append(summary.Failed, FileError{File: file, Err: ctx.Err()})
			continue
		}

		ba.logger.Debug("Processing file", logging.Field{Key: logging.FieldFile, Value: filepath.Base(file)})
		txs, err := process(ctx, file)
		if err != nil {
			ba.logger.WithError(err).Error("Failed to process statement",
				logging.Field{Key: logging.FieldFile, Value: file})
			summary.Failed = append(summary.Failed, FileError{File: file, Err: err})
			continue
		}

		summary.Processed = append(summary.Processed, file)
		summary.Transactions = append(summary.Transactions, txs...)
		for range txs {
			origins = append(origins, i)
		}
	}

	summary.Duplicates = ba.detectAndLogDuplicates(summary.Transactions, origins)

	ba.logger.Info("Aggregated statements",
		logging.Field{Key: logging.FieldCount, Value: len(summary.Transactions)},
		logging.Field{Key: "processed", Value: len(summary.Processed)},
		logging.Field{Key: "failed", Value: len(summary.Failed)})
	return summary
}

// detectAndLogDuplicates counts transactions that look like one from another
// file: same account, same day, same amount and merchant. Overlapping
// statements produce these; nothing is removed. origins[i] is the file index
// of transactions[i].
func (ba *BatchAggregator) detectAndLogDuplicates(transactions []models.Transaction, origins []int) int {
	duplicateCount := 0
	for i := 0; i < len(transactions)-1; i++ {
		for j := i + 1; j < len(transactions); j++ {
			if origins[i] == origins[j] {
				continue
			}
			if arePotentialDuplicates(transactions[i], transactions[j]) {
				duplicateCount++
				ba.logger.Warn("Potential duplicate transaction",
					logging.Field{Key: logging.FieldAccount, Value: transactions[i].Account},
					logging.Field{Key: "date", Value: transactions[i].Date},
					logging.Field{Key: "amount", Value: transactions[i].Amount.String()},
					logging.Field{Key: "merchant", Value: transactions[i].Merchant})
				break
			}
		}
	}
	return duplicateCount
}

func arePotentialDuplicates(tx1, tx2 models.Transaction) bool {
	if tx1.Date == "" || !sameDate(tx1.Date, tx2.Date) {
		return false
	}
	if !tx1.Amount.Equal(tx2.Amount) || tx1.Account != tx2.Account {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(tx1.Merchant), strings.TrimSpace(tx2.Merchant))
}

// sameDate compares two date cells by calendar day when both parse and by
// text otherwise.
func sameDate(a, b string) bool {
	ta, _, errA := dateutils.ParseDate(a)
	if errA != nil {
		return strings.TrimSpace(a) == strings.TrimSpace(b)
	}
	return dateutils.SameDay(b, ta)
}

// GenerateSourceFileHeader creates a header comment listing source files
func (ba *BatchAggregator) GenerateSourceFileHeader(sourceFiles []string) string {
	if len(sourceFiles) == 0 {
		return ""
	}

	var header strings.Builder
	header.WriteString("# Consolidated from source files:\n")
	for _, file := range sourceFiles {
		header.WriteString(fmt.Sprintf("# - %s\n", filepath.Base(file)))
	}
	header.WriteString("# Generated on: ")
	header.WriteString(ba.now().Format("2006-01-02 15:04:05"))
	header.WriteString("\n#\n")

	return header.String()
}
