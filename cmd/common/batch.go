package common

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"fjacquet/card-expenses/internal/batch"
	"fjacquet/card-expenses/internal/common"
	"fjacquet/card-expenses/internal/container"
	"fjacquet/card-expenses/internal/logging"
	"fjacquet/card-expenses/internal/models"
)

// BatchOptions configures RunBatch.
type BatchOptions struct {
	InputDir  string
	OutputDir string
	Save      bool
}

// BatchOutcome is what RunBatch produced.
type BatchOutcome struct {
	Summary *batch.Summary
	Files   []string
}

// RunBatch processes every statement in InputDir and writes one consolidated
// CSV per representative to OutputDir, each headed by the list of source files.
func RunBatch(ctx context.Context, c *container.Container, opts BatchOptions) (*BatchOutcome, error) {
	logger := c.GetLogger()
	if opts.InputDir == "" || opts.OutputDir == "" {
		return nil, fmt.Errorf("input and output directories must be specified")
	}
	if err := os.MkdirAll(opts.OutputDir, models.PermissionDirectory); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	aggregator := batch.NewBatchAggregator(logger)
	files, err := aggregator.FindStatements(opts.InputDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		logger.Warn("No supported files found in input directory",
			logging.Field{Key: logging.FieldFile, Value: opts.InputDir})
		return &BatchOutcome{Summary: &batch.Summary{}}, nil
	}
	logger.Info("Found files for processing", logging.Field{Key: logging.FieldCount, Value: len(files)})

	summary := aggregator.AggregateTransactions(ctx, files, func(ctx context.Context, path string) ([]models.Transaction, error) {
		out, err := ProcessFile(ctx, c, path, ProcessOptions{Save: opts.Save})
		if err != nil {
			return nil, err
		}
		return out.Result.Transactions, nil
	})

	header := aggregator.GenerateSourceFileHeader(summary.Processed)
	keys, groups := common.GroupByRepresentative(summary.Transactions)
	outcome := &BatchOutcome{Summary: summary}
	for _, name := range keys {
		path := filepath.Join(opts.OutputDir, common.SanitizeName(name)+".csv")
		if err := writeConsolidatedCSV(groups[name], path, header, c.GetConfig().CSVDelimiter(), logger); err != nil {
			return outcome, err
		}
		logger.Info("Created consolidated file",
			logging.Field{Key: logging.FieldRepresentative, Value: name},
			logging.Field{Key: logging.FieldCount, Value: len(groups[name])},
			logging.Field{Key: logging.FieldOutputFile, Value: path})
		outcome.Files = append(outcome.Files, path)
	}
	return outcome, nil
}

// writeConsolidatedCSV writes transactions to CSV with a custom header comment
func writeConsolidatedCSV(transactions []models.Transaction, outputPath, headerComment string, delimiter rune, logger logging.Logger) error {
	file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, models.PermissionFile) // #nosec G304 -- CLI tool requires user-provided output paths
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			logger.WithError(cerr).Warn("Failed to close output file")
		}
	}()

	if headerComment != "" {
		if _, err := file.WriteString(headerComment); err != nil {
			return fmt.Errorf("failed to write header comment: %w", err)
		}
	}
	return common.WriteTransactions(file, transactions, delimiter)
}
