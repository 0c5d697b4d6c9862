// Package common contains shared functionality for command handlers
package common

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"fjacquet/card-expenses/internal/common"
	"fjacquet/card-expenses/internal/container"
	"fjacquet/card-expenses/internal/logging"
	"fjacquet/card-expenses/internal/models"
	"fjacquet/card-expenses/internal/pipeline"
	"fjacquet/card-expenses/internal/report"
)

// ProcessOptions says what to do with a processed statement.
type ProcessOptions struct {
	// Output is the CSV file to write. Empty with OutputDir set derives the
	// name from the input file; both empty writes no CSV.
	Output    string
	OutputDir string
	// SplitByRepresentative writes one CSV per cardholder.
	SplitByRepresentative bool
	Save                  bool
	// ReportFormat is json or yaml; empty skips the report.
	ReportFormat string
	ReportOut    io.Writer
}

// Outcome is what ProcessFile produced.
type Outcome struct {
	Result      *pipeline.Result
	StatementID string
	Files       []string
}

// ProcessFile runs the pipeline on one input and handles its outputs. Errors
// from extraction and persistence come back already phrased for the user.
func ProcessFile(ctx context.Context, c *container.Container, input string, opts ProcessOptions) (*Outcome, error) {
	logger := c.GetLogger().WithFields(logging.Field{Key: logging.FieldFile, Value: input})

	res, err := c.GetProcessor().Process(ctx, input)
	if err != nil {
		return nil, pipeline.UserError(err)
	}
	out := &Outcome{Result: res}

	if opts.Save {
		st, err := c.GetStore()
		if err != nil {
			return out, pipeline.UserError(fmt.Errorf("failed to open store: %w", err))
		}
		if out.StatementID, err = c.GetProcessor().Save(ctx, st, res); err != nil {
			return out, pipeline.UserError(err)
		}
	}

	files, err := writeCSV(res, input, opts, c.GetConfig().CSVDelimiter(), logger)
	out.Files = files
	if err != nil {
		return out, err
	}

	if opts.ReportFormat != "" && opts.ReportOut != nil {
		data, err := c.GetReportGenerator().GenerateReport(report.FromResult(res), opts.ReportFormat)
		if err != nil {
			return out, err
		}
		if _, err := opts.ReportOut.Write(data); err != nil {
			return out, fmt.Errorf("failed to write report: %w", err)
		}
	}
	return out, nil
}

func writeCSV(res *pipeline.Result, input string, opts ProcessOptions, delimiter rune, logger logging.Logger) ([]string, error) {
	if opts.Output == "" && opts.OutputDir == "" {
		return nil, nil
	}

	dir := opts.OutputDir
	if opts.Output != "" {
		dir = filepath.Dir(opts.Output)
	}

	if !opts.SplitByRepresentative {
		path := opts.Output
		if path == "" {
			path = common.OutputPath(dir, input, "")
		}
		if err := common.WriteTransactionsToCSV(nonNil(res.Transactions), path, delimiter, logger); err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	base := input
	if opts.Output != "" {
		base = opts.Output
	}
	keys, groups := common.GroupByRepresentative(res.Transactions)
	files := make([]string, 0, len(keys))
	for _, name := range keys {
		path := common.OutputPath(dir, base, name)
		if err := common.WriteTransactionsToCSV(groups[name], path, delimiter, logger); err != nil {
			return files, err
		}
		files = append(files, path)
	}
	return files, nil
}

func nonNil(txs []models.Transaction) []models.Transaction {
	if txs == nil {
		return []models.Transaction{}
	}
	return txs
}
