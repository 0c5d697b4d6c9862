// Package report renders extraction summaries as JSON or YAML.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"fjacquet/card-expenses/internal/logging"
	"fjacquet/card-expenses/internal/models"
	"fjacquet/card-expenses/internal/normalizer"
	"fjacquet/card-expenses/internal/pipeline"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Supported formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// RepresentativeSummary totals one cardholder's transactions.
type RepresentativeSummary struct {
	Name  string          `json:"name" yaml:"name"`
	Count int             `json:"count" yaml:"count"`
	Total decimal.Decimal `json:"total" yaml:"total"`
}

// BlockSummary describes one tabular block.
type BlockSummary struct {
	Index          int              `json:"index" yaml:"index"`
	Rows           string           `json:"rows" yaml:"rows"`
	Account        string           `json:"account,omitempty" yaml:"account,omitempty"`
	Representative string           `json:"representative,omitempty" yaml:"representative,omitempty"`
	DeclaredTotal  *decimal.Decimal `json:"declared_total,omitempty" yaml:"declared_total,omitempty"`
}

// Summary is the report of one statement.
type Summary struct {
	File             string                  `json:"file" yaml:"file"`
	StatementID      string                  `json:"statement_id,omitempty" yaml:"statement_id,omitempty"`
	SourceKind       models.SourceKind       `json:"source_kind" yaml:"source_kind"`
	ExtractionPath   models.ExtractionPath   `json:"extraction_path,omitempty" yaml:"extraction_path,omitempty"`
	Stage            string                  `json:"stage,omitempty" yaml:"stage,omitempty"`
	Strategy         string                  `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	TransactionCount int                     `json:"transaction_count" yaml:"transaction_count"`
	Total            decimal.Decimal         `json:"total" yaml:"total"`
	Representatives  []RepresentativeSummary `json:"representatives" yaml:"representatives"`
	Blocks           []BlockSummary          `json:"blocks,omitempty" yaml:"blocks,omitempty"`
	Discrepancies    []models.Discrepancy    `json:"discrepancies,omitempty" yaml:"discrepancies,omitempty"`
	Diagnostics      *normalizer.Diagnostics `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// FromResult summarizes a pipeline run.
func FromResult(res *pipeline.Result) *Summary {
	s := summarize(res.Statement, res.Transactions)
	s.Stage = res.Stage
	s.Strategy = res.Strategy
	s.Discrepancies = res.Discrepancies
	diag := res.Diagnostics
	s.Diagnostics = &diag
	for _, b := range res.Blocks {
		s.Blocks = append(s.Blocks, BlockSummary{
			Index:          b.Index,
			Rows:           fmt.Sprintf("%d-%d", b.StartRow, b.EndRow),
			Account:        b.Account,
			Representative: b.Representative,
			DeclaredTotal:  b.DeclaredTotal,
		})
	}
	return s
}

// FromStatement summarizes a stored statement.
func FromStatement(st *models.Statement) *Summary {
	return summarize(*st, st.Transactions)
}

func summarize(st models.Statement, txs []models.Transaction) *Summary {
	s := &Summary{
		File:             st.Filename,
		StatementID:      st.ID,
		SourceKind:       st.SourceKind,
		ExtractionPath:   st.Path,
		TransactionCount: len(txs),
		Total:            decimal.Zero,
		Representatives:  []RepresentativeSummary{},
	}

	index := make(map[string]int)
	for _, tx := range txs {
		s.Total = s.Total.Add(tx.Amount)
		i, ok := index[tx.AssignedTo]
		if !ok {
			i = len(s.Representatives)
			index[tx.AssignedTo] = i
			s.Representatives = append(s.Representatives, RepresentativeSummary{Name: tx.AssignedTo, Total: decimal.Zero})
		}
		s.Representatives[i].Count++
		s.Representatives[i].Total = s.Representatives[i].Total.Add(tx.Amount)
	}
	sort.SliceStable(s.Representatives, func(a, b int) bool {
		return s.Representatives[a].Name < s.Representatives[b].Name
	})
	return s
}

// ReportGenerator provides functionality to render summaries in various formats.
type ReportGenerator struct {
	logger logging.Logger
}

// NewReportGenerator creates a new instance of ReportGenerator.
func NewReportGenerator(logger logging.Logger) *ReportGenerator {
	return &ReportGenerator{logger: logging.OrDefault(logger)}
}

// GenerateReport renders the summary in the given format (json or yaml).
func (g *ReportGenerator) GenerateReport(summary *Summary, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		return g.generateJSONReport(summary)
	case FormatYAML, "yml":
		return g.generateYAMLReport(summary)
	default:
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}

func (g *ReportGenerator) generateJSONReport(summary *Summary) ([]byte, error) {
	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		g.logger.WithError(err).Error("Failed to marshal JSON report")
		return nil, fmt.Errorf("failed to marshal JSON report: %w", err)
	}
	return out, nil
}

func (g *ReportGenerator) generateYAMLReport(summary *Summary) ([]byte, error) {
	out, err := yaml.Marshal(summary)
	if err != nil {
		g.logger.WithError(err).Error("Failed to marshal YAML report")
		return nil, fmt.Errorf("failed to marshal YAML report: %w", err)
	}
	return out, nil
}
