package models

import "github.com/shopspring/decimal"

// SourceKind is the physical format of an input file.
type SourceKind string

const (
	SourcePDF         SourceKind = "pdf"
	SourceSpreadsheet SourceKind = "spreadsheet"
)

// ExtractionPath records which extractor produced a set of records. It drives
// the sign convention applied during normalization.
type ExtractionPath string

const (
	PathTabular ExtractionPath = "tabular"
	PathLLM     ExtractionPath = "llm"
)

// Document is the output of text extraction.
type Document struct {
	Path string
	Kind SourceKind
	// Text is the flattened content sent to the LLM path. PDF pages are
	// separated by "Page X of Y" markers; spreadsheet rows are tagged
	// with "[R<index>]".
	Text string
	// Rows holds spreadsheet cells as displayed. Empty for PDFs.
	Rows [][]string
	// OriginalDates maps row index to the date token exactly as it appeared
	// in the source cell.
	OriginalDates map[int]string
	Pages         int
}

// StatementBlock is one contiguous section of a tabular statement, normally
// one cardholder's transactions under its own header row.
type StatementBlock struct {
	Index          int
	HeaderRow      int
	StartRow       int
	EndRow         int
	Account        string
	Representative string
	DeclaredTotal  *decimal.Decimal
}

// Discrepancy is an advisory reconciliation finding: the declared total of a
// group or block differs from the sum of its records by more than the
// tolerance.
type Discrepancy struct {
	Representative string          `json:"representative" yaml:"representative"`
	Block          int             `json:"block,omitempty" yaml:"block,omitempty"`
	Declared       decimal.Decimal `json:"declared" yaml:"declared"`
	Computed       decimal.Decimal `json:"computed" yaml:"computed"`
	Difference     decimal.Decimal `json:"difference" yaml:"difference"`
}
