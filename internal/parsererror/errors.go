// Package parsererror holds the typed errors surfaced by the extraction
// pipeline. Callers match them with errors.As / errors.Is.
package parsererror

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyDocument is wrapped by ExtractionError when a file opens but
	// yields no rows or text.
	ErrEmptyDocument = errors.New("document contains no extractable content")
	// ErrUnsupportedFormat is returned for file extensions no extractor handles.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrNotFound is returned by the store for unknown statement or transaction ids.
	ErrNotFound = errors.New("not found")
)

// ExtractionError means the source file could not be read at all. It is fatal
// for the current run.
type ExtractionError struct {
	FilePath string
	Kind     string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("could not extract %s content from '%s': %v", e.Kind, e.FilePath, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ColumnDetectionError means the tabular extractor could not find a required
// column. The pipeline recovers by routing the document through the LLM path.
type ColumnDetectionError struct {
	Column string
	Block  int
}

func (e *ColumnDetectionError) Error() string {
	if e.Block > 0 {
		return fmt.Sprintf("could not detect %s column in block %d", e.Column, e.Block)
	}
	return fmt.Sprintf("could not detect %s column", e.Column)
}

// LLMError is a transient completion failure (network, status code, empty
// body). It is retried by the orchestrator and never surfaced to callers.
type LLMError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *LLMError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s completion failed with status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s completion failed: %v", e.Provider, e.Err)
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

// ParseError is a single field that could not be parsed.
type ParseError struct {
	Parser string
	Field  string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: failed to parse %s='%s': %v", e.Parser, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// InvalidFormatError means the input does not look like what the caller
// expected, e.g. a model response that no repair strategy could read.
type InvalidFormatError struct {
	Source         string
	ExpectedFormat string
	Snippet        string
	Msg            string
}

func (e *InvalidFormatError) Error() string {
	if e.Snippet != "" {
		return fmt.Sprintf("invalid format in %s: %s. Expected: %s. Content snippet: '%s'",
			e.Source, e.Msg, e.ExpectedFormat, e.Snippet)
	}
	return fmt.Sprintf("invalid format in %s: %s. Expected: %s", e.Source, e.Msg, e.ExpectedFormat)
}
