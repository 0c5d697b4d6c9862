// Package textextract turns statement files into a models.Document: page text
// for PDFs, cell rows for spreadsheets, plus the original date token of every
// spreadsheet row.
package textextract

import (
	"fmt"
	"path/filepath"
	"strings"

	"fjacquet/card-expenses/internal/logging"
	"fjacquet/card-expenses/internal/models"
	"fjacquet/card-expenses/internal/parsererror"
)

// Extractor reads one file.
type Extractor interface {
	Extract(path string) (*models.Document, error)
}

// PDF engines.
const (
	EngineNative    = "native"
	EnginePdftotext = "pdftotext"
)

// Factory dispatches on file extension. It implements Extractor itself.
type Factory struct {
	pdf         Extractor
	spreadsheet Extractor
	logger      logging.Logger
}

// NewFactory builds the default extractors. engine selects the PDF backend.
func NewFactory(engine string, logger logging.Logger) *Factory {
	logger = logging.OrDefault(logger)

	var pages PageReader = NativePageReader{}
	if strings.EqualFold(engine, EnginePdftotext) {
		pages = PdftotextPageReader{}
	}
	return &Factory{
		pdf:         NewPDFExtractor(pages, logger),
		spreadsheet: NewSpreadsheetExtractor(logger),
		logger:      logger,
	}
}

// NewFactoryWith builds a factory from explicit extractors.
func NewFactoryWith(pdf, spreadsheet Extractor, logger logging.Logger) *Factory {
	return &Factory{pdf: pdf, spreadsheet: spreadsheet, logger: logging.OrDefault(logger)}
}

// KindForPath maps an extension to its source kind.
func KindForPath(path string) (models.SourceKind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return models.SourcePDF, nil
	case ".xlsx", ".xlsm", ".xls", ".csv":
		return models.SourceSpreadsheet, nil
	default:
		return "", fmt.Errorf("%w: %s", parsererror.ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// IsSupported reports whether path has an extension the factory handles.
func IsSupported(path string) bool {
	_, err := KindForPath(path)
	return err == nil
}

// ForPath returns the extractor for path.
func (f *Factory) ForPath(path string) (Extractor, error) {
	kind, err := KindForPath(path)
	if err != nil {
		return nil, err
	}
	if kind == models.SourcePDF {
		return f.pdf, nil
	}
	return f.spreadsheet, nil
}

// Extract picks the extractor for path and runs it.
func (f *Factory) Extract(path string) (*models.Document, error) {
	ex, err := f.ForPath(path)
	if err != nil {
		return nil, &parsererror.ExtractionError{FilePath: path, Kind: "unknown", Err: err}
	}
	f.logger.Debug("Extracting document", logging.Field{Key: logging.FieldFile, Value: path})
	return ex.Extract(path)
}

// MockExtractor returns a canned document or error.
type MockExtractor struct {
	Doc *models.Document
	Err error
}

func (m *MockExtractor) Extract(path string) (*models.Document, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	doc := *m.Doc
	doc.Path = path
	return &doc, nil
}
