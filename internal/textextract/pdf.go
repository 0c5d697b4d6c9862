package textextract

import (
	"bytes"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/dslipak/pdf"

	"fjacquet/card-expenses/internal/logging"
	"fjacquet/card-expenses/internal/models"
	"fjacquet/card-expenses/internal/parsererror"
)

// PageReader returns the plain text of each PDF page, in order.
type PageReader interface {
	ReadPages(path string) ([]string, error)
}

// NativePageReader reads pages with the pure Go dslipak/pdf reader.
type NativePageReader struct{}

func (NativePageReader) ReadPages(path string) ([]string, error) {
	r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	n := r.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// pdftotextBinary is overridden in tests.
var pdftotextBinary = "pdftotext"

// PdftotextPageReader shells out to poppler's pdftotext in layout mode, which
// keeps column alignment better than the native reader on scanned-to-text
// statements.
type PdftotextPageReader struct{}

func (PdftotextPageReader) ReadPages(path string) ([]string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.Command(pdftotextBinary, "-layout", path, "-") // #nosec G204 -- fixed binary, file argument
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("error running pdftotext: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return splitFormFeeds(stdout.String()), nil
}

func splitFormFeeds(out string) []string {
	pages := strings.Split(out, "\f")
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	return pages
}

var pageMarker = regexp.MustCompile(`(?i)\bpage\s+\d+\s+of\s+\d+\b`)

// PDFExtractor concatenates page text, making sure every page ends with a
// literal "Page X of Y" marker. The LLM prompt relies on those markers to
// stitch transactions that continue across pages.
type PDFExtractor struct {
	pages  PageReader
	logger logging.Logger
}

// NewPDFExtractor wraps a page reader.
func NewPDFExtractor(pages PageReader, logger logging.Logger) *PDFExtractor {
	if pages == nil {
		pages = NativePageReader{}
	}
	return &PDFExtractor{pages: pages, logger: logging.OrDefault(logger)}
}

func (e *PDFExtractor) Extract(path string) (*models.Document, error) {
	pages, err := e.pages.ReadPages(path)
	if err != nil {
		return nil, &parsererror.ExtractionError{FilePath: path, Kind: "pdf", Err: err}
	}

	text := JoinPages(pages)
	if strings.TrimSpace(pageMarker.ReplaceAllString(text, "")) == "" {
		return nil, &parsererror.ExtractionError{FilePath: path, Kind: "pdf", Err: parsererror.ErrEmptyDocument}
	}

	e.logger.Debug("Extracted PDF text",
		logging.Field{Key: logging.FieldFile, Value: path},
		logging.Field{Key: logging.FieldCount, Value: len(pages)})

	return &models.Document{Path: path, Kind: models.SourcePDF, Text: text, Pages: len(pages)}, nil
}

// JoinPages concatenates page texts, appending "Page i of n" to pages that do
// not already print such a marker.
func JoinPages(pages []string) string {
	var b strings.Builder
	n := len(pages)
	for i, p := range pages {
		p = strings.TrimRight(p, " \t\r\n")
		b.WriteString(p)
		if !pageMarker.MatchString(p) {
			if p != "" {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "Page %d of %d", i+1, n)
		}
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
