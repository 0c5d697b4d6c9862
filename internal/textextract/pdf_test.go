package textextract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/card-expenses/internal/logging"
	"fjacquet/card-expenses/internal/models"
	"fjacquet/card-expenses/internal/parsererror"
)

type fakePages struct {
	pages []string
	err   error
}

func (f fakePages) ReadPages(string) ([]string, error) { return f.pages, f.err }

func TestJoinPages_AddsMissingMarkers(t *testing.T) {
	text := JoinPages([]string{"first page", "second page\nPage 2 of 3", "third"})

	assert.Contains(t, text, "first page\nPage 1 of 3")
	assert.Contains(t, text, "Page 2 of 3")
	assert.NotContains(t, text, "Page 2 of 3\nPage 2 of 3")
	assert.Contains(t, text, "third\nPage 3 of 3")
}

func TestPDFExtractor_Extract(t *testing.T) {
	ex := NewPDFExtractor(fakePages{pages: []string{"01/15 UBER 12.00", "01/16 LYFT 8.00"}}, logging.NewMockLogger())

	doc, err := ex.Extract("statement.pdf")
	require.NoError(t, err)
	assert.Equal(t, models.SourcePDF, doc.Kind)
	assert.Equal(t, 2, doc.Pages)
	assert.Contains(t, doc.Text, "Page 1 of 2")
	assert.Contains(t, doc.Text, "LYFT")
	assert.Empty(t, doc.Rows)
}

func TestPDFExtractor_Errors(t *testing.T) {
	tests := []struct {
		name  string
		pages fakePages
		is    error
	}{
		{name: "reader failure", pages: fakePages{err: errors.New("corrupt xref")}},
		{name: "no text", pages: fakePages{pages: []string{"", "  "}}, is: parsererror.ErrEmptyDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPDFExtractor(tt.pages, logging.NewMockLogger()).Extract("x.pdf")
			var extractionErr *parsererror.ExtractionError
			require.ErrorAs(t, err, &extractionErr)
			assert.Equal(t, "pdf", extractionErr.Kind)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestSplitFormFeeds(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitFormFeeds("a\fb\f"))
	assert.Equal(t, []string{"only"}, splitFormFeeds("only"))
}

func TestFactory(t *testing.T) {
	sheetDoc := &models.Document{Kind: models.SourceSpreadsheet}
	pdfDoc := &models.Document{Kind: models.SourcePDF}
	f := NewFactoryWith(&MockExtractor{Doc: pdfDoc}, &MockExtractor{Doc: sheetDoc}, logging.NewMockLogger())

	doc, err := f.Extract("jan.XLSX")
	require.NoError(t, err)
	assert.Equal(t, models.SourceSpreadsheet, doc.Kind)
	assert.Equal(t, "jan.XLSX", doc.Path)

	doc, err = f.Extract("jan.pdf")
	require.NoError(t, err)
	assert.Equal(t, models.SourcePDF, doc.Kind)

	_, err = f.Extract("jan.docx")
	assert.ErrorIs(t, err, parsererror.ErrUnsupportedFormat)
	assert.False(t, IsSupported("notes.txt"))
	assert.True(t, IsSupported("a.xls"))
}
