package textextract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"fjacquet/card-expenses/internal/logging"
	"fjacquet/card-expenses/internal/models"
	"fjacquet/card-expenses/internal/parsererror"
)

func writeXLSX(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	path := filepath.Join(t.TempDir(), "statement.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestSpreadsheetExtractor_XLSX(t *testing.T) {
	path := writeXLSX(t, [][]interface{}{
		{"Statement period 01/01/2024 - 01/31/2024"},
		{"Posting Date", "Tran Date", "Supplier", "Amount"},
		{"01/16/2024", "01/15/2024", "UBER TRIP", "12.50"},
		{"01/17/2024", "01/16/2024", "DELTA AIR", "320.00"},
	})

	doc, err := NewSpreadsheetExtractor(logging.NewMockLogger()).Extract(path)
	require.NoError(t, err)

	assert.Equal(t, models.SourceSpreadsheet, doc.Kind)
	require.Len(t, doc.Rows, 4)
	assert.Equal(t, "UBER TRIP", doc.Rows[2][2])
	assert.Equal(t, map[int]string{2: "01/15/2024", 3: "01/16/2024"}, doc.OriginalDates)
	assert.Contains(t, doc.Text, "[R2] 01/16/2024 | 01/15/2024 | UBER TRIP | 12.50")
}

func TestSpreadsheetExtractor_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statement.csv")
	content := "Fecha,Descripción,Importe\n15-Ene-2024,FARMACIA,45.10\n,,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	doc, err := NewSpreadsheetExtractor(logging.NewMockLogger()).Extract(path)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: "15-Ene-2024"}, doc.OriginalDates)
	assert.NotContains(t, doc.Text, "[R2]")
}

func TestSpreadsheetExtractor_Errors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, []byte(",,\n"), 0o600))

	ex := NewSpreadsheetExtractor(logging.NewMockLogger())

	_, err := ex.Extract(empty)
	assert.ErrorIs(t, err, parsererror.ErrEmptyDocument)

	_, err = ex.Extract(filepath.Join(dir, "missing.xlsx"))
	var extractionErr *parsererror.ExtractionError
	assert.ErrorAs(t, err, &extractionErr)
}

func TestCollectOriginalDates_ContentFallback(t *testing.T) {
	rows := [][]string{
		{"UBER", "1/5/24", "12.00"},
		{"LYFT", "1/6/24", "8.00"},
		{"Total", "", "20.00"},
	}
	assert.Equal(t, map[int]string{0: "1/5/24", 1: "1/6/24"}, CollectOriginalDates(rows))
}

func TestCollectOriginalDates_PerHeaderSection(t *testing.T) {
	rows := [][]string{
		{"Posting Date", "Supplier", "Amount"},
		{"01/02/2024", "A", "1.00"},
		{},
		{"Supplier", "Amount", "Tran Date"},
		{"B", "2.00", "01/03/2024"},
	}
	assert.Equal(t, map[int]string{1: "01/02/2024", 4: "01/03/2024"}, CollectOriginalDates(rows))
}
