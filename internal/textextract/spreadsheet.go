package textextract

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"fjacquet/card-expenses/internal/columns"
	"fjacquet/card-expenses/internal/dateutils"
	"fjacquet/card-expenses/internal/logging"
	"fjacquet/card-expenses/internal/models"
	"fjacquet/card-expenses/internal/parsererror"
	"fjacquet/card-expenses/internal/textutils"
)

// SpreadsheetExtractor reads .xlsx/.xlsm (excelize), .xls (extrame/xls) and
// .csv files. Sheets are concatenated with a blank separator row so row
// indexes stay stable across the whole workbook.
type SpreadsheetExtractor struct {
	logger logging.Logger
}

// NewSpreadsheetExtractor creates a spreadsheet extractor.
func NewSpreadsheetExtractor(logger logging.Logger) *SpreadsheetExtractor {
	return &SpreadsheetExtractor{logger: logging.OrDefault(logger)}
}

func (e *SpreadsheetExtractor) Extract(path string) (*models.Document, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(path)
	case ".xls":
		rows, err = readXLS(path)
	case ".csv":
		rows, err = readCSV(path)
	default:
		err = fmt.Errorf("%w: %s", parsererror.ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, &parsererror.ExtractionError{FilePath: path, Kind: "spreadsheet", Err: err}
	}

	nonBlank := 0
	for _, r := range rows {
		if !textutils.IsBlankRow(r) {
			nonBlank++
		}
	}
	if nonBlank == 0 {
		return nil, &parsererror.ExtractionError{FilePath: path, Kind: "spreadsheet", Err: parsererror.ErrEmptyDocument}
	}

	e.logger.Debug("Extracted spreadsheet rows",
		logging.Field{Key: logging.FieldFile, Value: path},
		logging.Field{Key: logging.FieldCount, Value: nonBlank})

	return &models.Document{
		Path:          path,
		Kind:          models.SourceSpreadsheet,
		Rows:          rows,
		Text:          RenderRows(rows),
		OriginalDates: CollectOriginalDates(rows),
	}, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var rows [][]string
	for i, sheet := range f.GetSheetList() {
		sheetRows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", sheet, err)
		}
		if i > 0 && len(sheetRows) > 0 {
			rows = append(rows, nil)
		}
		rows = append(rows, sheetRows...)
	}
	return rows, nil
}

func readXLS(path string) ([][]string, error) {
	file, err := os.Open(path) // #nosec G304 -- operator supplied path
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	wb, err := xls.OpenReader(file, "utf-8")
	if err != nil {
		return nil, err
	}

	var rows [][]string
	for s := 0; s < wb.NumSheets(); s++ {
		sheet := wb.GetSheet(s)
		if sheet == nil {
			continue
		}
		if s > 0 && len(rows) > 0 {
			rows = append(rows, nil)
		}
		for i := 0; i <= int(sheet.MaxRow); i++ {
			row := sheet.Row(i)
			if row == nil {
				rows = append(rows, nil)
				continue
			}
			cells := make([]string, 0, row.LastCol())
			for c := 0; c < row.LastCol(); c++ {
				cells = append(cells, strings.TrimSpace(row.Col(c)))
			}
			rows = append(rows, cells)
		}
	}
	return rows, nil
}

// readCSV uses encoding/csv: gocsv needs a fixed struct, and statement
// exports have no fixed header.
func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path) // #nosec G304 -- operator supplied path
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

// RenderRows flattens rows into the text sent to the LLM path. Each row is
// tagged with its index so the model can echo it back as "row".
func RenderRows(rows [][]string) string {
	var b strings.Builder
	for i, r := range rows {
		line := textutils.JoinRow(r)
		if line == "" {
			continue
		}
		fmt.Fprintf(&b, "[R%d] %s\n", i, line)
	}
	return b.String()
}

// CollectOriginalDates records the date cell of every row exactly as it is
// displayed. The date column is taken from each header row (transaction date
// preferred over posting date); without any header it is found by content.
func CollectOriginalDates(rows [][]string) map[int]string {
	out := map[int]string{}

	col := columns.NotFound
	sawHeader := false
	for i, r := range rows {
		if columns.IsHeaderRow(r) {
			sawHeader = true
			col = headerDateColumn(r)
			continue
		}
		if col == columns.NotFound || col >= len(r) {
			continue
		}
		if cell := strings.TrimSpace(r[col]); dateutils.IsDateLike(cell) {
			out[i] = cell
		}
	}
	if sawHeader {
		return out
	}

	col = columns.DetectColumnByContent(rows, dateutils.IsDateLike)
	if col == columns.NotFound {
		return out
	}
	for i, r := range rows {
		if col < len(r) {
			if cell := strings.TrimSpace(r[col]); dateutils.IsDateLike(cell) {
				out[i] = cell
			}
		}
	}
	return out
}

func headerDateColumn(header []string) int {
	for _, kw := range [][]string{columns.TranDateKeywords, columns.PostingDateKeywords, columns.DateKeywords} {
		if c := columns.DetectColumn(header, kw); c != columns.NotFound {
			return c
		}
	}
	return columns.NotFound
}
