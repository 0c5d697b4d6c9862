// Package common provides the CSV import and export shared by the commands.
package common

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"fjacquet/card-expenses/internal/logging"
	"fjacquet/card-expenses/internal/models"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

// ExportRow is the CSV layout of one transaction. Amounts always carry two
// decimals so spreadsheets do not reformat them.
type ExportRow struct {
	ID          string `csv:"ID"`
	Date        string `csv:"Date"`
	Account     string `csv:"Account"`
	Merchant    string `csv:"Merchant"`
	Amount      string `csv:"Amount"`
	Currency    string `csv:"Currency"`
	Status      string `csv:"Status"`
	AssignedTo  string `csv:"AssignedTo"`
	Category    string `csv:"Category"`
	Subcategory string `csv:"Subcategory"`
	Comments    string `csv:"Comments"`
	SourceRow   int    `csv:"SourceRow"`
}

// ToExportRows converts transactions to their CSV layout.
func ToExportRows(transactions []models.Transaction) []ExportRow {
	rows := make([]ExportRow, 0, len(transactions))
	for _, tx := range transactions {
		rows = append(rows, ExportRow{
			ID:          tx.ID,
			Date:        tx.Date,
			Account:     tx.Account,
			Merchant:    tx.Merchant,
			Amount:      tx.Amount.StringFixed(2),
			Currency:    tx.Currency,
			Status:      string(tx.Status),
			AssignedTo:  tx.AssignedTo,
			Category:    tx.Category,
			Subcategory: tx.Subcategory,
			Comments:    tx.Comments,
			SourceRow:   tx.SourceRow,
		})
	}
	return rows
}

// FromExportRows converts CSV rows back to transactions. Rows whose amount
// does not parse are reported, not dropped silently.
func FromExportRows(rows []ExportRow) ([]models.Transaction, error) {
	txs := make([]models.Transaction, 0, len(rows))
	for i, r := range rows {
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid amount %q: %w", i+1, r.Amount, err)
		}
		status := models.StatusPending
		if r.Status != "" {
			if status, err = models.ParseStatus(r.Status); err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
		}
		txs = append(txs, models.Transaction{
			ID:          r.ID,
			Date:        r.Date,
			Account:     r.Account,
			Merchant:    r.Merchant,
			Amount:      amount,
			Currency:    r.Currency,
			Status:      status,
			AssignedTo:  r.AssignedTo,
			Category:    r.Category,
			Subcategory: r.Subcategory,
			Comments:    r.Comments,
			SourceRow:   r.SourceRow,
		})
	}
	return txs, nil
}

// ReadCSVFile reads CSV data into a slice of structs using gocsv.
func ReadCSVFile[TCSVRow any](filePath string, logger logging.Logger) ([]TCSVRow, error) {
	logger = logging.OrDefault(logger)
	logger.Debug("Reading CSV file", logging.Field{Key: logging.FieldFile, Value: filePath})

	file, err := os.Open(filePath) // #nosec G304 -- operator supplied path
	if err != nil {
		return nil, fmt.Errorf("error opening CSV file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close file")
		}
	}()

	var rows []TCSVRow
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, fmt.Errorf("error parsing CSV file: %w", err)
	}

	logger.Debug("Read CSV data", logging.Field{Key: logging.FieldCount, Value: len(rows)})
	return rows, nil
}

// ReadTransactionsCSV reads a file written by WriteTransactionsToCSV.
func ReadTransactionsCSV(filePath string, logger logging.Logger) ([]models.Transaction, error) {
	rows, err := ReadCSVFile[ExportRow](filePath, logger)
	if err != nil {
		return nil, err
	}
	return FromExportRows(rows)
}

// WriteTransactions writes transactions as CSV with the given delimiter.
func WriteTransactions(w io.Writer, transactions []models.Transaction, delimiter rune) error {
	if transactions == nil {
		return fmt.Errorf("cannot write nil transactions to CSV")
	}
	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = delimiter

	if err := gocsv.MarshalCSV(ToExportRows(transactions), gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		return fmt.Errorf("error writing CSV data: %w", err)
	}
	return nil
}

// WriteTransactionsToCSV writes transactions to csvFile, creating its
// directory when needed.
func WriteTransactionsToCSV(transactions []models.Transaction, csvFile string, delimiter rune, logger logging.Logger) error {
	logger = logging.OrDefault(logger)
	if transactions == nil {
		return fmt.Errorf("cannot write nil transactions to CSV")
	}

	if err := os.MkdirAll(filepath.Dir(csvFile), models.PermissionDirectory); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	file, err := os.OpenFile(csvFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, models.PermissionFile) // #nosec G304 -- operator supplied path
	if err != nil {
		return fmt.Errorf("error creating CSV file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close file")
		}
	}()

	if err := WriteTransactions(file, transactions, delimiter); err != nil {
		return err
	}

	logger.Info("Wrote transactions to CSV file",
		logging.Field{Key: logging.FieldOutputFile, Value: csvFile},
		logging.Field{Key: logging.FieldCount, Value: len(transactions)})
	return nil
}
