package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/cc-statement-converter/internal/models"
)

// Header is the column layout of every CSV this package writes.
var Header = []string{
	"transaction_date",
	"posting_date",
	"description",
	"amount",
	"foreign_amount",
	"foreign_currency",
	"exchange_rate",
}

// CSVWriter writes transactions to CSV format.
type CSVWriter struct{}

// WriteToFile writes transactions to a CSV file at the given path, creating
// the parent directory when needed.
func (w *CSVWriter) WriteToFile(path string, txns []models.Transaction) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory %q: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}

	if err := w.Write(f, txns); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write writes transactions in CSV format to the given writer. The header
// row is always written, even when txns is empty.
func (w *CSVWriter) Write(out io.Writer, txns []models.Transaction) error {
	writer := csv.NewWriter(out)

	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, txn := range txns {
		if err := writer.Write(Row(txn)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// Row renders one transaction in Header column order.
func Row(txn models.Transaction) []string {
	return []string{
		txn.TransactionDate,
		txn.PostingDate,
		txn.Description,
		formatDecimal(txn.Amount),
		formatOptional(txn.ForeignAmount),
		txn.ForeignCurrency,
		formatOptional(txn.ExchangeRate),
	}
}

func formatOptional(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return formatDecimal(d.Decimal)
}

// formatDecimal keeps the number of decimal places the amount was parsed
// with, so "45.00" stays "45.00".
func formatDecimal(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}
