package writer

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/cc-statement-converter/internal/models"
)

func sampleTransactions() []models.Transaction {
	return []models.Transaction{
		{
			TransactionDate: "2024-01-02",
			PostingDate:     "2024-01-03",
			Description:     "COFFEE SHOP (10.00 EUR)",
			Amount:          decimal.RequireFromString("12.34"),
			ForeignAmount:   decimal.NewNullDecimal(decimal.RequireFromString("10.00")),
			ForeignCurrency: "EUR",
			ExchangeRate:    decimal.NewNullDecimal(decimal.RequireFromString("1.15")),
		},
		{
			TransactionDate: "2024-01-05",
			PostingDate:     "2024-01-06",
			Description:     "PAYMENT, THANK YOU",
			Amount:          decimal.RequireFromString("-100.50"),
		},
	}
}

func TestCSVWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	w := &CSVWriter{}
	if err := w.Write(&buf, sampleTransactions()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := "transaction_date,posting_date,description,amount,foreign_amount,foreign_currency,exchange_rate\n" +
		"2024-01-02,2024-01-03,COFFEE SHOP (10.00 EUR),12.34,10.00,EUR,1.15\n" +
		"2024-01-05,2024-01-06,\"PAYMENT, THANK YOU\",-100.50,,,\n"

	if buf.String() != expected {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), expected)
	}
}

func TestCSVWriter_WriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	w := &CSVWriter{}
	if err := w.Write(&buf, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected header only, got %d lines", len(lines))
	}
	if lines[0] != strings.Join(Header, ",") {
		t.Errorf("header: got %q", lines[0])
	}
}

func TestCSVWriter_WriteToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "statement.csv")

	w := &CSVWriter{}
	if err := w.WriteToFile(path, sampleTransactions()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if !strings.Contains(string(data), "COFFEE SHOP (10.00 EUR)") {
		t.Errorf("output missing transaction:\n%s", data)
	}
}

func TestRow(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		expected string
	}{
		{"two decimals", "25.99", "25.99"},
		{"thousands", "1234.56", "1234.56"},
		{"trailing zero kept", "12.30", "12.30"},
		{"whole amount", "2500.00", "2500.00"},
		{"credit", "-42.00", "-42.00"},
		{"no decimals", "7", "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := Row(models.Transaction{Amount: decimal.RequireFromString(tt.amount)})
			if row[3] != tt.expected {
				t.Errorf("amount column: got %q, want %q", row[3], tt.expected)
			}
			if row[4] != "" || row[6] != "" {
				t.Errorf("unset optional columns should be empty: %v", row)
			}
		})
	}
}
