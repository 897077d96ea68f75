package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Transaction represents a single credit-card statement transaction.
type Transaction struct {
	TransactionDate string              `json:"transactionDate"`
	PostingDate     string              `json:"postingDate"`
	Description     string              `json:"description"`
	Amount          decimal.Decimal     `json:"amount"` // negative for payments and credits
	ForeignAmount   decimal.NullDecimal `json:"foreignAmount"`
	ForeignCurrency string              `json:"foreignCurrency,omitempty"`
	ExchangeRate    decimal.NullDecimal `json:"exchangeRate"`
	Source          Source              `json:"source"`
	Pattern         int                 `json:"pattern,omitempty"` // debug: which layout pattern matched
}

// Source records which pass discovered a transaction.
type Source string

const (
	SourcePrimary  Source = "primary"
	SourcePageScan Source = "page-scan"
)

// StatementContext holds the year context inferred from the statement
// header. It is consumed when resolving abbreviated transaction dates.
type StatementContext struct {
	StatementMonth string `json:"statementMonth,omitempty" yaml:"statement_month,omitempty"` // raw month word, empty when unknown
	StatementDay   int    `json:"statementDay,omitempty" yaml:"statement_day,omitempty"`
	StatementYear  int    `json:"statementYear" yaml:"statement_year"`
	StartYear      int    `json:"startYear" yaml:"start_year"`
	EndYear        int    `json:"endYear" yaml:"end_year"`
	Period         string `json:"period,omitempty" yaml:"period,omitempty"`
	DateFound      bool   `json:"dateFound" yaml:"date_found"`
	PeriodFound    bool   `json:"periodFound" yaml:"period_found"`
}

// Document is the text of a statement as produced by the extractor.
type Document struct {
	Text  string
	Pages []string
}

// PageCount returns the number of extracted pages.
func (d Document) PageCount() int {
	return len(d.Pages)
}

// NewDocument builds a Document from per-page text blocks.
func NewDocument(pages []string) Document {
	return Document{
		Text:  strings.Join(pages, "\n"),
		Pages: pages,
	}
}

// DebugLine captures what the parser did with each input line.
type DebugLine struct {
	LineNum int    `json:"lineNum"`
	Text    string `json:"text"`
	Result  string `json:"result"` // "parsed", "foreign-currency", "exchange-rate", "skipped"
	Pattern int    `json:"pattern,omitempty"`
}

// StatementInfo holds everything extracted from one statement.
type StatementInfo struct {
	Context      StatementContext
	Transactions []Transaction
	PrimaryLines int // number of lines matched by the layout patterns
	Recovered    int // transactions added by the page scan
	DebugLines   []DebugLine
}

// Total sums the amounts of all transactions.
func (s *StatementInfo) Total() decimal.Decimal {
	total := decimal.Zero
	for _, txn := range s.Transactions {
		total = total.Add(txn.Amount)
	}
	return total
}
