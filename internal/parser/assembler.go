package parser

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/cc-statement-converter/internal/models"
)

type assemblerState int

const (
	noOpenTransaction assemblerState = iota
	transactionOpen
)

func (s assemblerState) String() string {
	switch s {
	case noOpenTransaction:
		return "no-open-transaction"
	case transactionOpen:
		return "transaction-open"
	default:
		return fmt.Sprintf("assemblerState(%d)", int(s))
	}
}

// assembler stitches a transaction line and its optional foreign-currency
// and exchange-rate continuation lines into one record. It holds at most
// one open transaction; lines must be fed in document order.
type assembler struct {
	state  assemblerState
	open   models.Transaction
	done   []models.Transaction
	logger *log.Logger
}

func newAssembler(logger *log.Logger) *assembler {
	return &assembler{logger: logger}
}

// start closes the open transaction, if any, and opens txn.
func (a *assembler) start(txn models.Transaction) {
	a.close()
	a.open = txn
	a.state = transactionOpen
}

// attachForeign records foreign-currency details on the open transaction.
// It reports false when no transaction is open.
func (a *assembler) attachForeign(amount, currency string) bool {
	if a.state != transactionOpen {
		return false
	}

	amount = strings.ReplaceAll(amount, ",", "")
	value, err := decimal.NewFromString(amount)
	if err != nil {
		a.logger.Warn("could not convert foreign amount, setting to 0", "amount", amount)
		value = decimal.Zero
	}
	a.open.ForeignAmount = decimal.NewNullDecimal(value)
	a.open.ForeignCurrency = currency

	if !strings.HasSuffix(a.open.Description, ")") {
		if !strings.HasSuffix(a.open.Description, ",") {
			a.open.Description += " "
		}
		a.open.Description += fmt.Sprintf("(%s %s)", amount, currency)
	}
	return true
}

// attachRate records the exchange rate on the open transaction. It reports
// false when no transaction is open.
func (a *assembler) attachRate(rate string) bool {
	if a.state != transactionOpen {
		return false
	}

	rate = strings.ReplaceAll(rate, ",", "")
	value, err := decimal.NewFromString(rate)
	if err != nil {
		a.logger.Warn("could not convert exchange rate, setting to 0", "rate", rate)
		value = decimal.Zero
	}
	a.open.ExchangeRate = decimal.NewNullDecimal(value)
	return true
}

func (a *assembler) close() {
	if a.state == transactionOpen {
		a.done = append(a.done, a.open)
		a.open = models.Transaction{}
		a.state = noOpenTransaction
	}
}

// finish closes the open transaction and returns everything assembled.
func (a *assembler) finish() []models.Transaction {
	a.close()
	return a.done
}
