package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/cc-statement-converter/internal/models"
)

// sectionHeaders mark where the transaction listing starts on a page.
var sectionHeaders = []string{
	"TRANSACTIONS",
	"PURCHASES AND ADJUSTMENTS",
	"PAYMENTS AND CREDITS",
	"YOUR TRANSACTIONS",
	"PREVIOUS STATEMENT BALANCE",
	"YOUR ACCOUNT TRANSACTIONS",
}

var (
	candidateLetters = regexp.MustCompile(`[A-Z]{3}`)
	candidateDigits  = regexp.MustCompile(`\d{1,2}`)
	candidateDollars = regexp.MustCompile(`\$\d+\.\d{2}`)
	candidateDate    = regexp.MustCompile(`([A-Z]{3}\s*\d{1,2})`)
	candidateAmount  = regexp.MustCompile(amountToken)
)

// dedupTolerance is the amount difference under which two transactions on
// the same date are considered the same record.
var dedupTolerance = decimal.New(1, -2)

// transactionSection returns the part of the page after the earliest
// section header, or the whole page when it has none.
func transactionSection(page string) (string, string) {
	start, found := -1, ""
	for _, header := range sectionHeaders {
		idx := strings.Index(page, header)
		if idx < 0 {
			continue
		}
		if end := idx + len(header); start < 0 || end < start {
			start, found = end, header
		}
	}
	if start < 0 {
		return page, ""
	}
	return page[start:], found
}

// scanCandidate tries to read a transaction out of an arbitrary line that
// mentions a three-letter word, a day number and a dollar amount.
func scanCandidate(line string) (date, amount, description string, ok bool) {
	upper := strings.ToUpper(line)
	if !candidateLetters.MatchString(upper) || !candidateDigits.MatchString(line) || !candidateDollars.MatchString(line) {
		return "", "", "", false
	}

	dateMatch := candidateDate.FindString(upper)
	amountMatch := candidateAmount.FindString(line)
	if dateMatch == "" || amountMatch == "" {
		return "", "", "", false
	}

	description = strings.ReplaceAll(line, dateMatch, "")
	description = strings.ReplaceAll(description, amountMatch, "")
	description = collapseSpaces(description)
	if description == "" {
		description = "Unknown merchant"
	}
	return stripSpaces(dateMatch), amountMatch, description, true
}

// isDuplicate reports whether txns already holds a record on date whose
// amount is within dedupTolerance of amount.
func isDuplicate(txns []models.Transaction, date string, amount decimal.Decimal) bool {
	for _, t := range txns {
		if t.TransactionDate == date && t.Amount.Sub(amount).Abs().LessThan(dedupTolerance) {
			return true
		}
	}
	return false
}

// scanPages re-reads every page with loose heuristics and returns the
// transactions that are not already in found. Candidates are checked
// against found only, so two scanned lines with the same date and amount
// are both kept.
func (p *Parser) scanPages(pages []string, sc models.StatementContext, found []models.Transaction) []models.Transaction {
	var recovered []models.Transaction

	for pageNum, page := range pages {
		section, header := transactionSection(page)
		if header != "" {
			p.trace("found transaction section", "page", pageNum+1, "header", header)
		}

		for _, line := range strings.Split(section, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}

			dateStr, amountStr, description, ok := scanCandidate(line)
			if !ok {
				continue
			}
			p.trace("potential transaction", "page", pageNum+1, "line", line)

			amount, err := parseAmount(amountStr)
			if err != nil {
				continue
			}

			date := ResolveDate(dateStr, sc, p.logger)
			if isDuplicate(found, date, amount) {
				continue
			}

			txn := models.Transaction{
				TransactionDate: date,
				PostingDate:     date,
				Description:     description,
				Amount:          amount,
				Source:          models.SourcePageScan,
			}
			recovered = append(recovered, txn)
			p.trace("added page-scan transaction", "date", date, "description", description, "amount", amount.StringFixed(2))
		}
	}
	return recovered
}
