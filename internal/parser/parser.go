package parser

import (
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/cc-statement-converter/internal/models"
)

// Options controls how aggressively the parser looks for transactions.
type Options struct {
	// Thorough enables the loose layout patterns and the per-page scan.
	Thorough bool
	// Verbose logs every match and records a per-line trace.
	Verbose bool
}

// Parser extracts transactions from the text of a credit-card statement.
// A Parser keeps no state between documents and may be shared.
type Parser struct {
	opts       Options
	classifier *Classifier
	logger     *log.Logger
	now        func() time.Time
}

// New returns a parser configured by opts.
func New(opts Options, logger *log.Logger) *Parser {
	if logger == nil {
		logger = log.Default()
	}
	return &Parser{
		opts:       opts,
		classifier: NewClassifier(opts.Thorough),
		logger:     logger,
		now:        time.Now,
	}
}

// Parse runs the extraction over one document. It never fails: lines that
// match no layout are skipped and recoverable problems are logged.
func (p *Parser) Parse(doc models.Document) *models.StatementInfo {
	info := &models.StatementInfo{
		Context: ExtractContext(doc.Text, p.now, p.logger),
	}

	primary := p.parseLines(strings.Split(doc.Text, "\n"), info)

	txns := primary
	if p.opts.Thorough {
		p.logger.Info("performing thorough analysis of each page", "pages", doc.PageCount())
		recovered := p.scanPages(doc.Pages, info.Context, primary)
		if len(recovered) > 0 {
			p.logger.Info("found additional transactions during thorough analysis", "count", len(recovered))
		}
		info.Recovered = len(recovered)
		txns = append(txns, recovered...)
	}

	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].TransactionDate < txns[j].TransactionDate
	})
	info.Transactions = txns

	p.logger.Info("extraction finished", "transactions", len(txns), "lines", info.PrimaryLines)
	return info
}

// parseLines is the primary pass over every line of the document.
func (p *Parser) parseLines(lines []string, info *models.StatementInfo) []models.Transaction {
	asm := newAssembler(p.logger)

	for i, raw := range lines {
		line := normalizeLine(raw)
		if line == "" {
			continue
		}

		dl := models.DebugLine{LineNum: i + 1, Text: truncate(line, 120), Result: "skipped"}

		if lm, ok := p.classifier.Classify(line); ok {
			info.PrimaryLines++
			txn := p.buildTransaction(lm, info.Context)
			asm.start(txn)
			dl.Result, dl.Pattern = "parsed", lm.Pattern
			p.trace("found transaction", "pattern", p.classifier.PatternName(lm.Pattern),
				"date", txn.TransactionDate, "description", txn.Description, "amount", txn.Amount.StringFixed(2))
		} else if amount, currency, ok := matchForeignCurrency(line); ok && asm.attachForeign(amount, currency) {
			dl.Result = "foreign-currency"
			p.trace("added foreign currency", "amount", amount, "currency", currency)
		} else if rate, ok := matchExchangeRate(line); ok && asm.attachRate(rate) {
			dl.Result = "exchange-rate"
			p.trace("added exchange rate", "rate", rate)
		}

		if p.opts.Verbose {
			info.DebugLines = append(info.DebugLines, dl)
		}
	}

	return asm.finish()
}

func (p *Parser) buildTransaction(lm LineMatch, sc models.StatementContext) models.Transaction {
	amount, err := parseAmount(lm.Amount)
	if err != nil {
		p.logger.Warn("could not convert amount, setting to 0", "amount", lm.Amount)
		amount = decimal.Zero
	}

	date := ResolveDate(lm.TransactionDate, sc, p.logger)
	posting := date
	if lm.PostingDate != "" {
		posting = ResolveDate(lm.PostingDate, sc, p.logger)
	}

	return models.Transaction{
		TransactionDate: date,
		PostingDate:     posting,
		Description:     lm.Description,
		Amount:          amount,
		Source:          models.SourcePrimary,
		Pattern:         lm.Pattern,
	}
}

// trace emits a diagnostic only in verbose mode.
func (p *Parser) trace(msg string, keyvals ...interface{}) {
	if p.opts.Verbose {
		p.logger.Debug(msg, keyvals...)
	}
}
