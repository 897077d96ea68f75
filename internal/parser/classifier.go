package parser

import (
	"regexp"
	"strings"
)

// LineMatch holds the raw fields of a transaction line.
type LineMatch struct {
	Pattern         int // 1-based position in the cascade
	TransactionDate string
	PostingDate     string // empty for single-date layouts
	Amount          string
	Description     string
}

// linePattern pairs a layout regexp with the function that maps its
// submatches onto a LineMatch.
type linePattern struct {
	name    string
	re      *regexp.Regexp
	extract func(m []string) LineMatch
}

func twoDates(m []string) LineMatch {
	return LineMatch{
		TransactionDate: stripSpaces(m[1]),
		PostingDate:     stripSpaces(m[2]),
		Amount:          m[3],
		Description:     strings.TrimSpace(m[4]),
	}
}

func oneDate(m []string) LineMatch {
	return LineMatch{
		TransactionDate: stripSpaces(m[1]),
		Amount:          m[2],
		Description:     strings.TrimSpace(m[3]),
	}
}

// strictPatterns are always tried, in order.
var strictPatterns = []linePattern{
	{
		// JAN15JAN17 $12.34 MERCHANT NAME
		name:    "contiguous-dates",
		re:      regexp.MustCompile(`^([A-Z]{3}\s*\d{1,2})([A-Z]{3}\s*\d{1,2})\s+` + amountToken + `\s+(.*)`),
		extract: twoDates,
	},
	{
		// JAN15 JAN17 $12.34 MERCHANT NAME
		name:    "spaced-dates",
		re:      regexp.MustCompile(`^([A-Z]{3}\s*\d{1,2})\s+([A-Z]{3}\s*\d{1,2})\s+` + amountToken + `\s+(.*)`),
		extract: twoDates,
	},
	{
		// JAN 15JAN 17 $12.34 MERCHANT NAME
		name:    "split-dates",
		re:      regexp.MustCompile(`^([A-Z]{3}\s+\d{1,2})([A-Z]{3}\s+\d{1,2})\s+` + amountToken + `\s+(.*)`),
		extract: twoDates,
	},
}

// loosePatterns are appended in thorough mode.
var loosePatterns = []linePattern{
	{
		// JAN15 REF 1234 JAN17 ... $12.34 MERCHANT NAME
		name:    "dates-with-gap",
		re:      regexp.MustCompile(`^([A-Z]{3}\s*\d{1,2}).*?([A-Z]{3}\s*\d{1,2}).*?` + amountToken + `\s+(.*)`),
		extract: twoDates,
	},
	{
		// JAN15 $12.34 MERCHANT NAME
		name:    "single-date",
		re:      regexp.MustCompile(`^([A-Z]{3}\s*\d{1,2}).*?` + amountToken + `\s+(.*)`),
		extract: oneDate,
	},
}

var (
	foreignCurrencyPattern = regexp.MustCompile(`^FOREIGN CURRENCY\s+([\d,.]+)\s*([A-Z]{3})`)
	exchangeRatePattern    = regexp.MustCompile(`^@\s*EXCHANGE\s*RATE\s*([\d,.]+)`)
)

// Classifier applies the layout pattern cascade to statement lines.
type Classifier struct {
	patterns []linePattern
}

// NewClassifier returns a classifier using the strict layouts, plus the
// loose ones when loose is set.
func NewClassifier(loose bool) *Classifier {
	patterns := append([]linePattern(nil), strictPatterns...)
	if loose {
		patterns = append(patterns, loosePatterns...)
	}
	return &Classifier{patterns: patterns}
}

// Classify returns the first pattern matching the trimmed line.
func (c *Classifier) Classify(line string) (LineMatch, bool) {
	for i, p := range c.patterns {
		m := p.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		lm := p.extract(m)
		lm.Pattern = i + 1
		return lm, true
	}
	return LineMatch{}, false
}

// PatternName returns the name of the 1-based pattern index.
func (c *Classifier) PatternName(n int) string {
	if n < 1 || n > len(c.patterns) {
		return ""
	}
	return c.patterns[n-1].name
}

// matchForeignCurrency recognizes "FOREIGN CURRENCY 10.00 EUR".
func matchForeignCurrency(line string) (amount, currency string, ok bool) {
	m := foreignCurrencyPattern.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// matchExchangeRate recognizes "@ EXCHANGE RATE 1.15".
func matchExchangeRate(line string) (string, bool) {
	m := exchangeRatePattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}
