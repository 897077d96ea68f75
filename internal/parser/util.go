package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// amountToken matches a dollar amount as printed on the statement,
// e.g. "$12.34", "-$1,234.56".
const amountToken = `(-?\$[\d,]+\.\d{2})`

// monthNumbers maps upper-case month abbreviations to calendar months.
var monthNumbers = map[string]int{
	"JAN": 1, "FEB": 2, "MAR": 3, "APR": 4, "MAY": 5, "JUN": 6,
	"JUL": 7, "AUG": 8, "SEP": 9, "OCT": 10, "NOV": 11, "DEC": 12,
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// parseAmount converts a string like "$1,234.56" or "-$25.99" to a decimal.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	return decimal.NewFromString(s)
}

// normalizeLine cleans up common PDF extraction artifacts.
func normalizeLine(line string) string {
	line = strings.ReplaceAll(line, "\u200B", "")
	line = strings.ReplaceAll(line, "\u00A0", " ")
	return strings.TrimSpace(line)
}

// stripSpaces removes every space from a date token ("JAN 15" -> "JAN15").
func stripSpaces(s string) string {
	return strings.ReplaceAll(s, " ", "")
}

// collapseSpaces replaces whitespace runs with a single space and trims.
func collapseSpaces(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// truncate shortens long lines for debug display to n runes.
func truncate(line string, n int) string {
	if utf8.RuneCountInString(line) <= n {
		return line
	}
	runes := []rune(line)
	return string(runes[:n]) + "..."
}
