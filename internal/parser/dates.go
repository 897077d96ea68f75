package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/insightdelivered/cc-statement-converter/internal/models"
)

var (
	// JAN15, JAN 15
	shortDateStrict = regexp.MustCompile(`^([A-Z]{3})\s*(\d{1,2})`)
	// jan-15, Jan.15, jan 15
	shortDateLoose = regexp.MustCompile(`(?i)^(\w{3})[-\s.]*(\d{1,2})`)
)

// statementMonthNumber returns the calendar month of a month word such as
// "January" or "JAN", or 0 when it is not recognized.
func statementMonthNumber(month string) int {
	month = strings.ToUpper(strings.TrimSpace(month))
	if len(month) < 3 {
		return 0
	}
	return monthNumbers[month[:3]]
}

// ResolveDate converts an abbreviated statement date like "DEC8" into an
// ISO date, inferring the year from the statement context. Statements that
// straddle a year boundary are handled with month-bucket heuristics only:
// a statement issued in Jan-Mar places Oct-Dec transactions in the start
// year, and one issued in Oct-Dec places Jan-Mar transactions in the
// following year.
//
// Tokens that cannot be parsed are returned unchanged.
func ResolveDate(token string, sc models.StatementContext, logger *log.Logger) string {
	var abbr, dayStr string
	if m := shortDateStrict.FindStringSubmatch(token); m != nil {
		abbr, dayStr = m[1], m[2]
	} else if m := shortDateLoose.FindStringSubmatch(token); m != nil {
		abbr, dayStr = strings.ToUpper(m[1]), m[2]
	} else {
		logger.Warn("could not parse date, returning as is", "date", token)
		return token
	}

	day, _ := strconv.Atoi(dayStr)

	month, ok := monthNumbers[abbr]
	if !ok {
		logger.Warn("unknown month abbreviation, using January", "month", abbr, "date", token)
		month = 1
	}

	year := sc.EndYear
	switch statementMonth := statementMonthNumber(sc.StatementMonth); {
	case statementMonth == 0:
	case statementMonth <= 3 && month >= 10:
		year = sc.StartYear
	case statementMonth >= 10 && month <= 3:
		if sc.EndYear > sc.StartYear {
			year = sc.EndYear
		} else {
			year = sc.StartYear + 1
		}
	}

	return fmt.Sprintf("%d-%02d-%02d", year, month, day)
}
