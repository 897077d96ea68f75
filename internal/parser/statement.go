package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/insightdelivered/cc-statement-converter/internal/models"
)

// Statement header patterns, most structured first. Text extraction is
// inconsistent about the spaces and commas between month, day and year.
var (
	statementDatePatterns = []*regexp.Regexp{
		// STATEMENT DATE: January 15, 2024
		regexp.MustCompile(`STATEMENT DATE:\s*(\w+)\s+(\d{1,2}),\s*(\d{4})`),
		// STATEMENT DATE: January15, 2024
		regexp.MustCompile(`STATEMENT DATE:\s*(\w+?)(\d{1,2}),\s*(\d{4})`),
		// STATEMENT DATE:January152024
		regexp.MustCompile(`STATEMENT DATE:(\w+?)(\d{1,2})(\d{4})`),
	}

	statementPeriodPatterns = []*regexp.Regexp{
		// STATEMENT PERIOD: December 16, 2023 to January 15, 2024
		regexp.MustCompile(`STATEMENT PERIOD:\s*(\w+)\s+(\d{1,2}),\s*(\d{4})\s*to\s*(\w+)\s+(\d{1,2}),\s*(\d{4})`),
		// STATEMENT PERIOD: December16,2023 to January15,2024
		regexp.MustCompile(`STATEMENT PERIOD:\s*(\w+?)(\d{1,2}),?(\d{4})\s*to\s*(\w+?)(\d{1,2}),?(\d{4})`),
		// STATEMENT PERIOD:December162023toJanuary152024
		regexp.MustCompile(`STATEMENT PERIOD:\s*(\w+?)(\d{1,2})(\d{4})to(\w+?)(\d{1,2})(\d{4})`),
	}
)

func firstSubmatch(patterns []*regexp.Regexp, text string) []string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m
		}
	}
	return nil
}

// ExtractContext scans the full statement text for the issue date and the
// statement period. Missing metadata falls back to the year returned by now
// and is reported as a warning.
func ExtractContext(text string, now func() time.Time, logger *log.Logger) models.StatementContext {
	sc := models.StatementContext{
		StatementYear: now().Year(),
	}

	if m := firstSubmatch(statementDatePatterns, text); m != nil {
		sc.StatementMonth = m[1]
		sc.StatementDay, _ = strconv.Atoi(m[2])
		sc.StatementYear, _ = strconv.Atoi(m[3])
		sc.DateFound = true
		logger.Info("statement date", "month", sc.StatementMonth, "day", sc.StatementDay, "year", sc.StatementYear)
	} else {
		logger.Warn("could not find statement date, using current year", "year", sc.StatementYear)
	}

	sc.StartYear = sc.StatementYear
	sc.EndYear = sc.StatementYear

	m := firstSubmatch(statementPeriodPatterns, text)
	if m == nil {
		logger.Warn("could not find statement period, using statement year for all transactions", "year", sc.StatementYear)
		return sc
	}

	startYear, _ := strconv.Atoi(m[3])
	endYear, _ := strconv.Atoi(m[6])
	sc.Period = fmt.Sprintf("%s %s, %d to %s %s, %d", m[1], m[2], startYear, m[4], m[5], endYear)
	sc.PeriodFound = true
	logger.Info("statement period", "period", sc.Period)

	if diff := startYear - endYear; diff > 1 || diff < -1 {
		logger.Warn("statement period spans multiple years, using statement year",
			"start", startYear, "end", endYear, "year", sc.StatementYear)
		return sc
	}

	sc.StartYear = startYear
	sc.EndYear = endYear
	return sc
}
