package extractor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"sort"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/insightdelivered/cc-statement-converter/internal/models"
)

// ErrUnreadable is returned when no method produced usable statement text.
var ErrUnreadable = errors.New("no readable text could be extracted from PDF")

// Extract reads a PDF statement and returns its text, page by page. The
// structured PDF library is tried first; when it fails or returns garbage,
// the external pdftotext command (poppler-utils) is used if installed.
func Extract(ctx context.Context, filePath string) (models.Document, error) {
	if _, err := os.Stat(filePath); err != nil {
		return models.Document{}, fmt.Errorf("cannot open statement: %w", err)
	}

	pages, libErr := extractWithLibrary(filePath)
	if libErr == nil && IsReadableText(pages) {
		return models.NewDocument(pages), nil
	}

	if err := ctx.Err(); err != nil {
		return models.Document{}, err
	}

	popplerPages, popplerErr := extractWithPdftotext(ctx, filePath)
	if popplerErr == nil && IsReadableText(popplerPages) {
		return models.NewDocument(popplerPages), nil
	}

	if libErr != nil {
		return models.Document{}, fmt.Errorf("%w: %v", ErrUnreadable, libErr)
	}
	return models.Document{}, ErrUnreadable
}

// FromText builds a document from already-extracted text. Pages are
// separated by form feeds, as pdftotext writes them.
func FromText(text string) models.Document {
	var pages []string
	for _, page := range strings.Split(text, "\f") {
		if strings.TrimSpace(page) != "" {
			pages = append(pages, page)
		}
	}
	return models.NewDocument(pages)
}

// statementWords appear in virtually every credit-card statement. Text
// containing none of them is likely undecoded font garbage.
var statementWords = []string{
	"statement", "balance", "payment", "purchase", "credit", "transaction",
	"account", "amount", "minimum", "interest", "period", "date",
}

// textQuality returns the ratio of plain ASCII characters to all
// characters in pages, between 0 and 1.
func textQuality(pages []string) float64 {
	total, readable := 0, 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if r < 0x80 && (r >= ' ' || r == '\n' || r == '\t' || r == '\r') {
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

// IsReadableText reports whether pages hold more than 50 characters, are
// mostly ASCII and mention at least one statement word.
func IsReadableText(pages []string) bool {
	n := 0
	for _, p := range pages {
		n += len(strings.TrimSpace(p))
	}
	if n <= 50 || textQuality(pages) <= 0.6 {
		return false
	}

	combined := strings.ToLower(strings.Join(pages, " "))
	for _, word := range statementWords {
		if strings.Contains(combined, word) {
			return true
		}
	}
	return false
}

// extractWithLibrary uses ledongthuc/pdf, by row first and then by
// positioned text content.
func extractWithLibrary(filePath string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF library crashed: %v", r)
		}
	}()

	f, r, err := pdf.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	pages = extractByRow(r, numPages)
	if IsReadableText(pages) {
		return pages, nil
	}
	return extractByContent(r, numPages), nil
}

// extractByRow uses the library's own row grouping.
func extractByRow(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			if line := joinTexts(row.Content); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

// extractByContent groups positioned text by its rounded Y coordinate and
// joins each row with joinTexts, top of the page first.
func extractByContent(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		rows := make(map[int][]pdf.Text)
		for _, t := range page.Content().Text {
			y := int(math.Round(t.Y))
			rows[y] = append(rows[y], t)
		}

		ys := make([]int, 0, len(rows))
		for y := range rows {
			ys = append(ys, y)
		}
		// PDF Y grows upwards.
		sort.Sort(sort.Reverse(sort.IntSlice(ys)))

		var lines []string
		for _, y := range ys {
			if line := joinTexts(rows[y]); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

// wordGap is the fraction of the font size that the gap between the end of
// one run and the start of the next must exceed to count as a word break.
const wordGap = 0.2

// joinTexts orders one row of text runs left to right. Runs that touch are
// concatenated, so statement dates printed without a gap ("JAN15JAN17")
// stay together; a single space is written for whitespace runs and for
// gaps wider than wordGap.
func joinTexts(texts []pdf.Text) string {
	runs := append([]pdf.Text(nil), texts...)
	sort.SliceStable(runs, func(a, b int) bool { return runs[a].X < runs[b].X })

	var sb strings.Builder
	end, space := 0.0, false
	for _, t := range runs {
		s := strings.TrimSpace(t.S)
		if s == "" {
			space = true
			continue
		}
		if sb.Len() > 0 {
			gap := t.X - end
			if space || t.S != strings.TrimLeftFunc(t.S, unicode.IsSpace) || gap > wordGap*math.Max(t.FontSize, 1) {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(s)
		end = t.X + t.W
		space = t.S != strings.TrimRightFunc(t.S, unicode.IsSpace)
	}
	return sb.String()
}

// extractWithPdftotext shells out to pdftotext. Its output separates pages
// with form feeds.
func extractWithPdftotext(ctx context.Context, filePath string) ([]string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not available: %w", err)
	}

	out, err := exec.CommandContext(ctx, "pdftotext", "-layout", filePath, "-").Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}

	doc := FromText(string(out))
	if doc.PageCount() == 0 {
		return nil, fmt.Errorf("pdftotext produced no output")
	}
	return doc.Pages, nil
}
