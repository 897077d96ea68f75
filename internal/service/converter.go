package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/insightdelivered/cc-statement-converter/internal/extractor"
	"github.com/insightdelivered/cc-statement-converter/internal/models"
	"github.com/insightdelivered/cc-statement-converter/internal/parser"
	"github.com/insightdelivered/cc-statement-converter/internal/writer"
)

// ErrNoTransactions is returned when a statement was read and written but
// no transaction matched any layout.
var ErrNoTransactions = errors.New("no transactions found")

// ExtractFunc turns a statement file into text.
type ExtractFunc func(ctx context.Context, path string) (models.Document, error)

// Converter runs one or many statements through extraction, parsing and
// CSV output.
type Converter struct {
	parser  *parser.Parser
	extract ExtractFunc
	writer  *writer.CSVWriter
	timeout time.Duration
	logger  *log.Logger
}

// NewConverter returns a converter using the PDF extractor. A zero timeout
// disables the per-document deadline.
func NewConverter(p *parser.Parser, timeout time.Duration, logger *log.Logger) *Converter {
	return &Converter{
		parser:  p,
		extract: extractor.Extract,
		writer:  &writer.CSVWriter{},
		timeout: timeout,
		logger:  logger,
	}
}

// WithExtractor replaces the document extractor.
func (c *Converter) WithExtractor(fn ExtractFunc) *Converter {
	c.extract = fn
	return c
}

// DefaultOutputPath returns out/<name>.csv for input <dir>/<name>.pdf.
func DefaultOutputPath(outputDir, inputPath string) string {
	base := filepath.Base(inputPath)
	return filepath.Join(outputDir, strings.TrimSuffix(base, filepath.Ext(base))+".csv")
}

// ConvertFile converts one statement and writes its CSV to outputPath. The
// CSV is written even when no transaction was found; in that case the
// returned error wraps ErrNoTransactions.
func (c *Converter) ConvertFile(ctx context.Context, inputPath, outputPath string) (*models.StatementInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	logger := c.logger.With("file", filepath.Base(inputPath))
	if fi, err := os.Stat(inputPath); err == nil {
		logger.Debug("processing", "size", fmt.Sprintf("%.2f KB", float64(fi.Size())/1024))
	}

	doc, err := c.extract(ctx, inputPath)
	if err != nil {
		return nil, fmt.Errorf("PDF extraction failed: %w", err)
	}
	logger.Info("extracted text", "pages", doc.PageCount())

	info := c.parser.Parse(doc)

	if err := c.writer.WriteToFile(outputPath, info.Transactions); err != nil {
		return info, fmt.Errorf("CSV write failed: %w", err)
	}

	if len(info.Transactions) == 0 {
		logger.Warn("no transactions found, the PDF layout may not match the supported patterns", "output", outputPath)
		return info, fmt.Errorf("%s: %w", inputPath, ErrNoTransactions)
	}

	logger.Info("saved transactions", "count", len(info.Transactions), "output", outputPath, "total", info.Total().StringFixed(2))
	return info, nil
}

// Result is the outcome of one file in a batch.
type Result struct {
	Input  string
	Output string
	Info   *models.StatementInfo
	Err    error
}

// ConvertDirectory converts every PDF in inputDir into outputDir, running
// up to workers documents at once. Per-file failures are reported in the
// results rather than stopping the batch; results follow file name order.
// Cancelling ctx stops the batch: files not yet started are not read and
// carry the context error.
func (c *Converter) ConvertDirectory(ctx context.Context, inputDir, outputDir string, workers int) ([]Result, error) {
	files, err := filepath.Glob(filepath.Join(inputDir, "*.pdf"))
	if err != nil {
		return nil, fmt.Errorf("failed to list PDF files: %w", err)
	}
	sort.Strings(files)

	if len(files) == 0 {
		c.logger.Warn("no PDF files found", "dir", inputDir)
		return nil, nil
	}
	c.logger.Info("found PDF files to process", "count", len(files))

	start := time.Now()
	results := make([]Result, len(files))
	for i, file := range files {
		results[i] = Result{Input: file, Output: DefaultOutputPath(outputDir, file)}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, file := range files {
		if err := gctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return err
			}
			c.logger.Info("processing", "n", fmt.Sprintf("%d/%d", i+1, len(files)), "file", filepath.Base(file))
			results[i].Info, results[i].Err = c.ConvertFile(gctx, file, results[i].Output)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	c.logger.Info("completed batch", "files", len(files), "duration", time.Since(start).Round(10*time.Millisecond))
	return results, nil
}
