package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/insightdelivered/cc-statement-converter/internal/api"
	"github.com/insightdelivered/cc-statement-converter/internal/extractor"
	"github.com/insightdelivered/cc-statement-converter/internal/models"
	"github.com/insightdelivered/cc-statement-converter/internal/parser"
	"github.com/insightdelivered/cc-statement-converter/internal/service"
	"github.com/insightdelivered/cc-statement-converter/internal/writer"
)

func newConvertCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert [flags] <statement.pdf>",
		Short: "Convert one statement PDF to CSV",
		Example: `  # Writes out/statement.csv
  cc-statement-converter convert statement.pdf

  # Custom output path, with the per-page recovery scan
  cc-statement-converter convert -t -o transactions.csv statement.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.setup(cmd)
			if err != nil {
				return err
			}

			inputPath := args[0]
			if _, err := os.Stat(inputPath); os.IsNotExist(err) {
				return fmt.Errorf("input file not found: %s", inputPath)
			}
			if ext := strings.ToLower(filepath.Ext(inputPath)); ext != ".pdf" {
				return fmt.Errorf("expected .pdf file, got %q", ext)
			}

			outPath := cfg.OutputPath
			if outPath == "" {
				outPath = service.DefaultOutputPath(cfg.OutputDir, inputPath)
			}

			info, err := newConverter(cfg, logger).ConvertFile(cmd.Context(), inputPath, outPath)
			if info != nil {
				printSummary(cmd.OutOrStdout(), info, outPath, cfg.Debug)
			}
			return err
		},
	}
	cmd.Flags().StringP("output", "o", "", "Output CSV file path (default <output-dir>/<name>.csv)")
	cmd.Flags().String("output-dir", "out", "Directory for the default output path")
	return cmd
}

// printSummary reports a conversion. With listAll every transaction is
// printed as well.
func printSummary(w io.Writer, info *models.StatementInfo, outPath string, listAll bool) {
	fmt.Fprintf(w, "Found %d transaction(s)\n", len(info.Transactions))
	if info.Recovered > 0 {
		fmt.Fprintf(w, "  Recovered by page scan: %d\n", info.Recovered)
	}
	if info.Context.Period != "" {
		fmt.Fprintf(w, "  Period: %s\n", info.Context.Period)
	}
	if len(info.Transactions) > 0 {
		fmt.Fprintf(w, "  Total: %s\n", info.Total().StringFixed(2))
	}
	if listAll {
		for i, t := range info.Transactions {
			fmt.Fprintf(w, "  Transaction %d: %s - %s - $%s\n", i+1, t.TransactionDate, t.Description, t.Amount.StringFixed(2))
		}
	}
	fmt.Fprintf(w, "  Output: %s\n", outPath)
}

func newBatchCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Convert every statement PDF in a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.setup(cmd)
			if err != nil {
				return err
			}

			results, err := newConverter(cfg, logger).ConvertDirectory(cmd.Context(), cfg.InputDir, cfg.OutputDir, cfg.Workers)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No PDF files found in %s\n", cfg.InputDir)
				return nil
			}

			var converted, empty, failed int
			w := cmd.OutOrStdout()
			for _, r := range results {
				name := filepath.Base(r.Input)
				switch {
				case r.Err == nil:
					converted++
					fmt.Fprintf(w, "  ok     %s -> %s (%d transactions)\n", name, r.Output, len(r.Info.Transactions))
				case errors.Is(r.Err, service.ErrNoTransactions):
					empty++
					fmt.Fprintf(w, "  empty  %s -> %s\n", name, r.Output)
				default:
					failed++
					fmt.Fprintf(w, "  failed %s: %v\n", name, r.Err)
				}
			}
			fmt.Fprintf(w, "Processed %d file(s): %d converted, %d without transactions, %d failed\n",
				len(results), converted, empty, failed)

			if failed > 0 {
				return fmt.Errorf("%d of %d statements failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().StringP("input-dir", "i", "in", "Directory containing statement PDFs")
	cmd.Flags().StringP("output-dir", "o", "out", "Directory for the CSV files")
	cmd.Flags().Int("workers", 4, "Statements converted concurrently")
	cmd.Flags().Duration("timeout", 2*time.Minute, "Per-statement extraction timeout (0 disables)")
	return cmd
}

func newCombineCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "combine",
		Short: "Merge the CSV files of a directory into one date-sorted file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.setup(cmd)
			if err != nil {
				return err
			}

			outPath := cfg.OutputPath
			if outPath == "" {
				outPath = filepath.Join(cfg.OutputDir, "combined.csv")
			}

			paths, err := writer.ListCSV(cfg.OutputDir, outPath)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no CSV files found in %s", cfg.OutputDir)
			}

			if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			rows, err := writer.Combine(paths, f)
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				return err
			}

			logger.Info("combined CSV files", "files", len(paths), "rows", rows, "output", outPath)
			fmt.Fprintf(cmd.OutOrStdout(), "Combined %d file(s), %d transaction(s) into %s\n", len(paths), rows, outPath)
			return nil
		},
	}
	cmd.Flags().String("output-dir", "out", "Directory holding the CSV files")
	cmd.Flags().StringP("output", "o", "", "Combined file path (default <output-dir>/combined.csv)")
	return cmd
}

func newInspectCmd(opts *rootOptions) *cobra.Command {
	var showContext, showLines bool

	cmd := &cobra.Command{
		Use:   "inspect <statement.pdf>",
		Short: "Print the extracted text of each page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.setup(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if cfg.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
				defer cancel()
			}

			doc, err := extractor.Extract(ctx, args[0])
			if err != nil {
				return fmt.Errorf("PDF extraction failed: %w", err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "PDF has %d pages\n", doc.PageCount())
			for i, page := range doc.Pages {
				fmt.Fprintf(w, "\n\n===== PAGE %d =====\n\n%s\n", i+1, page)
			}

			if showContext {
				sc := parser.ExtractContext(doc.Text, time.Now, logger)
				out, err := yaml.Marshal(sc)
				if err != nil {
					return fmt.Errorf("failed to encode statement context: %w", err)
				}
				fmt.Fprintf(w, "\n===== STATEMENT CONTEXT =====\n\n%s", out)
			}

			if showLines {
				p := parser.New(parser.Options{Thorough: cfg.Thorough, Verbose: true}, logger)
				names := parser.NewClassifier(cfg.Thorough)
				fmt.Fprintf(w, "\n===== LINES =====\n\n")
				for _, dl := range p.Parse(doc).DebugLines {
					result := dl.Result
					if dl.Pattern > 0 {
						result += " (" + names.PatternName(dl.Pattern) + ")"
					}
					fmt.Fprintf(w, "%5d  %-34s %s\n", dl.LineNum, result, dl.Text)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showContext, "context", false, "Also print the detected statement context as YAML")
	cmd.Flags().BoolVar(&showLines, "lines", false, "Also print how each line was classified")
	return cmd
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP conversion API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.setup(cmd)
			if err != nil {
				return err
			}

			app := api.NewApp(&api.Handler{
				Defaults: parser.Options{Thorough: cfg.Thorough, Verbose: cfg.Verbose},
				Timeout:  cfg.Timeout,
				Logger:   logger,
			})

			errCh := make(chan error, 1)
			go func() {
				logger.Info("listening", "addr", cfg.Addr)
				errCh <- app.Listen(cfg.Addr)
			}()

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
				logger.Info("shutting down")
				return app.ShutdownWithTimeout(10 * time.Second)
			}
		},
	}
	cmd.Flags().String("addr", ":8080", "Listen address")
	cmd.Flags().Duration("timeout", 2*time.Minute, "Per-request extraction timeout (0 disables)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cc-statement-converter v%s\n", Version)
		},
	}
}
