package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/insightdelivered/cc-statement-converter/internal/config"
	"github.com/insightdelivered/cc-statement-converter/internal/parser"
	"github.com/insightdelivered/cc-statement-converter/internal/service"
)

// Version is the release printed by the version command.
const Version = "1.0.0"

// Exit codes.
const (
	ExitOK             = 0
	ExitError          = 1
	ExitNoTransactions = 2
)

type rootOptions struct {
	cfgFile      string
	pageAnalysis bool
	logOut       io.Writer
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{logOut: os.Stderr}

	root := &cobra.Command{
		Use:   "cc-statement-converter",
		Short: "Convert credit-card statement PDFs to transaction CSV files",
		Long: `Credit-card statement PDF to CSV converter
by Insight Delivered

Reads the text layer of credit-card statement PDFs, reconstructs each
transaction (including foreign-currency and exchange-rate lines) and writes
date-sorted CSV rows.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.cfgFile, "config", "c", "", "Config file (default is config.yaml)")
	pf.BoolP("verbose", "v", false, "Log each matched line and keep per-line debug records")
	pf.BoolP("debug", "d", false, "Verbose mode plus a listing of every transaction found")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.BoolP("thorough", "t", false, "Enable loose layouts and the per-page recovery scan")
	pf.BoolVarP(&opts.pageAnalysis, "page-analysis", "p", false, "Alias for --thorough")

	root.AddCommand(
		newConvertCmd(opts),
		newBatchCmd(opts),
		newCombineCmd(opts),
		newInspectCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return root
}

// setup resolves the configuration for cmd and builds the shared logger.
func (o *rootOptions) setup(cmd *cobra.Command) (*config.Config, *log.Logger, error) {
	cfg, err := config.Build(o.cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	if o.pageAnalysis {
		cfg.Thorough = true
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	if cfg.Verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(o.logOut, log.Options{
		ReportTimestamp: true,
		Prefix:          "cc-statement-converter",
		Level:           level,
	})
	return cfg, logger, nil
}

func newConverter(cfg *config.Config, logger *log.Logger) *service.Converter {
	p := parser.New(parser.Options{Thorough: cfg.Thorough, Verbose: cfg.Verbose}, logger)
	return service.NewConverter(p, cfg.Timeout, logger)
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return exitCode(NewRootCmd().ExecuteContext(ctx))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, service.ErrNoTransactions):
		fmt.Fprintln(os.Stderr, err)
		return ExitNoTransactions
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
		return ExitError
	}
}
