// Package main provides the CLI entry point for payexport.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/payexport/cli/internal/cli"
	"github.com/payexport/cli/internal/config"
	"github.com/payexport/cli/internal/criteria"
	"github.com/payexport/cli/internal/database"
	"github.com/payexport/cli/internal/errhandling"
	"github.com/payexport/cli/internal/factory"
	"github.com/payexport/cli/internal/logger"
	"github.com/payexport/cli/internal/modules/filter"
	"github.com/payexport/cli/internal/query"
	"github.com/payexport/cli/internal/registry"
	"github.com/payexport/cli/internal/runtime"
	"github.com/payexport/cli/pkg/payment"
)

// Environment variables read when the matching flag is not given.
const (
	envSource        = "PAYEXPORT_SOURCE"
	envPaymentsTable = "PAYEXPORT_PAYMENTS_TABLE"
	envItemsTable    = "PAYEXPORT_ITEMS_TABLE"
)

var (
	// Build information (set via ldflags during build)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// environment holds the process streams and clock so the commands can run
// in-process under test.
type environment struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
	getenv func(string) string
}

func defaultEnvironment() *environment {
	return &environment{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		now:    time.Now,
		getenv: os.Getenv,
	}
}

// app carries the flag values of one invocation.
type app struct {
	env *environment

	// Global flags
	verbose   bool
	quiet     bool
	logFormat string
	logFile   string

	// Export command flags
	raw        criteria.RawArgs
	source     string
	vocabulary string
	assumeYes  bool
	legacyCSV  bool
	dryRun     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], defaultEnvironment())
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, env *environment) int {
	a := &app{env: env}
	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetIn(env.stdin)
	root.SetOut(env.stdout)
	root.SetErr(env.stderr)

	err := root.ExecuteContext(ctx)
	logger.CloseLogFile()
	if err == nil {
		return errhandling.ExitSuccess
	}

	cli.PrintError(env.stderr, err, a.verbose, a.quiet)
	return errhandling.ExitCode(err)
}

func (a *app) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "payexport",
		Short: "payexport - Export payment records to CSV or JSON",
		Long: `payexport exports payment records from a record store to the console
or to a file, selected by date, amount, status, customer and product.

The record store is given as a URL with --source or PAYEXPORT_SOURCE
(postgres://, sqlite://, memory://). A .env file in the working directory
is loaded when present.

Examples:
  # Last week's payments as a table
  payexport export --last-days=7

  # November as JSON in a file
  payexport export --start-date=2023-11-01 --end-date=2023-11-30 \
      --format=json --output=file --file=november.json

  # List the exportable fields and statuses
  payexport vocabulary`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose output")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "Suppress non-error output")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "json", "Console log format (json, human)")
	root.PersistentFlags().StringVar(&a.logFile, "log-file", "", "Also write JSON logs to this file")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errhandling.NewValidationError("", "", err.Error(), "")
	})

	root.AddCommand(a.newExportCmd())
	root.AddCommand(a.newVocabularyCmd())
	root.AddCommand(a.newMigrateCmd())
	root.AddCommand(a.newVersionCmd())
	return root
}

// setup loads .env and configures logging before any command runs.
func (a *app) setup(_ *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errhandling.NewFileSystemError(".env", "read", "cannot load environment file", err)
	}

	format, err := logger.ParseFormat(a.logFormat)
	if err != nil {
		return errhandling.NewValidationError("log-format", a.logFormat, "unknown log format", "json or human")
	}

	level := logger.LevelFromFlags(a.verbose, a.quiet)
	logger.SetOutput(a.env.stderr)
	logger.SetLevelAndFormat(level, format)

	if a.logFile != "" {
		if err := logger.SetLogFile(a.logFile, level, format); err != nil {
			return errhandling.NewFileSystemError(a.logFile, "open", "cannot open log file", errors.Unwrap(err))
		}
	}
	return nil
}

func (a *app) newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export payment records",
		Long: `Export the payment records matching the given criteria.

Dates:
  --start-date/--end-date take YYYY-MM-DD and are inclusive.
  --last-days takes a number of days or a named period (last_month, this_year...).
  The two forms cannot be combined.

Filters:
  --amount-filter   ">" or "<" followed by an amount, e.g. "> $100"
  --status-filter   comma-separated statuses
  --customer-filter a customer id or an e-mail address
  --product-filter  comma-separated product ids

An existing file is only overwritten after confirmation. Without a
terminal, use --yes or the export fails.

Exit codes:
  0 - Export written
  1 - Invalid arguments or vocabulary
  2 - Record store unavailable
  3 - Export file not written
  4 - Interrupted or unexpected failure`,
		Args: cobra.NoArgs,
		RunE: a.runExport,
	}

	f := cmd.Flags()
	f.StringVar(&a.raw.StartDate, criteria.FlagStartDate, "", "First day to export (YYYY-MM-DD)")
	f.StringVar(&a.raw.EndDate, criteria.FlagEndDate, "", "Last day to export, inclusive (YYYY-MM-DD)")
	f.StringVar(&a.raw.LastDays, criteria.FlagLastDays, "", "Number of days up to today, or a named period")
	f.StringVar(&a.raw.Format, criteria.FlagFormat, "csv", "Output format (csv, json)")
	f.StringVar(&a.raw.Fields, criteria.FlagFields, "", "Comma-separated fields to export")
	f.StringVar(&a.raw.Output, criteria.FlagOutput, "shell", "Destination (shell, file)")
	f.StringVar(&a.raw.File, criteria.FlagFile, "", "Export file path when --output=file")
	f.StringVar(&a.raw.AmountFilter, criteria.FlagAmountFilter, "", `Amount comparison, e.g. "> $100" or "<25.50"`)
	f.StringVar(&a.raw.StatusFilter, criteria.FlagStatusFilter, "", "Comma-separated payment statuses")
	f.StringVar(&a.raw.CustomerFilter, criteria.FlagCustomerFilter, "", "Customer id or e-mail")
	f.StringVar(&a.raw.ProductFilter, criteria.FlagProductFilter, "", "Comma-separated product ids")
	f.StringVar(&a.source, factory.FlagSource, "", "Record store URL (default $"+envSource+")")
	f.StringVar(&a.vocabulary, "vocabulary", "", "Vocabulary file replacing the built-in one")
	f.BoolVarP(&a.assumeYes, "yes", "y", false, "Confirm overwrites and directory creation")
	f.BoolVar(&a.legacyCSV, "csv-legacy", false, "Write CSV values without quoting")
	f.BoolVar(&a.dryRun, "dry-run", false, "Fetch and count records without writing them")
	return cmd
}

func (a *app) runExport(cmd *cobra.Command, _ []string) error {
	vocab, err := config.Load(a.vocabulary)
	if err != nil {
		return err
	}

	raw := a.raw
	raw.Changed = changedFlags(cmd)
	filters, err := criteria.Parse(raw, vocab)
	if err != nil {
		return err
	}

	source := a.source
	if source == "" {
		source = a.env.getenv(envSource)
	}

	ctx := cmd.Context()
	store, err := factory.CreateStore(ctx, source, registry.StoreOptions{
		PaymentsTable: a.env.getenv(envPaymentsTable),
		ItemsTable:    a.env.getenv(envItemsTable),
	})
	if err != nil {
		return err
	}

	confirm := cli.NewConfirmer(a.assumeYes, a.env.stdin, a.env.stderr)
	exporter := factory.CreateExporter(a.env.stdout, a.env.stderr, confirm, registry.EncoderOptions{LegacyCSV: a.legacyCSV})

	builder := query.NewBuilder()
	builder.Now = a.env.now

	executor := runtime.NewExecutorWithModules(builder, store, filter.NewProjector(vocab), exporter, a.dryRun)
	executor.Source = database.Redact(source)

	result, err := executor.Execute(ctx, uuid.NewString(), filters)
	cli.PrintExecutionResult(a.summaryWriter(filters), result, err, cli.OutputOptions{
		Verbose: a.verbose,
		Quiet:   a.quiet,
		DryRun:  a.dryRun,
	})
	return err
}

// summaryWriter keeps console JSON on stdout parseable.
func (a *app) summaryWriter(filters *criteria.FilterSet) io.Writer {
	if filters.Format == payment.FormatJSON && filters.Destination.Kind == payment.Console {
		return a.env.stderr
	}
	return a.env.stdout
}

// changedFlags returns the names of the flags given on the command line.
func changedFlags(cmd *cobra.Command) map[string]bool {
	changed := make(map[string]bool)
	for _, name := range []string{
		criteria.FlagStartDate, criteria.FlagEndDate, criteria.FlagLastDays,
		criteria.FlagFormat, criteria.FlagFields, criteria.FlagOutput, criteria.FlagFile,
		criteria.FlagAmountFilter, criteria.FlagStatusFilter,
		criteria.FlagCustomerFilter, criteria.FlagProductFilter,
	} {
		if cmd.Flags().Changed(name) {
			changed[name] = true
		}
	}
	return changed
}

func (a *app) newVocabularyCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "vocabulary",
		Short: "List exportable fields, statuses and periods",
		Long: `List the export vocabulary: the fields accepted by --fields (default
selection marked with *), the statuses accepted by --status-filter and the
named periods accepted by --last-days.

With --vocabulary, the given file is validated and listed instead.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			vocab, err := config.Load(path)
			if err != nil {
				return err
			}
			cli.PrintVocabulary(a.env.stdout, vocab)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "vocabulary", "", "Vocabulary file to validate and list")
	return cmd
}

func (a *app) newMigrateCmd() *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the payments schema",
		Long: `Apply the payments schema migrations to a PostgreSQL or SQLite store.
Already applied migrations are skipped.

Examples:
  payexport migrate --source sqlite:///var/lib/shop/payments.db
  PAYEXPORT_SOURCE=postgres://shop@db/shop payexport migrate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if source == "" {
				source = a.env.getenv(envSource)
			}
			return a.runMigrate(cmd.Context(), source)
		},
	}
	cmd.Flags().StringVar(&source, factory.FlagSource, "", "Database URL (default $"+envSource+")")
	return cmd
}

func (a *app) runMigrate(ctx context.Context, source string) error {
	if source == "" {
		return errhandling.NewValidationError(factory.FlagSource, "",
			"no database configured (set --source or PAYEXPORT_SOURCE)", "a postgres:// or sqlite:// URL")
	}
	redacted := database.Redact(source)

	db, driver, err := database.Open(ctx, database.Config{ConnectionString: source, CreateIfMissing: true})
	if err != nil {
		if errors.Is(err, database.ErrUnsupportedDriver) {
			return errhandling.NewValidationError(factory.FlagSource, redacted, err.Error(), "a postgres:// or sqlite:// URL")
		}
		return errhandling.NewStoreError(redacted, "connect", err.Error(), err)
	}
	defer func() { _ = db.Close() }()

	applied, err := database.Migrate(ctx, db, driver)
	if err != nil {
		return errhandling.NewStoreError(redacted, "migrate", err.Error(), err)
	}

	logger.Info("migrations applied",
		slog.String("source", redacted),
		slog.Int("count", len(applied)),
	)
	if a.quiet {
		return nil
	}
	if len(applied) == 0 {
		fmt.Fprintln(a.env.stdout, "✓ Schema is up to date")
		return nil
	}
	for _, v := range applied {
		fmt.Fprintf(a.env.stdout, "✓ Applied migration %d\n", v)
	}
	return nil
}

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print version, commit hash, and build date information.",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(a.env.stdout, "Version: %s\n", version)
			fmt.Fprintf(a.env.stdout, "Commit: %s\n", commit)
			fmt.Fprintf(a.env.stdout, "Build Date: %s\n", buildDate)
		},
	}
}
