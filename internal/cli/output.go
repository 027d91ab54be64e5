package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/payexport/cli/internal/config"
	"github.com/payexport/cli/pkg/payment"
)

// OutputOptions configures CLI output behavior.
type OutputOptions struct {
	Verbose bool
	Quiet   bool
	DryRun  bool
}

// PrintExecutionResult displays what the export did beyond the summary line
// the exporter already printed. A dry run reports the rows it would have
// written; verbose adds the run details.
func PrintExecutionResult(w io.Writer, result *payment.ExportResult, err error, opts OutputOptions) {
	if result == nil {
		fmt.Fprintln(w, "✗ No export result available")
		return
	}
	if err != nil || opts.Quiet {
		return
	}

	if opts.DryRun {
		fmt.Fprintf(w, "Would export %d payments.\n", result.RecordsExported)
		fmt.Fprintln(w, "ℹ Nothing was written (dry-run mode)")
	}

	if opts.Verbose {
		fmt.Fprintf(w, "  Export ID: %s\n", result.ExportID)
		fmt.Fprintf(w, "  Status: %s\n", result.Status)
		fmt.Fprintf(w, "  Records fetched: %d\n", result.RecordsFetched)
		if result.Destination != "" {
			fmt.Fprintf(w, "  Destination: %s\n", result.Destination)
		}
		fmt.Fprintf(w, "  Duration: %v\n", result.CompletedAt.Sub(result.StartedAt))
	}
}

// PrintVocabulary lists the exportable fields, statuses and named periods.
// Fields selected by default are marked with '*'.
func PrintVocabulary(w io.Writer, vocab *config.Vocabulary) {
	if vocab == nil {
		return
	}

	if vocab.Version != "" {
		fmt.Fprintf(w, "Vocabulary version: %s\n", vocab.Version)
	}

	defaults := make(map[string]bool, len(vocab.DefaultFields))
	for _, f := range vocab.DefaultFields {
		defaults[f] = true
	}

	fmt.Fprintln(w, "Fields:")
	for _, f := range vocab.Fields {
		marker := " "
		if defaults[f] {
			marker = "*"
		}
		fmt.Fprintf(w, "  %s %s\n", marker, f)
	}

	fmt.Fprintf(w, "Statuses: %s\n", strings.Join(vocab.Statuses, ", "))
	fmt.Fprintf(w, "Periods: %s\n", strings.Join(vocab.Periods, ", "))
}
