// Package cli provides CLI output formatting and display functions.
package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/payexport/cli/internal/config"
	"github.com/payexport/cli/internal/errhandling"
)

// PrintError renders err for the operator. Every failure produces a single
// headline naming what went wrong; verbose adds the details behind it.
func PrintError(w io.Writer, err error, verbose, quiet bool) {
	if err == nil {
		return
	}

	var (
		validationErr *errhandling.ValidationError
		loadErr       *config.LoadError
		storeErr      *errhandling.StoreError
		fsErr         *errhandling.FileSystemError
	)
	switch {
	case errors.As(err, &loadErr):
		PrintVocabularyErrors(w, loadErr, verbose, quiet)
	case errors.As(err, &validationErr):
		printValidationError(w, validationErr, verbose, quiet)
	case errors.As(err, &storeErr):
		fmt.Fprintln(w, "✗ Record store unavailable")
		fmt.Fprintf(w, "  %s\n", err.Error())
	case errors.As(err, &fsErr):
		fmt.Fprintln(w, "✗ Export file not written")
		fmt.Fprintf(w, "  %s\n", err.Error())
		if fsErr.Operation == "confirm" && !quiet {
			fmt.Fprintln(w, "")
			fmt.Fprintln(w, "Hint: Use --yes to confirm without a prompt")
		}
	case errhandling.GetErrorCategory(err) == errhandling.CategoryCanceled:
		fmt.Fprintln(w, "✗ Export interrupted")
		if verbose {
			fmt.Fprintf(w, "  %s\n", err.Error())
		}
	default:
		fmt.Fprintf(w, "✗ Export failed: %s\n", err.Error())
	}
}

// printValidationError prints the offending flag, its value and the accepted form.
func printValidationError(w io.Writer, err *errhandling.ValidationError, verbose, quiet bool) {
	fmt.Fprintf(w, "✗ Invalid arguments: %s\n", err.Error())
	if verbose {
		if err.Flag != "" {
			fmt.Fprintf(w, "    Flag: --%s\n", err.Flag)
		}
		if err.Value != "" {
			fmt.Fprintf(w, "    Value: %q\n", err.Value)
		}
		if err.Expected != "" {
			fmt.Fprintf(w, "    Expected: %s\n", err.Expected)
		}
	}
	printHint(w, quiet)
}

// PrintVocabularyErrors prints every problem found in a vocabulary file.
func PrintVocabularyErrors(w io.Writer, err *config.LoadError, verbose, quiet bool) {
	source := err.FilePath
	if source == "" {
		source = "embedded vocabulary"
	}
	fmt.Fprintf(w, "✗ Invalid vocabulary (%s):\n", source)
	for _, e := range err.Errors {
		var (
			parseErr config.ParseError
			valErr   config.ValidationError
		)
		switch {
		case errors.As(e, &parseErr):
			printSingleParseError(w, parseErr, verbose)
		case errors.As(e, &valErr):
			printSingleValidationError(w, valErr, verbose)
		default:
			fmt.Fprintf(w, "  %s\n", e.Error())
		}
	}
	printHint(w, quiet)
}

// printSingleParseError prints a single parse error with location information.
func printSingleParseError(w io.Writer, err config.ParseError, verbose bool) {
	location := formatErrorLocation(err.Path, err.Line)

	if location != "" {
		fmt.Fprintf(w, "  %s: %s\n", location, err.Message)
	} else {
		fmt.Fprintf(w, "  %s\n", err.Message)
	}

	if verbose && err.Type != "" {
		fmt.Fprintf(w, "    Type: %s\n", err.Type)
	}
}

// formatErrorLocation formats the error location string (path:line).
func formatErrorLocation(path string, line int) string {
	if path == "" {
		return ""
	}
	if line > 0 {
		return fmt.Sprintf("%s:%d", path, line)
	}
	return path
}

// printSingleValidationError prints a single schema validation error.
func printSingleValidationError(w io.Writer, err config.ValidationError, verbose bool) {
	path := err.Path
	if path == "" {
		path = "/"
	}

	if verbose {
		fmt.Fprintf(w, "  %s:\n", path)
		fmt.Fprintf(w, "    Message: %s\n", err.Message)
		if err.Type != "" {
			fmt.Fprintf(w, "    Type: %s\n", err.Type)
		}
		return
	}

	shortMsg := err.Message
	if len(shortMsg) > 80 {
		shortMsg = shortMsg[:77] + "..."
	}
	fmt.Fprintf(w, "  %s: %s\n", path, shortMsg)
}

// printHint prints a hint about verbose mode.
func printHint(w io.Writer, quiet bool) {
	if !quiet {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Hint: Use --verbose for detailed error information")
	}
}
