package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/payexport/cli/internal/config"
	"github.com/payexport/cli/internal/errhandling"
	"github.com/payexport/cli/pkg/payment"
)

func TestPrintError_Categories(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		verbose  bool
		contains []string
		absent   []string
	}{
		{
			name:     "validation compact",
			err:      errhandling.NewValidationError("min-amount", "abc", "invalid amount", "a decimal number"),
			contains: []string{"✗ Invalid arguments: --min-amount: invalid amount", "Hint: Use --verbose"},
			absent:   []string{"Flag:"},
		},
		{
			name:     "validation verbose",
			err:      fmt.Errorf("parsing: %w", errhandling.NewValidationError("status", "lost", "unknown status", "one of complete, pending")),
			verbose:  true,
			contains: []string{"Flag: --status", `Value: "lost"`, "Expected: one of complete, pending"},
		},
		{
			name:     "store",
			err:      errhandling.NewStoreError("sqlite:///x.db", "fetch", "no such table: payments", nil),
			contains: []string{"✗ Record store unavailable", "no such table: payments"},
		},
		{
			name:     "filesystem declined",
			err:      errhandling.NewFileSystemError("/tmp/x.csv", "confirm", "overwrite declined", nil),
			contains: []string{"✗ Export file not written", "Hint: Use --yes"},
		},
		{
			name:     "filesystem write",
			err:      errhandling.NewFileSystemError("/tmp/x.csv", "write", "disk full", nil),
			contains: []string{"✗ Export file not written", "write /tmp/x.csv: disk full"},
			absent:   []string{"--yes"},
		},
		{
			name:     "canceled",
			err:      fmt.Errorf("fetch: %w", context.Canceled),
			contains: []string{"✗ Export interrupted"},
			absent:   []string{"context canceled"},
		},
		{
			name:     "other",
			err:      errors.New("boom"),
			contains: []string{"✗ Export failed: boom"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			PrintError(&buf, tt.err, tt.verbose, false)
			got := buf.String()
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("output missing %q:\n%s", want, got)
				}
			}
			for _, unwanted := range tt.absent {
				if strings.Contains(got, unwanted) {
					t.Errorf("output contains %q:\n%s", unwanted, got)
				}
			}
		})
	}
}

func TestPrintError_QuietDropsHints(t *testing.T) {
	var buf bytes.Buffer
	PrintError(&buf, errhandling.NewValidationError("format", "xml", "unsupported format", ""), false, true)
	if strings.Contains(buf.String(), "Hint") {
		t.Errorf("quiet output has a hint:\n%s", buf.String())
	}
}

func TestPrintError_Nil(t *testing.T) {
	var buf bytes.Buffer
	PrintError(&buf, nil, true, false)
	if buf.Len() != 0 {
		t.Errorf("PrintError(nil) wrote %q", buf.String())
	}
}

func TestPrintVocabularyErrors(t *testing.T) {
	loadErr := &config.LoadError{
		FilePath: "vocab.yaml",
		Errors: []error{
			config.ParseError{Path: "vocab.yaml", Line: 4, Message: "mapping values are not allowed", Type: "syntax"},
			config.ValidationError{Path: "/fields", Type: "required", Message: "missing property 'fields'"},
		},
	}

	var buf bytes.Buffer
	PrintError(&buf, loadErr, true, false)
	got := buf.String()

	for _, want := range []string{
		"✗ Invalid vocabulary (vocab.yaml):",
		"vocab.yaml:4: mapping values are not allowed",
		"Type: syntax",
		"/fields:",
		"Message: missing property 'fields'",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestPrintSingleValidationError_Truncates(t *testing.T) {
	var buf bytes.Buffer
	printSingleValidationError(&buf, config.ValidationError{Message: strings.Repeat("x", 120)}, false)
	line := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(line, "/: ") || !strings.HasSuffix(line, "...") {
		t.Errorf("line = %q", line)
	}
	if len(line) != len("/: ")+80 {
		t.Errorf("len = %d, want %d", len(line), len("/: ")+80)
	}
}

func TestFormatErrorLocation(t *testing.T) {
	tests := []struct {
		path string
		line int
		want string
	}{
		{"", 3, ""},
		{"v.yaml", 0, "v.yaml"},
		{"v.yaml", 12, "v.yaml:12"},
	}
	for _, tt := range tests {
		if got := formatErrorLocation(tt.path, tt.line); got != tt.want {
			t.Errorf("formatErrorLocation(%q, %d) = %q, want %q", tt.path, tt.line, got, tt.want)
		}
	}
}

func TestPrintExecutionResult(t *testing.T) {
	start := time.Date(2023, time.November, 15, 10, 0, 0, 0, time.UTC)
	result := &payment.ExportResult{
		ExportID:        "abc",
		Status:          "dry-run",
		StartedAt:       start,
		CompletedAt:     start.Add(1500 * time.Millisecond),
		RecordsFetched:  4,
		RecordsExported: 4,
		Destination:     "console",
	}

	t.Run("dry run", func(t *testing.T) {
		var buf bytes.Buffer
		PrintExecutionResult(&buf, result, nil, OutputOptions{DryRun: true})
		if !strings.HasPrefix(buf.String(), "Would export 4 payments.\n") {
			t.Errorf("output = %q", buf.String())
		}
		if strings.Contains(buf.String(), "Duration") {
			t.Error("duration shown without --verbose")
		}
	})

	t.Run("verbose", func(t *testing.T) {
		var buf bytes.Buffer
		PrintExecutionResult(&buf, result, nil, OutputOptions{Verbose: true})
		for _, want := range []string{"Export ID: abc", "Records fetched: 4", "Duration: 1.5s"} {
			if !strings.Contains(buf.String(), want) {
				t.Errorf("output missing %q:\n%s", want, buf.String())
			}
		}
	})

	t.Run("quiet and failed print nothing", func(t *testing.T) {
		var buf bytes.Buffer
		PrintExecutionResult(&buf, result, nil, OutputOptions{Quiet: true, DryRun: true})
		PrintExecutionResult(&buf, result, errors.New("x"), OutputOptions{Verbose: true})
		if buf.Len() != 0 {
			t.Errorf("output = %q", buf.String())
		}
	})
}

func TestPrintVocabulary(t *testing.T) {
	var buf bytes.Buffer
	PrintVocabulary(&buf, config.Default())
	got := buf.String()

	for _, want := range []string{"Fields:", "  * id\n", "Statuses: ", "Periods: "} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestTerminalConfirmer(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  yes  \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"y", true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.input), func(t *testing.T) {
			var out bytes.Buffer
			c := &TerminalConfirmer{In: bufio.NewReader(strings.NewReader(tt.input)), Out: &out}
			got, err := c.Confirm("Overwrite?")
			if err != nil {
				t.Fatalf("Confirm() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Confirm() = %v, want %v", got, tt.want)
			}
			if out.String() != "Overwrite? [y/N]: " {
				t.Errorf("prompt = %q", out.String())
			}
		})
	}
}

func TestNewConfirmer(t *testing.T) {
	var prompt bytes.Buffer
	yes := NewConfirmer(true, strings.NewReader(""), &prompt)
	if ok, err := yes.Confirm("Overwrite?"); err != nil || !ok {
		t.Errorf("--yes Confirm() = %v, %v; want true, nil", ok, err)
	}
	if prompt.Len() != 0 {
		t.Errorf("--yes printed a prompt: %q", prompt.String())
	}

	// a non-terminal reader has nobody to ask
	c := NewConfirmer(false, strings.NewReader("y\n"), &bytes.Buffer{})
	ok, err := c.Confirm("Overwrite?")
	if err != nil || ok {
		t.Errorf("non-interactive Confirm() = %v, %v; want false, nil", ok, err)
	}
}
