// Package logger provides structured logging functionality.
// It wraps the standard log/slog package for consistent logging across the exporter.
//
// Logs are written to stderr so that console exports on stdout stay clean.
// The package provides export context helpers for consistent pipeline logging,
// including helpers for export start/end and stage start/end.
// All helpers use structured logging with consistent field names (snake_case).
//
// The package supports two output formats:
//   - JSON (default): Machine-readable structured logging
//   - Human: Human-readable console output with colors and prefixes
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// DefaultLevel keeps a successful export silent apart from its summary line.
const DefaultLevel = slog.LevelWarn

// Logger is the default logger instance.
var Logger *slog.Logger

// output is where console logs are written (stderr unless redirected).
var (
	outputMu sync.Mutex
	output   io.Writer = os.Stderr
)

func init() {
	Logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: DefaultLevel,
	}))
}

// SetOutput redirects console logs. Tests use it to capture output.
// It takes effect on the next SetLevelAndFormat call.
func SetOutput(w io.Writer) {
	outputMu.Lock()
	defer outputMu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	output = w
}

func currentOutput() io.Writer {
	outputMu.Lock()
	defer outputMu.Unlock()
	return output
}

// LevelFromFlags maps the --verbose/--quiet flags to a level.
// verbose wins when both are set.
func LevelFromFlags(verbose, quiet bool) slog.Level {
	switch {
	case verbose:
		return slog.LevelDebug
	case quiet:
		return slog.LevelError
	default:
		return DefaultLevel
	}
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}

// =============================================================================
// Export Context Types
// =============================================================================

// ExportContext contains context information for export logging.
type ExportContext struct {
	// ExportID uniquely identifies the invocation (required)
	ExportID string
	// Stage is the current pipeline stage (build, fetch, project, export)
	Stage string
	// Source is the redacted record store location
	Source string
	// Destination is "console" or the export file path
	Destination string
	// Format is the export format (csv, json)
	Format string
}

// ErrorContext contains structured context for error logging.
// Use this with LogError() for consistent, actionable error logs.
type ErrorContext struct {
	ExportID string
	Stage    string

	// Error details
	ErrorCode    string
	ErrorMessage string
	Err          error // underlying error (for the error chain)

	RecordCount int
	Duration    time.Duration

	// Additional context as key-value pairs
	Extra map[string]interface{}
}

// =============================================================================
// Export Context Helpers
// =============================================================================

// WithExport returns a logger with export context attached.
// Only non-empty fields are included in the log output.
func WithExport(ctx ExportContext) *slog.Logger {
	return Logger.With(buildContextAttrs(ctx)...)
}

// LogExportStart logs the start of an export.
func LogExportStart(ctx ExportContext) {
	Logger.Info("export started", buildContextAttrs(ctx)...)
}

// LogExportEnd logs the completion of an export with its final status.
func LogExportEnd(ctx ExportContext, status string, recordsExported int, duration time.Duration) {
	attrs := buildContextAttrs(ctx)
	attrs = append(attrs,
		slog.String("status", status),
		slog.Int("records_exported", recordsExported),
		slog.Duration("duration", duration),
	)
	Logger.Info("export completed", attrs...)
}

// LogStageStart logs the start of a pipeline stage.
func LogStageStart(ctx ExportContext) {
	Logger.Debug("stage started", buildContextAttrs(ctx)...)
}

// LogStageEnd logs the successful completion of a pipeline stage.
// Failed stages are logged with LogError.
func LogStageEnd(ctx ExportContext, recordCount int, duration time.Duration) {
	attrs := buildContextAttrs(ctx)
	attrs = append(attrs,
		slog.Int("record_count", recordCount),
		slog.Duration("duration", duration),
	)
	Logger.Info("stage completed", attrs...)
}

// LogError logs an error with its export context and unwrapped error chain.
func LogError(message string, errCtx ErrorContext) {
	attrs := make([]any, 0, 12)

	if errCtx.ExportID != "" {
		attrs = append(attrs, slog.String("export_id", errCtx.ExportID))
	}
	if errCtx.Stage != "" {
		attrs = append(attrs, slog.String("stage", errCtx.Stage))
	}
	if errCtx.ErrorCode != "" {
		attrs = append(attrs, slog.String("error_code", errCtx.ErrorCode))
	}
	if errCtx.ErrorMessage != "" {
		attrs = append(attrs, slog.String("error", errCtx.ErrorMessage))
	}
	if errCtx.Err != nil {
		attrs = append(attrs, slog.String("error_type", fmt.Sprintf("%T", errCtx.Err)))

		errorChain := []string{errCtx.Err.Error()}
		for current := errors.Unwrap(errCtx.Err); current != nil; current = errors.Unwrap(current) {
			errorChain = append(errorChain, current.Error())
		}
		if len(errorChain) > 1 {
			attrs = append(attrs, slog.String("error_chain", strings.Join(errorChain, " -> ")))
		}
	}
	if errCtx.RecordCount > 0 {
		attrs = append(attrs, slog.Int("record_count", errCtx.RecordCount))
	}
	if errCtx.Duration > 0 {
		attrs = append(attrs, slog.Duration("duration", errCtx.Duration))
	}
	for k, v := range errCtx.Extra {
		attrs = append(attrs, slog.Any(k, v))
	}

	Logger.Error(message, attrs...)
}

// buildContextAttrs builds a slice of slog attributes from an ExportContext.
// Only non-empty fields are included.
func buildContextAttrs(ctx ExportContext) []any {
	attrs := make([]any, 0, 5)
	attrs = append(attrs, slog.String("export_id", ctx.ExportID))
	if ctx.Stage != "" {
		attrs = append(attrs, slog.String("stage", ctx.Stage))
	}
	if ctx.Source != "" {
		attrs = append(attrs, slog.String("source", ctx.Source))
	}
	if ctx.Destination != "" {
		attrs = append(attrs, slog.String("destination", ctx.Destination))
	}
	if ctx.Format != "" {
		attrs = append(attrs, slog.String("format", ctx.Format))
	}
	return attrs
}

// =============================================================================
// Human-Readable Log Format Support
// =============================================================================

// OutputFormat represents the log output format
type OutputFormat int

const (
	// FormatJSON is the default machine-readable JSON format
	FormatJSON OutputFormat = iota
	// FormatHuman is a human-readable console format with colors and prefixes
	FormatHuman
)

// ParseFormat parses the --log-format flag value.
func ParseFormat(name string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return FormatJSON, nil
	case "human", "text":
		return FormatHuman, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format %q (expected json or human)", name)
	}
}

// SetLevelAndFormat sets both the log level and format.
func SetLevelAndFormat(level slog.Level, format OutputFormat) {
	Logger = slog.New(newConsoleHandler(currentOutput(), level, format))
}

func newConsoleHandler(w io.Writer, level slog.Level, format OutputFormat) slog.Handler {
	if format == FormatHuman {
		return NewHumanHandler(w, &HumanHandlerOptions{
			Level:     level,
			UseColors: isTerminal(w),
		})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

// isTerminal returns true if the writer is a terminal (supports colors)
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// HumanHandlerOptions configures the human-readable log handler.
type HumanHandlerOptions struct {
	Level     slog.Level
	UseColors bool
}

// HumanHandler writes one line per record for an operator watching an export:
//
//	10:30:02 ✓ stage completed [3f2a…/fetch] record_count=3 duration=12ms
//
// export_id and stage are lifted into the bracketed tag; every other
// attribute follows as key=value in the order it was added.
type HumanHandler struct {
	opts   HumanHandlerOptions
	w      io.Writer
	mu     *sync.Mutex
	attrs  []slog.Attr
	prefix string
}

// NewHumanHandler creates a human-readable handler writing to w.
func NewHumanHandler(w io.Writer, opts *HumanHandlerOptions) *HumanHandler {
	h := &HumanHandler{w: w, mu: &sync.Mutex{}, opts: HumanHandlerOptions{Level: slog.LevelInfo}}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

// Enabled implements slog.Handler.
func (h *HumanHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level
}

// Handle implements slog.Handler.
func (h *HumanHandler) Handle(_ context.Context, r slog.Record) error {
	var exportID, stage string
	var pairs []string
	add := func(prefix string, a slog.Attr) {
		switch a.Key {
		case "export_id":
			exportID = a.Value.String()
		case "stage":
			stage = a.Value.String()
		default:
			pairs = append(pairs, prefix+a.Key+"="+formatValue(a.Value))
		}
	}
	for _, a := range h.attrs {
		add("", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		add(h.prefix, a)
		return true
	})

	line := r.Time.Format("15:04:05") + " " + h.marker(r.Level, r.Message) + " " + r.Message
	if tag := strings.Trim(exportID+"/"+stage, "/"); tag != "" {
		line += " [" + tag + "]"
	}
	if len(pairs) > 0 {
		line += " " + strings.Join(pairs, " ")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line+"\n")
	return err
}

// WithAttrs implements slog.Handler. Keys are qualified by any open group.
func (h *HumanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" && a.Key != "export_id" && a.Key != "stage" {
			a.Key = h.prefix + a.Key
		}
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

// WithGroup implements slog.Handler.
func (h *HumanHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

var levelMarkers = []struct {
	min    slog.Level
	symbol string
	color  string
}{
	{slog.LevelError, "✗", "\033[31m"},
	{slog.LevelWarn, "⚠", "\033[33m"},
	{slog.LevelInfo, "ℹ", "\033[36m"},
}

// marker picks the level symbol; info records whose message reports a
// completion get ✓.
func (h *HumanHandler) marker(level slog.Level, message string) string {
	symbol, color := "·", ""
	for _, m := range levelMarkers {
		if level >= m.min {
			symbol, color = m.symbol, m.color
			break
		}
	}
	if symbol == "ℹ" && strings.Contains(strings.ToLower(message), "completed") {
		symbol, color = "✓", "\033[32m"
	}
	if !h.opts.UseColors || color == "" {
		return symbol
	}
	return color + symbol + "\033[0m"
}

func formatValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindDuration:
		return formatDuration(v.Duration())
	case slog.KindFloat64:
		return fmt.Sprintf("%.2f", v.Float64())
	case slog.KindString:
		if s := v.String(); strings.ContainsAny(s, " \t\"=") {
			return fmt.Sprintf("%q", s)
		}
		return v.String()
	default:
		return v.String()
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	default:
		return d.Round(time.Second).String()
	}
}

// Log file

// maxLogFileSize is the size past which an existing log file is moved aside.
const maxLogFileSize = 10 << 20

var logFile *os.File

// rotateLogFile moves path to path.1 once it has grown past maxLogFileSize,
// replacing any previous backup.
func rotateLogFile(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking log file size: %w", err)
	}
	if info.Size() < maxLogFileSize {
		return nil
	}
	if err := os.Rename(path, path+".1"); err != nil {
		return fmt.Errorf("rotating log file: %w", err)
	}
	return nil
}

// SetLogFile copies every log record at info level or finer to path as JSON,
// next to the console handler. A file past 10 MB is first moved to path.1.
func SetLogFile(path string, level slog.Level, consoleFormat OutputFormat) error {
	CloseLogFile()

	if err := rotateLogFile(path); err != nil {
		Warn("log rotation failed", slog.String("error", err.Error()))
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	logFile = f

	Logger = slog.New(teeHandler{
		newConsoleHandler(currentOutput(), level, consoleFormat),
		slog.NewJSONHandler(f, &slog.HandlerOptions{Level: min(level, slog.LevelInfo)}),
	})
	Debug("log file opened", slog.String("path", path))
	return nil
}

// CloseLogFile flushes and closes the log file opened by SetLogFile, if any.
func CloseLogFile() {
	if logFile == nil {
		return
	}
	f := logFile
	logFile = nil
	if err := errors.Join(f.Sync(), f.Close()); err != nil {
		Warn("closing log file failed", slog.String("error", err.Error()))
	}
}

// teeHandler hands each record to every handler that accepts its level.
type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
