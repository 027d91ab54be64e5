package output

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/payexport/cli/internal/errhandling"
	"github.com/payexport/cli/internal/logger"
	"github.com/payexport/cli/internal/pathutil"
	"github.com/payexport/cli/pkg/payment"
)

// File and directory modes used when writing exports.
const (
	exportDirMode  fs.FileMode = 0o755
	exportFileMode fs.FileMode = 0o644
)

// Exporter writes projected rows to their destination and reports the summary.
type Exporter struct {
	// Out receives console exports and the summary line
	Out io.Writer

	// Err receives the summary line when the console carries JSON,
	// so that stdout stays a parseable document
	Err io.Writer

	// Confirm approves directory creation and overwrites
	Confirm Confirmer

	// Encoders serialise each format for file destinations
	Encoders map[payment.Format]Encoder

	// Table renders console CSV exports
	Table Encoder
}

// NewExporter returns an Exporter with the built-in encoders.
func NewExporter(out, errOut io.Writer, confirm Confirmer, legacyCSV bool) *Exporter {
	if confirm == nil {
		confirm = Decline
	}
	return &Exporter{
		Out:     out,
		Err:     errOut,
		Confirm: confirm,
		Encoders: map[payment.Format]Encoder{
			payment.FormatCSV:  CSVEncoder{Legacy: legacyCSV},
			payment.FormatJSON: JSONEncoder{},
		},
		Table: TableEncoder{},
	}
}

// Export writes rows with the given columns and returns the number of rows written.
// A declined confirmation or an unwritable location is a FileSystemError and
// leaves any existing file untouched.
func (e *Exporter) Export(rows []payment.Row, fields []string, format payment.Format, dest payment.Destination) (int, error) {
	startTime := time.Now()

	enc, ok := e.Encoders[format]
	if !ok {
		return 0, fmt.Errorf("no encoder registered for format %q", format)
	}

	var err error
	summary := e.Out
	switch dest.Kind {
	case payment.Console:
		if format == payment.FormatCSV && e.Table != nil {
			enc = e.Table
		}
		if format == payment.FormatJSON && e.Err != nil {
			summary = e.Err
		}
		err = enc.Encode(e.Out, fields, rows)
		if err != nil {
			err = fmt.Errorf("writing export to console: %w", err)
		}
	case payment.File:
		err = e.writeFile(dest.Path, enc, fields, rows)
	default:
		err = fmt.Errorf("unsupported destination %q", dest.Kind)
	}
	if err != nil {
		return 0, err
	}

	logger.Debug("export written",
		"destination", dest.String(),
		"format", string(format),
		"record_count", len(rows),
		"duration", time.Since(startTime),
	)

	if _, err := fmt.Fprintf(summary, "Exported %d payments.\n", len(rows)); err != nil {
		return len(rows), fmt.Errorf("writing summary: %w", err)
	}
	return len(rows), nil
}

// writeFile prepares the destination and writes the encoded rows in one call.
func (e *Exporter) writeFile(path string, enc Encoder, fields []string, rows []payment.Row) error {
	if err := pathutil.ValidateOutputPath(path); err != nil {
		return errhandling.NewFileSystemError(path, "validate", err.Error(), nil)
	}

	dir := filepath.Dir(path)
	createDir, err := e.prepare(path, dir)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := enc.Encode(&buf, fields, rows); err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}

	if createDir {
		if err := os.MkdirAll(dir, exportDirMode); err != nil {
			return errhandling.NewFileSystemError(dir, "mkdir", "cannot create directory", err)
		}
		logger.Info("export directory created", "path", dir)
	}

	if err := os.WriteFile(path, buf.Bytes(), exportFileMode); err != nil {
		return errhandling.NewFileSystemError(path, "write", "cannot write export file", err)
	}
	return nil
}

// prepare runs the consent and writability checks in order:
// missing directory, existing file, writable ancestor.
// It reports whether the parent directory must be created.
func (e *Exporter) prepare(path, dir string) (bool, error) {
	createDir := false
	switch info, err := os.Stat(dir); {
	case errors.Is(err, fs.ErrNotExist):
		if err := e.confirm(dir, fmt.Sprintf("Directory %s does not exist. Create it?", dir)); err != nil {
			return false, err
		}
		createDir = true
	case err != nil:
		return false, errhandling.NewFileSystemError(dir, "access", "cannot inspect directory", err)
	case !info.IsDir():
		return false, errhandling.NewFileSystemError(dir, "access", "parent is not a directory", nil)
	}

	if !createDir {
		switch info, err := os.Stat(path); {
		case err == nil && info.IsDir():
			return false, errhandling.NewFileSystemError(path, "access", "destination is a directory", nil)
		case err == nil:
			if err := e.confirm(path, fmt.Sprintf("File %s already exists. Overwrite?", path)); err != nil {
				return false, err
			}
		case !errors.Is(err, fs.ErrNotExist):
			return false, errhandling.NewFileSystemError(path, "access", "cannot inspect file", err)
		}
	}

	if _, err := pathutil.WritableAncestor(dir); err != nil {
		return false, errhandling.NewFileSystemError(dir, "access", "no writable directory", err)
	}
	return createDir, nil
}

func (e *Exporter) confirm(path, prompt string) error {
	ok, err := e.Confirm.Confirm(prompt)
	if err != nil {
		return errhandling.NewFileSystemError(path, "confirm", "confirmation failed", err)
	}
	if !ok {
		logger.Warn("confirmation declined", "path", path)
		return errhandling.NewFileSystemError(path, "confirm", "operation not confirmed", nil)
	}
	return nil
}
