// Package runtime provides the export execution engine.
// It orchestrates query building, record fetching, field projection and export.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/payexport/cli/internal/criteria"
	"github.com/payexport/cli/internal/errhandling"
	"github.com/payexport/cli/internal/logger"
	"github.com/payexport/cli/internal/modules/input"
	"github.com/payexport/cli/pkg/payment"
)

// Error codes for export execution errors
const (
	ErrCodeBuildFailed   = "BUILD_FAILED"
	ErrCodeFetchFailed   = "FETCH_FAILED"
	ErrCodeProjectFailed = "PROJECT_FAILED"
	ErrCodeExportFailed  = "EXPORT_FAILED"
	ErrCodeInvalidInput  = "INVALID_INPUT"
)

// Execution status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusDryRun  = "dry-run"
)

// Pipeline stages, in execution order
const (
	StageBuild   = "build"
	StageFetch   = "fetch"
	StageProject = "project"
	StageExport  = "export"
)

// Common errors
var (
	// ErrNilFilterSet is returned when no filter set is given
	ErrNilFilterSet = errors.New("filter set is nil")

	// ErrNilStore is returned when the record store is nil
	ErrNilStore = errors.New("record store is nil")

	// ErrNilExporter is returned when the exporter is nil outside dry-run mode
	ErrNilExporter = errors.New("exporter is nil")
)

// QueryBuilder turns a filter set into a store query.
type QueryBuilder interface {
	Build(fs *criteria.FilterSet) (payment.Query, error)
}

// Projector narrows records to the selected fields.
type Projector interface {
	Columns(fields []string) []string
	ProjectAll(ctx context.Context, records []payment.Record, fields []string) ([]payment.Row, error)
}

// RowExporter writes rows to the destination and reports the summary.
type RowExporter interface {
	Export(rows []payment.Row, fields []string, format payment.Format, dest payment.Destination) (int, error)
}

// Executor runs one export: build → fetch → project → export.
//
// The Executor only interacts with its collaborators through interfaces, so
// stores and exporters can be replaced without touching the runtime.
type Executor struct {
	builder   QueryBuilder
	store     input.Module
	projector Projector
	exporter  RowExporter
	dryRun    bool

	// Source is the redacted store location, used in logs only
	Source string
}

// NewExecutorWithModules creates an executor with all collaborators configured.
//
// Parameters:
//   - builder: resolves the filter set into a query
//   - store: the record store; it is closed right after the fetch
//   - projector: narrows records to the selected fields
//   - exporter: writes rows (may be nil in dry-run mode)
//   - dryRun: if true, rows are counted but nothing is written
func NewExecutorWithModules(builder QueryBuilder, store input.Module, projector Projector, exporter RowExporter, dryRun bool) *Executor {
	return &Executor{
		builder:   builder,
		store:     store,
		projector: projector,
		exporter:  exporter,
		dryRun:    dryRun,
	}
}

// Execute runs the export described by fs.
//
// Resource Management:
//   - The store is closed once the fetch has finished (even on error),
//     before projection and export begin. Fetched records remain in memory.
//
// Returns both result and error; the error keeps its category so the caller
// can map it to an exit code.
func (e *Executor) Execute(ctx context.Context, exportID string, fs *criteria.FilterSet) (*payment.ExportResult, error) {
	startedAt := time.Now()
	result := &payment.ExportResult{
		ExportID:  exportID,
		Status:    StatusError,
		StartedAt: startedAt,
	}

	exportCtx := logger.ExportContext{ExportID: exportID, Source: e.Source}
	if fs != nil {
		exportCtx.Destination = fs.Destination.String()
		exportCtx.Format = string(fs.Format)
		result.Destination = fs.Destination.String()
	}
	logger.LogExportStart(exportCtx)

	if e.store != nil {
		defer e.closeStore(exportCtx)
	}

	if err := e.validateExecution(fs); err != nil {
		setError(result, "", ErrCodeInvalidInput, err)
		logger.LogExportEnd(exportCtx, StatusError, 0, time.Since(startedAt))
		return result, err
	}

	q, err := e.executeBuild(exportCtx, fs, result)
	if err != nil {
		logger.LogExportEnd(exportCtx, StatusError, 0, time.Since(startedAt))
		return result, err
	}

	records, err := e.executeFetch(ctx, exportCtx, q, result)
	e.closeStore(exportCtx)
	if err != nil {
		logger.LogExportEnd(exportCtx, StatusError, 0, time.Since(startedAt))
		return result, err
	}

	rows, err := e.executeProject(ctx, exportCtx, records, fs.Fields, result)
	if err != nil {
		logger.LogExportEnd(exportCtx, StatusError, 0, time.Since(startedAt))
		return result, err
	}

	if e.dryRun {
		logger.WithExport(exportCtx).Debug("dry-run mode: skipping export",
			"records_would_export", len(rows),
		)
		result.Status = StatusDryRun
		result.RecordsExported = len(rows)
		result.CompletedAt = time.Now()
		logger.LogExportEnd(exportCtx, StatusDryRun, len(rows), time.Since(startedAt))
		return result, nil
	}

	exported, err := e.executeExport(exportCtx, rows, fs, result)
	if err != nil {
		logger.LogExportEnd(exportCtx, StatusError, exported, time.Since(startedAt))
		return result, err
	}

	result.Status = StatusSuccess
	result.RecordsExported = exported
	result.CompletedAt = time.Now()
	result.Error = nil
	logger.LogExportEnd(exportCtx, StatusSuccess, exported, time.Since(startedAt))
	return result, nil
}

// validateExecution checks the executor and its input before any stage runs.
func (e *Executor) validateExecution(fs *criteria.FilterSet) error {
	switch {
	case fs == nil:
		return ErrNilFilterSet
	case e.store == nil:
		return ErrNilStore
	case e.exporter == nil && !e.dryRun:
		return ErrNilExporter
	case e.builder == nil || e.projector == nil:
		return fmt.Errorf("executor is missing its query builder or projector")
	}
	return nil
}

// executeBuild resolves the filter set into a query.
func (e *Executor) executeBuild(exportCtx logger.ExportContext, fs *criteria.FilterSet, result *payment.ExportResult) (payment.Query, error) {
	stageCtx := exportCtx
	stageCtx.Stage = StageBuild
	logger.LogStageStart(stageCtx)

	startTime := time.Now()
	q, err := e.builder.Build(fs)
	duration := time.Since(startTime)
	if err != nil {
		stageFailed(stageCtx, result, ErrCodeBuildFailed, 0, duration, err)
		return payment.Query{}, err
	}

	logger.Debug("query built",
		"export_id", exportCtx.ExportID,
		"start", q.Start.Format(payment.DateLayout),
		"open_end", q.End == nil,
		"status_count", len(q.Statuses),
		"product_count", len(q.Products),
	)
	logger.LogStageEnd(stageCtx, 0, duration)
	return q, nil
}

// executeFetch runs the single bulk fetch against the store.
func (e *Executor) executeFetch(ctx context.Context, exportCtx logger.ExportContext, q payment.Query, result *payment.ExportResult) ([]payment.Record, error) {
	stageCtx := exportCtx
	stageCtx.Stage = StageFetch
	logger.LogStageStart(stageCtx)

	startTime := time.Now()
	records, err := e.store.Fetch(ctx, q)
	duration := time.Since(startTime)
	if err != nil {
		stageFailed(stageCtx, result, ErrCodeFetchFailed, 0, duration, err)
		return nil, err
	}

	result.RecordsFetched = len(records)
	logger.LogStageEnd(stageCtx, len(records), duration)
	return records, nil
}

// executeProject narrows records to the selected fields.
func (e *Executor) executeProject(ctx context.Context, exportCtx logger.ExportContext, records []payment.Record, fields []string, result *payment.ExportResult) ([]payment.Row, error) {
	stageCtx := exportCtx
	stageCtx.Stage = StageProject
	logger.LogStageStart(stageCtx)

	startTime := time.Now()
	rows, err := e.projector.ProjectAll(ctx, records, fields)
	duration := time.Since(startTime)
	if err != nil {
		stageFailed(stageCtx, result, ErrCodeProjectFailed, len(records), duration, err)
		return nil, err
	}

	logger.LogStageEnd(stageCtx, len(rows), duration)
	return rows, nil
}

// executeExport writes the rows and the summary line.
func (e *Executor) executeExport(exportCtx logger.ExportContext, rows []payment.Row, fs *criteria.FilterSet, result *payment.ExportResult) (int, error) {
	stageCtx := exportCtx
	stageCtx.Stage = StageExport
	logger.LogStageStart(stageCtx)

	startTime := time.Now()
	exported, err := e.exporter.Export(rows, e.projector.Columns(fs.Fields), fs.Format, fs.Destination)
	duration := time.Since(startTime)
	if err != nil {
		stageFailed(stageCtx, result, ErrCodeExportFailed, len(rows), duration, err)
		return exported, err
	}

	logger.LogStageEnd(stageCtx, exported, duration)
	return exported, nil
}

// closeStore closes the store once and logs any error.
func (e *Executor) closeStore(exportCtx logger.ExportContext) {
	if e.store == nil {
		return
	}
	if err := e.store.Close(); err != nil {
		logger.WithExport(exportCtx).Warn("failed to close record store", "error", err.Error())
	}
	e.store = nil
}

// stageFailed records the failure on the result and logs it with its error chain.
func stageFailed(stageCtx logger.ExportContext, result *payment.ExportResult, code string, recordCount int, duration time.Duration, err error) {
	setError(result, stageCtx.Stage, code, err)
	logger.LogError("stage failed", logger.ErrorContext{
		ExportID:     stageCtx.ExportID,
		Stage:        stageCtx.Stage,
		ErrorCode:    code,
		ErrorMessage: err.Error(),
		Err:          err,
		RecordCount:  recordCount,
		Duration:     duration,
		Extra:        map[string]interface{}{"error_category": result.Error.Category},
	})
}

// setError fills result.Error with the classified failure.
func setError(result *payment.ExportResult, stage, code string, err error) {
	result.Status = StatusError
	result.CompletedAt = time.Now()
	result.Error = &payment.ExportError{
		Code:     code,
		Message:  err.Error(),
		Stage:    stage,
		Category: string(errhandling.GetErrorCategory(err)),
	}
}
