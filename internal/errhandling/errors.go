// Package errhandling provides error types and classification for the export pipeline.
// This file defines error categories, the three concrete error types reported to
// the operator, and helpers mapping any error to a category and exit code.
//
// No error in the pipeline is retried: every error is reported once and the
// invocation terminates.
package errhandling

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorCategory represents the type/category of an error.
type ErrorCategory string

// Error categories for classification.
const (
	// CategoryValidation represents a malformed or contradictory flag.
	// Validation errors abort before any store access.
	CategoryValidation ErrorCategory = "validation"

	// CategoryStore represents an unavailable record source or a rejected query.
	CategoryStore ErrorCategory = "store"

	// CategoryFileSystem represents a missing writable directory, a declined
	// confirmation, or a failed write.
	CategoryFileSystem ErrorCategory = "filesystem"

	// CategoryCanceled represents an invocation interrupted by the operator.
	CategoryCanceled ErrorCategory = "canceled"

	// CategoryUnknown represents unclassified errors.
	CategoryUnknown ErrorCategory = "unknown"
)

// Process exit codes per category.
const (
	ExitSuccess         = 0
	ExitValidationError = 1
	ExitStoreError      = 2
	ExitFileSystemError = 3
	ExitRuntimeError    = 4
)

// ValidationError reports a flag whose value is malformed or contradicts another flag.
type ValidationError struct {
	// Flag is the offending flag name without dashes (e.g. "amount-filter")
	Flag string

	// Value is the raw value supplied by the operator
	Value string

	// Expected describes the accepted form (optional)
	Expected string

	// Message is the human-readable error message
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var sb strings.Builder
	if e.Flag != "" {
		sb.WriteString("--")
		sb.WriteString(e.Flag)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	if e.Value != "" {
		sb.WriteString(fmt.Sprintf(" (got %q)", e.Value))
	}
	if e.Expected != "" {
		sb.WriteString("; expected ")
		sb.WriteString(e.Expected)
	}
	return sb.String()
}

// Category returns CategoryValidation.
func (e *ValidationError) Category() ErrorCategory { return CategoryValidation }

// NewValidationError creates a ValidationError for a flag.
func NewValidationError(flag, value, message, expected string) *ValidationError {
	return &ValidationError{
		Flag:     flag,
		Value:    value,
		Expected: expected,
		Message:  message,
	}
}

// StoreError reports that the record store is unavailable or rejected the query.
type StoreError struct {
	// Source is the redacted store location (scheme and host/path, no credentials)
	Source string

	// Operation that failed (connect, fetch, scan)
	Operation string

	// Message is the human-readable error message
	Message string

	// OriginalErr is the underlying error
	OriginalErr error
}

// Error implements the error interface. The underlying error is surfaced verbatim.
func (e *StoreError) Error() string {
	msg := fmt.Sprintf("record store %s failed: %s", e.Operation, e.Message)
	if e.Source != "" {
		msg = fmt.Sprintf("record store %s failed (%s): %s", e.Operation, e.Source, e.Message)
	}
	if e.OriginalErr != nil && e.OriginalErr.Error() != e.Message {
		msg += fmt.Sprintf(": %v", e.OriginalErr)
	}
	return msg
}

// Unwrap returns the original error for use with errors.Is and errors.As.
func (e *StoreError) Unwrap() error { return e.OriginalErr }

// Category returns CategoryStore.
func (e *StoreError) Category() ErrorCategory { return CategoryStore }

// NewStoreError creates a StoreError.
func NewStoreError(source, operation, message string, originalErr error) *StoreError {
	return &StoreError{
		Source:      source,
		Operation:   operation,
		Message:     message,
		OriginalErr: originalErr,
	}
}

// FileSystemError reports a failure preparing or writing the export file.
type FileSystemError struct {
	// Path is the file or directory involved
	Path string

	// Operation that failed (confirm, access, mkdir, write)
	Operation string

	// Message is the human-readable error message
	Message string

	// OriginalErr is the underlying error
	OriginalErr error
}

// Error implements the error interface.
func (e *FileSystemError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Operation, e.Path, e.Message)
	if e.OriginalErr != nil {
		msg += fmt.Sprintf(": %v", e.OriginalErr)
	}
	return msg
}

// Unwrap returns the original error for use with errors.Is and errors.As.
func (e *FileSystemError) Unwrap() error { return e.OriginalErr }

// Category returns CategoryFileSystem.
func (e *FileSystemError) Category() ErrorCategory { return CategoryFileSystem }

// NewFileSystemError creates a FileSystemError.
func NewFileSystemError(path, operation, message string, originalErr error) *FileSystemError {
	return &FileSystemError{
		Path:        path,
		Operation:   operation,
		Message:     message,
		OriginalErr: originalErr,
	}
}

// categorized is implemented by all error types of this package.
type categorized interface {
	error
	Category() ErrorCategory
}

// GetErrorCategory returns the error category for a given error.
// Returns CategoryUnknown for nil or unclassified errors.
func GetErrorCategory(err error) ErrorCategory {
	if err == nil {
		return CategoryUnknown
	}

	var c categorized
	if errors.As(err, &c) {
		return c.Category()
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CategoryCanceled
	}

	return CategoryUnknown
}

// IsValidation returns true if err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// ExitCode maps an error to the process exit code.
// A nil error maps to ExitSuccess.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch GetErrorCategory(err) {
	case CategoryValidation:
		return ExitValidationError
	case CategoryStore:
		return ExitStoreError
	case CategoryFileSystem:
		return ExitFileSystemError
	default:
		return ExitRuntimeError
	}
}
