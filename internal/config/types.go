// Package config provides functionality for loading and validating the
// export vocabulary: the versioned lists of exportable fields, payment
// statuses and named periods shared by filter parsing and field projection.
package config

import (
	"fmt"
	"strings"
)

// Vocabulary is the validated export vocabulary.
// It is the single source of truth for field and status names.
type Vocabulary struct {
	// Version of the vocabulary document (semantic version)
	Version string
	// Fields lists the exportable fields in canonical column order
	Fields []string
	// DefaultFields is the selection used when --fields is not given
	DefaultFields []string
	// Statuses is the host's payment-status vocabulary
	Statuses []string
	// Periods lists the accepted named periods
	Periods []string

	fieldIndex map[string]int
	statusSet  map[string]struct{}
	periodSet  map[string]struct{}
}

// HasField returns true if name is an exportable field.
func (v *Vocabulary) HasField(name string) bool {
	_, ok := v.fieldIndex[name]
	return ok
}

// FieldIndex returns the canonical position of a field, or -1 if unknown.
func (v *Vocabulary) FieldIndex(name string) int {
	if i, ok := v.fieldIndex[name]; ok {
		return i
	}
	return -1
}

// HasStatus returns true if status belongs to the status vocabulary.
func (v *Vocabulary) HasStatus(status string) bool {
	_, ok := v.statusSet[status]
	return ok
}

// HasPeriod returns true if name is an accepted named period.
func (v *Vocabulary) HasPeriod(name string) bool {
	_, ok := v.periodSet[name]
	return ok
}

// index builds the lookup tables. Called once after conversion.
func (v *Vocabulary) index() {
	v.fieldIndex = make(map[string]int, len(v.Fields))
	for i, f := range v.Fields {
		v.fieldIndex[f] = i
	}
	v.statusSet = make(map[string]struct{}, len(v.Statuses))
	for _, s := range v.Statuses {
		v.statusSet[s] = struct{}{}
	}
	v.periodSet = make(map[string]struct{}, len(v.Periods))
	for _, p := range v.Periods {
		v.periodSet[p] = struct{}{}
	}
}

// ParseError represents a parsing error with location information.
type ParseError struct {
	// Path is the file path where the error occurred
	Path string
	// Line is the line number (1-based, 0 if unknown)
	Line int
	// Message is the error message
	Message string
	// Type categorizes the error (syntax, io)
	Type string
}

// Error implements the error interface.
func (e ParseError) Error() string {
	var sb strings.Builder
	if e.Path != "" {
		sb.WriteString(e.Path)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf("line %d: ", e.Line))
	}
	sb.WriteString(e.Message)
	return sb.String()
}

// ValidationError represents a schema or semantic validation error.
type ValidationError struct {
	// Path is the JSON path where the error occurred (e.g., "/fields/1")
	Path string
	// Type is the error type (required, type, enum, unknown-field, etc.)
	Type string
	// Message is the error message
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// Result contains the combined result of parsing and validating a vocabulary file.
type Result struct {
	// Data contains the parsed document
	Data map[string]interface{}
	// ParseErrors contains parsing errors
	ParseErrors []ParseError
	// ValidationErrors contains validation errors
	ValidationErrors []ValidationError
	// FilePath is the path to the vocabulary file (empty for the embedded default)
	FilePath string
	// Format is the detected format (json, yaml)
	Format string
}

// IsValid returns true if no errors occurred.
func (r *Result) IsValid() bool {
	return len(r.ParseErrors) == 0 && len(r.ValidationErrors) == 0
}

// AllErrors returns all errors (parsing and validation) as a single slice.
func (r *Result) AllErrors() []error {
	errors := make([]error, 0, len(r.ParseErrors)+len(r.ValidationErrors))
	for _, e := range r.ParseErrors {
		errors = append(errors, e)
	}
	for _, e := range r.ValidationErrors {
		errors = append(errors, e)
	}
	return errors
}

// Parse error types.
const (
	ErrorTypeIO     = "io"
	ErrorTypeSyntax = "syntax"
)
