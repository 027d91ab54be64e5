package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// Error categories for database operations
const (
	CategoryConnection = "connection"
	CategoryQuery      = "query"
	CategorySchema     = "schema"
	CategoryTimeout    = "timeout"
	CategoryCanceled   = "canceled"
	CategoryUnknown    = "unknown"
)

// DatabaseError represents a categorized database error with context.
//
//nolint:revive // DatabaseError is a clear, descriptive name that doesn't stutter in practice
type DatabaseError struct {
	Category    string // Error category (connection, query, schema, etc.)
	Operation   string // Operation that failed (connect, select, scan)
	Message     string // User-friendly error message
	Query       string // The query that caused the error (no params)
	ParamCount  int    // Number of parameters (not the values)
	Code        string // Driver error code when known (SQLSTATE or SQLite result code)
	OriginalErr error  // The underlying database error
}

func (e *DatabaseError) Error() string {
	var msg string
	if e.Query != "" {
		msg = fmt.Sprintf("database %s error in %s: %s", e.Category, e.Operation, e.Message)
	} else {
		msg = fmt.Sprintf("database %s error: %s", e.Category, e.Message)
	}
	if e.OriginalErr != nil && e.OriginalErr.Error() != e.Message {
		msg += fmt.Sprintf(" (original: %v)", e.OriginalErr)
	}
	return msg
}

func (e *DatabaseError) Unwrap() error {
	return e.OriginalErr
}

// NewDatabaseError creates a new database error with the given details.
func NewDatabaseError(category, operation, message string, originalErr error) *DatabaseError {
	return &DatabaseError{
		Category:    category,
		Operation:   operation,
		Message:     message,
		OriginalErr: originalErr,
	}
}

// NewConnectionError creates a connection error.
func NewConnectionError(message string, originalErr error) *DatabaseError {
	return NewDatabaseError(CategoryConnection, "connect", message, originalErr)
}

// NewQueryError creates a query error.
func NewQueryError(operation, message, query string, paramCount int, originalErr error) *DatabaseError {
	return &DatabaseError{
		Category:    CategoryQuery,
		Operation:   operation,
		Message:     message,
		Query:       sanitizeQuery(query),
		ParamCount:  paramCount,
		OriginalErr: originalErr,
	}
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(operation, message string, originalErr error) *DatabaseError {
	return NewDatabaseError(CategoryTimeout, operation, message, originalErr)
}

// ClassifyDatabaseError classifies a raw database error into a DatabaseError.
// Typed driver errors (pgconn.PgError, sqlite3.Error) are inspected first;
// otherwise the message is matched against known indicators.
func ClassifyDatabaseError(err error, driver, operation, query string, paramCount int) *DatabaseError {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return NewDatabaseError(CategoryCanceled, operation, "operation canceled", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(operation, "operation timed out", err)
	}

	if dbErr := classifyTyped(err, operation, query, paramCount); dbErr != nil {
		return dbErr
	}

	errMsgLower := strings.ToLower(err.Error())

	if isTimeoutError(errMsgLower) {
		return NewTimeoutError(operation, "operation timed out", err)
	}

	if isConnectionError(errMsgLower, driver) {
		return NewConnectionError("connection failed or lost", err)
	}

	if isSchemaError(errMsgLower, driver) {
		dbErr := NewQueryError(operation, "payments schema not found or incomplete", query, paramCount, err)
		dbErr.Category = CategorySchema
		return dbErr
	}

	if isSyntaxError(errMsgLower, driver) {
		return NewQueryError(operation, "SQL syntax error", query, paramCount, err)
	}

	return NewQueryError(operation, err.Error(), query, paramCount, err)
}

// classifyTyped maps driver error codes. Returns nil when err carries no known code.
func classifyTyped(err error, operation, query string, paramCount int) *DatabaseError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		var dbErr *DatabaseError
		switch {
		case strings.HasPrefix(pgErr.Code, "08"), strings.HasPrefix(pgErr.Code, "28"), pgErr.Code == "3D000":
			// connection exception, invalid authorization, unknown database
			dbErr = NewConnectionError(pgErr.Message, err)
		case pgErr.Code == "42P01", pgErr.Code == "42703":
			// undefined_table, undefined_column
			dbErr = NewQueryError(operation, pgErr.Message, query, paramCount, err)
			dbErr.Category = CategorySchema
		case pgErr.Code == "57014":
			// query_canceled (statement_timeout)
			dbErr = NewTimeoutError(operation, pgErr.Message, err)
		case pgErr.Code == "42601":
			dbErr = NewQueryError(operation, "SQL syntax error", query, paramCount, err)
		default:
			dbErr = NewQueryError(operation, pgErr.Message, query, paramCount, err)
		}
		dbErr.Code = pgErr.Code
		return dbErr
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		var dbErr *DatabaseError
		switch liteErr.Code {
		case sqlite3.ErrCantOpen, sqlite3.ErrNotADB, sqlite3.ErrPerm, sqlite3.ErrAuth:
			dbErr = NewConnectionError(liteErr.Error(), err)
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			dbErr = NewTimeoutError(operation, "database is locked", err)
		default:
			return nil
		}
		dbErr.Code = fmt.Sprintf("%d", int(liteErr.Code))
		return dbErr
	}

	return nil
}

// isTimeoutError checks if the error is a timeout error.
func isTimeoutError(errMsg string) bool {
	timeoutIndicators := []string{
		"timeout",
		"timed out",
		"deadline exceeded",
		"context deadline",
		"canceling statement due to statement timeout",
	}

	for _, indicator := range timeoutIndicators {
		if strings.Contains(errMsg, indicator) {
			return true
		}
	}
	return false
}

// isConnectionError checks if the error is a connection error.
func isConnectionError(errMsg string, driver string) bool {
	connectionIndicators := []string{
		"connection refused",
		"connection reset",
		"no such host",
		"network is unreachable",
		"connection closed",
		"broken pipe",
		"bad connection",
		"invalid connection",
		"unexpected eof",
		"server closed",
		"dial tcp",
		"connect: ",
		"cannot assign requested address",
		"too many open files",
		"password authentication failed",
	}

	for _, indicator := range connectionIndicators {
		if strings.Contains(errMsg, indicator) {
			return true
		}
	}

	if driver == DriverSQLite {
		return strings.Contains(errMsg, "unable to open database file") ||
			strings.Contains(errMsg, "file is not a database")
	}

	return false
}

// isSchemaError checks if the query referenced a missing table or column.
func isSchemaError(errMsg string, driver string) bool {
	switch driver {
	case DriverPostgres:
		if strings.Contains(errMsg, "42p01") || strings.Contains(errMsg, "42703") {
			return true
		}
		return strings.Contains(errMsg, "does not exist") &&
			(strings.Contains(errMsg, "relation") || strings.Contains(errMsg, "column"))
	case DriverSQLite:
		return strings.Contains(errMsg, "no such table") || strings.Contains(errMsg, "no such column")
	}
	return false
}

// isSyntaxError checks if the error is a SQL syntax error.
func isSyntaxError(errMsg string, driver string) bool {
	commonIndicators := []string{
		"syntax error",
		"parse error",
		"near \"",
		"at or near",
	}

	for _, indicator := range commonIndicators {
		if strings.Contains(errMsg, indicator) {
			return true
		}
	}

	if driver == DriverPostgres && strings.Contains(errMsg, "42601") {
		return true
	}

	return false
}

// sanitizeQuery truncates very long queries. Parameter values are never part
// of the query text, since every value is bound.
func sanitizeQuery(query string) string {
	if len(query) > 500 {
		return query[:500] + "... (truncated)"
	}
	return query
}

// GetDatabaseError extracts the DatabaseError from an error chain.
func GetDatabaseError(err error) *DatabaseError {
	var dbErr *DatabaseError
	if errors.As(err, &dbErr) {
		return dbErr
	}
	return nil
}
