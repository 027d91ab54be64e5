// Package payment provides public types shared by the export pipeline:
// payment records read from a store, the store-agnostic query that selects
// them, and the projected rows that are written out.
//
// This package is intended to be importable by external projects that
// implement their own record store for payexport.
package payment

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Unbounded is the page size requesting the complete matching result set.
const Unbounded = -1

// DateLayout is the layout of date-only values (filters and query bounds).
const DateLayout = "2006-01-02"

// TimestampLayout is the layout used when a record date is exported.
const TimestampLayout = "2006-01-02 15:04:05"

// MinDate is the explicit lower bound used when no start date was requested.
// Stores must never infer a start date of their own.
var MinDate = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// Record is a read-only payment entry owned by the record store.
type Record struct {
	// ID is the payment identifier
	ID int64 `json:"id" yaml:"id"`

	// CustomerID identifies the paying customer
	CustomerID int64 `json:"customerId" yaml:"customerId"`

	// Date is when the payment was created
	Date time.Time `json:"date" yaml:"date"`

	// Status is a token from the host's payment-status vocabulary
	Status string `json:"status" yaml:"status"`

	// Total is the payment total amount
	Total decimal.Decimal `json:"total" yaml:"total"`

	// Gateway is the payment gateway name (e.g. "stripe", "paypal")
	Gateway string `json:"gateway" yaml:"gateway"`

	CustomerName string `json:"customerName,omitempty" yaml:"customerName"`
	Note         string `json:"note,omitempty" yaml:"note"`
	Address      string `json:"address,omitempty" yaml:"address"`
	Email        string `json:"email,omitempty" yaml:"email"`
	Phone        string `json:"phone,omitempty" yaml:"phone"`

	// PriceIDs lists the product/price identifiers purchased in this payment
	PriceIDs []int64 `json:"priceIds,omitempty" yaml:"priceIds"`
}

// Comparison is the operator of an amount predicate.
type Comparison string

// Supported amount comparisons.
const (
	GreaterThan Comparison = ">"
	LessThan    Comparison = "<"
)

// AmountPredicate compares the record total against a value.
type AmountPredicate struct {
	Op    Comparison
	Value decimal.Decimal
}

// Matches reports whether total satisfies the predicate.
func (p AmountPredicate) Matches(total decimal.Decimal) bool {
	switch p.Op {
	case GreaterThan:
		return total.GreaterThan(p.Value)
	case LessThan:
		return total.LessThan(p.Value)
	default:
		return false
	}
}

// CustomerPredicate selects records of one customer.
// Exactly one of ID or Email is set.
type CustomerPredicate struct {
	ID    *int64
	Email string
}

// Query is the fully resolved, store-agnostic request built from a filter set.
// It is constructed once per invocation and consumed once by a record store.
type Query struct {
	// Start is the inclusive lower date bound. It is always set.
	Start time.Time

	// End is the inclusive upper date bound (the whole day is included).
	// Nil means the range is open-ended.
	End *time.Time

	// Amount filters on the record total (optional)
	Amount *AmountPredicate

	// Statuses restricts records to these status tokens (empty means any)
	Statuses []string

	// Customer restricts records to one customer (optional)
	Customer *CustomerPredicate

	// Products restricts records to those containing one of these price IDs
	Products []int64

	// PageSize is always Unbounded; the export fetches the full result set
	PageSize int
}

// EndExclusive returns the first instant after the inclusive end day,
// or nil when the range is open-ended.
func (q Query) EndExclusive() *time.Time {
	if q.End == nil {
		return nil
	}
	next := q.End.AddDate(0, 0, 1)
	return &next
}

// Cell is one projected field of an export row.
type Cell struct {
	Field string
	Value string
}

// Row is an ordered projection of one record, restricted to the selected
// fields and kept in canonical field order.
type Row []Cell

// Fields returns the field names of the row in order.
func (r Row) Fields() []string {
	names := make([]string, len(r))
	for i, c := range r {
		names[i] = c.Field
	}
	return names
}

// Values returns the cell values of the row in order.
func (r Row) Values() []string {
	values := make([]string, len(r))
	for i, c := range r {
		values[i] = c.Value
	}
	return values
}

// MarshalJSON encodes the row as a JSON object whose keys keep the row order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Field)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(c.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ExportResult represents the outcome of one export invocation.
type ExportResult struct {
	// ExportID uniquely identifies the invocation in logs
	ExportID string `json:"exportId"`

	// Status is the execution status ("success", "error")
	Status string `json:"status"`

	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`

	// RecordsFetched is the number of records returned by the store
	RecordsFetched int `json:"recordsFetched"`

	// RecordsExported is the number of rows written to the destination
	RecordsExported int `json:"recordsExported"`

	// Destination describes where rows were written ("console" or a file path)
	Destination string `json:"destination"`

	// Error contains error details if the export failed
	Error *ExportError `json:"error,omitempty"`
}

// ExportError contains details about an export failure.
type ExportError struct {
	// Code is the error code (e.g. FETCH_FAILED)
	Code string `json:"code"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// Stage is the pipeline stage where the error occurred
	Stage string `json:"stage,omitempty"`

	// Category is the error category (validation, store, filesystem)
	Category string `json:"category,omitempty"`
}
