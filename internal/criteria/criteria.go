// Package criteria parses raw export flags into a validated filter set.
//
// Every value with more than one shape (date selection, customer identity)
// is a small sum type: an interface with an unexported marker method and one
// struct per case, so consumers switch over all cases explicitly.
package criteria

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/payexport/cli/internal/period"
	"github.com/payexport/cli/pkg/payment"
)

// Flag names, as spelled on the command line.
const (
	FlagStartDate      = "start-date"
	FlagEndDate        = "end-date"
	FlagLastDays       = "last-days"
	FlagFormat         = "format"
	FlagFields         = "fields"
	FlagOutput         = "output"
	FlagFile           = "file"
	FlagAmountFilter   = "amount-filter"
	FlagStatusFilter   = "status-filter"
	FlagCustomerFilter = "customer-filter"
	FlagProductFilter  = "product-filter"
)

// RawArgs holds the flag values exactly as supplied.
type RawArgs struct {
	StartDate      string
	EndDate        string
	LastDays       string
	Format         string
	Fields         string
	Output         string
	File           string
	AmountFilter   string
	StatusFilter   string
	CustomerFilter string
	ProductFilter  string

	// Changed holds the names of flags given on the command line, so that an
	// explicitly empty value (--status-filter=) is told apart from an absent one.
	Changed map[string]bool
}

// given reports whether a flag was supplied, empty or not.
func (r RawArgs) given(flag, value string) bool {
	return value != "" || r.Changed[flag]
}

// DateSelector selects records by date. Nil means no date criteria.
// Implemented by ExplicitRange, DaysWindow and PeriodWindow.
type DateSelector interface {
	isDateSelector()
}

// ExplicitRange is an inclusive date range; either bound may be absent.
type ExplicitRange struct {
	Start *time.Time
	End   *time.Time
}

// DaysWindow covers the last Days days up to and including today.
type DaysWindow struct {
	Days int
}

// PeriodWindow is a named relative period such as last_month.
type PeriodWindow struct {
	Period period.Name
}

func (ExplicitRange) isDateSelector() {}
func (DaysWindow) isDateSelector()    {}
func (PeriodWindow) isDateSelector()  {}

// CustomerIdentity selects one customer. Nil means any customer.
// Implemented by CustomerByID and CustomerByEmail.
type CustomerIdentity interface {
	isCustomerIdentity()
}

// CustomerByID selects a customer by numeric identifier.
type CustomerByID struct {
	ID int64
}

// CustomerByEmail selects a customer by email address.
type CustomerByEmail struct {
	Email string
}

func (CustomerByID) isCustomerIdentity()    {}
func (CustomerByEmail) isCustomerIdentity() {}

// AmountFilter compares the payment total against a value.
type AmountFilter struct {
	Op    payment.Comparison
	Value decimal.Decimal
}

// FilterSet is the validated representation of all criteria of one invocation.
type FilterSet struct {
	Dates    DateSelector
	Amount   *AmountFilter
	Statuses []string
	Customer CustomerIdentity
	Products []int64

	// Fields is the ordered, deduplicated field selection as requested.
	// Output order is decided by the vocabulary, not by this slice.
	Fields []string

	Format      payment.Format
	Destination payment.Destination
}
