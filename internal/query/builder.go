// Package query composes a validated filter set into a store-agnostic
// payment.Query. Building is pure: no I/O, and the clock is injected.
package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/payexport/cli/internal/criteria"
	"github.com/payexport/cli/internal/errhandling"
	"github.com/payexport/cli/internal/period"
	"github.com/payexport/cli/pkg/payment"
)

// Builder resolves relative date windows against a clock.
type Builder struct {
	// Now returns the current time; its location defines "today"
	Now func() time.Time

	// Periods resolves named periods
	Periods *period.Table
}

// NewBuilder creates a builder using the wall clock and weeks starting on Monday.
func NewBuilder() *Builder {
	return &Builder{
		Now:     time.Now,
		Periods: period.NewTable(time.Monday),
	}
}

// Build produces the query for fs. Both date bounds are always explicit:
// a missing lower bound becomes payment.MinDate and is never left for the
// store to infer. The end stays nil only when the range is open-ended.
func (b *Builder) Build(fs *criteria.FilterSet) (payment.Query, error) {
	q := payment.Query{
		Start:    payment.MinDate,
		PageSize: payment.Unbounded,
	}

	if err := b.resolveDates(fs.Dates, &q); err != nil {
		return payment.Query{}, err
	}

	if fs.Amount != nil {
		q.Amount = &payment.AmountPredicate{Op: fs.Amount.Op, Value: fs.Amount.Value}
	}

	if len(fs.Statuses) > 0 {
		q.Statuses = append([]string(nil), fs.Statuses...)
	}

	switch c := fs.Customer.(type) {
	case nil:
	case criteria.CustomerByID:
		id := c.ID
		q.Customer = &payment.CustomerPredicate{ID: &id}
	case criteria.CustomerByEmail:
		q.Customer = &payment.CustomerPredicate{Email: c.Email}
	default:
		return payment.Query{}, fmt.Errorf("unsupported customer identity %T", c)
	}

	if len(fs.Products) > 0 {
		q.Products = append([]int64(nil), fs.Products...)
	}

	return q, nil
}

func (b *Builder) resolveDates(sel criteria.DateSelector, q *payment.Query) error {
	switch d := sel.(type) {
	case nil:
		// no date criteria: everything since MinDate, open end

	case criteria.ExplicitRange:
		if d.Start != nil {
			q.Start = *d.Start
		}
		if d.End != nil {
			end := *d.End
			q.End = &end
		}

	case criteria.DaysWindow:
		today := period.Midnight(b.Now())
		q.Start = today.AddDate(0, 0, -d.Days)
		q.End = &today

	case criteria.PeriodWindow:
		r, err := b.Periods.Resolve(d.Period, b.Now())
		if err != nil {
			// a vocabulary may list a period the table cannot compute
			return errhandling.NewValidationError(criteria.FlagLastDays, string(d.Period),
				err.Error(), "a number of days or one of "+joinNames(b.Periods.Names()))
		}
		q.Start = r.Start
		q.End = r.End

	default:
		return fmt.Errorf("unsupported date selector %T", d)
	}
	return nil
}

func joinNames(names []period.Name) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}
