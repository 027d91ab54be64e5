// Package period resolves named relative date periods ("last_month",
// "this_quarter", ...) into concrete date ranges.
//
// Periods that are still running (today, this_week, this_month, this_quarter,
// this_year) resolve with an open end: records dated later in the period are
// included as they appear. Periods that are over resolve with a closed end.
package period

import (
	"fmt"
	"strings"
	"time"
)

// Name is a named period token.
type Name string

// Known named periods.
const (
	Today       Name = "today"
	Yesterday   Name = "yesterday"
	ThisWeek    Name = "this_week"
	LastWeek    Name = "last_week"
	ThisMonth   Name = "this_month"
	LastMonth   Name = "last_month"
	ThisQuarter Name = "this_quarter"
	LastQuarter Name = "last_quarter"
	ThisYear    Name = "this_year"
	LastYear    Name = "last_year"
)

// Range is a resolved date range. Dates are midnight in the clock's location.
// End is inclusive; nil means open-ended.
type Range struct {
	Start time.Time
	End   *time.Time
}

// resolver computes a range from today's date (midnight).
type resolver func(today time.Time) Range

// Table maps period names to resolvers.
type Table struct {
	// WeekStart is the first day of a week
	WeekStart time.Weekday

	resolvers map[Name]resolver
}

// NewTable returns the standard period table with weeks starting on weekStart.
func NewTable(weekStart time.Weekday) *Table {
	t := &Table{WeekStart: weekStart}
	t.resolvers = map[Name]resolver{
		Today: func(today time.Time) Range {
			return Range{Start: today}
		},
		Yesterday: func(today time.Time) Range {
			y := today.AddDate(0, 0, -1)
			return closed(y, y)
		},
		ThisWeek: func(today time.Time) Range {
			return Range{Start: t.weekStart(today)}
		},
		LastWeek: func(today time.Time) Range {
			start := t.weekStart(today).AddDate(0, 0, -7)
			return closed(start, start.AddDate(0, 0, 6))
		},
		ThisMonth: func(today time.Time) Range {
			return Range{Start: monthStart(today)}
		},
		LastMonth: func(today time.Time) Range {
			start := monthStart(today).AddDate(0, -1, 0)
			return closed(start, monthStart(today).AddDate(0, 0, -1))
		},
		ThisQuarter: func(today time.Time) Range {
			return Range{Start: quarterStart(today)}
		},
		LastQuarter: func(today time.Time) Range {
			start := quarterStart(today).AddDate(0, -3, 0)
			return closed(start, quarterStart(today).AddDate(0, 0, -1))
		},
		ThisYear: func(today time.Time) Range {
			return Range{Start: time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location())}
		},
		LastYear: func(today time.Time) Range {
			y := today.Year() - 1
			return closed(
				time.Date(y, time.January, 1, 0, 0, 0, 0, today.Location()),
				time.Date(y, time.December, 31, 0, 0, 0, 0, today.Location()),
			)
		},
	}
	return t
}

// Names returns all names known to the table.
func (t *Table) Names() []Name {
	return []Name{Today, Yesterday, ThisWeek, LastWeek, ThisMonth, LastMonth, ThisQuarter, LastQuarter, ThisYear, LastYear}
}

// Resolve computes the range of a named period relative to now.
func (t *Table) Resolve(name Name, now time.Time) (Range, error) {
	r, ok := t.resolvers[name]
	if !ok {
		return Range{}, fmt.Errorf("unknown period %q", name)
	}
	return r(Midnight(now)), nil
}

// Normalize canonicalizes a raw period token: lowercased, hyphens and
// spaces mapped to underscores ("Last-Month" -> "last_month").
func Normalize(raw string) Name {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	return Name(s)
}

// Midnight truncates t to the start of its day in its own location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (t *Table) weekStart(today time.Time) time.Time {
	offset := (int(today.Weekday()) - int(t.WeekStart) + 7) % 7
	return today.AddDate(0, 0, -offset)
}

func monthStart(today time.Time) time.Time {
	return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
}

func quarterStart(today time.Time) time.Time {
	firstMonth := time.Month((int(today.Month())-1)/3*3 + 1)
	return time.Date(today.Year(), firstMonth, 1, 0, 0, 0, 0, today.Location())
}

func closed(start, end time.Time) Range {
	return Range{Start: start, End: &end}
}
