package query

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/payexport/cli/internal/config"
	"github.com/payexport/cli/internal/criteria"
	"github.com/payexport/cli/internal/errhandling"
	"github.com/payexport/cli/internal/period"
	"github.com/payexport/cli/pkg/payment"
)

func fixedBuilder() *Builder {
	return &Builder{
		Now: func() time.Time {
			return time.Date(2023, time.November, 15, 10, 30, 0, 0, time.UTC)
		},
		Periods: period.NewTable(time.Monday),
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBuild_Dates(t *testing.T) {
	start := day(2023, 11, 1)
	end := day(2023, 11, 30)

	tests := []struct {
		name      string
		dates     criteria.DateSelector
		wantStart time.Time
		wantEnd   *time.Time
	}{
		{"no criteria", nil, payment.MinDate, nil},
		{"explicit range", criteria.ExplicitRange{Start: &start, End: &end}, start, &end},
		{"start only", criteria.ExplicitRange{Start: &start}, start, nil},
		{"end only gets explicit min start", criteria.ExplicitRange{End: &end}, payment.MinDate, &end},
		{"days window closes at today", criteria.DaysWindow{Days: 7}, day(2023, 11, 8), ptr(day(2023, 11, 15))},
		{"past period closed", criteria.PeriodWindow{Period: period.LastMonth}, day(2023, 10, 1), ptr(day(2023, 10, 31))},
		{"current period open", criteria.PeriodWindow{Period: period.ThisMonth}, day(2023, 11, 1), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := fixedBuilder().Build(&criteria.FilterSet{Dates: tt.dates})
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if !q.Start.Equal(tt.wantStart) {
				t.Errorf("Start = %v, want %v", q.Start, tt.wantStart)
			}
			if (q.End == nil) != (tt.wantEnd == nil) {
				t.Fatalf("End = %v, want %v", q.End, tt.wantEnd)
			}
			if q.End != nil && !q.End.Equal(*tt.wantEnd) {
				t.Errorf("End = %v, want %v", *q.End, *tt.wantEnd)
			}
			if q.PageSize != payment.Unbounded {
				t.Errorf("PageSize = %d, want Unbounded", q.PageSize)
			}
		})
	}
}

func TestBuild_Deterministic(t *testing.T) {
	fs := &criteria.FilterSet{Dates: criteria.DaysWindow{Days: 30}, Statuses: []string{"complete"}}
	b := fixedBuilder()

	q1, _ := b.Build(fs)
	q2, _ := b.Build(fs)
	if !q1.Start.Equal(q2.Start) || !q1.End.Equal(*q2.End) {
		t.Errorf("Build() not deterministic: %v vs %v", q1, q2)
	}

	// the query must not alias the filter set
	q1.Statuses[0] = "changed"
	if fs.Statuses[0] != "complete" {
		t.Error("query shares status slice with filter set")
	}
}

func TestBuild_Customer(t *testing.T) {
	b := fixedBuilder()

	q, err := b.Build(&criteria.FilterSet{Customer: criteria.CustomerByID{ID: 42}})
	if err != nil {
		t.Fatal(err)
	}
	if q.Customer == nil || q.Customer.ID == nil || *q.Customer.ID != 42 || q.Customer.Email != "" {
		t.Errorf("Customer = %+v, want id 42", q.Customer)
	}

	q, err = b.Build(&criteria.FilterSet{Customer: criteria.CustomerByEmail{Email: "a@example.com"}})
	if err != nil {
		t.Fatal(err)
	}
	if q.Customer == nil || q.Customer.ID != nil || q.Customer.Email != "a@example.com" {
		t.Errorf("Customer = %+v, want email", q.Customer)
	}

	q, _ = b.Build(&criteria.FilterSet{})
	if q.Customer != nil {
		t.Errorf("Customer = %+v, want nil", q.Customer)
	}
}

// Amount and status predicates combine; a pending record is excluded even
// when its amount qualifies.
func TestBuild_AmountAndStatuses(t *testing.T) {
	vocab := config.Default()
	fs, err := criteria.Parse(criteria.RawArgs{
		AmountFilter: "> $100",
		StatusFilter: "complete,refunded",
	}, vocab)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	q, err := fixedBuilder().Build(fs)
	if err != nil {
		t.Fatal(err)
	}

	if q.Amount == nil || q.Amount.Op != payment.GreaterThan || !q.Amount.Value.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("Amount = %+v, want > 100", q.Amount)
	}
	if len(q.Statuses) != 2 || q.Statuses[0] != "complete" || q.Statuses[1] != "refunded" {
		t.Fatalf("Statuses = %v, want [complete refunded]", q.Statuses)
	}

	pending := payment.Record{Status: "pending", Total: decimal.NewFromInt(500)}
	if matchesStatus(q, pending) && q.Amount.Matches(pending.Total) {
		t.Error("pending record with qualifying amount must be excluded")
	}
	complete := payment.Record{Status: "complete", Total: decimal.NewFromInt(500)}
	if !matchesStatus(q, complete) || !q.Amount.Matches(complete.Total) {
		t.Error("complete record over 100 must be included")
	}
}

func TestBuild_Products(t *testing.T) {
	q, err := fixedBuilder().Build(&criteria.FilterSet{Products: []int64{3, 9}})
	if err != nil {
		t.Fatal(err)
	}
	if len(q.Products) != 2 || q.Products[0] != 3 || q.Products[1] != 9 {
		t.Errorf("Products = %v", q.Products)
	}
}

func TestBuild_UnknownPeriod(t *testing.T) {
	_, err := fixedBuilder().Build(&criteria.FilterSet{Dates: criteria.PeriodWindow{Period: "next_decade"}})
	if !errhandling.IsValidation(err) {
		t.Errorf("error = %v, want validation error", err)
	}
}

func matchesStatus(q payment.Query, r payment.Record) bool {
	if len(q.Statuses) == 0 {
		return true
	}
	for _, s := range q.Statuses {
		if s == r.Status {
			return true
		}
	}
	return false
}

func ptr(t time.Time) *time.Time { return &t }
