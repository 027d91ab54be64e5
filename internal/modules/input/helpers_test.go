package input

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/payexport/cli/internal/database"
	"github.com/payexport/cli/pkg/payment"
)

// seedRow mirrors testdata/payments.yaml so SQL and memory stores are
// checked against the same data.
type seedRow struct {
	id, customerID int64
	createdAt      time.Time
	status, total  string
	gateway, name  string
	email, note    string
	priceIDs       []int64
}

var seedRows = []seedRow{
	{1, 10, time.Date(2023, 11, 3, 10, 0, 0, 0, time.UTC), "complete", "150.00", "stripe", "Alice Martin", "alice@example.com", "", []int64{5}},
	{2, 11, time.Date(2023, 11, 10, 12, 30, 0, 0, time.UTC), "pending", "250.00", "paypal", "Bob Stone", "bob@example.com", "", []int64{5, 7}},
	{3, 10, time.Date(2023, 11, 20, 9, 15, 0, 0, time.UTC), "refunded", "80.00", "stripe", "Alice Martin", "alice@example.com", "damaged, returned", []int64{7}},
	{4, 12, time.Date(2023, 11, 30, 23, 59, 59, 0, time.UTC), "complete", "1200.50", "stripe", "Carol Diaz", "carol@example.com", "", []int64{9}},
	{5, 12, time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), "complete", "30.00", "manual", "Carol Diaz", "carol@example.com", "", nil},
}

// seedDatabase applies the schema migrations and inserts seedRows.
func seedDatabase(t *testing.T, db *sql.DB, driver string) {
	t.Helper()
	ctx := context.Background()

	if _, err := database.Migrate(ctx, db, driver); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	ph := func(n int) string { return database.FormatPlaceholder(driver, n) }
	insertPayment := fmt.Sprintf(
		"INSERT INTO payments (id, customer_id, created_at, status, total, gateway, customer_name, note, email) "+
			"VALUES (%s, %s, %s, %s, CAST(%s AS NUMERIC), %s, %s, %s, %s)",
		ph(1), ph(2), ph(3), ph(4), ph(5), ph(6), ph(7), ph(8), ph(9))
	insertItem := fmt.Sprintf("INSERT INTO payment_items (payment_id, price_id) VALUES (%s, %s)", ph(1), ph(2))

	for _, r := range seedRows {
		var note interface{}
		if r.note != "" {
			note = r.note
		}
		if _, err := db.ExecContext(ctx, insertPayment,
			r.id, r.customerID, r.createdAt, r.status, r.total, r.gateway, r.name, note, r.email); err != nil {
			t.Fatalf("inserting payment %d: %v", r.id, err)
		}
		for _, p := range r.priceIDs {
			if _, err := db.ExecContext(ctx, insertItem, r.id, p); err != nil {
				t.Fatalf("inserting item %d/%d: %v", r.id, p, err)
			}
		}
	}
}

// newSQLiteStore creates a seeded SQLite database file and a store over it.
func newSQLiteStore(t *testing.T) *DatabaseInput {
	t.Helper()
	ctx := context.Background()
	connStr := "sqlite://" + filepath.Join(t.TempDir(), "payments.db")

	db, driver, err := database.Open(ctx, database.Config{ConnectionString: connStr, CreateIfMissing: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	seedDatabase(t, db, driver)
	_ = db.Close()

	store, err := NewDatabaseInput(ctx, DatabaseInputConfig{ConnectionString: connStr})
	if err != nil {
		t.Fatalf("NewDatabaseInput() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// newInlineStore creates a memory store over records without a fixture file.
func newInlineStore(records []payment.Record) *MemoryInput {
	return &MemoryInput{path: "inline", records: append([]payment.Record(nil), records...)}
}

func ids(records []payment.Record) []int64 {
	out := make([]int64, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptrTime(t time.Time) *time.Time { return &t }

func ptrInt(v int64) *int64 { return &v }

// storeCase is one query with the seed ids it must return.
type storeCase struct {
	name  string
	query payment.Query
	want  []int64
}

// storeCases run against every store implementation.
func storeCases() []storeCase {
	base := payment.Query{Start: payment.MinDate, PageSize: payment.Unbounded}
	with := func(mod func(q *payment.Query)) payment.Query {
		q := base
		mod(&q)
		return q
	}
	return []storeCase{
		{"everything", base, []int64{1, 2, 3, 4, 5}},
		{"november inclusive end day", with(func(q *payment.Query) {
			q.Start = day(2023, 11, 1)
			q.End = ptrTime(day(2023, 11, 30))
		}), []int64{1, 2, 3, 4}},
		{"open end from nov 30", with(func(q *payment.Query) {
			q.Start = day(2023, 11, 30)
		}), []int64{4, 5}},
		{"amount over 100 and complete or refunded", with(func(q *payment.Query) {
			q.Amount = &payment.AmountPredicate{Op: payment.GreaterThan, Value: decimal.RequireFromString("100")}
			q.Statuses = []string{"complete", "refunded"}
		}), []int64{1, 4}},
		{"amount under 100", with(func(q *payment.Query) {
			q.Amount = &payment.AmountPredicate{Op: payment.LessThan, Value: decimal.RequireFromString("100")}
		}), []int64{3, 5}},
		{"customer by id", with(func(q *payment.Query) {
			q.Customer = &payment.CustomerPredicate{ID: ptrInt(10)}
		}), []int64{1, 3}},
		{"customer by email ignores case", with(func(q *payment.Query) {
			q.Customer = &payment.CustomerPredicate{Email: "CAROL@example.com"}
		}), []int64{4, 5}},
		{"products", with(func(q *payment.Query) {
			q.Products = []int64{7}
		}), []int64{2, 3}},
		{"no match", with(func(q *payment.Query) {
			q.Statuses = []string{"failed"}
		}), []int64{}},
	}
}
