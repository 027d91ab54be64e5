package input

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/payexport/cli/internal/database"
	"github.com/payexport/cli/pkg/payment"
)

// Default table names of the payments schema.
const (
	DefaultPaymentsTable = "payments"
	DefaultItemsTable    = "payment_items"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// paymentColumns are selected in the order scanRecord expects.
const paymentColumns = `p.id, p.customer_id, p.created_at, p.status, CAST(p.total AS TEXT), ` +
	`COALESCE(p.gateway, ''), COALESCE(p.customer_name, ''), COALESCE(p.note, ''), ` +
	`COALESCE(p.address, ''), COALESCE(p.email, ''), COALESCE(p.phone, '')`

// selectBuilder accumulates WHERE clauses with driver-specific placeholders.
type selectBuilder struct {
	driver  string
	clauses []string
	args    []interface{}
}

// bind appends an argument and returns its placeholder.
func (b *selectBuilder) bind(v interface{}) string {
	b.args = append(b.args, v)
	return database.FormatPlaceholder(b.driver, len(b.args))
}

func (b *selectBuilder) bindList(n int, value func(i int) interface{}) string {
	ph := make([]string, n)
	for i := 0; i < n; i++ {
		ph[i] = b.bind(value(i))
	}
	return strings.Join(ph, ", ")
}

func (b *selectBuilder) where(format string, a ...interface{}) {
	b.clauses = append(b.clauses, fmt.Sprintf(format, a...))
}

// BuildSelect compiles q into one parameterised SELECT over the payments schema.
// Every value is bound; only the validated table names are interpolated.
func BuildSelect(driver, paymentsTable, itemsTable string, q payment.Query) (string, []interface{}, error) {
	for _, name := range []string{paymentsTable, itemsTable} {
		if !identifierPattern.MatchString(name) {
			return "", nil, fmt.Errorf("invalid table name %q", name)
		}
	}

	b := &selectBuilder{driver: driver}

	if driver == database.DriverSQLite {
		// SQLite keeps timestamps as text in whatever form the writer chose;
		// datetime() normalises both sides before comparing.
		b.where("datetime(p.created_at) >= datetime(%s)", b.bind(q.Start.UTC().Format(payment.TimestampLayout)))
		if end := q.EndExclusive(); end != nil {
			b.where("datetime(p.created_at) < datetime(%s)", b.bind(end.UTC().Format(payment.TimestampLayout)))
		}
	} else {
		b.where("p.created_at >= %s", b.bind(q.Start.UTC()))
		if end := q.EndExclusive(); end != nil {
			b.where("p.created_at < %s", b.bind(end.UTC()))
		}
	}

	if q.Amount != nil {
		op := ">"
		if q.Amount.Op == payment.LessThan {
			op = "<"
		}
		// the total is compared as an exact decimal string cast to NUMERIC
		b.where("p.total %s CAST(%s AS NUMERIC)", op, b.bind(q.Amount.Value.String()))
	}

	if len(q.Statuses) > 0 {
		b.where("p.status IN (%s)", b.bindList(len(q.Statuses), func(i int) interface{} { return q.Statuses[i] }))
	}

	if c := q.Customer; c != nil {
		switch {
		case c.ID != nil:
			b.where("p.customer_id = %s", b.bind(*c.ID))
		case c.Email != "":
			b.where("LOWER(p.email) = LOWER(%s)", b.bind(c.Email))
		}
	}

	if len(q.Products) > 0 {
		b.where("EXISTS (SELECT 1 FROM %s i WHERE i.payment_id = p.id AND i.price_id IN (%s))",
			itemsTable, b.bindList(len(q.Products), func(i int) interface{} { return q.Products[i] }))
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(paymentColumns)
	sb.WriteString(" FROM ")
	sb.WriteString(paymentsTable)
	sb.WriteString(" p WHERE ")
	sb.WriteString(strings.Join(b.clauses, " AND "))
	sb.WriteString(" ORDER BY p.created_at, p.id")

	if q.PageSize > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT %d", q.PageSize))
	}

	return sb.String(), b.args, nil
}

// itemsQuery selects the price ids of a set of payments.
func itemsQuery(driver, itemsTable string, ids []int64) (string, []interface{}) {
	b := &selectBuilder{driver: driver}
	list := b.bindList(len(ids), func(i int) interface{} { return ids[i] })
	return fmt.Sprintf("SELECT payment_id, price_id FROM %s WHERE payment_id IN (%s) ORDER BY payment_id, price_id",
		itemsTable, list), b.args
}
