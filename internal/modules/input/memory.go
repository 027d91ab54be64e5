package input

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/payexport/cli/internal/errhandling"
	"github.com/payexport/cli/internal/logger"
	"github.com/payexport/cli/pkg/payment"
)

// matchEnv is the environment a compiled query predicate runs against.
// Record fields and query parameters are both bound as variables, so no
// value is ever spliced into the expression source.
type matchEnv struct {
	Date       time.Time       `expr:"date"`
	Total      decimal.Decimal `expr:"total"`
	Status     string          `expr:"status"`
	CustomerID int64           `expr:"customerId"`
	Email      string          `expr:"email"`
	PriceIDs   []int64         `expr:"priceIds"`

	Start         time.Time       `expr:"start"`
	End           time.Time       `expr:"end"`
	Amount        decimal.Decimal `expr:"amount"`
	Statuses      []string        `expr:"statuses"`
	Customer      int64           `expr:"customer"`
	CustomerEmail string          `expr:"customerEmail"`
	Products      []int64         `expr:"products"`
}

// CompilePredicate compiles q into an expression over matchEnv.
// It returns the program and the expression source.
func CompilePredicate(q payment.Query) (*vm.Program, string, error) {
	clauses := []string{"!date.Before(start)"}

	if q.End != nil {
		clauses = append(clauses, "date.Before(end)")
	}
	if q.Amount != nil {
		if q.Amount.Op == payment.LessThan {
			clauses = append(clauses, "total.LessThan(amount)")
		} else {
			clauses = append(clauses, "total.GreaterThan(amount)")
		}
	}
	if len(q.Statuses) > 0 {
		clauses = append(clauses, "status in statuses")
	}
	if c := q.Customer; c != nil {
		if c.ID != nil {
			clauses = append(clauses, "customerId == customer")
		} else {
			clauses = append(clauses, "lower(email) == lower(customerEmail)")
		}
	}
	if len(q.Products) > 0 {
		clauses = append(clauses, "any(priceIds, # in products)")
	}

	source := strings.Join(clauses, " && ")
	program, err := expr.Compile(source, expr.Env(matchEnv{}), expr.AsBool())
	if err != nil {
		return nil, source, fmt.Errorf("compiling query predicate %q: %w", source, err)
	}
	return program, source, nil
}

// queryEnv binds the query parameters; record fields are set per record.
func queryEnv(q payment.Query) matchEnv {
	env := matchEnv{
		Start:    q.Start,
		Statuses: q.Statuses,
		Products: q.Products,
	}
	if end := q.EndExclusive(); end != nil {
		env.End = *end
	}
	if q.Amount != nil {
		env.Amount = q.Amount.Value
	}
	if c := q.Customer; c != nil {
		if c.ID != nil {
			env.Customer = *c.ID
		}
		env.CustomerEmail = c.Email
	}
	return env
}

// MemoryInput serves records from a JSON or YAML fixture file loaded in memory.
type MemoryInput struct {
	path    string
	records []payment.Record
}

// fixtureRecord is the on-disk shape of a record. Dates and totals are kept
// as text and parsed explicitly.
type fixtureRecord struct {
	ID           int64   `yaml:"id"`
	CustomerID   int64   `yaml:"customerId"`
	Date         string  `yaml:"date"`
	Status       string  `yaml:"status"`
	Total        string  `yaml:"total"`
	Gateway      string  `yaml:"gateway"`
	CustomerName string  `yaml:"customerName"`
	Note         string  `yaml:"note"`
	Address      string  `yaml:"address"`
	Email        string  `yaml:"email"`
	Phone        string  `yaml:"phone"`
	PriceIDs     []int64 `yaml:"priceIds"`
}

type fixtureFile struct {
	Payments []fixtureRecord `yaml:"payments"`
}

var fixtureDateLayouts = []string{time.RFC3339, payment.TimestampLayout, payment.DateLayout}

// NewMemoryInput loads a fixture file. The document is either a list of
// records or an object with a "payments" list. JSON is read as YAML.
func NewMemoryInput(path string) (*MemoryInput, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, errhandling.NewStoreError("memory://"+path, "connect", "failed to read fixture", err)
	}

	records, err := parseFixture(data)
	if err != nil {
		return nil, errhandling.NewStoreError("memory://"+path, "connect", "invalid fixture", err)
	}

	logger.Debug("memory input module created", "path", path, "record_count", len(records))

	return &MemoryInput{path: path, records: records}, nil
}

func parseFixture(data []byte) ([]payment.Record, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	var raw []fixtureRecord
	switch node.Content[0].Kind {
	case yaml.SequenceNode:
		if err := node.Content[0].Decode(&raw); err != nil {
			return nil, err
		}
	case yaml.MappingNode:
		var file fixtureFile
		if err := node.Content[0].Decode(&file); err != nil {
			return nil, err
		}
		raw = file.Payments
	default:
		return nil, fmt.Errorf("fixture must be a list of payments or an object with a payments list")
	}

	records := make([]payment.Record, 0, len(raw))
	for i, fr := range raw {
		r, err := fr.toRecord()
		if err != nil {
			return nil, fmt.Errorf("payment #%d: %w", i+1, err)
		}
		records = append(records, r)
	}
	return records, nil
}

func (fr fixtureRecord) toRecord() (payment.Record, error) {
	r := payment.Record{
		ID:           fr.ID,
		CustomerID:   fr.CustomerID,
		Status:       fr.Status,
		Gateway:      fr.Gateway,
		CustomerName: fr.CustomerName,
		Note:         fr.Note,
		Address:      fr.Address,
		Email:        fr.Email,
		Phone:        fr.Phone,
		PriceIDs:     fr.PriceIDs,
	}

	total := strings.TrimSpace(fr.Total)
	if total == "" {
		total = "0"
	}
	var err error
	if r.Total, err = decimal.NewFromString(total); err != nil {
		return payment.Record{}, fmt.Errorf("invalid total %q: %w", fr.Total, err)
	}

	for _, layout := range fixtureDateLayouts {
		if t, perr := time.Parse(layout, fr.Date); perr == nil {
			r.Date = t.UTC()
			return r, nil
		}
	}
	return payment.Record{}, fmt.Errorf("invalid date %q", fr.Date)
}

// Fetch evaluates the compiled query predicate against every record.
func (m *MemoryInput) Fetch(ctx context.Context, q payment.Query) ([]payment.Record, error) {
	program, source, err := CompilePredicate(q)
	if err != nil {
		return nil, errhandling.NewStoreError("memory://"+m.path, "fetch", "query rejected", err)
	}

	logger.Debug("memory input fetch started", "module_type", "memory", "predicate", source)

	env := queryEnv(q)
	var matched []payment.Record
	for _, r := range m.records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		env.Date = r.Date
		env.Total = r.Total
		env.Status = r.Status
		env.CustomerID = r.CustomerID
		env.Email = r.Email
		env.PriceIDs = r.PriceIDs

		out, err := expr.Run(program, env)
		if err != nil {
			return nil, errhandling.NewStoreError("memory://"+m.path, "fetch", "evaluating query predicate", err)
		}
		if ok, _ := out.(bool); ok {
			matched = append(matched, r)
		}
		if q.PageSize > 0 && len(matched) == q.PageSize {
			break
		}
	}

	logger.Debug("memory input fetch completed", "module_type", "memory", "record_count", len(matched))
	return matched, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryInput) Close() error {
	return nil
}
