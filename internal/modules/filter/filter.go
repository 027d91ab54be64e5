// Package filter provides implementations for filter modules.
// The projector narrows each payment record to the selected fields and
// stringifies them in the canonical column order of the vocabulary.
package filter

import (
	"context"
	"sort"

	"github.com/payexport/cli/internal/config"
	"github.com/payexport/cli/internal/logger"
	"github.com/payexport/cli/pkg/payment"
)

// cancelCheckInterval is how many records are projected between context checks.
const cancelCheckInterval = 100

// Projector maps records to export rows.
type Projector struct {
	vocab *config.Vocabulary
}

// NewProjector creates a projector ordering columns by vocab.
func NewProjector(vocab *config.Vocabulary) *Projector {
	if vocab == nil {
		vocab = config.Default()
	}
	return &Projector{vocab: vocab}
}

// Columns returns the selected fields in canonical order.
// Fields unknown to the vocabulary or without a record accessor are dropped.
func (p *Projector) Columns(fields []string) []string {
	seen := make(map[string]bool, len(fields))
	columns := make([]string, 0, len(fields))
	for _, f := range fields {
		if seen[f] || !p.vocab.HasField(f) || !payment.HasAccessor(f) {
			continue
		}
		seen[f] = true
		columns = append(columns, f)
	}
	sort.SliceStable(columns, func(i, j int) bool {
		return p.vocab.FieldIndex(columns[i]) < p.vocab.FieldIndex(columns[j])
	})
	return columns
}

// Project returns the row for one record. It does not modify the record.
func (p *Projector) Project(record payment.Record, fields []string) payment.Row {
	return project(record, p.Columns(fields))
}

// ProjectAll projects every record with the same column list.
func (p *Projector) ProjectAll(ctx context.Context, records []payment.Record, fields []string) ([]payment.Row, error) {
	columns := p.Columns(fields)
	rows := make([]payment.Row, 0, len(records))
	for i, r := range records {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rows = append(rows, project(r, columns))
	}

	logger.Debug("records projected", "record_count", len(rows), "columns", columns)
	return rows, nil
}

func project(record payment.Record, columns []string) payment.Row {
	row := make(payment.Row, 0, len(columns))
	for _, f := range columns {
		accessor, _ := payment.LookupAccessor(f)
		row = append(row, payment.Cell{Field: f, Value: accessor(record)})
	}
	return row
}
