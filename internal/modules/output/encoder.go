package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/payexport/cli/pkg/payment"
)

// CSVEncoder writes a header line followed by one line per row.
//
// Values are quoted per RFC 4180 when they contain a comma, quote or newline.
// Legacy joins values with commas without any escaping.
type CSVEncoder struct {
	Legacy bool
}

// Encode implements Encoder.
func (e CSVEncoder) Encode(w io.Writer, fields []string, rows []payment.Row) error {
	if e.Legacy {
		return encodeLegacyCSV(w, fields, rows)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(fields); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for i, row := range rows {
		if err := cw.Write(row.Values()); err != nil {
			return fmt.Errorf("writing csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func encodeLegacyCSV(w io.Writer, fields []string, rows []payment.Row) error {
	var sb strings.Builder
	sb.WriteString(strings.Join(fields, ","))
	sb.WriteByte('\n')
	for _, row := range rows {
		sb.WriteString(strings.Join(row.Values(), ","))
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// JSONEncoder writes rows as a pretty-printed JSON array of objects.
// An empty export is written as [].
type JSONEncoder struct{}

// Encode implements Encoder.
func (JSONEncoder) Encode(w io.Writer, _ []string, rows []payment.Row) error {
	if rows == nil {
		rows = []payment.Row{}
	}
	data, err := json.MarshalIndent(rows, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// TableEncoder renders rows as an aligned text table for the console.
type TableEncoder struct{}

// Encode implements Encoder.
func (TableEncoder) Encode(w io.Writer, fields []string, rows []payment.Row) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, strings.Join(fields, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		values := row.Values()
		for i, v := range values {
			values[i] = tableCell(v)
		}
		if _, err := fmt.Fprintln(tw, strings.Join(values, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// tableCell keeps a value on one line and inside its column.
func tableCell(v string) string {
	return strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ", "\r", " ").Replace(v)
}
