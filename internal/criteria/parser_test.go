package criteria

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/payexport/cli/internal/config"
	"github.com/payexport/cli/internal/errhandling"
	"github.com/payexport/cli/internal/period"
	"github.com/payexport/cli/pkg/payment"
)

// requireValidationError asserts err is a ValidationError for flag and returns it.
func requireValidationError(t *testing.T, err error, flag string) *errhandling.ValidationError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected validation error for --%s, got nil", flag)
	}
	var ve *errhandling.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error type = %T, want *errhandling.ValidationError", err)
	}
	if ve.Flag != flag {
		t.Errorf("Flag = %q, want %q", ve.Flag, flag)
	}
	return ve
}

func TestParse_Defaults(t *testing.T) {
	vocab := config.Default()

	fs, err := Parse(RawArgs{}, vocab)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if fs.Dates != nil {
		t.Errorf("Dates = %#v, want nil", fs.Dates)
	}
	if fs.Format != payment.FormatCSV {
		t.Errorf("Format = %q, want csv", fs.Format)
	}
	if fs.Destination.Kind != payment.Console {
		t.Errorf("Destination = %v, want console", fs.Destination)
	}
	if strings.Join(fs.Fields, ",") != "id,customer-id,date,status,amount,gateway" {
		t.Errorf("Fields = %v", fs.Fields)
	}
	if fs.Amount != nil || fs.Customer != nil || fs.Statuses != nil || fs.Products != nil {
		t.Errorf("unexpected optional filters: %+v", fs)
	}
}

func TestParseDate(t *testing.T) {
	valid := []string{"2023-11-01", "2024-02-29", "1999-12-31", "2023-01-01"}
	for _, d := range valid {
		t.Run(d, func(t *testing.T) {
			got, err := ParseDate(FlagStartDate, d)
			if err != nil {
				t.Fatalf("ParseDate(%q) error = %v", d, err)
			}
			again, err := ParseDate(FlagStartDate, got.Format(payment.DateLayout))
			if err != nil {
				t.Fatalf("round trip error = %v", err)
			}
			if !again.Equal(got) {
				t.Errorf("round trip = %v, want %v", again, got)
			}
		})
	}

	invalid := []string{
		"2023/11/01",
		"2023-02-30",
		"2023-13-01",
		"2023-11",
		"2023-11-01-01",
		"23-11-01",
		"2023-1-01",
		"",
		"2023-11-01 ",
	}
	for _, d := range invalid {
		t.Run("invalid "+d, func(t *testing.T) {
			_, err := ParseDate(FlagEndDate, d)
			requireValidationError(t, err, FlagEndDate)
		})
	}
}

func TestParse_WindowAndRangeExclusive(t *testing.T) {
	vocab := config.Default()

	tests := []struct {
		name string
		raw  RawArgs
	}{
		{"window and start", RawArgs{LastDays: "7", StartDate: "2023-11-01"}},
		{"window and end", RawArgs{EndDate: "2023-11-30", LastDays: "7"}},
		{"period and both", RawArgs{StartDate: "2023-11-01", EndDate: "2023-11-30", LastDays: "last_month"}},
		{"invalid window still conflicts", RawArgs{StartDate: "2023-11-01", LastDays: "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw, vocab)
			ve := requireValidationError(t, err, FlagLastDays)
			if !strings.Contains(ve.Message, "cannot use both") {
				t.Errorf("Message = %q, want to contain \"cannot use both\"", ve.Message)
			}
		})
	}
}

func TestParse_Dates(t *testing.T) {
	vocab := config.Default()

	t.Run("days window", func(t *testing.T) {
		fs, err := Parse(RawArgs{LastDays: "7"}, vocab)
		if err != nil {
			t.Fatal(err)
		}
		if fs.Dates != (DaysWindow{Days: 7}) {
			t.Errorf("Dates = %#v, want DaysWindow{7}", fs.Dates)
		}
	})

	t.Run("named period with hyphen", func(t *testing.T) {
		fs, err := Parse(RawArgs{LastDays: "Last-Month"}, vocab)
		if err != nil {
			t.Fatal(err)
		}
		if fs.Dates != (PeriodWindow{Period: period.LastMonth}) {
			t.Errorf("Dates = %#v, want PeriodWindow{last_month}", fs.Dates)
		}
	})

	for _, bad := range []string{"0", "-3", "fortnight", "7d", ""} {
		t.Run("bad window "+bad, func(t *testing.T) {
			_, err := Parse(RawArgs{LastDays: bad, Changed: map[string]bool{FlagLastDays: true}}, vocab)
			requireValidationError(t, err, FlagLastDays)
		})
	}

	t.Run("end only", func(t *testing.T) {
		fs, err := Parse(RawArgs{EndDate: "2023-11-30"}, vocab)
		if err != nil {
			t.Fatal(err)
		}
		r, ok := fs.Dates.(ExplicitRange)
		if !ok {
			t.Fatalf("Dates = %T, want ExplicitRange", fs.Dates)
		}
		if r.Start != nil || r.End == nil || r.End.Format(payment.DateLayout) != "2023-11-30" {
			t.Errorf("range = %+v", r)
		}
	})

	t.Run("start after end", func(t *testing.T) {
		_, err := Parse(RawArgs{StartDate: "2023-12-01", EndDate: "2023-11-30"}, vocab)
		requireValidationError(t, err, FlagEndDate)
	})
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input  string
		wantOp payment.Comparison
		want   string
	}{
		{">100", payment.GreaterThan, "100"},
		{"> $100", payment.GreaterThan, "100"},
		{"<$25.5", payment.LessThan, "25.5"},
		{"< 25.50", payment.LessThan, "25.5"},
		{"  >$1,000.99  ", payment.GreaterThan, "1000.99"},
		{">1,234,567", payment.GreaterThan, "1234567"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if err != nil {
				t.Fatalf("ParseAmount(%q) error = %v", tt.input, err)
			}
			if got.Op != tt.wantOp {
				t.Errorf("Op = %q, want %q", got.Op, tt.wantOp)
			}
			if !got.Value.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("Value = %s, want %s", got.Value, tt.want)
			}
		})
	}

	for _, bad := range []string{">=5", "5>", "", ">", "> $", ">5.123", "=5", ">$-5", "100", ">  5",
		",>100", ">1,0,0", "> 100,", ">,5", ">1000,000", ">12,34", ">1,000,00.5"} {
		t.Run("invalid "+bad, func(t *testing.T) {
			_, err := ParseAmount(bad)
			ve := requireValidationError(t, err, FlagAmountFilter)
			if ve.Value != bad {
				t.Errorf("Value = %q, want %q", ve.Value, bad)
			}
		})
	}
}

func TestParse_Statuses(t *testing.T) {
	vocab := config.Default()

	fs, err := Parse(RawArgs{StatusFilter: "complete, Refunded,complete"}, vocab)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(fs.Statuses, ",") != "complete,refunded" {
		t.Errorf("Statuses = %v, want [complete refunded]", fs.Statuses)
	}

	_, err = Parse(RawArgs{StatusFilter: "complete,publish"}, vocab)
	ve := requireValidationError(t, err, FlagStatusFilter)
	if !strings.Contains(ve.Error(), `"publish"`) {
		t.Errorf("error = %q, want it to name \"publish\"", ve.Error())
	}

	_, err = Parse(RawArgs{Changed: map[string]bool{FlagStatusFilter: true}}, vocab)
	requireValidationError(t, err, FlagStatusFilter)
}

func TestParseCustomer(t *testing.T) {
	tests := []struct {
		input string
		want  CustomerIdentity
	}{
		{"42", CustomerByID{ID: 42}},
		{" 7 ", CustomerByID{ID: 7}},
		{"-1", CustomerByID{ID: -1}},
		{"jane.doe@example.com", CustomerByEmail{Email: "jane.doe@example.com"}},
		{"ops+billing@example.co.uk", CustomerByEmail{Email: "ops+billing@example.co.uk"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCustomer(tt.input)
			if err != nil {
				t.Fatalf("ParseCustomer(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseCustomer(%q) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}

	for _, bad := range []string{"", "jane", "jane@", "@example.com", "12abc", "4.2"} {
		t.Run("invalid "+bad, func(t *testing.T) {
			_, err := ParseCustomer(bad)
			requireValidationError(t, err, FlagCustomerFilter)
		})
	}
}

func TestParse_Products(t *testing.T) {
	vocab := config.Default()

	fs, err := Parse(RawArgs{ProductFilter: "12, 7 ,12,3"}, vocab)
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{12, 7, 3}
	if len(fs.Products) != len(want) {
		t.Fatalf("Products = %v, want %v", fs.Products, want)
	}
	for i := range want {
		if fs.Products[i] != want[i] {
			t.Errorf("Products[%d] = %d, want %d", i, fs.Products[i], want[i])
		}
	}

	for _, bad := range []string{"0", "1,0", "a,b", "1,,2", "-4", "1;2"} {
		t.Run("invalid "+bad, func(t *testing.T) {
			_, err := Parse(RawArgs{ProductFilter: bad}, vocab)
			requireValidationError(t, err, FlagProductFilter)
		})
	}
}

func TestParse_Fields(t *testing.T) {
	vocab := config.Default()

	fs, err := Parse(RawArgs{Fields: "email, id,ID,amount"}, vocab)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(fs.Fields, ",") != "email,id,amount" {
		t.Errorf("Fields = %v, want [email id amount]", fs.Fields)
	}

	for _, bad := range []string{"id,price", "total", "id,,date"} {
		t.Run("unknown in "+bad, func(t *testing.T) {
			_, err := Parse(RawArgs{Fields: bad}, vocab)
			ve := requireValidationError(t, err, FlagFields)
			if !strings.Contains(ve.Message, "unknown field") {
				t.Errorf("Message = %q", ve.Message)
			}
		})
	}

	_, err = Parse(RawArgs{Fields: "id,price"}, vocab)
	if err == nil || !strings.Contains(err.Error(), `"price"`) {
		t.Errorf("error = %v, want it to name \"price\"", err)
	}
}

func TestParse_FormatAndDestination(t *testing.T) {
	vocab := config.Default()

	tests := []struct {
		name     string
		raw      RawArgs
		wantErr  string
		wantKind payment.DestinationKind
		wantFmt  payment.Format
	}{
		{name: "json to shell", raw: RawArgs{Format: "JSON"}, wantKind: payment.Console, wantFmt: payment.FormatJSON},
		{name: "csv file", raw: RawArgs{Output: "file", File: "/tmp/out/x.csv"}, wantKind: payment.File, wantFmt: payment.FormatCSV},
		{name: "json file upper ext", raw: RawArgs{Format: "json", Output: "file", File: "x.JSON"}, wantKind: payment.File, wantFmt: payment.FormatJSON},
		{name: "unknown format", raw: RawArgs{Format: "xml"}, wantErr: FlagFormat},
		{name: "unknown output", raw: RawArgs{Output: "printer"}, wantErr: FlagOutput},
		{name: "file without path", raw: RawArgs{Output: "file"}, wantErr: FlagFile},
		{name: "shell with path", raw: RawArgs{File: "x.csv"}, wantErr: FlagFile},
		{name: "mismatched extension", raw: RawArgs{Output: "file", File: "/path/to/export.txt", Format: "csv"}, wantErr: FlagFile},
		{name: "csv ext for json", raw: RawArgs{Output: "file", File: "x.csv", Format: "json"}, wantErr: FlagFile},
		{name: "null byte", raw: RawArgs{Output: "file", File: "x\x00.csv"}, wantErr: FlagFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, err := Parse(tt.raw, vocab)
			if tt.wantErr != "" {
				requireValidationError(t, err, tt.wantErr)
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if fs.Destination.Kind != tt.wantKind {
				t.Errorf("Destination.Kind = %q, want %q", fs.Destination.Kind, tt.wantKind)
			}
			if fs.Format != tt.wantFmt {
				t.Errorf("Format = %q, want %q", fs.Format, tt.wantFmt)
			}
		})
	}
}

func TestParse_CustomVocabularyPeriods(t *testing.T) {
	vocab, err := config.Load("../config/testdata/valid-vocabulary.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(RawArgs{LastDays: "today"}, vocab); err != nil {
		t.Errorf("today should be accepted: %v", err)
	}
	_, err = Parse(RawArgs{LastDays: "this_year"}, vocab)
	requireValidationError(t, err, FlagLastDays)
}

// ExplicitRange bounds are plain dates.
func TestParse_RangeBoundsAreUTCMidnight(t *testing.T) {
	fs, err := Parse(RawArgs{StartDate: "2023-11-01", EndDate: "2023-11-30"}, config.Default())
	if err != nil {
		t.Fatal(err)
	}
	r := fs.Dates.(ExplicitRange)
	want := time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC)
	if !r.Start.Equal(want) {
		t.Errorf("Start = %v, want %v", r.Start, want)
	}
}
