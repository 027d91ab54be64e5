package criteria

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/payexport/cli/internal/config"
	"github.com/payexport/cli/internal/errhandling"
	"github.com/payexport/cli/internal/pathutil"
	"github.com/payexport/cli/internal/period"
	"github.com/payexport/cli/pkg/payment"
)

var (
	datePattern    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	daysPattern    = regexp.MustCompile(`^\d+$`)
	amountPattern  = regexp.MustCompile(`^[><]\s?\$?(\d{1,3}(,\d{3})+|\d+)(\.\d{1,2})?$`)
	productPattern = regexp.MustCompile(`^\d+(\s*,\s*\d+)*$`)

	validate = validator.New()
)

const (
	expectedDate    = "a calendar date in YYYY-MM-DD form"
	expectedAmount  = `">" or "<" followed by an amount, e.g. "> $100" or "<25.50"`
	expectedProduct = "a comma-separated list of positive integers"
)

// Parse validates raw flag values against the vocabulary and builds a FilterSet.
// Each flag is checked independently; the first failure is returned as an
// *errhandling.ValidationError naming the flag, the value and the expected form.
func Parse(raw RawArgs, vocab *config.Vocabulary) (*FilterSet, error) {
	fs := &FilterSet{}
	var err error

	if fs.Dates, err = parseDates(raw, vocab); err != nil {
		return nil, err
	}
	if raw.given(FlagAmountFilter, raw.AmountFilter) {
		if fs.Amount, err = ParseAmount(raw.AmountFilter); err != nil {
			return nil, err
		}
	}
	if raw.given(FlagStatusFilter, raw.StatusFilter) {
		if fs.Statuses, err = parseStatuses(raw.StatusFilter, vocab); err != nil {
			return nil, err
		}
	}
	if raw.given(FlagCustomerFilter, raw.CustomerFilter) {
		if fs.Customer, err = ParseCustomer(raw.CustomerFilter); err != nil {
			return nil, err
		}
	}
	if raw.given(FlagProductFilter, raw.ProductFilter) {
		if fs.Products, err = parseProducts(raw.ProductFilter); err != nil {
			return nil, err
		}
	}
	if fs.Fields, err = parseFields(raw, vocab); err != nil {
		return nil, err
	}
	if fs.Format, err = parseFormat(raw.Format); err != nil {
		return nil, err
	}
	if fs.Destination, err = parseDestination(raw, fs.Format); err != nil {
		return nil, err
	}

	return fs, nil
}

// ParseDate parses a strict YYYY-MM-DD calendar date. Formatting the result
// must reproduce the input, which rejects values time.Parse would normalize.
func ParseDate(flag, value string) (time.Time, error) {
	if !datePattern.MatchString(value) {
		return time.Time{}, errhandling.NewValidationError(flag, value, "invalid date", expectedDate)
	}
	t, err := time.Parse(payment.DateLayout, value)
	if err != nil || t.Format(payment.DateLayout) != value {
		return time.Time{}, errhandling.NewValidationError(flag, value, "invalid date", expectedDate)
	}
	return t, nil
}

func parseDates(raw RawArgs, vocab *config.Vocabulary) (DateSelector, error) {
	hasStart := raw.given(FlagStartDate, raw.StartDate)
	hasEnd := raw.given(FlagEndDate, raw.EndDate)
	hasWindow := raw.given(FlagLastDays, raw.LastDays)

	if hasWindow && (hasStart || hasEnd) {
		return nil, errhandling.NewValidationError(FlagLastDays, raw.LastDays,
			"cannot use both --last-days and --start-date/--end-date",
			"either a relative window or an explicit date range")
	}

	if hasWindow {
		return parseWindow(raw.LastDays, vocab)
	}

	if !hasStart && !hasEnd {
		return nil, nil
	}

	var r ExplicitRange
	if hasStart {
		start, err := ParseDate(FlagStartDate, raw.StartDate)
		if err != nil {
			return nil, err
		}
		r.Start = &start
	}
	if hasEnd {
		end, err := ParseDate(FlagEndDate, raw.EndDate)
		if err != nil {
			return nil, err
		}
		r.End = &end
	}
	if r.Start != nil && r.End != nil && r.Start.After(*r.End) {
		return nil, errhandling.NewValidationError(FlagEndDate, raw.EndDate,
			fmt.Sprintf("end date is before start date %s", raw.StartDate),
			"an end date on or after the start date")
	}
	return r, nil
}

func parseWindow(value string, vocab *config.Vocabulary) (DateSelector, error) {
	trimmed := strings.TrimSpace(value)

	if daysPattern.MatchString(trimmed) {
		days, err := strconv.Atoi(trimmed)
		if err != nil || days <= 0 {
			return nil, errhandling.NewValidationError(FlagLastDays, value,
				"day count must be a positive integer", windowExpected(vocab))
		}
		return DaysWindow{Days: days}, nil
	}

	name := period.Normalize(trimmed)
	if name == "" || !vocab.HasPeriod(string(name)) {
		return nil, errhandling.NewValidationError(FlagLastDays, value,
			"unknown relative window", windowExpected(vocab))
	}
	return PeriodWindow{Period: name}, nil
}

func windowExpected(vocab *config.Vocabulary) string {
	if len(vocab.Periods) == 0 {
		return "a positive number of days"
	}
	return "a positive number of days or one of: " + strings.Join(vocab.Periods, ", ")
}

// ParseAmount parses an amount filter such as "> $1,000.50".
// Commas are only accepted as thousands separators between digit groups.
func ParseAmount(value string) (*AmountFilter, error) {
	s := strings.TrimSpace(value)
	if !amountPattern.MatchString(s) {
		return nil, errhandling.NewValidationError(FlagAmountFilter, value, "invalid amount filter", expectedAmount)
	}

	magnitude := strings.ReplaceAll(strings.TrimPrefix(strings.TrimSpace(s[1:]), "$"), ",", "")
	amount, err := decimal.NewFromString(magnitude)
	if err != nil {
		return nil, errhandling.NewValidationError(FlagAmountFilter, value, "invalid amount filter", expectedAmount)
	}

	return &AmountFilter{Op: payment.Comparison(s[:1]), Value: amount}, nil
}

func parseStatuses(value string, vocab *config.Vocabulary) ([]string, error) {
	if strings.TrimSpace(value) == "" {
		return nil, errhandling.NewValidationError(FlagStatusFilter, value,
			"status filter must name at least one status", strings.Join(vocab.Statuses, ", "))
	}

	var statuses []string
	seen := make(map[string]bool)
	for _, token := range strings.Split(value, ",") {
		status := strings.ToLower(strings.TrimSpace(token))
		if !vocab.HasStatus(status) {
			return nil, errhandling.NewValidationError(FlagStatusFilter, token,
				fmt.Sprintf("unknown status %q", status), "one of: "+strings.Join(vocab.Statuses, ", "))
		}
		if !seen[status] {
			seen[status] = true
			statuses = append(statuses, status)
		}
	}
	return statuses, nil
}

// ParseCustomer returns CustomerByID when value parses as an integer and
// CustomerByEmail when it is a valid email address.
func ParseCustomer(value string) (CustomerIdentity, error) {
	s := strings.TrimSpace(value)
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return CustomerByID{ID: id}, nil
	}
	if s != "" && validate.Var(s, "email") == nil {
		return CustomerByEmail{Email: s}, nil
	}
	return nil, errhandling.NewValidationError(FlagCustomerFilter, value,
		"customer filter is neither a customer id nor an email address",
		"an integer customer id or an email address")
}

func parseProducts(value string) ([]int64, error) {
	s := strings.TrimSpace(value)
	if !productPattern.MatchString(s) {
		return nil, errhandling.NewValidationError(FlagProductFilter, value, "invalid product filter", expectedProduct)
	}

	var ids []int64
	seen := make(map[int64]bool)
	for _, token := range strings.Split(s, ",") {
		token = strings.TrimSpace(token)
		id, err := strconv.ParseInt(token, 10, 64)
		if err != nil || id <= 0 {
			return nil, errhandling.NewValidationError(FlagProductFilter, token,
				"product id must be a positive integer", expectedProduct)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func parseFields(raw RawArgs, vocab *config.Vocabulary) ([]string, error) {
	if !raw.given(FlagFields, raw.Fields) {
		return append([]string(nil), vocab.DefaultFields...), nil
	}

	var fields []string
	seen := make(map[string]bool)
	for _, token := range strings.Split(raw.Fields, ",") {
		field := strings.ToLower(strings.TrimSpace(token))
		if !vocab.HasField(field) {
			return nil, errhandling.NewValidationError(FlagFields, token,
				fmt.Sprintf("unknown field %q", field), "one of: "+strings.Join(vocab.Fields, ", "))
		}
		if !seen[field] {
			seen[field] = true
			fields = append(fields, field)
		}
	}
	return fields, nil
}

func parseFormat(value string) (payment.Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(payment.FormatCSV):
		return payment.FormatCSV, nil
	case string(payment.FormatJSON):
		return payment.FormatJSON, nil
	default:
		return "", errhandling.NewValidationError(FlagFormat, value, "unsupported format", "csv or json")
	}
}

func parseDestination(raw RawArgs, format payment.Format) (payment.Destination, error) {
	hasFile := raw.given(FlagFile, raw.File)

	switch strings.ToLower(strings.TrimSpace(raw.Output)) {
	case "", string(payment.Console):
		if hasFile {
			return payment.Destination{}, errhandling.NewValidationError(FlagFile, raw.File,
				"--file cannot be used with --output=shell", "--output=file")
		}
		return payment.ConsoleDestination(), nil

	case string(payment.File):
		if strings.TrimSpace(raw.File) == "" {
			return payment.Destination{}, errhandling.NewValidationError(FlagFile, raw.File,
				"--output=file requires a file path", "a path ending in "+format.Extension())
		}
		if err := pathutil.ValidateOutputPath(raw.File); err != nil {
			return payment.Destination{}, errhandling.NewValidationError(FlagFile, raw.File,
				err.Error(), "a valid file path")
		}
		if !pathutil.HasExtension(raw.File, format.Extension()) {
			return payment.Destination{}, errhandling.NewValidationError(FlagFile, raw.File,
				fmt.Sprintf("file extension does not match --format=%s", format),
				"a path ending in "+format.Extension())
		}
		return payment.FileDestination(raw.File), nil

	default:
		return payment.Destination{}, errhandling.NewValidationError(FlagOutput, raw.Output,
			"unsupported output", "shell or file")
	}
}
