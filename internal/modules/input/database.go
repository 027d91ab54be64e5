package input

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/payexport/cli/internal/database"
	"github.com/payexport/cli/internal/errhandling"
	"github.com/payexport/cli/internal/logger"
	"github.com/payexport/cli/pkg/payment"
)

// ErrDatabaseMissingConnStr is returned when no connection string is configured.
var ErrDatabaseMissingConnStr = errors.New("connection string is required for database input")

// DatabaseInputConfig holds configuration for the SQL record store.
type DatabaseInputConfig struct {
	// ConnectionString is a postgres:// or sqlite:// URL
	ConnectionString string

	// PaymentsTable and ItemsTable override the default table names
	PaymentsTable string
	ItemsTable    string
}

// DatabaseInput reads payment records from a SQL database.
type DatabaseInput struct {
	config DatabaseInputConfig
	db     *sql.DB
	driver string
	source string
}

// NewDatabaseInput opens the database and verifies the connection.
func NewDatabaseInput(ctx context.Context, cfg DatabaseInputConfig) (*DatabaseInput, error) {
	if cfg.ConnectionString == "" {
		return nil, ErrDatabaseMissingConnStr
	}
	if cfg.PaymentsTable == "" {
		cfg.PaymentsTable = DefaultPaymentsTable
	}
	if cfg.ItemsTable == "" {
		cfg.ItemsTable = DefaultItemsTable
	}

	source := database.Redact(cfg.ConnectionString)

	db, driver, err := database.Open(ctx, database.Config{ConnectionString: cfg.ConnectionString})
	if err != nil {
		return nil, storeError(source, "connect", err)
	}

	logger.Debug("database input module created",
		"driver", driver,
		"source", source,
		"payments_table", cfg.PaymentsTable,
	)

	return &DatabaseInput{
		config: cfg,
		db:     db,
		driver: driver,
		source: source,
	}, nil
}

// Fetch runs the compiled query and loads the price ids of matching payments.
func (d *DatabaseInput) Fetch(ctx context.Context, q payment.Query) ([]payment.Record, error) {
	startTime := time.Now()

	query, args, err := BuildSelect(d.driver, d.config.PaymentsTable, d.config.ItemsTable, q)
	if err != nil {
		return nil, errhandling.NewStoreError(d.source, "fetch", "query rejected", err)
	}

	logger.Debug("database input fetch started",
		"module_type", "database",
		"driver", d.driver,
		"param_count", len(args),
	)

	records, err := d.fetchRecords(ctx, query, args)
	if err != nil {
		logger.Error("database input fetch failed",
			"module_type", "database",
			"duration", time.Since(startTime),
			"error", err.Error(),
		)
		return nil, err
	}

	if err := d.attachPriceIDs(ctx, records); err != nil {
		return nil, err
	}

	logger.Info("database input fetch completed",
		"module_type", "database",
		"record_count", len(records),
		"duration", time.Since(startTime),
	)

	return records, nil
}

func (d *DatabaseInput) fetchRecords(ctx context.Context, query string, args []interface{}) ([]payment.Record, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError(d.source, "fetch",
			database.ClassifyDatabaseError(err, d.driver, "select", query, len(args)))
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []payment.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, errhandling.NewStoreError(d.source, "scan", "reading payment row", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(d.source, "fetch",
			database.ClassifyDatabaseError(err, d.driver, "select", query, len(args)))
	}

	return records, nil
}

// attachPriceIDs loads payment_items for the fetched payments in one query.
func (d *DatabaseInput) attachPriceIDs(ctx context.Context, records []payment.Record) error {
	if len(records) == 0 {
		return nil
	}

	ids := make([]int64, len(records))
	byID := make(map[int64]int, len(records))
	for i, r := range records {
		ids[i] = r.ID
		byID[r.ID] = i
	}

	query, args := itemsQuery(d.driver, d.config.ItemsTable, ids)
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return storeError(d.source, "fetch",
			database.ClassifyDatabaseError(err, d.driver, "select", query, len(args)))
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var paymentID, priceID int64
		if err := rows.Scan(&paymentID, &priceID); err != nil {
			return errhandling.NewStoreError(d.source, "scan", "reading payment item row", err)
		}
		if i, ok := byID[paymentID]; ok {
			records[i].PriceIDs = append(records[i].PriceIDs, priceID)
		}
	}
	if err := rows.Err(); err != nil {
		return storeError(d.source, "fetch",
			database.ClassifyDatabaseError(err, d.driver, "select", query, len(args)))
	}
	return nil
}

// scanRecord reads one row selected with paymentColumns.
func scanRecord(rows *sql.Rows) (payment.Record, error) {
	var (
		r     payment.Record
		total string
	)
	err := rows.Scan(&r.ID, &r.CustomerID, &r.Date, &r.Status, &total,
		&r.Gateway, &r.CustomerName, &r.Note, &r.Address, &r.Email, &r.Phone)
	if err != nil {
		return payment.Record{}, err
	}

	r.Total, err = decimal.NewFromString(strings.TrimSpace(total))
	if err != nil {
		return payment.Record{}, fmt.Errorf("payment %d has invalid total %q: %w", r.ID, total, err)
	}
	r.Date = r.Date.UTC()
	return r, nil
}

// storeError wraps a database failure so the operator sees the store, the
// operation and the classified message.
func storeError(source, operation string, err error) error {
	if dbErr := database.GetDatabaseError(err); dbErr != nil {
		if dbErr.Category == database.CategoryCanceled {
			return fmt.Errorf("record store %s interrupted: %w", operation, dbErr)
		}
		return errhandling.NewStoreError(source, operation, dbErr.Message, dbErr)
	}
	return errhandling.NewStoreError(source, operation, err.Error(), err)
}

// Close releases resources held by the database input module.
func (d *DatabaseInput) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
