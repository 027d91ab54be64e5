// Package registry provides registries for record stores and export encoders.
// This file registers the built-in modules during initialization.
package registry

import (
	"context"
	"strings"

	"github.com/payexport/cli/internal/modules/input"
	"github.com/payexport/cli/internal/modules/output"
	"github.com/payexport/cli/pkg/payment"
)

// MemoryScheme selects the fixture-backed store: memory://path/to/payments.yaml
const MemoryScheme = "memory"

func init() {
	RegisterBuiltins()
}

// registerBuiltinStores registers all built-in record stores.
func registerBuiltinStores() {
	// SQL stores, driver chosen from the scheme
	sqlStore := func(ctx context.Context, source string, opts StoreOptions) (input.Module, error) {
		return input.NewDatabaseInput(ctx, input.DatabaseInputConfig{
			ConnectionString: source,
			PaymentsTable:    opts.PaymentsTable,
			ItemsTable:       opts.ItemsTable,
		})
	}
	for _, scheme := range []string{"postgres", "postgresql", "sqlite", "sqlite3"} {
		RegisterStore(scheme, sqlStore)
	}

	// memory - fixture file loaded in memory
	RegisterStore(MemoryScheme, func(_ context.Context, source string, _ StoreOptions) (input.Module, error) {
		return input.NewMemoryInput(strings.TrimPrefix(source, MemoryScheme+"://"))
	})
}

// registerBuiltinEncoders registers the csv and json encoders.
func registerBuiltinEncoders() {
	RegisterEncoder(payment.FormatCSV, func(opts EncoderOptions) output.Encoder {
		return output.CSVEncoder{Legacy: opts.LegacyCSV}
	})
	RegisterEncoder(payment.FormatJSON, func(EncoderOptions) output.Encoder {
		return output.JSONEncoder{}
	})
}
