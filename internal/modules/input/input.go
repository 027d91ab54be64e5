// Package input provides the record stores an export reads from.
// A store executes one payment.Query in a single synchronous bulk call.
package input

import (
	"context"

	"github.com/payexport/cli/pkg/payment"
)

// Module represents a record store.
type Module interface {
	// Fetch returns every record matching q. The context cancels the call.
	// Failures are reported as *errhandling.StoreError.
	Fetch(ctx context.Context, q payment.Query) ([]payment.Record, error)
	// Close releases any resources held by the store.
	Close() error
}
