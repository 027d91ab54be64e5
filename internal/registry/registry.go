// Package registry provides registries for record stores and export encoders.
//
// # Overview
//
// Record stores are registered by the scheme of their source URL
// ("postgres", "sqlite", "memory", ...) and encoders by export format.
// The factory resolves a --source value or a --format value through these
// registries instead of hard-coded switch statements.
//
// # Adding a New Store
//
// To add a new store (e.g., a "mysql" store):
//
//  1. Implement input.Module
//  2. Create a constructor matching StoreConstructor
//  3. Register the constructor in an init() function
//
// Example:
//
//	func init() {
//	    registry.RegisterStore("mysql", func(ctx context.Context, source string, opts registry.StoreOptions) (input.Module, error) {
//	        return NewMySQLInput(ctx, source, opts)
//	    })
//	}
//
// # Built-in Modules
//
// The SQL stores, the fixture-backed memory store and the csv/json encoders are
// registered automatically via init() in builtins.go.
package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/payexport/cli/internal/modules/input"
	"github.com/payexport/cli/internal/modules/output"
	"github.com/payexport/cli/pkg/payment"
)

// StoreOptions carries settings that do not belong in the source URL.
type StoreOptions struct {
	// PaymentsTable and ItemsTable override the SQL table names
	PaymentsTable string
	ItemsTable    string
}

// StoreConstructor opens a record store for a source URL.
type StoreConstructor func(ctx context.Context, source string, opts StoreOptions) (input.Module, error)

// EncoderOptions configures encoder construction.
type EncoderOptions struct {
	// LegacyCSV disables CSV escaping
	LegacyCSV bool
}

// EncoderConstructor creates the encoder of one export format.
type EncoderConstructor func(opts EncoderOptions) output.Encoder

// storeRegistry holds registered store constructors keyed by URL scheme.
var (
	storeMu       sync.RWMutex
	storeRegistry = make(map[string]StoreConstructor)
)

// encoderRegistry holds registered encoder constructors keyed by format.
var (
	encoderMu       sync.RWMutex
	encoderRegistry = make(map[payment.Format]EncoderConstructor)
)

// RegisterStore registers a store constructor for a URL scheme.
// Registering an already registered scheme overwrites the previous constructor.
//
// This function is safe for concurrent use and is typically called from
// init() functions.
func RegisterStore(scheme string, constructor StoreConstructor) {
	storeMu.Lock()
	defer storeMu.Unlock()
	storeRegistry[scheme] = constructor
}

// RegisterEncoder registers an encoder constructor for a format.
// Registering an already registered format overwrites the previous constructor.
func RegisterEncoder(format payment.Format, constructor EncoderConstructor) {
	encoderMu.Lock()
	defer encoderMu.Unlock()
	encoderRegistry[format] = constructor
}

// GetStoreConstructor returns the constructor registered for scheme, or nil.
func GetStoreConstructor(scheme string) StoreConstructor {
	storeMu.RLock()
	defer storeMu.RUnlock()
	return storeRegistry[scheme]
}

// GetEncoderConstructor returns the constructor registered for format, or nil.
func GetEncoderConstructor(format payment.Format) EncoderConstructor {
	encoderMu.RLock()
	defer encoderMu.RUnlock()
	return encoderRegistry[format]
}

// ListStoreSchemes returns the registered store schemes, sorted.
func ListStoreSchemes() []string {
	storeMu.RLock()
	defer storeMu.RUnlock()
	schemes := make([]string, 0, len(storeRegistry))
	for s := range storeRegistry {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	return schemes
}

// ListEncoderFormats returns the registered export formats, sorted.
func ListEncoderFormats() []payment.Format {
	encoderMu.RLock()
	defer encoderMu.RUnlock()
	formats := make([]payment.Format, 0, len(encoderRegistry))
	for f := range encoderRegistry {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

// ClearRegistries removes all registered constructors.
// This is intended for testing purposes only.
func ClearRegistries() {
	storeMu.Lock()
	storeRegistry = make(map[string]StoreConstructor)
	storeMu.Unlock()

	encoderMu.Lock()
	encoderRegistry = make(map[payment.Format]EncoderConstructor)
	encoderMu.Unlock()
}

// RegisterBuiltins registers the built-in stores and encoders.
// init() calls it; tests call it again after ClearRegistries.
func RegisterBuiltins() {
	registerBuiltinStores()
	registerBuiltinEncoders()
}
