// Package factory provides module creation functions for the export pipeline.
// It centralizes the logic for opening record stores from a source URL and
// assembling the exporter from the registered encoders.
//
// # Adding New Module Types
//
// To add a new store or format, see the documentation in internal/registry.
// You do NOT need to modify this factory; just register your constructor.
package factory

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/payexport/cli/internal/database"
	"github.com/payexport/cli/internal/errhandling"
	"github.com/payexport/cli/internal/modules/input"
	"github.com/payexport/cli/internal/modules/output"
	"github.com/payexport/cli/internal/registry"
)

// FlagSource names the flag carrying the record store URL.
const FlagSource = "source"

// SourceScheme returns the scheme of a source URL ("postgres", "memory", ...).
func SourceScheme(source string) (string, bool) {
	scheme, _, ok := strings.Cut(source, "://")
	if !ok || scheme == "" {
		return "", false
	}
	return strings.ToLower(scheme), true
}

// CreateStore opens the record store for source.
// A missing or unknown scheme is a validation error on --source; failures of
// the store itself are returned as-is.
func CreateStore(ctx context.Context, source string, opts registry.StoreOptions) (input.Module, error) {
	expected := "one of " + strings.Join(registry.ListStoreSchemes(), ", ") + " URLs"

	if strings.TrimSpace(source) == "" {
		return nil, errhandling.NewValidationError(FlagSource, "",
			"no record store configured (set --source or PAYEXPORT_SOURCE)", expected)
	}

	scheme, ok := SourceScheme(source)
	if !ok {
		return nil, errhandling.NewValidationError(FlagSource, database.Redact(source),
			"source must be a URL with a scheme", expected)
	}

	constructor := registry.GetStoreConstructor(scheme)
	if constructor == nil {
		return nil, errhandling.NewValidationError(FlagSource, database.Redact(source),
			fmt.Sprintf("unsupported store scheme %q", scheme), expected)
	}

	return constructor(ctx, source, opts)
}

// CreateExporter builds an exporter whose file encoders come from the registry.
func CreateExporter(out, errOut io.Writer, confirm output.Confirmer, opts registry.EncoderOptions) *output.Exporter {
	exp := output.NewExporter(out, errOut, confirm, opts.LegacyCSV)
	for _, format := range registry.ListEncoderFormats() {
		if constructor := registry.GetEncoderConstructor(format); constructor != nil {
			exp.Encoders[format] = constructor(opts)
		}
	}
	return exp
}
