package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema/vocabulary-schema.json
var embeddedSchema []byte

const schemaURL = "https://payexport.dev/schemas/vocabulary/v1.0.0/vocabulary-schema.json"

// schemaOnce ensures thread-safe initialization of the compiled schema.
var schemaOnce sync.Once

// compiledSchema is the cached compiled schema.
var compiledSchema *jsonschema.Schema

// schemaInitErr stores any error from schema initialization.
var schemaInitErr error

// getCompiledSchema returns the compiled JSON schema, compiling it if necessary.
func getCompiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schemaDoc, err := jsonschema.UnmarshalJSON(bytes.NewReader(embeddedSchema))
		if err != nil {
			schemaInitErr = fmt.Errorf("failed to parse embedded schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, schemaDoc); err != nil {
			schemaInitErr = fmt.Errorf("failed to add schema resource: %w", err)
			return
		}

		compiledSchema, err = compiler.Compile(schemaURL)
		if err != nil {
			schemaInitErr = fmt.Errorf("failed to compile schema: %w", err)
		}
	})

	if schemaInitErr != nil {
		return nil, schemaInitErr
	}
	return compiledSchema, nil
}

// ValidateVocabulary validates a parsed vocabulary document against the schema.
// Returns the list of validation errors (empty when valid).
func ValidateVocabulary(data map[string]interface{}) []ValidationError {
	if len(data) == 0 {
		return []ValidationError{{Path: "/", Type: "required", Message: "vocabulary document is empty"}}
	}

	schema, err := getCompiledSchema()
	if err != nil {
		return []ValidationError{{Path: "/", Type: "schema", Message: fmt.Sprintf("failed to load schema: %v", err)}}
	}

	// YAML decoding yields Go ints and other non-JSON types; round-trip
	// through JSON so the validator sees canonical JSON values.
	raw, err := json.Marshal(data)
	if err != nil {
		return []ValidationError{{Path: "/", Type: "type", Message: fmt.Sprintf("document is not JSON-compatible: %v", err)}}
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return []ValidationError{{Path: "/", Type: "type", Message: err.Error()}}
	}

	if validationErr := schema.Validate(doc); validationErr != nil {
		if detailedErr, ok := validationErr.(*jsonschema.ValidationError); ok {
			return convertValidationErrors(detailedErr)
		}
		return []ValidationError{{Path: "/", Type: "validation", Message: validationErr.Error()}}
	}
	return nil
}

// convertValidationErrors flattens jsonschema validation errors, keeping leaves only.
func convertValidationErrors(err *jsonschema.ValidationError) []ValidationError {
	if len(err.Causes) == 0 {
		return []ValidationError{{
			Path:    formatInstanceLocation(err.InstanceLocation),
			Type:    extractErrorType(err),
			Message: err.Error(),
		}}
	}

	var errors []ValidationError
	for _, cause := range err.Causes {
		errors = append(errors, convertValidationErrors(cause)...)
	}
	return errors
}

// formatInstanceLocation formats the instance location as a JSON path.
func formatInstanceLocation(loc []string) string {
	if len(loc) == 0 {
		return "/"
	}
	return "/" + strings.Join(loc, "/")
}

// extractErrorType extracts a simplified error type from the validation error.
func extractErrorType(err *jsonschema.ValidationError) string {
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "required"):
		return "required"
	case strings.Contains(msg, "additional"):
		return "additionalProperties"
	case strings.Contains(msg, "pattern"):
		return "pattern"
	case strings.Contains(msg, "enum") || strings.Contains(msg, "value must be one of"):
		return "enum"
	case strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate"):
		return "unique"
	case strings.Contains(msg, "type"):
		return "type"
	default:
		return "validation"
	}
}
