package config

import (
	"fmt"

	"github.com/payexport/cli/pkg/payment"
)

// ConvertToVocabulary converts a schema-valid document into a Vocabulary.
// It also applies the checks the schema cannot express: every field must be
// readable from a payment record and every default field must be offered.
func ConvertToVocabulary(data map[string]interface{}) (*Vocabulary, []ValidationError) {
	if data == nil {
		return nil, []ValidationError{{Path: "/", Type: "required", Message: "vocabulary document is nil"}}
	}

	vocab := &Vocabulary{}
	var errs []ValidationError

	vocab.Version, _ = data["version"].(string)
	vocab.Fields = stringList(data["fields"])
	vocab.DefaultFields = stringList(data["defaultFields"])
	vocab.Statuses = stringList(data["statuses"])
	vocab.Periods = stringList(data["periods"])

	for i, f := range vocab.Fields {
		if !payment.HasAccessor(f) {
			errs = append(errs, ValidationError{
				Path:    fmt.Sprintf("/fields/%d", i),
				Type:    "unknown-field",
				Message: fmt.Sprintf("field %q cannot be read from a payment record", f),
			})
		}
	}

	vocab.index()

	for i, f := range vocab.DefaultFields {
		if !vocab.HasField(f) {
			errs = append(errs, ValidationError{
				Path:    fmt.Sprintf("/defaultFields/%d", i),
				Type:    "unknown-field",
				Message: fmt.Sprintf("default field %q is not listed in fields", f),
			})
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return vocab, nil
}

// stringList converts a decoded YAML/JSON array into a string slice.
// Non-string items are skipped; the schema has already rejected them.
func stringList(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
