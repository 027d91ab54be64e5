package config

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/payexport/cli/internal/errhandling"
)

//go:embed defaults/vocabulary.yaml
var defaultVocabulary string

// Default returns the embedded default vocabulary.
// It panics if the embedded document is invalid, which is a build defect.
func Default() *Vocabulary {
	vocab, err := load(ParseString(defaultVocabulary, "yaml"))
	if err != nil {
		panic(fmt.Sprintf("embedded vocabulary is invalid: %v", err))
	}
	return vocab
}

// Load loads a vocabulary file. An empty path returns the embedded default.
func Load(path string) (*Vocabulary, error) {
	if path == "" {
		return Default(), nil
	}
	return load(ParseFile(path))
}

// load validates and converts a parse result.
func load(result *Result) (*Vocabulary, error) {
	if result.IsValid() {
		result.ValidationErrors = ValidateVocabulary(result.Data)
	}
	if !result.IsValid() {
		return nil, &LoadError{FilePath: result.FilePath, Errors: result.AllErrors()}
	}

	vocab, errs := ConvertToVocabulary(result.Data)
	if len(errs) > 0 {
		result.ValidationErrors = errs
		return nil, &LoadError{FilePath: result.FilePath, Errors: result.AllErrors()}
	}
	return vocab, nil
}

// LoadError aggregates all problems found in a vocabulary file.
type LoadError struct {
	FilePath string
	Errors   []error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	source := e.FilePath
	if source == "" {
		source = "embedded vocabulary"
	}
	return fmt.Sprintf("invalid vocabulary %s: %s", source, strings.Join(msgs, "; "))
}

// Category reports a bad vocabulary file as a validation failure.
func (e *LoadError) Category() errhandling.ErrorCategory {
	return errhandling.CategoryValidation
}
