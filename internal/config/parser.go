package config

import (
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// DetectFormat detects the vocabulary format from a file extension.
// Returns "json", "yaml", or empty string if format cannot be detected.
func DetectFormat(filepath string) string {
	switch strings.ToLower(path.Ext(filepath)) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return ""
	}
}

// ParseFile reads and parses a vocabulary file (JSON or YAML).
// JSON documents are parsed by the YAML decoder, JSON being a subset of YAML.
func ParseFile(filepath string) *Result {
	result := &Result{
		FilePath: filepath,
		Format:   DetectFormat(filepath),
	}
	if result.Format == "" {
		result.Format = "yaml"
	}

	content, err := os.ReadFile(filepath)
	if err != nil {
		result.ParseErrors = append(result.ParseErrors, ParseError{
			Path:    filepath,
			Message: fmt.Sprintf("failed to read file: %v", err),
			Type:    ErrorTypeIO,
		})
		return result
	}

	parsed := ParseString(string(content), result.Format)
	result.Data = parsed.Data
	result.ParseErrors = parsed.ParseErrors
	for i := range result.ParseErrors {
		if result.ParseErrors[i].Path == "" {
			result.ParseErrors[i].Path = filepath
		}
	}
	return result
}

// ParseString parses vocabulary content in the given format.
func ParseString(content string, format string) *Result {
	result := &Result{Format: format}

	if strings.TrimSpace(content) == "" {
		result.ParseErrors = append(result.ParseErrors, ParseError{
			Message: "empty content: expected a vocabulary document",
			Type:    ErrorTypeSyntax,
		})
		return result
	}

	var data map[string]interface{}
	if err := yaml.Unmarshal([]byte(content), &data); err != nil {
		result.ParseErrors = append(result.ParseErrors, parseYAMLError(err))
		return result
	}
	if data == nil {
		result.ParseErrors = append(result.ParseErrors, ParseError{
			Message: "document is not an object",
			Type:    ErrorTypeSyntax,
		})
		return result
	}

	result.Data = data
	return result
}

// parseYAMLError converts a yaml.v3 error into a ParseError with line info.
func parseYAMLError(err error) ParseError {
	parseErr := ParseError{
		Message: err.Error(),
		Type:    ErrorTypeSyntax,
	}

	// The yaml.v3 library includes line info in the error message
	// Format: "yaml: line X: ..."
	if strings.Contains(err.Error(), "yaml: line ") {
		var line int
		if _, scanErr := fmt.Sscanf(err.Error(), "yaml: line %d:", &line); scanErr == nil {
			parseErr.Line = line
		}
	}
	return parseErr
}
