package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/WilliamM-L/trouve-mon-spot/internal/errhandling"
)

// ParseJobFile reads, parses and validates a job file.
// The format is taken from the extension (.json, .yaml, .yml) and otherwise
// detected from the content.
func ParseJobFile(path string) *Result {
	result := &Result{FilePath: path}

	content, err := os.ReadFile(path)
	if err != nil {
		result.ParseErrors = append(result.ParseErrors, ParseError{
			Path:    path,
			Message: fmt.Sprintf("failed to read file: %v", err),
			Type:    ErrorTypeIO,
		})
		return result
	}

	parsed := ParseJobString(string(content), DetectFormat(path))
	parsed.FilePath = path
	for i := range parsed.ParseErrors {
		if parsed.ParseErrors[i].Path == "" {
			parsed.ParseErrors[i].Path = path
		}
	}
	return parsed
}

// ParseJobString parses and validates job content. An empty format means
// auto-detect.
func ParseJobString(content string, format string) *Result {
	result := &Result{Format: format}

	if format == "" {
		switch {
		case IsJSON(content):
			format = FormatJSON
		case IsYAML(content):
			format = FormatYAML
		default:
			result.ParseErrors = append(result.ParseErrors, ParseError{
				Message: "unable to detect job file format: not valid JSON or YAML",
				Type:    ErrorTypeFormat,
			})
			return result
		}
		result.Format = format
	}

	var (
		data map[string]interface{}
		perr *ParseError
	)
	switch format {
	case FormatJSON:
		data, perr = parseJSON(content)
	case FormatYAML:
		data, perr = parseYAML(content)
	default:
		perr = &ParseError{Message: fmt.Sprintf("unsupported format: %s", format), Type: ErrorTypeFormat}
	}
	if perr != nil {
		result.ParseErrors = append(result.ParseErrors, *perr)
		return result
	}

	result.Data = data
	result.ValidationErrors = ValidateJob(data)
	return result
}

func parseJSON(content string) (map[string]interface{}, *ParseError) {
	if strings.TrimSpace(content) == "" {
		return nil, &ParseError{Message: "empty content: expected JSON object", Type: ErrorTypeSyntax}
	}

	var data interface{}
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		perr := &ParseError{Message: err.Error(), Type: ErrorTypeSyntax}

		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &syntaxErr):
			perr.Line, perr.Column = errhandling.OffsetToLineColumn([]byte(content), syntaxErr.Offset)
			perr.Message = fmt.Sprintf("JSON syntax error: %s", syntaxErr.Error())
		case errors.As(err, &typeErr):
			perr.Line, perr.Column = errhandling.OffsetToLineColumn([]byte(content), typeErr.Offset)
		}
		return nil, perr
	}

	return asObject(data, "JSON object")
}

func parseYAML(content string) (map[string]interface{}, *ParseError) {
	if strings.TrimSpace(content) == "" {
		return nil, &ParseError{Message: "empty content: expected YAML document", Type: ErrorTypeSyntax}
	}

	var data interface{}
	if err := yaml.Unmarshal([]byte(content), &data); err != nil {
		perr := &ParseError{Message: err.Error(), Type: ErrorTypeSyntax}

		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) {
			perr.Message = fmt.Sprintf("YAML type error: %s", strings.Join(typeErr.Errors, "; "))
		}
		// yaml.v3 reports locations as "yaml: line N: ..."
		var line int
		if _, scanErr := fmt.Sscanf(err.Error(), "yaml: line %d:", &line); scanErr == nil {
			perr.Line = line
		}
		return nil, perr
	}

	return asObject(data, "YAML mapping")
}

func asObject(data interface{}, want string) (map[string]interface{}, *ParseError) {
	if data == nil {
		return nil, &ParseError{Message: fmt.Sprintf("invalid job file: expected %s, got null", want), Type: ErrorTypeFormat}
	}
	m, ok := data.(map[string]interface{})
	if !ok {
		return nil, &ParseError{Message: fmt.Sprintf("invalid job file: expected %s, got %T", want, data), Type: ErrorTypeFormat}
	}
	return m, nil
}

// DetectFormat returns the format implied by the file extension, or "".
func DetectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return ""
	}
}

// IsJSON reports whether content looks like a JSON document.
func IsJSON(content string) bool {
	content = strings.TrimSpace(content)
	return strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[")
}

// IsYAML reports whether content parses as a non-empty YAML document.
// JSON is valid YAML, so this is also true for JSON content.
func IsYAML(content string) bool {
	if strings.TrimSpace(content) == "" {
		return false
	}
	var data interface{}
	err := yaml.Unmarshal([]byte(content), &data)
	return err == nil && data != nil
}
