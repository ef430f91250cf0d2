// Package config loads signclean job files (JSON or YAML), validates them
// against an embedded JSON Schema and resolves them into a connector.Job.
package config

import (
	"fmt"
	"strings"
)

// Format names accepted by the parser.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Parse error types.
const (
	ErrorTypeIO     = "io"
	ErrorTypeSyntax = "syntax"
	ErrorTypeFormat = "format"
)

// ParseError is a job-file syntax or I/O error with its location when known.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	// Type is one of ErrorTypeIO, ErrorTypeSyntax or ErrorTypeFormat
	Type string
}

// Error implements the error interface.
func (e ParseError) Error() string {
	var sb strings.Builder
	if e.Path != "" {
		sb.WriteString(e.Path)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		fmt.Fprintf(&sb, "line %d", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&sb, ", column %d", e.Column)
		}
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	return sb.String()
}

// ValidationError is a schema violation at a JSON pointer inside the job file.
type ValidationError struct {
	// Path is the JSON pointer of the offending value, e.g. "/job/exclusionScope"
	Path string
	// Type is a short classification (required, type, enum, ...)
	Type    string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// Result is the outcome of parsing and validating one job file.
type Result struct {
	Data             map[string]interface{}
	ParseErrors      []ParseError
	ValidationErrors []ValidationError
	FilePath         string
	Format           string
}

// IsValid returns true if neither parsing nor validation reported errors.
func (r *Result) IsValid() bool {
	return len(r.ParseErrors) == 0 && len(r.ValidationErrors) == 0
}

// AllErrors returns parse errors followed by validation errors.
func (r *Result) AllErrors() []error {
	errs := make([]error, 0, len(r.ParseErrors)+len(r.ValidationErrors))
	for _, e := range r.ParseErrors {
		errs = append(errs, e)
	}
	for _, e := range r.ValidationErrors {
		errs = append(errs, e)
	}
	return errs
}
