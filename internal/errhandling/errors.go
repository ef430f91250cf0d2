// Package errhandling provides error types and classification utilities.
// This file defines the error categories surfaced by the cleaning runtime,
// classification functions, and helper constructors.
//
// Every category is fatal: a run that fails is never retried and never leaves
// partial output behind.
package errhandling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// ErrorCategory represents the type/category of an error.
type ErrorCategory string

// Error categories for classification.
const (
	// CategoryNotFound represents a missing or unreadable input path.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryParse represents input that is not a well-formed FeatureCollection,
	// or a job file that is not well-formed JSON/YAML.
	CategoryParse ErrorCategory = "parse"

	// CategoryWrite represents an output directory or file that cannot be
	// created or written.
	CategoryWrite ErrorCategory = "write"

	// CategoryValidation represents a job configuration that violates the schema
	// or names an unknown exclusion scope.
	CategoryValidation ErrorCategory = "validation"

	// CategoryCanceled represents a run interrupted through its context.
	CategoryCanceled ErrorCategory = "canceled"

	// CategoryUnknown represents unclassified errors.
	CategoryUnknown ErrorCategory = "unknown"
)

// ClassifiedError wraps an error with classification metadata.
type ClassifiedError struct {
	// Category is the error classification category.
	Category ErrorCategory

	// Path is the file involved, empty when not applicable.
	Path string

	// Line and Column locate parse errors (1-based, 0 if unknown).
	Line   int
	Column int

	// Message is a human-readable error message.
	Message string

	// OriginalErr is the underlying error that was classified.
	OriginalErr error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Category))
	sb.WriteString(" error")
	if e.Path != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Path)
		if e.Line > 0 {
			sb.WriteString(fmt.Sprintf(":%d", e.Line))
			if e.Column > 0 {
				sb.WriteString(fmt.Sprintf(":%d", e.Column))
			}
		}
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	return sb.String()
}

// Unwrap returns the original error for use with errors.Is and errors.As.
func (e *ClassifiedError) Unwrap() error {
	return e.OriginalErr
}

// NewNotFoundError creates a ClassifiedError for a missing input path.
func NewNotFoundError(path, message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryNotFound,
		Path:        path,
		Message:     message,
		OriginalErr: originalErr,
	}
}

// NewParseError creates a ClassifiedError for malformed input.
func NewParseError(path, message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryParse,
		Path:        path,
		Message:     message,
		OriginalErr: originalErr,
	}
}

// NewParseErrorAt creates a parse error located at a byte offset of content.
func NewParseErrorAt(path string, content []byte, offset int64, message string, originalErr error) *ClassifiedError {
	e := NewParseError(path, message, originalErr)
	e.Line, e.Column = OffsetToLineColumn(content, offset)
	return e
}

// NewWriteError creates a ClassifiedError for output that cannot be written.
func NewWriteError(path, message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryWrite,
		Path:        path,
		Message:     message,
		OriginalErr: originalErr,
	}
}

// NewValidationError creates a ClassifiedError for invalid job configuration.
func NewValidationError(message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryValidation,
		Message:     message,
		OriginalErr: originalErr,
	}
}

// ClassifyError classifies any error into a ClassifiedError.
// Already classified errors are returned as-is.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return &ClassifiedError{
			Category: CategoryUnknown,
			Message:  "nil error",
		}
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &ClassifiedError{
			Category:    CategoryCanceled,
			Message:     "run canceled",
			OriginalErr: err,
		}
	}

	var pathErr *fs.PathError
	if errors.Is(err, fs.ErrNotExist) {
		c := &ClassifiedError{
			Category:    CategoryNotFound,
			Message:     "file does not exist",
			OriginalErr: err,
		}
		if errors.As(err, &pathErr) {
			c.Path = pathErr.Path
		}
		return c
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &ClassifiedError{
			Category:    CategoryParse,
			Message:     err.Error(),
			OriginalErr: err,
		}
	}

	return &ClassifiedError{
		Category:    CategoryUnknown,
		Message:     err.Error(),
		OriginalErr: err,
	}
}

// IsFatal returns true if the error halts a run.
// Cancellation is not reported as fatal: the operator asked for it.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	switch GetErrorCategory(err) {
	case CategoryCanceled:
		return false
	default:
		return true
	}
}

// GetErrorCategory returns the error category for a given error.
// Returns CategoryUnknown for nil errors.
func GetErrorCategory(err error) ErrorCategory {
	if err == nil {
		return CategoryUnknown
	}
	return ClassifyError(err).Category
}

// IsNotFound reports whether err is classified as CategoryNotFound.
func IsNotFound(err error) bool {
	return err != nil && GetErrorCategory(err) == CategoryNotFound
}

// IsParse reports whether err is classified as CategoryParse.
func IsParse(err error) bool {
	return err != nil && GetErrorCategory(err) == CategoryParse
}

// IsWrite reports whether err is classified as CategoryWrite.
func IsWrite(err error) bool {
	return err != nil && GetErrorCategory(err) == CategoryWrite
}

// OffsetToLineColumn converts a byte offset to line and column numbers (1-based).
func OffsetToLineColumn(content []byte, offset int64) (line, column int) {
	if offset <= 0 {
		return 1, 1
	}

	line = 1
	column = 1
	for i := int64(0); i < offset && i < int64(len(content)); i++ {
		if content[i] == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return line, column
}
