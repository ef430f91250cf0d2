// Package runtime provides error types and classification for job execution.
// This file re-exports error handling utilities from the errhandling package.
package runtime

import (
	"github.com/WilliamM-L/trouve-mon-spot/internal/errhandling"
)

// ErrorCategory represents the category of an error (re-exported from errhandling).
type ErrorCategory = errhandling.ErrorCategory

// ClassifiedError represents a classified error (re-exported from errhandling).
type ClassifiedError = errhandling.ClassifiedError

// Re-export error category constants
const (
	CategoryNotFound   = errhandling.CategoryNotFound
	CategoryParse      = errhandling.CategoryParse
	CategoryWrite      = errhandling.CategoryWrite
	CategoryValidation = errhandling.CategoryValidation
	CategoryCanceled   = errhandling.CategoryCanceled
	CategoryUnknown    = errhandling.CategoryUnknown
)

// Re-export functions
var (
	ClassifyError    = errhandling.ClassifyError
	IsFatal          = errhandling.IsFatal
	GetErrorCategory = errhandling.GetErrorCategory
	IsNotFound       = errhandling.IsNotFound
	IsParse          = errhandling.IsParse
	IsWrite          = errhandling.IsWrite
)
