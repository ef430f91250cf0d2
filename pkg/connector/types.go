// Package connector provides public types describing a signage cleaning job
// and the result of running it. This package is intended to be importable by
// external projects that drive the runtime programmatically.
package connector

import "time"

// Exclusion scopes select which property values the exclusion predicate inspects.
const (
	// ScopeAllProperties scans every string-valued property of a feature.
	ScopeAllProperties = "all_properties"
	// ScopeDesignatedField scans only the designated regulatory-description field.
	ScopeDesignatedField = "designated_field"
)

// Job represents a complete cleaning job configuration.
// Every value the pipeline needs is carried explicitly so that jobs can be
// built in tests with small synthetic datasets.
type Job struct {
	// Name is the human-readable name of the job
	Name string `json:"name"`

	// InputPath is the GeoJSON FeatureCollection to read
	InputPath string `json:"input"`

	// OutputPath is where the cleaned collection is written
	OutputPath string `json:"output"`

	// ExclusionScope is ScopeAllProperties or ScopeDesignatedField
	ExclusionScope string `json:"exclusionScope"`

	// DesignatedField is the property inspected under ScopeDesignatedField
	DesignatedField string `json:"designatedField,omitempty"`

	// ExclusionPatterns are the literal fragments that exclude a feature
	ExclusionPatterns []string `json:"exclusionPatterns"`

	// PropertyAllowlist are the property names retained on surviving features
	PropertyAllowlist []string `json:"propertyAllowlist"`

	// MetricsFile is an optional Prometheus textfile written after the run
	MetricsFile string `json:"metricsFile,omitempty"`
}

// ExecutionResult represents the result of a job execution.
type ExecutionResult struct {
	// RunID uniquely identifies this execution in logs and metrics
	RunID string `json:"runId"`

	// JobName is the name of the executed job
	JobName string `json:"jobName"`

	// Status is the execution status ("success", "error")
	Status string `json:"status"`

	// StartedAt is when execution started
	StartedAt time.Time `json:"startedAt"`

	// CompletedAt is when execution completed
	CompletedAt time.Time `json:"completedAt"`

	// FeaturesRead is the number of features in the input collection
	FeaturesRead int `json:"featuresRead"`

	// FeaturesRemoved is the number of features dropped by exclusion
	FeaturesRemoved int `json:"featuresRemoved"`

	// FeaturesWritten is the number of features in the output collection
	FeaturesWritten int `json:"featuresWritten"`

	// DryRun is true when the write stage was skipped
	DryRun bool `json:"dryRun,omitempty"`

	// Error contains error details if execution failed
	Error *ExecutionError `json:"error,omitempty"`
}

// Remaining returns the number of features that survived exclusion.
func (r *ExecutionResult) Remaining() int {
	return r.FeaturesRead - r.FeaturesRemoved
}

// ExecutionError contains details about an execution failure.
type ExecutionError struct {
	// Code is the error code (INPUT_FAILED, FILTER_FAILED, OUTPUT_FAILED, INVALID_INPUT)
	Code string `json:"code"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// Module is the stage where the error occurred
	Module string `json:"module,omitempty"`

	// ErrorCategory is the classified category (not_found, parse, write, ...)
	ErrorCategory string `json:"errorCategory,omitempty"`

	// Path is the file involved in the failure, if any
	Path string `json:"path,omitempty"`

	// Details contains additional error context
	Details map[string]interface{} `json:"details,omitempty"`
}
