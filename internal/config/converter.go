package config

import (
	"fmt"

	"github.com/WilliamM-L/trouve-mon-spot/pkg/connector"
)

// Overrides holds values set on the command line. Empty fields leave the job
// unchanged.
type Overrides struct {
	InputPath      string
	OutputPath     string
	ExclusionScope string
	MetricsFile    string
}

// ConvertToJob resolves validated job-file data into a connector.Job.
// Missing values fall back to DefaultJob. A nil data map yields the defaults.
//
// The data is expected to have this structure:
//
//	{
//	  "job": {
//	    "name": "...",
//	    "input": "...",
//	    "output": "...",
//	    "exclusionScope": "designated_field",
//	    "metricsFile": "..."
//	  }
//	}
func ConvertToJob(data map[string]interface{}) (*connector.Job, error) {
	job := DefaultJob()
	if data == nil {
		return job, nil
	}

	section, ok := data["job"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'job' section")
	}

	fields := []struct {
		key string
		dst *string
	}{
		{"name", &job.Name},
		{"input", &job.InputPath},
		{"output", &job.OutputPath},
		{"exclusionScope", &job.ExclusionScope},
		{"metricsFile", &job.MetricsFile},
	}
	for _, f := range fields {
		raw, present := section[f.key]
		if !present {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("field 'job.%s' must be a string, got %T", f.key, raw)
		}
		*f.dst = s
	}

	if err := finalize(job); err != nil {
		return nil, err
	}
	return job, nil
}

// ApplyOverrides returns a copy of job with the non-empty overrides applied.
// Changing the scope also switches the fragment list to that scope's defaults.
func ApplyOverrides(job *connector.Job, o Overrides) (*connector.Job, error) {
	out := *job
	if o.InputPath != "" {
		out.InputPath = o.InputPath
	}
	if o.OutputPath != "" {
		out.OutputPath = o.OutputPath
	}
	if o.MetricsFile != "" {
		out.MetricsFile = o.MetricsFile
	}
	if o.ExclusionScope != "" {
		out.ExclusionScope = o.ExclusionScope
	}
	if err := finalize(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// finalize checks the scope and selects the fragment list that belongs to it.
func finalize(job *connector.Job) error {
	patterns := DefaultPatterns(job.ExclusionScope)
	if patterns == nil {
		return fmt.Errorf("invalid exclusion scope %q: must be %q or %q",
			job.ExclusionScope, connector.ScopeAllProperties, connector.ScopeDesignatedField)
	}
	job.ExclusionPatterns = patterns
	if job.DesignatedField == "" {
		job.DesignatedField = DefaultDesignatedField
	}
	if len(job.PropertyAllowlist) == 0 {
		job.PropertyAllowlist = DefaultAllowlist()
	}
	return nil
}

// LoadJob parses, validates and converts a job file. An empty path returns
// DefaultJob. The returned Result carries any parse or validation errors.
func LoadJob(path string) (*connector.Job, *Result, error) {
	if path == "" {
		return DefaultJob(), nil, nil
	}

	result := ParseJobFile(path)
	if !result.IsValid() {
		return nil, result, fmt.Errorf("job file %s is invalid", path)
	}

	job, err := ConvertToJob(result.Data)
	if err != nil {
		return nil, result, err
	}
	return job, result, nil
}
