// Package factory builds the input, filter, and output modules of a job.
//
// The pipeline shape is fixed: a GeoJSON file input, an exclude filter
// followed by a project filter, and a GeoJSON file output. Only the values
// carried by connector.Job vary.
package factory

import (
	"fmt"

	"github.com/WilliamM-L/trouve-mon-spot/internal/modules/filter"
	"github.com/WilliamM-L/trouve-mon-spot/internal/modules/input"
	"github.com/WilliamM-L/trouve-mon-spot/internal/modules/output"
	"github.com/WilliamM-L/trouve-mon-spot/pkg/connector"
)

// Modules groups the modules of one job.
type Modules struct {
	Input   input.Module
	Filters []filter.Module
	Output  output.Module
}

// CreateInputModule creates the input module for job.
func CreateInputModule(job *connector.Job) (input.Module, error) {
	if job == nil {
		return nil, nil
	}
	m, err := input.NewGeoJSONFileFromConfig(input.GeoJSONFileConfig{Path: job.InputPath})
	if err != nil {
		return nil, fmt.Errorf("invalid input config: %w", err)
	}
	return m, nil
}

// CreateFilterModules creates the exclusion filter followed by the projection.
// Exclusion runs first so that the broad scope sees every original property.
func CreateFilterModules(job *connector.Job) ([]filter.Module, error) {
	if job == nil {
		return nil, nil
	}

	exclude, err := filter.NewExcludeFromConfig(filter.ExcludeConfig{
		Scope:    job.ExclusionScope,
		Field:    job.DesignatedField,
		Patterns: job.ExclusionPatterns,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid %s filter config at index 0: %w", filter.ModuleTypeExclude, err)
	}

	project, err := filter.NewProjectFromConfig(filter.ProjectConfig{Allowlist: job.PropertyAllowlist})
	if err != nil {
		return nil, fmt.Errorf("invalid %s filter config at index 1: %w", filter.ModuleTypeProject, err)
	}

	return []filter.Module{exclude, project}, nil
}

// CreateOutputModule creates the output module for job.
func CreateOutputModule(job *connector.Job) (output.Module, error) {
	if job == nil {
		return nil, nil
	}
	m, err := output.NewGeoJSONFileFromConfig(output.GeoJSONFileConfig{Path: job.OutputPath})
	if err != nil {
		return nil, fmt.Errorf("invalid output config: %w", err)
	}
	return m, nil
}

// CreateModules creates every module of job. In dry-run mode no output
// module is created.
func CreateModules(job *connector.Job, dryRun bool) (*Modules, error) {
	if job == nil {
		return nil, fmt.Errorf("job configuration is nil")
	}

	in, err := CreateInputModule(job)
	if err != nil {
		return nil, err
	}
	filters, err := CreateFilterModules(job)
	if err != nil {
		return nil, err
	}

	mods := &Modules{Input: in, Filters: filters}
	if dryRun {
		return mods, nil
	}

	out, err := CreateOutputModule(job)
	if err != nil {
		return nil, err
	}
	mods.Output = out
	return mods, nil
}
