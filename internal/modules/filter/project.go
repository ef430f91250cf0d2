package filter

import (
	"context"
	"errors"

	"github.com/WilliamM-L/trouve-mon-spot/internal/logger"
	"github.com/WilliamM-L/trouve-mon-spot/pkg/geojson"
)

// ModuleTypeProject identifies the property projection filter.
const ModuleTypeProject = "project"

// ProjectConfig represents the configuration for a project filter module.
type ProjectConfig struct {
	// Allowlist names the property keys to keep
	Allowlist []string `json:"allowlist"`
}

// ProjectModule reduces every feature's properties to an allowlist.
// Allowlisted keys absent from a feature stay absent; keys present with a null
// value are kept as null. Geometry and type are passed through untouched.
type ProjectModule struct {
	allowlist []string
}

// NewProjectFromConfig creates a new project filter module from configuration.
func NewProjectFromConfig(config ProjectConfig) (*ProjectModule, error) {
	seen := make(map[string]bool)
	keys := make([]string, 0, len(config.Allowlist))
	for _, k := range config.Allowlist {
		if k != "" && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, errors.New("at least one non-empty allowlisted property is required")
	}

	logger.Debug("project filter module initialized", "allowlist", keys)

	return &ProjectModule{allowlist: keys}, nil
}

// Project returns a copy of f whose properties hold only allowlisted keys.
// The input feature is not modified.
func (m *ProjectModule) Project(f geojson.Feature) geojson.Feature {
	props := make(map[string]interface{}, len(m.allowlist))
	for _, k := range m.allowlist {
		if v, ok := f.Properties[k]; ok {
			props[k] = v
		}
	}
	return geojson.Feature{
		Type:       f.Type,
		Properties: props,
		Geometry:   f.Geometry,
	}
}

// Process implements the filter.Module interface.
func (m *ProjectModule) Process(ctx context.Context, features []geojson.Feature) ([]geojson.Feature, error) {
	if err := canceled(ctx); err != nil {
		return nil, err
	}

	result := make([]geojson.Feature, 0, len(features))
	for i, f := range features {
		if i > 0 && i%checkInterval == 0 {
			if err := canceled(ctx); err != nil {
				return nil, err
			}
		}
		result = append(result, m.Project(f))
	}

	return result, nil
}

// Verify interface compliance at compile time
var _ Module = (*ProjectModule)(nil)
