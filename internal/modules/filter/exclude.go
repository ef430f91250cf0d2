package filter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/WilliamM-L/trouve-mon-spot/internal/logger"
	"github.com/WilliamM-L/trouve-mon-spot/pkg/connector"
	"github.com/WilliamM-L/trouve-mon-spot/pkg/geojson"
)

// ModuleTypeExclude identifies the exclusion filter.
const ModuleTypeExclude = "exclude"

// ExcludeConfig represents the configuration for an exclude filter module.
type ExcludeConfig struct {
	// Scope is connector.ScopeAllProperties or connector.ScopeDesignatedField
	Scope string `json:"scope"`
	// Field is the property inspected under connector.ScopeDesignatedField
	Field string `json:"field"`
	// Patterns are literal, case-sensitive substrings
	Patterns []string `json:"patterns"`
}

// ExcludeModule drops every feature whose text contains one of the patterns.
//
// Under ScopeAllProperties each string-valued property is inspected; numbers,
// booleans, null and nested values are never matched. Under
// ScopeDesignatedField only the configured field is inspected, and a feature
// where that field is absent or not a string is kept.
type ExcludeModule struct {
	scope    string
	field    string
	patterns []string
}

// NewExcludeFromConfig creates a new exclude filter module from configuration.
// Empty patterns are discarded since they would match every string.
func NewExcludeFromConfig(config ExcludeConfig) (*ExcludeModule, error) {
	switch config.Scope {
	case connector.ScopeAllProperties:
	case connector.ScopeDesignatedField:
		if strings.TrimSpace(config.Field) == "" {
			return nil, errors.New("a designated field is required for scope 'designated_field'")
		}
	default:
		return nil, fmt.Errorf("unknown exclusion scope %q", config.Scope)
	}

	seen := make(map[string]bool)
	patterns := make([]string, 0, len(config.Patterns))
	for _, p := range config.Patterns {
		if p != "" && !seen[p] {
			seen[p] = true
			patterns = append(patterns, p)
		}
	}
	if len(patterns) == 0 {
		return nil, errors.New("at least one non-empty exclusion pattern is required")
	}

	logger.Debug("exclude filter module initialized",
		"scope", config.Scope,
		"field", config.Field,
		"patterns", len(patterns),
	)

	return &ExcludeModule{
		scope:    config.Scope,
		field:    config.Field,
		patterns: patterns,
	}, nil
}

// Scope returns the configured exclusion scope.
func (m *ExcludeModule) Scope() string {
	return m.scope
}

// Matches reports whether the feature should be excluded.
func (m *ExcludeModule) Matches(f geojson.Feature) bool {
	_, ok := m.MatchedPattern(f)
	return ok
}

// MatchedPattern returns the first pattern found in the feature's text.
// Under ScopeAllProperties the property visited first is unspecified, so
// only the boolean result is stable when several properties match.
func (m *ExcludeModule) MatchedPattern(f geojson.Feature) (string, bool) {
	if m.scope == connector.ScopeDesignatedField {
		text, ok := f.Properties[m.field].(string)
		if !ok {
			return "", false
		}
		return m.search(text)
	}

	for _, v := range f.Properties {
		text, ok := v.(string)
		if !ok {
			continue
		}
		if p, found := m.search(text); found {
			return p, true
		}
	}
	return "", false
}

func (m *ExcludeModule) search(text string) (string, bool) {
	for _, p := range m.patterns {
		if strings.Contains(text, p) {
			return p, true
		}
	}
	return "", false
}

// Process implements the filter.Module interface.
// It returns the features that match no pattern, in their original order.
func (m *ExcludeModule) Process(ctx context.Context, features []geojson.Feature) ([]geojson.Feature, error) {
	if err := canceled(ctx); err != nil {
		return nil, err
	}

	kept := make([]geojson.Feature, 0, len(features))
	for i, f := range features {
		if i > 0 && i%checkInterval == 0 {
			if err := canceled(ctx); err != nil {
				return nil, err
			}
		}

		if p, ok := m.MatchedPattern(f); ok {
			logger.Debug("feature excluded", "index", i, "pattern", p)
			continue
		}
		kept = append(kept, f)
	}

	return kept, nil
}

// Verify interface compliance at compile time
var _ Module = (*ExcludeModule)(nil)
