package filter

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/WilliamM-L/trouve-mon-spot/pkg/connector"
	"github.com/WilliamM-L/trouve-mon-spot/pkg/geojson"
)

func feature(props map[string]interface{}) geojson.Feature {
	return geojson.Feature{
		Type:       geojson.TypeFeature,
		Properties: props,
		Geometry:   json.RawMessage(`{"type":"Point","coordinates":[-73.56,45.5]}`),
	}
}

func TestNewExcludeFromConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  ExcludeConfig
		wantErr bool
		errMsg  string
	}{
		{
			name:    "unknown scope",
			config:  ExcludeConfig{Scope: "everything", Patterns: []string{"X"}},
			wantErr: true,
			errMsg:  "unknown exclusion scope",
		},
		{
			name:    "designated scope without field",
			config:  ExcludeConfig{Scope: connector.ScopeDesignatedField, Patterns: []string{"X"}},
			wantErr: true,
			errMsg:  "designated field is required",
		},
		{
			name:    "no patterns",
			config:  ExcludeConfig{Scope: connector.ScopeAllProperties},
			wantErr: true,
			errMsg:  "at least one non-empty exclusion pattern",
		},
		{
			name:    "only empty patterns",
			config:  ExcludeConfig{Scope: connector.ScopeAllProperties, Patterns: []string{"", ""}},
			wantErr: true,
			errMsg:  "at least one non-empty exclusion pattern",
		},
		{
			name:   "broad scope",
			config: ExcludeConfig{Scope: connector.ScopeAllProperties, Patterns: []string{"PANONCEAU"}},
		},
		{
			name: "narrow scope",
			config: ExcludeConfig{
				Scope:    connector.ScopeDesignatedField,
				Field:    "DESCRIPTION_RPA",
				Patterns: []string{"PANONCEAU", "PANONCEAU"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewExcludeFromConfig(tt.config)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error = %q, want it to contain %q", err.Error(), tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.Scope() != tt.config.Scope {
				t.Errorf("Scope() = %q, want %q", m.Scope(), tt.config.Scope)
			}
		})
	}
}

func TestExcludeModule_DeduplicatesPatterns(t *testing.T) {
	m, err := NewExcludeFromConfig(ExcludeConfig{
		Scope:    connector.ScopeAllProperties,
		Patterns: []string{"A", "", "B", "A"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.patterns) != 2 || m.patterns[0] != "A" || m.patterns[1] != "B" {
		t.Errorf("patterns = %v, want [A B]", m.patterns)
	}
}

func TestExcludeModule_Matches_DesignatedField(t *testing.T) {
	m, err := NewExcludeFromConfig(ExcludeConfig{
		Scope:    connector.ScopeDesignatedField,
		Field:    "DESCRIPTION_RPA",
		Patterns: []string{"EN TOUT TEMPS", "P 5 MIN."},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name  string
		props map[string]interface{}
		want  bool
	}{
		{"exact match", map[string]interface{}{"DESCRIPTION_RPA": "EN TOUT TEMPS"}, true},
		{"substring match", map[string]interface{}{"DESCRIPTION_RPA": `\P 08h-09h EN TOUT TEMPS`}, true},
		{"dot is literal", map[string]interface{}{"DESCRIPTION_RPA": "P 5 MINX"}, false},
		{"case sensitive", map[string]interface{}{"DESCRIPTION_RPA": "en tout temps"}, false},
		{"other field ignored", map[string]interface{}{"DESCRIPTION_REP": "EN TOUT TEMPS"}, false},
		{"field absent", map[string]interface{}{}, false},
		{"field null", map[string]interface{}{"DESCRIPTION_RPA": nil}, false},
		{"field numeric", map[string]interface{}{"DESCRIPTION_RPA": json.Number("5")}, false},
		{"nil properties", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Matches(feature(tt.props)); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExcludeModule_Matches_AllProperties(t *testing.T) {
	m, err := NewExcludeFromConfig(ExcludeConfig{
		Scope:    connector.ScopeAllProperties,
		Patterns: []string{"PANONCEAU ZONE DE REMORQUAGE", `\P RESERVE TAXIS`, "5"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name  string
		props map[string]interface{}
		want  bool
	}{
		{"any string property", map[string]interface{}{"NOTE": "PANONCEAU ZONE DE REMORQUAGE"}, true},
		{"backslash kept literal", map[string]interface{}{"DESCRIPTION_RPA": `\P RESERVE TAXIS 7h-19h`}, true},
		{"missing backslash", map[string]interface{}{"DESCRIPTION_RPA": "P RESERVE TAXIS"}, false},
		{"number never matched", map[string]interface{}{"CODE": json.Number("5")}, false},
		{"bool never matched", map[string]interface{}{"FLAG": true}, false},
		{"nested never matched", map[string]interface{}{"META": map[string]interface{}{"n": "5"}}, false},
		{"string digit matched", map[string]interface{}{"CODE": "15"}, true},
		{"no properties", map[string]interface{}{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Matches(feature(tt.props)); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExcludeModule_MatchedPattern(t *testing.T) {
	m, err := NewExcludeFromConfig(ExcludeConfig{
		Scope:    connector.ScopeDesignatedField,
		Field:    "DESCRIPTION_RPA",
		Patterns: []string{"PANONCEAU", "LIVRAISON SEULEMENT"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, ok := m.MatchedPattern(feature(map[string]interface{}{"DESCRIPTION_RPA": "LIVRAISON SEULEMENT 7h-9h"}))
	if !ok || p != "LIVRAISON SEULEMENT" {
		t.Errorf("MatchedPattern() = (%q, %v), want (%q, true)", p, ok, "LIVRAISON SEULEMENT")
	}
}

func TestExcludeModule_Process(t *testing.T) {
	m, err := NewExcludeFromConfig(ExcludeConfig{
		Scope:    connector.ScopeDesignatedField,
		Field:    "DESCRIPTION_RPA",
		Patterns: []string{"EN TOUT TEMPS"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	in := []geojson.Feature{
		feature(map[string]interface{}{"DESCRIPTION_RPA": "STATIONNEMENT INTERDIT", "id": "1"}),
		feature(map[string]interface{}{"DESCRIPTION_RPA": "EN TOUT TEMPS", "id": "2"}),
		feature(map[string]interface{}{"DESCRIPTION_RPA": "2h MAX", "id": "3"}),
		feature(map[string]interface{}{"DESCRIPTION_RPA": "ARRET INTERDIT EN TOUT TEMPS", "id": "4"}),
		feature(map[string]interface{}{"id": "5"}),
	}

	out, err := m.Process(context.Background(), in)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	wantIDs := []string{"1", "3", "5"}
	if len(out) != len(wantIDs) {
		t.Fatalf("Process() kept %d features, want %d", len(out), len(wantIDs))
	}
	for i, id := range wantIDs {
		if got := out[i].Properties["id"]; got != id {
			t.Errorf("out[%d].id = %v, want %s", i, got, id)
		}
	}
	if len(in) != 5 {
		t.Errorf("input slice was modified: len = %d", len(in))
	}
}

func TestExcludeModule_Process_Empty(t *testing.T) {
	m, err := NewExcludeFromConfig(ExcludeConfig{Scope: connector.ScopeAllProperties, Patterns: []string{"X"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := m.Process(context.Background(), nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Errorf("Process(nil) = %v, want empty non-nil slice", out)
	}
}

func TestExcludeModule_Process_Canceled(t *testing.T) {
	m, err := NewExcludeFromConfig(ExcludeConfig{Scope: connector.ScopeAllProperties, Patterns: []string{"X"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = m.Process(ctx, []geojson.Feature{feature(nil)})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Process() error = %v, want context.Canceled", err)
	}
}
