package connector_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/WilliamM-L/trouve-mon-spot/pkg/connector"
)

func TestJobJSONSerialization(t *testing.T) {
	job := connector.Job{
		Name:              "signalisation",
		InputPath:         "data/in.geojson.json",
		OutputPath:        "clean_data/out.geojson.json",
		ExclusionScope:    connector.ScopeDesignatedField,
		DesignatedField:   "DESCRIPTION_RPA",
		ExclusionPatterns: []string{"EN TOUT TEMPS"},
		PropertyAllowlist: []string{"DESCRIPTION_RPA", "longitude", "latitude"},
	}

	data, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("Failed to marshal job to JSON: %v", err)
	}

	var decoded connector.Job
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal job from JSON: %v", err)
	}

	if decoded.Name != job.Name {
		t.Errorf("Expected Name %q, got %q", job.Name, decoded.Name)
	}
	if decoded.InputPath != job.InputPath {
		t.Errorf("Expected InputPath %q, got %q", job.InputPath, decoded.InputPath)
	}
	if decoded.ExclusionScope != job.ExclusionScope {
		t.Errorf("Expected ExclusionScope %q, got %q", job.ExclusionScope, decoded.ExclusionScope)
	}
	if len(decoded.PropertyAllowlist) != 3 {
		t.Errorf("Expected 3 allowlisted properties, got %d", len(decoded.PropertyAllowlist))
	}
}

func TestJobJSONFieldNames(t *testing.T) {
	data, err := json.Marshal(connector.Job{InputPath: "in", OutputPath: "out"})
	if err != nil {
		t.Fatalf("Failed to marshal job: %v", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Failed to unmarshal job: %v", err)
	}

	for _, key := range []string{"input", "output", "exclusionScope"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("Expected key %q in serialized job", key)
		}
	}
	if _, ok := raw["metricsFile"]; ok {
		t.Error("Expected empty metricsFile to be omitted")
	}
}

func TestExecutionResultRemaining(t *testing.T) {
	result := connector.ExecutionResult{
		FeaturesRead:    10,
		FeaturesRemoved: 4,
		FeaturesWritten: 6,
	}
	if got := result.Remaining(); got != 6 {
		t.Errorf("Expected 6 remaining features, got %d", got)
	}
}

func TestExecutionResultJSONSerialization(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	result := connector.ExecutionResult{
		RunID:           "run-1",
		JobName:         "signalisation",
		Status:          "error",
		StartedAt:       now,
		CompletedAt:     now.Add(time.Second),
		FeaturesRead:    3,
		FeaturesRemoved: 1,
		Error: &connector.ExecutionError{
			Code:          "OUTPUT_FAILED",
			Message:       "permission denied",
			Module:        "output",
			ErrorCategory: "write",
			Path:          "/root/out.json",
		},
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("Failed to marshal result: %v", err)
	}

	var decoded connector.ExecutionResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal result: %v", err)
	}

	if decoded.Error == nil {
		t.Fatal("Expected error details to round-trip")
	}
	if decoded.Error.ErrorCategory != "write" {
		t.Errorf("Expected category 'write', got %q", decoded.Error.ErrorCategory)
	}
	if !decoded.StartedAt.Equal(now) {
		t.Errorf("Expected StartedAt %v, got %v", now, decoded.StartedAt)
	}
}
