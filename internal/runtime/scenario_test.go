package runtime_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WilliamM-L/trouve-mon-spot/internal/config"
	"github.com/WilliamM-L/trouve-mon-spot/internal/errhandling"
	"github.com/WilliamM-L/trouve-mon-spot/internal/factory"
	"github.com/WilliamM-L/trouve-mon-spot/internal/runtime"
	"github.com/WilliamM-L/trouve-mon-spot/pkg/connector"
	"github.com/WilliamM-L/trouve-mon-spot/pkg/geojson"
)

const signage = `{
  "type": "FeatureCollection",
  "name": "signalisation_stationnement",
  "features": [
    {"type": "Feature", "properties": {"POTEAU_ID_POT": 1, "DESCRIPTION_RPA": "STATIONNEMENT INTERDIT 9h-17h", "DESCRIPTION_CAT": "STATIONNEMENT", "DESCRIPTION_REP": "Réel", "longitude": -73.5612345678901, "latitude": 45.50123, "NOM_ARROND": "Ville-Marie", "X": 299000.1}, "geometry": {"type": "Point", "coordinates": [-73.5612345678901, 45.50123]}},
    {"type": "Feature", "properties": {"POTEAU_ID_POT": 2, "DESCRIPTION_RPA": "EN TOUT TEMPS", "NOM_ARROND": "Plateau-Mont-Royal"}, "geometry": {"type": "Point", "coordinates": [-73.58, 45.52]}},
    {"type": "Feature", "properties": {"POTEAU_ID_POT": 3, "DESCRIPTION_RPA": "PANONCEAU ZONE DE REMORQUAGE", "longitude": -73.6}, "geometry": null},
    {"type": "Feature", "properties": {"POTEAU_ID_POT": 4, "DESCRIPTION_RPA": "2h MAX 8h-18h", "NOTE": "\\P RESERVE TAXIS", "NOM_ARROND": "Verdun", "DESCRIPTION_CAT": null}, "geometry": {"type": "Point", "coordinates": [-73.57, 45.46]}},
    {"type": "Feature", "properties": {"POTEAU_ID_POT": 5, "DESCRIPTION_RPA": "P 5 MIN. 7h-19h"}, "geometry": {"type": "Point", "coordinates": [-73.55, 45.49]}},
    {"type": "Feature", "properties": {"POTEAU_ID_POT": 6, "DESCRIPTION_RPA": "\\P 09h-12h LUN. AU VEN. <école>"}, "geometry": {"type": "Point", "coordinates": [-73.54, 45.48]}}
  ]
}`

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "signalisation_stationnement.geojson.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func jobFor(t *testing.T, input, scope string) *connector.Job {
	t.Helper()
	job, err := config.ApplyOverrides(config.DefaultJob(), config.Overrides{
		InputPath:      input,
		OutputPath:     filepath.Join(t.TempDir(), "clean_data", "nested", "cleaned.geojson.json"),
		ExclusionScope: scope,
	})
	require.NoError(t, err)
	return job
}

func run(t *testing.T, job *connector.Job) (*connector.ExecutionResult, error) {
	t.Helper()
	mods, err := factory.CreateModules(job, false)
	require.NoError(t, err)
	return runtime.NewExecutorWithModules(mods.Input, mods.Filters, mods.Output, false).
		ExecuteWithContext(context.Background(), job)
}

func readOutput(t *testing.T, path string) *geojson.FeatureCollection {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	fc, err := geojson.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return fc
}

func ids(fc *geojson.FeatureCollection) []string {
	out := make([]string, 0, len(fc.Features))
	for _, f := range fc.Features {
		out = append(out, f.Properties["DESCRIPTION_RPA"].(string))
	}
	return out
}

func TestScenario_DesignatedFieldRemovesExactMatch(t *testing.T) {
	input := writeInput(t, `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"DESCRIPTION_RPA":"EN TOUT TEMPS"},"geometry":null}
	]}`)
	job := jobFor(t, input, connector.ScopeDesignatedField)

	result, err := run(t, job)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FeaturesRead)
	assert.Equal(t, 1, result.FeaturesRemoved)
	assert.Equal(t, 0, result.FeaturesWritten)
	assert.Empty(t, readOutput(t, job.OutputPath).Features)
}

func TestScenario_ProjectionDropsUnlistedKeys(t *testing.T) {
	input := writeInput(t, `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"DESCRIPTION_RPA":"STATIONNEMENT INTERDIT","OTHER_FIELD":"irrelevant"},"geometry":{"type":"Point","coordinates":[1,2]}}
	]}`)
	job := jobFor(t, input, connector.ScopeDesignatedField)
	job.PropertyAllowlist = []string{"DESCRIPTION_RPA", "longitude", "latitude"}

	_, err := run(t, job)
	require.NoError(t, err)

	fc := readOutput(t, job.OutputPath)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, map[string]interface{}{"DESCRIPTION_RPA": "STATIONNEMENT INTERDIT"}, fc.Features[0].Properties)
}

func TestScenario_EmptyCollection(t *testing.T) {
	input := writeInput(t, `{"type":"FeatureCollection","features":[]}`)
	job := jobFor(t, input, connector.ScopeAllProperties)

	result, err := run(t, job)
	require.NoError(t, err)
	assert.Zero(t, result.FeaturesRead)
	assert.Zero(t, result.FeaturesRemoved)
	assert.Zero(t, result.FeaturesWritten)

	data, err := os.ReadFile(job.OutputPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, string(data))
}

func TestScenario_MissingInputCreatesNoOutput(t *testing.T) {
	job := jobFor(t, filepath.Join(t.TempDir(), "nope.geojson.json"), connector.ScopeDesignatedField)

	result, err := run(t, job)
	require.Error(t, err)
	assert.True(t, errhandling.IsNotFound(err))
	assert.Equal(t, runtime.ErrCodeInputFailed, result.Error.Code)

	_, statErr := os.Stat(job.OutputPath)
	assert.True(t, os.IsNotExist(statErr), "output file must not be created")
	_, statErr = os.Stat(filepath.Dir(job.OutputPath))
	assert.True(t, os.IsNotExist(statErr), "output directory must not be created")
}

func TestScenario_MalformedInput(t *testing.T) {
	input := writeInput(t, `{"type":"FeatureCollection","features":[{"type":"Feature",}]}`)
	job := jobFor(t, input, connector.ScopeDesignatedField)

	_, err := run(t, job)
	require.Error(t, err)
	assert.True(t, errhandling.IsParse(err))
	_, statErr := os.Stat(job.OutputPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestScenario_UnwritableOutput(t *testing.T) {
	input := writeInput(t, signage)
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	job := jobFor(t, input, connector.ScopeDesignatedField)
	job.OutputPath = filepath.Join(blocker, "out.json")

	result, err := run(t, job)
	require.Error(t, err)
	assert.True(t, errhandling.IsWrite(err))
	assert.Equal(t, runtime.ErrCodeOutputFailed, result.Error.Code)
}

func TestScopes(t *testing.T) {
	tests := []struct {
		scope string
		want  []string
	}{
		{
			scope: connector.ScopeDesignatedField,
			want:  []string{"STATIONNEMENT INTERDIT 9h-17h", "2h MAX 8h-18h", `\P 09h-12h LUN. AU VEN. <école>`},
		},
		{
			// The broad list has no bare "EN TOUT TEMPS" and NOTE carries a taxi reservation.
			scope: connector.ScopeAllProperties,
			want:  []string{"STATIONNEMENT INTERDIT 9h-17h", "EN TOUT TEMPS", `\P 09h-12h LUN. AU VEN. <école>`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.scope, func(t *testing.T) {
			job := jobFor(t, writeInput(t, signage), tt.scope)

			result, err := run(t, job)
			require.NoError(t, err)

			fc := readOutput(t, job.OutputPath)
			assert.Equal(t, tt.want, ids(fc), "survivors in input order")

			// Counts are conserved.
			assert.Equal(t, 6, result.FeaturesRead)
			assert.Equal(t, result.FeaturesRead, result.FeaturesRemoved+result.FeaturesWritten)
			assert.Equal(t, len(fc.Features), result.FeaturesWritten)

			// Only allowlisted keys survive.
			allowed := map[string]bool{}
			for _, k := range job.PropertyAllowlist {
				allowed[k] = true
			}
			for _, f := range fc.Features {
				for k := range f.Properties {
					assert.True(t, allowed[k], "unexpected key %q", k)
				}
			}
		})
	}
}

func TestPassThroughFidelity(t *testing.T) {
	job := jobFor(t, writeInput(t, signage), connector.ScopeDesignatedField)
	_, err := run(t, job)
	require.NoError(t, err)

	raw, err := os.ReadFile(job.OutputPath)
	require.NoError(t, err)
	text := string(raw)

	// Numbers, non-ASCII text and HTML-significant characters are written verbatim.
	assert.Contains(t, text, `-73.5612345678901`)
	assert.Contains(t, text, `"DESCRIPTION_REP":"Réel"`)
	assert.Contains(t, text, `<école>`)
	// An allowlisted key holding null survives as null.
	assert.Contains(t, text, `"DESCRIPTION_CAT":null`)

	var doc struct {
		Features []struct {
			Geometry json.RawMessage `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.NotEmpty(t, doc.Features)
	assert.JSONEq(t, `{"type":"Point","coordinates":[-73.5612345678901,45.50123]}`, string(doc.Features[0].Geometry))

	t.Run("line separators", func(t *testing.T) {
		input := writeInput(t, `{"type":"FeatureCollection","features":[
			{"type":"Feature","properties":{"DESCRIPTION_RPA":"a\u2028b\u2029c é"},"geometry":null}
		]}`)
		job := jobFor(t, input, connector.ScopeDesignatedField)
		_, err := run(t, job)
		require.NoError(t, err)

		raw, err := os.ReadFile(job.OutputPath)
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"DESCRIPTION_RPA":"a`+"\u2028"+`b`+"\u2029"+`c é"`)
		assert.NotContains(t, string(raw), `\u2028`)
	})
}

func TestInvalidUTF8InputIsParseError(t *testing.T) {
	input := writeInput(t, "{\"type\":\"FeatureCollection\",\"features\":[{\"type\":\"Feature\",\"properties\":{\"DESCRIPTION_RPA\":\"a\xffb\"},\"geometry\":null}]}")
	job := jobFor(t, input, connector.ScopeDesignatedField)

	result, err := run(t, job)
	require.Error(t, err)
	assert.True(t, errhandling.IsParse(err))
	assert.Equal(t, runtime.ErrCodeInputFailed, result.Error.Code)
	_, statErr := os.Stat(job.OutputPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestIdempotentOutput(t *testing.T) {
	job := jobFor(t, writeInput(t, signage), connector.ScopeAllProperties)

	_, err := run(t, job)
	require.NoError(t, err)
	first, err := os.ReadFile(job.OutputPath)
	require.NoError(t, err)

	// Cleaning the cleaned output again changes nothing.
	again := *job
	again.InputPath = job.OutputPath
	again.OutputPath = filepath.Join(t.TempDir(), "second.json")
	result, err := run(t, &again)
	require.NoError(t, err)
	assert.Zero(t, result.FeaturesRemoved)

	second, err := os.ReadFile(again.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDryRunWritesNothing(t *testing.T) {
	job := jobFor(t, writeInput(t, signage), connector.ScopeDesignatedField)
	mods, err := factory.CreateModules(job, true)
	require.NoError(t, err)

	result, err := runtime.NewExecutorWithModules(mods.Input, mods.Filters, mods.Output, true).Execute(job)
	require.NoError(t, err)
	assert.Equal(t, 3, result.FeaturesRemoved)
	assert.Equal(t, 3, result.Remaining())

	_, statErr := os.Stat(job.OutputPath)
	assert.True(t, os.IsNotExist(statErr))
}
