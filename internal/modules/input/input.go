// Package input provides implementations for input modules.
// Input modules load the feature collection a run operates on.
package input

import (
	"context"

	"github.com/WilliamM-L/trouve-mon-spot/pkg/geojson"
)

// Module represents an input module that loads features from a source.
type Module interface {
	// Fetch loads the complete feature sequence, in source order.
	// Loading is atomic: either every feature is returned or an error is.
	Fetch(ctx context.Context) ([]geojson.Feature, error)
	// Close releases any resources held by the module.
	Close() error
}
