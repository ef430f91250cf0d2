// Package filter provides implementations for filter modules.
// Filter modules drop or reshape features between input and output.
package filter

import (
	"context"

	"github.com/WilliamM-L/trouve-mon-spot/pkg/geojson"
)

// Module represents a filter module that transforms a feature sequence.
type Module interface {
	// Process transforms the input features.
	// Implementations must preserve the relative order of the features they keep
	// and must not mutate the features they receive.
	Process(ctx context.Context, features []geojson.Feature) ([]geojson.Feature, error)
}

// checkInterval is how many features are processed between context checks.
const checkInterval = 100

func canceled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
