// Package output provides implementations for output modules.
// Output modules persist the cleaned feature collection.
package output

import (
	"context"

	"github.com/WilliamM-L/trouve-mon-spot/pkg/geojson"
)

// Module represents an output module that writes features to a destination.
type Module interface {
	// Send writes the features to the destination.
	// Returns the number of features written and any error.
	Send(ctx context.Context, features []geojson.Feature) (int, error)

	// Close releases any resources held by the module.
	Close() error
}
