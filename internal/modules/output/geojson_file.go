package output

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/WilliamM-L/trouve-mon-spot/internal/errhandling"
	"github.com/WilliamM-L/trouve-mon-spot/internal/logger"
	"github.com/WilliamM-L/trouve-mon-spot/internal/pathutil"
	"github.com/WilliamM-L/trouve-mon-spot/pkg/geojson"
)

// ModuleTypeGeoJSONFile identifies the GeoJSON file output module.
const ModuleTypeGeoJSONFile = "geojsonFile"

// outputFileMode is applied to the written file.
const outputFileMode = 0o644

// GeoJSONFileConfig represents the configuration for a GeoJSON file output.
type GeoJSONFileConfig struct {
	// Path is the destination file; missing parent directories are created
	Path string `json:"path"`
}

// GeoJSONFile writes a FeatureCollection to a file.
//
// The document is first written to a temporary file in the destination
// directory and renamed over the destination once complete, so a failed run
// never leaves a truncated file behind.
type GeoJSONFile struct {
	path string
}

// NewGeoJSONFileFromConfig creates a GeoJSON file output module.
func NewGeoJSONFileFromConfig(config GeoJSONFileConfig) (*GeoJSONFile, error) {
	if err := pathutil.ValidateFilePath(config.Path); err != nil {
		return nil, fmt.Errorf("invalid output path: %w", err)
	}
	return &GeoJSONFile{path: config.Path}, nil
}

// Path returns the destination file.
func (m *GeoJSONFile) Path() string {
	return m.path
}

// Send implements Module. Every failure is returned as an
// errhandling.CategoryWrite error.
func (m *GeoJSONFile) Send(ctx context.Context, features []geojson.Feature) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	start := time.Now()
	if err := pathutil.EnsureParentDir(m.path); err != nil {
		return 0, errhandling.NewWriteError(m.path, "cannot create parent directory", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.path), "."+filepath.Base(m.path)+".tmp-*")
	if err != nil {
		return 0, errhandling.NewWriteError(m.path, "cannot create temporary file", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
				logger.Warn("failed to remove temporary file", slog.String("path", tmpPath), slog.String("error", rmErr.Error()))
			}
		}
	}()

	w := bufio.NewWriter(tmp)
	if err := geojson.Encode(w, geojson.NewFeatureCollection(features)); err != nil {
		return 0, errhandling.NewWriteError(m.path, "cannot encode output", err)
	}
	if err := w.Flush(); err != nil {
		return 0, errhandling.NewWriteError(m.path, "cannot write output", err)
	}
	if err := tmp.Sync(); err != nil {
		return 0, errhandling.NewWriteError(m.path, "cannot flush output to disk", err)
	}
	if err := tmp.Chmod(outputFileMode); err != nil {
		return 0, errhandling.NewWriteError(m.path, "cannot set output permissions", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, errhandling.NewWriteError(m.path, "cannot close output", err)
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		return 0, errhandling.NewWriteError(m.path, "cannot replace destination file", err)
	}
	committed = true

	logger.Debug("output written",
		slog.String("path", m.path),
		slog.Int("features", len(features)),
		slog.Duration("duration", time.Since(start)),
	)
	return len(features), nil
}

// Close implements Module.
func (m *GeoJSONFile) Close() error {
	return nil
}

// Verify interface compliance at compile time
var _ Module = (*GeoJSONFile)(nil)
