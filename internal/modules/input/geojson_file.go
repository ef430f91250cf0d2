package input

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"
	"unicode/utf8"

	"github.com/WilliamM-L/trouve-mon-spot/internal/errhandling"
	"github.com/WilliamM-L/trouve-mon-spot/internal/logger"
	"github.com/WilliamM-L/trouve-mon-spot/internal/pathutil"
	"github.com/WilliamM-L/trouve-mon-spot/pkg/geojson"
)

// ModuleTypeGeoJSONFile identifies the GeoJSON file input module.
const ModuleTypeGeoJSONFile = "geojsonFile"

// GeoJSONFileConfig represents the configuration for a GeoJSON file input.
type GeoJSONFileConfig struct {
	// Path is the FeatureCollection file to read
	Path string `json:"path"`
}

// GeoJSONFile reads a whole GeoJSON FeatureCollection file into memory.
type GeoJSONFile struct {
	path string
}

// NewGeoJSONFileFromConfig creates a GeoJSON file input module.
func NewGeoJSONFileFromConfig(config GeoJSONFileConfig) (*GeoJSONFile, error) {
	if err := pathutil.ValidateFilePath(config.Path); err != nil {
		return nil, fmt.Errorf("invalid input path: %w", err)
	}
	return &GeoJSONFile{path: config.Path}, nil
}

// Path returns the file the module reads.
func (m *GeoJSONFile) Path() string {
	return m.path
}

// Fetch reads and decodes the input file.
//
// Errors are classified:
//   - missing or unreadable path: errhandling.CategoryNotFound
//   - malformed JSON, invalid UTF-8 or a document that is not a FeatureCollection: errhandling.CategoryParse
func (m *GeoJSONFile) Fetch(ctx context.Context) ([]geojson.Feature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(m.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errhandling.NewNotFoundError(m.path, "input file does not exist", err)
		}
		return nil, errhandling.NewNotFoundError(m.path, "input file cannot be accessed", err)
	}
	if info.IsDir() {
		return nil, errhandling.NewNotFoundError(m.path, "input path is a directory", nil)
	}

	logger.Info("loading input", slog.String("path", m.path), slog.Int64("bytes", info.Size()))

	start := time.Now()
	content, err := os.ReadFile(m.path)
	if err != nil {
		return nil, errhandling.NewNotFoundError(m.path, "input file cannot be read", err)
	}

	if offset := invalidUTF8Offset(content); offset >= 0 {
		return nil, errhandling.NewParseErrorAt(m.path, content, int64(offset), "invalid UTF-8", nil)
	}

	fc, err := geojson.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, m.parseError(content, err)
	}

	logger.Debug("input decoded",
		slog.String("path", m.path),
		slog.Int("features", len(fc.Features)),
		slog.Duration("duration", time.Since(start)),
	)
	return fc.Features, nil
}

// invalidUTF8Offset returns the offset of the first byte that is not valid
// UTF-8, or -1 when content is valid.
func invalidUTF8Offset(content []byte) int {
	if utf8.Valid(content) {
		return -1
	}
	for i := 0; i < len(content); {
		r, size := utf8.DecodeRune(content[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}

// parseError converts a decoding error into a located parse error.
func (m *GeoJSONFile) parseError(content []byte, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return errhandling.NewParseErrorAt(m.path, content, syntaxErr.Offset,
			fmt.Sprintf("invalid JSON: %s", syntaxErr.Error()), err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		msg := fmt.Sprintf("unexpected %s value", typeErr.Value)
		if typeErr.Field != "" {
			msg = fmt.Sprintf("unexpected %s value at '%s'", typeErr.Value, typeErr.Field)
		}
		return errhandling.NewParseErrorAt(m.path, content, typeErr.Offset, msg, err)
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		return errhandling.NewParseErrorAt(m.path, content, int64(len(content)),
			"unexpected end of JSON input", err)
	}

	return errhandling.NewParseError(m.path, err.Error(), err)
}

// Close implements Module. The file is fully read and released by Fetch.
func (m *GeoJSONFile) Close() error {
	return nil
}

// Verify interface compliance at compile time
var _ Module = (*GeoJSONFile)(nil)
