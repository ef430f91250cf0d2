// Package geojson provides the feature-collection document types read and
// written by the signage cleaning pipeline.
//
// Only the envelope is modelled: a Feature carries its type tag, a flat
// property mapping and an opaque geometry that is kept as raw JSON so it can
// be written back without ever being interpreted.
package geojson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Document type tags.
const (
	TypeFeature           = "Feature"
	TypeFeatureCollection = "FeatureCollection"
)

// Document-level decoding errors.
var (
	// ErrEmptyDocument is returned when the input holds no JSON value at all.
	ErrEmptyDocument = errors.New("empty document: expected a FeatureCollection object")
	// ErrNotFeatureCollection is returned when the top-level type tag is missing or wrong.
	ErrNotFeatureCollection = errors.New("document is not a FeatureCollection")
	// ErrMissingFeatures is returned when the top-level features array is absent or null.
	ErrMissingFeatures = errors.New("document has no 'features' array")
	// ErrTrailingData is returned when extra content follows the document.
	ErrTrailingData = errors.New("unexpected data after FeatureCollection document")
)

// Feature is a single record of a FeatureCollection.
type Feature struct {
	// Type is the feature type tag, "Feature" when the source omits it
	Type string `json:"type"`
	// Properties maps attribute names to scalar or null values.
	// Numbers are held as json.Number so they round-trip verbatim.
	Properties map[string]interface{} `json:"properties"`
	// Geometry is the raw geometry value, never inspected
	Geometry json.RawMessage `json:"geometry"`
}

// UnmarshalJSON decodes a feature, tolerating feature-level malformation:
// a missing or non-string type defaults to "Feature" and a missing, null or
// non-object properties value becomes an empty mapping.
func (f *Feature) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type       json.RawMessage `json:"type"`
		Properties json.RawMessage `json:"properties"`
		Geometry   json.RawMessage `json:"geometry"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	f.Type = TypeFeature
	if len(raw.Type) > 0 {
		var typ string
		if err := json.Unmarshal(raw.Type, &typ); err == nil && typ != "" {
			f.Type = typ
		}
	}

	f.Properties = decodeProperties(raw.Properties)
	f.Geometry = raw.Geometry
	return nil
}

// decodeProperties decodes a properties object with number preservation.
func decodeProperties(data json.RawMessage) map[string]interface{} {
	props := make(map[string]interface{})
	if len(data) == 0 {
		return props
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var decoded map[string]interface{}
	if err := dec.Decode(&decoded); err != nil || decoded == nil {
		return props
	}
	return decoded
}

// FeatureCollection is an ordered sequence of features.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// NewFeatureCollection assembles a collection with the fixed type tag.
// Nil feature slices and nil property mappings are normalized so the encoded
// document always carries "features": [] and "properties": {}.
func NewFeatureCollection(features []Feature) *FeatureCollection {
	normalized := make([]Feature, len(features))
	for i, f := range features {
		if f.Type == "" {
			f.Type = TypeFeature
		}
		if f.Properties == nil {
			f.Properties = map[string]interface{}{}
		}
		normalized[i] = f
	}
	return &FeatureCollection{
		Type:     TypeFeatureCollection,
		Features: normalized,
	}
}

// Decode reads a complete FeatureCollection document from r.
// The whole document must decode successfully or an error is returned.
func Decode(r io.Reader) (*FeatureCollection, error) {
	var envelope struct {
		Type     *string    `json:"type"`
		Features *[]Feature `json:"features"`
	}

	dec := json.NewDecoder(r)
	if err := dec.Decode(&envelope); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDocument
		}
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, ErrTrailingData
	}

	if envelope.Type == nil {
		return nil, fmt.Errorf("%w: missing 'type'", ErrNotFeatureCollection)
	}
	if *envelope.Type != TypeFeatureCollection {
		return nil, fmt.Errorf("%w: got type %q", ErrNotFeatureCollection, *envelope.Type)
	}
	if envelope.Features == nil {
		return nil, ErrMissingFeatures
	}

	features := *envelope.Features
	if features == nil {
		features = []Feature{}
	}
	return &FeatureCollection{
		Type:     TypeFeatureCollection,
		Features: features,
	}, nil
}

// Encode writes the collection as compact JSON followed by a newline.
// Non-ASCII text and HTML-significant characters are written verbatim, and
// property keys are emitted in sorted order so identical collections always
// encode to identical bytes.
func Encode(w io.Writer, fc *FeatureCollection) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fc); err != nil {
		return err
	}
	_, err := w.Write(unescapeLineSeparators(buf.Bytes()))
	return err
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes that
// encoding/json always emits back into the raw characters. Escape sequences
// are consumed in pairs so an escaped backslash followed by literal "u2028"
// text is left alone.
func unescapeLineSeparators(b []byte) []byte {
	if !bytes.Contains(b, []byte(`\u202`)) {
		return b
	}

	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' {
			out = append(out, b[i])
			continue
		}
		if i+5 < len(b) && string(b[i+1:i+5]) == "u202" && (b[i+5] == '8' || b[i+5] == '9') {
			if b[i+5] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			continue
		}
		out = append(out, b[i])
		if i+1 < len(b) {
			i++
			out = append(out, b[i])
		}
	}
	return out
}
