// Package spatial writes geocoded transactions as GeoJSON point collections.
package spatial

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Collection accumulates point features for one output file.
type Collection struct {
	features []*geojson.Feature
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{features: []*geojson.Feature{}}
}

// Add appends a point at (lng, lat) carrying props.
func (c *Collection) Add(lat, lng float64, props map[string]any) {
	point := geom.NewPointFlat(geom.XY, []float64{lng, lat})
	c.features = append(c.features, &geojson.Feature{Geometry: point, Properties: props})
}

// Len returns the number of features.
func (c *Collection) Len() int {
	return len(c.features)
}

// Features returns the accumulated features in insertion order.
func (c *Collection) Features() []*geojson.Feature {
	return c.features
}

// Write stores the collection at path as an indented FeatureCollection, creating parent directories.
func (c *Collection) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create geojson directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create geojson file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&geojson.FeatureCollection{Features: c.features}); err != nil {
		return fmt.Errorf("failed to encode feature collection: %w", err)
	}

	return file.Close()
}

// Read loads a FeatureCollection from path.
func Read(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read geojson file: %w", err)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to decode geojson file: %w", err)
	}

	return &fc, nil
}
