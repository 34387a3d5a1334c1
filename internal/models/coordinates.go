package models

import (
	"encoding/json"
	"fmt"
)

// Coordinates represents a geographical point defined by its longitude and latitude.
type Coordinates struct {
	Longitude float64 // Longitude of the geographical point.
	Latitude  float64 // Latitude of the geographical point.
}

// Point is the cached outcome of one address lookup. Both fields are nil when the
// geocoder could not resolve the address.
type Point struct {
	Lat *float64
	Lng *float64
}

// NewPoint builds a resolved Point from coordinates.
func NewPoint(coords Coordinates) Point {
	lat, lng := coords.Latitude, coords.Longitude
	return Point{Lat: &lat, Lng: &lng}
}

// Resolved reports whether both coordinates are present.
func (p Point) Resolved() bool {
	return p.Lat != nil && p.Lng != nil
}

// MarshalJSON encodes the point as a two-element [lat, lng] array with nulls for unresolved parts.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]*float64{p.Lat, p.Lng})
}

// UnmarshalJSON decodes a two-element [lat, lng] array.
func (p *Point) UnmarshalJSON(data []byte) error {
	var pair []*float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("failed to decode point: %w", err)
	}
	if len(pair) != 2 { //nolint:mnd // lat, lng
		return fmt.Errorf("point must have 2 elements, got %d", len(pair))
	}
	p.Lat, p.Lng = pair[0], pair[1]

	return nil
}
