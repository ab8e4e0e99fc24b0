package domain

import (
	"fmt"
	"strconv"
)

// Coordinate represents a geographic coordinate (WGS 84).
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate reports an out-of-range latitude or longitude. NaN is out of range.
func (c Coordinate) Validate(field string) error {
	if !(c.Lat >= -90 && c.Lat <= 90) {
		return &ValidationError{Field: field + ".lat", Message: fmt.Sprintf("latitude must be between -90 and 90, got %g", c.Lat)}
	}
	if !(c.Lon >= -180 && c.Lon <= 180) {
		return &ValidationError{Field: field + ".lon", Message: fmt.Sprintf("longitude must be between -180 and 180, got %g", c.Lon)}
	}
	return nil
}

// BoundingBox represents a geographic bounding box.
// MinLat <= MaxLat and MinLon <= MaxLon always hold.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether c lies inside or on the edge of the box.
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat && c.Lon >= b.MinLon && c.Lon <= b.MaxLon
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() Coordinate {
	return Coordinate{Lat: (b.MinLat + b.MaxLat) / 2, Lon: (b.MinLon + b.MaxLon) / 2}
}

// AvoidRectangle is an axis-aligned box a routing provider must route around.
type AvoidRectangle struct {
	BoundingBox
}

// String renders the rectangle as "minLon,minLat,maxLon,maxLat".
func (r AvoidRectangle) String() string {
	return formatDeg(r.MinLon) + "," + formatDeg(r.MinLat) + "," + formatDeg(r.MaxLon) + "," + formatDeg(r.MaxLat)
}

// MarshalText lets rectangles serialize as their canonical label.
func (r AvoidRectangle) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func formatDeg(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// ValidateBufferKm rejects buffers outside [0, 100] km.
func ValidateBufferKm(km float64) error {
	if !(km >= 0 && km <= 100) {
		return &ValidationError{Field: "buffer_km", Message: fmt.Sprintf("buffer must be between 0 and 100 km, got %g", km)}
	}
	return nil
}
