package geospatial

import (
	"math"

	"github.com/mmcloughlin/geohash"

	"github.com/samirrijal/fireroute/internal/core/domain"
)

// cellPrecision is roughly a 1.2 km x 0.6 km geohash cell.
const cellPrecision = 6

// KmPerDegree converts a buffer in km to degrees on both axes.
// Longitude convergence toward the poles is deliberately ignored.
const KmPerDegree = 111.0

// ComputeBBox returns the envelope of origin and destination with every edge
// pushed out by bufferKm/KmPerDegree degrees.
func ComputeBBox(origin, destination domain.Coordinate, bufferKm float64) domain.BoundingBox {
	return ExpandBBox(domain.BoundingBox{
		MinLat: math.Min(origin.Lat, destination.Lat),
		MinLon: math.Min(origin.Lon, destination.Lon),
		MaxLat: math.Max(origin.Lat, destination.Lat),
		MaxLon: math.Max(origin.Lon, destination.Lon),
	}, bufferKm)
}

// ExpandBBox grows every edge of b by bufferKm/KmPerDegree degrees.
func ExpandBBox(b domain.BoundingBox, bufferKm float64) domain.BoundingBox {
	d := bufferKm / KmPerDegree
	return domain.BoundingBox{
		MinLat: b.MinLat - d,
		MinLon: b.MinLon - d,
		MaxLat: b.MaxLat + d,
		MaxLon: b.MaxLon + d,
	}
}

// SnapBBox rounds b outward to a grid of step degrees, clamped to valid
// coordinates. Nearby queries snap to the same box, which keeps cache keys stable.
func SnapBBox(b domain.BoundingBox, step float64) domain.BoundingBox {
	if step <= 0 {
		return b
	}
	return domain.BoundingBox{
		MinLat: math.Max(-90, math.Floor(b.MinLat/step)*step),
		MinLon: math.Max(-180, math.Floor(b.MinLon/step)*step),
		MaxLat: math.Min(90, math.Ceil(b.MaxLat/step)*step),
		MaxLon: math.Min(180, math.Ceil(b.MaxLon/step)*step),
	}
}

// CellKey builds a cache key for a box from the geohashes of its corners.
func CellKey(b domain.BoundingBox) string {
	return geohash.EncodeWithPrecision(b.MinLat, b.MinLon, cellPrecision) + "-" +
		geohash.EncodeWithPrecision(b.MaxLat, b.MaxLon, cellPrecision)
}
