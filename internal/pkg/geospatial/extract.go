package geospatial

import (
	"github.com/paulmach/orb"

	"github.com/samirrijal/fireroute/internal/core/domain"
)

// ExtractBoundingBox returns the bounds of every coordinate pair found in a
// GeoJSON geometry, at any nesting depth (Point through MultiPolygon, and
// GeometryCollection members). It returns nil when no pair is found.
//
// The walk uses an explicit stack so hostile nesting cannot exhaust the
// goroutine stack. A node is a leaf pair when its first element is a number.
func ExtractBoundingBox(geometry any) *domain.BoundingBox {
	pts := collectPoints(geometry)
	if len(pts) == 0 {
		return nil
	}
	b := pts.Bound()
	return &domain.BoundingBox{
		MinLat: b.Min.Lat(),
		MinLon: b.Min.Lon(),
		MaxLat: b.Max.Lat(),
		MaxLon: b.Max.Lon(),
	}
}

func collectPoints(root any) orb.MultiPoint {
	var pts orb.MultiPoint
	stack := []any{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch v := node.(type) {
		case map[string]any:
			if c, ok := v["coordinates"]; ok {
				stack = append(stack, c)
			}
			if gs, ok := v["geometries"].([]any); ok {
				stack = append(stack, gs...)
			}
		case []any:
			if len(v) == 0 {
				continue
			}
			if _, ok := v[0].(float64); ok {
				if p, ok := leafPoint(v); ok {
					pts = append(pts, p)
				}
				continue
			}
			stack = append(stack, v...)
		case []float64:
			if len(v) >= 2 {
				pts = append(pts, orb.Point{v[0], v[1]})
			}
		}
	}
	return pts
}

// leafPoint reads [lon, lat, ...] into a point. Extra ordinates (altitude) are ignored.
func leafPoint(v []any) (orb.Point, bool) {
	if len(v) < 2 {
		return orb.Point{}, false
	}
	lon, ok1 := v[0].(float64)
	lat, ok2 := v[1].(float64)
	if !ok1 || !ok2 {
		return orb.Point{}, false
	}
	return orb.Point{lon, lat}, true
}

// outerRings returns the exterior ring of each polygon in a Polygon or
// MultiPolygon geometry. Other geometry types yield nothing.
func outerRings(geometry map[string]any) []orb.Ring {
	coords, _ := geometry["coordinates"].([]any)
	switch geometry["type"] {
	case "Polygon":
		if r := ringAt(coords, 0); r != nil {
			return []orb.Ring{r}
		}
	case "MultiPolygon":
		var rings []orb.Ring
		for _, part := range coords {
			poly, _ := part.([]any)
			if r := ringAt(poly, 0); r != nil {
				rings = append(rings, r)
			}
		}
		return rings
	}
	return nil
}

func ringAt(rings []any, idx int) orb.Ring {
	if idx >= len(rings) {
		return nil
	}
	raw, _ := rings[idx].([]any)
	ring := make(orb.Ring, 0, len(raw))
	for _, v := range raw {
		pair, _ := v.([]any)
		if p, ok := leafPoint(pair); ok {
			ring = append(ring, p)
		}
	}
	if len(ring) == 0 {
		return nil
	}
	return ring
}
