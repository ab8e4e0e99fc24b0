package geospatial

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/fireroute/internal/core/domain"
)

// Perimeter is one decoded feature of a perimeter FeatureCollection.
type Perimeter struct {
	Geometry   map[string]any
	Properties geojson.Properties
}

// Engine turns perimeter GeoJSON into avoid rectangles and fire-zone answers.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates an Engine. A nil logger uses slog.Default().
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

var errNoFeatures = errors.New("missing features array")

type featureCollection struct {
	Type     string            `json:"type"`
	Features []json.RawMessage `json:"features"`
}

type rawFeature struct {
	Geometry   map[string]any     `json:"geometry"`
	Properties geojson.Properties `json:"properties"`
}

// Parse decodes a FeatureCollection. A document that cannot be decoded is
// logged and yields no perimeters; a feature that cannot be decoded is skipped.
func (e *Engine) Parse(geoJSON string) []Perimeter {
	if strings.TrimSpace(geoJSON) == "" {
		e.logger.Debug("empty perimeter geojson")
		return nil
	}

	var fc featureCollection
	err := json.Unmarshal([]byte(geoJSON), &fc)
	if err == nil && fc.Features == nil {
		err = errNoFeatures
	}
	if err != nil {
		e.logger.Warn("perimeter geojson unusable", "error", err, "bytes", len(geoJSON))
		return nil
	}

	out := make([]Perimeter, 0, len(fc.Features))
	for i, raw := range fc.Features {
		var f rawFeature
		if err := json.Unmarshal(raw, &f); err != nil {
			e.logger.Debug("skipping perimeter feature", "index", i, "error", err)
			continue
		}
		if f.Properties == nil {
			f.Properties = geojson.Properties{}
		}
		out = append(out, Perimeter{Geometry: f.Geometry, Properties: f.Properties})
	}
	return out
}

// BuildAvoidRectangles parses geoJSON and returns at most maxRects buffered
// feature bounding boxes in document order.
func (e *Engine) BuildAvoidRectangles(geoJSON string, bufferKm float64, maxRects int) []domain.AvoidRectangle {
	return AvoidRectangles(e.Parse(geoJSON), bufferKm, maxRects)
}

// AvoidRectangles builds one buffered rectangle per perimeter with usable
// geometry, stopping once maxRects have been produced.
func AvoidRectangles(perims []Perimeter, bufferKm float64, maxRects int) []domain.AvoidRectangle {
	rects := make([]domain.AvoidRectangle, 0)
	for _, p := range perims {
		if len(rects) >= maxRects {
			break
		}
		if p.Geometry == nil {
			continue
		}
		box := ExtractBoundingBox(p.Geometry)
		if box == nil {
			continue
		}
		rects = append(rects, domain.AvoidRectangle{BoundingBox: ExpandBBox(*box, bufferKm)})
	}
	return rects
}

// CheckPointInFireZones parses geoJSON and reports the first perimeter whose
// outer ring contains point.
func (e *Engine) CheckPointInFireZones(geoJSON string, point domain.Coordinate) domain.FireZoneInfo {
	return FireZoneAt(e.Parse(geoJSON), point)
}

// FireZoneAt reports the first perimeter containing point. Malformed
// geometry never contains anything.
func FireZoneAt(perims []Perimeter, point domain.Coordinate) domain.FireZoneInfo {
	pt := orb.Point{point.Lon, point.Lat}
	for _, p := range perims {
		if p.Geometry == nil {
			continue
		}
		for _, ring := range outerRings(p.Geometry) {
			if RingContains(ring, pt) {
				return fireZoneInfo(p.Properties)
			}
		}
	}
	return domain.FireZoneInfo{}
}

func fireZoneInfo(props geojson.Properties) domain.FireZoneInfo {
	incident := propString(props, incidentNameKeys)
	zone := propString(props, zoneNameKeys)
	if zone == "" {
		zone = incident
	}
	if incident == "" {
		incident = zone
	}
	return domain.FireZoneInfo{
		IsInFireZone:       true,
		FireZoneName:       zone,
		IncidentName:       incident,
		ContainmentPercent: propFloat(props, containmentKeys),
		AcresBurned:        propFloat(props, acresKeys),
		LastUpdate:         propTime(props, updatedKeys),
	}
}

// Incidents summarizes every perimeter in document order.
func Incidents(perims []Perimeter) []domain.FireIncident {
	out := make([]domain.FireIncident, 0, len(perims))
	for _, p := range perims {
		info := fireZoneInfo(p.Properties)
		inc := domain.FireIncident{
			IncidentName:       info.IncidentName,
			FireZoneName:       info.FireZoneName,
			ContainmentPercent: info.ContainmentPercent,
			AcresBurned:        info.AcresBurned,
			LastUpdate:         info.LastUpdate,
		}
		if p.Geometry != nil {
			inc.Bounds = ExtractBoundingBox(p.Geometry)
		}
		out = append(out, inc)
	}
	return out
}

// AvoidOverlay renders rectangles as a GeoJSON FeatureCollection of polygons
// for the map viewer.
func AvoidOverlay(rects []domain.AvoidRectangle) (json.RawMessage, error) {
	fc := geojson.NewFeatureCollection()
	for _, r := range rects {
		b := orb.Bound{
			Min: orb.Point{r.MinLon, r.MinLat},
			Max: orb.Point{r.MaxLon, r.MaxLat},
		}
		f := geojson.NewFeature(b.ToPolygon())
		f.Properties["avoid"] = r.String()
		fc.Append(f)
	}
	return fc.MarshalJSON()
}
