package geospatial_test

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/samirrijal/fireroute/internal/core/domain"
	"github.com/samirrijal/fireroute/internal/pkg/geospatial"
)

const campFire = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {
        "poly_IncidentName": "Camp",
        "attr_PercentContained": 45,
        "poly_GISAcres": "153336.5",
        "poly_DateCurrent": 1542240000000
      },
      "geometry": {
        "type": "Polygon",
        "coordinates": [[[-121.8,39.6],[-121.4,39.6],[-121.4,39.9],[-121.8,39.9],[-121.8,39.6]]]
      }
    },
    {
      "type": "Feature",
      "properties": {"IncidentName": "Distant"},
      "geometry": {
        "type": "MultiPolygon",
        "coordinates": [
          [[[-119,36],[-118.9,36],[-118.9,36.1],[-119,36]]],
          [[[-118,35],[-117,35],[-117,36],[-118,36],[-118,35]]]
        ]
      }
    }
  ]
}`

var paradise = domain.Coordinate{Lat: 39.7596, Lon: -121.6219}

func TestEngine_CheckPointInFireZones(t *testing.T) {
	e := geospatial.NewEngine(nil)

	info := e.CheckPointInFireZones(campFire, paradise)
	if !info.IsInFireZone {
		t.Fatal("expected Paradise to be inside the Camp perimeter")
	}
	if info.IncidentName != "Camp" || info.FireZoneName != "Camp" {
		t.Errorf("expected Camp names, got %q / %q", info.IncidentName, info.FireZoneName)
	}
	if info.ContainmentPercent == nil || *info.ContainmentPercent != 45 {
		t.Errorf("expected containment 45, got %v", info.ContainmentPercent)
	}
	if info.AcresBurned == nil || *info.AcresBurned != 153336.5 {
		t.Errorf("expected acres from numeric string, got %v", info.AcresBurned)
	}
	if info.LastUpdate == nil || info.LastUpdate.Year() != 2018 {
		t.Errorf("expected 2018 update time from epoch millis, got %v", info.LastUpdate)
	}
}

func TestEngine_CheckPointInFireZones_SecondPolygonOfMultiPolygon(t *testing.T) {
	e := geospatial.NewEngine(nil)

	info := e.CheckPointInFireZones(campFire, domain.Coordinate{Lat: 35.5, Lon: -117.5})
	if !info.IsInFireZone || info.IncidentName != "Distant" {
		t.Errorf("expected hit on second polygon of MultiPolygon, got %+v", info)
	}
}

func TestEngine_CheckPointInFireZones_Outside(t *testing.T) {
	e := geospatial.NewEngine(nil)

	info := e.CheckPointInFireZones(campFire, domain.Coordinate{Lat: 37.77, Lon: -122.42})
	if info.IsInFireZone || info.IncidentName != "" || info.ContainmentPercent != nil {
		t.Errorf("expected empty result, got %+v", info)
	}
}

func TestEngine_CheckPointInFireZones_BadInput(t *testing.T) {
	e := geospatial.NewEngine(nil)

	for _, in := range []string{"", "   ", "not json", `{"type":"FeatureCollection"}`, `[1,2]`} {
		if e.CheckPointInFireZones(in, paradise).IsInFireZone {
			t.Errorf("input %q should never report a fire zone", in)
		}
	}
}

func TestEngine_BuildAvoidRectangles(t *testing.T) {
	e := geospatial.NewEngine(nil)

	rects := e.BuildAvoidRectangles(campFire, 1.11, 10)
	if len(rects) != 2 {
		t.Fatalf("expected 2 rectangles, got %d", len(rects))
	}
	first := rects[0]
	if !near(first.MinLat, 39.59) || !near(first.MaxLat, 39.91) || !near(first.MinLon, -121.81) || !near(first.MaxLon, -121.39) {
		t.Errorf("unexpected first rectangle %+v", first)
	}
	if got := first.String(); got != "-121.810000,39.590000,-121.390000,39.910000" {
		t.Errorf("unexpected label %s", got)
	}
}

func TestEngine_BuildAvoidRectangles_Cap(t *testing.T) {
	e := geospatial.NewEngine(nil)

	var features []string
	for i := 0; i < 25; i++ {
		features = append(features, fmt.Sprintf(
			`{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[%d,10]}}`, -120+i))
	}
	doc := `{"type":"FeatureCollection","features":[` + strings.Join(features, ",") + `]}`

	rects := e.BuildAvoidRectangles(doc, 0, 10)
	if len(rects) != 10 {
		t.Fatalf("expected cap of 10, got %d", len(rects))
	}
	if rects[0].MinLon != -120 || rects[9].MinLon != -111 {
		t.Error("expected the first ten features in document order")
	}
	if got := e.BuildAvoidRectangles(doc, 0, 0); got == nil || len(got) != 0 {
		t.Errorf("maxRects 0 should give an empty slice, got %v", got)
	}
}

func TestEngine_BuildAvoidRectangles_SkipsUnusableFeatures(t *testing.T) {
	e := geospatial.NewEngine(nil)

	doc := `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":null},
		{"type":"Feature","geometry":{"type":"Polygon","coordinates":[]}},
		"garbage",
		{"type":"Feature","geometry":{"type":"Point","coordinates":[-121,39]}}
	]}`
	rects := e.BuildAvoidRectangles(doc, 0, 10)
	if len(rects) != 1 || rects[0].MinLon != -121 {
		t.Errorf("expected only the point feature, got %+v", rects)
	}
}

func TestEngine_BuildAvoidRectangles_InvalidDocument(t *testing.T) {
	e := geospatial.NewEngine(nil)

	for _, in := range []string{"", "{", `{"features":null}`, `{"type":"FeatureCollection"}`} {
		got := e.BuildAvoidRectangles(in, 2, 10)
		if got == nil || len(got) != 0 {
			t.Errorf("input %q: expected empty non-nil slice, got %v", in, got)
		}
	}
}

func TestIncidents(t *testing.T) {
	e := geospatial.NewEngine(nil)

	incs := geospatial.Incidents(e.Parse(campFire))
	if len(incs) != 2 {
		t.Fatalf("expected 2 incidents, got %d", len(incs))
	}
	if incs[1].IncidentName != "Distant" || incs[1].Bounds == nil || incs[1].Bounds.MaxLat != 36.1 {
		t.Errorf("unexpected second incident %+v", incs[1])
	}
}

func TestAvoidOverlay(t *testing.T) {
	rects := []domain.AvoidRectangle{{BoundingBox: domain.BoundingBox{MinLat: 1, MinLon: 2, MaxLat: 3, MaxLon: 4}}}

	raw, err := geospatial.AvoidOverlay(rects)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(raw, &fc); err != nil {
		t.Fatalf("overlay is not JSON: %v", err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 1 || fc.Features[0].Geometry.Type != "Polygon" {
		t.Errorf("unexpected overlay %s", raw)
	}
	if fc.Features[0].Properties["avoid"] != rects[0].String() {
		t.Errorf("expected avoid label, got %v", fc.Features[0].Properties["avoid"])
	}
}
