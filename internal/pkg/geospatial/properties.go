package geospatial

import (
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
)

// Perimeter feeds from different agencies name the same attribute differently;
// lookups try each key in order.
var (
	incidentNameKeys = []string{"IncidentName", "attr_IncidentName", "poly_IncidentName", "incident_name", "FIRE_NAME", "FireName", "name"}
	zoneNameKeys     = []string{"FireZoneName", "poly_IncidentName", "poly_FeatureCategory", "fire_zone_name", "FIRE_NAME", "FireName", "name"}
	containmentKeys  = []string{"PercentContained", "attr_PercentContained", "containmentPercent", "containment_percent", "GIS_CONTAINMENT"}
	acresKeys        = []string{"GISAcres", "poly_GISAcres", "attr_IncidentSize", "acresBurned", "acres_burned", "GIS_ACRES"}
	updatedKeys      = []string{"DateCurrent", "poly_DateCurrent", "attr_ModifiedOnDateTime_dt", "lastUpdate", "last_update", "ModifiedOnDateTime"}
)

func propString(p geojson.Properties, keys []string) string {
	for _, k := range keys {
		if s, ok := p[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func propFloat(p geojson.Properties, keys []string) *float64 {
	for _, k := range keys {
		switch v := p[k].(type) {
		case float64:
			return &v
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

// propTime accepts RFC 3339-like strings or epoch numbers (milliseconds when large, as ArcGIS emits).
func propTime(p geojson.Properties, keys []string) *time.Time {
	for _, k := range keys {
		switch v := p[k].(type) {
		case float64:
			var t time.Time
			if v > 1e11 {
				t = time.UnixMilli(int64(v)).UTC()
			} else {
				t = time.Unix(int64(v), 0).UTC()
			}
			return &t
		case string:
			for _, layout := range timeLayouts {
				if t, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
					t = t.UTC()
					return &t
				}
			}
		}
	}
	return nil
}
