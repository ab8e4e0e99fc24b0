package domain

import (
	"encoding/json"
	"time"
)

// FireZoneInfo describes whether a point lies inside an active fire perimeter.
// It is derived per query from cached perimeter data and never stored itself.
type FireZoneInfo struct {
	IsInFireZone       bool       `json:"is_in_fire_zone"`
	FireZoneName       string     `json:"fire_zone_name,omitempty"`
	IncidentName       string     `json:"incident_name,omitempty"`
	ContainmentPercent *float64   `json:"containment_percent,omitempty"`
	AcresBurned        *float64   `json:"acres_burned,omitempty"`
	LastUpdate         *time.Time `json:"last_update,omitempty"`
}

// FireIncident summarizes one perimeter feature.
type FireIncident struct {
	IncidentName       string       `json:"incident_name"`
	FireZoneName       string       `json:"fire_zone_name,omitempty"`
	ContainmentPercent *float64     `json:"containment_percent,omitempty"`
	AcresBurned        *float64     `json:"acres_burned,omitempty"`
	LastUpdate         *time.Time   `json:"last_update,omitempty"`
	Bounds             *BoundingBox `json:"bounds,omitempty"`
}

// Blob is a stored payload together with its last write time.
type Blob struct {
	Data           []byte
	LastModifiedAt time.Time
}

// RouteLinkRecord is a shareable, content-addressed route artifact.
type RouteLinkRecord struct {
	ID        string          `json:"id"`
	URL       string          `json:"url"`
	ExpiresAt time.Time       `json:"expires_at"`
	Created   bool            `json:"created"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// RouteSpec is the payload persisted behind a route link.
type RouteSpec struct {
	SchemaVersion string          `json:"schema_version"`
	Origin        Coordinate      `json:"origin"`
	Destination   Coordinate      `json:"destination"`
	BufferKm      float64         `json:"buffer_km"`
	AvoidAreas    []string        `json:"avoid_areas"`
	Route         RouteSummary    `json:"route"`
	Overlay       json.RawMessage `json:"overlay,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// RouteSummary is the provider-agnostic result of a routing call.
type RouteSummary struct {
	DistanceMeters  int    `json:"distance_meters"`
	DurationSeconds int    `json:"duration_seconds"`
	Polyline        string `json:"polyline,omitempty"`
	Provider        string `json:"provider"`
}

// RouteRequest is passed to the routing provider.
type RouteRequest struct {
	Origin      Coordinate
	Destination Coordinate
	AvoidAreas  []AvoidRectangle
}

// PlanRequest is the caller-facing input to route planning.
type PlanRequest struct {
	Origin             *Coordinate `json:"origin,omitempty"`
	Destination        *Coordinate `json:"destination,omitempty"`
	OriginAddress      string      `json:"origin_address,omitempty"`
	DestinationAddress string      `json:"destination_address,omitempty"`
	BufferKm           *float64    `json:"buffer_km,omitempty"`
	Share              bool        `json:"share"`

	// BaseURL is used for link URLs when no public base URL is configured.
	BaseURL string `json:"-"`
}

// RoutePlan is the result of a fire-aware routing request.
type RoutePlan struct {
	Origin          Coordinate       `json:"origin"`
	Destination     Coordinate       `json:"destination"`
	BufferKm        float64          `json:"buffer_km"`
	SearchBox       BoundingBox      `json:"search_box"`
	AvoidAreas      []AvoidRectangle `json:"avoid_areas"`
	Route           RouteSummary     `json:"route"`
	DirectDistanceM float64          `json:"direct_distance_meters"`
	OriginFire      FireZoneInfo     `json:"origin_fire_zone"`
	DestinationFire FireZoneInfo     `json:"destination_fire_zone"`
	Overlay         json.RawMessage  `json:"overlay,omitempty"`
	Link            *RouteLinkRecord `json:"link,omitempty"`
	Warnings        []string         `json:"warnings,omitempty"`
}

// LinkCreatedEvent is published when a new route link is persisted.
type LinkCreatedEvent struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FireZoneAlert is published when a planned route starts or ends inside a perimeter.
type FireZoneAlert struct {
	EventID      string     `json:"event_id"`
	Location     Coordinate `json:"location"`
	Role         string     `json:"role"` // "origin" | "destination" | "point"
	IncidentName string     `json:"incident_name"`
	Time         time.Time  `json:"time"`
}

// WarmRequest asks the warmer to pre-populate the perimeter cache for a box.
type WarmRequest struct {
	Name   string      `json:"name,omitempty"`
	Bounds BoundingBox `json:"bounds"`
}
