package ports

import (
	"context"

	"github.com/samirrijal/fireroute/internal/core/domain"
)

// PerimeterSource fetches wildfire perimeters intersecting a box as a GeoJSON FeatureCollection.
type PerimeterSource interface {
	FetchPerimeters(ctx context.Context, box domain.BoundingBox) (string, error)
}

// Geocoder resolves a free-text address to a coordinate.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (domain.Coordinate, error)
}

// Router computes a route that avoids the given rectangles.
type Router interface {
	Route(ctx context.Context, req domain.RouteRequest) (*domain.RouteSummary, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishLinkCreated(ctx context.Context, event *domain.LinkCreatedEvent) error
	PublishFireZoneAlert(ctx context.Context, alert *domain.FireZoneAlert) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeWarmRequests(ctx context.Context, handler func(ctx context.Context, req *domain.WarmRequest) error) error
}

// WarmRequestPublisher queues perimeter cache warm-up requests for the warmer.
type WarmRequestPublisher interface {
	PublishWarmRequest(ctx context.Context, req *domain.WarmRequest) error
}
