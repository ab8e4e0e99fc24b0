package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/fireroute/internal/core/domain"
	"github.com/samirrijal/fireroute/internal/core/ports"
	"github.com/samirrijal/fireroute/internal/pkg/geospatial"
	"github.com/samirrijal/fireroute/internal/pkg/metrics"
)

var tracer = otel.Tracer("github.com/samirrijal/fireroute/internal/core/usecases")

// DefaultBufferKm is the avoid buffer used when neither the request nor the
// options name one.
const DefaultBufferKm = 2.0

// RoutingOptions tunes route planning.
type RoutingOptions struct {
	DefaultBufferKm *float64 // nil means DefaultBufferKm; zero is a valid buffer
	MaxAvoidRects   int      // routing provider's avoid-area limit
	LinkTTL         time.Duration
	PublicBaseURL   string
}

// RoutingService plans routes around active fire perimeters.
type RoutingService struct {
	perimeters *PerimeterService
	links      *LinkStore
	geocoder   ports.Geocoder
	router     ports.Router
	publisher  ports.EventPublisher
	opts       RoutingOptions
	logger     *slog.Logger
	now        func() time.Time
}

// NewRoutingService creates a RoutingService. links and publisher may be nil,
// which disables sharing and event publication respectively.
func NewRoutingService(
	perimeters *PerimeterService,
	links *LinkStore,
	geocoder ports.Geocoder,
	router ports.Router,
	publisher ports.EventPublisher,
	opts RoutingOptions,
	logger *slog.Logger,
) *RoutingService {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DefaultBufferKm == nil {
		km := DefaultBufferKm
		opts.DefaultBufferKm = &km
	}
	if opts.MaxAvoidRects <= 0 {
		opts.MaxAvoidRects = 10
	}
	if opts.LinkTTL <= 0 {
		opts.LinkTTL = DefaultLinkTTL
	}
	return &RoutingService{
		perimeters: perimeters,
		links:      links,
		geocoder:   geocoder,
		router:     router,
		publisher:  publisher,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

// SetClock overrides the time source.
func (s *RoutingService) SetClock(now func() time.Time) { s.now = now }

// PlanRoute resolves the endpoints, builds avoid rectangles from the cached
// perimeters around them and asks the router for a route. Perimeter and link
// failures degrade the plan; invalid input and routing failures are returned.
func (s *RoutingService) PlanRoute(ctx context.Context, req *domain.PlanRequest) (*domain.RoutePlan, error) {
	ctx, span := tracer.Start(ctx, "RoutingService.PlanRoute")
	defer span.End()

	bufferKm := *s.opts.DefaultBufferKm
	if req.BufferKm != nil {
		bufferKm = *req.BufferKm
	}
	if err := domain.ValidateBufferKm(bufferKm); err != nil {
		return nil, err
	}

	origin, err := s.resolve(ctx, "origin", req.Origin, req.OriginAddress)
	if err != nil {
		return nil, err
	}
	destination, err := s.resolve(ctx, "destination", req.Destination, req.DestinationAddress)
	if err != nil {
		return nil, err
	}

	plan := &domain.RoutePlan{
		Origin:          origin,
		Destination:     destination,
		BufferKm:        bufferKm,
		SearchBox:       geospatial.ComputeBBox(origin, destination, bufferKm),
		DirectDistanceM: geospatial.Haversine(origin, destination),
	}

	perims := s.loadPerimeters(ctx, plan)
	plan.AvoidAreas = geospatial.AvoidRectangles(perims, bufferKm, s.opts.MaxAvoidRects)
	metrics.AvoidRectangles.Observe(float64(len(plan.AvoidAreas)))
	span.SetAttributes(attribute.Int("avoid.count", len(plan.AvoidAreas)))

	route, err := s.route(ctx, origin, destination, plan.AvoidAreas)
	if err != nil {
		return nil, err
	}
	plan.Route = *route

	plan.OriginFire = s.checkEndpoint(ctx, plan, "origin", origin, perims)
	plan.DestinationFire = s.checkEndpoint(ctx, plan, "destination", destination, perims)

	if overlay, err := geospatial.AvoidOverlay(plan.AvoidAreas); err == nil {
		plan.Overlay = overlay
	} else {
		s.logger.Warn("avoid overlay render failed", "error", err)
	}

	if req.Share {
		plan.Link = s.share(ctx, plan, req.BaseURL)
	}
	return plan, nil
}

func (s *RoutingService) resolve(ctx context.Context, field string, c *domain.Coordinate, address string) (domain.Coordinate, error) {
	if c != nil {
		return *c, c.Validate(field)
	}
	if address == "" {
		return domain.Coordinate{}, &domain.ValidationError{Field: field, Message: "coordinates or an address are required"}
	}
	if s.geocoder == nil {
		return domain.Coordinate{}, &domain.ValidationError{Field: field + "_address", Message: "address lookup is not configured"}
	}

	ctx, span := tracer.Start(ctx, "geocode", trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attribute.String("field", field)))
	defer span.End()

	start := time.Now()
	coord, err := s.geocoder.Geocode(ctx, address)
	metrics.ObserveProvider("geocoder", start, err)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Coordinate{}, &domain.ValidationError{Field: field + "_address", Message: fmt.Sprintf("no match for %q", address)}
	}
	if err != nil {
		return domain.Coordinate{}, asProviderError("geocoder", err)
	}
	return coord, coord.Validate(field)
}

func (s *RoutingService) loadPerimeters(ctx context.Context, plan *domain.RoutePlan) []geospatial.Perimeter {
	ctx, span := tracer.Start(ctx, "perimeters")
	defer span.End()

	perims, err := s.perimeters.Perimeters(ctx, plan.SearchBox)
	if err != nil {
		s.logger.Warn("perimeters unavailable, routing without avoid areas", "error", err)
		plan.Warnings = append(plan.Warnings, "fire perimeter data unavailable; route does not avoid fire areas")
		return nil
	}
	span.SetAttributes(attribute.Int("perimeters.count", len(perims)))
	return perims
}

func (s *RoutingService) route(ctx context.Context, origin, destination domain.Coordinate, avoid []domain.AvoidRectangle) (*domain.RouteSummary, error) {
	ctx, span := tracer.Start(ctx, "route", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	start := time.Now()
	summary, err := s.router.Route(ctx, domain.RouteRequest{Origin: origin, Destination: destination, AvoidAreas: avoid})
	metrics.ObserveProvider("router", start, err)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrNoRoute) {
			return nil, err
		}
		return nil, asProviderError("router", err)
	}
	return summary, nil
}

func (s *RoutingService) checkEndpoint(ctx context.Context, plan *domain.RoutePlan, role string, c domain.Coordinate, perims []geospatial.Perimeter) domain.FireZoneInfo {
	info := geospatial.FireZoneAt(perims, c)
	recordFireCheck(info)
	if !info.IsInFireZone {
		return info
	}

	plan.Warnings = append(plan.Warnings, fmt.Sprintf("%s is inside the %s fire perimeter", role, info.IncidentName))
	if s.publisher != nil {
		alert := &domain.FireZoneAlert{
			EventID:      uuid.NewString(),
			Location:     c,
			Role:         role,
			IncidentName: info.IncidentName,
			Time:         s.now().UTC(),
		}
		if err := s.publisher.PublishFireZoneAlert(ctx, alert); err != nil {
			s.logger.Warn("publish fire zone alert", "error", err)
		}
	}
	return info
}

func (s *RoutingService) share(ctx context.Context, plan *domain.RoutePlan, requestBaseURL string) *domain.RouteLinkRecord {
	if s.links == nil {
		plan.Warnings = append(plan.Warnings, "route sharing is not configured")
		return nil
	}
	ctx, span := tracer.Start(ctx, "share")
	defer span.End()

	labels := make([]string, len(plan.AvoidAreas))
	for i, r := range plan.AvoidAreas {
		labels[i] = r.String()
	}
	base := s.opts.PublicBaseURL
	if base == "" {
		base = requestBaseURL
	}

	rec, err := s.links.Create(ctx, LinkRequest{
		Origin:      plan.Origin,
		Destination: plan.Destination,
		AvoidLabels: labels,
		BaseURL:     base,
	}, func() ([]byte, error) {
		return json.Marshal(domain.RouteSpec{
			SchemaVersion: LinkSchemaVersion,
			Origin:        plan.Origin,
			Destination:   plan.Destination,
			BufferKm:      plan.BufferKm,
			AvoidAreas:    labels,
			Route:         plan.Route,
			Overlay:       plan.Overlay,
			CreatedAt:     s.now().UTC(),
		})
	}, s.opts.LinkTTL)
	if err != nil {
		span.RecordError(err)
		s.logger.Error("route link store failed, returning plan without link", "error", err)
		plan.Warnings = append(plan.Warnings, "shareable link could not be created")
		return nil
	}

	if rec.Created && s.publisher != nil {
		ev := &domain.LinkCreatedEvent{ID: rec.ID, URL: rec.URL, ExpiresAt: rec.ExpiresAt}
		if err := s.publisher.PublishLinkCreated(ctx, ev); err != nil {
			s.logger.Warn("publish link created", "id", rec.ID, "error", err)
		}
	}
	return rec
}
