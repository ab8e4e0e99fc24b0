package usecases_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/samirrijal/fireroute/internal/adapters/memory"
	"github.com/samirrijal/fireroute/internal/core/domain"
	"github.com/samirrijal/fireroute/internal/core/usecases"
	"github.com/samirrijal/fireroute/internal/pkg/geospatial"
)

// --- Mocks ---

type mockPerimeterSource struct {
	fetchFn func(ctx context.Context, box domain.BoundingBox) (string, error)
	calls   int
}

func (m *mockPerimeterSource) FetchPerimeters(ctx context.Context, box domain.BoundingBox) (string, error) {
	m.calls++
	if m.fetchFn != nil {
		return m.fetchFn(ctx, box)
	}
	return `{"type":"FeatureCollection","features":[]}`, nil
}

type mockGeocoder struct {
	geocodeFn func(ctx context.Context, address string) (domain.Coordinate, error)
}

func (m *mockGeocoder) Geocode(ctx context.Context, address string) (domain.Coordinate, error) {
	if m.geocodeFn != nil {
		return m.geocodeFn(ctx, address)
	}
	return domain.Coordinate{}, domain.ErrNotFound
}

type mockRouter struct {
	routeFn func(ctx context.Context, req domain.RouteRequest) (*domain.RouteSummary, error)
	last    *domain.RouteRequest
}

func (m *mockRouter) Route(ctx context.Context, req domain.RouteRequest) (*domain.RouteSummary, error) {
	m.last = &req
	if m.routeFn != nil {
		return m.routeFn(ctx, req)
	}
	return &domain.RouteSummary{DistanceMeters: 18000, DurationSeconds: 1500, Provider: "mock"}, nil
}

type mockPublisher struct {
	links  []*domain.LinkCreatedEvent
	alerts []*domain.FireZoneAlert
}

func (m *mockPublisher) PublishLinkCreated(ctx context.Context, ev *domain.LinkCreatedEvent) error {
	m.links = append(m.links, ev)
	return nil
}

func (m *mockPublisher) PublishFireZoneAlert(ctx context.Context, a *domain.FireZoneAlert) error {
	m.alerts = append(m.alerts, a)
	return nil
}

const paradiseFire = `{"type":"FeatureCollection","features":[{"type":"Feature",
  "properties":{"IncidentName":"Camp","PercentContained":30},
  "geometry":{"type":"Polygon","coordinates":[[[-121.8,39.6],[-121.4,39.6],[-121.4,39.9],[-121.8,39.9],[-121.8,39.6]]]}}]}`

type fixture struct {
	source    *mockPerimeterSource
	router    *mockRouter
	geocoder  *mockGeocoder
	publisher *mockPublisher
	links     *memory.BlobStore
	svc       *usecases.RoutingService
}

func newFixture(perimeters string) *fixture {
	f := &fixture{
		source:    &mockPerimeterSource{},
		router:    &mockRouter{},
		geocoder:  &mockGeocoder{},
		publisher: &mockPublisher{},
		links:     memory.NewBlobStore(),
	}
	if perimeters != "" {
		f.source.fetchFn = func(ctx context.Context, box domain.BoundingBox) (string, error) { return perimeters, nil }
	}
	cache := usecases.NewTTLCache(memory.NewBlobStore(), "perimeters", nil)
	ps := usecases.NewPerimeterService(f.source, cache, geospatial.NewEngine(nil), usecases.PerimeterOptions{SnapDegrees: 0.05}, nil)
	f.svc = usecases.NewRoutingService(ps, usecases.NewLinkStore(f.links, nil), f.geocoder, f.router, f.publisher,
		usecases.RoutingOptions{PublicBaseURL: "https://fire.example"}, nil)
	return f
}

func ptr[T any](v T) *T { return &v }

// --- Tests ---

func TestRoutingService_EmptyPerimetersSendNoAvoidAreas(t *testing.T) {
	f := newFixture("")

	plan, err := f.svc.PlanRoute(context.Background(), &domain.PlanRequest{
		Origin:      &domain.Coordinate{Lat: 34.0522, Lon: -118.2437},
		Destination: &domain.Coordinate{Lat: 34.1625, Lon: -118.1331},
		BufferKm:    ptr(2.0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.AvoidAreas) != 0 {
		t.Errorf("expected no avoid areas, got %d", len(plan.AvoidAreas))
	}
	if f.router.last == nil || len(f.router.last.AvoidAreas) != 0 {
		t.Errorf("router should be called without avoid areas, got %+v", f.router.last)
	}
	if plan.OriginFire.IsInFireZone || plan.DestinationFire.IsInFireZone {
		t.Error("no endpoint should be in a fire zone")
	}
	if plan.Link != nil {
		t.Error("link should only be created when sharing")
	}
	if plan.DirectDistanceM < 15000 || plan.DirectDistanceM > 17000 {
		t.Errorf("unexpected direct distance %.0f", plan.DirectDistanceM)
	}
}

func TestRoutingService_AvoidsFireAndWarnsForEndpoint(t *testing.T) {
	f := newFixture(paradiseFire)

	plan, err := f.svc.PlanRoute(context.Background(), &domain.PlanRequest{
		Origin:      &domain.Coordinate{Lat: 39.7596, Lon: -121.6219},
		Destination: &domain.Coordinate{Lat: 39.7285, Lon: -121.8375},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.BufferKm != 2 {
		t.Errorf("expected default buffer 2, got %v", plan.BufferKm)
	}
	if len(f.router.last.AvoidAreas) != 1 {
		t.Fatalf("expected one avoid area, got %d", len(f.router.last.AvoidAreas))
	}
	if !plan.OriginFire.IsInFireZone || plan.OriginFire.IncidentName != "Camp" {
		t.Errorf("expected origin inside Camp, got %+v", plan.OriginFire)
	}
	if plan.DestinationFire.IsInFireZone {
		t.Error("destination is outside the perimeter")
	}
	if len(plan.Warnings) != 1 || !strings.Contains(plan.Warnings[0], "Camp") {
		t.Errorf("expected a Camp warning, got %v", plan.Warnings)
	}
	if len(f.publisher.alerts) != 1 || f.publisher.alerts[0].Role != "origin" {
		t.Errorf("expected one origin alert, got %+v", f.publisher.alerts)
	}
	if len(plan.Overlay) == 0 {
		t.Error("expected an overlay")
	}
}

func TestRoutingService_PerimeterFailureDegrades(t *testing.T) {
	f := newFixture("")
	f.source.fetchFn = func(ctx context.Context, box domain.BoundingBox) (string, error) {
		return "", errors.New("arcgis 503")
	}

	plan, err := f.svc.PlanRoute(context.Background(), &domain.PlanRequest{
		Origin:      &domain.Coordinate{Lat: 34.0522, Lon: -118.2437},
		Destination: &domain.Coordinate{Lat: 34.1625, Lon: -118.1331},
	})
	if err != nil {
		t.Fatalf("perimeter failure must not abort routing: %v", err)
	}
	if f.router.last == nil {
		t.Fatal("router should still be called")
	}
	if len(plan.Warnings) == 0 {
		t.Error("expected a degradation warning")
	}
}

func TestRoutingService_ShareCreatesLinkOnce(t *testing.T) {
	f := newFixture(paradiseFire)
	req := &domain.PlanRequest{
		Origin:      &domain.Coordinate{Lat: 39.70, Lon: -121.90},
		Destination: &domain.Coordinate{Lat: 39.95, Lon: -121.30},
		Share:       true,
	}

	first, err := f.svc.PlanRoute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := f.svc.PlanRoute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.Link == nil || second.Link == nil {
		t.Fatal("expected links on both plans")
	}
	if first.Link.ID != second.Link.ID || !first.Link.Created || second.Link.Created {
		t.Errorf("expected one created record reused once, got %+v / %+v", first.Link, second.Link)
	}
	if first.Link.URL != "https://fire.example/view?id="+first.Link.ID {
		t.Errorf("unexpected url %s", first.Link.URL)
	}
	if len(f.publisher.links) != 1 {
		t.Errorf("expected one link event, got %d", len(f.publisher.links))
	}

	blob, err := f.links.Get(context.Background(), first.Link.ID+".json")
	if err != nil {
		t.Fatalf("record not stored: %v", err)
	}
	var spec domain.RouteSpec
	if err := json.Unmarshal(blob.Data, &spec); err != nil {
		t.Fatalf("stored payload is not a RouteSpec: %v", err)
	}
	if spec.SchemaVersion != usecases.LinkSchemaVersion || len(spec.AvoidAreas) != 1 {
		t.Errorf("unexpected stored spec %+v", spec)
	}
}

func TestRoutingService_LinkFailureDegrades(t *testing.T) {
	f := newFixture("")
	failing := &mockBlobStore{existsFn: func(ctx context.Context, key string) (bool, error) {
		return false, errors.New("bucket unreachable")
	}}
	cache := usecases.NewTTLCache(memory.NewBlobStore(), "perimeters", nil)
	ps := usecases.NewPerimeterService(f.source, cache, geospatial.NewEngine(nil), usecases.PerimeterOptions{}, nil)
	svc := usecases.NewRoutingService(ps, usecases.NewLinkStore(failing, nil), nil, f.router, nil, usecases.RoutingOptions{}, nil)

	plan, err := svc.PlanRoute(context.Background(), &domain.PlanRequest{
		Origin:      &domain.Coordinate{Lat: 34.0522, Lon: -118.2437},
		Destination: &domain.Coordinate{Lat: 34.1625, Lon: -118.1331},
		Share:       true,
	})
	if err != nil {
		t.Fatalf("link failure must not abort routing: %v", err)
	}
	if plan.Link != nil {
		t.Error("expected no link")
	}
	if plan.Route.Provider != "mock" {
		t.Error("expected route result to be kept")
	}
}

func TestRoutingService_GeocodesAddresses(t *testing.T) {
	f := newFixture("")
	f.geocoder.geocodeFn = func(ctx context.Context, address string) (domain.Coordinate, error) {
		switch address {
		case "Los Angeles":
			return domain.Coordinate{Lat: 34.0522, Lon: -118.2437}, nil
		case "Pasadena":
			return domain.Coordinate{Lat: 34.1478, Lon: -118.1445}, nil
		}
		return domain.Coordinate{}, domain.ErrNotFound
	}

	plan, err := f.svc.PlanRoute(context.Background(), &domain.PlanRequest{OriginAddress: "Los Angeles", DestinationAddress: "Pasadena"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Destination.Lat != 34.1478 {
		t.Errorf("expected geocoded destination, got %+v", plan.Destination)
	}

	_, err = f.svc.PlanRoute(context.Background(), &domain.PlanRequest{OriginAddress: "Atlantis", DestinationAddress: "Pasadena"})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) || ve.Field != "origin_address" {
		t.Errorf("expected origin_address validation error, got %v", err)
	}
}

func TestRoutingService_ValidationBeforeWork(t *testing.T) {
	tests := []struct {
		name  string
		req   *domain.PlanRequest
		field string
	}{
		{"lat out of range", &domain.PlanRequest{Origin: &domain.Coordinate{Lat: 91}, Destination: &domain.Coordinate{}}, "origin.lat"},
		{"lon out of range", &domain.PlanRequest{Origin: &domain.Coordinate{}, Destination: &domain.Coordinate{Lon: -181}}, "destination.lon"},
		{"buffer too large", &domain.PlanRequest{Origin: &domain.Coordinate{}, Destination: &domain.Coordinate{}, BufferKm: ptr(100.5)}, "buffer_km"},
		{"negative buffer", &domain.PlanRequest{Origin: &domain.Coordinate{}, Destination: &domain.Coordinate{}, BufferKm: ptr(-1.0)}, "buffer_km"},
		{"NaN buffer", &domain.PlanRequest{Origin: &domain.Coordinate{}, Destination: &domain.Coordinate{}, BufferKm: ptr(math.NaN())}, "buffer_km"},
		{"NaN latitude", &domain.PlanRequest{Origin: &domain.Coordinate{Lat: math.NaN()}, Destination: &domain.Coordinate{}}, "origin.lat"},
		{"infinite longitude", &domain.PlanRequest{Origin: &domain.Coordinate{}, Destination: &domain.Coordinate{Lon: math.Inf(-1)}}, "destination.lon"},
		{"missing origin", &domain.PlanRequest{Destination: &domain.Coordinate{}}, "origin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture("")
			_, err := f.svc.PlanRoute(context.Background(), tt.req)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Fatalf("expected validation error on %s, got %v", tt.field, err)
			}
			if f.source.calls != 0 || f.router.last != nil {
				t.Error("no provider should be called for invalid input")
			}
		})
	}
}

func TestRoutingService_ConfiguredZeroBufferIsKept(t *testing.T) {
	f := newFixture("")
	f.svc = usecases.NewRoutingService(
		usecases.NewPerimeterService(f.source, usecases.NewTTLCache(memory.NewBlobStore(), "perimeters", nil), geospatial.NewEngine(nil), usecases.PerimeterOptions{}, nil),
		nil, f.geocoder, f.router, nil,
		usecases.RoutingOptions{DefaultBufferKm: ptr(0.0)}, nil)

	plan, err := f.svc.PlanRoute(context.Background(), &domain.PlanRequest{
		Origin:      &domain.Coordinate{Lat: 34.0522, Lon: -118.2437},
		Destination: &domain.Coordinate{Lat: 34.1625, Lon: -118.1331},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.BufferKm != 0 {
		t.Errorf("expected configured buffer 0, got %g", plan.BufferKm)
	}
	if plan.SearchBox.MinLat != 34.0522 || plan.SearchBox.MaxLon != -118.1331 {
		t.Errorf("expected an unbuffered search box, got %+v", plan.SearchBox)
	}
}

func TestRoutingService_UnsetBufferUsesDefault(t *testing.T) {
	f := newFixture("")

	plan, err := f.svc.PlanRoute(context.Background(), &domain.PlanRequest{
		Origin:      &domain.Coordinate{Lat: 34.0522, Lon: -118.2437},
		Destination: &domain.Coordinate{Lat: 34.1625, Lon: -118.1331},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.BufferKm != usecases.DefaultBufferKm {
		t.Errorf("expected default buffer %g, got %g", usecases.DefaultBufferKm, plan.BufferKm)
	}
}

func TestRoutingService_RouterFailureIsProviderError(t *testing.T) {
	f := newFixture("")
	f.router.routeFn = func(ctx context.Context, req domain.RouteRequest) (*domain.RouteSummary, error) {
		return nil, errors.New("HTTP 500")
	}

	_, err := f.svc.PlanRoute(context.Background(), &domain.PlanRequest{
		Origin:      &domain.Coordinate{Lat: 34, Lon: -118},
		Destination: &domain.Coordinate{Lat: 34.1, Lon: -118.1},
	})
	var pe *domain.ProviderError
	if !errors.As(err, &pe) || pe.Provider != "router" {
		t.Errorf("expected router provider error, got %v", err)
	}
}

func TestPerimeterService_CachesBySnappedCell(t *testing.T) {
	src := &mockPerimeterSource{fetchFn: func(ctx context.Context, box domain.BoundingBox) (string, error) {
		return paradiseFire, nil
	}}
	clk := newClock()
	store := memory.NewBlobStore()
	store.SetClock(clk.Now)
	cache := usecases.NewTTLCache(store, "perimeters", nil)
	cache.SetClock(clk.Now)
	ps := usecases.NewPerimeterService(src, cache, geospatial.NewEngine(nil),
		usecases.PerimeterOptions{TTL: 15 * time.Minute, SnapDegrees: 0.05}, nil)

	ctx := context.Background()
	info, err := ps.FireZoneAt(ctx, domain.Coordinate{Lat: 39.7596, Lon: -121.6219})
	if err != nil || !info.IsInFireZone {
		t.Fatalf("expected fire zone hit, got %+v / %v", info, err)
	}
	if _, err := ps.FireZoneAt(ctx, domain.Coordinate{Lat: 39.7597, Lon: -121.6218}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.calls != 1 {
		t.Errorf("expected nearby points to share a cache cell, got %d fetches", src.calls)
	}

	clk.Advance(15 * time.Minute)
	if _, err := ps.FireZoneAt(ctx, domain.Coordinate{Lat: 39.7596, Lon: -121.6219}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.calls != 2 {
		t.Errorf("expected refetch after ttl, got %d fetches", src.calls)
	}

	incs, err := ps.ListIncidents(ctx, domain.BoundingBox{MinLat: 39, MinLon: -122, MaxLat: 40, MaxLon: -121})
	if err != nil || len(incs) != 1 || incs[0].IncidentName != "Camp" {
		t.Errorf("expected Camp incident, got %+v / %v", incs, err)
	}

	_, err = ps.ListIncidents(ctx, domain.BoundingBox{MinLat: 40, MaxLat: 39})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("expected validation error for inverted box, got %v", err)
	}
}
