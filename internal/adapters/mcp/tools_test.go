package mcpadapter_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	mcpadapter "github.com/samirrijal/fireroute/internal/adapters/mcp"
	"github.com/samirrijal/fireroute/internal/adapters/memory"
	"github.com/samirrijal/fireroute/internal/core/domain"
	"github.com/samirrijal/fireroute/internal/core/usecases"
	"github.com/samirrijal/fireroute/internal/pkg/geospatial"
)

type stubSource struct{ payload string }

func (s stubSource) FetchPerimeters(ctx context.Context, box domain.BoundingBox) (string, error) {
	return s.payload, nil
}

type stubGeocoder struct{}

func (stubGeocoder) Geocode(ctx context.Context, address string) (domain.Coordinate, error) {
	if address == "Paradise, CA" {
		return domain.Coordinate{Lat: 39.7596, Lon: -121.6219}, nil
	}
	return domain.Coordinate{}, domain.ErrNotFound
}

type stubRouter struct{}

func (stubRouter) Route(ctx context.Context, req domain.RouteRequest) (*domain.RouteSummary, error) {
	return &domain.RouteSummary{DistanceMeters: 25000, DurationSeconds: 1800, Provider: "stub"}, nil
}

const campFire = `{"type":"FeatureCollection","features":[{"type":"Feature",
  "properties":{"IncidentName":"Camp"},
  "geometry":{"type":"Polygon","coordinates":[[[-121.8,39.6],[-121.4,39.6],[-121.4,39.9],[-121.8,39.9],[-121.8,39.6]]]}}]}`

func newServices() mcpadapter.Services {
	cache := usecases.NewTTLCache(memory.NewBlobStore(), "perimeters", nil)
	ps := usecases.NewPerimeterService(stubSource{payload: campFire}, cache, geospatial.NewEngine(nil),
		usecases.PerimeterOptions{SnapDegrees: 0.05}, nil)
	links := usecases.NewLinkStore(memory.NewBlobStore(), nil)
	rs := usecases.NewRoutingService(ps, links, stubGeocoder{}, stubRouter{}, nil,
		usecases.RoutingOptions{PublicBaseURL: "https://fire.example"}, nil)
	return mcpadapter.Services{Routing: rs, Perimeters: ps, Links: links}
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return tc.Text
}

func TestFireZoneTool_Inside(t *testing.T) {
	tool := mcpadapter.NewFireZoneTool(newServices().Perimeters)

	res, err := tool.Handle(context.Background(), call(map[string]any{"lat": 39.7596, "lon": -121.6219}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", text(t, res))
	}
	var info domain.FireZoneInfo
	if err := json.Unmarshal([]byte(text(t, res)), &info); err != nil {
		t.Fatal(err)
	}
	if !info.IsInFireZone || info.IncidentName != "Camp" {
		t.Errorf("unexpected result %+v", info)
	}
}

func TestFireZoneTool_MissingArgument(t *testing.T) {
	tool := mcpadapter.NewFireZoneTool(newServices().Perimeters)

	res, _ := tool.Handle(context.Background(), call(map[string]any{"lat": 39.7}))
	if !res.IsError {
		t.Error("expected a tool error for a missing lon")
	}
}

func TestFireZoneTool_OutOfRange(t *testing.T) {
	tool := mcpadapter.NewFireZoneTool(newServices().Perimeters)

	res, _ := tool.Handle(context.Background(), call(map[string]any{"lat": 120.0, "lon": 0.0}))
	if !res.IsError || !strings.Contains(text(t, res), "point.lat") {
		t.Errorf("expected a validation error naming point.lat, got %+v", res)
	}
}

func TestPlanRouteTool_AddressAndShare(t *testing.T) {
	svc := newServices()
	plan := mcpadapter.NewPlanRouteTool(svc.Routing)

	res, err := plan.Handle(context.Background(), call(map[string]any{
		"origin_address":  "Paradise, CA",
		"destination_lat": 39.7285,
		"destination_lon": -121.8375,
		"buffer_km":       1.0,
		"share":           true,
	}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", text(t, res))
	}

	var out struct {
		BufferKm float64                 `json:"buffer_km"`
		Link     *domain.RouteLinkRecord `json:"link"`
	}
	if err := json.Unmarshal([]byte(text(t, res)), &out); err != nil {
		t.Fatal(err)
	}
	if out.BufferKm != 1 {
		t.Errorf("expected buffer 1, got %v", out.BufferKm)
	}
	if out.Link == nil || !strings.HasPrefix(out.Link.URL, "https://fire.example/view?id=") {
		t.Fatalf("expected a share link, got %+v", out.Link)
	}

	link := mcpadapter.NewRouteLinkTool(svc.Links)
	res, _ = link.Handle(context.Background(), call(map[string]any{"id": out.Link.URL}))
	if res.IsError {
		t.Fatalf("link lookup by URL failed: %s", text(t, res))
	}
	var spec domain.RouteSpec
	if err := json.Unmarshal([]byte(text(t, res)), &spec); err != nil {
		t.Fatal(err)
	}
	if spec.SchemaVersion != usecases.LinkSchemaVersion {
		t.Errorf("unexpected schema %q", spec.SchemaVersion)
	}
}

func TestPlanRouteTool_UnknownAddress(t *testing.T) {
	plan := mcpadapter.NewPlanRouteTool(newServices().Routing)

	res, _ := plan.Handle(context.Background(), call(map[string]any{
		"origin_address":      "Atlantis",
		"destination_address": "Paradise, CA",
	}))
	if !res.IsError || !strings.Contains(text(t, res), "origin_address") {
		t.Errorf("expected origin_address error, got %+v", res)
	}
}

func TestRouteLinkTool_NotFound(t *testing.T) {
	link := mcpadapter.NewRouteLinkTool(newServices().Links)

	res, _ := link.Handle(context.Background(), call(map[string]any{"id": "0123456789ab"}))
	if !res.IsError || text(t, res) != "route link not found" {
		t.Errorf("expected not found, got %+v", res)
	}
}

func TestNew_RegistersTools(t *testing.T) {
	if s := mcpadapter.New(newServices()); s == nil {
		t.Fatal("expected a server")
	}
}
