package here_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/samirrijal/fireroute/internal/adapters/providers/here"
	"github.com/samirrijal/fireroute/internal/core/domain"
)

func TestGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apiKey") != "k" {
			t.Errorf("missing api key in %s", r.URL)
		}
		if r.URL.Query().Get("q") == "nowhere" {
			_, _ = w.Write([]byte(`{"items":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"items":[{"title":"Paradise, CA","position":{"lat":39.7596,"lng":-121.6219}}]}`))
	}))
	defer srv.Close()

	c := here.New(here.Options{APIKey: "k", GeocodeURL: srv.URL})

	got, err := c.Geocode(context.Background(), "Paradise, CA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Lat != 39.7596 || got.Lon != -121.6219 {
		t.Errorf("unexpected coordinate %+v", got)
	}

	if _, err := c.Geocode(context.Background(), "nowhere"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestRoute_AvoidAreas(t *testing.T) {
	var gotAvoid []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAvoid = r.URL.Query()["avoid[areas]"]
		if r.URL.Query().Get("origin") != "34.052200,-118.243700" {
			t.Errorf("unexpected origin %q", r.URL.Query().Get("origin"))
		}
		_, _ = w.Write([]byte(`{"routes":[{"sections":[
			{"summary":{"length":1000,"duration":60},"polyline":"abc"},
			{"summary":{"length":500,"duration":30},"polyline":"def"}]}]}`))
	}))
	defer srv.Close()

	c := here.New(here.Options{APIKey: "k", RouterURL: srv.URL})
	req := domain.RouteRequest{
		Origin:      domain.Coordinate{Lat: 34.0522, Lon: -118.2437},
		Destination: domain.Coordinate{Lat: 34.1625, Lon: -118.1331},
	}

	sum, err := c.Route(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotAvoid) != 0 {
		t.Errorf("no avoid parameter expected without rectangles, got %v", gotAvoid)
	}
	if sum.DistanceMeters != 1500 || sum.DurationSeconds != 90 || sum.Provider != "here" {
		t.Errorf("unexpected summary %+v", sum)
	}

	req.AvoidAreas = []domain.AvoidRectangle{
		{BoundingBox: domain.BoundingBox{MinLat: 34.1, MinLon: -118.2, MaxLat: 34.11, MaxLon: -118.19}},
		{BoundingBox: domain.BoundingBox{MinLat: 34.0, MinLon: -118.3, MaxLat: 34.01, MaxLon: -118.29}},
	}
	if _, err := c.Route(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "bbox:-118.200000,34.100000,-118.190000,34.110000|bbox:-118.300000,34.000000,-118.290000,34.010000"
	if len(gotAvoid) != 1 || gotAvoid[0] != want {
		t.Errorf("expected avoid %q, got %v", want, gotAvoid)
	}
}

func TestRoute_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.RawQuery, "destination=0.000000") {
			_, _ = w.Write([]byte(`{"routes":[],"notices":[{"title":"Route calculation failed","code":"noRouteFound"}]}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
	}))
	defer srv.Close()

	c := here.New(here.Options{APIKey: "bad", RouterURL: srv.URL})

	_, err := c.Route(context.Background(), domain.RouteRequest{Destination: domain.Coordinate{Lat: 1}})
	var pe *domain.ProviderError
	if !errors.As(err, &pe) || !strings.Contains(err.Error(), "401") {
		t.Errorf("expected provider error with status, got %v", err)
	}

	_, err = c.Route(context.Background(), domain.RouteRequest{})
	if !errors.Is(err, domain.ErrNoRoute) {
		t.Errorf("expected no route, got %v", err)
	}
}
