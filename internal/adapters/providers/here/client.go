// Package here talks to the HERE Geocoding & Search v1 and Routing v8 APIs.
package here

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samirrijal/fireroute/internal/core/domain"
)

const (
	DefaultGeocodeURL = "https://geocode.search.hereapi.com/v1/geocode"
	DefaultRouterURL  = "https://router.hereapi.com/v8/routes"

	providerName = "here"
)

// Client implements ports.Geocoder and ports.Router.
type Client struct {
	apiKey     string
	geocodeURL string
	routerURL  string
	http       *http.Client
}

// Options configures a Client. Empty URLs use the public endpoints.
type Options struct {
	APIKey     string
	GeocodeURL string
	RouterURL  string
	Timeout    time.Duration
}

// New creates a HERE client.
func New(opts Options) *Client {
	if opts.GeocodeURL == "" {
		opts.GeocodeURL = DefaultGeocodeURL
	}
	if opts.RouterURL == "" {
		opts.RouterURL = DefaultRouterURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Client{
		apiKey:     opts.APIKey,
		geocodeURL: opts.GeocodeURL,
		routerURL:  opts.RouterURL,
		http:       &http.Client{Timeout: opts.Timeout},
	}
}

type geocodeResponse struct {
	Items []struct {
		Title    string `json:"title"`
		Position struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"position"`
	} `json:"items"`
}

// Geocode returns the best match for address, or domain.ErrNotFound.
func (c *Client) Geocode(ctx context.Context, address string) (domain.Coordinate, error) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("limit", "1")
	q.Set("apiKey", c.apiKey)

	var r geocodeResponse
	if err := c.getJSON(ctx, c.geocodeURL+"?"+q.Encode(), &r); err != nil {
		return domain.Coordinate{}, err
	}
	if len(r.Items) == 0 {
		return domain.Coordinate{}, fmt.Errorf("geocode %q: %w", address, domain.ErrNotFound)
	}
	p := r.Items[0].Position
	return domain.Coordinate{Lat: p.Lat, Lon: p.Lng}, nil
}

type routeResponse struct {
	Routes []struct {
		Sections []struct {
			Summary struct {
				Length   int `json:"length"`
				Duration int `json:"duration"`
			} `json:"summary"`
			Polyline string `json:"polyline"`
		} `json:"sections"`
	} `json:"routes"`
	Notices []struct {
		Title string `json:"title"`
		Code  string `json:"code"`
	} `json:"notices"`
}

// Route asks for a car route around req.AvoidAreas. Without avoid areas no
// avoid parameter is sent.
func (c *Client) Route(ctx context.Context, req domain.RouteRequest) (*domain.RouteSummary, error) {
	var r routeResponse
	if err := c.getJSON(ctx, c.routeURL(req), &r); err != nil {
		return nil, err
	}
	if len(r.Routes) == 0 || len(r.Routes[0].Sections) == 0 {
		if len(r.Notices) > 0 {
			return nil, fmt.Errorf("%w: %s", domain.ErrNoRoute, r.Notices[0].Title)
		}
		return nil, domain.ErrNoRoute
	}

	out := &domain.RouteSummary{Provider: providerName}
	polylines := make([]string, 0, len(r.Routes[0].Sections))
	for _, s := range r.Routes[0].Sections {
		out.DistanceMeters += s.Summary.Length
		out.DurationSeconds += s.Summary.Duration
		polylines = append(polylines, s.Polyline)
	}
	out.Polyline = strings.Join(polylines, ";")
	return out, nil
}

func (c *Client) routeURL(req domain.RouteRequest) string {
	q := url.Values{}
	q.Set("transportMode", "car")
	q.Set("origin", latLng(req.Origin))
	q.Set("destination", latLng(req.Destination))
	q.Set("return", "summary,polyline")
	q.Set("apiKey", c.apiKey)
	if len(req.AvoidAreas) > 0 {
		areas := make([]string, len(req.AvoidAreas))
		for i, a := range req.AvoidAreas {
			areas[i] = "bbox:" + a.String()
		}
		q.Set("avoid[areas]", strings.Join(areas, "|"))
	}
	return c.routerURL + "?" + q.Encode()
}

func latLng(c domain.Coordinate) string {
	return strconv.FormatFloat(c.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lon, 'f', 6, 64)
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &domain.ProviderError{Provider: providerName, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.ProviderError{Provider: providerName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &domain.ProviderError{
			Provider: providerName,
			Err:      fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.ProviderError{Provider: providerName, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}
