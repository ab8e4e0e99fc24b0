// Package nifc fetches wildfire perimeters from an ArcGIS FeatureServer,
// by default the NIFC WFIGS current interagency perimeters layer.
package nifc

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
	DefaultLayerURL = "https://services3.arcgis.com/T4QMspbfLg3qTGWY/arcgis/rest/services/WFIGS_Interagency_Perimeters_Current/FeatureServer/0"

	providerName = "nifc"

	// DefaultMaxBody caps a perimeter response. Larger bodies are rejected
	// rather than truncated.
	DefaultMaxBody = 32 << 20
)

// Client implements ports.PerimeterSource.
type Client struct {
	layerURL string
	http     *http.Client
	maxBody  int64
}

// New creates a client for an ArcGIS feature layer URL.
func New(layerURL string, timeout time.Duration) *Client {
	if layerURL == "" {
		layerURL = DefaultLayerURL
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		layerURL: strings.TrimRight(layerURL, "/"),
		http:     &http.Client{Timeout: timeout},
		maxBody:  DefaultMaxBody,
	}
}

// SetMaxBody overrides the response size limit.
func (c *Client) SetMaxBody(n int64) { c.maxBody = n }

// FetchPerimeters returns the raw GeoJSON FeatureCollection of perimeters
// intersecting box. The body is returned as-is; parsing is up to the caller.
func (c *Client) FetchPerimeters(ctx context.Context, box domain.BoundingBox) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.queryURL(box), nil)
	if err != nil {
		return "", &domain.ProviderError{Provider: providerName, Err: err}
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &domain.ProviderError{Provider: providerName, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return "", &domain.ProviderError{Provider: providerName, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > c.maxBody {
		return "", &domain.ProviderError{Provider: providerName, Err: fmt.Errorf("response exceeds %d bytes", c.maxBody)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &domain.ProviderError{Provider: providerName, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}
	if msg, ok := arcgisError(body); ok {
		return "", &domain.ProviderError{Provider: providerName, Err: fmt.Errorf("arcgis: %s", msg)}
	}
	return string(body), nil
}

func (c *Client) queryURL(box domain.BoundingBox) string {
	q := url.Values{}
	q.Set("where", "1=1")
	q.Set("geometry", strings.Join([]string{deg(box.MinLon), deg(box.MinLat), deg(box.MaxLon), deg(box.MaxLat)}, ","))
	q.Set("geometryType", "esriGeometryEnvelope")
	q.Set("inSR", "4326")
	q.Set("spatialRel", "esriSpatialRelIntersects")
	q.Set("outFields", "*")
	q.Set("outSR", "4326")
	q.Set("f", "geojson")
	return c.layerURL + "/query?" + q.Encode()
}

func deg(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

// ArcGIS reports query errors with HTTP 200 and an {"error": {...}} body.
func arcgisError(body []byte) (string, bool) {
	var e struct {
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &e) != nil || e.Error == nil {
		return "", false
	}
	return fmt.Sprintf("%d %s", e.Error.Code, e.Error.Message), true
}
