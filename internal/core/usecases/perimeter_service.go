package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samirrijal/fireroute/internal/core/domain"
	"github.com/samirrijal/fireroute/internal/core/ports"
	"github.com/samirrijal/fireroute/internal/pkg/geospatial"
	"github.com/samirrijal/fireroute/internal/pkg/metrics"
)

// PerimeterOptions tunes perimeter caching.
type PerimeterOptions struct {
	TTL         time.Duration // freshness window of a cached cell
	SnapDegrees float64       // grid the query box is snapped to before keying
	PointBuffer float64       // km searched around a single point
}

// PerimeterService serves wildfire perimeters through the TTL cache.
type PerimeterService struct {
	source ports.PerimeterSource
	cache  *TTLCache
	engine *geospatial.Engine
	opts   PerimeterOptions
	logger *slog.Logger
}

// NewPerimeterService creates a PerimeterService.
func NewPerimeterService(
	source ports.PerimeterSource,
	cache *TTLCache,
	engine *geospatial.Engine,
	opts PerimeterOptions,
	logger *slog.Logger,
) *PerimeterService {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TTL <= 0 {
		opts.TTL = 15 * time.Minute
	}
	if opts.PointBuffer <= 0 {
		opts.PointBuffer = 5
	}
	return &PerimeterService{source: source, cache: cache, engine: engine, opts: opts, logger: logger}
}

// CacheKey returns the stable cache key for a query box.
func (s *PerimeterService) CacheKey(box domain.BoundingBox) (string, domain.BoundingBox) {
	snapped := geospatial.SnapBBox(box, s.opts.SnapDegrees)
	return "perimeters/" + geospatial.CellKey(snapped), snapped
}

// Load returns the perimeter FeatureCollection covering box, from cache when fresh.
// Only a provider failure is returned as an error.
func (s *PerimeterService) Load(ctx context.Context, box domain.BoundingBox) (string, error) {
	key, snapped := s.CacheKey(box)
	return s.cache.LoadOrRefresh(ctx, key, s.opts.TTL, func(ctx context.Context) (string, error) {
		start := time.Now()
		payload, err := s.source.FetchPerimeters(ctx, snapped)
		metrics.ObserveProvider("perimeters", start, err)
		if err != nil {
			return "", asProviderError("perimeters", err)
		}
		return payload, nil
	})
}

// Perimeters loads and parses the perimeters covering box.
func (s *PerimeterService) Perimeters(ctx context.Context, box domain.BoundingBox) ([]geospatial.Perimeter, error) {
	payload, err := s.Load(ctx, box)
	if err != nil {
		return nil, err
	}
	return s.engine.Parse(payload), nil
}

// FireZoneAt classifies a single point against the perimeters around it.
func (s *PerimeterService) FireZoneAt(ctx context.Context, point domain.Coordinate) (domain.FireZoneInfo, error) {
	if err := point.Validate("point"); err != nil {
		return domain.FireZoneInfo{}, err
	}
	payload, err := s.Load(ctx, geospatial.ComputeBBox(point, point, s.opts.PointBuffer))
	if err != nil {
		return domain.FireZoneInfo{}, err
	}
	info := s.engine.CheckPointInFireZones(payload, point)
	recordFireCheck(info)
	return info, nil
}

// ListIncidents summarizes every perimeter intersecting box.
func (s *PerimeterService) ListIncidents(ctx context.Context, box domain.BoundingBox) ([]domain.FireIncident, error) {
	if err := ValidateBox(box); err != nil {
		return nil, err
	}
	perims, err := s.Perimeters(ctx, box)
	if err != nil {
		return nil, err
	}
	return geospatial.Incidents(perims), nil
}

// Warm makes sure the cache entry for box is fresh.
func (s *PerimeterService) Warm(ctx context.Context, req *domain.WarmRequest) error {
	if err := ValidateBox(req.Bounds); err != nil {
		return err
	}
	payload, err := s.Load(ctx, req.Bounds)
	if err != nil {
		return fmt.Errorf("warm %q: %w", req.Name, err)
	}
	s.logger.Info("perimeter cache warmed", "region", req.Name, "bytes", len(payload))
	return nil
}

// ValidateBox checks a caller-supplied box.
func ValidateBox(b domain.BoundingBox) error {
	if err := (domain.Coordinate{Lat: b.MinLat, Lon: b.MinLon}).Validate("min"); err != nil {
		return err
	}
	if err := (domain.Coordinate{Lat: b.MaxLat, Lon: b.MaxLon}).Validate("max"); err != nil {
		return err
	}
	if b.MinLat > b.MaxLat || b.MinLon > b.MaxLon {
		return &domain.ValidationError{Field: "bounds", Message: "min corner must not exceed max corner"}
	}
	return nil
}

func recordFireCheck(info domain.FireZoneInfo) {
	if info.IsInFireZone {
		metrics.FireZoneChecks.WithLabelValues("inside").Inc()
	} else {
		metrics.FireZoneChecks.WithLabelValues("outside").Inc()
	}
}

func asProviderError(provider string, err error) error {
	var pe *domain.ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &domain.ProviderError{Provider: provider, Err: err}
}
