// Package app wires configuration into storage backends, providers and usecases
// shared by the api, mcp and warmer binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samirrijal/fireroute/internal/adapters/memory"
	"github.com/samirrijal/fireroute/internal/adapters/postgres"
	"github.com/samirrijal/fireroute/internal/adapters/providers/here"
	"github.com/samirrijal/fireroute/internal/adapters/providers/nifc"
	"github.com/samirrijal/fireroute/internal/adapters/valkey"
	"github.com/samirrijal/fireroute/internal/core/domain"
	"github.com/samirrijal/fireroute/internal/core/ports"
	"github.com/samirrijal/fireroute/internal/core/usecases"
	"github.com/samirrijal/fireroute/internal/pkg/config"
	"github.com/samirrijal/fireroute/internal/pkg/geospatial"
)

// Stores holds the connections and blob stores selected by config.Storage.
// DB and Cache are nil when no cache uses that backend.
type Stores struct {
	DB         *postgres.DB
	Cache      *valkey.Cache
	Perimeters ports.BlobStore
	Links      ports.BlobStore
}

// OpenStores connects only the backends the configuration asks for.
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	s := &Stores{}

	if cfg.Storage.Uses(config.BackendPostgres) {
		db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		s.DB = db
	}
	if cfg.Storage.Uses(config.BackendValkey) {
		cache, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("valkey: %w", err)
		}
		s.Cache = cache
	}

	s.Perimeters = s.blobStore(cfg.Storage.PerimeterBackend, "perimeters")
	s.Links = s.blobStore(cfg.Storage.LinkBackend, "links")
	return s, nil
}

func (s *Stores) blobStore(backend, name string) ports.BlobStore {
	switch backend {
	case config.BackendPostgres:
		return postgres.NewBlobStore(s.DB)
	case config.BackendValkey:
		return valkey.NewBlobStore(s.Cache, "fireroute:"+name+":")
	default:
		return memory.NewBlobStore()
	}
}

// Close releases every open connection.
func (s *Stores) Close() {
	if s.Cache != nil {
		s.Cache.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
}

// Services are the usecases built on top of Stores.
type Services struct {
	Perimeters *usecases.PerimeterService
	Links      *usecases.LinkStore
	Routing    *usecases.RoutingService
}

// NewServices builds the usecases. publisher may be nil.
func NewServices(cfg *config.Config, stores *Stores, publisher ports.EventPublisher, logger *slog.Logger) *Services {
	if logger == nil {
		logger = slog.Default()
	}

	source := nifc.New(cfg.Providers.PerimeterURL, cfg.Providers.Timeout)
	hereClient := here.New(here.Options{
		APIKey:     cfg.Providers.HereAPIKey,
		GeocodeURL: cfg.Providers.GeocodeURL,
		RouterURL:  cfg.Providers.RouterURL,
		Timeout:    cfg.Providers.Timeout,
	})

	cache := usecases.NewTTLCache(stores.Perimeters, "perimeters", logger)
	perimeters := usecases.NewPerimeterService(source, cache, geospatial.NewEngine(logger), usecases.PerimeterOptions{
		TTL:         cfg.Routing.PerimeterTTL,
		SnapDegrees: cfg.Routing.SnapDegrees,
		PointBuffer: cfg.Routing.PointBufferKm,
	}, logger)
	links := usecases.NewLinkStore(stores.Links, logger)

	var geocoder ports.Geocoder = hereClient
	if stores.Cache != nil {
		geocoder = usecases.NewCachedGeocoder(hereClient, stores.Cache)
	}

	routing := usecases.NewRoutingService(perimeters, links, geocoder, hereClient, publisher, usecases.RoutingOptions{
		DefaultBufferKm: &cfg.Routing.BufferKm,
		MaxAvoidRects:   cfg.Routing.MaxAvoidRects,
		LinkTTL:         cfg.Routing.LinkTTL,
		PublicBaseURL:   cfg.Server.PublicBaseURL,
	}, logger)

	return &Services{Perimeters: perimeters, Links: links, Routing: routing}
}

// WarmRegions converts configured regions into warm-up requests.
func WarmRegions(cfg *config.Config) []domain.WarmRequest {
	out := make([]domain.WarmRequest, 0, len(cfg.Temporal.WarmRegions))
	for _, r := range cfg.Temporal.WarmRegions {
		out = append(out, domain.WarmRequest{
			Name:   r.Name,
			Bounds: domain.BoundingBox{MinLat: r.MinLat, MinLon: r.MinLon, MaxLat: r.MaxLat, MaxLon: r.MaxLon},
		})
	}
	return out
}
