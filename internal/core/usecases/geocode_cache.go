package usecases

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/samirrijal/fireroute/internal/core/domain"
	"github.com/samirrijal/fireroute/internal/core/ports"
	"github.com/samirrijal/fireroute/internal/pkg/metrics"
)

// geocodeTTLSeconds keeps resolved addresses for a day. Addresses do not move.
const geocodeTTLSeconds = 24 * 60 * 60

// CachedGeocoder memoizes successful geocoding results in a CacheService.
// Not-found answers are not cached, so a fixed typo is picked up immediately.
type CachedGeocoder struct {
	next  ports.Geocoder
	cache ports.CacheService
}

// NewCachedGeocoder wraps next. A nil cache disables caching.
func NewCachedGeocoder(next ports.Geocoder, cache ports.CacheService) *CachedGeocoder {
	return &CachedGeocoder{next: next, cache: cache}
}

// Geocode resolves address, from cache when possible.
func (g *CachedGeocoder) Geocode(ctx context.Context, address string) (domain.Coordinate, error) {
	cacheKey := "geocode:" + normalizeAddress(address)

	if g.cache != nil {
		if data, err := g.cache.Get(ctx, cacheKey); err == nil {
			var c domain.Coordinate
			if err := json.Unmarshal(data, &c); err == nil {
				metrics.CacheHits.WithLabelValues("geocode").Inc()
				return c, nil
			}
			// Corrupt entry, drop it and resolve again.
			_ = g.cache.Delete(ctx, cacheKey)
		}
		metrics.CacheMisses.WithLabelValues("geocode").Inc()
	}

	c, err := g.next.Geocode(ctx, address)
	if err != nil {
		return domain.Coordinate{}, err
	}

	if g.cache != nil {
		if data, err := json.Marshal(c); err == nil {
			_ = g.cache.Set(ctx, cacheKey, data, geocodeTTLSeconds)
		}
	}
	return c, nil
}

func normalizeAddress(address string) string {
	return strings.Join(strings.Fields(strings.ToLower(address)), " ")
}
