package usecases

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samirrijal/fireroute/internal/core/domain"
	"github.com/samirrijal/fireroute/internal/core/ports"
	"github.com/samirrijal/fireroute/internal/pkg/metrics"
)

// RefreshFunc produces a fresh payload for a cache entry.
type RefreshFunc func(ctx context.Context) (string, error)

// TTLCache is a read-through cache over a BlobStore. Freshness is judged on
// read from the entry's last-modified time; entries are never evicted.
//
// Concurrent misses on one key may each run the refresher; the last write wins.
type TTLCache struct {
	store  ports.BlobStore
	name   string
	logger *slog.Logger
	now    func() time.Time
}

// NewTTLCache creates a TTLCache. name labels log lines and metrics.
func NewTTLCache(store ports.BlobStore, name string, logger *slog.Logger) *TTLCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &TTLCache{store: store, name: name, logger: logger, now: time.Now}
}

// SetClock overrides the time source.
func (c *TTLCache) SetClock(now func() time.Time) { c.now = now }

// LoadOrRefresh returns the payload stored under key when it is younger than
// ttl, otherwise calls refresh and stores its result. A failing store never
// fails the call: the refresher is used directly instead. The only error
// returned is the refresher's own.
func (c *TTLCache) LoadOrRefresh(ctx context.Context, key string, ttl time.Duration, refresh RefreshFunc) (string, error) {
	blobKey := key + ".json"

	blob, err := c.store.Get(ctx, blobKey)
	switch {
	case err == nil:
		if c.now().Sub(blob.LastModifiedAt) < ttl {
			metrics.CacheHits.WithLabelValues(c.name).Inc()
			return string(blob.Data), nil
		}
		c.logger.Debug("cache entry stale", "cache", c.name, "key", blobKey, "modified_at", blob.LastModifiedAt)
	case errors.Is(err, domain.ErrNotFound):
	default:
		c.logger.Warn("cache read failed, refreshing directly", "cache", c.name, "key", blobKey, "error", err)
		metrics.CacheFallbacks.WithLabelValues(c.name).Inc()
		return refresh(ctx)
	}

	metrics.CacheMisses.WithLabelValues(c.name).Inc()
	payload, err := refresh(ctx)
	if err != nil {
		return "", err
	}

	if err := c.store.Put(ctx, blobKey, []byte(payload)); err != nil {
		c.logger.Warn("cache write failed", "cache", c.name, "key", blobKey, "error", err)
		metrics.CacheFallbacks.WithLabelValues(c.name).Inc()
	}
	return payload, nil
}
