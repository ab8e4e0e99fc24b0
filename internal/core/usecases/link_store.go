package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/samirrijal/fireroute/internal/core/domain"
	"github.com/samirrijal/fireroute/internal/core/ports"
	"github.com/samirrijal/fireroute/internal/pkg/metrics"
)

// LinkSchemaVersion is part of every link id. Bump it whenever the stored
// RouteSpec changes shape so old records are never matched.
const LinkSchemaVersion = "route-spec-v1"

// DefaultLinkTTL applies when Create is given a non-positive ttl.
const DefaultLinkTTL = 24 * time.Hour

const expiresAtKey = "ExpiresAt"

// LinkRequest identifies a shareable route link.
type LinkRequest struct {
	Origin      domain.Coordinate
	Destination domain.Coordinate
	AvoidLabels []string
	BaseURL     string
}

// PayloadBuilder renders the record body. It only runs when a new record is written.
type PayloadBuilder func() ([]byte, error)

// LinkStore keeps immutable, content-addressed route records. Identical
// requests on the same UTC day resolve to the same record.
type LinkStore struct {
	store  ports.BlobStore
	logger *slog.Logger
	now    func() time.Time
}

// NewLinkStore creates a LinkStore.
func NewLinkStore(store ports.BlobStore, logger *slog.Logger) *LinkStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &LinkStore{store: store, logger: logger, now: time.Now}
}

// SetClock overrides the time source.
func (s *LinkStore) SetClock(now func() time.Time) { s.now = now }

// LinkID derives the 12-hex-char id for a request on the given day.
// Avoid labels are sorted on a copy, so their order never matters.
func LinkID(origin, destination domain.Coordinate, avoidLabels []string, day time.Time) string {
	labels := append([]string(nil), avoidLabels...)
	sort.Strings(labels)

	canonical := fmt.Sprintf("%.5f,%.5f|%.5f,%.5f|%s|%s|%s",
		origin.Lat, origin.Lon,
		destination.Lat, destination.Lon,
		strings.Join(labels, ";"),
		day.UTC().Format("20060102"),
		LinkSchemaVersion,
	)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])[:12]
}

// Create stores the payload under the request's id unless a record already
// exists, in which case the existing record and its original expiry are
// returned untouched. Backend failures are returned to the caller.
func (s *LinkStore) Create(ctx context.Context, req LinkRequest, build PayloadBuilder, ttl time.Duration) (*domain.RouteLinkRecord, error) {
	if ttl <= 0 {
		ttl = DefaultLinkTTL
	}
	now := s.now().UTC()
	id := LinkID(req.Origin, req.Destination, req.AvoidLabels, now)
	key := id + ".json"
	rec := &domain.RouteLinkRecord{ID: id, URL: linkURL(req.BaseURL, id)}

	var created bool
	var err error
	if atomic, ok := s.store.(ports.AtomicBlobCreator); ok {
		created, err = s.createAtomic(ctx, atomic, key, build, now.Add(ttl))
	} else {
		created, err = s.createChecked(ctx, key, build, now.Add(ttl))
	}
	if err != nil {
		return nil, err
	}

	if created {
		rec.Created = true
		rec.ExpiresAt = now.Add(ttl)
		metrics.LinksTotal.WithLabelValues("created").Inc()
		s.logger.Info("route link created", "id", id, "expires_at", rec.ExpiresAt)
		return rec, nil
	}

	meta, err := s.store.GetMetadata(ctx, key)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("read link metadata %s: %w", id, err)
	}
	exp, err := parseExpiry(meta)
	if err != nil {
		// Payload written but metadata lost (a crash between the two writes).
		s.logger.Warn("route link missing expiry, restoring", "id", id, "error", err)
		exp = now.Add(ttl)
		if err := s.store.SetMetadata(ctx, key, expiryMeta(exp)); err != nil {
			return nil, fmt.Errorf("write link metadata %s: %w", id, err)
		}
	}
	rec.ExpiresAt = exp
	metrics.LinksTotal.WithLabelValues("reused").Inc()
	s.logger.Debug("route link reused", "id", id)
	return rec, nil
}

func (s *LinkStore) createAtomic(ctx context.Context, atomic ports.AtomicBlobCreator, key string, build PayloadBuilder, expiresAt time.Time) (bool, error) {
	// The payload has to exist before the create-if-absent call, so it is
	// built even when the record turns out to exist already.
	data, err := build()
	if err != nil {
		return false, fmt.Errorf("build link payload: %w", err)
	}
	created, err := atomic.CreateIfAbsent(ctx, key, data, expiryMeta(expiresAt))
	if err != nil {
		return false, fmt.Errorf("create link %s: %w", key, err)
	}
	return created, nil
}

// createChecked is the check-then-create path for stores without an atomic
// primitive. Two concurrent callers may both write; both write the same content.
func (s *LinkStore) createChecked(ctx context.Context, key string, build PayloadBuilder, expiresAt time.Time) (bool, error) {
	exists, err := s.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check link %s: %w", key, err)
	}
	if exists {
		return false, nil
	}

	data, err := build()
	if err != nil {
		return false, fmt.Errorf("build link payload: %w", err)
	}
	if err := s.store.Put(ctx, key, data); err != nil {
		return false, fmt.Errorf("write link %s: %w", key, err)
	}
	if err := s.store.SetMetadata(ctx, key, expiryMeta(expiresAt)); err != nil {
		return false, fmt.Errorf("write link metadata %s: %w", key, err)
	}
	return true, nil
}

// Resolve returns the stored payload for id. It returns domain.ErrLinkNotFound
// for unknown ids and domain.ErrLinkExpired once the expiry has passed;
// expired records are kept, only refused.
func (s *LinkStore) Resolve(ctx context.Context, id string) (*domain.RouteLinkRecord, error) {
	if !validLinkID(id) {
		return nil, domain.ErrLinkNotFound
	}
	key := id + ".json"

	blob, err := s.store.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrLinkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read link %s: %w", id, err)
	}

	meta, err := s.store.GetMetadata(ctx, key)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("read link metadata %s: %w", id, err)
	}
	exp, err := parseExpiry(meta)
	if err != nil {
		// A record without a readable expiry was never finished.
		return nil, domain.ErrLinkNotFound
	}
	if !s.now().Before(exp) {
		return nil, domain.ErrLinkExpired
	}

	return &domain.RouteLinkRecord{ID: id, ExpiresAt: exp, Payload: blob.Data}, nil
}

func validLinkID(id string) bool {
	if len(id) != 12 {
		return false
	}
	for _, r := range id {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

func linkURL(base, id string) string {
	return strings.TrimRight(base, "/") + "/view?id=" + id
}

func expiryMeta(t time.Time) map[string]string {
	return map[string]string{expiresAtKey: t.UTC().Format(time.RFC3339)}
}

func parseExpiry(meta map[string]string) (time.Time, error) {
	raw, ok := meta[expiresAtKey]
	if !ok {
		return time.Time{}, fmt.Errorf("missing %s metadata", expiresAtKey)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s: %w", expiresAtKey, err)
	}
	return t, nil
}
