package ports

import (
	"context"

	"github.com/samirrijal/fireroute/internal/core/domain"
)

// BlobStore is a key -> bytes store with per-key metadata.
// Get returns domain.ErrNotFound (possibly wrapped) for a missing key.
type BlobStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) (*domain.Blob, error)
	Put(ctx context.Context, key string, data []byte) error
	SetMetadata(ctx context.Context, key string, meta map[string]string) error
	GetMetadata(ctx context.Context, key string) (map[string]string, error)
}

// AtomicBlobCreator is implemented by backends that can create a key only if
// it is absent, writing data and metadata together.
// created is false when the key already existed; nothing is written then.
type AtomicBlobCreator interface {
	CreateIfAbsent(ctx context.Context, key string, data []byte, meta map[string]string) (created bool, err error)
}

// CacheService is a plain key -> bytes cache with per-entry expiry.
// Get returns domain.ErrNotFound (possibly wrapped) for a missing key.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
