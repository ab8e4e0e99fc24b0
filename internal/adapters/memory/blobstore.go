package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samirrijal/fireroute/internal/core/domain"
)

// entry presence is map membership; an empty payload is still a value.
type entry struct {
	data       []byte
	modifiedAt time.Time
	meta       map[string]string
}

// BlobStore is an in-process ports.BlobStore. It also implements
// ports.AtomicBlobCreator. Contents are lost on restart.
type BlobStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time
}

// NewBlobStore creates an empty store.
func NewBlobStore() *BlobStore {
	return &BlobStore{entries: make(map[string]*entry), now: time.Now}
}

// SetClock overrides the time stamped on writes.
func (s *BlobStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *BlobStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[key]
	return ok, nil
}

func (s *BlobStore) Get(_ context.Context, key string) (*domain.Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", key, domain.ErrNotFound)
	}
	return &domain.Blob{Data: append([]byte{}, e.data...), LastModifiedAt: e.modifiedAt}, nil
}

func (s *BlobStore) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	e.data = append([]byte{}, data...)
	e.modifiedAt = s.now()
	return nil
}

func (s *BlobStore) SetMetadata(_ context.Context, key string, meta map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return fmt.Errorf("blob %s: %w", key, domain.ErrNotFound)
	}
	e.meta = copyMeta(meta)
	return nil
}

func (s *BlobStore) GetMetadata(_ context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", key, domain.ErrNotFound)
	}
	return copyMeta(e.meta), nil
}

// CreateIfAbsent writes data and metadata under key unless key exists.
func (s *BlobStore) CreateIfAbsent(_ context.Context, key string, data []byte, meta map[string]string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; ok {
		return false, nil
	}
	s.entries[key] = &entry{
		data:       append([]byte{}, data...),
		modifiedAt: s.now(),
		meta:       copyMeta(meta),
	}
	return true, nil
}

func copyMeta(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
