package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/fireroute/internal/core/domain"
)

// BlobStore implements ports.BlobStore and ports.AtomicBlobCreator on the
// blobs table (see migrations/001_blobs.sql).
type BlobStore struct {
	db  *DB
	now func() time.Time
}

// NewBlobStore creates a new BlobStore.
func NewBlobStore(db *DB) *BlobStore {
	return &BlobStore{db: db, now: time.Now}
}

func (s *BlobStore) Exists(ctx context.Context, key string) (bool, error) {
	var ok bool
	err := s.db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM blobs WHERE key = $1)`, key).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("blob exists %s: %w", key, err)
	}
	return ok, nil
}

func (s *BlobStore) Get(ctx context.Context, key string) (*domain.Blob, error) {
	var b domain.Blob
	err := s.db.Pool.QueryRow(ctx, `SELECT data, modified_at FROM blobs WHERE key = $1`, key).
		Scan(&b.Data, &b.LastModifiedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("blob %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("blob get %s: %w", key, err)
	}
	return &b, nil
}

// Put overwrites the payload and stamps modified_at; metadata is kept.
func (s *BlobStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO blobs (key, data, modified_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET data = EXCLUDED.data, modified_at = EXCLUDED.modified_at
	`, key, data, s.now().UTC())
	if err != nil {
		return fmt.Errorf("blob put %s: %w", key, err)
	}
	return nil
}

func (s *BlobStore) SetMetadata(ctx context.Context, key string, meta map[string]string) error {
	tag, err := s.db.Pool.Exec(ctx, `UPDATE blobs SET metadata = $2 WHERE key = $1`, key, meta)
	if err != nil {
		return fmt.Errorf("blob set metadata %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("blob %s: %w", key, domain.ErrNotFound)
	}
	return nil
}

func (s *BlobStore) GetMetadata(ctx context.Context, key string) (map[string]string, error) {
	meta := map[string]string{}
	err := s.db.Pool.QueryRow(ctx, `SELECT COALESCE(metadata, '{}'::jsonb) FROM blobs WHERE key = $1`, key).Scan(&meta)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("blob %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("blob get metadata %s: %w", key, err)
	}
	return meta, nil
}

// CreateIfAbsent inserts the row unless key is taken.
func (s *BlobStore) CreateIfAbsent(ctx context.Context, key string, data []byte, meta map[string]string) (bool, error) {
	tag, err := s.db.Pool.Exec(ctx, `
		INSERT INTO blobs (key, data, metadata, modified_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO NOTHING
	`, key, data, meta, s.now().UTC())
	if err != nil {
		return false, fmt.Errorf("blob create %s: %w", key, err)
	}
	return tag.RowsAffected() == 1, nil
}
