package valkey

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/samirrijal/fireroute/internal/core/domain"
)

const (
	fieldData       = "data"
	fieldModifiedAt = "modified_at"
)

// createIfAbsent writes the blob hash and its metadata hash in one step,
// unless the blob already exists. ARGV: data, modified_at, then meta pairs.
var createIfAbsent = valkey.NewLuaScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], 'data', ARGV[1], 'modified_at', ARGV[2])
for i = 3, #ARGV, 2 do
  redis.call('HSET', KEYS[2], ARGV[i], ARGV[i + 1])
end
return 1
`)

// BlobStore implements ports.BlobStore and ports.AtomicBlobCreator on Valkey.
// Each blob is a hash {data, modified_at} with metadata in a sibling hash.
type BlobStore struct {
	client valkey.Client
	prefix string
	now    func() time.Time
}

// NewBlobStore creates a blob store sharing the cache's client.
// prefix namespaces keys, e.g. "fireroute:perimeters:".
func NewBlobStore(c *Cache, prefix string) *BlobStore {
	return &BlobStore{client: c.client, prefix: prefix, now: time.Now}
}

func (s *BlobStore) blobKey(key string) string { return s.prefix + "blob:" + key }
func (s *BlobStore) metaKey(key string) string { return s.prefix + "meta:" + key }

func (s *BlobStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Do(ctx, s.client.B().Exists().Key(s.blobKey(key)).Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("valkey exists %s: %w", key, err)
	}
	return n > 0, nil
}

func (s *BlobStore) Get(ctx context.Context, key string) (*domain.Blob, error) {
	m, err := s.client.Do(ctx, s.client.B().Hgetall().Key(s.blobKey(key)).Build()).AsStrMap()
	if err != nil {
		return nil, fmt.Errorf("valkey get %s: %w", key, err)
	}
	data, ok := m[fieldData]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", key, domain.ErrNotFound)
	}
	modified, err := time.Parse(time.RFC3339Nano, m[fieldModifiedAt])
	if err != nil {
		return nil, fmt.Errorf("blob %s: corrupt %s: %w", key, fieldModifiedAt, err)
	}
	return &domain.Blob{Data: []byte(data), LastModifiedAt: modified}, nil
}

func (s *BlobStore) Put(ctx context.Context, key string, data []byte) error {
	cmd := s.client.B().Hset().Key(s.blobKey(key)).FieldValue().
		FieldValue(fieldData, string(data)).
		FieldValue(fieldModifiedAt, s.now().UTC().Format(time.RFC3339Nano)).
		Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("valkey put %s: %w", key, err)
	}
	return nil
}

// SetMetadata replaces the metadata of an existing blob.
func (s *BlobStore) SetMetadata(ctx context.Context, key string, meta map[string]string) error {
	ok, err := s.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("blob %s: %w", key, domain.ErrNotFound)
	}

	cmds := []valkey.Completed{s.client.B().Del().Key(s.metaKey(key)).Build()}
	if len(meta) > 0 {
		hset := s.client.B().Hset().Key(s.metaKey(key)).FieldValue()
		for k, v := range meta {
			hset = hset.FieldValue(k, v)
		}
		cmds = append(cmds, hset.Build())
	}
	for _, resp := range s.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("valkey set metadata %s: %w", key, err)
		}
	}
	return nil
}

func (s *BlobStore) GetMetadata(ctx context.Context, key string) (map[string]string, error) {
	resps := s.client.DoMulti(ctx,
		s.client.B().Exists().Key(s.blobKey(key)).Build(),
		s.client.B().Hgetall().Key(s.metaKey(key)).Build(),
	)
	n, err := resps[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("valkey metadata %s: %w", key, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("blob %s: %w", key, domain.ErrNotFound)
	}
	meta, err := resps[1].AsStrMap()
	if err != nil {
		return nil, fmt.Errorf("valkey metadata %s: %w", key, err)
	}
	return meta, nil
}

// CreateIfAbsent writes data and metadata only when key is new.
func (s *BlobStore) CreateIfAbsent(ctx context.Context, key string, data []byte, meta map[string]string) (bool, error) {
	args := []string{string(data), s.now().UTC().Format(time.RFC3339Nano)}
	for k, v := range meta {
		args = append(args, k, v)
	}
	n, err := createIfAbsent.Exec(ctx, s.client, []string{s.blobKey(key), s.metaKey(key)}, args).AsInt64()
	if err != nil {
		return false, fmt.Errorf("valkey create %s: %w", key, err)
	}
	return n == 1, nil
}
