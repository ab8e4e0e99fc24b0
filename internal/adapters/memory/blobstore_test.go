package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/fireroute/internal/adapters/memory"
	"github.com/samirrijal/fireroute/internal/core/domain"
)

func TestBlobStore_EmptyPayloadIsPresent(t *testing.T) {
	ctx := context.Background()
	s := memory.NewBlobStore()

	if err := s.Put(ctx, "empty", []byte{}); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.Exists(ctx, "empty"); !ok {
		t.Error("expected key to exist")
	}
	blob, err := s.Get(ctx, "empty")
	if err != nil {
		t.Fatalf("expected empty blob, got %v", err)
	}
	if blob.Data == nil || len(blob.Data) != 0 {
		t.Errorf("expected non-nil empty data, got %#v", blob.Data)
	}
}

func TestBlobStore_CreateIfAbsentEmpty(t *testing.T) {
	ctx := context.Background()
	s := memory.NewBlobStore()

	created, err := s.CreateIfAbsent(ctx, "k", nil, map[string]string{"a": "b"})
	if err != nil || !created {
		t.Fatalf("expected create, got %v, %v", created, err)
	}
	if _, err := s.Get(ctx, "k"); err != nil {
		t.Errorf("expected entry to be readable, got %v", err)
	}
	if created, _ := s.CreateIfAbsent(ctx, "k", []byte("x"), nil); created {
		t.Error("second create must not overwrite")
	}
}

func TestBlobStore_MissingKey(t *testing.T) {
	s := memory.NewBlobStore()
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
