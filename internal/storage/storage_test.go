package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"finitefield.org/storefront/internal/config"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "cart"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing key, got %v", err)
	}
	if err := s.Put(ctx, "cart", []byte(`[{"id":"A"}]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.Get(ctx, "cart")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `[{"id":"A"}]` {
		t.Fatalf("unexpected value %q", got)
	}
	if err := s.Put(ctx, "cart", []byte(`[]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err = s.Get(ctx, "cart")
	if err != nil || string(got) != `[]` {
		t.Fatalf("expected overwritten value, got %q (%v)", got, err)
	}
	if err := s.Delete(ctx, "cart"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "cart"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, "cart"); err != nil {
		t.Fatalf("deleting a missing key should succeed: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	value := []byte("abc")
	if err := s.Put(ctx, "k", value); err != nil {
		t.Fatalf("put: %v", err)
	}
	value[0] = 'z'
	got, _ := s.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("stored value aliased caller slice: %q", got)
	}
	got[1] = 'z'
	again, _ := s.Get(ctx, "k")
	if string(again) != "abc" {
		t.Fatalf("returned value aliased stored slice: %q", again)
	}
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cart.db")
	s, err := NewSQLiteStore(context.Background(), path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	exerciseStore(t, s)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cart.db")
	s, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := s.Put(ctx, "visitor:cart", []byte(`[{"id":"B","quantity":2}]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })
	got, err := reopened.Get(ctx, "visitor:cart")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if string(got) != `[{"id":"B","quantity":2}]` {
		t.Fatalf("unexpected value %q", got)
	}
}

func TestNamespaceIsolatesVisitors(t *testing.T) {
	ctx := context.Background()
	base := NewMemoryStore()
	alice := Namespace(base, "alice")
	bob := Namespace(base, "bob")

	if err := alice.Put(ctx, "cart", []byte("a")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := bob.Get(ctx, "cart"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("bob should not see alice's cart, got %v", err)
	}
	raw, err := base.Get(ctx, "alice:cart")
	if err != nil || string(raw) != "a" {
		t.Fatalf("expected prefixed key in base store, got %q (%v)", raw, err)
	}
	if Namespace(base, "  ") != Store(base) {
		t.Fatalf("blank namespace should return base store")
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	s, closer, err := Open(ctx, config.StorageConfig{Backend: "memory"})
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", s)
	}
	_ = closer.Close()

	s, closer, err = Open(ctx, config.StorageConfig{Backend: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "x.db")})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if _, ok := s.(*SQLiteStore); !ok {
		t.Fatalf("expected sqlite store, got %T", s)
	}
	_ = closer.Close()

	s, closer, err = Open(ctx, config.StorageConfig{Backend: "firestore", Firestore: config.FirestoreConfig{ProjectID: "p"}})
	if err != nil {
		t.Fatalf("open firestore: %v", err)
	}
	if _, ok := s.(*FirestoreStore); !ok {
		t.Fatalf("expected firestore store, got %T", s)
	}
	_ = closer.Close()

	if _, _, err := Open(ctx, config.StorageConfig{Backend: "redis"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestFirestoreStoreClosed(t *testing.T) {
	s := NewFirestoreStore(config.FirestoreConfig{ProjectID: "p"})
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := s.Get(context.Background(), "cart"); !errors.Is(err, ErrProviderClosed) {
		t.Fatalf("expected ErrProviderClosed, got %v", err)
	}
}
