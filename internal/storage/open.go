package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"finitefield.org/storefront/internal/config"
)

// Backend identifiers accepted by Open.
const (
	BackendMemory    = "memory"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the backend selected by cfg. The returned closer releases its resources.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, io.Closer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendMemory:
		return NewMemoryStore(), nopCloser{}, nil
	case BackendSQLite:
		s, err := NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case BackendFirestore:
		s := NewFirestoreStore(cfg.Firestore)
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
}
