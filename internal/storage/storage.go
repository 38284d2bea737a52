// Package storage provides the durable key-value stores that back visitor carts.
package storage

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("storage: key not found")

// Store persists opaque values under string keys. Implementations must be safe
// for concurrent use because every visitor shares the same backend.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

const namespaceSeparator = ":"

type namespaced struct {
	base   Store
	prefix string
}

// Namespace scopes every key of base under prefix so a single backend can hold
// one independent key space per visitor.
func Namespace(base Store, prefix string) Store {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return base
	}
	return &namespaced{base: base, prefix: prefix}
}

func (n *namespaced) key(k string) string {
	return n.prefix + namespaceSeparator + k
}

func (n *namespaced) Get(ctx context.Context, key string) ([]byte, error) {
	return n.base.Get(ctx, n.key(key))
}

func (n *namespaced) Put(ctx context.Context, key string, value []byte) error {
	return n.base.Put(ctx, n.key(key), value)
}

func (n *namespaced) Delete(ctx context.Context, key string) error {
	return n.base.Delete(ctx, n.key(key))
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
