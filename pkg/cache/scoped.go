package cache

import (
	"context"
	"time"
)

// Scoped wraps a Cache and prefixes every key.
// This keeps manifest entries of different organizations or manifest paths
// apart when they share one backend.
//
// Example usage:
//
//	manifests := NewScoped(backend, "manifest:graasp:")
//	manifests.Set(ctx, "core@3f2a...", data, 0) // stored as "manifest:graasp:core@3f2a..."
type Scoped struct {
	inner  Cache
	prefix string
}

// NewScoped creates a cache view with a key prefix.
// A nil inner cache is replaced with a [NullCache].
func NewScoped(inner Cache, prefix string) Cache {
	if inner == nil {
		inner = NewNullCache()
	}
	return &Scoped{inner: inner, prefix: prefix}
}

// Get retrieves the prefixed key from the inner cache.
func (s *Scoped) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

// Set stores the value under the prefixed key.
func (s *Scoped) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.inner.Set(ctx, s.prefix+key, data, ttl)
}

// Delete removes the prefixed key.
func (s *Scoped) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.prefix+key)
}

// Close closes the inner cache.
func (s *Scoped) Close() error {
	return s.inner.Close()
}

var _ Cache = (*Scoped)(nil)
