// Package cache provides byte-oriented caches for remote responses.
//
// The crawler caches only content that can never change for a given key:
// raw manifest files addressed by repository and commit hash. Commit and
// branch lookups are never cached, since a branch head moves between runs.
//
// Backends:
//   - [FileCache]: one JSON file per entry under a directory (CLI default)
//   - [RedisCache]: shared cache for several crawlers (--redis-addr)
//   - [NullCache]: disables caching (--no-cache)
//
// Use [NewScoped] to namespace keys of one backend between producers.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values with an optional time-to-live.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value for key. A miss is reported as (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}
