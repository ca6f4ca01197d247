package storage

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/orgdeps/pkg/deps"
)

// ErrNotFound is returned when no snapshot exists for an organization.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is the persisted result of one crawl.
type Snapshot struct {
	ID        string              `json:"id"`
	Org       string              `json:"org"`
	CreatedAt time.Time           `json:"created_at"`
	Partial   bool                `json:"partial,omitempty"` // Written after a fatal failure
	Entries   map[string][]string `json:"entries"`
	Stats     deps.Stats          `json:"stats"`
}

// NewSnapshot captures the written entries of cache under a fresh run ID.
func NewSnapshot(org string, cache *deps.Cache, stats deps.Stats, partial bool) Snapshot {
	return Snapshot{
		ID:        uuid.NewString(),
		Org:       org,
		CreatedAt: time.Now().UTC(),
		Partial:   partial,
		Entries:   cache.Entries(),
		Stats:     stats,
	}
}

// Keys returns the entry keys in sorted order.
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s.Entries))
	for k := range s.Entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Sink persists snapshots.
type Sink interface {
	Save(ctx context.Context, snap Snapshot) error
	Close(ctx context.Context) error
}

// Source loads the most recent snapshot of an organization.
type Source interface {
	Latest(ctx context.Context, org string) (Snapshot, error)
}

// MultiSink saves to every sink in order and stops at the first error.
type MultiSink []Sink

func (m MultiSink) Save(ctx context.Context, snap Snapshot) error {
	for _, s := range m {
		if err := s.Save(ctx, snap); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiSink) Close(ctx context.Context) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close(ctx))
	}
	return errors.Join(errs...)
}
