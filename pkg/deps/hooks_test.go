package deps

import (
	"context"
	"sync"
	"time"

	"github.com/matzehuels/orgdeps/pkg/observability"
)

// orderHooks checks, each time an entry is written, that every internal
// dependency it lists was written first.
type orderHooks struct {
	observability.NoopCrawlHooks
	cache *Cache

	mu     sync.Mutex
	broken []string
}

func (h *orderHooks) OnResolveComplete(_ context.Context, key string, _ int, _ time.Duration) {
	deps, _ := h.cache.Get(key)
	for _, d := range deps {
		if _, commit := SplitKey(d); !IsCommitHash(commit) {
			continue
		}
		if _, ok := h.cache.Get(d); !ok {
			h.mu.Lock()
			h.broken = append(h.broken, key+" -> "+d)
			h.mu.Unlock()
		}
	}
}

func (h *orderHooks) violations() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.broken
}
