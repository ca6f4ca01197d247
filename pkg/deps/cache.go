package deps

import (
	"encoding/json"
	"slices"
	"sync"
)

// Cache maps node keys to their ordered dependency keys. It is the single
// shared state of a crawl and doubles as its cycle guard.
//
// Entries are insert-only: once written, a key is never overwritten. Keys
// under resolution are tracked in an in-flight table together with the keys
// each of them is waiting for. A resolver that asks for an in-flight key waits
// for it, unless waiting would close a cycle in that wait-for graph, in which
// case it proceeds immediately with the commit it already knows.
//
// A Cache is safe for concurrent use. Construct one per run with [NewCache].
type Cache struct {
	mu       sync.Mutex
	entries  map[string][]string
	inflight map[string]chan struct{}
	waits    map[string]map[string]struct{}
	failed   map[string]error
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries:  make(map[string][]string),
		inflight: make(map[string]chan struct{}),
		waits:    make(map[string]map[string]struct{}),
		failed:   make(map[string]error),
	}
}

// claimState is the outcome of [Cache.claim].
type claimState int

const (
	claimOwned    claimState = iota // caller must compute and put the entry
	claimDone                       // entry already written
	claimWait                       // another resolver owns the key; wait on the channel
	claimCycle                      // key is an ancestor of the caller; do not wait
)

// claim registers parent's interest in key. parent is the key whose
// dependencies are being resolved, or "" for a crawl root.
func (c *Cache) claim(parent, key string) (claimState, <-chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		return claimDone, nil
	}
	if done, ok := c.inflight[key]; ok {
		if parent != "" && c.reaches(key, parent) {
			return claimCycle, nil
		}
		c.addWait(parent, key)
		return claimWait, done
	}
	c.inflight[key] = make(chan struct{})
	delete(c.failed, key)
	c.addWait(parent, key)
	return claimOwned, nil
}

// reaches reports whether to is reachable from from in the wait-for graph.
// Callers hold c.mu.
func (c *Cache) reaches(from, to string) bool {
	if from == to {
		return true
	}
	seen := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for next := range c.waits[n] {
			if next == to {
				return true
			}
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

func (c *Cache) addWait(parent, key string) {
	if parent == "" {
		return
	}
	w := c.waits[parent]
	if w == nil {
		w = make(map[string]struct{})
		c.waits[parent] = w
	}
	w[key] = struct{}{}
}

// put writes the entry for an owned key and wakes its waiters. It reports
// false, leaving the existing entry untouched, if key was already written.
func (c *Cache) put(key string, deps []string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.finish(key)
	if _, ok := c.entries[key]; ok {
		return false
	}
	if deps == nil {
		deps = []string{}
	}
	c.entries[key] = deps
	return true
}

// abort releases an owned key without writing it. Waiters released by the
// abort see err through [Cache.failure]. A nil err lets them claim the key
// themselves.
func (c *Cache) abort(key string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.inflight[key]; ok && err != nil {
		c.failed[key] = err
	}
	c.finish(key)
}

// failure returns the error key was last aborted with, or nil.
func (c *Cache) failure(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failed[key]
}

// finish clears the in-flight state of key. Callers hold c.mu.
func (c *Cache) finish(key string) {
	if done, ok := c.inflight[key]; ok {
		close(done)
		delete(c.inflight, key)
	}
	delete(c.waits, key)
}

// Get returns the dependency keys of key.
func (c *Cache) Get(key string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	deps, ok := c.entries[key]
	return slices.Clone(deps), ok
}

// Len returns the number of written entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys returns the written keys in sorted order.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Entries returns a copy of all written entries. In-flight keys are not
// included, so a copy taken after a failed run holds only complete entries.
func (c *Cache) Entries() map[string][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][]string, len(c.entries))
	for k, v := range c.entries {
		out[k] = slices.Clone(v)
	}
	return out
}

// MarshalJSON encodes the written entries as a JSON object.
func (c *Cache) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Entries())
}

// UnmarshalJSON replaces the entries with a decoded JSON object.
func (c *Cache) UnmarshalJSON(data []byte) error {
	var entries map[string][]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]string, len(entries))
	c.inflight = make(map[string]chan struct{})
	c.waits = make(map[string]map[string]struct{})
	c.failed = make(map[string]error)
	for k, v := range entries {
		if v == nil {
			v = []string{}
		}
		c.entries[k] = v
	}
	return nil
}
