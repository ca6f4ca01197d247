package deps

import (
	"context"
	"sync"
)

// memo is a per-run lookup table where concurrent callers for one key share a
// single computation. Results, including errors, are kept for the whole run,
// except when the computing caller's context ended: that result is dropped
// and the next caller computes again.
// Computations must not call back into the same memo.
type memo struct {
	mu sync.Mutex
	m  map[string]*future
}

type future struct {
	done      chan struct{}
	val       string
	err       error
	cancelled bool // computing caller's context ended; not kept
}

func newMemo() *memo {
	return &memo{m: make(map[string]*future)}
}

func (m *memo) do(ctx context.Context, key string, fn func() (string, error)) (string, error) {
	for {
		m.mu.Lock()
		f, ok := m.m[key]
		if !ok {
			f = &future{done: make(chan struct{})}
			m.m[key] = f
			m.mu.Unlock()
			return m.compute(ctx, key, f, fn)
		}
		m.mu.Unlock()

		select {
		case <-f.done:
			if !f.cancelled {
				return f.val, f.err
			}
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (m *memo) compute(ctx context.Context, key string, f *future, fn func() (string, error)) (string, error) {
	f.val, f.err = fn()
	if f.err != nil && ctx.Err() != nil {
		f.cancelled = true
		m.mu.Lock()
		if m.m[key] == f {
			delete(m.m, key)
		}
		m.mu.Unlock()
	}
	close(f.done)
	return f.val, f.err
}

func (m *memo) seed(key, val string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.m[key]; ok {
		return
	}
	f := &future{done: make(chan struct{}), val: val}
	close(f.done)
	m.m[key] = f
}
