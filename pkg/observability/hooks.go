// Package observability provides hooks for progress reporting and metrics.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Hooks are passed explicitly to the
// components that emit them (the resolver options and the HTTP client options),
// so two crawls in one process can report to different sinks.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Let callers pass custom implementations at construction time
//
// The CLI progress view and the tests' call counters are both implemented as
// hooks.
//
// # Usage
//
//	hooks := &myCrawlHooks{}
//	res := deps.NewResolver(org, gateway, deps.Options{Hooks: hooks})
package observability

import (
	"context"
	"time"
)

// =============================================================================
// Crawl Hooks
// =============================================================================

// CrawlHooks receives events from the dependency resolver.
// Implementations must be safe for concurrent use: events arrive from many
// goroutines at once.
type CrawlHooks interface {
	// OnRepositories reports the size of the organization listing.
	OnRepositories(ctx context.Context, org string, count int)

	// OnResolveStart fires when a node's manifest is about to be fetched.
	OnResolveStart(ctx context.Context, key string)

	// OnResolveComplete fires when a node's cache entry has been written.
	OnResolveComplete(ctx context.Context, key string, deps int, duration time.Duration)

	// OnDeadBranch fires when a referenced branch no longer resolves.
	OnDeadBranch(ctx context.Context, repo, branch string)

	// OnEmptyRepository fires when a repository has no commits.
	OnEmptyRepository(ctx context.Context, repo string)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopCrawlHooks is a no-op implementation of CrawlHooks.
type NoopCrawlHooks struct{}

func (NoopCrawlHooks) OnRepositories(context.Context, string, int)                   {}
func (NoopCrawlHooks) OnResolveStart(context.Context, string)                        {}
func (NoopCrawlHooks) OnResolveComplete(context.Context, string, int, time.Duration) {}
func (NoopCrawlHooks) OnDeadBranch(context.Context, string, string)                  {}
func (NoopCrawlHooks) OnEmptyRepository(context.Context, string)                     {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Fan-out
// =============================================================================

// MultiCrawlHooks forwards every event to each of its members in order.
type MultiCrawlHooks []CrawlHooks

func (m MultiCrawlHooks) OnRepositories(ctx context.Context, org string, count int) {
	for _, h := range m {
		h.OnRepositories(ctx, org, count)
	}
}

func (m MultiCrawlHooks) OnResolveStart(ctx context.Context, key string) {
	for _, h := range m {
		h.OnResolveStart(ctx, key)
	}
}

func (m MultiCrawlHooks) OnResolveComplete(ctx context.Context, key string, deps int, d time.Duration) {
	for _, h := range m {
		h.OnResolveComplete(ctx, key, deps, d)
	}
}

func (m MultiCrawlHooks) OnDeadBranch(ctx context.Context, repo, branch string) {
	for _, h := range m {
		h.OnDeadBranch(ctx, repo, branch)
	}
}

func (m MultiCrawlHooks) OnEmptyRepository(ctx context.Context, repo string) {
	for _, h := range m {
		h.OnEmptyRepository(ctx, repo)
	}
}
