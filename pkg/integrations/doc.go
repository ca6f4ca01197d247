// Package integrations provides the shared HTTP layer for remote API clients.
//
// # Overview
//
// The [Client] type wraps net/http with the behavior every API client needs:
//
//   - Default headers (authorization, API version)
//   - Per-call timeout
//   - Token bucket rate limiting ([golang.org/x/time/rate])
//   - Retry with exponential backoff for transient failures
//   - Optional response caching via [cache.Cache]
//
// The [github] subpackage builds on it to implement the gateway used by the
// dependency crawler.
//
// # Errors
//
// Responses are classified into sentinel errors so callers can decide what is
// recoverable:
//
//	404           ErrNotFound
//	409           ErrEmptyRepository
//	422           ErrDeadBranch
//	401           ErrUnauthorized
//	403 (quota)   ErrRateLimited (retried, honoring the reset hint)
//	429           ErrRateLimited (retried, honoring Retry-After)
//	403 (other)   ErrForbidden
//	5xx, network  ErrNetwork (retried)
//
// Use [IsFatal] to separate crawl-aborting failures from the recoverable ones,
// and [Classify] to map a failure to a structured error code.
//
// [github]: github.com/matzehuels/orgdeps/pkg/integrations/github
// [cache.Cache]: github.com/matzehuels/orgdeps/pkg/cache.Cache
package integrations
