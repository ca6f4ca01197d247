// Package httputil provides HTTP utilities shared by the remote API clients.
//
// # Retry
//
// [Retry] wraps a request with automatic retry for transient failures. Only
// errors wrapped in [RetryableError] are retried; clients decide what is
// transient:
//
//   - Network errors and timeouts
//   - 5xx server errors
//   - 429 and exhausted-quota 403 responses
//
// The delay doubles after each attempt. Rate-limited responses may carry a
// reset hint (a RateLimitedError from pkg/errors in the chain), which stretches the
// next wait so the retry lands after the quota window reopens:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    return client.Get(ctx, url, &v)
//	})
//
// # Configuration
//
// Default settings:
//
//   - Max attempts: 4
//   - Base backoff: 1 second
//   - Longest single wait: 2 minutes
package httputil
