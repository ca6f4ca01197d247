package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/matzehuels/orgdeps/pkg/cache"
	orgerrors "github.com/matzehuels/orgdeps/pkg/errors"
	"github.com/matzehuels/orgdeps/pkg/httputil"
	"github.com/matzehuels/orgdeps/pkg/observability"
)

// maxBodySize caps a single response body.
const maxBodySize = 32 << 20

// ClientOptions configures a [Client]. Zero values select defaults.
type ClientOptions struct {
	// Headers are applied to every request (authorization, API version).
	Headers map[string]string

	// Timeout bounds a single HTTP call. Default: 30s.
	Timeout time.Duration

	// RateLimit is the sustained request rate per second. Zero disables limiting.
	RateLimit float64

	// Burst is the token bucket size. Default: 1 when RateLimit is set.
	Burst int

	// Cache stores successful responses fetched through [Client.Cached].
	// Nil disables caching.
	Cache cache.Cache

	// CacheTTL is the lifetime of cached responses. Zero means no expiry.
	CacheTTL time.Duration

	// Attempts is the retry budget per request. Default: [httputil.DefaultAttempts].
	Attempts int

	// RetryDelay is the initial backoff. Default: [httputil.DefaultDelay].
	RetryDelay time.Duration

	// Hooks receives request events. Nil means no-op.
	Hooks observability.HTTPHooks
}

// Client provides shared HTTP functionality for API clients.
// It handles rate limiting, retries, status classification, caching and
// common request headers. A Client is safe for concurrent use.
type Client struct {
	http     *http.Client
	cache    cache.Cache
	ttl      time.Duration
	headers  map[string]string
	limiter  *rate.Limiter
	attempts int
	delay    time.Duration
	hooks    observability.HTTPHooks
}

// NewClient creates a Client from opts.
func NewClient(opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Attempts <= 0 {
		opts.Attempts = httputil.DefaultAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = httputil.DefaultDelay
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewNullCache()
	}
	if opts.Hooks == nil {
		opts.Hooks = observability.NoopHTTPHooks{}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(opts.Burst, 1))
	}

	return &Client{
		http:     NewHTTPClient(opts.Timeout),
		cache:    opts.Cache,
		ttl:      opts.CacheTTL,
		headers:  opts.Headers,
		limiter:  limiter,
		attempts: opts.Attempts,
		delay:    opts.RetryDelay,
		hooks:    opts.Hooks,
	}
}

// Cached returns the bytes stored under key, or calls fetch and stores its
// result. Errors from fetch are never cached. Cache failures are treated as
// misses so a broken backend degrades to uncached operation.
func (c *Client) Cached(ctx context.Context, key string, fetch func() ([]byte, error)) ([]byte, error) {
	if data, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		return data, nil
	}
	data, err := fetch()
	if err != nil {
		return nil, err
	}
	_ = c.cache.Set(ctx, key, data, c.ttl)
	return data, nil
}

// Get performs an HTTP GET request and JSON-decodes the response into v.
// Retryable failures are retried with backoff.
func (c *Client) Get(ctx context.Context, url string, v any) error {
	body, err := c.GetBytes(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// GetBytes performs an HTTP GET request and returns the response body.
// Retryable failures are retried with backoff.
func (c *Client) GetBytes(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := httputil.Retry(ctx, c.attempts, c.delay, func() error {
		var err error
		body, err = c.do(ctx, url)
		return err
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	host, path := req.URL.Host, req.URL.Path
	c.hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		c.hooks.OnError(ctx, req.Method, host, path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, httputil.Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	defer resp.Body.Close()
	c.hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, httputil.Retryable(fmt.Errorf("%w: read body: %v", ErrNetwork, err))
	}
	return data, nil
}

// checkStatus classifies a response. Success is nil. Transient failures are
// wrapped in [httputil.RetryableError].
func checkStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusConflict:
		return ErrEmptyRepository
	case code == http.StatusUnprocessableEntity:
		return ErrDeadBranch
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code == http.StatusTooManyRequests,
		code == http.StatusForbidden && secondaryLimit(resp.Header):
		return httputil.Retryable(fmt.Errorf("%w: %w", ErrRateLimited, &orgerrors.RateLimitedError{
			RetryAfter: retryAfter(resp.Header, time.Now()),
		}))
	case code == http.StatusForbidden:
		return ErrForbidden
	case code >= 500:
		return httputil.Retryable(fmt.Errorf("%w: status %d", ErrNetwork, code))
	default:
		return fmt.Errorf("%w: status %d", ErrUnexpectedStatus, code)
	}
}

// secondaryLimit reports whether a 403 is GitHub throttling rather than a
// permission failure: either the quota is spent or the server asks for a wait.
func secondaryLimit(h http.Header) bool {
	return h.Get("X-RateLimit-Remaining") == "0" || h.Get("Retry-After") != ""
}

// retryAfter reads the server's wait hint from Retry-After (seconds) or
// X-RateLimit-Reset (unix epoch). Zero means no hint.
func retryAfter(h http.Header, now time.Time) time.Duration {
	if s := h.Get("Retry-After"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	if s := h.Get("X-RateLimit-Reset"); s != "" {
		if epoch, err := strconv.ParseInt(s, 10, 64); err == nil {
			if d := time.Unix(epoch, 0).Sub(now); d > 0 {
				return d
			}
		}
	}
	return 0
}

// IsFatal reports whether err must abort a crawl. Not-found, dead-branch and
// empty-repository conditions are recoverable and handled by callers.
func IsFatal(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrDeadBranch), errors.Is(err, ErrEmptyRepository):
		return false
	default:
		return true
	}
}
