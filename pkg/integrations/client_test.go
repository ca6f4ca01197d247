package integrations

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/orgdeps/pkg/cache"
	orgerrors "github.com/matzehuels/orgdeps/pkg/errors"
	"github.com/matzehuels/orgdeps/pkg/httputil"
)

func newTestClient(opts ClientOptions) *Client {
	if opts.RetryDelay == 0 {
		opts.RetryDelay = time.Millisecond
	}
	return NewClient(opts)
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(ClientOptions{})

	if c.http == nil || c.http.Timeout != DefaultTimeout {
		t.Errorf("http client timeout = %v, want %v", c.http.Timeout, DefaultTimeout)
	}
	if c.attempts != httputil.DefaultAttempts {
		t.Errorf("attempts = %d, want %d", c.attempts, httputil.DefaultAttempts)
	}
	if c.cache == nil {
		t.Error("cache should default to a null cache")
	}
	if c.hooks == nil {
		t.Error("hooks should default to no-op")
	}
}

func TestClientGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer token")
		}
		w.Write([]byte(`{"message":"hello"}`))
	}))
	defer server.Close()

	c := newTestClient(ClientOptions{Headers: map[string]string{"Authorization": "Bearer token"}})

	var resp struct {
		Message string `json:"message"`
	}
	if err := c.Get(context.Background(), server.URL, &resp); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if resp.Message != "hello" {
		t.Errorf("Get() message = %q, want %q", resp.Message, "hello")
	}
}

func TestClientGetInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	var v map[string]any
	if err := newTestClient(ClientOptions{}).Get(context.Background(), server.URL, &v); err == nil {
		t.Fatal("Get() expected decode error")
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	body, err := newTestClient(ClientOptions{}).GetBytes(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("GetBytes() error: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("body = %q, want %q", body, "ok")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestClientDoesNotRetryPermanentErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusConflict, ErrEmptyRepository},
		{http.StatusUnprocessableEntity, ErrDeadBranch},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusTeapot, ErrUnexpectedStatus},
	}

	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.status), func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			_, err := newTestClient(ClientOptions{}).GetBytes(context.Background(), server.URL)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if got := calls.Load(); got != 1 {
				t.Errorf("calls = %d, want 1", got)
			}
		})
	}
}

func TestClientGivesUpAfterAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(ClientOptions{Attempts: 2}).GetBytes(context.Background(), server.URL)
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("error = %v, want ErrNetwork", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestCheckStatusRateLimited(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		header    http.Header
		wantAfter time.Duration
	}{
		{
			name:      "429 with Retry-After",
			status:    http.StatusTooManyRequests,
			header:    http.Header{"Retry-After": []string{"7"}},
			wantAfter: 7 * time.Second,
		},
		{
			name:   "403 with exhausted quota",
			status: http.StatusForbidden,
			header: http.Header{"X-Ratelimit-Remaining": []string{"0"}},
		},
		{
			name:      "403 with Retry-After and quota left",
			status:    http.StatusForbidden,
			header:    http.Header{"Retry-After": []string{"30"}, "X-Ratelimit-Remaining": []string{"42"}},
			wantAfter: 30 * time.Second,
		},
		{
			name:   "429 without hint",
			status: http.StatusTooManyRequests,
			header: http.Header{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkStatus(&http.Response{StatusCode: tt.status, Header: tt.header})
			if !errors.Is(err, ErrRateLimited) {
				t.Fatalf("error = %v, want ErrRateLimited", err)
			}
			if !httputil.IsRetryable(err) {
				t.Error("rate limit should be retryable")
			}
			var rl *orgerrors.RateLimitedError
			if !errors.As(err, &rl) {
				t.Fatal("error should carry RateLimitedError")
			}
			if rl.RetryAfter != tt.wantAfter {
				t.Errorf("RetryAfter = %v, want %v", rl.RetryAfter, tt.wantAfter)
			}
		})
	}
}

func TestRetryAfterFromReset(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	h := http.Header{}
	h.Set("X-RateLimit-Reset", strconv.FormatInt(now.Add(90*time.Second).Unix(), 10))

	if got := retryAfter(h, now); got != 90*time.Second {
		t.Errorf("retryAfter() = %v, want 90s", got)
	}

	h.Set("X-RateLimit-Reset", strconv.FormatInt(now.Add(-time.Minute).Unix(), 10))
	if got := retryAfter(h, now); got != 0 {
		t.Errorf("retryAfter() for past reset = %v, want 0", got)
	}
}

func TestCheckStatusSuccess(t *testing.T) {
	for _, code := range []int{200, 201, 204} {
		if err := checkStatus(&http.Response{StatusCode: code, Header: http.Header{}}); err != nil {
			t.Errorf("checkStatus(%d) = %v, want nil", code, err)
		}
	}
}

func TestClientCached(t *testing.T) {
	c := newTestClient(ClientOptions{Cache: mustFileCache(t)})
	ctx := context.Background()

	calls := 0
	fetch := func() ([]byte, error) {
		calls++
		return []byte("payload"), nil
	}

	for range 3 {
		data, err := c.Cached(ctx, "k", fetch)
		if err != nil {
			t.Fatalf("Cached() error: %v", err)
		}
		if string(data) != "payload" {
			t.Errorf("Cached() = %q, want %q", data, "payload")
		}
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
}

func TestClientCachedDoesNotStoreErrors(t *testing.T) {
	c := newTestClient(ClientOptions{Cache: mustFileCache(t)})
	ctx := context.Background()

	calls := 0
	fetch := func() ([]byte, error) {
		calls++
		return nil, fmt.Errorf("boom")
	}

	for range 2 {
		if _, err := c.Cached(ctx, "k", fetch); err == nil {
			t.Fatal("Cached() expected error")
		}
	}
	if calls != 2 {
		t.Errorf("fetch called %d times, want 2", calls)
	}
}

func TestClientRateLimiterCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	c := newTestClient(ClientOptions{RateLimit: 0.001, Burst: 1})
	ctx := context.Background()
	if _, err := c.GetBytes(ctx, server.URL); err != nil {
		t.Fatalf("first request: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := c.GetBytes(ctx, server.URL); err == nil {
		t.Fatal("second request should fail while waiting for a token")
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{ErrNotFound, false},
		{fmt.Errorf("wrap: %w", ErrDeadBranch), false},
		{ErrEmptyRepository, false},
		{ErrUnauthorized, true},
		{ErrNetwork, true},
		{context.DeadlineExceeded, true},
	}
	for _, tt := range tests {
		if got := IsFatal(tt.err); got != tt.want {
			t.Errorf("IsFatal(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want orgerrors.Code
	}{
		{nil, ""},
		{ErrUnauthorized, orgerrors.ErrCodeUnauthorized},
		{ErrForbidden, orgerrors.ErrCodeForbidden},
		{fmt.Errorf("x: %w", ErrRateLimited), orgerrors.ErrCodeRateLimited},
		{context.DeadlineExceeded, orgerrors.ErrCodeTimeout},
		{ErrNetwork, orgerrors.ErrCodeNetwork},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func mustFileCache(t *testing.T) cache.Cache {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}
