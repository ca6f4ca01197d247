package integrations

import (
	"context"
	"errors"
	"net/http"
	"time"

	orgerrors "github.com/matzehuels/orgdeps/pkg/errors"
)

// DefaultTimeout bounds a single HTTP call.
const DefaultTimeout = 30 * time.Second

var (
	// ErrNotFound is returned when a repository, ref or file does not exist (HTTP 404).
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for transport failures and 5xx responses.
	ErrNetwork = errors.New("network error")

	// ErrDeadBranch is returned when a ref no longer resolves to a commit (HTTP 422).
	ErrDeadBranch = errors.New("branch does not resolve to a commit")

	// ErrEmptyRepository is returned for repositories without commits (HTTP 409).
	ErrEmptyRepository = errors.New("repository is empty")

	// ErrUnauthorized is returned when the token is missing or invalid (HTTP 401).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned for 403 responses that are not rate limits.
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited is returned when the API quota is exhausted (HTTP 429, or 403
	// with no remaining quota).
	ErrRateLimited = errors.New("rate limited")

	// ErrUnexpectedStatus is returned for any other non-success status.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// Repository is one entry of an organization listing.
type Repository struct {
	FullName      string `json:"full_name"`      // "org/name"
	DefaultBranch string `json:"default_branch"` // Empty for some empty repositories
	Archived      bool   `json:"archived"`
	Fork          bool   `json:"fork"`
}

// NewHTTPClient creates an HTTP client with the given per-call timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// Classify maps a gateway error to a structured error code for reporting.
// It returns "" for nil.
func Classify(err error) orgerrors.Code {
	var rl *orgerrors.RateLimitedError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return orgerrors.ErrCodeTimeout
	case errors.Is(err, ErrUnauthorized):
		return orgerrors.ErrCodeUnauthorized
	case errors.Is(err, ErrForbidden):
		return orgerrors.ErrCodeForbidden
	case errors.Is(err, ErrRateLimited), errors.As(err, &rl):
		return orgerrors.ErrCodeRateLimited
	case errors.Is(err, ErrNotFound):
		return orgerrors.ErrCodeNotFound
	default:
		return orgerrors.ErrCodeNetwork
	}
}
