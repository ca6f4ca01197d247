package github

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/orgdeps/pkg/cache"
	"github.com/matzehuels/orgdeps/pkg/integrations"
	"github.com/matzehuels/orgdeps/pkg/observability"
)

// Default endpoints.
const (
	DefaultBaseURL = "https://api.github.com"
	DefaultRawURL  = "https://raw.githubusercontent.com"
)

// perPage is the page size of the organization listing (the API maximum).
const perPage = 100

// Options configures a [Client]. Zero values select defaults.
type Options struct {
	Token     string        // Personal access token; empty means unauthenticated
	BaseURL   string        // REST API root. Default: DefaultBaseURL
	RawURL    string        // Raw content root. Default: DefaultRawURL
	Timeout   time.Duration // Per-call timeout. Default: integrations.DefaultTimeout
	RateLimit float64       // Requests per second; 0 disables limiting
	Burst     int           // Token bucket size

	// Cache stores raw files fetched at a commit. Nil disables caching.
	Cache    cache.Cache
	CacheTTL time.Duration

	Hooks observability.HTTPHooks
}

// Client provides access to the GitHub REST API and the raw content host.
// It implements the gateway used by the dependency resolver.
type Client struct {
	*integrations.Client
	baseURL string
	rawURL  string
}

// NewClient creates a GitHub client.
func NewClient(opts Options) *Client {
	headers := map[string]string{
		"Accept":               "application/vnd.github+json",
		"X-GitHub-Api-Version": "2022-11-28",
	}
	if opts.Token != "" {
		headers["Authorization"] = "Bearer " + opts.Token
	}

	base := strings.TrimSuffix(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	raw := strings.TrimSuffix(opts.RawURL, "/")
	if raw == "" {
		raw = DefaultRawURL
	}

	return &Client{
		Client: integrations.NewClient(integrations.ClientOptions{
			Headers:   headers,
			Timeout:   opts.Timeout,
			RateLimit: opts.RateLimit,
			Burst:     opts.Burst,
			Cache:     opts.Cache,
			CacheTTL:  opts.CacheTTL,
			Hooks:     opts.Hooks,
		}),
		baseURL: base,
		rawURL:  raw,
	}
}

// ListRepositories returns every repository of org, following pagination
// until an empty or short page.
func (c *Client) ListRepositories(ctx context.Context, org string) ([]integrations.Repository, error) {
	if err := ValidateOwner(org); err != nil {
		return nil, err
	}

	var repos []integrations.Repository
	for page := 1; ; page++ {
		var batch []apiRepoResponse
		u := fmt.Sprintf("%s/orgs/%s/repos?per_page=%d&page=%d", c.baseURL, url.PathEscape(org), perPage, page)
		if err := c.Get(ctx, u, &batch); err != nil {
			return nil, fmt.Errorf("list repositories of %s (page %d): %w", org, page, err)
		}
		for _, r := range batch {
			repos = append(repos, r.toRepository())
		}
		if len(batch) < perPage {
			return repos, nil
		}
	}
}

// DefaultBranch returns the default branch of repo ("owner/name").
func (c *Client) DefaultBranch(ctx context.Context, repo string) (string, error) {
	owner, name, err := ParseRepoRef(repo)
	if err != nil {
		return "", err
	}

	var data apiRepoResponse
	if err := c.Get(ctx, c.repoURL(owner, name), &data); err != nil {
		return "", fmt.Errorf("repository %s: %w", repo, err)
	}
	if data.DefaultBranch == "" {
		return "", fmt.Errorf("repository %s: %w", repo, integrations.ErrEmptyRepository)
	}
	return data.DefaultBranch, nil
}

// CommitHash returns the commit SHA that ref points to.
// A ref that no longer resolves yields [integrations.ErrDeadBranch]; a
// repository without commits yields [integrations.ErrEmptyRepository].
func (c *Client) CommitHash(ctx context.Context, repo, ref string) (string, error) {
	owner, name, err := ParseRepoRef(repo)
	if err != nil {
		return "", err
	}

	var data apiCommitResponse
	u := c.repoURL(owner, name) + "/commits/" + url.PathEscape(ref)
	if err := c.Get(ctx, u, &data); err != nil {
		return "", fmt.Errorf("commit %s@%s: %w", repo, ref, err)
	}
	if data.SHA == "" {
		return "", fmt.Errorf("commit %s@%s: empty sha", repo, ref)
	}
	return data.SHA, nil
}

// FetchRawFile returns the content of path at commit. Content addressed by a
// commit never changes, so successful responses are cached.
func (c *Client) FetchRawFile(ctx context.Context, repo, commit, path string) ([]byte, error) {
	owner, name, err := ParseRepoRef(repo)
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/%s/%s/%s/%s", c.rawURL, url.PathEscape(owner), url.PathEscape(name), url.PathEscape(commit), path)
	key := "raw:" + repo + "@" + commit + ":" + path

	data, err := c.Cached(ctx, key, func() ([]byte, error) {
		return c.GetBytes(ctx, u)
	})
	if err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return nil, fmt.Errorf("%s at %s@%s: %w", path, repo, commit, err)
		}
		return nil, fmt.Errorf("fetch %s at %s@%s: %w", path, repo, commit, err)
	}
	return data, nil
}

func (c *Client) repoURL(owner, name string) string {
	return fmt.Sprintf("%s/repos/%s/%s", c.baseURL, url.PathEscape(owner), url.PathEscape(name))
}
