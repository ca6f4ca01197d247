package deps

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	orgerrors "github.com/matzehuels/orgdeps/pkg/errors"
	"github.com/matzehuels/orgdeps/pkg/integrations"
	"github.com/matzehuels/orgdeps/pkg/observability"
)

// Resolver expands organization-internal dependency declarations into a
// [Cache]. One Resolver serves one run; it is safe for concurrent use.
type Resolver struct {
	org   string
	gw    Gateway
	cache *Cache
	opts  Options
	log   *log.Logger
	hooks observability.CrawlHooks
	sem   *semaphore.Weighted

	commits  *memo // "repo\x00branch" → commit
	branches *memo // "repo" → default branch
	names    sync.Map // lowercase repo → canonical spelling
	empty    sync.Map
	stats    counters
}

// NewResolver creates a Resolver for org that records into cache.
// A nil cache gets a fresh one.
func NewResolver(org string, gw Gateway, cache *Cache, opts Options) *Resolver {
	opts = opts.WithDefaults()
	if cache == nil {
		cache = NewCache()
	}
	return &Resolver{
		org:      org,
		gw:       gw,
		cache:    cache,
		opts:     opts,
		log:      opts.Logger,
		hooks:    opts.Hooks,
		sem:      semaphore.NewWeighted(int64(opts.Concurrency)),
		commits:  newMemo(),
		branches: newMemo(),
	}
}

// Cache returns the cache the resolver writes to.
func (r *Resolver) Cache() *Cache { return r.cache }

// Stats returns counters accumulated so far.
func (r *Resolver) Stats() Stats { return r.stats.snapshot() }

// SeedDefaultBranch records a known default branch so it is not looked up.
// The spelling of repo becomes the canonical name of the repository, which
// later references in any letter case resolve to.
func (r *Resolver) SeedDefaultBranch(repo, branch string) {
	r.names.Store(strings.ToLower(repo), repo)
	if branch != "" {
		r.branches.seed(strings.ToLower(repo), branch)
	}
}

// canonical returns the spelling repo is recorded under. GitHub names are
// case-insensitive; the listing's spelling wins, otherwise the first seen.
func (r *Resolver) canonical(repo string) string {
	name, _ := r.names.LoadOrStore(strings.ToLower(repo), repo)
	return name.(string)
}

// Resolve resolves repo at branch (the default branch when empty) and,
// recursively, every internal dependency declared in its manifest.
//
// It returns the commit the node was recorded under, which is a dead-branch
// sentinel when the branch no longer resolves. ok is false, with nothing
// recorded, when repo is outside the organization or has no commits. Any
// other gateway failure is returned as an error.
//
// The cache claim happens before the manifest is fetched and before any
// recursion. Without it a dependency cycle would recurse forever.
func (r *Resolver) Resolve(ctx context.Context, repo, branch string) (commit string, ok bool, err error) {
	return r.resolve(ctx, "", repo, branch)
}

func (r *Resolver) resolve(ctx context.Context, parent, repo, branch string) (string, bool, error) {
	if !InOrg(r.org, repo) {
		r.log.Debugf("Skipping %s: outside %s", repo, r.org)
		return "", false, nil
	}
	repo = r.canonical(repo)

	if branch == "" {
		b, err := r.defaultBranch(ctx, repo)
		if errors.Is(err, integrations.ErrEmptyRepository) {
			r.emptyRepository(ctx, repo)
			return "", false, nil
		}
		if err != nil {
			return "", false, gatewayError(err, "default branch of %s", repo)
		}
		branch = b
	}

	commit, err := r.commitHash(ctx, repo, branch)
	switch {
	case errors.Is(err, integrations.ErrDeadBranch):
		commit = DeadCommit(branch)
	case errors.Is(err, integrations.ErrEmptyRepository):
		r.emptyRepository(ctx, repo)
		return "", false, nil
	case err != nil:
		return "", false, gatewayError(err, "commit of %s@%s", repo, branch)
	}

	key := Key(r.org, repo, commit)
	for claimed := false; !claimed; {
		state, done := r.cache.claim(parent, key)
		switch state {
		case claimDone, claimCycle:
			return commit, true, nil
		case claimOwned:
			claimed = true
		case claimWait:
			select {
			case <-done:
				if err := r.cache.failure(key); err != nil {
					return "", false, err
				}
				// Written, or released by a cancelled owner: claim again.
			case <-ctx.Done():
				return "", false, ctx.Err()
			}
		}
	}

	start := time.Now()
	r.hooks.OnResolveStart(ctx, key)

	var deps []string
	if IsDead(commit) {
		r.stats.deadBranches.Add(1)
		r.hooks.OnDeadBranch(ctx, repo, branch)
		r.log.Warnf("Dead branch %s of %s", branch, repo)
	} else {
		deps, err = r.dependencies(ctx, key, repo, commit)
		if err != nil {
			if ctx.Err() != nil {
				// Cancelled here; other callers may still resolve the key.
				r.cache.abort(key, nil)
			} else {
				r.cache.abort(key, err)
			}
			return "", false, err
		}
	}

	r.cache.put(key, deps)
	r.stats.nodes.Add(1)
	r.hooks.OnResolveComplete(ctx, key, len(deps), time.Since(start))
	r.log.Debugf("Resolved %s (%d dependencies)", key, len(deps))
	return commit, true, nil
}

// dependencies fetches and expands the manifest of repo at commit. Internal
// declarations are resolved concurrently; the result keeps declaration order.
func (r *Resolver) dependencies(ctx context.Context, key, repo, commit string) ([]string, error) {
	data, err := r.fetchManifest(ctx, repo, commit)
	if errors.Is(err, integrations.ErrNotFound) {
		r.stats.manifestsAbsent.Add(1)
		r.log.Debugf("No %s in %s", r.opts.ManifestPath, key)
		return []string{}, nil
	}
	if err != nil {
		return nil, gatewayError(err, "%s of %s", r.opts.ManifestPath, key)
	}
	r.stats.manifestsFetched.Add(1)

	decls, err := ParseManifest(data, r.opts.Sections)
	if err != nil {
		return nil, orgerrors.Wrap(orgerrors.ErrCodeInvalidManifest, err, "%s of %s", r.opts.ManifestPath, key)
	}

	out := make([]string, len(decls))
	g, gctx := errgroup.WithContext(ctx)
	for i, d := range decls {
		ref, internal := Classify(r.org, d)
		if !internal {
			out[i] = ExternalKey(d.Name, d.Version)
			continue
		}
		g.Go(func() error {
			depCommit, ok, err := r.resolve(gctx, key, ref.Repo, ref.Branch)
			if err != nil {
				return err
			}
			if !ok {
				r.stats.droppedEdges.Add(1)
				r.log.Warnf("Dropping %s from %s: %s has no commits", d.Name, key, ref.Repo)
				return nil
			}
			out[i] = Key(r.org, ref.Repo, depCommit)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	deps := make([]string, 0, len(out))
	for _, k := range out {
		if k != "" {
			deps = append(deps, k)
		}
	}
	return deps, nil
}

func (r *Resolver) defaultBranch(ctx context.Context, repo string) (string, error) {
	return r.branches.do(ctx, strings.ToLower(repo), func() (string, error) {
		return withSlot(ctx, r.sem, func() (string, error) {
			return r.gw.DefaultBranch(ctx, repo)
		})
	})
}

func (r *Resolver) commitHash(ctx context.Context, repo, branch string) (string, error) {
	return r.commits.do(ctx, strings.ToLower(repo)+"\x00"+branch, func() (string, error) {
		return withSlot(ctx, r.sem, func() (string, error) {
			return r.gw.CommitHash(ctx, repo, branch)
		})
	})
}

func (r *Resolver) fetchManifest(ctx context.Context, repo, commit string) ([]byte, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer r.sem.Release(1)
	return r.gw.FetchRawFile(ctx, repo, commit, r.opts.ManifestPath)
}

func (r *Resolver) emptyRepository(ctx context.Context, repo string) {
	if _, seen := r.empty.LoadOrStore(strings.ToLower(repo), struct{}{}); seen {
		return
	}
	r.stats.emptyRepositories.Add(1)
	r.hooks.OnEmptyRepository(ctx, repo)
	r.log.Warnf("Skipping %s: repository is empty", repo)
}

// withSlot runs fn while holding one semaphore slot.
func withSlot(ctx context.Context, sem *semaphore.Weighted, fn func() (string, error)) (string, error) {
	if err := sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer sem.Release(1)
	return fn()
}

// gatewayError attaches a structured code to a fatal gateway failure.
// Errors that already carry a code pass through unchanged.
func gatewayError(err error, format string, args ...any) error {
	if orgerrors.GetCode(err) != "" {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return orgerrors.Wrap(integrations.Classify(err), err, format, args...)
}
