package deps

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/orgdeps/pkg/integrations"
)

// Crawler resolves every repository of an organization into one [Cache].
type Crawler struct {
	org      string
	gw       Gateway
	opts     Options
	resolver *Resolver
}

// NewCrawler creates a Crawler for org.
func NewCrawler(org string, gw Gateway, opts Options) *Crawler {
	opts = opts.WithDefaults()
	return &Crawler{
		org:      org,
		gw:       gw,
		opts:     opts,
		resolver: NewResolver(org, gw, NewCache(), opts),
	}
}

// Resolver returns the underlying resolver.
func (c *Crawler) Resolver() *Resolver { return c.resolver }

// Run lists the organization and resolves each repository at its default
// branch, concurrently. The first fatal error cancels the remaining work and
// is returned together with the cache as it stood: it then holds only the
// entries that were completed, for diagnostics.
func (c *Crawler) Run(ctx context.Context) (*Cache, Stats, error) {
	logger := c.opts.Logger

	repos, err := c.listRepositories(ctx)
	if err != nil {
		return c.resolver.Cache(), c.resolver.Stats(), gatewayError(err, "list repositories of %s", c.org)
	}
	c.resolver.stats.repositories.Store(int64(len(repos)))
	c.opts.Hooks.OnRepositories(ctx, c.org, len(repos))
	logger.Infof("Found %d repositories in %s", len(repos), c.org)

	for _, repo := range repos {
		c.resolver.SeedDefaultBranch(repo.FullName, repo.DefaultBranch)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, repo := range repos {
		if c.opts.SkipArchived && repo.Archived {
			logger.Debugf("Skipping archived %s", repo.FullName)
			continue
		}
		if c.opts.SkipForks && repo.Fork {
			logger.Debugf("Skipping fork %s", repo.FullName)
			continue
		}
		g.Go(func() error {
			_, _, err := c.resolver.Resolve(gctx, repo.FullName, repo.DefaultBranch)
			return err
		})
	}
	err = g.Wait()
	return c.resolver.Cache(), c.resolver.Stats(), err
}

func (c *Crawler) listRepositories(ctx context.Context) ([]integrations.Repository, error) {
	if err := c.resolver.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.resolver.sem.Release(1)
	return c.gw.ListRepositories(ctx, c.org)
}
