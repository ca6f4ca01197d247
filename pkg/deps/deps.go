package deps

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/orgdeps/pkg/integrations"
	"github.com/matzehuels/orgdeps/pkg/observability"
)

const (
	DefaultConcurrency  = 8              // Default cap on simultaneous gateway calls
	DefaultManifestPath = "package.json" // Default manifest location in each repository
)

// Dependency sections of package.json.
const (
	SectionDependencies         = "dependencies"
	SectionDevDependencies      = "devDependencies"
	SectionPeerDependencies     = "peerDependencies"
	SectionOptionalDependencies = "optionalDependencies"
)

// KnownSections lists the dependency sections that may be selected.
var KnownSections = []string{
	SectionDependencies,
	SectionDevDependencies,
	SectionPeerDependencies,
	SectionOptionalDependencies,
}

// Gateway is the remote source of repositories, commits and manifests.
// [github.Client] is the production implementation.
//
// [github.Client]: github.com/matzehuels/orgdeps/pkg/integrations/github.Client
type Gateway interface {
	// ListRepositories returns every repository owned by org.
	ListRepositories(ctx context.Context, org string) ([]integrations.Repository, error)
	// DefaultBranch returns the default branch of repo ("owner/name").
	DefaultBranch(ctx context.Context, repo string) (string, error)
	// CommitHash returns the head commit of ref. It returns
	// [integrations.ErrDeadBranch] or [integrations.ErrEmptyRepository] for
	// the two recoverable conditions.
	CommitHash(ctx context.Context, repo, ref string) (string, error)
	// FetchRawFile returns path at commit, or [integrations.ErrNotFound].
	FetchRawFile(ctx context.Context, repo, commit, path string) ([]byte, error)
}

// Options configures a crawl.
type Options struct {
	Concurrency  int                      // Simultaneous gateway calls (default: 8)
	ManifestPath string                   // Manifest path in each repository (default: package.json)
	Sections     []string                 // Dependency sections to follow (default: dependencies)
	SkipArchived bool                     // Do not start from archived repositories
	SkipForks    bool                     // Do not start from forks
	Logger       *log.Logger              // Progress and warnings (default: discard)
	Hooks        observability.CrawlHooks // Event sink (default: no-op)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.ManifestPath == "" {
		opts.ManifestPath = DefaultManifestPath
	}
	if len(opts.Sections) == 0 {
		opts.Sections = []string{SectionDependencies}
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Hooks == nil {
		opts.Hooks = observability.NoopCrawlHooks{}
	}
	return opts
}

// Stats summarizes a crawl.
type Stats struct {
	Repositories      int `json:"repositories" bson:"repositories"`             // Repositories in the organization listing
	Nodes             int `json:"nodes" bson:"nodes"`                           // Cache entries written
	ManifestsFetched  int `json:"manifests_fetched" bson:"manifests_fetched"`   // Manifests downloaded and parsed
	ManifestsAbsent   int `json:"manifests_absent" bson:"manifests_absent"`     // Commits without a manifest
	DeadBranches      int `json:"dead_branches" bson:"dead_branches"`           // Refs that no longer resolve
	EmptyRepositories int `json:"empty_repositories" bson:"empty_repositories"` // Repositories without commits
	DroppedEdges      int `json:"dropped_edges" bson:"dropped_edges"`           // Declarations pointing at empty repositories
}

// counters is the concurrent accumulator behind [Stats].
type counters struct {
	repositories      atomic.Int64
	nodes             atomic.Int64
	manifestsFetched  atomic.Int64
	manifestsAbsent   atomic.Int64
	deadBranches      atomic.Int64
	emptyRepositories atomic.Int64
	droppedEdges      atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Repositories:      int(c.repositories.Load()),
		Nodes:             int(c.nodes.Load()),
		ManifestsFetched:  int(c.manifestsFetched.Load()),
		ManifestsAbsent:   int(c.manifestsAbsent.Load()),
		DeadBranches:      int(c.deadBranches.Load()),
		EmptyRepositories: int(c.emptyRepositories.Load()),
		DroppedEdges:      int(c.droppedEdges.Load()),
	}
}
