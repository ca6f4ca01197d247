package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/orgdeps/internal/config"
	"github.com/matzehuels/orgdeps/pkg/deps"
	orgerrors "github.com/matzehuels/orgdeps/pkg/errors"
	"github.com/matzehuels/orgdeps/pkg/observability"
	"github.com/matzehuels/orgdeps/pkg/storage"
)

// saveTimeout bounds writing a partial result after the crawl context ended.
const saveTimeout = 30 * time.Second

// crawlCommand creates the crawl command.
func (c *CLI) crawlCommand() *cobra.Command {
	var showProgress bool

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Resolve the dependency graph of an organization",
		Long: `Resolve the dependency graph of a GitHub organization.

Every repository is resolved at the head of its default branch. Dependencies
declared as github:<org>/<repo>[#ref] are followed recursively; all other
dependencies are recorded as name@version and not followed.

The result is written to --out as a JSON object mapping each
repository@commit to its dependency keys.`,
		Example: `  # Crawl an organization
  orgdeps crawl --org graasp --out data/deps.json

  # Include dev dependencies and keep a partial result on failure
  orgdeps crawl --org graasp --sections dependencies,devDependencies --partial`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			_, err = c.runCrawl(cmd.Context(), cmd.OutOrStdout(), cfg, showProgress)
			return err
		},
	}

	c.bindCrawlFlags(cmd)
	cmd.Flags().BoolVar(&showProgress, "progress", false, "show a live progress view")

	return cmd
}

// runCrawl resolves cfg.Org and saves the snapshot. On failure the error is
// returned and, with PartialOnFailure, the completed entries are saved as a
// partial snapshot.
func (c *CLI) runCrawl(ctx context.Context, out io.Writer, cfg config.Config, showProgress bool) (storage.Snapshot, error) {
	runID := uuid.NewString()
	logger := runLogger(loggerFromContext(ctx), runID)

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	respCache, err := newCache(ctx, cfg)
	if err != nil {
		return storage.Snapshot{}, err
	}
	defer respCache.Close()

	sink, files, err := newSink(ctx, cfg)
	if err != nil {
		return storage.Snapshot{}, err
	}
	defer sink.Close(context.Background())

	gw := newGateway(cfg, respCache, httpLogHooks{logger})
	opts := cfg.DepsOptions()
	opts.Logger = logger

	var result *deps.Cache
	crawl := func(ctx context.Context, hooks observability.CrawlHooks) (deps.Stats, error) {
		opts.Hooks = hooks
		cache, stats, err := deps.NewCrawler(cfg.Org, gw, opts).Run(ctx)
		result = cache
		return stats, err
	}

	logger.Infof("Crawling %s", cfg.Org)
	prog := newProgress(logger)

	var stats deps.Stats
	if showProgress {
		stats, err = runWithProgress(ctx, os.Stderr, cfg.Org, crawl)
	} else {
		stats, err = crawl(ctx, nil)
	}

	if err != nil {
		err = crawlError(err, cfg)
		if cfg.PartialOnFailure && result != nil {
			savePartial(logger, out, sink, files, cfg.Org, runID, result, stats)
		}
		return storage.Snapshot{}, err
	}

	snap := storage.NewSnapshot(cfg.Org, result, stats, false)
	snap.ID = runID
	if err := sink.Save(ctx, snap); err != nil {
		return storage.Snapshot{}, err
	}

	prog.done(fmt.Sprintf("Resolved %d nodes in %s", stats.Nodes, cfg.Org))
	printStats(out, cfg.Org, stats)
	printFile(out, files.Target(false))
	if stats.DroppedEdges > 0 {
		printWarning(out, "%d dependencies point at empty repositories and were dropped", stats.DroppedEdges)
	}
	return snap, nil
}

// crawlError gives an expired run deadline its error code.
func crawlError(err error, cfg config.Config) error {
	if errors.Is(err, context.DeadlineExceeded) && orgerrors.GetCode(err) != orgerrors.ErrCodeTimeout {
		return orgerrors.Wrap(orgerrors.ErrCodeTimeout, err, "crawl of %s exceeded %s", cfg.Org, cfg.Timeout)
	}
	return err
}

// savePartial writes the entries completed before a failure. The crawl
// context may already be done, so the write gets its own deadline.
func savePartial(logger *log.Logger, out io.Writer, sink storage.Sink, files *storage.FileSink, org, runID string, cache *deps.Cache, stats deps.Stats) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	snap := storage.NewSnapshot(org, cache, stats, true)
	snap.ID = runID
	if err := sink.Save(ctx, snap); err != nil {
		logger.Errorf("Saving partial result: %v", err)
		return
	}
	printWarning(out, "Crawl failed; partial result with %d entries written", len(snap.Entries))
	printFile(out, files.Target(true))
}

// newSink returns the snapshot sinks for cfg: always the artifact file,
// plus MongoDB when a URI is configured.
func newSink(ctx context.Context, cfg config.Config) (storage.Sink, *storage.FileSink, error) {
	files := storage.NewFileSink(cfg.OutPath)
	if cfg.MongoURI == "" {
		return files, files, nil
	}
	mongo, err := storage.NewMongoSink(ctx, storage.MongoConfig{
		URI:      cfg.MongoURI,
		Database: cfg.MongoDatabase,
	})
	if err != nil {
		return nil, nil, err
	}
	return storage.MultiSink{files, mongo}, files, nil
}

// httpLogHooks logs gateway traffic at debug level.
type httpLogHooks struct {
	logger *log.Logger
}

func (h httpLogHooks) OnRequest(context.Context, string, string, string) {}

func (h httpLogHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debugf("%s %s%s %d (%s)", method, host, path, status, d.Round(time.Millisecond))
}

func (h httpLogHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debugf("%s %s%s failed: %v", method, host, path, err)
}

var _ observability.HTTPHooks = httpLogHooks{}
