// Package cli implements the orgdeps command-line interface.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/orgdeps/internal/config"
	"github.com/matzehuels/orgdeps/pkg/buildinfo"
	"github.com/matzehuels/orgdeps/pkg/cache"
	"github.com/matzehuels/orgdeps/pkg/integrations/github"
	"github.com/matzehuels/orgdeps/pkg/observability"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "orgdeps"

	// cacheNamespace prefixes manifest cache keys.
	cacheNamespace = "manifest:"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// configPath is the --config flag; empty means the default location.
	configPath string
	// flags receives every flag that maps onto a config field. Only flags
	// set on the command line are applied, see loadConfig.
	flags config.Config
	// getenv reads the process environment. Tests replace it.
	getenv func(string) string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		flags:  config.Default(),
		getenv: os.Getenv,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "orgdeps maps package.json dependencies across a GitHub organization",
		Long: `orgdeps lists every repository of a GitHub organization, reads package.json at
the head of each default branch and follows dependencies that point at other
repositories of the organization. The result is a graph of repository@commit
nodes, written as JSON for the visualization front-end.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	c.bindConfigFlags(root)

	// Register all subcommands
	root.AddCommand(c.crawlCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Factories
// =============================================================================

// newCache returns the manifest response cache described by cfg: Redis when
// an address is set, otherwise a file cache, or nothing when disabled.
func newCache(ctx context.Context, cfg config.Config) (cache.Cache, error) {
	if cfg.NoCache {
		return cache.NewNullCache(), nil
	}
	if cfg.RedisAddr != "" {
		inner, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: cfg.RedisAddr})
		if err != nil {
			return nil, err
		}
		return cache.NewScoped(inner, appName+":"+cacheNamespace), nil
	}
	dir, err := cacheDir(cfg)
	if err != nil {
		return cache.NewNullCache(), nil
	}
	inner, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, err
	}
	return cache.NewScoped(inner, cacheNamespace), nil
}

// newGateway creates the GitHub client for cfg.
func newGateway(cfg config.Config, c cache.Cache, hooks observability.HTTPHooks) *github.Client {
	return github.NewClient(github.Options{
		Token:     cfg.Token,
		BaseURL:   cfg.BaseURL,
		RawURL:    cfg.RawURL,
		Timeout:   cfg.RequestTimeout,
		RateLimit: cfg.RateLimit,
		Burst:     cfg.Burst,
		Cache:     c,
		CacheTTL:  cfg.CacheTTL,
		Hooks:     hooks,
	})
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the configured cache directory, or the XDG default
// (~/.cache/orgdeps/).
func cacheDir(cfg config.Config) (string, error) {
	if cfg.CacheDir != "" {
		return cfg.CacheDir, nil
	}
	return config.DefaultCacheDir()
}
