package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/orgdeps/internal/config"
)

// bindConfigFlags registers the flags shared by every command.
func (c *CLI) bindConfigFlags(root *cobra.Command) {
	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "config file (default: ~/.config/orgdeps/config.toml)")
	pf.StringVar(&c.flags.Org, "org", "", "GitHub organization (env ORG_NAME)")
	pf.StringVar(&c.flags.Token, "token", "", "GitHub token (env GITHUB_TOKEN)")
}

// bindCrawlFlags registers the crawl settings on cmd.
func (c *CLI) bindCrawlFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&c.flags.OutPath, "out", "o", c.flags.OutPath, "artifact path (env OUT_PATH)")
	f.BoolVar(&c.flags.PartialOnFailure, "partial", false, "write <out>.partial.json when the crawl fails")
	f.IntVar(&c.flags.Concurrency, "concurrency", c.flags.Concurrency, "simultaneous GitHub requests")
	f.Float64Var(&c.flags.RateLimit, "rate-limit", c.flags.RateLimit, "requests per second (0 for unlimited)")
	f.IntVar(&c.flags.Burst, "burst", c.flags.Burst, "rate limiter burst")
	f.DurationVar(&c.flags.Timeout, "timeout", c.flags.Timeout, "overall crawl deadline (0 for none)")
	f.DurationVar(&c.flags.RequestTimeout, "request-timeout", c.flags.RequestTimeout, "per-request timeout")
	f.StringVar(&c.flags.ManifestPath, "manifest", c.flags.ManifestPath, "manifest path in each repository")
	f.StringSliceVar(&c.flags.Sections, "sections", c.flags.Sections, "dependency sections to follow")
	f.BoolVar(&c.flags.SkipArchived, "skip-archived", false, "do not start from archived repositories")
	f.BoolVar(&c.flags.SkipForks, "skip-forks", false, "do not start from forked repositories")
	f.StringVar(&c.flags.BaseURL, "base-url", "", "GitHub API URL (for GitHub Enterprise)")
	f.StringVar(&c.flags.RawURL, "raw-url", "", "raw content URL (for GitHub Enterprise)")
	f.BoolVar(&c.flags.NoCache, "no-cache", false, "disable the manifest cache")
	f.StringVar(&c.flags.RedisAddr, "redis", "", "cache manifests in Redis at host:port (env REDIS_ADDR)")
	f.StringVar(&c.flags.MongoURI, "mongo", "", "also store the snapshot in MongoDB (env MONGO_URI)")
}

// loadConfig builds the configuration for cmd: defaults, then the config
// file, then the environment, then the flags set on the command line.
func (c *CLI) loadConfig(cmd *cobra.Command) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if c.configPath != "" {
		cfg, err = config.Load(c.configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return config.Config{}, err
	}

	cfg.ApplyEnv(c.getenv)
	cmd.Flags().Visit(func(f *pflag.Flag) {
		applyFlag(f.Name, &cfg, &c.flags)
	})
	return cfg, nil
}

// applyFlag copies the field behind flag name from src to dst.
func applyFlag(name string, dst, src *config.Config) {
	switch name {
	case "org":
		dst.Org = src.Org
	case "token":
		dst.Token = src.Token
	case "out", "in":
		dst.OutPath = src.OutPath
	case "partial":
		dst.PartialOnFailure = src.PartialOnFailure
	case "concurrency":
		dst.Concurrency = src.Concurrency
	case "rate-limit":
		dst.RateLimit = src.RateLimit
	case "burst":
		dst.Burst = src.Burst
	case "timeout":
		dst.Timeout = src.Timeout
	case "request-timeout":
		dst.RequestTimeout = src.RequestTimeout
	case "manifest":
		dst.ManifestPath = src.ManifestPath
	case "sections":
		dst.Sections = src.Sections
	case "skip-archived":
		dst.SkipArchived = src.SkipArchived
	case "skip-forks":
		dst.SkipForks = src.SkipForks
	case "base-url":
		dst.BaseURL = src.BaseURL
	case "raw-url":
		dst.RawURL = src.RawURL
	case "no-cache":
		dst.NoCache = src.NoCache
	case "redis":
		dst.RedisAddr = src.RedisAddr
	case "mongo":
		dst.MongoURI = src.MongoURI
	case "listen":
		dst.Listen = src.Listen
	}
}
