// Package config holds the explicit process configuration of orgdeps.
//
// Values are layered in increasing precedence: [Default], an optional TOML
// file ([Load]), the environment ([Config.ApplyEnv]) and finally command-line
// flags, which the CLI applies. Nothing below the CLI reads the environment.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/orgdeps/pkg/deps"
	orgerrors "github.com/matzehuels/orgdeps/pkg/errors"
	"github.com/matzehuels/orgdeps/pkg/integrations"
)

const (
	appName = "orgdeps"

	DefaultOutPath        = "data/deps.json"
	DefaultTimeout        = 30 * time.Minute
	DefaultCacheTTL       = 30 * 24 * time.Hour
	DefaultListen         = ":8080"
	DefaultMongoDatabase  = "orgdeps"
	DefaultRateLimit      = 10.0
	DefaultBurst          = 10
	defaultConfigFileName = "config.toml"
)

// Environment variables read by [Config.ApplyEnv].
const (
	EnvOrg       = "ORG_NAME"
	EnvToken     = "GITHUB_TOKEN"
	EnvOutPath   = "OUT_PATH"
	EnvRedisAddr = "REDIS_ADDR"
	EnvMongoURI  = "MONGO_URI"
)

// Config is the complete process configuration.
type Config struct {
	Org   string `toml:"org"`   // GitHub organization to crawl
	Token string `toml:"token"` // GitHub token; ${VAR} references are expanded

	BaseURL string `toml:"base_url"` // GitHub API base URL (default: public GitHub)
	RawURL  string `toml:"raw_url"`  // Raw content base URL

	OutPath          string `toml:"out"`     // Artifact path
	PartialOnFailure bool   `toml:"partial"` // Write <out>.partial.json after a fatal failure

	Concurrency    int           `toml:"concurrency"`     // Simultaneous gateway calls
	RateLimit      float64       `toml:"rate_limit"`      // Requests per second, 0 for unlimited
	Burst          int           `toml:"burst"`           // Rate limiter burst
	Timeout        time.Duration `toml:"timeout"`         // Overall run deadline
	RequestTimeout time.Duration `toml:"request_timeout"` // Per-request timeout

	ManifestPath string   `toml:"manifest"`      // Manifest path in each repository
	Sections     []string `toml:"sections"`      // Dependency sections to follow
	SkipArchived bool     `toml:"skip_archived"` // Do not start from archived repositories
	SkipForks    bool     `toml:"skip_forks"`    // Do not start from forks

	CacheDir  string        `toml:"cache_dir"` // Manifest cache directory
	CacheTTL  time.Duration `toml:"cache_ttl"` // Manifest cache entry lifetime
	NoCache   bool          `toml:"no_cache"`  // Disable the manifest cache
	RedisAddr string        `toml:"redis"`     // Use Redis instead of the file cache

	MongoURI      string `toml:"mongo_uri"`      // Also store snapshots in MongoDB
	MongoDatabase string `toml:"mongo_database"` // MongoDB database name

	Listen string `toml:"listen"` // HTTP address for serve
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		OutPath:        DefaultOutPath,
		Concurrency:    deps.DefaultConcurrency,
		RateLimit:      DefaultRateLimit,
		Burst:          DefaultBurst,
		Timeout:        DefaultTimeout,
		RequestTimeout: integrations.DefaultTimeout,
		ManifestPath:   deps.DefaultManifestPath,
		Sections:       []string{deps.SectionDependencies},
		CacheTTL:       DefaultCacheTTL,
		MongoDatabase:  DefaultMongoDatabase,
		Listen:         DefaultListen,
	}
}

// Load reads a TOML file on top of [Default]. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, orgerrors.Wrap(orgerrors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, orgerrors.New(orgerrors.ErrCodeInvalidConfig, "unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	cfg.Token = os.ExpandEnv(cfg.Token)
	return cfg, nil
}

// LoadDefault loads the config file at [DefaultPath] if it exists and
// returns [Default] otherwise.
func LoadDefault() (Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return Default(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// DefaultPath returns the config file location using the XDG standard
// (~/.config/orgdeps/config.toml).
func DefaultPath() (string, error) {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, appName, defaultConfigFileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, defaultConfigFileName), nil
}

// DefaultCacheDir returns the manifest cache directory using the XDG
// standard (~/.cache/orgdeps/).
func DefaultCacheDir() (string, error) {
	if home := os.Getenv("XDG_CACHE_HOME"); home != "" {
		return filepath.Join(home, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// ApplyEnv overlays the non-empty environment variables onto c.
// getenv is usually [os.Getenv].
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Org, EnvOrg)
	set(&c.Token, EnvToken)
	set(&c.OutPath, EnvOutPath)
	set(&c.RedisAddr, EnvRedisAddr)
	set(&c.MongoURI, EnvMongoURI)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Org) == "":
		return invalid("organization is required (set %s, org in the config file or --org)", EnvOrg)
	case strings.TrimSpace(c.OutPath) == "":
		return invalid("output path is required (set %s, out in the config file or --out)", EnvOutPath)
	case c.Concurrency <= 0:
		return invalid("concurrency must be positive, got %d", c.Concurrency)
	case c.RateLimit < 0:
		return invalid("rate limit must not be negative, got %g", c.RateLimit)
	case c.RateLimit > 0 && c.Burst <= 0:
		return invalid("burst must be positive when rate limiting, got %d", c.Burst)
	case c.Timeout < 0 || c.RequestTimeout < 0 || c.CacheTTL < 0:
		return invalid("durations must not be negative")
	}
	if strings.ContainsRune(c.Org, '/') {
		return invalid("organization %q must not contain '/'", c.Org)
	}
	if err := orgerrors.ValidatePath(c.ManifestPath); err != nil {
		return orgerrors.Wrap(orgerrors.ErrCodeInvalidConfig, err, "manifest path %q", c.ManifestPath)
	}
	for _, s := range c.Sections {
		if !slices.Contains(deps.KnownSections, s) {
			return invalid("unknown dependency section %q (known: %s)", s, strings.Join(deps.KnownSections, ", "))
		}
	}
	return nil
}

// DepsOptions returns the resolver options described by c.
func (c Config) DepsOptions() deps.Options {
	return deps.Options{
		Concurrency:  c.Concurrency,
		ManifestPath: c.ManifestPath,
		Sections:     slices.Clone(c.Sections),
		SkipArchived: c.SkipArchived,
		SkipForks:    c.SkipForks,
	}
}

func invalid(format string, args ...any) error {
	return orgerrors.New(orgerrors.ErrCodeInvalidConfig, format, args...)
}
