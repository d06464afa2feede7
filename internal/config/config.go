package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Cache policies accepted in cache_policy.
const (
	CachePolicyExactlyOnce = "exactly_once"
	CachePolicyRacy        = "racy"
)

// Config represents dynlink.yaml. Every field can be overridden from the
// environment with the DYNLINK_ prefix, e.g. DYNLINK_CALL_SITE_MAX_CHAIN.
type Config struct {
	// CachePolicy selects how the fallback linker builds type linkers on
	// concurrent first use: "exactly_once" (default) or "racy".
	CachePolicy string `yaml:"cache_policy" split_words:"true"`

	// Discovery places linkers registered with linker.RegisterDiscoverable
	// ahead of the fallback. Defaults to true.
	Discovery bool `yaml:"discovery"`

	CallSite CallSiteConfig `yaml:"call_site" split_words:"true"`
	Log      LogConfig      `yaml:"log"`
}

// CallSiteConfig configures relinkable call sites.
type CallSiteConfig struct {
	// MaxChain bounds the cached invocations per site.
	MaxChain int `yaml:"max_chain" split_words:"true"`
}

// LogConfig configures the slog handler of the CLI.
type LogConfig struct {
	// Level is a slog level name: debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		CachePolicy: CachePolicyExactlyOnce,
		Discovery:   true,
		CallSite:    CallSiteConfig{MaxChain: DefaultMaxChain},
		Log:         LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig reads path, applies environment overrides and validates the
// result. An empty path loads DefaultConfigFile from the working directory
// if it exists, and the defaults otherwise.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	name := path
	if name == "" {
		name = DefaultConfigFile
	}
	data, err := os.ReadFile(name)
	switch {
	case err == nil:
		if cfg, err = parse(data, name); err != nil {
			return nil, err
		}
	case path == "" && errors.Is(err, fs.ErrNotExist):
		// optional
	default:
		return nil, fmt.Errorf("reading config %s: %w", name, err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return cfg, nil
}

// ParseConfig parses dynlink.yaml content on top of the defaults.
// The path argument is used only for error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	cfg, err := parse(data, path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func parse(data []byte, path string) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from DYNLINK_* environment variables. Unset
// variables leave the field alone.
func (c *Config) ApplyEnv() error {
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	return nil
}

// Validate checks the configuration for semantic errors.
func (c *Config) Validate() error {
	switch c.CachePolicy {
	case CachePolicyExactlyOnce, CachePolicyRacy:
	default:
		return fmt.Errorf("cache_policy: unknown policy %q (want %s or %s)", c.CachePolicy, CachePolicyExactlyOnce, CachePolicyRacy)
	}
	if c.CallSite.MaxChain < 1 {
		return fmt.Errorf("call_site.max_chain: must be positive, got %d", c.CallSite.MaxChain)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	return nil
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, err
	}
	return level, nil
}

// NewLogger builds a logger writing to w. The configuration is assumed to be
// valid.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, _ := l.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
