// Package config loads and validates the pipeline configuration.
package config

import (
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/IreneBurresi/awsome-ai-news/internal/cache"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

// FeedFilter holds keyword/regex filters applied to generalist feeds.
// Specialized feeds skip filtering entirely.
type FeedFilter struct {
	WhitelistKeywords []string `yaml:"whitelist_keywords,omitempty"`
	WhitelistRegex    string   `yaml:"whitelist_regex,omitempty"`
	BlacklistKeywords []string `yaml:"blacklist_keywords,omitempty"`
	BlacklistRegex    string   `yaml:"blacklist_regex,omitempty"`
	// ApplyToFields selects which article fields the filters inspect.
	// Valid values: "title", "content". Defaults to both.
	ApplyToFields []string `yaml:"apply_to_fields,omitempty"`
}

// Feed is one configured news source.
type Feed struct {
	Name     string      `yaml:"name"`
	URL      string      `yaml:"url"`
	Type     string      `yaml:"type"` // "specialized" or "generalist"
	Priority int         `yaml:"priority"`
	Enabled  bool        `yaml:"enabled"`
	Filter   *FeedFilter `yaml:"filter,omitempty"`
}

// Retention configures per-category shard retention in days.
type Retention struct {
	ArticlesDays int `yaml:"articles_days"`
	NewsDays     int `yaml:"news_days"`
}

// OracleConfig configures the LLM collaborators (clustering and
// cross-day similarity judging).
type OracleConfig struct {
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	APIKey      string  `yaml:"api_key,omitempty"`
	// FallbackToNoMerge keeps the pipeline going without merging when the
	// oracle is unavailable, instead of failing the run.
	FallbackToNoMerge bool `yaml:"fallback_to_no_merge"`
}

// Config is the full pipeline configuration.
type Config struct {
	CacheDir       string        `yaml:"cache_dir,omitempty"`
	LookbackDays   int           `yaml:"lookback_days"`
	Retention      Retention     `yaml:"retention"`
	BackupOnStart  bool          `yaml:"backup_on_start"`
	CleanupOnStart bool          `yaml:"cleanup_on_start"`
	Concurrency    int           `yaml:"concurrency"`
	Oracle         *OracleConfig `yaml:"oracle,omitempty"`
	Feeds          []Feed        `yaml:"feeds"`
}

// OracleKey returns the resolved oracle API key (config or environment).
func (c *Config) OracleKey() string {
	if c.Oracle != nil && c.Oracle.APIKey != "" {
		return c.Oracle.APIKey
	}
	return os.Getenv("ANTHROPIC_API_KEY")
}

// OracleEnabled reports whether LLM oracle calls can be made.
func (c *Config) OracleEnabled() bool {
	return c.Oracle != nil && c.OracleKey() != ""
}

// EnabledFeeds returns the feeds that are switched on.
func (c *Config) EnabledFeeds() []Feed {
	var out []Feed
	for _, f := range c.Feeds {
		if f.Enabled {
			out = append(out, f)
		}
	}
	return out
}

// ResolvedCacheDir returns the configured cache directory, or the XDG
// default when unset.
func (c *Config) ResolvedCacheDir() string {
	if c.CacheDir != "" {
		return c.CacheDir
	}
	return filepath.Join(xdg.CacheHome, "ainews", "cache")
}

// ArticleCategory returns the articles cache category with the configured
// retention applied.
func (c *Config) ArticleCategory() cache.Category {
	cat := cache.Articles
	if c.Retention.ArticlesDays > 0 {
		cat.RetentionDays = c.Retention.ArticlesDays
	}
	return cat
}

// NewsCategory returns the news cache category with the configured
// retention applied.
func (c *Config) NewsCategory() cache.Category {
	cat := cache.News
	if c.Retention.NewsDays > 0 {
		cat.RetentionDays = c.Retention.NewsDays
	}
	return cat
}

// GetLookbackDays returns the cross-day merge window, defaulting to the
// news retention.
func (c *Config) GetLookbackDays() int {
	if c.LookbackDays > 0 {
		return c.LookbackDays
	}
	return c.NewsCategory().RetentionDays
}

// GetConcurrency returns the feed fetch concurrency limit, defaulting to 5.
func (c *Config) GetConcurrency() int {
	if c.Concurrency <= 0 {
		return 5
	}
	return c.Concurrency
}

// DefaultConfigPath returns the XDG config file location.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "ainews", "config.yaml")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load reads the config at path, falling back to the embedded defaults
// when the file does not exist (writing them out on first run).
func Load(path string) (*Config, error) {
	defaults, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := writeDefaults(path); err != nil {
				// Non-fatal: run on embedded defaults.
				return defaults, nil
			}
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

func validate(cfg *Config) error {
	validTypes := map[string]bool{"specialized": true, "generalist": true}
	for i, f := range cfg.Feeds {
		if f.Name == "" {
			return fmt.Errorf("feed %d: name is required", i)
		}
		if f.URL == "" {
			return fmt.Errorf("feed %q: url is required", f.Name)
		}
		u, err := url.Parse(f.URL)
		if err != nil {
			return fmt.Errorf("feed %q: invalid url: %w", f.Name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("feed %q: url scheme must be http or https, got %q", f.Name, u.Scheme)
		}
		if !validTypes[f.Type] {
			return fmt.Errorf("feed %q: unknown type %q (valid: specialized, generalist)", f.Name, f.Type)
		}
		if f.Priority < 1 || f.Priority > 10 {
			return fmt.Errorf("feed %q: priority must be between 1 and 10, got %d", f.Name, f.Priority)
		}
		if f.Filter != nil {
			if err := validateFilter(f.Name, f.Filter); err != nil {
				return err
			}
		}
	}
	if cfg.Retention.ArticlesDays < 0 || cfg.Retention.NewsDays < 0 {
		return fmt.Errorf("retention days must not be negative")
	}
	if cfg.LookbackDays < 0 {
		return fmt.Errorf("lookback_days must not be negative")
	}
	return nil
}

func validateFilter(feed string, f *FeedFilter) error {
	if f.WhitelistRegex != "" {
		if _, err := regexp.Compile(f.WhitelistRegex); err != nil {
			return fmt.Errorf("feed %q: invalid whitelist_regex: %w", feed, err)
		}
	}
	if f.BlacklistRegex != "" {
		if _, err := regexp.Compile(f.BlacklistRegex); err != nil {
			return fmt.Errorf("feed %q: invalid blacklist_regex: %w", feed, err)
		}
	}
	for _, field := range f.ApplyToFields {
		if field != "title" && field != "content" {
			return fmt.Errorf("feed %q: unknown filter field %q (valid: title, content)", feed, field)
		}
	}
	return nil
}
