package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/IreneBurresi/awsome-ai-news/internal/cache"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

const validConfig = `
lookback_days: 3
retention:
  articles_days: 10
  news_days: 3
concurrency: 4
feeds:
  - name: Example
    url: https://example.com/feed.xml
    type: specialized
    priority: 8
    enabled: true
  - name: General
    url: https://general.example.com/rss
    type: generalist
    priority: 3
    enabled: false
    filter:
      whitelist_keywords: [ai, llm]
      apply_to_fields: [title]
`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LookbackDays != 3 || cfg.GetConcurrency() != 4 {
		t.Errorf("unexpected config values: %+v", cfg)
	}
	if len(cfg.Feeds) != 2 {
		t.Fatalf("expected 2 feeds, got %d", len(cfg.Feeds))
	}
	enabled := cfg.EnabledFeeds()
	if len(enabled) != 1 || enabled[0].Name != "Example" {
		t.Errorf("expected only the enabled feed, got %v", enabled)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load should fall back to embedded defaults: %v", err)
	}
	if len(cfg.Feeds) == 0 {
		t.Error("embedded defaults should ship feeds")
	}

	// First run writes the defaults out for editing.
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected defaults written to %s: %v", path, err)
	}
}

func TestLoadValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing url",
			body: "feeds:\n  - name: NoURL\n    type: specialized\n    priority: 5\n",
			want: "url is required",
		},
		{
			name: "bad scheme",
			body: "feeds:\n  - name: FTP\n    url: ftp://example.com/feed\n    type: specialized\n    priority: 5\n",
			want: "scheme",
		},
		{
			name: "unknown type",
			body: "feeds:\n  - name: Odd\n    url: https://example.com/feed\n    type: mixed\n    priority: 5\n",
			want: "unknown type",
		},
		{
			name: "priority out of range",
			body: "feeds:\n  - name: Loud\n    url: https://example.com/feed\n    type: specialized\n    priority: 11\n",
			want: "priority",
		},
		{
			name: "broken filter regex",
			body: "feeds:\n  - name: Rx\n    url: https://example.com/feed\n    type: generalist\n    priority: 5\n    filter:\n      whitelist_regex: '('\n",
			want: "whitelist_regex",
		},
		{
			name: "unknown filter field",
			body: "feeds:\n  - name: Fld\n    url: https://example.com/feed\n    type: generalist\n    priority: 5\n    filter:\n      apply_to_fields: [summary]\n",
			want: "filter field",
		},
		{
			name: "negative retention",
			body: "retention:\n  articles_days: -1\n",
			want: "retention",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestRetentionOverridesCategories(t *testing.T) {
	cfg := &Config{Retention: Retention{ArticlesDays: 20, NewsDays: 7}}
	if got := cfg.ArticleCategory().RetentionDays; got != 20 {
		t.Errorf("expected articles retention 20, got %d", got)
	}
	if got := cfg.NewsCategory().RetentionDays; got != 7 {
		t.Errorf("expected news retention 7, got %d", got)
	}

	zero := &Config{}
	if got := zero.ArticleCategory().RetentionDays; got != cache.Articles.RetentionDays {
		t.Errorf("zero config should keep the default retention, got %d", got)
	}
}

func TestLookbackDefaultsToNewsRetention(t *testing.T) {
	cfg := &Config{Retention: Retention{NewsDays: 5}}
	if got := cfg.GetLookbackDays(); got != 5 {
		t.Errorf("expected lookback to default to news retention, got %d", got)
	}
	cfg.LookbackDays = 2
	if got := cfg.GetLookbackDays(); got != 2 {
		t.Errorf("explicit lookback should win, got %d", got)
	}
}

func TestOracleKeyResolution(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-key")

	cfg := &Config{Oracle: &OracleConfig{APIKey: "config-key"}}
	if cfg.OracleKey() != "config-key" {
		t.Error("config key should take precedence over the environment")
	}

	cfg.Oracle.APIKey = ""
	if cfg.OracleKey() != "env-key" {
		t.Error("expected environment fallback")
	}
	if !cfg.OracleEnabled() {
		t.Error("oracle should be enabled with a resolvable key")
	}

	none := &Config{}
	if none.OracleEnabled() {
		t.Error("oracle must be disabled without configuration")
	}
}
