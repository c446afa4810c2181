package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"matchpulse/pkg/types"
)

const sampleYAML = `
feeds:
  - alias: sofascore
    domain: scores
    url: https://scores.example.com/live
    priority: 1
    active: true
  - alias: oddsapi
    domain: odds
    url: https://odds.example.com/v4
    priority: 1
    active: true
poll:
  scores_interval: 10s
  odds_interval: 30s
  fetch_timeout: 5s
  failure_threshold: 3
flow:
  sensitivity_k: 3.5
  alert_threshold: 60
  dedup_window: 10m
  baseline_ttl: 4h
store:
  database_path: data/test.db
  archive_dir: data/archive
  retention: 24h
api:
  enabled: true
  port: 8080
logging:
  level: debug
  format: json
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config invalid: %v", err)
	}

	if len(cfg.Feeds) != 2 {
		t.Fatalf("feeds = %d", len(cfg.Feeds))
	}
	if cfg.Feeds[0].Alias != "sofascore" || cfg.Feeds[0].Domain != types.DomainScores {
		t.Errorf("feeds[0] = %+v", cfg.Feeds[0])
	}
	if cfg.Poll.ScoresInterval != 10*time.Second {
		t.Errorf("scores_interval = %v", cfg.Poll.ScoresInterval)
	}
	if cfg.Flow.SensitivityK != 3.5 {
		t.Errorf("sensitivity_k = %v", cfg.Flow.SensitivityK)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("logging.format = %q", cfg.Logging.Format)
	}

	scores := cfg.FeedsForDomain(types.DomainScores)
	if len(scores) != 1 || scores[0].Alias != "sofascore" {
		t.Errorf("FeedsForDomain(scores) = %+v", scores)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("want error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(writeConfig(t, sampleYAML))
		if err != nil {
			t.Fatal(err)
		}
		return cfg
	}

	cases := []struct {
		name  string
		mutate func(*Config)
	}{
		{"no feeds", func(c *Config) { c.Feeds = nil }},
		{"empty alias", func(c *Config) { c.Feeds[0].Alias = "" }},
		{"duplicate alias", func(c *Config) { c.Feeds[1].Alias = c.Feeds[0].Alias }},
		{"bad domain", func(c *Config) { c.Feeds[0].Domain = "weather" }},
		{"missing url", func(c *Config) { c.Feeds[0].URL = "" }},
		{"zero priority", func(c *Config) { c.Feeds[0].Priority = 0 }},
		{"zero scores interval", func(c *Config) { c.Poll.ScoresInterval = 0 }},
		{"zero fetch timeout", func(c *Config) { c.Poll.FetchTimeout = 0 }},
		{"zero failure threshold", func(c *Config) { c.Poll.FailureThreshold = 0 }},
		{"negative sensitivity", func(c *Config) { c.Flow.SensitivityK = -1 }},
		{"threshold out of range", func(c *Config) { c.Flow.AlertThreshold = 150 }},
		{"zero dedup window", func(c *Config) { c.Flow.DedupWindow = 0 }},
		{"zero baseline ttl", func(c *Config) { c.Flow.BaselineTTL = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("%s: want validation error", tc.name)
			}
		})
	}

	// Simulated feeds don't need a URL.
	cfg := base()
	cfg.Feeds[0].URL = ""
	cfg.Feeds[0].Simulated = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("simulated feed without url: %v", err)
	}
}
