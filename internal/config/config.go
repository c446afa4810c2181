// Package config defines all configuration for the aggregation service.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// operational fields overridable via PULSE_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"matchpulse/pkg/types"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	Feeds   []FeedConfig  `mapstructure:"feeds"`
	Poll    PollConfig    `mapstructure:"poll"`
	Flow    FlowConfig    `mapstructure:"flow"`
	Store   StoreConfig   `mapstructure:"store"`
	API     APIConfig     `mapstructure:"api"`
	Alerts  AlertsConfig  `mapstructure:"alerts"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// FeedConfig describes one configured upstream feed. Priority is the static
// fallback rank (1 = preferred); switching between feeds always follows this
// order, never round-robin or health-score ranking.
type FeedConfig struct {
	Alias    string       `mapstructure:"alias"`
	Domain   types.Domain `mapstructure:"domain"` // scores | odds
	URL      string       `mapstructure:"url"`
	Priority int          `mapstructure:"priority"`
	Active   bool         `mapstructure:"active"`
	// Simulated switches the feed to the deterministic in-process generator.
	// Explicit degraded/demo mode — never silently substituted for a real feed.
	Simulated bool  `mapstructure:"simulated"`
	Seed      int64 `mapstructure:"seed"`
}

// PollConfig controls the per-domain polling schedule and feed health rules.
//
//   - ScoresInterval / OddsInterval: cycle period per domain. The two domains
//     run on independent schedules; a slow cycle in one never delays the other.
//   - FetchTimeout: hard deadline per fetch; an overrun is cancelled and
//     reported as a Timeout failure.
//   - FailureThreshold: consecutive failures that take a feed from Degraded
//     to Down.
type PollConfig struct {
	ScoresInterval   time.Duration `mapstructure:"scores_interval"`
	OddsInterval     time.Duration `mapstructure:"odds_interval"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
}

// FlowConfig tunes the money-flow scorer.
//
//   - SensitivityK: multiplier applied to mean probability drift before
//     clamping to 0–100. Empirically tuned (values near 3.5 work in practice);
//     there is no principled derivation, so it stays configuration.
//   - AlertThreshold: minimum flow score that emits a signal.
//   - DedupWindow: suppression span for repeated signals on one (match, market).
//   - BaselineTTL: inactivity past kickoff after which a match's odds rows
//     are evicted from the active window and archived.
type FlowConfig struct {
	SensitivityK   float64       `mapstructure:"sensitivity_k"`
	AlertThreshold float64       `mapstructure:"alert_threshold"`
	DedupWindow    time.Duration `mapstructure:"dedup_window"`
	BaselineTTL    time.Duration `mapstructure:"baseline_ttl"`
}

// StoreConfig sets where the signal log database and match archives live.
type StoreConfig struct {
	DatabasePath string        `mapstructure:"database_path"`
	ArchiveDir   string        `mapstructure:"archive_dir"`
	Retention    time.Duration `mapstructure:"retention"` // prune signals older than this
}

// APIConfig controls the status/alert HTTP server.
type APIConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// AlertsConfig configures outbound alert delivery. Telegram is optional;
// with an empty token, signals only go to the local log and WebSocket stream.
type AlertsConfig struct {
	TelegramToken  string `mapstructure:"telegram_token"`
	TelegramChatID int64  `mapstructure:"telegram_chat_id"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: PULSE_TELEGRAM_TOKEN, PULSE_TELEGRAM_CHAT_ID.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("PULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if tok := os.Getenv("PULSE_TELEGRAM_TOKEN"); tok != "" {
		cfg.Alerts.TelegramToken = tok
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges. Violations here are
// the only fatal errors in the system; everything past startup degrades
// gracefully instead.
func (c *Config) Validate() error {
	if len(c.Feeds) == 0 {
		return fmt.Errorf("at least one feed must be configured")
	}
	seen := make(map[string]bool)
	for i, f := range c.Feeds {
		if f.Alias == "" {
			return fmt.Errorf("feeds[%d].alias is required", i)
		}
		if seen[f.Alias] {
			return fmt.Errorf("duplicate feed alias %q", f.Alias)
		}
		seen[f.Alias] = true
		if !f.Domain.Valid() {
			return fmt.Errorf("feed %q: domain must be %q or %q", f.Alias, types.DomainScores, types.DomainOdds)
		}
		if f.URL == "" && !f.Simulated {
			return fmt.Errorf("feed %q: url is required for non-simulated feeds", f.Alias)
		}
		if f.Priority <= 0 {
			return fmt.Errorf("feed %q: priority must be > 0", f.Alias)
		}
	}
	if c.Poll.ScoresInterval <= 0 {
		return fmt.Errorf("poll.scores_interval must be > 0")
	}
	if c.Poll.OddsInterval <= 0 {
		return fmt.Errorf("poll.odds_interval must be > 0")
	}
	if c.Poll.FetchTimeout <= 0 {
		return fmt.Errorf("poll.fetch_timeout must be > 0")
	}
	if c.Poll.FailureThreshold <= 0 {
		return fmt.Errorf("poll.failure_threshold must be > 0")
	}
	if c.Flow.SensitivityK <= 0 {
		return fmt.Errorf("flow.sensitivity_k must be > 0")
	}
	if c.Flow.AlertThreshold < 0 || c.Flow.AlertThreshold > 100 {
		return fmt.Errorf("flow.alert_threshold must be within 0–100")
	}
	if c.Flow.DedupWindow <= 0 {
		return fmt.Errorf("flow.dedup_window must be > 0")
	}
	if c.Flow.BaselineTTL <= 0 {
		return fmt.Errorf("flow.baseline_ttl must be > 0")
	}
	return nil
}

// FeedsForDomain returns the configured feeds for one domain, in file order.
// The registry re-sorts by priority on construction.
func (c *Config) FeedsForDomain(d types.Domain) []FeedConfig {
	var out []FeedConfig
	for _, f := range c.Feeds {
		if f.Domain == d {
			out = append(out, f)
		}
	}
	return out
}
