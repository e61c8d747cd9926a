// Package config loads and validates indexer configuration via Viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/textmachine/sitemap-indexer/internal/auth"
	"github.com/textmachine/sitemap-indexer/internal/indexer"
	"github.com/textmachine/sitemap-indexer/internal/ops"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Sitemap SitemapConfig `mapstructure:"sitemap"`
	Submit  SubmitConfig  `mapstructure:"submit"`
	Ledger  LedgerConfig  `mapstructure:"ledger"`
	Auth    auth.Config   `mapstructure:"auth"`
	Ops     ops.Config    `mapstructure:"ops"`
	Report  ReportConfig  `mapstructure:"report"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SitemapConfig governs crawl behavior.
type SitemapConfig struct {
	URL            string `mapstructure:"url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxDepth       int    `mapstructure:"max_depth"`
	UserAgent      string `mapstructure:"user_agent"`
}

// SubmitConfig governs the daily batch slice and pacing.
type SubmitConfig struct {
	Operation    string        `mapstructure:"operation"`
	DailyLimit   int           `mapstructure:"daily_limit"`
	StartOffset  int           `mapstructure:"start_offset"`
	PaceInterval time.Duration `mapstructure:"pace_interval"`
	Cooldown     time.Duration `mapstructure:"cooldown"`
}

// LedgerConfig selects the ledger backend: a local file path, or a GCS
// bucket+object pair.
type LedgerConfig struct {
	Path      string `mapstructure:"path"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	GCSObject string `mapstructure:"gcs_object"`
}

// ReportConfig holds metadata for run-summary notifications. Both fields
// empty disables publishing.
type ReportConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load unmarshals the supplied Viper instance into a validated Config.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every invariant that does not depend on the subcommand.
// Credential presence is checked by the submit command, which is the only
// one that authenticates.
func (c Config) Validate() error {
	if c.Sitemap.URL == "" {
		return fmt.Errorf("sitemap.url is required")
	}
	if c.Sitemap.TimeoutSeconds < 0 {
		return fmt.Errorf("sitemap.timeout_seconds must not be negative")
	}
	if c.Sitemap.MaxDepth < 0 {
		return fmt.Errorf("sitemap.max_depth must not be negative")
	}
	if _, err := indexer.ParseOperation(c.Submit.Operation); err != nil {
		return fmt.Errorf("submit.operation: %w", err)
	}
	if c.Submit.DailyLimit <= 0 {
		return fmt.Errorf("submit.daily_limit must be positive")
	}
	if c.Submit.StartOffset < 0 {
		return fmt.Errorf("submit.start_offset must not be negative")
	}
	if err := c.Ledger.validate(); err != nil {
		return err
	}
	if c.Ops.Enabled && (c.Ops.Port <= 0 || c.Ops.Port > 65535) {
		return fmt.Errorf("ops.port must be in 1..65535 when ops is enabled")
	}
	if (c.Report.ProjectID == "") != (c.Report.Topic == "") {
		return fmt.Errorf("report.project_id and report.topic must be set together")
	}
	return nil
}

func (l LedgerConfig) validate() error {
	gcsConfigured := l.GCSBucket != "" || l.GCSObject != ""
	if gcsConfigured {
		if l.GCSBucket == "" || l.GCSObject == "" {
			return fmt.Errorf("ledger.gcs_bucket and ledger.gcs_object must be set together")
		}
		if l.Path != "" {
			return fmt.Errorf("ledger.path and the GCS ledger settings are mutually exclusive")
		}
		return nil
	}
	if l.Path == "" {
		return fmt.Errorf("a ledger backend is required: set ledger.path or the GCS settings")
	}
	return nil
}

// RunConfig derives the immutable per-run configuration.
func (c Config) RunConfig() indexer.RunConfig {
	return indexer.RunConfig{
		SitemapURL:  c.Sitemap.URL,
		Operation:   indexer.Operation(c.Submit.Operation),
		DailyLimit:  c.Submit.DailyLimit,
		StartOffset: c.Submit.StartOffset,
	}
}

// SitemapTimeout returns the crawl fetch timeout as a duration.
func (c Config) SitemapTimeout() time.Duration {
	return time.Duration(c.Sitemap.TimeoutSeconds) * time.Second
}
