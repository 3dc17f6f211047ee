// Package config loads the SANAD application configuration.
//
// Configuration is layered: built-in defaults, then sanad.toml (found by
// walking up from the working directory), then SANAD_* environment
// variables. The result is an explicit Config value handed to the
// components that need it; nothing in this package is consulted again
// after startup.
package config

// Config represents the core SANAD configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Validate ValidateConfig `mapstructure:"validate"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// CatalogConfig configures the source catalog
type CatalogConfig struct {
	Path string `mapstructure:"path"` // TOML catalog of source descriptors
}

// IngestConfig configures the ingestion orchestrator
type IngestConfig struct {
	Workers             int     `mapstructure:"workers"`               // bounded concurrency for due connector runs
	PollIntervalSeconds int     `mapstructure:"poll_interval_seconds"` // schedule scan cadence
	FetchTimeoutSeconds int     `mapstructure:"fetch_timeout_seconds"` // per-fetch HTTP timeout
	RequestsPerMinute   float64 `mapstructure:"requests_per_minute"`   // per-connector fetch rate limit

	// Retry policy for FAILED runs within the same slot.
	// attempts = 0 means no in-slot retry: the source waits for its next
	// cadence slot, matching the historical behavior.
	RetryAttempts       int `mapstructure:"retry_attempts"`
	RetryBackoffSeconds int `mapstructure:"retry_backoff_seconds"`
}

// ValidateConfig configures the validation agents
type ValidateConfig struct {
	// VarianceThresholdPct is the coefficient-of-variation percentage above
	// which cross-source disagreement is flagged (default: 20).
	VarianceThresholdPct float64 `mapstructure:"variance_threshold_pct"`
	// SpreadThresholdPct is the regime spread magnitude percentage above
	// which a matched pair is flagged (default: 300).
	SpreadThresholdPct float64 `mapstructure:"spread_threshold_pct"`
	// StaleVerificationDays flags sources whose credibility verification
	// is older than this (default: 30).
	StaleVerificationDays int `mapstructure:"stale_verification_days"`
}
