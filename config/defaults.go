package config

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "sanad.db")

	// Catalog defaults
	v.SetDefault("catalog.path", "sources.toml")

	// Ingestion defaults
	v.SetDefault("ingest.workers", 4)
	v.SetDefault("ingest.poll_interval_seconds", 60)
	v.SetDefault("ingest.fetch_timeout_seconds", 60) // remote sources can take tens of seconds
	v.SetDefault("ingest.requests_per_minute", 30)
	v.SetDefault("ingest.retry_attempts", 0) // rely on next cadence slot
	v.SetDefault("ingest.retry_backoff_seconds", 30)

	// Validation defaults
	v.SetDefault("validate.variance_threshold_pct", 20.0)
	v.SetDefault("validate.spread_threshold_pct", 300.0)
	v.SetDefault("validate.stale_verification_days", 30)
}
