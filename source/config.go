// Package source holds the registry of external data sources.
//
// A Config describes one external source: identity, access method, polling
// cadence, trust tier, and the indicators it covers. Configs are loaded
// once from a catalog file at startup and are immutable afterward;
// replacing one means re-registering it wholesale, never mutating fields.
package source

import (
	"time"

	"github.com/sanadlabs/sanad/errors"
)

// AccessMethod describes how a source's data is obtained.
type AccessMethod string

const (
	AccessAPI    AccessMethod = "api"    // machine-readable endpoint
	AccessWeb    AccessMethod = "web"    // scraped web page
	AccessManual AccessMethod = "manual" // hand-entered releases
)

// Trust tiers. Tier 1 is an official primary source; tier 4 is unverified.
const (
	TierOfficial      = 1
	TierInstitutional = 2
	TierSecondary     = 3
	TierUnverified    = 4
)

// Coverage is the date range a source can supply data for.
type Coverage struct {
	Start time.Time `toml:"start" json:"start"`
	End   time.Time `toml:"end" json:"end"`
}

// Config describes a single external data source.
type Config struct {
	SourceID         string       `toml:"source_id" json:"source_id"`
	Name             string       `toml:"name" json:"name"`
	Category         string       `toml:"category" json:"category"` // e.g. "central_bank", "un_agency"
	Tier             int          `toml:"tier" json:"tier"`
	AccessMethod     AccessMethod `toml:"access_method" json:"access_method"`
	Endpoint         string       `toml:"endpoint" json:"endpoint,omitempty"` // fetch URL for api/web sources
	UpdateFrequency  string       `toml:"update_frequency" json:"update_frequency"`
	RequiresAuth     bool         `toml:"requires_auth" json:"requires_auth"`
	Indicators       []string     `toml:"indicators" json:"indicators"`
	Coverage         Coverage     `toml:"coverage" json:"coverage"`
	ReliabilityScore float64      `toml:"reliability_score" json:"reliability_score"` // 0-100 static prior
	Regime           string       `toml:"regime" json:"regime,omitempty"`             // competing-authority tag
	LastVerified     time.Time    `toml:"last_verified" json:"last_verified"`
	KnownBiases      []string     `toml:"known_biases" json:"known_biases,omitempty"`
}

// Validate checks a catalog entry for structural problems.
// A failing entry is skipped by the loader, never fatal to the whole load.
func (c Config) Validate() error {
	if c.SourceID == "" {
		return errors.Wrap(errors.ErrInvalidConfig, "missing source_id")
	}
	if c.Name == "" {
		return errors.Wrapf(errors.ErrInvalidConfig, "source %s: missing name", c.SourceID)
	}
	if c.Tier < TierOfficial || c.Tier > TierUnverified {
		return errors.Wrapf(errors.ErrInvalidConfig, "source %s: tier %d out of range 1-4", c.SourceID, c.Tier)
	}
	switch c.AccessMethod {
	case AccessAPI, AccessWeb, AccessManual:
	default:
		return errors.Wrapf(errors.ErrInvalidConfig, "source %s: unknown access method %q", c.SourceID, c.AccessMethod)
	}
	if (c.AccessMethod == AccessAPI || c.AccessMethod == AccessWeb) && c.Endpoint == "" {
		return errors.Wrapf(errors.ErrInvalidConfig, "source %s: %s source requires an endpoint", c.SourceID, c.AccessMethod)
	}
	if c.ReliabilityScore < 0 || c.ReliabilityScore > 100 {
		return errors.Wrapf(errors.ErrInvalidConfig, "source %s: reliability score %.1f out of range 0-100", c.SourceID, c.ReliabilityScore)
	}
	if len(c.Indicators) == 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "source %s: no indicator coverage", c.SourceID)
	}
	return nil
}
