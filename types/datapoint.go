// Package types holds the core data model shared across SANAD subsystems.
package types

import (
	"time"
)

// DateLayout is the canonical day-granularity key format for data points.
const DateLayout = "2006-01-02"

// DataPoint is the atomic triangulation unit: one source's reported value
// for one indicator on one date. DataPoints are never mutated after
// creation; a correction produces a new DataPoint plus a CorrectionRecord
// linking old to new.
type DataPoint struct {
	Indicator string            `json:"indicator"`          // indicator code, e.g. "fx_rate_usd"
	Value     float64           `json:"value"`              // reported numeric value
	Date      time.Time         `json:"date"`               // observation date (day granularity)
	SourceID  string            `json:"source_id"`          // reporting source
	Regime    string            `json:"regime,omitempty"`   // competing authority tag, e.g. "sanaa" / "aden"
	Metadata  map[string]string `json:"metadata,omitempty"` // free-form provenance
}

// DateKey returns the day-granularity key used for cross-source matching
// and for the (source, indicator, date) storage key.
func (p DataPoint) DateKey() string {
	return p.Date.Format(DateLayout)
}

// CorrectionRecord links an original data point to its human-corrected
// replacement. The correction log is append-only and is the sole input to
// the accuracy coaching loop.
type CorrectionRecord struct {
	ID        string    `json:"id"`
	Original  DataPoint `json:"original"`
	Corrected DataPoint `json:"corrected"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}
