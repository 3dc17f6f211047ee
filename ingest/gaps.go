package ingest

import (
	"time"

	"go.uber.org/zap"

	"github.com/sanadlabs/sanad/source"
	"github.com/sanadlabs/sanad/storage"
	"github.com/sanadlabs/sanad/types"
)

// maxExpectedSlots bounds the gap walk so a mis-declared coverage window
// (say, every_15_min since 2010) cannot spin forever.
const maxExpectedSlots = 20000

// GapReport lists the observation dates a source should have published
// for an indicator but that are absent from storage.
type GapReport struct {
	SourceID  string   `json:"source_id"`
	Indicator string   `json:"indicator"`
	Expected  int      `json:"expected"`
	Present   int      `json:"present"`
	Missing   []string `json:"missing,omitempty"`
}

// FindGaps walks the source's cadence across its declared coverage window
// and diffs the expected observation dates against what is stored. The
// walk stops at the coverage end or now, whichever is earlier.
func FindGaps(cfg source.Config, indicator string, points *storage.DataPointStore, now time.Time, log *zap.SugaredLogger) (GapReport, error) {
	report := GapReport{SourceID: cfg.SourceID, Indicator: indicator}

	end := now
	if !cfg.Coverage.End.IsZero() && cfg.Coverage.End.Before(end) {
		end = cfg.Coverage.End
	}
	if cfg.Coverage.Start.IsZero() || !cfg.Coverage.Start.Before(end) {
		return report, nil
	}

	present, err := points.Dates(cfg.SourceID, indicator)
	if err != nil {
		return report, err
	}

	// Dedup at day granularity: sub-daily cadences publish many slots per
	// observation date.
	seen := make(map[string]bool)
	cursor := cfg.Coverage.Start
	for i := 0; i < maxExpectedSlots && !cursor.After(end); i++ {
		key := cursor.Format(types.DateLayout)
		if !seen[key] {
			seen[key] = true
			report.Expected++
			if present[key] {
				report.Present++
			} else {
				report.Missing = append(report.Missing, key)
			}
		}
		next := NextRun(cfg.UpdateFrequency, cursor, log)
		if !next.After(cursor) {
			break
		}
		cursor = next
	}
	return report, nil
}
