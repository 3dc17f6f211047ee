package ingest

import (
	"time"

	"github.com/robfig/cron/v3"

	"go.uber.org/zap"
)

// cadenceAliases map the human-friendly update frequencies used in source
// catalogs to cron expressions. Anything else is parsed as a raw cron
// spec before falling back.
var cadenceAliases = map[string]string{
	"every_15_min": "*/15 * * * *",
	"hourly":       "0 * * * *",
	"daily":        "0 0 * * *",
	"weekly":       "0 0 * * 1",
	"monthly":      "0 0 1 * *",
	"quarterly":    "0 0 1 1,4,7,10 *",
	"annual":       "0 0 1 1 *",
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextRun computes the next fire time for a cadence after the given
// instant. An unrecognized cadence degrades to midnight of the next day
// rather than wedging the source, with a warning so the catalog entry
// gets fixed.
func NextRun(cadence string, after time.Time, log *zap.SugaredLogger) time.Time {
	expr := cadence
	if alias, ok := cadenceAliases[cadence]; ok {
		expr = alias
	}
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		if log != nil {
			log.Warnw("unrecognized cadence, defaulting to next midnight",
				"cadence", cadence, "error", err)
		}
		next := after.AddDate(0, 0, 1)
		return time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, after.Location())
	}
	return schedule.Next(after)
}

// KnownCadence reports whether a cadence string will parse cleanly.
func KnownCadence(cadence string) bool {
	expr := cadence
	if alias, ok := cadenceAliases[cadence]; ok {
		expr = alias
	}
	_, err := cronParser.Parse(expr)
	return err == nil
}
