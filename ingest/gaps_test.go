package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	sanadtest "github.com/sanadlabs/sanad/internal/testing"
	"github.com/sanadlabs/sanad/source"
	"github.com/sanadlabs/sanad/storage"
	"github.com/sanadlabs/sanad/types"
)

func TestFindGapsReportsMissingDates(t *testing.T) {
	points := storage.NewDataPointStore(sanadtest.CreateTestDB(t))

	cfg := source.Config{
		SourceID:        "cby_aden",
		UpdateFrequency: "daily",
		Coverage: source.Coverage{
			Start: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
		},
	}

	// Days 1, 2 and 4 present; 3 and 5 missing.
	var stored []types.DataPoint
	for _, d := range []int{1, 2, 4} {
		stored = append(stored, types.DataPoint{
			Indicator: "fx_rate_usd",
			SourceID:  "cby_aden",
			Date:      time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC),
			Value:     1600,
		})
	}
	_, err := points.Upsert(stored)
	require.NoError(t, err)

	now := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	report, err := FindGaps(cfg, "fx_rate_usd", points, now, zap.NewNop().Sugar())
	require.NoError(t, err)

	assert.Equal(t, 5, report.Expected)
	assert.Equal(t, 3, report.Present)
	assert.Equal(t, []string{"2025-03-03", "2025-03-05"}, report.Missing)
}

func TestFindGapsCapsAtNow(t *testing.T) {
	points := storage.NewDataPointStore(sanadtest.CreateTestDB(t))

	cfg := source.Config{
		SourceID:        "cby_aden",
		UpdateFrequency: "daily",
		Coverage: source.Coverage{
			Start: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		},
	}

	now := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	report, err := FindGaps(cfg, "fx_rate_usd", points, now, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Expected) // Mar 1-3 only
	assert.Len(t, report.Missing, 3)
}

func TestFindGapsEmptyCoverage(t *testing.T) {
	points := storage.NewDataPointStore(sanadtest.CreateTestDB(t))

	report, err := FindGaps(source.Config{SourceID: "x", UpdateFrequency: "daily"}, "fx_rate_usd", points, time.Now(), zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Expected)
	assert.Empty(t, report.Missing)
}
