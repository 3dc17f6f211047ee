package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sanadtest "github.com/sanadlabs/sanad/internal/testing"
	"github.com/sanadlabs/sanad/source"
	"github.com/sanadlabs/sanad/storage"
	"github.com/sanadlabs/sanad/types"
)

func TestStatusReportRendersSections(t *testing.T) {
	database := sanadtest.CreateTestDB(t)
	registry := source.NewRegistry()
	covered := fakeSource("cby_aden", "daily", types.RunSuccess)
	covered.cfg.Coverage = source.Coverage{
		Start: time.Date(2016, 9, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	registry.Register(covered)
	registry.Register(fakeSource("exchange_shops_aden", "weekly", types.RunSuccess))
	schedules := NewScheduleStore(database)
	runs := storage.NewRunStore(database)

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, schedules.Sync("cby_aden", "daily", now.Add(-time.Hour)))

	started := now.Add(-30 * time.Minute)
	require.NoError(t, runs.Record(types.IngestionResult{
		RunID:            "RUN_1",
		SourceID:         "cby_aden",
		Status:           types.RunSuccess,
		RecordsProcessed: 12,
		RecordsLoaded:    12,
		StartedAt:        started,
		CompletedAt:      started.Add(2 * time.Second),
	}))

	report, err := StatusReport(registry, schedules, runs, "sanad.db", now)
	require.NoError(t, err)

	assert.Contains(t, report, "SANAD INGESTION STATUS")
	assert.Contains(t, report, "Sources registered:  2")
	assert.Contains(t, report, "Records ingested:    12")
	assert.Contains(t, report, "cby_aden")
	assert.Contains(t, report, "OVERDUE")
	assert.Contains(t, report, "PROCESS")

	// Fixed metadata footer: storage backend, cadence policy, coverage.
	assert.Contains(t, report, "METADATA")
	assert.Contains(t, report, "sqlite sanad.db")
	assert.Contains(t, report, "Cadence policy:")
	assert.Contains(t, report, "2016-09-01 .. 2030-01-01")
	assert.Contains(t, report, "undeclared") // sources without a declared range say so
}
