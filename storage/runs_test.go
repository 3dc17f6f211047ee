package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sanadtest "github.com/sanadlabs/sanad/internal/testing"
	"github.com/sanadlabs/sanad/types"
)

func runAt(id, sourceID string, status types.RunStatus, loaded int, startedAt time.Time) types.IngestionResult {
	return types.IngestionResult{
		RunID:            id,
		SourceID:         sourceID,
		Status:           status,
		RecordsProcessed: loaded,
		RecordsLoaded:    loaded,
		Duration:         1500 * time.Millisecond,
		StartedAt:        startedAt,
		CompletedAt:      startedAt.Add(1500 * time.Millisecond),
	}
}

func TestRecordAndList(t *testing.T) {
	store := NewRunStore(sanadtest.CreateTestDB(t))
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, store.Record(runAt("RUN_1", "cby_aden", types.RunSuccess, 30, now.Add(-2*time.Hour))))
	require.NoError(t, store.Record(runAt("RUN_2", "cby_aden", types.RunFailed, 0, now.Add(-1*time.Hour))))
	failed := runAt("RUN_3", "wb_yemen", types.RunFailed, 0, now)
	failed.Errors = []string{"fetch: connection refused"}
	require.NoError(t, store.Record(failed))

	all, err := store.List("", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "RUN_3", all[0].RunID) // newest first
	assert.Equal(t, []string{"fetch: connection refused"}, all[0].Errors)

	adenOnly, err := store.List("cby_aden", 10)
	require.NoError(t, err)
	assert.Len(t, adenOnly, 2)

	latest, err := store.Latest("cby_aden")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "RUN_2", latest.RunID)
}

func TestRollup(t *testing.T) {
	store := NewRunStore(sanadtest.CreateTestDB(t))
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, store.Record(runAt("RUN_1", "cby_aden", types.RunSuccess, 30, now.Add(-2*time.Hour))))
	require.NoError(t, store.Record(runAt("RUN_2", "cby_sanaa", types.RunSuccess, 12, now.Add(-1*time.Hour))))
	require.NoError(t, store.Record(runAt("RUN_3", "wb_yemen", types.RunFailed, 0, now)))

	rollup, err := store.Rollup()
	require.NoError(t, err)
	assert.Equal(t, 3, rollup.TotalRuns)
	assert.Equal(t, 2, rollup.SuccessfulRuns)
	assert.Equal(t, 42, rollup.RecordsIngested)
	assert.InDelta(t, 0.667, rollup.SuccessRate(), 0.001)
	require.NotNil(t, rollup.LastRun)
	assert.Equal(t, now.Format(time.RFC3339), rollup.LastRun.Format(time.RFC3339))
}

func TestRollupEmpty(t *testing.T) {
	store := NewRunStore(sanadtest.CreateTestDB(t))

	rollup, err := store.Rollup()
	require.NoError(t, err)
	assert.Equal(t, 0, rollup.TotalRuns)
	assert.Equal(t, 0.0, rollup.SuccessRate())
	assert.Nil(t, rollup.LastRun)
}

func TestSourceHealth(t *testing.T) {
	store := NewRunStore(sanadtest.CreateTestDB(t))
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, store.Record(runAt("RUN_1", "cby_aden", types.RunSuccess, 30, now.Add(-3*time.Hour))))
	require.NoError(t, store.Record(runAt("RUN_2", "cby_aden", types.RunPartial, 10, now.Add(-2*time.Hour))))
	require.NoError(t, store.Record(runAt("RUN_3", "cby_aden", types.RunFailed, 0, now.Add(-1*time.Hour))))

	health, err := store.SourceHealth("cby_aden", 20)
	require.NoError(t, err)
	assert.Equal(t, 3, health.Runs)
	assert.Equal(t, 2, health.Successes) // PARTIAL delivered rows, counts as success
	assert.Equal(t, 1, health.Failures)
	assert.InDelta(t, 0.667, health.SuccessRate, 0.001)
	assert.Equal(t, "FAILED", health.LastStatus)
}
