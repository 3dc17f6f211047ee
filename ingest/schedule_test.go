package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanadlabs/sanad/errors"
	sanadtest "github.com/sanadlabs/sanad/internal/testing"
)

func TestSyncCreatesAndPreservesSlot(t *testing.T) {
	store := NewScheduleStore(sanadtest.CreateTestDB(t))
	slot := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Sync("cby_aden", "daily", slot))
	sched, err := store.Get("cby_aden")
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, sched.Status)
	assert.Equal(t, slot, sched.NextRunAt)
	assert.Nil(t, sched.LastRunAt)

	// Re-sync with the same cadence keeps the armed slot.
	require.NoError(t, store.Sync("cby_aden", "daily", slot.Add(48*time.Hour)))
	sched, err = store.Get("cby_aden")
	require.NoError(t, err)
	assert.Equal(t, slot, sched.NextRunAt)

	// Cadence change takes the new slot.
	newSlot := slot.Add(time.Hour)
	require.NoError(t, store.Sync("cby_aden", "hourly", newSlot))
	sched, err = store.Get("cby_aden")
	require.NoError(t, err)
	assert.Equal(t, "hourly", sched.Cadence)
	assert.Equal(t, newSlot, sched.NextRunAt)
}

func TestDueExcludesRunningAndFuture(t *testing.T) {
	store := NewScheduleStore(sanadtest.CreateTestDB(t))
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Sync("overdue_a", "daily", now.Add(-2*time.Hour)))
	require.NoError(t, store.Sync("overdue_b", "daily", now.Add(-4*time.Hour)))
	require.NoError(t, store.Sync("future", "daily", now.Add(2*time.Hour)))
	require.NoError(t, store.Sync("running", "daily", now.Add(-time.Hour)))

	claimed, err := store.Claim("running")
	require.NoError(t, err)
	require.True(t, claimed)

	due, err := store.Due(now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	// Longest overdue first
	assert.Equal(t, "overdue_b", due[0].SourceID)
	assert.Equal(t, "overdue_a", due[1].SourceID)
}

func TestClaimIsSingleFlight(t *testing.T) {
	store := NewScheduleStore(sanadtest.CreateTestDB(t))
	require.NoError(t, store.Sync("cby_aden", "daily", time.Now()))

	first, err := store.Claim("cby_aden")
	require.NoError(t, err)
	assert.True(t, first)

	second, err := store.Claim("cby_aden")
	require.NoError(t, err)
	assert.False(t, second)

	// Release reverts to SCHEDULED so a later claim succeeds.
	require.NoError(t, store.Release("cby_aden"))
	third, err := store.Claim("cby_aden")
	require.NoError(t, err)
	assert.True(t, third)
}

func TestReleaseKeepsSlotAndHistory(t *testing.T) {
	store := NewScheduleStore(sanadtest.CreateTestDB(t))
	slot := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Sync("cby_aden", "daily", slot))

	_, err := store.Claim("cby_aden")
	require.NoError(t, err)
	require.NoError(t, store.Release("cby_aden"))

	sched, err := store.Get("cby_aden")
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, sched.Status)
	assert.Equal(t, slot, sched.NextRunAt)
	assert.Nil(t, sched.LastRunAt)
}

func TestCompleteArmsNextSlot(t *testing.T) {
	store := NewScheduleStore(sanadtest.CreateTestDB(t))
	require.NoError(t, store.Sync("cby_aden", "daily", time.Now().UTC()))

	lastRun := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	nextRun := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Complete("cby_aden", StatusCompleted, lastRun, nextRun))

	sched, err := store.Get("cby_aden")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, sched.Status)
	require.NotNil(t, sched.LastRunAt)
	assert.Equal(t, lastRun, *sched.LastRunAt)
	assert.Equal(t, nextRun, sched.NextRunAt)
}

func TestRecoverResetsStuckRunning(t *testing.T) {
	store := NewScheduleStore(sanadtest.CreateTestDB(t))
	require.NoError(t, store.Sync("a", "daily", time.Now()))
	require.NoError(t, store.Sync("b", "daily", time.Now()))

	_, err := store.Claim("a")
	require.NoError(t, err)

	n, err := store.Recover()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	sched, err := store.Get("a")
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, sched.Status)
}

func TestGetMissingSchedule(t *testing.T) {
	store := NewScheduleStore(sanadtest.CreateTestDB(t))
	_, err := store.Get("nope")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}
