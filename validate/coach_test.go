package validate

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	sanadtest "github.com/sanadlabs/sanad/internal/testing"
	"github.com/sanadlabs/sanad/storage"
)

func newCoach(t *testing.T) (*AccuracyCoachAgent, *sql.DB) {
	t.Helper()
	database := sanadtest.CreateTestDB(t)
	agent, err := NewAccuracyCoachAgent(storage.NewCorrectionStore(database), zap.NewNop().Sugar())
	require.NoError(t, err)
	return agent, database
}

func recordAt(t *testing.T, agent *AccuracyCoachAgent, reason string, at time.Time) {
	t.Helper()
	original := fxPoint("cby_sanaa", 1, 1600)
	corrected := original
	corrected.Value = 1605
	rec, err := agent.RecordCorrection(original, corrected, reason)
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)
	// Pin the timestamp for trend tests.
	rec.Timestamp = at
	agent.mu.Lock()
	agent.history[len(agent.history)-1].Timestamp = at
	agent.mu.Unlock()
}

func TestAccuracyScoreScenario(t *testing.T) {
	agent, _ := newCoach(t)
	now := time.Now()

	// Six corrections for (fx_rate_usd, cby_sanaa), four sharing a reason.
	for i := 0; i < 4; i++ {
		recordAt(t, agent, "unit mismatch in bulletin", now)
	}
	recordAt(t, agent, "decimal shift", now)
	recordAt(t, agent, "stale quote", now)

	score := agent.GetAccuracyScore("fx_rate_usd", "cby_sanaa")
	assert.Equal(t, 70.0, score.Score) // 100 - 5*6
	assert.Equal(t, 6, score.TotalCorrections)
	require.NotEmpty(t, score.CommonIssues)
	assert.Equal(t, "unit mismatch in bulletin", score.CommonIssues[0])
	assert.Len(t, score.CommonIssues, 3)
}

func TestAccuracyScoreUnknownPairing(t *testing.T) {
	agent, _ := newCoach(t)

	score := agent.GetAccuracyScore("cpi", "wb_yemen")
	assert.Equal(t, 100.0, score.Score)
	assert.Equal(t, 0, score.TotalCorrections)
	assert.Empty(t, score.CommonIssues)
}

func TestRecommendationsDeduplicated(t *testing.T) {
	agent, _ := newCoach(t)
	now := time.Now()

	for i := 0; i < 3; i++ {
		recordAt(t, agent, "unit mismatch", now)
	}
	for i := 0; i < 7; i++ {
		recordAt(t, agent, fmt.Sprintf("distinct reason %d", i), now)
	}

	recs := agent.GetRecommendations("fx_rate_usd", "cby_sanaa")
	assert.Len(t, recs, 5) // capped
	assert.Equal(t, "unit mismatch", recs[0])
}

func TestCorrectionHistorySurvivesRestart(t *testing.T) {
	agent, database := newCoach(t)
	recordAt(t, agent, "unit mismatch", time.Now())
	recordAt(t, agent, "unit mismatch", time.Now())

	// A fresh agent over the same store rebuilds its cache.
	reborn, err := NewAccuracyCoachAgent(storage.NewCorrectionStore(database), zap.NewNop().Sugar())
	require.NoError(t, err)

	score := reborn.GetAccuracyScore("fx_rate_usd", "cby_sanaa")
	assert.Equal(t, 2, score.TotalCorrections)
	assert.Equal(t, 90.0, score.Score)
}

func TestCoachingReportTrend(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	day := func(d int) time.Time { return base.AddDate(0, 0, d) }

	t.Run("declining", func(t *testing.T) {
		agent, _ := newCoach(t)
		recordAt(t, agent, "unit mismatch", day(1))
		recordAt(t, agent, "unit mismatch", day(2))
		recordAt(t, agent, "decimal shift", day(8))
		recordAt(t, agent, "decimal shift", day(9))
		recordAt(t, agent, "decimal shift", day(10))

		report := agent.GenerateCoachingReport()
		assert.Equal(t, TrendDeclining, report.AccuracyTrend)
		assert.Equal(t, 5, report.TotalCorrections)
		assert.NotEmpty(t, report.Recommendations)
		require.NotEmpty(t, report.TopIssues)
		assert.Equal(t, "decimal shift", report.TopIssues[0].Reason)
		assert.Equal(t, 3, report.TopIssues[0].Count)
	})

	t.Run("improving", func(t *testing.T) {
		agent, _ := newCoach(t)
		recordAt(t, agent, "unit mismatch", day(1))
		recordAt(t, agent, "unit mismatch", day(2))
		recordAt(t, agent, "unit mismatch", day(3))
		recordAt(t, agent, "decimal shift", day(10))

		report := agent.GenerateCoachingReport()
		assert.Equal(t, TrendImproving, report.AccuracyTrend)
		assert.Empty(t, report.Recommendations)
	})

	t.Run("too little history is stable", func(t *testing.T) {
		agent, _ := newCoach(t)
		recordAt(t, agent, "unit mismatch", day(1))

		report := agent.GenerateCoachingReport()
		assert.Equal(t, TrendStable, report.AccuracyTrend)
	})
}
