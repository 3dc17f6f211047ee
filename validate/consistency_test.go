package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sanadlabs/sanad/types"
)

func newConsistencyAgent() *ConsistencyAgent {
	return NewConsistencyAgent(300, zap.NewNop().Sugar())
}

func TestExcessiveSpreadFlagged(t *testing.T) {
	agent := newConsistencyAgent()

	// (1600 - 350) / 350 = 357%
	verdict := agent.CheckRegimeConsistency(
		[]types.DataPoint{fxPoint("cby_aden", 1, 1600)},
		[]types.DataPoint{fxPoint("cby_sanaa", 1, 350)},
	)
	assert.False(t, verdict.Consistent)
	require.Len(t, verdict.Issues, 1)
	assert.Equal(t, IssueExcessiveSpread, verdict.Issues[0].Type)
	assert.Equal(t, SeverityHigh, verdict.Issues[0].Severity)
	assert.Equal(t, 1, verdict.Spread.MatchedPairs)
	assert.InDelta(t, 357.1, verdict.Spread.MaxSpread, 0.1)
}

func TestModerateSpreadConsistent(t *testing.T) {
	agent := newConsistencyAgent()

	// The dual-rate reality: Aden trades around 3x Sana'a, under the 300% bar.
	verdict := agent.CheckRegimeConsistency(
		[]types.DataPoint{fxPoint("cby_aden", 1, 1600), fxPoint("cby_aden", 2, 1620)},
		[]types.DataPoint{fxPoint("cby_sanaa", 1, 530), fxPoint("cby_sanaa", 2, 533)},
	)
	assert.True(t, verdict.Consistent)
	assert.Empty(t, verdict.Issues)
	assert.Equal(t, 2, verdict.Spread.MatchedPairs)
	assert.InDelta(t, 202.9, verdict.Spread.AverageSpread, 0.5)
}

func TestUnmatchedDatesIgnored(t *testing.T) {
	agent := newConsistencyAgent()

	verdict := agent.CheckRegimeConsistency(
		[]types.DataPoint{fxPoint("cby_aden", 1, 1600), fxPoint("cby_aden", 2, 1620)},
		[]types.DataPoint{fxPoint("cby_sanaa", 2, 533), fxPoint("cby_sanaa", 3, 534)},
	)
	assert.Equal(t, 1, verdict.Spread.MatchedPairs)
}

func TestEmptyOverlap(t *testing.T) {
	agent := newConsistencyAgent()

	verdict := agent.CheckRegimeConsistency(
		[]types.DataPoint{fxPoint("cby_aden", 1, 1600)},
		[]types.DataPoint{fxPoint("cby_sanaa", 2, 533)},
	)
	assert.True(t, verdict.Consistent)
	assert.Equal(t, 0, verdict.Spread.MatchedPairs)
	assert.Equal(t, TrendStable, verdict.Spread.Trend)
}

func TestSpreadTrend(t *testing.T) {
	tests := []struct {
		name    string
		spreads []float64
		want    string
	}{
		{"widening", []float64{10, 10, 30, 30}, TrendWidening},
		{"narrowing", []float64{30, 30, 10, 10}, TrendNarrowing},
		{"stable", []float64{20, 20, 21, 21}, TrendStable},
		{"widening from zero", []float64{0, 0, 5, 5}, TrendWidening},
		{"single pair", []float64{40}, TrendStable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, spreadTrend(tc.spreads))
		})
	}
}
