package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sanadlabs/sanad/types"
)

func newAnomalyAgent() *AnomalyDetectionAgent {
	return NewAnomalyDetectionAgent(zap.NewNop().Sugar())
}

func TestTooFewPoints(t *testing.T) {
	agent := newAnomalyAgent()

	report := agent.DetectAnomalies([]types.DataPoint{
		fxPoint("cby_aden", 1, 1600),
		fxPoint("cby_aden", 2, 9999),
	})
	assert.Empty(t, report.Anomalies)
	assert.Equal(t, 100.0, report.OverallHealth)
}

func TestStatisticalOutlier(t *testing.T) {
	agent := newAnomalyAgent()

	// Ten identical values and one spike: the spike sits sqrt(10) ≈ 3.16
	// population standard deviations out.
	var series []types.DataPoint
	for day := 1; day <= 10; day++ {
		series = append(series, fxPoint("cby_aden", day, 1600))
	}
	series = append(series, fxPoint("cby_aden", 11, 3000))

	report := agent.DetectAnomalies(series)

	var outliers, sudden []Anomaly
	for _, anomaly := range report.Anomalies {
		switch anomaly.Type {
		case IssueStatOutlier:
			outliers = append(outliers, anomaly)
		case IssueSuddenChange:
			sudden = append(sudden, anomaly)
		}
	}
	require.Len(t, outliers, 1)
	assert.Equal(t, 3000.0, outliers[0].Point.Value)
	assert.Equal(t, SeverityHigh, outliers[0].Severity)
	assert.Greater(t, outliers[0].ZScore, 3.0)

	// 1600 -> 3000 is an 87.5% jump.
	require.Len(t, sudden, 1)
	assert.Equal(t, "2025-03-11", sudden[0].Point.DateKey())

	// Two high anomalies: 100 - 15 - 15.
	assert.Equal(t, 70.0, report.OverallHealth)
}

func TestCalmSeriesIsHealthy(t *testing.T) {
	agent := newAnomalyAgent()

	report := agent.DetectAnomalies([]types.DataPoint{
		fxPoint("cby_aden", 1, 1600),
		fxPoint("cby_aden", 2, 1610),
		fxPoint("cby_aden", 3, 1620),
		fxPoint("cby_aden", 4, 1630),
	})
	assert.Empty(t, report.Anomalies)
	assert.Equal(t, 100.0, report.OverallHealth)
}

func TestSuddenChangeWithoutOutlier(t *testing.T) {
	agent := newAnomalyAgent()

	// A 60% jump in a short series: big consecutive move, small z-score.
	report := agent.DetectAnomalies([]types.DataPoint{
		fxPoint("cby_aden", 1, 100),
		fxPoint("cby_aden", 2, 100),
		fxPoint("cby_aden", 3, 160),
	})
	require.Len(t, report.Anomalies, 1)
	assert.Equal(t, IssueSuddenChange, report.Anomalies[0].Type)
	assert.Equal(t, 85.0, report.OverallHealth)
}

func TestConstantSeriesNoDivisionByZero(t *testing.T) {
	agent := newAnomalyAgent()

	report := agent.DetectAnomalies([]types.DataPoint{
		fxPoint("cby_aden", 1, 1600),
		fxPoint("cby_aden", 2, 1600),
		fxPoint("cby_aden", 3, 1600),
	})
	assert.Empty(t, report.Anomalies)
	assert.Equal(t, 100.0, report.OverallHealth)
}
