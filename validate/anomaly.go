package validate

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"github.com/sanadlabs/sanad/types"
)

const (
	zScoreOutlier   = 3.0
	zScoreSuspect   = 2.0
	suddenChangePct = 50.0
)

// Anomaly is one suspicious observation in a series.
type Anomaly struct {
	Point    types.DataPoint `json:"point"`
	Severity Severity        `json:"severity"`
	Type     string          `json:"type"`
	Message  string          `json:"message"`
	ZScore   float64         `json:"z_score,omitempty"`
}

// AnomalyReport is the outcome of a series scan.
type AnomalyReport struct {
	Anomalies     []Anomaly `json:"anomalies,omitempty"`
	OverallHealth float64   `json:"overall_health"`
}

// AnomalyDetectionAgent scans a series for statistical outliers and
// sudden consecutive moves.
type AnomalyDetectionAgent struct {
	log *zap.SugaredLogger
}

// NewAnomalyDetectionAgent builds the agent.
func NewAnomalyDetectionAgent(log *zap.SugaredLogger) *AnomalyDetectionAgent {
	return &AnomalyDetectionAgent{log: log.Named("anomaly")}
}

// DetectAnomalies scans a series. Fewer than three points is too little
// signal: the report comes back empty with full health.
func (a *AnomalyDetectionAgent) DetectAnomalies(points []types.DataPoint) AnomalyReport {
	if len(points) < 3 {
		return AnomalyReport{OverallHealth: 100}
	}

	sorted := make([]types.DataPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	values := make([]float64, len(sorted))
	for i, point := range sorted {
		values[i] = point.Value
	}
	mean, _ := stats.Mean(values)
	stddev, _ := stats.StandardDeviation(values) // population stddev

	var anomalies []Anomaly
	if stddev > 0 {
		for _, point := range sorted {
			z := (point.Value - mean) / stddev
			switch {
			case math.Abs(z) > zScoreOutlier:
				anomalies = append(anomalies, Anomaly{
					Point:    point,
					Severity: SeverityHigh,
					Type:     IssueStatOutlier,
					Message:  fmt.Sprintf("value %.2f on %s is %.1f standard deviations from the series mean", point.Value, point.DateKey(), z),
					ZScore:   z,
				})
			case math.Abs(z) > zScoreSuspect:
				anomalies = append(anomalies, Anomaly{
					Point:    point,
					Severity: SeverityMedium,
					Type:     IssuePotentialOutlier,
					Message:  fmt.Sprintf("value %.2f on %s is %.1f standard deviations from the series mean", point.Value, point.DateKey(), z),
					ZScore:   z,
				})
			}
		}
	}

	for i := 1; i < len(sorted); i++ {
		prev, curr := sorted[i-1], sorted[i]
		if prev.Value == 0 {
			continue
		}
		changePct := (curr.Value - prev.Value) / math.Abs(prev.Value) * 100
		if math.Abs(changePct) > suddenChangePct {
			anomalies = append(anomalies, Anomaly{
				Point:    curr,
				Severity: SeverityHigh,
				Type:     IssueSuddenChange,
				Message:  fmt.Sprintf("value moved %.1f%% between %s and %s", changePct, prev.DateKey(), curr.DateKey()),
			})
		}
	}

	return AnomalyReport{
		Anomalies:     anomalies,
		OverallHealth: seriesHealth(anomalies),
	}
}

// seriesHealth scores a series from its anomaly counts: 30 per critical,
// 15 per high, 5 per medium, floored at zero.
func seriesHealth(anomalies []Anomaly) float64 {
	health := 100.0
	for _, anomaly := range anomalies {
		switch anomaly.Severity {
		case SeverityCritical:
			health -= 30
		case SeverityHigh:
			health -= 15
		case SeverityMedium:
			health -= 5
		}
	}
	if health < 0 {
		health = 0
	}
	return health
}
