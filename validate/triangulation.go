package validate

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"github.com/sanadlabs/sanad/storage"
	"github.com/sanadlabs/sanad/types"
)

// temporalChangeFactor flags a period-over-period move larger than this
// multiple of the source's average move.
const temporalChangeFactor = 3.0

// DataValidationAgent triangulates a data point against same-date sibling
// values from other sources, its indicator's plausibility band, and its
// own source history.
type DataValidationAgent struct {
	points               *storage.DataPointStore
	ranges               *Ranges
	varianceThresholdPct float64
	log                  *zap.SugaredLogger
}

// NewDataValidationAgent builds the agent. varianceThresholdPct is the
// coefficient-of-variation percentage above which cross-source
// disagreement fires (typically 20).
func NewDataValidationAgent(points *storage.DataPointStore, ranges *Ranges, varianceThresholdPct float64, log *zap.SugaredLogger) *DataValidationAgent {
	return &DataValidationAgent{
		points:               points,
		ranges:               ranges,
		varianceThresholdPct: varianceThresholdPct,
		log:                  log.Named("triangulate"),
	}
}

// Validate scores one point against its siblings (other sources, same
// indicator and date) and its own source history.
func (a *DataValidationAgent) Validate(point types.DataPoint, siblings []types.DataPoint, history []types.DataPoint) Result {
	var issues []Issue

	issues = append(issues, a.varianceIssues(point, siblings)...)
	issues = append(issues, a.rangeIssues(point)...)
	issues = append(issues, a.temporalIssues(point, history)...)

	sources := triangulationSources(point, siblings)
	return Result{
		Valid:                !hasCritical(issues),
		Confidence:           scoreConfidence(issues, len(sources)-1),
		Issues:               issues,
		Recommendations:      recommendationsFor(issues),
		TriangulationSources: sources,
		Timestamp:            time.Now().UTC(),
	}
}

// ValidateStored fetches the point's siblings and history from storage
// and validates it.
func (a *DataValidationAgent) ValidateStored(point types.DataPoint) (Result, error) {
	sameDate, err := a.points.ListForDate(point.Indicator, point.Date)
	if err != nil {
		return Result{}, err
	}
	siblings := make([]types.DataPoint, 0, len(sameDate))
	for _, sibling := range sameDate {
		if sibling.SourceID != point.SourceID {
			siblings = append(siblings, sibling)
		}
	}

	all, err := a.points.ListByIndicator(point.Indicator)
	if err != nil {
		return Result{}, err
	}
	history := make([]types.DataPoint, 0, len(all))
	for _, prior := range all {
		if prior.SourceID == point.SourceID && prior.Date.Before(point.Date) {
			history = append(history, prior)
		}
	}

	return a.Validate(point, siblings, history), nil
}

// varianceIssues fires when the coefficient of variation across the point
// and its siblings exceeds the threshold.
func (a *DataValidationAgent) varianceIssues(point types.DataPoint, siblings []types.DataPoint) []Issue {
	if len(siblings) == 0 {
		return nil
	}
	values := []float64{point.Value}
	for _, sibling := range siblings {
		values = append(values, sibling.Value)
	}

	mean, err := stats.Mean(values)
	if err != nil || mean == 0 {
		return nil
	}
	stddev, err := stats.StandardDeviation(values)
	if err != nil {
		return nil
	}
	cov := stddev / math.Abs(mean) * 100
	if cov <= a.varianceThresholdPct {
		return nil
	}

	a.log.Debugw("cross-source variance exceeded threshold",
		"indicator", point.Indicator, "date", point.DateKey(), "cov_pct", cov)
	return []Issue{{
		Severity:  SeverityHigh,
		Type:      IssueHighVariance,
		Message:   fmt.Sprintf("sources disagree on %s for %s: coefficient of variation %.1f%% exceeds %.0f%%", point.Indicator, point.DateKey(), cov, a.varianceThresholdPct),
		MessageAr: fmt.Sprintf("تباين مرتفع بين المصادر لمؤشر %s بتاريخ %s", point.Indicator, point.DateKey()),
		Field:     "value",
	}}
}

// rangeIssues fires when the value falls outside the indicator's
// configured plausibility band.
func (a *DataValidationAgent) rangeIssues(point types.DataPoint) []Issue {
	band, ok := a.ranges.Lookup(point.Indicator)
	if !ok {
		return nil
	}
	if point.Value >= band.Min && point.Value <= band.Max {
		return nil
	}
	return []Issue{{
		Severity:  SeverityHigh,
		Type:      IssueOutOfRange,
		Message:   fmt.Sprintf("%s value %.2f outside plausible range [%.2f, %.2f]", point.Indicator, point.Value, band.Min, band.Max),
		MessageAr: fmt.Sprintf("قيمة %s خارج النطاق المعقول", point.Indicator),
		Field:     "value",
	}}
}

// temporalIssues fires when the move from the last known value exceeds
// temporalChangeFactor times the source's average period-over-period move.
func (a *DataValidationAgent) temporalIssues(point types.DataPoint, history []types.DataPoint) []Issue {
	if len(history) < 2 {
		return nil
	}
	sorted := make([]types.DataPoint, len(history))
	copy(sorted, history)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	var totalChange float64
	for i := 1; i < len(sorted); i++ {
		totalChange += math.Abs(sorted[i].Value - sorted[i-1].Value)
	}
	avgChange := totalChange / float64(len(sorted)-1)
	if avgChange == 0 {
		return nil
	}

	last := sorted[len(sorted)-1]
	change := math.Abs(point.Value - last.Value)
	if change <= temporalChangeFactor*avgChange {
		return nil
	}
	return []Issue{{
		Severity:  SeverityMedium,
		Type:      IssueTemporalAnomaly,
		Message:   fmt.Sprintf("%s moved %.2f since %s, %.1fx the source's average move of %.2f", point.Indicator, change, last.DateKey(), change/avgChange, avgChange),
		MessageAr: fmt.Sprintf("تغير غير اعتيادي في %s مقارنة بالسلسلة التاريخية للمصدر", point.Indicator),
		Field:     "value",
	}}
}

// recommendationsFor maps fired issue types to analyst guidance.
func recommendationsFor(issues []Issue) []string {
	seen := make(map[string]bool)
	var recs []string
	add := func(rec string) {
		if !seen[rec] {
			seen[rec] = true
			recs = append(recs, rec)
		}
	}
	for _, issue := range issues {
		switch issue.Type {
		case IssueHighVariance:
			add("investigate source methodology differences")
			add("confirm whether sources report the same market (official vs parallel)")
		case IssueOutOfRange:
			add("verify unit and denomination against the source bulletin")
		case IssueTemporalAnomaly:
			add("check for a revaluation, redenomination, or policy event on this date")
		}
	}
	return recs
}

// triangulationSources lists the distinct sources that contributed to the
// verdict, the point's own source first.
func triangulationSources(point types.DataPoint, siblings []types.DataPoint) []string {
	sources := []string{point.SourceID}
	seen := map[string]bool{point.SourceID: true}
	for _, sibling := range siblings {
		if !seen[sibling.SourceID] {
			seen[sibling.SourceID] = true
			sources = append(sources, sibling.SourceID)
		}
	}
	sort.Strings(sources[1:])
	return sources
}
