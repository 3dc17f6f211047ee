package validate

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"github.com/sanadlabs/sanad/types"
)

// Spread trend labels.
const (
	TrendWidening  = "widening"
	TrendNarrowing = "narrowing"
	TrendStable    = "stable"
)

// trendStableBandPct is the half-width of the band around "no change"
// within which the spread trend counts as stable.
const trendStableBandPct = 10.0

// SpreadAnalysis summarizes how far apart two regimes' series sit.
type SpreadAnalysis struct {
	AverageSpread float64 `json:"average_spread"`
	MaxSpread     float64 `json:"max_spread"`
	Trend         string  `json:"trend"`
	MatchedPairs  int     `json:"matched_pairs"`
}

// ConsistencyVerdict is the outcome of a regime comparison.
type ConsistencyVerdict struct {
	Consistent bool           `json:"consistent"`
	Issues     []Issue        `json:"issues,omitempty"`
	Spread     SpreadAnalysis `json:"spread"`
}

// ConsistencyAgent compares the same indicator as reported under two
// competing authorities. A large spread between the Sana'a and Aden
// series is expected for some indicators; an excessive one means a data
// problem rather than economics.
type ConsistencyAgent struct {
	spreadThresholdPct float64
	log                *zap.SugaredLogger
}

// NewConsistencyAgent builds the agent. spreadThresholdPct is the spread
// magnitude percentage above which a matched pair is flagged (typically
// 300).
func NewConsistencyAgent(spreadThresholdPct float64, log *zap.SugaredLogger) *ConsistencyAgent {
	return &ConsistencyAgent{
		spreadThresholdPct: spreadThresholdPct,
		log:                log.Named("consistency"),
	}
}

// CheckRegimeConsistency matches the two series by date and analyzes the
// per-pair spread. Dates present in only one series are ignored.
func (a *ConsistencyAgent) CheckRegimeConsistency(seriesA, seriesB []types.DataPoint) ConsistencyVerdict {
	byDateB := make(map[string]types.DataPoint, len(seriesB))
	for _, point := range seriesB {
		byDateB[point.DateKey()] = point
	}

	type pair struct {
		date   string
		spread float64
	}
	var pairs []pair
	for _, pointA := range seriesA {
		pointB, ok := byDateB[pointA.DateKey()]
		if !ok || pointB.Value == 0 {
			continue
		}
		pairs = append(pairs, pair{
			date:   pointA.DateKey(),
			spread: (pointA.Value - pointB.Value) / pointB.Value * 100,
		})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].date < pairs[j].date })

	verdict := ConsistencyVerdict{Consistent: true, Spread: SpreadAnalysis{Trend: TrendStable, MatchedPairs: len(pairs)}}
	if len(pairs) == 0 {
		return verdict
	}

	spreads := make([]float64, len(pairs))
	for i, p := range pairs {
		spreads[i] = p.spread
		if math.Abs(p.spread) > a.spreadThresholdPct {
			verdict.Consistent = false
			verdict.Issues = append(verdict.Issues, Issue{
				Severity:  SeverityHigh,
				Type:      IssueExcessiveSpread,
				Message:   fmt.Sprintf("regime spread of %.1f%% on %s exceeds %.0f%%", p.spread, p.date, a.spreadThresholdPct),
				MessageAr: fmt.Sprintf("فارق مفرط بين المنطقتين بتاريخ %s", p.date),
				Field:     "value",
			})
		}
	}

	verdict.Spread.AverageSpread, _ = stats.Mean(spreads)
	for _, s := range spreads {
		if math.Abs(s) > math.Abs(verdict.Spread.MaxSpread) {
			verdict.Spread.MaxSpread = s
		}
	}
	verdict.Spread.Trend = spreadTrend(spreads)
	return verdict
}

// spreadTrend compares mean absolute spread in the first half of the
// matched series against the second half. Within the stable band in
// either direction the trend is stable.
func spreadTrend(spreads []float64) string {
	if len(spreads) < 2 {
		return TrendStable
	}
	mid := len(spreads) / 2
	first := make([]float64, mid)
	second := make([]float64, len(spreads)-mid)
	for i, s := range spreads[:mid] {
		first[i] = math.Abs(s)
	}
	for i, s := range spreads[mid:] {
		second[i] = math.Abs(s)
	}
	firstMean, _ := stats.Mean(first)
	secondMean, _ := stats.Mean(second)

	if firstMean == 0 {
		if secondMean == 0 {
			return TrendStable
		}
		return TrendWidening
	}
	changePct := (secondMean - firstMean) / firstMean * 100
	switch {
	case changePct > trendStableBandPct:
		return TrendWidening
	case changePct < -trendStableBandPct:
		return TrendNarrowing
	default:
		return TrendStable
	}
}
