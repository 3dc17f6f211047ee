package validate

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sanadlabs/sanad/storage"
	"github.com/sanadlabs/sanad/types"
)

// Accuracy trend labels.
const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
)

const (
	maxRecommendations = 5
	maxCommonIssues    = 3
	maxTopIssues       = 5
	correctionPenalty  = 5.0
)

// AccuracyScore summarizes how often a source's figures for an indicator
// have needed human correction.
type AccuracyScore struct {
	Score            float64  `json:"score"`
	TotalCorrections int      `json:"total_corrections"`
	CommonIssues     []string `json:"common_issues,omitempty"`
}

// IssueFrequency is one correction reason with its occurrence count.
type IssueFrequency struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// CoachingReport is the periodic rollup over the whole correction history.
type CoachingReport struct {
	TotalCorrections int              `json:"total_corrections"`
	AccuracyTrend    string           `json:"accuracy_trend"`
	TopIssues        []IssueFrequency `json:"top_issues,omitempty"`
	Recommendations  []string         `json:"recommendations,omitempty"`
	GeneratedAt      time.Time        `json:"generated_at"`
}

// AccuracyCoachAgent learns from human corrections. The correction log is
// durable; the in-memory index is a cache rebuilt from the store at
// construction so restarts lose nothing.
type AccuracyCoachAgent struct {
	store *storage.CorrectionStore
	log   *zap.SugaredLogger

	mu        sync.RWMutex
	history   []types.CorrectionRecord
	byPairing map[string][]string // indicator_source -> reasons, oldest first
}

// NewAccuracyCoachAgent builds the agent and warms its cache from the
// durable correction log.
func NewAccuracyCoachAgent(store *storage.CorrectionStore, log *zap.SugaredLogger) (*AccuracyCoachAgent, error) {
	agent := &AccuracyCoachAgent{
		store:     store,
		log:       log.Named("coach"),
		byPairing: make(map[string][]string),
	}

	records, err := store.All()
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		agent.index(rec)
	}
	if len(records) > 0 {
		agent.log.Infow("correction history loaded", "corrections", len(records))
	}
	return agent, nil
}

func pairingKey(indicator, sourceID string) string {
	return indicator + "_" + sourceID
}

func (a *AccuracyCoachAgent) index(rec types.CorrectionRecord) {
	a.history = append(a.history, rec)
	key := pairingKey(rec.Original.Indicator, rec.Original.SourceID)
	a.byPairing[key] = append(a.byPairing[key], rec.Reason)
}

// RecordCorrection appends a human correction to the durable log and the
// cache.
func (a *AccuracyCoachAgent) RecordCorrection(original, corrected types.DataPoint, reason string) (*types.CorrectionRecord, error) {
	rec := &types.CorrectionRecord{
		Original:  original,
		Corrected: corrected,
		Reason:    reason,
	}
	if err := a.store.Append(rec); err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.index(*rec)
	a.mu.Unlock()

	a.log.Infow("correction recorded",
		"indicator", original.Indicator,
		"source_id", original.SourceID,
		"original", original.Value,
		"corrected", corrected.Value)
	return rec, nil
}

// GetRecommendations returns up to five deduplicated historical
// correction reasons for an indicator/source pairing, oldest first.
func (a *AccuracyCoachAgent) GetRecommendations(indicator, sourceID string) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	seen := make(map[string]bool)
	var recs []string
	for _, reason := range a.byPairing[pairingKey(indicator, sourceID)] {
		if seen[reason] {
			continue
		}
		seen[reason] = true
		recs = append(recs, reason)
		if len(recs) == maxRecommendations {
			break
		}
	}
	return recs
}

// GetAccuracyScore scores an indicator/source pairing: 100 minus 5 per
// correction, floored at zero, with its three most frequent reasons.
func (a *AccuracyCoachAgent) GetAccuracyScore(indicator, sourceID string) AccuracyScore {
	a.mu.RLock()
	defer a.mu.RUnlock()

	reasons := a.byPairing[pairingKey(indicator, sourceID)]
	score := 100 - correctionPenalty*float64(len(reasons))
	if score < 0 {
		score = 0
	}

	top := topReasons(reasons, maxCommonIssues)
	common := make([]string, len(top))
	for i, freq := range top {
		common[i] = freq.Reason
	}
	return AccuracyScore{
		Score:            score,
		TotalCorrections: len(reasons),
		CommonIssues:     common,
	}
}

// GenerateCoachingReport rolls up the whole correction history: overall
// trend, the five most frequent issues, and remediation guidance when the
// trend is declining.
func (a *AccuracyCoachAgent) GenerateCoachingReport() CoachingReport {
	a.mu.RLock()
	defer a.mu.RUnlock()

	report := CoachingReport{
		TotalCorrections: len(a.history),
		AccuracyTrend:    a.trend(),
		GeneratedAt:      time.Now().UTC(),
	}

	reasons := make([]string, len(a.history))
	for i, rec := range a.history {
		reasons[i] = rec.Reason
	}
	report.TopIssues = topReasons(reasons, maxTopIssues)

	if report.AccuracyTrend == TrendDeclining {
		report.Recommendations = []string{
			"review ingestion normalization rules for the most-corrected indicators",
			"re-verify the credibility records of the most-corrected sources",
			"tighten plausibility ranges where corrections cluster",
		}
		if len(report.TopIssues) > 0 {
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("prioritize the leading issue: %s", report.TopIssues[0].Reason))
		}
	}
	return report
}

// trend compares correction volume in the first half of the history's
// time window against the second half. Declining means corrections are
// accelerating.
func (a *AccuracyCoachAgent) trend() string {
	if len(a.history) < 4 {
		return TrendStable
	}

	sorted := make([]types.CorrectionRecord, len(a.history))
	copy(sorted, a.history)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	start := sorted[0].Timestamp
	end := sorted[len(sorted)-1].Timestamp
	if !end.After(start) {
		return TrendStable
	}
	midpoint := start.Add(end.Sub(start) / 2)

	var firstHalf, secondHalf int
	for _, rec := range sorted {
		if rec.Timestamp.After(midpoint) {
			secondHalf++
		} else {
			firstHalf++
		}
	}
	if firstHalf == 0 {
		return TrendDeclining
	}

	ratio := float64(secondHalf) / float64(firstHalf)
	switch {
	case ratio > 1.2:
		return TrendDeclining
	case ratio < 0.8:
		return TrendImproving
	default:
		return TrendStable
	}
}

// topReasons counts reasons and returns the n most frequent, ties broken
// alphabetically for determinism.
func topReasons(reasons []string, n int) []IssueFrequency {
	counts := make(map[string]int)
	for _, reason := range reasons {
		counts[reason]++
	}

	freqs := make([]IssueFrequency, 0, len(counts))
	for reason, count := range counts {
		freqs = append(freqs, IssueFrequency{Reason: reason, Count: count})
	}
	sort.Slice(freqs, func(i, j int) bool {
		if freqs[i].Count != freqs[j].Count {
			return freqs[i].Count > freqs[j].Count
		}
		return freqs[i].Reason < freqs[j].Reason
	})

	if len(freqs) > n {
		freqs = freqs[:n]
	}
	return freqs
}
