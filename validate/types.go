// Package validate implements the triangulation engine: five agents that
// cross-check stored data points against their siblings, their source's
// credibility, the rival regime's series, their own history, and the
// correction record, plus an orchestrator that composes them into one
// confidence-scored verdict per point.
package validate

import (
	"time"
)

// Severity classifies how badly an issue undermines a data point.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// severityPenalty is the confidence cost of one issue at each severity.
var severityPenalty = map[Severity]float64{
	SeverityCritical: 30,
	SeverityHigh:     20,
	SeverityMedium:   10,
	SeverityLow:      5,
}

// Issue types emitted by the agents.
const (
	IssueHighVariance     = "high_variance"
	IssueOutOfRange       = "out_of_range"
	IssueTemporalAnomaly  = "temporal_anomaly"
	IssueExcessiveSpread  = "excessive_spread"
	IssueStatOutlier      = "statistical_outlier"
	IssuePotentialOutlier = "potential_outlier"
	IssueSuddenChange     = "sudden_change"
)

// Issue is one problem found with a data point. Messages are bilingual:
// the deployment's analysts work in both English and Arabic.
type Issue struct {
	Severity  Severity `json:"severity"`
	Type      string   `json:"type"`
	Message   string   `json:"message"`
	MessageAr string   `json:"message_ar,omitempty"`
	Field     string   `json:"field,omitempty"`
}

// Result is the verdict for a single data point.
type Result struct {
	Valid                bool      `json:"valid"`
	Confidence           float64   `json:"confidence"`
	Issues               []Issue   `json:"issues,omitempty"`
	Recommendations      []string  `json:"recommendations,omitempty"`
	TriangulationSources []string  `json:"triangulation_sources,omitempty"`
	Timestamp            time.Time `json:"timestamp"`
}

// hasCritical reports whether any issue is critical. Only critical issues
// invalidate a point; high-severity issues dent confidence but the value
// still stands.
func hasCritical(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// scoreConfidence derives the confidence for a set of issues and the
// number of corroborating sources beyond the point's own. Starts at 100,
// pays each issue's penalty, earns back 5 per extra source capped at 15,
// clamps to [0,100].
func scoreConfidence(issues []Issue, extraSources int) float64 {
	confidence := 100.0
	for _, issue := range issues {
		confidence -= severityPenalty[issue.Severity]
	}
	bonus := float64(extraSources) * 5
	if bonus > 15 {
		bonus = 15
	}
	confidence += bonus
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	return confidence
}
