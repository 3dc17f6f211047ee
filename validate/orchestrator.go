package validate

import (
	"encoding/json"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sanadlabs/sanad/storage"
	"github.com/sanadlabs/sanad/types"
)

// Options selects the optional passes of a comprehensive validation run.
type Options struct {
	// DetectAnomalies runs the batch-level anomaly scan per source series.
	DetectAnomalies bool
	// CheckRegimes runs the cross-regime spread analysis when the batch
	// carries points from two regimes.
	CheckRegimes bool
	// Persist writes each point verdict to the validation results store.
	Persist bool
}

// PointVerdict pairs a data point with its validation result.
type PointVerdict struct {
	Point  types.DataPoint `json:"point"`
	Result Result          `json:"result"`
}

// ComprehensiveReport is the outcome of one full validation pass.
type ComprehensiveReport struct {
	OverallValid      bool                     `json:"overall_valid"`
	OverallConfidence float64                  `json:"overall_confidence"`
	Points            []PointVerdict           `json:"points"`
	Anomalies         map[string]AnomalyReport `json:"anomalies,omitempty"` // keyed by source id
	Regime            *ConsistencyVerdict      `json:"regime,omitempty"`
	Coaching          CoachingReport           `json:"coaching"`
	GeneratedAt       time.Time                `json:"generated_at"`
}

// Orchestrator composes the five agents into one comprehensive pass.
type Orchestrator struct {
	data        *DataValidationAgent
	verifier    *SourceVerificationAgent
	consistency *ConsistencyAgent
	anomalies   *AnomalyDetectionAgent
	coach       *AccuracyCoachAgent
	points      *storage.DataPointStore
	results     *storage.ValidationStore
	log         *zap.SugaredLogger
}

// NewOrchestrator wires the orchestrator from its agents and stores.
func NewOrchestrator(
	data *DataValidationAgent,
	verifier *SourceVerificationAgent,
	consistency *ConsistencyAgent,
	anomalies *AnomalyDetectionAgent,
	coach *AccuracyCoachAgent,
	points *storage.DataPointStore,
	results *storage.ValidationStore,
	log *zap.SugaredLogger,
) *Orchestrator {
	return &Orchestrator{
		data:        data,
		verifier:    verifier,
		consistency: consistency,
		anomalies:   anomalies,
		coach:       coach,
		points:      points,
		results:     results,
		log:         log.Named("validate"),
	}
}

// Verifier exposes the source verification agent for weighted-value
// queries outside a full pass.
func (o *Orchestrator) Verifier() *SourceVerificationAgent { return o.verifier }

// Coach exposes the accuracy coach for recording corrections.
func (o *Orchestrator) Coach() *AccuracyCoachAgent { return o.coach }

// RunComprehensiveValidation validates every point in the batch against
// its same-indicator, same-date siblings, optionally scans each source
// series for anomalies and the regime pair for spread, and always
// appends the current coaching report. Overall validity is the AND of
// the point verdicts; overall confidence is their mean.
func (o *Orchestrator) RunComprehensiveValidation(batch []types.DataPoint, opts Options) (ComprehensiveReport, error) {
	report := ComprehensiveReport{
		OverallValid: true,
		GeneratedAt:  time.Now().UTC(),
	}

	var confidenceSum float64
	for _, point := range batch {
		result := o.data.Validate(point, batchSiblings(batch, point), o.sourceHistory(point))
		report.Points = append(report.Points, PointVerdict{Point: point, Result: result})
		report.OverallValid = report.OverallValid && result.Valid
		confidenceSum += result.Confidence

		if opts.Persist {
			if err := o.persist(point, result); err != nil {
				return report, err
			}
		}
	}
	if len(report.Points) > 0 {
		report.OverallConfidence = confidenceSum / float64(len(report.Points))
	}

	if opts.DetectAnomalies {
		report.Anomalies = o.scanSeries(batch)
	}
	if opts.CheckRegimes {
		report.Regime = o.compareRegimes(batch)
	}
	report.Coaching = o.coach.GenerateCoachingReport()

	o.log.Infow("comprehensive validation complete",
		"points", len(report.Points),
		"overall_valid", report.OverallValid,
		"overall_confidence", report.OverallConfidence)
	return report, nil
}

// batchSiblings returns the other sources' values for the same indicator
// and date within the batch.
func batchSiblings(batch []types.DataPoint, point types.DataPoint) []types.DataPoint {
	var siblings []types.DataPoint
	for _, other := range batch {
		if other.SourceID != point.SourceID &&
			other.Indicator == point.Indicator &&
			other.Date.Equal(point.Date) {
			siblings = append(siblings, other)
		}
	}
	return siblings
}

// sourceHistory fetches the point's own source series strictly before the
// point's date. Storage errors degrade to an empty history: a missing
// temporal check is better than failing the whole pass.
func (o *Orchestrator) sourceHistory(point types.DataPoint) []types.DataPoint {
	all, err := o.points.ListByIndicator(point.Indicator)
	if err != nil {
		o.log.Warnw("history fetch failed, skipping temporal check",
			"indicator", point.Indicator, "source_id", point.SourceID, "error", err)
		return nil
	}
	var history []types.DataPoint
	for _, prior := range all {
		if prior.SourceID == point.SourceID && prior.Date.Before(point.Date) {
			history = append(history, prior)
		}
	}
	return history
}

// scanSeries runs the anomaly agent over each source's series in the
// batch, keyed by source id.
func (o *Orchestrator) scanSeries(batch []types.DataPoint) map[string]AnomalyReport {
	bySource := make(map[string][]types.DataPoint)
	for _, point := range batch {
		bySource[point.SourceID] = append(bySource[point.SourceID], point)
	}

	reports := make(map[string]AnomalyReport, len(bySource))
	for sourceID, series := range bySource {
		reports[sourceID] = o.anomalies.DetectAnomalies(series)
	}
	return reports
}

// compareRegimes runs the consistency agent when the batch carries
// exactly two regime tags, the lexically first as series A.
func (o *Orchestrator) compareRegimes(batch []types.DataPoint) *ConsistencyVerdict {
	byRegime := make(map[string][]types.DataPoint)
	for _, point := range batch {
		if point.Regime != "" {
			byRegime[point.Regime] = append(byRegime[point.Regime], point)
		}
	}
	if len(byRegime) != 2 {
		return nil
	}

	regimes := make([]string, 0, 2)
	for regime := range byRegime {
		regimes = append(regimes, regime)
	}
	sort.Strings(regimes)

	verdict := o.consistency.CheckRegimeConsistency(byRegime[regimes[0]], byRegime[regimes[1]])
	return &verdict
}

// persist writes one point verdict to the results store.
func (o *Orchestrator) persist(point types.DataPoint, result Result) error {
	issues, err := json.Marshal(result.Issues)
	if err != nil {
		return err
	}
	recs, err := json.Marshal(result.Recommendations)
	if err != nil {
		return err
	}
	sources, err := json.Marshal(result.TriangulationSources)
	if err != nil {
		return err
	}
	return o.results.Save(&storage.ValidationRecord{
		Indicator:            point.Indicator,
		SourceID:             point.SourceID,
		Date:                 point.DateKey(),
		Valid:                result.Valid,
		Confidence:           result.Confidence,
		IssuesJSON:           string(issues),
		RecommendationsJSON:  string(recs),
		TriangulationSources: string(sources),
	})
}
