package validate

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanadlabs/sanad/source"
	"github.com/sanadlabs/sanad/types"
)

// Verification is the credibility verdict for one source.
type Verification struct {
	Credibility source.Credibility `json:"credibility"`
	Verified    bool               `json:"verified"`
	Warnings    []string           `json:"warnings,omitempty"`
}

// WeightedValue is the tier-weighted consensus over a set of points.
type WeightedValue struct {
	Value       float64  `json:"value"`
	Confidence  float64  `json:"confidence"`
	SourcesUsed []string `json:"sources_used"`
}

// SourceVerificationAgent judges sources rather than values: is this
// source's credibility record current, and how much should its reports
// count when merging conflicting values.
type SourceVerificationAgent struct {
	registry       *source.Registry
	staleThreshold time.Duration
	log            *zap.SugaredLogger
}

// NewSourceVerificationAgent builds the agent. staleDays is how old a
// credibility verification may be before it is flagged (typically 30).
func NewSourceVerificationAgent(registry *source.Registry, staleDays int, log *zap.SugaredLogger) *SourceVerificationAgent {
	return &SourceVerificationAgent{
		registry:       registry,
		staleThreshold: time.Duration(staleDays) * 24 * time.Hour,
		log:            log.Named("verify"),
	}
}

// VerifySource checks a source's credibility record. Unknown sources come
// back unverified; stale verification and every known bias surface as
// warnings without failing verification.
func (a *SourceVerificationAgent) VerifySource(sourceID string) Verification {
	cred, ok := a.registry.Credibility(sourceID)
	if !ok {
		return Verification{
			Verified: false,
			Warnings: []string{fmt.Sprintf("source %s is not registered", sourceID)},
		}
	}

	verification := Verification{Credibility: cred, Verified: true}
	if cred.LastVerified.IsZero() || time.Since(cred.LastVerified) > a.staleThreshold {
		verification.Warnings = append(verification.Warnings,
			fmt.Sprintf("credibility verification for %s is older than %d days", sourceID, int(a.staleThreshold.Hours()/24)))
	}
	for _, bias := range cred.KnownBiases {
		verification.Warnings = append(verification.Warnings,
			fmt.Sprintf("known bias: %s", bias))
	}
	return verification
}

// CalculateWeightedValue merges conflicting reports of the same quantity
// into one tier-weighted mean. Sources the registry does not know get the
// unverified-tier weight rather than being dropped; a single point round-
// trips to its own value.
func (a *SourceVerificationAgent) CalculateWeightedValue(points []types.DataPoint) WeightedValue {
	if len(points) == 0 {
		return WeightedValue{}
	}

	var weightedSum, totalWeight float64
	sources := make([]string, 0, len(points))
	for _, point := range points {
		weight := source.TierWeight(0) // unknown source default
		if cred, ok := a.registry.Credibility(point.SourceID); ok {
			weight = cred.Weight()
		}
		weightedSum += point.Value * weight
		totalWeight += weight
		sources = append(sources, point.SourceID)
	}

	confidence := totalWeight / float64(len(points)) * 100
	if confidence > 100 {
		confidence = 100
	}
	return WeightedValue{
		Value:       weightedSum / totalWeight,
		Confidence:  confidence,
		SourcesUsed: sources,
	}
}
