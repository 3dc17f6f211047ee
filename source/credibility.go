package source

import (
	"time"
)

// Credibility is the trust profile used to weight a source's reports
// during averaging and to flag stale verification.
type Credibility struct {
	SourceID         string    `json:"source_id"`
	Tier             int       `json:"tier"`
	ReliabilityScore float64   `json:"reliability_score"`
	LastVerified     time.Time `json:"last_verified"`
	KnownBiases      []string  `json:"known_biases,omitempty"`
}

// tierWeights maps trust tiers to averaging weights. Unrecognized tiers
// fall back to the unverified weight.
var tierWeights = map[int]float64{
	TierOfficial:      1.0,
	TierInstitutional: 0.85,
	TierSecondary:     0.7,
	TierUnverified:    0.5,
}

// TierWeight returns the averaging weight for a trust tier.
func TierWeight(tier int) float64 {
	if w, ok := tierWeights[tier]; ok {
		return w
	}
	return tierWeights[TierUnverified]
}

// Weight returns the averaging weight for this credibility record.
func (c Credibility) Weight() float64 {
	return TierWeight(c.Tier)
}

// CredibilityFromConfig derives the credibility record from a source
// configuration. Re-verification updates the catalog, not this value.
func CredibilityFromConfig(cfg Config) Credibility {
	return Credibility{
		SourceID:         cfg.SourceID,
		Tier:             cfg.Tier,
		ReliabilityScore: cfg.ReliabilityScore,
		LastVerified:     cfg.LastVerified,
		KnownBiases:      cfg.KnownBiases,
	}
}
