package source

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sanadlabs/sanad/types"
)

// fakeConnector is a minimal Connector for registry tests.
type fakeConnector struct {
	cfg Config
}

func (f fakeConnector) Config() Config { return f.cfg }

func (f fakeConnector) Ingest(ctx context.Context) types.IngestionResult {
	return types.IngestionResult{SourceID: f.cfg.SourceID, Status: types.RunSuccess}
}

func testConfig(id string, tier int, freq string) Config {
	return Config{
		SourceID:         id,
		Name:             id,
		Category:         "central_bank",
		Tier:             tier,
		AccessMethod:     AccessAPI,
		Endpoint:         "https://example.org/" + id,
		UpdateFrequency:  freq,
		Indicators:       []string{"fx_rate_usd"},
		ReliabilityScore: 80,
	}
}

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	r.Register(fakeConnector{cfg: testConfig("cby_sanaa", 1, "daily")})
	r.Register(fakeConnector{cfg: testConfig("cby_aden", 1, "daily")})

	conn, ok := r.Connector("cby_sanaa")
	assert.True(t, ok)
	assert.Equal(t, "cby_sanaa", conn.Config().SourceID)

	_, ok = r.Connector("unknown")
	assert.False(t, ok)
}

func TestDuplicateRegistrationOverwrites(t *testing.T) {
	r := NewRegistry()
	first := testConfig("wb_yemen", 2, "monthly")
	r.Register(fakeConnector{cfg: first})

	replacement := first
	replacement.ReliabilityScore = 95
	r.Register(fakeConnector{cfg: replacement})

	conn, ok := r.Connector("wb_yemen")
	assert.True(t, ok)
	assert.Equal(t, 95.0, conn.Config().ReliabilityScore)
	assert.Equal(t, 1, r.Stats().TotalSources)
}

func TestStats(t *testing.T) {
	r := NewRegistry()
	r.Register(fakeConnector{cfg: testConfig("cby_sanaa", 1, "daily")})
	r.Register(fakeConnector{cfg: testConfig("cby_aden", 1, "daily")})
	r.Register(fakeConnector{cfg: testConfig("exchange_shops", 4, "every_15_min")})

	stats := r.Stats()
	assert.Equal(t, 3, stats.TotalSources)
	assert.Equal(t, 2, stats.ByTier[1])
	assert.Equal(t, 1, stats.ByTier[4])
	assert.Equal(t, 2, stats.ByFrequency["daily"])
}

func TestAllIsDeterministic(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"zz", "aa", "mm"} {
		r.Register(fakeConnector{cfg: testConfig(id, 3, "weekly")})
	}

	conns := r.All()
	ids := make([]string, len(conns))
	for i, c := range conns {
		ids[i] = c.Config().SourceID
	}
	assert.Equal(t, []string{"aa", "mm", "zz"}, ids)
}

func TestCredibilityLookup(t *testing.T) {
	r := NewRegistry()
	cfg := testConfig("cby_sanaa", 1, "daily")
	cfg.LastVerified = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cfg.KnownBiases = []string{"official exchange rate lags parallel market"}
	r.Register(fakeConnector{cfg: cfg})

	cred, ok := r.Credibility("cby_sanaa")
	assert.True(t, ok)
	assert.Equal(t, 1, cred.Tier)
	assert.Equal(t, 1.0, cred.Weight())
	assert.Len(t, cred.KnownBiases, 1)

	_, ok = r.Credibility("missing")
	assert.False(t, ok)
}

func TestTierWeights(t *testing.T) {
	assert.Equal(t, 1.0, TierWeight(TierOfficial))
	assert.Equal(t, 0.5, TierWeight(TierUnverified))
	// Unrecognized tiers fall back to the unverified weight
	assert.Equal(t, 0.5, TierWeight(0))
	assert.Equal(t, 0.5, TierWeight(9))
}
