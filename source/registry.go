package source

import (
	"context"
	"sort"
	"sync"

	"github.com/sanadlabs/sanad/types"
)

// Connector is one runtime unit bound to a single source Config.
// Implementations are stateless between invocations: each Ingest call is an
// independent unit of work producing one IngestionResult, and must capture
// every failure mode into the result rather than returning an error.
type Connector interface {
	// Config returns the immutable source configuration this connector wraps.
	Config() Config
	// Ingest fetches, snapshots, normalizes, and persists one batch.
	Ingest(ctx context.Context) types.IngestionResult
}

// Registry holds the validated source configurations and their connectors.
// Duplicate registration overwrites (last write wins): catalogs are
// periodically regenerated wholesale, so a re-registration is a refresh,
// not an error.
type Registry struct {
	mu         sync.RWMutex
	connectors map[string]Connector
}

// Stats summarizes the registered sources.
type Stats struct {
	TotalSources int            `json:"total_sources"`
	ByTier       map[int]int    `json:"by_tier"`
	ByFrequency  map[string]int `json:"by_frequency"`
}

// NewRegistry creates an empty source registry.
func NewRegistry() *Registry {
	return &Registry{
		connectors: make(map[string]Connector),
	}
}

// Register adds a connector to the registry, replacing any existing
// connector for the same source id.
func (r *Registry) Register(conn Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[conn.Config().SourceID] = conn
}

// Connector returns the connector for a source id.
func (r *Registry) Connector(sourceID string) (Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.connectors[sourceID]
	return conn, ok
}

// All returns every registered connector, ordered by source id for
// deterministic iteration.
func (r *Registry) All() []Connector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.connectors))
	for id := range r.connectors {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	conns := make([]Connector, 0, len(ids))
	for _, id := range ids {
		conns = append(conns, r.connectors[id])
	}
	return conns
}

// Credibility returns the credibility record for a source id.
func (r *Registry) Credibility(sourceID string) (Credibility, bool) {
	conn, ok := r.Connector(sourceID)
	if !ok {
		return Credibility{}, false
	}
	return CredibilityFromConfig(conn.Config()), true
}

// Stats returns rollup counts over the registered sources.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		TotalSources: len(r.connectors),
		ByTier:       make(map[int]int),
		ByFrequency:  make(map[string]int),
	}
	for _, conn := range r.connectors {
		cfg := conn.Config()
		stats.ByTier[cfg.Tier]++
		stats.ByFrequency[cfg.UpdateFrequency]++
	}
	return stats
}
