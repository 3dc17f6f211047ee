package types

import (
	"time"
)

// RunStatus classifies the outcome of one connector run.
type RunStatus string

const (
	// RunSuccess means every fetched record normalized and persisted.
	RunSuccess RunStatus = "SUCCESS"
	// RunPartial means some records normalized while others failed.
	// A partial run still persists the successful rows; it must never be
	// conflated with total failure.
	RunPartial RunStatus = "PARTIAL"
	// RunFailed means the fetch itself failed or zero records normalized.
	RunFailed RunStatus = "FAILED"
)

// IngestionResult is the immutable record of one connector run.
type IngestionResult struct {
	RunID            string        `json:"run_id"`
	SourceID         string        `json:"source_id"`
	Status           RunStatus     `json:"status"`
	RecordsProcessed int           `json:"records_processed"`
	RecordsLoaded    int           `json:"records_loaded"`
	Duration         time.Duration `json:"duration"`
	Errors           []string      `json:"errors,omitempty"`
	StartedAt        time.Time     `json:"started_at"`
	CompletedAt      time.Time     `json:"completed_at"`
}
