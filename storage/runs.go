package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sanadlabs/sanad/errors"
	"github.com/sanadlabs/sanad/types"
)

// RunStore persists the immutable history of connector runs.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a run store.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// Rollup aggregates run history across all sources.
type Rollup struct {
	TotalRuns       int        `json:"total_runs"`
	SuccessfulRuns  int        `json:"successful_runs"`
	RecordsIngested int        `json:"records_ingested"`
	LastRun         *time.Time `json:"last_run,omitempty"`
}

// SuccessRate returns successfulRuns/totalRuns, or 0 with no history.
func (r Rollup) SuccessRate() float64 {
	if r.TotalRuns == 0 {
		return 0
	}
	return float64(r.SuccessfulRuns) / float64(r.TotalRuns)
}

// Health summarizes one source's recent run outcomes.
type Health struct {
	SourceID    string     `json:"source_id"`
	Runs        int        `json:"runs"`
	Successes   int        `json:"successes"`
	Failures    int        `json:"failures"`
	SuccessRate float64    `json:"success_rate"`
	LastRun     *time.Time `json:"last_run,omitempty"`
	LastStatus  string     `json:"last_status,omitempty"`
}

// Record persists one completed run.
func (s *RunStore) Record(res types.IngestionResult) error {
	var errorsJSON interface{}
	if len(res.Errors) > 0 {
		encoded, err := json.Marshal(res.Errors)
		if err != nil {
			return errors.Wrap(err, "encode run errors")
		}
		errorsJSON = string(encoded)
	}

	var completedAt interface{}
	if !res.CompletedAt.IsZero() {
		completedAt = res.CompletedAt.UTC().Format(time.RFC3339)
	}

	_, err := s.db.Exec(`
		INSERT INTO ingestion_runs (
			id, source_id, status, records_processed, records_loaded,
			duration_ms, errors, started_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		res.RunID,
		res.SourceID,
		string(res.Status),
		res.RecordsProcessed,
		res.RecordsLoaded,
		res.Duration.Milliseconds(),
		errorsJSON,
		res.StartedAt.UTC().Format(time.RFC3339),
		completedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "record run %s", res.RunID)
	}
	return nil
}

// List returns run history, newest first. sourceID may be empty for all
// sources. limit <= 0 defaults to 50.
func (s *RunStore) List(sourceID string, limit int) ([]types.IngestionResult, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, source_id, status, records_processed, records_loaded,
		       duration_ms, errors, started_at, completed_at
		FROM ingestion_runs
	`
	args := []interface{}{}
	if sourceID != "" {
		query += ` WHERE source_id = ?`
		args = append(args, sourceID)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	defer rows.Close()

	var results []types.IngestionResult
	for rows.Next() {
		res, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// Latest returns the most recent run for a source, or nil with no history.
func (s *RunStore) Latest(sourceID string) (*types.IngestionResult, error) {
	runs, err := s.List(sourceID, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// Rollup aggregates the full run history.
func (s *RunStore) Rollup() (Rollup, error) {
	var rollup Rollup
	var lastRun sql.NullString

	err := s.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = 'SUCCESS' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(records_loaded), 0),
		       MAX(started_at)
		FROM ingestion_runs
	`).Scan(&rollup.TotalRuns, &rollup.SuccessfulRuns, &rollup.RecordsIngested, &lastRun)
	if err != nil {
		return rollup, errors.Wrap(err, "rollup runs")
	}

	if lastRun.Valid {
		t, err := time.Parse(time.RFC3339, lastRun.String)
		if err != nil {
			return rollup, errors.Wrapf(err, "parse last run time %q", lastRun.String)
		}
		rollup.LastRun = &t
	}

	return rollup, nil
}

// SourceHealth summarizes a source's outcomes over its most recent runs.
func (s *RunStore) SourceHealth(sourceID string, lastN int) (Health, error) {
	if lastN <= 0 {
		lastN = 20
	}

	runs, err := s.List(sourceID, lastN)
	if err != nil {
		return Health{}, err
	}

	health := Health{SourceID: sourceID, Runs: len(runs)}
	for _, run := range runs {
		switch run.Status {
		case types.RunFailed:
			health.Failures++
		default:
			// SUCCESS and PARTIAL both delivered rows
			health.Successes++
		}
	}
	if health.Runs > 0 {
		health.SuccessRate = float64(health.Successes) / float64(health.Runs)
		health.LastRun = &runs[0].StartedAt
		health.LastStatus = string(runs[0].Status)
	}
	return health, nil
}

func scanRun(rows *sql.Rows) (types.IngestionResult, error) {
	var res types.IngestionResult
	var status, startedAt string
	var durationMs int64
	var errorsJSON, completedAt sql.NullString

	if err := rows.Scan(
		&res.RunID,
		&res.SourceID,
		&status,
		&res.RecordsProcessed,
		&res.RecordsLoaded,
		&durationMs,
		&errorsJSON,
		&startedAt,
		&completedAt,
	); err != nil {
		return res, err
	}

	res.Status = types.RunStatus(status)
	res.Duration = time.Duration(durationMs) * time.Millisecond

	var err error
	res.StartedAt, err = time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return res, errors.Wrapf(err, "parse started_at for run %s", res.RunID)
	}

	if completedAt.Valid {
		res.CompletedAt, err = time.Parse(time.RFC3339, completedAt.String)
		if err != nil {
			return res, errors.Wrapf(err, "parse completed_at for run %s", res.RunID)
		}
	}

	if errorsJSON.Valid {
		if err := json.Unmarshal([]byte(errorsJSON.String), &res.Errors); err != nil {
			return res, errors.Wrapf(err, "decode errors for run %s", res.RunID)
		}
	}

	return res, nil
}
