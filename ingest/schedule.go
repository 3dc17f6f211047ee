// Package ingest drives the ingestion lifecycle: per-source schedules,
// the periodic due-scan, bounded-concurrency connector execution, backfill
// sweeps, and the operational status report.
package ingest

import (
	"database/sql"
	"time"

	"github.com/sanadlabs/sanad/errors"
)

// Schedule statuses. At most one run per source may be in flight, and the
// RUNNING status is the claim that enforces it.
const (
	StatusScheduled = "SCHEDULED"
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Schedule is the persistent scheduling state for one source.
type Schedule struct {
	SourceID  string     `json:"source_id"`
	Cadence   string     `json:"cadence"`
	Status    string     `json:"status"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	NextRunAt time.Time  `json:"next_run_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ScheduleStore persists schedules in the ingestion_schedules table.
// State survives restarts: a source that was mid-flight when the process
// died is reset by Recover on startup.
type ScheduleStore struct {
	db *sql.DB
}

// NewScheduleStore creates a schedule store over an open database.
func NewScheduleStore(db *sql.DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

// Sync makes sure a schedule row exists for the source. A new source gets
// its first fire time computed from now; an existing row keeps its slot
// unless the cadence changed, in which case the next fire time is
// recomputed under the new cadence.
func (s *ScheduleStore) Sync(sourceID, cadence string, nextRun time.Time) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(`
		INSERT INTO ingestion_schedules (source_id, cadence, status, next_run_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			next_run_at = CASE WHEN ingestion_schedules.cadence != excluded.cadence
				THEN excluded.next_run_at ELSE ingestion_schedules.next_run_at END,
			cadence = excluded.cadence,
			updated_at = excluded.updated_at`,
		sourceID, cadence, StatusScheduled, nextRun.UTC().Format(time.RFC3339), now)
	return errors.Wrapf(err, "sync schedule for %s", sourceID)
}

// Due returns the schedules whose fire time has passed and that are not
// already running, ordered by fire time so the longest-overdue source
// goes first.
func (s *ScheduleStore) Due(now time.Time) ([]Schedule, error) {
	rows, err := s.db.Query(`
		SELECT source_id, cadence, status, last_run_at, next_run_at, updated_at
		FROM ingestion_schedules
		WHERE next_run_at <= ? AND status != ?
		ORDER BY next_run_at ASC`,
		now.UTC().Format(time.RFC3339), StatusRunning)
	if err != nil {
		return nil, errors.Wrap(err, "scan due schedules")
	}
	defer rows.Close()
	return scanSchedules(rows)
}

// Claim transitions a schedule to RUNNING. It returns false when the
// source is already running, which is how concurrent pollers and manual
// triggers are kept from double-dispatching the same source.
func (s *ScheduleStore) Claim(sourceID string) (bool, error) {
	res, err := s.db.Exec(`
		UPDATE ingestion_schedules SET status = ?, updated_at = ?
		WHERE source_id = ? AND status != ?`,
		StatusRunning, time.Now().UTC().Format(time.RFC3339), sourceID, StatusRunning)
	if err != nil {
		return false, errors.Wrapf(err, "claim schedule for %s", sourceID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "claim rows affected")
	}
	return n == 1, nil
}

// Complete records the outcome of a finished run and arms the next slot.
func (s *ScheduleStore) Complete(sourceID, status string, lastRun, nextRun time.Time) error {
	_, err := s.db.Exec(`
		UPDATE ingestion_schedules
		SET status = ?, last_run_at = ?, next_run_at = ?, updated_at = ?
		WHERE source_id = ?`,
		status,
		lastRun.UTC().Format(time.RFC3339),
		nextRun.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
		sourceID)
	return errors.Wrapf(err, "complete schedule for %s", sourceID)
}

// Release reverts a claimed schedule to SCHEDULED without touching its
// run bookkeeping. Used when a claimed run is cancelled before it starts.
func (s *ScheduleStore) Release(sourceID string) error {
	_, err := s.db.Exec(`
		UPDATE ingestion_schedules SET status = ?, updated_at = ?
		WHERE source_id = ? AND status = ?`,
		StatusScheduled, time.Now().UTC().Format(time.RFC3339), sourceID, StatusRunning)
	return errors.Wrapf(err, "release schedule for %s", sourceID)
}

// Recover resets any schedule stuck in RUNNING, typically after an
// unclean shutdown. Returns the number of schedules reset.
func (s *ScheduleStore) Recover() (int, error) {
	res, err := s.db.Exec(`
		UPDATE ingestion_schedules SET status = ?, updated_at = ?
		WHERE status = ?`,
		StatusScheduled, time.Now().UTC().Format(time.RFC3339), StatusRunning)
	if err != nil {
		return 0, errors.Wrap(err, "recover stuck schedules")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "recover rows affected")
	}
	return int(n), nil
}

// Get returns one schedule by source id.
func (s *ScheduleStore) Get(sourceID string) (*Schedule, error) {
	rows, err := s.db.Query(`
		SELECT source_id, cadence, status, last_run_at, next_run_at, updated_at
		FROM ingestion_schedules WHERE source_id = ?`, sourceID)
	if err != nil {
		return nil, errors.Wrapf(err, "get schedule for %s", sourceID)
	}
	defer rows.Close()

	schedules, err := scanSchedules(rows)
	if err != nil {
		return nil, err
	}
	if len(schedules) == 0 {
		return nil, errors.NewNotFound("no schedule for source %s", sourceID)
	}
	return &schedules[0], nil
}

// All returns every schedule ordered by source id.
func (s *ScheduleStore) All() ([]Schedule, error) {
	rows, err := s.db.Query(`
		SELECT source_id, cadence, status, last_run_at, next_run_at, updated_at
		FROM ingestion_schedules ORDER BY source_id ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "list schedules")
	}
	defer rows.Close()
	return scanSchedules(rows)
}

func scanSchedules(rows *sql.Rows) ([]Schedule, error) {
	var schedules []Schedule
	for rows.Next() {
		var sched Schedule
		var lastRun sql.NullString
		var nextRun, updated string
		if err := rows.Scan(&sched.SourceID, &sched.Cadence, &sched.Status, &lastRun, &nextRun, &updated); err != nil {
			return nil, errors.Wrap(err, "scan schedule row")
		}
		if lastRun.Valid {
			t, err := time.Parse(time.RFC3339, lastRun.String)
			if err != nil {
				return nil, errors.Wrap(err, "parse last_run_at")
			}
			sched.LastRunAt = &t
		}
		var err error
		if sched.NextRunAt, err = time.Parse(time.RFC3339, nextRun); err != nil {
			return nil, errors.Wrap(err, "parse next_run_at")
		}
		if sched.UpdatedAt, err = time.Parse(time.RFC3339, updated); err != nil {
			return nil, errors.Wrap(err, "parse updated_at")
		}
		schedules = append(schedules, sched)
	}
	return schedules, errors.Wrap(rows.Err(), "iterate schedules")
}
