package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sanadlabs/sanad/errors"
	"github.com/sanadlabs/sanad/types"
)

// DataPointStore persists normalized data points keyed by
// (source_id, indicator, date). Upserts make re-ingestion idempotent: a
// crash between snapshot write and row write is recovered by re-running
// the connector.
type DataPointStore struct {
	db *sql.DB
}

// NewDataPointStore creates a data point store.
func NewDataPointStore(db *sql.DB) *DataPointStore {
	return &DataPointStore{db: db}
}

// Upsert writes a batch of data points in one transaction, replacing any
// existing row with the same (source_id, indicator, date) key.
// Returns the number of rows written.
func (s *DataPointStore) Upsert(points []types.DataPoint) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, errors.Wrap(err, "begin upsert tx")
	}

	stmt, err := tx.Prepare(`
		INSERT INTO data_points (source_id, indicator, date, value, regime, metadata, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_id, indicator, date) DO UPDATE SET
			value = excluded.value,
			regime = excluded.regime,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		tx.Rollback()
		return 0, errors.Wrap(err, "prepare upsert")
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	written := 0
	for _, p := range points {
		var regime interface{}
		if p.Regime != "" {
			regime = p.Regime
		}

		var metadata interface{}
		if len(p.Metadata) > 0 {
			encoded, err := json.Marshal(p.Metadata)
			if err != nil {
				tx.Rollback()
				return 0, errors.Wrapf(err, "encode metadata for %s/%s", p.SourceID, p.Indicator)
			}
			metadata = string(encoded)
		}

		if _, err := stmt.Exec(p.SourceID, p.Indicator, p.DateKey(), p.Value, regime, metadata, now); err != nil {
			tx.Rollback()
			return 0, errors.Wrapf(err, "upsert point %s/%s/%s", p.SourceID, p.Indicator, p.DateKey())
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit upsert tx")
	}

	return written, nil
}

// ListByIndicator returns all points for an indicator across sources and
// dates, ordered by date then source id.
func (s *DataPointStore) ListByIndicator(indicator string) ([]types.DataPoint, error) {
	rows, err := s.db.Query(`
		SELECT source_id, indicator, date, value, regime, metadata
		FROM data_points
		WHERE indicator = ?
		ORDER BY date ASC, source_id ASC
	`, indicator)
	if err != nil {
		return nil, errors.Wrapf(err, "list points for %s", indicator)
	}
	defer rows.Close()

	return scanPoints(rows)
}

// ListBySource returns one source's series for an indicator,
// chronologically sorted.
func (s *DataPointStore) ListBySource(sourceID, indicator string) ([]types.DataPoint, error) {
	rows, err := s.db.Query(`
		SELECT source_id, indicator, date, value, regime, metadata
		FROM data_points
		WHERE source_id = ? AND indicator = ?
		ORDER BY date ASC
	`, sourceID, indicator)
	if err != nil {
		return nil, errors.Wrapf(err, "list points for %s/%s", sourceID, indicator)
	}
	defer rows.Close()

	return scanPoints(rows)
}

// ListForDate returns every source's report for an indicator on one date.
func (s *DataPointStore) ListForDate(indicator string, date time.Time) ([]types.DataPoint, error) {
	rows, err := s.db.Query(`
		SELECT source_id, indicator, date, value, regime, metadata
		FROM data_points
		WHERE indicator = ? AND date = ?
		ORDER BY source_id ASC
	`, indicator, date.Format(types.DateLayout))
	if err != nil {
		return nil, errors.Wrapf(err, "list points for %s on %s", indicator, date.Format(types.DateLayout))
	}
	defer rows.Close()

	return scanPoints(rows)
}

// Dates returns the set of stored observation dates for a source/indicator
// pair, as date keys. Used for data-gap detection.
func (s *DataPointStore) Dates(sourceID, indicator string) (map[string]bool, error) {
	rows, err := s.db.Query(`
		SELECT date FROM data_points
		WHERE source_id = ? AND indicator = ?
	`, sourceID, indicator)
	if err != nil {
		return nil, errors.Wrapf(err, "list dates for %s/%s", sourceID, indicator)
	}
	defer rows.Close()

	dates := make(map[string]bool)
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates[d] = true
	}
	return dates, rows.Err()
}

// Count returns the total number of stored data points.
func (s *DataPointStore) Count() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM data_points`).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "count data points")
	}
	return count, nil
}

func scanPoints(rows *sql.Rows) ([]types.DataPoint, error) {
	var points []types.DataPoint
	for rows.Next() {
		var p types.DataPoint
		var date string
		var regime, metadata sql.NullString

		if err := rows.Scan(&p.SourceID, &p.Indicator, &date, &p.Value, &regime, &metadata); err != nil {
			return nil, err
		}

		parsed, err := time.Parse(types.DateLayout, date)
		if err != nil {
			return nil, errors.Wrapf(err, "parse date %q", date)
		}
		p.Date = parsed

		if regime.Valid {
			p.Regime = regime.String
		}
		if metadata.Valid {
			if err := json.Unmarshal([]byte(metadata.String), &p.Metadata); err != nil {
				return nil, errors.Wrap(err, "decode metadata")
			}
		}

		points = append(points, p)
	}
	return points, rows.Err()
}
