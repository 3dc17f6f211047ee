package storage

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/sanadlabs/sanad/errors"
	"github.com/sanadlabs/sanad/types"
)

// CorrectionStore is the append-only log of human corrections. It is the
// durable source of truth for the accuracy coaching loop; any in-memory
// index over it is a cache rebuilt at startup.
type CorrectionStore struct {
	db *sql.DB
}

// NewCorrectionStore creates a correction store.
func NewCorrectionStore(db *sql.DB) *CorrectionStore {
	return &CorrectionStore{db: db}
}

// Append records a correction. The record's ID and Timestamp are assigned
// here if unset.
func (s *CorrectionStore) Append(rec *types.CorrectionRecord) error {
	if rec.ID == "" {
		rec.ID = "COR_" + uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO corrections (
			id, indicator, source_id, date,
			original_value, corrected_value, reason, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.Original.Indicator,
		rec.Original.SourceID,
		rec.Original.DateKey(),
		rec.Original.Value,
		rec.Corrected.Value,
		rec.Reason,
		rec.Timestamp.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return errors.Wrapf(err, "append correction for %s/%s", rec.Original.Indicator, rec.Original.SourceID)
	}
	return nil
}

// ListByPairing returns corrections for one (indicator, source) pairing in
// chronological order.
func (s *CorrectionStore) ListByPairing(indicator, sourceID string) ([]types.CorrectionRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, indicator, source_id, date, original_value, corrected_value, reason, created_at
		FROM corrections
		WHERE indicator = ? AND source_id = ?
		ORDER BY created_at ASC
	`, indicator, sourceID)
	if err != nil {
		return nil, errors.Wrapf(err, "list corrections for %s/%s", indicator, sourceID)
	}
	defer rows.Close()

	return scanCorrections(rows)
}

// All returns the full correction history in chronological order.
func (s *CorrectionStore) All() ([]types.CorrectionRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, indicator, source_id, date, original_value, corrected_value, reason, created_at
		FROM corrections
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "list corrections")
	}
	defer rows.Close()

	return scanCorrections(rows)
}

func scanCorrections(rows *sql.Rows) ([]types.CorrectionRecord, error) {
	var records []types.CorrectionRecord
	for rows.Next() {
		var rec types.CorrectionRecord
		var indicator, sourceID, date, createdAt string
		var originalValue, correctedValue float64

		if err := rows.Scan(&rec.ID, &indicator, &sourceID, &date,
			&originalValue, &correctedValue, &rec.Reason, &createdAt); err != nil {
			return nil, err
		}

		parsed, err := time.Parse(types.DateLayout, date)
		if err != nil {
			return nil, errors.Wrapf(err, "parse date %q", date)
		}
		ts, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, errors.Wrapf(err, "parse created_at %q", createdAt)
		}

		rec.Original = types.DataPoint{
			Indicator: indicator,
			SourceID:  sourceID,
			Date:      parsed,
			Value:     originalValue,
		}
		rec.Corrected = types.DataPoint{
			Indicator: indicator,
			SourceID:  sourceID,
			Date:      parsed,
			Value:     correctedValue,
		}
		rec.Timestamp = ts
		records = append(records, rec)
	}
	return records, rows.Err()
}
