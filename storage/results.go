package storage

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/sanadlabs/sanad/errors"
)

// ValidationRecord is the persisted form of a validation result. Issue and
// recommendation payloads are stored as JSON produced by the validate
// package; this store does not interpret them.
type ValidationRecord struct {
	ID                   string    `json:"id"`
	Indicator            string    `json:"indicator"`
	SourceID             string    `json:"source_id"`
	Date                 string    `json:"date"`
	Valid                bool      `json:"valid"`
	Confidence           float64   `json:"confidence"`
	IssuesJSON           string    `json:"issues_json,omitempty"`
	RecommendationsJSON  string    `json:"recommendations_json,omitempty"`
	TriangulationSources string    `json:"triangulation_sources,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}

// ValidationStore persists validation results for audit.
type ValidationStore struct {
	db *sql.DB
}

// NewValidationStore creates a validation result store.
func NewValidationStore(db *sql.DB) *ValidationStore {
	return &ValidationStore{db: db}
}

// Save persists one validation record. ID and CreatedAt are assigned here
// if unset.
func (s *ValidationStore) Save(rec *ValidationRecord) error {
	if rec.ID == "" {
		rec.ID = "VAL_" + uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	valid := 0
	if rec.Valid {
		valid = 1
	}

	_, err := s.db.Exec(`
		INSERT INTO validation_results (
			id, indicator, source_id, date, valid, confidence,
			issues, recommendations, triangulation_sources, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.Indicator,
		rec.SourceID,
		rec.Date,
		valid,
		rec.Confidence,
		nullable(rec.IssuesJSON),
		nullable(rec.RecommendationsJSON),
		nullable(rec.TriangulationSources),
		rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return errors.Wrapf(err, "save validation result for %s/%s", rec.Indicator, rec.SourceID)
	}
	return nil
}

// List returns validation records for an indicator, newest first.
func (s *ValidationStore) List(indicator string, limit int) ([]ValidationRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, indicator, source_id, date, valid, confidence,
		       issues, recommendations, triangulation_sources, created_at
		FROM validation_results
		WHERE indicator = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, indicator, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "list validation results for %s", indicator)
	}
	defer rows.Close()

	var records []ValidationRecord
	for rows.Next() {
		var rec ValidationRecord
		var valid int
		var issues, recommendations, sources sql.NullString
		var createdAt string

		if err := rows.Scan(&rec.ID, &rec.Indicator, &rec.SourceID, &rec.Date,
			&valid, &rec.Confidence, &issues, &recommendations, &sources, &createdAt); err != nil {
			return nil, err
		}

		rec.Valid = valid != 0
		if issues.Valid {
			rec.IssuesJSON = issues.String
		}
		if recommendations.Valid {
			rec.RecommendationsJSON = recommendations.String
		}
		if sources.Valid {
			rec.TriangulationSources = sources.String
		}

		rec.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, errors.Wrapf(err, "parse created_at for %s", rec.ID)
		}

		records = append(records, rec)
	}
	return records, rows.Err()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
