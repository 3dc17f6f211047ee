// Package storage provides the durable sqlite-backed stores for SANAD:
// raw payload snapshots, normalized data points, ingestion run history,
// the append-only correction log, and persisted validation results.
package storage

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/sanadlabs/sanad/errors"
)

// SnapshotStore persists raw source payloads verbatim before any parsing.
// Snapshots are content-addressed per source and write-once: storing an
// identical payload twice is a no-op.
type SnapshotStore struct {
	db *sql.DB
}

// NewSnapshotStore creates a snapshot store.
func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Put stores a raw payload and returns its content hash.
// created is false when an identical payload was already stored.
func (s *SnapshotStore) Put(sourceID string, payload []byte, fetchedAt time.Time) (hash string, created bool, err error) {
	sum := sha256.Sum256(payload)
	hash = hex.EncodeToString(sum[:])

	result, err := s.db.Exec(`
		INSERT OR IGNORE INTO raw_snapshots (source_id, content_hash, payload, fetched_at)
		VALUES (?, ?, ?, ?)
	`, sourceID, hash, payload, fetchedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return "", false, errors.Wrapf(err, "store snapshot for %s", sourceID)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return "", false, errors.Wrap(err, "rows affected")
	}

	return hash, rows > 0, nil
}

// Get retrieves a raw payload by source id and content hash.
func (s *SnapshotStore) Get(sourceID, hash string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRow(`
		SELECT payload FROM raw_snapshots
		WHERE source_id = ? AND content_hash = ?
	`, sourceID, hash).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("snapshot %s/%s", sourceID, hash)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get snapshot %s/%s", sourceID, hash)
	}
	return payload, nil
}

// Count returns the number of stored snapshots for a source.
func (s *SnapshotStore) Count(sourceID string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM raw_snapshots WHERE source_id = ?`, sourceID).Scan(&count)
	if err != nil {
		return 0, errors.Wrapf(err, "count snapshots for %s", sourceID)
	}
	return count, nil
}
