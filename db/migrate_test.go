package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenWithMigrations(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	database, err := OpenWithMigrations(dbPath, nil)
	require.NoError(t, err)
	require.NotNil(t, database)
	defer database.Close()

	// All core tables should exist after migrations
	for _, table := range []string{
		"schema_migrations",
		"ingestion_schedules",
		"ingestion_runs",
		"raw_snapshots",
		"data_points",
		"corrections",
		"validation_results",
	} {
		var count int
		err := database.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s should exist", table)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	database, err := OpenWithMigrations(dbPath, nil)
	require.NoError(t, err)
	defer database.Close()

	// Re-running migrations on an up-to-date database is a no-op
	require.NoError(t, Migrate(database, nil))

	var versions int
	err = database.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&versions)
	require.NoError(t, err)
	assert.Equal(t, 4, versions)
}
