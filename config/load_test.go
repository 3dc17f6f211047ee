package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	// Run from a temp dir so no real sanad.toml is picked up.
	tmp := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmp))
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sanad.db", cfg.Database.Path)
	assert.Equal(t, 4, cfg.Ingest.Workers)
	assert.Equal(t, 0, cfg.Ingest.RetryAttempts)
	assert.Equal(t, 20.0, cfg.Validate.VarianceThresholdPct)
	assert.Equal(t, 300.0, cfg.Validate.SpreadThresholdPct)
}

func TestLoadFromFile(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "sanad.toml")
	content := `
[database]
path = "/var/lib/sanad/sanad.db"

[ingest]
workers = 8
retry_attempts = 2

[validate]
variance_threshold_pct = 15.0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/sanad/sanad.db", cfg.Database.Path)
	assert.Equal(t, 8, cfg.Ingest.Workers)
	assert.Equal(t, 2, cfg.Ingest.RetryAttempts)
	assert.Equal(t, 15.0, cfg.Validate.VarianceThresholdPct)
	// Unset values keep their defaults
	assert.Equal(t, 60, cfg.Ingest.PollIntervalSeconds)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}
