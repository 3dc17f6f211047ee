package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeConsole(t *testing.T) {
	err := Initialize(false, 0)
	require.NoError(t, err)
	assert.False(t, JSONOutput)
	assert.NotNil(t, Logger)
}

func TestInitializeJSON(t *testing.T) {
	err := Initialize(true, 1)
	require.NoError(t, err)
	assert.True(t, JSONOutput)
	assert.NotNil(t, Logger)
}

func TestNamedBeforeInitializeDoesNotPanic(t *testing.T) {
	// Package init installs a no-op logger, so Named must be safe early.
	assert.NotPanics(t, func() {
		Named("ingest").Infow("should be swallowed")
	})
}
