package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLoggerIsSafe(t *testing.T) {
	// Before Initialize, the package-level logger must be usable.
	require.NotNil(t, Logger)
	Logger.Debugw("no-op logger accepts calls", "key", "value")
}

func TestInitializeConsole(t *testing.T) {
	require.NoError(t, Initialize(false, true))
	assert.False(t, JSONOutput)
	Logger.Debugw("console logger initialized")
}

func TestInitializeJSON(t *testing.T) {
	require.NoError(t, Initialize(true, false))
	assert.True(t, JSONOutput)
}
