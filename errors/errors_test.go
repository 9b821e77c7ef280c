package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelWrapping(t *testing.T) {
	err := Wrap(ErrNotFound, "looking up resource nw_i0_generic")

	assert.True(t, Is(err, ErrNotFound), "wrapped sentinel should still match")
	assert.Contains(t, err.Error(), "nw_i0_generic")
}

func TestIsNotFoundError(t *testing.T) {
	assert.False(t, IsNotFoundError(nil))
	assert.False(t, IsNotFoundError(New("unrelated")))
	assert.True(t, IsNotFoundError(ErrNotFound))
	assert.True(t, IsNotFoundError(Wrap(ErrNotFound, "outer context")))
}

func TestIsConfigError(t *testing.T) {
	err := Wrapf(ErrInvalidConfig, "jobs must be positive, got %d", -3)

	require.True(t, IsConfigError(err))
	assert.Contains(t, err.Error(), "jobs must be positive")
	assert.False(t, IsConfigError(New("compile error")))
}

func TestWithDetailPreservesIdentity(t *testing.T) {
	err := Wrap(ErrCompileFailed, "batch run")
	err = WithDetail(err, "3 of 17 jobs failed")

	assert.True(t, Is(err, ErrCompileFailed))
}
