package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/maos-da-obra/internal/domain/attempts"
)

func TestMachineHappyPath(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.To(attempts.StateValidating))
	require.NoError(t, m.To(attempts.StateSubmitting))
	require.NoError(t, m.To(attempts.StateSuccess))
	assert.Error(t, m.To(attempts.StateIdle), "success is terminal")
}

func TestMachineFailuresReturnToIdle(t *testing.T) {
	for _, fail := range []attempts.State{attempts.StateRejected, attempts.StateNetworkError} {
		m := NewMachine()
		require.NoError(t, m.To(attempts.StateValidating))
		require.NoError(t, m.To(attempts.StateSubmitting))
		require.NoError(t, m.To(fail))
		require.NoError(t, m.To(attempts.StateIdle))
		assert.True(t, Resubmittable(fail))
	}
	assert.False(t, Resubmittable(attempts.StateSubmitting))
	assert.False(t, CanTransition(attempts.StateIdle, attempts.StateSubmitting))
}
