package breaker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/match-orchestrator/internal/domain"
)

func TestManagerCoversAllAlgorithms(t *testing.T) {
	m := NewManager(testConfig())
	for _, id := range domain.AllAlgorithms {
		require.NotNil(t, m.Get(id))
		assert.True(t, m.AllowsExecution(id))
	}
	assert.Nil(t, m.Get("bogus"))
	assert.False(t, m.AllowsExecution("bogus"))
}

func TestManagerForceOperations(t *testing.T) {
	m := NewManager(testConfig())
	require.NoError(t, m.ForceOpen(domain.AlgorithmNexten, "test"))
	assert.False(t, m.AllowsExecution(domain.AlgorithmNexten))
	assert.True(t, m.AllowsExecution(domain.AlgorithmSmart), "other breakers unaffected")

	require.NoError(t, m.ForceClose(domain.AlgorithmNexten, "test"))
	assert.True(t, m.AllowsExecution(domain.AlgorithmNexten))

	assert.ErrorIs(t, m.ForceOpen("bogus", "test"), domain.ErrInvalidRequest)
	assert.ErrorIs(t, m.ForceClose("bogus", "test"), domain.ErrInvalidRequest)
}

func TestManagerSnapshots(t *testing.T) {
	m := NewManager(testConfig())
	snaps := m.Snapshots()
	assert.Len(t, snaps, len(domain.AllAlgorithms))
	assert.Equal(t, "closed", snaps[domain.AlgorithmHybrid].State)
}
