package breaker

import (
	"context"
	"fmt"

	"github.com/fairyhunter13/match-orchestrator/internal/domain"
)

// Manager holds one breaker per registered algorithm. The map is built once
// at startup and never mutated, so reads need no lock; each breaker
// synchronizes itself.
type Manager struct {
	breakers map[domain.AlgorithmID]*Breaker
}

// NewManager builds breakers for every executable algorithm with the same
// configuration.
func NewManager(cfg Config) *Manager {
	m := &Manager{breakers: make(map[domain.AlgorithmID]*Breaker, len(domain.AllAlgorithms))}
	for _, id := range domain.AllAlgorithms {
		m.breakers[id] = New(id, cfg)
	}
	return m
}

// Get returns the breaker for id, or nil for unknown ids.
func (m *Manager) Get(id domain.AlgorithmID) *Breaker {
	return m.breakers[id]
}

// AllowsExecution reports whether a call to id would currently be admitted.
// Unknown ids are never admitted.
func (m *Manager) AllowsExecution(id domain.AlgorithmID) bool {
	b, ok := m.breakers[id]
	if !ok {
		return false
	}
	return b.AllowsExecution()
}

// Call runs f through the breaker for id. Unknown ids are rejected.
func (m *Manager) Call(ctx context.Context, id domain.AlgorithmID, f func(context.Context) error) error {
	b, ok := m.breakers[id]
	if !ok {
		return fmt.Errorf("op=breaker.Call: %w: unknown algorithm %q", domain.ErrInvalidRequest, id)
	}
	return b.Call(ctx, f)
}

// ForceOpen trips the breaker for id.
func (m *Manager) ForceOpen(id domain.AlgorithmID, reason string) error {
	b, ok := m.breakers[id]
	if !ok {
		return fmt.Errorf("op=breaker.ForceOpen: %w: unknown algorithm %q", domain.ErrInvalidRequest, id)
	}
	b.ForceOpen(reason)
	return nil
}

// ForceClose resets the breaker for id.
func (m *Manager) ForceClose(id domain.AlgorithmID, reason string) error {
	b, ok := m.breakers[id]
	if !ok {
		return fmt.Errorf("op=breaker.ForceClose: %w: unknown algorithm %q", domain.ErrInvalidRequest, id)
	}
	b.ForceClose(reason)
	return nil
}

// Snapshots returns a stats copy per algorithm.
func (m *Manager) Snapshots() map[domain.AlgorithmID]Stats {
	out := make(map[domain.AlgorithmID]Stats, len(m.breakers))
	for id, b := range m.breakers {
		out[id] = b.Snapshot()
	}
	return out
}
