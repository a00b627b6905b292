// Package algorithms hosts the executor registry and the built-in
// deterministic stub executors. Real scorers are opaque external
// collaborators; anything satisfying domain.Executor can be registered.
package algorithms

import (
	"context"
	"fmt"
	"time"

	"github.com/fairyhunter13/match-orchestrator/internal/domain"
)

// Registry is an immutable map of algorithm id to executor, built once at
// startup. Every executable id resolves: ids with no registered executor
// get a sentinel that always fails, so circuit-breaker and fallback logic
// can still progress.
type Registry struct {
	executors map[domain.AlgorithmID]domain.Executor
}

// NewRegistry wraps the provided executors with a per-algorithm admission
// semaphore of maxParallel slots and fills the gaps with unavailable
// sentinels. maxParallel <= 0 disables admission limiting.
func NewRegistry(executors map[domain.AlgorithmID]domain.Executor, maxParallel int) *Registry {
	r := &Registry{executors: make(map[domain.AlgorithmID]domain.Executor, len(domain.AllAlgorithms))}
	for _, id := range domain.AllAlgorithms {
		exec, ok := executors[id]
		if !ok || exec == nil {
			exec = &unavailableExecutor{id: id}
		}
		if maxParallel > 0 {
			exec = &limitedExecutor{inner: exec, sem: make(chan struct{}, maxParallel)}
		}
		r.executors[id] = exec
	}
	return r
}

// NewStubRegistry builds a registry backed entirely by stub executors, used
// for local runs and tests.
func NewStubRegistry(latency time.Duration, maxParallel int) *Registry {
	executors := make(map[domain.AlgorithmID]domain.Executor, len(domain.AllAlgorithms))
	for _, id := range domain.AllAlgorithms {
		executors[id] = NewStub(id, latency)
	}
	return NewRegistry(executors, maxParallel)
}

// Get returns the executor for id. Unknown ids resolve to a failing
// sentinel rather than nil so callers need no nil checks.
func (r *Registry) Get(id domain.AlgorithmID) domain.Executor {
	if exec, ok := r.executors[id]; ok {
		return exec
	}
	return &unavailableExecutor{id: id}
}

// unavailableExecutor is the sentinel installed when no executor is
// registered for an algorithm.
type unavailableExecutor struct {
	id domain.AlgorithmID
}

func (u *unavailableExecutor) Name() domain.AlgorithmID { return u.id }

func (u *unavailableExecutor) Execute(context.Context, map[string]any, []map[string]any, map[string]any) ([]domain.NativeResult, error) {
	return nil, fmt.Errorf("op=algorithms.Execute: %w: no executor registered for %q", domain.ErrAlgorithmFailure, u.id)
}

// limitedExecutor caps concurrent calls into one executor. Admission waits
// share the caller's deadline, so a saturated executor fails fast instead
// of queueing beyond the call timeout.
type limitedExecutor struct {
	inner domain.Executor
	sem   chan struct{}
}

func (l *limitedExecutor) Name() domain.AlgorithmID { return l.inner.Name() }

func (l *limitedExecutor) Execute(ctx context.Context, candidate map[string]any, offers []map[string]any, config map[string]any) ([]domain.NativeResult, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("op=algorithms.Execute algorithm=%s: executor saturated: %w", l.inner.Name(), ctx.Err())
	}
	defer func() { <-l.sem }()
	return l.inner.Execute(ctx, candidate, offers, config)
}
