// Package breaker implements the per-algorithm circuit breaker gating
// executor calls: a CLOSED/OPEN/HALF-OPEN state machine with a call-timeout
// wrapper, slow-call tracking, and bounded diagnostics.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fairyhunter13/match-orchestrator/internal/domain"
	"github.com/fairyhunter13/match-orchestrator/internal/observability"
	"github.com/fairyhunter13/match-orchestrator/pkg/statx"
)

// State represents the state of a circuit breaker.
type State int

const (
	// StateClosed allows calls through.
	StateClosed State = iota
	// StateOpen rejects calls until the recovery timeout elapses.
	StateOpen
	// StateHalfOpen probes recovery with live calls.
	StateHalfOpen
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// elapsedWindow keeps the most recent call durations for percentile stats.
const elapsedWindow = 100

// transitionLog keeps the most recent state transitions for diagnostics.
const transitionLog = 50

// Config parameterizes one breaker.
type Config struct {
	FailureThreshold  int
	RecoveryTimeout   time.Duration
	SuccessThreshold  int
	CallTimeout       time.Duration
	SlowCallThreshold time.Duration
}

// DefaultConfig returns conservative breaker defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:  5,
		RecoveryTimeout:   30 * time.Second,
		SuccessThreshold:  3,
		CallTimeout:       80 * time.Millisecond,
		SlowCallThreshold: time.Second,
	}
}

// Transition is one recorded state change.
type Transition struct {
	From   State     `json:"from"`
	To     State     `json:"to"`
	At     time.Time `json:"at"`
	Reason string    `json:"reason"`
}

// Stats is a copy-out snapshot of one breaker.
type Stats struct {
	Algorithm            domain.AlgorithmID `json:"algorithm"`
	State                string             `json:"state"`
	ConsecutiveFailures  int                `json:"consecutive_failures"`
	ConsecutiveSuccesses int                `json:"consecutive_successes"`
	TotalCalls           int64              `json:"total_calls"`
	Successes            int64              `json:"successes"`
	Failures             int64              `json:"failures"`
	Timeouts             int64              `json:"timeouts"`
	SlowCalls            int64              `json:"slow_calls"`
	P50ElapsedMS         float64            `json:"p50_elapsed_ms"`
	P90ElapsedMS         float64            `json:"p90_elapsed_ms"`
	P95ElapsedMS         float64            `json:"p95_elapsed_ms"`
	P99ElapsedMS         float64            `json:"p99_elapsed_ms"`
	Transitions          []Transition       `json:"recent_transitions"`
}

// Breaker gates executor calls for one algorithm. Safe for concurrent use;
// each breaker owns its own lock.
type Breaker struct {
	mu        sync.Mutex
	algorithm domain.AlgorithmID
	cfg       Config

	state                State
	consecutiveFailures  int
	consecutiveSuccesses int
	openedAt             time.Time

	elapsed      [elapsedWindow]float64
	elapsedIdx   int
	elapsedCount int

	totalCalls int64
	successes  int64
	failures   int64
	timeouts   int64
	slowCalls  int64

	transitions []Transition

	now func() time.Time
}

// New creates a breaker for one algorithm.
func New(algorithm domain.AlgorithmID, cfg Config) *Breaker {
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = 1
	}
	if cfg.SuccessThreshold < 1 {
		cfg.SuccessThreshold = 1
	}
	b := &Breaker{
		algorithm: algorithm,
		cfg:       cfg,
		state:     StateClosed,
		now:       time.Now,
	}
	observability.CircuitState.WithLabelValues(string(algorithm)).Set(float64(StateClosed))
	return b
}

// transitionLocked applies a state change and records it. Caller holds b.mu.
func (b *Breaker) transitionLocked(to State, reason string) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	t := Transition{From: from, To: to, At: b.now(), Reason: reason}
	b.transitions = append(b.transitions, t)
	if len(b.transitions) > transitionLog {
		b.transitions = b.transitions[len(b.transitions)-transitionLog:]
	}
	observability.CircuitState.WithLabelValues(string(b.algorithm)).Set(float64(to))
	observability.CircuitTransitionsTotal.WithLabelValues(string(b.algorithm), to.String()).Inc()
	slog.Info("circuit breaker transition",
		slog.String("algorithm", string(b.algorithm)),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.String("reason", reason))
}

// admit decides whether a call may proceed, transitioning OPEN to HALF-OPEN
// on the first call after the recovery timeout.
func (b *Breaker) admit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if b.now().Sub(b.openedAt) >= b.cfg.RecoveryTimeout {
			b.consecutiveSuccesses = 0
			b.consecutiveFailures = 0
			b.transitionLocked(StateHalfOpen, "recovery timeout elapsed")
			return true
		}
		return false
	default:
		return false
	}
}

// AllowsExecution reports whether a call issued now would be admitted,
// without mutating state. Used by the selector's degradation check.
func (b *Breaker) AllowsExecution() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateOpen {
		return true
	}
	return b.now().Sub(b.openedAt) >= b.cfg.RecoveryTimeout
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) recordElapsedLocked(elapsed time.Duration) {
	ms := float64(elapsed.Microseconds()) / 1000
	b.elapsed[b.elapsedIdx] = ms
	b.elapsedIdx = (b.elapsedIdx + 1) % elapsedWindow
	if b.elapsedCount < elapsedWindow {
		b.elapsedCount++
	}
	if b.cfg.SlowCallThreshold > 0 && elapsed > b.cfg.SlowCallThreshold {
		b.slowCalls++
	}
}

func (b *Breaker) onSuccess(elapsed time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.totalCalls++
	b.successes++
	b.recordElapsedLocked(elapsed)
	switch b.state {
	case StateClosed:
		if b.consecutiveFailures > 0 {
			b.consecutiveFailures--
		}
	case StateHalfOpen:
		b.consecutiveSuccesses++
		if b.consecutiveSuccesses >= b.cfg.SuccessThreshold {
			b.consecutiveFailures = 0
			b.consecutiveSuccesses = 0
			b.transitionLocked(StateClosed, "success threshold reached")
		}
	}
}

func (b *Breaker) onFailure(elapsed time.Duration, timedOut bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.totalCalls++
	b.failures++
	if timedOut {
		b.timeouts++
	}
	b.recordElapsedLocked(elapsed)
	switch b.state {
	case StateClosed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.cfg.FailureThreshold {
			b.openedAt = b.now()
			b.transitionLocked(StateOpen, "failure threshold reached")
		}
	case StateHalfOpen:
		b.openedAt = b.now()
		b.consecutiveSuccesses = 0
		b.transitionLocked(StateOpen, "failure while half-open")
	}
}

// Call runs f under the breaker: rejection when OPEN, a call timeout, slow
// call accounting, and the state transition for the outcome. The original
// failure is returned wrapped so callers can classify it with errors.Is.
func (b *Breaker) Call(ctx context.Context, f func(context.Context) error) error {
	if !b.admit() {
		return fmt.Errorf("op=breaker.Call algorithm=%s: %w", b.algorithm, domain.ErrCircuitOpen)
	}

	cctx := ctx
	cancel := func() {}
	if b.cfg.CallTimeout > 0 {
		cctx, cancel = context.WithTimeout(ctx, b.cfg.CallTimeout)
	}
	start := b.now()
	err := f(cctx)
	elapsed := b.now().Sub(start)
	cancel()

	if err == nil {
		b.onSuccess(elapsed)
		return nil
	}

	// A cancellation initiated by the caller is not an algorithm fault and
	// must not trip the breaker.
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return fmt.Errorf("op=breaker.Call algorithm=%s: %w", b.algorithm, err)
	}

	timedOut := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrAlgorithmTimeout)
	b.onFailure(elapsed, timedOut)
	if timedOut && !errors.Is(err, domain.ErrAlgorithmTimeout) {
		return fmt.Errorf("op=breaker.Call algorithm=%s: %w: %v", b.algorithm, domain.ErrAlgorithmTimeout, err)
	}
	return fmt.Errorf("op=breaker.Call algorithm=%s: %w", b.algorithm, err)
}

// ForceOpen trips the breaker for maintenance; it stays OPEN for at least
// the recovery timeout from now.
func (b *Breaker) ForceOpen(reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openedAt = b.now()
	b.consecutiveFailures = b.cfg.FailureThreshold
	b.transitionLocked(StateOpen, "forced: "+reason)
}

// ForceClose resets the breaker to CLOSED, clearing consecutive counters.
func (b *Breaker) ForceClose(reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
	b.transitionLocked(StateClosed, "forced: "+reason)
}

// Snapshot returns a consistent copy of the breaker's counters and recent
// transitions.
func (b *Breaker) Snapshot() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	sample := make([]float64, b.elapsedCount)
	copy(sample, b.elapsed[:b.elapsedCount])
	trans := make([]Transition, len(b.transitions))
	copy(trans, b.transitions)
	return Stats{
		Algorithm:            b.algorithm,
		State:                b.state.String(),
		ConsecutiveFailures:  b.consecutiveFailures,
		ConsecutiveSuccesses: b.consecutiveSuccesses,
		TotalCalls:           b.totalCalls,
		Successes:            b.successes,
		Failures:             b.failures,
		Timeouts:             b.timeouts,
		SlowCalls:            b.slowCalls,
		P50ElapsedMS:         statx.Percentile(sample, 50),
		P90ElapsedMS:         statx.Percentile(sample, 90),
		P95ElapsedMS:         statx.Percentile(sample, 95),
		P99ElapsedMS:         statx.Percentile(sample, 99),
		Transitions:          trans,
	}
}
