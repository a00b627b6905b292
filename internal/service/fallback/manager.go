// Package fallback walks the per-algorithm fallback hierarchy when the
// primary execution fails, and degrades to a minimal or emergency response
// when every algorithm is exhausted.
package fallback

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/fairyhunter13/match-orchestrator/internal/domain"
	"github.com/fairyhunter13/match-orchestrator/internal/observability"
)

// Chains lists the ordered alternatives tried after each primary algorithm
// fails. The order encodes proximity of scoring behavior, nearest first.
var Chains = map[domain.AlgorithmID][]domain.AlgorithmID{
	domain.AlgorithmNexten:   {domain.AlgorithmEnhanced, domain.AlgorithmSmart, domain.AlgorithmSemantic},
	domain.AlgorithmEnhanced: {domain.AlgorithmSmart, domain.AlgorithmSemantic, domain.AlgorithmNexten},
	domain.AlgorithmSmart:    {domain.AlgorithmSemantic, domain.AlgorithmEnhanced, domain.AlgorithmNexten},
	domain.AlgorithmSemantic: {domain.AlgorithmEnhanced, domain.AlgorithmSmart, domain.AlgorithmNexten},
	domain.AlgorithmHybrid:   {domain.AlgorithmNexten, domain.AlgorithmEnhanced, domain.AlgorithmSmart},
}

const fallbackConfidencePenalty = 0.9

// Registry resolves an executor for an algorithm id.
type Registry interface {
	Get(id domain.AlgorithmID) domain.Executor
}

// Adapter converts the unified request to native payloads and native
// results back to the unified shape.
type Adapter interface {
	AdaptRequest(req domain.MatchRequest, id domain.AlgorithmID) (map[string]any, []map[string]any, map[string]any, error)
	NormalizeResults(native []domain.NativeResult, id domain.AlgorithmID, offers []domain.Offer) []domain.MatchResult
}

// Breakers gates execution per algorithm.
type Breakers interface {
	Call(ctx context.Context, id domain.AlgorithmID, f func(context.Context) error) error
	AllowsExecution(id domain.AlgorithmID) bool
}

// Config tunes the fallback walk.
type Config struct {
	// AttemptTimeout bounds a single fallback attempt. The remaining
	// request budget takes precedence when it is shorter.
	AttemptTimeout time.Duration
	// MaxAttempts caps how many alternatives are tried after the primary.
	MaxAttempts int
	// MinimalScoreBase is the score of the first offer in a minimal
	// response; later offers add 0.001 per position.
	MinimalScoreBase   float64
	DegradedConfidence float64
}

// DefaultConfig mirrors the production settings.
func DefaultConfig() Config {
	return Config{
		AttemptTimeout:     5 * time.Second,
		MaxAttempts:        3,
		MinimalScoreBase:   0.3,
		DegradedConfidence: 0.6,
	}
}

// Outcome is what the executor pipeline produced for one request, including
// how degraded it is.
type Outcome struct {
	Matches       []domain.MatchResult
	AlgorithmUsed domain.AlgorithmID
	Primary       domain.AlgorithmID
	Fallback      bool
	Attempts      int
	Status        domain.ResponseStatus
	Warning       string
}

// Manager executes a match request with hierarchical fallback.
type Manager struct {
	registry Registry
	adapter  Adapter
	breakers Breakers
	cfg      Config
}

func NewManager(registry Registry, adapter Adapter, breakers Breakers, cfg Config) *Manager {
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultConfig().AttemptTimeout
	}
	return &Manager{registry: registry, adapter: adapter, breakers: breakers, cfg: cfg}
}

// Execute runs the primary algorithm and walks its fallback chain on
// failure. It never returns an error: exhaustion yields a minimal response
// and a panic anywhere in the pipeline yields an emergency response.
func (m *Manager) Execute(ctx context.Context, req domain.MatchRequest, primary domain.AlgorithmID) (out Outcome) {
	log := observability.LoggerFromContext(ctx)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error("match pipeline panicked", "algorithm", string(primary), "panic", fmt.Sprint(r))
			out = m.emergency(req, primary)
			stampProcessingTime(out.Matches, time.Since(start))
		}
	}()

	matches, err := m.runOne(ctx, req, primary)
	if err == nil {
		return Outcome{
			Matches:       matches,
			AlgorithmUsed: primary,
			Primary:       primary,
			Status:        domain.StatusOK,
		}
	}
	log.Warn("primary algorithm failed", "algorithm", string(primary), "error", err)

	if !req.Config.EnableFallback {
		out = m.minimal(req, primary, 0)
		stampProcessingTime(out.Matches, time.Since(start))
		return out
	}

	attempts := 0
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 5 * time.Millisecond
	bo.MaxInterval = 50 * time.Millisecond

	for _, alt := range Chains[primary] {
		if attempts >= m.cfg.MaxAttempts {
			break
		}
		if ctx.Err() != nil {
			break
		}
		if !m.breakers.AllowsExecution(alt) {
			observability.FallbackAttemptsTotal.WithLabelValues(string(primary), string(alt), "skipped_open").Inc()
			continue
		}
		if attempts > 0 {
			if !sleepCtx(ctx, bo.NextBackOff()) {
				break
			}
		}
		attempts++

		actx, cancel := context.WithTimeout(ctx, m.cfg.AttemptTimeout)
		matches, err = m.runOne(actx, req, alt)
		cancel()
		if err != nil {
			observability.FallbackAttemptsTotal.WithLabelValues(string(primary), string(alt), "failure").Inc()
			log.Warn("fallback attempt failed", "from", string(primary), "to", string(alt), "attempt", attempts, "error", err)
			continue
		}
		observability.FallbackAttemptsTotal.WithLabelValues(string(primary), string(alt), "success").Inc()
		return Outcome{
			Matches:       markFallback(matches, primary),
			AlgorithmUsed: alt,
			Primary:       primary,
			Fallback:      true,
			Attempts:      attempts,
			Status:        domain.StatusDegraded,
			Warning:       fmt.Sprintf("primary algorithm %s unavailable, served by %s", primary, alt),
		}
	}

	log.Error("all fallbacks exhausted, serving minimal response",
		"algorithm", string(primary), "attempts", attempts,
		"error", fmt.Errorf("op=fallback.Execute: %w", domain.ErrAllFallbacksFailed))
	out = m.minimal(req, primary, attempts)
	stampProcessingTime(out.Matches, time.Since(start))
	return out
}

// runOne adapts, executes under the breaker and normalizes for one
// algorithm.
func (m *Manager) runOne(ctx context.Context, req domain.MatchRequest, id domain.AlgorithmID) ([]domain.MatchResult, error) {
	candidate, offers, config, err := m.adapter.AdaptRequest(req, id)
	if err != nil {
		return nil, fmt.Errorf("op=fallback.runOne algorithm=%s: %w", id, err)
	}

	var native []domain.NativeResult
	start := time.Now()
	err = m.breakers.Call(ctx, id, func(cctx context.Context) error {
		var execErr error
		native, execErr = m.registry.Get(id).Execute(cctx, candidate, offers, config)
		return execErr
	})
	elapsed := time.Since(start)
	observability.AlgorithmExecutionDuration.WithLabelValues(string(id)).Observe(elapsed.Seconds())
	if err != nil {
		return nil, err
	}
	matches := m.adapter.NormalizeResults(native, id, req.Offers)
	stampProcessingTime(matches, elapsed)
	return matches, nil
}

// stampProcessingTime records the executor call's wall-clock time on every
// result it produced.
func stampProcessingTime(matches []domain.MatchResult, elapsed time.Duration) {
	ms := float64(elapsed) / float64(time.Millisecond)
	for i := range matches {
		matches[i].ProcessingTimeMS = ms
	}
}

// minimal builds the last-resort degraded response: one entry per offer in
// input order with slightly increasing scores so ordering stays stable.
func (m *Manager) minimal(req domain.MatchRequest, primary domain.AlgorithmID, attempts int) Outcome {
	observability.MinimalResponsesTotal.Inc()
	matches := make([]domain.MatchResult, 0, len(req.Offers))
	for i, offer := range req.Offers {
		score := m.cfg.MinimalScoreBase + 0.001*float64(i)
		matches = append(matches, domain.MatchResult{
			OfferID:       offer.ID,
			OverallScore:  score,
			Confidence:    m.cfg.DegradedConfidence,
			Categories:    domain.CategoryScores{Skills: score, Experience: score, Location: score, Culture: score},
			MatchedSkills: []string{},
			MissingSkills: []string{},
			Explanation:   "minimal response: no matching algorithm available",
			AlgorithmUsed: domain.AlgorithmMinimalFallback,
			IsFallback:    true,
		})
	}
	return Outcome{
		Matches:       matches,
		AlgorithmUsed: domain.AlgorithmMinimalFallback,
		Primary:       primary,
		Fallback:      true,
		Attempts:      attempts,
		Status:        domain.StatusDegraded,
		Warning:       "all matching algorithms unavailable, minimal response served",
	}
}

// emergency covers a panic in the pipeline: flat low scores for at most the
// first ten offers.
func (m *Manager) emergency(req domain.MatchRequest, primary domain.AlgorithmID) Outcome {
	offers := req.Offers
	if len(offers) > 10 {
		offers = offers[:10]
	}
	matches := make([]domain.MatchResult, 0, len(offers))
	for _, offer := range offers {
		matches = append(matches, domain.MatchResult{
			OfferID:       offer.ID,
			OverallScore:  0.2,
			Confidence:    0.1,
			MatchedSkills: []string{},
			MissingSkills: []string{},
			Explanation:   "emergency response: internal failure",
			AlgorithmUsed: domain.AlgorithmMinimalFallback,
			IsFallback:    true,
		})
	}
	return Outcome{
		Matches:       matches,
		AlgorithmUsed: domain.AlgorithmMinimalFallback,
		Primary:       primary,
		Fallback:      true,
		Status:        domain.StatusCriticalError,
		Warning:       "internal failure, emergency response served",
	}
}

// markFallback annotates results produced by an alternative algorithm.
// Confidence is discounted since the primary's scoring model was bypassed.
func markFallback(matches []domain.MatchResult, primary domain.AlgorithmID) []domain.MatchResult {
	for i := range matches {
		matches[i].IsFallback = true
		matches[i].OriginalAlgorithm = primary
		matches[i].Confidence *= fallbackConfidencePenalty
	}
	return matches
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
