package usecase

import (
	"github.com/fairyhunter13/match-orchestrator/internal/domain"
	"github.com/fairyhunter13/match-orchestrator/internal/service/fallback"
)

// AlgorithmHealth exposes the degradation signals the selector consults
// before committing to an algorithm. Reads may be mildly stale.
type AlgorithmHealth interface {
	// P95Latency returns the recent p95 in milliseconds, 0 when unobserved.
	P95Latency(id domain.AlgorithmID) float64
	// SuccessRate returns the all-time success rate, 1 when unobserved.
	SuccessRate(id domain.AlgorithmID) float64
}

// CircuitGate reports whether an algorithm's circuit currently admits
// calls.
type CircuitGate interface {
	AllowsExecution(id domain.AlgorithmID) bool
}

// SelectorConfig tunes the degradation override.
type SelectorConfig struct {
	// MaxResponseTimeMS is the p95 ceiling above which an algorithm is
	// considered degraded.
	MaxResponseTimeMS float64
	MinSuccessRate    float64
	// PerformanceMode disables the heavier HYBRID complexity rule.
	PerformanceMode bool
}

// Selection is the selector's decision with its audit trail.
type Selection struct {
	Algorithm domain.AlgorithmID
	Reason    domain.SelectionReason
	// Original is set when the degradation override replaced the rule-based
	// choice.
	Original domain.AlgorithmID
	// Degraded marks a choice kept despite failing health checks because
	// no chain alternative qualified either.
	Degraded     bool
	Alternatives []domain.AlgorithmID
}

// Selector picks the algorithm for a request from its derived context.
type Selector struct {
	health AlgorithmHealth
	gate   CircuitGate
	cfg    SelectorConfig
}

func NewSelector(health AlgorithmHealth, gate CircuitGate, cfg SelectorConfig) *Selector {
	return &Selector{health: health, gate: gate, cfg: cfg}
}

// Select applies the ordered rules, then the degradation override. A manual
// config override wins outright but is still health-checked.
func (s *Selector) Select(ctx domain.MatchContext, cfg domain.MatchConfig) Selection {
	chosen, reason := selectByRules(ctx, cfg, s.cfg.PerformanceMode)
	sel := Selection{
		Algorithm:    chosen,
		Reason:       reason,
		Alternatives: fallback.Chains[chosen],
	}
	return s.applyDegradationOverride(sel)
}

// selectByRules is the pure rule cascade, first match wins.
func selectByRules(ctx domain.MatchContext, cfg domain.MatchConfig, performanceMode bool) (domain.AlgorithmID, domain.SelectionReason) {
	if cfg.Algorithm != "" && cfg.Algorithm != domain.AlgorithmAuto {
		return cfg.Algorithm, domain.ReasonManual
	}

	seniorOrExpert := ctx.Seniority == domain.SenioritySenior || ctx.Seniority == domain.SeniorityExpert

	switch {
	case ctx.QuestionnaireCounted && ctx.CompanyQuestionnairesCounted &&
		ctx.DataCompleteness > 0.7 && ctx.SkillsCount >= 5:
		return domain.AlgorithmNexten, domain.ReasonCompleteData

	case ctx.GeoCritical ||
		ctx.Mobility == domain.MobilityRemote || ctx.Mobility == domain.MobilityHybrid || ctx.Mobility == domain.MobilityFlexible ||
		(ctx.MaxCommuteKM > 0 && ctx.MaxCommuteKM < 25) ||
		!ctx.RelocationPossible:
		return domain.AlgorithmSmart, domain.ReasonGeoCritical

	case ctx.ExperienceYears >= 7 && !ctx.QuestionnaireCounted &&
		ctx.CVCompleteness > 0.6 && seniorOrExpert:
		return domain.AlgorithmEnhanced, domain.ReasonSeniorNoQuestionnaire

	case ctx.Analysis == domain.AnalysisSemanticPure ||
		ctx.SkillsCount >= 20 ||
		(seniorOrExpert && ctx.CVCompleteness > 0.8 && !ctx.QuestionnaireCounted):
		return domain.AlgorithmSemantic, domain.ReasonHighSkills

	case ctx.RequiresValidation ||
		ctx.ComplexityScore > 0.9 ||
		(ctx.Seniority == domain.SeniorityExpert && ctx.DataCompleteness > 0.4 && ctx.DataCompleteness < 0.8) ||
		(!performanceMode && ctx.ComplexityScore > 0.7):
		return domain.AlgorithmHybrid, domain.ReasonValidationRequired

	default:
		return domain.AlgorithmNexten, domain.ReasonDefault
	}
}

// applyDegradationOverride swaps a degraded or tripped choice for the first
// healthy entry of its fallback chain. When none qualifies the original
// stands, flagged degraded.
func (s *Selector) applyDegradationOverride(sel Selection) Selection {
	circuitOpen := !s.gate.AllowsExecution(sel.Algorithm)
	if !circuitOpen && s.healthy(sel.Algorithm) {
		return sel
	}

	for _, alt := range fallback.Chains[sel.Algorithm] {
		if !s.gate.AllowsExecution(alt) || !s.healthy(alt) {
			continue
		}
		reason := domain.ReasonFallbackDegradation
		if circuitOpen {
			reason = domain.ReasonFallbackCircuitOpen
		}
		return Selection{
			Algorithm:    alt,
			Reason:       reason,
			Original:     sel.Algorithm,
			Alternatives: fallback.Chains[alt],
		}
	}

	sel.Degraded = true
	return sel
}

func (s *Selector) healthy(id domain.AlgorithmID) bool {
	if p95 := s.health.P95Latency(id); s.cfg.MaxResponseTimeMS > 0 && p95 > s.cfg.MaxResponseTimeMS {
		return false
	}
	return s.health.SuccessRate(id) >= s.cfg.MinSuccessRate
}
