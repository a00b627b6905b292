package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/match-orchestrator/internal/domain"
	"github.com/fairyhunter13/match-orchestrator/internal/observability"
	"github.com/fairyhunter13/match-orchestrator/internal/service/fallback"
)

// Pipeline executes a request with hierarchical fallback.
type Pipeline interface {
	Execute(ctx context.Context, req domain.MatchRequest, primary domain.AlgorithmID) fallback.Outcome
}

// PerfSink receives per-call performance records and A/B routing.
type PerfSink interface {
	Record(rec observability.PerfRecord)
	Assign(userID string) (domain.AlgorithmID, string, bool)
	RecordABOutcome(testName string, arm domain.AlgorithmID, elapsedMS float64, success bool)
}

// OrchestratorConfig carries the per-request budget knobs.
type OrchestratorConfig struct {
	// MaxResponseTime is the end-to-end latency budget; when it runs out,
	// remaining fallback attempts are skipped.
	MaxResponseTime time.Duration
}

// Orchestrator drives the per-request lifecycle: analyze, select, execute
// with fallback, rank and respond.
type Orchestrator struct {
	analyzer *ContextAnalyzer
	selector *Selector
	pipeline Pipeline
	monitor  PerfSink
	cfg      OrchestratorConfig
}

func NewOrchestrator(analyzer *ContextAnalyzer, selector *Selector, pipeline Pipeline, monitor PerfSink, cfg OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		analyzer: analyzer,
		selector: selector,
		pipeline: pipeline,
		monitor:  monitor,
		cfg:      cfg,
	}
}

// Match runs one request through the full pipeline. Only an invalid request
// yields an error; every other failure class degrades into a response with
// a status flag.
func (o *Orchestrator) Match(ctx context.Context, req domain.MatchRequest) (domain.MatchResponse, error) {
	tctx, span := otel.Tracer("usecase").Start(ctx, "orchestrator.match")
	defer span.End()
	ctx = tctx
	start := time.Now()

	if err := req.Validate(); err != nil {
		return domain.MatchResponse{}, fmt.Errorf("op=usecase.Match: %w: %v", domain.ErrInvalidRequest, err)
	}

	matchCtx, err := o.analyzer.Analyze(req)
	if err != nil {
		return domain.MatchResponse{}, err
	}

	if len(req.Offers) == 0 {
		return o.respond(ctx, req, start, matchCtx, Selection{
			Algorithm: domain.AlgorithmNone,
			Reason:    domain.ReasonDefault,
		}, fallback.Outcome{
			Matches:       []domain.MatchResult{},
			AlgorithmUsed: domain.AlgorithmNone,
			Status:        domain.StatusOK,
		}, ""), nil
	}

	sel, abTest := o.selectAlgorithm(matchCtx, req.Config)
	span.SetAttributes(
		attribute.String("match.algorithm", string(sel.Algorithm)),
		attribute.String("match.reason", string(sel.Reason)),
	)
	observability.MatchSelectionTotal.WithLabelValues(string(sel.Algorithm), string(sel.Reason)).Inc()

	bctx := ctx
	cancel := func() {}
	if o.cfg.MaxResponseTime > 0 {
		bctx, cancel = context.WithTimeout(ctx, o.cfg.MaxResponseTime)
	}
	outcome := o.pipeline.Execute(bctx, req, sel.Algorithm)
	cancel()

	return o.respond(ctx, req, start, matchCtx, sel, outcome, abTest), nil
}

// selectAlgorithm routes through an active A/B test when the request is in
// auto mode and carries a user id; otherwise the rule cascade decides.
func (o *Orchestrator) selectAlgorithm(matchCtx domain.MatchContext, cfg domain.MatchConfig) (Selection, string) {
	auto := cfg.Algorithm == "" || cfg.Algorithm == domain.AlgorithmAuto
	if auto && cfg.UserID != "" {
		if arm, testName, ok := o.monitor.Assign(cfg.UserID); ok {
			return Selection{
				Algorithm:    arm,
				Reason:       domain.ReasonABTest,
				Alternatives: fallback.Chains[arm],
			}, testName
		}
	}
	return o.selector.Select(matchCtx, cfg), ""
}

func (o *Orchestrator) respond(ctx context.Context, req domain.MatchRequest, start time.Time, matchCtx domain.MatchContext, sel Selection, outcome fallback.Outcome, abTest string) domain.MatchResponse {
	matches := outcome.Matches
	if matches == nil {
		matches = []domain.MatchResult{}
	}

	// Selector-level replacement marks results as fallback even though the
	// execution itself succeeded first try.
	if sel.Original != "" && !outcome.Fallback {
		for i := range matches {
			matches[i].IsFallback = true
			matches[i].OriginalAlgorithm = sel.Original
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].OverallScore != matches[j].OverallScore {
			return matches[i].OverallScore > matches[j].OverallScore
		}
		return matches[i].Confidence > matches[j].Confidence
	})
	if limit := req.Config.MaxResults; limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	if !req.Config.IncludeExplanations {
		for i := range matches {
			matches[i].Explanation = ""
			matches[i].Insights = nil
		}
	}

	elapsed := time.Since(start)
	elapsedMS := float64(elapsed.Microseconds()) / 1000
	cancelled := ctx.Err() != nil
	success := outcome.Status == domain.StatusOK && !cancelled

	if outcome.AlgorithmUsed != domain.AlgorithmNone {
		o.monitor.Record(observability.PerfRecord{
			Timestamp:     time.Now(),
			Algorithm:     outcome.AlgorithmUsed,
			ElapsedMS:     elapsedMS,
			ResultCount:   len(matches),
			Success:       success,
			Cancelled:     cancelled,
			AvgConfidence: avgConfidence(matches),
			UserID:        req.Config.UserID,
		})
	}
	if abTest != "" {
		o.monitor.RecordABOutcome(abTest, sel.Algorithm, elapsedMS, success)
	}
	observability.MatchRequestsTotal.WithLabelValues(string(outcome.AlgorithmUsed), string(outcome.Status)).Inc()

	requestID := observability.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = ulid.Make().String()
	}

	return domain.MatchResponse{
		Matches: matches,
		Metadata: domain.MatchMetadata{
			AlgorithmUsed:   outcome.AlgorithmUsed,
			SelectionReason: sel.Reason,
			Context:         matchCtx,
			ExecutionTimeMS: elapsed.Milliseconds(),
			Alternatives:    sel.Alternatives,
			Degraded:        sel.Degraded || outcome.Status != domain.StatusOK,
			Fallback:        outcome.Fallback || sel.Original != "",
		},
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Status:    outcome.Status,
		Warning:   outcome.Warning,
	}
}

func avgConfidence(matches []domain.MatchResult) float64 {
	if len(matches) == 0 {
		return 0
	}
	total := 0.0
	for _, m := range matches {
		total += m.Confidence
	}
	return total / float64(len(matches))
}
