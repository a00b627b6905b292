package algorithms

import (
	"context"
	"strings"
	"time"

	"github.com/fairyhunter13/match-orchestrator/internal/domain"
)

// StubExecutor is a fast, deterministic scorer for local runs and tests.
// It scores by overlap between the candidate's skills and each offer's
// required skills, reading both the NEXTEN nested payload shape and the
// flat legacy shape.
type StubExecutor struct {
	id      domain.AlgorithmID
	latency time.Duration
}

// NewStub creates a stub executor for id with optional artificial latency.
func NewStub(id domain.AlgorithmID, latency time.Duration) *StubExecutor {
	return &StubExecutor{id: id, latency: latency}
}

// Name reports the algorithm this stub stands in for.
func (s *StubExecutor) Name() domain.AlgorithmID { return s.id }

// Execute produces one native record per offer.
func (s *StubExecutor) Execute(ctx context.Context, candidate map[string]any, offers []map[string]any, _ map[string]any) ([]domain.NativeResult, error) {
	if s.latency > 0 {
		select {
		case <-time.After(s.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	skills := candidateSkills(candidate)
	out := make([]domain.NativeResult, 0, len(offers))
	for _, offer := range offers {
		oid := offerID(offer)
		required := requiredSkills(offer)
		matched := make([]string, 0, len(required))
		missing := make([]string, 0, len(required))
		for _, r := range required {
			if _, ok := skills[strings.ToLower(r)]; ok {
				matched = append(matched, r)
			} else {
				missing = append(missing, r)
			}
		}
		base := 1.0
		if len(required) > 0 {
			base = float64(len(matched)) / float64(len(required))
		}
		out = append(out, domain.NativeResult{
			"offer_id":       oid,
			"score":          0.3 + 0.6*base,
			"confidence":     0.5 + 0.4*base,
			"matched_skills": matched,
			"missing_skills": missing,
			"category_scores": map[string]any{
				"skills":     base,
				"experience": 0.5 + 0.3*base,
				"location":   0.6,
				"culture":    0.5,
			},
			"engine": "stub",
		})
	}
	return out, nil
}

// candidateSkills extracts lowercase skill names from either payload shape.
func candidateSkills(candidate map[string]any) map[string]struct{} {
	raw := candidate["skills"]
	if cv, ok := candidate["cv"].(map[string]any); ok {
		raw = cv["skills"]
	}
	out := make(map[string]struct{})
	entries, ok := raw.([]map[string]any)
	if !ok {
		if anys, ok2 := raw.([]any); ok2 {
			for _, e := range anys {
				if m, ok3 := e.(map[string]any); ok3 {
					if name, ok4 := m["name"].(string); ok4 {
						out[strings.ToLower(name)] = struct{}{}
					}
				}
			}
		}
		return out
	}
	for _, e := range entries {
		if name, ok := e["name"].(string); ok {
			out[strings.ToLower(name)] = struct{}{}
		}
	}
	return out
}

// offerID reads the offer id from either payload shape.
func offerID(offer map[string]any) string {
	if ji, ok := offer["job_info"].(map[string]any); ok {
		if id, ok := ji["id"].(string); ok {
			return id
		}
	}
	if id, ok := offer["id"].(string); ok {
		return id
	}
	return ""
}

// requiredSkills reads required skills from either payload shape.
func requiredSkills(offer map[string]any) []string {
	raw := offer["required_skills"]
	if reqs, ok := offer["requirements"].(map[string]any); ok {
		raw = reqs["required_skills"]
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
