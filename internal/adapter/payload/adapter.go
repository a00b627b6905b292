// Package payload translates between the unified request/response shape and
// each algorithm's native shape. The adapter owns one canonical schema per
// direction; raw maps from executors never travel further into the core.
package payload

import (
	"fmt"
	"math"

	"github.com/fairyhunter13/match-orchestrator/internal/domain"
	"github.com/fairyhunter13/match-orchestrator/pkg/statx"
)

// Weight defaults shared by the four legacy algorithms. NEXTEN adds a
// questionnaire weight on top.
const (
	weightSkills        = 0.4
	weightExperience    = 0.3
	weightLocation      = 0.2
	weightCulture       = 0.1
	weightQuestionnaire = 0.1
)

// degradedExplanation marks results synthesized when normalization failed
// for one native record.
const degradedExplanation = "fallback: adapter normalization failed"

// Adapter performs bidirectional translation with a bounded, per-process
// fingerprint cache for the request direction.
type Adapter struct {
	cache *fingerprintCache
}

// New constructs an Adapter whose request cache holds up to cacheSize
// entries. cacheSize <= 0 disables caching.
func New(cacheSize int) *Adapter {
	return &Adapter{cache: newFingerprintCache(cacheSize)}
}

// AdaptRequest translates the unified request into the native candidate
// payload, offer payloads, and algorithm config for id.
func (a *Adapter) AdaptRequest(req domain.MatchRequest, id domain.AlgorithmID) (map[string]any, []map[string]any, map[string]any, error) {
	if !id.Valid() {
		return nil, nil, nil, fmt.Errorf("op=payload.AdaptRequest: %w: unknown algorithm %q", domain.ErrAdapterError, id)
	}

	key := fingerprint(req, string(id))
	if key != "" {
		if hit, ok := a.cache.get(key); ok {
			return hit.candidate, hit.offers, hit.config, nil
		}
	}

	var out adapted
	if id == domain.AlgorithmNexten {
		out = adapted{
			candidate: nextenCandidate(req),
			offers:    nextenOffers(req.Offers),
			config:    nextenConfig(),
		}
	} else {
		out = adapted{
			candidate: flatCandidate(req),
			offers:    flatOffers(req.Offers),
			config:    legacyConfig(id),
		}
	}

	if key != "" {
		a.cache.put(key, out)
	}
	return out.candidate, out.offers, out.config, nil
}

// CacheLen reports the number of cached adaptations (diagnostics only).
func (a *Adapter) CacheLen() int { return a.cache.len() }

func nextenCandidate(req domain.MatchRequest) map[string]any {
	c := req.Candidate
	experiences := make([]map[string]any, 0, len(c.Experiences))
	for _, e := range c.Experiences {
		experiences = append(experiences, map[string]any{
			"company":         e.Company,
			"title":           e.Title,
			"duration_months": e.DurationMonths,
			"technologies":    e.Technologies,
			"team_size":       e.TeamSize,
		})
	}
	skills := make([]map[string]any, 0, len(c.Skills))
	for _, s := range c.Skills {
		skills = append(skills, map[string]any{
			"name":     s.Name,
			"level":    string(s.Level),
			"years":    s.Years,
			"category": s.Category,
		})
	}
	education := make([]map[string]any, 0, len(c.Education))
	for _, e := range c.Education {
		education = append(education, map[string]any{
			"institution": e.Institution,
			"degree":      e.Degree,
			"field":       e.Field,
			"year":        e.Year,
		})
	}
	prefs := map[string]any{}
	if c.Preferences != nil {
		prefs = map[string]any{
			"mobility":            string(c.Preferences.Mobility),
			"max_commute_km":      c.Preferences.MaxCommuteKM,
			"relocation_possible": c.Preferences.RelocationPossible,
			"remote_acceptable":   c.Preferences.RemoteAcceptable,
		}
	}
	return map[string]any{
		"cv": map[string]any{
			"personal_info": map[string]any{
				"id":   c.ID,
				"name": c.Name,
				"location": map[string]any{
					"city":    c.Location.City,
					"country": c.Location.Country,
				},
			},
			"experiences":    experiences,
			"skills":         skills,
			"education":      education,
			"certifications": c.Certifications,
		},
		"questionnaire": req.CandidateQuestionnaire,
		"preferences":   prefs,
	}
}

func nextenOffers(offers []domain.Offer) []map[string]any {
	out := make([]map[string]any, 0, len(offers))
	for _, o := range offers {
		requirements := map[string]any{
			"required_skills":  o.RequiredSkills,
			"preferred_skills": o.PreferredSkills,
			"experience_min":   o.Experience.MinYears,
		}
		if o.Experience.MaxYears != nil {
			requirements["experience_max"] = *o.Experience.MaxYears
		}
		conditions := map[string]any{
			"location": map[string]any{
				"city":    o.Location.City,
				"country": o.Location.Country,
			},
			"remote_policy": string(o.RemotePolicy),
			"commute_km":    o.CommuteKM,
		}
		if o.Salary != nil {
			conditions["salary"] = map[string]any{
				"min":      o.Salary.Min,
				"max":      o.Salary.Max,
				"currency": o.Salary.Currency,
			}
		}
		out = append(out, map[string]any{
			"job_info":      map[string]any{"id": o.ID, "title": o.Title},
			"company_info":  map[string]any{"name": o.Company},
			"requirements":  requirements,
			"questionnaire": o.CompanyQuestionnaire,
			"conditions":    conditions,
		})
	}
	return out
}

func flatCandidate(req domain.MatchRequest) map[string]any {
	c := req.Candidate
	skills := make([]map[string]any, 0, len(c.Skills))
	for _, s := range c.Skills {
		skills = append(skills, map[string]any{
			"name":     s.Name,
			"level":    string(s.Level),
			"years":    s.Years,
			"category": s.Category,
		})
	}
	experiences := make([]map[string]any, 0, len(c.Experiences))
	for _, e := range c.Experiences {
		experiences = append(experiences, map[string]any{
			"company":         e.Company,
			"title":           e.Title,
			"duration_months": e.DurationMonths,
			"technologies":    e.Technologies,
			"team_size":       e.TeamSize,
		})
	}
	education := make([]map[string]any, 0, len(c.Education))
	for _, e := range c.Education {
		education = append(education, map[string]any{
			"institution": e.Institution,
			"degree":      e.Degree,
			"field":       e.Field,
			"year":        e.Year,
		})
	}
	out := map[string]any{
		"id":             c.ID,
		"name":           c.Name,
		"skills":         skills,
		"experiences":    experiences,
		"education":      education,
		"certifications": c.Certifications,
		"projects":       c.Projects,
		"location": map[string]any{
			"city":    c.Location.City,
			"country": c.Location.Country,
		},
	}
	if c.Preferences != nil {
		out["preferences"] = map[string]any{
			"mobility":            string(c.Preferences.Mobility),
			"max_commute_km":      c.Preferences.MaxCommuteKM,
			"relocation_possible": c.Preferences.RelocationPossible,
			"remote_acceptable":   c.Preferences.RemoteAcceptable,
		}
	}
	if len(req.CandidateQuestionnaire) > 0 {
		out["questionnaire"] = req.CandidateQuestionnaire
	}
	return out
}

func flatOffers(offers []domain.Offer) []map[string]any {
	out := make([]map[string]any, 0, len(offers))
	for _, o := range offers {
		m := map[string]any{
			"id":               o.ID,
			"title":            o.Title,
			"company":          o.Company,
			"required_skills":  o.RequiredSkills,
			"preferred_skills": o.PreferredSkills,
			"experience_min":   o.Experience.MinYears,
			"location": map[string]any{
				"city":    o.Location.City,
				"country": o.Location.Country,
			},
			"remote_policy": string(o.RemotePolicy),
			"commute_km":    o.CommuteKM,
		}
		if o.Experience.MaxYears != nil {
			m["experience_max"] = *o.Experience.MaxYears
		}
		if o.Salary != nil {
			m["salary"] = map[string]any{"min": o.Salary.Min, "max": o.Salary.Max, "currency": o.Salary.Currency}
		}
		if len(o.CompanyQuestionnaire) > 0 {
			m["company_questionnaire"] = o.CompanyQuestionnaire
		}
		out = append(out, m)
	}
	return out
}

func nextenConfig() map[string]any {
	return map[string]any{
		"weights": map[string]any{
			"skills":        weightSkills,
			"experience":    weightExperience,
			"location":      weightLocation,
			"culture":       weightCulture,
			"questionnaire": weightQuestionnaire,
		},
	}
}

func legacyConfig(id domain.AlgorithmID) map[string]any {
	return map[string]any{
		"algorithm": string(id),
		"weights": map[string]any{
			"skills":     weightSkills,
			"experience": weightExperience,
			"location":   weightLocation,
			"culture":    weightCulture,
		},
	}
}

// knownResultKeys are consumed during normalization; everything else is
// preserved under MatchResult.Metadata.
var knownResultKeys = map[string]struct{}{
	"offer_id":        {},
	"score":           {},
	"overall_score":   {},
	"confidence":      {},
	"category_scores": {},
	"matched_skills":  {},
	"missing_skills":  {},
	"explanation":     {},
	"insights":        {},
}

// NormalizeResults translates native records into unified results, one entry
// per input offer in offer order. Records that cannot be normalized, and
// offers with no record at all, yield degraded entries so the count law
// len(results) == len(offers) always holds.
func (a *Adapter) NormalizeResults(native []domain.NativeResult, id domain.AlgorithmID, offers []domain.Offer) []domain.MatchResult {
	byOffer := make(map[string]domain.NativeResult, len(native))
	for _, rec := range native {
		oid, ok := toString(rec["offer_id"])
		if !ok || oid == "" {
			continue
		}
		if _, dup := byOffer[oid]; !dup {
			byOffer[oid] = rec
		}
	}

	out := make([]domain.MatchResult, 0, len(offers))
	for _, offer := range offers {
		rec, ok := byOffer[offer.ID]
		if !ok {
			out = append(out, degradedResult(offer.ID, id))
			continue
		}
		res, err := normalizeOne(rec, offer.ID, id)
		if err != nil {
			out = append(out, degradedResult(offer.ID, id))
			continue
		}
		out = append(out, res)
	}
	return out
}

func normalizeOne(rec domain.NativeResult, offerID string, id domain.AlgorithmID) (domain.MatchResult, error) {
	raw, ok := rec["score"]
	if !ok {
		raw, ok = rec["overall_score"]
	}
	if !ok {
		return domain.MatchResult{}, fmt.Errorf("op=payload.normalizeOne: %w: missing score", domain.ErrAdapterError)
	}
	score, ok := toFloat(raw)
	if !ok || math.IsNaN(score) {
		return domain.MatchResult{}, fmt.Errorf("op=payload.normalizeOne: %w: unusable score %v", domain.ErrAdapterError, raw)
	}
	score = statx.Clamp01(score)

	confidence := 0.5
	if v, ok := toFloat(rec["confidence"]); ok && !math.IsNaN(v) {
		confidence = statx.Clamp01(v)
	}

	res := domain.MatchResult{
		OfferID:       offerID,
		OverallScore:  score,
		Confidence:    confidence,
		Categories:    categoryScores(rec["category_scores"], score),
		MatchedSkills: toStringSlice(rec["matched_skills"]),
		MissingSkills: toStringSlice(rec["missing_skills"]),
		AlgorithmUsed: id,
	}
	if s, ok := toString(rec["explanation"]); ok {
		res.Explanation = s
	}
	res.Insights = toStringSlice(rec["insights"])

	for k, v := range rec {
		if _, known := knownResultKeys[k]; known {
			continue
		}
		if res.Metadata == nil {
			res.Metadata = make(map[string]any)
		}
		res.Metadata[k] = v
	}
	return res, nil
}

func degradedResult(offerID string, id domain.AlgorithmID) domain.MatchResult {
	return domain.MatchResult{
		OfferID:      offerID,
		OverallScore: 0.5,
		Confidence:   0.2,
		Categories: domain.CategoryScores{
			Skills:     0.5,
			Experience: 0.5,
			Location:   0.5,
			Culture:    0.5,
		},
		Explanation:   degradedExplanation,
		AlgorithmUsed: id,
	}
}

func categoryScores(raw any, overall float64) domain.CategoryScores {
	cs := domain.CategoryScores{
		Skills:     overall,
		Experience: overall,
		Location:   overall,
		Culture:    overall,
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return cs
	}
	if v, ok := toFloat(m["skills"]); ok && !math.IsNaN(v) {
		cs.Skills = statx.Clamp01(v)
	}
	if v, ok := toFloat(m["experience"]); ok && !math.IsNaN(v) {
		cs.Experience = statx.Clamp01(v)
	}
	if v, ok := toFloat(m["location"]); ok && !math.IsNaN(v) {
		cs.Location = statx.Clamp01(v)
	}
	if v, ok := toFloat(m["culture"]); ok && !math.IsNaN(v) {
		cs.Culture = statx.Clamp01(v)
	}
	if v, ok := toFloat(m["questionnaire"]); ok && !math.IsNaN(v) {
		q := statx.Clamp01(v)
		cs.Questionnaire = &q
	}
	return cs
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func toStringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		out := make([]string, len(s))
		copy(out, s)
		return out
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}
