// Package usecase contains the orchestration core: context analysis,
// algorithm selection and the per-request match pipeline.
package usecase

import (
	"container/list"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/fairyhunter13/match-orchestrator/internal/domain"
	"github.com/fairyhunter13/match-orchestrator/pkg/statx"
)

const (
	analyzerCacheSize = 128

	// A candidate questionnaire is trusted when at least this many items
	// are answered with mostly non-empty values.
	minQuestionnaireItems = 10
	// A company questionnaire is trusted from this many populated fields.
	minCompanyQuestionnaireFields = 5
)

// ContextAnalyzer derives a MatchContext from a request. Analysis is pure;
// the small LRU cache only short-circuits repeated identical requests.
type ContextAnalyzer struct {
	mu      sync.Mutex
	index   map[string]*list.Element
	order   *list.List
	maxSize int
}

type analyzerEntry struct {
	key string
	ctx domain.MatchContext
}

func NewContextAnalyzer() *ContextAnalyzer {
	return &ContextAnalyzer{
		index:   make(map[string]*list.Element, analyzerCacheSize),
		order:   list.New(),
		maxSize: analyzerCacheSize,
	}
}

// Analyze computes the derived context for one request.
func (a *ContextAnalyzer) Analyze(req domain.MatchRequest) (domain.MatchContext, error) {
	if req.Candidate.ID == "" {
		return domain.MatchContext{}, fmt.Errorf("op=usecase.Analyze: %w: candidate id required", domain.ErrInvalidRequest)
	}

	key := a.fingerprint(req)
	if ctx, ok := a.lookup(key); ok {
		return ctx, nil
	}

	ctx := analyze(req)
	a.store(key, ctx)
	return ctx, nil
}

// fingerprint keys the cache by candidate identity, sorted offer ids and
// the algorithm hint. Payload content is deliberately excluded; the cache
// is non-authoritative and only short-circuits retried requests.
func (a *ContextAnalyzer) fingerprint(req domain.MatchRequest) string {
	ids := make([]string, 0, len(req.Offers))
	for _, o := range req.Offers {
		ids = append(ids, o.ID)
	}
	sort.Strings(ids)
	return fmt.Sprintf("%s|%s|%s", req.Candidate.ID, strings.Join(ids, ","), req.Config.Algorithm)
}

func (a *ContextAnalyzer) lookup(key string) (domain.MatchContext, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	el, ok := a.index[key]
	if !ok {
		return domain.MatchContext{}, false
	}
	a.order.MoveToFront(el)
	return el.Value.(*analyzerEntry).ctx, true
}

func (a *ContextAnalyzer) store(key string, ctx domain.MatchContext) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if el, ok := a.index[key]; ok {
		el.Value.(*analyzerEntry).ctx = ctx
		a.order.MoveToFront(el)
		return
	}
	a.index[key] = a.order.PushFront(&analyzerEntry{key: key, ctx: ctx})
	for a.order.Len() > a.maxSize {
		oldest := a.order.Back()
		a.order.Remove(oldest)
		delete(a.index, oldest.Value.(*analyzerEntry).key)
	}
}

func analyze(req domain.MatchRequest) domain.MatchContext {
	ctx := domain.MatchContext{
		SkillsCount: len(req.Candidate.Skills),
		OfferCount:  len(req.Offers),
	}

	for _, exp := range req.Candidate.Experiences {
		ctx.ExperienceYears += float64(exp.DurationMonths) / 12
	}
	ctx.Seniority = domain.SeniorityFromYears(ctx.ExperienceYears)

	ctx.Mobility = domain.MobilityStandard
	if prefs := req.Candidate.Preferences; prefs != nil {
		if prefs.Mobility != "" {
			ctx.Mobility = prefs.Mobility
		}
		ctx.MaxCommuteKM = prefs.MaxCommuteKM
		ctx.RelocationPossible = prefs.RelocationPossible
		ctx.RemoteAcceptable = prefs.RemoteAcceptable
	} else {
		// Without stated preferences nothing rules these out.
		ctx.RelocationPossible = true
		ctx.RemoteAcceptable = true
	}

	questionnaireRatio := analyzeQuestionnaire(req.CandidateQuestionnaire, &ctx)
	companyShare := analyzeCompanyQuestionnaires(req.Offers, &ctx)
	ctx.CVCompleteness = cvCompleteness(req.Candidate)
	ctx.DataCompleteness = statx.Clamp01(0.4*questionnaireRatio + 0.3*companyShare + 0.3*ctx.CVCompleteness)

	proximityShare := analyzeGeo(req.Offers, &ctx)

	if ctx.OfferCount > 0 {
		ctx.ComplexityScore = complexityScore(ctx, proximityShare)
	}
	ctx.RequiresValidation = ctx.ComplexityScore > 0.8 ||
		(ctx.Seniority == domain.SeniorityExpert && ctx.DataCompleteness < 0.5)

	switch {
	case ctx.SkillsCount >= 20:
		ctx.Analysis = domain.AnalysisSemanticPure
	case ctx.GeoCritical:
		ctx.Analysis = domain.AnalysisGeolocationFocused
	case ctx.ExperienceYears >= 7:
		ctx.Analysis = domain.AnalysisExperienceWeighted
	case ctx.ComplexityScore > 0.8:
		ctx.Analysis = domain.AnalysisHybridValidation
	default:
		ctx.Analysis = domain.AnalysisStandard
	}
	return ctx
}

// analyzeQuestionnaire scores the candidate questionnaire and decides
// whether it counts. An item is answered when its value is non-nil, and
// substantial when additionally non-empty.
func analyzeQuestionnaire(q map[string]any, ctx *domain.MatchContext) float64 {
	if len(q) == 0 {
		return 0
	}
	answered, nonEmpty := 0, 0
	for _, v := range q {
		if v == nil {
			continue
		}
		answered++
		if !isEmptyAnswer(v) {
			nonEmpty++
		}
	}
	completion := float64(answered) / float64(len(q))
	nonEmptyRatio := 0.0
	if answered > 0 {
		nonEmptyRatio = float64(nonEmpty) / float64(answered)
	}
	ctx.QuestionnaireCounted = completion > 0.8 &&
		answered >= minQuestionnaireItems &&
		nonEmptyRatio > 0.7
	return completion
}

// analyzeCompanyQuestionnaires returns the share of offers carrying a
// usable company questionnaire; half or more makes them count.
func analyzeCompanyQuestionnaires(offers []domain.Offer, ctx *domain.MatchContext) float64 {
	if len(offers) == 0 {
		return 0
	}
	good := 0
	for _, o := range offers {
		populated := 0
		for _, v := range o.CompanyQuestionnaire {
			if v != nil && !isEmptyAnswer(v) {
				populated++
			}
		}
		if populated >= minCompanyQuestionnaireFields {
			good++
		}
	}
	share := float64(good) / float64(len(offers))
	ctx.CompanyQuestionnairesCounted = share >= 0.5
	return share
}

// cvCompleteness averages presence scores over the five CV sections, each
// scored min(count/3, 1).
func cvCompleteness(c domain.Candidate) float64 {
	sections := []int{
		len(c.Experiences),
		len(c.Skills),
		len(c.Education),
		len(c.Certifications),
		len(c.Projects),
	}
	total := 0.0
	for _, n := range sections {
		score := float64(n) / 3
		if score > 1 {
			score = 1
		}
		total += score
	}
	return total / float64(len(sections))
}

// analyzeGeo applies the geo-critical rule and returns the share of offers
// requiring proximity under 30km.
func analyzeGeo(offers []domain.Offer, ctx *domain.MatchContext) float64 {
	constrained, proximity := 0, 0
	for _, o := range offers {
		if o.RemotePolicy == domain.RemoteOffice {
			constrained++
		}
		if o.CommuteKM > 0 && o.CommuteKM < 30 {
			proximity++
		}
	}
	constrainedRatio, proximityShare := 0.0, 0.0
	if len(offers) > 0 {
		constrainedRatio = float64(constrained) / float64(len(offers))
		proximityShare = float64(proximity) / float64(len(offers))
	}

	boundedCommute := ctx.MaxCommuteKM > 0 && ctx.MaxCommuteKM < 25
	ctx.GeoCritical = constrainedRatio > 0.7 ||
		boundedCommute ||
		(!ctx.RelocationPossible && !ctx.RemoteAcceptable) ||
		proximityShare > 0.6
	return proximityShare
}

func complexityScore(ctx domain.MatchContext, proximityShare float64) float64 {
	profile := minf(float64(ctx.SkillsCount)/20, 1)*0.5 + minf(ctx.ExperienceYears/15, 1)*0.5

	geo := proximityShare
	if ctx.GeoCritical {
		geo = 1
	}

	mobility := 0.4
	switch ctx.Mobility {
	case domain.MobilityLocal:
		mobility = 0.2
	case domain.MobilityRemote:
		mobility = 0.5
	case domain.MobilityHybrid:
		mobility = 0.6
	case domain.MobilityFlexible:
		mobility = 0.8
	}

	return statx.Clamp01(0.25*(1-ctx.DataCompleteness) +
		0.30*profile +
		0.20*geo +
		0.15*minf(float64(ctx.OfferCount)/50, 1) +
		0.10*mobility)
}

func isEmptyAnswer(v any) bool {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
