package usecase

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/match-orchestrator/internal/domain"
)

func questionnaire(answered int) map[string]any {
	q := make(map[string]any, answered)
	for i := 0; i < answered; i++ {
		q[fmt.Sprintf("q%02d", i)] = fmt.Sprintf("answer %d", i)
	}
	return q
}

func companyQuestionnaire(fields int) map[string]any {
	q := make(map[string]any, fields)
	for i := 0; i < fields; i++ {
		q[fmt.Sprintf("f%02d", i)] = "value"
	}
	return q
}

func candidateWithSkills(n int) domain.Candidate {
	c := domain.Candidate{ID: "cand-1"}
	for i := 0; i < n; i++ {
		c.Skills = append(c.Skills, domain.Skill{Name: fmt.Sprintf("skill-%d", i)})
	}
	return c
}

func TestAnalyzeRejectsMissingCandidateID(t *testing.T) {
	a := NewContextAnalyzer()
	_, err := a.Analyze(domain.MatchRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestAnalyzeSeniorityBuckets(t *testing.T) {
	tests := []struct {
		months int
		want   domain.SeniorityLevel
	}{
		{months: 12, want: domain.SeniorityJunior},
		{months: 36, want: domain.SeniorityMid},
		{months: 84, want: domain.SenioritySenior},
		{months: 150, want: domain.SeniorityExpert},
	}
	a := NewContextAnalyzer()
	for _, tc := range tests {
		req := domain.MatchRequest{Candidate: domain.Candidate{
			ID:          fmt.Sprintf("cand-%d", tc.months),
			Experiences: []domain.Experience{{DurationMonths: tc.months}},
		}}
		ctx, err := a.Analyze(req)
		require.NoError(t, err)
		assert.Equal(t, tc.want, ctx.Seniority, "months=%d", tc.months)
	}
}

func TestAnalyzeQuestionnaireCounting(t *testing.T) {
	a := NewContextAnalyzer()

	req := domain.MatchRequest{
		Candidate:              domain.Candidate{ID: "cand-1"},
		CandidateQuestionnaire: questionnaire(12),
	}
	ctx, err := a.Analyze(req)
	require.NoError(t, err)
	assert.True(t, ctx.QuestionnaireCounted, "12 substantial answers count")

	// Too few answered items.
	req.Candidate.ID = "cand-2"
	req.CandidateQuestionnaire = questionnaire(9)
	ctx, err = a.Analyze(req)
	require.NoError(t, err)
	assert.False(t, ctx.QuestionnaireCounted)

	// Enough items but mostly empty answers.
	q := questionnaire(12)
	for i := 0; i < 6; i++ {
		q[fmt.Sprintf("q%02d", i)] = ""
	}
	req.Candidate.ID = "cand-3"
	req.CandidateQuestionnaire = q
	ctx, err = a.Analyze(req)
	require.NoError(t, err)
	assert.False(t, ctx.QuestionnaireCounted, "non-empty ratio 0.5 is below 0.7")
}

func TestAnalyzeCompanyQuestionnaireShare(t *testing.T) {
	a := NewContextAnalyzer()
	req := domain.MatchRequest{
		Candidate: domain.Candidate{ID: "cand-1"},
		Offers: []domain.Offer{
			{ID: "o1", CompanyQuestionnaire: companyQuestionnaire(7)},
			{ID: "o2", CompanyQuestionnaire: companyQuestionnaire(4)},
		},
	}
	ctx, err := a.Analyze(req)
	require.NoError(t, err)
	assert.True(t, ctx.CompanyQuestionnairesCounted, "half the offers carry >=5 populated fields")

	req.Candidate.ID = "cand-2"
	req.Offers[0].CompanyQuestionnaire = companyQuestionnaire(3)
	ctx, err = a.Analyze(req)
	require.NoError(t, err)
	assert.False(t, ctx.CompanyQuestionnairesCounted)
}

func TestAnalyzeGeoCritical(t *testing.T) {
	tests := []struct {
		name  string
		prefs *domain.Preferences
		offer domain.Offer
		want  bool
	}{
		{
			name:  "low max commute",
			prefs: &domain.Preferences{MaxCommuteKM: 10, RelocationPossible: true, RemoteAcceptable: true},
			offer: domain.Offer{ID: "o1", RemotePolicy: domain.RemoteFull},
			want:  true,
		},
		{
			name:  "no relocation and no remote",
			prefs: &domain.Preferences{MaxCommuteKM: 100},
			offer: domain.Offer{ID: "o1", RemotePolicy: domain.RemoteFull},
			want:  true,
		},
		{
			name:  "office offers dominate",
			prefs: &domain.Preferences{MaxCommuteKM: 100, RelocationPossible: true, RemoteAcceptable: true},
			offer: domain.Offer{ID: "o1", RemotePolicy: domain.RemoteOffice},
			want:  true,
		},
		{
			name:  "proximity requirement dominates",
			prefs: &domain.Preferences{MaxCommuteKM: 100, RelocationPossible: true, RemoteAcceptable: true},
			offer: domain.Offer{ID: "o1", RemotePolicy: domain.RemoteFull, CommuteKM: 20},
			want:  true,
		},
		{
			name:  "unconstrained",
			prefs: &domain.Preferences{RelocationPossible: true, RemoteAcceptable: true},
			offer: domain.Offer{ID: "o1", RemotePolicy: domain.RemoteFull},
			want:  false,
		},
	}
	a := NewContextAnalyzer()
	for i, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := domain.MatchRequest{
				Candidate: domain.Candidate{ID: fmt.Sprintf("geo-%d", i), Preferences: tc.prefs},
				Offers:    []domain.Offer{tc.offer},
			}
			ctx, err := a.Analyze(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ctx.GeoCritical)
		})
	}
}

func TestAnalyzeAnalysisTypeOrder(t *testing.T) {
	a := NewContextAnalyzer()

	// 20+ skills wins over everything, even a geo-critical profile.
	req := domain.MatchRequest{
		Candidate: candidateWithSkills(20),
		Offers:    []domain.Offer{{ID: "o1", RemotePolicy: domain.RemoteOffice}},
	}
	req.Candidate.Preferences = &domain.Preferences{MaxCommuteKM: 5}
	ctx, err := a.Analyze(req)
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisSemanticPure, ctx.Analysis)

	// Geo-critical beats experience weighting.
	req = domain.MatchRequest{
		Candidate: domain.Candidate{
			ID:          "cand-geo",
			Experiences: []domain.Experience{{DurationMonths: 120}},
			Preferences: &domain.Preferences{MaxCommuteKM: 5},
		},
		Offers: []domain.Offer{{ID: "o1", RemotePolicy: domain.RemoteFull}},
	}
	ctx, err = a.Analyze(req)
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisGeolocationFocused, ctx.Analysis)

	// Plain profile falls through to standard.
	req = domain.MatchRequest{
		Candidate: domain.Candidate{
			ID:          "cand-std",
			Preferences: &domain.Preferences{RelocationPossible: true, RemoteAcceptable: true},
		},
		Offers: []domain.Offer{{ID: "o1", RemotePolicy: domain.RemoteFull}},
	}
	ctx, err = a.Analyze(req)
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisStandard, ctx.Analysis)
}

func TestAnalyzeEmptyOffersZeroComplexity(t *testing.T) {
	a := NewContextAnalyzer()
	ctx, err := a.Analyze(domain.MatchRequest{Candidate: candidateWithSkills(15)})
	require.NoError(t, err)
	assert.Zero(t, ctx.ComplexityScore)
	assert.Zero(t, ctx.OfferCount)
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	req := domain.MatchRequest{
		Candidate:              candidateWithSkills(8),
		CandidateQuestionnaire: questionnaire(12),
		Offers: []domain.Offer{
			{ID: "o1", CompanyQuestionnaire: companyQuestionnaire(7)},
			{ID: "o2", CompanyQuestionnaire: companyQuestionnaire(7)},
		},
	}
	a := NewContextAnalyzer()
	first, err := a.Analyze(req)
	require.NoError(t, err)
	second, err := a.Analyze(req)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// A fresh analyzer computes the same context without the cache.
	third, err := NewContextAnalyzer().Analyze(req)
	require.NoError(t, err)
	assert.Equal(t, first, third)
}
