package domain

// SeniorityLevel buckets total professional experience.
type SeniorityLevel string

const (
	SeniorityJunior SeniorityLevel = "junior"
	SeniorityMid    SeniorityLevel = "mid"
	SenioritySenior SeniorityLevel = "senior"
	SeniorityExpert SeniorityLevel = "expert"
)

// SeniorityFromYears maps total experience years onto the four buckets:
// junior <2y, mid 2-5y, senior 5-10y, expert >=10y.
func SeniorityFromYears(years float64) SeniorityLevel {
	switch {
	case years < 2:
		return SeniorityJunior
	case years < 5:
		return SeniorityMid
	case years < 10:
		return SenioritySenior
	default:
		return SeniorityExpert
	}
}

// AnalysisType names the analysis strategy derived for a request.
type AnalysisType string

const (
	AnalysisStandard           AnalysisType = "standard"
	AnalysisSemanticPure       AnalysisType = "semantic_pure"
	AnalysisGeolocationFocused AnalysisType = "geolocation_focused"
	AnalysisExperienceWeighted AnalysisType = "experience_weighted"
	AnalysisHybridValidation   AnalysisType = "hybrid_validation"
)

// MatchContext is the derived, read-only summary of one request that drives
// algorithm selection. Produced once per request by the context analyzer.
type MatchContext struct {
	DataCompleteness             float64        `json:"data_completeness"`
	QuestionnaireCounted         bool           `json:"questionnaire_counted"`
	CompanyQuestionnairesCounted bool           `json:"company_questionnaires_counted"`
	CVCompleteness               float64        `json:"cv_completeness"`
	ExperienceYears              float64        `json:"experience_years"`
	Seniority                    SeniorityLevel `json:"seniority_level"`
	Mobility                     MobilityType   `json:"mobility_type"`
	SkillsCount                  int            `json:"skills_count"`
	GeoCritical                  bool           `json:"geo_critical"`
	MaxCommuteKM                 float64        `json:"max_commute_km"`
	RelocationPossible           bool           `json:"relocation_possible"`
	RemoteAcceptable             bool           `json:"remote_acceptable"`
	ComplexityScore              float64        `json:"complexity_score"`
	RequiresValidation           bool           `json:"requires_validation"`
	Analysis                     AnalysisType   `json:"analysis_type"`
	OfferCount                   int            `json:"offer_count"`
}
