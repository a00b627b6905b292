package domain

import "time"

// SelectionReason is a small audit code explaining why an algorithm was
// chosen.
type SelectionReason string

const (
	ReasonCompleteData          SelectionReason = "complete_data"
	ReasonGeoCritical           SelectionReason = "geo_critical"
	ReasonSeniorNoQuestionnaire SelectionReason = "senior_no_questionnaire"
	ReasonHighSkills            SelectionReason = "high_skills"
	ReasonValidationRequired    SelectionReason = "validation_required"
	ReasonDefault               SelectionReason = "default"
	ReasonManual                SelectionReason = "manual"
	ReasonABTest                SelectionReason = "ab_test"
	ReasonFallbackCircuitOpen   SelectionReason = "fallback_after_circuit_open"
	ReasonFallbackDegradation   SelectionReason = "fallback_after_degradation"
)

// ResponseStatus flags how the pipeline fared for one request.
type ResponseStatus string

const (
	StatusOK            ResponseStatus = "ok"
	StatusDegraded      ResponseStatus = "degraded"
	StatusCriticalError ResponseStatus = "critical_error"
)

// CategoryScores holds per-dimension scores. Questionnaire is only set by
// algorithms that consume questionnaire data.
type CategoryScores struct {
	Skills        float64  `json:"skills"`
	Experience    float64  `json:"experience"`
	Location      float64  `json:"location"`
	Culture       float64  `json:"culture"`
	Questionnaire *float64 `json:"questionnaire,omitempty"`
}

// MatchResult is one scored candidate/offer pairing in the unified shape.
type MatchResult struct {
	OfferID           string         `json:"offer_id"`
	OverallScore      float64        `json:"overall_score"`
	Confidence        float64        `json:"confidence"`
	Categories        CategoryScores `json:"category_scores"`
	MatchedSkills     []string       `json:"matched_skills"`
	MissingSkills     []string       `json:"missing_skills"`
	Insights          []string       `json:"insights,omitempty"`
	Explanation       string         `json:"explanation,omitempty"`
	AlgorithmUsed     AlgorithmID    `json:"algorithm_used"`
	ProcessingTimeMS  float64        `json:"processing_time_ms"`
	IsFallback        bool           `json:"is_fallback,omitempty"`
	OriginalAlgorithm AlgorithmID    `json:"original_algorithm,omitempty"`
	// Metadata preserves unknown fields from native results.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// MatchMetadata describes how the response was produced.
type MatchMetadata struct {
	AlgorithmUsed   AlgorithmID     `json:"algorithm_used"`
	SelectionReason SelectionReason `json:"selection_reason"`
	Context         MatchContext    `json:"context_analysis"`
	ExecutionTimeMS int64           `json:"execution_time_ms"`
	Alternatives    []AlgorithmID   `json:"alternative_algorithms"`
	Degraded        bool            `json:"degraded,omitempty"`
	Fallback        bool            `json:"fallback,omitempty"`
}

// MatchResponse is the unified response: matches sorted descending by
// (overall_score, confidence), stable for equal keys.
type MatchResponse struct {
	Matches   []MatchResult  `json:"matches"`
	Metadata  MatchMetadata  `json:"metadata"`
	RequestID string         `json:"request_id"`
	Timestamp time.Time      `json:"timestamp"`
	Status    ResponseStatus `json:"status"`
	Warning   string         `json:"warning,omitempty"`
}
