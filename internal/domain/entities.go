// Package domain holds the core entities, ports, and error taxonomy of the
// matching orchestration service. It stays free of transport and
// infrastructure concerns.
package domain

import (
	"context"
	"errors"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrAlgorithmTimeout   = errors.New("algorithm timeout")
	ErrAlgorithmFailure   = errors.New("algorithm failure")
	ErrCircuitOpen        = errors.New("circuit open")
	ErrAllFallbacksFailed = errors.New("all fallbacks failed")
	ErrAdapterError       = errors.New("adapter error")
	ErrCriticalFailure    = errors.New("critical failure")
)

// AlgorithmID identifies one of the registered matching algorithms.
type AlgorithmID string

const (
	AlgorithmNexten   AlgorithmID = "nexten"
	AlgorithmSmart    AlgorithmID = "smart"
	AlgorithmEnhanced AlgorithmID = "enhanced"
	AlgorithmSemantic AlgorithmID = "semantic"
	AlgorithmHybrid   AlgorithmID = "hybrid"

	// AlgorithmAuto lets the selector decide.
	AlgorithmAuto AlgorithmID = "auto"
	// AlgorithmNone marks responses that never reached an executor
	// (e.g. empty offer list).
	AlgorithmNone AlgorithmID = "none"
	// AlgorithmMinimalFallback marks synthetic last-resort responses.
	AlgorithmMinimalFallback AlgorithmID = "minimal_fallback"
)

// AllAlgorithms lists the executable algorithm ids in registry order.
var AllAlgorithms = []AlgorithmID{
	AlgorithmNexten,
	AlgorithmSmart,
	AlgorithmEnhanced,
	AlgorithmSemantic,
	AlgorithmHybrid,
}

// Valid reports whether id names an executable algorithm.
func (id AlgorithmID) Valid() bool {
	for _, a := range AllAlgorithms {
		if a == id {
			return true
		}
	}
	return false
}

// SkillLevel enumerates declared proficiency.
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
	SkillExpert       SkillLevel = "expert"
)

// MobilityType enumerates candidate mobility preferences.
type MobilityType string

const (
	MobilityLocal    MobilityType = "local"
	MobilityStandard MobilityType = "standard"
	MobilityHybrid   MobilityType = "hybrid"
	MobilityRemote   MobilityType = "remote"
	MobilityFlexible MobilityType = "flexible"
)

// RemotePolicy enumerates an offer's remote stance.
type RemotePolicy string

const (
	RemoteOffice RemotePolicy = "office"
	RemoteHybrid RemotePolicy = "hybrid"
	RemoteFull   RemotePolicy = "remote"
)

// Skill is one candidate skill with optional proficiency metadata.
type Skill struct {
	Name     string
	Level    SkillLevel
	Years    float64
	Category string
}

// Experience is one professional experience entry.
type Experience struct {
	Company        string
	Title          string
	DurationMonths int
	Technologies   []string
	TeamSize       int
}

// Education is one education entry.
type Education struct {
	Institution string
	Degree      string
	Field       string
	Year        int
}

// Location is a geographic position; coordinates are optional.
type Location struct {
	City      string
	Country   string
	Latitude  *float64
	Longitude *float64
}

// Preferences captures the candidate's mobility constraints.
// MaxCommuteKM == 0 means unbounded.
type Preferences struct {
	Mobility           MobilityType
	MaxCommuteKM       float64
	RelocationPossible bool
	RemoteAcceptable   bool
}

// Candidate is the immutable candidate profile of one request.
type Candidate struct {
	ID             string
	Name           string
	Skills         []Skill
	Experiences    []Experience
	Education      []Education
	Certifications []string
	Projects       []string
	Location       Location
	Preferences    *Preferences
}

// ExperienceBand is the offer's required experience range in years.
type ExperienceBand struct {
	MinYears float64
	MaxYears *float64
}

// SalaryBand is an optional salary range.
type SalaryBand struct {
	Min      float64
	Max      float64
	Currency string
}

// Offer is one job offer to match against. CommuteKM > 0 expresses a
// proximity requirement in kilometers.
type Offer struct {
	ID                   string
	Title                string
	Company              string
	RequiredSkills       []string
	PreferredSkills      []string
	Experience           ExperienceBand
	Location             Location
	RemotePolicy         RemotePolicy
	CommuteKM            float64
	Salary               *SalaryBand
	CompanyQuestionnaire map[string]any
}

// MatchConfig carries per-request overrides.
type MatchConfig struct {
	Algorithm           AlgorithmID
	EnableFallback      bool
	IncludeExplanations bool
	MaxResults          int
	UserID              string
}

// MatchRequest is the unified request shape: one candidate against an
// ordered list of offers. Immutable per call.
type MatchRequest struct {
	Candidate              Candidate
	CandidateQuestionnaire map[string]any
	Offers                 []Offer
	Config                 MatchConfig
}

// Validate checks the structural minimum the pipeline requires.
func (r MatchRequest) Validate() error {
	if r.Candidate.ID == "" {
		return errors.New("candidate id required")
	}
	return nil
}

// NativeResult is one loosely-shaped result record as produced by an
// executor. The payload adapter owns translation into MatchResult; raw maps
// never travel further into the core.
type NativeResult map[string]any

// Executor is the opaque algorithm capability. Implementations may block;
// callers bound them with context deadlines.
type Executor interface {
	// Execute scores the adapted candidate payload against the adapted
	// offer payloads and returns native result records, one per offer.
	Execute(ctx context.Context, candidate map[string]any, offers []map[string]any, config map[string]any) ([]NativeResult, error)
	// Name reports the algorithm this executor implements.
	Name() AlgorithmID
}
