package httpserver

import (
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/match-orchestrator/internal/domain"
)

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

type matchRequestDTO struct {
	Candidate              candidateDTO   `json:"candidate" validate:"required"`
	CandidateQuestionnaire map[string]any `json:"candidate_questionnaire,omitempty"`
	Offers                 []offerDTO     `json:"offers" validate:"max=500,dive"`
	Config                 *configDTO     `json:"config,omitempty"`
}

type candidateDTO struct {
	ID             string          `json:"id" validate:"required,max=100"`
	Name           string          `json:"name,omitempty" validate:"max=200"`
	Skills         []skillDTO      `json:"skills,omitempty" validate:"max=200,dive"`
	Experiences    []experienceDTO `json:"experiences,omitempty" validate:"max=100,dive"`
	Education      []educationDTO  `json:"education,omitempty" validate:"max=50,dive"`
	Certifications []string        `json:"certifications,omitempty" validate:"max=100"`
	Projects       []string        `json:"projects,omitempty" validate:"max=100"`
	Location       locationDTO     `json:"location,omitempty"`
	Preferences    *preferencesDTO `json:"preferences,omitempty"`
}

type skillDTO struct {
	Name     string  `json:"name" validate:"required,max=100"`
	Level    string  `json:"level,omitempty" validate:"omitempty,oneof=beginner intermediate advanced expert"`
	Years    float64 `json:"years,omitempty" validate:"gte=0,lte=60"`
	Category string  `json:"category,omitempty" validate:"max=100"`
}

type experienceDTO struct {
	Company        string   `json:"company,omitempty" validate:"max=200"`
	Title          string   `json:"title,omitempty" validate:"max=200"`
	DurationMonths int      `json:"duration_months" validate:"gte=0,lte=720"`
	Technologies   []string `json:"technologies,omitempty" validate:"max=100"`
	TeamSize       int      `json:"team_size,omitempty" validate:"gte=0"`
}

type educationDTO struct {
	Institution string `json:"institution,omitempty" validate:"max=200"`
	Degree      string `json:"degree,omitempty" validate:"max=200"`
	Field       string `json:"field,omitempty" validate:"max=200"`
	Year        int    `json:"year,omitempty" validate:"gte=0,lte=2100"`
}

type locationDTO struct {
	City      string   `json:"city,omitempty" validate:"max=200"`
	Country   string   `json:"country,omitempty" validate:"max=100"`
	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
}

type preferencesDTO struct {
	Mobility           string  `json:"mobility,omitempty" validate:"omitempty,oneof=local standard hybrid remote flexible"`
	MaxCommuteKM       float64 `json:"max_commute_km,omitempty" validate:"gte=0"`
	RelocationPossible bool    `json:"relocation_possible,omitempty"`
	RemoteAcceptable   bool    `json:"remote_acceptable,omitempty"`
}

type offerDTO struct {
	ID                   string             `json:"id" validate:"required,max=100"`
	Title                string             `json:"title,omitempty" validate:"max=200"`
	Company              string             `json:"company,omitempty" validate:"max=200"`
	RequiredSkills       []string           `json:"required_skills,omitempty" validate:"max=100"`
	PreferredSkills      []string           `json:"preferred_skills,omitempty" validate:"max=100"`
	Experience           *experienceBandDTO `json:"experience,omitempty"`
	Location             locationDTO        `json:"location,omitempty"`
	RemotePolicy         string             `json:"remote_policy,omitempty" validate:"omitempty,oneof=office hybrid remote"`
	CommuteKM            float64            `json:"commute_km,omitempty" validate:"gte=0"`
	Salary               *salaryDTO         `json:"salary,omitempty"`
	CompanyQuestionnaire map[string]any     `json:"company_questionnaire,omitempty"`
}

type experienceBandDTO struct {
	Min float64  `json:"min" validate:"gte=0,lte=60"`
	Max *float64 `json:"max,omitempty" validate:"omitempty,gte=0,lte=60"`
}

type salaryDTO struct {
	Min      float64 `json:"min" validate:"gte=0"`
	Max      float64 `json:"max" validate:"gte=0"`
	Currency string  `json:"currency,omitempty" validate:"max=10"`
}

type configDTO struct {
	Algorithm           string `json:"algorithm,omitempty" validate:"omitempty,oneof=auto nexten smart enhanced semantic hybrid"`
	EnableFallback      *bool  `json:"enable_fallback,omitempty"`
	IncludeExplanations bool   `json:"include_explanations,omitempty"`
	MaxResults          int    `json:"max_results,omitempty" validate:"gte=0,lte=1000"`
	UserID              string `json:"user_id,omitempty" validate:"max=200"`
}

func (dto matchRequestDTO) toDomain() domain.MatchRequest {
	req := domain.MatchRequest{
		Candidate:              dto.Candidate.toDomain(),
		CandidateQuestionnaire: dto.CandidateQuestionnaire,
		Config: domain.MatchConfig{
			Algorithm:      domain.AlgorithmAuto,
			EnableFallback: true,
		},
	}
	for _, o := range dto.Offers {
		req.Offers = append(req.Offers, o.toDomain())
	}
	if cfg := dto.Config; cfg != nil {
		if cfg.Algorithm != "" {
			req.Config.Algorithm = domain.AlgorithmID(cfg.Algorithm)
		}
		if cfg.EnableFallback != nil {
			req.Config.EnableFallback = *cfg.EnableFallback
		}
		req.Config.IncludeExplanations = cfg.IncludeExplanations
		req.Config.MaxResults = cfg.MaxResults
		req.Config.UserID = cfg.UserID
	}
	return req
}

func (dto candidateDTO) toDomain() domain.Candidate {
	c := domain.Candidate{
		ID:             dto.ID,
		Name:           dto.Name,
		Certifications: dto.Certifications,
		Projects:       dto.Projects,
		Location:       dto.Location.toDomain(),
	}
	for _, s := range dto.Skills {
		c.Skills = append(c.Skills, domain.Skill{
			Name:     s.Name,
			Level:    domain.SkillLevel(s.Level),
			Years:    s.Years,
			Category: s.Category,
		})
	}
	for _, e := range dto.Experiences {
		c.Experiences = append(c.Experiences, domain.Experience{
			Company:        e.Company,
			Title:          e.Title,
			DurationMonths: e.DurationMonths,
			Technologies:   e.Technologies,
			TeamSize:       e.TeamSize,
		})
	}
	for _, e := range dto.Education {
		c.Education = append(c.Education, domain.Education{
			Institution: e.Institution,
			Degree:      e.Degree,
			Field:       e.Field,
			Year:        e.Year,
		})
	}
	if p := dto.Preferences; p != nil {
		c.Preferences = &domain.Preferences{
			Mobility:           domain.MobilityType(p.Mobility),
			MaxCommuteKM:       p.MaxCommuteKM,
			RelocationPossible: p.RelocationPossible,
			RemoteAcceptable:   p.RemoteAcceptable,
		}
	}
	return c
}

func (dto offerDTO) toDomain() domain.Offer {
	o := domain.Offer{
		ID:                   dto.ID,
		Title:                dto.Title,
		Company:              dto.Company,
		RequiredSkills:       dto.RequiredSkills,
		PreferredSkills:      dto.PreferredSkills,
		Location:             dto.Location.toDomain(),
		RemotePolicy:         domain.RemotePolicy(dto.RemotePolicy),
		CommuteKM:            dto.CommuteKM,
		CompanyQuestionnaire: dto.CompanyQuestionnaire,
	}
	if e := dto.Experience; e != nil {
		o.Experience = domain.ExperienceBand{MinYears: e.Min, MaxYears: e.Max}
	}
	if s := dto.Salary; s != nil {
		o.Salary = &domain.SalaryBand{Min: s.Min, Max: s.Max, Currency: s.Currency}
	}
	return o
}

func (dto locationDTO) toDomain() domain.Location {
	return domain.Location{
		City:      dto.City,
		Country:   dto.Country,
		Latitude:  dto.Latitude,
		Longitude: dto.Longitude,
	}
}
