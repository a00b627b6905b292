package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/match-orchestrator/internal/config"
	"github.com/fairyhunter13/match-orchestrator/internal/domain"
	"github.com/fairyhunter13/match-orchestrator/internal/observability"
	"github.com/fairyhunter13/match-orchestrator/internal/service/breaker"
)

// maxRequestBody bounds the match payload; offers lists are large but
// bounded by validation anyway.
const maxRequestBody = 5 << 20

// Matcher runs one request through the orchestration pipeline.
type Matcher interface {
	Match(ctx context.Context, req domain.MatchRequest) (domain.MatchResponse, error)
}

// Server aggregates handler dependencies.
type Server struct {
	Cfg      config.Config
	Matcher  Matcher
	Breakers *breaker.Manager
	Monitor  *observability.Monitor
}

// NewServer constructs an HTTP server with all handlers wired.
func NewServer(cfg config.Config, matcher Matcher, breakers *breaker.Manager, monitor *observability.Monitor) *Server {
	return &Server{Cfg: cfg, Matcher: matcher, Breakers: breakers, Monitor: monitor}
}

// HandleMatch serves POST /match.
func (s *Server) HandleMatch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		var dto matchRequestDTO
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&dto); err != nil {
			writeError(w, r, fmt.Errorf("%w: malformed json: %v", domain.ErrInvalidRequest, err), nil)
			return
		}
		if err := getValidator().Struct(dto); err != nil {
			var verrs validator.ValidationErrors
			details := any(nil)
			if errors.As(err, &verrs) {
				fields := make([]string, 0, len(verrs))
				for _, fe := range verrs {
					fields = append(fields, fe.Namespace())
				}
				details = map[string]any{"fields": fields}
			}
			writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidRequest), details)
			return
		}

		resp, err := s.Matcher.Match(r.Context(), dto.toDomain())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleHealth serves GET /health (liveness).
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

type detailedHealth struct {
	Status     string                                              `json:"status"`
	Circuits   map[domain.AlgorithmID]breaker.Stats                `json:"circuits"`
	Algorithms map[domain.AlgorithmID]observability.AlgorithmStats `json:"algorithms"`
	ABTests    []string                                            `json:"active_ab_tests"`
}

// HandleDetailedHealth serves GET /api/v2/health: circuit states plus the
// per-algorithm performance summary. The service reports degraded once any
// circuit is open.
func (s *Server) HandleDetailedHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		circuits := s.Breakers.Snapshots()
		status := "ok"
		for _, st := range circuits {
			if st.State == breaker.StateOpen.String() {
				status = "degraded"
				break
			}
		}
		writeJSON(w, http.StatusOK, detailedHealth{
			Status:     status,
			Circuits:   circuits,
			Algorithms: s.Monitor.AllStats(),
			ABTests:    s.Monitor.ActiveABTests(),
		})
	}
}

// HandleConfig serves GET /config with the effective non-secret settings.
func (s *Server) HandleConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, s.Cfg.Redacted())
	}
}
