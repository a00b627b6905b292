package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/match-orchestrator/internal/domain"
)

type circuitActionDTO struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

// HandleCircuitOpen serves POST /admin/circuits/{algorithm}/open.
func (s *Server) HandleCircuitOpen() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := domain.AlgorithmID(chi.URLParam(r, "algorithm"))
		var dto circuitActionDTO
		_ = json.NewDecoder(r.Body).Decode(&dto)
		if dto.Reason == "" {
			dto.Reason = "manual"
		}
		if err := s.Breakers.ForceOpen(id, dto.Reason); err != nil {
			writeError(w, r, err, nil)
			return
		}
		LoggerFrom(r).Warn("circuit forced open", "algorithm", string(id), "reason", dto.Reason)
		writeJSON(w, http.StatusOK, map[string]any{"algorithm": id, "state": "open"})
	}
}

// HandleCircuitClose serves POST /admin/circuits/{algorithm}/close.
func (s *Server) HandleCircuitClose() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := domain.AlgorithmID(chi.URLParam(r, "algorithm"))
		var dto circuitActionDTO
		_ = json.NewDecoder(r.Body).Decode(&dto)
		if dto.Reason == "" {
			dto.Reason = "manual"
		}
		if err := s.Breakers.ForceClose(id, dto.Reason); err != nil {
			writeError(w, r, err, nil)
			return
		}
		LoggerFrom(r).Warn("circuit forced closed", "algorithm", string(id), "reason", dto.Reason)
		writeJSON(w, http.StatusOK, map[string]any{"algorithm": id, "state": "closed"})
	}
}

// HandleStatsReset serves POST /admin/stats/reset. Active A/B tests survive
// a reset; their per-arm counters start over.
func (s *Server) HandleStatsReset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Monitor.Reset()
		LoggerFrom(r).Warn("performance stats reset")
		writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
	}
}

type startABTestDTO struct {
	Name         string  `json:"name" validate:"required,max=100"`
	AlgorithmA   string  `json:"algorithm_a" validate:"required,oneof=nexten smart enhanced semantic hybrid"`
	AlgorithmB   string  `json:"algorithm_b" validate:"required,oneof=nexten smart enhanced semantic hybrid"`
	TrafficSplit float64 `json:"traffic_split" validate:"gte=0,lte=1"`
}

// HandleABTestStart serves POST /admin/abtests.
func (s *Server) HandleABTestStart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var dto startABTestDTO
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			writeError(w, r, fmt.Errorf("%w: malformed json: %v", domain.ErrInvalidRequest, err), nil)
			return
		}
		if err := getValidator().Struct(dto); err != nil {
			writeError(w, r, fmt.Errorf("%w: validation failed: %v", domain.ErrInvalidRequest, err), nil)
			return
		}
		if err := s.Monitor.StartABTest(dto.Name, domain.AlgorithmID(dto.AlgorithmA), domain.AlgorithmID(dto.AlgorithmB), dto.TrafficSplit); err != nil {
			writeError(w, r, err, nil)
			return
		}
		LoggerFrom(r).Info("ab test started", "name", dto.Name,
			"algorithm_a", dto.AlgorithmA, "algorithm_b", dto.AlgorithmB, "split", dto.TrafficSplit)
		writeJSON(w, http.StatusCreated, map[string]string{"name": dto.Name, "status": "started"})
	}
}

// HandleABTestStop serves DELETE /admin/abtests/{name}.
func (s *Server) HandleABTestStop() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if err := s.Monitor.StopABTest(name); err != nil {
			writeError(w, r, err, nil)
			return
		}
		LoggerFrom(r).Info("ab test stopped", "name", name)
		writeJSON(w, http.StatusOK, map[string]string{"name": name, "status": "stopped"})
	}
}

// HandleABTestResults serves GET /admin/abtests/{name}.
func (s *Server) HandleABTestResults() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := s.Monitor.ABResults(chi.URLParam(r, "name"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

// HandleABTestList serves GET /admin/abtests.
func (s *Server) HandleABTestList() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"active": s.Monitor.ActiveABTests()})
	}
}
