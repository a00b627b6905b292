//go:build e2e
// +build e2e

// Package e2e_test exercises the match orchestration service over real
// HTTP: the full router, middleware chain and orchestration pipeline with
// the built-in stub executors.
package e2e_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/match-orchestrator/internal/adapter/algorithms"
	httpserver "github.com/fairyhunter13/match-orchestrator/internal/adapter/httpserver"
	"github.com/fairyhunter13/match-orchestrator/internal/adapter/payload"
	"github.com/fairyhunter13/match-orchestrator/internal/app"
	"github.com/fairyhunter13/match-orchestrator/internal/config"
	"github.com/fairyhunter13/match-orchestrator/internal/domain"
	"github.com/fairyhunter13/match-orchestrator/internal/observability"
	"github.com/fairyhunter13/match-orchestrator/internal/service/breaker"
	"github.com/fairyhunter13/match-orchestrator/internal/service/fallback"
	"github.com/fairyhunter13/match-orchestrator/internal/usecase"
)

func startServer(t *testing.T) (*httptest.Server, *breaker.Manager) {
	t.Helper()
	cfg := config.Config{
		RateLimitPerMin:  1000,
		CORSAllowOrigins: "*",
		MaxResponseTime:  2 * time.Second,
		MinSuccessRate:   0.85,
		PerformanceMode:  true,
	}
	breakers := breaker.NewManager(breaker.DefaultConfig())
	monitor := observability.NewMonitor(1000, observability.DefaultAlertThresholds())
	pipeline := fallback.NewManager(
		algorithms.NewStubRegistry(0, 10),
		payload.New(100), breakers, fallback.DefaultConfig())
	selector := usecase.NewSelector(monitor, breakers, usecase.SelectorConfig{
		MaxResponseTimeMS: 100, MinSuccessRate: 0.85, PerformanceMode: true,
	})
	orchestrator := usecase.NewOrchestrator(usecase.NewContextAnalyzer(), selector, pipeline, monitor,
		usecase.OrchestratorConfig{MaxResponseTime: 2 * time.Second})

	srv := httpserver.NewServer(cfg, orchestrator, breakers, monitor)
	ts := httptest.NewServer(app.BuildRouter(cfg, srv))
	t.Cleanup(ts.Close)
	return ts, breakers
}

func matchPayload(offers int) map[string]any {
	offerList := make([]map[string]any, 0, offers)
	for i := 0; i < offers; i++ {
		offerList = append(offerList, map[string]any{
			"id":              fmt.Sprintf("offer-%d", i+1),
			"title":           "backend engineer",
			"required_skills": []string{"go", "postgres"},
			"remote_policy":   "hybrid",
		})
	}
	return map[string]any{
		"candidate": map[string]any{
			"id": "cand-e2e",
			"skills": []map[string]any{
				{"name": "go"}, {"name": "postgres"}, {"name": "redis"},
			},
		},
		"offers": offerList,
	}
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func TestMatchEndToEnd(t *testing.T) {
	ts, _ := startServer(t)

	resp := postJSON(t, ts.URL+"/match", matchPayload(3))
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	var body domain.MatchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, domain.StatusOK, body.Status)
	require.Len(t, body.Matches, 3)
	for _, m := range body.Matches {
		assert.GreaterOrEqual(t, m.OverallScore, 0.0)
		assert.LessOrEqual(t, m.OverallScore, 1.0)
	}
}

func TestMatchDegradesWhenAllCircuitsOpen(t *testing.T) {
	ts, breakers := startServer(t)
	for _, id := range domain.AllAlgorithms {
		require.NoError(t, breakers.ForceOpen(id, "e2e"))
	}

	resp := postJSON(t, ts.URL+"/match", matchPayload(2))
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body domain.MatchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, domain.StatusDegraded, body.Status)
	assert.Equal(t, domain.AlgorithmMinimalFallback, body.Metadata.AlgorithmUsed)
	assert.Len(t, body.Matches, 2)
}

func TestAdminCircuitControlOverHTTP(t *testing.T) {
	ts, breakers := startServer(t)

	resp := postJSON(t, ts.URL+"/admin/circuits/nexten/open", map[string]string{"reason": "e2e"})
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, breakers.AllowsExecution(domain.AlgorithmNexten))

	resp = postJSON(t, ts.URL+"/admin/circuits/nexten/close", nil)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, breakers.AllowsExecution(domain.AlgorithmNexten))
}

func TestDetailedHealthOverHTTP(t *testing.T) {
	ts, _ := startServer(t)
	resp, err := http.Get(ts.URL + "/api/v2/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health["status"])
}
