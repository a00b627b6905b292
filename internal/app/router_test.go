package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpserver "github.com/fairyhunter13/match-orchestrator/internal/adapter/httpserver"
	"github.com/fairyhunter13/match-orchestrator/internal/config"
	"github.com/fairyhunter13/match-orchestrator/internal/domain"
	"github.com/fairyhunter13/match-orchestrator/internal/observability"
	"github.com/fairyhunter13/match-orchestrator/internal/service/breaker"
)

func TestParseOrigins(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "", want: []string{"*"}},
		{in: "*", want: []string{"*"}},
		{in: "https://a.example", want: []string{"https://a.example"}},
		{in: " https://a.example , https://b.example ", want: []string{"https://a.example", "https://b.example"}},
		{in: " , ", want: []string{"*"}},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ParseOrigins(tc.in), "input %q", tc.in)
	}
}

type okMatcher struct{}

func (okMatcher) Match(context.Context, domain.MatchRequest) (domain.MatchResponse, error) {
	return domain.MatchResponse{Status: domain.StatusOK, Matches: []domain.MatchResult{}}, nil
}

func testRouter() http.Handler {
	cfg := config.Config{RateLimitPerMin: 100, CORSAllowOrigins: "*"}
	srv := httpserver.NewServer(cfg, okMatcher{},
		breaker.NewManager(breaker.DefaultConfig()),
		observability.NewMonitor(1000, observability.DefaultAlertThresholds()))
	return BuildRouter(cfg, srv)
}

func TestRouterRoutes(t *testing.T) {
	router := testRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v2/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/config", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := `{"candidate": {"id": "c1"}, "offers": []}`
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/match", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterSecurityHeadersAndRequestID(t *testing.T) {
	router := testRouter()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestRouterUnknownRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
