// Package app wires configuration, middleware and handlers into the HTTP
// server.
package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	httpserver "github.com/fairyhunter13/match-orchestrator/internal/adapter/httpserver"
	"github.com/fairyhunter13/match-orchestrator/internal/config"
	"github.com/fairyhunter13/match-orchestrator/internal/observability"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TimeoutMiddleware(30 * time.Second))
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Rate limit the matching endpoint
	r.Group(func(mr chi.Router) {
		mr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, 1*time.Minute))
		mr.Post("/match", srv.HandleMatch())
	})

	// Health, config and metrics
	r.Get("/health", srv.HandleHealth())
	r.Get("/api/v2/health", srv.HandleDetailedHealth())
	r.Get("/config", srv.HandleConfig())
	r.Handle("/metrics", promhttp.Handler())

	// Administrative operations
	r.Route("/admin", func(ar chi.Router) {
		ar.Post("/circuits/{algorithm}/open", srv.HandleCircuitOpen())
		ar.Post("/circuits/{algorithm}/close", srv.HandleCircuitClose())
		ar.Post("/stats/reset", srv.HandleStatsReset())
		ar.Post("/abtests", srv.HandleABTestStart())
		ar.Get("/abtests", srv.HandleABTestList())
		ar.Get("/abtests/{name}", srv.HandleABTestResults())
		ar.Delete("/abtests/{name}", srv.HandleABTestStop())
	})

	traced := otelhttp.NewHandler(r, "http.server")
	return httpserver.SecurityHeaders(traced)
}
