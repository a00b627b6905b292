package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"route", "method"},
	)

	MatchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_requests_total",
			Help: "Total number of match requests by algorithm and status",
		},
		[]string{"algorithm", "status"},
	)
	MatchSelectionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_selection_total",
			Help: "Algorithm selections by algorithm and reason code",
		},
		[]string{"algorithm", "reason"},
	)
	AlgorithmExecutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "algorithm_execution_duration_seconds",
			Help:    "Executor call duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.08, 0.12, 0.2, 0.5, 1, 5},
		},
		[]string{"algorithm"},
	)
	FallbackAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallback_attempts_total",
			Help: "Fallback attempts by original algorithm, substitute, and outcome",
		},
		[]string{"from", "to", "outcome"},
	)
	MinimalResponsesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "minimal_responses_total",
			Help: "Synthetic minimal responses emitted after fallback exhaustion",
		},
	)
	CircuitState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state per algorithm (0=closed, 1=open, 2=half-open)",
		},
		[]string{"algorithm"},
	)
	CircuitTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Circuit breaker transitions by algorithm and target state",
		},
		[]string{"algorithm", "to"},
	)
)

// InitMetrics registers all Prometheus collectors once per process.
func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(MatchRequestsTotal)
	prometheus.MustRegister(MatchSelectionTotal)
	prometheus.MustRegister(AlgorithmExecutionDuration)
	prometheus.MustRegister(FallbackAttemptsTotal)
	prometheus.MustRegister(MinimalResponsesTotal)
	prometheus.MustRegister(CircuitState)
	prometheus.MustRegister(CircuitTransitionsTotal)
}

// HTTPMetricsMiddleware records request counts and durations per route.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := ""
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
