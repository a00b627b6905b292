// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv          string `env:"APP_ENV" envDefault:"dev"`
	Port            int    `env:"PORT" envDefault:"8080"`
	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"match-orchestrator"`

	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin       int           `env:"RATE_LIMIT_PER_MIN" envDefault:"120"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`

	// Orchestration budget. CallTimeout bounds a single executor call;
	// MaxResponseTime is the end-to-end latency budget one request may spend
	// before remaining fallback attempts are skipped.
	CallTimeout     time.Duration `env:"MATCH_CALL_TIMEOUT" envDefault:"80ms"`
	MaxResponseTime time.Duration `env:"MATCH_MAX_RESPONSE_TIME" envDefault:"100ms"`
	// PerformanceMode trades the heavier HYBRID selection rule for latency.
	PerformanceMode bool    `env:"MATCH_PERFORMANCE_MODE" envDefault:"true"`
	MinSuccessRate  float64 `env:"MIN_SUCCESS_RATE" envDefault:"0.85"`

	// Fallback chain tuning.
	FallbackTimeout     time.Duration `env:"FALLBACK_TIMEOUT" envDefault:"5s"`
	MaxFallbackAttempts int           `env:"MAX_FALLBACK_ATTEMPTS" envDefault:"3"`
	MinimalScoreBase    float64       `env:"MINIMAL_SCORE_BASE" envDefault:"0.3"`
	DegradedConfidence  float64       `env:"DEGRADED_CONFIDENCE" envDefault:"0.6"`

	// Circuit breaker parameters, applied per algorithm.
	BreakerFailureThreshold  int           `env:"BREAKER_FAILURE_THRESHOLD" envDefault:"5"`
	BreakerRecoveryTimeout   time.Duration `env:"BREAKER_RECOVERY_TIMEOUT" envDefault:"30s"`
	BreakerSuccessThreshold  int           `env:"BREAKER_SUCCESS_THRESHOLD" envDefault:"3"`
	BreakerSlowCallThreshold time.Duration `env:"BREAKER_SLOW_CALL_THRESHOLD" envDefault:"1s"`

	// Resource caps.
	MaxParallelRequests int `env:"MAX_PARALLEL_REQUESTS" envDefault:"10"`
	AdapterCacheSize    int `env:"ADAPTER_CACHE_SIZE" envDefault:"1000"`
	PerfRingSize        int `env:"PERF_RING_SIZE" envDefault:"10000"`

	// StubLatency adds artificial latency to the built-in stub executors so
	// that timeout and slow-call behavior can be exercised locally.
	StubLatency time.Duration `env:"STUB_LATENCY" envDefault:"0"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.BreakerFailureThreshold < 1 {
		return fmt.Errorf("breaker failure threshold must be >= 1, got %d", c.BreakerFailureThreshold)
	}
	if c.BreakerSuccessThreshold < 1 {
		return fmt.Errorf("breaker success threshold must be >= 1, got %d", c.BreakerSuccessThreshold)
	}
	if c.MaxFallbackAttempts < 0 {
		return fmt.Errorf("max fallback attempts must be >= 0, got %d", c.MaxFallbackAttempts)
	}
	if c.MinSuccessRate < 0 || c.MinSuccessRate > 1 {
		return fmt.Errorf("min success rate must be within [0,1], got %v", c.MinSuccessRate)
	}
	if c.PerfRingSize < 1000 {
		return fmt.Errorf("perf ring size must be >= 1000, got %d", c.PerfRingSize)
	}
	return nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// Redacted returns the effective configuration as a flat map suitable for
// the /config endpoint. There are no secrets in this config today; the
// indirection keeps the endpoint safe if some are added.
func (c Config) Redacted() map[string]any {
	return map[string]any{
		"app_env":                     c.AppEnv,
		"port":                        c.Port,
		"otel_service_name":           c.OTELServiceName,
		"rate_limit_per_min":          c.RateLimitPerMin,
		"call_timeout":                c.CallTimeout.String(),
		"max_response_time":           c.MaxResponseTime.String(),
		"performance_mode":            c.PerformanceMode,
		"min_success_rate":            c.MinSuccessRate,
		"fallback_timeout":            c.FallbackTimeout.String(),
		"max_fallback_attempts":       c.MaxFallbackAttempts,
		"minimal_score_base":          c.MinimalScoreBase,
		"degraded_confidence":         c.DegradedConfidence,
		"breaker_failure_threshold":   c.BreakerFailureThreshold,
		"breaker_recovery_timeout":    c.BreakerRecoveryTimeout.String(),
		"breaker_success_threshold":   c.BreakerSuccessThreshold,
		"breaker_slow_call_threshold": c.BreakerSlowCallThreshold.String(),
		"max_parallel_requests":       c.MaxParallelRequests,
		"adapter_cache_size":          c.AdapterCacheSize,
		"perf_ring_size":              c.PerfRingSize,
	}
}
