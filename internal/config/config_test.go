package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 80*time.Millisecond, cfg.CallTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.MaxResponseTime)
	assert.Equal(t, 5, cfg.BreakerFailureThreshold)
	assert.Equal(t, 30*time.Second, cfg.BreakerRecoveryTimeout)
	assert.Equal(t, 3, cfg.BreakerSuccessThreshold)
	assert.Equal(t, 3, cfg.MaxFallbackAttempts)
	assert.Equal(t, 5*time.Second, cfg.FallbackTimeout)
	assert.Equal(t, 0.3, cfg.MinimalScoreBase)
	assert.Equal(t, 0.6, cfg.DegradedConfidence)
	assert.Equal(t, 10, cfg.MaxParallelRequests)
	assert.Equal(t, 1000, cfg.AdapterCacheSize)
	assert.Equal(t, 10000, cfg.PerfRingSize)
	assert.True(t, cfg.PerformanceMode)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("MATCH_CALL_TIMEOUT", "250ms")
	t.Setenv("BREAKER_FAILURE_THRESHOLD", "2")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsTest())
	assert.Equal(t, 250*time.Millisecond, cfg.CallTimeout)
	assert.Equal(t, 2, cfg.BreakerFailureThreshold)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "failure threshold zero", key: "BREAKER_FAILURE_THRESHOLD", value: "0"},
		{name: "success threshold zero", key: "BREAKER_SUCCESS_THRESHOLD", value: "0"},
		{name: "negative fallback attempts", key: "MAX_FALLBACK_ATTEMPTS", value: "-1"},
		{name: "success rate above one", key: "MIN_SUCCESS_RATE", value: "1.5"},
		{name: "perf ring too small", key: "PERF_RING_SIZE", value: "10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestEnvHelpers(t *testing.T) {
	cfg := Config{AppEnv: "PROD"}
	assert.True(t, cfg.IsProd())
	assert.False(t, cfg.IsDev())
	assert.False(t, cfg.IsTest())
}

func TestRedactedContainsBudget(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	m := cfg.Redacted()
	assert.Equal(t, "80ms", m["call_timeout"])
	assert.Equal(t, 3, m["max_fallback_attempts"])
}
