// Command server starts the match orchestration HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fairyhunter13/match-orchestrator/internal/adapter/algorithms"
	httpserver "github.com/fairyhunter13/match-orchestrator/internal/adapter/httpserver"
	"github.com/fairyhunter13/match-orchestrator/internal/adapter/payload"
	"github.com/fairyhunter13/match-orchestrator/internal/app"
	"github.com/fairyhunter13/match-orchestrator/internal/config"
	"github.com/fairyhunter13/match-orchestrator/internal/observability"
	"github.com/fairyhunter13/match-orchestrator/internal/service/breaker"
	"github.com/fairyhunter13/match-orchestrator/internal/service/fallback"
	"github.com/fairyhunter13/match-orchestrator/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Register all Prometheus metrics once per process.
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	// Shared runtime state: breakers, monitor, adapter cache.
	breakers := breaker.NewManager(breaker.Config{
		FailureThreshold:  cfg.BreakerFailureThreshold,
		RecoveryTimeout:   cfg.BreakerRecoveryTimeout,
		SuccessThreshold:  cfg.BreakerSuccessThreshold,
		CallTimeout:       cfg.CallTimeout,
		SlowCallThreshold: cfg.BreakerSlowCallThreshold,
	})
	monitor := observability.NewMonitor(cfg.PerfRingSize, observability.DefaultAlertThresholds())
	adapter := payload.New(cfg.AdapterCacheSize)

	// The built-in stub executors answer every algorithm id; real engines
	// plug in through the same registry.
	registry := algorithms.NewStubRegistry(cfg.StubLatency, cfg.MaxParallelRequests)

	pipeline := fallback.NewManager(registry, adapter, breakers, fallback.Config{
		AttemptTimeout:     cfg.FallbackTimeout,
		MaxAttempts:        cfg.MaxFallbackAttempts,
		MinimalScoreBase:   cfg.MinimalScoreBase,
		DegradedConfidence: cfg.DegradedConfidence,
	})
	selector := usecase.NewSelector(monitor, breakers, usecase.SelectorConfig{
		MaxResponseTimeMS: float64(cfg.MaxResponseTime.Milliseconds()),
		MinSuccessRate:    cfg.MinSuccessRate,
		PerformanceMode:   cfg.PerformanceMode,
	})
	orchestrator := usecase.NewOrchestrator(usecase.NewContextAnalyzer(), selector, pipeline, monitor, usecase.OrchestratorConfig{
		MaxResponseTime: cfg.MaxResponseTime,
	})

	srv := httpserver.NewServer(cfg, orchestrator, breakers, monitor)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
