package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/scholar-rag/internal/bootstrap"
	"github.com/kirillkom/scholar-rag/internal/config"
	"github.com/kirillkom/scholar-rag/internal/observability/logging"
	"github.com/kirillkom/scholar-rag/internal/observability/metrics"
	"github.com/kirillkom/scholar-rag/internal/observability/tracing"
)

const serviceName = "worker"

func main() {
	cfg := config.Load()
	logger := logging.New(serviceName, logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.NATSEnabled {
		logger.Error("worker_requires_nats", "hint", "set NATS_ENABLED=true")
		os.Exit(1)
	}

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:  cfg.OTelEnabled,
		Endpoint: cfg.OTelEndpoint,
		Service:  "scholar-rag-" + serviceName,
	})
	if err != nil {
		logger.Error("tracing_init_failed", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg,
		bootstrap.WithMetrics(workerMetrics.Registry(), serviceName),
		bootstrap.WithQueueLag(func(lag time.Duration) {
			workerMetrics.ObserveQueueLag(lag)
		}),
	)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("worker_metrics_listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	if err := newWorker(app.Queue, app.ProcessUC, workerMetrics, logger).run(ctx); err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
