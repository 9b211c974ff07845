// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"banking-assistant/internal/app"
	"banking-assistant/internal/common/camunda"
	"banking-assistant/internal/common/config"
	"banking-assistant/internal/common/logger"
	"banking-assistant/internal/common/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting banking assistant...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name, zapLog)
	defer obs.Shutdown()

	ctx := context.Background()

	application, err := app.New(ctx, cfg, log, app.WithObservability(obs))
	if err != nil {
		zapLog.Fatal("pipeline startup failed", zap.Error(err))
	}

	// --- Zeebe workers ---
	var zeebeClient *camunda.Client
	var workers []*camunda.Worker
	if cfg.Camunda.Enabled {
		zeebeClient, err = camunda.NewClientWithConfig(camunda.ConfigFrom(cfg.Camunda))
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		zapLog.Info("Zeebe client connected successfully")
		application.AddCheck("zeebe", zeebeClient)

		workers = application.StartWorkers(zeebeClient.GetClient(), obs, log)
		zapLog.Info("Assistant workers registered", zap.Int("workers", len(workers)))
	} else {
		zapLog.Info("Camunda disabled, serving the HTTP API only")
	}

	// --- API, health & metrics server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      application.Handler(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if zeebeClient != nil {
		if err := zeebeClient.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	if err := application.Close(shutdownCtx); err != nil {
		zapLog.Error("Error releasing pipeline resources", zap.Error(err))
	}

	zapLog.Info("Banking assistant stopped gracefully")
}
