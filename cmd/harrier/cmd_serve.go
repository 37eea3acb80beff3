package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/opensource-finance/harrier/internal/api"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and async worker",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	slog.Info("starting harrier",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"worker", cfg.Worker.Enabled,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := setupTracing(cfg.Tracing, Version)

	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.close()

	var asyncWorker *worker.Worker
	if cfg.Worker.Enabled {
		asyncWorker = worker.NewWorker(a.bus, a.engine)
		if err := asyncWorker.Start(); err != nil {
			return fmt.Errorf("failed to start async worker: %w", err)
		}
		slog.Info("async worker started")
	}

	srv := api.NewServer(cfg.Server, a.deps(Version))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("harrier is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)
	printBanner(cfg, a.caps, Version)

	var serveErr error
	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
	case serveErr = <-errCh:
		slog.Error("server failed", "error", serveErr)
	}

	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		slog.Error("failed to flush tracer provider", "error", err)
	}

	slog.Info("harrier shutdown complete")
	return serveErr
}

func printBanner(cfg *domain.Config, caps api.Capabilities, version string) {
	availability := func(ok bool) string {
		if ok {
			return "available"
		}
		return "unavailable (degraded)"
	}

	fmt.Println()
	fmt.Println("  HARRIER")
	fmt.Println("  Document fraud-risk scoring")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  Emotion:  %s\n", availability(caps.EmotionClassifier))
	fmt.Printf("  QA:       %s\n", availability(caps.QuestionAnswerer))
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /analyze           - Score document text")
	fmt.Println("    POST /analyze/qa        - Run the QA battery")
	fmt.Println("    POST /qa/ask            - Ask one question of a document")
	fmt.Println("    POST /documents         - Upload a file for extraction and scoring")
	fmt.Println("    POST /extraction/grade  - Grade an extraction confidence")
	fmt.Println("    GET  /patterns          - Active lexicon and density rules")
	fmt.Println("    GET  /capabilities      - Model capability status")
	fmt.Println("    GET  /health            - Health check")
	fmt.Println("    GET  /metrics           - Prometheus metrics")
	fmt.Println()
}
