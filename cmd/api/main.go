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

	httpadapter "github.com/unimind/uniquery/internal/adapters/http"
	"github.com/unimind/uniquery/internal/bootstrap"
	"github.com/unimind/uniquery/internal/config"
	"github.com/unimind/uniquery/internal/observability/logging"
	"github.com/unimind/uniquery/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	serverMetrics := metrics.NewHTTPServerMetrics("api")
	app.Intelligence.SetObserver(serverMetrics.Query())
	router, err := httpadapter.NewRouter(
		app.QueryUC,
		app.Sessions,
		app.IngestUC,
		app.Repo,
		serverMetrics,
		httpadapter.Options{
			RateLimitRPS:     float64(cfg.APIRateLimitRPS),
			RateLimitBurst:   cfg.APIRateLimitBurst,
			MaxConcurrent:    cfg.APIMaxConcurrent,
			BackpressureWait: time.Duration(cfg.APIBackpressureWaitMS) * time.Millisecond,
		},
	)
	if err != nil {
		slog.Error("router setup failed", "error", err)
		os.Exit(1)
	}

	if app.Watcher != nil {
		go func() {
			if err := app.Watcher.Run(ctx); err != nil {
				slog.Error("drop-directory watcher stopped", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.APIShutdownTimeoutSecond)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api shutdown failed", "error", err)
	}
}
