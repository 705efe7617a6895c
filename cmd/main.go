package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/sideline/internal/adapters/feeds"
	"github.com/okian/sideline/internal/adapters/http/api"
	"github.com/okian/sideline/internal/adapters/http/swagger"
	app "github.com/okian/sideline/internal/app"
	"github.com/okian/sideline/internal/config"
	"github.com/okian/sideline/internal/domain/assemble"
	"github.com/okian/sideline/pkg/logger"
	"github.com/okian/sideline/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	idleTimeout           = 120 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if cfg.PushSecret == "" {
		loggerInstance.Warn(ctx, "push_secret is empty; webhook endpoint accepts unauthenticated pushes")
	}

	// Upstream feeds and the snapshot assembler.
	queueFeed := feeds.NewHTTPQueueFeed(cfg.QueueFeedURL,
		feeds.WithQueueAPIKey(cfg.QueueFeedKey),
		feeds.WithQueueTimeout(cfg.FetchTimeout),
	)
	resultsFeed := feeds.NewHTTPResultsFeed(cfg.ResultsFeedURL,
		feeds.WithResultsAPIKey(cfg.ResultsFeedKey),
		feeds.WithResultsTimeout(cfg.FetchTimeout),
	)
	assembler := assemble.New(queueFeed, resultsFeed)

	// Create and start the engine with configuration options
	svc := app.New(
		app.WithLogger(loggerInstance),
		app.WithAssembler(assembler),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.TriggerQueueSize),
		app.WithPollInterval(cfg.PollInterval),
		app.WithHeartbeatInterval(cfg.HeartbeatInterval),
		app.WithMaxConnectionAge(cfg.MaxConnectionAge),
		app.WithStaleAfter(cfg.StaleAfter),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register API docs under /api-docs
	swagger.Register(ctx, mux)

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, svc, cfg.PushSecret)
	apiServer.Register(ctx, mux)

	// WriteTimeout stays zero: subscription streams outlive any fixed
	// write deadline, and the registry rotates them before intermediaries
	// idle them out.
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      0,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
