package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/courtside/refassign/internal/adapters/http/api"
	app "github.com/courtside/refassign/internal/app"
	"github.com/courtside/refassign/internal/config"
	"github.com/courtside/refassign/internal/domain/constraint"
	"github.com/courtside/refassign/internal/domain/lifecycle"
	"github.com/courtside/refassign/pkg/logger"
	"github.com/courtside/refassign/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	expirySweepInterval    = time.Minute
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

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

	// Create and start the service with configuration options
	opts := []app.Option{
		app.WithLogger(loggerInstance),
		app.WithMaxIterations(cfg.MaxIterations),
		app.WithTimeBudget(cfg.TimeBudget),
		app.WithMaxResults(cfg.MaxResults),
		app.WithConfirmationDeadline(cfg.ConfirmationDeadline),
		app.WithExpiryPolicy(lifecycle.ExpiryPolicy(cfg.ExpiryPolicy)),
		app.WithNotifyWorkerCount(cfg.NotifyWorkerCount),
		app.WithNotifyQueueSize(cfg.NotifyQueueSize),
		app.WithNotifyMaxAttempts(cfg.NotifyMaxAttempts),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithDetectorThresholds(cfg.CoverageTarget, cfg.BalanceFloor, cfg.CostBudget),
	}
	if w := weightsFromConfig(cfg); w != nil {
		opts = append(opts, app.WithWeights(*w))
	}
	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Sweep overdue offers in the background
	go startExpirySweeper(ctx, svc)

	// Refresh store-size metrics periodically
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Expose the custom registry for scraping.
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
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

// weightsFromConfig maps the configured soft-penalty weights onto the
// evaluator's weight set. Nil means no override was configured.
func weightsFromConfig(cfg *config.Config) *constraint.Weights {
	if cfg.TravelWeight == 0 && cfg.ExperienceWeight == 0 && cfg.PreferenceWeight == 0 &&
		cfg.PartnerWeight == 0 && cfg.UtilizationWeight == 0 {
		return nil
	}
	w := constraint.DefaultWeights()
	if cfg.TravelWeight > 0 {
		w.TravelPerMile = cfg.TravelWeight
	}
	if cfg.ExperienceWeight > 0 {
		w.ExperienceGap = cfg.ExperienceWeight
	}
	if cfg.PreferenceWeight > 0 {
		w.PreferenceMiss = cfg.PreferenceWeight
	}
	if cfg.PartnerWeight > 0 {
		w.PartnerBonus = cfg.PartnerWeight
	}
	if cfg.UtilizationWeight > 0 {
		w.UtilizationDev = cfg.UtilizationWeight
	}
	return &w
}

// startExpirySweeper periodically expires offers whose confirmation deadline
// has passed, applying the configured expiry policy.
func startExpirySweeper(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(expirySweepInterval)
	defer ticker.Stop()

	log := logger.Named("expiry")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := svc.ExpireOverdue(ctx)
			if err != nil {
				log.Error(ctx, "expiry sweep failed", logger.Error(err))
				continue
			}
			if len(expired) > 0 {
				log.Info(ctx, "expired overdue offers", logger.Int("count", len(expired)))
			}
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that refreshes
// service-level gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats refreshes the stored-assignment and queue gauges as a
			// side effect.
			_ = svc.GetStats()
		}
	}
}
