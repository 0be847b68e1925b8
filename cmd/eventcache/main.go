// The eventcache binary runs an event cache node: the bounded event feed
// writers publish to and readers poll for incremental updates.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"appaccess-backend/application/cache"
	"appaccess-backend/infrastructure/config"
	"appaccess-backend/interfaces/http/rest"
	"appaccess-backend/interfaces/http/rest/handlers"
	"appaccess-backend/interfaces/http/rest/middleware"
	"appaccess-backend/pkg/logging"
	"appaccess-backend/pkg/observability"
)

func main() {
	cfg, err := config.LoadCacheConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, err := logging.NewLogger(cfg.Server.LogLevel, cfg.Server.Environment)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}

	var registry *prometheus.Registry
	var sink observability.MetricSink = observability.NullMetricSink{}
	if cfg.Server.EnableMetrics {
		registry = prometheus.NewRegistry()
		sink = observability.NewPrometheusMetricSink("appaccess_eventcache", registry)
	}

	eventCache := cache.NewEventCache(cfg.Capacity, logger, sink)

	opts := rest.Options{
		Logger:          logger,
		Metrics:         sink,
		MetricsRegistry: registry,
		EnableCORS:      cfg.Server.EnableCORS,
	}
	if cfg.Server.EnableTripSwitch {
		tripCfg := middleware.DefaultTripSwitchConfig("eventcache")
		opts.TripSwitch = &tripCfg
	}
	handler := rest.NewCacheRouter(handlers.NewCacheHandler(eventCache, logger), opts)

	srv := &http.Server{
		Addr:         cfg.Server.ListenAddress,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("Starting event cache node",
			zap.String("address", cfg.Server.ListenAddress),
			zap.Int("capacity", cfg.Capacity))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down event cache node...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	_ = logger.Sync()
}
