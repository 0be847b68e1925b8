// The reader binary runs one shard's reader node: the query API over an
// in-memory replica kept current by polling the event cache.
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

	"appaccess-backend/application/reader"
	"appaccess-backend/domain/access"
	"appaccess-backend/infrastructure/config"
	"appaccess-backend/infrastructure/httpclient"
	"appaccess-backend/infrastructure/persistence"
	"appaccess-backend/interfaces/http/rest"
	"appaccess-backend/interfaces/http/rest/handlers"
	"appaccess-backend/interfaces/http/rest/middleware"
	"appaccess-backend/pkg/logging"
	"appaccess-backend/pkg/observability"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadReaderConfig()
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
		sink = observability.NewPrometheusMetricSink("appaccess_reader", registry)
	}

	source := httpclient.NewCacheClient(cfg.EventCacheURL, httpclient.DefaultConfig(), logger)

	var storage reader.PersistentReader
	if cfg.EventLogPath != "" {
		store, err := persistence.NewFileEventStore(cfg.EventLogPath, logger)
		if err != nil {
			logger.Fatal("Failed to open event log", zap.Error(err))
		}
		storage = store
	} else {
		storage = persistence.NewMemoryEventStore()
	}

	node, err := reader.NewNode(ctx, source, storage, reader.Config{
		RefreshInterval:            cfg.RefreshInterval,
		LoadOnStartup:              cfg.LoadOnStartup,
		StoreBidirectionalMappings: cfg.StoreBidirectionalMappings,
	}, logger, sink)
	if err != nil {
		logger.Fatal("Failed to start reader node", zap.Error(err))
	}

	strategy := reader.NewIntervalRefreshStrategy(node, cfg.RefreshInterval, logger)
	refreshDone := make(chan struct{})
	go func() {
		strategy.Run(ctx)
		close(refreshDone)
	}()

	opts := rest.Options{
		Logger:          logger,
		Metrics:         sink,
		MetricsRegistry: registry,
		EnableCORS:      cfg.Server.EnableCORS,
	}
	if cfg.Server.EnableTripSwitch {
		tripCfg := middleware.DefaultTripSwitchConfig("reader")
		opts.TripSwitch = &tripCfg
	}
	handler := rest.NewReaderRouter(
		handlers.NewReaderHandler(func() access.Querier { return node.Querier() }, logger),
		opts,
	)

	srv := &http.Server{
		Addr:         cfg.Server.ListenAddress,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("Starting reader node",
			zap.String("address", cfg.Server.ListenAddress),
			zap.String("eventCache", cfg.EventCacheURL))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down reader node...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	cancel()
	<-refreshDone
	_ = logger.Sync()
}
