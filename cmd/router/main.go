// The router binary runs the distributed operation router: it forwards every
// mutation and query to the shard owning the element, watches the shard
// configuration file for changes and hosts the split/merge coordinator.
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

	"appaccess-backend/application/routing"
	"appaccess-backend/infrastructure/config"
	"appaccess-backend/infrastructure/httpclient"
	"appaccess-backend/interfaces/http/rest"
	"appaccess-backend/interfaces/http/rest/handlers"
	"appaccess-backend/interfaces/http/rest/middleware"
	"appaccess-backend/pkg/hashing"
	"appaccess-backend/pkg/logging"
	"appaccess-backend/pkg/observability"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadRouterConfig()
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
		sink = observability.NewPrometheusMetricSink("appaccess_router", registry)
	}

	source := config.NewFileConfigurationSource(cfg.ShardConfigPath)
	initial, err := source.Fetch(ctx)
	if err != nil {
		logger.Fatal("Failed to load shard configuration", zap.Error(err))
	}

	clientCfg := httpclient.DefaultConfig()
	router := routing.NewRouter(
		initial,
		httpclient.NewWriterNodeClient(clientCfg, logger),
		httpclient.NewReaderNodeClient(clientCfg, logger),
		source,
		hashing.NewFNV1aHashCodeGenerator(),
		routing.Config{RefreshInterval: cfg.ConfigRefreshInterval},
		logger,
		sink,
	)

	watcher, err := config.NewShardConfigWatcher(cfg.ShardConfigPath, func() {
		if err := router.RefreshConfiguration(context.Background()); err != nil {
			logger.Warn("shard configuration reload failed", zap.Error(err))
		}
	}, logger)
	if err != nil {
		logger.Fatal("Failed to watch shard configuration", zap.Error(err))
	}
	watcher.Start()
	defer watcher.Stop()

	go router.RunConfigRefresh(ctx)

	coordinator := routing.NewCoordinator(router, httpclient.NewReplicatorClient(clientCfg, logger), routing.CoordinatorConfig{
		ReplicationBatchSize: 500,
		QuiescePollInterval:  time.Second,
		QuiescePollAttempts:  30,
	}, logger, sink)

	opts := rest.Options{
		Logger:          logger,
		Metrics:         sink,
		MetricsRegistry: registry,
		EnableCORS:      cfg.Server.EnableCORS,
	}
	if cfg.Server.EnableTripSwitch {
		tripCfg := middleware.DefaultTripSwitchConfig("router")
		opts.TripSwitch = &tripCfg
	}
	handler := rest.NewDistributedRouter(
		handlers.NewDistributedHandler(router, logger),
		handlers.NewAdminHandler(coordinator, logger),
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
		logger.Info("Starting operation router",
			zap.String("address", cfg.Server.ListenAddress),
			zap.String("shardConfig", cfg.ShardConfigPath))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down operation router...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	_ = logger.Sync()
}
