// The writer binary runs one shard's writer node: the mutation API, the event
// buffer with its flush worker and the replication endpoints used during shard
// splits.
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

	"appaccess-backend/application/buffer"
	"appaccess-backend/application/writer"
	"appaccess-backend/infrastructure/config"
	"appaccess-backend/infrastructure/httpclient"
	"appaccess-backend/infrastructure/persistence"
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

	cfg, err := config.LoadWriterConfig()
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
		sink = observability.NewPrometheusMetricSink("appaccess_writer", registry)
	}

	var persister buffer.BulkEventPersister
	var eventLog handlers.EventLog
	if cfg.EventLogPath != "" {
		store, err := persistence.NewFileEventStore(cfg.EventLogPath, logger)
		if err != nil {
			logger.Fatal("Failed to open event log", zap.Error(err))
		}
		persister, eventLog = store, store
	} else {
		store := persistence.NewMemoryEventStore()
		persister, eventLog = store, store
	}

	var publisher buffer.EventPublisher = buffer.NullEventPublisher{}
	if cfg.EventCacheURL != "" {
		publisher = httpclient.NewCacheClient(cfg.EventCacheURL, httpclient.DefaultConfig(), logger)
	}

	buf := buffer.NewEventBuffer(persister, publisher, bufferConfig(cfg), logger, sink)

	mode := writer.Strict
	if cfg.Mode == "dependencyFree" {
		mode = writer.DependencyFree
	}
	node := writer.NewNode(mode, cfg.StoreBidirectionalMappings, buf, writer.NewElementValidator(), hashing.NewFNV1aHashCodeGenerator(), logger, sink)

	opts := rest.Options{
		Logger:          logger,
		Metrics:         sink,
		MetricsRegistry: registry,
		EnableCORS:      cfg.Server.EnableCORS,
	}
	if cfg.Server.EnableTripSwitch {
		tripCfg := middleware.DefaultTripSwitchConfig("writer")
		opts.TripSwitch = &tripCfg
	}
	handler := rest.NewWriterRouter(
		handlers.NewWriterHandler(node, logger),
		handlers.NewReplicationHandler(eventLog, node, buf, logger),
		opts,
	)

	flushDone := make(chan struct{})
	go func() {
		buf.Run(ctx)
		close(flushDone)
	}()

	srv := &http.Server{
		Addr:         cfg.Server.ListenAddress,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("Starting writer node",
			zap.String("address", cfg.Server.ListenAddress),
			zap.String("mode", cfg.Mode))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down writer node...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	// Stop the flush worker; its shutdown path flushes remaining events.
	cancel()
	<-flushDone

	_ = logger.Sync()
}

func bufferConfig(cfg *config.WriterConfig) buffer.Config {
	strategy := buffer.FlushManual
	switch cfg.FlushStrategy {
	case "sizeLimited":
		strategy = buffer.FlushSizeLimited
	case "intervalLimited":
		strategy = buffer.FlushIntervalLimited
	}
	return buffer.Config{
		Strategy:      strategy,
		SizeThreshold: cfg.FlushSizeThreshold,
		FlushInterval: cfg.FlushInterval,
	}
}
