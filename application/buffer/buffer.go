// Package buffer accumulates temporal events on the writer side and flushes
// them to durable storage and the event cache. Mutations to the access manager
// only become externally visible once their event has been appended here.
package buffer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"appaccess-backend/domain/events"
	apperrors "appaccess-backend/pkg/errors"
	"appaccess-backend/pkg/observability"
)

// BulkEventPersister writes a flushed batch to durable storage. It must be
// idempotent on event id so flush retries cannot duplicate events.
type BulkEventPersister interface {
	PersistEvents(ctx context.Context, batch []events.TemporalEvent) error
}

// EventPublisher makes a persisted batch available to readers, normally by
// pushing it to the event cache.
type EventPublisher interface {
	CacheEvents(ctx context.Context, batch []events.TemporalEvent) error
}

// FlushStrategy selects what triggers a flush besides an explicit FlushNow.
type FlushStrategy int

const (
	// FlushManual flushes only on explicit calls.
	FlushManual FlushStrategy = iota
	// FlushSizeLimited flushes when the buffered count reaches the threshold.
	FlushSizeLimited
	// FlushIntervalLimited flushes on a wall-clock interval.
	FlushIntervalLimited
)

// Config holds the flush strategy parameters.
type Config struct {
	Strategy      FlushStrategy
	SizeThreshold int
	FlushInterval time.Duration
}

var (
	metricBufferedEvents = observability.NewStatus("BufferedEvents", "Number of events currently buffered", observability.CategoryEvent)
	metricEventsFlushed  = observability.NewAmount("EventsFlushed", "Number of events flushed to the persister", observability.CategoryEvent)
	metricFlushTime      = observability.NewInterval("FlushTime", "Time taken to persist and publish one flush batch", observability.CategoryEvent)
	metricFlushFailures  = observability.NewCounter("FlushFailures", "Number of flushes that failed and were retained for retry", observability.CategoryEvent)
)

// EventBuffer is a FIFO of temporal events. A flush atomically swaps the
// internal list out, persists it, then publishes it to the event cache. On a
// persist failure the batch is put back at the front of the buffer so the next
// flush retries it in order. A publish failure after a successful persist is
// retried separately so events are never re-persisted out of order.
type EventBuffer struct {
	mu             sync.Mutex
	pending        []events.TemporalEvent
	unpublished    []events.TemporalEvent
	lastFlush      time.Time
	flushRequested chan struct{}

	persister BulkEventPersister
	publisher EventPublisher
	cfg       Config
	logger    *zap.Logger
	metrics   observability.MetricSink
}

// NewEventBuffer creates a buffer flushing through persister then publisher.
func NewEventBuffer(persister BulkEventPersister, publisher EventPublisher, cfg Config, logger *zap.Logger, metrics observability.MetricSink) *EventBuffer {
	return &EventBuffer{
		flushRequested: make(chan struct{}, 1),
		persister:      persister,
		publisher:      publisher,
		cfg:            cfg,
		logger:         logger,
		metrics:        metrics,
		lastFlush:      time.Now(),
	}
}

// AddEvent appends one event. Under the size-limited strategy, reaching the
// threshold signals the background worker; the add itself never blocks on I/O.
func (b *EventBuffer) AddEvent(ev events.TemporalEvent) {
	b.mu.Lock()
	b.pending = append(b.pending, ev)
	count := len(b.pending)
	b.mu.Unlock()

	b.metrics.Set(metricBufferedEvents, int64(count))
	if b.cfg.Strategy == FlushSizeLimited && count >= b.cfg.SizeThreshold {
		select {
		case b.flushRequested <- struct{}{}:
		default:
		}
	}
}

// Len returns the number of buffered events awaiting flush.
func (b *EventBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// GetAndClear removes and returns every buffered event without persisting.
func (b *EventBuffer) GetAndClear() []events.TemporalEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	batch := b.pending
	b.pending = nil
	b.metrics.Set(metricBufferedEvents, 0)
	return batch
}

// FlushNow flushes the current contents synchronously. Safe to call
// concurrently with AddEvent; events added during the flush wait for the next
// one.
func (b *EventBuffer) FlushNow(ctx context.Context) error {
	b.mu.Lock()
	batch := b.pending
	b.pending = nil
	b.lastFlush = time.Now()
	b.mu.Unlock()

	if err := b.publishRetained(ctx); err != nil {
		b.requeue(batch)
		return err
	}
	if len(batch) == 0 {
		return nil
	}

	intervalID := b.metrics.Begin(metricFlushTime)
	if err := b.persister.PersistEvents(ctx, batch); err != nil {
		b.metrics.CancelBegin(intervalID, metricFlushTime)
		b.metrics.Increment(metricFlushFailures)
		b.requeue(batch)
		b.logger.Warn("event flush failed, batch retained",
			zap.Int("batchSize", len(batch)),
			zap.Error(err))
		return apperrors.Wrap(err, "persisting flushed events")
	}

	b.metrics.Add(metricEventsFlushed, int64(len(batch)))
	b.metrics.Set(metricBufferedEvents, int64(b.Len()))

	if err := b.publisher.CacheEvents(ctx, batch); err != nil {
		// Persisted but not visible to readers yet. Keep the batch aside and
		// re-attempt the publish on the next flush; the persister is not
		// called again for it.
		b.metrics.CancelBegin(intervalID, metricFlushTime)
		b.mu.Lock()
		b.unpublished = append(b.unpublished, batch...)
		b.mu.Unlock()
		b.logger.Warn("event cache publish failed, batch retained for republish",
			zap.Int("batchSize", len(batch)),
			zap.Error(err))
		return apperrors.Wrap(err, "publishing flushed events to cache")
	}
	b.metrics.End(intervalID, metricFlushTime)
	return nil
}

// publishRetained re-publishes batches whose persist succeeded but whose cache
// publish did not.
func (b *EventBuffer) publishRetained(ctx context.Context) error {
	b.mu.Lock()
	retained := b.unpublished
	b.unpublished = nil
	b.mu.Unlock()
	if len(retained) == 0 {
		return nil
	}
	if err := b.publisher.CacheEvents(ctx, retained); err != nil {
		b.mu.Lock()
		b.unpublished = append(retained, b.unpublished...)
		b.mu.Unlock()
		return apperrors.Wrap(err, "republishing events to cache")
	}
	return nil
}

// requeue puts a failed batch back at the front, preserving order relative to
// events added while the flush was in flight.
func (b *EventBuffer) requeue(batch []events.TemporalEvent) {
	if len(batch) == 0 {
		return
	}
	b.mu.Lock()
	b.pending = append(batch, b.pending...)
	b.metrics.Set(metricBufferedEvents, int64(len(b.pending)))
	b.mu.Unlock()
}

// Run drives interval-limited and size-limited flushing until ctx is
// cancelled. A final flush runs on shutdown so buffered events are not lost.
func (b *EventBuffer) Run(ctx context.Context) {
	var ticker *time.Ticker
	var tick <-chan time.Time
	if b.cfg.Strategy == FlushIntervalLimited {
		ticker = time.NewTicker(b.cfg.FlushInterval)
		tick = ticker.C
		defer ticker.Stop()
	}
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := b.FlushNow(flushCtx); err != nil {
				b.logger.Error("final flush on shutdown failed", zap.Error(err))
			}
			cancel()
			return
		case <-tick:
			if err := b.FlushNow(ctx); err != nil {
				b.logger.Warn("interval flush failed", zap.Error(err))
			}
		case <-b.flushRequested:
			if err := b.FlushNow(ctx); err != nil {
				b.logger.Warn("size-triggered flush failed", zap.Error(err))
			}
		}
	}
}
