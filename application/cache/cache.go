// Package cache implements the bounded ordered event cache readers pull
// incremental updates from. It is not the durable log; eviction only bounds
// how far behind a reader may fall before it must do a full reload.
package cache

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"appaccess-backend/domain/events"
	apperrors "appaccess-backend/pkg/errors"
	"appaccess-backend/pkg/observability"
)

var (
	metricEventsCached   = observability.NewAmount("EventsCached", "Number of events accepted into the cache", observability.CategoryEvent)
	metricCachedEvents   = observability.NewStatus("CachedEvents", "Number of events currently held", observability.CategoryEvent)
	metricCacheHits      = observability.NewCounter("EventCacheHits", "Incremental reads answered from the cache", observability.CategoryReplication)
	metricCacheMisses    = observability.NewCounter("EventCacheMisses", "Incremental reads whose prior event was not cached", observability.CategoryReplication)
	metricEventsEvicted  = observability.NewAmount("EventsEvicted", "Number of events evicted to stay within capacity", observability.CategoryEvent)
	metricEmptyCacheRead = observability.NewCounter("EmptyCacheReads", "Incremental reads against an empty cache", observability.CategoryReplication)
)

type cachedEvent struct {
	seq   uint64
	event events.TemporalEvent
}

// EventCache is a bounded FIFO of temporal events indexed by event id.
// Capacity must cover the maximum lag a reader is allowed to accumulate;
// a reader whose watermark is evicted gets EventNotCached and must reload.
type EventCache struct {
	mu       sync.RWMutex
	entries  []cachedEvent
	index    map[uuid.UUID]uint64
	nextSeq  uint64
	capacity int

	logger  *zap.Logger
	metrics observability.MetricSink
}

// NewEventCache creates a cache holding at most capacity events.
func NewEventCache(capacity int, logger *zap.Logger, metrics observability.MetricSink) *EventCache {
	return &EventCache{
		index:    make(map[uuid.UUID]uint64),
		capacity: capacity,
		logger:   logger,
		metrics:  metrics,
	}
}

// CacheEvents appends a batch in order, evicting the oldest entries when the
// capacity is exceeded. An event id already present is skipped, which makes
// republish retries after a partial flush harmless.
func (c *EventCache) CacheEvents(_ context.Context, batch []events.TemporalEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	accepted := 0
	for _, ev := range batch {
		if _, ok := c.index[ev.EventID]; ok {
			continue
		}
		c.entries = append(c.entries, cachedEvent{seq: c.nextSeq, event: ev})
		c.index[ev.EventID] = c.nextSeq
		c.nextSeq++
		accepted++
	}
	evicted := 0
	for len(c.entries) > c.capacity {
		delete(c.index, c.entries[0].event.EventID)
		c.entries = c.entries[1:]
		evicted++
	}
	if accepted > 0 {
		c.metrics.Add(metricEventsCached, int64(accepted))
	}
	if evicted > 0 {
		c.metrics.Add(metricEventsEvicted, int64(evicted))
	}
	c.metrics.Set(metricCachedEvents, int64(len(c.entries)))
	return nil
}

// GetAllEventsSince returns every cached event strictly after priorEventID in
// insertion order. An empty cache raises CacheEmpty; an unknown or evicted
// priorEventID raises EventNotCached. priorEventID being the newest entry
// returns an empty slice. The nil UUID is the watermark of a reader that has
// applied nothing yet (event ids are v4, so it never names a real event) and
// selects the whole cache.
func (c *EventCache) GetAllEventsSince(_ context.Context, priorEventID uuid.UUID) ([]events.TemporalEvent, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.entries) == 0 {
		c.metrics.Increment(metricEmptyCacheRead)
		return nil, apperrors.NewCacheEmpty()
	}
	var afterSeq uint64
	if priorEventID != uuid.Nil {
		priorSeq, ok := c.index[priorEventID]
		if !ok {
			c.metrics.Increment(metricCacheMisses)
			c.logger.Debug("prior event not cached", zap.String("priorEventId", priorEventID.String()))
			return nil, apperrors.NewEventNotCached(priorEventID.String())
		}
		afterSeq = priorSeq + 1
	}
	c.metrics.Increment(metricCacheHits)
	result := make([]events.TemporalEvent, 0)
	for _, entry := range c.entries {
		if entry.seq >= afterSeq {
			result = append(result, entry.event)
		}
	}
	return result, nil
}

// Len returns the number of cached events.
func (c *EventCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// LatestEventID returns the id of the most recently cached event, or false
// when the cache is empty.
func (c *EventCache) LatestEventID() (uuid.UUID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.entries) == 0 {
		return uuid.Nil, false
	}
	return c.entries[len(c.entries)-1].event.EventID, true
}
