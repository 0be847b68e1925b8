// Package reader implements the query replica node. A reader holds its own
// access manager built from events pulled off the event cache, falling back to
// a full reload from persistent storage whenever it has dropped off the end of
// the cache.
package reader

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"appaccess-backend/domain/access"
	"appaccess-backend/domain/events"
	apperrors "appaccess-backend/pkg/errors"
	"appaccess-backend/pkg/observability"
)

var (
	metricRefreshes       = observability.NewCounter("Refreshes", "Number of completed refresh operations", observability.CategoryReplication)
	metricCacheMisses     = observability.NewCounter("CacheMisses", "Refreshes that fell back to a full reload", observability.CategoryReplication)
	metricEmptyCacheReads = observability.NewCounter("EmptyCacheRefreshes", "Refreshes that found the cache empty", observability.CategoryReplication)
	metricEventsApplied   = observability.NewAmount("EventsApplied", "Number of cached events applied to the replica", observability.CategoryReplication)
	metricProcessingDelay = observability.NewAmount("EventProcessingDelayMilliseconds", "Delay between an event occurring on the writer and its application here", observability.CategoryReplication)
	metricLoadTime        = observability.NewInterval("LoadTime", "Time taken to rebuild the replica from persistent storage", observability.CategoryReplication)
)

// SnapshotMetadata identifies the position of a loaded snapshot in the event
// stream.
type SnapshotMetadata struct {
	EventID   uuid.UUID
	Timestamp time.Time
}

// PersistentReader rebuilds an access manager from durable storage. Load
// raises PersistentStorageEmpty when the store holds nothing.
type PersistentReader interface {
	Load(ctx context.Context, sink access.Mutator) (SnapshotMetadata, error)
}

// EventSource is the incremental feed of events, normally the event cache.
type EventSource interface {
	GetAllEventsSince(ctx context.Context, priorEventID uuid.UUID) ([]events.TemporalEvent, error)
}

// Config holds the reader's tunables.
type Config struct {
	// RefreshInterval is the period of the background refresh strategy.
	RefreshInterval time.Duration
	// LoadOnStartup performs the initial Load during construction. When false
	// the reader starts empty and catches up on the first cache miss.
	LoadOnStartup bool
	// StoreBidirectionalMappings is passed through to each rebuilt manager.
	StoreBidirectionalMappings bool
}

// replicaState is the unit of hot swap: the manager and its watermark change
// together under a single pointer store.
type replicaState struct {
	manager       *access.DependencyFreeManager
	latestEventID uuid.UUID
}

// Node is a reader node. Queries run against the current replica state;
// Refresh advances it. A full reload swaps the whole state in one reference
// assignment, so in-flight queries finish against the old manager.
type Node struct {
	state     atomic.Pointer[replicaState]
	refreshMu sync.Mutex

	source  EventSource
	storage PersistentReader
	cfg     Config
	now     func() time.Time
	logger  *zap.Logger
	metrics observability.MetricSink
}

// NewNode creates a reader. With cfg.LoadOnStartup the initial snapshot is
// loaded immediately; an empty persistent store is not an error at startup.
func NewNode(ctx context.Context, source EventSource, storage PersistentReader, cfg Config, logger *zap.Logger, metrics observability.MetricSink) (*Node, error) {
	n := &Node{
		source:  source,
		storage: storage,
		cfg:     cfg,
		now:     time.Now,
		logger:  logger,
		metrics: metrics,
	}
	n.state.Store(&replicaState{manager: n.emptyManager()})
	if cfg.LoadOnStartup {
		if err := n.Load(ctx, false); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (n *Node) emptyManager() *access.DependencyFreeManager {
	return access.NewDependencyFreeManager(access.NewManager(n.cfg.StoreBidirectionalMappings), access.NullEventSink{})
}

// LatestEventID returns the watermark of the last applied event.
func (n *Node) LatestEventID() uuid.UUID {
	return n.state.Load().latestEventID
}

// Querier returns the current replica's query surface. The returned value is
// a consistent snapshot reference; a concurrent reload does not affect it.
func (n *Node) Querier() access.Querier {
	return n.state.Load().manager
}

// Refresh pulls every event after the current watermark and applies it. An
// empty cache is a benign startup condition and leaves the state untouched. A
// watermark no longer present in the cache triggers a full reload. Any other
// failure wraps as ReaderRefreshFailed.
func (n *Node) Refresh(ctx context.Context) error {
	n.refreshMu.Lock()
	defer n.refreshMu.Unlock()

	current := n.state.Load()
	batch, err := n.source.GetAllEventsSince(ctx, current.latestEventID)
	switch {
	case apperrors.IsCacheEmpty(err):
		n.metrics.Increment(metricEmptyCacheReads)
		return nil
	case apperrors.IsEventNotCached(err):
		n.metrics.Increment(metricCacheMisses)
		n.logger.Info("watermark evicted from event cache, reloading",
			zap.String("latestEventId", current.latestEventID.String()))
		if loadErr := n.Load(ctx, false); loadErr != nil {
			return apperrors.NewReaderRefreshFailed(loadErr)
		}
		n.metrics.Increment(metricRefreshes)
		return nil
	case err != nil:
		return apperrors.NewReaderRefreshFailed(err)
	}

	for _, ev := range batch {
		if err := access.ApplyEvent(current.manager, ev); err != nil {
			return apperrors.NewReaderRefreshFailed(err)
		}
		n.metrics.Add(metricProcessingDelay, n.now().UTC().Sub(ev.OccurredTime).Milliseconds())
		n.state.Store(&replicaState{manager: current.manager, latestEventID: ev.EventID})
	}
	if len(batch) > 0 {
		n.metrics.Add(metricEventsApplied, int64(len(batch)))
	}
	n.metrics.Increment(metricRefreshes)
	return nil
}

// Load rebuilds the replica from persistent storage and hot-swaps it in. With
// throwIfEmpty false an empty store installs a fresh empty replica with a nil
// watermark instead of failing.
func (n *Node) Load(ctx context.Context, throwIfEmpty bool) error {
	intervalID := n.metrics.Begin(metricLoadTime)
	fresh := n.emptyManager()
	meta, err := n.storage.Load(ctx, fresh)
	if err != nil {
		if apperrors.IsPersistentStorageEmpty(err) && !throwIfEmpty {
			n.metrics.End(intervalID, metricLoadTime)
			n.state.Store(&replicaState{manager: fresh})
			return nil
		}
		n.metrics.CancelBegin(intervalID, metricLoadTime)
		return err
	}
	n.metrics.End(intervalID, metricLoadTime)
	n.state.Store(&replicaState{manager: fresh, latestEventID: meta.EventID})
	n.logger.Info("replica rebuilt from persistent storage",
		zap.String("snapshotEventId", meta.EventID.String()),
		zap.Time("snapshotTimestamp", meta.Timestamp))
	return nil
}
