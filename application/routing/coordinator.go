package routing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"appaccess-backend/domain/events"
	apperrors "appaccess-backend/pkg/errors"
	"appaccess-backend/pkg/observability"
)

var (
	metricShardSplits       = observability.NewCounter("ShardSplits", "Completed shard splits", observability.CategoryRouting)
	metricShardMerges       = observability.NewCounter("ShardMerges", "Completed shard merges", observability.CategoryRouting)
	metricSplitAborts       = observability.NewCounter("ShardSplitAborts", "Shard reconfigurations aborted before cutover", observability.CategoryRouting)
	metricEventsReplicated  = observability.NewAmount("EventsReplicated", "Events copied between shards during reconfiguration", observability.CategoryRouting)
	metricReconfigTime      = observability.NewInterval("ShardReconfigurationTime", "Wall time of one split or merge", observability.CategoryRouting)
)

// EventReplicator moves persisted events between shards during a split or
// merge. ReadEvents returns up to batchSize events after afterEventID whose
// hash codes fall in the cyclic range [rangeStart, rangeEnd); a nil
// afterEventID starts from the beginning. WriteEvents must be idempotent on
// event id.
type EventReplicator interface {
	ReadEvents(ctx context.Context, source ShardGroup, afterEventID uuid.UUID, rangeStart, rangeEnd int32, batchSize int) ([]events.TemporalEvent, error)
	WriteEvents(ctx context.Context, destination ShardGroup, batch []events.TemporalEvent) error
	// OperationsComplete reports whether the shard's writer has no pending
	// writes touching the given range.
	OperationsComplete(ctx context.Context, shard ShardGroup, rangeStart, rangeEnd int32) (bool, error)
}

// CoordinatorConfig holds the split/merge tunables.
type CoordinatorConfig struct {
	// ReplicationBatchSize is the number of events copied per ReadEvents call.
	ReplicationBatchSize int
	// QuiescePollInterval is the delay between operations-complete polls.
	QuiescePollInterval time.Duration
	// QuiescePollAttempts bounds the polling; exhausting it aborts the
	// reconfiguration with the old configuration left authoritative.
	QuiescePollAttempts int
}

// Coordinator performs shard splits and merges against a router. It owns the
// configuration for the duration of one reconfiguration; concurrent
// reconfigurations are rejected by the router's holding queue.
type Coordinator struct {
	router     *Router
	replicator EventReplicator
	cfg        CoordinatorConfig
	logger     *zap.Logger
	metrics    observability.MetricSink
}

// NewCoordinator creates a coordinator.
func NewCoordinator(router *Router, replicator EventReplicator, cfg CoordinatorConfig, logger *zap.Logger, metrics observability.MetricSink) *Coordinator {
	return &Coordinator{router: router, replicator: replicator, cfg: cfg, logger: logger, metrics: metrics}
}

// SplitShard moves the cyclic hash range [rangeStart, rangeEnd) of kind out
// of its current owner into destination. New writes to the range are held
// during the move and drained after cutover. Any failure before cutover
// leaves the old configuration authoritative and drains the held writes
// through it.
func (c *Coordinator) SplitShard(ctx context.Context, kind ElementKind, rangeStart, rangeEnd int32, destination ShardGroup) error {
	config := c.router.Configuration()
	source, err := config.ShardFor(kind, rangeStart)
	if err != nil {
		return err
	}
	if destination.HashRangeStart != rangeStart {
		return apperrors.NewInvalidArgument("destination", "destination shard must start at the split range start")
	}

	intervalID := c.metrics.Begin(metricReconfigTime)
	hq, err := c.router.beginHold(kind, rangeStart, rangeEnd)
	if err != nil {
		c.metrics.CancelBegin(intervalID, metricReconfigTime)
		return err
	}
	c.logger.Info("shard split started",
		zap.String("kind", string(kind)),
		zap.Int32("rangeStart", rangeStart),
		zap.Int32("rangeEnd", rangeEnd),
		zap.String("source", source.WriterURL),
		zap.String("destination", destination.WriterURL))

	if err := c.moveRange(ctx, source, destination, rangeStart, rangeEnd); err != nil {
		return c.abort(ctx, hq, intervalID, err)
	}
	if err := c.awaitQuiesce(ctx, source, rangeStart, rangeEnd); err != nil {
		return c.abort(ctx, hq, intervalID, err)
	}
	// Final catch-up pass for writes that landed between the bulk copy and
	// the quiesce confirmation.
	if err := c.moveRange(ctx, source, destination, rangeStart, rangeEnd); err != nil {
		return c.abort(ctx, hq, intervalID, err)
	}

	next, err := c.splitConfiguration(config, kind, rangeStart, destination)
	if err != nil {
		return c.abort(ctx, hq, intervalID, err)
	}
	c.router.config.Store(next)
	c.metrics.End(intervalID, metricReconfigTime)
	c.metrics.Increment(metricShardSplits)
	c.logger.Info("shard split cut over", zap.String("kind", string(kind)), zap.Int32("rangeStart", rangeStart))

	// Held writes replay through the new configuration.
	return c.router.endHold(ctx, hq)
}

// MergeShards folds the shard starting at mergedStart into its predecessor,
// replaying its events there and removing it from the configuration.
func (c *Coordinator) MergeShards(ctx context.Context, kind ElementKind, mergedStart int32) error {
	config := c.router.Configuration()
	shards := config.Shards(kind)
	idx := -1
	for i, s := range shards {
		if s.HashRangeStart == mergedStart {
			idx = i
			break
		}
	}
	if idx < 0 {
		return apperrors.NewNotFound("ShardGroup", string(kind))
	}
	if len(shards) < 2 {
		return apperrors.NewInvalidArgument("kind", "cannot merge the only shard of an element kind")
	}
	merged := shards[idx]
	survivor := shards[(idx+len(shards)-1)%len(shards)]
	mergedEnd := config.RangeEnd(kind, idx)

	intervalID := c.metrics.Begin(metricReconfigTime)
	hq, err := c.router.beginHold(kind, mergedStart, mergedEnd)
	if err != nil {
		c.metrics.CancelBegin(intervalID, metricReconfigTime)
		return err
	}
	c.logger.Info("shard merge started",
		zap.String("kind", string(kind)),
		zap.Int32("mergedStart", mergedStart),
		zap.String("survivor", survivor.WriterURL))

	if err := c.moveRange(ctx, merged, survivor, mergedStart, mergedEnd); err != nil {
		return c.abort(ctx, hq, intervalID, err)
	}
	if err := c.awaitQuiesce(ctx, merged, mergedStart, mergedEnd); err != nil {
		return c.abort(ctx, hq, intervalID, err)
	}
	if err := c.moveRange(ctx, merged, survivor, mergedStart, mergedEnd); err != nil {
		return c.abort(ctx, hq, intervalID, err)
	}

	remaining := make([]ShardGroup, 0, len(shards)-1)
	for i, s := range shards {
		if i != idx {
			remaining = append(remaining, s)
		}
	}
	next, err := config.replaceShard(kind, remaining)
	if err != nil {
		return c.abort(ctx, hq, intervalID, err)
	}
	c.router.config.Store(next)
	c.metrics.End(intervalID, metricReconfigTime)
	c.metrics.Increment(metricShardMerges)
	return c.router.endHold(ctx, hq)
}

// moveRange copies every event of the range from source to destination in
// batches, tracking the last copied event id.
func (c *Coordinator) moveRange(ctx context.Context, source, destination ShardGroup, rangeStart, rangeEnd int32) error {
	var after uuid.UUID
	copied := 0
	for {
		batch, err := c.replicator.ReadEvents(ctx, source, after, rangeStart, rangeEnd, c.cfg.ReplicationBatchSize)
		if err != nil {
			return apperrors.Wrap(err, "reading events from source shard")
		}
		if len(batch) == 0 {
			break
		}
		if err := c.replicator.WriteEvents(ctx, destination, batch); err != nil {
			return apperrors.Wrap(err, "writing events to destination shard")
		}
		after = batch[len(batch)-1].EventID
		copied += len(batch)
	}
	if copied > 0 {
		c.metrics.Add(metricEventsReplicated, int64(copied))
	}
	return nil
}

// awaitQuiesce polls the source writer until it reports no pending writes in
// the range, bounded by the configured attempts.
func (c *Coordinator) awaitQuiesce(ctx context.Context, shard ShardGroup, rangeStart, rangeEnd int32) error {
	for attempt := 0; attempt < c.cfg.QuiescePollAttempts; attempt++ {
		complete, err := c.replicator.OperationsComplete(ctx, shard, rangeStart, rangeEnd)
		if err != nil {
			return apperrors.Wrap(err, "polling source shard for quiescence")
		}
		if complete {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.QuiescePollInterval):
		}
	}
	return apperrors.NewInternal("source shard did not quiesce within the poll budget", nil)
}

// abort tears the reconfiguration down: the old configuration stays
// authoritative and held writes drain through it.
func (c *Coordinator) abort(ctx context.Context, hq *holdingQueue, intervalID observability.IntervalID, cause error) error {
	c.metrics.CancelBegin(intervalID, metricReconfigTime)
	c.metrics.Increment(metricSplitAborts)
	c.logger.Error("shard reconfiguration aborted, old configuration remains authoritative", zap.Error(cause))
	if drainErr := c.router.endHold(ctx, hq); drainErr != nil {
		return apperrors.Append(cause, drainErr)
	}
	return cause
}

// splitConfiguration inserts destination into kind's shard list at the split
// start. The source shard keeps everything below the split point; ranges
// above the split's end are unaffected because a split range may not span an
// existing boundary.
func (c *Coordinator) splitConfiguration(config *ShardConfiguration, kind ElementKind, rangeStart int32, destination ShardGroup) (*ShardConfiguration, error) {
	shards := config.Shards(kind)
	next := make([]ShardGroup, 0, len(shards)+1)
	for _, s := range shards {
		if s.HashRangeStart == rangeStart {
			return nil, apperrors.NewAlreadyExists("ShardGroup", string(kind))
		}
		next = append(next, s)
	}
	next = append(next, destination)
	return config.replaceShard(kind, next)
}
