package writer

import (
	"context"

	"go.uber.org/zap"

	"appaccess-backend/domain/access"
	"appaccess-backend/domain/events"
	apperrors "appaccess-backend/pkg/errors"
)

// IngestEvents applies a batch of replicated events, preserving their original
// headers so event ids stay stable across a shard move. The batch is applied
// and buffered under the node's critical section like locally produced events;
// downstream persisters deduplicate on event id, so re-sent batches are safe.
func (n *Node) IngestEvents(_ context.Context, batch []events.TemporalEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ev := range batch {
		if err := access.ApplyEvent(n.manager, ev); err != nil {
			n.metrics.Increment(metricEventsRejected)
			return apperrors.Wrap(err, "ingesting replicated event "+ev.EventID.String())
		}
		n.buf.AddEvent(ev)
		n.metrics.Increment(metricEventsProcessed)
	}
	n.logger.Debug("ingested replicated events", zap.Int("batchSize", len(batch)))
	return nil
}
