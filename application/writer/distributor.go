package writer

import (
	"context"

	"go.uber.org/zap"

	"appaccess-backend/application/buffer"
	"appaccess-backend/domain/events"
	apperrors "appaccess-backend/pkg/errors"
)

// DistributingEventPersister forwards each flushed batch to several persisters
// in sequence, typically an observability sink ahead of real storage. Every
// persister sees the batch even when an earlier one fails; failures are
// aggregated so the buffer retries the whole batch. Targets must therefore be
// idempotent on event id.
type DistributingEventPersister struct {
	targets []buffer.BulkEventPersister
	logger  *zap.Logger
}

// NewDistributingEventPersister creates a distributor over the given targets.
func NewDistributingEventPersister(logger *zap.Logger, targets ...buffer.BulkEventPersister) *DistributingEventPersister {
	return &DistributingEventPersister{targets: targets, logger: logger}
}

func (d *DistributingEventPersister) PersistEvents(ctx context.Context, batch []events.TemporalEvent) error {
	var result error
	for i, target := range d.targets {
		if err := target.PersistEvents(ctx, batch); err != nil {
			d.logger.Warn("persist target failed",
				zap.Int("target", i),
				zap.Int("batchSize", len(batch)),
				zap.Error(err))
			result = apperrors.Append(result, err)
		}
	}
	return result
}

var _ buffer.BulkEventPersister = (*DistributingEventPersister)(nil)
