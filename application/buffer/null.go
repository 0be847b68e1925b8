package buffer

import (
	"context"

	"appaccess-backend/domain/events"
)

// NullEventPublisher discards batches. Used by writers running without an
// event cache, where readers load from persistent storage only.
type NullEventPublisher struct{}

func (NullEventPublisher) CacheEvents(context.Context, []events.TemporalEvent) error { return nil }
