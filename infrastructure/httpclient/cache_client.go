package httpclient

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"appaccess-backend/domain/events"
)

// CacheClient talks to one event cache node. It implements the buffer's event
// publisher on the writer side and the reader's event source on the reader
// side.
type CacheClient struct {
	base    *Client
	baseURL string
}

// NewCacheClient creates a client for the cache node at baseURL.
func NewCacheClient(baseURL string, cfg Config, logger *zap.Logger) *CacheClient {
	return &CacheClient{base: NewClient(cfg, logger), baseURL: baseURL}
}

// CacheEvents pushes a flushed batch to the cache.
func (c *CacheClient) CacheEvents(ctx context.Context, batch []events.TemporalEvent) error {
	return c.base.do(ctx, http.MethodPost, c.baseURL+"/api/v1/eventCache/events", batch, nil)
}

// GetAllEventsSince pulls every cached event after priorEventID. The cache's
// CacheEmpty and EventNotCached conditions come back as their error kinds.
func (c *CacheClient) GetAllEventsSince(ctx context.Context, priorEventID uuid.UUID) ([]events.TemporalEvent, error) {
	var batch []events.TemporalEvent
	url := c.baseURL + "/api/v1/eventCache/events/" + priorEventID.String()
	if err := c.base.do(ctx, http.MethodGet, url, nil, &batch); err != nil {
		return nil, err
	}
	return batch, nil
}
