package httpclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"appaccess-backend/application/routing"
	"appaccess-backend/domain/events"
)

// ReplicatorClient drives writer-to-writer event replication during shard
// splits and merges. It implements the coordinator's replicator collaborator.
type ReplicatorClient struct {
	base *Client
}

// NewReplicatorClient creates a replicator client over the shared transport.
func NewReplicatorClient(cfg Config, logger *zap.Logger) *ReplicatorClient {
	return &ReplicatorClient{base: NewClient(cfg, logger)}
}

// ReadEvents pulls up to batchSize events after afterEventID whose hash codes
// fall in the moving range from the source shard's writer.
func (c *ReplicatorClient) ReadEvents(ctx context.Context, source routing.ShardGroup, afterEventID uuid.UUID, rangeStart, rangeEnd int32, batchSize int) ([]events.TemporalEvent, error) {
	query := url.Values{}
	if afterEventID != uuid.Nil {
		query.Set("afterEventId", afterEventID.String())
	}
	query.Set("hashRangeStart", strconv.FormatInt(int64(rangeStart), 10))
	query.Set("hashRangeEnd", strconv.FormatInt(int64(rangeEnd), 10))
	query.Set("limit", strconv.Itoa(batchSize))

	var batch []events.TemporalEvent
	endpoint := source.WriterURL + "/api/v1/replication/events?" + query.Encode()
	if err := c.base.do(ctx, http.MethodGet, endpoint, nil, &batch); err != nil {
		return nil, err
	}
	return batch, nil
}

// WriteEvents pushes a replicated batch to the destination shard's writer.
func (c *ReplicatorClient) WriteEvents(ctx context.Context, destination routing.ShardGroup, batch []events.TemporalEvent) error {
	return c.base.do(ctx, http.MethodPost, destination.WriterURL+"/api/v1/replication/events", batch, nil)
}

type operationsStatus struct {
	OperationsComplete bool `json:"operationsComplete"`
}

// OperationsComplete asks the shard's writer whether every accepted mutation
// has been flushed.
func (c *ReplicatorClient) OperationsComplete(ctx context.Context, shard routing.ShardGroup, rangeStart, rangeEnd int32) (bool, error) {
	query := url.Values{}
	query.Set("hashRangeStart", strconv.FormatInt(int64(rangeStart), 10))
	query.Set("hashRangeEnd", strconv.FormatInt(int64(rangeEnd), 10))

	var status operationsStatus
	endpoint := shard.WriterURL + "/api/v1/replication/status?" + query.Encode()
	if err := c.base.do(ctx, http.MethodGet, endpoint, nil, &status); err != nil {
		return false, err
	}
	return status.OperationsComplete, nil
}
