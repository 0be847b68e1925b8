package httpclient

import (
	"appaccess-backend/application/buffer"
	"appaccess-backend/application/reader"
	"appaccess-backend/application/routing"
)

var (
	_ routing.WriterClient    = (*WriterNodeClient)(nil)
	_ routing.ReaderClient    = (*ReaderNodeClient)(nil)
	_ routing.EventReplicator = (*ReplicatorClient)(nil)
	_ buffer.EventPublisher   = (*CacheClient)(nil)
	_ reader.EventSource      = (*CacheClient)(nil)
)
