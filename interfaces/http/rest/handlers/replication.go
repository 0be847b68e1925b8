package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"appaccess-backend/domain/events"
	apperrors "appaccess-backend/pkg/errors"
)

// EventLog exposes a writer's persisted event log for shard replication reads.
type EventLog interface {
	Events() []events.TemporalEvent
}

// EventIngestor accepts replicated events on the destination writer of a shard
// split or merge, preserving their original headers.
type EventIngestor interface {
	IngestEvents(ctx context.Context, batch []events.TemporalEvent) error
}

// PendingOperations reports how many accepted mutations have not yet been
// flushed, which the coordinator polls to detect quiescence.
type PendingOperations interface {
	Len() int
}

const defaultReplicationLimit = 1000

// ReplicationHandler serves the writer-to-writer replication API used during
// shard splits and merges.
type ReplicationHandler struct {
	log      EventLog
	ingestor EventIngestor
	pending  PendingOperations
	logger   *zap.Logger
}

// NewReplicationHandler creates a replication handler over a writer's log,
// ingest surface and flush backlog.
func NewReplicationHandler(log EventLog, ingestor EventIngestor, pending PendingOperations, logger *zap.Logger) *ReplicationHandler {
	return &ReplicationHandler{log: log, ingestor: ingestor, pending: pending, logger: logger}
}

// GetEvents returns up to limit persisted events after afterEventId whose hash
// codes fall in the requested cyclic range.
func (h *ReplicationHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	after := uuid.Nil
	if raw := query.Get("afterEventId"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, h.logger, apperrors.NewInvalidArgument("afterEventId", "afterEventId must be a UUID"))
			return
		}
		after = parsed
	}
	rangeStart, err := parseInt32Param(query.Get("hashRangeStart"), "hashRangeStart")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	rangeEnd, err := parseInt32Param(query.Get("hashRangeEnd"), "hashRangeEnd")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	limit := defaultReplicationLimit
	if raw := query.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(w, h.logger, apperrors.NewInvalidArgument("limit", "limit must be a positive integer"))
			return
		}
	}

	log := h.log.Events()
	start := 0
	if after != uuid.Nil {
		found := false
		for i, ev := range log {
			if ev.EventID == after {
				start = i + 1
				found = true
				break
			}
		}
		if !found {
			writeError(w, h.logger, apperrors.NewNotFound("Event", after.String()))
			return
		}
	}

	batch := make([]events.TemporalEvent, 0, limit)
	for _, ev := range log[start:] {
		if !hashInRange(rangeStart, rangeEnd, ev.HashCode) {
			continue
		}
		batch = append(batch, ev)
		if len(batch) == limit {
			break
		}
	}
	writeJSON(w, http.StatusOK, batch)
}

// IngestEvents applies a replicated batch to this writer.
func (h *ReplicationHandler) IngestEvents(w http.ResponseWriter, r *http.Request) {
	var batch []events.TemporalEvent
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		writeError(w, h.logger, apperrors.NewInvalidArgument("body", "request body must be a JSON array of events"))
		return
	}
	if err := h.ingestor.IngestEvents(r.Context(), batch); err != nil {
		writeError(w, h.logger, err)
		return
	}
	created(w)
}

// OperationsComplete reports whether every accepted mutation has been flushed.
type operationsCompleteResponse struct {
	OperationsComplete bool `json:"operationsComplete"`
}

func (h *ReplicationHandler) OperationsComplete(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, operationsCompleteResponse{OperationsComplete: h.pending.Len() == 0})
}

func parseInt32Param(raw, name string) (int32, error) {
	if raw == "" {
		return 0, apperrors.NewInvalidArgument(name, name+" is required")
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, apperrors.NewInvalidArgument(name, name+" must be a 32-bit integer")
	}
	return int32(v), nil
}

// hashInRange reports whether hash lies in the cyclic half-open range
// [start, end). start == end denotes the full ring.
func hashInRange(start, end, hash int32) bool {
	if start == end {
		return true
	}
	if start < end {
		return hash >= start && hash < end
	}
	return hash >= start || hash < end
}
