package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"appaccess-backend/domain/events"
	apperrors "appaccess-backend/pkg/errors"
)

// CacheAccess is the cache surface exposed over HTTP: writers push batches in,
// readers pull everything after their watermark.
type CacheAccess interface {
	CacheEvents(ctx context.Context, batch []events.TemporalEvent) error
	GetAllEventsSince(ctx context.Context, priorEventID uuid.UUID) ([]events.TemporalEvent, error)
}

// CacheHandler serves the event cache node API.
type CacheHandler struct {
	cache  CacheAccess
	logger *zap.Logger
}

// NewCacheHandler creates a cache handler.
func NewCacheHandler(cache CacheAccess, logger *zap.Logger) *CacheHandler {
	return &CacheHandler{cache: cache, logger: logger}
}

func (h *CacheHandler) CacheEvents(w http.ResponseWriter, r *http.Request) {
	var batch []events.TemporalEvent
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		writeError(w, h.logger, apperrors.NewInvalidArgument("body", "request body must be a JSON array of events"))
		return
	}
	if err := h.cache.CacheEvents(r.Context(), batch); err != nil {
		writeError(w, h.logger, err)
		return
	}
	created(w)
}

func (h *CacheHandler) GetAllEventsSince(w http.ResponseWriter, r *http.Request) {
	priorEventID, err := uuid.Parse(chi.URLParam(r, "priorEventId"))
	if err != nil {
		writeError(w, h.logger, apperrors.NewInvalidArgument("priorEventId", "priorEventId must be a UUID"))
		return
	}
	batch, err := h.cache.GetAllEventsSince(r.Context(), priorEventID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if batch == nil {
		batch = []events.TemporalEvent{}
	}
	writeJSON(w, http.StatusOK, batch)
}
