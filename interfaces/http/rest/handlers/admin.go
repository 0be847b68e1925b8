package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"appaccess-backend/application/routing"
	apperrors "appaccess-backend/pkg/errors"
)

// ShardCoordinator reconfigures the cluster's shard layout.
type ShardCoordinator interface {
	SplitShard(ctx context.Context, kind routing.ElementKind, rangeStart, rangeEnd int32, destination routing.ShardGroup) error
	MergeShards(ctx context.Context, kind routing.ElementKind, rangeStart int32) error
}

// AdminHandler serves the shard reconfiguration API on the operation router.
type AdminHandler struct {
	coordinator ShardCoordinator
	logger      *zap.Logger
}

// NewAdminHandler creates an admin handler over the coordinator.
func NewAdminHandler(coordinator ShardCoordinator, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{coordinator: coordinator, logger: logger}
}

type splitRequest struct {
	ElementKind    string             `json:"elementKind"`
	HashRangeStart int32              `json:"hashRangeStart"`
	HashRangeEnd   int32              `json:"hashRangeEnd"`
	Destination    routing.ShardGroup `json:"destination"`
}

type mergeRequest struct {
	ElementKind    string `json:"elementKind"`
	HashRangeStart int32  `json:"hashRangeStart"`
}

func parseElementKind(raw string) (routing.ElementKind, error) {
	switch kind := routing.ElementKind(raw); kind {
	case routing.ElementUser, routing.ElementGroup, routing.ElementGroupToGroupMapping:
		return kind, nil
	default:
		return "", apperrors.NewInvalidArgument("elementKind", "elementKind must be User, Group or GroupToGroupMapping")
	}
}

// SplitShard moves a hash range out of its current shard onto a new shard
// group and cuts the configuration over.
func (h *AdminHandler) SplitShard(w http.ResponseWriter, r *http.Request) {
	var req splitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperrors.NewInvalidArgument("body", "request body must be a JSON split request"))
		return
	}
	kind, err := parseElementKind(req.ElementKind)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.coordinator.SplitShard(r.Context(), kind, req.HashRangeStart, req.HashRangeEnd, req.Destination); err != nil {
		writeError(w, h.logger, err)
		return
	}
	created(w)
}

// MergeShards folds the shard starting at hashRangeStart into its predecessor.
func (h *AdminHandler) MergeShards(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperrors.NewInvalidArgument("body", "request body must be a JSON merge request"))
		return
	}
	kind, err := parseElementKind(req.ElementKind)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.coordinator.MergeShards(r.Context(), kind, req.HashRangeStart); err != nil {
		writeError(w, h.logger, err)
		return
	}
	created(w)
}
