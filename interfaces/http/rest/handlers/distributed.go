package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"appaccess-backend/domain/events"
)

// OperationRouter is the routing surface the distributed front end forwards
// operations through.
type OperationRouter interface {
	RouteMutation(ctx context.Context, action events.Action, payload events.Payload) error
	GetUserToGroupMappings(ctx context.Context, user string, includeIndirect bool) ([]string, error)
	GetGroupToUserMappings(ctx context.Context, group string, includeIndirect bool) ([]string, error)
	GetGroupToGroupMappings(ctx context.Context, group string, includeIndirect bool) ([]string, error)
	HasAccessToApplicationComponent(ctx context.Context, user, component, accessLevel string) (bool, error)
}

// DistributedHandler serves the cluster front-end API, forwarding each
// operation to the shard owning its element.
type DistributedHandler struct {
	router OperationRouter
	logger *zap.Logger
}

// NewDistributedHandler creates a handler over the operation router.
func NewDistributedHandler(router OperationRouter, logger *zap.Logger) *DistributedHandler {
	return &DistributedHandler{router: router, logger: logger}
}

// Mutate routes the mutation derived from the request method and path. POST
// maps to Add, DELETE to Remove.
func (h *DistributedHandler) mutate(w http.ResponseWriter, r *http.Request, payload events.Payload) {
	action := events.Add
	if r.Method == http.MethodDelete {
		action = events.Remove
	}
	if err := h.router.RouteMutation(r.Context(), action, payload); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if action == events.Remove {
		removed(w)
		return
	}
	created(w)
}

func (h *DistributedHandler) User(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, events.UserPayload{User: chi.URLParam(r, "user")})
}

func (h *DistributedHandler) Group(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, events.GroupPayload{Group: chi.URLParam(r, "group")})
}

func (h *DistributedHandler) UserToGroupMapping(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, events.UserToGroupPayload{
		User:  chi.URLParam(r, "user"),
		Group: chi.URLParam(r, "group"),
	})
}

func (h *DistributedHandler) GroupToGroupMapping(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, events.GroupToGroupPayload{
		FromGroup: chi.URLParam(r, "fromGroup"),
		ToGroup:   chi.URLParam(r, "toGroup"),
	})
}

func (h *DistributedHandler) UserToComponentMapping(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, events.UserToComponentAccessPayload{
		User:                 chi.URLParam(r, "user"),
		ApplicationComponent: chi.URLParam(r, "applicationComponent"),
		AccessLevel:          chi.URLParam(r, "accessLevel"),
	})
}

func (h *DistributedHandler) GroupToComponentMapping(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, events.GroupToComponentAccessPayload{
		Group:                chi.URLParam(r, "group"),
		ApplicationComponent: chi.URLParam(r, "applicationComponent"),
		AccessLevel:          chi.URLParam(r, "accessLevel"),
	})
}

func (h *DistributedHandler) EntityType(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, events.EntityTypePayload{EntityType: chi.URLParam(r, "entityType")})
}

func (h *DistributedHandler) Entity(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, events.EntityPayload{
		EntityType: chi.URLParam(r, "entityType"),
		Entity:     chi.URLParam(r, "entity"),
	})
}

func (h *DistributedHandler) UserToEntityMapping(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, events.UserToEntityPayload{
		User:       chi.URLParam(r, "user"),
		EntityType: chi.URLParam(r, "entityType"),
		Entity:     chi.URLParam(r, "entity"),
	})
}

func (h *DistributedHandler) GroupToEntityMapping(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, events.GroupToEntityPayload{
		Group:      chi.URLParam(r, "group"),
		EntityType: chi.URLParam(r, "entityType"),
		Entity:     chi.URLParam(r, "entity"),
	})
}

func (h *DistributedHandler) GetUserToGroupMappings(w http.ResponseWriter, r *http.Request) {
	indirect, err := includeIndirect(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	groups, err := h.router.GetUserToGroupMappings(r.Context(), chi.URLParam(r, "user"), indirect)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (h *DistributedHandler) GetGroupToUserMappings(w http.ResponseWriter, r *http.Request) {
	indirect, err := includeIndirect(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	users, err := h.router.GetGroupToUserMappings(r.Context(), chi.URLParam(r, "group"), indirect)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *DistributedHandler) GetGroupToGroupMappings(w http.ResponseWriter, r *http.Request) {
	indirect, err := includeIndirect(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	groups, err := h.router.GetGroupToGroupMappings(r.Context(), chi.URLParam(r, "group"), indirect)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (h *DistributedHandler) HasAccessToApplicationComponent(w http.ResponseWriter, r *http.Request) {
	has, err := h.router.HasAccessToApplicationComponent(r.Context(),
		chi.URLParam(r, "user"), chi.URLParam(r, "applicationComponent"), chi.URLParam(r, "accessLevel"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, has)
}
