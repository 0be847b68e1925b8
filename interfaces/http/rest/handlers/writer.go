package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"appaccess-backend/domain/access"
)

// WriterHandler serves the event-producing surface: POST creates an element
// or mapping, DELETE removes it. Path segments arrive percent-decoded from
// the router.
type WriterHandler struct {
	mutator access.Mutator
	logger  *zap.Logger
}

// NewWriterHandler creates a writer handler over the node's mutation surface.
func NewWriterHandler(mutator access.Mutator, logger *zap.Logger) *WriterHandler {
	return &WriterHandler{mutator: mutator, logger: logger}
}

func (h *WriterHandler) mutate(w http.ResponseWriter, r *http.Request, op func() error) {
	if err := op(); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if r.Method == http.MethodDelete {
		removed(w)
		return
	}
	created(w)
}

func (h *WriterHandler) AddUser(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func() error { return h.mutator.AddUser(chi.URLParam(r, "user")) })
}

func (h *WriterHandler) RemoveUser(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func() error { return h.mutator.RemoveUser(chi.URLParam(r, "user")) })
}

func (h *WriterHandler) AddGroup(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func() error { return h.mutator.AddGroup(chi.URLParam(r, "group")) })
}

func (h *WriterHandler) RemoveGroup(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func() error { return h.mutator.RemoveGroup(chi.URLParam(r, "group")) })
}

func (h *WriterHandler) AddUserToGroupMapping(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func() error {
		return h.mutator.AddUserToGroupMapping(chi.URLParam(r, "user"), chi.URLParam(r, "group"))
	})
}

func (h *WriterHandler) RemoveUserToGroupMapping(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func() error {
		return h.mutator.RemoveUserToGroupMapping(chi.URLParam(r, "user"), chi.URLParam(r, "group"))
	})
}

func (h *WriterHandler) AddGroupToGroupMapping(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func() error {
		return h.mutator.AddGroupToGroupMapping(chi.URLParam(r, "fromGroup"), chi.URLParam(r, "toGroup"))
	})
}

func (h *WriterHandler) RemoveGroupToGroupMapping(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func() error {
		return h.mutator.RemoveGroupToGroupMapping(chi.URLParam(r, "fromGroup"), chi.URLParam(r, "toGroup"))
	})
}

func (h *WriterHandler) AddUserToApplicationComponentAndAccessLevelMapping(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func() error {
		return h.mutator.AddUserToApplicationComponentAndAccessLevelMapping(
			chi.URLParam(r, "user"), chi.URLParam(r, "applicationComponent"), chi.URLParam(r, "accessLevel"))
	})
}

func (h *WriterHandler) RemoveUserToApplicationComponentAndAccessLevelMapping(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func() error {
		return h.mutator.RemoveUserToApplicationComponentAndAccessLevelMapping(
			chi.URLParam(r, "user"), chi.URLParam(r, "applicationComponent"), chi.URLParam(r, "accessLevel"))
	})
}

func (h *WriterHandler) AddGroupToApplicationComponentAndAccessLevelMapping(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func() error {
		return h.mutator.AddGroupToApplicationComponentAndAccessLevelMapping(
			chi.URLParam(r, "group"), chi.URLParam(r, "applicationComponent"), chi.URLParam(r, "accessLevel"))
	})
}

func (h *WriterHandler) RemoveGroupToApplicationComponentAndAccessLevelMapping(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func() error {
		return h.mutator.RemoveGroupToApplicationComponentAndAccessLevelMapping(
			chi.URLParam(r, "group"), chi.URLParam(r, "applicationComponent"), chi.URLParam(r, "accessLevel"))
	})
}

func (h *WriterHandler) AddEntityType(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func() error { return h.mutator.AddEntityType(chi.URLParam(r, "entityType")) })
}

func (h *WriterHandler) RemoveEntityType(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func() error { return h.mutator.RemoveEntityType(chi.URLParam(r, "entityType")) })
}

func (h *WriterHandler) AddEntity(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func() error {
		return h.mutator.AddEntity(chi.URLParam(r, "entityType"), chi.URLParam(r, "entity"))
	})
}

func (h *WriterHandler) RemoveEntity(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func() error {
		return h.mutator.RemoveEntity(chi.URLParam(r, "entityType"), chi.URLParam(r, "entity"))
	})
}

func (h *WriterHandler) AddUserToEntityMapping(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func() error {
		return h.mutator.AddUserToEntityMapping(
			chi.URLParam(r, "user"), chi.URLParam(r, "entityType"), chi.URLParam(r, "entity"))
	})
}

func (h *WriterHandler) RemoveUserToEntityMapping(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func() error {
		return h.mutator.RemoveUserToEntityMapping(
			chi.URLParam(r, "user"), chi.URLParam(r, "entityType"), chi.URLParam(r, "entity"))
	})
}

func (h *WriterHandler) AddGroupToEntityMapping(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func() error {
		return h.mutator.AddGroupToEntityMapping(
			chi.URLParam(r, "group"), chi.URLParam(r, "entityType"), chi.URLParam(r, "entity"))
	})
}

func (h *WriterHandler) RemoveGroupToEntityMapping(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func() error {
		return h.mutator.RemoveGroupToEntityMapping(
			chi.URLParam(r, "group"), chi.URLParam(r, "entityType"), chi.URLParam(r, "entity"))
	})
}
