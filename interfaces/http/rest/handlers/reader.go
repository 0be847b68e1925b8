package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"appaccess-backend/domain/access"
)

// QuerierSource returns the current query surface. Reader nodes hot-swap
// their replica, so handlers resolve the querier per request.
type QuerierSource func() access.Querier

// ReaderHandler serves the read-only query surface.
type ReaderHandler struct {
	querier QuerierSource
	logger  *zap.Logger
}

// NewReaderHandler creates a reader handler.
func NewReaderHandler(querier QuerierSource, logger *zap.Logger) *ReaderHandler {
	return &ReaderHandler{querier: querier, logger: logger}
}

func (h *ReaderHandler) GetUsers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.querier().GetUsers())
}

func (h *ReaderHandler) GetGroups(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.querier().GetGroups())
}

func (h *ReaderHandler) GetEntityTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.querier().GetEntityTypes())
}

func (h *ReaderHandler) ContainsUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.querier().ContainsUser(chi.URLParam(r, "user")))
}

func (h *ReaderHandler) ContainsGroup(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.querier().ContainsGroup(chi.URLParam(r, "group")))
}

func (h *ReaderHandler) GetEntities(w http.ResponseWriter, r *http.Request) {
	h.respondList(w, func(q access.Querier) (any, error) {
		return q.GetEntities(chi.URLParam(r, "entityType"))
	})
}

func (h *ReaderHandler) respondList(w http.ResponseWriter, query func(q access.Querier) (any, error)) {
	result, err := query(h.querier())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ReaderHandler) GetUserToGroupMappings(w http.ResponseWriter, r *http.Request) {
	indirect, err := includeIndirect(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.respondList(w, func(q access.Querier) (any, error) {
		return q.GetUserToGroupMappings(chi.URLParam(r, "user"), indirect)
	})
}

func (h *ReaderHandler) GetGroupToUserMappings(w http.ResponseWriter, r *http.Request) {
	indirect, err := includeIndirect(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.respondList(w, func(q access.Querier) (any, error) {
		return q.GetGroupToUserMappings(chi.URLParam(r, "group"), indirect)
	})
}

func (h *ReaderHandler) GetGroupToGroupMappings(w http.ResponseWriter, r *http.Request) {
	indirect, err := includeIndirect(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.respondList(w, func(q access.Querier) (any, error) {
		return q.GetGroupToGroupMappings(chi.URLParam(r, "group"), indirect)
	})
}

func (h *ReaderHandler) GetGroupToGroupReverseMappings(w http.ResponseWriter, r *http.Request) {
	indirect, err := includeIndirect(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.respondList(w, func(q access.Querier) (any, error) {
		return q.GetGroupToGroupReverseMappings(chi.URLParam(r, "group"), indirect)
	})
}

func (h *ReaderHandler) GetUserToApplicationComponentAndAccessLevelMappings(w http.ResponseWriter, r *http.Request) {
	h.respondList(w, func(q access.Querier) (any, error) {
		return q.GetUserToApplicationComponentAndAccessLevelMappings(chi.URLParam(r, "user"))
	})
}

func (h *ReaderHandler) GetGroupToApplicationComponentAndAccessLevelMappings(w http.ResponseWriter, r *http.Request) {
	h.respondList(w, func(q access.Querier) (any, error) {
		return q.GetGroupToApplicationComponentAndAccessLevelMappings(chi.URLParam(r, "group"))
	})
}

func (h *ReaderHandler) GetApplicationComponentAndAccessLevelToUserMappings(w http.ResponseWriter, r *http.Request) {
	indirect, err := includeIndirect(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.respondList(w, func(q access.Querier) (any, error) {
		return q.GetApplicationComponentAndAccessLevelToUserMappings(
			chi.URLParam(r, "applicationComponent"), chi.URLParam(r, "accessLevel"), indirect)
	})
}

func (h *ReaderHandler) GetApplicationComponentAndAccessLevelToGroupMappings(w http.ResponseWriter, r *http.Request) {
	indirect, err := includeIndirect(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.respondList(w, func(q access.Querier) (any, error) {
		return q.GetApplicationComponentAndAccessLevelToGroupMappings(
			chi.URLParam(r, "applicationComponent"), chi.URLParam(r, "accessLevel"), indirect)
	})
}

func (h *ReaderHandler) GetUserToEntityMappings(w http.ResponseWriter, r *http.Request) {
	h.respondList(w, func(q access.Querier) (any, error) {
		return q.GetUserToEntityMappings(chi.URLParam(r, "user"))
	})
}

func (h *ReaderHandler) GetUserToEntityMappingsForType(w http.ResponseWriter, r *http.Request) {
	h.respondList(w, func(q access.Querier) (any, error) {
		return q.GetUserToEntityMappingsForType(chi.URLParam(r, "user"), chi.URLParam(r, "entityType"))
	})
}

func (h *ReaderHandler) GetGroupToEntityMappings(w http.ResponseWriter, r *http.Request) {
	h.respondList(w, func(q access.Querier) (any, error) {
		return q.GetGroupToEntityMappings(chi.URLParam(r, "group"))
	})
}

func (h *ReaderHandler) GetGroupToEntityMappingsForType(w http.ResponseWriter, r *http.Request) {
	h.respondList(w, func(q access.Querier) (any, error) {
		return q.GetGroupToEntityMappingsForType(chi.URLParam(r, "group"), chi.URLParam(r, "entityType"))
	})
}

func (h *ReaderHandler) GetEntityToUserMappings(w http.ResponseWriter, r *http.Request) {
	indirect, err := includeIndirect(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.respondList(w, func(q access.Querier) (any, error) {
		return q.GetEntityToUserMappings(chi.URLParam(r, "entityType"), chi.URLParam(r, "entity"), indirect)
	})
}

func (h *ReaderHandler) GetEntityToGroupMappings(w http.ResponseWriter, r *http.Request) {
	indirect, err := includeIndirect(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.respondList(w, func(q access.Querier) (any, error) {
		return q.GetEntityToGroupMappings(chi.URLParam(r, "entityType"), chi.URLParam(r, "entity"), indirect)
	})
}

func (h *ReaderHandler) HasAccessToApplicationComponent(w http.ResponseWriter, r *http.Request) {
	has, err := h.querier().HasAccessToApplicationComponent(
		chi.URLParam(r, "user"), chi.URLParam(r, "applicationComponent"), chi.URLParam(r, "accessLevel"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, has)
}

func (h *ReaderHandler) HasAccessToEntity(w http.ResponseWriter, r *http.Request) {
	has, err := h.querier().HasAccessToEntity(
		chi.URLParam(r, "user"), chi.URLParam(r, "entityType"), chi.URLParam(r, "entity"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, has)
}

func (h *ReaderHandler) GetApplicationComponentsAccessibleByUser(w http.ResponseWriter, r *http.Request) {
	h.respondList(w, func(q access.Querier) (any, error) {
		return q.GetApplicationComponentsAccessibleByUser(chi.URLParam(r, "user"))
	})
}

func (h *ReaderHandler) GetApplicationComponentsAccessibleByGroup(w http.ResponseWriter, r *http.Request) {
	h.respondList(w, func(q access.Querier) (any, error) {
		return q.GetApplicationComponentsAccessibleByGroup(chi.URLParam(r, "group"))
	})
}

func (h *ReaderHandler) GetEntitiesAccessibleByUser(w http.ResponseWriter, r *http.Request) {
	h.respondList(w, func(q access.Querier) (any, error) {
		return q.GetEntitiesAccessibleByUser(chi.URLParam(r, "user"))
	})
}

func (h *ReaderHandler) GetEntitiesOfTypeAccessibleByUser(w http.ResponseWriter, r *http.Request) {
	h.respondList(w, func(q access.Querier) (any, error) {
		return q.GetEntitiesOfTypeAccessibleByUser(chi.URLParam(r, "user"), chi.URLParam(r, "entityType"))
	})
}

func (h *ReaderHandler) GetEntitiesAccessibleByGroup(w http.ResponseWriter, r *http.Request) {
	h.respondList(w, func(q access.Querier) (any, error) {
		return q.GetEntitiesAccessibleByGroup(chi.URLParam(r, "group"))
	})
}
