// Package handlers contains the HTTP handlers for the writer, reader and
// event cache node APIs. Handlers translate between the URI surface and the
// domain interfaces; all domain errors cross the boundary as the standard
// JSON error envelope.
package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apperrors "appaccess-backend/pkg/errors"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	kind := apperrors.KindOf(err)
	status := apperrors.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("code", string(kind)), zap.Error(err))
	}
	writeJSON(w, status, apperrors.ToResponse(err, apperrors.UnboundedDepth))
}

// includeIndirect parses the mandatory includeIndirectMappings query flag.
func includeIndirect(r *http.Request) (bool, error) {
	switch r.URL.Query().Get("includeIndirectMappings") {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, apperrors.NewInvalidArgument("includeIndirectMappings", "includeIndirectMappings must be 'true' or 'false'")
	}
}

// created answers a successful POST per the API contract: 201 with no body.
func created(w http.ResponseWriter) {
	w.WriteHeader(http.StatusCreated)
}

// removed answers a successful DELETE: 200 with no body.
func removed(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
}
