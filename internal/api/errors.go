package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-fleet/internal/entity"
	"github.com/nerrad567/gray-logic-fleet/internal/fleet"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// isValidationError reports whether err is the caller's fault.
func isValidationError(err error) bool {
	return errors.Is(err, entity.ErrInvalidRegistration) ||
		errors.Is(err, entity.ErrMissingIdentityField) ||
		errors.Is(err, entity.ErrKindMismatch) ||
		errors.Is(err, entity.ErrUnknownKind) ||
		errors.Is(err, entity.ErrUnsupportedModel)
}

// writeRegistryError maps a registry error onto a response. Unexpected
// errors are logged and hidden from the caller.
func (s *Server) writeRegistryError(w http.ResponseWriter, r *http.Request, err error, action string) {
	switch {
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, fleet.ErrEntityNotFound):
		writeNotFound(w, "entity not found")
	case errors.Is(err, fleet.ErrEntityExists):
		writeError(w, http.StatusConflict, ErrCodeConflict, "entity already exists")
	case errors.Is(err, fleet.ErrConflict):
		writeError(w, http.StatusConflict, ErrCodeConflict, "entity was modified concurrently")
	default:
		s.logger.Error("registry operation failed",
			"action", action,
			"path", r.URL.Path,
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w, "failed to "+action)
	}
}
