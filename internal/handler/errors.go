package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pkordes/fleet-dispatch/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// requestError writes a 422 for a request rejected before it reaches the
// service layer (e.g. missing body, malformed id).
func requestError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnprocessableEntity, "validation_error", message)
}

// decodeBody reads a JSON body into dst.
// It writes the error response itself and returns false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
		return false
	}
	requestError(w, "request body must be a JSON object")
	return false
}

// serviceError maps an error returned by the service layer onto a response.
// Unknown errors are logged and hidden behind a generic 500.
func (s *Server) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	var transition *domain.TransitionError
	switch {
	case errors.As(err, &transition):
		writeError(w, http.StatusBadRequest, "invalid_transition", transition.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", unwrapMessage(err, domain.ErrNotFound))
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, "validation_error", unwrapMessage(err, domain.ErrValidation))
	case errors.Is(err, domain.ErrInvalidState):
		writeError(w, http.StatusBadRequest, "invalid_state", unwrapMessage(err, domain.ErrInvalidState))
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", unwrapMessage(err, domain.ErrConflict))
	default:
		s.log.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", chimiddleware.GetReqID(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

// unwrapMessage extracts the human-readable part that follows the sentinel
// in a wrapped error chain.
// e.g. "service.TripService.Create: invalid state: driver license expired on 2025-06-01"
// becomes "driver license expired on 2025-06-01". Text before the sentinel
// names a subject when it is not a package path:
// "service.TripService.Create: vehicle: conflict: already has an active trip X"
// becomes "vehicle already has an active trip X".
func unwrapMessage(err, sentinel error) string {
	msg := err.Error()
	marker := sentinel.Error() + ": "
	i := strings.LastIndex(msg, marker)
	if i < 0 {
		return sentinel.Error()
	}
	reason := msg[i+len(marker):]

	prefix := strings.TrimSuffix(msg[:i], ": ")
	if j := strings.LastIndex(prefix, ": "); j >= 0 {
		prefix = prefix[j+2:]
	}
	if prefix != "" && !strings.Contains(prefix, ".") {
		return prefix + " " + reason
	}
	return reason
}
