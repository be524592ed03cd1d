// Package handler exposes the CMDB over HTTP. Handlers decode requests,
// call the services, and translate the error taxonomy to status codes.
// All /api/v1 routes sit behind the API key middleware.
package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/T-6891/Dementor-API/internal/domain"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON: %v", err)
	}
}

func writeError(w http.ResponseWriter, error, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: error, Details: details}); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}

// writeDomainError maps the error taxonomy to HTTP statuses. Unclassified
// errors become an opaque 500 so internals never leak to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, "Not found", err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrUnknownType), errors.Is(err, domain.ErrValidation):
		writeError(w, "Invalid request", err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, "Unauthorized", err.Error(), http.StatusUnauthorized)
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, "Forbidden", err.Error(), http.StatusForbidden)
	case errors.Is(err, domain.ErrConflict):
		writeError(w, "Conflict", err.Error(), http.StatusConflict)
	default:
		log.Printf("Internal error: %v", err)
		writeError(w, "Internal server error", "", http.StatusInternalServerError)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
