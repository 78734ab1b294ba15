// Package handlers contains HTTP request handlers for the eFIR API.
// Handlers parse requests, call services, and return JSON responses.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/efir/efir-server/internal/services"
	"go.uber.org/zap"
)

// Helper: respond with JSON
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Helper: respond with error
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError translates the service error taxonomy to HTTP
// codes. Validation errors carry their per-field breakdown so the UI
// can attach messages to inputs.
func respondServiceError(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
	case errors.Is(err, services.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, services.ErrInvalidCredentials.Error())
	case errors.Is(err, services.ErrNotFound):
		respondError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrDuplicateIdentity):
		respondError(w, http.StatusConflict, services.ErrDuplicateIdentity.Error())
	case errors.Is(err, services.ErrInvalidTransition):
		respondError(w, http.StatusConflict, err.Error())
	default:
		logger.Errorw("Unhandled service error", "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
