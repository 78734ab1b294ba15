package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/efir/efir-server/internal/middleware"
	"github.com/efir/efir-server/internal/models"
	"github.com/efir/efir-server/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// FIRHandler handles FIR filing, lookup and status endpoints.
type FIRHandler struct {
	reports  *services.ReportService
	registry *services.RegistryService
	logger   *zap.SugaredLogger
}

// NewFIRHandler creates a new FIR handler
func NewFIRHandler(reports *services.ReportService, registry *services.RegistryService, logger *zap.SugaredLogger) *FIRHandler {
	return &FIRHandler{reports: reports, registry: registry, logger: logger}
}

// Submit handles POST /api/v1/firs. The owner is the authenticated
// caller; complainant details default to the owner's profile.
func (h *FIRHandler) Submit(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.CallerEmail(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization required")
		return
	}

	owner, err := h.registry.Lookup(r.Context(), email)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	var sub models.ReportSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	report, err := h.reports.Submit(r.Context(), *owner, sub)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, report)
}

// Mine handles GET /api/v1/firs/mine — every report owned by the caller,
// most recent first.
func (h *FIRHandler) Mine(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.CallerEmail(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization required")
		return
	}

	reports, err := h.reports.ListByOwner(r.Context(), email)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, reports)
}

// Enquiry handles GET /api/v1/firs/{firNumber} — public status lookup
// by exact FIR number.
func (h *FIRHandler) Enquiry(w http.ResponseWriter, r *http.Request) {
	firNumber := chi.URLParam(r, "firNumber")
	if firNumber == "" {
		respondError(w, http.StatusBadRequest, "FIR number required")
		return
	}

	report, err := h.reports.FindByNumber(r.Context(), firNumber)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// UpdateStatus handles PATCH /api/v1/firs/{firNumber}/status
func (h *FIRHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	firNumber := chi.URLParam(r, "firNumber")
	if firNumber == "" {
		respondError(w, http.StatusBadRequest, "FIR number required")
		return
	}

	var change models.StatusChange
	if err := json.NewDecoder(r.Body).Decode(&change); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	report, err := h.reports.AppendStatus(r.Context(), firNumber, change)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// Count handles GET /api/v1/firs/count
func (h *FIRHandler) Count(w http.ResponseWriter, r *http.Request) {
	count, err := h.reports.Count(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get count")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"count": count})
}
