package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/efir/efir-server/internal/middleware"
	"github.com/efir/efir-server/internal/models"
	"github.com/efir/efir-server/internal/services"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// tokenTTL is the lifetime of an issued session token.
const tokenTTL = 24 * time.Hour

// AuthHandler handles registration, login and profile endpoints.
type AuthHandler struct {
	registry  *services.RegistryService
	jwtSecret string
	logger    *zap.SugaredLogger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(registry *services.RegistryService, jwtSecret string, logger *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{registry: registry, jwtSecret: jwtSecret, logger: logger}
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	identity, err := h.registry.Register(r.Context(), req)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, identity)
}

// Login handles POST /api/v1/auth/login. On success it returns the
// identity together with a signed session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	identity, err := h.registry.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	token, err := h.issueToken(identity)
	if err != nil {
		h.logger.Errorw("Failed to sign token", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"identity": identity,
		"token":    token,
	})
}

// Profile handles GET /api/v1/profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.CallerEmail(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization required")
		return
	}

	identity, err := h.registry.Lookup(r.Context(), email)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, identity)
}

// UpdateProfile handles PUT /api/v1/profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.CallerEmail(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization required")
		return
	}

	var upd models.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	identity, err := h.registry.UpdateProfile(r.Context(), email, upd)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, identity)
}

func (h *AuthHandler) issueToken(identity *models.Identity) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   identity.ID.String(),
		"email": identity.Email,
		"name":  identity.Name,
		"role":  identity.Role,
		"iat":   now.Unix(),
		"exp":   now.Add(tokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.jwtSecret))
}
