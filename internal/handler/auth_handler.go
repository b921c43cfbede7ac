package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"plaasstop-backend/internal/middleware"
	"plaasstop-backend/internal/model"
	"plaasstop-backend/internal/service"
	"plaasstop-backend/pkg/logger"
	"plaasstop-backend/prometheus"
)

// SyncRequest is the body of an identity sync call. The identity itself
// (id, email) comes from the verified bearer token, never from the body.
type SyncRequest struct {
	Role     string `json:"role"`
	Name     string `json:"name"`
	FarmName string `json:"farmName"`
}

// AuthHandler serves the identity sync and profile endpoints.
type AuthHandler struct {
	users *service.UserService
}

// NewAuthHandler creates an AuthHandler on top of the user service.
func NewAuthHandler(users *service.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

// Sync upserts the caller's user record after an identity-provider signup
// or login, provisioning a vendor farm when requested.
func (h *AuthHandler) Sync(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.SyncRequestsCounter.Inc()

	identity := middleware.IdentityFromContext(c)
	if identity == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized: No token provided"})
	}

	var req SyncRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("Invalid sync request body", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	farmCreated, err := h.users.Sync(c.Request().Context(), service.SyncInput{
		ID:       identity.UserID(),
		Email:    identity.Email,
		Role:     req.Role,
		Name:     req.Name,
		FarmName: req.FarmName,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidRole) {
			log.Warn("Sync with invalid role", zap.String("role", req.Role))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid role"})
		}
		log.Error("Sync failed",
			zap.String("user_id", identity.UserID()),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Database write failed"})
	}

	if farmCreated {
		prometheus.FarmsProvisioned.Inc()
	}
	log.Info("User profile synced",
		zap.String("user_id", identity.UserID()),
		zap.String("role", req.Role),
		zap.Bool("farm_created", farmCreated))
	return c.JSON(http.StatusOK, echo.Map{"message": "User profile synced"})
}

// ProfileResponse is the combined user-plus-farm payload of /api/auth/me.
// Farm is null for buyers and for vendors without a provisioned farm.
type ProfileResponse struct {
	model.User
	Farm *model.Farm `json:"farm"`
}

// Me returns the caller's profile and, for vendors, their farm.
func (h *AuthHandler) Me(c echo.Context) error {
	log := logger.FromContext(c)

	identity := middleware.IdentityFromContext(c)
	if identity == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized: No token provided"})
	}

	user, farm, err := h.users.Profile(c.Request().Context(), identity.UserID())
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "User profile not found"})
		}
		log.Error("Profile lookup failed",
			zap.String("user_id", identity.UserID()),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch profile"})
	}

	return c.JSON(http.StatusOK, ProfileResponse{User: *user, Farm: farm})
}
