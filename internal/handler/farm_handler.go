package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"plaasstop-backend/internal/middleware"
	"plaasstop-backend/internal/service"
	"plaasstop-backend/pkg/logger"
	"plaasstop-backend/prometheus"
)

// SearchRequest is the body of a proximity search. Lat and Lng are
// pointers so a missing coordinate is distinguishable from zero.
type SearchRequest struct {
	Lat        *float64 `json:"lat"`
	Lng        *float64 `json:"lng"`
	RadiusInKm float64  `json:"radiusInKm"`
}

// FarmHandler serves the proximity search and claim endpoints.
type FarmHandler struct {
	farms *service.FarmService
}

// NewFarmHandler creates a FarmHandler on top of the farm service.
func NewFarmHandler(farms *service.FarmService) *FarmHandler {
	return &FarmHandler{farms: farms}
}

// Search returns farms within the requested radius of a center point,
// nearest first, each with a display-ready distance string.
func (h *FarmHandler) Search(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.SearchRequestsCounter.Inc()

	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("Invalid search request body", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.Lat == nil || req.Lng == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing coordinates"})
	}

	results, err := h.farms.Search(c.Request().Context(), *req.Lat, *req.Lng, req.RadiusInKm)
	if err != nil {
		log.Error("Farm search failed",
			zap.Float64("lat", *req.Lat),
			zap.Float64("lng", *req.Lng),
			zap.Float64("radius_km", req.RadiusInKm),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to search farms"})
	}

	prometheus.SearchResultsReturned.Observe(float64(len(results)))
	log.Info("Farm search completed",
		zap.Float64("lat", *req.Lat),
		zap.Float64("lng", *req.Lng),
		zap.Int("count", len(results)))
	return c.JSON(http.StatusOK, results)
}

// Claim transfers a lead farm to the authenticated caller.
func (h *FarmHandler) Claim(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.ClaimAttemptsCounter.Inc()

	identity := middleware.IdentityFromContext(c)
	if identity == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized: No token provided"})
	}

	farmID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Farm not found"})
	}

	err = h.farms.Claim(c.Request().Context(), uint(farmID), identity.UserID())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFarmNotFound):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Farm not found"})
		case errors.Is(err, service.ErrFarmAlreadyClaimed):
			prometheus.ClaimConflictsCounter.Inc()
			log.Info("Claim rejected, farm already claimed",
				zap.Uint64("farm_id", farmID),
				zap.String("user_id", identity.UserID()))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Farm already claimed"})
		case errors.Is(err, service.ErrUserNotFound):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "User profile not found"})
		default:
			log.Error("Claim failed",
				zap.Uint64("farm_id", farmID),
				zap.String("user_id", identity.UserID()),
				zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to claim farm"})
		}
	}

	prometheus.ClaimSuccessCounter.Inc()
	log.Info("Farm claimed",
		zap.Uint64("farm_id", farmID),
		zap.String("user_id", identity.UserID()))
	return c.JSON(http.StatusOK, echo.Map{"message": "Farm claimed successfully!"})
}
