package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"plaasstop-backend/pkg/logger"
)

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	db        *gorm.DB
	startedAt time.Time
}

// NewHealthHandler creates a HealthHandler for the given database.
func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db, startedAt: time.Now()}
}

// Live reports that the process is up.
func (h *HealthHandler) Live(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status": "up",
		"uptime": time.Since(h.startedAt).Seconds(),
	})
}

// Ready reports whether the database is reachable.
func (h *HealthHandler) Ready(c echo.Context) error {
	log := logger.FromContext(c)

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		log.Error("Readiness check failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"status": "not ready",
			"error":  "database unreachable",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":   "ready",
		"database": "connected",
	})
}
