package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"plaasstop-backend/internal/handler"
	mid "plaasstop-backend/internal/middleware"
	"plaasstop-backend/internal/model"
	"plaasstop-backend/internal/service"
	"plaasstop-backend/pkg/config"
	"plaasstop-backend/pkg/database"
	"plaasstop-backend/pkg/jwtutil"
	"plaasstop-backend/pkg/logger"
	"plaasstop-backend/prometheus"
)

func main() {
	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		// Can't use the structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	if err := logger.InitLogger(appConfig); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting plaasstop-backend",
		zap.String("environment", appConfig.Server.Env),
		zap.String("port", appConfig.Server.Port),
		zap.String("geo_backend", appConfig.Geo.Backend))

	// Initialize Prometheus metrics
	prometheus.InitMetrics(appConfig)
	log.Info("Prometheus metrics initialized",
		zap.String("metrics_prefix", appConfig.Metrics.Prefix))

	// Initialize database
	db, err := database.InitDB(&appConfig.Database)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	if err := database.MigrateModels(&model.User{}, &model.Farm{}); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	if appConfig.Geo.Backend == config.GeoBackendPostGIS {
		if err := database.EnablePostGIS(db); err != nil {
			log.Fatal("Failed to set up PostGIS", zap.Error(err))
		}
		log.Info("PostGIS extension and spatial index ready")
	}

	// Services and handlers
	jwtUtil := jwtutil.NewJWTUtil(&appConfig.JWT)
	userService := service.NewUserService(db)
	farmService := service.NewFarmService(db, &appConfig.Geo)

	healthHandler := handler.NewHealthHandler(db)
	authHandler := handler.NewAuthHandler(userService)
	farmHandler := handler.NewFarmHandler(farmService)

	// Initialize Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(echomw.Recover())
	e.Use(echomw.Secure())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: appConfig.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	e.Use(echomw.RateLimiter(echomw.NewRateLimiterMemoryStore(rate.Limit(20))))
	e.Use(mid.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(mid.MetricsMiddleware)

	// Metrics endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Health probes
	e.GET("/health/live", healthHandler.Live)
	e.GET("/health/ready", healthHandler.Ready)

	// Auth routes - require a verified bearer identity
	authAPI := e.Group("/api/auth", mid.AuthMiddleware(jwtUtil))
	authAPI.POST("/sync", authHandler.Sync)
	authAPI.GET("/me", authHandler.Me)

	// Farm routes - search is public, claiming requires identity
	e.POST("/api/farms/search", farmHandler.Search)
	e.POST("/api/farms/:id/claim", farmHandler.Claim, mid.AuthMiddleware(jwtUtil))

	// Start server
	go func() {
		if err := e.Start(":" + appConfig.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error", zap.Error(err))
		}
	}()
	log.Info("Server started", zap.String("port", appConfig.Server.Port))

	// Drain in-flight requests on shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Fatal("Forced shutdown", zap.Error(err))
	}
	log.Info("Server stopped")
}
