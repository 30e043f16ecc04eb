// Package server provides HTTP server setup and configuration.
package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sebasr/vitals-service/internal/auth"
	"github.com/sebasr/vitals-service/internal/config"
	"github.com/sebasr/vitals-service/internal/handlers"
	"github.com/sebasr/vitals-service/internal/metrics"
	"github.com/sebasr/vitals-service/internal/middleware"
	"github.com/sebasr/vitals-service/internal/pagination"
	"github.com/sebasr/vitals-service/internal/repository"
)

const healthPath = "/api/v1/health"

// Dependencies holds all dependencies needed to create a server
type Dependencies struct {
	Config       *config.Config
	Logger       *zap.Logger
	Metrics      *metrics.Manager
	JWT          *auth.JWTService
	Pages        *pagination.Registry
	Store        repository.VitalsRepository
	Uploader     handlers.Uploader
	Sessions     handlers.SessionTracker
	HealthChecks map[string]handlers.HealthChecker // Optional: extra dependencies reported by /health
}

// New creates a new Gin router with all routes configured
func New(deps *Dependencies) *gin.Engine {
	// Set Gin to release mode to disable ANSI colors in logs
	gin.SetMode(gin.ReleaseMode)

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Add CORS middleware for web client support
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Content-Encoding", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	var recorder middleware.HTTPRecorder
	if deps.Metrics != nil {
		recorder = deps.Metrics
	}

	router.Use(middleware.RequestID())
	router.Use(middleware.Observe(logger, recorder, healthPath))
	router.Use(middleware.NewRateLimitMiddleware(deps.Config.Server.RateLimit, time.Minute))
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithDecompressFn(gzip.DefaultDecompressHandle)))

	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	authMiddleware := middleware.NewAuthMiddleware(deps.JWT)
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks)
	vitalsHandler := handlers.NewVitalsHandler(deps.Pages, deps.Store, deps.Uploader, deps.Sessions, logger)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Handle)

		vitals := v1.Group("/vitals")
		vitals.Use(authMiddleware.Required())
		{
			vitals.GET("", vitalsHandler.GetPage)
			vitals.GET("/range", vitalsHandler.GetRange)
			vitals.GET("/latest", vitalsHandler.GetLatest)
			vitals.POST("/refresh", vitalsHandler.Refresh)
			vitals.POST("/upload",
				middleware.NewRateLimitMiddleware(deps.Config.Server.UploadRateLimit, time.Minute),
				vitalsHandler.Upload,
			)
		}
	}

	return router
}
