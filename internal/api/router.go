package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/theo-boilerplate/backend-go/internal/config"
	"github.com/theo-boilerplate/backend-go/internal/handler"
	"github.com/theo-boilerplate/backend-go/internal/metrics"
	"github.com/theo-boilerplate/backend-go/internal/middleware"
)

// SetupRouter wires middleware and routes. A nil metrics disables /metrics.
func SetupRouter(
	cfg *config.Config,
	logger *slog.Logger,
	appMetrics *metrics.Metrics,
	healthHandler *handler.HealthHandler,
	userHandler *handler.UserHandler,
	authHandler *handler.AuthHandler,
	authMiddleware *middleware.AuthMiddleware,
) *gin.Engine {
	r := gin.New()
	r.SetTrustedProxies(nil)

	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	if appMetrics != nil {
		r.Use(appMetrics.Middleware())
	}
	r.Use(middleware.CORS(cfg.CORSOrigins))

	// Probes
	r.GET("/health", healthHandler.Health)
	r.GET("/health/ready", healthHandler.Ready)
	r.GET("/health/live", healthHandler.Live)

	if appMetrics != nil && cfg.MetricsEnabled {
		r.GET(cfg.MetricsPath, appMetrics.Handler())
	}

	// Auth routes (Public)
	authGroup := r.Group("/api/v1/auth")
	{
		authGroup.POST("/login", authHandler.Login)
	}

	users := r.Group("/api/v1/users")
	{
		users.GET("", userHandler.List)
		users.GET("/", userHandler.List)
		users.POST("", userHandler.Create)
		users.POST("/", userHandler.Create)
		users.GET("/me", authMiddleware.RequireAuth(), userHandler.Me)
		users.GET("/:id", userHandler.Get)
		users.PATCH("/:id", userHandler.Update)
		users.DELETE("/:id", userHandler.Delete)
	}

	return r
}
