package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/theo-boilerplate/backend-go/internal/api"
	"github.com/theo-boilerplate/backend-go/internal/config"
	"github.com/theo-boilerplate/backend-go/internal/database"
	"github.com/theo-boilerplate/backend-go/internal/database/service"
	"github.com/theo-boilerplate/backend-go/internal/handler"
	"github.com/theo-boilerplate/backend-go/internal/logger"
	"github.com/theo-boilerplate/backend-go/internal/metrics"
	"github.com/theo-boilerplate/backend-go/internal/middleware"
	"github.com/theo-boilerplate/backend-go/internal/security"
	"github.com/theo-boilerplate/backend-go/internal/worker"
)

const (
	drainTimeout    = 10 * time.Second
	shutdownTimeout = 15 * time.Second
)

func main() {
	os.Exit(run())
}

// run owns every resource so deferred cleanup completes before the process exits.
func run() int {
	// 1. Config
	cfg := config.LoadConfig()

	// 2. Logger
	appLogger := logger.New(cfg)

	appLogger.Info("🚀 [Go] Starting user service...",
		"service", cfg.AppName,
		"environment", cfg.AppEnv,
		"version", handler.Version,
	)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 3. Connect to Database
	db, driver, err := database.ConnectDatabase(cfg, appLogger)
	if err != nil {
		appLogger.Error("❌ Failed to connect to database", "error", err)
		return 1
	}
	sqlDB, err := db.DB()
	if err != nil {
		appLogger.Error("❌ Failed to access connection pool", "error", err)
		return 1
	}
	defer sqlDB.Close()

	// 4. Schema
	if cfg.RunMigrations {
		if err := database.RunMigrations(context.Background(), db, driver); err != nil {
			appLogger.Error("❌ Failed to run migrations", "error", err)
			return 1
		}
	}
	if cfg.AutoInitSchema {
		if cfg.IsProduction() {
			appLogger.Warn("⚠️ [Database] Schema auto-init is disabled in production")
		} else if err := database.InitSchema(db); err != nil {
			appLogger.Error("❌ Failed to initialize schema", "error", err)
			return 1
		}
	}

	// 5. Login throttling (Redis, optional)
	var loginLimiter middleware.LoginRateLimiter
	redisClient, err := database.NewRedisClient(cfg, appLogger)
	if err != nil {
		appLogger.Warn("⚠️ Failed to connect to Redis, using no-op login limiter", "error", err)
		loginLimiter = middleware.NewNoOpLoginRateLimiter(appLogger)
	} else {
		loginLimiter = middleware.NewLoginRateLimiter(redisClient, cfg, appLogger)
	}
	defer loginLimiter.Close()

	// 6. Metrics
	appMetrics := metrics.New()
	if err := appMetrics.RegisterDB(sqlDB, cfg.AppName); err != nil {
		appLogger.Warn("⚠️ Failed to register pool metrics", "error", err)
	}

	// 7. Services, Handlers & Middleware
	sessions := database.NewSessionManager(db, cfg.DBPoolTimeout, appLogger)
	users := service.NewUserServiceFactory(security.NewBcryptHasher(cfg.BcryptCost), appLogger)
	tokens := service.NewTokenService(cfg.JWTSecret, cfg.AccessTokenExpiration)

	r := api.SetupRouter(
		cfg,
		appLogger,
		appMetrics,
		handler.NewHealthHandler(cfg, sessions, appLogger),
		handler.NewUserHandler(sessions, users, appLogger),
		handler.NewAuthHandler(sessions, users, tokens, loginLimiter, appLogger),
		middleware.NewAuthMiddleware(tokens, appLogger),
	)

	// 8. Start HTTP Server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ApiServicePort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := worker.NewPool(ctx, appLogger)
	pool.Go("http", worker.HTTPServerTask(srv, nil, drainTimeout, appLogger))

	<-pool.Context().Done()
	if err := pool.Shutdown(shutdownTimeout); err != nil {
		appLogger.Error("❌ Server stopped with error", "error", err)
		return 1
	}
	appLogger.Info("👋 [Go] Shutdown complete")
	return 0
}
