package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/theo-boilerplate/backend-go/internal/config"
	"github.com/theo-boilerplate/backend-go/internal/database"
)

// Version is reported by GET /health.
const Version = "0.1.0"

const readinessTimeout = 2 * time.Second

// HealthHandler serves the probe endpoints.
type HealthHandler struct {
	cfg      *config.Config
	sessions database.Sessions
	logger   *slog.Logger
}

func NewHealthHandler(cfg *config.Config, sessions database.Sessions, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		cfg:      cfg,
		sessions: sessions,
		logger:   logger,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   timestamp(),
		"service":     h.cfg.AppName,
		"version":     Version,
		"environment": h.cfg.AppEnv,
		"release_id":  nullIfEmpty(h.cfg.ReleaseID),
		"build_id":    nullIfEmpty(h.cfg.BuildID),
	})
}

// Ready handles GET /health/ready; it fails while the store is unreachable.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	if err := h.sessions.Ping(ctx); err != nil {
		h.logger.Warn("⚠️ [Health] Database not ready", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unavailable",
			"timestamp": timestamp(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": timestamp(),
	})
}

// Live handles GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func timestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000000")
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
