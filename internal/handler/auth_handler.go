package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/theo-boilerplate/backend-go/internal/database"
	"github.com/theo-boilerplate/backend-go/internal/database/models"
	"github.com/theo-boilerplate/backend-go/internal/database/service"
	"github.com/theo-boilerplate/backend-go/internal/middleware"
)

// AuthHandler handles HTTP requests for authentication
type AuthHandler struct {
	sessions database.Sessions
	users    service.UserServiceFactory
	tokens   service.TokenService
	limiter  middleware.LoginRateLimiter
	logger   *slog.Logger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(
	sessions database.Sessions,
	users service.UserServiceFactory,
	tokens service.TokenService,
	limiter middleware.LoginRateLimiter,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		users:    users,
		tokens:   tokens,
		limiter:  limiter,
		logger:   logger,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,max=255"`
	Password string `json:"password" binding:"required,max=128"`
}

type AuthResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   int64           `json:"expires_in"`
	User        models.UserRead `json:"user"`
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("⚠️ [AuthHandler] Invalid login request", "error", err)
		respondValidationError(c, err)
		return
	}

	ctx := c.Request.Context()

	allowed, err := h.limiter.Allow(ctx, req.Email)
	if err != nil {
		h.logger.Warn("⚠️ [AuthHandler] Login limiter unavailable", "error", err)
	}
	if !allowed {
		respondError(c, http.StatusTooManyRequests, "Too many failed login attempts")
		return
	}

	var user *models.User
	err = h.sessions.WithSession(ctx, func(tx *gorm.DB) error {
		var err error
		user, err = h.users(tx).Authenticate(req.Email, req.Password)
		return err
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	if user == nil {
		if err := h.limiter.RegisterFailure(ctx, req.Email); err != nil {
			h.logger.Warn("⚠️ [AuthHandler] Failed to record login failure", "error", err)
		}
		respondError(c, http.StatusUnauthorized, "Incorrect email or password")
		return
	}

	if !user.CanAuthenticate() {
		respondError(c, http.StatusBadRequest, "Inactive user")
		return
	}

	token, err := h.tokens.IssueAccessToken(user.ID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	if err := h.limiter.Reset(ctx, req.Email); err != nil {
		h.logger.Warn("⚠️ [AuthHandler] Failed to reset login failures", "error", err)
	}

	h.logger.Info("🔐 [AuthHandler] User logged in", "user_id", user.ID)
	c.JSON(http.StatusOK, AuthResponse{
		AccessToken: token.Token,
		TokenType:   "Bearer",
		ExpiresIn:   token.ExpiresIn,
		User:        user.ToRead(),
	})
}
