package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/theo-boilerplate/backend-go/internal/database"
	"github.com/theo-boilerplate/backend-go/internal/database/models"
	"github.com/theo-boilerplate/backend-go/internal/database/service"
	"github.com/theo-boilerplate/backend-go/internal/middleware"
)

// MaxListLimit caps the page size of GET /users.
const MaxListLimit = 1000

// UserHandler handles user CRUD requests. Every request runs in exactly one
// session and the response is written only after the session commits.
type UserHandler struct {
	sessions database.Sessions
	users    service.UserServiceFactory
	logger   *slog.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(sessions database.Sessions, users service.UserServiceFactory, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		sessions: sessions,
		users:    users,
		logger:   logger,
	}
}

// Request DTOs
type UserCreateRequest struct {
	Email       string `json:"email" binding:"required,email,max=255"`
	Name        string `json:"name" binding:"required,max=255"`
	Password    string `json:"password" binding:"required,min=8,max=128"`
	IsActive    *bool  `json:"is_active"`
	IsSuperuser *bool  `json:"is_superuser"`
}

// UserUpdateRequest distinguishes absent fields (nil) from present ones.
type UserUpdateRequest struct {
	Email    *string `json:"email" binding:"omitnil,email,max=255"`
	Name     *string `json:"name" binding:"omitnil,min=1,max=255"`
	Password *string `json:"password" binding:"omitnil,min=8,max=128"`
	IsActive *bool   `json:"is_active"`
}

type listUsersQuery struct {
	Skip  int `form:"skip,default=0" binding:"min=0"`
	Limit int `form:"limit,default=100" binding:"min=0"`
}

func (r UserCreateRequest) toModel() models.UserCreate {
	in := models.UserCreate{
		Email:    r.Email,
		Name:     r.Name,
		Password: r.Password,
		IsActive: true,
	}
	if r.IsActive != nil {
		in.IsActive = *r.IsActive
	}
	if r.IsSuperuser != nil {
		in.IsSuperuser = *r.IsSuperuser
	}
	return in
}

func (r UserUpdateRequest) toModel() models.UserUpdate {
	return models.UserUpdate{
		Email:    r.Email,
		Name:     r.Name,
		Password: r.Password,
		IsActive: r.IsActive,
	}
}

// List handles GET /users
func (h *UserHandler) List(c *gin.Context) {
	var query listUsersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.logger.Warn("⚠️ [UserHandler] Invalid list query", "error", err)
		respondValidationError(c, err)
		return
	}
	if query.Limit > MaxListLimit {
		query.Limit = MaxListLimit
	}

	var users []models.User
	err := h.sessions.WithSession(c.Request.Context(), func(tx *gorm.DB) error {
		var err error
		users, err = h.users(tx).List(query.Skip, query.Limit)
		return err
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	result := make([]models.UserRead, 0, len(users))
	for i := range users {
		result = append(result, users[i].ToRead())
	}
	c.JSON(http.StatusOK, result)
}

// Create handles POST /users
func (h *UserHandler) Create(c *gin.Context) {
	var req UserCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("⚠️ [UserHandler] Invalid create request", "error", err)
		respondValidationError(c, err)
		return
	}

	var created *models.User
	err := h.sessions.WithSession(c.Request.Context(), func(tx *gorm.DB) error {
		svc := h.users(tx)

		existing, err := svc.GetByEmail(req.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			return service.ErrEmailAlreadyRegistered
		}

		created, err = svc.Create(req.toModel())
		return err
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, created.ToRead())
}

// Get handles GET /users/:id
func (h *UserHandler) Get(c *gin.Context) {
	userID, ok := h.parseUserID(c)
	if !ok {
		return
	}

	var user *models.User
	err := h.sessions.WithSession(c.Request.Context(), func(tx *gorm.DB) error {
		var err error
		user, err = h.findUser(h.users(tx), userID)
		return err
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, user.ToRead())
}

// Update handles PATCH /users/:id
func (h *UserHandler) Update(c *gin.Context) {
	userID, ok := h.parseUserID(c)
	if !ok {
		return
	}

	var req UserUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("⚠️ [UserHandler] Invalid update request", "error", err)
		respondValidationError(c, err)
		return
	}

	var updated *models.User
	err := h.sessions.WithSession(c.Request.Context(), func(tx *gorm.DB) error {
		svc := h.users(tx)

		user, err := h.findUser(svc, userID)
		if err != nil {
			return err
		}

		if req.Email != nil && *req.Email != user.Email {
			existing, err := svc.GetByEmail(*req.Email)
			if err != nil {
				return err
			}
			if existing != nil {
				return service.ErrEmailAlreadyRegistered
			}
		}

		updated, err = svc.Update(user, req.toModel())
		return err
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, updated.ToRead())
}

// Delete handles DELETE /users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	userID, ok := h.parseUserID(c)
	if !ok {
		return
	}

	err := h.sessions.WithSession(c.Request.Context(), func(tx *gorm.DB) error {
		svc := h.users(tx)

		user, err := h.findUser(svc, userID)
		if err != nil {
			return err
		}
		return svc.Delete(user)
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Me handles GET /users/me - returns the authenticated user
func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		h.logger.Error("❌ [UserHandler] User ID not found in context")
		respondError(c, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var user *models.User
	err := h.sessions.WithSession(c.Request.Context(), func(tx *gorm.DB) error {
		var err error
		user, err = h.findUser(h.users(tx), userID)
		return err
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, user.ToRead())
}

func (h *UserHandler) parseUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusUnprocessableEntity, "id must be a valid UUID")
		return uuid.Nil, false
	}
	return userID, true
}

// findUser turns an absent user into service.ErrUserNotFound.
func (h *UserHandler) findUser(svc service.UserService, userID uuid.UUID) (*models.User, error) {
	user, err := svc.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, service.ErrUserNotFound
	}
	return user, nil
}
