package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/theo-boilerplate/backend-go/internal/database/models"
	"github.com/theo-boilerplate/backend-go/internal/database/repository"
	"github.com/theo-boilerplate/backend-go/internal/security"
)

// UserService defines the interface for user business logic. An instance is
// bound to one session; every call runs on that session's transaction.
type UserService interface {
	// GetByID returns nil and no error when the user does not exist.
	GetByID(id uuid.UUID) (*models.User, error)
	// GetByEmail is an exact, case-sensitive match. Nil when absent.
	GetByEmail(email string) (*models.User, error)
	List(skip, limit int) ([]models.User, error)
	Create(in models.UserCreate) (*models.User, error)
	Update(user *models.User, in models.UserUpdate) (*models.User, error)
	Delete(user *models.User) error
	// Authenticate returns nil for an unknown email and for a wrong password alike.
	Authenticate(email, password string) (*models.User, error)
}

// UserServiceFactory binds a UserService to a session's transaction handle.
type UserServiceFactory func(tx *gorm.DB) UserService

// UserServiceOption customizes a user service.
type UserServiceOption func(*userService)

// WithClock replaces the wall clock used to stamp created_at and updated_at.
func WithClock(now func() time.Time) UserServiceOption {
	return func(s *userService) {
		s.now = now
	}
}

type userService struct {
	userRepo repository.UserRepository
	hasher   security.PasswordHasher
	logger   *slog.Logger
	now      func() time.Time
}

// NewUserService creates a new user service instance
func NewUserService(
	userRepo repository.UserRepository,
	hasher security.PasswordHasher,
	logger *slog.Logger,
	opts ...UserServiceOption,
) UserService {
	s := &userService{
		userRepo: userRepo,
		hasher:   hasher,
		logger:   logger,
		now:      defaultNow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewUserServiceFactory returns a factory producing services over a
// gorm-backed repository.
func NewUserServiceFactory(hasher security.PasswordHasher, logger *slog.Logger, opts ...UserServiceOption) UserServiceFactory {
	return func(tx *gorm.DB) UserService {
		return NewUserService(repository.NewUserRepository(tx), hasher, logger, opts...)
	}
}

func defaultNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// ==================== Lookups ====================

func (s *userService) GetByID(id uuid.UUID) (*models.User, error) {
	return absentIfNotFound(s.userRepo.FindByID(id))
}

func (s *userService) GetByEmail(email string) (*models.User, error) {
	return absentIfNotFound(s.userRepo.FindByEmail(email))
}

func (s *userService) List(skip, limit int) ([]models.User, error) {
	return s.userRepo.List(skip, limit)
}

// ==================== Mutations ====================

// Create relies on the store's unique index for email uniqueness; callers
// pre-check with GetByEmail for a friendlier error in the common case.
func (s *userService) Create(in models.UserCreate) (*models.User, error) {
	hashedPassword, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.logger.Warn("⚠️ [UserService] Failed to hash password", "error", err)
		return nil, err
	}

	user := &models.User{
		ID:             uuid.New(),
		Email:          in.Email,
		Name:           in.Name,
		IsActive:       in.IsActive,
		IsSuperuser:    in.IsSuperuser,
		HashedPassword: hashedPassword,
		CreatedAt:      s.now(),
	}

	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			s.logger.Warn("⚠️ [UserService] Email already registered", "email", in.Email)
			return nil, ErrEmailAlreadyRegistered
		}
		s.logger.Error("❌ [UserService] Failed to create user", "error", err)
		return nil, err
	}

	created, err := s.userRepo.FindByID(user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("✅ [UserService] User created", "user_id", created.ID)
	return created, nil
}

func (s *userService) Update(user *models.User, in models.UserUpdate) (*models.User, error) {
	updated := *user

	if in.Email != nil {
		updated.Email = *in.Email
	}
	if in.Name != nil {
		updated.Name = *in.Name
	}
	if in.IsActive != nil {
		updated.IsActive = *in.IsActive
	}
	if in.Password != nil {
		hashedPassword, err := s.hasher.Hash(*in.Password)
		if err != nil {
			s.logger.Warn("⚠️ [UserService] Failed to hash password", "user_id", user.ID, "error", err)
			return nil, err
		}
		updated.HashedPassword = hashedPassword
	}

	stamp := s.stampAfter(user)
	updated.UpdatedAt = &stamp

	if err := s.userRepo.Update(&updated); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			s.logger.Warn("⚠️ [UserService] Email already registered", "user_id", user.ID)
			return nil, ErrEmailAlreadyRegistered
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrUserNotFound
		}
		s.logger.Error("❌ [UserService] Failed to update user", "user_id", user.ID, "error", err)
		return nil, err
	}

	refreshed, err := s.userRepo.FindByID(user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("✅ [UserService] User updated", "user_id", refreshed.ID)
	return refreshed, nil
}

// stampAfter returns the current time, never earlier than the user's
// previous timestamps, so updated_at stays monotonic under clock skew.
func (s *userService) stampAfter(user *models.User) time.Time {
	stamp := s.now()
	floor := user.CreatedAt
	if user.UpdatedAt != nil && user.UpdatedAt.After(floor) {
		floor = *user.UpdatedAt
	}
	if !stamp.After(floor) {
		stamp = floor.Add(time.Microsecond)
	}
	return stamp
}

func (s *userService) Delete(user *models.User) error {
	if err := s.userRepo.Delete(user.ID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("❌ [UserService] Failed to delete user", "user_id", user.ID, "error", err)
		return err
	}

	s.logger.Info("🗑️ [UserService] User deleted", "user_id", user.ID)
	return nil
}

// ==================== Authentication ====================

// timingHash is verified against when the email is unknown so both failure
// paths cost one bcrypt comparison.
const timingHash = "$2a$10$92IXUNpkjO0rOQ5byMi.Ye4oKoEa3Ro9llC/.og/at2.uheWG/igi"

func (s *userService) Authenticate(email, password string) (*models.User, error) {
	user, err := s.GetByEmail(email)
	if err != nil {
		return nil, err
	}

	if user == nil {
		s.hasher.Verify(password, timingHash)
		s.logger.Debug("🔐 [UserService] Authentication failed")
		return nil, nil
	}

	if !s.hasher.Verify(password, user.HashedPassword) {
		s.logger.Debug("🔐 [UserService] Authentication failed")
		return nil, nil
	}

	return user, nil
}

func absentIfNotFound(user *models.User, err error) (*models.User, error) {
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Service errors
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrUserNotFound           = errors.New("user not found")
)
