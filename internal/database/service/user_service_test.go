package service_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/theo-boilerplate/backend-go/internal/database/models"
	"github.com/theo-boilerplate/backend-go/internal/database/repository"
	"github.com/theo-boilerplate/backend-go/internal/database/service"
	"github.com/theo-boilerplate/backend-go/internal/security"
	"github.com/theo-boilerplate/backend-go/internal/testutil"
)

var clockStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func newSQLiteService(t *testing.T) service.UserService {
	t.Helper()

	db := testutil.NewTestDB(t)
	factory := service.NewUserServiceFactory(
		security.NewBcryptHasher(bcrypt.MinCost),
		testutil.TestLogger(),
		service.WithClock(testutil.FixedClock(clockStart, time.Second)),
	)
	return factory(db)
}

func newMockService(repo *testutil.MockUserRepository, hasher *testutil.MockPasswordHasher) service.UserService {
	return service.NewUserService(repo, hasher, testutil.TestLogger(),
		service.WithClock(testutil.FixedClock(clockStart, time.Second)))
}

// ==================== USER SERVICE UNIT TESTS ====================

func TestUserService_GetByID(t *testing.T) {
	existing := &models.User{ID: uuid.New(), Email: "test@example.com"}
	dbErr := errors.New("connection reset")

	tests := []struct {
		name     string
		id       uuid.UUID
		setup    func(*testutil.MockUserRepository)
		wantUser *models.User
		wantErr  error
	}{
		{
			name: "found",
			id:   existing.ID,
			setup: func(repo *testutil.MockUserRepository) {
				repo.On("FindByID", existing.ID).Return(existing, nil)
			},
			wantUser: existing,
		},
		{
			name: "absent is not an error",
			id:   uuid.Nil,
			setup: func(repo *testutil.MockUserRepository) {
				repo.On("FindByID", uuid.Nil).Return(nil, repository.ErrUserNotFound)
			},
		},
		{
			name: "store failure propagates",
			id:   existing.ID,
			setup: func(repo *testutil.MockUserRepository) {
				repo.On("FindByID", existing.ID).Return(nil, dbErr)
			},
			wantErr: dbErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(testutil.MockUserRepository)
			tt.setup(repo)

			user, err := newMockService(repo, new(testutil.MockPasswordHasher)).GetByID(tt.id)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantUser, user)
			repo.AssertExpectations(t)
		})
	}
}

func TestUserService_Create(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*testutil.MockUserRepository, *testutil.MockPasswordHasher)
		wantErr error
	}{
		{
			name: "success",
			setup: func(repo *testutil.MockUserRepository, hasher *testutil.MockPasswordHasher) {
				hasher.On("Hash", "password123").Return("hashed", nil)
				repo.On("Create", mock.MatchedBy(func(u *models.User) bool {
					return u.ID != uuid.Nil &&
						u.HashedPassword == "hashed" &&
						u.IsActive &&
						u.CreatedAt.Equal(clockStart) &&
						u.UpdatedAt == nil
				})).Return(nil)
				repo.On("FindByID", mock.AnythingOfType("uuid.UUID")).Return(&models.User{Email: "new@example.com"}, nil)
			},
		},
		{
			name: "duplicate email",
			setup: func(repo *testutil.MockUserRepository, hasher *testutil.MockPasswordHasher) {
				hasher.On("Hash", "password123").Return("hashed", nil)
				repo.On("Create", mock.AnythingOfType("*models.User")).Return(repository.ErrDuplicateEmail)
			},
			wantErr: service.ErrEmailAlreadyRegistered,
		},
		{
			name: "password rejected by hasher",
			setup: func(repo *testutil.MockUserRepository, hasher *testutil.MockPasswordHasher) {
				hasher.On("Hash", "password123").Return("", security.ErrPasswordTooLong)
			},
			wantErr: security.ErrPasswordTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(testutil.MockUserRepository)
			hasher := new(testutil.MockPasswordHasher)
			tt.setup(repo, hasher)

			user, err := newMockService(repo, hasher).Create(models.UserCreate{
				Email:    "new@example.com",
				Name:     "New User",
				Password: "password123",
				IsActive: true,
			})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "new@example.com", user.Email)
			}
			repo.AssertExpectations(t)
			hasher.AssertExpectations(t)
		})
	}
}

func TestUserService_Authenticate(t *testing.T) {
	stored := &models.User{ID: uuid.New(), Email: "test@example.com", HashedPassword: "stored-hash"}

	tests := []struct {
		name     string
		password string
		setup    func(*testutil.MockUserRepository, *testutil.MockPasswordHasher)
		wantUser *models.User
	}{
		{
			name:     "success",
			password: "password",
			setup: func(repo *testutil.MockUserRepository, hasher *testutil.MockPasswordHasher) {
				repo.On("FindByEmail", "test@example.com").Return(stored, nil)
				hasher.On("Verify", "password", "stored-hash").Return(true)
			},
			wantUser: stored,
		},
		{
			name:     "wrong password",
			password: "wrong",
			setup: func(repo *testutil.MockUserRepository, hasher *testutil.MockPasswordHasher) {
				repo.On("FindByEmail", "test@example.com").Return(stored, nil)
				hasher.On("Verify", "wrong", "stored-hash").Return(false)
			},
		},
		{
			name:     "unknown email still verifies once",
			password: "password",
			setup: func(repo *testutil.MockUserRepository, hasher *testutil.MockPasswordHasher) {
				repo.On("FindByEmail", "test@example.com").Return(nil, repository.ErrUserNotFound)
				hasher.On("Verify", "password", mock.AnythingOfType("string")).Return(false).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(testutil.MockUserRepository)
			hasher := new(testutil.MockPasswordHasher)
			tt.setup(repo, hasher)

			user, err := newMockService(repo, hasher).Authenticate("test@example.com", tt.password)

			assert.NoError(t, err)
			assert.Equal(t, tt.wantUser, user)
			repo.AssertExpectations(t)
			hasher.AssertExpectations(t)
		})
	}
}

func TestUserService_Delete_NotFound(t *testing.T) {
	repo := new(testutil.MockUserRepository)
	user := &models.User{ID: uuid.New()}
	repo.On("Delete", user.ID).Return(repository.ErrUserNotFound)

	err := newMockService(repo, new(testutil.MockPasswordHasher)).Delete(user)

	assert.ErrorIs(t, err, service.ErrUserNotFound)
	repo.AssertExpectations(t)
}

// ==================== USER SERVICE STORE TESTS ====================

func TestUserService_CreateThenGet(t *testing.T) {
	svc := newSQLiteService(t)

	created, err := svc.Create(models.UserCreate{
		Email:    "alice@example.com",
		Name:     "Alice",
		Password: "password123",
		IsActive: true,
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.NotEqual(t, "password123", created.HashedPassword)
	assert.True(t, created.CreatedAt.Equal(clockStart))
	assert.Nil(t, created.UpdatedAt)

	byID, err := svc.GetByID(created.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, created.ToRead().Email, byID.Email)
	assert.Equal(t, created.Name, byID.Name)
	assert.Equal(t, created.IsActive, byID.IsActive)
	assert.Equal(t, created.IsSuperuser, byID.IsSuperuser)
	assert.True(t, created.CreatedAt.Equal(byID.CreatedAt))

	byEmail, err := svc.GetByEmail("alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, created.ID, byEmail.ID)

	missing, err := svc.GetByEmail("ALICE@example.com")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserService_CreateDuplicate(t *testing.T) {
	svc := newSQLiteService(t)
	in := models.UserCreate{Email: "dup@example.com", Name: "Dup", Password: "password123", IsActive: true}

	_, err := svc.Create(in)
	require.NoError(t, err)

	user, err := svc.Create(in)
	assert.ErrorIs(t, err, service.ErrEmailAlreadyRegistered)
	assert.Nil(t, user)
}

func TestUserService_Authenticate_Store(t *testing.T) {
	svc := newSQLiteService(t)

	created, err := svc.Create(models.UserCreate{Email: "auth@example.com", Name: "Auth", Password: "password123", IsActive: true})
	require.NoError(t, err)

	user, err := svc.Authenticate("auth@example.com", "password123")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, created.ID, user.ID)

	user, err = svc.Authenticate("auth@example.com", "wrong-password")
	assert.NoError(t, err)
	assert.Nil(t, user)

	user, err = svc.Authenticate("nobody@example.com", "password123")
	assert.NoError(t, err)
	assert.Nil(t, user)
}

func TestUserService_Authenticate_OverlongPassword(t *testing.T) {
	svc := newSQLiteService(t)
	password := strings.Repeat("a", security.MaxPasswordBytes)

	_, err := svc.Create(models.UserCreate{Email: "long@example.com", Name: "Long", Password: password, IsActive: true})
	require.NoError(t, err)

	user, err := svc.Authenticate("long@example.com", password)
	require.NoError(t, err)
	require.NotNil(t, user)

	user, err = svc.Authenticate("long@example.com", password+"-suffix")
	assert.NoError(t, err)
	assert.Nil(t, user)
}

func TestUserService_Update(t *testing.T) {
	svc := newSQLiteService(t)

	created, err := svc.Create(models.UserCreate{Email: "bob@example.com", Name: "Bob", Password: "password123", IsActive: true})
	require.NoError(t, err)

	t.Run("partial update leaves other fields", func(t *testing.T) {
		updated, err := svc.Update(created, models.UserUpdate{Name: strPtr("Robert")})
		require.NoError(t, err)

		assert.Equal(t, "Robert", updated.Name)
		assert.Equal(t, created.Email, updated.Email)
		assert.Equal(t, created.IsActive, updated.IsActive)
		assert.Equal(t, created.HashedPassword, updated.HashedPassword)
		require.NotNil(t, updated.UpdatedAt)
		assert.True(t, updated.UpdatedAt.After(created.CreatedAt))
		created = updated
	})

	t.Run("password change rehashes", func(t *testing.T) {
		updated, err := svc.Update(created, models.UserUpdate{Password: strPtr("new-password")})
		require.NoError(t, err)

		assert.NotEqual(t, created.HashedPassword, updated.HashedPassword)
		assert.True(t, updated.UpdatedAt.After(*created.UpdatedAt))

		user, err := svc.Authenticate("bob@example.com", "new-password")
		require.NoError(t, err)
		assert.NotNil(t, user)
		created = updated
	})

	t.Run("deactivate", func(t *testing.T) {
		updated, err := svc.Update(created, models.UserUpdate{IsActive: boolPtr(false)})
		require.NoError(t, err)
		assert.False(t, updated.IsActive)
		assert.False(t, updated.CanAuthenticate())
		created = updated
	})

	t.Run("email collision", func(t *testing.T) {
		_, err := svc.Create(models.UserCreate{Email: "taken@example.com", Name: "Taken", Password: "password123"})
		require.NoError(t, err)

		updated, err := svc.Update(created, models.UserUpdate{Email: strPtr("taken@example.com")})
		assert.ErrorIs(t, err, service.ErrEmailAlreadyRegistered)
		assert.Nil(t, updated)
	})
}

func TestUserService_DeleteThenGet(t *testing.T) {
	svc := newSQLiteService(t)

	created, err := svc.Create(models.UserCreate{Email: "gone@example.com", Name: "Gone", Password: "password123", IsActive: true})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(created))

	user, err := svc.GetByID(created.ID)
	assert.NoError(t, err)
	assert.Nil(t, user)

	assert.ErrorIs(t, svc.Delete(created), service.ErrUserNotFound)

	_, err = svc.Update(created, models.UserUpdate{Name: strPtr("Ghost")})
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestUserService_List(t *testing.T) {
	svc := newSQLiteService(t)

	for _, email := range []string{"one@example.com", "two@example.com", "three@example.com"} {
		_, err := svc.Create(models.UserCreate{Email: email, Name: email, Password: "password123", IsActive: true})
		require.NoError(t, err)
	}

	users, err := svc.List(1, 1)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "two@example.com", users[0].Email)

	users, err = svc.List(0, 0)
	require.NoError(t, err)
	assert.Empty(t, users)
}
