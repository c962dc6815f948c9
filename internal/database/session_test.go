package database_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/theo-boilerplate/backend-go/internal/database"
	"github.com/theo-boilerplate/backend-go/internal/database/models"
	"github.com/theo-boilerplate/backend-go/internal/testutil"
)

func newUser(email string) *models.User {
	return &models.User{
		ID:             uuid.New(),
		Email:          email,
		Name:           "Session Test",
		IsActive:       true,
		HashedPassword: "hashed",
		CreatedAt:      time.Now().UTC(),
	}
}

func countUsers(t *testing.T, db *gorm.DB, email string) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error)
	return count
}

// newSingleConnSessions returns a manager over a one-connection pool so a
// leaked connection shows up as a pool timeout on the next session.
func newSingleConnSessions(t *testing.T, timeout time.Duration) (*gorm.DB, *database.SessionManager) {
	t.Helper()

	cfg := testutil.TestConfig()
	cfg.DatabaseURL = testutil.SQLiteURL(t, "_busy_timeout=5000")
	cfg.DBPoolSize = 1
	cfg.DBMaxOverflow = 0

	db := testutil.NewTestDBWithConfig(t, cfg)
	return db, database.NewSessionManager(db, timeout, testutil.TestLogger())
}

func TestSessionManager_CommitsOnSuccess(t *testing.T) {
	db, sessions := newSingleConnSessions(t, time.Second)

	err := sessions.WithSession(context.Background(), func(tx *gorm.DB) error {
		return tx.Create(newUser("commit@example.com")).Error
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), countUsers(t, db, "commit@example.com"))
}

func TestSessionManager_RollsBackOnError(t *testing.T) {
	db, sessions := newSingleConnSessions(t, time.Second)
	errBoom := errors.New("boom")

	err := sessions.WithSession(context.Background(), func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(newUser("rollback@example.com")).Error)
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	assert.Equal(t, int64(0), countUsers(t, db, "rollback@example.com"))
}

func TestSessionManager_RollsBackOnPanic(t *testing.T) {
	db, sessions := newSingleConnSessions(t, time.Second)

	assert.PanicsWithValue(t, "boom", func() {
		_ = sessions.WithSession(context.Background(), func(tx *gorm.DB) error {
			require.NoError(t, tx.Create(newUser("panic@example.com")).Error)
			panic("boom")
		})
	})

	assert.Equal(t, int64(0), countUsers(t, db, "panic@example.com"))

	// The only connection must be back in the pool.
	err := sessions.WithSession(context.Background(), func(tx *gorm.DB) error {
		return tx.Create(newUser("after-panic@example.com")).Error
	})
	require.NoError(t, err)
}

func TestSessionManager_ReleasesConnectionOnEveryPath(t *testing.T) {
	_, sessions := newSingleConnSessions(t, 200*time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, sessions.WithSession(ctx, func(tx *gorm.DB) error { return nil }))
		require.Error(t, sessions.WithSession(ctx, func(tx *gorm.DB) error { return errors.New("fail") }))
	}

	assert.Equal(t, 0, sessions.Stats().InUse)
}

func TestSessionManager_PoolTimeout(t *testing.T) {
	_, sessions := newSingleConnSessions(t, 50*time.Millisecond)

	holding := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = sessions.WithSession(context.Background(), func(tx *gorm.DB) error {
			close(holding)
			<-release
			return nil
		})
	}()

	<-holding
	err := sessions.WithSession(context.Background(), func(tx *gorm.DB) error {
		t.Error("session must not start while the pool is exhausted")
		return nil
	})
	assert.ErrorIs(t, err, database.ErrPoolTimeout)

	close(release)
	wg.Wait()

	require.NoError(t, sessions.WithSession(context.Background(), func(tx *gorm.DB) error { return nil }))
}

func TestSessionManager_CancelledContext(t *testing.T) {
	db, sessions := newSingleConnSessions(t, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	err := sessions.WithSession(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(newUser("cancel@example.com")).Error; err != nil {
			return err
		}
		cancel()
		return nil
	})
	assert.Error(t, err)

	assert.Equal(t, int64(0), countUsers(t, db, "cancel@example.com"))
	require.NoError(t, sessions.WithSession(context.Background(), func(tx *gorm.DB) error { return nil }))
}

func TestSessionManager_Ping(t *testing.T) {
	_, sessions := newSingleConnSessions(t, time.Second)
	assert.NoError(t, sessions.Ping(context.Background()))
}
