// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/theo-boilerplate/backend-go/internal/config"
	"github.com/theo-boilerplate/backend-go/internal/database"
)

// TestConfig returns a config suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		AppName:               "theo-test",
		AppEnv:                "test",
		LogLevel:              slog.LevelError,
		ApiServicePort:        "8080",
		DBPoolSize:            2,
		DBMaxOverflow:         2,
		DBPoolTimeout:         5 * time.Second,
		DBConnMaxLifetime:     time.Hour,
		DBConnectRetries:      1,
		CORSOrigins:           []string{"http://localhost:3000"},
		BcryptCost:            bcrypt.MinCost,
		JWTSecret:             "test-secret-key-for-testing-purposes",
		AccessTokenExpiration: 900,
		LoginMaxAttempts:      3,
		LoginWindow:           time.Minute,
		MetricsEnabled:        true,
		MetricsPath:           "/metrics",
	}
}

// TestLogger returns a silent logger for testing
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SQLiteURL returns a database URL for a fresh file-backed SQLite database
// inside the test's temp dir.
func SQLiteURL(t *testing.T, params string) string {
	t.Helper()

	url := "sqlite:///" + filepath.Join(t.TempDir(), "test.db")
	if params != "" {
		url += "?" + params
	}
	return url
}

// NewTestDB opens a file-backed SQLite database with the schema initialized.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := TestConfig()
	cfg.DatabaseURL = SQLiteURL(t, "_busy_timeout=5000&_txlock=immediate")
	return NewTestDBWithConfig(t, cfg)
}

// NewTestDBWithConfig opens cfg.DatabaseURL, initializes the schema and
// closes the pool when the test ends.
func NewTestDBWithConfig(t *testing.T, cfg *config.Config) *gorm.DB {
	t.Helper()

	db, _, err := database.ConnectDatabase(cfg, TestLogger())
	require.NoError(t, err)
	require.NoError(t, database.InitSchema(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// FixedClock returns a clock that advances by step on every call.
func FixedClock(start time.Time, step time.Duration) func() time.Time {
	current := start.Add(-step)
	return func() time.Time {
		current = current.Add(step)
		return current
	}
}

// MustParseUUID parses s or fails the test.
func MustParseUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()

	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}
