package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/theo-boilerplate/backend-go/internal/config"
	"github.com/theo-boilerplate/backend-go/internal/database/models"
	applogger "github.com/theo-boilerplate/backend-go/internal/logger"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ParseDatabaseURL maps a database URL onto a driver name and a DSN the
// driver understands. Accepted forms: postgres://, postgresql://,
// postgresql+<driver>:// and sqlite:///relative.db, sqlite:////abs.db.
func ParseDatabaseURL(raw string) (string, string, error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return "", "", fmt.Errorf("%w: missing scheme", ErrUnsupportedDatabaseURL)
	}

	base, _, _ := strings.Cut(strings.ToLower(scheme), "+")

	switch base {
	case "postgres", "postgresql":
		return DriverPostgres, "postgres://" + rest, nil
	case "sqlite":
		path := strings.TrimPrefix(rest, "/")
		if path == "" {
			path = ":memory:"
		}
		return DriverSQLite, path, nil
	default:
		return "", "", fmt.Errorf("%w: scheme %q", ErrUnsupportedDatabaseURL, scheme)
	}
}

// ConnectDatabase opens the pool described by cfg, retrying until the store
// answers a ping or the retry budget is spent.
func ConnectDatabase(cfg *config.Config, logger *slog.Logger) (*gorm.DB, string, error) {
	driver, dsn, err := ParseDatabaseURL(cfg.DatabaseURL)
	if err != nil {
		return nil, "", err
	}

	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	}

	logger.Info("🔌 [Database] Connecting...",
		"driver", driver,
		"pool_size", cfg.DBPoolSize,
		"max_overflow", cfg.DBMaxOverflow,
	)

	gormConfig := &gorm.Config{
		Logger:         applogger.NewGormLogger(logger, cfg.Debug),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	maxRetries := cfg.DBConnectRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	var db *gorm.DB
	for i := 0; i < maxRetries; i++ {
		db, err = open(dialector, gormConfig)
		if err == nil {
			break
		}

		if i < maxRetries-1 {
			logger.Warn("⏳ [Database] Connection failed, retrying...",
				"attempt", i+1,
				"max_retries", maxRetries,
				"retry_in", cfg.DBConnectRetryDelay,
				"error", err,
			)
			time.Sleep(cfg.DBConnectRetryDelay)
		}
	}

	if err != nil {
		return nil, "", fmt.Errorf("failed to connect to %s after %d attempts: %w", driver, maxRetries, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns())
	sqlDB.SetMaxIdleConns(cfg.DBPoolSize)
	sqlDB.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	logger.Info("✅ [Database] Database connection established",
		"driver", driver,
		"max_open_conns", cfg.MaxOpenConns(),
	)

	return db, driver, nil
}

func open(dialector gorm.Dialector, gormConfig *gorm.Config) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// InitSchema creates every entity table that does not exist yet. It is a
// bootstrap helper for development databases, not a migration system.
func InitSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// RunMigrations applies every pending embedded migration.
func RunMigrations(ctx context.Context, db *gorm.DB, driver string) error {
	return Migrate(ctx, db, driver, "up")
}

// Migrate runs a goose command (up, down, status, version, ...) against the
// embedded migrations. Only postgres is supported.
func Migrate(ctx context.Context, gormDB *gorm.DB, driver, command string, args ...string) error {
	if driver != DriverPostgres {
		return fmt.Errorf("%w: %s", ErrMigrationsUnsupported, driver)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.RunContext(ctx, command, sqlDB, "migrations", args...); err != nil {
		return fmt.Errorf("failed to run goose %s: %w", command, err)
	}

	return nil
}

// MigrationFiles lists the embedded migration file names.
func MigrationFiles() ([]string, error) {
	entries, err := embedMigrations.ReadDir("migrations")
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

// Database errors
var (
	ErrUnsupportedDatabaseURL = errors.New("unsupported database url")
	ErrMigrationsUnsupported  = errors.New("migrations are only supported on postgres")
	ErrPoolTimeout            = errors.New("timed out waiting for a database connection")
)
