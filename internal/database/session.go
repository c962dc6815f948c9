package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
)

// Sessions opens request-scoped units of work.
type Sessions interface {
	// WithSession runs fn inside one transaction on one pooled connection.
	// The transaction commits when fn returns nil and rolls back otherwise;
	// the connection goes back to the pool on every exit path.
	WithSession(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}

// SessionManager implements Sessions over a gorm connection pool.
type SessionManager struct {
	db             *gorm.DB
	acquireTimeout time.Duration
	logger         *slog.Logger
}

// NewSessionManager creates a session manager. acquireTimeout bounds the wait
// for a free connection; zero waits until ctx is done.
func NewSessionManager(db *gorm.DB, acquireTimeout time.Duration, logger *slog.Logger) *SessionManager {
	return &SessionManager{
		db:             db,
		acquireTimeout: acquireTimeout,
		logger:         logger,
	}
}

func (m *SessionManager) WithSession(ctx context.Context, fn func(tx *gorm.DB) error) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	conn, err := m.acquire(ctx, sqlDB)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			m.logger.Warn("⚠️ [Session] Failed to release connection", "error", err)
		}
	}()

	sqlTx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Same binding gorm.DB.Begin performs: a fresh session whose statements
	// run on the transaction.
	tx := m.db.Session(&gorm.Session{NewDB: true, Context: ctx})
	tx.Statement.ConnPool = sqlTx

	defer func() {
		if p := recover(); p != nil {
			m.rollback(sqlTx, "panic")
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("failed to roll back transaction: %w", rbErr))
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (m *SessionManager) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Stats reports connection pool usage.
func (m *SessionManager) Stats() sql.DBStats {
	sqlDB, err := m.db.DB()
	if err != nil {
		return sql.DBStats{}
	}
	return sqlDB.Stats()
}

func (m *SessionManager) acquire(ctx context.Context, sqlDB *sql.DB) (*sql.Conn, error) {
	if m.acquireTimeout <= 0 {
		conn, err := sqlDB.Conn(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire connection: %w", err)
		}
		return conn, nil
	}

	acquireCtx, cancel := context.WithTimeout(ctx, m.acquireTimeout)
	defer cancel()

	conn, err := sqlDB.Conn(acquireCtx)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			m.logger.Warn("⚠️ [Session] Connection pool exhausted",
				"timeout", m.acquireTimeout,
				"in_use", sqlDB.Stats().InUse,
			)
			return nil, fmt.Errorf("%w after %s", ErrPoolTimeout, m.acquireTimeout)
		}
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return conn, nil
}

func (m *SessionManager) rollback(tx *sql.Tx, reason string) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		m.logger.Error("❌ [Session] Rollback failed", "reason", reason, "error", err)
	}
}
