package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/theo-boilerplate/backend-go/internal/config"
)

// LoginRateLimiter throttles repeated failed logins per email using Redis
type LoginRateLimiter interface {
	// Allow reports whether another attempt for email may proceed.
	// On store errors it allows the attempt and returns the error.
	Allow(ctx context.Context, email string) (bool, error)

	// RegisterFailure counts a failed attempt; the first failure starts the window.
	RegisterFailure(ctx context.Context, email string) error

	// Reset clears the failure count after a successful login.
	Reset(ctx context.Context, email string) error

	// Close closes the Redis connection
	Close() error
}

type redisLoginRateLimiter struct {
	client      *redis.Client
	maxAttempts int64
	window      time.Duration
	logger      *slog.Logger
}

// NewLoginRateLimiter creates a Redis-backed limiter allowing
// cfg.LoginMaxAttempts failures per cfg.LoginWindow.
func NewLoginRateLimiter(client *redis.Client, cfg *config.Config, logger *slog.Logger) LoginRateLimiter {
	return &redisLoginRateLimiter{
		client:      client,
		maxAttempts: cfg.LoginMaxAttempts,
		window:      cfg.LoginWindow,
		logger:      logger,
	}
}

// failedLoginKey generates the Redis key for an email's failure count
// Format: login:failed:{email}
func failedLoginKey(email string) string {
	return "login:failed:" + email
}

func (r *redisLoginRateLimiter) Allow(ctx context.Context, email string) (bool, error) {
	if r.maxAttempts <= 0 {
		return true, nil
	}

	count, err := r.client.Get(ctx, failedLoginKey(email)).Int64()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		r.logger.Error("❌ [RateLimiter] Failed to get failure count", "error", err)
		return true, err
	}

	return count < r.maxAttempts, nil
}

func (r *redisLoginRateLimiter) RegisterFailure(ctx context.Context, email string) error {
	key := failedLoginKey(email)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		r.logger.Error("❌ [RateLimiter] Failed to increment failure count", "error", err)
		return err
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, r.window).Err(); err != nil {
			r.logger.Error("❌ [RateLimiter] Failed to set failure window", "error", err)
			return err
		}
	}

	if count >= r.maxAttempts {
		r.logger.Warn("⚠️ [RateLimiter] Login attempts exhausted", "attempts", count, "window", r.window)
	}
	return nil
}

func (r *redisLoginRateLimiter) Reset(ctx context.Context, email string) error {
	return r.client.Del(ctx, failedLoginKey(email)).Err()
}

func (r *redisLoginRateLimiter) Close() error {
	return r.client.Close()
}

// NoOpLoginRateLimiter is a limiter that always allows attempts
// Used when Redis is not available
type NoOpLoginRateLimiter struct{}

// NewNoOpLoginRateLimiter creates a no-op login limiter
func NewNoOpLoginRateLimiter(logger *slog.Logger) LoginRateLimiter {
	logger.Warn("⚠️ [RateLimiter] Using no-op login limiter - login throttling is disabled")
	return &NoOpLoginRateLimiter{}
}

func (r *NoOpLoginRateLimiter) Allow(ctx context.Context, email string) (bool, error) {
	return true, nil
}

func (r *NoOpLoginRateLimiter) RegisterFailure(ctx context.Context, email string) error {
	return nil
}

func (r *NoOpLoginRateLimiter) Reset(ctx context.Context, email string) error {
	return nil
}

func (r *NoOpLoginRateLimiter) Close() error {
	return nil
}
