package handler_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theo-boilerplate/backend-go/internal/handler"
	"github.com/theo-boilerplate/backend-go/internal/testutil"
)

func TestHealthHandler_Health(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, env.cfg.AppName, body["service"])
	assert.Equal(t, handler.Version, body["version"])
	assert.Equal(t, env.cfg.AppEnv, body["environment"])
	assert.NotEmpty(t, body["timestamp"])
	assert.Contains(t, body, "release_id")
	assert.Nil(t, body["release_id"])
	assert.Nil(t, body["build_id"])
}

func TestHealthHandler_HealthReportsRelease(t *testing.T) {
	cfg := testutil.TestConfig()
	cfg.ReleaseID = "r-42"
	cfg.BuildID = "b-7"
	env := newTestEnvWithSessions(t, cfg, failingSessions{})

	body := decode(t, env.do(t, http.MethodGet, "/health", nil))
	assert.Equal(t, "r-42", body["release_id"])
	assert.Equal(t, "b-7", body["build_id"])
}

func TestHealthHandler_Ready(t *testing.T) {
	t.Run("store reachable", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, http.MethodGet, "/health/ready", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ready", decode(t, w)["status"])
	})

	t.Run("store unreachable", func(t *testing.T) {
		env := newTestEnvWithSessions(t, testutil.TestConfig(), failingSessions{err: errors.New("connection refused")})

		w := env.do(t, http.MethodGet, "/health/ready", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "unavailable", decode(t, w)["status"])
	})
}

func TestHealthHandler_Live(t *testing.T) {
	env := newTestEnvWithSessions(t, testutil.TestConfig(), failingSessions{err: errors.New("down")})

	w := env.do(t, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alive", decode(t, w)["status"])
}
