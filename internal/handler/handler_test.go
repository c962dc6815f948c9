package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/theo-boilerplate/backend-go/internal/config"
	"github.com/theo-boilerplate/backend-go/internal/database"
	"github.com/theo-boilerplate/backend-go/internal/database/service"
	"github.com/theo-boilerplate/backend-go/internal/handler"
	"github.com/theo-boilerplate/backend-go/internal/middleware"
	"github.com/theo-boilerplate/backend-go/internal/security"
	"github.com/theo-boilerplate/backend-go/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	cfg      *config.Config
	router   *gin.Engine
	tokens   service.TokenService
	redis    *miniredis.Miniredis
	sessions database.Sessions
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := testutil.TestConfig()
	db := testutil.NewTestDB(t)
	logger := testutil.TestLogger()

	sessions := database.NewSessionManager(db, cfg.DBPoolTimeout, logger)
	return newTestEnvWithSessions(t, cfg, sessions)
}

func newTestEnvWithSessions(t *testing.T, cfg *config.Config, sessions database.Sessions) *testEnv {
	t.Helper()

	logger := testutil.TestLogger()
	mr := miniredis.RunT(t)
	limiter := middleware.NewLoginRateLimiter(redis.NewClient(&redis.Options{Addr: mr.Addr()}), cfg, logger)
	t.Cleanup(func() { limiter.Close() })

	users := service.NewUserServiceFactory(security.NewBcryptHasher(cfg.BcryptCost), logger)
	tokens := service.NewTokenService(cfg.JWTSecret, cfg.AccessTokenExpiration)

	userHandler := handler.NewUserHandler(sessions, users, logger)
	authHandler := handler.NewAuthHandler(sessions, users, tokens, limiter, logger)
	healthHandler := handler.NewHealthHandler(cfg, sessions, logger)
	authMiddleware := middleware.NewAuthMiddleware(tokens, logger)

	r := gin.New()
	r.GET("/health", healthHandler.Health)
	r.GET("/health/ready", healthHandler.Ready)
	r.GET("/health/live", healthHandler.Live)
	r.POST("/api/v1/auth/login", authHandler.Login)
	r.GET("/api/v1/users", userHandler.List)
	r.POST("/api/v1/users", userHandler.Create)
	r.GET("/api/v1/users/me", authMiddleware.RequireAuth(), userHandler.Me)
	r.GET("/api/v1/users/:id", userHandler.Get)
	r.PATCH("/api/v1/users/:id", userHandler.Update)
	r.DELETE("/api/v1/users/:id", userHandler.Delete)

	return &testEnv{
		cfg:      cfg,
		router:   r,
		tokens:   tokens,
		redis:    mr,
		sessions: sessions,
	}
}

// do sends body as JSON; a string body is sent verbatim.
func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createUser(t *testing.T, email string, extra map[string]interface{}) map[string]interface{} {
	t.Helper()

	body := map[string]interface{}{
		"email":    email,
		"name":     "Test User",
		"password": "password123",
	}
	for k, v := range extra {
		body[k] = v
	}

	w := e.do(t, http.MethodPost, "/api/v1/users", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()

	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// failingSessions simulates a store that cannot hand out connections.
type failingSessions struct {
	err error
}

func (s failingSessions) WithSession(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.err
}

func (s failingSessions) Ping(ctx context.Context) error {
	return s.err
}

var longPassword = strings.Repeat("p", 100)
