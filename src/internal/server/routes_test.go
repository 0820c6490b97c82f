package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"presence-svc/src/clients"
	"presence-svc/src/internal/config"
	"presence-svc/src/internal/dependency"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestDeps(t *testing.T) *dependency.Manager {
	t.Helper()
	return newTestDepsOn(t, miniredis.RunT(t))
}

func newTestDepsOn(t *testing.T, mr *miniredis.Miniredis) *dependency.Manager {
	t.Helper()
	gin.SetMode(gin.TestMode)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	cfg := &config.Configuration{
		App:      config.Application{Name: "presence-svc", Version: "test", Timeout: 5},
		Security: config.SecuritySettings{JwtKey: "test-key", AccessTokenMinutes: 15, RequireAdminAuth: true, BcryptCost: bcrypt.MinCost},
		Presence: config.PresenceConfig{OnlineTTLSeconds: 300},
		Session:  config.SessionConfig{ExpirationMinutes: 30, DefaultExtensionMinutes: 30},
	}

	deps, err := dependency.NewDependencyManager(gin.New(), nil, clients.WrapRedis(client, 10), nil, cfg)
	require.NoError(t, err)
	t.Cleanup(deps.Close)
	SetupRoutes(deps)

	seed, err := os.Open("../config/users.json")
	require.NoError(t, err)
	defer seed.Close()
	_, err = deps.UserLoader.Load(context.Background(), seed)
	require.NoError(t, err)

	return deps
}

func do(deps *dependency.Manager, method, path, bearer string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	deps.Router.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, deps *dependency.Manager, username, password string) string {
	t.Helper()
	w := do(deps, http.MethodPost, "/api/auth/login", "", gin.H{"username": username, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func TestHealth(t *testing.T) {
	deps := newTestDeps(t)

	w := do(deps, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["redis"])
	assert.Equal(t, "disabled", body["mongodb"])

	w = do(deps, http.MethodGet, "/health/detailed", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"online_ttl_seconds":300`)
	assert.Contains(t, w.Body.String(), `"messaging":"disabled"`)
}

func TestHealth_RedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	deps := newTestDepsOn(t, mr)
	mr.Close()

	w := do(deps, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "unavailable", body["status"])
	assert.Contains(t, body["redis"], "error")
}

func TestSessionStatsAfterSeed(t *testing.T) {
	deps := newTestDeps(t)

	w := do(deps, http.MethodGet, "/api/sessions/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats struct {
		TotalUsers  int64 `json:"totalUsers"`
		OnlineUsers int64 `json:"onlineUsers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.EqualValues(t, 4, stats.TotalUsers)
	assert.EqualValues(t, 2, stats.OnlineUsers)
}

func TestAdminRoutesRequireAdminToken(t *testing.T) {
	deps := newTestDeps(t)

	assert.Equal(t, http.StatusUnauthorized, do(deps, http.MethodDelete, "/api/users/u2", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(deps, http.MethodGet, "/debug/online-keys", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(deps, http.MethodGet, "/api/redis/keys", "", nil).Code)

	userToken := login(t, deps, "john_doe", "password123")
	assert.Equal(t, http.StatusForbidden, do(deps, http.MethodDelete, "/api/users/u3", userToken, nil).Code)

	adminToken := login(t, deps, "admin", "admin123")
	assert.Equal(t, http.StatusOK, do(deps, http.MethodGet, "/debug/online-keys", adminToken, nil).Code)
	assert.Equal(t, http.StatusOK, do(deps, http.MethodPost, "/api/redis/set?key=note&value=hi", adminToken, nil).Code)
	assert.Contains(t, do(deps, http.MethodGet, "/api/redis/get/note", adminToken, nil).Body.String(), `"value":"hi"`)
	assert.Equal(t, http.StatusOK, do(deps, http.MethodDelete, "/api/users/u3", adminToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(deps, http.MethodDelete, "/api/users/u3", adminToken, nil).Code)
}

func TestPresenceRoutes(t *testing.T) {
	deps := newTestDeps(t)

	assert.Equal(t, http.StatusOK, do(deps, http.MethodPost, "/api/presence/login/u2", "", nil).Code)
	assert.Equal(t, http.StatusOK, do(deps, http.MethodPost, "/api/presence/refresh/u2", "", nil).Code)

	w := do(deps, http.MethodGet, "/api/presence/online", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"u2"`)

	assert.Equal(t, http.StatusOK, do(deps, http.MethodPost, "/api/presence/logout/u2", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(deps, http.MethodPost, "/api/presence/refresh/u2", "", nil).Code)
}

func TestCORSPreflight(t *testing.T) {
	deps := newTestDeps(t)

	w := do(deps, http.MethodOptions, "/api/sessions/online", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	deps := newTestDeps(t)

	do(deps, http.MethodGet, "/api/sessions/online", "", nil)

	w := do(deps, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
