package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"presence-svc/src/internal/config"
	"presence-svc/src/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, ids ...string) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := newFixture(t, ids...)

	cfg := &config.Configuration{}
	cfg.App.Timeout = 5
	h := NewHandler(cfg, f.service)

	r := gin.New()
	r.GET("/api/users", h.GetAllUsers)
	r.DELETE("/api/users/:userId", h.RemoveUser)
	r.GET("/api/sessions/online", h.GetOnlineUsers)
	r.GET("/api/sessions/offline", h.GetOfflineUsers)
	r.GET("/api/sessions/stats", h.GetSessionStats)
	r.POST("/api/sessions/:userId/online", h.SetUserOnline)
	r.POST("/api/sessions/:userId/offline", h.SetUserOffline)
	r.POST("/api/sessions/:userId/refresh-ttl", h.RefreshUserTTL)
	r.GET("/api/sessions/:userId/status", h.GetUserStatus)
	return r, f
}

func do(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHandler_OnlineFlow(t *testing.T) {
	r, _ := newTestRouter(t, "u1", "u2")

	w := do(r, http.MethodPost, "/api/sessions/u1/online")
	require.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "online", resp.Status)
	assert.Equal(t, int64(300), resp.TTLSeconds)

	w = do(r, http.MethodGet, "/api/sessions/online")
	require.Equal(t, http.StatusOK, w.Code)
	var online []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &online))
	require.Len(t, online, 1)
	assert.Equal(t, "u1", online[0]["user_id"])
	assert.NotContains(t, online[0], "password_hash")

	w = do(r, http.MethodGet, "/api/sessions/stats")
	require.Equal(t, http.StatusOK, w.Code)
	var stats models.SessionStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(2), stats.TotalUsers)
	assert.Equal(t, 50.0, stats.OnlinePercentage)

	w = do(r, http.MethodGet, "/api/sessions/u1/status")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"online":true`)

	w = do(r, http.MethodPost, "/api/sessions/u1/offline")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "ttlSeconds")
}

func TestHandler_ErrorMapping(t *testing.T) {
	r, _ := newTestRouter(t, "u1")

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/api/sessions/ghost/online").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/api/sessions/u1/refresh-ttl").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/api/users/ghost").Code)
}

func TestHandler_StoreUnavailable(t *testing.T) {
	r, f := newTestRouter(t, "u1")
	f.mr.Close()

	w := do(r, http.MethodGet, "/api/sessions/stats")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandler_RemoveUser(t *testing.T) {
	r, _ := newTestRouter(t, "u1")

	w := do(r, http.MethodDelete, "/api/users/u1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"removed"`)

	w = do(r, http.MethodGet, "/api/users")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}
