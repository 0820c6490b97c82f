package presence

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPresenceRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tr, _ := newTestTracker(t)
	h := NewHandler(tr, 5*time.Second)

	r := gin.New()
	r.POST("/api/presence/login/:userId", h.Login)
	r.POST("/api/presence/logout/:userId", h.Logout)
	r.POST("/api/presence/refresh/:userId", h.Refresh)
	r.GET("/api/presence/status/:userId", h.Status)
	r.GET("/api/presence/online", h.Online)
	r.GET("/debug/online-keys", h.OnlineKeys)
	return r
}

func call(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHandler_LoginStatusLogout(t *testing.T) {
	r := newPresenceRouter(t)

	w := call(r, http.MethodPost, "/api/presence/login/u1")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(30), body["ttlSeconds"])
	assert.Equal(t, "online", body["status"])

	w = call(r, http.MethodGet, "/api/presence/status/u1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"online":true`)
	assert.Contains(t, w.Body.String(), "lastActiveAt")

	w = call(r, http.MethodGet, "/api/presence/online")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"users":["u1"],"count":1}`, w.Body.String())

	w = call(r, http.MethodGet, "/debug/online-keys")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"source":"scan"`)

	w = call(r, http.MethodPost, "/api/presence/refresh/u1")
	require.Equal(t, http.StatusOK, w.Code)

	w = call(r, http.MethodPost, "/api/presence/logout/u1")
	require.Equal(t, http.StatusOK, w.Code)

	w = call(r, http.MethodPost, "/api/presence/logout/u1")
	assert.Equal(t, http.StatusOK, w.Code)

	w = call(r, http.MethodPost, "/api/presence/refresh/u1")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_StatusUnknownUser(t *testing.T) {
	r := newPresenceRouter(t)

	w := call(r, http.MethodGet, "/api/presence/status/nobody")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":"nobody","online":false}`, w.Body.String())
}

func TestHandler_BlankUserID(t *testing.T) {
	r := newPresenceRouter(t)

	w := call(r, http.MethodPost, "/api/presence/login/%20")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
