package kv

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKVRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s, _ := newTestService(t)
	h := NewHandler(s, 5*time.Second)

	r := gin.New()
	r.POST("/api/redis/set", h.Set)
	r.GET("/api/redis/get/:key", h.Get)
	r.DELETE("/api/redis/del/:key", h.Delete)
	r.GET("/api/redis/keys", h.Keys)
	r.POST("/api/redis/expire/:key", h.Expire)
	return r
}

func call(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHandler_Lifecycle(t *testing.T) {
	r := newKVRouter(t)

	w := call(r, http.MethodPost, "/api/redis/set?key=color&value=blue")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Key set successfully: color")

	w = call(r, http.MethodGet, "/api/redis/get/color")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"value":"blue"`)

	w = call(r, http.MethodGet, "/api/redis/keys")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"keys":["color"]`)

	w = call(r, http.MethodPost, "/api/redis/expire/color?seconds=60")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "(60s)")

	assert.Equal(t, http.StatusOK, call(r, http.MethodDelete, "/api/redis/del/color").Code)
	assert.Equal(t, http.StatusNotFound, call(r, http.MethodGet, "/api/redis/get/color").Code)
	assert.Equal(t, http.StatusNotFound, call(r, http.MethodDelete, "/api/redis/del/color").Code)
	assert.Equal(t, http.StatusNotFound, call(r, http.MethodPost, "/api/redis/expire/color?seconds=60").Code)
}

func TestHandler_SetFromForm(t *testing.T) {
	r := newKVRouter(t)

	form := url.Values{"key": {"k"}, "value": {"v"}}
	req := httptest.NewRequest(http.MethodPost, "/api/redis/set", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Contains(t, call(r, http.MethodGet, "/api/redis/get/k").Body.String(), `"value":"v"`)
}

func TestHandler_BadRequests(t *testing.T) {
	r := newKVRouter(t)
	require.Equal(t, http.StatusOK, call(r, http.MethodPost, "/api/redis/set?key=k&value=v").Code)

	for _, path := range []string{
		"/api/redis/set?key=k",
		"/api/redis/set?value=v",
		"/api/redis/set?key=" + strings.Repeat("x", MaxKeyLength+1) + "&value=v",
		"/api/redis/expire/k?seconds=0",
		"/api/redis/expire/k?seconds=31536001",
		"/api/redis/expire/k?seconds=soon",
		"/api/redis/expire/k",
	} {
		w := call(r, http.MethodPost, path)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Contains(t, w.Body.String(), `"success":false`, path)
	}
}
