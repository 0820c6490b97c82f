package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/ping/:id", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", gin.WrapH(Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping/1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	ObservePresence("online")
	ObserveReconciliation(3, 2)
	ObserveLoginSession("created")
	SetCacheItems(4)

	body := scrape(t, r)
	assert.Contains(t, body, `http_requests_total{method="GET",route="/ping/:id",status="200"}`)
	assert.Contains(t, body, `presence_transitions_total{action="online"}`)
	assert.Contains(t, body, "presence_online_users 3")
	assert.Contains(t, body, "presence_stale_members_removed_total")
	assert.Contains(t, body, `login_sessions_total{event="created"}`)
	assert.Contains(t, body, "cache_items 4")
}

func TestObserveReconciliation_NoStaleKeepsGauge(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/metrics", gin.WrapH(Handler()))

	ObserveReconciliation(1, 0)
	assert.Contains(t, scrape(t, r), "presence_online_users 1")
}
