package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	reqTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	reqInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "In-flight HTTP requests",
		},
	)

	reqDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	presenceTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presence_transitions_total",
			Help: "Presence state changes by action",
		},
		[]string{"action"},
	)

	staleCleanups = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "presence_stale_members_removed_total",
			Help: "Membership entries removed because their marker had expired",
		},
	)

	onlineUsers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "presence_online_users",
			Help: "Online users seen by the last reconciled listing",
		},
	)

	loginSessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_sessions_total",
			Help: "Login session lifecycle events",
		},
		[]string{"event"},
	)

	cacheItems = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_items",
			Help: "Approximate number of items in the roster cache",
		},
	)
)

func init() {
	Registry.MustRegister(
		reqTotal,
		reqInFlight,
		reqDuration,
		presenceTransitions,
		staleCleanups,
		onlineUsers,
		loginSessions,
		cacheItems,
	)
}

// ObservePresence counts a presence transition
func ObservePresence(action string) {
	presenceTransitions.WithLabelValues(action).Inc()
}

// ObserveReconciliation records the result of one lazy reconciliation pass
func ObserveReconciliation(online, removed int) {
	onlineUsers.Set(float64(online))
	if removed > 0 {
		staleCleanups.Add(float64(removed))
	}
}

func ObserveLoginSession(event string) {
	loginSessions.WithLabelValues(event).Inc()
}

func SetCacheItems(n int) {
	cacheItems.Set(float64(n))
}

// Middleware instruments gin requests. Unmatched routes are reported as "unmatched".
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqInFlight.Inc()
		defer reqInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		reqDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
		reqTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Handler exposes the registry
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
