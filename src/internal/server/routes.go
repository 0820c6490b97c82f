package server

import (
	"context"
	"net/http"
	"presence-svc/src/internal/dependency"
	"presence-svc/src/internal/metrics"
	"time"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(deps *dependency.Manager) {
	router := deps.Router
	router.Use(enableCORS)
	router.Use(metrics.Middleware())

	setupHealthEndpoint(deps)
	setupUserRoutes(router, deps)
	setupSessionRoutes(router, deps)
	setupPresenceRoutes(router, deps)
	setupAuthRoutes(router, deps)
	setupDebugRoutes(router, deps)
	setupKVRoutes(router, deps)
}

func setupHealthEndpoint(deps *dependency.Manager) {
	router := deps.Router
	cfg := deps.Config

	router.GET("/health", func(c *gin.Context) {
		log.Debug("Health check endpoint requested")

		redisStatus := "ok"
		if err := deps.Redis.Ping(c.Request.Context()); err != nil {
			redisStatus = "error: " + err.Error()
		}

		mongoStatus := "disabled"
		if deps.Mongodb != nil {
			mongoStatus = "ok"
			if err := deps.Mongodb.Ping(c.Request.Context()); err != nil {
				mongoStatus = "error: " + err.Error()
			}
		}

		status, overall := http.StatusOK, "ok"
		if redisStatus != "ok" {
			status, overall = http.StatusServiceUnavailable, "unavailable"
		}

		c.JSON(status, gin.H{
			"status":    overall,
			"service":   cfg.App.Name,
			"version":   cfg.App.Version,
			"redis":     redisStatus,
			"mongodb":   mongoStatus,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	router.GET("/health/detailed", func(c *gin.Context) {
		log.Debug("Detailed health check endpoint requested")
		ctx := c.Request.Context()

		c.JSON(http.StatusOK, gin.H{
			"status":  "operational",
			"service": cfg.App.Name,
			"version": cfg.App.Version,
			"components": gin.H{
				"database": gin.H{
					"redis":   getStatus(isRedisConnected(ctx, deps)),
					"mongodb": mongoComponentStatus(ctx, deps),
				},
				"messaging": messagingStatus(deps),
				"presence": gin.H{
					"online_ttl_seconds": int64(deps.Tracker.TTL() / time.Second),
				},
			},
		})
	})

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
}

func setupUserRoutes(router *gin.Engine, deps *dependency.Manager) {
	handler := deps.SessionHandler
	guard := deps.AuthMiddleware.AdminGuard(deps.Config.Security.RequireAdminAuth)

	users := router.Group("/api/users")
	{
		users.GET("",
			setRouteName("getAllUsers"),
			handler.GetAllUsers)

		users.DELETE("/:userId",
			chain(setRouteName("removeUser"), guard, handler.RemoveUser)...)
	}
}

func setupSessionRoutes(router *gin.Engine, deps *dependency.Manager) {
	handler := deps.SessionHandler

	sessions := router.Group("/api/sessions")
	{
		sessions.GET("/online", setRouteName("getOnlineUsers"), handler.GetOnlineUsers)
		sessions.GET("/offline", setRouteName("getOfflineUsers"), handler.GetOfflineUsers)
		sessions.GET("/stats", setRouteName("getSessionStats"), handler.GetSessionStats)
		sessions.POST("/:userId/online", setRouteName("setUserOnline"), handler.SetUserOnline)
		sessions.POST("/:userId/offline", setRouteName("setUserOffline"), handler.SetUserOffline)
		sessions.POST("/:userId/refresh-ttl", setRouteName("refreshUserTTL"), handler.RefreshUserTTL)
		sessions.GET("/:userId/status", setRouteName("getUserStatus"), handler.GetUserStatus)
	}
}

func setupPresenceRoutes(router *gin.Engine, deps *dependency.Manager) {
	handler := deps.PresenceHandler

	presence := router.Group("/api/presence")
	{
		presence.POST("/login/:userId", setRouteName("presenceLogin"), handler.Login)
		presence.POST("/logout/:userId", setRouteName("presenceLogout"), handler.Logout)
		presence.POST("/refresh/:userId", setRouteName("presenceRefresh"), handler.Refresh)
		presence.GET("/status/:userId", setRouteName("presenceStatus"), handler.Status)
		presence.GET("/online", setRouteName("presenceOnline"), handler.Online)
	}
}

func setupAuthRoutes(router *gin.Engine, deps *dependency.Manager) {
	handler := deps.LoginHandler
	guard := deps.AuthMiddleware.AdminGuard(deps.Config.Security.RequireAdminAuth)

	auth := router.Group("/api/auth")
	{
		auth.POST("/login", setRouteName("login"), handler.Login)

		sessions := auth.Group("/sessions")
		sessions.GET("/active", setRouteName("activeSessions"), handler.ActiveSessions)
		sessions.GET("/user/:userId", setRouteName("userSessions"), handler.UserSessions)
		sessions.GET("/:sessionId", setRouteName("getSession"), handler.GetSession)
		sessions.DELETE("/:sessionId/logout", setRouteName("logout"), handler.Logout)
		sessions.PUT("/:sessionId/extend", setRouteName("extendSession"), handler.Extend)
		sessions.POST("/validate", setRouteName("validateSession"), handler.Validate)
		sessions.DELETE("/user/:userId/terminate-all",
			chain(setRouteName("terminateAllSessions"), guard, handler.TerminateAll)...)
	}
}

func setupDebugRoutes(router *gin.Engine, deps *dependency.Manager) {
	guard := deps.AuthMiddleware.AdminGuard(deps.Config.Security.RequireAdminAuth)

	router.GET("/debug/online-keys",
		chain(setRouteName("debugOnlineKeys"), guard, deps.PresenceHandler.OnlineKeys)...)
}

func setupKVRoutes(router *gin.Engine, deps *dependency.Manager) {
	handler := deps.KVHandler
	guard := deps.AuthMiddleware.AdminGuard(deps.Config.Security.RequireAdminAuth)

	keys := router.Group("/api/redis")
	{
		keys.POST("/set", chain(setRouteName("kvSet"), guard, handler.Set)...)
		keys.GET("/get/:key", chain(setRouteName("kvGet"), guard, handler.Get)...)
		keys.DELETE("/del/:key", chain(setRouteName("kvDelete"), guard, handler.Delete)...)
		keys.GET("/keys", chain(setRouteName("kvKeys"), guard, handler.Keys)...)
		keys.POST("/expire/:key", chain(setRouteName("kvExpire"), guard, handler.Expire)...)
	}
}

// chain places the route name first, then the guard, then the handler
func chain(name gin.HandlerFunc, guard []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	handlers := make([]gin.HandlerFunc, 0, len(guard)+2)
	handlers = append(handlers, name)
	handlers = append(handlers, guard...)
	return append(handlers, handler)
}

func setRouteName(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("route_name", name)
		c.Next()
	}
}

func isRedisConnected(ctx context.Context, deps *dependency.Manager) bool {
	return deps.Redis.Ping(ctx) == nil
}

func mongoComponentStatus(ctx context.Context, deps *dependency.Manager) string {
	if deps.Mongodb == nil {
		return "disabled"
	}
	return getStatus(deps.Mongodb.Ping(ctx) == nil)
}

func messagingStatus(deps *dependency.Manager) string {
	if deps.RabbitMQ == nil {
		return "disabled"
	}
	return getStatus(deps.RabbitMQ.Connected())
}

func enableCORS(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if c.Request.Method == "OPTIONS" {
		c.AbortWithStatus(204)
		return
	}

	c.Next()
}

func getStatus(b bool) string {
	if b {
		return "connected"
	}
	return "disconnected"
}
