package presence

import (
	"context"
	"net/http"
	"presence-svc/src/internal/response"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handler exposes the tracker directly, without roster checks
type Handler struct {
	tracker *Tracker
	timeout time.Duration
}

func NewHandler(tracker *Tracker, timeout time.Duration) *Handler {
	return &Handler{tracker: tracker, timeout: timeout}
}

func (h *Handler) Login(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	userID := c.Param("userId")
	ttl, err := h.tracker.Login(ctx, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "User logged in",
		"userId":     userID,
		"status":     "online",
		"ttlSeconds": ttl,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	userID := c.Param("userId")
	if err := h.tracker.Logout(ctx, userID); err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User logged out",
		"userId":  userID,
		"status":  "offline",
	})
}

func (h *Handler) Refresh(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	userID := c.Param("userId")
	ttl, err := h.tracker.Refresh(ctx, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Presence refreshed",
		"userId":     userID,
		"status":     "refreshed",
		"ttlSeconds": ttl,
	})
}

func (h *Handler) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	userID := c.Param("userId")
	online, err := h.tracker.IsOnline(ctx, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	lastActive, err := h.tracker.LastActiveTime(ctx, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	body := gin.H{
		"userId": userID,
		"online": online,
	}
	if lastActive != nil {
		body["lastActiveAt"] = lastActive
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) Online(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	ids, err := h.tracker.OnlineUsers(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": ids,
		"count": len(ids),
	})
}

// OnlineKeys lists online users from marker keys. Debug only.
func (h *Handler) OnlineKeys(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	ids, err := h.tracker.ScanOnlineUsers(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}

	logrus.WithField("count", len(ids)).Debug("Online users derived from key scan")

	c.JSON(http.StatusOK, gin.H{
		"users":  ids,
		"count":  len(ids),
		"source": "scan",
	})
}
