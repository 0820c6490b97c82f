package loginsession

import (
	"context"
	"fmt"
	"net/http"
	"presence-svc/src/internal/config"
	"presence-svc/src/internal/models"
	"presence-svc/src/internal/response"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type Handler struct {
	service *Service
	config  *config.Configuration
}

func NewHandler(cfg *config.Configuration, service *Service) *Handler {
	return &Handler{service: service, config: cfg}
}

func (h *Handler) context(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
}

func (h *Handler) Login(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, fmt.Errorf("%w: %v", models.ErrInvalidParams, err))
		return
	}

	result, err := h.service.Login(ctx, req.Username, req.Password, ClientIP(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "Login successful",
		"sessionId":      result.Session.SessionID,
		"userId":         result.Session.UserID,
		"username":       result.Session.Username,
		"role":           result.Session.Role,
		"expiresAt":      result.Session.ExpiresAt,
		"accessToken":    result.AccessToken,
		"tokenExpiresAt": result.TokenExpiresAt,
	})
}

func (h *Handler) GetSession(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	session, err := h.service.GetSession(ctx, c.Param("sessionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) Logout(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	sessionID := c.Param("sessionId")
	if err := h.service.Logout(ctx, sessionID); err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Logout successful",
		"sessionId": sessionID,
	})
}

func (h *Handler) ActiveSessions(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	ids, err := h.service.ActiveSessions(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions": ids,
		"count":    len(ids),
	})
}

func (h *Handler) UserSessions(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	userID := c.Param("userId")
	ids, err := h.service.UserSessions(ctx, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":   userID,
		"sessions": ids,
		"count":    len(ids),
	})
}

func (h *Handler) Extend(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	minutes := h.config.Session.DefaultExtensionMinutes
	if raw := c.Query("minutes"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, fmt.Errorf("%w: minutes must be an integer", models.ErrInvalidParams))
			return
		}
		minutes = parsed
	}

	sessionID := c.Param("sessionId")
	session, err := h.service.Extend(ctx, sessionID, minutes)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Session extended successfully",
		"sessionId": sessionID,
		"minutes":   minutes,
		"expiresAt": session.ExpiresAt,
	})
}

func (h *Handler) TerminateAll(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	userID := c.Param("userId")
	count, err := h.service.TerminateAll(ctx, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	adminID, _ := c.Get("user_id")
	logrus.WithFields(logrus.Fields{
		"user_id":       userID,
		"admin_user_id": adminID,
	}).Debug("Terminate-all requested")

	c.JSON(http.StatusOK, gin.H{
		"message":         "User sessions terminated",
		"userId":          userID,
		"terminatedCount": count,
	})
}

func (h *Handler) Validate(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	session, err := h.service.Validate(ctx, c.Query("sessionId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":    true,
		"userId":   session.UserID,
		"username": session.Username,
		"role":     session.Role,
	})
}

// ClientIP prefers the first X-Forwarded-For entry, then X-Real-IP, then the peer address
func ClientIP(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); strings.TrimSpace(forwarded) != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if realIP := strings.TrimSpace(c.GetHeader("X-Real-IP")); realIP != "" {
		return realIP
	}
	return c.RemoteIP()
}
