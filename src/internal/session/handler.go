package session

import (
	"context"
	"net/http"
	"presence-svc/src/internal/config"
	"presence-svc/src/internal/response"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handler interface {
	GetAllUsers(c *gin.Context)
	GetOnlineUsers(c *gin.Context)
	GetOfflineUsers(c *gin.Context)
	GetSessionStats(c *gin.Context)
	SetUserOnline(c *gin.Context)
	SetUserOffline(c *gin.Context)
	RefreshUserTTL(c *gin.Context)
	RemoveUser(c *gin.Context)
	GetUserStatus(c *gin.Context)
}

type handler struct {
	config  *config.Configuration
	service Service
}

func NewHandler(cfg *config.Configuration, service Service) Handler {
	return &handler{
		config:  cfg,
		service: service,
	}
}

func (h *handler) context(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
}

func (h *handler) GetAllUsers(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	users, err := h.service.GetAllUsers(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}

	logrus.WithField("users_returned", len(users)).Debug("GetAllUsers completed successfully")
	c.JSON(http.StatusOK, users)
}

func (h *handler) GetOnlineUsers(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	users, err := h.service.GetOnlineUsers(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *handler) GetOfflineUsers(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	users, err := h.service.GetOfflineUsers(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *handler) GetSessionStats(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	stats, err := h.service.GetSessionStats(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *handler) SetUserOnline(c *gin.Context) {
	h.userAction(c, h.service.SetUserOnline)
}

func (h *handler) SetUserOffline(c *gin.Context) {
	h.userAction(c, h.service.SetUserOffline)
}

func (h *handler) RefreshUserTTL(c *gin.Context) {
	h.userAction(c, h.service.RefreshUserTTL)
}

func (h *handler) RemoveUser(c *gin.Context) {
	h.userAction(c, h.service.RemoveUser)
}

func (h *handler) userAction(c *gin.Context, action func(context.Context, string) (*Response, error)) {
	ctx, cancel := h.context(c)
	defer cancel()

	userID := c.Param("userId")

	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"route":   c.GetString("route_name"),
	}).Info("User session action requested")

	resp, err := action(ctx, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) GetUserStatus(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	status, err := h.service.GetUserStatus(ctx, c.Param("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
