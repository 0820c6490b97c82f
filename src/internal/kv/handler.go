package kv

import (
	"context"
	"fmt"
	"net/http"
	"presence-svc/src/internal/models"
	"presence-svc/src/internal/response"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
	timeout time.Duration
}

func NewHandler(service *Service, timeout time.Duration) *Handler {
	return &Handler{service: service, timeout: timeout}
}

// Set reads key and value from the query string or a form body
func (h *Handler) Set(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	key := c.Query("key")
	if key == "" {
		key = c.PostForm("key")
	}
	value := c.Query("value")
	if value == "" {
		value = c.PostForm("value")
	}

	if err := h.service.Set(ctx, key, value); err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Key set successfully: " + key,
		"key":     key,
	})
}

func (h *Handler) Get(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	key := c.Param("key")
	value, err := h.service.Get(ctx, key)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"key":   key,
		"value": value,
	})
}

func (h *Handler) Delete(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	key := c.Param("key")
	if err := h.service.Delete(ctx, key); err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Key deleted: " + key,
		"key":     key,
	})
}

func (h *Handler) Keys(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	keys, err := h.service.Keys(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"keys":  keys,
		"count": len(keys),
	})
}

func (h *Handler) Expire(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	key := c.Param("key")
	seconds, err := strconv.ParseInt(c.Query("seconds"), 10, 64)
	if err != nil {
		response.Error(c, fmt.Errorf("%w: seconds must be an integer", models.ErrInvalidParams))
		return
	}

	if err := h.service.Expire(ctx, key, seconds); err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    fmt.Sprintf("TTL set for key: %s (%ds)", key, seconds),
		"key":        key,
		"ttlSeconds": seconds,
	})
}
