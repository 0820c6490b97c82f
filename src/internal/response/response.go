package response

import (
	"errors"
	"net/http"
	"presence-svc/src/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Error maps service errors to HTTP status codes
func Error(c *gin.Context, err error) {
	status, title := classify(err)

	entry := logrus.WithError(err).WithFields(logrus.Fields{
		"route":  c.GetString("route_name"),
		"status": status,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	Send(c, status, title, err.Error())
}

func Send(c *gin.Context, statusCode int, title, message string) {
	c.JSON(statusCode, gin.H{
		"error":   title,
		"success": false,
		"message": message,
	})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, models.ErrSessionNotFound):
		return http.StatusNotFound, "Session not found"
	case errors.Is(err, models.ErrKeyNotFound):
		return http.StatusNotFound, "Key not found"
	case errors.Is(err, models.ErrInvalidParams):
		return http.StatusBadRequest, "Invalid parameters"
	case errors.Is(err, models.ErrInvalidCredentials),
		errors.Is(err, models.ErrInvalidToken),
		errors.Is(err, models.ErrSessionInvalid):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, models.ErrStoreUnavailable),
		errors.Is(err, models.ErrRedisConnection),
		errors.Is(err, models.ErrDatabaseConnection):
		return http.StatusServiceUnavailable, "Service unavailable"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
