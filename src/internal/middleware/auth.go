package middleware

import (
	"context"
	"errors"
	"net/http"
	"presence-svc/src/internal/loginsession"
	"presence-svc/src/internal/models"
	"presence-svc/src/internal/response"
	"presence-svc/src/internal/token"
	"presence-svc/src/internal/user"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SessionToucher validates a login session and records activity on it
type SessionToucher interface {
	Touch(ctx context.Context, sessionID string) (*loginsession.Session, error)
}

// AuthMiddleware handles authentication and authorization
type AuthMiddleware struct {
	tokens   *token.Manager
	sessions SessionToucher
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(tokens *token.Manager, sessions SessionToucher) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:   tokens,
		sessions: sessions,
	}
}

// AdminGuard returns the handlers protecting admin routes, or none when disabled
func (m *AuthMiddleware) AdminGuard(enabled bool) []gin.HandlerFunc {
	if !enabled {
		return nil
	}
	return []gin.HandlerFunc{m.RequireAuth(), m.RequireAdminRights()}
}

// RequireAuth validates JWT token and the login session it is bound to
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := m.extractToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization token is required",
			})
			c.Abort()
			return
		}

		claims, err := m.tokens.Parse(tokenString)
		if err != nil {
			logrus.WithError(err).Warn("JWT token validation failed")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		session, err := m.sessions.Touch(c.Request.Context(), claims.SessionID)
		if err != nil {
			if errors.Is(err, models.ErrSessionInvalid) {
				logrus.WithField("session_id", claims.SessionID).Warn("Session is invalid or expired")
				c.JSON(http.StatusUnauthorized, gin.H{
					"error": "Session expired - please login again",
				})
				c.Abort()
				return
			}
			response.Error(c, err)
			c.Abort()
			return
		}

		if session.UserID != claims.UserID {
			logrus.WithFields(logrus.Fields{
				"session_id": claims.SessionID,
				"user_id":    claims.UserID,
			}).Warn("Token user does not own session")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("session_id", claims.SessionID)
		c.Set("user_email", claims.Email)
		c.Set("user_role", claims.Role)

		logrus.WithFields(logrus.Fields{
			"user_id":    claims.UserID,
			"session_id": claims.SessionID,
			"user_role":  claims.Role,
		}).Debug("User authenticated successfully")

		c.Next()
	}
}

// RequireAdminRights checks if user has admin privileges
func (m *AuthMiddleware) RequireAdminRights() gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := c.GetString("user_role")
		if userRole == "" {
			logrus.Error("User role not found in context - ensure RequireAuth middleware runs first")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			c.Abort()
			return
		}

		if userRole != user.RoleAdmin {
			logrus.WithFields(logrus.Fields{
				"user_id":   c.GetString("user_id"),
				"user_role": userRole,
			}).Warn("User attempted to access admin endpoint without admin privileges")

			c.JSON(http.StatusForbidden, gin.H{
				"error": "Access forbidden - admin privileges required",
			})
			c.Abort()
			return
		}

		logrus.WithField("user_id", c.GetString("user_id")).Debug("Admin access granted")
		c.Next()
	}
}

// extractToken extracts JWT token from Authorization header
func (m *AuthMiddleware) extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		logrus.Debug("Authorization header missing")
		return ""
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		logrus.Debug("Invalid authorization header format")
		return ""
	}

	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}
