package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edumeet/errwatch-backend/internal/common"
	"github.com/edumeet/errwatch-backend/pkg/jwt"
)

// MonitoringLevel is the minimum user level granting the operational
// monitoring capability (query and resolve telemetry errors)
const MonitoringLevel = 8

// JWTAuth JWT authentication middleware
func JWTAuth(jwtManager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Extract Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			common.ErrorResponse(c, http.StatusUnauthorized, "Missing authorization header")
			c.Abort()
			return
		}

		// 2. Parse Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			common.ErrorResponse(c, http.StatusUnauthorized, "Invalid authorization header format")
			c.Abort()
			return
		}

		// 3. Verify token
		claims, err := jwtManager.VerifyToken(parts[1])
		if err != nil {
			if errors.Is(err, jwt.ErrExpiredToken) {
				common.ErrorResponse(c, http.StatusUnauthorized, "Token expired")
			} else {
				common.ErrorResponse(c, http.StatusUnauthorized, "Invalid token")
			}
			c.Abort()
			return
		}

		// 4. Store user info in context
		c.Set("userID", claims.UserID)
		c.Set("nickname", claims.Nickname)
		c.Set("level", claims.Level)

		c.Next()
	}
}

// MonitoringAuthorizer is the external collaborator deciding whether the
// request holds the monitoring capability. Its verdict — status code and
// message — is propagated to the client verbatim.
type MonitoringAuthorizer interface {
	Authorize(c *gin.Context) (ok bool, status int, message string)
}

// LevelAuthorizer grants monitoring access by user level from the verified
// JWT claims. It is the default collaborator; deployments with an external
// policy service swap in their own MonitoringAuthorizer.
type LevelAuthorizer struct {
	MinLevel int
}

// Authorize checks the authenticated user's level
func (a LevelAuthorizer) Authorize(c *gin.Context) (bool, int, string) {
	minLevel := a.MinLevel
	if minLevel <= 0 {
		minLevel = MonitoringLevel
	}
	if GetUserID(c) == "" {
		return false, http.StatusUnauthorized, "authentication required"
	}
	if GetUserLevel(c) < minLevel {
		return false, http.StatusForbidden, "monitoring access required"
	}
	return true, 0, ""
}

// RequireMonitoring gates a route on the monitoring capability. On denial no
// further handler logic runs and the collaborator's status and message are
// returned as-is.
func RequireMonitoring(authz MonitoringAuthorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, status, message := authz.Authorize(c)
		if !ok {
			common.ErrorResponse(c, status, message)
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID extracts user ID from context
func GetUserID(c *gin.Context) string {
	userID, exists := c.Get("userID")
	if !exists {
		return ""
	}
	if str, ok := userID.(string); ok {
		return str
	}
	return ""
}

// GetUserLevel extracts user level from context
func GetUserLevel(c *gin.Context) int {
	level, exists := c.Get("level")
	if !exists {
		return 0
	}
	if lvl, ok := level.(int); ok {
		return lvl
	}
	return 0
}

// GetNickname extracts nickname from context
func GetNickname(c *gin.Context) string {
	nickname, exists := c.Get("nickname")
	if !exists {
		return ""
	}
	if str, ok := nickname.(string); ok {
		return str
	}
	return ""
}
