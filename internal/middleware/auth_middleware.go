// internal/middleware/auth_middleware.go
package middleware

import (
	"net/http"
	"strings"

	"sentra-service/internal/pkg/response"
	"sentra-service/internal/service/auth"

	"github.com/gin-gonic/gin"
)

type AuthMiddleware struct {
	authService *auth.AuthService
}

func NewAuthMiddleware(authService *auth.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

// Auth validates the bearer access token and stashes the caller's identity
// and session id in the request context.
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c)
		if token == "" {
			response.Error(c, http.StatusUnauthorized, "missing authorization token", nil)
			return
		}

		claims, err := m.authService.ValidateAccess(token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "invalid or expired token", err)
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("session_id", claims.SessionID)

		c.Next()
	}
}

// ExtractToken pulls a bearer token from the Authorization header, falling
// back to the "token" query param (used by the websocket endpoint, which
// cannot set headers from a browser).
func ExtractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}

	return c.Query("token")
}

// GetUserID returns the authenticated user id from the context.
func GetUserID(c *gin.Context) (string, bool) {
	v, ok := c.Get("user_id")
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// GetSessionID returns the caller's session id from the context.
func GetSessionID(c *gin.Context) (string, bool) {
	v, ok := c.Get("session_id")
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}
