package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

func bearerToken(c *gin.Context) string {
	raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
	if !strings.HasPrefix(raw, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(raw, bearerPrefix))
}

func attach(c *gin.Context, claims Claims) {
	ctx := WithIdentity(c.Request.Context(), claims.UserID(), claims.Email, claims.Role)
	c.Request = c.Request.WithContext(ctx)
	c.Set("user_id", claims.UserID())
	c.Set("role", claims.Role)
}

// OptionalSession attaches the caller identity when the request carries a
// valid session token. Missing or invalid tokens proceed anonymously; public
// endpoints must keep working for signed-out callers.
// A nil manager disables session lookup.
func OptionalSession(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		if tok := bearerToken(c); tok != "" {
			if claims, err := m.Verify(tok, time.Now()); err == nil {
				attach(c, claims)
			}
		}
		c.Next()
	}
}

// RequireSession verifies a session token and injects identity into request context.
// It does not perform admin checks; those belong to internal/rbac.
func RequireSession(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session verification not configured"})
			return
		}
		tok := bearerToken(c)
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := m.Verify(tok, time.Now())
		if err != nil || claims.UserID() == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		attach(c, claims)
		c.Next()
	}
}
