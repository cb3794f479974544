package rbac

import (
	"net/http"
	"strings"

	"healthline-api/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireAdmin gates the admin views.
// Rules:
// - service_role bypasses all checks
// - caller must have an email in the session
// - empty allow-list admits any signed-in user with an email
// - otherwise the email must be listed (case-insensitive)
//
// Chain it after auth.RequireSession.
func RequireAdmin(allowedEmails []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedEmails))
	for _, e := range allowedEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			allowed[e] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if role, _ := auth.Role(ctx); IsServiceRole(role) {
			c.Next()
			return
		}

		email, err := auth.Email(ctx)
		if err != nil || email == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access requires an email on the session"})
			return
		}
		if len(allowed) > 0 {
			if _, ok := allowed[strings.ToLower(email)]; !ok {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
				return
			}
		}
		c.Next()
	}
}
