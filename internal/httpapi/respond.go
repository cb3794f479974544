package httpapi

import (
	"errors"
	"net/http"

	"healthline-api/internal/auth"
	"healthline-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Respond writes err as a JSON error response and aborts the chain.
func Respond(c *gin.Context, err error) {
	var he *Error
	if !errors.As(err, &he) {
		logger.FromGin(c).Error("unhandled error", "err", err)
		he = Unexpected(err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(he.Status, he.Body())
}

// Recovery converts panics into the generic 500 body.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.FromGin(c).Error("panic recovered", "panic", recovered)
		he := Unexpected(recovered)
		c.AbortWithStatusJSON(he.Status, he.Body())
	})
}

// Me echoes the verified session identity.
func Me(c *gin.Context) {
	uid, _ := auth.UserID(c.Request.Context())
	email, _ := auth.Email(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"user_id": uid, "email": email, "role": role})
}
