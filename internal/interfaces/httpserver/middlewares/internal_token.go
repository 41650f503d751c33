package middlewares

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"support-relay/internal/infrastructure/notifier"
	"support-relay/internal/interfaces/httpserver/responses"
	"support-relay/internal/utils/platformerrors"
)

// InternalToken rejects requests whose token does not match. An empty token disables the check.
func InternalToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		got := c.GetHeader(notifier.InternalTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "invalid internal token", "internal-token")
			return
		}
		c.Next()
	}
}
