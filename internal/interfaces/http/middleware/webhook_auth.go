package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"
	domainerrors "pay-watch.backend/internal/domain/errors"
	"pay-watch.backend/internal/interfaces/http/response"
)

// WebhookAuthMiddleware guards webhook endpoints with a shared secret
// carried in the X-Webhook-Secret header. Comparison is constant-time.
func WebhookAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			response.Error(c, domainerrors.Unauthorized("webhook secret not configured"))
			c.Abort()
			return
		}
		got := c.GetHeader("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			response.Error(c, domainerrors.Unauthorized("invalid webhook secret"))
			c.Abort()
			return
		}
		c.Next()
	}
}
