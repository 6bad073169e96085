package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	apperrors "nextfinance/internal/errors"
)

// PipelineAuthMiddleware creates a Gin middleware that validates the X-API-Key
// header against the configured pipeline API key. Scheduled jobs call the
// pipeline endpoints with this key instead of a user token.
func PipelineAuthMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			abortWithAppError(c, apperrors.ErrPipelineNotConfigured)
			return
		}
		key := c.GetHeader("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			abortWithAppError(c, apperrors.ErrInvalidPipelineAPIKey)
			return
		}
		c.Next()
	}
}
