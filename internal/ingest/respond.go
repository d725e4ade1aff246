package ingest

import "github.com/gin-gonic/gin"

// Error codes surfaced in the error envelope.
const (
	CodeUnauthorized = "unauthorized"
	CodeRateLimited  = "rate_limit_exceeded"
	CodeValidation   = "validation_error"
	CodeInternal     = "internal_error"
)

// RespondError writes the {"error":{"code","message"}} envelope every
// non-2xx API response uses.
func RespondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{"code": code, "message": message},
	})
}
