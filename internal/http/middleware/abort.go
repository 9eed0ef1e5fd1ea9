package middleware

import (
	"github.com/gin-gonic/gin"
)

// Error codes written by middleware-level rejections. The handlers package
// reuses them so every error body carries the same taxonomy.
const (
	CodeRateLimited       = "rate_limited"
	CodeBadIdempotencyKey = "bad_idempotency_key"
	CodeInternal          = "internal_error"
)

// abort stops the chain with the API error envelope
// {"request_id","code","message"}.
func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": RequestIDFrom(c),
		"code":       code,
		"message":    msg,
	})
}
