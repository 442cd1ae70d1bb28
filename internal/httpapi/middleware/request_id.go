package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/gopherchat/gopherchat/internal/common"
)

const RequestIDHeader = "X-Request-ID"

// RequestID tags every request with a ULID unless the client sent one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			if generated, err := common.NewULID(); err == nil {
				id = generated
			}
		}
		if id != "" {
			c.Writer.Header().Set(RequestIDHeader, id)
		}
		c.Next()
	}
}
