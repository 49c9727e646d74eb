package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// Header carries the request ID on both request and response.
	Header = "X-Request-ID"

	contextKey = "request_id"
)

// Middleware tags every request with an ID, reusing the caller's when
// one is supplied so IDs survive proxy hops.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(contextKey, id)
		c.Header(Header, id)

		c.Next()
	}
}

// Value returns the request ID stored in the Gin context, or empty when
// the middleware did not run.
func Value(c *gin.Context) string {
	if v, ok := c.Get(contextKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
