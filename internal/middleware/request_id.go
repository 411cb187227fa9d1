package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-Id"
	ctxRequestIDKey = "request_id"
	maxRequestIDLen = 64
)

// RequestID tags every request for log correlation. An inbound id from the
// reverse proxy is kept unless it is oversized; absent or rejected ids are
// replaced with a fresh one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLen {
			requestID = uuid.NewString()
		}

		c.Set(ctxRequestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)

		c.Next()
	}
}

// CtxRequestID returns the id assigned by RequestID, "" outside of it.
func CtxRequestID(c *gin.Context) string {
	return c.GetString(ctxRequestIDKey)
}
