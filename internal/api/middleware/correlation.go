package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// CorrelationIDHeader carries the correlation id on requests and responses.
	CorrelationIDHeader = "X-Correlation-ID"

	// CorrelationIDKey is the gin context key holding the correlation id.
	CorrelationIDKey = "correlation_id"
)

// CorrelationID tags every request with a correlation id. An inbound
// X-Correlation-ID survives the round trip unchanged; without one a fresh id
// is minted. The id is echoed on the response and stored in the context so
// log lines and response envelopes can be stitched together per request.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(CorrelationIDKey, id)
		c.Header(CorrelationIDHeader, id)

		c.Next()
	}
}

// GetCorrelationID returns the request's correlation id, or "" when the
// CorrelationID middleware has not run yet.
func GetCorrelationID(c *gin.Context) string {
	return c.GetString(CorrelationIDKey)
}
