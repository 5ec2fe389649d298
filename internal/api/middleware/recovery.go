package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

type panicBody struct {
	Error         panicError `json:"error"`
	CorrelationID string     `json:"correlation_id,omitempty"`
}

type panicError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Recovery turns a handler panic into a 500 response shaped like the normal
// error envelope, so clients never see a bare gin abort. The panic value and
// stack go to the log only.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			logger.Error("panic recovered",
				"panic", r,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"correlation_id", GetCorrelationID(c),
				"stack", string(debug.Stack()),
			)

			c.AbortWithStatusJSON(http.StatusInternalServerError, panicBody{
				Error: panicError{
					Code:    "INTERNAL_SERVER_ERROR",
					Message: "An internal server error occurred",
				},
				CorrelationID: GetCorrelationID(c),
			})
		}()

		c.Next()
	}
}
