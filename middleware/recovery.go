package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into a 500. The log entry carries the
// request's trace id and user so the failure can be matched to the answer
// the client saw.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			traceID := GetTraceID(c)
			fields := []zap.Field{
				zap.Any("panic", r),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("trace_id", traceID),
				zap.String("client_ip", c.ClientIP()),
				zap.Stack("stack"),
			}
			if uid := GetUserID(c); uid != "" {
				fields = append(fields, zap.String("user_id", uid))
			}
			log.Error("handler panic", fields...)

			body := gin.H{"error": "internal error"}
			if traceID != "" {
				body["traceId"] = traceID
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, body)
		}()
		c.Next()
	}
}
