package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func scrubHeaders(h http.Header) http.Header {
	clone := h.Clone()
	for k := range clone {
		lower := strings.ToLower(k)
		if strings.Contains(lower, "authorization") || strings.Contains(lower, "cookie") {
			clone[k] = []string{"[redacted]"}
		}
	}
	return clone
}

// RequestLogger logs every request with session cookies and auth headers redacted.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		hdr, _ := json.Marshal(scrubHeaders(c.Request.Header))
		log.Debug("incoming request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("origin", c.GetHeader("Origin")),
			zap.ByteString("hdr", hdr),
		)

		ts := time.Now()
		c.Next()

		latency := time.Since(ts)
		status := c.Writer.Status()

		for _, e := range c.Errors {
			log.Error("handler error",
				zap.Int("status", status),
				zap.Error(e.Err),
				zap.String("path", c.Request.URL.Path),
			)
		}

		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		}
		if c.IsAborted() {
			log.Warn("aborted", fields...)
			return
		}
		log.Info("completed", fields...)
	}
}
