package middleware

import (
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/peitalin/dt-auth-service/internal/adapters/transport/http/dto"
	"github.com/peitalin/dt-auth-service/internal/adapters/transport/ratelimit"
)

// RateLimitPerIP answers 429 once a client IP exceeds limit rps (burst).
func RateLimitPerIP(limit, burst, cacheSize int, ttl time.Duration) gin.HandlerFunc {
	visitors := ratelimit.NewPerKey(limit, burst, cacheSize, ttl)

	return func(c *gin.Context) {
		host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if err != nil {
			host = c.Request.RemoteAddr
		}
		if !visitors.Allow(host) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.ErrorResponse{
				Error: "rate limit exceeded",
				Code:  dto.CodeRateLimited,
			})
			return
		}
		c.Next()
	}
}
