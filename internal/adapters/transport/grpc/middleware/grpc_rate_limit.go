package middleware

import (
	"context"
	"net"
	"time"

	"github.com/peitalin/dt-auth-service/internal/adapters/transport/ratelimit"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

var errRateLimited = status.Error(codes.ResourceExhausted, "rate limit exceeded")

// NewRateLimitPerIP limits unary calls per peer IP. Calls without a peer
// are rejected.
func NewRateLimitPerIP(limit, burst, cacheSize int, ttl time.Duration) grpc.UnaryServerInterceptor {
	visitors := ratelimit.NewPerKey(limit, burst, cacheSize, ttl)

	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		p, ok := peer.FromContext(ctx)
		if !ok || p.Addr == nil {
			return nil, errRateLimited
		}
		host, _, err := net.SplitHostPort(p.Addr.String())
		if err != nil {
			host = p.Addr.String()
		}
		if !visitors.Allow(host) {
			return nil, errRateLimited
		}
		return handler(ctx, req)
	}
}
