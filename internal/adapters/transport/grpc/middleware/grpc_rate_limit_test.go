package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestRateLimitPerIP_BurstAllows(t *testing.T) {
	icpt := NewRateLimitPerIP(1, 2, 100, time.Hour)
	ctx := ctxIP("192.0.2.1")

	require.NoError(t, call(ctx, icpt))
	require.NoError(t, call(ctx, icpt))
	require.Equal(t, codes.ResourceExhausted, status.Code(call(ctx, icpt)))
}

func TestRateLimitPerIP_SeparateCounters(t *testing.T) {
	icpt := NewRateLimitPerIP(1, 1, 1000, time.Hour)

	require.NoError(t, call(ctxIP("203.0.113.10"), icpt))
	require.Error(t, call(ctxIP("203.0.113.10"), icpt))
	require.NoError(t, call(ctxIP("198.51.100.5"), icpt))
}

func TestRateLimitPerIP_TTLEvicts(t *testing.T) {
	ttl := 20 * time.Millisecond
	icpt := NewRateLimitPerIP(1, 1, 10, ttl)

	require.NoError(t, call(ctxIP("10.10.10.10"), icpt))
	time.Sleep(ttl + 10*time.Millisecond)
	require.NoError(t, call(ctxIP("10.10.10.10"), icpt))
}

func TestRateLimitPerIP_NoPeer(t *testing.T) {
	icpt := NewRateLimitPerIP(10, 10, 10, time.Hour)
	require.Equal(t, codes.ResourceExhausted, status.Code(call(context.Background(), icpt)))
}
