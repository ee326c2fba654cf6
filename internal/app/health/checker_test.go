package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func servingStatus(t *testing.T, s *health.Server) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := s.Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	return resp.Status
}

func TestChecker_AllHealthy(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	gh := health.NewServer()

	p := NewChecker(time.Second, gh, zap.NewNop(), DBCheck(db))
	r := p.Check(context.Background())

	require.True(t, r.Healthy)
	require.Equal(t, "ok", r.Checks["database"])
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, servingStatus(t, gh))
}

type pingStub struct{ err error }

func (p pingStub) Ping(context.Context) error { return p.err }

func TestChecker_FailingDependency(t *testing.T) {
	gh := health.NewServer()
	core, logs := observer.New(zap.WarnLevel)
	p := NewChecker(time.Second, gh, zap.New(core),
		RedisCheck(pingStub{err: errors.New("dial tcp 10.0.0.7:6379: connection refused")}),
		Check{Name: "noop", Fn: func(context.Context) error { return nil }},
	)

	r := p.Check(context.Background())
	require.False(t, r.Healthy)
	require.Equal(t, StatusUnavailable, r.Checks["redis"])
	require.Equal(t, StatusOK, r.Checks["noop"])
	for _, v := range r.Checks {
		require.NotContains(t, v, "10.0.0.7")
	}

	failed := logs.FilterMessage("health check failed").All()
	require.Len(t, failed, 1)
	require.Contains(t, failed[0].ContextMap()["error"], "10.0.0.7")
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, servingStatus(t, gh))
}

func TestChecker_Timeout(t *testing.T) {
	p := NewChecker(10*time.Millisecond, nil, zap.NewNop(), Check{Name: "slow", Fn: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})
	r := p.Check(context.Background())
	require.False(t, r.Healthy)
	require.Equal(t, StatusUnavailable, r.Checks["slow"])
}

func TestChecker_NoChecksIsHealthy(t *testing.T) {
	require.True(t, NewChecker(0, nil, zap.NewNop()).Check(context.Background()).Healthy)
}
