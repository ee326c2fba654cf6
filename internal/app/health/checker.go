package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/gorm"
)

type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

const (
	StatusOK          = "ok"
	StatusUnavailable = "unavailable"
)

// Report is served on an unauthenticated route, so Checks only carries
// StatusOK or StatusUnavailable; failure detail goes to the log.
type Report struct {
	Healthy bool              `json:"isHealthy"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// Checker runs dependency checks for /_health and keeps the gRPC health
// service in sync with their outcome.
type Checker struct {
	checks  []Check
	timeout time.Duration
	grpc    *health.Server
	log     *zap.Logger
}

func NewChecker(timeout time.Duration, grpcHealth *health.Server, log *zap.Logger, checks ...Check) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{checks: checks, timeout: timeout, grpc: grpcHealth, log: log}
}

func (hc *Checker) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, hc.timeout)
	defer cancel()

	r := Report{Healthy: true, Checks: make(map[string]string, len(hc.checks))}
	var mu sync.Mutex
	var g errgroup.Group
	for _, c := range hc.checks {
		g.Go(func() error {
			err := c.Fn(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				r.Healthy = false
				r.Checks[c.Name] = StatusUnavailable
				hc.log.Warn("health check failed", zap.String("check", c.Name), zap.Error(err))
				return nil
			}
			r.Checks[c.Name] = StatusOK
			return nil
		})
	}
	_ = g.Wait()
	hc.publish(r)
	return r
}

func (hc *Checker) publish(r Report) {
	if hc.grpc == nil {
		return
	}
	status := healthpb.HealthCheckResponse_SERVING
	if !r.Healthy {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	hc.grpc.SetServingStatus("", status)
}

// Run re-checks every interval until ctx ends.
func (hc *Checker) Run(ctx context.Context, interval time.Duration) {
	hc.Check(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			hc.Check(ctx)
		}
	}
}

func DBCheck(db *gorm.DB) Check {
	return Check{Name: "database", Fn: func(ctx context.Context) error {
		return db.WithContext(ctx).Exec("SELECT 1").Error
	}}
}

type pinger interface {
	Ping(ctx context.Context) error
}

func RedisCheck(p pinger) Check {
	return Check{Name: "redis", Fn: p.Ping}
}
