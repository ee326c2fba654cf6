package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fastRetry(attempts int) RetryPolicy {
	return RetryPolicy{
		InitialInterval: time.Millisecond,
		MaximumInterval: 5 * time.Millisecond,
		MaximumAttempts: attempts,
	}
}

func TestDispatcher_RunsJobs(t *testing.T) {
	d := New(Options{Workers: 2, QueueSize: 8, Retry: fastRetry(1)}, zap.NewNop())

	var n atomic.Int32
	for i := 0; i < 5; i++ {
		require.True(t, d.Submit(Job{Name: "count", Run: func(context.Context) error {
			n.Add(1)
			return nil
		}}))
	}
	require.NoError(t, d.Close(context.Background()))
	require.EqualValues(t, 5, n.Load())
}

func TestDispatcher_RetriesUntilSuccess(t *testing.T) {
	d := New(Options{Workers: 1, QueueSize: 1, Retry: fastRetry(3)}, zap.NewNop())

	var calls atomic.Int32
	d.Submit(Job{Name: "flaky", Run: func(context.Context) error {
		if calls.Add(1) < 3 {
			return errors.New("broker down")
		}
		return nil
	}})
	require.NoError(t, d.Close(context.Background()))
	require.EqualValues(t, 3, calls.Load())
}

func TestDispatcher_GivesUpAfterMaxAttempts(t *testing.T) {
	d := New(Options{Workers: 1, QueueSize: 1, Retry: fastRetry(2)}, zap.NewNop())

	var calls atomic.Int32
	d.Submit(Job{Name: "broken", Run: func(context.Context) error {
		calls.Add(1)
		return errors.New("nope")
	}})
	require.NoError(t, d.Close(context.Background()))
	require.EqualValues(t, 2, calls.Load())
}

func TestDispatcher_FullQueueDrops(t *testing.T) {
	d := New(Options{Workers: 1, QueueSize: 1, Retry: fastRetry(1)}, zap.NewNop())

	release := make(chan struct{})
	started := make(chan struct{})
	block := Job{Name: "block", Run: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}
	require.True(t, d.Submit(block))
	<-started

	noop := Job{Name: "noop", Run: func(context.Context) error { return nil }}
	require.True(t, d.Submit(noop))  // fills the buffer
	require.False(t, d.Submit(noop)) // no room left

	close(release)
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcher_SubmitAfterClose(t *testing.T) {
	d := New(Options{Workers: 1, QueueSize: 1}, zap.NewNop())
	require.NoError(t, d.Close(context.Background()))
	require.False(t, d.Submit(Job{Name: "late", Run: func(context.Context) error { return nil }}))
	require.ErrorIs(t, d.Close(context.Background()), ErrClosed)
}

func TestDispatcher_CloseDeadlineAbortsRetries(t *testing.T) {
	d := New(Options{
		Workers:   1,
		QueueSize: 1,
		Retry: RetryPolicy{
			InitialInterval: time.Hour,
			MaximumInterval: time.Hour,
			MaximumAttempts: 5,
		},
		Registerer: prometheus.NewRegistry(),
	}, zap.NewNop())

	ran := make(chan struct{}, 1)
	d.Submit(Job{Name: "slow", Run: func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return errors.New("fail")
	}})
	<-ran

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := RetryPolicy{InitialInterval: 100 * time.Millisecond, MaximumInterval: 300 * time.Millisecond, MaximumAttempts: 5}
	b := p.backoff()

	var waits []time.Duration
	for {
		d, stop := b.Next()
		if stop {
			break
		}
		waits = append(waits, d)
	}
	require.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		300 * time.Millisecond,
		300 * time.Millisecond,
	}, waits)
}

func TestRetryPolicy_SingleAttemptNeverWaits(t *testing.T) {
	_, stop := RetryPolicy{InitialInterval: time.Second, MaximumAttempts: 1}.backoff().Next()
	require.True(t, stop)
}

func TestDispatcher_FailedJobCounted(t *testing.T) {
	reg := prometheus.NewRegistry()
	d := New(Options{Workers: 1, QueueSize: 1, Retry: fastRetry(3), Registerer: reg}, zap.NewNop())

	d.Submit(Job{Name: "smtp", Run: func(context.Context) error { return errors.New("421 try later") }})
	require.NoError(t, d.Close(context.Background()))

	require.Equal(t, 1.0, testutil.ToFloat64(d.metrics.jobs.WithLabelValues("smtp", "failed")))
	require.Equal(t, 0.0, testutil.ToFloat64(d.metrics.jobs.WithLabelValues("smtp", "ok")))
}
