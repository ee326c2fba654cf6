package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("dispatcher closed")

// Job is a unit of background work. Run may be called more than once.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// RetryPolicy doubles the wait after every failed attempt, starting at
// InitialInterval and capped at MaximumInterval. MaximumAttempts counts the
// first run.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaximumInterval time.Duration
	MaximumAttempts int
}

func DefaultRetryPolicy(attempts int) RetryPolicy {
	return RetryPolicy{
		InitialInterval: 200 * time.Millisecond,
		MaximumInterval: 5 * time.Second,
		MaximumAttempts: attempts,
	}
}

// backoff is stateful; build one per job.
func (p RetryPolicy) backoff() retry.Backoff {
	b := retry.NewExponential(p.InitialInterval)
	if p.MaximumInterval > 0 {
		b = retry.WithCappedDuration(p.MaximumInterval, b)
	}
	return retry.WithMaxRetries(uint64(p.MaximumAttempts-1), b)
}

type Options struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
	Retry      RetryPolicy
	Registerer prometheus.Registerer
}

type Metrics struct {
	jobs *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_jobs_total",
			Help: "Background jobs by name and outcome.",
		}, []string{"job", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.jobs)
	}
	return m
}

// Dispatcher runs jobs on a fixed pool of workers fed by a bounded queue.
type Dispatcher struct {
	opts    Options
	log     *zap.Logger
	metrics *Metrics

	queue chan Job
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	// stop aborts retries and in-flight jobs once Close gives up waiting.
	stopCtx context.Context
	stop    context.CancelFunc
}

func New(opts Options, log *zap.Logger) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 10 * time.Second
	}
	if opts.Retry.MaximumAttempts <= 0 {
		opts.Retry = DefaultRetryPolicy(1)
	}
	if opts.Retry.InitialInterval <= 0 {
		opts.Retry.InitialInterval = DefaultRetryPolicy(1).InitialInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		opts:    opts,
		log:     log,
		metrics: newMetrics(opts.Registerer),
		queue:   make(chan Job, opts.QueueSize),
		stopCtx: ctx,
		stop:    cancel,
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Submit enqueues a job without blocking. It returns false when the queue is
// full or the dispatcher is closed; the job is dropped in that case.
func (d *Dispatcher) Submit(job Job) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.metrics.jobs.WithLabelValues(job.Name, "rejected").Inc()
		return false
	}
	select {
	case d.queue <- job:
		return true
	default:
		d.metrics.jobs.WithLabelValues(job.Name, "dropped").Inc()
		d.log.Warn("dispatch queue full, job dropped", zap.String("job", job.Name))
		return false
	}
}

// Close stops accepting jobs and waits for the queue to drain or ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.stop()
		return nil
	case <-ctx.Done():
		d.stop()
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for job := range d.queue {
		d.run(job)
	}
}

func (d *Dispatcher) run(job Job) {
	attempt := 0
	err := retry.Do(d.stopCtx, d.opts.Retry.backoff(), func(stopCtx context.Context) error {
		attempt++
		ctx, cancel := context.WithTimeout(stopCtx, d.opts.JobTimeout)
		defer cancel()
		if err := job.Run(ctx); err != nil {
			if attempt < d.opts.Retry.MaximumAttempts {
				d.log.Warn("job attempt failed, retrying", zap.String("job", job.Name),
					zap.Int("attempt", attempt), zap.Error(err))
			}
			return retry.RetryableError(err)
		}
		return nil
	})

	switch {
	case err == nil:
		d.metrics.jobs.WithLabelValues(job.Name, "ok").Inc()
	case d.stopCtx.Err() != nil:
		d.metrics.jobs.WithLabelValues(job.Name, "aborted").Inc()
		d.log.Warn("job aborted", zap.String("job", job.Name), zap.Int("attempts", attempt), zap.Error(err))
	default:
		d.metrics.jobs.WithLabelValues(job.Name, "failed").Inc()
		d.log.Error("job failed", zap.String("job", job.Name),
			zap.Int("attempts", attempt), zap.Error(err))
	}
}
