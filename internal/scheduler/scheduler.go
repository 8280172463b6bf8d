// Package scheduler runs periodic jobs on injectable tick sources.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	runsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fittrack",
		Subsystem: "scheduler",
		Name:      "job_runs_total",
		Help:      "Job executions, grouped by job.",
	}, []string{"job"})
	runDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fittrack",
		Subsystem: "scheduler",
		Name:      "job_duration_seconds",
		Help:      "Duration of a single job execution.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"job"})
)

func init() {
	prometheus.MustRegister(runsCounter, runDuration)
}

// TickSource delivers ticks until stopped.
type TickSource interface {
	C() <-chan time.Time
	Stop()
}

type ticker struct {
	t *time.Ticker
}

// NewTicker wraps time.Ticker as a TickSource.
func NewTicker(interval time.Duration) TickSource {
	return ticker{t: time.NewTicker(interval)}
}

func (t ticker) C() <-chan time.Time { return t.t.C }
func (t ticker) Stop()               { t.t.Stop() }

// Job is a named periodic task. Run receives the tick time.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context, now time.Time)
}

// Option configures optional behaviour for the Scheduler.
type Option func(*Scheduler)

// WithLogger overrides the logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithTickSource replaces the ticker factory. Tests drive jobs by hand through it.
func WithTickSource(factory func(time.Duration) TickSource) Option {
	return func(s *Scheduler) {
		s.newTicks = factory
	}
}

// WithClock replaces time.Now for the first run of each job.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// Scheduler runs every job once at start and then on each of its ticks. A job never
// overlaps with itself; ticks arriving while it runs are dropped by the ticker.
type Scheduler struct {
	jobs     []Job
	newTicks func(time.Duration) TickSource
	now      func() time.Time
	logger   *log.Logger
	wg       sync.WaitGroup
}

// New constructs a Scheduler.
func New(jobs []Job, opts ...Option) *Scheduler {
	s := &Scheduler{
		jobs:     jobs,
		newTicks: NewTicker,
		now:      time.Now,
		logger:   log.New(log.Writer(), "[scheduler] ", log.LstdFlags|log.Lshortfile),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches one goroutine per job and returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, job)
	}
}

// Wait blocks until every job loop has returned after ctx was cancelled.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()
	ticks := s.newTicks(job.Interval)
	defer ticks.Stop()

	s.logger.Printf("job %s every %s", job.Name, job.Interval)
	s.run(ctx, job, s.now())
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticks.C():
			s.run(ctx, job, now)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, job Job, now time.Time) {
	if ctx.Err() != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("job %s panicked: %v", job.Name, r)
		}
	}()
	start := time.Now()
	job.Run(ctx, now)
	runsCounter.WithLabelValues(job.Name).Inc()
	runDuration.WithLabelValues(job.Name).Observe(time.Since(start).Seconds())
}
