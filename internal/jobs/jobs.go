// Package jobs runs scheduled maintenance against the demo engine.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/signalsfoundry/incident-demo/internal/logging"
	"github.com/signalsfoundry/incident-demo/internal/observability"
)

// AutoResetJob is the job label recorded for scheduled demo resets.
const AutoResetJob = "auto_reset"

// Resetter is the engine surface the auto-reset job needs.
type Resetter interface {
	ResetDemo(ctx context.Context)
}

// Scheduler wraps a cron runner. A job whose previous run is still in
// progress is skipped rather than queued.
type Scheduler struct {
	cron    *cron.Cron
	log     logging.Logger
	metrics *observability.JobCollector
	now     func() time.Time

	mu      sync.Mutex
	started bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMetrics records job runs on collector.
func WithMetrics(collector *observability.JobCollector) Option {
	return func(s *Scheduler) { s.metrics = collector }
}

// NewScheduler builds an idle scheduler using standard five-field cron
// specs in the local time zone.
func NewScheduler(log logging.Logger, opts ...Option) *Scheduler {
	if log == nil {
		log = logging.Noop()
	}
	s := &Scheduler{
		cron: cron.New(),
		log:  log,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddAutoReset schedules engine.ResetDemo on spec. An empty spec is a no-op.
func (s *Scheduler) AddAutoReset(spec string, engine Resetter) error {
	if spec == "" {
		return nil
	}
	run := s.guard(AutoResetJob, func(ctx context.Context) error {
		engine.ResetDemo(ctx)
		return nil
	})
	if _, err := s.cron.AddFunc(spec, run); err != nil {
		return fmt.Errorf("schedule %s %q: %w", AutoResetJob, spec, err)
	}
	s.log.Info(context.Background(), "scheduled job",
		logging.String("job", AutoResetJob),
		logging.String("spec", spec),
	)
	return nil
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	started := s.started
	s.started = false
	s.mu.Unlock()
	if !started {
		return nil
	}

	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// guard wraps fn with overlap protection, logging and metrics.
func (s *Scheduler) guard(job string, fn func(context.Context) error) func() {
	var running atomic.Bool
	return func() {
		if !running.CompareAndSwap(false, true) {
			s.metrics.IncSkipped()
			s.log.Warn(context.Background(), "job still running; skipping",
				logging.String("job", job))
			return
		}
		defer running.Store(false)

		ctx, log := logging.WithRequestLogger(context.Background(), s.log.With(logging.String("job", job)))
		ctx, span := observability.StartChildSpan(ctx, "job/"+job, "job", job)
		defer span.End()

		start := s.now()
		err := fn(ctx)
		end := s.now()
		s.metrics.ObserveRun(job, end.Sub(start), end, err)
		if err != nil {
			span.RecordError(err)
			log.Error(ctx, "job failed", logging.Err(err))
			return
		}
		log.Info(ctx, "job completed", logging.Duration("duration", end.Sub(start)))
	}
}
