// internal/app/system/workers/scheduler.go
package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dalemusser/positivevibes/internal/app/system/metrics"
	"github.com/dalemusser/positivevibes/internal/app/system/tasks"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs tasks.Jobs on cron schedules in UTC. A job that is still
// running when its next tick fires is skipped for that tick.
type Scheduler struct {
	cron    *cron.Cron
	log     *zap.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	jobs    map[string]tasks.Job
	running map[string]bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler. Jobs run with contexts derived from an
// internal root that Stop cancels.
func NewScheduler(logger *zap.Logger, m *metrics.Metrics) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		log:     logger.Named("scheduler"),
		metrics: m,
		jobs:    map[string]tasks.Job{},
		running: map[string]bool{},
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Add registers job. It fails on a duplicate name or an invalid schedule.
func (s *Scheduler) Add(job tasks.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[job.Name]; dup {
		return fmt.Errorf("job %q already registered", job.Name)
	}
	if _, err := s.cron.AddFunc(job.Spec(), func() { _ = s.RunNow(job.Name) }); err != nil {
		return fmt.Errorf("job %q: invalid schedule %q: %w", job.Name, job.Spec(), err)
	}
	s.jobs[job.Name] = job
	return nil
}

// Start begins dispatching scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.mu.Lock()
	names := make([]string, 0, len(s.jobs))
	for n := range s.jobs {
		names = append(names, n)
	}
	s.mu.Unlock()
	s.log.Info("scheduler started", zap.Strings("jobs", names))
}

// Stop cancels running jobs and waits for them to return, or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out", zap.Error(ctx.Err()))
	}
}

// RunNow runs the named job synchronously. It returns an error if the job is
// unknown, already running, or fails.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("unknown job %q", name)
	}
	if s.running[name] {
		s.mu.Unlock()
		s.log.Warn("job still running; skipping", zap.String("job", name))
		return fmt.Errorf("job %q already running", name)
	}
	s.running[name] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.running, name)
		s.mu.Unlock()
	}()

	ctx := s.ctx
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := job.Run(ctx)
	s.metrics.JobRun(name, err)
	if err != nil {
		s.log.Error("job failed",
			zap.String("job", name),
			zap.Duration("took", time.Since(start)),
			zap.Error(err))
		return err
	}
	s.log.Debug("job finished", zap.String("job", name), zap.Duration("took", time.Since(start)))
	return nil
}
