// Package scheduler runs periodic maintenance on a cron expression.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/adhocore/gronx"
)

// Job is one maintenance step. Jobs run sequentially in registration order.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Scheduler runs its jobs at every tick of a cron expression.
type Scheduler struct {
	cron string
	jobs []Job
	now  func() time.Time

	mu      sync.Mutex
	running bool
}

// New validates cron and returns a scheduler for jobs.
func New(cron string, jobs ...Job) (*Scheduler, error) {
	if !gronx.New().IsValid(cron) {
		return nil, fmt.Errorf("invalid cron expression %q", cron)
	}
	return &Scheduler{cron: cron, jobs: jobs, now: time.Now}, nil
}

// Start runs the schedule loop until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("maintenance_enabled", "cron", s.cron, "jobs", len(s.jobs))
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	for {
		next, err := gronx.NextTickAfter(s.cron, s.now(), false)
		if err != nil {
			slog.Error("maintenance_nexttick_failed", "cron", s.cron, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		wait := time.Until(next)
		if wait < time.Second {
			wait = time.Second
		}
		select {
		case <-time.After(wait):
			s.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce runs every job now. It is a no-op while a previous run is in progress.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return false
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	runID := fmt.Sprintf("run-%d", s.now().UnixNano())
	for _, job := range s.jobs {
		if ctx.Err() != nil {
			return true
		}
		start := time.Now()
		if err := job.Run(ctx); err != nil {
			slog.Error("maintenance_job_failed", "run_id", runID, "job", job.Name, "error", err)
			continue
		}
		slog.Debug("maintenance_job_done", "run_id", runID, "job", job.Name, "duration", time.Since(start))
	}
	return true
}
