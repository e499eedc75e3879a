package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled unit of work. Run must be safe to call again after a
// failure; the next tick simply retries.
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger: logger,
	}
}

// Add registers job with ctx as the context handed to every run.
func (s *Scheduler) Add(ctx context.Context, job Job) error {
	_, err := s.cron.AddFunc(job.Schedule, func() {
		started := time.Now()
		if err := job.Run(ctx); err != nil {
			s.logger.Error("scheduled job failed",
				"event", "scheduler_job_failed",
				"module", "internal/platform/scheduler",
				"layer", "platform",
				"job", job.Name,
				"error", err.Error(),
			)
			return
		}
		s.logger.Debug("scheduled job completed",
			"event", "scheduler_job_completed",
			"module", "internal/platform/scheduler",
			"layer", "platform",
			"job", job.Name,
			"duration_ms", time.Since(started).Milliseconds(),
		)
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", job.Name, job.Schedule, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started",
		"event", "scheduler_started",
		"module", "internal/platform/scheduler",
		"layer", "platform",
		"jobs", len(s.cron.Entries()),
	)
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped",
		"event", "scheduler_stopped",
		"module", "internal/platform/scheduler",
		"layer", "platform",
	)
}
