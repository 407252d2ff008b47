package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/convocore/convocore/internal/tasks"
)

// Job binds a registered task to its cron schedule.
type Job struct {
	Name     string
	Schedule string
	Run      tasks.ScheduledTaskFunc
}

// Scheduler manages scheduled tasks using gocron.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	jobs      []Job
	mu        sync.Mutex
	running   bool
}

// NewScheduler creates a scheduler for the given jobs.
func NewScheduler(logger *slog.Logger, jobs []Job) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "scheduler")

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: s,
		logger:    log,
		jobs:      jobs,
	}, nil
}

// Start registers every job and starts the scheduler's internal ticking.
// Jobs with an empty schedule are skipped. Cron expressions use the
// six-field form with a leading seconds field.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	scheduledCount := 0
	for _, job := range s.jobs {
		if job.Schedule == "" {
			s.logger.Warn("Job has empty schedule, skipping", "job_name", job.Name)
			continue
		}

		run := job.Run
		_, err := s.scheduler.NewJob(
			gocron.CronJob(job.Schedule, true),
			gocron.NewTask(
				func(ctx context.Context, name string) {
					s.logger.Info("Running scheduled task", "task_name", name)
					startTime := time.Now()
					if taskErr := run(ctx); taskErr != nil {
						s.logger.Error("Scheduled task failed", "task_name", name, "error", taskErr)
					}
					s.logger.Info("Finished scheduled task", "task_name", name, "duration", time.Since(startTime))
				},
				context.Background(),
				job.Name,
			),
			gocron.WithName(job.Name),
		)
		if err != nil {
			s.logger.Error("Failed to schedule task",
				"task_name", job.Name, "schedule", job.Schedule, "error", err)
			continue
		}

		s.logger.Info("Scheduled task", "task_name", job.Name, "schedule", job.Schedule)
		scheduledCount++
	}

	s.scheduler.Start()
	s.running = true
	s.logger.Info("Scheduler started", "tasks_scheduled", scheduledCount)
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	err := s.scheduler.Shutdown()
	if err != nil {
		s.logger.Error("Error during scheduler shutdown", "error", err)
	} else {
		s.logger.Info("Scheduler stopped gracefully")
	}

	s.running = false
	return err
}
