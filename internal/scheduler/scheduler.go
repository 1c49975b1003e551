package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/solar-report/internal/pipeline"
)

// Runner is the report pipeline as seen by the scheduler.
type Runner interface {
	Run(ctx context.Context, ids []int) ([]pipeline.SiteResult, error)
}

// Scheduler runs the report pipeline for the configured sites on a cron schedule.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	siteIDs   []int
	cron      string
	timeout   time.Duration
}

// New creates a new Scheduler. timeout bounds a whole run; zero means no bound.
func New(siteIDs []int, cron string, timeout time.Duration, runner Runner) *Scheduler {
	s := gocron.NewScheduler(time.Local)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		siteIDs:   siteIDs,
		cron:      cron,
		timeout:   timeout,
	}
}

// Start schedules the report job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.siteIDs) == 0 {
		log.Println("scheduler: no sites configured; nothing to schedule")
		return nil
	}

	job, err := s.scheduler.Cron(s.cron).Do(s.runOnce)
	if err != nil {
		return fmt.Errorf("schedule %q: %w", s.cron, err)
	}

	s.scheduler.StartAsync()
	log.Printf("scheduler: report job scheduled (%s), next run at %s", s.cron, job.NextRun().Format(time.RFC3339))
	return nil
}

func (s *Scheduler) runOnce() {
	log.Println("scheduler: running report job")

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	results, err := s.runner.Run(ctx, s.siteIDs)
	if err != nil {
		log.Printf("scheduler: report job finished with errors: %v", err)
		return
	}
	log.Printf("scheduler: completed report job for %d sites", len(results))
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
