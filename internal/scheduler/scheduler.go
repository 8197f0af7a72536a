// Package scheduler runs the crawl periodically in daemon mode.
package scheduler

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// Scheduler runs a single cron job. A run that is still in progress when the
// next tick fires causes that tick to be skipped.
type Scheduler struct {
	scheduler *gocron.Scheduler
	mu        sync.Mutex
	job       *gocron.Job
	running   bool
}

func New() *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{scheduler: s}
}

// Schedule registers task under cronExpr (standard five field syntax).
func (s *Scheduler) Schedule(cronExpr string, task func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.job != nil {
		return fmt.Errorf("a crawl job is already scheduled")
	}
	job, err := s.scheduler.Cron(cronExpr).Do(func() {
		slog.Info("scheduled crawl firing", "cron", cronExpr)
		task()
	})
	if err != nil {
		return fmt.Errorf("schedule crawl %q: %w", cronExpr, err)
	}
	s.job = job
	return nil
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.scheduler.StartAsync()
	s.running = true
	if s.job != nil {
		slog.Info("scheduler started", "next_run", s.job.NextRun().Format(time.RFC3339))
	}
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.scheduler.Stop()
	s.running = false
	slog.Info("scheduler stopped")
}

// NextRun reports when the job fires next.
func (s *Scheduler) NextRun() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job == nil {
		return time.Time{}, false
	}
	return s.job.NextRun(), true
}
