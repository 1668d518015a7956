// Package scheduler provides cron-based scheduling for the watch cycle.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// CycleRunner runs one watch cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (int, error)
}

// Config holds the scheduler configuration
type Config struct {
	// Schedule is a cron expression for when to run a cycle (e.g., "*/5 * * * *")
	Schedule string
	// Timeout is the maximum duration for a complete watch cycle
	Timeout time.Duration
	// Enabled determines if the scheduler should run
	Enabled bool
}

// DefaultConfig returns the default scheduler configuration
func DefaultConfig() Config {
	return Config{
		Schedule: "*/5 * * * *",
		Timeout:  5 * time.Minute,
		Enabled:  true,
	}
}

// Scheduler manages the recurring watch job
type Scheduler struct {
	cron    *cron.Cron
	watcher CycleRunner
	config  Config
	logger  *slog.Logger
	entryID cron.EntryID
	manual  sync.WaitGroup
}

// New creates a new Scheduler instance
func New(cfg Config, watcher CycleRunner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		watcher: watcher,
		config:  cfg,
		logger:  logger,
	}
}

// Start begins the scheduler
func (s *Scheduler) Start() error {
	if !s.config.Enabled {
		s.logger.Info("Scheduler is disabled, skipping start")
		return nil
	}

	// Convert standard cron (5 fields) to cron with seconds (6 fields)
	schedule := "0 " + s.config.Schedule

	entryID, err := s.cron.AddFunc(schedule, func() {
		s.runCycle()
	})
	if err != nil {
		return err
	}

	s.entryID = entryID
	s.cron.Start()

	s.logger.Info("Scheduler started",
		slog.String("schedule", s.config.Schedule),
		slog.Duration("timeout", s.config.Timeout),
	)

	return nil
}

// Stop gracefully stops the scheduler. The returned context is done once
// every running cycle has finished, scheduled and manually triggered alike.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("Stopping scheduler...")
	cronCtx := s.cron.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer cancel()
		<-cronCtx.Done()
		s.manual.Wait()
	}()
	return ctx
}

// RunNow triggers an immediate cycle (useful for manual triggers).
// Cycles started here are covered by Stop like scheduled ones.
func (s *Scheduler) RunNow() {
	s.manual.Add(1)
	go func() {
		defer s.manual.Done()
		s.runCycle()
	}()
}

func (s *Scheduler) runCycle() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	startTime := time.Now()
	s.logger.Info("Starting watch cycle",
		slog.Time("start_time", startTime),
	)

	count, err := s.watcher.RunCycle(ctx)
	duration := time.Since(startTime)

	if err != nil {
		s.logger.Error("Watch cycle failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", duration),
		)
		return
	}

	s.logger.Info("Watch cycle completed",
		slog.Int("observations_processed", count),
		slog.Duration("duration", duration),
	)
}

// GetNextRunTime returns the next scheduled run time
func (s *Scheduler) GetNextRunTime() time.Time {
	if s.entryID == 0 {
		return time.Time{}
	}
	entry := s.cron.Entry(s.entryID)
	return entry.Next
}

// IsRunning returns true if the scheduler is running
func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
