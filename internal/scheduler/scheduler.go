package scheduler

import (
	"context"
	"time"

	"github.com/lenskeep/studio-api/pkg/logger"
)

type Config struct {
	// LifecycleInterval is the cadence of the transition tick.
	LifecycleInterval time.Duration
	// DueDateInterval is the cadence of the deadline scan.
	DueDateInterval time.Duration
}

// TickRunner advances the event lifecycle by one tick.
type TickRunner interface {
	RunTick(ctx context.Context) error
}

// CheckRunner runs one due-date scan.
type CheckRunner interface {
	RunCheck(ctx context.Context) error
}

// Scheduler owns the two timers and drives the lifecycle and due-date
// services. It is an explicit object with injected dependencies so tests
// can run a tick synchronously instead of waiting on wall-clock firing.
type Scheduler struct {
	lifecycle TickRunner
	duedate   CheckRunner
	config    Config
	logger    *logger.Logger
}

func NewScheduler(lifecycleSvc TickRunner, duedateSvc CheckRunner, config Config, logger *logger.Logger) *Scheduler {
	if config.LifecycleInterval <= 0 {
		panic("LifecycleInterval must be greater than 0")
	}
	if config.DueDateInterval <= 0 {
		panic("DueDateInterval must be greater than 0")
	}
	return &Scheduler{
		lifecycle: lifecycleSvc,
		duedate:   duedateSvc,
		config:    config,
		logger:    logger,
	}
}

// Start blocks until the context is cancelled. Tick bodies run synchronously
// inside the select loop, so ticks of the same kind never overlap and a
// lifecycle tick never races a due-date scan in this process.
func (s *Scheduler) Start(ctx context.Context) {
	lifecycleTicker := time.NewTicker(s.config.LifecycleInterval)
	defer lifecycleTicker.Stop()
	duedateTicker := time.NewTicker(s.config.DueDateInterval)
	defer duedateTicker.Stop()

	s.logger.Info("scheduler started",
		"lifecycle_interval", s.config.LifecycleInterval.String(),
		"duedate_interval", s.config.DueDateInterval.String())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler shutting down")
			return
		case <-lifecycleTicker.C:
			if err := s.lifecycle.RunTick(ctx); err != nil {
				// Skip this tick's transition work entirely; the catalog
				// may be fixed at runtime, so the next tick can succeed.
				s.logger.Error(err, "lifecycle tick failed")
			}
		case <-duedateTicker.C:
			if err := s.duedate.RunCheck(ctx); err != nil {
				s.logger.Error(err, "due-date check failed")
			}
		}
	}
}

// RunLifecycleNow runs one lifecycle tick synchronously, for the
// operational trigger endpoint.
func (s *Scheduler) RunLifecycleNow(ctx context.Context) error {
	return s.lifecycle.RunTick(ctx)
}

// RunDueDateNow runs one due-date scan synchronously.
func (s *Scheduler) RunDueDateNow(ctx context.Context) error {
	return s.duedate.RunCheck(ctx)
}
