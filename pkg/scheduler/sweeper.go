// Package scheduler runs periodic maintenance for the rule engine.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const DefaultSchedule = "@every 1m"

// StaleRecoverer fails executions left pending longer than staleAfter.
type StaleRecoverer interface {
	RecoverStale(ctx context.Context, staleAfter time.Duration) (int, error)
}

// Sweeper closes executions abandoned by a crashed worker, once at start and then on a cron schedule.
type Sweeper struct {
	schedule   string
	staleAfter time.Duration
	recoverer  StaleRecoverer
	logger     *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
	ctx  context.Context
}

func NewSweeper(logger *slog.Logger, recoverer StaleRecoverer, schedule string, staleAfter time.Duration) (*Sweeper, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	s := &Sweeper{
		schedule:   schedule,
		staleAfter: staleAfter,
		recoverer:  recoverer,
		logger:     logger.With("module", "sweeper", "schedule", schedule),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Sweeper) Validate() error {
	if s.staleAfter <= 0 {
		return errors.New("stale window must be positive")
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid sweep schedule: %w", err)
	}

	return nil
}

// Sweep runs one recovery pass.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	recovered, err := s.recoverer.RecoverStale(ctx, s.staleAfter)
	if err != nil {
		s.logger.ErrorContext(ctx, "Recovery sweep failed", "recovered", recovered, "error", err)

		return recovered, err
	}

	if recovered > 0 {
		s.logger.InfoContext(ctx, "Recovered stale executions", "recovered", recovered)
	}

	return recovered, nil
}

// Start sweeps once and schedules the following sweeps. ctx is passed to every sweep.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return errors.New("sweeper already started")
	}

	s.logger.InfoContext(ctx, "Starting sweeper", "stale_after", s.staleAfter)

	s.ctx = ctx

	_, _ = s.Sweep(ctx)

	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := s.cron.AddFunc(s.schedule, s.run)
	if err != nil {
		s.cron = nil

		return fmt.Errorf("failed to add sweep job: %w", err)
	}

	s.cron.Start()

	return nil
}

func (s *Sweeper) run() {
	if s.ctx.Err() != nil {
		return
	}

	_, _ = s.Sweep(s.ctx)
}

// Stop prevents further sweeps and waits for a running one to finish.
func (s *Sweeper) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return
	}

	s.logger.InfoContext(ctx, "Stopping sweeper")

	<-s.cron.Stop().Done()
	s.cron = nil
}
