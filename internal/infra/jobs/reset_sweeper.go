package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	defaultSweepSchedule = "@every 5m"
	sweepTimeout         = 30 * time.Second
)

// ExpiredResetCleaner clears reset token pairs whose expiry has passed.
type ExpiredResetCleaner interface {
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// ResetTokenSweeper periodically nulls expired reset tokens. Expired tokens
// are already unusable; the sweep only keeps the table tidy.
type ResetTokenSweeper struct {
	store    ExpiredResetCleaner
	logger   *zap.Logger
	now      func() time.Time
	schedule string

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewResetTokenSweeper validates schedule and returns an idle sweeper.
func NewResetTokenSweeper(store ExpiredResetCleaner, schedule string, logger *zap.Logger) (*ResetTokenSweeper, error) {
	if schedule == "" {
		schedule = defaultSweepSchedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", schedule, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResetTokenSweeper{
		store:    store,
		logger:   logger,
		now:      time.Now,
		schedule: schedule,
	}, nil
}

// WithClock overrides the clock used for the expiry cutoff.
func (s *ResetTokenSweeper) WithClock(now func() time.Time) *ResetTokenSweeper {
	if now != nil {
		s.now = now
	}
	return s
}

// Sweep runs one cleanup pass.
func (s *ResetTokenSweeper) Sweep(ctx context.Context) (int64, error) {
	cleared, err := s.store.ClearExpiredResetTokens(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("sweep expired reset tokens: %w", err)
	}
	if cleared > 0 {
		s.logger.Info("expired reset tokens cleared", zap.Int64("count", cleared))
	}
	return cleared, nil
}

// Start schedules Sweep. Calling Start twice is a no-op.
func (s *ResetTokenSweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(s.schedule, s.tick); err != nil {
		return fmt.Errorf("schedule reset sweeper: %w", err)
	}
	c.Start()

	s.cron = c
	s.running = true
	s.logger.Info("reset token sweeper started", zap.String("schedule", s.schedule))
	return nil
}

func (s *ResetTokenSweeper) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Warn("reset token sweep failed", zap.Error(err))
	}
}

// Stop halts scheduling and waits for a running sweep, bounded by ctx.
func (s *ResetTokenSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.running = false
	s.mu.Unlock()

	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
