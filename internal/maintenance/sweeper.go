// Package maintenance runs the scheduled housekeeping jobs.
package maintenance

import (
	"context"
	"errors"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// SweeperStore defines the interface for sweep data access.
type SweeperStore interface {
	MarkPastSessionsCompleted(ctx context.Context) (int64, error)
	DeleteExpiredInvitations(ctx context.Context) (int64, error)
}

// Sweeper periodically completes past sessions and purges expired
// invitations.
type Sweeper struct {
	store   SweeperStore
	cron    *cron.Cron
	logger  zerolog.Logger
	mu      sync.Mutex
	running bool
}

// NewSweeper creates a new maintenance sweeper.
func NewSweeper(store SweeperStore, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		store:  store,
		cron:   cron.New(),
		logger: logger.With().Str("component", "sweeper").Logger(),
	}
}

// Start begins the hourly sweep schedule.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("sweeper already running")
	}

	_, err := s.cron.AddFunc("@hourly", s.runSweep)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().Msg("maintenance sweeper started (hourly)")

	return nil
}

// Stop stops the sweeper gracefully.
func (s *Sweeper) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}

	s.running = false
	s.logger.Info().Msg("stopping maintenance sweeper")
	return s.cron.Stop()
}

// runSweep executes one housekeeping pass.
func (s *Sweeper) runSweep() {
	ctx := context.Background()

	completed, err := s.store.MarkPastSessionsCompleted(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to complete past sessions")
	} else if completed > 0 {
		s.logger.Info().
			Int64("completed_sessions", completed).
			Msg("marked past sessions completed")
	}

	purged, err := s.store.DeleteExpiredInvitations(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to purge expired invitations")
	} else if purged > 0 {
		s.logger.Info().
			Int64("purged_invitations", purged).
			Msg("purged expired invitations")
	}
}

// RunNow triggers an immediate sweep (useful for testing).
func (s *Sweeper) RunNow() {
	s.runSweep()
}
