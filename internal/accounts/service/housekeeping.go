package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/wattlehq/accountd/internal/accounts/store"
)

// HousekeepingService periodically deletes expired sessions and challenges
// and clears abandoned TOTP enrollments, so lazily-expired records don't
// accumulate forever.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	SetupTTL time.Duration // unconfirmed TOTP secrets older than this are cleared

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping worker. An interval of 0 or
// less defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval, setupTTL time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		SetupTTL: setupTTL,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts the worker down, blocking until any in-progress sweep ends.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Sweep immediately on startup
	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// sweep deletes stale records. Each deletion is independent so one failure
// does not stop the others.
func (s *HousekeepingService) sweep() {
	ctx := context.Background()
	now := time.Now()

	if err := s.Store.Sessions().DeleteExpiredSessions(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired sessions", "error", err)
	}

	if err := s.Store.Challenges().DeleteExpiredChallenges(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired challenges", "error", err)
	}

	if err := s.Store.Users().ClearStaleTOTPSecrets(ctx, now.Add(-s.SetupTTL)); err != nil {
		s.Logger.Error("failed to clear stale enrollments", "error", err)
	}

	s.Logger.Debug("housekeeping sweep completed")
}
