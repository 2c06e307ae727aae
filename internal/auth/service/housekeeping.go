package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/store"
)

// HousekeepingService periodically deletes expired authorization requests,
// codes, tokens and retired signing keys.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService defaults a non-positive interval to one hour.
func NewHousekeepingService(s store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}

	return &HousekeepingService{
		Store:    s,
		Logger:   logger,
		Interval: interval,
		Now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the worker in the background. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until an in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup runs one sweep and returns the number of rows removed. A failing
// table does not stop the others.
func (s *HousekeepingService) Cleanup(ctx context.Context) int64 {
	now := s.Now()

	sweeps := []struct {
		name string
		fn   func(context.Context, time.Time) (int64, error)
	}{
		{"authorization_requests", s.Store.AuthorizationRequests().DeleteExpired},
		{"authorization_codes", s.Store.AuthorizationCodes().DeleteExpired},
		{"tokens", s.Store.Tokens().DeleteExpired},
		{"signing_keys", s.Store.SigningKeys().DeleteExpired},
	}

	var total int64
	for _, sw := range sweeps {
		n, err := sw.fn(ctx, now)
		if err != nil {
			s.Logger.Error("housekeeping sweep failed", "table", sw.name, "error", err)
			continue
		}
		if n > 0 {
			s.Logger.Debug("deleted expired rows", "table", sw.name, "count", n)
		}
		total += n
	}

	s.Logger.Info("housekeeping cleanup completed", "deleted", total)
	return total
}
