package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/store"
)

// DefaultHousekeepingInterval applies when no positive interval is configured.
const DefaultHousekeepingInterval = time.Hour

// HousekeepingService periodically clears expired verification and reset
// token pairs. Token matching already ignores expired tokens; this only keeps
// stale fingerprints from lingering in storage.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = DefaultHousekeepingInterval
	}
	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		Now:      time.Now,
	}
}

// Start launches the worker. A pass runs immediately, then once per
// Interval. Starting an already running worker is a no-op.
func (s *HousekeepingService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx, s.done)
	s.Logger.Info("housekeeping started", "interval", s.Interval)
}

// Stop cancels the worker and waits for an in-flight pass to return.
// It is safe to call when the worker never started.
func (s *HousekeepingService) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		passCtx, cancel := context.WithTimeout(ctx, s.Interval)
		if _, err := s.RunOnce(passCtx, s.Now()); err != nil && ctx.Err() == nil {
			s.Logger.Error("housekeeping pass failed", "error", err)
		}
		cancel()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single cleanup pass and reports how many token pairs
// were cleared.
func (s *HousekeepingService) RunOnce(ctx context.Context, now time.Time) (int64, error) {
	cleared, err := s.Store.Users().ClearExpiredTokens(ctx, now.UTC())
	if err != nil {
		return 0, err
	}

	level := slog.LevelDebug
	if cleared > 0 {
		level = slog.LevelInfo
	}
	s.Logger.Log(ctx, level, "housekeeping pass completed", "cleared_tokens", cleared)
	return cleared, nil
}
