package jobstore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/castforge/podcast-be/shared/logger"
)

const (
	// DefaultMaxAge is how long finished and unfinished records are kept.
	DefaultMaxAge = 24 * time.Hour

	// DefaultSweepInterval is how often the sweeper scans the store.
	DefaultSweepInterval = 15 * time.Minute
)

// Sweeper periodically evicts job records older than a maximum age. Age is
// measured from creation, so stuck or abandoned jobs are reclaimed the same
// way finished ones are.
type Sweeper struct {
	store    *Store
	maxAge   time.Duration
	interval time.Duration
	logger   *logger.Logger

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewSweeper creates a sweeper for the given store. Non-positive durations
// fall back to the defaults.
func NewSweeper(store *Store, maxAge, interval time.Duration, log *logger.Logger) *Sweeper {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		store:    store,
		maxAge:   maxAge,
		interval: interval,
		logger:   log,
		stopChan: make(chan struct{}),
	}
}

// Start launches the sweep loop. It returns immediately; the loop runs
// until Stop is called or the context is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("Retention sweeper started",
		slog.Duration("max_age", s.maxAge),
		slog.Duration("interval", s.interval))
}

// Stop halts the sweep loop and waits for it to exit.
func (s *Sweeper) Stop() {
	close(s.stopChan)
	s.wg.Wait()
	s.logger.Info("Retention sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.store.Sweep(s.maxAge); removed > 0 {
				s.logger.Info("Swept expired job records",
					slog.Int("removed", removed),
					slog.Duration("max_age", s.maxAge))
			}
		}
	}
}
