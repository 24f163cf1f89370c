package syncer

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

const initialSyncDelay = 5 * time.Second

// Scheduler runs periodic inventory syncs in the background. The first
// sync fires shortly after Start so a fresh deployment populates itself
// without waiting a full interval.
type Scheduler struct {
	service      *Service
	interval     time.Duration
	initialDelay time.Duration
	logger       *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a scheduler that syncs every interval.
func NewScheduler(service *Service, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		service:      service,
		interval:     interval,
		initialDelay: initialSyncDelay,
		logger:       logger,
		done:         make(chan struct{}),
	}
}

// Start launches the background sync loop.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.run(ctx)
	s.logger.Info("sync scheduler started", zap.Duration("interval", s.interval))
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	select {
	case <-time.After(s.initialDelay):
		s.runSync(ctx)
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runSync(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) runSync(ctx context.Context) {
	stats, err := s.service.SyncAll(ctx)
	if err != nil {
		if errors.Is(err, ErrSyncInProgress) {
			s.logger.Info("scheduled sync skipped, another sync is running")
			return
		}
		s.logger.Error("scheduled sync failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled sync finished",
		zap.Int("added", stats.Added),
		zap.Int("updated", stats.Updated),
		zap.Int("removed", stats.Removed))
}

// Stop cancels the loop and waits up to timeout for it to exit.
func (s *Scheduler) Stop(timeout time.Duration) error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()

	select {
	case <-s.done:
		return nil
	case <-time.After(timeout):
		return errors.New("timed out waiting for sync scheduler to stop")
	}
}
