package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"reelhub-api/internal/model"
	"reelhub-api/pkg/logger"
)

// FleetSyncer runs a sync across every stored account.
type FleetSyncer interface {
	RunAll(ctx context.Context, force bool) (*model.SyncReport, error)
}

// SchedulerConfig holds configuration for the sync scheduler.
type SchedulerConfig struct {
	// Interval is how often a non-forced sync is attempted.
	// Default: 1 hour
	Interval time.Duration

	// InitialDelay postpones the first run after Start; negative runs at once.
	// Default: 1 minute
	InitialDelay time.Duration

	// RunTimeout bounds a single scheduled run.
	// Default: 5 minutes
	RunTimeout time.Duration
}

// SyncScheduler periodically triggers gated fleet syncs. Runs inside the
// freshness window are skipped by the orchestrator, so the interval can be
// shorter than the freshness window.
type SyncScheduler struct {
	syncer    FleetSyncer
	config    SchedulerConfig
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
	log       *zap.Logger
}

// NewSyncScheduler creates a new sync scheduler.
func NewSyncScheduler(syncer FleetSyncer, config SchedulerConfig) *SyncScheduler {
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	if config.InitialDelay < 0 {
		config.InitialDelay = 0
	} else if config.InitialDelay == 0 {
		config.InitialDelay = time.Minute
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = 5 * time.Minute
	}

	return &SyncScheduler{
		syncer: syncer,
		config: config,
		stopCh: make(chan struct{}),
		log:    logger.Named("sync_scheduler"),
	}
}

// Start begins the scheduler. Calling it twice is a no-op.
func (s *SyncScheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.Interval)
	s.mu.Unlock()

	s.log.Info("started", zap.Duration("interval", s.config.Interval), zap.Duration("initial_delay", s.config.InitialDelay))

	go func() {
		select {
		case <-time.After(s.config.InitialDelay):
			s.runSync()
		case <-s.stopCh:
		}
	}()

	go s.run()
}

func (s *SyncScheduler) run() {
	for {
		select {
		case <-s.ticker.C:
			s.runSync()
		case <-s.stopCh:
			s.log.Info("stopped")
			return
		}
	}
}

func (s *SyncScheduler) runSync() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.RunTimeout)
	defer cancel()

	report, err := s.syncer.RunAll(ctx, false)
	if err != nil {
		s.log.Error("scheduled sync failed", zap.Error(err))
		return
	}
	if report.Skipped {
		s.log.Debug("scheduled sync skipped", zap.String("reason", report.Reason))
	}
}

// Stop stops the scheduler.
func (s *SyncScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
	})
}

// IsRunning reports whether Start has been called and Stop has not.
func (s *SyncScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// RunNow triggers an immediate forced sync.
func (s *SyncScheduler) RunNow(ctx context.Context) (*model.SyncReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	return s.syncer.RunAll(ctx, true)
}
