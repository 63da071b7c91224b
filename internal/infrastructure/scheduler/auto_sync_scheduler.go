package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/adinventory/backend/internal/domain/integration"
)

// DefaultAutoSyncCron runs every provider twice an hour
const DefaultAutoSyncCron = "*/30 * * * *"

// ---------------------------------------------------------------------------
// Ports
// ---------------------------------------------------------------------------

// SyncRunner lists the integrations due for an automatic run and runs them
type SyncRunner interface {
	ListActiveIntegrations(ctx context.Context, provider integration.Provider) ([]integration.Integration, error)
	RunSync(ctx context.Context, companyID, integrationID uuid.UUID, syncType integration.SyncType) (*integration.SyncHistoryRecord, error)
}

// ---------------------------------------------------------------------------
// AutoSyncSchedulerConfig
// ---------------------------------------------------------------------------

// AutoSyncSchedulerConfig holds configuration for the auto-sync scheduler
type AutoSyncSchedulerConfig struct {
	// Cron is a five-field expression evaluated in UTC
	Cron string
	// MaxConcurrentSyncs bounds the integrations synced at once per provider
	MaxConcurrentSyncs int
	// SyncTimeout bounds a single integration run; zero means no limit
	SyncTimeout time.Duration
	// Providers receive one cron job each
	Providers []integration.Provider
}

// DefaultAutoSyncSchedulerConfig returns the default configuration for every provider
func DefaultAutoSyncSchedulerConfig() AutoSyncSchedulerConfig {
	return AutoSyncSchedulerConfig{
		Cron:               DefaultAutoSyncCron,
		MaxConcurrentSyncs: 4,
		SyncTimeout:        30 * time.Minute,
		Providers:          integration.AllProviders(),
	}
}

// Validate validates the configuration
func (c AutoSyncSchedulerConfig) Validate() error {
	if c.Cron == "" {
		return fmt.Errorf("%w: cron expression is required", ErrInvalidConfig)
	}
	if c.MaxConcurrentSyncs < 1 {
		return fmt.Errorf("%w: max concurrent syncs must be at least 1", ErrInvalidConfig)
	}
	if c.SyncTimeout < 0 {
		return fmt.Errorf("%w: sync timeout cannot be negative", ErrInvalidConfig)
	}
	for _, p := range c.Providers {
		if !p.IsValid() {
			return fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, p)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// AutoSyncSummary
// ---------------------------------------------------------------------------

// AutoSyncSummary counts the outcome of one provider tick
type AutoSyncSummary struct {
	Provider  integration.Provider
	Total     int
	Succeeded int
	Failed    int
	// Skipped runs found the integration lease held by another run
	Skipped  int
	Started  time.Time
	Finished time.Time
}

// ---------------------------------------------------------------------------
// AutoSyncScheduler
// ---------------------------------------------------------------------------

// AutoSyncScheduler runs a full sync of every active integration on a cron
// schedule, one job per provider
type AutoSyncScheduler struct {
	config AutoSyncSchedulerConfig
	runner SyncRunner
	logger *zap.Logger
	cron   *gocron.Scheduler

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	isRunning bool
	last      map[integration.Provider]AutoSyncSummary
}

// NewAutoSyncScheduler creates a scheduler and registers one job per provider
func NewAutoSyncScheduler(config AutoSyncSchedulerConfig, runner SyncRunner, logger *zap.Logger) (*AutoSyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if runner == nil {
		return nil, fmt.Errorf("%w: sync runner is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &AutoSyncScheduler{
		config: config,
		runner: runner,
		logger: logger.Named("auto_sync_scheduler"),
		cron:   gocron.NewScheduler(time.UTC),
		ctx:    ctx,
		cancel: cancel,
		last:   make(map[integration.Provider]AutoSyncSummary),
	}

	for _, provider := range config.Providers {
		if err := s.register(provider); err != nil {
			cancel()
			return nil, err
		}
	}
	return s, nil
}

func (s *AutoSyncScheduler) register(provider integration.Provider) error {
	_, err := s.cron.Cron(s.config.Cron).
		SingletonMode().
		Tag(jobTag(provider)).
		Do(func() {
			if _, err := s.RunProvider(s.ctx, provider); err != nil {
				s.logger.Error("Auto-sync tick failed",
					zap.String("provider", provider.String()),
					zap.Error(err),
				)
			}
		})
	if err != nil {
		return fmt.Errorf("%w: failed to schedule %s: %v", ErrInvalidConfig, provider, err)
	}
	return nil
}

func jobTag(provider integration.Provider) string {
	return "auto_sync:" + provider.String()
}

// Start starts the cron loop
func (s *AutoSyncScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	s.cron.StartAsync()
	s.isRunning = true

	s.logger.Info("Auto-sync scheduler started",
		zap.String("cron", s.config.Cron),
		zap.Int("providers", len(s.config.Providers)),
		zap.Int("max_concurrent_syncs", s.config.MaxConcurrentSyncs),
	)
}

// Stop stops scheduling and cancels the runs in flight
func (s *AutoSyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return
	}
	s.cancel()
	s.cron.Stop()
	s.isRunning = false

	s.logger.Info("Auto-sync scheduler stopped")
}

// IsRunning reports whether the cron loop is active
func (s *AutoSyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// LastSummary returns the summary of the latest tick of a provider
func (s *AutoSyncScheduler) LastSummary(provider integration.Provider) (AutoSyncSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary, ok := s.last[provider]
	return summary, ok
}

// ---------------------------------------------------------------------------
// RunProvider
// ---------------------------------------------------------------------------

// RunProvider runs a full sync of every active integration of provider.
// Per-integration failures are counted, never returned; only a failure to
// list the integrations is an error.
func (s *AutoSyncScheduler) RunProvider(ctx context.Context, provider integration.Provider) (AutoSyncSummary, error) {
	summary := AutoSyncSummary{Provider: provider, Started: time.Now()}

	integrations, err := s.runner.ListActiveIntegrations(ctx, provider)
	if err != nil {
		return summary, fmt.Errorf("failed to list %s integrations: %w", provider, err)
	}
	summary.Total = len(integrations)

	var succeeded, failed, skipped atomic.Int64
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.MaxConcurrentSyncs)

	for i := range integrations {
		integ := integrations[i]
		g.Go(func() error {
			switch s.runOne(gCtx, &integ) {
			case outcomeSucceeded:
				succeeded.Add(1)
			case outcomeSkipped:
				skipped.Add(1)
			default:
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	summary.Succeeded = int(succeeded.Load())
	summary.Failed = int(failed.Load())
	summary.Skipped = int(skipped.Load())
	summary.Finished = time.Now()

	s.mu.Lock()
	s.last[provider] = summary
	s.mu.Unlock()

	s.logger.Info("Auto-sync tick completed",
		zap.String("provider", provider.String()),
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Duration("duration", summary.Finished.Sub(summary.Started)),
	)
	return summary, nil
}

type outcome int

const (
	outcomeSucceeded outcome = iota
	outcomeFailed
	outcomeSkipped
)

func (s *AutoSyncScheduler) runOne(ctx context.Context, integ *integration.Integration) outcome {
	if s.config.SyncTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.SyncTimeout)
		defer cancel()
	}

	log := s.logger.With(
		zap.String("integration_id", integ.ID.String()),
		zap.String("company_id", integ.CompanyID.String()),
		zap.String("provider", integ.Provider.String()),
	)

	rec, err := s.runner.RunSync(ctx, integ.CompanyID, integ.ID, integration.SyncTypeFull)
	switch {
	case errors.Is(err, integration.ErrSyncInProgress):
		log.Info("Skipping auto-sync, a run is already in progress")
		return outcomeSkipped
	case err != nil:
		log.Warn("Auto-sync failed", zap.Error(err))
		return outcomeFailed
	case rec != nil && rec.Status == integration.SyncStatusFailed:
		log.Warn("Auto-sync finished with failed status", zap.String("error", rec.Error))
		return outcomeFailed
	}
	return outcomeSucceeded
}
