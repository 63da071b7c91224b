package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// SyncMetrics tracks sync runs, reconciled records, campaign pushes and
// integration health.
type SyncMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	syncRunsTotal    *Counter
	syncRecordsTotal *Counter
	syncErrorsTotal  *Counter
	syncDuration     *Histogram
	pushTotal        *Counter

	integrationsByStatus *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	statusProvider IntegrationStatusProvider
}

// IntegrationStatusProvider counts integrations for periodic gauge collection.
type IntegrationStatusProvider interface {
	// CountByProviderAndStatus returns counts keyed by provider, then status
	CountByProviderAndStatus(ctx context.Context) (map[string]map[string]int64, error)
}

// SyncMetricsConfig holds configuration for sync metrics.
type SyncMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	StatusProvider  IntegrationStatusProvider
}

// SyncDurationBuckets are bucket boundaries for sync run duration (seconds).
var SyncDurationBuckets = []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// NewSyncMetrics creates a new SyncMetrics instance.
func NewSyncMetrics(cfg SyncMetricsConfig) (*SyncMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sm := &SyncMetrics{
		meter:          cfg.Meter,
		logger:         logger,
		stopChan:       make(chan struct{}),
		statusProvider: cfg.StatusProvider,
	}

	var err error

	sm.syncRunsTotal, err = NewCounter(cfg.Meter, Instrument{
		Name:        "ads_sync_runs_total",
		Description: "Total number of sync runs by outcome",
		Unit:        "{runs}",
	})
	if err != nil {
		return nil, err
	}

	sm.syncRecordsTotal, err = NewCounter(cfg.Meter, Instrument{
		Name:        "ads_sync_records_total",
		Description: "Total number of reconciled records",
		Unit:        "{records}",
	})
	if err != nil {
		return nil, err
	}

	sm.syncErrorsTotal, err = NewCounter(cfg.Meter, Instrument{
		Name:        "ads_sync_errors_total",
		Description: "Total number of per-entity sync errors",
		Unit:        "{errors}",
	})
	if err != nil {
		return nil, err
	}

	sm.syncDuration, err = NewHistogram(cfg.Meter, Instrument{
		Name:        "ads_sync_duration_seconds",
		Description: "Duration of sync runs",
		Unit:        "s",
		Buckets:     SyncDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	sm.pushTotal, err = NewCounter(cfg.Meter, Instrument{
		Name:        "ads_campaign_push_total",
		Description: "Total number of campaign pushes and toggles by outcome",
		Unit:        "{operations}",
	})
	if err != nil {
		return nil, err
	}

	sm.integrationsByStatus, err = NewGauge(cfg.Meter, Instrument{
		Name:        "ads_integrations",
		Description: "Number of integrations by provider and status",
		Unit:        "{integrations}",
	})
	if err != nil {
		return nil, err
	}

	return sm, nil
}

// =============================================================================
// Sync Metrics
// =============================================================================

// RecordSyncRun records one finished orchestrator run.
func (sm *SyncMetrics) RecordSyncRun(ctx context.Context, provider, status string, d time.Duration) {
	attrs := []attribute.KeyValue{AttrProvider.String(provider), AttrSyncStatus.String(status)}
	sm.syncRunsTotal.Inc(ctx, attrs...)
	sm.syncDuration.RecordDuration(ctx, d, AttrProvider.String(provider))
}

// RecordEntityResult records the counters of one entity class.
func (sm *SyncMetrics) RecordEntityResult(ctx context.Context, provider, entity string, created, updated, errors int) {
	if created > 0 {
		sm.syncRecordsTotal.Add(ctx, int64(created),
			AttrProvider.String(provider), AttrEntity.String(entity), AttrOperation.String("created"))
	}
	if updated > 0 {
		sm.syncRecordsTotal.Add(ctx, int64(updated),
			AttrProvider.String(provider), AttrEntity.String(entity), AttrOperation.String("updated"))
	}
	if errors > 0 {
		sm.syncErrorsTotal.Add(ctx, int64(errors),
			AttrProvider.String(provider), AttrEntity.String(entity))
	}
}

// RecordCampaignOperation records a push or toggle outcome.
func (sm *SyncMetrics) RecordCampaignOperation(ctx context.Context, provider, operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failed"
	}
	sm.pushTotal.Inc(ctx,
		AttrProvider.String(provider),
		AttrOperation.String(operation),
		AttrOutcome.String(outcome),
	)
}

// RecordIntegrationCount records the current number of integrations.
func (sm *SyncMetrics) RecordIntegrationCount(ctx context.Context, provider, status string, count int64) {
	sm.integrationsByStatus.Record(ctx, count,
		AttrProvider.String(provider),
		AttrIntegrationStatus.String(status),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of the integration gauge.
// It is non-blocking; use Stop() to stop collection.
func (sm *SyncMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	sm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go sm.runPeriodicCollection(ctx, interval)
	})
}

func (sm *SyncMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sm.collectIntegrationMetrics(ctx)

	for {
		select {
		case <-sm.stopChan:
			sm.logger.Info("Stopping periodic sync metrics collection")
			return
		case <-ctx.Done():
			sm.logger.Info("Context cancelled, stopping periodic sync metrics collection")
			return
		case <-ticker.C:
			sm.collectIntegrationMetrics(ctx)
		}
	}
}

func (sm *SyncMetrics) collectIntegrationMetrics(ctx context.Context) {
	if sm.statusProvider == nil {
		sm.logger.Debug("No integration status provider configured, skipping collection")
		return
	}

	counts, err := sm.statusProvider.CountByProviderAndStatus(ctx)
	if err != nil {
		sm.logger.Error("Failed to count integrations for metrics collection", zap.Error(err))
		return
	}

	for provider, byStatus := range counts {
		for status, n := range byStatus {
			sm.RecordIntegrationCount(ctx, provider, status, n)
		}
	}
}

// Stop stops the periodic collection.
func (sm *SyncMetrics) Stop() {
	sm.stopOnce.Do(func() {
		close(sm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewSyncMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
