package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adinventory/backend/internal/domain/integration"
	"github.com/adinventory/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SyncService drives one sync run for one integration and records its history.
type SyncService struct {
	integrations integration.IntegrationRepository
	history      integration.SyncHistoryRepository
	registry     integration.AdapterRegistry
	credentials  integration.CredentialResolver
	locker       integration.Locker
	leaseTTL     time.Duration
	logger       *zap.Logger
	metrics      *telemetry.SyncMetrics
}

// SyncServiceDeps groups the collaborators of SyncService
type SyncServiceDeps struct {
	Integrations integration.IntegrationRepository
	History      integration.SyncHistoryRepository
	Registry     integration.AdapterRegistry
	Credentials  integration.CredentialResolver
	Locker       integration.Locker
	LeaseTTL     time.Duration
	Logger       *zap.Logger
}

// NewSyncService creates a new SyncService
func NewSyncService(deps SyncServiceDeps) *SyncService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := deps.LeaseTTL
	if ttl <= 0 {
		ttl = integration.DefaultSyncLeaseTTL
	}
	return &SyncService{
		integrations: deps.Integrations,
		history:      deps.History,
		registry:     deps.Registry,
		credentials:  deps.Credentials,
		locker:       deps.Locker,
		leaseTTL:     ttl,
		logger:       logger,
	}
}

// SetSyncMetrics sets the sync metrics recorder
func (s *SyncService) SetSyncMetrics(m *telemetry.SyncMetrics) {
	s.metrics = m
}

// ---------------------------------------------------------------------------
// RunSync
// ---------------------------------------------------------------------------

// RunSync runs the entity syncs selected by syncType and writes exactly one
// history record, unless the run is refused before it starts (unknown
// integration, foreign company, disabled, unsupported provider, lease held).
func (s *SyncService) RunSync(
	ctx context.Context,
	companyID uuid.UUID,
	integrationID uuid.UUID,
	syncType integration.SyncType,
) (*integration.SyncHistoryRecord, error) {
	if syncType == "" {
		syncType = integration.SyncTypeFull
	}
	if !syncType.IsValid() {
		return nil, integration.ErrInvalidSyncType
	}

	integ, err := loadIntegration(ctx, s.integrations, companyID, integrationID)
	if err != nil {
		return nil, err
	}
	if integ.IsDisabled() {
		return nil, integration.ErrIntegrationDisabled
	}

	adapter, err := s.registry.Resolve(integ.Provider)
	if err != nil {
		return nil, err
	}

	lease, err := s.locker.TryAcquire(ctx, integration.SyncLeaseKey(integ), s.leaseTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("Failed to release sync lease",
				zap.String("integration_id", integ.ID.String()),
				zap.Error(err),
			)
		}
	}()

	ctx, span := telemetry.StartServiceSpan(ctx, "sync", "run",
		telemetry.SpanAttrCompanyID, integ.CompanyID.String(),
		telemetry.SpanAttrIntegrationID, integ.ID.String(),
		telemetry.SpanAttrProvider, integ.Provider.String(),
		telemetry.SpanAttrSyncType, string(syncType),
	)
	defer span.End()

	var rec *integration.SyncHistoryRecord
	telemetry.WithProfilingLabels(ctx,
		telemetry.SyncProfilingLabels(integ.Provider.String(), string(syncType)),
		func(ctx context.Context) {
			rec, err = s.run(ctx, integ, adapter, syncType)
		})
	if err != nil {
		telemetry.RecordError(span, err)
	} else {
		telemetry.SetAttributes(span,
			"synced", rec.SyncedCount,
			"errors", rec.ErrorCount,
			"status", string(rec.Status),
		)
		if rec.Status != integration.SyncStatusFailed {
			telemetry.SetOK(span)
		}
	}
	return rec, err
}

func (s *SyncService) run(
	ctx context.Context,
	integ *integration.Integration,
	adapter integration.ProviderAdapter,
	syncType integration.SyncType,
) (*integration.SyncHistoryRecord, error) {
	startedAt := time.Now()
	log := s.logger.With(
		zap.String("integration_id", integ.ID.String()),
		zap.String("company_id", integ.CompanyID.String()),
		zap.String("provider", integ.Provider.String()),
		zap.String("sync_type", string(syncType)),
	)

	cred, err := s.credentials.Resolve(ctx, integ)
	if err != nil {
		log.Error("Credential resolution failed, sync aborted", zap.Error(err))
		rec := integration.NewFailedSyncHistoryRecord(integ, syncType, startedAt, err)
		if perr := s.finish(ctx, integ, rec, err.Error()); perr != nil {
			return rec, errors.Join(err, perr)
		}
		return rec, err
	}

	ops := make(map[integration.EntityClass]integration.EntityResult, 3)
	for _, class := range syncType.EntityClasses() {
		res, err := syncEntity(ctx, adapter, class, integ, cred)
		if err != nil {
			log.Warn("Entity sync failed", zap.String("entity", string(class)), zap.Error(err))
			res.AddError(err)
		}
		ops[class] = res

		if s.metrics != nil {
			s.metrics.RecordEntityResult(ctx, integ.Provider.String(), string(class), res.Created, res.Updated, res.ErrorCount())
		}
	}

	rec := integration.NewSyncHistoryRecord(integ, syncType, startedAt, ops)

	runErr := ""
	if rec.Status == integration.SyncStatusFailed {
		runErr = firstError(ops, syncType)
		rec.Error = runErr
	}
	if err := s.finish(ctx, integ, rec, runErr); err != nil {
		return rec, err
	}

	log.Info("Sync finished",
		zap.String("status", string(rec.Status)),
		zap.Int("synced", rec.SyncedCount),
		zap.Int("errors", rec.ErrorCount),
		zap.Duration("duration", rec.FinishedAt.Sub(startedAt)),
	)
	return rec, nil
}

// finish writes the history row and the integration's sync state.
func (s *SyncService) finish(ctx context.Context, integ *integration.Integration, rec *integration.SyncHistoryRecord, runErr string) error {
	if s.metrics != nil {
		s.metrics.RecordSyncRun(ctx, integ.Provider.String(), string(rec.Status), rec.FinishedAt.Sub(rec.StartedAt))
	}

	var errs []error
	if err := s.history.Create(ctx, rec); err != nil {
		errs = append(errs, fmt.Errorf("failed to write sync history: %w", err))
	}

	integ.MarkSynced(rec.FinishedAt, runErr)
	if err := s.integrations.UpdateSyncState(ctx, integ); err != nil {
		errs = append(errs, fmt.Errorf("failed to update integration sync state: %w", err))
	}

	if len(errs) > 0 {
		s.logger.Error("Failed to persist sync outcome",
			zap.String("integration_id", integ.ID.String()),
			zap.Errors("errors", errs),
		)
		return errors.Join(errs...)
	}
	return nil
}

func syncEntity(
	ctx context.Context,
	adapter integration.ProviderAdapter,
	class integration.EntityClass,
	integ *integration.Integration,
	cred *integration.AccessCredential,
) (integration.EntityResult, error) {
	switch class {
	case integration.EntityOpportunities:
		return adapter.SyncOpportunities(ctx, integ, cred)
	case integration.EntityContacts:
		return adapter.SyncContacts(ctx, integ, cred)
	case integration.EntityAdvertisers:
		return adapter.SyncAdvertisers(ctx, integ, cred)
	default:
		return integration.EntityResult{}, fmt.Errorf("unknown entity class %q", class)
	}
}

func firstError(ops map[integration.EntityClass]integration.EntityResult, syncType integration.SyncType) string {
	for _, class := range syncType.EntityClasses() {
		if errs := ops[class].Errors; len(errs) > 0 {
			return errs[0]
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// History
// ---------------------------------------------------------------------------

// ListHistory returns a page of history records for an integration of the company
func (s *SyncService) ListHistory(
	ctx context.Context,
	companyID uuid.UUID,
	integrationID uuid.UUID,
	page, pageSize int,
) ([]integration.SyncHistoryRecord, int64, error) {
	if _, err := loadIntegration(ctx, s.integrations, companyID, integrationID); err != nil {
		return nil, 0, err
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return s.history.FindByIntegration(ctx, integrationID, page, pageSize)
}

// ListActiveIntegrations returns the non-disabled integrations of a provider
func (s *SyncService) ListActiveIntegrations(ctx context.Context, provider integration.Provider) ([]integration.Integration, error) {
	return s.integrations.FindActiveByProvider(ctx, provider)
}

// loadIntegration loads an integration and enforces company ownership.
func loadIntegration(
	ctx context.Context,
	repo integration.IntegrationRepository,
	companyID uuid.UUID,
	integrationID uuid.UUID,
) (*integration.Integration, error) {
	integ, err := repo.FindByID(ctx, integrationID)
	if err != nil {
		return nil, err
	}
	if !integ.BelongsTo(companyID) {
		return nil, integration.ErrCrossCompanyAccess
	}
	return integ, nil
}
