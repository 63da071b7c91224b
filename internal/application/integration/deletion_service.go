package integration

import (
	"context"
	"fmt"

	"github.com/adinventory/backend/internal/domain/campaign"
	"github.com/adinventory/backend/internal/domain/integration"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Cascade step names, in execution order
const (
	StepMappings         = "mappings"
	StepHistory          = "history"
	StepCanonicalRecords = "canonical_records"
	StepCampaigns        = "campaigns"
	StepAdSpaces         = "ad_spaces"
	StepIntegration      = "integration"
)

// DeletionSummary reports how many rows each cascade step removed
type DeletionSummary struct {
	Mappings         int64
	History          int64
	Campaigns        int64
	AdSpaces         int64
	CanonicalRecords int64
	Integration      int64
	// StepErrors maps a step name to its failure
	StepErrors map[string]string
}

// Complete reports whether every step succeeded
func (s *DeletionSummary) Complete() bool {
	return len(s.StepErrors) == 0
}

func (s *DeletionSummary) fail(step string, err error) {
	if s.StepErrors == nil {
		s.StepErrors = make(map[string]string)
	}
	if prev, ok := s.StepErrors[step]; ok {
		s.StepErrors[step] = prev + "; " + err.Error()
		return
	}
	s.StepErrors[step] = err.Error()
}

// DeletionService removes an integration and everything derived from it.
// The cascade is best-effort: each step is attempted even if an earlier one failed.
type DeletionService struct {
	integrations integration.IntegrationRepository
	mappings     integration.CampaignMappingRepository
	history      integration.SyncHistoryRepository
	canonical    integration.CanonicalRepository
	campaigns    campaign.CampaignRepository
	adSpaces     campaign.AdSpaceRepository
	placements   campaign.PlacementRepository
	logger       *zap.Logger
}

// DeletionServiceDeps groups the collaborators of DeletionService
type DeletionServiceDeps struct {
	Integrations integration.IntegrationRepository
	Mappings     integration.CampaignMappingRepository
	History      integration.SyncHistoryRepository
	Canonical    integration.CanonicalRepository
	Campaigns    campaign.CampaignRepository
	AdSpaces     campaign.AdSpaceRepository
	Placements   campaign.PlacementRepository
	Logger       *zap.Logger
}

// NewDeletionService creates a new DeletionService
func NewDeletionService(deps DeletionServiceDeps) *DeletionService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeletionService{
		integrations: deps.Integrations,
		mappings:     deps.Mappings,
		history:      deps.History,
		canonical:    deps.Canonical,
		campaigns:    deps.Campaigns,
		adSpaces:     deps.AdSpaces,
		placements:   deps.Placements,
		logger:       logger,
	}
}

// DeleteIntegration runs the cascade: mappings, history (with canonical
// records), derived campaigns, derived ad spaces, then the integration row.
// The returned error is non-nil only when the integration row itself could
// not be removed.
func (s *DeletionService) DeleteIntegration(
	ctx context.Context,
	companyID uuid.UUID,
	integrationID uuid.UUID,
) (*DeletionSummary, error) {
	integ, err := loadIntegration(ctx, s.integrations, companyID, integrationID)
	if err != nil {
		return nil, err
	}

	log := s.logger.With(
		zap.String("integration_id", integ.ID.String()),
		zap.String("company_id", integ.CompanyID.String()),
		zap.String("provider", integ.Provider.String()),
	)
	summary := &DeletionSummary{}

	// 1. Mappings
	summary.Mappings = s.step(log, summary, StepMappings, func() (int64, error) {
		return s.mappings.DeleteByIntegration(ctx, integ.ID)
	})

	// 2. History, then canonical records
	summary.History = s.step(log, summary, StepHistory, func() (int64, error) {
		return s.history.DeleteByIntegration(ctx, integ.ID)
	})
	summary.CanonicalRecords = s.step(log, summary, StepCanonicalRecords, func() (int64, error) {
		return s.canonical.DeleteByIntegration(ctx, integ.ID)
	})

	// 3. Derived campaigns, placements first
	summary.Campaigns = s.step(log, summary, StepCampaigns, func() (int64, error) {
		return s.deleteCampaigns(ctx, log, summary, integ.ID)
	})

	// 4. Derived ad spaces, placements first
	summary.AdSpaces = s.step(log, summary, StepAdSpaces, func() (int64, error) {
		return s.deleteAdSpaces(ctx, log, summary, integ.ID)
	})

	// 5. The integration
	n, err := s.integrations.Delete(ctx, integ.ID)
	if err != nil {
		summary.fail(StepIntegration, err)
		log.Error("Failed to delete integration", zap.Error(err))
		return summary, fmt.Errorf("failed to delete integration: %w", err)
	}
	summary.Integration = n

	log.Info("Integration deleted",
		zap.Int64("mappings", summary.Mappings),
		zap.Int64("history", summary.History),
		zap.Int64("canonical_records", summary.CanonicalRecords),
		zap.Int64("campaigns", summary.Campaigns),
		zap.Int64("ad_spaces", summary.AdSpaces),
		zap.Int("step_errors", len(summary.StepErrors)),
	)
	return summary, nil
}

func (s *DeletionService) step(log *zap.Logger, summary *DeletionSummary, name string, fn func() (int64, error)) int64 {
	n, err := fn()
	if err != nil {
		summary.fail(name, err)
		log.Warn("Cascade step failed", zap.String("step", name), zap.Int64("deleted", n), zap.Error(err))
		return n
	}
	log.Debug("Cascade step done", zap.String("step", name), zap.Int64("deleted", n))
	return n
}

func (s *DeletionService) deleteCampaigns(ctx context.Context, log *zap.Logger, summary *DeletionSummary, integrationID uuid.UUID) (int64, error) {
	derived, err := s.campaigns.FindDerivedFrom(ctx, integrationID)
	if err != nil {
		return 0, err
	}

	var deleted int64
	for _, c := range derived {
		if _, err := s.placements.DeleteByCampaign(ctx, c.ID); err != nil {
			summary.fail(StepCampaigns, fmt.Errorf("placements of campaign %s: %w", c.ID, err))
			log.Warn("Failed to delete campaign placements", zap.String("campaign_id", c.ID.String()), zap.Error(err))
			continue
		}
		n, err := s.campaigns.Delete(ctx, c.ID)
		if err != nil {
			summary.fail(StepCampaigns, fmt.Errorf("campaign %s: %w", c.ID, err))
			log.Warn("Failed to delete campaign", zap.String("campaign_id", c.ID.String()), zap.Error(err))
			continue
		}
		deleted += n
	}
	return deleted, nil
}

func (s *DeletionService) deleteAdSpaces(ctx context.Context, log *zap.Logger, summary *DeletionSummary, integrationID uuid.UUID) (int64, error) {
	derived, err := s.adSpaces.FindDerivedFrom(ctx, integrationID)
	if err != nil {
		return 0, err
	}

	var deleted int64
	for _, a := range derived {
		if _, err := s.placements.DeleteByAdSpace(ctx, a.ID); err != nil {
			summary.fail(StepAdSpaces, fmt.Errorf("placements of ad space %s: %w", a.ID, err))
			log.Warn("Failed to delete ad space placements", zap.String("ad_space_id", a.ID.String()), zap.Error(err))
			continue
		}
		n, err := s.adSpaces.Delete(ctx, a.ID)
		if err != nil {
			summary.fail(StepAdSpaces, fmt.Errorf("ad space %s: %w", a.ID, err))
			log.Warn("Failed to delete ad space", zap.String("ad_space_id", a.ID.String()), zap.Error(err))
			continue
		}
		deleted += n
	}
	return deleted, nil
}
