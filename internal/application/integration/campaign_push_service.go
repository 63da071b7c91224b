package integration

import (
	"context"
	"errors"
	"fmt"

	"github.com/adinventory/backend/internal/domain/campaign"
	"github.com/adinventory/backend/internal/domain/integration"
	"github.com/adinventory/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PushResult is the outcome of a campaign push
type PushResult struct {
	ExternalCampaignID   string
	ExternalAdvertiserID string
	AdvertiserCreated    bool
	// Updated is true when an existing mapping turned the push into an update
	Updated         bool
	SubUnitsCreated int
	SubUnitErrors   []string
}

// ToggleResult is the outcome of a campaign activation toggle
type ToggleResult struct {
	Status          campaign.Status
	SubUnitsUpdated int
	SubUnitsFailed  int
}

// CampaignPushService projects local campaigns onto campaign platforms.
// No transaction spans the steps; partial provider-side state is reported, not rolled back.
type CampaignPushService struct {
	campaigns    campaign.CampaignRepository
	integrations integration.IntegrationRepository
	mappings     integration.CampaignMappingRepository
	registry     integration.AdapterRegistry
	credentials  integration.CredentialResolver
	fanOutLimit  int
	logger       *zap.Logger
	metrics      *telemetry.SyncMetrics
}

// CampaignPushServiceDeps groups the collaborators of CampaignPushService
type CampaignPushServiceDeps struct {
	Campaigns    campaign.CampaignRepository
	Integrations integration.IntegrationRepository
	Mappings     integration.CampaignMappingRepository
	Registry     integration.AdapterRegistry
	Credentials  integration.CredentialResolver
	FanOutLimit  int
	Logger       *zap.Logger
}

// NewCampaignPushService creates a new CampaignPushService
func NewCampaignPushService(deps CampaignPushServiceDeps) *CampaignPushService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := deps.FanOutLimit
	if limit <= 0 {
		limit = integration.DefaultSubUnitFanOutLimit
	}
	return &CampaignPushService{
		campaigns:    deps.Campaigns,
		integrations: deps.Integrations,
		mappings:     deps.Mappings,
		registry:     deps.Registry,
		credentials:  deps.Credentials,
		fanOutLimit:  limit,
		logger:       logger,
	}
}

// SetSyncMetrics sets the metrics recorder
func (s *CampaignPushService) SetSyncMetrics(m *telemetry.SyncMetrics) {
	s.metrics = m
}

// ---------------------------------------------------------------------------
// Push
// ---------------------------------------------------------------------------

// Push creates or updates the external campaign, creates missing flights
// (deactivated) and records the mapping.
func (s *CampaignPushService) Push(
	ctx context.Context,
	companyID uuid.UUID,
	campaignID uuid.UUID,
	integrationID uuid.UUID,
) (result *PushResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "campaign", "push",
		telemetry.SpanAttrCampaignID, campaignID.String(),
		telemetry.SpanAttrIntegrationID, integrationID.String(),
	)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	camp, integ, err := s.load(ctx, companyID, campaignID, integrationID)
	if err != nil {
		return nil, err
	}
	defer func() { s.record(ctx, integ, "push", err) }()

	platform, err := s.registry.ResolveCampaignPlatform(integ.Provider)
	if err != nil {
		return nil, err
	}
	cred, err := s.credentials.Resolve(ctx, integ)
	if err != nil {
		return nil, err
	}

	mapping, err := s.findMapping(ctx, campaignID, integrationID)
	if err != nil {
		return nil, err
	}

	log := s.logger.With(
		zap.String("campaign_id", campaignID.String()),
		zap.String("integration_id", integ.ID.String()),
		zap.String("provider", integ.Provider.String()),
	)
	result = &PushResult{}

	// Advertiser parent
	advertiserID := ""
	if mapping != nil {
		advertiserID = mapping.ExternalAdvertiserID
	}
	if advertiserID == "" {
		advertiserID, result.AdvertiserCreated, err = s.resolveAdvertiser(ctx, platform, integ, cred, camp)
		if err != nil {
			return nil, err
		}
	}
	result.ExternalAdvertiserID = advertiserID

	// Campaign
	spec := integration.ExternalCampaignSpec{
		AdvertiserID: advertiserID,
		Name:         camp.Name,
		StartDate:    camp.StartDate,
		EndDate:      camp.EndDate,
		Budget:       camp.Budget,
		Active:       false,
	}
	if mapping != nil {
		if err := platform.UpdateCampaign(ctx, integ, cred, mapping.ExternalCampaignID, spec); err != nil {
			return nil, err
		}
		mapping.MarkPushed("", advertiserID)
		result.Updated = true
	} else {
		externalID, err := platform.CreateCampaign(ctx, integ, cred, spec)
		if err != nil {
			return nil, err
		}
		mapping = integration.NewCampaignExternalMapping(campaignID, integ, externalID, advertiserID)
	}
	result.ExternalCampaignID = mapping.ExternalCampaignID

	// Flights
	result.SubUnitsCreated, result.SubUnitErrors = s.createFlights(ctx, platform, integ, cred, camp, mapping)
	if len(result.SubUnitErrors) > 0 {
		log.Warn("Some flights could not be created",
			zap.Int("created", result.SubUnitsCreated),
			zap.Strings("errors", result.SubUnitErrors),
		)
	}

	// Mapping
	if err := s.mappings.Upsert(ctx, mapping); err != nil {
		return result, fmt.Errorf("failed to save campaign mapping: %w", err)
	}
	integ.RecordCampaignPush(campaignID, mapping.ExternalCampaignID)
	if err := s.integrations.RecordCampaignPush(ctx, integ.ID, campaignID, mapping.ExternalCampaignID); err != nil {
		return result, fmt.Errorf("failed to save integration campaign map: %w", err)
	}

	log.Info("Campaign pushed",
		zap.String("external_campaign_id", result.ExternalCampaignID),
		zap.Bool("updated", result.Updated),
		zap.Bool("advertiser_created", result.AdvertiserCreated),
		zap.Int("sub_units_created", result.SubUnitsCreated),
	)
	return result, nil
}

// resolveAdvertiser uses the first listed advertiser, creating one if none exist.
func (s *CampaignPushService) resolveAdvertiser(
	ctx context.Context,
	platform integration.CampaignPlatform,
	integ *integration.Integration,
	cred *integration.AccessCredential,
	camp *campaign.Campaign,
) (string, bool, error) {
	advertisers, err := platform.ListAdvertisers(ctx, integ, cred)
	if err != nil {
		return "", false, err
	}
	if len(advertisers) > 0 {
		return advertisers[0].ID, false, nil
	}

	created, err := platform.CreateAdvertiser(ctx, integ, cred, camp.AdvertiserLabel())
	if err != nil {
		return "", false, err
	}
	return created.ID, true, nil
}

// createFlights creates one deactivated flight per zone not yet in the mapping,
// sequentially, up to the fan-out limit. Failures are collected.
func (s *CampaignPushService) createFlights(
	ctx context.Context,
	platform integration.CampaignPlatform,
	integ *integration.Integration,
	cred *integration.AccessCredential,
	camp *campaign.Campaign,
	mapping *integration.CampaignExternalMapping,
) (int, []string) {
	var errs []string

	sites, err := platform.ListSites(ctx, integ, cred)
	if err != nil {
		return 0, append(errs, err.Error())
	}

	created := 0
	for _, site := range sites {
		if created >= s.fanOutLimit {
			break
		}
		zones, err := platform.ListZones(ctx, integ, cred, site.ID)
		if err != nil {
			errs = append(errs, fmt.Sprintf("site %s: %v", site.ID, err))
			continue
		}

		for _, zone := range zones {
			if created >= s.fanOutLimit {
				break
			}
			if mapping.HasZone(zone.ID) {
				continue
			}

			flightID, err := platform.CreateFlight(ctx, integ, cred, integration.ExternalFlightSpec{
				CampaignID: mapping.ExternalCampaignID,
				ZoneID:     zone.ID,
				SiteID:     site.ID,
				Name:       fmt.Sprintf("%s - %s", camp.Name, zone.Name),
				StartDate:  camp.StartDate,
				EndDate:    camp.EndDate,
				Active:     false,
			})
			if err != nil {
				errs = append(errs, fmt.Sprintf("zone %s: %v", zone.ID, err))
				continue
			}
			mapping.AddSubUnit(integration.SubUnitRef{
				ZoneID:   zone.ID,
				SiteID:   site.ID,
				FlightID: flightID,
				Active:   false,
			})
			created++
		}
	}

	return created, errs
}

// ---------------------------------------------------------------------------
// Toggle
// ---------------------------------------------------------------------------

// Toggle activates or pauses a pushed campaign. The external campaign is
// updated first, its flights best-effort, and the local status last.
func (s *CampaignPushService) Toggle(
	ctx context.Context,
	companyID uuid.UUID,
	campaignID uuid.UUID,
	integrationID uuid.UUID,
	activate bool,
) (result *ToggleResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "campaign", "toggle",
		telemetry.SpanAttrCampaignID, campaignID.String(),
		telemetry.SpanAttrIntegrationID, integrationID.String(),
		"activate", activate,
	)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	camp, integ, err := s.load(ctx, companyID, campaignID, integrationID)
	if err != nil {
		return nil, err
	}

	mapping, err := s.findMapping(ctx, campaignID, integrationID)
	if err != nil {
		return nil, err
	}
	if mapping == nil {
		return nil, integration.ErrNotPushed
	}
	defer func() { s.record(ctx, integ, "toggle", err) }()

	platform, err := s.registry.ResolveCampaignPlatform(integ.Provider)
	if err != nil {
		return nil, err
	}
	cred, err := s.credentials.Resolve(ctx, integ)
	if err != nil {
		return nil, err
	}

	if err := platform.SetCampaignActive(ctx, integ, cred, mapping.ExternalCampaignID, activate); err != nil {
		return nil, err
	}

	result = &ToggleResult{}
	for _, su := range mapping.SubUnits {
		if err := platform.SetFlightActive(ctx, integ, cred, su.FlightID, activate); err != nil {
			result.SubUnitsFailed++
			s.logger.Warn("Failed to toggle flight",
				zap.String("campaign_id", campaignID.String()),
				zap.String("flight_id", su.FlightID),
				zap.Bool("activate", activate),
				zap.Error(err),
			)
			continue
		}
		mapping.SetSubUnitActive(su.FlightID, activate)
		result.SubUnitsUpdated++
	}

	camp.SetActive(activate)
	if err := s.campaigns.Save(ctx, camp); err != nil {
		return nil, fmt.Errorf("failed to save campaign status: %w", err)
	}
	result.Status = camp.Status

	if err := s.mappings.Upsert(ctx, mapping); err != nil {
		s.logger.Warn("Failed to save flight states",
			zap.String("campaign_id", campaignID.String()),
			zap.Error(err),
		)
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *CampaignPushService) load(
	ctx context.Context,
	companyID uuid.UUID,
	campaignID uuid.UUID,
	integrationID uuid.UUID,
) (*campaign.Campaign, *integration.Integration, error) {
	camp, err := s.campaigns.FindByID(ctx, campaignID)
	if err != nil {
		return nil, nil, err
	}
	if !camp.BelongsTo(companyID) {
		return nil, nil, integration.ErrCrossCompanyAccess
	}
	integ, err := loadIntegration(ctx, s.integrations, companyID, integrationID)
	if err != nil {
		return nil, nil, err
	}
	return camp, integ, nil
}

func (s *CampaignPushService) findMapping(ctx context.Context, campaignID, integrationID uuid.UUID) (*integration.CampaignExternalMapping, error) {
	mapping, err := s.mappings.Find(ctx, campaignID, integrationID)
	if errors.Is(err, integration.ErrMappingNotFound) {
		return nil, nil
	}
	return mapping, err
}

func (s *CampaignPushService) record(ctx context.Context, integ *integration.Integration, op string, err error) {
	if s.metrics != nil {
		s.metrics.RecordCampaignOperation(ctx, integ.Provider.String(), op, err)
	}
}
