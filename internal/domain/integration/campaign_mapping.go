package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultSubUnitFanOutLimit is the number of flights a single push may create
const DefaultSubUnitFanOutLimit = 10

// SubUnitRef is a flight created beneath an external campaign
type SubUnitRef struct {
	ZoneID   string `json:"zone_id"`
	SiteID   string `json:"site_id,omitempty"`
	FlightID string `json:"flight_id"`
	Active   bool   `json:"active"`
}

// CampaignExternalMapping links a local campaign to its external counterpart.
// There is at most one mapping per (CampaignID, IntegrationID).
type CampaignExternalMapping struct {
	ID                   uuid.UUID
	CampaignID           uuid.UUID
	IntegrationID        uuid.UUID
	CompanyID            uuid.UUID
	ExternalCampaignID   string
	ExternalAdvertiserID string
	PushedAt             time.Time
	SubUnitsCreated      int
	SubUnits             []SubUnitRef
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// NewCampaignExternalMapping creates a mapping for a first push
func NewCampaignExternalMapping(campaignID uuid.UUID, integ *Integration, externalCampaignID, externalAdvertiserID string) *CampaignExternalMapping {
	now := time.Now()
	return &CampaignExternalMapping{
		ID:                   uuid.New(),
		CampaignID:           campaignID,
		IntegrationID:        integ.ID,
		CompanyID:            integ.CompanyID,
		ExternalCampaignID:   externalCampaignID,
		ExternalAdvertiserID: externalAdvertiserID,
		PushedAt:             now,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// HasZone reports whether a flight already exists for the zone
func (m *CampaignExternalMapping) HasZone(zoneID string) bool {
	for _, su := range m.SubUnits {
		if su.ZoneID == zoneID {
			return true
		}
	}
	return false
}

// AddSubUnit records a newly created flight
func (m *CampaignExternalMapping) AddSubUnit(ref SubUnitRef) {
	m.SubUnits = append(m.SubUnits, ref)
	m.SubUnitsCreated = len(m.SubUnits)
}

// SetSubUnitActive updates the active flag of one flight
func (m *CampaignExternalMapping) SetSubUnitActive(flightID string, active bool) {
	for i := range m.SubUnits {
		if m.SubUnits[i].FlightID == flightID {
			m.SubUnits[i].Active = active
			return
		}
	}
}

// MarkPushed stamps a re-push
func (m *CampaignExternalMapping) MarkPushed(externalCampaignID, externalAdvertiserID string) {
	now := time.Now()
	if externalCampaignID != "" {
		m.ExternalCampaignID = externalCampaignID
	}
	if externalAdvertiserID != "" {
		m.ExternalAdvertiserID = externalAdvertiserID
	}
	m.PushedAt = now
	m.UpdatedAt = now
}

// CampaignMappingRepository persists campaign mappings. Find returns ErrMappingNotFound.
type CampaignMappingRepository interface {
	Find(ctx context.Context, campaignID, integrationID uuid.UUID) (*CampaignExternalMapping, error)
	// Upsert inserts or updates on the (campaign_id, integration_id) conflict key
	Upsert(ctx context.Context, m *CampaignExternalMapping) error
	FindByIntegration(ctx context.Context, integrationID uuid.UUID) ([]CampaignExternalMapping, error)
	DeleteByIntegration(ctx context.Context, integrationID uuid.UUID) (int64, error)
}
