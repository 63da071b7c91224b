package models

import (
	"encoding/json"
	"time"

	"github.com/adinventory/backend/internal/domain/integration"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// IntegrationModel is the persistence model for the Integration domain entity.
// Credentials hold the sealed JSON object; sealing is done by the repository.
type IntegrationModel struct {
	ID            uuid.UUID            `gorm:"type:uuid;primary_key"`
	CompanyID     uuid.UUID            `gorm:"type:uuid;not null;index:idx_integrations_company"`
	Provider      integration.Provider `gorm:"type:varchar(20);not null;index:idx_integrations_provider_status,priority:1"`
	Status        integration.Status   `gorm:"type:varchar(20);not null;default:'active';index:idx_integrations_provider_status,priority:2"`
	Credentials   string               `gorm:"type:text;not null;default:''"`
	Configuration datatypes.JSON       `gorm:"type:jsonb"`
	LastSyncAt    *time.Time
	LastError     string    `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (IntegrationModel) TableName() string {
	return "integrations"
}

// ToDomain converts the persistence model to a domain Integration.
// Credentials are set by the caller after unsealing.
func (m *IntegrationModel) ToDomain() *integration.Integration {
	integ := &integration.Integration{
		ID:          m.ID,
		CompanyID:   m.CompanyID,
		Provider:    m.Provider,
		Status:      m.Status,
		Credentials: make(map[string]string),
		LastSyncAt:  m.LastSyncAt,
		LastError:   m.LastError,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}

	if len(m.Configuration) > 0 {
		var cfg integration.Configuration
		if err := json.Unmarshal(m.Configuration, &cfg); err == nil {
			integ.Configuration = cfg
		}
	}
	return integ
}

// FromDomain populates the persistence model. sealedCredentials is the
// already sealed credentials blob.
func (m *IntegrationModel) FromDomain(i *integration.Integration, sealedCredentials string) error {
	cfg, err := json.Marshal(i.Configuration)
	if err != nil {
		return err
	}

	m.ID = i.ID
	m.CompanyID = i.CompanyID
	m.Provider = i.Provider
	m.Status = i.Status
	m.Credentials = sealedCredentials
	m.Configuration = datatypes.JSON(cfg)
	m.LastSyncAt = i.LastSyncAt
	m.LastError = i.LastError
	m.CreatedAt = i.CreatedAt
	m.UpdatedAt = i.UpdatedAt
	return nil
}

// SyncHistoryModel is the persistence model for SyncHistoryRecord. Rows are never updated.
type SyncHistoryModel struct {
	ID            uuid.UUID              `gorm:"type:uuid;primary_key"`
	IntegrationID uuid.UUID              `gorm:"type:uuid;not null;index:idx_sync_history_integration_started,priority:1"`
	CompanyID     uuid.UUID              `gorm:"type:uuid;not null;index"`
	SyncType      integration.SyncType   `gorm:"type:varchar(20);not null"`
	StartedAt     time.Time              `gorm:"not null;index:idx_sync_history_integration_started,priority:2,sort:desc"`
	FinishedAt    time.Time              `gorm:"not null"`
	Status        integration.SyncStatus `gorm:"type:varchar(30);not null"`
	SyncedCount   int                    `gorm:"not null;default:0"`
	ErrorCount    int                    `gorm:"not null;default:0"`
	Operations    datatypes.JSON         `gorm:"type:jsonb"`
	Error         string                 `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (SyncHistoryModel) TableName() string {
	return "sync_history"
}

// ToDomain converts the persistence model to a domain SyncHistoryRecord
func (m *SyncHistoryModel) ToDomain() *integration.SyncHistoryRecord {
	rec := &integration.SyncHistoryRecord{
		ID:            m.ID,
		IntegrationID: m.IntegrationID,
		CompanyID:     m.CompanyID,
		SyncType:      m.SyncType,
		StartedAt:     m.StartedAt,
		FinishedAt:    m.FinishedAt,
		Status:        m.Status,
		SyncedCount:   m.SyncedCount,
		ErrorCount:    m.ErrorCount,
		Operations:    make(map[integration.EntityClass]integration.EntityResult),
		Error:         m.Error,
	}

	if len(m.Operations) > 0 {
		var ops map[integration.EntityClass]integration.EntityResult
		if err := json.Unmarshal(m.Operations, &ops); err == nil && ops != nil {
			rec.Operations = ops
		}
	}
	return rec
}

// SyncHistoryModelFromDomain creates a persistence model from a domain record
func SyncHistoryModelFromDomain(rec *integration.SyncHistoryRecord) (*SyncHistoryModel, error) {
	ops, err := json.Marshal(rec.Operations)
	if err != nil {
		return nil, err
	}
	return &SyncHistoryModel{
		ID:            rec.ID,
		IntegrationID: rec.IntegrationID,
		CompanyID:     rec.CompanyID,
		SyncType:      rec.SyncType,
		StartedAt:     rec.StartedAt,
		FinishedAt:    rec.FinishedAt,
		Status:        rec.Status,
		SyncedCount:   rec.SyncedCount,
		ErrorCount:    rec.ErrorCount,
		Operations:    datatypes.JSON(ops),
		Error:         rec.Error,
	}, nil
}

// CampaignExternalMappingModel is the persistence model for CampaignExternalMapping
type CampaignExternalMappingModel struct {
	ID                   uuid.UUID      `gorm:"type:uuid;primary_key"`
	CampaignID           uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uq_campaign_mapping,priority:1"`
	IntegrationID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uq_campaign_mapping,priority:2;index"`
	CompanyID            uuid.UUID      `gorm:"type:uuid;not null"`
	ExternalCampaignID   string         `gorm:"type:varchar(100);not null"`
	ExternalAdvertiserID string         `gorm:"type:varchar(100)"`
	PushedAt             time.Time      `gorm:"not null"`
	SubUnitsCreated      int            `gorm:"not null;default:0"`
	SubUnits             datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt            time.Time      `gorm:"not null"`
	UpdatedAt            time.Time      `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CampaignExternalMappingModel) TableName() string {
	return "campaign_external_mappings"
}

// ToDomain converts the persistence model to a domain mapping
func (m *CampaignExternalMappingModel) ToDomain() *integration.CampaignExternalMapping {
	mapping := &integration.CampaignExternalMapping{
		ID:                   m.ID,
		CampaignID:           m.CampaignID,
		IntegrationID:        m.IntegrationID,
		CompanyID:            m.CompanyID,
		ExternalCampaignID:   m.ExternalCampaignID,
		ExternalAdvertiserID: m.ExternalAdvertiserID,
		PushedAt:             m.PushedAt,
		SubUnitsCreated:      m.SubUnitsCreated,
		SubUnits:             make([]integration.SubUnitRef, 0),
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}

	if len(m.SubUnits) > 0 {
		var refs []integration.SubUnitRef
		if err := json.Unmarshal(m.SubUnits, &refs); err == nil {
			mapping.SubUnits = refs
		}
	}
	return mapping
}

// CampaignExternalMappingModelFromDomain creates a persistence model from a domain mapping
func CampaignExternalMappingModelFromDomain(mapping *integration.CampaignExternalMapping) (*CampaignExternalMappingModel, error) {
	refs := mapping.SubUnits
	if refs == nil {
		refs = []integration.SubUnitRef{}
	}
	raw, err := json.Marshal(refs)
	if err != nil {
		return nil, err
	}
	return &CampaignExternalMappingModel{
		ID:                   mapping.ID,
		CampaignID:           mapping.CampaignID,
		IntegrationID:        mapping.IntegrationID,
		CompanyID:            mapping.CompanyID,
		ExternalCampaignID:   mapping.ExternalCampaignID,
		ExternalAdvertiserID: mapping.ExternalAdvertiserID,
		PushedAt:             mapping.PushedAt,
		SubUnitsCreated:      mapping.SubUnitsCreated,
		SubUnits:             datatypes.JSON(raw),
		CreatedAt:            mapping.CreatedAt,
		UpdatedAt:            mapping.UpdatedAt,
	}, nil
}
