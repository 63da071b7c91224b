package models

import (
	"time"

	"github.com/adinventory/backend/internal/domain/campaign"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CampaignModel is the persistence model for the Campaign domain entity
type CampaignModel struct {
	BaseModel
	CompanyID                uuid.UUID `gorm:"type:uuid;not null;index"`
	Name                     string    `gorm:"type:varchar(255);not null"`
	AdvertiserName           string    `gorm:"type:varchar(255)"`
	StartDate                time.Time `gorm:"not null"`
	EndDate                  *time.Time
	Budget                   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Status                   campaign.Status `gorm:"type:varchar(20);not null;default:'draft'"`
	Description              string          `gorm:"type:text"`
	DerivedFromIntegrationID *uuid.UUID      `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (CampaignModel) TableName() string {
	return "campaigns"
}

// ToDomain converts the persistence model to a domain Campaign
func (m *CampaignModel) ToDomain() *campaign.Campaign {
	return &campaign.Campaign{
		BaseEntity:               m.BaseModel.ToDomain(),
		CompanyID:                m.CompanyID,
		Name:                     m.Name,
		AdvertiserName:           m.AdvertiserName,
		StartDate:                m.StartDate,
		EndDate:                  m.EndDate,
		Budget:                   m.Budget,
		Status:                   m.Status,
		Description:              m.Description,
		DerivedFromIntegrationID: m.DerivedFromIntegrationID,
	}
}

// CampaignModelFromDomain creates a persistence model from a domain Campaign
func CampaignModelFromDomain(c *campaign.Campaign) *CampaignModel {
	m := &CampaignModel{
		CompanyID:                c.CompanyID,
		Name:                     c.Name,
		AdvertiserName:           c.AdvertiserName,
		StartDate:                c.StartDate,
		EndDate:                  c.EndDate,
		Budget:                   c.Budget,
		Status:                   c.Status,
		Description:              c.Description,
		DerivedFromIntegrationID: c.DerivedFromIntegrationID,
	}
	m.FromDomainBaseEntity(c.BaseEntity)
	return m
}

// AdSpaceModel is the persistence model for the AdSpace domain entity
type AdSpaceModel struct {
	BaseModel
	CompanyID                uuid.UUID  `gorm:"type:uuid;not null;index"`
	Name                     string     `gorm:"type:varchar(255);not null"`
	Location                 string     `gorm:"type:varchar(255)"`
	DerivedFromIntegrationID *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (AdSpaceModel) TableName() string {
	return "ad_spaces"
}

// ToDomain converts the persistence model to a domain AdSpace
func (m *AdSpaceModel) ToDomain() *campaign.AdSpace {
	return &campaign.AdSpace{
		BaseEntity:               m.BaseModel.ToDomain(),
		CompanyID:                m.CompanyID,
		Name:                     m.Name,
		Location:                 m.Location,
		DerivedFromIntegrationID: m.DerivedFromIntegrationID,
	}
}

// AdSpaceModelFromDomain creates a persistence model from a domain AdSpace
func AdSpaceModelFromDomain(a *campaign.AdSpace) *AdSpaceModel {
	m := &AdSpaceModel{
		CompanyID:                a.CompanyID,
		Name:                     a.Name,
		Location:                 a.Location,
		DerivedFromIntegrationID: a.DerivedFromIntegrationID,
	}
	m.FromDomainBaseEntity(a.BaseEntity)
	return m
}

// CampaignPlacementModel is the campaign/ad space junction row
type CampaignPlacementModel struct {
	CampaignID uuid.UUID `gorm:"type:uuid;primaryKey"`
	AdSpaceID  uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CampaignPlacementModel) TableName() string {
	return "campaign_placements"
}
