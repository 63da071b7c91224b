package models

import (
	"time"

	"github.com/adinventory/backend/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Each canonical table carries its own unique (company_id, natural_key, source)
// index; index names are database-wide so they cannot be shared through embedding.

func canonicalRecord(id, companyID uuid.UUID, name, naturalKey string, source integration.Provider, externalID string, derivedFrom uuid.UUID, createdAt, updatedAt time.Time) integration.CanonicalRecord {
	return integration.CanonicalRecord{
		ID:                       id,
		CompanyID:                companyID,
		Name:                     name,
		NaturalKey:               naturalKey,
		Source:                   source,
		ExternalID:               externalID,
		DerivedFromIntegrationID: derivedFrom,
		CreatedAt:                createdAt,
		UpdatedAt:                updatedAt,
	}
}

// CanonicalOpportunityModel is the persistence model for CanonicalOpportunity
type CanonicalOpportunityModel struct {
	ID                       uuid.UUID            `gorm:"type:uuid;primary_key"`
	CompanyID                uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:uq_canonical_opportunities_key,priority:1"`
	NaturalKey               string               `gorm:"type:varchar(255);not null;uniqueIndex:uq_canonical_opportunities_key,priority:2"`
	Source                   integration.Provider `gorm:"type:varchar(20);not null;uniqueIndex:uq_canonical_opportunities_key,priority:3"`
	Name                     string               `gorm:"type:varchar(255);not null"`
	ExternalID               string               `gorm:"type:varchar(100)"`
	DerivedFromIntegrationID uuid.UUID            `gorm:"type:uuid;not null;index"`
	Stage                    integration.Stage    `gorm:"type:varchar(20);not null"`
	RawStage                 string               `gorm:"type:varchar(100)"`
	Amount                   decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	Currency                 string               `gorm:"type:varchar(3)"`
	CloseDate                *time.Time           `gorm:"type:date"`
	AdvertiserID             *uuid.UUID           `gorm:"type:uuid;index"`
	AdvertiserName           string               `gorm:"type:varchar(255)"`
	CreatedAt                time.Time            `gorm:"not null"`
	UpdatedAt                time.Time            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CanonicalOpportunityModel) TableName() string {
	return "canonical_opportunities"
}

// ToDomain converts the persistence model to a domain opportunity
func (m *CanonicalOpportunityModel) ToDomain() *integration.CanonicalOpportunity {
	return &integration.CanonicalOpportunity{
		CanonicalRecord: canonicalRecord(m.ID, m.CompanyID, m.Name, m.NaturalKey, m.Source, m.ExternalID, m.DerivedFromIntegrationID, m.CreatedAt, m.UpdatedAt),
		Stage:           m.Stage,
		RawStage:        m.RawStage,
		Amount:          m.Amount,
		Currency:        m.Currency,
		CloseDate:       m.CloseDate,
		AdvertiserID:    m.AdvertiserID,
		AdvertiserName:  m.AdvertiserName,
	}
}

// CanonicalOpportunityModelFromDomain creates a persistence model from a domain opportunity
func CanonicalOpportunityModelFromDomain(o *integration.CanonicalOpportunity) *CanonicalOpportunityModel {
	return &CanonicalOpportunityModel{
		ID:                       o.ID,
		CompanyID:                o.CompanyID,
		NaturalKey:               o.NaturalKey,
		Source:                   o.Source,
		Name:                     o.Name,
		ExternalID:               o.ExternalID,
		DerivedFromIntegrationID: o.DerivedFromIntegrationID,
		Stage:                    o.Stage,
		RawStage:                 o.RawStage,
		Amount:                   o.Amount,
		Currency:                 o.Currency,
		CloseDate:                o.CloseDate,
		AdvertiserID:             o.AdvertiserID,
		AdvertiserName:           o.AdvertiserName,
		CreatedAt:                o.CreatedAt,
		UpdatedAt:                o.UpdatedAt,
	}
}

// CanonicalContactModel is the persistence model for CanonicalContact
type CanonicalContactModel struct {
	ID                       uuid.UUID            `gorm:"type:uuid;primary_key"`
	CompanyID                uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:uq_canonical_contacts_key,priority:1"`
	NaturalKey               string               `gorm:"type:varchar(255);not null;uniqueIndex:uq_canonical_contacts_key,priority:2"`
	Source                   integration.Provider `gorm:"type:varchar(20);not null;uniqueIndex:uq_canonical_contacts_key,priority:3"`
	Name                     string               `gorm:"type:varchar(255);not null"`
	ExternalID               string               `gorm:"type:varchar(100)"`
	DerivedFromIntegrationID uuid.UUID            `gorm:"type:uuid;not null;index"`
	FirstName                string               `gorm:"type:varchar(100)"`
	LastName                 string               `gorm:"type:varchar(100)"`
	Email                    string               `gorm:"type:varchar(255);index"`
	Phone                    string               `gorm:"type:varchar(50)"`
	CompanyName              string               `gorm:"type:varchar(255)"`
	CreatedAt                time.Time            `gorm:"not null"`
	UpdatedAt                time.Time            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CanonicalContactModel) TableName() string {
	return "canonical_contacts"
}

// ToDomain converts the persistence model to a domain contact
func (m *CanonicalContactModel) ToDomain() *integration.CanonicalContact {
	return &integration.CanonicalContact{
		CanonicalRecord: canonicalRecord(m.ID, m.CompanyID, m.Name, m.NaturalKey, m.Source, m.ExternalID, m.DerivedFromIntegrationID, m.CreatedAt, m.UpdatedAt),
		FirstName:       m.FirstName,
		LastName:        m.LastName,
		Email:           m.Email,
		Phone:           m.Phone,
		CompanyName:     m.CompanyName,
	}
}

// CanonicalContactModelFromDomain creates a persistence model from a domain contact
func CanonicalContactModelFromDomain(c *integration.CanonicalContact) *CanonicalContactModel {
	return &CanonicalContactModel{
		ID:                       c.ID,
		CompanyID:                c.CompanyID,
		NaturalKey:               c.NaturalKey,
		Source:                   c.Source,
		Name:                     c.Name,
		ExternalID:               c.ExternalID,
		DerivedFromIntegrationID: c.DerivedFromIntegrationID,
		FirstName:                c.FirstName,
		LastName:                 c.LastName,
		Email:                    c.Email,
		Phone:                    c.Phone,
		CompanyName:              c.CompanyName,
		CreatedAt:                c.CreatedAt,
		UpdatedAt:                c.UpdatedAt,
	}
}

// CanonicalAdvertiserModel is the persistence model for CanonicalAdvertiser
type CanonicalAdvertiserModel struct {
	ID                       uuid.UUID            `gorm:"type:uuid;primary_key"`
	CompanyID                uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:uq_canonical_advertisers_key,priority:1"`
	NaturalKey               string               `gorm:"type:varchar(255);not null;uniqueIndex:uq_canonical_advertisers_key,priority:2"`
	Source                   integration.Provider `gorm:"type:varchar(20);not null;uniqueIndex:uq_canonical_advertisers_key,priority:3"`
	Name                     string               `gorm:"type:varchar(255);not null"`
	ExternalID               string               `gorm:"type:varchar(100)"`
	DerivedFromIntegrationID uuid.UUID            `gorm:"type:uuid;not null;index"`
	Website                  string               `gorm:"type:varchar(255)"`
	Industry                 string               `gorm:"type:varchar(100)"`
	CreatedAt                time.Time            `gorm:"not null"`
	UpdatedAt                time.Time            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CanonicalAdvertiserModel) TableName() string {
	return "canonical_advertisers"
}

// ToDomain converts the persistence model to a domain advertiser
func (m *CanonicalAdvertiserModel) ToDomain() *integration.CanonicalAdvertiser {
	return &integration.CanonicalAdvertiser{
		CanonicalRecord: canonicalRecord(m.ID, m.CompanyID, m.Name, m.NaturalKey, m.Source, m.ExternalID, m.DerivedFromIntegrationID, m.CreatedAt, m.UpdatedAt),
		Website:         m.Website,
		Industry:        m.Industry,
	}
}

// CanonicalAdvertiserModelFromDomain creates a persistence model from a domain advertiser
func CanonicalAdvertiserModelFromDomain(a *integration.CanonicalAdvertiser) *CanonicalAdvertiserModel {
	return &CanonicalAdvertiserModel{
		ID:                       a.ID,
		CompanyID:                a.CompanyID,
		NaturalKey:               a.NaturalKey,
		Source:                   a.Source,
		Name:                     a.Name,
		ExternalID:               a.ExternalID,
		DerivedFromIntegrationID: a.DerivedFromIntegrationID,
		Website:                  a.Website,
		Industry:                 a.Industry,
		CreatedAt:                a.CreatedAt,
		UpdatedAt:                a.UpdatedAt,
	}
}
