package campaign

import (
	"context"
	"strings"
	"time"

	"github.com/adinventory/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCompanyID = shared.NewDomainError(shared.CodeInvalidInput, "campaign: invalid company ID")
	ErrInvalidName      = shared.NewDomainError(shared.CodeInvalidInput, "campaign: name cannot be empty")
	ErrInvalidDateRange = shared.NewDomainError(shared.CodeInvalidInput, "campaign: end date must be after start date")
	ErrNegativeBudget   = shared.NewDomainError(shared.CodeInvalidInput, "campaign: budget cannot be negative")
)

// ---------------------------------------------------------------------------
// Status
// ---------------------------------------------------------------------------

// Status is the local lifecycle state of a campaign
type Status string

const (
	StatusDraft  Status = "draft"
	StatusActive Status = "active"
	StatusPaused Status = "paused"
)

// StatusFor returns the status a campaign takes after an activation toggle
func StatusFor(active bool) Status {
	if active {
		return StatusActive
	}
	return StatusPaused
}

// ---------------------------------------------------------------------------
// Campaign Entity
// ---------------------------------------------------------------------------

// Campaign is a locally managed advertising campaign
type Campaign struct {
	shared.BaseEntity
	CompanyID      uuid.UUID
	Name           string
	AdvertiserName string
	StartDate      time.Time
	EndDate        *time.Time
	Budget         decimal.Decimal
	Status         Status
	Description    string
	// DerivedFromIntegrationID is written by the campaign import of the
	// management application. This service only reads it when cascading
	// an integration deletion.
	DerivedFromIntegrationID *uuid.UUID
}

// NewCampaign creates a draft campaign
func NewCampaign(companyID uuid.UUID, name, advertiserName string, start time.Time, end *time.Time, budget decimal.Decimal) (*Campaign, error) {
	if companyID == uuid.Nil {
		return nil, ErrInvalidCompanyID
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if end != nil && !end.After(start) {
		return nil, ErrInvalidDateRange
	}
	if budget.IsNegative() {
		return nil, ErrNegativeBudget
	}

	return &Campaign{
		BaseEntity:     shared.NewBaseEntity(),
		CompanyID:      companyID,
		Name:           name,
		AdvertiserName: strings.TrimSpace(advertiserName),
		StartDate:      start,
		EndDate:        end,
		Budget:         budget,
		Status:         StatusDraft,
	}, nil
}

// BelongsTo reports whether the campaign is owned by the company
func (c *Campaign) BelongsTo(companyID uuid.UUID) bool {
	return c.CompanyID == companyID
}

// AdvertiserLabel is the name used when an advertiser must be created externally
func (c *Campaign) AdvertiserLabel() string {
	if c.AdvertiserName != "" {
		return c.AdvertiserName
	}
	return c.Name
}

// SetActive mirrors an external activation onto the local record
func (c *Campaign) SetActive(active bool) {
	c.Status = StatusFor(active)
	c.Touch()
}

// ---------------------------------------------------------------------------
// AdSpace Entity
// ---------------------------------------------------------------------------

// AdSpace is a local inventory slot a campaign can be placed on
type AdSpace struct {
	shared.BaseEntity
	CompanyID                uuid.UUID
	Name                     string
	Location                 string
	// DerivedFromIntegrationID has the same provenance contract as on Campaign
	DerivedFromIntegrationID *uuid.UUID
}

// NewAdSpace creates an ad space
func NewAdSpace(companyID uuid.UUID, name, location string) (*AdSpace, error) {
	if companyID == uuid.Nil {
		return nil, ErrInvalidCompanyID
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	return &AdSpace{
		BaseEntity: shared.NewBaseEntity(),
		CompanyID:  companyID,
		Name:       name,
		Location:   location,
	}, nil
}

// Placement joins a campaign to an ad space
type Placement struct {
	CampaignID uuid.UUID
	AdSpaceID  uuid.UUID
}

// ---------------------------------------------------------------------------
// Repositories
// ---------------------------------------------------------------------------

// CampaignRepository persists campaigns. FindByID returns ErrCampaignNotFound
// from the integration package when absent.
type CampaignRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Campaign, error)
	Save(ctx context.Context, c *Campaign) error
	FindDerivedFrom(ctx context.Context, integrationID uuid.UUID) ([]Campaign, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}

// AdSpaceRepository persists ad spaces
type AdSpaceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*AdSpace, error)
	Save(ctx context.Context, a *AdSpace) error
	FindDerivedFrom(ctx context.Context, integrationID uuid.UUID) ([]AdSpace, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}

// PlacementRepository persists campaign/ad space junction rows
type PlacementRepository interface {
	Add(ctx context.Context, p Placement) error
	DeleteByCampaign(ctx context.Context, campaignID uuid.UUID) (int64, error)
	DeleteByAdSpace(ctx context.Context, adSpaceID uuid.UUID) (int64, error)
}
