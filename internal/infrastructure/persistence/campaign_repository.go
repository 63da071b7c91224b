package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adinventory/backend/internal/domain/campaign"
	"github.com/adinventory/backend/internal/domain/integration"
	"github.com/adinventory/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrAdSpaceNotFound is returned when an ad space does not exist
var ErrAdSpaceNotFound = fmt.Errorf("%w: ad space", integration.ErrNotFound)

// ---------------------------------------------------------------------------
// Campaigns
// ---------------------------------------------------------------------------

// GormCampaignRepository implements CampaignRepository using GORM
type GormCampaignRepository struct {
	db *gorm.DB
}

// NewGormCampaignRepository creates a new GormCampaignRepository
func NewGormCampaignRepository(db *gorm.DB) *GormCampaignRepository {
	return &GormCampaignRepository{db: db}
}

// FindByID finds a campaign by its ID
func (r *GormCampaignRepository) FindByID(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error) {
	var model models.CampaignModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrCampaignNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a campaign
func (r *GormCampaignRepository) Save(ctx context.Context, c *campaign.Campaign) error {
	return r.db.WithContext(ctx).Save(models.CampaignModelFromDomain(c)).Error
}

// FindDerivedFrom returns campaigns created from an integration
func (r *GormCampaignRepository) FindDerivedFrom(ctx context.Context, integrationID uuid.UUID) ([]campaign.Campaign, error) {
	var rows []models.CampaignModel
	if err := r.db.WithContext(ctx).
		Where("derived_from_integration_id = ?", integrationID).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	campaigns := make([]campaign.Campaign, len(rows))
	for i := range rows {
		campaigns[i] = *rows[i].ToDomain()
	}
	return campaigns, nil
}

// Delete removes a campaign
func (r *GormCampaignRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.CampaignModel{}, "id = ?", id)
	return result.RowsAffected, result.Error
}

// ---------------------------------------------------------------------------
// Ad spaces
// ---------------------------------------------------------------------------

// GormAdSpaceRepository implements AdSpaceRepository using GORM
type GormAdSpaceRepository struct {
	db *gorm.DB
}

// NewGormAdSpaceRepository creates a new GormAdSpaceRepository
func NewGormAdSpaceRepository(db *gorm.DB) *GormAdSpaceRepository {
	return &GormAdSpaceRepository{db: db}
}

// FindByID finds an ad space by its ID
func (r *GormAdSpaceRepository) FindByID(ctx context.Context, id uuid.UUID) (*campaign.AdSpace, error) {
	var model models.AdSpaceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAdSpaceNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates an ad space
func (r *GormAdSpaceRepository) Save(ctx context.Context, a *campaign.AdSpace) error {
	return r.db.WithContext(ctx).Save(models.AdSpaceModelFromDomain(a)).Error
}

// FindDerivedFrom returns ad spaces created from an integration
func (r *GormAdSpaceRepository) FindDerivedFrom(ctx context.Context, integrationID uuid.UUID) ([]campaign.AdSpace, error) {
	var rows []models.AdSpaceModel
	if err := r.db.WithContext(ctx).
		Where("derived_from_integration_id = ?", integrationID).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	spaces := make([]campaign.AdSpace, len(rows))
	for i := range rows {
		spaces[i] = *rows[i].ToDomain()
	}
	return spaces, nil
}

// Delete removes an ad space
func (r *GormAdSpaceRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.AdSpaceModel{}, "id = ?", id)
	return result.RowsAffected, result.Error
}

// ---------------------------------------------------------------------------
// Placements
// ---------------------------------------------------------------------------

// GormPlacementRepository implements PlacementRepository using GORM
type GormPlacementRepository struct {
	db *gorm.DB
}

// NewGormPlacementRepository creates a new GormPlacementRepository
func NewGormPlacementRepository(db *gorm.DB) *GormPlacementRepository {
	return &GormPlacementRepository{db: db}
}

// Add links a campaign to an ad space. Adding an existing link is a no-op.
func (r *GormPlacementRepository) Add(ctx context.Context, p campaign.Placement) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.CampaignPlacementModel{
			CampaignID: p.CampaignID,
			AdSpaceID:  p.AdSpaceID,
			CreatedAt:  time.Now(),
		}).Error
}

// DeleteByCampaign removes all placements of a campaign
func (r *GormPlacementRepository) DeleteByCampaign(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("campaign_id = ?", campaignID).Delete(&models.CampaignPlacementModel{})
	return result.RowsAffected, result.Error
}

// DeleteByAdSpace removes all placements of an ad space
func (r *GormPlacementRepository) DeleteByAdSpace(ctx context.Context, adSpaceID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("ad_space_id = ?", adSpaceID).Delete(&models.CampaignPlacementModel{})
	return result.RowsAffected, result.Error
}

// Ensure interface compliance
var (
	_ campaign.CampaignRepository  = (*GormCampaignRepository)(nil)
	_ campaign.AdSpaceRepository   = (*GormAdSpaceRepository)(nil)
	_ campaign.PlacementRepository = (*GormPlacementRepository)(nil)
)
