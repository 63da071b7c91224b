package persistence

import (
	"context"
	"errors"

	"github.com/adinventory/backend/internal/domain/integration"
	"github.com/adinventory/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCampaignMappingRepository implements CampaignMappingRepository using GORM
type GormCampaignMappingRepository struct {
	db *gorm.DB
}

// NewGormCampaignMappingRepository creates a new GormCampaignMappingRepository
func NewGormCampaignMappingRepository(db *gorm.DB) *GormCampaignMappingRepository {
	return &GormCampaignMappingRepository{db: db}
}

// Find returns the mapping of a campaign on an integration
func (r *GormCampaignMappingRepository) Find(ctx context.Context, campaignID, integrationID uuid.UUID) (*integration.CampaignExternalMapping, error) {
	var model models.CampaignExternalMappingModel
	if err := r.db.WithContext(ctx).
		Where("campaign_id = ? AND integration_id = ?", campaignID, integrationID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Upsert inserts the mapping or updates the row with the same (campaign_id, integration_id)
func (r *GormCampaignMappingRepository) Upsert(ctx context.Context, m *integration.CampaignExternalMapping) error {
	model, err := models.CampaignExternalMappingModelFromDomain(m)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "campaign_id"}, {Name: "integration_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"external_campaign_id",
			"external_advertiser_id",
			"pushed_at",
			"sub_units_created",
			"sub_units",
			"updated_at",
		}),
	}).Create(model).Error
}

// FindByIntegration returns all mappings of an integration
func (r *GormCampaignMappingRepository) FindByIntegration(ctx context.Context, integrationID uuid.UUID) ([]integration.CampaignExternalMapping, error) {
	var rows []models.CampaignExternalMappingModel
	if err := r.db.WithContext(ctx).
		Where("integration_id = ?", integrationID).
		Order("pushed_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	mappings := make([]integration.CampaignExternalMapping, len(rows))
	for i := range rows {
		mappings[i] = *rows[i].ToDomain()
	}
	return mappings, nil
}

// DeleteByIntegration removes all mappings of an integration
func (r *GormCampaignMappingRepository) DeleteByIntegration(ctx context.Context, integrationID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("integration_id = ?", integrationID).Delete(&models.CampaignExternalMappingModel{})
	return result.RowsAffected, result.Error
}

// Ensure interface compliance
var _ integration.CampaignMappingRepository = (*GormCampaignMappingRepository)(nil)
