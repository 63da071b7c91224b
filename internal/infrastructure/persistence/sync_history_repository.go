package persistence

import (
	"context"

	"github.com/adinventory/backend/internal/domain/integration"
	"github.com/adinventory/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSyncHistoryRepository implements SyncHistoryRepository using GORM.
// History is append-only.
type GormSyncHistoryRepository struct {
	db *gorm.DB
}

// NewGormSyncHistoryRepository creates a new GormSyncHistoryRepository
func NewGormSyncHistoryRepository(db *gorm.DB) *GormSyncHistoryRepository {
	return &GormSyncHistoryRepository{db: db}
}

// Create inserts a history row
func (r *GormSyncHistoryRepository) Create(ctx context.Context, rec *integration.SyncHistoryRecord) error {
	model, err := models.SyncHistoryModelFromDomain(rec)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByIntegration returns one page of history, newest first, and the total row count
func (r *GormSyncHistoryRepository) FindByIntegration(ctx context.Context, integrationID uuid.UUID, page, pageSize int) ([]integration.SyncHistoryRecord, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.SyncHistoryModel{}).
		Where("integration_id = ?", integrationID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.SyncHistoryModel
	if err := r.db.WithContext(ctx).
		Where("integration_id = ?", integrationID).
		Order("started_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	records := make([]integration.SyncHistoryRecord, len(rows))
	for i := range rows {
		records[i] = *rows[i].ToDomain()
	}
	return records, total, nil
}

// DeleteByIntegration removes all history of an integration
func (r *GormSyncHistoryRepository) DeleteByIntegration(ctx context.Context, integrationID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("integration_id = ?", integrationID).Delete(&models.SyncHistoryModel{})
	return result.RowsAffected, result.Error
}

// Ensure interface compliance
var _ integration.SyncHistoryRepository = (*GormSyncHistoryRepository)(nil)
