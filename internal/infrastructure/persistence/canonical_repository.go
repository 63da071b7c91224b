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

// GormCanonicalRepository implements CanonicalRepository using GORM
type GormCanonicalRepository struct {
	db *gorm.DB
}

// NewGormCanonicalRepository creates a new GormCanonicalRepository
func NewGormCanonicalRepository(db *gorm.DB) *GormCanonicalRepository {
	return &GormCanonicalRepository{db: db}
}

// naturalKeyColumns is the dedup key shared by the three canonical tables
var naturalKeyColumns = []clause.Column{{Name: "company_id"}, {Name: "natural_key"}, {Name: "source"}}

// ---------------------------------------------------------------------------
// Opportunities
// ---------------------------------------------------------------------------

// FindOpportunity finds an opportunity by its natural key
func (r *GormCanonicalRepository) FindOpportunity(ctx context.Context, companyID uuid.UUID, naturalKey string, source integration.Provider) (*integration.CanonicalOpportunity, error) {
	var model models.CanonicalOpportunityModel
	if err := r.findByKey(ctx, companyID, naturalKey, source).First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// SaveOpportunity creates or updates an opportunity
func (r *GormCanonicalRepository) SaveOpportunity(ctx context.Context, o *integration.CanonicalOpportunity) error {
	return r.db.WithContext(ctx).Save(models.CanonicalOpportunityModelFromDomain(o)).Error
}

// ---------------------------------------------------------------------------
// Contacts
// ---------------------------------------------------------------------------

// FindContact finds a contact by its natural key
func (r *GormCanonicalRepository) FindContact(ctx context.Context, companyID uuid.UUID, naturalKey string, source integration.Provider) (*integration.CanonicalContact, error) {
	var model models.CanonicalContactModel
	if err := r.findByKey(ctx, companyID, naturalKey, source).First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// SaveContact creates or updates a contact
func (r *GormCanonicalRepository) SaveContact(ctx context.Context, c *integration.CanonicalContact) error {
	return r.db.WithContext(ctx).Save(models.CanonicalContactModelFromDomain(c)).Error
}

// ---------------------------------------------------------------------------
// Advertisers
// ---------------------------------------------------------------------------

// FindAdvertiser finds an advertiser by its natural key
func (r *GormCanonicalRepository) FindAdvertiser(ctx context.Context, companyID uuid.UUID, naturalKey string, source integration.Provider) (*integration.CanonicalAdvertiser, error) {
	var model models.CanonicalAdvertiserModel
	if err := r.findByKey(ctx, companyID, naturalKey, source).First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// SaveAdvertiser creates or updates an advertiser
func (r *GormCanonicalRepository) SaveAdvertiser(ctx context.Context, a *integration.CanonicalAdvertiser) error {
	return r.db.WithContext(ctx).Save(models.CanonicalAdvertiserModelFromDomain(a)).Error
}

// MergeAdvertiser returns the company's advertiser with the same natural key
// from any source, inserting a when there is none. The bool reports an insert.
func (r *GormCanonicalRepository) MergeAdvertiser(ctx context.Context, a *integration.CanonicalAdvertiser) (*integration.CanonicalAdvertiser, bool, error) {
	if existing, err := r.firstAdvertiserByName(ctx, a.CompanyID, a.NaturalKey); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, integration.ErrRecordNotFound) {
		return nil, false, err
	}

	// Use ON CONFLICT to handle concurrent syncs referencing the same account
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: naturalKeyColumns, DoNothing: true}).
		Create(models.CanonicalAdvertiserModelFromDomain(a))
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected == 0 {
		existing, err := r.firstAdvertiserByName(ctx, a.CompanyID, a.NaturalKey)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	return a, true, nil
}

func (r *GormCanonicalRepository) firstAdvertiserByName(ctx context.Context, companyID uuid.UUID, naturalKey string) (*integration.CanonicalAdvertiser, error) {
	var model models.CanonicalAdvertiserModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND natural_key = ?", companyID, naturalKey).
		Order("created_at ASC").
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// ---------------------------------------------------------------------------
// Cascade
// ---------------------------------------------------------------------------

// DeleteByIntegration removes every canonical record derived from the integration
func (r *GormCanonicalRepository) DeleteByIntegration(ctx context.Context, integrationID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{
			&models.CanonicalOpportunityModel{},
			&models.CanonicalContactModel{},
			&models.CanonicalAdvertiserModel{},
		} {
			result := tx.Where("derived_from_integration_id = ?", integrationID).Delete(model)
			if result.Error != nil {
				return result.Error
			}
			total += result.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *GormCanonicalRepository) findByKey(ctx context.Context, companyID uuid.UUID, naturalKey string, source integration.Provider) *gorm.DB {
	return r.db.WithContext(ctx).Where("company_id = ? AND natural_key = ? AND source = ?", companyID, naturalKey, source)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return integration.ErrRecordNotFound
	}
	return err
}

// Ensure interface compliance
var _ integration.CanonicalRepository = (*GormCanonicalRepository)(nil)
