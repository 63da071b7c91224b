package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/adinventory/backend/internal/domain/integration"
	"github.com/adinventory/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CredentialSealer seals the credentials blob before it is stored
type CredentialSealer interface {
	Seal(plaintext []byte) (string, error)
	Open(sealed string) ([]byte, error)
}

// plainSealer stores credentials unencrypted
type plainSealer struct{}

func (plainSealer) Seal(plaintext []byte) (string, error) { return string(plaintext), nil }
func (plainSealer) Open(sealed string) ([]byte, error)    { return []byte(sealed), nil }

// GormIntegrationRepository implements IntegrationRepository using GORM
type GormIntegrationRepository struct {
	db     *gorm.DB
	sealer CredentialSealer
}

// NewGormIntegrationRepository creates a new GormIntegrationRepository.
// A nil sealer stores credentials in plain JSON.
func NewGormIntegrationRepository(db *gorm.DB, sealer CredentialSealer) *GormIntegrationRepository {
	if sealer == nil {
		sealer = plainSealer{}
	}
	return &GormIntegrationRepository{db: db, sealer: sealer}
}

// FindByID finds an integration by its ID
func (r *GormIntegrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.Integration, error) {
	var model models.IntegrationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrIntegrationNotFound
		}
		return nil, err
	}
	return r.toDomain(&model)
}

// FindActiveByProvider returns every integration of the provider that is not disabled
func (r *GormIntegrationRepository) FindActiveByProvider(ctx context.Context, provider integration.Provider) ([]integration.Integration, error) {
	var rows []models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND status <> ?", provider, integration.StatusDisabled).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.toDomainList(rows)
}

// FindByCompany returns all integrations owned by a company
func (r *GormIntegrationRepository) FindByCompany(ctx context.Context, companyID uuid.UUID) ([]integration.Integration, error) {
	var rows []models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("provider ASC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.toDomainList(rows)
}

// Save creates or fully updates an integration
func (r *GormIntegrationRepository) Save(ctx context.Context, integ *integration.Integration) error {
	model, err := r.fromDomain(integ)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(model).Error
}

// UpdateSyncState writes only the fields a sync run changes
func (r *GormIntegrationRepository) UpdateSyncState(ctx context.Context, integ *integration.Integration) error {
	result := r.db.WithContext(ctx).
		Model(&models.IntegrationModel{}).
		Where("id = ?", integ.ID).
		Updates(map[string]any{
			"status":       integ.Status,
			"last_sync_at": integ.LastSyncAt,
			"last_error":   integ.LastError,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return integration.ErrIntegrationNotFound
	}
	return nil
}

// RecordCampaignPush reads and rewrites only the configuration column inside a
// transaction. Postgres locks the row so concurrent pushes merge.
func (r *GormIntegrationRepository) RecordCampaignPush(ctx context.Context, integrationID, campaignID uuid.UUID, externalCampaignID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.IntegrationModel
		query := tx.Select("id", "configuration")
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := query.First(&model, "id = ?", integrationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return integration.ErrIntegrationNotFound
			}
			return err
		}

		var cfg integration.Configuration
		if len(model.Configuration) > 0 {
			if err := json.Unmarshal(model.Configuration, &cfg); err != nil {
				return fmt.Errorf("failed to decode integration configuration: %w", err)
			}
		}
		if cfg.CampaignMap == nil {
			cfg.CampaignMap = make(map[string]string)
		}
		cfg.CampaignMap[campaignID.String()] = externalCampaignID

		raw, err := json.Marshal(cfg)
		if err != nil {
			return err
		}
		return tx.Model(&models.IntegrationModel{}).
			Where("id = ?", integrationID).
			Updates(map[string]any{
				"configuration": datatypes.JSON(raw),
				"updated_at":    time.Now(),
			}).Error
	})
}

// Delete removes the integration row
func (r *GormIntegrationRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.IntegrationModel{}, "id = ?", id)
	return result.RowsAffected, result.Error
}

func (r *GormIntegrationRepository) toDomain(model *models.IntegrationModel) (*integration.Integration, error) {
	integ := model.ToDomain()
	if model.Credentials == "" {
		return integ, nil
	}

	plain, err := r.sealer.Open(model.Credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to open credentials of integration %s: %w", model.ID, err)
	}
	if err := json.Unmarshal(plain, &integ.Credentials); err != nil {
		return nil, fmt.Errorf("failed to decode credentials of integration %s: %w", model.ID, err)
	}
	return integ, nil
}

func (r *GormIntegrationRepository) toDomainList(rows []models.IntegrationModel) ([]integration.Integration, error) {
	out := make([]integration.Integration, 0, len(rows))
	for i := range rows {
		integ, err := r.toDomain(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *integ)
	}
	return out, nil
}

func (r *GormIntegrationRepository) fromDomain(integ *integration.Integration) (*models.IntegrationModel, error) {
	creds := integ.Credentials
	if creds == nil {
		creds = map[string]string{}
	}
	plain, err := json.Marshal(creds)
	if err != nil {
		return nil, err
	}
	sealed, err := r.sealer.Seal(plain)
	if err != nil {
		return nil, fmt.Errorf("failed to seal credentials: %w", err)
	}

	model := &models.IntegrationModel{}
	if err := model.FromDomain(integ, sealed); err != nil {
		return nil, err
	}
	return model, nil
}

// Ensure interface compliance
var _ integration.IntegrationRepository = (*GormIntegrationRepository)(nil)
