package telemetry

import (
	"context"

	"gorm.io/gorm"
)

// GormIntegrationStatusProvider implements IntegrationStatusProvider using GORM.
// It aggregates the integrations table directly.
type GormIntegrationStatusProvider struct {
	db *gorm.DB
}

// NewGormIntegrationStatusProvider creates a new GormIntegrationStatusProvider.
func NewGormIntegrationStatusProvider(db *gorm.DB) *GormIntegrationStatusProvider {
	return &GormIntegrationStatusProvider{db: db}
}

// CountByProviderAndStatus returns integration counts grouped by provider and status.
func (p *GormIntegrationStatusProvider) CountByProviderAndStatus(ctx context.Context) (map[string]map[string]int64, error) {
	type result struct {
		Provider string `gorm:"column:provider"`
		Status   string `gorm:"column:status"`
		Count    int64  `gorm:"column:count"`
	}

	var results []result
	err := p.db.WithContext(ctx).
		Table("integrations").
		Select("provider, status, COUNT(*) AS count").
		Group("provider, status").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]map[string]int64)
	for _, r := range results {
		if out[r.Provider] == nil {
			out[r.Provider] = make(map[string]int64)
		}
		out[r.Provider][r.Status] = r.Count
	}
	return out, nil
}
