//go:build integration

package persistence

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/adinventory/backend/internal/domain/integration"
	"github.com/adinventory/backend/internal/infrastructure/migration"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newPostgresDB starts a postgres container and applies the repository migrations
func newPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("adinventory_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	path, err := filepath.Abs(filepath.Join("..", "..", "..", "migrations"))
	require.NoError(t, err)
	m, err := migration.New(sqlDB, migration.Config{Path: path}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())

	state, err := m.State()
	require.NoError(t, err)
	assert.False(t, state.Dirty)

	return db
}

func TestPostgres_MergeAdvertiserIsRaceFree(t *testing.T) {
	// Setup
	db := newPostgresDB(t)
	repo := NewGormCanonicalRepository(db)
	ctx := context.Background()
	companyID := uuid.New()

	// Execute
	const workers = 8
	ids := make([]uuid.UUID, workers)
	created := make([]bool, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			integ, err := integration.NewIntegration(companyID, integration.ProviderHubSpot, nil, integration.Configuration{})
			if !assert.NoError(t, err) {
				return
			}
			adv := integration.NewCanonicalAdvertiser(integ, integration.ExternalAdvertiser{Name: "Acme Corp"})
			merged, isNew, err := repo.MergeAdvertiser(ctx, adv)
			if assert.NoError(t, err) {
				ids[i] = merged.ID
				created[i] = isNew
			}
		}(i)
	}
	wg.Wait()

	// Verify
	var inserts int
	for i := range ids {
		assert.Equal(t, ids[0], ids[i])
		if created[i] {
			inserts++
		}
	}
	assert.Equal(t, 1, inserts)
}

func TestPostgres_RepositoriesAgainstMigratedSchema(t *testing.T) {
	// Setup
	db := newPostgresDB(t)
	ctx := context.Background()
	integrations := NewGormIntegrationRepository(db, nil)
	history := NewGormSyncHistoryRepository(db)
	mappings := NewGormCampaignMappingRepository(db)

	integ, err := integration.NewIntegration(uuid.New(), integration.ProviderKevel, map[string]string{"api_key": "k"}, integration.Configuration{NetworkID: 9})
	require.NoError(t, err)

	// Execute
	require.NoError(t, integrations.Save(ctx, integ))
	require.NoError(t, history.Create(ctx, integration.NewSyncHistoryRecord(integ, integration.SyncTypeAdvertisers, time.Now(), map[integration.EntityClass]integration.EntityResult{
		integration.EntityAdvertisers: {Fetched: 1, Created: 1},
	})))

	campaignID := uuid.New()
	m := integration.NewCampaignExternalMapping(campaignID, integ, "100", "200")
	require.NoError(t, mappings.Upsert(ctx, m))
	m.AddSubUnit(integration.SubUnitRef{ZoneID: "1", FlightID: "2"})
	require.NoError(t, mappings.Upsert(ctx, m))

	// Verify
	found, err := integrations.FindByID(ctx, integ.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9), found.Configuration.NetworkID)

	records, total, err := history.FindByIntegration(ctx, integ.ID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, 1, records[0].Operations[integration.EntityAdvertisers].Created)

	mapping, err := mappings.Find(ctx, campaignID, integ.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, mapping.SubUnitsCreated)
}
