package persistence

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/adinventory/backend/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestCanonicalRepository_OpportunityRoundTrip(t *testing.T) {
	// Setup
	repo := NewGormCanonicalRepository(setupIntegrationTestDB(t))
	ctx := context.Background()
	integ := newTestIntegration(t, uuid.New(), integration.ProviderSalesforce)
	closeDate := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)

	opp := integration.NewCanonicalOpportunity(integ, integration.ExternalOpportunity{
		ExternalID: "006A",
		Name:       "Spring Promo",
		Amount:     decimal.NewFromInt(1000),
		Currency:   "USD",
		CloseDate:  &closeDate,
	}, integration.StageProposal)

	// Execute
	require.NoError(t, repo.SaveOpportunity(ctx, opp))
	opp.Apply(integ, integration.ExternalOpportunity{ExternalID: "006A", Name: "Spring Promo", Amount: decimal.NewFromInt(1500)}, integration.StageClosedWon)
	require.NoError(t, repo.SaveOpportunity(ctx, opp))

	// Verify
	found, err := repo.FindOpportunity(ctx, integ.CompanyID, integration.NaturalKey("spring promo"), integration.ProviderSalesforce)
	require.NoError(t, err)
	assert.Equal(t, opp.ID, found.ID)
	assert.Equal(t, integration.StageClosedWon, found.Stage)
	assert.True(t, found.Amount.Equal(decimal.NewFromInt(1500)))

	_, err = repo.FindOpportunity(ctx, integ.CompanyID, opp.NaturalKey, integration.ProviderHubSpot)
	assert.ErrorIs(t, err, integration.ErrRecordNotFound)
}

func TestCanonicalRepository_ContactScopedByCompany(t *testing.T) {
	repo := NewGormCanonicalRepository(setupIntegrationTestDB(t))
	ctx := context.Background()
	integ := newTestIntegration(t, uuid.New(), integration.ProviderHubSpot)

	contact := integration.NewCanonicalContact(integ, integration.ExternalContact{ExternalID: "51", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"})
	require.NoError(t, repo.SaveContact(ctx, contact))

	found, err := repo.FindContact(ctx, integ.CompanyID, contact.NaturalKey, integration.ProviderHubSpot)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", found.Email)

	_, err = repo.FindContact(ctx, uuid.New(), contact.NaturalKey, integration.ProviderHubSpot)
	assert.ErrorIs(t, err, integration.ErrRecordNotFound)
}

func TestCanonicalRepository_MergeAdvertiserAcrossSources(t *testing.T) {
	// Setup
	repo := NewGormCanonicalRepository(setupIntegrationTestDB(t))
	ctx := context.Background()
	companyID := uuid.New()
	salesforce := newTestIntegration(t, companyID, integration.ProviderSalesforce)
	hubspot := newTestIntegration(t, companyID, integration.ProviderHubSpot)

	first := integration.NewCanonicalAdvertiser(salesforce, integration.ExternalAdvertiser{ExternalID: "001", Name: "Acme Corp"})
	second := integration.NewCanonicalAdvertiser(hubspot, integration.ExternalAdvertiser{ExternalID: "9", Name: "ACME  corp"})

	// Execute
	merged, created, err := repo.MergeAdvertiser(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, first.ID, merged.ID)

	merged, created, err = repo.MergeAdvertiser(ctx, second)

	// Verify
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, merged.ID)
	assert.Equal(t, integration.ProviderSalesforce, merged.Source)

	_, err = repo.FindAdvertiser(ctx, companyID, second.NaturalKey, integration.ProviderHubSpot)
	assert.ErrorIs(t, err, integration.ErrRecordNotFound)
}

func TestCanonicalRepository_DeleteByIntegration(t *testing.T) {
	// Setup
	repo := NewGormCanonicalRepository(setupIntegrationTestDB(t))
	ctx := context.Background()
	companyID := uuid.New()
	target := newTestIntegration(t, companyID, integration.ProviderPipedrive)
	other := newTestIntegration(t, companyID, integration.ProviderVTEX)

	require.NoError(t, repo.SaveOpportunity(ctx, integration.NewCanonicalOpportunity(target, integration.ExternalOpportunity{ExternalID: "1", Name: "Deal"}, integration.StageLead)))
	require.NoError(t, repo.SaveContact(ctx, integration.NewCanonicalContact(target, integration.ExternalContact{ExternalID: "2", FirstName: "Grace"})))
	_, _, err := repo.MergeAdvertiser(ctx, integration.NewCanonicalAdvertiser(target, integration.ExternalAdvertiser{ExternalID: "3", Name: "Initech"}))
	require.NoError(t, err)
	_, _, err = repo.MergeAdvertiser(ctx, integration.NewCanonicalAdvertiser(other, integration.ExternalAdvertiser{ExternalID: "4", Name: "Globex"}))
	require.NoError(t, err)

	// Execute
	n, err := repo.DeleteByIntegration(ctx, target.ID)

	// Verify
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = repo.FindAdvertiser(ctx, companyID, integration.NaturalKey("Globex"), integration.ProviderVTEX)
	assert.NoError(t, err)
}

func TestCanonicalRepository_MergeAdvertiser_ConcurrentInsertOnPostgres(t *testing.T) {
	// Setup
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	repo := NewGormCanonicalRepository(db)
	integ := newTestIntegration(t, uuid.New(), integration.ProviderHubSpot)
	adv := integration.NewCanonicalAdvertiser(integ, integration.ExternalAdvertiser{ExternalID: "9", Name: "Acme"})
	winnerID := uuid.New()
	now := time.Now()

	columns := []string{"id", "company_id", "name", "natural_key", "source", "external_id", "derived_from_integration_id", "created_at", "updated_at"}

	mock.ExpectQuery(`SELECT \* FROM "canonical_advertisers" WHERE company_id = \$1 AND natural_key = \$2`).
		WillReturnRows(sqlmock.NewRows(columns))
	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT ("company_id","natural_key","source") DO NOTHING`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "canonical_advertisers" WHERE company_id = \$1 AND natural_key = \$2`).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(winnerID, integ.CompanyID, "Acme", "acme", "salesforce", "001", uuid.New(), now, now))

	// Execute
	merged, created, err := repo.MergeAdvertiser(context.Background(), adv)

	// Verify
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, winnerID, merged.ID)
	assert.Equal(t, integration.ProviderSalesforce, merged.Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}
