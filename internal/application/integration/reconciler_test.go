package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/adinventory/backend/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIntegration(t *testing.T, provider integration.Provider) *integration.Integration {
	t.Helper()
	integ, err := integration.NewIntegration(uuid.New(), provider, map[string]string{}, integration.Configuration{})
	require.NoError(t, err)
	return integ
}

var testStages = integration.NewStageMapping(integration.StageLead, map[string]integration.Stage{
	"Prospecting": integration.StageQualification,
	"Closed Won":  integration.StageClosedWon,
})

func TestReconcileOpportunities_PartialFailureIsolation(t *testing.T) {
	// Setup
	repo := newMemoryCanonicalRepository()
	r := NewReconciler(repo, nil)
	integ := newTestIntegration(t, integration.ProviderSalesforce)

	batch := []integration.ExternalOpportunity{
		{ExternalID: "006A", Name: "Alpha", Stage: "Prospecting", Amount: decimal.NewFromInt(100)},
		{ExternalID: "006B", Name: "", Stage: "Prospecting"},
		{ExternalID: "006C", Name: "Gamma", Stage: "Closed Won"},
		{ExternalID: "006D", Name: "   "},
		{ExternalID: "006E", Name: "Epsilon", Stage: "Negotiation/Review"},
	}

	// Execute
	result := r.ReconcileOpportunities(context.Background(), integ, batch, testStages)

	// Verify
	assert.Equal(t, 5, result.Fetched)
	assert.Equal(t, 3, result.Count())
	assert.Equal(t, 2, result.ErrorCount())
	assert.Contains(t, result.Errors[0], "006B")
	assert.Len(t, repo.opportunities, 3)
}

func TestReconcileOpportunities_Idempotent(t *testing.T) {
	// Setup
	repo := newMemoryCanonicalRepository()
	r := NewReconciler(repo, nil)
	integ := newTestIntegration(t, integration.ProviderHubSpot)
	batch := []integration.ExternalOpportunity{
		{ExternalID: "1", Name: "Alpha"},
		{ExternalID: "2", Name: "Beta"},
		{ExternalID: "3", Name: "Gamma"},
	}

	// Execute
	first := r.ReconcileOpportunities(context.Background(), integ, batch, testStages)
	second := r.ReconcileOpportunities(context.Background(), integ, batch, testStages)

	// Verify
	assert.Equal(t, 3, first.Created)
	assert.Equal(t, 0, first.Updated)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 3, second.Updated)
	assert.Len(t, repo.opportunities, 3)
}

func TestReconcileOpportunities_NaturalKeyDedup(t *testing.T) {
	// Setup
	repo := newMemoryCanonicalRepository()
	r := NewReconciler(repo, nil)
	integ := newTestIntegration(t, integration.ProviderPipedrive)

	// Same name, different external IDs and unmapped fields
	batch := []integration.ExternalOpportunity{
		{ExternalID: "10", Name: "Acme Renewal", Currency: "USD"},
		{ExternalID: "11", Name: "ACME  renewal", Currency: "EUR"},
	}

	// Execute
	result := r.ReconcileOpportunities(context.Background(), integ, batch, testStages)

	// Verify
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Updated)
	require.Len(t, repo.opportunities, 1)
	for _, o := range repo.opportunities {
		assert.Equal(t, "EUR", o.Currency)
		assert.Equal(t, "11", o.ExternalID)
	}
}

func TestReconcileOpportunities_DedupIsScopedByCompanyAndSource(t *testing.T) {
	repo := newMemoryCanonicalRepository()
	r := NewReconciler(repo, nil)

	a := newTestIntegration(t, integration.ProviderSalesforce)
	b := newTestIntegration(t, integration.ProviderHubSpot)
	b.CompanyID = a.CompanyID
	c := newTestIntegration(t, integration.ProviderSalesforce)

	batch := []integration.ExternalOpportunity{{Name: "Shared Deal"}}
	r.ReconcileOpportunities(context.Background(), a, batch, testStages)
	r.ReconcileOpportunities(context.Background(), b, batch, testStages)
	r.ReconcileOpportunities(context.Background(), c, batch, testStages)

	assert.Len(t, repo.opportunities, 3)
}

func TestReconcileOpportunities_UnknownStageUsesDefault(t *testing.T) {
	repo := newMemoryCanonicalRepository()
	r := NewReconciler(repo, nil)
	integ := newTestIntegration(t, integration.ProviderSalesforce)

	result := r.ReconcileOpportunities(context.Background(), integ,
		[]integration.ExternalOpportunity{{Name: "Odd", Stage: "Waiting On Legal (custom)"}}, testStages)

	require.Equal(t, 0, result.ErrorCount())
	for _, o := range repo.opportunities {
		assert.Equal(t, integration.StageLead, o.Stage)
		assert.Equal(t, "Waiting On Legal (custom)", o.RawStage)
	}
}

func TestReconcileOpportunities_ParentAdvertiserMerge(t *testing.T) {
	// Setup
	repo := newMemoryCanonicalRepository()
	r := NewReconciler(repo, nil)
	integ := newTestIntegration(t, integration.ProviderSalesforce)

	batch := []integration.ExternalOpportunity{
		{Name: "Q1 Flight", AccountName: "Acme Corp"},
		{Name: "Q2 Flight", AccountName: "ACME CORP"},
		{Name: "Q3 Flight", AccountName: "Globex"},
	}

	// Execute
	result := r.ReconcileOpportunities(context.Background(), integ, batch, testStages)
	again := r.ReconcileOpportunities(context.Background(), integ, batch, testStages)

	// Verify
	assert.Equal(t, 3, result.Created)
	assert.Equal(t, 3, again.Updated)
	assert.Len(t, repo.advertisers, 2)

	var advertiserIDs []uuid.UUID
	for _, o := range repo.opportunities {
		require.NotNil(t, o.AdvertiserID)
		advertiserIDs = append(advertiserIDs, *o.AdvertiserID)
	}
	assert.Len(t, advertiserIDs, 3)
}

func TestReconcileContacts_SaveFailureIsRecorded(t *testing.T) {
	// Setup
	repo := newMemoryCanonicalRepository()
	repo.failSaves["Bad Save"] = errors.New("constraint violation")
	r := NewReconciler(repo, nil)
	integ := newTestIntegration(t, integration.ProviderHubSpot)

	batch := []integration.ExternalContact{
		{ExternalID: "1", FirstName: "Ada", LastName: "Lovelace"},
		{ExternalID: "2", FirstName: "Bad", LastName: "Save"},
		{ExternalID: "3", Email: "grace@example.com"},
		{ExternalID: "4"},
	}

	// Execute
	result := r.ReconcileContacts(context.Background(), integ, batch)

	// Verify
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 2, result.ErrorCount())
	assert.Contains(t, result.Errors[0], "constraint violation")
	assert.Contains(t, result.Errors[1], "missing name and email")
}

func TestReconcileAdvertisers(t *testing.T) {
	repo := newMemoryCanonicalRepository()
	r := NewReconciler(repo, nil)
	integ := newTestIntegration(t, integration.ProviderKevel)

	first := r.ReconcileAdvertisers(context.Background(), integ, []integration.ExternalAdvertiser{
		{ExternalID: "1", Name: "Acme", Website: "https://acme.test"},
		{ExternalID: "2", Name: ""},
	})
	second := r.ReconcileAdvertisers(context.Background(), integ, []integration.ExternalAdvertiser{
		{ExternalID: "1", Name: "acme"},
	})

	assert.Equal(t, 1, first.Created)
	assert.Equal(t, 1, first.ErrorCount())
	assert.Equal(t, 1, second.Updated)
	require.Len(t, repo.advertisers, 1)
	for _, a := range repo.advertisers {
		assert.Equal(t, "https://acme.test", a.Website)
	}
}
