package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/adinventory/backend/internal/domain/campaign"
	"github.com/adinventory/backend/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type deletionFixture struct {
	integrations *MockIntegrationRepository
	mappings     *MockCampaignMappingRepository
	history      *MockSyncHistoryRepository
	canonical    *memoryCanonicalRepository
	campaigns    *MockCampaignRepository
	adSpaces     *MockAdSpaceRepository
	placements   *MockPlacementRepository
	service      *DeletionService
	integ        *integration.Integration
}

func newDeletionFixture(t *testing.T) *deletionFixture {
	t.Helper()
	f := &deletionFixture{
		integrations: new(MockIntegrationRepository),
		mappings:     new(MockCampaignMappingRepository),
		history:      new(MockSyncHistoryRepository),
		canonical:    newMemoryCanonicalRepository(),
		campaigns:    new(MockCampaignRepository),
		adSpaces:     new(MockAdSpaceRepository),
		placements:   new(MockPlacementRepository),
		integ:        newTestIntegration(t, integration.ProviderKevel),
	}
	f.service = NewDeletionService(DeletionServiceDeps{
		Integrations: f.integrations,
		Mappings:     f.mappings,
		History:      f.history,
		Canonical:    f.canonical,
		Campaigns:    f.campaigns,
		AdSpaces:     f.adSpaces,
		Placements:   f.placements,
	})
	return f
}

func TestDeleteIntegration_CountsEveryStep(t *testing.T) {
	// Setup
	f := newDeletionFixture(t)
	f.integrations.On("FindByID", mock.Anything, f.integ.ID).Return(f.integ, nil)
	f.mappings.On("DeleteByIntegration", mock.Anything, f.integ.ID).Return(int64(3), nil)
	f.history.On("DeleteByIntegration", mock.Anything, f.integ.ID).Return(int64(5), nil)
	f.campaigns.On("FindDerivedFrom", mock.Anything, f.integ.ID).Return([]campaign.Campaign{}, nil)
	f.adSpaces.On("FindDerivedFrom", mock.Anything, f.integ.ID).Return([]campaign.AdSpace{}, nil)
	f.integrations.On("Delete", mock.Anything, f.integ.ID).Return(int64(1), nil)

	// Execute
	summary, err := f.service.DeleteIntegration(context.Background(), f.integ.CompanyID, f.integ.ID)

	// Verify
	require.NoError(t, err)
	assert.True(t, summary.Complete())
	assert.Equal(t, int64(3), summary.Mappings)
	assert.Equal(t, int64(5), summary.History)
	assert.Equal(t, int64(0), summary.Campaigns)
	assert.Equal(t, int64(0), summary.AdSpaces)
	assert.Equal(t, int64(1), summary.Integration)
	assert.Equal(t, int64(9), summary.Mappings+summary.History+summary.Integration)
}

func TestDeleteIntegration_DerivedRowsLosePlacementsFirst(t *testing.T) {
	// Setup
	f := newDeletionFixture(t)
	camp := campaign.Campaign{}
	camp.ID = uuid.New()
	space := campaign.AdSpace{}
	space.ID = uuid.New()

	var order []string
	track := func(name string) func(mock.Arguments) {
		return func(mock.Arguments) { order = append(order, name) }
	}
	f.integrations.On("FindByID", mock.Anything, f.integ.ID).Return(f.integ, nil)
	f.mappings.On("DeleteByIntegration", mock.Anything, f.integ.ID).Run(track("mappings")).Return(int64(0), nil)
	f.history.On("DeleteByIntegration", mock.Anything, f.integ.ID).Run(track("history")).Return(int64(0), nil)
	f.campaigns.On("FindDerivedFrom", mock.Anything, f.integ.ID).Return([]campaign.Campaign{camp}, nil)
	f.placements.On("DeleteByCampaign", mock.Anything, camp.ID).Run(track("campaign placements")).Return(int64(2), nil)
	f.campaigns.On("Delete", mock.Anything, camp.ID).Run(track("campaign")).Return(int64(1), nil)
	f.adSpaces.On("FindDerivedFrom", mock.Anything, f.integ.ID).Return([]campaign.AdSpace{space}, nil)
	f.placements.On("DeleteByAdSpace", mock.Anything, space.ID).Run(track("ad space placements")).Return(int64(0), nil)
	f.adSpaces.On("Delete", mock.Anything, space.ID).Run(track("ad space")).Return(int64(1), nil)
	f.integrations.On("Delete", mock.Anything, f.integ.ID).Run(track("integration")).Return(int64(1), nil)

	// Execute
	summary, err := f.service.DeleteIntegration(context.Background(), f.integ.CompanyID, f.integ.ID)

	// Verify
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Campaigns)
	assert.Equal(t, int64(1), summary.AdSpaces)
	assert.Equal(t, []string{
		"mappings", "history",
		"campaign placements", "campaign",
		"ad space placements", "ad space",
		"integration",
	}, order)
}

func TestDeleteIntegration_StepFailuresDoNotStopCascade(t *testing.T) {
	f := newDeletionFixture(t)
	f.integrations.On("FindByID", mock.Anything, f.integ.ID).Return(f.integ, nil)
	f.mappings.On("DeleteByIntegration", mock.Anything, f.integ.ID).Return(int64(0), errors.New("mappings table locked"))
	f.history.On("DeleteByIntegration", mock.Anything, f.integ.ID).Return(int64(4), nil)
	f.campaigns.On("FindDerivedFrom", mock.Anything, f.integ.ID).Return(nil, errors.New("timeout"))
	f.adSpaces.On("FindDerivedFrom", mock.Anything, f.integ.ID).Return([]campaign.AdSpace{}, nil)
	f.integrations.On("Delete", mock.Anything, f.integ.ID).Return(int64(1), nil)

	summary, err := f.service.DeleteIntegration(context.Background(), f.integ.CompanyID, f.integ.ID)

	require.NoError(t, err)
	assert.False(t, summary.Complete())
	assert.Contains(t, summary.StepErrors[StepMappings], "locked")
	assert.Contains(t, summary.StepErrors[StepCampaigns], "timeout")
	assert.Equal(t, int64(4), summary.History)
	assert.Equal(t, int64(1), summary.Integration)
}

func TestDeleteIntegration_IntegrationRowFailure(t *testing.T) {
	f := newDeletionFixture(t)
	f.integrations.On("FindByID", mock.Anything, f.integ.ID).Return(f.integ, nil)
	f.mappings.On("DeleteByIntegration", mock.Anything, f.integ.ID).Return(int64(0), nil)
	f.history.On("DeleteByIntegration", mock.Anything, f.integ.ID).Return(int64(0), nil)
	f.campaigns.On("FindDerivedFrom", mock.Anything, f.integ.ID).Return([]campaign.Campaign{}, nil)
	f.adSpaces.On("FindDerivedFrom", mock.Anything, f.integ.ID).Return([]campaign.AdSpace{}, nil)
	f.integrations.On("Delete", mock.Anything, f.integ.ID).Return(int64(0), errors.New("fk violation"))

	summary, err := f.service.DeleteIntegration(context.Background(), f.integ.CompanyID, f.integ.ID)

	require.Error(t, err)
	require.NotNil(t, summary)
	assert.Contains(t, summary.StepErrors[StepIntegration], "fk violation")
}

func TestDeleteIntegration_OtherCompany(t *testing.T) {
	f := newDeletionFixture(t)
	f.integrations.On("FindByID", mock.Anything, f.integ.ID).Return(f.integ, nil)

	_, err := f.service.DeleteIntegration(context.Background(), uuid.New(), f.integ.ID)

	assert.ErrorIs(t, err, integration.ErrCrossCompanyAccess)
	f.mappings.AssertNotCalled(t, "DeleteByIntegration", mock.Anything, mock.Anything)
	f.integrations.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
