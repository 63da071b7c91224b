package integration

import (
	"context"
	"sync"
	"time"

	"github.com/adinventory/backend/internal/domain/campaign"
	"github.com/adinventory/backend/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// ---------------------------------------------------------------------------
// Repository mocks
// ---------------------------------------------------------------------------

type MockIntegrationRepository struct {
	mock.Mock
}

func (m *MockIntegrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.Integration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Integration), args.Error(1)
}

func (m *MockIntegrationRepository) FindActiveByProvider(ctx context.Context, provider integration.Provider) ([]integration.Integration, error) {
	args := m.Called(ctx, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.Integration), args.Error(1)
}

func (m *MockIntegrationRepository) FindByCompany(ctx context.Context, companyID uuid.UUID) ([]integration.Integration, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.Integration), args.Error(1)
}

func (m *MockIntegrationRepository) Save(ctx context.Context, integ *integration.Integration) error {
	args := m.Called(ctx, integ)
	return args.Error(0)
}

func (m *MockIntegrationRepository) UpdateSyncState(ctx context.Context, integ *integration.Integration) error {
	args := m.Called(ctx, integ)
	return args.Error(0)
}

func (m *MockIntegrationRepository) RecordCampaignPush(ctx context.Context, integrationID, campaignID uuid.UUID, externalCampaignID string) error {
	args := m.Called(ctx, integrationID, campaignID, externalCampaignID)
	return args.Error(0)
}

func (m *MockIntegrationRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

type MockSyncHistoryRepository struct {
	mock.Mock
}

func (m *MockSyncHistoryRepository) Create(ctx context.Context, rec *integration.SyncHistoryRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockSyncHistoryRepository) FindByIntegration(ctx context.Context, integrationID uuid.UUID, page, pageSize int) ([]integration.SyncHistoryRecord, int64, error) {
	args := m.Called(ctx, integrationID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]integration.SyncHistoryRecord), args.Get(1).(int64), args.Error(2)
}

func (m *MockSyncHistoryRepository) DeleteByIntegration(ctx context.Context, integrationID uuid.UUID) (int64, error) {
	args := m.Called(ctx, integrationID)
	return args.Get(0).(int64), args.Error(1)
}

type MockCampaignMappingRepository struct {
	mock.Mock
}

func (m *MockCampaignMappingRepository) Find(ctx context.Context, campaignID, integrationID uuid.UUID) (*integration.CampaignExternalMapping, error) {
	args := m.Called(ctx, campaignID, integrationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.CampaignExternalMapping), args.Error(1)
}

func (m *MockCampaignMappingRepository) Upsert(ctx context.Context, mapping *integration.CampaignExternalMapping) error {
	args := m.Called(ctx, mapping)
	return args.Error(0)
}

func (m *MockCampaignMappingRepository) FindByIntegration(ctx context.Context, integrationID uuid.UUID) ([]integration.CampaignExternalMapping, error) {
	args := m.Called(ctx, integrationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.CampaignExternalMapping), args.Error(1)
}

func (m *MockCampaignMappingRepository) DeleteByIntegration(ctx context.Context, integrationID uuid.UUID) (int64, error) {
	args := m.Called(ctx, integrationID)
	return args.Get(0).(int64), args.Error(1)
}

type MockCampaignRepository struct {
	mock.Mock
}

func (m *MockCampaignRepository) FindByID(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*campaign.Campaign), args.Error(1)
}

func (m *MockCampaignRepository) Save(ctx context.Context, c *campaign.Campaign) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCampaignRepository) FindDerivedFrom(ctx context.Context, integrationID uuid.UUID) ([]campaign.Campaign, error) {
	args := m.Called(ctx, integrationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]campaign.Campaign), args.Error(1)
}

func (m *MockCampaignRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

type MockAdSpaceRepository struct {
	mock.Mock
}

func (m *MockAdSpaceRepository) FindByID(ctx context.Context, id uuid.UUID) (*campaign.AdSpace, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*campaign.AdSpace), args.Error(1)
}

func (m *MockAdSpaceRepository) Save(ctx context.Context, a *campaign.AdSpace) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAdSpaceRepository) FindDerivedFrom(ctx context.Context, integrationID uuid.UUID) ([]campaign.AdSpace, error) {
	args := m.Called(ctx, integrationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]campaign.AdSpace), args.Error(1)
}

func (m *MockAdSpaceRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

type MockPlacementRepository struct {
	mock.Mock
}

func (m *MockPlacementRepository) Add(ctx context.Context, p campaign.Placement) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPlacementRepository) DeleteByCampaign(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	args := m.Called(ctx, campaignID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPlacementRepository) DeleteByAdSpace(ctx context.Context, adSpaceID uuid.UUID) (int64, error) {
	args := m.Called(ctx, adSpaceID)
	return args.Get(0).(int64), args.Error(1)
}

// ---------------------------------------------------------------------------
// Provider mocks
// ---------------------------------------------------------------------------

type MockAdapterRegistry struct {
	mock.Mock
}

func (m *MockAdapterRegistry) Resolve(provider integration.Provider) (integration.ProviderAdapter, error) {
	args := m.Called(provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(integration.ProviderAdapter), args.Error(1)
}

func (m *MockAdapterRegistry) ResolveCampaignPlatform(provider integration.Provider) (integration.CampaignPlatform, error) {
	args := m.Called(provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(integration.CampaignPlatform), args.Error(1)
}

func (m *MockAdapterRegistry) ResolveForecastPlatform(provider integration.Provider) (integration.ForecastPlatform, error) {
	args := m.Called(provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(integration.ForecastPlatform), args.Error(1)
}

func (m *MockAdapterRegistry) Providers() []integration.Provider {
	args := m.Called()
	return args.Get(0).([]integration.Provider)
}

type MockProviderAdapter struct {
	mock.Mock
}

func (m *MockProviderAdapter) Provider() integration.Provider {
	args := m.Called()
	return args.Get(0).(integration.Provider)
}

func (m *MockProviderAdapter) SyncOpportunities(ctx context.Context, integ *integration.Integration, cred *integration.AccessCredential) (integration.EntityResult, error) {
	args := m.Called(ctx, integ, cred)
	return args.Get(0).(integration.EntityResult), args.Error(1)
}

func (m *MockProviderAdapter) SyncContacts(ctx context.Context, integ *integration.Integration, cred *integration.AccessCredential) (integration.EntityResult, error) {
	args := m.Called(ctx, integ, cred)
	return args.Get(0).(integration.EntityResult), args.Error(1)
}

func (m *MockProviderAdapter) SyncAdvertisers(ctx context.Context, integ *integration.Integration, cred *integration.AccessCredential) (integration.EntityResult, error) {
	args := m.Called(ctx, integ, cred)
	return args.Get(0).(integration.EntityResult), args.Error(1)
}

type MockCampaignPlatform struct {
	mock.Mock
}

func (m *MockCampaignPlatform) ListAdvertisers(ctx context.Context, integ *integration.Integration, cred *integration.AccessCredential) ([]integration.ExternalAdvertiserRef, error) {
	args := m.Called(ctx, integ, cred)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.ExternalAdvertiserRef), args.Error(1)
}

func (m *MockCampaignPlatform) CreateAdvertiser(ctx context.Context, integ *integration.Integration, cred *integration.AccessCredential, name string) (*integration.ExternalAdvertiserRef, error) {
	args := m.Called(ctx, integ, cred, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.ExternalAdvertiserRef), args.Error(1)
}

func (m *MockCampaignPlatform) CreateCampaign(ctx context.Context, integ *integration.Integration, cred *integration.AccessCredential, spec integration.ExternalCampaignSpec) (string, error) {
	args := m.Called(ctx, integ, cred, spec)
	return args.String(0), args.Error(1)
}

func (m *MockCampaignPlatform) UpdateCampaign(ctx context.Context, integ *integration.Integration, cred *integration.AccessCredential, externalID string, spec integration.ExternalCampaignSpec) error {
	args := m.Called(ctx, integ, cred, externalID, spec)
	return args.Error(0)
}

func (m *MockCampaignPlatform) SetCampaignActive(ctx context.Context, integ *integration.Integration, cred *integration.AccessCredential, externalID string, active bool) error {
	args := m.Called(ctx, integ, cred, externalID, active)
	return args.Error(0)
}

func (m *MockCampaignPlatform) ListSites(ctx context.Context, integ *integration.Integration, cred *integration.AccessCredential) ([]integration.ExternalSite, error) {
	args := m.Called(ctx, integ, cred)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.ExternalSite), args.Error(1)
}

func (m *MockCampaignPlatform) ListZones(ctx context.Context, integ *integration.Integration, cred *integration.AccessCredential, siteID string) ([]integration.ExternalZone, error) {
	args := m.Called(ctx, integ, cred, siteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.ExternalZone), args.Error(1)
}

func (m *MockCampaignPlatform) CreateFlight(ctx context.Context, integ *integration.Integration, cred *integration.AccessCredential, spec integration.ExternalFlightSpec) (string, error) {
	args := m.Called(ctx, integ, cred, spec)
	return args.String(0), args.Error(1)
}

func (m *MockCampaignPlatform) SetFlightActive(ctx context.Context, integ *integration.Integration, cred *integration.AccessCredential, flightID string, active bool) error {
	args := m.Called(ctx, integ, cred, flightID, active)
	return args.Error(0)
}

type MockForecastPlatform struct {
	mock.Mock
}

func (m *MockForecastPlatform) StartJob(ctx context.Context, integ *integration.Integration, cred *integration.AccessCredential, spec integration.JobSpec) (*integration.AsyncJob, error) {
	args := m.Called(ctx, integ, cred, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.AsyncJob), args.Error(1)
}

func (m *MockForecastPlatform) PollJob(ctx context.Context, integ *integration.Integration, cred *integration.AccessCredential, jobID string) (*integration.AsyncJob, error) {
	args := m.Called(ctx, integ, cred, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.AsyncJob), args.Error(1)
}

type MockCredentialResolver struct {
	mock.Mock
}

func (m *MockCredentialResolver) Resolve(ctx context.Context, integ *integration.Integration) (*integration.AccessCredential, error) {
	args := m.Called(ctx, integ)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.AccessCredential), args.Error(1)
}

type MockJobResultArchive struct {
	mock.Mock
}

func (m *MockJobResultArchive) Store(ctx context.Context, job *integration.AsyncJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// fakeLocker is an in-process Locker that records acquisitions
type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	released int
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) TryAcquire(_ context.Context, key string, _ time.Duration) (integration.Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, integration.ErrSyncInProgress
	}
	l.held[key] = true
	return &fakeLease{locker: l, key: key}, nil
}

func (l *fakeLocker) isHeld(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[key]
}

type fakeLease struct {
	locker *fakeLocker
	key    string
}

func (f *fakeLease) Release(_ context.Context) error {
	f.locker.mu.Lock()
	defer f.locker.mu.Unlock()
	delete(f.locker.held, f.key)
	f.locker.released++
	return nil
}

// memoryCanonicalRepository is an in-memory CanonicalRepository keyed like the unique index
type memoryCanonicalRepository struct {
	opportunities map[string]*integration.CanonicalOpportunity
	contacts      map[string]*integration.CanonicalContact
	advertisers   map[string]*integration.CanonicalAdvertiser
	failSaves     map[string]error
}

func newMemoryCanonicalRepository() *memoryCanonicalRepository {
	return &memoryCanonicalRepository{
		opportunities: make(map[string]*integration.CanonicalOpportunity),
		contacts:      make(map[string]*integration.CanonicalContact),
		advertisers:   make(map[string]*integration.CanonicalAdvertiser),
		failSaves:     make(map[string]error),
	}
}

func canonicalKey(companyID uuid.UUID, naturalKey string, source integration.Provider) string {
	return companyID.String() + "|" + naturalKey + "|" + string(source)
}

func (r *memoryCanonicalRepository) FindOpportunity(_ context.Context, companyID uuid.UUID, naturalKey string, source integration.Provider) (*integration.CanonicalOpportunity, error) {
	if o, ok := r.opportunities[canonicalKey(companyID, naturalKey, source)]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, integration.ErrRecordNotFound
}

func (r *memoryCanonicalRepository) SaveOpportunity(_ context.Context, o *integration.CanonicalOpportunity) error {
	if err := r.failSaves[o.Name]; err != nil {
		return err
	}
	cp := *o
	r.opportunities[canonicalKey(o.CompanyID, o.NaturalKey, o.Source)] = &cp
	return nil
}

func (r *memoryCanonicalRepository) FindContact(_ context.Context, companyID uuid.UUID, naturalKey string, source integration.Provider) (*integration.CanonicalContact, error) {
	if c, ok := r.contacts[canonicalKey(companyID, naturalKey, source)]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, integration.ErrRecordNotFound
}

func (r *memoryCanonicalRepository) SaveContact(_ context.Context, c *integration.CanonicalContact) error {
	if err := r.failSaves[c.Name]; err != nil {
		return err
	}
	cp := *c
	r.contacts[canonicalKey(c.CompanyID, c.NaturalKey, c.Source)] = &cp
	return nil
}

func (r *memoryCanonicalRepository) FindAdvertiser(_ context.Context, companyID uuid.UUID, naturalKey string, source integration.Provider) (*integration.CanonicalAdvertiser, error) {
	if a, ok := r.advertisers[canonicalKey(companyID, naturalKey, source)]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, integration.ErrRecordNotFound
}

func (r *memoryCanonicalRepository) SaveAdvertiser(_ context.Context, a *integration.CanonicalAdvertiser) error {
	if err := r.failSaves[a.Name]; err != nil {
		return err
	}
	cp := *a
	r.advertisers[canonicalKey(a.CompanyID, a.NaturalKey, a.Source)] = &cp
	return nil
}

func (r *memoryCanonicalRepository) MergeAdvertiser(_ context.Context, a *integration.CanonicalAdvertiser) (*integration.CanonicalAdvertiser, bool, error) {
	for _, existing := range r.advertisers {
		if existing.CompanyID == a.CompanyID && existing.NaturalKey == a.NaturalKey {
			cp := *existing
			return &cp, false, nil
		}
	}
	cp := *a
	r.advertisers[canonicalKey(a.CompanyID, a.NaturalKey, a.Source)] = &cp
	return a, true, nil
}

func (r *memoryCanonicalRepository) DeleteByIntegration(_ context.Context, integrationID uuid.UUID) (int64, error) {
	var n int64
	for k, o := range r.opportunities {
		if o.DerivedFromIntegrationID == integrationID {
			delete(r.opportunities, k)
			n++
		}
	}
	for k, c := range r.contacts {
		if c.DerivedFromIntegrationID == integrationID {
			delete(r.contacts, k)
			n++
		}
	}
	for k, a := range r.advertisers {
		if a.DerivedFromIntegrationID == integrationID {
			delete(r.advertisers, k)
			n++
		}
	}
	return n, nil
}
