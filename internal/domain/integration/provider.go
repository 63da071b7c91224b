package integration

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Provider
// ---------------------------------------------------------------------------

// Provider identifies an external platform
type Provider string

const (
	ProviderSalesforce Provider = "salesforce"
	ProviderHubSpot    Provider = "hubspot"
	ProviderPipedrive  Provider = "pipedrive"
	ProviderVTEX       Provider = "vtex"
	ProviderKevel      Provider = "kevel"
)

// AllProviders returns every provider known to the engine
func AllProviders() []Provider {
	return []Provider{
		ProviderSalesforce,
		ProviderHubSpot,
		ProviderPipedrive,
		ProviderVTEX,
		ProviderKevel,
	}
}

// IsValid checks if the provider is known
func (p Provider) IsValid() bool {
	switch p {
	case ProviderSalesforce, ProviderHubSpot, ProviderPipedrive, ProviderVTEX, ProviderKevel:
		return true
	default:
		return false
	}
}

// String returns the string representation
func (p Provider) String() string {
	return string(p)
}

// UsesOAuth reports whether the provider authenticates with a refresh-token exchange
func (p Provider) UsesOAuth() bool {
	return p == ProviderSalesforce || p == ProviderHubSpot
}

// ---------------------------------------------------------------------------
// Credentials
// ---------------------------------------------------------------------------

// AccessCredential is a resolved, ready-to-use credential for one run.
// It is never persisted.
type AccessCredential struct {
	Provider Provider
	// AccessToken is the bearer token (OAuth) or static API key
	AccessToken string
	// Secondary holds a second static secret where the provider needs a pair (VTEX app token)
	Secondary string
	// InstanceURL is the API host returned by the token exchange, if any
	InstanceURL string
	// ExpiresAt is zero for static keys
	ExpiresAt time.Time
}

// CredentialResolver obtains access credentials for an integration on demand.
// Implementations must not cache tokens across calls.
type CredentialResolver interface {
	Resolve(ctx context.Context, integ *Integration) (*AccessCredential, error)
}

// ---------------------------------------------------------------------------
// ProviderAdapter port
// ---------------------------------------------------------------------------

// ProviderAdapter is the uniform sync contract every provider implements.
// A provider without support for an entity class returns a zero EntityResult.
// A returned error is recorded against that entity class by the caller.
type ProviderAdapter interface {
	Provider() Provider
	SyncOpportunities(ctx context.Context, integ *Integration, cred *AccessCredential) (EntityResult, error)
	SyncContacts(ctx context.Context, integ *Integration, cred *AccessCredential) (EntityResult, error)
	SyncAdvertisers(ctx context.Context, integ *Integration, cred *AccessCredential) (EntityResult, error)
}

// RecordReconciler upserts fetched batches into canonical storage.
// Adapters hand every fetched page to it.
type RecordReconciler interface {
	ReconcileOpportunities(ctx context.Context, integ *Integration, batch []ExternalOpportunity, stages StageMapping) EntityResult
	ReconcileContacts(ctx context.Context, integ *Integration, batch []ExternalContact) EntityResult
	ReconcileAdvertisers(ctx context.Context, integ *Integration, batch []ExternalAdvertiser) EntityResult
}

// ---------------------------------------------------------------------------
// CampaignPlatform port
// ---------------------------------------------------------------------------

// ExternalCampaignSpec is the provider-neutral projection of a local campaign
type ExternalCampaignSpec struct {
	AdvertiserID string
	Name         string
	StartDate    time.Time
	EndDate      *time.Time
	Budget       decimal.Decimal
	Active       bool
}

// ExternalSite is a top level inventory container (site/property)
type ExternalSite struct {
	ID   string
	Name string
	URL  string
}

// ExternalZone is a placement slot within a site
type ExternalZone struct {
	ID     string
	SiteID string
	Name   string
}

// ExternalFlightSpec describes a sub-unit to create beneath a campaign
type ExternalFlightSpec struct {
	CampaignID string
	ZoneID     string
	SiteID     string
	Name       string
	StartDate  time.Time
	EndDate    *time.Time
	Active     bool
}

// ExternalAdvertiserRef is a provider-side advertiser
type ExternalAdvertiserRef struct {
	ID   string
	Name string
}

// CampaignPlatform is implemented by providers that accept campaign pushes.
type CampaignPlatform interface {
	ListAdvertisers(ctx context.Context, integ *Integration, cred *AccessCredential) ([]ExternalAdvertiserRef, error)
	CreateAdvertiser(ctx context.Context, integ *Integration, cred *AccessCredential, name string) (*ExternalAdvertiserRef, error)
	CreateCampaign(ctx context.Context, integ *Integration, cred *AccessCredential, spec ExternalCampaignSpec) (string, error)
	UpdateCampaign(ctx context.Context, integ *Integration, cred *AccessCredential, externalID string, spec ExternalCampaignSpec) error
	SetCampaignActive(ctx context.Context, integ *Integration, cred *AccessCredential, externalID string, active bool) error
	ListSites(ctx context.Context, integ *Integration, cred *AccessCredential) ([]ExternalSite, error)
	ListZones(ctx context.Context, integ *Integration, cred *AccessCredential, siteID string) ([]ExternalZone, error)
	CreateFlight(ctx context.Context, integ *Integration, cred *AccessCredential, spec ExternalFlightSpec) (string, error)
	SetFlightActive(ctx context.Context, integ *Integration, cred *AccessCredential, flightID string, active bool) error
}

// ---------------------------------------------------------------------------
// ForecastPlatform port
// ---------------------------------------------------------------------------

// ForecastPlatform is implemented by providers that run asynchronous forecast jobs.
type ForecastPlatform interface {
	StartJob(ctx context.Context, integ *Integration, cred *AccessCredential, spec JobSpec) (*AsyncJob, error)
	PollJob(ctx context.Context, integ *Integration, cred *AccessCredential, jobID string) (*AsyncJob, error)
}

// ---------------------------------------------------------------------------
// AdapterRegistry
// ---------------------------------------------------------------------------

// AdapterRegistry resolves a provider identifier to its adapter and capabilities.
// Every method fails closed with ErrUnsupportedProvider.
type AdapterRegistry interface {
	Resolve(provider Provider) (ProviderAdapter, error)
	ResolveCampaignPlatform(provider Provider) (CampaignPlatform, error)
	ResolveForecastPlatform(provider Provider) (ForecastPlatform, error)
	Providers() []Provider
}
