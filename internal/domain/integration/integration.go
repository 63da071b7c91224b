package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Status
// ---------------------------------------------------------------------------

// Status represents the health of an integration
type Status string

const (
	StatusActive   Status = "active"
	StatusError    Status = "error"
	StatusDisabled Status = "disabled"
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusError, StatusDisabled:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// Configuration holds provider-specific, non-secret settings of an integration
type Configuration struct {
	// NetworkID is the Kevel network the integration operates on
	NetworkID int64 `json:"network_id,omitempty"`
	// AccountName is the VTEX store account
	AccountName string `json:"account_name,omitempty"`
	// InstanceURL overrides the Salesforce instance returned by the token exchange
	InstanceURL string `json:"instance_url,omitempty"`
	// CampaignMap maps local campaign IDs to external campaign IDs
	CampaignMap map[string]string `json:"campaign_map,omitempty"`
	// StageMapping overrides the provider's default stage table
	StageMapping map[string]string `json:"stage_mapping,omitempty"`
}

// ---------------------------------------------------------------------------
// Integration Entity
// ---------------------------------------------------------------------------

// Integration is one company's connection to an external provider.
// It is the root of every record derived through syncs and pushes.
type Integration struct {
	ID            uuid.UUID
	CompanyID     uuid.UUID
	Provider      Provider
	Status        Status
	Credentials   map[string]string
	Configuration Configuration
	LastSyncAt    *time.Time
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewIntegration creates a new active integration
func NewIntegration(companyID uuid.UUID, provider Provider, credentials map[string]string, cfg Configuration) (*Integration, error) {
	if companyID == uuid.Nil {
		return nil, ErrInvalidCompanyID
	}
	if !provider.IsValid() {
		return nil, ErrInvalidProvider
	}
	if credentials == nil {
		credentials = make(map[string]string)
	}

	now := time.Now()
	return &Integration{
		ID:            uuid.New(),
		CompanyID:     companyID,
		Provider:      provider,
		Status:        StatusActive,
		Credentials:   credentials,
		Configuration: cfg,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// BelongsTo reports whether the integration is owned by the company
func (i *Integration) BelongsTo(companyID uuid.UUID) bool {
	return i.CompanyID == companyID
}

// IsDisabled reports whether syncs must be refused
func (i *Integration) IsDisabled() bool {
	return i.Status == StatusDisabled
}

// Credential returns a secret by key, falling back to an empty string
func (i *Integration) Credential(key string) string {
	if i.Credentials == nil {
		return ""
	}
	return i.Credentials[key]
}

// MarkSynced records a finished run. A failed run moves the integration to error.
func (i *Integration) MarkSynced(at time.Time, runErr string) {
	i.LastSyncAt = &at
	i.LastError = runErr
	if i.Status != StatusDisabled {
		if runErr == "" {
			i.Status = StatusActive
		} else {
			i.Status = StatusError
		}
	}
	i.UpdatedAt = time.Now()
}

// Disable stops scheduled and manual syncs
func (i *Integration) Disable() {
	i.Status = StatusDisabled
	i.UpdatedAt = time.Now()
}

// RecordCampaignPush stores the external ID a local campaign was pushed as
func (i *Integration) RecordCampaignPush(campaignID uuid.UUID, externalID string) {
	if i.Configuration.CampaignMap == nil {
		i.Configuration.CampaignMap = make(map[string]string)
	}
	i.Configuration.CampaignMap[campaignID.String()] = externalID
	i.UpdatedAt = time.Now()
}

// ---------------------------------------------------------------------------
// IntegrationRepository
// ---------------------------------------------------------------------------

// IntegrationRepository persists integrations
type IntegrationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Integration, error)
	FindActiveByProvider(ctx context.Context, provider Provider) ([]Integration, error)
	FindByCompany(ctx context.Context, companyID uuid.UUID) ([]Integration, error)
	Save(ctx context.Context, integ *Integration) error
	UpdateSyncState(ctx context.Context, integ *Integration) error
	// RecordCampaignPush merges one entry into configuration.campaign_map
	// without touching any other column.
	RecordCampaignPush(ctx context.Context, integrationID, campaignID uuid.UUID, externalCampaignID string) error
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}
