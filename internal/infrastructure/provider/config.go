package provider

import (
	"errors"
	"strings"

	"github.com/adinventory/backend/internal/infrastructure/config"
)

// Default endpoints
const (
	DefaultSalesforceTokenURL   = "https://login.salesforce.com/services/oauth2/token"
	DefaultSalesforceAPIVersion = "v60.0"
	DefaultHubSpotTokenURL      = "https://api.hubapi.com/oauth/v1/token"
	DefaultHubSpotBaseURL       = "https://api.hubapi.com"
	DefaultPipedriveBaseURL     = "https://api.pipedrive.com"
	DefaultVTEXBaseURLTemplate  = "https://{account}.vtexcommercestable.com.br"
	DefaultKevelBaseURL         = "https://api.kevel.co"
)

// Configuration errors
var (
	ErrMissingAccount   = errors.New("provider: VTEX base URL template must contain {account}")
	ErrInvalidPageLimit = errors.New("provider: page size must be positive")
)

// OAuthClient holds the app-level OAuth client of a provider.
// Integration credentials take precedence over these values.
type OAuthClient struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
}

// SalesforceConfig configures the Salesforce adapter
type SalesforceConfig struct {
	OAuth      OAuthClient
	APIVersion string
}

// HubSpotConfig configures the HubSpot adapter
type HubSpotConfig struct {
	OAuth    OAuthClient
	BaseURL  string
	PageSize int
}

// PipedriveConfig configures the Pipedrive adapter
type PipedriveConfig struct {
	BaseURL string
	// APIToken is used when the integration carries none
	APIToken string
	PageSize int
}

// VTEXConfig configures the VTEX adapter
type VTEXConfig struct {
	// BaseURLTemplate contains an {account} placeholder
	BaseURLTemplate string
	AppKey          string
	AppToken        string
	PageSize        int
}

// KevelConfig configures the Kevel adapter
type KevelConfig struct {
	BaseURL     string
	ForecastURL string
	APIKey      string
	// PriorityID is assigned to flights created by a push
	PriorityID int64
	PageSize   int
}

// Config groups the settings of every adapter
type Config struct {
	Salesforce SalesforceConfig
	HubSpot    HubSpotConfig
	Pipedrive  PipedriveConfig
	VTEX       VTEXConfig
	Kevel      KevelConfig
}

// DefaultConfig returns production endpoints with no app-level secrets
func DefaultConfig() Config {
	return Config{
		Salesforce: SalesforceConfig{
			OAuth:      OAuthClient{TokenURL: DefaultSalesforceTokenURL},
			APIVersion: DefaultSalesforceAPIVersion,
		},
		HubSpot: HubSpotConfig{
			OAuth:    OAuthClient{TokenURL: DefaultHubSpotTokenURL},
			BaseURL:  DefaultHubSpotBaseURL,
			PageSize: 100,
		},
		Pipedrive: PipedriveConfig{BaseURL: DefaultPipedriveBaseURL, PageSize: 100},
		VTEX:      VTEXConfig{BaseURLTemplate: DefaultVTEXBaseURLTemplate, PageSize: 100},
		Kevel:     KevelConfig{BaseURL: DefaultKevelBaseURL, PageSize: 500},
	}
}

// Validate fills empty fields with defaults and checks the rest
func (c *Config) Validate() error {
	def := DefaultConfig()

	if c.Salesforce.OAuth.TokenURL == "" {
		c.Salesforce.OAuth.TokenURL = def.Salesforce.OAuth.TokenURL
	}
	if c.Salesforce.APIVersion == "" {
		c.Salesforce.APIVersion = def.Salesforce.APIVersion
	}
	if c.HubSpot.OAuth.TokenURL == "" {
		c.HubSpot.OAuth.TokenURL = def.HubSpot.OAuth.TokenURL
	}
	if c.HubSpot.BaseURL == "" {
		c.HubSpot.BaseURL = def.HubSpot.BaseURL
	}
	if c.Pipedrive.BaseURL == "" {
		c.Pipedrive.BaseURL = def.Pipedrive.BaseURL
	}
	if c.VTEX.BaseURLTemplate == "" {
		c.VTEX.BaseURLTemplate = def.VTEX.BaseURLTemplate
	}
	if !strings.Contains(c.VTEX.BaseURLTemplate, "{account}") {
		return ErrMissingAccount
	}
	if c.Kevel.BaseURL == "" {
		c.Kevel.BaseURL = def.Kevel.BaseURL
	}
	if c.Kevel.ForecastURL == "" {
		c.Kevel.ForecastURL = c.Kevel.BaseURL
	}

	for _, size := range []*int{&c.HubSpot.PageSize, &c.Pipedrive.PageSize, &c.VTEX.PageSize, &c.Kevel.PageSize} {
		if *size == 0 {
			*size = 100
		}
		if *size < 0 {
			return ErrInvalidPageLimit
		}
	}
	return nil
}

// FromSettings maps the loaded application settings onto adapter
// configuration and validates the result
func FromSettings(s config.ProvidersConfig) (Config, error) {
	cfg := Config{
		Salesforce: SalesforceConfig{
			OAuth:      OAuthClient(s.Salesforce.OAuth),
			APIVersion: s.Salesforce.APIVersion,
		},
		HubSpot: HubSpotConfig{
			OAuth:   OAuthClient(s.HubSpot.OAuth),
			BaseURL: s.HubSpot.BaseURL,
		},
		Pipedrive: PipedriveConfig{BaseURL: s.Pipedrive.BaseURL},
		VTEX:      VTEXConfig{BaseURLTemplate: s.VTEX.BaseURLTemplate},
		Kevel: KevelConfig{
			BaseURL:     s.Kevel.BaseURL,
			ForecastURL: s.Kevel.ForecastURL,
			PriorityID:  s.Kevel.PriorityID,
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
