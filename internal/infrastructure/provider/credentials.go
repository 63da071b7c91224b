package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/adinventory/backend/internal/domain/integration"
	"go.uber.org/zap"
)

// Credential keys read from Integration.Credentials
const (
	CredRefreshToken = "refresh_token"
	CredClientID     = "client_id"
	CredClientSecret = "client_secret"
	CredAPIToken     = "api_token"
	CredAppKey       = "app_key"
	CredAppToken     = "app_token"
	CredAPIKey       = "api_key"
)

// tokenResponse is the refresh-token grant response shared by Salesforce and HubSpot
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	InstanceURL string `json:"instance_url"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// CredentialResolver exchanges refresh tokens (Salesforce, HubSpot) or reads
// static keys (Pipedrive, VTEX, Kevel). Nothing is cached between calls.
type CredentialResolver struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time
}

// NewCredentialResolver creates a new CredentialResolver
func NewCredentialResolver(cfg Config, httpClient *http.Client, logger *zap.Logger) *CredentialResolver {
	if httpClient == nil {
		httpClient = NewHTTPClient(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialResolver{cfg: cfg, httpClient: httpClient, logger: logger, now: time.Now}
}

// Resolve returns a fresh credential for the integration
func (r *CredentialResolver) Resolve(ctx context.Context, integ *integration.Integration) (*integration.AccessCredential, error) {
	switch integ.Provider {
	case integration.ProviderSalesforce:
		cred, err := r.refresh(ctx, integ, r.cfg.Salesforce.OAuth)
		if err != nil {
			return nil, err
		}
		if integ.Configuration.InstanceURL != "" {
			cred.InstanceURL = integ.Configuration.InstanceURL
		}
		if cred.InstanceURL == "" {
			return nil, &integration.MissingCredentialsError{Provider: integ.Provider, Field: "instance_url"}
		}
		return cred, nil
	case integration.ProviderHubSpot:
		return r.refresh(ctx, integ, r.cfg.HubSpot.OAuth)
	case integration.ProviderPipedrive:
		token, err := staticKey(integ, CredAPIToken, r.cfg.Pipedrive.APIToken)
		if err != nil {
			return nil, err
		}
		return &integration.AccessCredential{Provider: integ.Provider, AccessToken: token}, nil
	case integration.ProviderVTEX:
		key, err := staticKey(integ, CredAppKey, r.cfg.VTEX.AppKey)
		if err != nil {
			return nil, err
		}
		token, err := staticKey(integ, CredAppToken, r.cfg.VTEX.AppToken)
		if err != nil {
			return nil, err
		}
		return &integration.AccessCredential{Provider: integ.Provider, AccessToken: key, Secondary: token}, nil
	case integration.ProviderKevel:
		key, err := staticKey(integ, CredAPIKey, r.cfg.Kevel.APIKey)
		if err != nil {
			return nil, err
		}
		return &integration.AccessCredential{Provider: integ.Provider, AccessToken: key}, nil
	default:
		return nil, fmt.Errorf("%w: %q", integration.ErrUnsupportedProvider, integ.Provider)
	}
}

func (r *CredentialResolver) refresh(ctx context.Context, integ *integration.Integration, client OAuthClient) (*integration.AccessCredential, error) {
	refreshToken := integ.Credential(CredRefreshToken)
	if refreshToken == "" {
		return nil, &integration.MissingCredentialsError{Provider: integ.Provider, Field: CredRefreshToken}
	}
	clientID := firstNonEmpty(integ.Credential(CredClientID), client.ClientID)
	if clientID == "" {
		return nil, &integration.MissingCredentialsError{Provider: integ.Provider, Field: CredClientID}
	}
	clientSecret := firstNonEmpty(integ.Credential(CredClientSecret), client.ClientSecret)
	if clientSecret == "" {
		return nil, &integration.MissingCredentialsError{Provider: integ.Provider, Field: CredClientSecret}
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, client.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create token request: %w", integ.Provider, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, transportError(integ.Provider, "token refresh", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize*4))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read token response: %w", integ.Provider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.Warn("Token refresh rejected",
			zap.String("integration_id", integ.ID.String()),
			zap.String("provider", integ.Provider.String()),
			zap.Int("status_code", resp.StatusCode),
		)
		return nil, &integration.AuthenticationError{
			Provider:   integ.Provider,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(body), maxErrorBodySize),
		}
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("%w: %s token response: %v", integration.ErrInvalidResponse, integ.Provider, err)
	}
	if token.AccessToken == "" {
		return nil, &integration.AuthenticationError{
			Provider:   integ.Provider,
			StatusCode: resp.StatusCode,
			Body:       "token response carried no access_token",
		}
	}

	cred := &integration.AccessCredential{
		Provider:    integ.Provider,
		AccessToken: token.AccessToken,
		InstanceURL: token.InstanceURL,
	}
	if token.ExpiresIn > 0 {
		cred.ExpiresAt = r.now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}
	return cred, nil
}

func staticKey(integ *integration.Integration, field, fallback string) (string, error) {
	if v := firstNonEmpty(integ.Credential(field), fallback); v != "" {
		return v, nil
	}
	return "", &integration.MissingCredentialsError{Provider: integ.Provider, Field: field}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

var _ integration.CredentialResolver = (*CredentialResolver)(nil)
