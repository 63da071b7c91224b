package provider

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/adinventory/backend/internal/domain/integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCredentialResolver_SalesforceRefresh(t *testing.T) {
	// Setup
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "rt-1", r.PostForm.Get("refresh_token"))
		assert.Equal(t, "app-client", r.PostForm.Get("client_id"))
		assert.Equal(t, "integration-secret", r.PostForm.Get("client_secret"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","instance_url":"https://acme.my.salesforce.com","expires_in":3600}`))
	})
	cfg := Config{Salesforce: SalesforceConfig{OAuth: OAuthClient{TokenURL: srv.URL, ClientID: "app-client", ClientSecret: "app-secret"}}}
	resolver := NewCredentialResolver(cfg, srv.Client(), zap.NewNop())
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	resolver.now = func() time.Time { return fixed }

	integ := newTestIntegration(t, integration.ProviderSalesforce, map[string]string{
		CredRefreshToken: "rt-1",
		CredClientSecret: "integration-secret",
	}, integration.Configuration{})

	// Execute
	cred, err := resolver.Resolve(context.Background(), integ)

	// Verify
	require.NoError(t, err)
	assert.Equal(t, "at-1", cred.AccessToken)
	assert.Equal(t, "https://acme.my.salesforce.com", cred.InstanceURL)
	assert.Equal(t, fixed.Add(time.Hour), cred.ExpiresAt)
}

func TestCredentialResolver_SalesforceInstanceOverride(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"at-1"}`))
	})
	cfg := Config{Salesforce: SalesforceConfig{OAuth: OAuthClient{TokenURL: srv.URL, ClientID: "c", ClientSecret: "s"}}}
	resolver := NewCredentialResolver(cfg, srv.Client(), nil)

	integ := newTestIntegration(t, integration.ProviderSalesforce, map[string]string{CredRefreshToken: "rt"},
		integration.Configuration{InstanceURL: "https://sandbox.my.salesforce.com"})

	cred, err := resolver.Resolve(context.Background(), integ)

	require.NoError(t, err)
	assert.Equal(t, "https://sandbox.my.salesforce.com", cred.InstanceURL)
	assert.True(t, cred.ExpiresAt.IsZero())
}

func TestCredentialResolver_RejectedRefresh(t *testing.T) {
	// Setup
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"expired access/refresh token"}`))
	})
	cfg := Config{HubSpot: HubSpotConfig{OAuth: OAuthClient{TokenURL: srv.URL, ClientID: "c", ClientSecret: "s"}}}
	resolver := NewCredentialResolver(cfg, srv.Client(), nil)
	integ := newTestIntegration(t, integration.ProviderHubSpot, map[string]string{CredRefreshToken: "stale"}, integration.Configuration{})

	// Execute
	_, err := resolver.Resolve(context.Background(), integ)

	// Verify
	require.Error(t, err)
	assert.ErrorIs(t, err, integration.ErrAuthenticationFailed)
	var authErr *integration.AuthenticationError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusBadRequest, authErr.StatusCode)
	assert.Contains(t, authErr.Body, "invalid_grant")
}

func TestCredentialResolver_MissingFields(t *testing.T) {
	resolver := NewCredentialResolver(DefaultConfig(), nil, nil)

	tests := []struct {
		name     string
		provider integration.Provider
		creds    map[string]string
		field    string
	}{
		{"salesforce without refresh token", integration.ProviderSalesforce, nil, CredRefreshToken},
		{"hubspot without client id", integration.ProviderHubSpot, map[string]string{CredRefreshToken: "rt"}, CredClientID},
		{"pipedrive without api token", integration.ProviderPipedrive, nil, CredAPIToken},
		{"vtex without app token", integration.ProviderVTEX, map[string]string{CredAppKey: "k"}, CredAppToken},
		{"kevel without api key", integration.ProviderKevel, map[string]string{}, CredAPIKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			integ := newTestIntegration(t, tt.provider, tt.creds, integration.Configuration{})

			_, err := resolver.Resolve(context.Background(), integ)

			require.Error(t, err)
			assert.ErrorIs(t, err, integration.ErrMissingCredentials)
			var missing *integration.MissingCredentialsError
			require.True(t, errors.As(err, &missing))
			assert.Equal(t, tt.field, missing.Field)
		})
	}
}

func TestCredentialResolver_StaticKeys(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Kevel.APIKey = "network-key"
	resolver := NewCredentialResolver(cfg, nil, nil)
	ctx := context.Background()

	cred, err := resolver.Resolve(ctx, newTestIntegration(t, integration.ProviderVTEX,
		map[string]string{CredAppKey: "vtexappkey", CredAppToken: "vtexapptoken"}, integration.Configuration{}))
	require.NoError(t, err)
	assert.Equal(t, "vtexappkey", cred.AccessToken)
	assert.Equal(t, "vtexapptoken", cred.Secondary)

	cred, err = resolver.Resolve(ctx, newTestIntegration(t, integration.ProviderKevel, nil, integration.Configuration{}))
	require.NoError(t, err)
	assert.Equal(t, "network-key", cred.AccessToken)

	cred, err = resolver.Resolve(ctx, newTestIntegration(t, integration.ProviderKevel,
		map[string]string{CredAPIKey: "own-key"}, integration.Configuration{}))
	require.NoError(t, err)
	assert.Equal(t, "own-key", cred.AccessToken)
}
