package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/adinventory/backend/internal/domain/integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVTEXAdapter_SyncContacts_PagesByRange(t *testing.T) {
	// Setup
	var ranges []string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/dataentities/CL/search", r.URL.Path)
		assert.Equal(t, "appkey", r.Header.Get("X-VTEX-API-AppKey"))
		assert.Equal(t, "apptoken", r.Header.Get("X-VTEX-API-AppToken"))

		rng := r.Header.Get("REST-Range")
		ranges = append(ranges, rng)
		switch rng {
		case "resources=0-1":
			w.Header().Set("REST-Content-Range", "resources 0-1/3")
			_, _ = w.Write([]byte(`[{"id":"a","firstName":"Ada","email":"ada@example.com"},{"id":"b","firstName":"Alan"}]`))
		default:
			w.Header().Set("REST-Content-Range", "resources 2-2/3")
			_, _ = w.Write([]byte(`[{"id":"c","email":"c@example.com","corporateName":"Initech"}]`))
		}
	})
	template := strings.Replace(srv.URL, "127.0.0.1", "{account}", 1)
	rec := &recordingReconciler{}
	adapter := NewVTEXAdapter(VTEXConfig{BaseURLTemplate: template, PageSize: 2}, srv.Client(), rec)
	integ := newTestIntegration(t, integration.ProviderVTEX, nil, integration.Configuration{AccountName: "127.0.0.1"})

	// Execute
	result, err := adapter.SyncContacts(context.Background(), integ, &integration.AccessCredential{AccessToken: "appkey", Secondary: "apptoken"})

	// Verify
	require.NoError(t, err)
	assert.Equal(t, []string{"resources=0-1", "resources=2-3"}, ranges)
	assert.Equal(t, 3, result.Fetched)
	require.Len(t, rec.contacts, 3)
	assert.Equal(t, "Initech", rec.contacts[2].CompanyName)
}

func TestVTEXAdapter_SyncAdvertisers_ActiveBrandsOnly(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/catalog_system/pvt/brand/list", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":2000001,"name":"Acme","isActive":true},{"id":2000002,"name":"Retired","isActive":false}]`))
	})
	rec := &recordingReconciler{}
	adapter := NewVTEXAdapter(VTEXConfig{BaseURLTemplate: strings.Replace(srv.URL, "127.0.0.1", "{account}", 1)}, srv.Client(), rec)
	integ := newTestIntegration(t, integration.ProviderVTEX, nil, integration.Configuration{AccountName: "127.0.0.1"})

	result, err := adapter.SyncAdvertisers(context.Background(), integ, &integration.AccessCredential{})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Fetched)
	require.Len(t, rec.advertisers, 1)
	assert.Equal(t, "2000001", rec.advertisers[0].ExternalID)
}

func TestVTEXAdapter_RequiresAccountName(t *testing.T) {
	adapter := NewVTEXAdapter(VTEXConfig{}, nil, &recordingReconciler{})
	integ := newTestIntegration(t, integration.ProviderVTEX, nil, integration.Configuration{})

	_, err := adapter.SyncContacts(context.Background(), integ, &integration.AccessCredential{})
	assert.ErrorIs(t, err, integration.ErrMissingCredentials)

	result, err := adapter.SyncOpportunities(context.Background(), integ, &integration.AccessCredential{})
	assert.NoError(t, err)
	assert.Zero(t, result.Fetched)
}

func TestContentRangeTotal(t *testing.T) {
	tests := []struct {
		header string
		total  int
		ok     bool
	}{
		{"resources 0-99/250", 250, true},
		{"resources 0-0/1", 1, true},
		{"", 0, false},
		{"resources 0-99/*", 0, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.header), func(t *testing.T) {
			total, ok := contentRangeTotal(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.total, total)
		})
	}
}
