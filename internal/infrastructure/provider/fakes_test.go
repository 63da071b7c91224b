package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/adinventory/backend/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// recordingReconciler keeps every batch it receives and counts each record as created
type recordingReconciler struct {
	mu            sync.Mutex
	opportunities []integration.ExternalOpportunity
	contacts      []integration.ExternalContact
	advertisers   []integration.ExternalAdvertiser
	stages        []integration.StageMapping
}

func (r *recordingReconciler) ReconcileOpportunities(_ context.Context, _ *integration.Integration, batch []integration.ExternalOpportunity, stages integration.StageMapping) integration.EntityResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opportunities = append(r.opportunities, batch...)
	r.stages = append(r.stages, stages)
	return integration.EntityResult{Fetched: len(batch), Created: len(batch)}
}

func (r *recordingReconciler) ReconcileContacts(_ context.Context, _ *integration.Integration, batch []integration.ExternalContact) integration.EntityResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contacts = append(r.contacts, batch...)
	return integration.EntityResult{Fetched: len(batch), Created: len(batch)}
}

func (r *recordingReconciler) ReconcileAdvertisers(_ context.Context, _ *integration.Integration, batch []integration.ExternalAdvertiser) integration.EntityResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.advertisers = append(r.advertisers, batch...)
	return integration.EntityResult{Fetched: len(batch), Created: len(batch)}
}

func newTestIntegration(t *testing.T, provider integration.Provider, creds map[string]string, cfg integration.Configuration) *integration.Integration {
	t.Helper()
	integ, err := integration.NewIntegration(uuid.New(), provider, creds, cfg)
	require.NoError(t, err)
	return integ
}

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}
