package provider

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/adinventory/backend/internal/domain/integration"
)

// Registry maps provider identifiers to adapters. It is filled explicitly at
// startup and resolves capabilities by interface assertion.
type Registry struct {
	mu       sync.RWMutex
	adapters map[integration.Provider]integration.ProviderAdapter
}

// NewRegistry creates a registry holding the given adapters
func NewRegistry(adapters ...integration.ProviderAdapter) *Registry {
	r := &Registry{adapters: make(map[integration.Provider]integration.ProviderAdapter)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// NewDefaultRegistry registers the adapter of every supported provider
func NewDefaultRegistry(cfg Config, httpClient *http.Client, reconciler integration.RecordReconciler) *Registry {
	return NewRegistry(
		NewSalesforceAdapter(cfg.Salesforce, httpClient, reconciler),
		NewHubSpotAdapter(cfg.HubSpot, httpClient, reconciler),
		NewPipedriveAdapter(cfg.Pipedrive, httpClient, reconciler),
		NewVTEXAdapter(cfg.VTEX, httpClient, reconciler),
		NewKevelAdapter(cfg.Kevel, httpClient, reconciler),
	)
}

// Register adds or replaces the adapter for its provider
func (r *Registry) Register(adapter integration.ProviderAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.Provider()] = adapter
}

// Resolve returns the adapter for provider
func (r *Registry) Resolve(provider integration.Provider) (integration.ProviderAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", integration.ErrUnsupportedProvider, provider)
	}
	return adapter, nil
}

// ResolveCampaignPlatform returns the campaign push capability of provider
func (r *Registry) ResolveCampaignPlatform(provider integration.Provider) (integration.CampaignPlatform, error) {
	adapter, err := r.Resolve(provider)
	if err != nil {
		return nil, err
	}
	platform, ok := adapter.(integration.CampaignPlatform)
	if !ok {
		return nil, fmt.Errorf("%w: %q does not support campaign push", integration.ErrUnsupportedProvider, provider)
	}
	return platform, nil
}

// ResolveForecastPlatform returns the async job capability of provider
func (r *Registry) ResolveForecastPlatform(provider integration.Provider) (integration.ForecastPlatform, error) {
	adapter, err := r.Resolve(provider)
	if err != nil {
		return nil, err
	}
	platform, ok := adapter.(integration.ForecastPlatform)
	if !ok {
		return nil, fmt.Errorf("%w: %q does not support async jobs", integration.ErrUnsupportedProvider, provider)
	}
	return platform, nil
}

// Providers lists registered providers in a stable order
func (r *Registry) Providers() []integration.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]integration.Provider, 0, len(r.adapters))
	for p := range r.adapters {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// UnsupportedEntities is embedded by adapters to answer entity classes the
// provider has no equivalent for.
type UnsupportedEntities struct{}

// SyncOpportunities returns an empty result
func (UnsupportedEntities) SyncOpportunities(context.Context, *integration.Integration, *integration.AccessCredential) (integration.EntityResult, error) {
	return integration.EntityResult{}, nil
}

// SyncContacts returns an empty result
func (UnsupportedEntities) SyncContacts(context.Context, *integration.Integration, *integration.AccessCredential) (integration.EntityResult, error) {
	return integration.EntityResult{}, nil
}

// SyncAdvertisers returns an empty result
func (UnsupportedEntities) SyncAdvertisers(context.Context, *integration.Integration, *integration.AccessCredential) (integration.EntityResult, error) {
	return integration.EntityResult{}, nil
}

var _ integration.AdapterRegistry = (*Registry)(nil)
