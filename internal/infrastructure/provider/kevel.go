package provider

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/adinventory/backend/internal/domain/integration"
)

// KevelAdapter syncs advertisers and implements campaign push and forecast
// jobs against the Kevel management API. Opportunities and contacts have no
// Kevel equivalent.
type KevelAdapter struct {
	UnsupportedEntities
	client     apiClient
	cfg        KevelConfig
	reconciler integration.RecordReconciler
}

// NewKevelAdapter creates a new KevelAdapter
func NewKevelAdapter(cfg KevelConfig, httpClient *http.Client, reconciler integration.RecordReconciler) *KevelAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultKevelBaseURL
	}
	if cfg.ForecastURL == "" {
		cfg.ForecastURL = cfg.BaseURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 500
	}
	return &KevelAdapter{
		client:     newAPIClient(integration.ProviderKevel, httpClient),
		cfg:        cfg,
		reconciler: reconciler,
	}
}

// Provider returns the provider identifier
func (a *KevelAdapter) Provider() integration.Provider {
	return integration.ProviderKevel
}

type kevelPage[T any] struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
	TotalItems int `json:"totalItems"`
	Items      []T `json:"items"`
}

type kevelAdvertiser struct {
	ID       int64  `json:"Id"`
	Title    string `json:"Title"`
	IsActive bool   `json:"IsActive"`
}

// SyncAdvertisers syncs Kevel advertisers into canonical advertisers
func (a *KevelAdapter) SyncAdvertisers(ctx context.Context, integ *integration.Integration, cred *integration.AccessCredential) (integration.EntityResult, error) {
	var result integration.EntityResult

	err := kevelList(ctx, a, cred, "/v1/advertiser", nil, "list advertisers", func(page []kevelAdvertiser) {
		batch := make([]integration.ExternalAdvertiser, 0, len(page))
		for _, adv := range page {
			batch = append(batch, integration.ExternalAdvertiser{
				ExternalID: strconv.FormatInt(adv.ID, 10),
				Name:       adv.Title,
			})
		}
		result.Merge(a.reconciler.ReconcileAdvertisers(ctx, integ, batch))
	})
	return result, err
}

func (a *KevelAdapter) headers(cred *integration.AccessCredential) map[string]string {
	return map[string]string{"X-Adzerk-ApiKey": cred.AccessToken}
}

// kevelList pages through a Kevel list endpoint
func kevelList[T any](
	ctx context.Context,
	a *KevelAdapter,
	cred *integration.AccessCredential,
	path string,
	params url.Values,
	op string,
	handle func([]T),
) error {
	for page := 1; ; page++ {
		q := url.Values{}
		for k, v := range params {
			q[k] = v
		}
		q.Set("page", strconv.Itoa(page))
		q.Set("pageSize", strconv.Itoa(a.cfg.PageSize))

		var resp kevelPage[T]
		if _, err := a.client.do(ctx, request{op: op, url: joinURL(a.cfg.BaseURL, path) + "?" + q.Encode(), headers: a.headers(cred)}, &resp); err != nil {
			return err
		}
		if len(resp.Items) > 0 {
			handle(resp.Items)
		}
		if len(resp.Items) == 0 || page >= resp.TotalPages {
			return nil
		}
	}
}

var (
	_ integration.ProviderAdapter  = (*KevelAdapter)(nil)
	_ integration.CampaignPlatform = (*KevelAdapter)(nil)
	_ integration.ForecastPlatform = (*KevelAdapter)(nil)
)
