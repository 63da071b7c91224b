package provider

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/adinventory/backend/internal/domain/integration"
)

// VTEXAdapter syncs Master Data clients and catalog brands. VTEX has no
// opportunity concept.
type VTEXAdapter struct {
	UnsupportedEntities
	client     apiClient
	cfg        VTEXConfig
	reconciler integration.RecordReconciler
}

// NewVTEXAdapter creates a new VTEXAdapter
func NewVTEXAdapter(cfg VTEXConfig, httpClient *http.Client, reconciler integration.RecordReconciler) *VTEXAdapter {
	if cfg.BaseURLTemplate == "" {
		cfg.BaseURLTemplate = DefaultVTEXBaseURLTemplate
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	return &VTEXAdapter{
		client:     newAPIClient(integration.ProviderVTEX, httpClient),
		cfg:        cfg,
		reconciler: reconciler,
	}
}

// Provider returns the provider identifier
func (a *VTEXAdapter) Provider() integration.Provider {
	return integration.ProviderVTEX
}

type vtexClient struct {
	ID            string `json:"id"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	CorporateName string `json:"corporateName"`
}

type vtexBrand struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
	Title    string `json:"title"`
}

// SyncContacts syncs the CL (client) data entity
func (a *VTEXAdapter) SyncContacts(ctx context.Context, integ *integration.Integration, cred *integration.AccessCredential) (integration.EntityResult, error) {
	base, err := a.baseURL(integ)
	if err != nil {
		return integration.EntityResult{}, err
	}

	var result integration.EntityResult
	from := 0
	for {
		to := from + a.cfg.PageSize - 1
		var page []vtexClient
		header, err := a.client.do(ctx, request{
			op:  "search clients",
			url: joinURL(base, "/api/dataentities/CL/search") + "?_fields=id,firstName,lastName,email,phone,corporateName",
			headers: map[string]string{
				"X-VTEX-API-AppKey":   cred.AccessToken,
				"X-VTEX-API-AppToken": cred.Secondary,
				"REST-Range":          fmt.Sprintf("resources=%d-%d", from, to),
			},
		}, &page)
		if err != nil {
			return result, err
		}

		batch := make([]integration.ExternalContact, 0, len(page))
		for _, c := range page {
			batch = append(batch, integration.ExternalContact{
				ExternalID:  c.ID,
				FirstName:   c.FirstName,
				LastName:    c.LastName,
				Email:       c.Email,
				Phone:       c.Phone,
				CompanyName: c.CorporateName,
			})
		}
		if len(batch) > 0 {
			result.Merge(a.reconciler.ReconcileContacts(ctx, integ, batch))
		}

		total, ok := contentRangeTotal(header.Get("REST-Content-Range"))
		if len(page) < a.cfg.PageSize || !ok || to+1 >= total {
			return result, nil
		}
		from = to + 1
	}
}

// SyncAdvertisers syncs active catalog brands
func (a *VTEXAdapter) SyncAdvertisers(ctx context.Context, integ *integration.Integration, cred *integration.AccessCredential) (integration.EntityResult, error) {
	base, err := a.baseURL(integ)
	if err != nil {
		return integration.EntityResult{}, err
	}

	var brands []vtexBrand
	_, err = a.client.do(ctx, request{
		op:  "list brands",
		url: joinURL(base, "/api/catalog_system/pvt/brand/list"),
		headers: map[string]string{
			"X-VTEX-API-AppKey":   cred.AccessToken,
			"X-VTEX-API-AppToken": cred.Secondary,
		},
	}, &brands)
	if err != nil {
		return integration.EntityResult{}, err
	}

	batch := make([]integration.ExternalAdvertiser, 0, len(brands))
	for _, b := range brands {
		if !b.IsActive {
			continue
		}
		batch = append(batch, integration.ExternalAdvertiser{
			ExternalID: strconv.FormatInt(b.ID, 10),
			Name:       b.Name,
		})
	}
	return a.reconciler.ReconcileAdvertisers(ctx, integ, batch), nil
}

func (a *VTEXAdapter) baseURL(integ *integration.Integration) (string, error) {
	account := strings.TrimSpace(integ.Configuration.AccountName)
	if account == "" {
		return "", &integration.MissingCredentialsError{Provider: integration.ProviderVTEX, Field: "account_name"}
	}
	return strings.ReplaceAll(a.cfg.BaseURLTemplate, "{account}", account), nil
}

// contentRangeTotal parses "resources 0-99/250"
func contentRangeTotal(v string) (int, bool) {
	i := strings.LastIndex(v, "/")
	if i < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v[i+1:]))
	if err != nil {
		return 0, false
	}
	return n, true
}

var _ integration.ProviderAdapter = (*VTEXAdapter)(nil)
