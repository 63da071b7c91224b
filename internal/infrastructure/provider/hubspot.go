package provider

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/adinventory/backend/internal/domain/integration"
	"github.com/shopspring/decimal"
)

// hubspotStages maps the default HubSpot sales pipeline
var hubspotStages = integration.NewStageMapping(integration.StageLead, map[string]integration.Stage{
	"appointmentscheduled":  integration.StageQualification,
	"qualifiedtobuy":        integration.StageQualification,
	"presentationscheduled": integration.StageProposal,
	"decisionmakerboughtin": integration.StageProposal,
	"contractsent":          integration.StageNegotiation,
	"closedwon":             integration.StageClosedWon,
	"closedlost":            integration.StageClosedLost,
})

// HubSpotAdapter syncs deals, contacts and companies through the CRM v3 API
type HubSpotAdapter struct {
	client     apiClient
	cfg        HubSpotConfig
	reconciler integration.RecordReconciler
}

// NewHubSpotAdapter creates a new HubSpotAdapter
func NewHubSpotAdapter(cfg HubSpotConfig, httpClient *http.Client, reconciler integration.RecordReconciler) *HubSpotAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultHubSpotBaseURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	return &HubSpotAdapter{
		client:     newAPIClient(integration.ProviderHubSpot, httpClient),
		cfg:        cfg,
		reconciler: reconciler,
	}
}

// Provider returns the provider identifier
func (a *HubSpotAdapter) Provider() integration.Provider {
	return integration.ProviderHubSpot
}

type hubspotObject struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

type hubspotPage struct {
	Results []hubspotObject `json:"results"`
	Paging  *struct {
		Next *struct {
			After string `json:"after"`
		} `json:"next"`
	} `json:"paging"`
}

// SyncOpportunities syncs deals
func (a *HubSpotAdapter) SyncOpportunities(ctx context.Context, integ *integration.Integration, cred *integration.AccessCredential) (integration.EntityResult, error) {
	stages := hubspotStages.WithOverrides(integ.Configuration.StageMapping)
	var result integration.EntityResult

	err := a.list(ctx, cred, "deals", []string{"dealname", "dealstage", "amount", "closedate", "deal_currency_code"}, func(page []hubspotObject) {
		batch := make([]integration.ExternalOpportunity, 0, len(page))
		for _, obj := range page {
			p := obj.Properties
			amount, _ := decimal.NewFromString(p["amount"])
			batch = append(batch, integration.ExternalOpportunity{
				ExternalID: obj.ID,
				Name:       p["dealname"],
				Stage:      p["dealstage"],
				Amount:     amount,
				Currency:   p["deal_currency_code"],
				CloseDate:  parseDate(p["closedate"]),
			})
		}
		result.Merge(a.reconciler.ReconcileOpportunities(ctx, integ, batch, stages))
	})
	return result, err
}

// SyncContacts syncs contacts
func (a *HubSpotAdapter) SyncContacts(ctx context.Context, integ *integration.Integration, cred *integration.AccessCredential) (integration.EntityResult, error) {
	var result integration.EntityResult

	err := a.list(ctx, cred, "contacts", []string{"firstname", "lastname", "email", "phone", "company"}, func(page []hubspotObject) {
		batch := make([]integration.ExternalContact, 0, len(page))
		for _, obj := range page {
			p := obj.Properties
			batch = append(batch, integration.ExternalContact{
				ExternalID:  obj.ID,
				FirstName:   p["firstname"],
				LastName:    p["lastname"],
				Email:       p["email"],
				Phone:       p["phone"],
				CompanyName: p["company"],
			})
		}
		result.Merge(a.reconciler.ReconcileContacts(ctx, integ, batch))
	})
	return result, err
}

// SyncAdvertisers syncs companies
func (a *HubSpotAdapter) SyncAdvertisers(ctx context.Context, integ *integration.Integration, cred *integration.AccessCredential) (integration.EntityResult, error) {
	var result integration.EntityResult

	err := a.list(ctx, cred, "companies", []string{"name", "domain", "industry"}, func(page []hubspotObject) {
		batch := make([]integration.ExternalAdvertiser, 0, len(page))
		for _, obj := range page {
			p := obj.Properties
			batch = append(batch, integration.ExternalAdvertiser{
				ExternalID: obj.ID,
				Name:       p["name"],
				Website:    p["domain"],
				Industry:   p["industry"],
			})
		}
		result.Merge(a.reconciler.ReconcileAdvertisers(ctx, integ, batch))
	})
	return result, err
}

// list pages through /crm/v3/objects/<object> with cursor paging
func (a *HubSpotAdapter) list(
	ctx context.Context,
	cred *integration.AccessCredential,
	object string,
	properties []string,
	handle func([]hubspotObject),
) error {
	after := ""
	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(a.cfg.PageSize))
		q.Set("properties", strings.Join(properties, ","))
		q.Set("archived", "false")
		if after != "" {
			q.Set("after", after)
		}

		var page hubspotPage
		_, err := a.client.do(ctx, request{
			op:      "list " + object,
			url:     joinURL(a.cfg.BaseURL, "/crm/v3/objects/"+object) + "?" + q.Encode(),
			headers: bearer(cred.AccessToken),
		}, &page)
		if err != nil {
			return err
		}
		if len(page.Results) > 0 {
			handle(page.Results)
		}

		if page.Paging == nil || page.Paging.Next == nil || page.Paging.Next.After == "" {
			return nil
		}
		after = page.Paging.Next.After
	}
}

var _ integration.ProviderAdapter = (*HubSpotAdapter)(nil)
