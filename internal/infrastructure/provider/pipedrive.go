package provider

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/adinventory/backend/internal/domain/integration"
	"github.com/shopspring/decimal"
)

// pipedriveTokenHeader carries the API token so it never appears in request URLs
const pipedriveTokenHeader = "x-api-token"

// pipedriveStages maps deal status; Pipedrive stage IDs are per-pipeline and
// are mapped through per-integration overrides.
var pipedriveStages = integration.NewStageMapping(integration.StageLead, map[string]integration.Stage{
	"open": integration.StageLead,
	"won":  integration.StageClosedWon,
	"lost": integration.StageClosedLost,
})

// PipedriveAdapter syncs deals, persons and organizations through the v1 API
type PipedriveAdapter struct {
	client     apiClient
	cfg        PipedriveConfig
	reconciler integration.RecordReconciler
}

// NewPipedriveAdapter creates a new PipedriveAdapter
func NewPipedriveAdapter(cfg PipedriveConfig, httpClient *http.Client, reconciler integration.RecordReconciler) *PipedriveAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultPipedriveBaseURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	return &PipedriveAdapter{
		client:     newAPIClient(integration.ProviderPipedrive, httpClient),
		cfg:        cfg,
		reconciler: reconciler,
	}
}

// Provider returns the provider identifier
func (a *PipedriveAdapter) Provider() integration.Provider {
	return integration.ProviderPipedrive
}

type pipedrivePage[T any] struct {
	Success        bool `json:"success"`
	Data           []T  `json:"data"`
	AdditionalData struct {
		Pagination struct {
			MoreItemsInCollection bool `json:"more_items_in_collection"`
			NextStart             int  `json:"next_start"`
		} `json:"pagination"`
	} `json:"additional_data"`
}

type pipedriveDeal struct {
	ID                int64           `json:"id"`
	Title             string          `json:"title"`
	Status            string          `json:"status"`
	StageID           int64           `json:"stage_id"`
	Value             decimal.Decimal `json:"value"`
	Currency          string          `json:"currency"`
	ExpectedCloseDate string          `json:"expected_close_date"`
	OrgName           string          `json:"org_name"`
}

type pipedriveValue struct {
	Value   string `json:"value"`
	Primary bool   `json:"primary"`
}

type pipedrivePerson struct {
	ID        int64            `json:"id"`
	Name      string           `json:"name"`
	FirstName string           `json:"first_name"`
	LastName  string           `json:"last_name"`
	Email     []pipedriveValue `json:"email"`
	Phone     []pipedriveValue `json:"phone"`
	OrgName   string           `json:"org_name"`
}

type pipedriveOrganization struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// SyncOpportunities syncs deals. The raw stage is the deal status unless a
// "stage:<id>" override exists for the integration.
func (a *PipedriveAdapter) SyncOpportunities(ctx context.Context, integ *integration.Integration, cred *integration.AccessCredential) (integration.EntityResult, error) {
	stages := pipedriveStages.WithOverrides(integ.Configuration.StageMapping)
	overrides := integ.Configuration.StageMapping
	var result integration.EntityResult

	err := pipedriveList(ctx, a, cred, "/v1/deals", "list deals", func(page []pipedriveDeal) {
		batch := make([]integration.ExternalOpportunity, 0, len(page))
		for _, d := range page {
			raw := d.Status
			if key := "stage:" + strconv.FormatInt(d.StageID, 10); d.Status == "open" && overrides[key] != "" {
				raw = key
			}
			batch = append(batch, integration.ExternalOpportunity{
				ExternalID:  strconv.FormatInt(d.ID, 10),
				Name:        d.Title,
				Stage:       raw,
				Amount:      d.Value,
				Currency:    d.Currency,
				CloseDate:   parseDate(d.ExpectedCloseDate),
				AccountName: d.OrgName,
			})
		}
		result.Merge(a.reconciler.ReconcileOpportunities(ctx, integ, batch, stages))
	})
	return result, err
}

// SyncContacts syncs persons
func (a *PipedriveAdapter) SyncContacts(ctx context.Context, integ *integration.Integration, cred *integration.AccessCredential) (integration.EntityResult, error) {
	var result integration.EntityResult

	err := pipedriveList(ctx, a, cred, "/v1/persons", "list persons", func(page []pipedrivePerson) {
		batch := make([]integration.ExternalContact, 0, len(page))
		for _, p := range page {
			first, last := p.FirstName, p.LastName
			if first == "" && last == "" {
				first = p.Name
			}
			batch = append(batch, integration.ExternalContact{
				ExternalID:  strconv.FormatInt(p.ID, 10),
				FirstName:   first,
				LastName:    last,
				Email:       primaryValue(p.Email),
				Phone:       primaryValue(p.Phone),
				CompanyName: p.OrgName,
			})
		}
		result.Merge(a.reconciler.ReconcileContacts(ctx, integ, batch))
	})
	return result, err
}

// SyncAdvertisers syncs organizations
func (a *PipedriveAdapter) SyncAdvertisers(ctx context.Context, integ *integration.Integration, cred *integration.AccessCredential) (integration.EntityResult, error) {
	var result integration.EntityResult

	err := pipedriveList(ctx, a, cred, "/v1/organizations", "list organizations", func(page []pipedriveOrganization) {
		batch := make([]integration.ExternalAdvertiser, 0, len(page))
		for _, o := range page {
			batch = append(batch, integration.ExternalAdvertiser{
				ExternalID: strconv.FormatInt(o.ID, 10),
				Name:       o.Name,
			})
		}
		result.Merge(a.reconciler.ReconcileAdvertisers(ctx, integ, batch))
	})
	return result, err
}

// pipedriveList pages with start/limit until more_items_in_collection is false
func pipedriveList[T any](
	ctx context.Context,
	a *PipedriveAdapter,
	cred *integration.AccessCredential,
	path string,
	op string,
	handle func([]T),
) error {
	start := 0
	for {
		q := url.Values{}
		q.Set("start", strconv.Itoa(start))
		q.Set("limit", strconv.Itoa(a.cfg.PageSize))

		var page pipedrivePage[T]
		if _, err := a.client.do(ctx, request{
			op:      op,
			url:     joinURL(a.cfg.BaseURL, path) + "?" + q.Encode(),
			headers: map[string]string{pipedriveTokenHeader: cred.AccessToken},
		}, &page); err != nil {
			return err
		}
		if len(page.Data) > 0 {
			handle(page.Data)
		}

		p := page.AdditionalData.Pagination
		if !p.MoreItemsInCollection || p.NextStart <= start {
			return nil
		}
		start = p.NextStart
	}
}

func primaryValue(values []pipedriveValue) string {
	for _, v := range values {
		if v.Primary {
			return v.Value
		}
	}
	if len(values) > 0 {
		return values[0].Value
	}
	return ""
}

var _ integration.ProviderAdapter = (*PipedriveAdapter)(nil)
