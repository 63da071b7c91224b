package provider

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/adinventory/backend/internal/domain/integration"
	"github.com/shopspring/decimal"
)

// SOQL queries per entity class
const (
	salesforceOpportunityQuery = "SELECT Id, Name, StageName, Amount, CloseDate, Account.Name FROM Opportunity"
	salesforceContactQuery     = "SELECT Id, FirstName, LastName, Email, Phone, Account.Name FROM Contact"
	salesforceAccountQuery     = "SELECT Id, Name, Website, Industry FROM Account"
)

// salesforceStages maps the standard Salesforce sales process
var salesforceStages = integration.NewStageMapping(integration.StageLead, map[string]integration.Stage{
	"Prospecting":          integration.StageLead,
	"Qualification":        integration.StageQualification,
	"Needs Analysis":       integration.StageQualification,
	"Value Proposition":    integration.StageProposal,
	"Id. Decision Makers":  integration.StageProposal,
	"Perception Analysis":  integration.StageProposal,
	"Proposal/Price Quote": integration.StageProposal,
	"Negotiation/Review":   integration.StageNegotiation,
	"Closed Won":           integration.StageClosedWon,
	"Closed Lost":          integration.StageClosedLost,
})

// SalesforceAdapter syncs opportunities, contacts and accounts through SOQL
type SalesforceAdapter struct {
	client     apiClient
	cfg        SalesforceConfig
	reconciler integration.RecordReconciler
}

// NewSalesforceAdapter creates a new SalesforceAdapter
func NewSalesforceAdapter(cfg SalesforceConfig, httpClient *http.Client, reconciler integration.RecordReconciler) *SalesforceAdapter {
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultSalesforceAPIVersion
	}
	return &SalesforceAdapter{
		client:     newAPIClient(integration.ProviderSalesforce, httpClient),
		cfg:        cfg,
		reconciler: reconciler,
	}
}

// Provider returns the provider identifier
func (a *SalesforceAdapter) Provider() integration.Provider {
	return integration.ProviderSalesforce
}

type salesforceQueryResponse[T any] struct {
	TotalSize      int    `json:"totalSize"`
	Done           bool   `json:"done"`
	NextRecordsURL string `json:"nextRecordsUrl"`
	Records        []T    `json:"records"`
}

type salesforceAccountRef struct {
	Name string `json:"Name"`
}

type salesforceOpportunity struct {
	ID        string                `json:"Id"`
	Name      string                `json:"Name"`
	StageName string                `json:"StageName"`
	Amount    decimal.NullDecimal   `json:"Amount"`
	CloseDate string                `json:"CloseDate"`
	Account   *salesforceAccountRef `json:"Account"`
}

type salesforceContact struct {
	ID        string                `json:"Id"`
	FirstName string                `json:"FirstName"`
	LastName  string                `json:"LastName"`
	Email     string                `json:"Email"`
	Phone     string                `json:"Phone"`
	Account   *salesforceAccountRef `json:"Account"`
}

type salesforceAccount struct {
	ID       string `json:"Id"`
	Name     string `json:"Name"`
	Website  string `json:"Website"`
	Industry string `json:"Industry"`
}

// SyncOpportunities syncs Opportunity records
func (a *SalesforceAdapter) SyncOpportunities(ctx context.Context, integ *integration.Integration, cred *integration.AccessCredential) (integration.EntityResult, error) {
	stages := salesforceStages.WithOverrides(integ.Configuration.StageMapping)
	var result integration.EntityResult

	err := salesforceQuery(ctx, a, cred, "query opportunities", salesforceOpportunityQuery, func(page []salesforceOpportunity) {
		batch := make([]integration.ExternalOpportunity, 0, len(page))
		for _, rec := range page {
			opp := integration.ExternalOpportunity{
				ExternalID: rec.ID,
				Name:       rec.Name,
				Stage:      rec.StageName,
				Amount:     rec.Amount.Decimal,
				CloseDate:  parseDate(rec.CloseDate),
			}
			if rec.Account != nil {
				opp.AccountName = rec.Account.Name
			}
			batch = append(batch, opp)
		}
		result.Merge(a.reconciler.ReconcileOpportunities(ctx, integ, batch, stages))
	})
	return result, err
}

// SyncContacts syncs Contact records
func (a *SalesforceAdapter) SyncContacts(ctx context.Context, integ *integration.Integration, cred *integration.AccessCredential) (integration.EntityResult, error) {
	var result integration.EntityResult

	err := salesforceQuery(ctx, a, cred, "query contacts", salesforceContactQuery, func(page []salesforceContact) {
		batch := make([]integration.ExternalContact, 0, len(page))
		for _, rec := range page {
			c := integration.ExternalContact{
				ExternalID: rec.ID,
				FirstName:  rec.FirstName,
				LastName:   rec.LastName,
				Email:      rec.Email,
				Phone:      rec.Phone,
			}
			if rec.Account != nil {
				c.CompanyName = rec.Account.Name
			}
			batch = append(batch, c)
		}
		result.Merge(a.reconciler.ReconcileContacts(ctx, integ, batch))
	})
	return result, err
}

// SyncAdvertisers syncs Account records
func (a *SalesforceAdapter) SyncAdvertisers(ctx context.Context, integ *integration.Integration, cred *integration.AccessCredential) (integration.EntityResult, error) {
	var result integration.EntityResult

	err := salesforceQuery(ctx, a, cred, "query accounts", salesforceAccountQuery, func(page []salesforceAccount) {
		batch := make([]integration.ExternalAdvertiser, 0, len(page))
		for _, rec := range page {
			batch = append(batch, integration.ExternalAdvertiser{
				ExternalID: rec.ID,
				Name:       rec.Name,
				Website:    rec.Website,
				Industry:   rec.Industry,
			})
		}
		result.Merge(a.reconciler.ReconcileAdvertisers(ctx, integ, batch))
	})
	return result, err
}

// salesforceQuery runs a SOQL query and follows nextRecordsUrl until done
func salesforceQuery[T any](
	ctx context.Context,
	a *SalesforceAdapter,
	cred *integration.AccessCredential,
	op string,
	soql string,
	handle func([]T),
) error {
	base := strings.TrimRight(cred.InstanceURL, "/")
	next := base + "/services/data/" + a.cfg.APIVersion + "/query?q=" + url.QueryEscape(soql)

	for next != "" {
		var page salesforceQueryResponse[T]
		if _, err := a.client.do(ctx, request{op: op, url: next, headers: bearer(cred.AccessToken)}, &page); err != nil {
			return err
		}
		if len(page.Records) > 0 {
			handle(page.Records)
		}
		if page.Done || page.NextRecordsURL == "" {
			break
		}
		next = base + page.NextRecordsURL
	}
	return nil
}

// parseDate reads a YYYY-MM-DD date or an RFC 3339 timestamp
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

var _ integration.ProviderAdapter = (*SalesforceAdapter)(nil)
