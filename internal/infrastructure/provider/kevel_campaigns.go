package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/adinventory/backend/internal/domain/integration"
)

const kevelDateLayout = "2006-01-02T15:04:05Z"

type kevelSite struct {
	ID    int64  `json:"Id"`
	Title string `json:"Title"`
	URL   string `json:"Url"`
}

type kevelZone struct {
	ID     int64  `json:"Id"`
	Name   string `json:"Name"`
	SiteID int64  `json:"SiteId"`
}

type kevelID struct {
	ID int64 `json:"Id"`
}

// ListAdvertisers returns every advertiser of the network
func (a *KevelAdapter) ListAdvertisers(ctx context.Context, _ *integration.Integration, cred *integration.AccessCredential) ([]integration.ExternalAdvertiserRef, error) {
	var out []integration.ExternalAdvertiserRef
	err := kevelList(ctx, a, cred, "/v1/advertiser", nil, "list advertisers", func(page []kevelAdvertiser) {
		for _, adv := range page {
			out = append(out, integration.ExternalAdvertiserRef{ID: strconv.FormatInt(adv.ID, 10), Name: adv.Title})
		}
	})
	return out, err
}

// CreateAdvertiser creates an active advertiser
func (a *KevelAdapter) CreateAdvertiser(ctx context.Context, _ *integration.Integration, cred *integration.AccessCredential, name string) (*integration.ExternalAdvertiserRef, error) {
	var created kevelAdvertiser
	_, err := a.client.do(ctx, request{
		op:      "create advertiser",
		method:  http.MethodPost,
		url:     joinURL(a.cfg.BaseURL, "/v1/advertiser"),
		headers: a.headers(cred),
		body:    map[string]any{"Title": name, "IsActive": true},
	}, &created)
	if err != nil {
		return nil, err
	}
	if created.ID == 0 {
		return nil, fmt.Errorf("%w: kevel create advertiser returned no Id", integration.ErrInvalidResponse)
	}
	return &integration.ExternalAdvertiserRef{ID: strconv.FormatInt(created.ID, 10), Name: created.Title}, nil
}

// CreateCampaign creates a campaign and returns its ID
func (a *KevelAdapter) CreateCampaign(ctx context.Context, _ *integration.Integration, cred *integration.AccessCredential, spec integration.ExternalCampaignSpec) (string, error) {
	body, err := kevelCampaignBody(spec)
	if err != nil {
		return "", err
	}

	var created kevelID
	_, err = a.client.do(ctx, request{
		op:      "create campaign",
		method:  http.MethodPost,
		url:     joinURL(a.cfg.BaseURL, "/v1/campaign"),
		headers: a.headers(cred),
		body:    body,
	}, &created)
	if err != nil {
		return "", err
	}
	if created.ID == 0 {
		return "", fmt.Errorf("%w: kevel create campaign returned no Id", integration.ErrInvalidResponse)
	}
	return strconv.FormatInt(created.ID, 10), nil
}

// UpdateCampaign updates name, dates, budget and advertiser. Activation is
// left as it is on the Kevel side.
func (a *KevelAdapter) UpdateCampaign(ctx context.Context, _ *integration.Integration, cred *integration.AccessCredential, externalID string, spec integration.ExternalCampaignSpec) error {
	current, err := a.getObject(ctx, cred, "/v1/campaign/"+url.PathEscape(externalID), "get campaign")
	if err != nil {
		return err
	}
	body, err := kevelCampaignBody(spec)
	if err != nil {
		return err
	}
	for k, v := range body {
		if k == "IsActive" {
			continue
		}
		current[k] = v
	}
	return a.putObject(ctx, cred, "/v1/campaign/"+url.PathEscape(externalID), "update campaign", current)
}

// SetCampaignActive flips the campaign's IsActive flag
func (a *KevelAdapter) SetCampaignActive(ctx context.Context, _ *integration.Integration, cred *integration.AccessCredential, externalID string, active bool) error {
	return a.setActive(ctx, cred, "/v1/campaign/"+url.PathEscape(externalID), "campaign", active)
}

// ListSites returns every site of the network
func (a *KevelAdapter) ListSites(ctx context.Context, _ *integration.Integration, cred *integration.AccessCredential) ([]integration.ExternalSite, error) {
	var out []integration.ExternalSite
	err := kevelList(ctx, a, cred, "/v1/site", nil, "list sites", func(page []kevelSite) {
		for _, s := range page {
			out = append(out, integration.ExternalSite{ID: strconv.FormatInt(s.ID, 10), Name: s.Title, URL: s.URL})
		}
	})
	return out, err
}

// ListZones returns the zones of one site
func (a *KevelAdapter) ListZones(ctx context.Context, _ *integration.Integration, cred *integration.AccessCredential, siteID string) ([]integration.ExternalZone, error) {
	var out []integration.ExternalZone
	params := url.Values{"siteId": []string{siteID}}
	err := kevelList(ctx, a, cred, "/v1/zone", params, "list zones", func(page []kevelZone) {
		for _, z := range page {
			out = append(out, integration.ExternalZone{
				ID:     strconv.FormatInt(z.ID, 10),
				SiteID: strconv.FormatInt(z.SiteID, 10),
				Name:   z.Name,
			})
		}
	})
	return out, err
}

// CreateFlight creates a flight targeting one site/zone pair
func (a *KevelAdapter) CreateFlight(ctx context.Context, _ *integration.Integration, cred *integration.AccessCredential, spec integration.ExternalFlightSpec) (string, error) {
	campaignID, err := strconv.ParseInt(spec.CampaignID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("kevel: invalid campaign id %q: %w", spec.CampaignID, err)
	}
	zoneID, err := strconv.ParseInt(spec.ZoneID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("kevel: invalid zone id %q: %w", spec.ZoneID, err)
	}
	siteID, err := strconv.ParseInt(spec.SiteID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("kevel: invalid site id %q: %w", spec.SiteID, err)
	}

	body := map[string]any{
		"Name":         spec.Name,
		"CampaignId":   campaignID,
		"IsActive":     spec.Active,
		"StartDateISO": spec.StartDate.UTC().Format(kevelDateLayout),
		"SiteZoneTargeting": []map[string]any{
			{"SiteId": siteID, "ZoneId": zoneID, "IsExclude": false},
		},
	}
	if spec.EndDate != nil {
		body["EndDateISO"] = spec.EndDate.UTC().Format(kevelDateLayout)
	}
	if a.cfg.PriorityID > 0 {
		body["PriorityId"] = a.cfg.PriorityID
	}

	var created kevelID
	_, err = a.client.do(ctx, request{
		op:      "create flight",
		method:  http.MethodPost,
		url:     joinURL(a.cfg.BaseURL, "/v1/flight"),
		headers: a.headers(cred),
		body:    body,
	}, &created)
	if err != nil {
		return "", err
	}
	if created.ID == 0 {
		return "", fmt.Errorf("%w: kevel create flight returned no Id", integration.ErrInvalidResponse)
	}
	return strconv.FormatInt(created.ID, 10), nil
}

// SetFlightActive flips the flight's IsActive flag
func (a *KevelAdapter) SetFlightActive(ctx context.Context, _ *integration.Integration, cred *integration.AccessCredential, flightID string, active bool) error {
	return a.setActive(ctx, cred, "/v1/flight/"+url.PathEscape(flightID), "flight", active)
}

// setActive reads the object, flips IsActive and writes it back; Kevel PUTs
// replace the whole object.
func (a *KevelAdapter) setActive(ctx context.Context, cred *integration.AccessCredential, path, kind string, active bool) error {
	current, err := a.getObject(ctx, cred, path, "get "+kind)
	if err != nil {
		return err
	}
	current["IsActive"] = active
	return a.putObject(ctx, cred, path, "update "+kind, current)
}

func (a *KevelAdapter) getObject(ctx context.Context, cred *integration.AccessCredential, path, op string) (map[string]any, error) {
	var obj map[string]any
	if _, err := a.client.do(ctx, request{op: op, url: joinURL(a.cfg.BaseURL, path), headers: a.headers(cred)}, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: kevel %s returned an empty body", integration.ErrInvalidResponse, op)
	}
	return obj, nil
}

func (a *KevelAdapter) putObject(ctx context.Context, cred *integration.AccessCredential, path, op string, obj map[string]any) error {
	_, err := a.client.do(ctx, request{
		op:      op,
		method:  http.MethodPut,
		url:     joinURL(a.cfg.BaseURL, path),
		headers: a.headers(cred),
		body:    obj,
	}, nil)
	return err
}

func kevelCampaignBody(spec integration.ExternalCampaignSpec) (map[string]any, error) {
	advertiserID, err := strconv.ParseInt(spec.AdvertiserID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("kevel: invalid advertiser id %q: %w", spec.AdvertiserID, err)
	}
	body := map[string]any{
		"Name":         spec.Name,
		"AdvertiserId": advertiserID,
		"IsActive":     spec.Active,
		"StartDateISO": spec.StartDate.UTC().Format(kevelDateLayout),
	}
	if spec.EndDate != nil {
		body["EndDateISO"] = spec.EndDate.UTC().Format(kevelDateLayout)
	}
	if spec.Budget.IsPositive() {
		body["Price"] = spec.Budget.InexactFloat64()
	}
	if spec.StartDate.IsZero() {
		body["StartDateISO"] = time.Now().UTC().Format(kevelDateLayout)
	}
	return body, nil
}
