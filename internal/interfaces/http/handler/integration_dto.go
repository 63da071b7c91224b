package handler

import (
	"time"

	appintegration "github.com/adinventory/backend/internal/application/integration"
	"github.com/adinventory/backend/internal/domain/integration"
)

// RunSyncRequest represents a request to run a sync
type RunSyncRequest struct {
	SyncType string `json:"sync_type" binding:"omitempty,oneof=full opportunities contacts advertisers"`
}

// EntityResultResponse is the per-entity breakdown of a run
type EntityResultResponse struct {
	Fetched int      `json:"fetched"`
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Deleted int      `json:"deleted"`
	Errors  []string `json:"errors"`
}

// SyncResultResponse represents the outcome of a sync run
type SyncResultResponse struct {
	Success   bool                            `json:"success"`
	Synced    int                             `json:"synced"`
	Errors    int                             `json:"errors"`
	Status    string                          `json:"status" enums:"completed,completed_with_errors,failed"`
	HistoryID string                          `json:"history_id"`
	Error     string                          `json:"error,omitempty"`
	Details   map[string]EntityResultResponse `json:"details"`
}

// SyncHistoryResponse represents a history row
type SyncHistoryResponse struct {
	ID         string                          `json:"id"`
	SyncType   string                          `json:"sync_type"`
	Status     string                          `json:"status"`
	Synced     int                             `json:"synced"`
	Errors     int                             `json:"errors"`
	Error      string                          `json:"error,omitempty"`
	StartedAt  string                          `json:"started_at"`
	FinishedAt string                          `json:"finished_at"`
	Details    map[string]EntityResultResponse `json:"details"`
}

// StartJobRequest represents a request to start a forecast or availability job
type StartJobRequest struct {
	JobKind    string    `json:"job_kind" binding:"required,oneof=forecast availability"`
	StartDate  time.Time `json:"start_date" binding:"required"`
	EndDate    time.Time `json:"end_date" binding:"required"`
	Priority   int       `json:"priority" binding:"omitempty,min=0,max=100"`
	SampleRate float64   `json:"sample_rate" binding:"omitempty,gt=0,lte=1"`
	Targeting  struct {
		ZoneIDs []int64 `json:"zone_ids"`
		SiteIDs []int64 `json:"site_ids"`
	} `json:"targeting"`
}

// toJobSpec converts the request to a domain spec
func (r StartJobRequest) toJobSpec() integration.JobSpec {
	return integration.JobSpec{
		Kind:       integration.JobKind(r.JobKind),
		StartDate:  r.StartDate,
		EndDate:    r.EndDate,
		Priority:   r.Priority,
		SampleRate: r.SampleRate,
		Targeting: integration.Targeting{
			ZoneIDs: r.Targeting.ZoneIDs,
			SiteIDs: r.Targeting.SiteIDs,
		},
	}
}

// JobResponse represents the state of an async job
type JobResponse struct {
	JobID    string         `json:"job_id"`
	Kind     string         `json:"job_kind"`
	Status   string         `json:"status" enums:"enqueued,running,finished,error"`
	Progress int            `json:"progress"`
	Result   map[string]any `json:"result,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// PushCampaignRequest represents a campaign push request
type PushCampaignRequest struct {
	IntegrationID string `json:"integration_id" binding:"required,uuid"`
}

// PushCampaignResponse represents the outcome of a push
type PushCampaignResponse struct {
	Success              bool     `json:"success"`
	ExternalCampaignID   string   `json:"external_campaign_id"`
	ExternalAdvertiserID string   `json:"external_advertiser_id,omitempty"`
	SubUnitsCreated      int      `json:"sub_units_created"`
	SubUnitErrors        []string `json:"sub_unit_errors,omitempty"`
	Message              string   `json:"message"`
}

// ToggleCampaignRequest represents a campaign activation toggle
type ToggleCampaignRequest struct {
	IntegrationID string `json:"integration_id" binding:"required,uuid"`
	Activate      *bool  `json:"activate" binding:"required"`
}

// ToggleCampaignResponse represents the outcome of a toggle
type ToggleCampaignResponse struct {
	Success         bool   `json:"success"`
	Status          string `json:"status" enums:"active,paused"`
	SubUnitsUpdated int    `json:"sub_units_updated"`
	SubUnitsFailed  int    `json:"sub_units_failed"`
}

// DeletedCountsResponse counts the rows removed per cascade step
type DeletedCountsResponse struct {
	Mappings         int64 `json:"mappings"`
	History          int64 `json:"history"`
	Campaigns        int64 `json:"campaigns"`
	AdSpaces         int64 `json:"ad_spaces"`
	CanonicalRecords int64 `json:"canonical_records"`
	Integration      int64 `json:"integration"`
}

// DeleteIntegrationResponse represents the outcome of a cascade delete
type DeleteIntegrationResponse struct {
	Success       bool                  `json:"success"`
	DeletedCounts DeletedCountsResponse `json:"deleted_counts"`
	StepErrors    map[string]string     `json:"step_errors,omitempty"`
}

func toEntityResults(ops map[integration.EntityClass]integration.EntityResult) map[string]EntityResultResponse {
	out := make(map[string]EntityResultResponse, len(ops))
	for entity, r := range ops {
		errs := r.Errors
		if errs == nil {
			errs = []string{}
		}
		out[string(entity)] = EntityResultResponse{
			Fetched: r.Fetched,
			Created: r.Created,
			Updated: r.Updated,
			Deleted: r.Deleted,
			Errors:  errs,
		}
	}
	return out
}

func toSyncResultResponse(rec *integration.SyncHistoryRecord) SyncResultResponse {
	return SyncResultResponse{
		Success:   rec.Status != integration.SyncStatusFailed,
		Synced:    rec.SyncedCount,
		Errors:    rec.ErrorCount,
		Status:    string(rec.Status),
		HistoryID: rec.ID.String(),
		Error:     rec.Error,
		Details:   toEntityResults(rec.Operations),
	}
}

func toSyncHistoryResponse(rec integration.SyncHistoryRecord) SyncHistoryResponse {
	return SyncHistoryResponse{
		ID:         rec.ID.String(),
		SyncType:   string(rec.SyncType),
		Status:     string(rec.Status),
		Synced:     rec.SyncedCount,
		Errors:     rec.ErrorCount,
		Error:      rec.Error,
		StartedAt:  rec.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt: rec.FinishedAt.UTC().Format(time.RFC3339),
		Details:    toEntityResults(rec.Operations),
	}
}

func toJobResponse(job *integration.AsyncJob) JobResponse {
	return JobResponse{
		JobID:    job.ExternalJobID,
		Kind:     string(job.Kind),
		Status:   string(job.Status),
		Progress: job.Progress,
		Result:   job.Result,
		Error:    job.Error,
	}
}

func toPushCampaignResponse(r *appintegration.PushResult) PushCampaignResponse {
	message := "Campaign created"
	if r.Updated {
		message = "Campaign updated"
	}
	if len(r.SubUnitErrors) > 0 {
		message += " with sub-unit errors"
	}
	return PushCampaignResponse{
		Success:              true,
		ExternalCampaignID:   r.ExternalCampaignID,
		ExternalAdvertiserID: r.ExternalAdvertiserID,
		SubUnitsCreated:      r.SubUnitsCreated,
		SubUnitErrors:        r.SubUnitErrors,
		Message:              message,
	}
}

func toDeleteIntegrationResponse(s *appintegration.DeletionSummary) DeleteIntegrationResponse {
	return DeleteIntegrationResponse{
		Success: s.Complete(),
		DeletedCounts: DeletedCountsResponse{
			Mappings:         s.Mappings,
			History:          s.History,
			Campaigns:        s.Campaigns,
			AdSpaces:         s.AdSpaces,
			CanonicalRecords: s.CanonicalRecords,
			Integration:      s.Integration,
		},
		StepErrors: s.StepErrors,
	}
}
