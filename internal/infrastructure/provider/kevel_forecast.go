package provider

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/adinventory/backend/internal/domain/integration"
)

type kevelForecastResponse struct {
	ID       string         `json:"id"`
	Status   string         `json:"status"`
	Progress float64        `json:"progress"`
	Result   map[string]any `json:"result"`
	Error    string         `json:"error"`
}

// StartJob submits a forecast or availability job
func (a *KevelAdapter) StartJob(ctx context.Context, integ *integration.Integration, cred *integration.AccessCredential, spec integration.JobSpec) (*integration.AsyncJob, error) {
	body := map[string]any{
		"Kind":      string(spec.Kind),
		"StartDate": spec.StartDate.UTC().Format(kevelDateLayout),
		"EndDate":   spec.EndDate.UTC().Format(kevelDateLayout),
	}
	if integ.Configuration.NetworkID > 0 {
		body["NetworkId"] = integ.Configuration.NetworkID
	}
	if spec.SampleRate > 0 {
		body["SampleRate"] = spec.SampleRate
	}
	if spec.Priority > 0 {
		body["Priority"] = spec.Priority
	}
	if len(spec.Targeting.ZoneIDs) > 0 {
		body["ZoneIds"] = spec.Targeting.ZoneIDs
	}
	if len(spec.Targeting.SiteIDs) > 0 {
		body["SiteIds"] = spec.Targeting.SiteIDs
	}

	var resp kevelForecastResponse
	_, err := a.client.do(ctx, request{
		op:      "start " + string(spec.Kind),
		method:  http.MethodPost,
		url:     joinURL(a.cfg.ForecastURL, "/v1/forecast"),
		headers: a.headers(cred),
		body:    body,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("%w: kevel forecast returned no id", integration.ErrInvalidResponse)
	}

	job := kevelJob(resp)
	job.Kind = spec.Kind
	if resp.Status == "" {
		job.Status = integration.JobStatusEnqueued
	}
	return job, nil
}

// PollJob reads the current state of a job
func (a *KevelAdapter) PollJob(ctx context.Context, _ *integration.Integration, cred *integration.AccessCredential, jobID string) (*integration.AsyncJob, error) {
	var resp kevelForecastResponse
	_, err := a.client.do(ctx, request{
		op:      "poll forecast",
		url:     joinURL(a.cfg.ForecastURL, "/v1/forecast/"+url.PathEscape(jobID)),
		headers: a.headers(cred),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.ID == "" {
		resp.ID = jobID
	}
	return kevelJob(resp), nil
}

func kevelJob(resp kevelForecastResponse) *integration.AsyncJob {
	job := &integration.AsyncJob{
		ExternalJobID: resp.ID,
		Status:        mapKevelJobStatus(resp.Status),
		Progress:      kevelProgress(resp.Progress),
		Error:         resp.Error,
	}
	switch job.Status {
	case integration.JobStatusFinished:
		job.Progress = 100
		job.Result = resp.Result
	case integration.JobStatusError:
		if job.Error == "" {
			job.Error = "forecast failed"
		}
	}
	return job
}

// mapKevelJobStatus maps provider states; anything unknown is still running
func mapKevelJobStatus(status string) integration.JobStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "enqueued", "queued", "pending", "created":
		return integration.JobStatusEnqueued
	case "finished", "complete", "completed", "done", "success":
		return integration.JobStatusFinished
	case "error", "failed", "cancelled", "canceled":
		return integration.JobStatusError
	default:
		return integration.JobStatusRunning
	}
}

// kevelProgress converts the reported percentage, clamped to [0,100]
func kevelProgress(p float64) int {
	return integration.ClampProgress(int(math.Round(p)))
}
