package handler

import (
	"context"
	"net/http"

	appintegration "github.com/adinventory/backend/internal/application/integration"
	"github.com/adinventory/backend/internal/domain/integration"
	"github.com/adinventory/backend/internal/infrastructure/logger"
	"github.com/adinventory/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SyncRunner runs syncs and reads their history
type SyncRunner interface {
	RunSync(ctx context.Context, companyID, integrationID uuid.UUID, syncType integration.SyncType) (*integration.SyncHistoryRecord, error)
	ListHistory(ctx context.Context, companyID, integrationID uuid.UUID, page, pageSize int) ([]integration.SyncHistoryRecord, int64, error)
}

// JobRunner starts and polls provider-side async jobs
type JobRunner interface {
	Start(ctx context.Context, companyID, integrationID uuid.UUID, spec integration.JobSpec) (*integration.AsyncJob, error)
	Poll(ctx context.Context, companyID, integrationID uuid.UUID, jobID string) (*integration.AsyncJob, error)
}

// IntegrationDeleter runs the deletion cascade
type IntegrationDeleter interface {
	DeleteIntegration(ctx context.Context, companyID, integrationID uuid.UUID) (*appintegration.DeletionSummary, error)
}

// IntegrationHandler handles integration sync, job and deletion endpoints
type IntegrationHandler struct {
	BaseHandler
	syncs    SyncRunner
	jobs     JobRunner
	deletion IntegrationDeleter
}

// NewIntegrationHandler creates a new IntegrationHandler
func NewIntegrationHandler(syncs SyncRunner, jobs JobRunner, deletion IntegrationDeleter) *IntegrationHandler {
	return &IntegrationHandler{
		syncs:    syncs,
		jobs:     jobs,
		deletion: deletion,
	}
}

// scope resolves the company and the integration path parameter
func (h *IntegrationHandler) scope(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return uuid.Nil, uuid.Nil, false
	}
	integrationID, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid integration ID format")
		return uuid.Nil, uuid.Nil, false
	}
	c.Request = c.Request.WithContext(logger.WithIntegrationID(c.Request.Context(), integrationID.String()))
	return companyID, integrationID, true
}

// RunSync handles POST /integrations/:id/sync
// Pulls opportunities, contacts or advertisers from the provider and reconciles them.
func (h *IntegrationHandler) RunSync(c *gin.Context) {
	companyID, integrationID, ok := h.scope(c)
	if !ok {
		return
	}

	var req RunSyncRequest
	if c.Request.ContentLength > 0 && !h.BindJSON(c, &req) {
		return
	}

	rec, err := h.syncs.RunSync(c.Request.Context(), companyID, integrationID, integration.SyncType(req.SyncType))
	if err != nil {
		// Runs that got far enough to write history still report it
		if rec != nil {
			h.HandleErrorWithData(c, err, toSyncResultResponse(rec))
			return
		}
		h.HandleError(c, err)
		return
	}

	h.Success(c, toSyncResultResponse(rec))
}

// ListHistory handles GET /integrations/:id/history
// Pages through the sync runs of an integration, newest first.
func (h *IntegrationHandler) ListHistory(c *gin.Context) {
	companyID, integrationID, ok := h.scope(c)
	if !ok {
		return
	}

	var page dto.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		h.BadRequest(c, "Invalid pagination parameters")
		return
	}
	page = page.Normalize()

	records, total, err := h.syncs.ListHistory(c.Request.Context(), companyID, integrationID, page.Page, page.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]SyncHistoryResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, toSyncHistoryResponse(rec))
	}
	h.SuccessWithMeta(c, items, total, page.Page, page.PageSize)
}

// StartJob handles POST /integrations/:id/jobs
// Starts a forecast or availability job on the provider.
func (h *IntegrationHandler) StartJob(c *gin.Context) {
	companyID, integrationID, ok := h.scope(c)
	if !ok {
		return
	}

	var req StartJobRequest
	if !h.BindJSON(c, &req) {
		return
	}

	job, err := h.jobs.Start(c.Request.Context(), companyID, integrationID, req.toJobSpec())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(toJobResponse(job)))
}

// PollJob handles GET /integrations/:id/jobs/:jobId
// Returns the provider-side state of a job; the result is present once finished.
func (h *IntegrationHandler) PollJob(c *gin.Context) {
	companyID, integrationID, ok := h.scope(c)
	if !ok {
		return
	}

	job, err := h.jobs.Poll(c.Request.Context(), companyID, integrationID, c.Param("jobId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toJobResponse(job))
}

// Delete handles DELETE /integrations/:id
// Removes an integration with its mappings, history and every record derived from it.
func (h *IntegrationHandler) Delete(c *gin.Context) {
	companyID, integrationID, ok := h.scope(c)
	if !ok {
		return
	}

	summary, err := h.deletion.DeleteIntegration(c.Request.Context(), companyID, integrationID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toDeleteIntegrationResponse(summary))
}
