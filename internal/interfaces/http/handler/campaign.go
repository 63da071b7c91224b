package handler

import (
	"context"

	appintegration "github.com/adinventory/backend/internal/application/integration"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CampaignPusher projects campaigns onto campaign platforms
type CampaignPusher interface {
	Push(ctx context.Context, companyID, campaignID, integrationID uuid.UUID) (*appintegration.PushResult, error)
	Toggle(ctx context.Context, companyID, campaignID, integrationID uuid.UUID, activate bool) (*appintegration.ToggleResult, error)
}

// CampaignHandler handles campaign push and toggle endpoints
type CampaignHandler struct {
	BaseHandler
	pusher CampaignPusher
}

// NewCampaignHandler creates a new CampaignHandler
func NewCampaignHandler(pusher CampaignPusher) *CampaignHandler {
	return &CampaignHandler{pusher: pusher}
}

// Push handles POST /campaigns/:id/push
// Creates or updates the campaign on the platform, with its advertiser and flights.
func (h *CampaignHandler) Push(c *gin.Context) {
	companyID, campaignID, integrationID, ok := h.bind(c, func() (string, bool) {
		var req PushCampaignRequest
		if !h.BindJSON(c, &req) {
			return "", false
		}
		return req.IntegrationID, true
	})
	if !ok {
		return
	}

	result, err := h.pusher.Push(c.Request.Context(), companyID, campaignID, integrationID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toPushCampaignResponse(result))
}

// Toggle handles POST /campaigns/:id/toggle
// Flips the activation flag of a pushed campaign on the platform.
func (h *CampaignHandler) Toggle(c *gin.Context) {
	var activate bool
	companyID, campaignID, integrationID, ok := h.bind(c, func() (string, bool) {
		var req ToggleCampaignRequest
		if !h.BindJSON(c, &req) {
			return "", false
		}
		activate = *req.Activate
		return req.IntegrationID, true
	})
	if !ok {
		return
	}

	result, err := h.pusher.Toggle(c.Request.Context(), companyID, campaignID, integrationID, activate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ToggleCampaignResponse{
		Success:         true,
		Status:          string(result.Status),
		SubUnitsUpdated: result.SubUnitsUpdated,
		SubUnitsFailed:  result.SubUnitsFailed,
	})
}

// bind resolves the company, the campaign path parameter and the integration
// ID read from the body
func (h *CampaignHandler) bind(c *gin.Context, body func() (string, bool)) (uuid.UUID, uuid.UUID, uuid.UUID, bool) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return uuid.Nil, uuid.Nil, uuid.Nil, false
	}
	campaignID, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid campaign ID format")
		return uuid.Nil, uuid.Nil, uuid.Nil, false
	}
	raw, ok := body()
	if !ok {
		return uuid.Nil, uuid.Nil, uuid.Nil, false
	}
	integrationID, err := uuid.Parse(raw)
	if err != nil {
		h.BadRequest(c, "Invalid integration ID format")
		return uuid.Nil, uuid.Nil, uuid.Nil, false
	}
	return companyID, campaignID, integrationID, true
}
