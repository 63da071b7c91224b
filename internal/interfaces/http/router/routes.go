package router

import (
	"github.com/adinventory/backend/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// IntegrationRoutes mounts sync, history, async job and deletion endpoints
func IntegrationRoutes(h *handler.IntegrationHandler) *DomainGroup {
	return NewDomainGroup("/integrations").
		POST("/:id/sync", h.RunSync).
		GET("/:id/history", h.ListHistory).
		POST("/:id/jobs", h.StartJob).
		GET("/:id/jobs/:jobId", h.PollJob).
		DELETE("/:id", h.Delete)
}

// CampaignRoutes mounts campaign push and toggle endpoints
func CampaignRoutes(h *handler.CampaignHandler) *DomainGroup {
	return NewDomainGroup("/campaigns").
		POST("/:id/push", h.Push).
		POST("/:id/toggle", h.Toggle)
}

// RegisterHealthRoutes mounts the liveness and readiness checks outside the API group
func RegisterHealthRoutes(engine *gin.Engine, h *handler.HealthHandler) {
	engine.GET("/health", h.Health)
	engine.GET("/ready", h.Ready)
}
