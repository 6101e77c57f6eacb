package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/VISHYOU-GIT/realestate-chat/internal/hub"
)

// MonitorHandler exposes hub statistics for operational inspection.
type MonitorHandler interface {
	GetHubStats(c *gin.Context)
}

type monitorHandler struct {
	monitorService *hub.MonitorService
}

func NewMonitorHandler(monitorService *hub.MonitorService) MonitorHandler {
	return &monitorHandler{monitorService: monitorService}
}

// GetHubStats returns current connections, rooms and typing activity.
func (h *monitorHandler) GetHubStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"stats":  h.monitorService.GetStats(),
	})
}
