package approuters

import (
	"github.com/gin-gonic/gin"

	"github.com/VISHYOU-GIT/realestate-chat/internal/configuration"
)

// MonitorRouters sets up the monitoring API routes.
func MonitorRouters(router *gin.Engine, container *configuration.Container) {
	monitorGroup := router.Group("/api/monitor")
	{
		monitorGroup.GET("/stats", container.MonitorHandler.GetHubStats)
	}
}
