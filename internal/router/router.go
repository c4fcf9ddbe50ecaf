package router

import (
	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/beacon/internal/handlers"
	"github.com/monocle-dev/beacon/internal/middleware"
)

// Versions are served identically.
var Versions = []string{"v1", "v2", "v3"}

func NewRouter(h *handlers.Handler, creds middleware.Credentials) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), middleware.RequestLogger())
	r.Use(middleware.CORS(), middleware.OpenCORS())

	requireAuth := middleware.Auth(creds, h.Tokens)

	for _, version := range Versions {
		api := r.Group("/api/" + version)
		{
			api.GET("/health/", h.HealthCheck)
			api.GET("/status-pages/public/:slug/", h.GetPublicStatusPage)
		}

		authed := api.Group("", requireAuth)
		{
			authed.POST("/auth/token/", h.IssueToken)
			authed.GET("/ws/", h.Hub.Serve)

			// Check endpoints
			authed.GET("/checks/", h.ListChecks)
			authed.POST("/checks/", h.CreateCheck)
			authed.POST("/checks/bulk/", h.BulkCheckOperation)
			authed.GET("/checks/:code/", h.GetCheck)
			authed.GET("/checks/:code/flips/", h.ListFlips)

			// Maintenance endpoints
			authed.POST("/checks/:code/maintenance/", h.CreateMaintenanceWindow)
			authed.GET("/checks/:code/maintenance/", h.ListMaintenanceWindows)
			authed.DELETE("/checks/:code/maintenance/:wid/", h.DeleteMaintenanceWindow)

			// Status page endpoints
			authed.POST("/status-pages/", h.CreateStatusPage)
			authed.GET("/status-pages/", h.ListStatusPages)
			authed.GET("/status-pages/:id/", h.GetStatusPage)
			authed.DELETE("/status-pages/:id/", h.DeleteStatusPage)
		}
	}

	return r
}
