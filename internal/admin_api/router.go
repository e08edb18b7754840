package admin_api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/accounting-ledger-sync/internal/admin_api/handler"
	"github.com/accounting-ledger-sync/internal/admin_api/middleware"
)

// setupRouter configures API routes and middleware for the admin server
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	runHandler *handler.RunHandler,
	maintenanceHandler *handler.MaintenanceHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Run history
		runs := v1.Group("/runs")
		{
			runs.GET("", runHandler.List)
			runs.GET("/:id", runHandler.GetByID)
			runs.GET("/:id/report", runHandler.GetReport)
		}

		// Failed documents
		failed := v1.Group("/failed-documents")
		{
			failed.GET("", maintenanceHandler.ListFailedDocuments)
			failed.DELETE("", maintenanceHandler.ClearFailedDocuments)
		}

		// Manual sync trigger and resets
		v1.POST("/sync", maintenanceHandler.TriggerSync)
		v1.DELETE("/cache", maintenanceHandler.ResetCache)
		v1.DELETE("/mappings", maintenanceHandler.ResetMappings)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
