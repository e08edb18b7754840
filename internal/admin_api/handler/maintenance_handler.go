package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/accounting-ledger-sync/internal/admin_api/service"
	engine "github.com/accounting-ledger-sync/internal/sync_engine/service"
)

// MaintenanceHandler handles HTTP requests for operator actions: failed
// document inspection, manual sync triggers, and cache resets
type MaintenanceHandler struct {
	maintenanceService service.MaintenanceService
	logger             *slog.Logger
}

// NewMaintenanceHandler creates a new maintenance handler
func NewMaintenanceHandler(logger *slog.Logger, maintenanceService service.MaintenanceService) *MaintenanceHandler {
	return &MaintenanceHandler{
		maintenanceService: maintenanceService,
		logger:             logger,
	}
}

// ListFailedDocuments retrieves the paginated failed-document ledger
func (h *MaintenanceHandler) ListFailedDocuments(c *gin.Context) {
	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	docs, total, err := h.maintenanceService.ListFailedDocuments(c.Request.Context(), params.Page, params.PerPage)
	if err != nil {
		h.logger.Error("Failed to list failed documents", "error", err)
		RespondInternalError(c)
		return
	}

	response := FailedDocumentListResponse{FailedDocuments: make([]FailedDocumentResponse, 0, len(docs))}
	for _, doc := range docs {
		response.FailedDocuments = append(response.FailedDocuments, FailedDocumentResponse{
			ID:         doc.ID,
			Kind:       string(doc.Kind),
			Reason:     doc.Reason,
			FailedAt:   doc.FailedAt.Format(time.RFC3339),
			RetryCount: doc.RetryCount,
		})
	}

	RespondWithPaginatedData(c, 200, response, params.Page, params.PerPage, int(total))
}

// ClearFailedDocuments wipes the failed-document ledger so every failed
// document is retried on the next run
func (h *MaintenanceHandler) ClearFailedDocuments(c *gin.Context) {
	if err := h.maintenanceService.ClearFailedDocuments(c.Request.Context()); err != nil {
		h.logger.Error("Failed to clear failed documents", "error", err)
		RespondInternalError(c)
		return
	}
	h.logger.Info("Cleared failed-document ledger")
	RespondNoContent(c)
}

// TriggerSync runs one sync with the requested options and returns its report
func (h *MaintenanceHandler) TriggerSync(c *gin.Context) {
	var req TriggerSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	opts := engine.RunOptions{
		Full:          req.Full,
		DryRun:        req.DryRun,
		Reconcile:     req.Reconcile,
		ReconcileOnly: req.ReconcileOnly,
		Limit:         req.Limit,
	}

	h.logger.Info("Manual sync triggered",
		"full", opts.Full,
		"dry_run", opts.DryRun,
		"reconcile", opts.Reconcile,
		"reconcile_only", opts.ReconcileOnly,
	)

	report, err := h.maintenanceService.TriggerSync(c.Request.Context(), opts)
	if err != nil {
		// The run record already captured the failure; surface the report
		// when the engine produced one
		if report != nil {
			RespondOK(c, mapReportToResponse(report))
			return
		}
		h.logger.Error("Manual sync run failed", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapReportToResponse(report))
}

// ResetCache wipes the document cache; the next run rebuilds it
func (h *MaintenanceHandler) ResetCache(c *gin.Context) {
	if err := h.maintenanceService.ResetCache(c.Request.Context()); err != nil {
		h.logger.Error("Failed to reset document cache", "error", err)
		RespondInternalError(c)
		return
	}
	h.logger.Info("Document cache reset")
	RespondNoContent(c)
}

// ResetMappings drops all document-to-transaction mappings
func (h *MaintenanceHandler) ResetMappings(c *gin.Context) {
	if err := h.maintenanceService.ResetMappings(c.Request.Context()); err != nil {
		h.logger.Error("Failed to reset mappings", "error", err)
		RespondInternalError(c)
		return
	}
	h.logger.Warn("All document-to-transaction mappings dropped")
	RespondNoContent(c)
}
