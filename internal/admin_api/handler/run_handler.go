package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/accounting-ledger-sync/internal/admin_api/service"
	"github.com/accounting-ledger-sync/internal/domain/syncrun"
)

// RunHandler handles HTTP requests for sync run history
type RunHandler struct {
	runService service.RunService
	logger     *slog.Logger
}

// NewRunHandler creates a new run handler
func NewRunHandler(logger *slog.Logger, runService service.RunService) *RunHandler {
	return &RunHandler{
		runService: runService,
		logger:     logger,
	}
}

// List retrieves paginated run history, newest first
func (h *RunHandler) List(c *gin.Context) {
	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	runs, total, err := h.runService.ListRuns(c.Request.Context(), params.Page, params.PerPage)
	if err != nil {
		h.logger.Error("Failed to list sync runs", "error", err)
		RespondInternalError(c)
		return
	}

	response := RunListResponse{Runs: make([]RunResponse, 0, len(runs))}
	for _, run := range runs {
		response.Runs = append(response.Runs, mapRunToResponse(run))
	}

	RespondWithPaginatedData(c, 200, response, params.Page, params.PerPage, int(total))
}

// GetByID retrieves a run by its ID, returning 404 if not found
func (h *RunHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid run ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid run ID")
		return
	}

	run, err := h.runService.GetRun(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, syncrun.ErrRunNotFound{}) {
			RespondNotFound(c, "Sync run not found")
			return
		}
		h.logger.Error("Failed to get sync run", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapRunToResponse(run))
}

// GetReport retrieves the archived full report for a run, including invalid
// document details
func (h *RunHandler) GetReport(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid run ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid run ID")
		return
	}

	report, err := h.runService.GetReport(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, syncrun.ErrRunNotFound{}) {
			RespondNotFound(c, "Run report not found")
			return
		}
		h.logger.Error("Failed to get run report", "run_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapReportToResponse(report))
}

// mapRunToResponse maps a sync run entity to a run response DTO
func mapRunToResponse(run *syncrun.SyncRun) RunResponse {
	resp := RunResponse{
		ID:             run.ID.String(),
		Kind:           string(run.Kind),
		Status:         string(run.Status),
		StartedAt:      run.StartedAt.Format(time.RFC3339),
		ItemsProcessed: run.ItemsProcessed,
		ItemsSynced:    run.ItemsSynced,
		ItemsFailed:    run.ItemsFailed,
		ErrorMessage:   run.ErrorMessage,
	}
	if run.CompletedAt != nil {
		resp.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	return resp
}

// mapReportToResponse maps an archived run report to a report response DTO
func mapReportToResponse(report *syncrun.RunReport) RunReportResponse {
	resp := RunReportResponse{
		RunID:        report.RunID.String(),
		Kind:         string(report.Kind),
		Status:       string(report.Status),
		StartedAt:    report.StartedAt.Format(time.RFC3339),
		CompletedAt:  report.CompletedAt.Format(time.RFC3339),
		Processed:    report.Processed,
		Synced:       report.Synced,
		Failed:       report.Failed,
		Ignored:      report.Ignored,
		Deleted:      report.Deleted,
		ErrorMessage: report.ErrorMessage,
	}
	for _, doc := range report.InvalidDocuments {
		resp.InvalidDocuments = append(resp.InvalidDocuments, InvalidDocumentResponse{
			ID:     doc.ID,
			Kind:   doc.Kind,
			Date:   doc.Date.Format("2006-01-02"),
			Amount: doc.Amount,
			Reason: doc.Reason,
		})
	}
	return resp
}
