package handler

import "github.com/shopspring/decimal"

// TriggerSyncRequest represents a manual sync trigger
type TriggerSyncRequest struct {
	Full          bool `json:"full"`
	DryRun        bool `json:"dry_run"`
	Reconcile     bool `json:"reconcile"`
	ReconcileOnly bool `json:"reconcile_only"`
	Limit         int  `json:"limit" binding:"min=0"`
}

// RunResponse represents a sync run in API responses
type RunResponse struct {
	ID             string `json:"id"`
	Kind           string `json:"kind"`
	Status         string `json:"status"`
	StartedAt      string `json:"started_at"`
	CompletedAt    string `json:"completed_at,omitempty"`
	ItemsProcessed int    `json:"items_processed"`
	ItemsSynced    int    `json:"items_synced"`
	ItemsFailed    int    `json:"items_failed"`
	ErrorMessage   string `json:"error_message,omitempty"`
}

// InvalidDocumentResponse represents one invalid document in a run report
type InvalidDocumentResponse struct {
	ID     string          `json:"id"`
	Kind   string          `json:"kind"`
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

// RunReportResponse represents an archived run report in API responses
type RunReportResponse struct {
	RunID            string                    `json:"run_id"`
	Kind             string                    `json:"kind"`
	Status           string                    `json:"status"`
	StartedAt        string                    `json:"started_at"`
	CompletedAt      string                    `json:"completed_at"`
	Processed        int                       `json:"processed"`
	Synced           int                       `json:"synced"`
	Failed           int                       `json:"failed"`
	Ignored          int                       `json:"ignored"`
	Deleted          int                       `json:"deleted"`
	ErrorMessage     string                    `json:"error_message,omitempty"`
	InvalidDocuments []InvalidDocumentResponse `json:"invalid_documents,omitempty"`
}

// FailedDocumentResponse represents a failed document in API responses
type FailedDocumentResponse struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Reason     string `json:"reason"`
	FailedAt   string `json:"failed_at"`
	RetryCount int    `json:"retry_count"`
}

// FailedDocumentListResponse represents a list of failed documents
type FailedDocumentListResponse struct {
	FailedDocuments []FailedDocumentResponse `json:"failed_documents"`
}

// RunListResponse represents a list of sync runs in API responses
type RunListResponse struct {
	Runs []RunResponse `json:"runs"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
