package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/accounting-ledger-sync/internal/domain/document"
	"github.com/accounting-ledger-sync/internal/domain/syncrun"
	engine "github.com/accounting-ledger-sync/internal/sync_engine/service"
)

// RunService defines the interface for sync run history operations
type RunService interface {
	// ListRuns retrieves a paginated page of run history plus the total count
	ListRuns(ctx context.Context, page, perPage int) ([]*syncrun.SyncRun, int64, error)

	// GetRun retrieves a run by its ID
	// Returns ErrRunNotFound if the run doesn't exist
	GetRun(ctx context.Context, id uuid.UUID) (*syncrun.SyncRun, error)

	// GetReport retrieves the archived full report for a run, including the
	// invalid document details the relational history does not keep
	GetReport(ctx context.Context, runID uuid.UUID) (*syncrun.RunReport, error)
}

// MaintenanceService defines the interface for operator actions
type MaintenanceService interface {
	// ListFailedDocuments retrieves a paginated page of the failed-document
	// ledger plus the total count
	ListFailedDocuments(ctx context.Context, page, perPage int) ([]*document.FailedDocument, int64, error)

	// ClearFailedDocuments wipes the failed-document ledger so every failed
	// document is retried on the next run
	ClearFailedDocuments(ctx context.Context) error

	// TriggerSync executes one run with the given options and returns its report
	TriggerSync(ctx context.Context, opts engine.RunOptions) (*syncrun.RunReport, error)

	// ResetCache wipes the document cache; the next run rebuilds it from the
	// source system
	ResetCache(ctx context.Context) error

	// ResetMappings drops all document-to-transaction mappings. Destructive:
	// the next run re-imports by amount and date matching only.
	ResetMappings(ctx context.Context) error
}
