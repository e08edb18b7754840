package service

import (
	"context"

	"github.com/accounting-ledger-sync/internal/domain/document"
	"github.com/accounting-ledger-sync/internal/domain/mapping"
	"github.com/accounting-ledger-sync/internal/domain/syncrun"
	engine "github.com/accounting-ledger-sync/internal/sync_engine/service"
)

// MaintenanceServiceImpl implements the MaintenanceService interface
type MaintenanceServiceImpl struct {
	syncService engine.SyncService
	failureRepo document.FailureRepository
	docRepo     document.Repository
	mappingRepo mapping.Repository
}

// NewMaintenanceService creates a new maintenance service
func NewMaintenanceService(
	syncService engine.SyncService,
	failureRepo document.FailureRepository,
	docRepo document.Repository,
	mappingRepo mapping.Repository,
) MaintenanceService {
	return &MaintenanceServiceImpl{
		syncService: syncService,
		failureRepo: failureRepo,
		docRepo:     docRepo,
		mappingRepo: mappingRepo,
	}
}

// ListFailedDocuments retrieves a paginated page of the failed-document ledger
func (s *MaintenanceServiceImpl) ListFailedDocuments(ctx context.Context, page, perPage int) ([]*document.FailedDocument, int64, error) {
	offset := (page - 1) * perPage

	docs, err := s.failureRepo.List(ctx, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.failureRepo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	return docs, total, nil
}

// ClearFailedDocuments wipes the failed-document ledger
func (s *MaintenanceServiceImpl) ClearFailedDocuments(ctx context.Context) error {
	return s.failureRepo.Clear(ctx)
}

// TriggerSync executes one run with the given options. Runs triggered here
// share the engine with the scheduler; the run record keeps the histories
// apart.
func (s *MaintenanceServiceImpl) TriggerSync(ctx context.Context, opts engine.RunOptions) (*syncrun.RunReport, error) {
	return s.syncService.Run(ctx, opts)
}

// ResetCache wipes the document cache
func (s *MaintenanceServiceImpl) ResetCache(ctx context.Context) error {
	return s.docRepo.Clear(ctx)
}

// ResetMappings drops all document-to-transaction mappings
func (s *MaintenanceServiceImpl) ResetMappings(ctx context.Context) error {
	return s.mappingRepo.Clear(ctx)
}
