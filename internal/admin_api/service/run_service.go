package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/accounting-ledger-sync/internal/domain/syncrun"
)

// RunServiceImpl implements the RunService interface
type RunServiceImpl struct {
	runRepo    syncrun.Repository
	reportRepo syncrun.ReportRepository
}

// NewRunService creates a new run service
func NewRunService(runRepo syncrun.Repository, reportRepo syncrun.ReportRepository) RunService {
	return &RunServiceImpl{
		runRepo:    runRepo,
		reportRepo: reportRepo,
	}
}

// ListRuns retrieves a paginated page of run history plus the total count
func (s *RunServiceImpl) ListRuns(ctx context.Context, page, perPage int) ([]*syncrun.SyncRun, int64, error) {
	offset := (page - 1) * perPage

	runs, err := s.runRepo.List(ctx, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.runRepo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	return runs, total, nil
}

// GetRun retrieves a run by its ID, returns ErrRunNotFound if not found
func (s *RunServiceImpl) GetRun(ctx context.Context, id uuid.UUID) (*syncrun.SyncRun, error) {
	return s.runRepo.GetByID(ctx, id)
}

// GetReport retrieves the archived full report for a run
func (s *RunServiceImpl) GetReport(ctx context.Context, runID uuid.UUID) (*syncrun.RunReport, error) {
	return s.reportRepo.GetByRunID(ctx, runID)
}
