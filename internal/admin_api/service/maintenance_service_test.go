package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/accounting-ledger-sync/internal/domain/document"
	"github.com/accounting-ledger-sync/internal/domain/mapping"
	"github.com/accounting-ledger-sync/internal/domain/syncrun"
	engine "github.com/accounting-ledger-sync/internal/sync_engine/service"
)

type MockSyncService struct {
	mock.Mock
}

func (m *MockSyncService) Run(ctx context.Context, opts engine.RunOptions) (*syncrun.RunReport, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*syncrun.RunReport), args.Error(1)
}

func (m *MockSyncService) MarkEdited(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

type MockFailureRepository struct {
	mock.Mock
}

func (m *MockFailureRepository) Record(ctx context.Context, id string, kind document.Kind, reason string) error {
	args := m.Called(ctx, id, kind, reason)
	return args.Error(0)
}

func (m *MockFailureRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockFailureRepository) List(ctx context.Context, limit, offset int) ([]*document.FailedDocument, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*document.FailedDocument), args.Error(1)
}

func (m *MockFailureRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFailureRepository) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) UpsertDocuments(ctx context.Context, docs []*document.CachedDocument) error {
	args := m.Called(ctx, docs)
	return args.Error(0)
}

func (m *MockDocumentRepository) UpsertPositions(ctx context.Context, documentID string, positions []*document.Position) error {
	args := m.Called(ctx, documentID, positions)
	return args.Error(0)
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, id string) (*document.CachedDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.CachedDocument), args.Error(1)
}

func (m *MockDocumentRepository) GetPositions(ctx context.Context, documentID string) ([]*document.Position, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*document.Position), args.Error(1)
}

func (m *MockDocumentRepository) MaxSourceUpdatedAt(ctx context.Context, kind document.Kind) (*time.Time, error) {
	args := m.Called(ctx, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *MockDocumentRepository) UpdatedSince(ctx context.Context, kind document.Kind, since time.Time) ([]string, error) {
	args := m.Called(ctx, kind, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockDocumentRepository) InvalidIDs(ctx context.Context, kind document.Kind) ([]string, error) {
	args := m.Called(ctx, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockDocumentRepository) DirtyIDs(ctx context.Context, kind document.Kind) ([]string, error) {
	args := m.Called(ctx, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockDocumentRepository) MarkValidation(ctx context.Context, id string, validity document.Validity, reason string) error {
	args := m.Called(ctx, id, validity, reason)
	return args.Error(0)
}

func (m *MockDocumentRepository) MarkDirty(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockDocumentRepository) ClearDirty(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockDocumentRepository) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDocumentRepository) WithTx(tx pgx.Tx) document.Repository {
	m.Called(tx)
	return m
}

type MockMappingRepository struct {
	mock.Mock
}

func (m *MockMappingRepository) Get(ctx context.Context, sourceID string) (*mapping.Mapping, error) {
	args := m.Called(ctx, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mapping.Mapping), args.Error(1)
}

func (m *MockMappingRepository) Save(ctx context.Context, mp *mapping.Mapping) error {
	args := m.Called(ctx, mp)
	return args.Error(0)
}

func (m *MockMappingRepository) Delete(ctx context.Context, sourceID string) (bool, error) {
	args := m.Called(ctx, sourceID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMappingRepository) IsIgnored(ctx context.Context, sourceID string) (bool, error) {
	args := m.Called(ctx, sourceID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMappingRepository) ListActive(ctx context.Context) ([]*mapping.Mapping, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*mapping.Mapping), args.Error(1)
}

func (m *MockMappingRepository) CountActive(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMappingRepository) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockMappingRepository) WithTx(tx pgx.Tx) mapping.Repository {
	m.Called(tx)
	return m
}

func newMaintenanceService() (*MockSyncService, *MockFailureRepository, *MockDocumentRepository, *MockMappingRepository, MaintenanceService) {
	syncSvc := new(MockSyncService)
	failureRepo := new(MockFailureRepository)
	docRepo := new(MockDocumentRepository)
	mappingRepo := new(MockMappingRepository)
	svc := NewMaintenanceService(syncSvc, failureRepo, docRepo, mappingRepo)
	return syncSvc, failureRepo, docRepo, mappingRepo, svc
}

func TestMaintenanceService_ListFailedDocuments(t *testing.T) {
	_, failureRepo, _, _, svc := newMaintenanceService()

	docs := []*document.FailedDocument{{ID: "voucher_1", Kind: document.KindVoucher, Reason: "missing positions"}}
	failureRepo.On("List", mock.Anything, 10, 10).Return(docs, nil)
	failureRepo.On("Count", mock.Anything).Return(int64(11), nil)

	got, total, err := svc.ListFailedDocuments(context.Background(), 2, 10)
	require.NoError(t, err)
	assert.Equal(t, docs, got)
	assert.Equal(t, int64(11), total)
	failureRepo.AssertExpectations(t)
}

func TestMaintenanceService_ClearFailedDocuments(t *testing.T) {
	_, failureRepo, _, _, svc := newMaintenanceService()

	failureRepo.On("Clear", mock.Anything).Return(nil)

	require.NoError(t, svc.ClearFailedDocuments(context.Background()))
	failureRepo.AssertExpectations(t)
}

func TestMaintenanceService_TriggerSync(t *testing.T) {
	syncSvc, _, _, _, svc := newMaintenanceService()

	opts := engine.RunOptions{Full: true, Reconcile: true}
	report := &syncrun.RunReport{Status: syncrun.StatusCompleted}
	syncSvc.On("Run", mock.Anything, opts).Return(report, nil)

	got, err := svc.TriggerSync(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, report, got)
	syncSvc.AssertExpectations(t)
}

func TestMaintenanceService_ResetCache(t *testing.T) {
	_, _, docRepo, _, svc := newMaintenanceService()

	docRepo.On("Clear", mock.Anything).Return(nil)

	require.NoError(t, svc.ResetCache(context.Background()))
	docRepo.AssertExpectations(t)
}

func TestMaintenanceService_ResetMappings(t *testing.T) {
	_, _, _, mappingRepo, svc := newMaintenanceService()

	mappingRepo.On("Clear", mock.Anything).Return(errors.New("database connection lost"))

	require.Error(t, svc.ResetMappings(context.Background()))
	mappingRepo.AssertExpectations(t)
}
