package components

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/accounting-ledger-sync/internal/domain/costcenter"
	"github.com/accounting-ledger-sync/internal/domain/document"
	"github.com/accounting-ledger-sync/internal/domain/mapping"
	"github.com/accounting-ledger-sync/internal/ledger"
)

// MockSourceReader is a mock implementation of service.SourceReader
type MockSourceReader struct {
	mock.Mock
}

func (m *MockSourceReader) ListBookedDocuments(ctx context.Context, kind document.Kind, updatedAfter *time.Time, limit int) ([]*document.CachedDocument, error) {
	args := m.Called(ctx, kind, updatedAfter, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*document.CachedDocument), args.Error(1)
}

func (m *MockSourceReader) GetDocument(ctx context.Context, kind document.Kind, id string) (*document.CachedDocument, error) {
	args := m.Called(ctx, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.CachedDocument), args.Error(1)
}

func (m *MockSourceReader) BatchPositions(ctx context.Context, kind document.Kind, ids []string) (map[string][]*document.Position, map[string]error, error) {
	args := m.Called(ctx, kind, ids)
	var positions map[string][]*document.Position
	var failures map[string]error
	if args.Get(0) != nil {
		positions = args.Get(0).(map[string][]*document.Position)
	}
	if args.Get(1) != nil {
		failures = args.Get(1).(map[string]error)
	}
	return positions, failures, args.Error(2)
}

func (m *MockSourceReader) ListCostCenters(ctx context.Context) ([]*costcenter.CostCenter, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*costcenter.CostCenter), args.Error(1)
}

// MockLedgerWriter is a mock implementation of service.LedgerWriter
type MockLedgerWriter struct {
	mock.Mock
}

func (m *MockLedgerWriter) ListAccounts(ctx context.Context) ([]*ledger.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Account), args.Error(1)
}

func (m *MockLedgerWriter) GetOrCreateAccount(ctx context.Context, name string) (*ledger.Account, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func (m *MockLedgerWriter) GetOrCreateCategoryGroup(ctx context.Context, name string) (*ledger.CategoryGroup, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.CategoryGroup), args.Error(1)
}

func (m *MockLedgerWriter) ListCategories(ctx context.Context) ([]*ledger.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Category), args.Error(1)
}

func (m *MockLedgerWriter) CreateCategory(ctx context.Context, name, groupID string) (*ledger.Category, error) {
	args := m.Called(ctx, name, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Category), args.Error(1)
}

func (m *MockLedgerWriter) ListTransactions(ctx context.Context, accountID string) ([]*ledger.Transaction, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Transaction), args.Error(1)
}

func (m *MockLedgerWriter) CreateTransaction(ctx context.Context, accountID string, tx *ledger.NewTransaction) (string, error) {
	args := m.Called(ctx, accountID, tx)
	return args.String(0), args.Error(1)
}

func (m *MockLedgerWriter) UpdateTransaction(ctx context.Context, id string, update *ledger.TransactionUpdate) error {
	args := m.Called(ctx, id, update)
	return args.Error(0)
}

func (m *MockLedgerWriter) DeleteTransaction(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedgerWriter) ApplyRules(ctx context.Context, transactionIDs []string) error {
	args := m.Called(ctx, transactionIDs)
	return args.Error(0)
}

func (m *MockLedgerWriter) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockMappingRepository is a mock implementation of mapping.Repository
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

// MockDocumentRepository is a mock implementation of document.Repository
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

// MockFailureRepository is a mock implementation of document.FailureRepository
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

// MockLinkRepository is a mock implementation of costcenter.Repository
type MockLinkRepository struct {
	mock.Mock
}

func (m *MockLinkRepository) Save(ctx context.Context, link *costcenter.CategoryLink) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *MockLinkRepository) GetByCostCenterID(ctx context.Context, costCenterID string) (*costcenter.CategoryLink, error) {
	args := m.Called(ctx, costCenterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*costcenter.CategoryLink), args.Error(1)
}

func (m *MockLinkRepository) List(ctx context.Context) ([]*costcenter.CategoryLink, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*costcenter.CategoryLink), args.Error(1)
}

func (m *MockLinkRepository) Delete(ctx context.Context, costCenterID string) (bool, error) {
	args := m.Called(ctx, costCenterID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLinkRepository) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockLinkRepository) WithTx(tx pgx.Tx) costcenter.Repository {
	m.Called(tx)
	return m
}
