package components

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/accounting-ledger-sync/internal/ledger"
	"github.com/accounting-ledger-sync/internal/sync_engine/service"
)

func newTestImporter(ledgerMock *MockLedgerWriter) service.Importer {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return NewLedgerImporter(ledgerMock, logger)
}

func candidate(sourceID string, amount int64, date time.Time) *service.Candidate {
	return &service.Candidate{
		SourceID:   sourceID,
		Date:       date,
		Amount:     amount,
		PayeeName:  "ACME GmbH",
		CategoryID: "cat-1",
	}
}

func TestImporter_EmptyBatch(t *testing.T) {
	ledgerMock := new(MockLedgerWriter)

	result, err := newTestImporter(ledgerMock).ImportBatch(context.Background(), "acc-1", nil, false)

	require.NoError(t, err)
	assert.Empty(t, result.Outcomes)
	ledgerMock.AssertNotCalled(t, "Commit", mock.Anything)
}

func TestImporter_ExactMatchIsSkipped(t *testing.T) {
	date := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	ledgerMock := new(MockLedgerWriter)
	ledgerMock.On("ListTransactions", mock.Anything, "acc-1").Return([]*ledger.Transaction{
		{ID: "tx-1", Date: "2025-01-10", Amount: -25000, ImportedID: "voucher_V1"},
	}, nil)
	ledgerMock.On("ApplyRules", mock.Anything, []string(nil)).Return(nil)
	ledgerMock.On("Commit", mock.Anything).Return(nil)

	result, err := newTestImporter(ledgerMock).ImportBatch(context.Background(), "acc-1",
		[]*service.Candidate{candidate("voucher_V1", -25000, date)}, false)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, service.ActionSkipped, result.Outcomes[0].Action)
	// The existing transaction id comes back so the caller can heal mappings
	assert.Equal(t, "tx-1", result.Outcomes[0].TransactionID)
	ledgerMock.AssertNotCalled(t, "CreateTransaction", mock.Anything, mock.Anything, mock.Anything)
}

func TestImporter_DeletedExactMatchIsReimported(t *testing.T) {
	date := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	ledgerMock := new(MockLedgerWriter)
	ledgerMock.On("ListTransactions", mock.Anything, "acc-1").Return([]*ledger.Transaction{
		{ID: "tx-1", Date: "2025-01-10", Amount: -25000, ImportedID: "voucher_V1", Deleted: true},
	}, nil)
	ledgerMock.On("CreateTransaction", mock.Anything, "acc-1", mock.Anything).Return("tx-2", nil)
	ledgerMock.On("ApplyRules", mock.Anything, []string{"tx-2"}).Return(nil)
	ledgerMock.On("Commit", mock.Anything).Return(nil)

	result, err := newTestImporter(ledgerMock).ImportBatch(context.Background(), "acc-1",
		[]*service.Candidate{candidate("voucher_V1", -25000, date)}, false)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
}

func TestImporter_FuzzyMatchAdoptsTransaction(t *testing.T) {
	date := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	t.Run("within window", func(t *testing.T) {
		ledgerMock := new(MockLedgerWriter)
		ledgerMock.On("ListTransactions", mock.Anything, "acc-1").Return([]*ledger.Transaction{
			{ID: "tx-1", Date: "2025-01-13", Amount: -25000},
		}, nil)
		ledgerMock.On("UpdateTransaction", mock.Anything, "tx-1", mock.MatchedBy(func(u *ledger.TransactionUpdate) bool {
			return u.ImportedID != nil && *u.ImportedID == "voucher_V1" &&
				u.Cleared != nil && *u.Cleared &&
				u.Amount == nil // adopting never rewrites the amount
		})).Return(nil)
		ledgerMock.On("ApplyRules", mock.Anything, []string{"tx-1"}).Return(nil)
		ledgerMock.On("Commit", mock.Anything).Return(nil)

		result, err := newTestImporter(ledgerMock).ImportBatch(context.Background(), "acc-1",
			[]*service.Candidate{candidate("voucher_V1", -25000, date)}, false)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Updated)
		assert.Equal(t, "tx-1", result.Outcomes[0].TransactionID)
	})

	t.Run("outside window creates instead", func(t *testing.T) {
		ledgerMock := new(MockLedgerWriter)
		ledgerMock.On("ListTransactions", mock.Anything, "acc-1").Return([]*ledger.Transaction{
			{ID: "tx-1", Date: "2025-01-14", Amount: -25000},
		}, nil)
		ledgerMock.On("CreateTransaction", mock.Anything, "acc-1", mock.Anything).Return("tx-9", nil)
		ledgerMock.On("ApplyRules", mock.Anything, []string{"tx-9"}).Return(nil)
		ledgerMock.On("Commit", mock.Anything).Return(nil)

		result, err := newTestImporter(ledgerMock).ImportBatch(context.Background(), "acc-1",
			[]*service.Candidate{candidate("voucher_V1", -25000, date)}, false)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Added)
	})

	t.Run("claimed transaction is adopted only once", func(t *testing.T) {
		ledgerMock := new(MockLedgerWriter)
		ledgerMock.On("ListTransactions", mock.Anything, "acc-1").Return([]*ledger.Transaction{
			{ID: "tx-1", Date: "2025-01-10", Amount: -25000},
		}, nil)
		ledgerMock.On("UpdateTransaction", mock.Anything, "tx-1", mock.Anything).Return(nil).Once()
		ledgerMock.On("CreateTransaction", mock.Anything, "acc-1", mock.Anything).Return("tx-2", nil).Once()
		ledgerMock.On("ApplyRules", mock.Anything, mock.Anything).Return(nil)
		ledgerMock.On("Commit", mock.Anything).Return(nil)

		result, err := newTestImporter(ledgerMock).ImportBatch(context.Background(), "acc-1",
			[]*service.Candidate{
				candidate("voucher_V1", -25000, date),
				candidate("voucher_V2", -25000, date),
			}, false)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Updated)
		assert.Equal(t, 1, result.Added)
		ledgerMock.AssertExpectations(t)
	})
}

func TestImporter_CreatesNewTransaction(t *testing.T) {
	date := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	ledgerMock := new(MockLedgerWriter)
	ledgerMock.On("ListTransactions", mock.Anything, "acc-1").Return([]*ledger.Transaction{}, nil)
	ledgerMock.On("CreateTransaction", mock.Anything, "acc-1", mock.MatchedBy(func(tx *ledger.NewTransaction) bool {
		return tx.Date == "2025-01-10" && tx.Amount == -25000 &&
			tx.ImportedID == "voucher_V1" && tx.CategoryID == "cat-1" && tx.Cleared
	})).Return("tx-42", nil)
	ledgerMock.On("ApplyRules", mock.Anything, []string{"tx-42"}).Return(nil)
	ledgerMock.On("Commit", mock.Anything).Return(nil)

	result, err := newTestImporter(ledgerMock).ImportBatch(context.Background(), "acc-1",
		[]*service.Candidate{candidate("voucher_V1", -25000, date)}, false)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, "tx-42", result.Outcomes[0].TransactionID)
	ledgerMock.AssertExpectations(t)
}

func TestImporter_UpdateCandidate(t *testing.T) {
	date := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	ledgerMock := new(MockLedgerWriter)
	ledgerMock.On("ListTransactions", mock.Anything, "acc-1").Return([]*ledger.Transaction{}, nil)
	ledgerMock.On("UpdateTransaction", mock.Anything, "tx-7", mock.MatchedBy(func(u *ledger.TransactionUpdate) bool {
		return u.Amount != nil && *u.Amount == -30000 && u.Date != nil && *u.Date == "2025-01-10"
	})).Return(nil)
	ledgerMock.On("ApplyRules", mock.Anything, []string{"tx-7"}).Return(nil)
	ledgerMock.On("Commit", mock.Anything).Return(nil)

	cand := candidate("voucher_V1", -30000, date)
	cand.ExistingTransactionID = "tx-7"

	result, err := newTestImporter(ledgerMock).ImportBatch(context.Background(), "acc-1",
		[]*service.Candidate{cand}, false)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	ledgerMock.AssertExpectations(t)
}

func TestImporter_FailureIsolation(t *testing.T) {
	date := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	ledgerMock := new(MockLedgerWriter)
	ledgerMock.On("ListTransactions", mock.Anything, "acc-1").Return([]*ledger.Transaction{}, nil)
	ledgerMock.On("CreateTransaction", mock.Anything, "acc-1", mock.MatchedBy(func(tx *ledger.NewTransaction) bool {
		return tx.ImportedID == "voucher_V1"
	})).Return("", errors.New("boom"))
	ledgerMock.On("CreateTransaction", mock.Anything, "acc-1", mock.MatchedBy(func(tx *ledger.NewTransaction) bool {
		return tx.ImportedID == "voucher_V2"
	})).Return("tx-2", nil)
	ledgerMock.On("ApplyRules", mock.Anything, []string{"tx-2"}).Return(nil)
	ledgerMock.On("Commit", mock.Anything).Return(nil)

	result, err := newTestImporter(ledgerMock).ImportBatch(context.Background(), "acc-1",
		[]*service.Candidate{
			candidate("voucher_V1", -100, date),
			candidate("voucher_V2", -200, date),
		}, false)

	require.NoError(t, err, "one failed candidate must not fail the batch")
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Added)
	require.Error(t, result.Outcomes[0].Err)
	assert.NoError(t, result.Outcomes[1].Err)
}

func TestImporter_DryRunWritesNothing(t *testing.T) {
	date := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	ledgerMock := new(MockLedgerWriter)
	ledgerMock.On("ListTransactions", mock.Anything, "acc-1").Return([]*ledger.Transaction{
		{ID: "tx-1", Date: "2025-01-10", Amount: -200},
	}, nil)

	result, err := newTestImporter(ledgerMock).ImportBatch(context.Background(), "acc-1",
		[]*service.Candidate{
			candidate("voucher_V1", -100, date),
			candidate("voucher_V2", -200, date),
		}, true)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 1, result.Updated)
	ledgerMock.AssertNotCalled(t, "CreateTransaction", mock.Anything, mock.Anything, mock.Anything)
	ledgerMock.AssertNotCalled(t, "UpdateTransaction", mock.Anything, mock.Anything, mock.Anything)
	ledgerMock.AssertNotCalled(t, "ApplyRules", mock.Anything, mock.Anything)
	ledgerMock.AssertNotCalled(t, "Commit", mock.Anything)
}
