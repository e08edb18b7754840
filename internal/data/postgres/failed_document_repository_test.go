package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/accounting-ledger-sync/internal/domain/document"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailedDocumentRepository_Record(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &FailedDocumentRepository{querier: mock, logger: logger}

	mock.ExpectExec(`INSERT INTO failed_documents .* ON CONFLICT \(id\) DO UPDATE SET`).
		WithArgs("V1", document.KindVoucher, "no positions").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Record(ctx, "V1", document.KindVoucher, "no positions")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailedDocumentRepository_List(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &FailedDocumentRepository{querier: mock, logger: logger}
	now := time.Now()

	rows := pgxmock.NewRows([]string{"id", "kind", "reason", "failed_at", "retry_count"}).
		AddRow("V3", document.KindVoucher, "missing cost center", now, 2).
		AddRow("I1", document.KindInvoice, "no positions", now.Add(-time.Hour), 1)

	mock.ExpectQuery(`SELECT id, kind, reason, failed_at, retry_count`).
		WithArgs(50, 0).
		WillReturnRows(rows)

	failed, err := repo.List(ctx, 50, 0)
	assert.NoError(t, err)
	require.Len(t, failed, 2)
	assert.Equal(t, "V3", failed[0].ID)
	assert.Equal(t, 2, failed[0].RetryCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailedDocumentRepository_Clear(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &FailedDocumentRepository{querier: mock, logger: logger}

	mock.ExpectExec(`DELETE FROM failed_documents`).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	err = repo.Clear(ctx)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
