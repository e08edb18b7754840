package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/accounting-ledger-sync/internal/domain/document"
	"github.com/accounting-ledger-sync/internal/platform/persistence"
)

// FailedDocumentRepository implements the document.FailureRepository
// interface for PostgreSQL
type FailedDocumentRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewFailedDocumentRepository creates a new PostgreSQL failed-document repository
func NewFailedDocumentRepository(logger *slog.Logger, db *persistence.PostgresDB) document.FailureRepository {
	return &FailedDocumentRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// Record upserts a failure. A repeated failure refreshes the reason and
// increments the retry counter instead of inserting a second row.
func (r *FailedDocumentRepository) Record(ctx context.Context, id string, kind document.Kind, reason string) error {
	query := `
		INSERT INTO failed_documents (id, kind, reason, failed_at, retry_count)
		VALUES ($1, $2, $3, NOW(), 1)
		ON CONFLICT (id) DO UPDATE SET
			reason = EXCLUDED.reason,
			failed_at = NOW(),
			retry_count = failed_documents.retry_count + 1
	`

	if _, err := r.querier.Exec(ctx, query, id, kind, reason); err != nil {
		r.logger.Error("Failed to record failed document", "id", id, "error", err)
		return fmt.Errorf("failed to record failed document: %w", err)
	}

	return nil
}

// Delete removes a failure record once the document validates again
func (r *FailedDocumentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.querier.Exec(ctx, `DELETE FROM failed_documents WHERE id = $1`, id); err != nil {
		r.logger.Error("Failed to delete failed document", "id", id, "error", err)
		return fmt.Errorf("failed to delete failed document: %w", err)
	}

	return nil
}

// List returns failure records newest first
func (r *FailedDocumentRepository) List(ctx context.Context, limit, offset int) ([]*document.FailedDocument, error) {
	query := `
		SELECT id, kind, reason, failed_at, retry_count
		FROM failed_documents
		ORDER BY failed_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.querier.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list failed documents", "error", err)
		return nil, fmt.Errorf("failed to list failed documents: %w", err)
	}
	defer rows.Close()

	var failed []*document.FailedDocument
	for rows.Next() {
		var fd document.FailedDocument
		if err := rows.Scan(&fd.ID, &fd.Kind, &fd.Reason, &fd.FailedAt, &fd.RetryCount); err != nil {
			return nil, fmt.Errorf("failed to scan failed document: %w", err)
		}
		failed = append(failed, &fd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read failed documents: %w", err)
	}

	return failed, nil
}

// Count returns the number of failure records
func (r *FailedDocumentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM failed_documents`).Scan(&count); err != nil {
		r.logger.Error("Failed to count failed documents", "error", err)
		return 0, fmt.Errorf("failed to count failed documents: %w", err)
	}

	return count, nil
}

// Clear wipes all failure records, forcing a retry of every failed document
// on the next run
func (r *FailedDocumentRepository) Clear(ctx context.Context) error {
	if _, err := r.querier.Exec(ctx, `DELETE FROM failed_documents`); err != nil {
		r.logger.Error("Failed to clear failed documents", "error", err)
		return fmt.Errorf("failed to clear failed documents: %w", err)
	}

	return nil
}
