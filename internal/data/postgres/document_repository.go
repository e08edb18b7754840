// Package postgres provides PostgreSQL implementations of the domain
// repositories backing the local document cache. Every write is an
// idempotent upsert so interrupted sync runs can always be repeated.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/accounting-ledger-sync/internal/domain/document"
	"github.com/accounting-ledger-sync/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// DocumentRepository implements the document.Repository interface for PostgreSQL
type DocumentRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewDocumentRepository creates a new PostgreSQL document repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewDocumentRepository(logger *slog.Logger, db *persistence.PostgresDB) document.Repository {
	return &DocumentRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so document and position
// writes for one refresh land atomically.
func (r *DocumentRepository) WithTx(tx pgx.Tx) document.Repository {
	return &DocumentRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// UpsertDocuments stores a batch of fetched documents. Existing rows are
// overwritten with the fresh source data; the dirty and validity columns
// are left alone since they are managed by their own operations.
func (r *DocumentRepository) UpsertDocuments(ctx context.Context, docs []*document.CachedDocument) error {
	query := `
		INSERT INTO documents (id, kind, date, gross_amount, status, cost_center_id, counterparty_name, source_updated_at, raw_payload, cached_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			date = EXCLUDED.date,
			gross_amount = EXCLUDED.gross_amount,
			status = EXCLUDED.status,
			cost_center_id = EXCLUDED.cost_center_id,
			counterparty_name = EXCLUDED.counterparty_name,
			source_updated_at = EXCLUDED.source_updated_at,
			raw_payload = EXCLUDED.raw_payload,
			cached_at = NOW()
	`

	for _, doc := range docs {
		_, err := r.querier.Exec(ctx, query,
			doc.ID,
			doc.Kind,
			doc.Date,
			doc.GrossAmount,
			doc.Status,
			nullableString(doc.CostCenterID),
			nullableString(doc.CounterpartyName),
			doc.SourceUpdatedAt,
			doc.RawPayload,
		)
		if err != nil {
			r.logger.Error("Failed to upsert document", "id", doc.ID, "error", err)
			return fmt.Errorf("failed to upsert document %s: %w", doc.ID, err)
		}
	}

	return nil
}

// UpsertPositions replaces a document's line items wholesale, matching the
// ownership rule that positions never outlive a document refresh
func (r *DocumentRepository) UpsertPositions(ctx context.Context, documentID string, positions []*document.Position) error {
	deleteQuery := `DELETE FROM positions WHERE document_id = $1`
	if _, err := r.querier.Exec(ctx, deleteQuery, documentID); err != nil {
		r.logger.Error("Failed to clear positions", "documentID", documentID, "error", err)
		return fmt.Errorf("failed to clear positions for document %s: %w", documentID, err)
	}

	insertQuery := `
		INSERT INTO positions (id, document_id, accounting_type_id, cost_center_id, net_amount, tax_rate)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, pos := range positions {
		_, err := r.querier.Exec(ctx, insertQuery,
			pos.ID,
			documentID,
			pos.AccountingTypeID,
			nullableString(pos.CostCenterID),
			pos.NetAmount,
			pos.TaxRate,
		)
		if err != nil {
			r.logger.Error("Failed to insert position", "documentID", documentID, "positionID", pos.ID, "error", err)
			return fmt.Errorf("failed to insert position %s: %w", pos.ID, err)
		}
	}

	return nil
}

// GetByID retrieves a cached document by its source id
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*document.CachedDocument, error) {
	query := `
		SELECT id, kind, date, gross_amount, status, cost_center_id, counterparty_name, source_updated_at, raw_payload, cached_at, dirty, validity, validation_reason, last_validated_at
		FROM documents
		WHERE id = $1
	`

	var doc document.CachedDocument
	var costCenterID, counterpartyName, validationReason *string
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&doc.ID,
		&doc.Kind,
		&doc.Date,
		&doc.GrossAmount,
		&doc.Status,
		&costCenterID,
		&counterpartyName,
		&doc.SourceUpdatedAt,
		&doc.RawPayload,
		&doc.CachedAt,
		&doc.Dirty,
		&doc.Validity,
		&validationReason,
		&doc.LastValidatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, document.ErrDocumentNotFound{ID: id}
		}
		r.logger.Error("Failed to get document", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	doc.CostCenterID = derefString(costCenterID)
	doc.CounterpartyName = derefString(counterpartyName)
	doc.ValidationReason = derefString(validationReason)

	return &doc, nil
}

// GetPositions retrieves the cached line items of a document
func (r *DocumentRepository) GetPositions(ctx context.Context, documentID string) ([]*document.Position, error) {
	query := `
		SELECT id, document_id, accounting_type_id, cost_center_id, net_amount, tax_rate
		FROM positions
		WHERE document_id = $1
		ORDER BY id
	`

	rows, err := r.querier.Query(ctx, query, documentID)
	if err != nil {
		r.logger.Error("Failed to get positions", "documentID", documentID, "error", err)
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}
	defer rows.Close()

	var positions []*document.Position
	for rows.Next() {
		var pos document.Position
		var costCenterID *string
		if err := rows.Scan(&pos.ID, &pos.DocumentID, &pos.AccountingTypeID, &costCenterID, &pos.NetAmount, &pos.TaxRate); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		pos.CostCenterID = derefString(costCenterID)
		positions = append(positions, &pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read positions: %w", err)
	}

	return positions, nil
}

// MaxSourceUpdatedAt returns the newest source-side update timestamp seen
// for the given kind, or nil for an empty cache
func (r *DocumentRepository) MaxSourceUpdatedAt(ctx context.Context, kind document.Kind) (*time.Time, error) {
	query := `SELECT MAX(source_updated_at) FROM documents WHERE kind = $1`

	var maxUpdatedAt *time.Time
	if err := r.querier.QueryRow(ctx, query, kind).Scan(&maxUpdatedAt); err != nil {
		r.logger.Error("Failed to get max source update timestamp", "kind", kind, "error", err)
		return nil, fmt.Errorf("failed to get max source update timestamp: %w", err)
	}

	return maxUpdatedAt, nil
}

// UpdatedSince returns ids of cached documents whose source update
// timestamp is newer than the given point
func (r *DocumentRepository) UpdatedSince(ctx context.Context, kind document.Kind, since time.Time) ([]string, error) {
	query := `SELECT id FROM documents WHERE kind = $1 AND source_updated_at > $2 ORDER BY source_updated_at`
	return r.queryIDs(ctx, query, kind, since)
}

// InvalidIDs returns documents currently classified invalid
func (r *DocumentRepository) InvalidIDs(ctx context.Context, kind document.Kind) ([]string, error) {
	query := `SELECT id FROM documents WHERE kind = $1 AND validity = 'invalid' ORDER BY id`
	return r.queryIDs(ctx, query, kind)
}

// DirtyIDs returns documents flagged by the edit signal since the last run
func (r *DocumentRepository) DirtyIDs(ctx context.Context, kind document.Kind) ([]string, error) {
	query := `SELECT id FROM documents WHERE kind = $1 AND dirty ORDER BY id`
	return r.queryIDs(ctx, query, kind)
}

func (r *DocumentRepository) queryIDs(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query document ids", "error", err)
		return nil, fmt.Errorf("failed to query document ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan document id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read document ids: %w", err)
	}

	return ids, nil
}

// MarkValidation persists a classification outcome
func (r *DocumentRepository) MarkValidation(ctx context.Context, id string, validity document.Validity, reason string) error {
	query := `
		UPDATE documents
		SET validity = $1, validation_reason = $2, last_validated_at = NOW()
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, validity, nullableString(reason), id)
	if err != nil {
		r.logger.Error("Failed to mark validation", "id", id, "error", err)
		return fmt.Errorf("failed to mark validation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return document.ErrDocumentNotFound{ID: id}
	}

	return nil
}

// MarkDirty flags documents for re-classification on the next run even when
// their source timestamp has not moved
func (r *DocumentRepository) MarkDirty(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := `UPDATE documents SET dirty = TRUE WHERE id = ANY($1)`
	if _, err := r.querier.Exec(ctx, query, ids); err != nil {
		r.logger.Error("Failed to mark documents dirty", "error", err)
		return fmt.Errorf("failed to mark documents dirty: %w", err)
	}

	return nil
}

// ClearDirty clears the edit flag on the given documents; a nil slice
// clears every flag
func (r *DocumentRepository) ClearDirty(ctx context.Context, ids []string) error {
	var err error
	if ids == nil {
		_, err = r.querier.Exec(ctx, `UPDATE documents SET dirty = FALSE WHERE dirty`)
	} else if len(ids) > 0 {
		_, err = r.querier.Exec(ctx, `UPDATE documents SET dirty = FALSE WHERE id = ANY($1)`, ids)
	}
	if err != nil {
		r.logger.Error("Failed to clear dirty flags", "error", err)
		return fmt.Errorf("failed to clear dirty flags: %w", err)
	}

	return nil
}

// Clear wipes the document cache; positions follow via the FK cascade
func (r *DocumentRepository) Clear(ctx context.Context) error {
	if _, err := r.querier.Exec(ctx, `DELETE FROM documents`); err != nil {
		r.logger.Error("Failed to clear document cache", "error", err)
		return fmt.Errorf("failed to clear document cache: %w", err)
	}

	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
