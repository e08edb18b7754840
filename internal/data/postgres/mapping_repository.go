package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/accounting-ledger-sync/internal/domain/mapping"
	"github.com/accounting-ledger-sync/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// MappingRepository implements the mapping.Repository interface for PostgreSQL
type MappingRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewMappingRepository creates a new PostgreSQL mapping repository
func NewMappingRepository(logger *slog.Logger, db *persistence.PostgresDB) mapping.Repository {
	return &MappingRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *MappingRepository) WithTx(tx pgx.Tx) mapping.Repository {
	return &MappingRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Get retrieves the mapping for a source id
func (r *MappingRepository) Get(ctx context.Context, sourceID string) (*mapping.Mapping, error) {
	query := `
		SELECT source_id, ledger_transaction_id, ignored, source_value_date, source_amount, source_updated_at, synced_at
		FROM mappings
		WHERE source_id = $1
	`

	var m mapping.Mapping
	err := r.querier.QueryRow(ctx, query, sourceID).Scan(
		&m.SourceID,
		&m.LedgerTransactionID,
		&m.Ignored,
		&m.SourceValueDate,
		&m.SourceAmount,
		&m.SourceUpdatedAt,
		&m.SyncedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, mapping.ErrMappingNotFound{SourceID: sourceID}
		}
		r.logger.Error("Failed to get mapping", "sourceID", sourceID, "error", err)
		return nil, fmt.Errorf("failed to get mapping: %w", err)
	}

	return &m, nil
}

// Save upserts a mapping keyed by source id, keeping the at-most-one-row
// invariant without a separate existence check
func (r *MappingRepository) Save(ctx context.Context, m *mapping.Mapping) error {
	query := `
		INSERT INTO mappings (source_id, ledger_transaction_id, ignored, source_value_date, source_amount, source_updated_at, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (source_id) DO UPDATE SET
			ledger_transaction_id = EXCLUDED.ledger_transaction_id,
			ignored = EXCLUDED.ignored,
			source_value_date = EXCLUDED.source_value_date,
			source_amount = EXCLUDED.source_amount,
			source_updated_at = EXCLUDED.source_updated_at,
			synced_at = EXCLUDED.synced_at
	`

	_, err := r.querier.Exec(ctx, query,
		m.SourceID,
		m.LedgerTransactionID,
		m.Ignored,
		m.SourceValueDate,
		m.SourceAmount,
		m.SourceUpdatedAt,
		m.SyncedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save mapping", "sourceID", m.SourceID, "error", err)
		return fmt.Errorf("failed to save mapping: %w", err)
	}

	return nil
}

// Delete removes a mapping, reporting whether a row existed. An absent row
// is not an error; the reconciler treats already-gone as success.
func (r *MappingRepository) Delete(ctx context.Context, sourceID string) (bool, error) {
	result, err := r.querier.Exec(ctx, `DELETE FROM mappings WHERE source_id = $1`, sourceID)
	if err != nil {
		r.logger.Error("Failed to delete mapping", "sourceID", sourceID, "error", err)
		return false, fmt.Errorf("failed to delete mapping: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// IsIgnored reports whether a source id carries an ignore marker. A missing
// row counts as not ignored.
func (r *MappingRepository) IsIgnored(ctx context.Context, sourceID string) (bool, error) {
	var ignored bool
	err := r.querier.QueryRow(ctx, `SELECT ignored FROM mappings WHERE source_id = $1`, sourceID).Scan(&ignored)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		r.logger.Error("Failed to check ignore marker", "sourceID", sourceID, "error", err)
		return false, fmt.Errorf("failed to check ignore marker: %w", err)
	}

	return ignored, nil
}

// ListActive returns all non-ignored mappings, the reconciler's working set
func (r *MappingRepository) ListActive(ctx context.Context) ([]*mapping.Mapping, error) {
	query := `
		SELECT source_id, ledger_transaction_id, ignored, source_value_date, source_amount, source_updated_at, synced_at
		FROM mappings
		WHERE NOT ignored
		ORDER BY source_id
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list active mappings", "error", err)
		return nil, fmt.Errorf("failed to list active mappings: %w", err)
	}
	defer rows.Close()

	var mappings []*mapping.Mapping
	for rows.Next() {
		var m mapping.Mapping
		if err := rows.Scan(&m.SourceID, &m.LedgerTransactionID, &m.Ignored, &m.SourceValueDate, &m.SourceAmount, &m.SourceUpdatedAt, &m.SyncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		mappings = append(mappings, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mappings: %w", err)
	}

	return mappings, nil
}

// CountActive returns the number of non-ignored mappings
func (r *MappingRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	if err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM mappings WHERE NOT ignored`).Scan(&count); err != nil {
		r.logger.Error("Failed to count active mappings", "error", err)
		return 0, fmt.Errorf("failed to count active mappings: %w", err)
	}

	return count, nil
}

// Clear drops every mapping; only the admin reset operation calls this
func (r *MappingRepository) Clear(ctx context.Context) error {
	if _, err := r.querier.Exec(ctx, `DELETE FROM mappings`); err != nil {
		r.logger.Error("Failed to clear mappings", "error", err)
		return fmt.Errorf("failed to clear mappings: %w", err)
	}

	return nil
}
