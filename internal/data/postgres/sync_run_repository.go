package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/accounting-ledger-sync/internal/domain/syncrun"
	"github.com/accounting-ledger-sync/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SyncRunRepository implements the syncrun.Repository interface for PostgreSQL
type SyncRunRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewSyncRunRepository creates a new PostgreSQL sync run repository
func NewSyncRunRepository(logger *slog.Logger, db *persistence.PostgresDB) syncrun.Repository {
	return &SyncRunRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// Create stores a run record in the running state
func (r *SyncRunRepository) Create(ctx context.Context, run *syncrun.SyncRun) error {
	query := `
		INSERT INTO sync_runs (id, kind, started_at, status, items_processed, items_synced, items_failed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.querier.Exec(ctx, query,
		run.ID,
		run.Kind,
		run.StartedAt,
		run.Status,
		run.ItemsProcessed,
		run.ItemsSynced,
		run.ItemsFailed,
	)
	if err != nil {
		r.logger.Error("Failed to create sync run", "id", run.ID.String(), "error", err)
		return fmt.Errorf("failed to create sync run: %w", err)
	}

	return nil
}

// Close writes the terminal state of a run. History is append-only; this is
// the only update a row ever receives.
func (r *SyncRunRepository) Close(ctx context.Context, run *syncrun.SyncRun) error {
	query := `
		UPDATE sync_runs
		SET completed_at = $1, status = $2, items_processed = $3, items_synced = $4, items_failed = $5, error_message = $6
		WHERE id = $7
	`

	result, err := r.querier.Exec(ctx, query,
		run.CompletedAt,
		run.Status,
		run.ItemsProcessed,
		run.ItemsSynced,
		run.ItemsFailed,
		nullableString(run.ErrorMessage),
		run.ID,
	)
	if err != nil {
		r.logger.Error("Failed to close sync run", "id", run.ID.String(), "error", err)
		return fmt.Errorf("failed to close sync run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return syncrun.ErrRunNotFound{RunID: run.ID}
	}

	return nil
}

// GetByID retrieves a run by its id
func (r *SyncRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*syncrun.SyncRun, error) {
	query := `
		SELECT id, kind, started_at, completed_at, status, items_processed, items_synced, items_failed, error_message
		FROM sync_runs
		WHERE id = $1
	`

	run, err := r.scanRun(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, syncrun.ErrRunNotFound{RunID: id}
		}
		r.logger.Error("Failed to get sync run", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get sync run: %w", err)
	}

	return run, nil
}

// List returns run history newest first
func (r *SyncRunRepository) List(ctx context.Context, limit, offset int) ([]*syncrun.SyncRun, error) {
	query := `
		SELECT id, kind, started_at, completed_at, status, items_processed, items_synced, items_failed, error_message
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.querier.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list sync runs", "error", err)
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*syncrun.SyncRun
	for rows.Next() {
		run, err := r.scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sync runs: %w", err)
	}

	return runs, nil
}

// Count returns the number of recorded runs
func (r *SyncRunRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM sync_runs`).Scan(&count); err != nil {
		r.logger.Error("Failed to count sync runs", "error", err)
		return 0, fmt.Errorf("failed to count sync runs: %w", err)
	}

	return count, nil
}

func (r *SyncRunRepository) scanRun(row pgx.Row) (*syncrun.SyncRun, error) {
	var run syncrun.SyncRun
	var errorMessage *string
	err := row.Scan(
		&run.ID,
		&run.Kind,
		&run.StartedAt,
		&run.CompletedAt,
		&run.Status,
		&run.ItemsProcessed,
		&run.ItemsSynced,
		&run.ItemsFailed,
		&errorMessage,
	)
	if err != nil {
		return nil, err
	}
	run.ErrorMessage = derefString(errorMessage)

	return &run, nil
}
