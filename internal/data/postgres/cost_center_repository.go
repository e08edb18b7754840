package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/accounting-ledger-sync/internal/domain/costcenter"
	"github.com/accounting-ledger-sync/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// CostCenterRepository implements the costcenter.Repository interface for PostgreSQL
type CostCenterRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewCostCenterRepository creates a new PostgreSQL cost-center link repository
func NewCostCenterRepository(logger *slog.Logger, db *persistence.PostgresDB) costcenter.Repository {
	return &CostCenterRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *CostCenterRepository) WithTx(tx pgx.Tx) costcenter.Repository {
	return &CostCenterRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Save upserts a cost-center → category link
func (r *CostCenterRepository) Save(ctx context.Context, link *costcenter.CategoryLink) error {
	query := `
		INSERT INTO cost_center_links (cost_center_id, cost_center_name, category_id, category_name, linked_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (cost_center_id) DO UPDATE SET
			cost_center_name = EXCLUDED.cost_center_name,
			category_id = EXCLUDED.category_id,
			category_name = EXCLUDED.category_name,
			linked_at = EXCLUDED.linked_at
	`

	_, err := r.querier.Exec(ctx, query,
		link.CostCenterID,
		link.CostCenterName,
		link.CategoryID,
		link.CategoryName,
		link.LinkedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save category link", "costCenterID", link.CostCenterID, "error", err)
		return fmt.Errorf("failed to save category link: %w", err)
	}

	return nil
}

// GetByCostCenterID retrieves the link for a cost center
func (r *CostCenterRepository) GetByCostCenterID(ctx context.Context, costCenterID string) (*costcenter.CategoryLink, error) {
	query := `
		SELECT cost_center_id, cost_center_name, category_id, category_name, linked_at
		FROM cost_center_links
		WHERE cost_center_id = $1
	`

	var link costcenter.CategoryLink
	err := r.querier.QueryRow(ctx, query, costCenterID).Scan(
		&link.CostCenterID,
		&link.CostCenterName,
		&link.CategoryID,
		&link.CategoryName,
		&link.LinkedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, costcenter.ErrLinkNotFound{CostCenterID: costCenterID}
		}
		r.logger.Error("Failed to get category link", "costCenterID", costCenterID, "error", err)
		return nil, fmt.Errorf("failed to get category link: %w", err)
	}

	return &link, nil
}

// List returns every category link
func (r *CostCenterRepository) List(ctx context.Context) ([]*costcenter.CategoryLink, error) {
	query := `
		SELECT cost_center_id, cost_center_name, category_id, category_name, linked_at
		FROM cost_center_links
		ORDER BY cost_center_id
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list category links", "error", err)
		return nil, fmt.Errorf("failed to list category links: %w", err)
	}
	defer rows.Close()

	var links []*costcenter.CategoryLink
	for rows.Next() {
		var link costcenter.CategoryLink
		if err := rows.Scan(&link.CostCenterID, &link.CostCenterName, &link.CategoryID, &link.CategoryName, &link.LinkedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category link: %w", err)
		}
		links = append(links, &link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read category links: %w", err)
	}

	return links, nil
}

// Delete removes a link, reporting whether a row existed
func (r *CostCenterRepository) Delete(ctx context.Context, costCenterID string) (bool, error) {
	result, err := r.querier.Exec(ctx, `DELETE FROM cost_center_links WHERE cost_center_id = $1`, costCenterID)
	if err != nil {
		r.logger.Error("Failed to delete category link", "costCenterID", costCenterID, "error", err)
		return false, fmt.Errorf("failed to delete category link: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// Clear drops every category link
func (r *CostCenterRepository) Clear(ctx context.Context) error {
	if _, err := r.querier.Exec(ctx, `DELETE FROM cost_center_links`); err != nil {
		r.logger.Error("Failed to clear category links", "error", err)
		return fmt.Errorf("failed to clear category links: %w", err)
	}

	return nil
}
