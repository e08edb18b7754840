package costcenter

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository defines cost-center link persistence
type Repository interface {
	Save(ctx context.Context, link *CategoryLink) error
	GetByCostCenterID(ctx context.Context, costCenterID string) (*CategoryLink, error)
	List(ctx context.Context) ([]*CategoryLink, error)
	Delete(ctx context.Context, costCenterID string) (bool, error)
	Clear(ctx context.Context) error
	WithTx(tx pgx.Tx) Repository
}

// ErrLinkNotFound indicates a cost center without a ledger category link
type ErrLinkNotFound struct {
	CostCenterID string
}

func (e ErrLinkNotFound) Error() string {
	return "no category link for cost center: " + e.CostCenterID
}

// Is implements the errors.Is interface for ErrLinkNotFound
func (e ErrLinkNotFound) Is(target error) bool {
	t, ok := target.(ErrLinkNotFound)
	if !ok {
		return false
	}
	if t.CostCenterID == "" {
		return true
	}
	return e.CostCenterID == t.CostCenterID
}
