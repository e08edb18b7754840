package mapping

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository defines mapping persistence. At most one row exists per source
// id; Save is an upsert so repeated syncs of the same document converge.
type Repository interface {
	Get(ctx context.Context, sourceID string) (*Mapping, error)
	Save(ctx context.Context, m *Mapping) error

	// Delete removes a mapping, reporting whether a row existed
	Delete(ctx context.Context, sourceID string) (bool, error)
	IsIgnored(ctx context.Context, sourceID string) (bool, error)

	// ListActive returns all non-ignored mappings, the reconciler's working
	// set
	ListActive(ctx context.Context) ([]*Mapping, error)
	CountActive(ctx context.Context) (int64, error)

	// Clear drops every mapping; only reachable from the admin reset
	// operation
	Clear(ctx context.Context) error
	WithTx(tx pgx.Tx) Repository
}

// ErrMappingNotFound indicates a missing mapping row
type ErrMappingNotFound struct {
	SourceID string
}

func (e ErrMappingNotFound) Error() string {
	return "mapping not found: " + e.SourceID
}

// Is implements the errors.Is interface for ErrMappingNotFound
func (e ErrMappingNotFound) Is(target error) bool {
	t, ok := target.(ErrMappingNotFound)
	if !ok {
		return false
	}
	if t.SourceID == "" {
		return true
	}
	return e.SourceID == t.SourceID
}
