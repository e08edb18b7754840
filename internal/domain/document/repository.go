package document

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// Repository defines cache persistence for documents and their positions.
// Every write is an idempotent upsert keyed by natural identity, so any
// interrupted run can simply be repeated.
type Repository interface {
	UpsertDocuments(ctx context.Context, docs []*CachedDocument) error
	UpsertPositions(ctx context.Context, documentID string, positions []*Position) error
	GetByID(ctx context.Context, id string) (*CachedDocument, error)
	GetPositions(ctx context.Context, documentID string) ([]*Position, error)

	// MaxSourceUpdatedAt returns the newest source-side update timestamp in
	// the cache for the given kind, or nil when the cache is empty
	MaxSourceUpdatedAt(ctx context.Context, kind Kind) (*time.Time, error)
	UpdatedSince(ctx context.Context, kind Kind, since time.Time) ([]string, error)

	// InvalidIDs returns documents currently classified invalid; these are
	// always re-fetched so upstream fixes are picked up without a timestamp
	// change
	InvalidIDs(ctx context.Context, kind Kind) ([]string, error)
	DirtyIDs(ctx context.Context, kind Kind) ([]string, error)

	MarkValidation(ctx context.Context, id string, validity Validity, reason string) error
	MarkDirty(ctx context.Context, ids []string) error
	ClearDirty(ctx context.Context, ids []string) error

	// Clear wipes the document and position cache; the next run rebuilds it
	Clear(ctx context.Context) error
	WithTx(tx pgx.Tx) Repository
}

// FailureRepository manages the failed-document ledger used for operator
// inspection and retry control
type FailureRepository interface {
	// Record upserts a failure, incrementing the retry counter when the
	// document already failed before
	Record(ctx context.Context, id string, kind Kind, reason string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*FailedDocument, error)
	Count(ctx context.Context) (int64, error)
	Clear(ctx context.Context) error
}

// ErrDocumentNotFound indicates a missing cache entry
type ErrDocumentNotFound struct {
	ID string
}

func (e ErrDocumentNotFound) Error() string {
	return "cached document not found: " + e.ID
}

// Is implements the errors.Is interface for ErrDocumentNotFound
func (e ErrDocumentNotFound) Is(target error) bool {
	t, ok := target.(ErrDocumentNotFound)
	if !ok {
		return false
	}
	// An empty target ID matches any ErrDocumentNotFound
	if t.ID == "" {
		return true
	}
	return e.ID == t.ID
}
