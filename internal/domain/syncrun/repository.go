package syncrun

import (
	"context"

	"github.com/google/uuid"
)

// Repository manages sync run history with pagination support
type Repository interface {
	Create(ctx context.Context, run *SyncRun) error

	// Close writes the terminal state of a run; it is the only update a row
	// ever receives
	Close(ctx context.Context, run *SyncRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*SyncRun, error)
	List(ctx context.Context, limit, offset int) ([]*SyncRun, error)
	Count(ctx context.Context) (int64, error)
}

// ReportRepository archives full run reports, including the invalid
// document details that the relational history does not keep
type ReportRepository interface {
	Save(ctx context.Context, report *RunReport) error
	GetByRunID(ctx context.Context, runID uuid.UUID) (*RunReport, error)
	ListRecent(ctx context.Context, limit int) ([]*RunReport, error)
}

// ErrRunNotFound indicates a missing sync run
type ErrRunNotFound struct {
	RunID uuid.UUID
}

func (e ErrRunNotFound) Error() string {
	return "sync run not found: " + e.RunID.String()
}

// Is implements the errors.Is interface for ErrRunNotFound
func (e ErrRunNotFound) Is(target error) bool {
	t, ok := target.(ErrRunNotFound)
	if !ok {
		return false
	}
	if t.RunID == uuid.Nil {
		return true
	}
	return e.RunID == t.RunID
}
