package syncrun

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInvalidKind  = errors.New("invalid sync run kind")
	ErrAlreadyEnded = errors.New("sync run already ended")
)

// Kind defines the flavor of a sync run
type Kind string

const (
	KindFull        Kind = "full"
	KindIncremental Kind = "incremental"
	KindReconcile   Kind = "reconcile"
)

// Status defines sync run states
type Status string

const (
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusDryRun    Status = "DRY_RUN"
)

// SyncRun records one orchestrator execution. Rows are append-only history:
// a run is created at start, closed exactly once, and never mutated again.
type SyncRun struct {
	ID             uuid.UUID  `json:"id"`
	Kind           Kind       `json:"kind"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Status         Status     `json:"status"`
	ItemsProcessed int        `json:"items_processed"`
	ItemsSynced    int        `json:"items_synced"`
	ItemsFailed    int        `json:"items_failed"`
	ErrorMessage   string     `json:"error_message,omitempty"`
}

// NewSyncRun creates a run record in the running state
func NewSyncRun(kind Kind) (*SyncRun, error) {
	switch kind {
	case KindFull, KindIncremental, KindReconcile:
	default:
		return nil, ErrInvalidKind
	}

	return &SyncRun{
		ID:        uuid.New(),
		Kind:      kind,
		StartedAt: time.Now(),
		Status:    StatusRunning,
	}, nil
}

// Complete closes the run with its aggregated counts
func (r *SyncRun) Complete(processed, synced, failed int) error {
	if r.CompletedAt != nil {
		return ErrAlreadyEnded
	}
	now := time.Now()
	r.CompletedAt = &now
	r.Status = StatusCompleted
	r.ItemsProcessed = processed
	r.ItemsSynced = synced
	r.ItemsFailed = failed
	return nil
}

// CompleteDryRun closes a run that computed actions without mutating state
func (r *SyncRun) CompleteDryRun(processed, synced, failed int) error {
	if err := r.Complete(processed, synced, failed); err != nil {
		return err
	}
	r.Status = StatusDryRun
	return nil
}

// Fail closes the run with an error message. Partial progress counts are
// kept so operators can see how far the run got.
func (r *SyncRun) Fail(message string, processed, synced, failed int) error {
	if r.CompletedAt != nil {
		return ErrAlreadyEnded
	}
	now := time.Now()
	r.CompletedAt = &now
	r.Status = StatusFailed
	r.ErrorMessage = message
	r.ItemsProcessed = processed
	r.ItemsSynced = synced
	r.ItemsFailed = failed
	return nil
}

// InvalidDocument is the report line for one document that failed
// classification during a run
type InvalidDocument struct {
	ID     string          `json:"id" bson:"id"`
	Kind   string          `json:"kind" bson:"kind"`
	Date   time.Time       `json:"date" bson:"date"`
	Amount decimal.Decimal `json:"amount" bson:"amount"`
	Reason string          `json:"reason" bson:"reason"`
}

// RunReport is the structured per-run summary handed to the reporting
// transports (Kafka topic, archive). It is a value object derived from a
// closed SyncRun plus the run's collected invalid documents.
type RunReport struct {
	RunID            uuid.UUID         `json:"run_id" bson:"run_id"`
	Kind             Kind              `json:"kind" bson:"kind"`
	Status           Status            `json:"status" bson:"status"`
	StartedAt        time.Time         `json:"started_at" bson:"started_at"`
	CompletedAt      time.Time         `json:"completed_at" bson:"completed_at"`
	Processed        int               `json:"processed" bson:"processed"`
	Synced           int               `json:"synced" bson:"synced"`
	Failed           int               `json:"failed" bson:"failed"`
	Ignored          int               `json:"ignored" bson:"ignored"`
	Deleted          int               `json:"deleted" bson:"deleted"`
	ErrorMessage     string            `json:"error_message,omitempty" bson:"error_message,omitempty"`
	InvalidDocuments []InvalidDocument `json:"invalid_documents,omitempty" bson:"invalid_documents,omitempty"`
}
