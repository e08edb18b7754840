package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/accounting-ledger-sync/internal/domain/costcenter"
	"github.com/accounting-ledger-sync/internal/domain/document"
	"github.com/accounting-ledger-sync/internal/domain/syncrun"
	"github.com/accounting-ledger-sync/internal/ledger"
)

// RunOptions selects the flavor of one sync run
type RunOptions struct {
	Full          bool // Ignore the incremental watermark and fetch everything
	DryRun        bool // Compute and report actions without mutating any state
	Reconcile     bool // Append the reconciliation pass after the sync
	ReconcileOnly bool // Skip the sync and run only the reconciliation pass
	Limit         int  // Cap on fetched documents per kind, 0 = unlimited
}

// SyncService drives complete synchronization runs between the source
// accounting system and the budget ledger
type SyncService interface {
	Run(ctx context.Context, opts RunOptions) (*syncrun.RunReport, error)

	// MarkEdited flags cached documents for re-fetch on the next run,
	// the entry point for upstream bulk-edit signals
	MarkEdited(ctx context.Context, ids []string) error
}

// SourceReader is the slice of the source client the engine consumes
type SourceReader interface {
	ListBookedDocuments(ctx context.Context, kind document.Kind, updatedAfter *time.Time, limit int) ([]*document.CachedDocument, error)
	GetDocument(ctx context.Context, kind document.Kind, id string) (*document.CachedDocument, error)
	BatchPositions(ctx context.Context, kind document.Kind, ids []string) (map[string][]*document.Position, map[string]error, error)
	ListCostCenters(ctx context.Context) ([]*costcenter.CostCenter, error)
}

// LedgerWriter is the slice of the ledger client the engine consumes
type LedgerWriter interface {
	ListAccounts(ctx context.Context) ([]*ledger.Account, error)
	GetOrCreateAccount(ctx context.Context, name string) (*ledger.Account, error)
	GetOrCreateCategoryGroup(ctx context.Context, name string) (*ledger.CategoryGroup, error)
	ListCategories(ctx context.Context) ([]*ledger.Category, error)
	CreateCategory(ctx context.Context, name, groupID string) (*ledger.Category, error)
	ListTransactions(ctx context.Context, accountID string) ([]*ledger.Transaction, error)
	CreateTransaction(ctx context.Context, accountID string, tx *ledger.NewTransaction) (string, error)
	UpdateTransaction(ctx context.Context, id string, update *ledger.TransactionUpdate) error
	DeleteTransaction(ctx context.Context, id string) (bool, error)
	ApplyRules(ctx context.Context, transactionIDs []string) error
	Commit(ctx context.Context) error
}

// Classifier decides the disposition of one cached document from its
// positions and the current cost-center links
type Classifier interface {
	Classify(doc *document.CachedDocument, positions []*document.Position, links map[string]*costcenter.CategoryLink) document.Disposition
}

// Delta is the working set of one run for one document kind. Position fetch
// failures are isolated per document so one broken item never stalls a run.
// Dirty holds the ids flagged by edit events; an edit can land without moving
// the source timestamp, so those documents are classified even when the
// mapping looks current.
type Delta struct {
	Documents []*document.CachedDocument
	Positions map[string][]*document.Position
	Failures  map[string]error
	Dirty     map[string]struct{}
}

// DeltaPlanner computes the working set of one run: everything on a full
// run, otherwise documents updated since the watermark plus the invalid and
// dirty backlog
type DeltaPlanner interface {
	Plan(ctx context.Context, kind document.Kind, full bool, limit int) (*Delta, error)
}

// Candidate is one document ready for ledger import. Amount is in signed
// minor units as the ledger stores it. ExistingTransactionID is set when the
// candidate updates a previously imported transaction.
type Candidate struct {
	SourceID              string
	Date                  time.Time
	Amount                int64
	PayeeName             string
	CategoryID            string
	Notes                 string
	ExistingTransactionID string
}

// Action names the import outcome of one candidate
type Action string

const (
	ActionAdded   Action = "added"
	ActionUpdated Action = "updated"
	ActionSkipped Action = "skipped"
)

// ImportOutcome is the per-candidate result. TransactionID is set for every
// successful outcome, including skips, so the caller can repair mappings
// that point at an already-present transaction.
type ImportOutcome struct {
	SourceID      string
	Action        Action
	TransactionID string
	Err           error
}

// ImportResult aggregates one batch
type ImportResult struct {
	Outcomes []ImportOutcome
	Added    int
	Updated  int
	Skipped  int
	Failed   int
}

// Importer pushes candidates into the ledger, deduplicating against the
// transactions already present in the target account
type Importer interface {
	ImportBatch(ctx context.Context, accountID string, candidates []*Candidate, dryRun bool) (*ImportResult, error)
}

// ReconcileResult aggregates one reconciliation pass. Deleted holds the
// source ids whose ledger transactions were (or would be, on a dry run)
// removed.
type ReconcileResult struct {
	Checked int
	Deleted []string
	Failed  map[string]error
}

// Reconciler removes ledger transactions whose source document disappeared
// or fell out of booked status
type Reconciler interface {
	Reconcile(ctx context.Context, dryRun bool) (*ReconcileResult, error)
}

// FailureRecorder tracks classification and import failures per document
type FailureRecorder interface {
	RecordFailure(ctx context.Context, doc *document.CachedDocument, reason string) error

	// RecordSuccess marks the document valid and clears any earlier failure
	RecordSuccess(ctx context.Context, doc *document.CachedDocument) error
}

// CategoryEnsurer mirrors source cost centers into ledger categories and
// maintains the persisted 1:1 links
type CategoryEnsurer interface {
	// EnsureCategories creates missing ledger categories and repairs links
	// whose category disappeared, returning the current link set keyed by
	// cost center id
	EnsureCategories(ctx context.Context) (map[string]*costcenter.CategoryLink, error)

	// CurrentLinks returns the persisted links without touching the ledger;
	// dry runs classify against these
	CurrentLinks(ctx context.Context) (map[string]*costcenter.CategoryLink, error)
}

// ReportPublisher hands a finished run report to the reporting transports
type ReportPublisher interface {
	Publish(ctx context.Context, report *syncrun.RunReport) error
}

// TxRunner runs a function inside one database transaction. Satisfied by
// persistence.PostgresDB.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}
