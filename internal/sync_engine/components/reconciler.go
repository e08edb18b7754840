package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/accounting-ledger-sync/internal/domain/document"
	"github.com/accounting-ledger-sync/internal/domain/mapping"
	"github.com/accounting-ledger-sync/internal/sync_engine/service"
)

// mappingReconciler walks the active mappings and removes ledger
// transactions whose source document was deleted upstream or fell out of
// booked status. The ledger delete tolerates an already-gone transaction, so
// an interrupted pass can simply be repeated.
type mappingReconciler struct {
	mappingRepo mapping.Repository
	source      service.SourceReader
	ledger      service.LedgerWriter
	logger      *slog.Logger
}

// NewMappingReconciler creates a reconciler over the mapping store and the
// two remote systems
func NewMappingReconciler(mappingRepo mapping.Repository, source service.SourceReader, ledgerClient service.LedgerWriter, logger *slog.Logger) service.Reconciler {
	return &mappingReconciler{
		mappingRepo: mappingRepo,
		source:      source,
		ledger:      ledgerClient,
		logger:      logger,
	}
}

// Reconcile checks every active mapping against the source. On a dry run
// stale entries are reported but nothing is deleted.
func (r *mappingReconciler) Reconcile(ctx context.Context, dryRun bool) (*service.ReconcileResult, error) {
	mappings, err := r.mappingRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active mappings: %w", err)
	}

	result := &service.ReconcileResult{Failed: make(map[string]error)}
	committed := false

	for _, m := range mappings {
		result.Checked++

		kind, id, err := document.ParseSourceID(m.SourceID)
		if err != nil {
			result.Failed[m.SourceID] = err
			continue
		}

		doc, err := r.source.GetDocument(ctx, kind, id)
		if err != nil {
			result.Failed[m.SourceID] = err
			continue
		}
		if doc != nil && doc.Status.Booked() {
			continue
		}

		reason := "deleted upstream"
		if doc != nil {
			reason = "no longer booked"
		}

		if dryRun {
			result.Deleted = append(result.Deleted, m.SourceID)
			continue
		}

		existed, err := r.ledger.DeleteTransaction(ctx, m.LedgerTransactionID)
		if err != nil {
			result.Failed[m.SourceID] = err
			continue
		}
		if _, err := r.mappingRepo.Delete(ctx, m.SourceID); err != nil {
			result.Failed[m.SourceID] = err
			continue
		}
		committed = true

		result.Deleted = append(result.Deleted, m.SourceID)
		r.logger.Info("Reconciled stale ledger transaction",
			"source_id", m.SourceID,
			"transaction_id", m.LedgerTransactionID,
			"reason", reason,
			"existed", existed,
		)
	}

	if committed {
		if err := r.ledger.Commit(ctx); err != nil {
			return result, fmt.Errorf("failed to commit reconciliation deletes: %w", err)
		}
	}

	return result, nil
}
