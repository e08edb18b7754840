package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/accounting-ledger-sync/internal/domain/document"
	"github.com/accounting-ledger-sync/internal/sync_engine/service"
)

// documentFailureRecorder keeps the failed-document ledger and the cached
// validity in step: a failure is recorded in both places, a later success
// clears both
type documentFailureRecorder struct {
	failureRepo document.FailureRepository
	docRepo     document.Repository
	logger      *slog.Logger
}

// NewFailureRecorder creates a recorder over the failure ledger and the
// document cache
func NewFailureRecorder(failureRepo document.FailureRepository, docRepo document.Repository, logger *slog.Logger) service.FailureRecorder {
	return &documentFailureRecorder{
		failureRepo: failureRepo,
		docRepo:     docRepo,
		logger:      logger,
	}
}

// RecordFailure upserts the failure row and marks the cached document
// invalid
func (r *documentFailureRecorder) RecordFailure(ctx context.Context, doc *document.CachedDocument, reason string) error {
	if err := r.failureRepo.Record(ctx, doc.ID, doc.Kind, reason); err != nil {
		r.logger.Error("Failed to record document failure", "document_id", doc.ID, "error", err)
		return fmt.Errorf("failed to record failure for %s %s: %w", doc.Kind, doc.ID, err)
	}

	if err := r.docRepo.MarkValidation(ctx, doc.ID, document.ValidityInvalid, reason); err != nil {
		// A document can fail before it was ever cached, e.g. on a fetch error
		if !errors.Is(err, document.ErrDocumentNotFound{}) {
			return fmt.Errorf("failed to mark %s %s invalid: %w", doc.Kind, doc.ID, err)
		}
	}

	r.logger.Warn("Recorded document failure",
		"document_id", doc.ID,
		"kind", doc.Kind,
		"reason", reason,
	)

	return nil
}

// RecordSuccess marks the cached document valid and removes any earlier
// failure row
func (r *documentFailureRecorder) RecordSuccess(ctx context.Context, doc *document.CachedDocument) error {
	if err := r.docRepo.MarkValidation(ctx, doc.ID, document.ValidityValid, ""); err != nil {
		if !errors.Is(err, document.ErrDocumentNotFound{}) {
			return fmt.Errorf("failed to mark %s %s valid: %w", doc.Kind, doc.ID, err)
		}
	}

	if err := r.failureRepo.Delete(ctx, doc.ID); err != nil {
		return fmt.Errorf("failed to clear failure for %s %s: %w", doc.Kind, doc.ID, err)
	}

	return nil
}
