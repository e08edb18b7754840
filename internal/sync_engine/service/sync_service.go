// Package service contains the sync orchestrator and the interfaces of the
// components it is assembled from. One Run drives the whole pipeline: plan
// the delta, cache it, classify, import, write mappings, and optionally
// reconcile.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/accounting-ledger-sync/internal/domain/costcenter"
	"github.com/accounting-ledger-sync/internal/domain/document"
	"github.com/accounting-ledger-sync/internal/domain/mapping"
	"github.com/accounting-ledger-sync/internal/domain/syncrun"
)

// ErrLedgerAccountNotFound is returned when a dry run cannot find the
// target account; dry runs never create it
var ErrLedgerAccountNotFound = errors.New("ledger account not found")

// syncService implements SyncService
type syncService struct {
	db          TxRunner
	docRepo     document.Repository
	mappingRepo mapping.Repository
	runRepo     syncrun.Repository
	classifier  Classifier
	planner     DeltaPlanner
	importer    Importer
	reconciler  Reconciler
	recorder    FailureRecorder
	ensurer     CategoryEnsurer
	publisher   ReportPublisher
	ledger      LedgerWriter
	accountName string
	logger      *slog.Logger
}

// NewSyncService creates the orchestrator from its components
func NewSyncService(
	db TxRunner,
	docRepo document.Repository,
	mappingRepo mapping.Repository,
	runRepo syncrun.Repository,
	classifier Classifier,
	planner DeltaPlanner,
	importer Importer,
	reconciler Reconciler,
	recorder FailureRecorder,
	ensurer CategoryEnsurer,
	publisher ReportPublisher,
	ledgerClient LedgerWriter,
	accountName string,
	logger *slog.Logger,
) SyncService {
	return &syncService{
		db:          db,
		docRepo:     docRepo,
		mappingRepo: mappingRepo,
		runRepo:     runRepo,
		classifier:  classifier,
		planner:     planner,
		importer:    importer,
		reconciler:  reconciler,
		recorder:    recorder,
		ensurer:     ensurer,
		publisher:   publisher,
		ledger:      ledgerClient,
		accountName: accountName,
		logger:      logger,
	}
}

// runCounters accumulates the per-run tallies that end up in the report
type runCounters struct {
	processed int
	synced    int
	failed    int
	ignored   int
	skipped   int
	deleted   int
	invalid   []syncrun.InvalidDocument
}

// MarkEdited flags cached documents for re-fetch on the next run
func (s *syncService) MarkEdited(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.docRepo.MarkDirty(ctx, ids); err != nil {
		return fmt.Errorf("failed to mark documents dirty: %w", err)
	}
	s.logger.Info("Marked documents dirty from edit signal", "count", len(ids))
	return nil
}

// Run executes one complete sync. The run record brackets everything: it is
// created before any work and closed exactly once, failed or not, so the
// history never shows a run without an ending.
func (s *syncService) Run(ctx context.Context, opts RunOptions) (*syncrun.RunReport, error) {
	run, err := syncrun.NewSyncRun(s.runKind(opts))
	if err != nil {
		return nil, err
	}
	if err := s.runRepo.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run record: %w", err)
	}

	s.logger.Info("Sync run started",
		"run_id", run.ID,
		"kind", run.Kind,
		"dry_run", opts.DryRun,
	)

	counters := &runCounters{}
	runErr := s.execute(ctx, opts, counters)

	s.closeRun(ctx, run, opts, counters, runErr)
	report := s.buildReport(run, counters)

	if err := s.publisher.Publish(ctx, report); err != nil {
		// Reporting is best effort; the run outcome stands either way
		s.logger.Error("Failed to publish run report", "run_id", run.ID, "error", err)
	}

	s.logger.Info("Sync run finished",
		"run_id", run.ID,
		"status", run.Status,
		"processed", counters.processed,
		"synced", counters.synced,
		"failed", counters.failed,
		"ignored", counters.ignored,
		"deleted", counters.deleted,
	)

	return report, runErr
}

func (s *syncService) runKind(opts RunOptions) syncrun.Kind {
	switch {
	case opts.ReconcileOnly:
		return syncrun.KindReconcile
	case opts.Full:
		return syncrun.KindFull
	default:
		return syncrun.KindIncremental
	}
}

func (s *syncService) execute(ctx context.Context, opts RunOptions, counters *runCounters) error {
	if !opts.ReconcileOnly {
		if err := s.syncDocuments(ctx, opts, counters); err != nil {
			return err
		}
	}

	if opts.Reconcile || opts.ReconcileOnly {
		result, err := s.reconciler.Reconcile(ctx, opts.DryRun)
		if err != nil {
			return err
		}
		counters.deleted += len(result.Deleted)
		counters.failed += len(result.Failed)
		counters.processed += result.Checked
	}

	return nil
}

func (s *syncService) syncDocuments(ctx context.Context, opts RunOptions, counters *runCounters) error {
	account, err := s.resolveAccount(ctx, opts.DryRun)
	if err != nil {
		return err
	}

	links, err := s.resolveLinks(ctx, opts.DryRun)
	if err != nil {
		return err
	}

	for _, kind := range []document.Kind{document.KindVoucher, document.KindInvoice} {
		if err := s.syncKind(ctx, kind, account, links, opts, counters); err != nil {
			return err
		}
	}

	return nil
}

// resolveAccount finds the target account, creating it when absent. Dry
// runs only look.
func (s *syncService) resolveAccount(ctx context.Context, dryRun bool) (string, error) {
	if !dryRun {
		account, err := s.ledger.GetOrCreateAccount(ctx, s.accountName)
		if err != nil {
			return "", err
		}
		return account.ID, nil
	}

	accounts, err := s.ledger.ListAccounts(ctx)
	if err != nil {
		return "", err
	}
	for _, acc := range accounts {
		if acc.Name == s.accountName && !acc.Closed {
			return acc.ID, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrLedgerAccountNotFound, s.accountName)
}

func (s *syncService) resolveLinks(ctx context.Context, dryRun bool) (map[string]*costcenter.CategoryLink, error) {
	if dryRun {
		return s.ensurer.CurrentLinks(ctx)
	}
	return s.ensurer.EnsureCategories(ctx)
}

func (s *syncService) syncKind(ctx context.Context, kind document.Kind, accountID string, links map[string]*costcenter.CategoryLink, opts RunOptions, counters *runCounters) error {
	delta, err := s.planner.Plan(ctx, kind, opts.Full, opts.Limit)
	if err != nil {
		return err
	}

	if !opts.DryRun {
		if err := s.cacheDelta(ctx, delta); err != nil {
			return err
		}
	}

	candidates, candidateDocs, err := s.classifyDelta(ctx, delta, links, opts, counters)
	if err != nil {
		return err
	}

	result, err := s.importer.ImportBatch(ctx, accountID, candidates, opts.DryRun)
	if err != nil {
		return err
	}

	if err := s.settleOutcomes(ctx, result, candidateDocs, opts, counters); err != nil {
		return err
	}

	// A nil id list would clear every dirty flag, so guard the empty delta
	if !opts.DryRun && len(delta.Documents) > 0 {
		ids := make([]string, 0, len(delta.Documents))
		for _, doc := range delta.Documents {
			ids = append(ids, doc.ID)
		}
		if err := s.docRepo.ClearDirty(ctx, ids); err != nil {
			return fmt.Errorf("failed to clear dirty flags: %w", err)
		}
	}

	return nil
}

// cacheDelta writes the fetched documents and positions in one transaction
func (s *syncService) cacheDelta(ctx context.Context, delta *Delta) error {
	if len(delta.Documents) == 0 {
		return nil
	}

	return s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := s.docRepo.WithTx(tx)
		if err := repo.UpsertDocuments(ctx, delta.Documents); err != nil {
			return fmt.Errorf("failed to cache documents: %w", err)
		}
		for _, doc := range delta.Documents {
			positions, ok := delta.Positions[doc.ID]
			if !ok {
				// Position fetch failed; keep whatever the cache already has
				continue
			}
			if err := repo.UpsertPositions(ctx, doc.ID, positions); err != nil {
				return fmt.Errorf("failed to cache positions of %s: %w", doc.ID, err)
			}
		}
		return nil
	})
}

func (s *syncService) classifyDelta(ctx context.Context, delta *Delta, links map[string]*costcenter.CategoryLink, opts RunOptions, counters *runCounters) ([]*Candidate, map[string]*document.CachedDocument, error) {
	var candidates []*Candidate
	candidateDocs := make(map[string]*document.CachedDocument)

	for _, doc := range delta.Documents {
		counters.processed++

		if fetchErr, broken := delta.Failures[doc.ID]; broken {
			counters.failed++
			if !opts.DryRun {
				reason := fmt.Sprintf("failed to fetch positions: %v", fetchErr)
				if err := s.recorder.RecordFailure(ctx, doc, reason); err != nil {
					return nil, nil, err
				}
			}
			continue
		}

		sourceID := doc.SourceID()
		m, err := s.getMapping(ctx, sourceID)
		if err != nil {
			return nil, nil, err
		}

		if m != nil && m.Ignored {
			counters.skipped++
			continue
		}
		if m != nil && !m.UpdatedSince(doc.SourceUpdatedAt) {
			// An edit signal can land without moving the source timestamp;
			// dirty documents go through classification regardless
			if _, edited := delta.Dirty[doc.ID]; !edited {
				counters.skipped++
				continue
			}
		}

		disp := s.classifier.Classify(doc, delta.Positions[doc.ID], links)

		if !disp.Valid {
			counters.failed++
			counters.invalid = append(counters.invalid, syncrun.InvalidDocument{
				ID:     doc.ID,
				Kind:   string(doc.Kind),
				Date:   doc.Date,
				Amount: doc.GrossAmount,
				Reason: disp.Reason,
			})
			if !opts.DryRun {
				if err := s.recorder.RecordFailure(ctx, doc, disp.Reason); err != nil {
					return nil, nil, err
				}
			}
			continue
		}

		if !opts.DryRun {
			if err := s.recorder.RecordSuccess(ctx, doc); err != nil {
				return nil, nil, err
			}
		}

		if disp.Ignorable() {
			counters.ignored++
			if !opts.DryRun && m == nil {
				if err := s.saveIgnoredMapping(ctx, doc, disp.Reason); err != nil {
					return nil, nil, err
				}
			}
			continue
		}

		cand := &Candidate{
			SourceID:   sourceID,
			Date:       doc.Date,
			Amount:     minorUnits(doc.GrossAmount),
			PayeeName:  doc.CounterpartyName,
			CategoryID: disp.CategoryID,
		}
		if m != nil {
			// Active mapping with a newer source document: update in place
			cand.ExistingTransactionID = m.LedgerTransactionID
		}
		candidates = append(candidates, cand)
		candidateDocs[sourceID] = doc
	}

	return candidates, candidateDocs, nil
}

// settleOutcomes turns import outcomes into counters and mapping writes.
// Mappings are written only after the ledger write succeeded, so a crash
// between the two leaves a re-importable document, never a dangling
// mapping. A skip still refreshes the mapping: that is how a mapping lost
// to a reset heals itself against an already-imported transaction.
func (s *syncService) settleOutcomes(ctx context.Context, result *ImportResult, candidateDocs map[string]*document.CachedDocument, opts RunOptions, counters *runCounters) error {
	for _, outcome := range result.Outcomes {
		doc := candidateDocs[outcome.SourceID]

		switch {
		case outcome.Err != nil:
			counters.failed++
			if !opts.DryRun && doc != nil {
				reason := fmt.Sprintf("ledger import failed: %v", outcome.Err)
				if err := s.recorder.RecordFailure(ctx, doc, reason); err != nil {
					return err
				}
			}

		case outcome.Action == ActionSkipped:
			counters.skipped++
			if !opts.DryRun && doc != nil && outcome.TransactionID != "" {
				if err := s.saveMapping(ctx, doc, outcome.TransactionID); err != nil {
					return err
				}
			}

		default:
			counters.synced++
			if !opts.DryRun && doc != nil && outcome.TransactionID != "" {
				if err := s.saveMapping(ctx, doc, outcome.TransactionID); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func (s *syncService) getMapping(ctx context.Context, sourceID string) (*mapping.Mapping, error) {
	m, err := s.mappingRepo.Get(ctx, sourceID)
	if err != nil {
		if errors.Is(err, mapping.ErrMappingNotFound{}) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load mapping %s: %w", sourceID, err)
	}
	return m, nil
}

func (s *syncService) saveMapping(ctx context.Context, doc *document.CachedDocument, transactionID string) error {
	m, err := mapping.NewMapping(doc.SourceID(), transactionID, doc.Date, doc.GrossAmount, doc.SourceUpdatedAt)
	if err != nil {
		return err
	}
	if err := s.mappingRepo.Save(ctx, m); err != nil {
		return fmt.Errorf("failed to save mapping %s: %w", doc.SourceID(), err)
	}
	return nil
}

func (s *syncService) saveIgnoredMapping(ctx context.Context, doc *document.CachedDocument, reason string) error {
	m, err := mapping.NewIgnoredMapping(doc.SourceID(), reason, doc.Date, doc.GrossAmount, doc.SourceUpdatedAt)
	if err != nil {
		return err
	}
	if err := s.mappingRepo.Save(ctx, m); err != nil {
		return fmt.Errorf("failed to save ignore marker %s: %w", doc.SourceID(), err)
	}
	return nil
}

func (s *syncService) closeRun(ctx context.Context, run *syncrun.SyncRun, opts RunOptions, counters *runCounters, runErr error) {
	var err error
	switch {
	case runErr != nil:
		err = run.Fail(runErr.Error(), counters.processed, counters.synced, counters.failed)
	case opts.DryRun:
		err = run.CompleteDryRun(counters.processed, counters.synced, counters.failed)
	default:
		err = run.Complete(counters.processed, counters.synced, counters.failed)
	}
	if err != nil {
		s.logger.Error("Failed to close run state", "run_id", run.ID, "error", err)
		return
	}

	if err := s.runRepo.Close(ctx, run); err != nil {
		s.logger.Error("Failed to persist run record", "run_id", run.ID, "error", err)
	}
}

func (s *syncService) buildReport(run *syncrun.SyncRun, counters *runCounters) *syncrun.RunReport {
	report := &syncrun.RunReport{
		RunID:            run.ID,
		Kind:             run.Kind,
		Status:           run.Status,
		StartedAt:        run.StartedAt,
		Processed:        counters.processed,
		Synced:           counters.synced,
		Failed:           counters.failed,
		Ignored:          counters.ignored,
		Deleted:          counters.deleted,
		ErrorMessage:     run.ErrorMessage,
		InvalidDocuments: counters.invalid,
	}
	if run.CompletedAt != nil {
		report.CompletedAt = *run.CompletedAt
	}
	return report
}

// minorUnits converts a decimal currency amount into signed integer cents
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
