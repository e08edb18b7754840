package components

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/accounting-ledger-sync/internal/ledger"
	"github.com/accounting-ledger-sync/internal/sync_engine/service"
)

const ledgerDateLayout = "2006-01-02"

// fuzzyMatchWindow is how far apart the value dates of a candidate and an
// uncategorized ledger transaction may lie and still count as the same
// payment. Manually entered transactions rarely carry the exact booking
// date.
const fuzzyMatchWindow = 3 * 24 * time.Hour

// ledgerImporter pushes candidate batches into the ledger. Dedup runs
// against a single snapshot of the target account taken at batch start:
// an exact external-id hit is a skip, an amount+date hit on a transaction
// without an external id is adopted, everything else is created. Failures
// are isolated per candidate.
type ledgerImporter struct {
	ledger service.LedgerWriter
	logger *slog.Logger
}

// NewLedgerImporter creates an importer over the ledger client
func NewLedgerImporter(ledgerClient service.LedgerWriter, logger *slog.Logger) service.Importer {
	return &ledgerImporter{
		ledger: ledgerClient,
		logger: logger,
	}
}

// ImportBatch imports one batch of candidates into the target account.
// Rules run and the commit happen once per batch, after all candidates are
// through. On a dry run outcomes are computed but nothing is written.
func (i *ledgerImporter) ImportBatch(ctx context.Context, accountID string, candidates []*service.Candidate, dryRun bool) (*service.ImportResult, error) {
	result := &service.ImportResult{}
	if len(candidates) == 0 {
		return result, nil
	}

	existing, err := i.ledger.ListTransactions(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing transactions: %w", err)
	}

	byImportedID := make(map[string]*ledger.Transaction, len(existing))
	var unclaimed []*ledger.Transaction
	for _, tx := range existing {
		if tx.Deleted {
			continue
		}
		if tx.ImportedID != "" {
			byImportedID[tx.ImportedID] = tx
			continue
		}
		unclaimed = append(unclaimed, tx)
	}

	var touched []string
	for _, cand := range candidates {
		outcome := i.importOne(ctx, accountID, cand, byImportedID, unclaimed, dryRun)
		result.Outcomes = append(result.Outcomes, outcome)

		switch {
		case outcome.Err != nil:
			result.Failed++
			i.logger.Warn("Candidate import failed", "source_id", cand.SourceID, "error", outcome.Err)
		case outcome.Action == service.ActionAdded:
			result.Added++
			touched = append(touched, outcome.TransactionID)
		case outcome.Action == service.ActionUpdated:
			result.Updated++
			touched = append(touched, outcome.TransactionID)
		default:
			result.Skipped++
		}
	}

	if dryRun {
		return result, nil
	}

	if err := i.ledger.ApplyRules(ctx, touched); err != nil {
		return result, fmt.Errorf("failed to apply rules after import: %w", err)
	}
	if err := i.ledger.Commit(ctx); err != nil {
		return result, fmt.Errorf("failed to commit import batch: %w", err)
	}

	i.logger.Info("Imported candidate batch",
		"added", result.Added,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)

	return result, nil
}

func (i *ledgerImporter) importOne(ctx context.Context, accountID string, cand *service.Candidate, byImportedID map[string]*ledger.Transaction, unclaimed []*ledger.Transaction, dryRun bool) service.ImportOutcome {
	outcome := service.ImportOutcome{SourceID: cand.SourceID}

	if cand.ExistingTransactionID != "" {
		outcome.Action = service.ActionUpdated
		outcome.TransactionID = cand.ExistingTransactionID
		if dryRun {
			return outcome
		}
		if err := i.ledger.UpdateTransaction(ctx, cand.ExistingTransactionID, i.fullUpdate(cand)); err != nil {
			outcome.Err = err
		}
		return outcome
	}

	if tx, ok := byImportedID[cand.SourceID]; ok {
		outcome.Action = service.ActionSkipped
		outcome.TransactionID = tx.ID
		return outcome
	}

	if tx := i.fuzzyMatch(cand, unclaimed); tx != nil {
		outcome.Action = service.ActionUpdated
		outcome.TransactionID = tx.ID
		// Claim the match so no other candidate adopts the same transaction
		tx.ImportedID = cand.SourceID
		if dryRun {
			return outcome
		}
		err := i.ledger.UpdateTransaction(ctx, tx.ID, &ledger.TransactionUpdate{
			ImportedID: ledger.String(cand.SourceID),
			CategoryID: ledger.String(cand.CategoryID),
			Cleared:    ledger.Bool(true),
		})
		if err != nil {
			outcome.Err = err
		}
		return outcome
	}

	outcome.Action = service.ActionAdded
	if dryRun {
		return outcome
	}

	id, err := i.ledger.CreateTransaction(ctx, accountID, &ledger.NewTransaction{
		Date:       cand.Date.Format(ledgerDateLayout),
		Amount:     cand.Amount,
		PayeeName:  cand.PayeeName,
		CategoryID: cand.CategoryID,
		Notes:      cand.Notes,
		ImportedID: cand.SourceID,
		Cleared:    true,
	})
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.TransactionID = id

	return outcome
}

// fuzzyMatch finds an uncategorized transaction with the same amount whose
// date lies within the match window
func (i *ledgerImporter) fuzzyMatch(cand *service.Candidate, unclaimed []*ledger.Transaction) *ledger.Transaction {
	for _, tx := range unclaimed {
		if tx.ImportedID != "" || tx.Amount != cand.Amount {
			continue
		}
		txDate, err := time.Parse(ledgerDateLayout, tx.Date)
		if err != nil {
			continue
		}
		diff := cand.Date.Sub(txDate)
		if diff < 0 {
			diff = -diff
		}
		if diff <= fuzzyMatchWindow {
			return tx
		}
	}
	return nil
}

func (i *ledgerImporter) fullUpdate(cand *service.Candidate) *ledger.TransactionUpdate {
	return &ledger.TransactionUpdate{
		Date:       ledger.String(cand.Date.Format(ledgerDateLayout)),
		Amount:     ledger.Int64(cand.Amount),
		PayeeName:  ledger.String(cand.PayeeName),
		CategoryID: ledger.String(cand.CategoryID),
		Notes:      ledger.String(cand.Notes),
		ImportedID: ledger.String(cand.SourceID),
		Cleared:    ledger.Bool(true),
	}
}
