package components

import (
	"log/slog"

	"github.com/accounting-ledger-sync/internal/config"
	"github.com/accounting-ledger-sync/internal/domain/costcenter"
	"github.com/accounting-ledger-sync/internal/domain/document"
	"github.com/accounting-ledger-sync/internal/domain/mapping"
	"github.com/accounting-ledger-sync/internal/domain/syncrun"
	"github.com/accounting-ledger-sync/internal/platform/persistence"
	"github.com/accounting-ledger-sync/internal/sync_engine/service"
)

// CreateSyncService creates a SyncService with all its components wired.
func CreateSyncService(
	pgDB *persistence.PostgresDB,
	docRepo document.Repository,
	failureRepo document.FailureRepository,
	mappingRepo mapping.Repository,
	linkRepo costcenter.Repository,
	runRepo syncrun.Repository,
	source service.SourceReader,
	ledgerClient service.LedgerWriter,
	publisher service.ReportPublisher,
	logger *slog.Logger,
	cfg *config.Config,
) service.SyncService {
	classifier := NewDocumentClassifier(&cfg.Sync, logger.With("component", "classifier"))
	planner := NewDeltaPlanner(source, docRepo, logger.With("component", "delta_planner"))
	importer := NewLedgerImporter(ledgerClient, logger.With("component", "importer"))
	reconciler := NewMappingReconciler(mappingRepo, source, ledgerClient, logger.With("component", "reconciler"))
	recorder := NewFailureRecorder(failureRepo, docRepo, logger.With("component", "failure_recorder"))
	ensurer := NewCategoryEnsurer(source, ledgerClient, linkRepo, &cfg.Sync, logger.With("component", "category_ensurer"))

	return service.NewSyncService(
		pgDB,
		docRepo,
		mappingRepo,
		runRepo,
		classifier,
		planner,
		importer,
		reconciler,
		recorder,
		ensurer,
		publisher,
		ledgerClient,
		cfg.Ledger.AccountName,
		logger,
	)
}
