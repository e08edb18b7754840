package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/accounting-ledger-sync/internal/config"
	"github.com/accounting-ledger-sync/internal/sync_engine/service"
)

// Scheduler triggers periodic sync runs
type Scheduler struct {
	syncService service.SyncService
	logger      *slog.Logger
	interval    time.Duration
	opts        service.RunOptions
}

func NewScheduler(
	cfg *config.SyncConfig,
	syncService service.SyncService,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		syncService: syncService,
		logger:      logger,
		interval:    cfg.Interval,
		opts: service.RunOptions{
			Reconcile: cfg.Reconcile,
			Limit:     cfg.Limit,
		},
	}
}

// Start runs sync passes until the context is canceled. The first run fires
// immediately so a fresh deployment does not wait a full interval.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting sync scheduler",
		"interval", s.interval.String(),
		"reconcile", s.opts.Reconcile,
		"limit", s.opts.Limit,
	)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Sync scheduler stopping due to context cancellation.")
			return
		case <-ticker.C:
			s.logger.Debug("Sync scheduler tick")
			s.runOnce(ctx)
		}
	}
}

// runOnce executes a single run. Failures are logged, not propagated; the
// next tick retries from whatever state the failed run left behind.
func (s *Scheduler) runOnce(ctx context.Context) {
	report, err := s.syncService.Run(ctx, s.opts)
	if err != nil {
		s.logger.Error("Scheduled sync run failed", "error", err)
		return
	}
	s.logger.Info("Scheduled sync run finished",
		"run_id", report.RunID,
		"status", report.Status,
		"processed", report.Processed,
		"synced", report.Synced,
		"failed", report.Failed,
	)
}
