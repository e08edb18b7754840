package components

import (
	"context"
	"log/slog"

	"github.com/accounting-ledger-sync/internal/domain/syncrun"
	"github.com/accounting-ledger-sync/internal/platform/messaging/producers"
	"github.com/accounting-ledger-sync/internal/sync_engine/service"
)

// reportPublisher fans a finished run report out to the report archive and
// the Kafka report topic. The archive write is authoritative; the Kafka
// publish is best-effort because the report can still be read from the API.
type reportPublisher struct {
	archive  syncrun.ReportRepository
	producer producers.MessagePublisher
	logger   *slog.Logger
}

// NewReportPublisher creates a ReportPublisher. The producer may be nil when
// Kafka reporting is disabled.
func NewReportPublisher(
	archive syncrun.ReportRepository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) service.ReportPublisher {
	return &reportPublisher{
		archive:  archive,
		producer: producer,
		logger:   logger,
	}
}

func (p *reportPublisher) Publish(ctx context.Context, report *syncrun.RunReport) error {
	if err := p.archive.Save(ctx, report); err != nil {
		return err
	}

	if p.producer == nil {
		return nil
	}

	if err := p.producer.Publish(ctx, report.RunID.String(), report); err != nil {
		p.logger.Warn("Failed to publish run report to Kafka, report remains available in archive",
			"run_id", report.RunID,
			"error", err,
		)
	}
	return nil
}
