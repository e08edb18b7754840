package components

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/accounting-ledger-sync/internal/domain/document"
	"github.com/accounting-ledger-sync/internal/sync_engine/service"
)

// deltaPlanner computes the working set of a run. Incremental runs combine
// three sources: documents the source reports as updated since the cache
// watermark, the invalid backlog (upstream fixes rarely bump the update
// timestamp), and documents flagged dirty by edit events.
type deltaPlanner struct {
	source  service.SourceReader
	docRepo document.Repository
	logger  *slog.Logger
}

// NewDeltaPlanner creates a planner over the source client and the document
// cache
func NewDeltaPlanner(source service.SourceReader, docRepo document.Repository, logger *slog.Logger) service.DeltaPlanner {
	return &deltaPlanner{
		source:  source,
		docRepo: docRepo,
		logger:  logger,
	}
}

// Plan fetches the documents of one kind that the run has to look at,
// together with their positions. The dirty id set rides along on every run,
// full ones included, so the orchestrator can tell edited documents apart
// from merely re-fetched ones.
func (p *deltaPlanner) Plan(ctx context.Context, kind document.Kind, full bool, limit int) (*service.Delta, error) {
	dirty, err := p.docRepo.DirtyIDs(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list dirty %ss: %w", kind, err)
	}

	docs, err := p.selectDocuments(ctx, kind, full, limit, dirty)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}

	positions, failures, err := p.source.BatchPositions(ctx, kind, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch positions for %s delta: %w", kind, err)
	}

	p.logger.Info("Planned sync delta",
		"kind", kind,
		"documents", len(docs),
		"position_failures", len(failures),
		"full", full,
	)

	dirtySet := make(map[string]struct{}, len(dirty))
	for _, id := range dirty {
		dirtySet[id] = struct{}{}
	}

	return &service.Delta{
		Documents: docs,
		Positions: positions,
		Failures:  failures,
		Dirty:     dirtySet,
	}, nil
}

func (p *deltaPlanner) selectDocuments(ctx context.Context, kind document.Kind, full bool, limit int, dirty []string) ([]*document.CachedDocument, error) {
	var since *time.Time
	if !full {
		var err error
		since, err = p.docRepo.MaxSourceUpdatedAt(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to read sync watermark for %s: %w", kind, err)
		}
	}

	// An empty cache means there is no watermark to be incremental against
	docs, err := p.source.ListBookedDocuments(ctx, kind, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s delta: %w", kind, err)
	}
	if since == nil {
		return docs, nil
	}

	seen := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		seen[doc.ID] = struct{}{}
	}

	backlog, err := p.backlogIDs(ctx, kind, dirty)
	if err != nil {
		return nil, err
	}

	for _, id := range backlog {
		if _, ok := seen[id]; ok {
			continue
		}
		doc, err := p.source.GetDocument(ctx, kind, id)
		if err != nil {
			return nil, fmt.Errorf("failed to re-fetch %s %s: %w", kind, id, err)
		}
		if doc == nil {
			p.logger.Info("Backlog document no longer exists upstream", "kind", kind, "document_id", id)
			continue
		}
		seen[id] = struct{}{}
		docs = append(docs, doc)
	}

	return docs, nil
}

// backlogIDs merges the invalid and dirty id sets, deduplicated
func (p *deltaPlanner) backlogIDs(ctx context.Context, kind document.Kind, dirty []string) ([]string, error) {
	invalid, err := p.docRepo.InvalidIDs(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list invalid %ss: %w", kind, err)
	}

	seen := make(map[string]struct{}, len(invalid)+len(dirty))
	ids := make([]string, 0, len(invalid)+len(dirty))
	for _, id := range append(invalid, dirty...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	return ids, nil
}
