package components

import (
	"fmt"
	"log/slog"

	"github.com/accounting-ledger-sync/internal/config"
	"github.com/accounting-ledger-sync/internal/domain/costcenter"
	"github.com/accounting-ledger-sync/internal/domain/document"
	"github.com/accounting-ledger-sync/internal/sync_engine/service"
)

// documentClassifier implements the classification rules. Precedence is
// strict: missing positions first, then transfer codes, then pass-through
// codes, then the regular cost-center rule. A pass-through document that
// carries a cost center falls through to the regular rule.
type documentClassifier struct {
	transferTypes    map[string]struct{}
	passthroughTypes map[string]struct{}
	logger           *slog.Logger
}

// NewDocumentClassifier creates a classifier from the configured
// accounting-type code sets
func NewDocumentClassifier(cfg *config.SyncConfig, logger *slog.Logger) service.Classifier {
	return &documentClassifier{
		transferTypes:    toSet(cfg.TransferTypeCodes),
		passthroughTypes: toSet(cfg.PassthroughTypeCodes),
		logger:           logger,
	}
}

func toSet(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		set[code] = struct{}{}
	}
	return set
}

// Classify decides the disposition of one document
func (c *documentClassifier) Classify(doc *document.CachedDocument, positions []*document.Position, links map[string]*costcenter.CategoryLink) document.Disposition {
	if len(positions) == 0 {
		return c.invalid(doc, document.DispositionRegular, "document has no positions")
	}

	if c.anyType(positions, c.transferTypes) {
		if doc.HasCostCenter() {
			return c.invalid(doc, document.DispositionTransfer, "transfer document carries a cost center")
		}
		if len(positions) > 2 {
			return c.invalid(doc, document.DispositionTransfer,
				fmt.Sprintf("transfer has %d positions, expected 1 or 2", len(positions)))
		}
		return document.Disposition{
			Valid:  true,
			Kind:   document.DispositionTransfer,
			Reason: "transfer between own accounts",
		}
	}

	if c.anyType(positions, c.passthroughTypes) && !doc.HasCostCenter() {
		return document.Disposition{
			Valid:  true,
			Kind:   document.DispositionPassthrough,
			Reason: "pass-through posting without cost center",
		}
	}

	costCenterID := doc.CostCenterID
	for _, pos := range positions {
		if pos.CostCenterID == "" {
			continue
		}
		if costCenterID == "" {
			costCenterID = pos.CostCenterID
			continue
		}
		if pos.CostCenterID != costCenterID {
			return c.invalid(doc, document.DispositionRegular, "positions reference conflicting cost centers")
		}
	}
	if costCenterID == "" {
		return c.invalid(doc, document.DispositionRegular, "no cost center on document or positions")
	}

	link, ok := links[costCenterID]
	if !ok {
		return c.invalid(doc, document.DispositionRegular,
			fmt.Sprintf("cost center %s has no ledger category", costCenterID))
	}

	return document.Disposition{
		Valid:      true,
		Kind:       document.DispositionRegular,
		CategoryID: link.CategoryID,
	}
}

func (c *documentClassifier) anyType(positions []*document.Position, set map[string]struct{}) bool {
	for _, pos := range positions {
		if _, ok := set[pos.AccountingTypeID]; ok {
			return true
		}
	}
	return false
}

func (c *documentClassifier) invalid(doc *document.CachedDocument, kind document.DispositionKind, reason string) document.Disposition {
	c.logger.Debug("Document failed classification",
		"document_id", doc.ID,
		"kind", doc.Kind,
		"reason", reason,
	)
	return document.Disposition{Kind: kind, Reason: reason}
}
