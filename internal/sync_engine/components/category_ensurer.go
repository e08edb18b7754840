package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/accounting-ledger-sync/internal/config"
	"github.com/accounting-ledger-sync/internal/domain/costcenter"
	"github.com/accounting-ledger-sync/internal/ledger"
	"github.com/accounting-ledger-sync/internal/sync_engine/service"
)

// categoryEnsurer mirrors source cost centers into ledger categories.
// Cost centers named in the income list land in the income group, all others
// in the default group. Links whose ledger category disappeared are rebuilt,
// so a category deleted by hand heals on the next run.
type categoryEnsurer struct {
	source       service.SourceReader
	ledger       service.LedgerWriter
	linkRepo     costcenter.Repository
	defaultGroup string
	incomeGroup  string
	incomeNames  map[string]struct{}
	logger       *slog.Logger
}

// NewCategoryEnsurer creates an ensurer from the sync configuration
func NewCategoryEnsurer(source service.SourceReader, ledgerClient service.LedgerWriter, linkRepo costcenter.Repository, cfg *config.SyncConfig, logger *slog.Logger) service.CategoryEnsurer {
	return &categoryEnsurer{
		source:       source,
		ledger:       ledgerClient,
		linkRepo:     linkRepo,
		defaultGroup: cfg.CategoryGroup,
		incomeGroup:  cfg.IncomeGroup,
		incomeNames:  toSet(cfg.IncomeCategories),
		logger:       logger,
	}
}

// EnsureCategories brings the ledger categories and the persisted links in
// line with the source cost centers and returns the resulting link set
func (e *categoryEnsurer) EnsureCategories(ctx context.Context) (map[string]*costcenter.CategoryLink, error) {
	centers, err := e.source.ListCostCenters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list source cost centers: %w", err)
	}

	links, err := e.CurrentLinks(ctx)
	if err != nil {
		return nil, err
	}

	categories, err := e.ledger.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger categories: %w", err)
	}
	categoryIDs := make(map[string]struct{}, len(categories))
	byGroupAndName := make(map[string]*ledger.Category, len(categories))
	for _, cat := range categories {
		categoryIDs[cat.ID] = struct{}{}
		byGroupAndName[cat.GroupID+"\x00"+cat.Name] = cat
	}

	groupIDs := make(map[string]string, 2)

	for _, cc := range centers {
		if link, ok := links[cc.ID]; ok {
			if _, alive := categoryIDs[link.CategoryID]; alive {
				continue
			}
			e.logger.Warn("Linked ledger category disappeared, relinking",
				"cost_center_id", cc.ID,
				"category_id", link.CategoryID,
			)
		}

		groupName := e.defaultGroup
		if _, income := e.incomeNames[cc.Name]; income {
			groupName = e.incomeGroup
		}

		groupID, ok := groupIDs[groupName]
		if !ok {
			group, err := e.ledger.GetOrCreateCategoryGroup(ctx, groupName)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve category group %q: %w", groupName, err)
			}
			groupID = group.ID
			groupIDs[groupName] = groupID
		}

		cat, ok := byGroupAndName[groupID+"\x00"+cc.Name]
		if !ok {
			cat, err = e.ledger.CreateCategory(ctx, cc.Name, groupID)
			if err != nil {
				return nil, fmt.Errorf("failed to create category for cost center %s: %w", cc.ID, err)
			}
			categoryIDs[cat.ID] = struct{}{}
			byGroupAndName[groupID+"\x00"+cat.Name] = cat
		}

		link, err := costcenter.NewCategoryLink(cc.ID, cc.Name, cat.ID, cat.Name)
		if err != nil {
			return nil, fmt.Errorf("invalid category link for cost center %s: %w", cc.ID, err)
		}
		if err := e.linkRepo.Save(ctx, link); err != nil {
			return nil, fmt.Errorf("failed to save category link for cost center %s: %w", cc.ID, err)
		}
		links[cc.ID] = link

		e.logger.Info("Linked cost center to ledger category",
			"cost_center_id", cc.ID,
			"cost_center", cc.Name,
			"category_id", cat.ID,
			"group", groupName,
		)
	}

	return links, nil
}

// CurrentLinks loads the persisted links keyed by cost center id
func (e *categoryEnsurer) CurrentLinks(ctx context.Context) (map[string]*costcenter.CategoryLink, error) {
	stored, err := e.linkRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list category links: %w", err)
	}

	links := make(map[string]*costcenter.CategoryLink, len(stored))
	for _, link := range stored {
		links[link.CostCenterID] = link
	}

	return links, nil
}
