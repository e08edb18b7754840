package costcenter

import (
	"errors"
	"time"
)

// Common errors
var (
	ErrEmptyCostCenterID = errors.New("cost center id cannot be empty")
	ErrEmptyCategoryID   = errors.New("ledger category id cannot be empty")
)

// CostCenter is a source-system categorization dimension. Cost centers map
// 1:1 onto ledger categories.
type CostCenter struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Number string `json:"number,omitempty"`
}

// CategoryLink is the persisted 1:1 link between a source cost center and a
// ledger category. Documents referencing an unlinked cost center fail
// classification until the category ensurer has run.
type CategoryLink struct {
	CostCenterID   string    `json:"cost_center_id"`
	CostCenterName string    `json:"cost_center_name"`
	CategoryID     string    `json:"category_id"`
	CategoryName   string    `json:"category_name"`
	LinkedAt       time.Time `json:"linked_at"`
}

// NewCategoryLink creates a link after the ledger category has been
// resolved or created
func NewCategoryLink(costCenterID, costCenterName, categoryID, categoryName string) (*CategoryLink, error) {
	if costCenterID == "" {
		return nil, ErrEmptyCostCenterID
	}
	if categoryID == "" {
		return nil, ErrEmptyCategoryID
	}

	return &CategoryLink{
		CostCenterID:   costCenterID,
		CostCenterName: costCenterName,
		CategoryID:     categoryID,
		CategoryName:   categoryName,
		LinkedAt:       time.Now(),
	}, nil
}
