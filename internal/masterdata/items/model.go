package items

import (
	"errors"
	"time"
)

// Item represents a stocked item.
type Item struct {
	ID             int64     `json:"id"`
	SKU            string    `json:"sku"`
	Name           string    `json:"name"`
	Classification string    `json:"classification"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ClassAccounts maps an item classification to the GL accounts its
// postings use.
type ClassAccounts struct {
	Classification   string `json:"classification"`
	InventoryAccount string `json:"inventory_account"`
	COGSAccount      string `json:"cogs_account"`
	RevenueAccount   string `json:"revenue_account"`
}

// ListFilters narrows item listings.
type ListFilters struct {
	Classification string
	Search         string
	IsActive       *bool
}

var (
	// ErrItemNotFound indicates a missing item.
	ErrItemNotFound = errors.New("items: item not found")
	// ErrUnmappedClassification indicates a classification without GL
	// account mappings; postings cannot proceed without them.
	ErrUnmappedClassification = errors.New("items: classification has no account mapping")
)
