package items

import (
	"context"
	"sync"
)

// Service exposes item master data and resolves the GL accounts the
// posting engines need per item. Classification mappings change rarely,
// so resolved mappings are memoised per process.
type Service struct {
	repo Repository

	mu       sync.RWMutex
	accounts map[string]ClassAccounts
}

// NewService builds Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, accounts: make(map[string]ClassAccounts)}
}

// List returns items matching the filters.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Item, error) {
	return s.repo.List(ctx, filters)
}

// Get returns a single item.
func (s *Service) Get(ctx context.Context, id int64) (Item, error) {
	return s.repo.Get(ctx, id)
}

// InventoryAccount resolves the inventory asset account for an item.
func (s *Service) InventoryAccount(ctx context.Context, itemID int64) (string, error) {
	ca, err := s.accountsFor(ctx, itemID)
	if err != nil {
		return "", err
	}
	return ca.InventoryAccount, nil
}

// COGSAccount resolves the cost of goods sold account for an item.
func (s *Service) COGSAccount(ctx context.Context, itemID int64) (string, error) {
	ca, err := s.accountsFor(ctx, itemID)
	if err != nil {
		return "", err
	}
	return ca.COGSAccount, nil
}

// RevenueAccount resolves the sales revenue account for an item.
func (s *Service) RevenueAccount(ctx context.Context, itemID int64) (string, error) {
	ca, err := s.accountsFor(ctx, itemID)
	if err != nil {
		return "", err
	}
	return ca.RevenueAccount, nil
}

func (s *Service) accountsFor(ctx context.Context, itemID int64) (ClassAccounts, error) {
	item, err := s.repo.Get(ctx, itemID)
	if err != nil {
		return ClassAccounts{}, err
	}
	s.mu.RLock()
	ca, ok := s.accounts[item.Classification]
	s.mu.RUnlock()
	if ok {
		return ca, nil
	}
	ca, err = s.repo.GetClassAccounts(ctx, item.Classification)
	if err != nil {
		return ClassAccounts{}, err
	}
	s.mu.Lock()
	s.accounts[item.Classification] = ca
	s.mu.Unlock()
	return ca, nil
}
