package items

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryItemsRepo struct {
	items    map[int64]Item
	accounts map[string]ClassAccounts
	lookups  int
}

func (r *memoryItemsRepo) List(ctx context.Context, filters ListFilters) ([]Item, error) {
	var out []Item
	for _, item := range r.items {
		if filters.Classification != "" && item.Classification != filters.Classification {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *memoryItemsRepo) Get(ctx context.Context, id int64) (Item, error) {
	item, ok := r.items[id]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return item, nil
}

func (r *memoryItemsRepo) GetClassAccounts(ctx context.Context, classification string) (ClassAccounts, error) {
	r.lookups++
	ca, ok := r.accounts[classification]
	if !ok {
		return ClassAccounts{}, ErrUnmappedClassification
	}
	return ca, nil
}

func TestResolveAccountsPerClassification(t *testing.T) {
	repo := &memoryItemsRepo{
		items: map[int64]Item{
			7: {ID: 7, SKU: "RM-7", Classification: "RAW"},
			8: {ID: 8, SKU: "RM-8", Classification: "RAW"},
		},
		accounts: map[string]ClassAccounts{
			"RAW": {Classification: "RAW", InventoryAccount: "1400", COGSAccount: "5000", RevenueAccount: "4000"},
		},
	}
	svc := NewService(repo)

	inv, err := svc.InventoryAccount(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, "1400", inv)

	cogs, err := svc.COGSAccount(context.Background(), 8)
	require.NoError(t, err)
	require.Equal(t, "5000", cogs)

	rev, err := svc.RevenueAccount(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, "4000", rev)

	// one mapping fetch serves all items of the classification
	require.Equal(t, 1, repo.lookups)
}

func TestResolveAccountsUnknownItem(t *testing.T) {
	svc := NewService(&memoryItemsRepo{items: map[int64]Item{}})
	_, err := svc.InventoryAccount(context.Background(), 99)
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestResolveAccountsUnmappedClassification(t *testing.T) {
	svc := NewService(&memoryItemsRepo{
		items: map[int64]Item{7: {ID: 7, Classification: "MISC"}},
	})
	_, err := svc.COGSAccount(context.Background(), 7)
	require.ErrorIs(t, err, ErrUnmappedClassification)
}
