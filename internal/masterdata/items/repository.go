package items

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Item, error)
	Get(ctx context.Context, id int64) (Item, error)
	GetClassAccounts(ctx context.Context, classification string) (ClassAccounts, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Item, error) {
	query := `SELECT id, sku, name, classification, is_active, created_at, updated_at FROM items WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filters.Classification != "" {
		argCount++
		query += ` AND classification = $` + strconv.Itoa(argCount)
		args = append(args, filters.Classification)
	}
	if filters.Search != "" {
		argCount++
		query += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR sku ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.IsActive != nil {
		argCount++
		query += ` AND is_active = $` + strconv.Itoa(argCount)
		args = append(args, *filters.IsActive)
	}
	query += ` ORDER BY sku`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.SKU, &item.Name, &item.Classification, &item.IsActive, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Item, error) {
	var item Item
	err := r.db.QueryRow(ctx, `SELECT id, sku, name, classification, is_active, created_at, updated_at FROM items WHERE id=$1`, id).
		Scan(&item.ID, &item.SKU, &item.Name, &item.Classification, &item.IsActive, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrItemNotFound
	}
	if err != nil {
		return Item{}, err
	}
	return item, nil
}

func (r *repository) GetClassAccounts(ctx context.Context, classification string) (ClassAccounts, error) {
	var ca ClassAccounts
	err := r.db.QueryRow(ctx, `SELECT classification, inventory_account, cogs_account, revenue_account
FROM item_class_accounts WHERE classification=$1`, classification).
		Scan(&ca.Classification, &ca.InventoryAccount, &ca.COGSAccount, &ca.RevenueAccount)
	if errors.Is(err, pgx.ErrNoRows) {
		return ClassAccounts{}, ErrUnmappedClassification
	}
	if err != nil {
		return ClassAccounts{}, err
	}
	return ca, nil
}
