package recon

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountSum pairs an account's cached balance with the balance recomputed
// straight from its ledger lines, ignoring the cache.
type AccountSum struct {
	AccountCode string
	Cached      int64
	Computed    int64
}

// ValuationRow pairs a classification's open-layer valuation with the
// ledger balance of the asset account mapped to that classification.
type ValuationRow struct {
	Classification string
	AccountCode    string
	LayerValue     int64
	GLBalance      int64
}

// Repository runs the read-heavy recomputation queries. Reconciliation
// never mutates rows directly; corrections go through the ledger engine.
type Repository interface {
	ListAccountSums(ctx context.Context) ([]AccountSum, error)
	ListValuationRows(ctx context.Context) ([]ValuationRow, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) ListAccountSums(ctx context.Context) ([]AccountSum, error) {
	rows, err := r.db.Query(ctx, `SELECT a.code, a.cached_balance, COALESCE(SUM(l.debit - l.credit),0)
FROM accounts a
LEFT JOIN journal_lines l ON l.account_code = a.code
GROUP BY a.code, a.cached_balance
ORDER BY a.code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sums []AccountSum
	for rows.Next() {
		var s AccountSum
		if err := rows.Scan(&s.AccountCode, &s.Cached, &s.Computed); err != nil {
			return nil, err
		}
		sums = append(sums, s)
	}
	return sums, rows.Err()
}

func (r *repository) ListValuationRows(ctx context.Context) ([]ValuationRow, error) {
	rows, err := r.db.Query(ctx, `SELECT v.classification, v.inventory_account, v.layer_value,
	(SELECT COALESCE(SUM(jl.debit - jl.credit),0) FROM journal_lines jl WHERE jl.account_code = v.inventory_account)
FROM (
	SELECT i.classification, m.inventory_account,
		COALESCE(SUM(l.remaining_qty * (l.unit_cost + l.landed_cost_adj)),0) AS layer_value
	FROM inventory_layers l
	JOIN items i ON i.id = l.item_id
	JOIN item_class_accounts m ON m.classification = i.classification
	WHERE NOT l.depleted
	GROUP BY i.classification, m.inventory_account
) v
ORDER BY v.classification`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ValuationRow
	for rows.Next() {
		var v ValuationRow
		if err := rows.Scan(&v.Classification, &v.AccountCode, &v.LayerValue, &v.GLBalance); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
