package editor

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lucent-erp/lucent-erp/internal/costing"
	"github.com/lucent-erp/lucent-erp/internal/ledger"
	"github.com/lucent-erp/lucent-erp/internal/platform/db"
)

// Repository spans the journal and layer tables so a document's whole
// footprint commits or rolls back as one transaction. The editor owns no
// data of its own; it coordinates the two engines.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository unions the costing transaction surface with the document
// lookup and rollback operations the editor needs.
type TxRepository interface {
	costing.TxRepository

	// FindEntriesByTransaction returns entries (with lines) whose
	// transaction id matches exactly.
	FindEntriesByTransaction(ctx context.Context, transactionID string) ([]ledger.JournalEntry, error)
	ListLayersByDocument(ctx context.Context, documentRef string) ([]costing.InventoryLayer, error)
	ListConsumptionsByDocument(ctx context.Context, documentRef string) ([]DocumentConsumption, error)
	// RestoreLayerQty returns consumed quantity to a layer during a
	// document rollback, clearing the depleted flag.
	RestoreLayerQty(ctx context.Context, layerID, qty int64) error
	DeleteLayersByDocument(ctx context.Context, documentRef string) error
	DeleteConsumptionsByDocument(ctx context.Context, documentRef string) error
	DeleteMovementsByDocument(ctx context.Context, documentRef string) error
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("editor repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{TxRepository: costing.NewTxRepository(tx), tx: tx})
	})
}

type txRepository struct {
	costing.TxRepository
	tx pgx.Tx
}

func (r *txRepository) FindEntriesByTransaction(ctx context.Context, transactionID string) ([]ledger.JournalEntry, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, date, reference, transaction_id, posted, created_at
FROM journal_entries WHERE transaction_id=$1 ORDER BY id ASC`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []ledger.JournalEntry
	for rows.Next() {
		var e ledger.JournalEntry
		if err := rows.Scan(&e.ID, &e.Date, &e.Reference, &e.TransactionID, &e.Posted, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range entries {
		lineRows, err := r.tx.Query(ctx, `SELECT id, entry_id, account_code, debit, credit FROM journal_lines WHERE entry_id=$1 ORDER BY id ASC`, entries[i].ID)
		if err != nil {
			return nil, err
		}
		for lineRows.Next() {
			var line ledger.JournalEntryLine
			if err := lineRows.Scan(&line.ID, &line.EntryID, &line.AccountCode, &line.Debit, &line.Credit); err != nil {
				lineRows.Close()
				return nil, err
			}
			entries[i].Lines = append(entries[i].Lines, line)
		}
		if err := lineRows.Err(); err != nil {
			lineRows.Close()
			return nil, err
		}
		lineRows.Close()
	}
	return entries, nil
}

func (r *txRepository) ListLayersByDocument(ctx context.Context, documentRef string) ([]costing.InventoryLayer, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, item_id, batch_id, document_ref, initial_qty, remaining_qty, unit_cost, landed_cost_adj, received_at, sequence, depleted, version
FROM inventory_layers WHERE document_ref=$1 ORDER BY received_at ASC, sequence ASC`, documentRef)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var layers []costing.InventoryLayer
	for rows.Next() {
		var l costing.InventoryLayer
		if err := rows.Scan(&l.ID, &l.ItemID, &l.BatchID, &l.DocumentRef, &l.InitialQty, &l.RemainingQty, &l.UnitCost, &l.LandedCostAdj, &l.ReceivedAt, &l.Sequence, &l.Depleted, &l.Version); err != nil {
			return nil, err
		}
		layers = append(layers, l)
	}
	return layers, rows.Err()
}

func (r *txRepository) ListConsumptionsByDocument(ctx context.Context, documentRef string) ([]DocumentConsumption, error) {
	rows, err := r.tx.Query(ctx, `SELECT layer_id, qty FROM layer_consumptions WHERE document_ref=$1 ORDER BY id ASC`, documentRef)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DocumentConsumption
	for rows.Next() {
		var c DocumentConsumption
		if err := rows.Scan(&c.LayerID, &c.Qty); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *txRepository) RestoreLayerQty(ctx context.Context, layerID, qty int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE inventory_layers
SET remaining_qty = remaining_qty + $2, depleted = FALSE, version = version + 1
WHERE id=$1 AND remaining_qty + $2 <= initial_qty`, layerID, qty)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return costing.ErrLayerNotFound
	}
	return nil
}

func (r *txRepository) DeleteLayersByDocument(ctx context.Context, documentRef string) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM inventory_layers WHERE document_ref=$1`, documentRef)
	return err
}

func (r *txRepository) DeleteConsumptionsByDocument(ctx context.Context, documentRef string) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM layer_consumptions WHERE document_ref=$1`, documentRef)
	return err
}

func (r *txRepository) DeleteMovementsByDocument(ctx context.Context, documentRef string) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM inventory_movements WHERE document_ref=$1`, documentRef)
	return err
}

// PaymentChecker answers the payment-lock question from the table the
// payments module writes settlement rows into.
type PaymentChecker struct {
	pool *pgxpool.Pool
}

// NewPaymentChecker constructs PaymentChecker.
func NewPaymentChecker(pool *pgxpool.Pool) *PaymentChecker {
	return &PaymentChecker{pool: pool}
}

func (c *PaymentChecker) HasPaymentApplied(ctx context.Context, transactionID string) (bool, error) {
	var applied bool
	err := c.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM payment_applications WHERE document_ref=$1)`, transactionID).Scan(&applied)
	return applied, err
}
