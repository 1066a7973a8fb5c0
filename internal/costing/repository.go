package costing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lucent-erp/lucent-erp/internal/ledger"
	"github.com/lucent-erp/lucent-erp/internal/platform/db"
)

// Repository persists cost layers and movement events in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	InsertLayer(ctx context.Context, layer InventoryLayer) (InventoryLayer, error)
	ListOpenLayers(ctx context.Context, itemID int64) ([]InventoryLayer, error)
	GetLayersByIDs(ctx context.Context, ids []int64) ([]InventoryLayer, error)
	// ApplyDepletion writes the new remaining quantity guarded by the
	// layer's version; a stale version yields ErrConcurrentModification.
	ApplyDepletion(ctx context.Context, layerID int64, newRemaining int64, depleted bool, version int64) error
	AddLandedCost(ctx context.Context, layerID int64, perUnitDelta int64, version int64) error
	InsertConsumption(ctx context.Context, documentRef string, layerID int64, qty int64) error
	InsertMovement(ctx context.Context, event MovementEvent) error

	// PostJournal writes a balanced journal entry within this transaction.
	// Duplicated from the ledger repository but needed here so a cost
	// reallocation and its GL footprint commit atomically.
	PostJournal(ctx context.Context, input ledger.PostingInput) error
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("costing repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const layerColumns = `id, item_id, batch_id, document_ref, initial_qty, remaining_qty, unit_cost, landed_cost_adj, received_at, sequence, depleted, version`

// ListLayers returns every layer for an item, open or depleted, in receive order.
func (r *Repository) ListLayers(ctx context.Context, itemID int64) ([]InventoryLayer, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+layerColumns+` FROM inventory_layers WHERE item_id=$1 ORDER BY received_at ASC, sequence ASC`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLayers(rows)
}

// QuantityOnHand sums remaining quantity over the item's open layers.
func (r *Repository) QuantityOnHand(ctx context.Context, itemID int64) (int64, error) {
	var qty int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(remaining_qty),0) FROM inventory_layers WHERE item_id=$1 AND NOT depleted`, itemID).Scan(&qty)
	return qty, err
}

// ListMovements returns one kind's event stream for an item, chronologically
// ordered. History reads merge the per-kind streams at read time.
func (r *Repository) ListMovements(ctx context.Context, itemID int64, kind MovementKind) ([]MovementEvent, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, kind, item_id, qty, unit_cost, document_ref, note, occurred_at, sequence
FROM inventory_movements WHERE item_id=$1 AND kind=$2 ORDER BY occurred_at ASC, sequence ASC`, itemID, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []MovementEvent
	for rows.Next() {
		var ev MovementEvent
		if err := rows.Scan(&ev.ID, &ev.Kind, &ev.ItemID, &ev.Qty, &ev.UnitCost, &ev.DocumentRef, &ev.Note, &ev.OccurredAt, &ev.Sequence); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository wraps an already-open transaction. The editor uses it to
// compose layer writes into its own document transaction.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

func (r *txRepository) InsertLayer(ctx context.Context, layer InventoryLayer) (InventoryLayer, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_layers (item_id, batch_id, document_ref, initial_qty, remaining_qty, unit_cost, landed_cost_adj, received_at, depleted, version)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,FALSE,1) RETURNING id, sequence`,
		layer.ItemID, layer.BatchID, layer.DocumentRef, layer.InitialQty, layer.RemainingQty, layer.UnitCost, layer.LandedCostAdj, layer.ReceivedAt).
		Scan(&layer.ID, &layer.Sequence)
	if err != nil {
		return InventoryLayer{}, err
	}
	layer.Depleted = false
	layer.Version = 1
	return layer, nil
}

func (r *txRepository) ListOpenLayers(ctx context.Context, itemID int64) ([]InventoryLayer, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+layerColumns+` FROM inventory_layers
WHERE item_id=$1 AND NOT depleted ORDER BY received_at ASC, sequence ASC`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLayers(rows)
}

func (r *txRepository) GetLayersByIDs(ctx context.Context, ids []int64) ([]InventoryLayer, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+layerColumns+` FROM inventory_layers WHERE id = ANY($1) ORDER BY received_at ASC, sequence ASC`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	layers, err := scanLayers(rows)
	if err != nil {
		return nil, err
	}
	if len(layers) != len(ids) {
		return nil, ErrLayerNotFound
	}
	return layers, nil
}

func (r *txRepository) ApplyDepletion(ctx context.Context, layerID int64, newRemaining int64, depleted bool, version int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE inventory_layers
SET remaining_qty=$2, depleted=$3, version=version+1
WHERE id=$1 AND version=$4`, layerID, newRemaining, depleted, version)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrConcurrentModification
	}
	return nil
}

func (r *txRepository) AddLandedCost(ctx context.Context, layerID int64, perUnitDelta int64, version int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE inventory_layers
SET landed_cost_adj=landed_cost_adj+$2, version=version+1
WHERE id=$1 AND version=$3`, layerID, perUnitDelta, version)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrConcurrentModification
	}
	return nil
}

func (r *txRepository) InsertConsumption(ctx context.Context, documentRef string, layerID int64, qty int64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO layer_consumptions (document_ref, layer_id, qty) VALUES ($1,$2,$3)`, documentRef, layerID, qty)
	return err
}

func (r *txRepository) InsertMovement(ctx context.Context, event MovementEvent) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO inventory_movements (kind, item_id, qty, unit_cost, document_ref, note, occurred_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)`, string(event.Kind), event.ItemID, event.Qty, event.UnitCost, event.DocumentRef, event.Note, event.OccurredAt)
	return err
}

func (r *txRepository) PostJournal(ctx context.Context, input ledger.PostingInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	var entryID int64
	err := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (date, reference, transaction_id, posted)
VALUES ($1,$2,$3,TRUE) RETURNING id`, input.Date, input.Reference, input.TransactionID).Scan(&entryID)
	if err != nil {
		return err
	}
	for _, line := range input.Lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_lines (entry_id, account_code, debit, credit)
VALUES ($1,$2,$3,$4)`, entryID, line.AccountCode, line.Debit, line.Credit); err != nil {
			return err
		}
	}
	for code, delta := range ledger.AccountDeltas(input.Lines) {
		cmd, err := r.tx.Exec(ctx, `UPDATE accounts SET cached_balance = cached_balance + $2, updated_at = NOW() WHERE code=$1`, code, delta)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ledger.ErrAccountNotFound
		}
	}
	return nil
}

func scanLayers(rows pgx.Rows) ([]InventoryLayer, error) {
	var layers []InventoryLayer
	for rows.Next() {
		var l InventoryLayer
		if err := rows.Scan(&l.ID, &l.ItemID, &l.BatchID, &l.DocumentRef, &l.InitialQty, &l.RemainingQty, &l.UnitCost, &l.LandedCostAdj, &l.ReceivedAt, &l.Sequence, &l.Depleted, &l.Version); err != nil {
			return nil, err
		}
		layers = append(layers, l)
	}
	return layers, rows.Err()
}
