package costing

import (
	"errors"
	"time"
)

// MovementKind is the closed set of inventory movement variants. Costing
// and history logic switch over it exhaustively.
type MovementKind string

const (
	// MovementReceipt is an inbound purchase receipt.
	MovementReceipt MovementKind = "RECEIPT"
	// MovementConsume is an outbound consumption or sale.
	MovementConsume MovementKind = "CONSUME"
	// MovementProduce is production output received into stock.
	MovementProduce MovementKind = "PRODUCE"
	// MovementTransfer is a warehouse transfer leg.
	MovementTransfer MovementKind = "TRANSFER"
	// MovementAdjustment covers cost reallocations and quantity corrections.
	MovementAdjustment MovementKind = "ADJUSTMENT"
)

// Kinds lists every movement variant in stream-merge order.
func Kinds() []MovementKind {
	return []MovementKind{MovementReceipt, MovementConsume, MovementProduce, MovementTransfer, MovementAdjustment}
}

// InventoryLayer is one dated batch of quantity and unit cost, consumed
// oldest-first. Invariants: 0 <= RemainingQty <= InitialQty and Depleted
// iff RemainingQty == 0. Version is the optimistic concurrency counter.
type InventoryLayer struct {
	ID            int64
	ItemID        int64
	BatchID       string
	DocumentRef   string
	InitialQty    int64
	RemainingQty  int64
	UnitCost      int64
	LandedCostAdj int64
	ReceivedAt    time.Time
	Sequence      int64
	Depleted      bool
	Version       int64
}

// EffectiveUnitCost is the acquisition cost per unit including any
// landed-cost reallocation.
func (l InventoryLayer) EffectiveUnitCost() int64 {
	return l.UnitCost + l.LandedCostAdj
}

// Consumption reports one layer's contribution to a depletion.
type Consumption struct {
	Layer    InventoryLayer
	QtyTaken int64
	UnitCost int64
}

// MovementEvent is one element of an item's movement history. Qty is
// signed: positive into stock, negative out of it.
type MovementEvent struct {
	ID          int64
	Kind        MovementKind
	ItemID      int64
	Qty         int64
	UnitCost    int64
	DocumentRef string
	Note        string
	OccurredAt  time.Time
	Sequence    int64
	// Running is the cumulative quantity balance, filled by history reads.
	Running int64
}

// AllocationMethod selects the landed-cost proration basis.
type AllocationMethod string

const (
	// AllocationByValue prorates by line value (qty x unit cost).
	AllocationByValue AllocationMethod = "VALUE"
	// AllocationByQuantity prorates by line quantity.
	AllocationByQuantity AllocationMethod = "QUANTITY"
)

var (
	// ErrInsufficientInventory indicates depletion exceeds availability.
	// No layer is mutated in that case.
	ErrInsufficientInventory = errors.New("costing: insufficient inventory")
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("costing: quantity must be positive")
	// ErrInvalidUnitCost indicates a negative unit cost.
	ErrInvalidUnitCost = errors.New("costing: unit cost must be >= 0")
	// ErrLayerNotFound indicates a missing layer.
	ErrLayerNotFound = errors.New("costing: inventory layer not found")
)

type conflictError struct{ msg string }

func (e conflictError) Error() string   { return e.msg }
func (e conflictError) Retryable() bool { return true }

// ErrConcurrentModification indicates a layer version conflict. The whole
// operation can be retried by the caller.
var ErrConcurrentModification error = conflictError{msg: "costing: layer modified concurrently"}
