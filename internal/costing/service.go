package costing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/lucent-erp/lucent-erp/internal/ledger"
	"github.com/lucent-erp/lucent-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListLayers(ctx context.Context, itemID int64) ([]InventoryLayer, error)
	QuantityOnHand(ctx context.Context, itemID int64) (int64, error)
	ListMovements(ctx context.Context, itemID int64, kind MovementKind) ([]MovementEvent, error)
}

// AccountResolver supplies per-item GL account codes from master data.
type AccountResolver interface {
	InventoryAccount(ctx context.Context, itemID int64) (string, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ServiceConfig groups cost-engine settings.
type ServiceConfig struct {
	// LandedCostClearingAccount receives the credit side of landed-cost
	// reallocations.
	LandedCostClearingAccount string
}

// Service owns the per-item FIFO cost layers.
type Service struct {
	repo     RepositoryPort
	accounts AccountResolver
	audit    AuditPort
	cfg      ServiceConfig
	now      func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, accounts AccountResolver, audit AuditPort, cfg ServiceConfig) *Service {
	return &Service{repo: repo, accounts: accounts, audit: audit, cfg: cfg, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ReceiveInput describes one inbound batch.
type ReceiveInput struct {
	ItemID      int64
	Qty         int64
	UnitCost    int64
	BatchID     string
	DocumentRef string
	Kind        MovementKind
	Note        string
}

// Receive creates a new layer with remaining = initial = qty. Layers are
// ordered by wall clock plus a monotone sequence so ties stay deterministic.
func (s *Service) Receive(ctx context.Context, input ReceiveInput) (InventoryLayer, error) {
	if input.ItemID == 0 {
		return InventoryLayer{}, errors.New("costing: item required")
	}
	if input.Qty <= 0 {
		return InventoryLayer{}, ErrInvalidQuantity
	}
	if input.UnitCost < 0 {
		return InventoryLayer{}, ErrInvalidUnitCost
	}
	kind := input.Kind
	switch kind {
	case MovementReceipt, MovementProduce, MovementTransfer:
	case "":
		kind = MovementReceipt
	default:
		return InventoryLayer{}, fmt.Errorf("costing: %s cannot create a layer", kind)
	}
	now := s.now().UTC()
	layer := InventoryLayer{
		ItemID:       input.ItemID,
		BatchID:      input.BatchID,
		DocumentRef:  input.DocumentRef,
		InitialQty:   input.Qty,
		RemainingQty: input.Qty,
		UnitCost:     input.UnitCost,
		ReceivedAt:   now,
	}
	if layer.BatchID == "" {
		layer.BatchID = fmt.Sprintf("RCV-%d", now.UnixNano())
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inserted, err := tx.InsertLayer(ctx, layer)
		if err != nil {
			return err
		}
		layer = inserted
		return tx.InsertMovement(ctx, MovementEvent{
			Kind:        kind,
			ItemID:      input.ItemID,
			Qty:         input.Qty,
			UnitCost:    input.UnitCost,
			DocumentRef: input.DocumentRef,
			Note:        input.Note,
			OccurredAt:  now,
		})
	})
	if err != nil {
		return InventoryLayer{}, err
	}
	s.recordAudit(ctx, "costing.receive", layer.ItemID, map[string]any{
		"batch_id": layer.BatchID, "qty": input.Qty, "unit_cost": input.UnitCost,
	})
	return layer, nil
}

// DepleteInput describes one outbound consumption.
type DepleteInput struct {
	ItemID      int64
	Qty         int64
	DocumentRef string
	Kind        MovementKind
	Note        string
}

// Deplete consumes layers strictly oldest-first, all or nothing. It returns
// the per-layer consumptions; callers derive the weighted unit cost via
// WeightedUnitCost. A stale layer version fails the whole operation with
// ErrConcurrentModification so the caller can retry.
func (s *Service) Deplete(ctx context.Context, input DepleteInput) ([]Consumption, error) {
	if input.ItemID == 0 {
		return nil, errors.New("costing: item required")
	}
	kind := input.Kind
	switch kind {
	case MovementConsume, MovementTransfer:
	case "":
		kind = MovementConsume
	default:
		return nil, fmt.Errorf("costing: %s cannot consume layers", kind)
	}
	var consumptions []Consumption
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		layers, err := tx.ListOpenLayers(ctx, input.ItemID)
		if err != nil {
			return err
		}
		plan, err := planDepletion(layers, input.Qty)
		if err != nil {
			return err
		}
		if err := s.applyDepletion(ctx, tx, plan, input.DocumentRef); err != nil {
			return err
		}
		weighted := WeightedUnitCost(plan, input.Qty)
		if err := tx.InsertMovement(ctx, MovementEvent{
			Kind:        kind,
			ItemID:      input.ItemID,
			Qty:         -input.Qty,
			UnitCost:    weighted,
			DocumentRef: input.DocumentRef,
			Note:        input.Note,
			OccurredAt:  s.now().UTC(),
		}); err != nil {
			return err
		}
		consumptions = plan
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "costing.deplete", input.ItemID, map[string]any{
		"qty": input.Qty, "layers": len(consumptions), "document_ref": input.DocumentRef,
	})
	return consumptions, nil
}

// DepleteTx runs the depletion plan inside a caller-provided transaction.
// The editor uses it to keep consumption atomic with its journal writes.
func (s *Service) DepleteTx(ctx context.Context, tx TxRepository, input DepleteInput) ([]Consumption, error) {
	layers, err := tx.ListOpenLayers(ctx, input.ItemID)
	if err != nil {
		return nil, err
	}
	plan, err := planDepletion(layers, input.Qty)
	if err != nil {
		return nil, err
	}
	if err := s.applyDepletion(ctx, tx, plan, input.DocumentRef); err != nil {
		return nil, err
	}
	if err := tx.InsertMovement(ctx, MovementEvent{
		Kind:        MovementConsume,
		ItemID:      input.ItemID,
		Qty:         -input.Qty,
		UnitCost:    WeightedUnitCost(plan, input.Qty),
		DocumentRef: input.DocumentRef,
		Note:        input.Note,
		OccurredAt:  s.now().UTC(),
	}); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *Service) applyDepletion(ctx context.Context, tx TxRepository, plan []Consumption, documentRef string) error {
	for _, c := range plan {
		newRemaining := c.Layer.RemainingQty - c.QtyTaken
		if err := tx.ApplyDepletion(ctx, c.Layer.ID, newRemaining, newRemaining == 0, c.Layer.Version); err != nil {
			return err
		}
		if documentRef != "" {
			if err := tx.InsertConsumption(ctx, documentRef, c.Layer.ID, c.QtyTaken); err != nil {
				return err
			}
		}
	}
	return nil
}

// LandedCostInput describes a landed-cost reallocation over target layers.
type LandedCostInput struct {
	ServiceAmount int64
	Method        AllocationMethod
	LayerIDs      []int64
	DocumentRef   string
	Note          string
}

// LandedCostAllocation reports one layer's share of the reallocation.
type LandedCostAllocation struct {
	LayerID      int64
	ItemID       int64
	Amount       int64
	PerUnitDelta int64
}

// AllocateLandedCost distributes a service amount across the target layers
// proportional to line value or quantity, rounding leftovers onto the last
// target. Each layer's landed-cost adjustment rises by the per-unit delta
// and one balancing journal entry (debit inventory asset accounts grouped
// by code, credit the clearing account) commits in the same transaction.
func (s *Service) AllocateLandedCost(ctx context.Context, input LandedCostInput) ([]LandedCostAllocation, error) {
	if input.ServiceAmount <= 0 {
		return nil, errors.New("costing: service amount must be positive")
	}
	if len(input.LayerIDs) == 0 {
		return nil, errors.New("costing: target layers required")
	}
	if s.cfg.LandedCostClearingAccount == "" {
		return nil, errors.New("costing: landed cost clearing account not configured")
	}
	var allocations []LandedCostAllocation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		layers, err := tx.GetLayersByIDs(ctx, input.LayerIDs)
		if err != nil {
			return err
		}
		shares := prorate(input.ServiceAmount, allocationWeights(layers, input.Method))
		debitByAccount := make(map[string]int64)
		allocations = allocations[:0]
		for i, layer := range layers {
			perUnit := perUnitDelta(shares[i], layer.InitialQty)
			if err := tx.AddLandedCost(ctx, layer.ID, perUnit, layer.Version); err != nil {
				return err
			}
			account, err := s.accounts.InventoryAccount(ctx, layer.ItemID)
			if err != nil {
				return err
			}
			debitByAccount[account] += shares[i]
			allocations = append(allocations, LandedCostAllocation{
				LayerID:      layer.ID,
				ItemID:       layer.ItemID,
				Amount:       shares[i],
				PerUnitDelta: perUnit,
			})
			if err := tx.InsertMovement(ctx, MovementEvent{
				Kind:        MovementAdjustment,
				ItemID:      layer.ItemID,
				UnitCost:    perUnit,
				DocumentRef: input.DocumentRef,
				Note:        noteOr(input.Note, "landed cost reallocation"),
				OccurredAt:  s.now().UTC(),
			}); err != nil {
				return err
			}
		}
		lines := make([]ledger.PostingLineInput, 0, len(debitByAccount)+1)
		for _, code := range sortedCodes(debitByAccount) {
			lines = append(lines, ledger.PostingLineInput{AccountCode: code, Debit: debitByAccount[code]})
		}
		lines = append(lines, ledger.PostingLineInput{AccountCode: s.cfg.LandedCostClearingAccount, Credit: input.ServiceAmount})
		return tx.PostJournal(ctx, ledger.PostingInput{
			Date:          s.now(),
			Reference:     noteOr(input.Note, "landed cost reallocation"),
			TransactionID: input.DocumentRef,
			Lines:         lines,
		})
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "costing.landed_cost", 0, map[string]any{
		"service_amount": input.ServiceAmount, "method": string(input.Method), "layers": len(allocations),
	})
	return allocations, nil
}

// GetItemMovementHistory merges the per-kind event streams into one
// chronological view with a running quantity balance.
func (s *Service) GetItemMovementHistory(ctx context.Context, itemID int64) ([]MovementEvent, error) {
	if itemID == 0 {
		return nil, errors.New("costing: item required")
	}
	kinds := Kinds()
	streams := make([][]MovementEvent, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			events, err := s.repo.ListMovements(gctx, itemID, kind)
			if err != nil {
				return err
			}
			streams[i] = events
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return mergeStreams(streams), nil
}

// QuantityOnHand reports the item's total remaining quantity.
func (s *Service) QuantityOnHand(ctx context.Context, itemID int64) (int64, error) {
	return s.repo.QuantityOnHand(ctx, itemID)
}

// ListLayers exposes the item's layers for the read-only API.
func (s *Service) ListLayers(ctx context.Context, itemID int64) ([]InventoryLayer, error) {
	return s.repo.ListLayers(ctx, itemID)
}

// mergeStreams performs a k-way merge of chronologically ordered streams
// by (occurred_at, sequence) and fills the running balance.
func mergeStreams(streams [][]MovementEvent) []MovementEvent {
	idx := make([]int, len(streams))
	var total int
	for _, s := range streams {
		total += len(s)
	}
	out := make([]MovementEvent, 0, total)
	var running int64
	for len(out) < total {
		best := -1
		for i, s := range streams {
			if idx[i] >= len(s) {
				continue
			}
			if best == -1 || eventBefore(s[idx[i]], streams[best][idx[best]]) {
				best = i
			}
		}
		ev := streams[best][idx[best]]
		idx[best]++
		running += ev.Qty
		ev.Running = running
		out = append(out, ev)
	}
	return out
}

func eventBefore(a, b MovementEvent) bool {
	if !a.OccurredAt.Equal(b.OccurredAt) {
		return a.OccurredAt.Before(b.OccurredAt)
	}
	return a.Sequence < b.Sequence
}

func perUnitDelta(share, qty int64) int64 {
	if qty <= 0 {
		return 0
	}
	return decimal.NewFromInt(share).Div(decimal.NewFromInt(qty)).Round(0).IntPart()
}

func sortedCodes(amounts map[string]int64) []string {
	codes := make([]string, 0, len(amounts))
	for code := range amounts {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func noteOr(note, fallback string) string {
	if note != "" {
		return note
	}
	return fallback
}

func (s *Service) recordAudit(ctx context.Context, action string, itemID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "inventory_layer",
		EntityID: fmt.Sprintf("%d", itemID),
		Meta:     meta,
		At:       s.now(),
	})
}
