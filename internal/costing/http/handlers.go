package costinghttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lucent-erp/lucent-erp/internal/costing"
	"github.com/lucent-erp/lucent-erp/internal/platform/httpx"
)

const requestTimeout = 5 * time.Second

// Service exposes the inventory reads required by the handler.
type Service interface {
	ListLayers(ctx context.Context, itemID int64) ([]costing.InventoryLayer, error)
	GetItemMovementHistory(ctx context.Context, itemID int64) ([]costing.MovementEvent, error)
	QuantityOnHand(ctx context.Context, itemID int64) (int64, error)
}

// Handler serves the read-only inventory endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

type layerVM struct {
	ID            int64  `json:"id"`
	BatchID       string `json:"batch_id"`
	DocumentRef   string `json:"document_ref"`
	InitialQty    int64  `json:"initial_qty"`
	RemainingQty  int64  `json:"remaining_qty"`
	UnitCost      int64  `json:"unit_cost"`
	LandedCostAdj int64  `json:"landed_cost_adj"`
	EffectiveCost int64  `json:"effective_unit_cost"`
	ReceivedAt    string `json:"received_at"`
	Depleted      bool   `json:"depleted"`
}

type movementVM struct {
	Kind        string `json:"kind"`
	Qty         int64  `json:"qty"`
	UnitCost    int64  `json:"unit_cost"`
	DocumentRef string `json:"document_ref"`
	Note        string `json:"note,omitempty"`
	OccurredAt  string `json:"occurred_at"`
	Running     int64  `json:"running_qty"`
}

type onHandVM struct {
	ItemID int64 `json:"item_id"`
	Qty    int64 `json:"qty_on_hand"`
}

func (h *Handler) handleListLayers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	itemID, err := itemIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "item id must be a positive integer")
		return
	}
	layers, err := h.service.ListLayers(ctx, itemID)
	if err != nil {
		h.logger.Error("list layers", slog.Int64("item_id", itemID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]layerVM, 0, len(layers))
	for _, layer := range layers {
		out = append(out, layerVM{
			ID:            layer.ID,
			BatchID:       layer.BatchID,
			DocumentRef:   layer.DocumentRef,
			InitialQty:    layer.InitialQty,
			RemainingQty:  layer.RemainingQty,
			UnitCost:      layer.UnitCost,
			LandedCostAdj: layer.LandedCostAdj,
			EffectiveCost: layer.EffectiveUnitCost(),
			ReceivedAt:    layer.ReceivedAt.Format(time.RFC3339),
			Depleted:      layer.Depleted,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleMovements(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	itemID, err := itemIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "item id must be a positive integer")
		return
	}
	events, err := h.service.GetItemMovementHistory(ctx, itemID)
	if err != nil {
		h.logger.Error("movement history", slog.Int64("item_id", itemID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]movementVM, 0, len(events))
	for _, ev := range events {
		out = append(out, movementVM{
			Kind:        string(ev.Kind),
			Qty:         ev.Qty,
			UnitCost:    ev.UnitCost,
			DocumentRef: ev.DocumentRef,
			Note:        ev.Note,
			OccurredAt:  ev.OccurredAt.Format(time.RFC3339),
			Running:     ev.Running,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleOnHand(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	itemID, err := itemIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "item id must be a positive integer")
		return
	}
	qty, err := h.service.QuantityOnHand(ctx, itemID)
	if err != nil {
		h.logger.Error("quantity on hand", slog.Int64("item_id", itemID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, onHandVM{ItemID: itemID, Qty: qty})
}

func itemIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, strconv.ErrSyntax
	}
	return id, nil
}
