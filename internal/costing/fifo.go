package costing

import "github.com/shopspring/decimal"

// planDepletion walks non-depleted layers in receive order and decides how
// much to take from each. Layers must already be sorted oldest-first
// (received_at, sequence). Returns ErrInsufficientInventory without partial
// results when availability falls short.
func planDepletion(layers []InventoryLayer, qtyNeeded int64) ([]Consumption, error) {
	if qtyNeeded <= 0 {
		return nil, ErrInvalidQuantity
	}
	var available int64
	for _, layer := range layers {
		available += layer.RemainingQty
	}
	if available < qtyNeeded {
		return nil, ErrInsufficientInventory
	}
	var out []Consumption
	remaining := qtyNeeded
	for _, layer := range layers {
		if remaining == 0 {
			break
		}
		if layer.RemainingQty == 0 {
			continue
		}
		take := layer.RemainingQty
		if take > remaining {
			take = remaining
		}
		out = append(out, Consumption{
			Layer:    layer,
			QtyTaken: take,
			UnitCost: layer.EffectiveUnitCost(),
		})
		remaining -= take
	}
	return out, nil
}

// WeightedUnitCost computes sum(qtyTaken x unitCost) / qtyNeeded over a
// depletion result, rounded half-up to integer minor units.
func WeightedUnitCost(consumptions []Consumption, qtyNeeded int64) int64 {
	if qtyNeeded <= 0 {
		return 0
	}
	total := decimal.Zero
	for _, c := range consumptions {
		total = total.Add(decimal.NewFromInt(c.QtyTaken).Mul(decimal.NewFromInt(c.UnitCost)))
	}
	return total.Div(decimal.NewFromInt(qtyNeeded)).Round(0).IntPart()
}

// TotalCost sums qtyTaken x unitCost over a depletion result.
func TotalCost(consumptions []Consumption) int64 {
	var total int64
	for _, c := range consumptions {
		total += c.QtyTaken * c.UnitCost
	}
	return total
}
