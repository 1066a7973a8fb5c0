package costing

import "github.com/shopspring/decimal"

// prorate splits amount across weights proportionally, in minor units.
// Integer rounding leftovers land on the last share so the shares always
// sum to exactly amount.
func prorate(amount int64, weights []int64) []int64 {
	shares := make([]int64, len(weights))
	if len(weights) == 0 {
		return shares
	}
	var totalWeight int64
	for _, w := range weights {
		totalWeight += w
	}
	if totalWeight == 0 {
		shares[len(shares)-1] = amount
		return shares
	}
	amt := decimal.NewFromInt(amount)
	tw := decimal.NewFromInt(totalWeight)
	var assigned int64
	for i, w := range weights {
		if i == len(weights)-1 {
			shares[i] = amount - assigned
			break
		}
		share := amt.Mul(decimal.NewFromInt(w)).Div(tw).Round(0).IntPart()
		shares[i] = share
		assigned += share
	}
	return shares
}

// allocationWeights derives the proration basis for each target layer.
func allocationWeights(layers []InventoryLayer, method AllocationMethod) []int64 {
	weights := make([]int64, len(layers))
	for i, layer := range layers {
		switch method {
		case AllocationByQuantity:
			weights[i] = layer.InitialQty
		default:
			weights[i] = layer.InitialQty * layer.UnitCost
		}
	}
	return weights
}
