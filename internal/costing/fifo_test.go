package costing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func layerFixture(id int64, remaining, unitCost int64) InventoryLayer {
	return InventoryLayer{
		ID:           id,
		ItemID:       1,
		InitialQty:   remaining,
		RemainingQty: remaining,
		UnitCost:     unitCost,
		ReceivedAt:   time.Date(2026, 1, int(id), 0, 0, 0, 0, time.UTC),
		Sequence:     id,
		Version:      1,
	}
}

func TestPlanDepletionOldestFirst(t *testing.T) {
	layers := []InventoryLayer{
		layerFixture(1, 50, 1_000),
		layerFixture(2, 50, 1_200),
	}
	plan, err := planDepletion(layers, 60)
	require.NoError(t, err)
	require.Len(t, plan, 2)
	require.Equal(t, int64(50), plan[0].QtyTaken)
	require.Equal(t, int64(1_000), plan[0].UnitCost)
	require.Equal(t, int64(10), plan[1].QtyTaken)
	require.Equal(t, int64(1_200), plan[1].UnitCost)
}

func TestPlanDepletionSkipsEmptyLayers(t *testing.T) {
	empty := layerFixture(1, 0, 900)
	empty.Depleted = true
	layers := []InventoryLayer{empty, layerFixture(2, 30, 1_100)}
	plan, err := planDepletion(layers, 20)
	require.NoError(t, err)
	require.Len(t, plan, 1)
	require.Equal(t, int64(2), plan[0].Layer.ID)
}

func TestPlanDepletionInsufficient(t *testing.T) {
	layers := []InventoryLayer{layerFixture(1, 50, 1_000)}
	_, err := planDepletion(layers, 51)
	require.ErrorIs(t, err, ErrInsufficientInventory)
}

func TestPlanDepletionRejectsNonPositiveQty(t *testing.T) {
	_, err := planDepletion(nil, 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = planDepletion(nil, -5)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestWeightedUnitCost(t *testing.T) {
	layers := []InventoryLayer{
		layerFixture(1, 50, 1_000),
		layerFixture(2, 50, 1_200),
	}
	plan, err := planDepletion(layers, 60)
	require.NoError(t, err)
	// (50*1000 + 10*1200) / 60 = 1033.33 -> 1033
	require.Equal(t, int64(1_033), WeightedUnitCost(plan, 60))
	require.Equal(t, int64(62_000), TotalCost(plan))
}

func TestWeightedUnitCostIncludesLandedAdjustment(t *testing.T) {
	layer := layerFixture(1, 10, 1_000)
	layer.LandedCostAdj = 50
	plan, err := planDepletion([]InventoryLayer{layer}, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1_050), WeightedUnitCost(plan, 10))
}

func TestProrateSharesSumToAmount(t *testing.T) {
	shares := prorate(1_000, []int64{1, 1, 1})
	require.Len(t, shares, 3)
	var sum int64
	for _, s := range shares {
		sum += s
	}
	require.Equal(t, int64(1_000), sum)
	// leftover lands on the final share
	require.Equal(t, int64(333), shares[0])
	require.Equal(t, int64(333), shares[1])
	require.Equal(t, int64(334), shares[2])
}

func TestProrateByWeight(t *testing.T) {
	shares := prorate(900, []int64{2, 1})
	require.Equal(t, []int64{600, 300}, shares)
}

func TestProrateZeroWeights(t *testing.T) {
	shares := prorate(500, []int64{0, 0})
	require.Equal(t, []int64{0, 500}, shares)
}

func TestAllocationWeights(t *testing.T) {
	layers := []InventoryLayer{
		{InitialQty: 10, UnitCost: 100},
		{InitialQty: 5, UnitCost: 400},
	}
	require.Equal(t, []int64{1_000, 2_000}, allocationWeights(layers, AllocationByValue))
	require.Equal(t, []int64{10, 5}, allocationWeights(layers, AllocationByQuantity))
}
