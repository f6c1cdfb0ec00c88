package tickmap_test

import (
	"math/big"
	"testing"

	"github.com/fluxa-go/clmm-core/tickmap"
	"lukechampine.com/uint128"
)

func TestUpdateForAddInitializesThenAccumulates(t *testing.T) {
	m := tickmap.NewTickMap()
	spacing := int32(60)

	if err := m.UpdateForAdd(60, spacing, big.NewInt(100)); err != nil {
		t.Fatalf("first add: %v", err)
	}
	tick := m.Get(60)
	if tick == nil || !tick.Initialized {
		t.Fatal("expected tick 60 to be initialized")
	}
	if tick.LiquidityNet.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("LiquidityNet = %s, want 100", tick.LiquidityNet)
	}
	if tick.LiquidityGross.Cmp(uint128.From64(100)) != 0 {
		t.Errorf("LiquidityGross = %s, want 100", tick.LiquidityGross)
	}
	if tick.ReferenceCount != 1 {
		t.Errorf("ReferenceCount = %d, want 1", tick.ReferenceCount)
	}
	if init, err := m.Bitmap.IsInitialized(60, spacing); err != nil || !init {
		t.Errorf("bitmap should agree tick 60 is initialized, got %v, %v", init, err)
	}

	if err := m.UpdateForAdd(60, spacing, big.NewInt(-30)); err != nil {
		t.Fatalf("second add: %v", err)
	}
	tick = m.Get(60)
	if tick.LiquidityNet.Cmp(big.NewInt(70)) != 0 {
		t.Errorf("LiquidityNet after second add = %s, want 70", tick.LiquidityNet)
	}
	if tick.LiquidityGross.Cmp(uint128.From64(130)) != 0 {
		t.Errorf("LiquidityGross after second add = %s, want 130", tick.LiquidityGross)
	}
	if tick.ReferenceCount != 2 {
		t.Errorf("ReferenceCount = %d, want 2", tick.ReferenceCount)
	}
}

func TestUpdateForRemoveDeinitializesAtZeroRefCount(t *testing.T) {
	m := tickmap.NewTickMap()
	spacing := int32(60)

	if err := m.UpdateForAdd(60, spacing, big.NewInt(100)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := m.UpdateForRemove(60, spacing, big.NewInt(100)); err != nil {
		t.Fatalf("remove: %v", err)
	}
	tick := m.Get(60)
	if tick.Initialized {
		t.Error("expected tick to be deinitialized once ref_count hits zero")
	}
	if init, err := m.Bitmap.IsInitialized(60, spacing); err != nil || init {
		t.Errorf("bitmap should agree tick 60 is no longer initialized, got %v, %v", init, err)
	}
	if m.IsInitialized(60) {
		t.Error("TickMap.IsInitialized should be false after deinitializing")
	}
}

func TestUpdateForRemoveWithoutPriorAddFails(t *testing.T) {
	m := tickmap.NewTickMap()
	if err := m.UpdateForRemove(60, 60, big.NewInt(1)); err == nil {
		t.Error("expected InvalidTickReference removing from an untouched tick")
	}
}

func TestFeeGrowthInsideCurrentTickInRange(t *testing.T) {
	m := tickmap.NewTickMap()
	spacing := int32(60)
	if err := m.UpdateForAdd(-60, spacing, big.NewInt(100)); err != nil {
		t.Fatalf("add lower: %v", err)
	}
	if err := m.UpdateForAdd(60, spacing, big.NewInt(-100)); err != nil {
		t.Fatalf("add upper: %v", err)
	}

	global := uint128.From64(1000)
	insideA, insideB := m.FeeGrowthInside(-60, 60, 0, global, global)
	// neither boundary has ever been crossed (fee_growth_outside == 0),
	// and current_tick is inside [-60, 60), so inside == global exactly.
	if insideA.Cmp(global) != 0 {
		t.Errorf("insideA = %s, want %s", insideA, global)
	}
	if insideB.Cmp(global) != 0 {
		t.Errorf("insideB = %s, want %s", insideB, global)
	}
}

func TestCrossFlipsFeeGrowthOutside(t *testing.T) {
	m := tickmap.NewTickMap()
	spacing := int32(60)
	if err := m.UpdateForAdd(60, spacing, big.NewInt(50)); err != nil {
		t.Fatalf("add: %v", err)
	}

	globalA := uint128.From64(500)
	globalB := uint128.From64(700)
	delta := m.Cross(60, globalA, globalB)
	if delta.Cmp(big.NewInt(50)) != 0 {
		t.Errorf("Cross returned liquidity_net = %s, want 50", delta)
	}
	tick := m.Get(60)
	if tick.FeeGrowthOutsideA.Cmp(globalA) != 0 {
		t.Errorf("FeeGrowthOutsideA after cross = %s, want %s (global - 0)", tick.FeeGrowthOutsideA, globalA)
	}
	if tick.FeeGrowthOutsideB.Cmp(globalB) != 0 {
		t.Errorf("FeeGrowthOutsideB after cross = %s, want %s (global - 0)", tick.FeeGrowthOutsideB, globalB)
	}

	// crossing again flips back towards zero (global - global == 0).
	m.Cross(60, globalA, globalB)
	tick = m.Get(60)
	if !tick.FeeGrowthOutsideA.IsZero() {
		t.Errorf("FeeGrowthOutsideA after second cross = %s, want 0", tick.FeeGrowthOutsideA)
	}
}
