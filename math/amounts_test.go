package math_test

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	clmmmath "github.com/fluxa-go/clmm-core/math"
	"lukechampine.com/uint128"
)

func sqrtPriceAt(t *testing.T, tick int32) uint128.Uint128 {
	t.Helper()
	sp, err := clmmmath.TickToSqrtPrice(tick)
	if err != nil {
		t.Fatalf("TickToSqrtPrice(%d): %v", tick, err)
	}
	return sp
}

func TestGetAmountDeltasRoundingDirection(t *testing.T) {
	sqrtLo := sqrtPriceAt(t, -1000)
	sqrtHi := sqrtPriceAt(t, 1000)
	liquidity := uint128.From64(1_000_000_000_000)

	ceilA, err := clmmmath.GetAmountADelta(sqrtLo, sqrtHi, liquidity, clmmmath.RoundCeil)
	if err != nil {
		t.Fatalf("GetAmountADelta ceil: %v", err)
	}
	floorA, err := clmmmath.GetAmountADelta(sqrtLo, sqrtHi, liquidity, clmmmath.RoundFloor)
	if err != nil {
		t.Fatalf("GetAmountADelta floor: %v", err)
	}
	if ceilA.LT(floorA) {
		t.Errorf("ceil amount %s should be >= floor amount %s", ceilA, floorA)
	}

	ceilB, err := clmmmath.GetAmountBDelta(sqrtLo, sqrtHi, liquidity, clmmmath.RoundCeil)
	if err != nil {
		t.Fatalf("GetAmountBDelta ceil: %v", err)
	}
	floorB, err := clmmmath.GetAmountBDelta(sqrtLo, sqrtHi, liquidity, clmmmath.RoundFloor)
	if err != nil {
		t.Fatalf("GetAmountBDelta floor: %v", err)
	}
	if ceilB.LT(floorB) {
		t.Errorf("ceil amount %s should be >= floor amount %s", ceilB, floorB)
	}
}

func TestGetAmountDeltasOrderIndependent(t *testing.T) {
	lo := sqrtPriceAt(t, -5000)
	hi := sqrtPriceAt(t, 5000)
	liquidity := uint128.From64(42_000_000)

	a1, _ := clmmmath.GetAmountADelta(lo, hi, liquidity, clmmmath.RoundFloor)
	a2, _ := clmmmath.GetAmountADelta(hi, lo, liquidity, clmmmath.RoundFloor)
	if !a1.Equal(a2) {
		t.Errorf("GetAmountADelta should be symmetric in its bounds: %s vs %s", a1, a2)
	}
}

func TestLiquidityFromAmountsRoundTrip(t *testing.T) {
	lo := sqrtPriceAt(t, -10000)
	hi := sqrtPriceAt(t, 10000)
	cur := sqrtPriceAt(t, 0)
	wantLiquidity := uint128.From64(5_000_000_000)

	amountA, err := clmmmath.GetAmountADelta(cur, hi, wantLiquidity, clmmmath.RoundCeil)
	if err != nil {
		t.Fatalf("GetAmountADelta: %v", err)
	}
	amountB, err := clmmmath.GetAmountBDelta(lo, cur, wantLiquidity, clmmmath.RoundCeil)
	if err != nil {
		t.Fatalf("GetAmountBDelta: %v", err)
	}

	gotLiquidity := clmmmath.LiquidityFromAmounts(cur, lo, hi, amountA, amountB)
	// rounding up the deposit amounts must never yield strictly less
	// liquidity than originally requested (spec.md §8 testable property 5).
	if gotLiquidity.Cmp(wantLiquidity) < 0 {
		t.Errorf("liquidity round trip shrank: want >= %s, got %s", wantLiquidity, gotLiquidity)
	}
}

func TestNextSqrtPriceFromAmountInTokenADecreasesPrice(t *testing.T) {
	sqrtPrice := sqrtPriceAt(t, 0)
	liquidity := uint128.From64(1_000_000_000_000)

	next, err := clmmmath.NextSqrtPriceFromAmountIn(sqrtPrice, liquidity, sdkmath.NewInt(1_000_000), true)
	if err != nil {
		t.Fatalf("NextSqrtPriceFromAmountIn: %v", err)
	}
	if next.Cmp(sqrtPrice) > 0 {
		t.Errorf("token-A input must not increase sqrt price: got %s, was %s", next, sqrtPrice)
	}
}

func TestNextSqrtPriceFromAmountInTokenBIncreasesPrice(t *testing.T) {
	sqrtPrice := sqrtPriceAt(t, 0)
	liquidity := uint128.From64(1_000_000_000_000)

	next, err := clmmmath.NextSqrtPriceFromAmountIn(sqrtPrice, liquidity, sdkmath.NewInt(1_000_000), false)
	if err != nil {
		t.Fatalf("NextSqrtPriceFromAmountIn: %v", err)
	}
	if next.Cmp(sqrtPrice) < 0 {
		t.Errorf("token-B input must not decrease sqrt price: got %s, was %s", next, sqrtPrice)
	}
}

func TestNextSqrtPriceFromAmountInZeroLiquidity(t *testing.T) {
	sqrtPrice := sqrtPriceAt(t, 0)
	_, err := clmmmath.NextSqrtPriceFromAmountIn(sqrtPrice, uint128.Zero, sdkmath.NewInt(1), true)
	if err == nil {
		t.Error("expected error consuming input against zero liquidity")
	}
}

func TestVirtualReservesInvariantHolds(t *testing.T) {
	liquidity := uint128.From64(123_456_789_000)
	for _, tick := range []int32{-50000, -1, 0, 1, 50000} {
		sqrtPrice := sqrtPriceAt(t, tick)
		if !clmmmath.VerifyVirtualReservesInvariant(liquidity, sqrtPrice) {
			t.Errorf("virtual reserves invariant failed at tick %d", tick)
		}
	}
}

func TestComputeFeeCeilsAndScalesWithTier(t *testing.T) {
	amountIn := sdkmath.NewInt(1_000_000)

	feeLow := clmmmath.ComputeFee(amountIn, clmmmath.FeeTierLow)
	feeHigh := clmmmath.ComputeFee(amountIn, clmmmath.FeeTierHigh)
	if feeHigh.LTE(feeLow) {
		t.Errorf("higher fee tier should charge more: low=%s high=%s", feeLow, feeHigh)
	}

	// amountIn + fee should always exceed amountIn for a positive fee tier.
	if feeLow.LTE(sdkmath.ZeroInt()) {
		t.Errorf("expected a positive fee, got %s", feeLow)
	}
}

func TestComputeFeeZeroAmount(t *testing.T) {
	fee := clmmmath.ComputeFee(sdkmath.ZeroInt(), clmmmath.FeeTierMedium)
	if !fee.IsZero() {
		t.Errorf("zero amount in should yield zero fee, got %s", fee)
	}
}
