package swap_test

import (
	"math/big"
	"testing"

	sdkmath "cosmossdk.io/math"
	clmmmath "github.com/fluxa-go/clmm-core/math"
	"github.com/fluxa-go/clmm-core/pool"
	"github.com/fluxa-go/clmm-core/position"
	"github.com/fluxa-go/clmm-core/swap"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// feeGrowthForTest mirrors Pool.ApplySwapStepOutput's fee-growth formula
// (floor(feeAmount * 2^64 / liquidity)) for asserting the expected
// fee_growth_global delta independent of the pool internals.
func feeGrowthForTest(feeAmount sdkmath.Int, liquidity uint128.Uint128) uint128.Uint128 {
	q64 := new(big.Int).Lsh(big.NewInt(1), 64)
	numerator := new(big.Int).Mul(feeAmount.BigInt(), q64)
	numerator.Quo(numerator, liquidity.Big())
	return uint128.FromBig(numerator)
}

func mustPoolAtTickZero(t *testing.T) *pool.Pool {
	t.Helper()
	sqrtAt0, err := clmmmath.TickToSqrtPrice(0)
	if err != nil {
		t.Fatalf("TickToSqrtPrice(0): %v", err)
	}
	pl, err := pool.Initialize(sqrtAt0, clmmmath.FeeTierMedium, 0, 0)
	if err != nil {
		t.Fatalf("pool.Initialize: %v", err)
	}
	return pl
}

// TestScenarioS2SwapWithinRange reproduces spec.md §8 scenario S2:
// starting from S1 (a single position [-60, 60] with L = 10_000_000_000),
// swap amount_in = 1_000_000 of token A with min_out = 0.
func TestScenarioS2SwapWithinRange(t *testing.T) {
	pl := mustPoolAtTickZero(t)
	liquidity := uint128.From64(10_000_000_000)
	owner, poolId := solana.PublicKey{1}, solana.PublicKey{2}
	if _, _, _, err := position.Open(pl, owner, poolId, -60, 60, liquidity); err != nil {
		t.Fatalf("Open: %v", err)
	}

	startSqrtPrice := pl.SqrtPrice
	amountIn := sdkmath.NewInt(1_000_000)

	amountInUsed, amountOut, protocolFeeA, protocolFeeB, err := swap.ExactIn(pl, amountIn, true, clmmmath.MinSqrtPrice, sdkmath.ZeroInt(), 1)
	if err != nil {
		t.Fatalf("ExactIn: %v", err)
	}
	if !amountInUsed.Equal(amountIn) {
		t.Errorf("amount_in_used = %s, want %s (single-tick range, no partial fill)", amountInUsed, amountIn)
	}
	if !amountOut.IsPositive() {
		t.Fatal("expected amount_out > 0")
	}
	if pl.SqrtPrice.Cmp(startSqrtPrice) >= 0 {
		t.Error("expected sqrt_price to decrease monotonically for a token-A input")
	}
	if !protocolFeeA.IsZero() || !protocolFeeB.IsZero() {
		t.Errorf("expected zero protocol fee share at protocol_fee_rate_bps = 0, got a=%s b=%s", protocolFeeA, protocolFeeB)
	}

	wantFee := clmmmath.ComputeFee(amountIn, clmmmath.FeeTierMedium)
	wantGrowth := feeGrowthForTest(wantFee, liquidity)
	if pl.FeeGrowthGlobalA.Cmp(wantGrowth) != 0 {
		t.Errorf("fee_growth_global_a = %s, want %s", pl.FeeGrowthGlobalA, wantGrowth)
	}
	if !pl.FeeGrowthGlobalB.IsZero() {
		t.Error("token-A input must not touch fee_growth_global_b")
	}
}

// TestScenarioS3CrossTickSwap reproduces spec.md §8 scenario S3: with a
// second position [60, 180] (L = 5_000_000_000) opened alongside S1's
// [-60, 60] (L = 10_000_000_000), a token-B-input swap of 100_000_000
// must cross tick 60, landing active liquidity at 5_000_000_000 and
// current_tick >= 60.
func TestScenarioS3CrossTickSwap(t *testing.T) {
	pl := mustPoolAtTickZero(t)
	owner, poolId := solana.PublicKey{1}, solana.PublicKey{2}
	if _, _, _, err := position.Open(pl, owner, poolId, -60, 60, uint128.From64(10_000_000_000)); err != nil {
		t.Fatalf("Open position 1: %v", err)
	}
	if _, _, _, err := position.Open(pl, owner, poolId, 60, 180, uint128.From64(5_000_000_000)); err != nil {
		t.Fatalf("Open position 2: %v", err)
	}
	if pl.Liquidity.Cmp(uint128.From64(10_000_000_000)) != 0 {
		t.Fatalf("active liquidity before swap = %s, want 10_000_000_000 (only the in-range position)", pl.Liquidity)
	}

	amountIn := sdkmath.NewInt(100_000_000)
	_, amountOut, _, _, err := swap.ExactIn(pl, amountIn, false, clmmmath.MaxSqrtPrice, sdkmath.ZeroInt(), 1)
	if err != nil {
		t.Fatalf("ExactIn: %v", err)
	}
	if !amountOut.IsPositive() {
		t.Fatal("expected amount_out > 0")
	}
	if pl.CurrentTick < 60 {
		t.Errorf("current_tick = %d, want >= 60 after crossing", pl.CurrentTick)
	}
	if pl.Liquidity.Cmp(uint128.From64(5_000_000_000)) != 0 {
		t.Errorf("active liquidity after crossing = %s, want 5_000_000_000", pl.Liquidity)
	}
}

// TestScenarioS4RoundTripSymmetry reproduces spec.md §8 scenario S4:
// after S2's swap, swapping the same output amount back in the reverse
// direction should return sqrt_price to within ±2 units of where it
// started.
func TestScenarioS4RoundTripSymmetry(t *testing.T) {
	pl := mustPoolAtTickZero(t)
	liquidity := uint128.From64(10_000_000_000)
	owner, poolId := solana.PublicKey{1}, solana.PublicKey{2}
	if _, _, _, err := position.Open(pl, owner, poolId, -60, 60, liquidity); err != nil {
		t.Fatalf("Open: %v", err)
	}
	startSqrtPrice := pl.SqrtPrice

	_, amountOut, _, _, err := swap.ExactIn(pl, sdkmath.NewInt(1_000_000), true, clmmmath.MinSqrtPrice, sdkmath.ZeroInt(), 1)
	if err != nil {
		t.Fatalf("forward ExactIn: %v", err)
	}

	_, _, _, _, err = swap.ExactIn(pl, amountOut, false, clmmmath.MaxSqrtPrice, sdkmath.ZeroInt(), 2)
	if err != nil {
		t.Fatalf("reverse ExactIn: %v", err)
	}

	lo := startSqrtPrice
	hi := pl.SqrtPrice
	if lo.Cmp(hi) > 0 {
		lo, hi = hi, lo
	}
	gap := hi.Sub(lo)
	if gap.Cmp(uint128.From64(2)) > 0 {
		t.Errorf("ending sqrt_price = %s, starting = %s, gap = %s exceeds 2 units", pl.SqrtPrice, startSqrtPrice, gap)
	}
}

func TestExactInRejectsNonPositiveAmount(t *testing.T) {
	pl := mustPoolAtTickZero(t)
	if _, _, _, _, err := swap.ExactIn(pl, sdkmath.ZeroInt(), true, clmmmath.MinSqrtPrice, sdkmath.ZeroInt(), 0); err == nil {
		t.Error("expected ZeroOutputAmount for a zero amount_in")
	}
}

func TestExactInInsufficientLiquidityWithNoPosition(t *testing.T) {
	pl := mustPoolAtTickZero(t)
	if _, _, _, _, err := swap.ExactIn(pl, sdkmath.NewInt(1000), true, clmmmath.MinSqrtPrice, sdkmath.ZeroInt(), 0); err == nil {
		t.Error("expected InsufficientLiquidity swapping against a pool with no liquidity anywhere")
	}
}

func TestExactInSlippageExceeded(t *testing.T) {
	pl := mustPoolAtTickZero(t)
	owner, poolId := solana.PublicKey{1}, solana.PublicKey{2}
	if _, _, _, err := position.Open(pl, owner, poolId, -60, 60, uint128.From64(10_000_000_000)); err != nil {
		t.Fatalf("Open: %v", err)
	}
	hugeMinOut := sdkmath.NewInt(1_000_000_000_000)
	if _, _, _, _, err := swap.ExactIn(pl, sdkmath.NewInt(1_000_000), true, clmmmath.MinSqrtPrice, hugeMinOut, 0); err == nil {
		t.Error("expected SlippageExceeded when min_out is unreachable")
	}
}
