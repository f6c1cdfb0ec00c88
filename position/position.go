// Package position implements PositionEngine: open/modify/collect/close
// over a Pool's discrete tick range, and the fee-settlement logic shared
// by all of them. Grounded on the original Fluxa Rust core's
// PositionManager (programs/amm_core/src/position_manager.rs) for the
// amount-calculation branching by current-tick-vs-range, and on the
// teacher's identity types (solana.PublicKey) for Owner/PoolId.
package position

import (
	"math/big"

	sdkmath "cosmossdk.io/math"
	"github.com/fluxa-go/clmm-core/clmmerrors"
	clmmmath "github.com/fluxa-go/clmm-core/math"
	"github.com/fluxa-go/clmm-core/pool"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// Position is one liquidity commitment over [TickLower, TickUpper)
// against a Pool, per spec.md §3.
type Position struct {
	Owner  solana.PublicKey
	PoolId solana.PublicKey

	TickLower, TickUpper int32
	Liquidity            uint128.Uint128

	FeeGrowthInsideALast uint128.Uint128
	FeeGrowthInsideBLast uint128.Uint128
	TokensOwedA          sdkmath.Int
	TokensOwedB          sdkmath.Int

	// DisplayPriceX1e6 is an advisory, non-consensus snapshot of the
	// lower-bound price scaled by 1e6, reproducing the original Rust
	// source's redundant human-readable price field
	// (programs/amm_core/src/lib.rs Position.lower_price). It is
	// recomputed opportunistically on Open/Modify and never read back
	// by any invariant or operation in this package.
	DisplayPriceX1e6 uint64
}

func validateRange(tickLower, tickUpper, spacing int32) error {
	if tickLower >= tickUpper {
		return clmmerrors.ErrInvalidTickRange
	}
	if tickLower < clmmmath.MinTick || tickUpper > clmmmath.MaxTick {
		return clmmerrors.ErrInvalidTickRange
	}
	if tickLower%spacing != 0 || tickUpper%spacing != 0 {
		return clmmerrors.ErrInvalidTickRange
	}
	return nil
}

// displayPrice approximates 1.0001^tick * 1e6 from the tick's Q64.64
// sqrt-price, purely for the advisory display field: (sqrtPrice/2^64)^2 * 1e6.
func displayPrice(tick int32) uint64 {
	sqrtPrice, err := clmmmath.TickToSqrtPrice(tick)
	if err != nil {
		return 0
	}
	scaled := new(big.Int).Mul(sqrtPrice.Big(), sqrtPrice.Big())
	scaled.Mul(scaled, big.NewInt(1_000_000))
	q128 := new(big.Int).Lsh(big.NewInt(1), 128)
	scaled.Quo(scaled, q128)
	maxU64 := new(big.Int).SetUint64(^uint64(0))
	if scaled.Cmp(maxU64) > 0 {
		return ^uint64(0)
	}
	return scaled.Uint64()
}

// tokenAmountsForRange computes the deposit/withdrawal amounts for
// liquidity delta over [tickLower, tickUpper) given the pool's current
// price, branching on where current_tick falls relative to the range
// exactly as the original Rust core's calculate_token_amounts does.
func tokenAmountsForRange(pl *pool.Pool, tickLower, tickUpper int32, liquidity uint128.Uint128, rounding clmmmath.Rounding) (sdkmath.Int, sdkmath.Int, error) {
	sqrtLower, err := clmmmath.TickToSqrtPrice(tickLower)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	sqrtUpper, err := clmmmath.TickToSqrtPrice(tickUpper)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}

	switch {
	case pl.CurrentTick < tickLower:
		amountA, err := clmmmath.GetAmountADelta(sqrtLower, sqrtUpper, liquidity, rounding)
		return amountA, sdkmath.ZeroInt(), err
	case pl.CurrentTick >= tickUpper:
		amountB, err := clmmmath.GetAmountBDelta(sqrtLower, sqrtUpper, liquidity, rounding)
		return sdkmath.ZeroInt(), amountB, err
	default:
		amountA, err := clmmmath.GetAmountADelta(pl.SqrtPrice, sqrtUpper, liquidity, rounding)
		if err != nil {
			return sdkmath.Int{}, sdkmath.Int{}, err
		}
		amountB, err := clmmmath.GetAmountBDelta(sqrtLower, pl.SqrtPrice, liquidity, rounding)
		if err != nil {
			return sdkmath.Int{}, sdkmath.Int{}, err
		}
		return amountA, amountB, nil
	}
}

// addToPoolLiquidityIfInRange folds delta into pl.Liquidity when the
// pool's current tick sits inside [tickLower, tickUpper), per spec.md
// §4.6 step 4/2.
func addToPoolLiquidityIfInRange(pl *pool.Pool, tickLower, tickUpper int32, delta *big.Int) error {
	if pl.CurrentTick < tickLower || pl.CurrentTick >= tickUpper {
		return nil
	}
	next := new(big.Int).Add(pl.Liquidity.Big(), delta)
	if next.Sign() < 0 || next.BitLen() > 128 {
		return clmmerrors.ErrMathOverflow
	}
	pl.Liquidity = uint128.FromBig(next)
	return nil
}

// Open creates a new position over [tickLower, tickUpper) with the
// given liquidity, per spec.md §4.6.
func Open(pl *pool.Pool, owner, poolId solana.PublicKey, tickLower, tickUpper int32, liquidity uint128.Uint128) (*Position, sdkmath.Int, sdkmath.Int, error) {
	if err := validateRange(tickLower, tickUpper, pl.TickSpacing); err != nil {
		return nil, sdkmath.Int{}, sdkmath.Int{}, err
	}
	if liquidity.IsZero() {
		return nil, sdkmath.Int{}, sdkmath.Int{}, clmmerrors.ErrPositionLiquidityTooLow
	}

	delta := liquidity.Big()
	if err := pl.Ticks.UpdateForAdd(tickLower, pl.TickSpacing, delta); err != nil {
		return nil, sdkmath.Int{}, sdkmath.Int{}, err
	}
	if err := pl.Ticks.UpdateForAdd(tickUpper, pl.TickSpacing, new(big.Int).Neg(delta)); err != nil {
		return nil, sdkmath.Int{}, sdkmath.Int{}, err
	}

	insideA, insideB := pl.Ticks.FeeGrowthInside(tickLower, tickUpper, pl.CurrentTick, pl.FeeGrowthGlobalA, pl.FeeGrowthGlobalB)

	if err := addToPoolLiquidityIfInRange(pl, tickLower, tickUpper, delta); err != nil {
		return nil, sdkmath.Int{}, sdkmath.Int{}, err
	}

	amountA, amountB, err := tokenAmountsForRange(pl, tickLower, tickUpper, liquidity, clmmmath.RoundCeil)
	if err != nil {
		return nil, sdkmath.Int{}, sdkmath.Int{}, err
	}

	pl.PositionCount++

	pos := &Position{
		Owner:                owner,
		PoolId:               poolId,
		TickLower:            tickLower,
		TickUpper:            tickUpper,
		Liquidity:            liquidity,
		FeeGrowthInsideALast: insideA,
		FeeGrowthInsideBLast: insideB,
		TokensOwedA:          sdkmath.ZeroInt(),
		TokensOwedB:          sdkmath.ZeroInt(),
		DisplayPriceX1e6:     displayPrice(tickLower),
	}
	return pos, amountA, amountB, nil
}

// settleFees runs the fee-settlement step common to every modify/collect
// (spec.md §4.6): recompute fee_growth_inside, accrue the delta since
// last settlement into tokens_owed (saturating at u64::MAX), and store
// the new snapshot.
func settleFees(pl *pool.Pool, p *Position) {
	insideA, insideB := pl.Ticks.FeeGrowthInside(p.TickLower, p.TickUpper, pl.CurrentTick, pl.FeeGrowthGlobalA, pl.FeeGrowthGlobalB)

	deltaA := insideA.SubWrap(p.FeeGrowthInsideALast)
	deltaB := insideB.SubWrap(p.FeeGrowthInsideBLast)

	p.TokensOwedA = saturatingAddOwed(p.TokensOwedA, p.Liquidity, deltaA)
	p.TokensOwedB = saturatingAddOwed(p.TokensOwedB, p.Liquidity, deltaB)

	p.FeeGrowthInsideALast = insideA
	p.FeeGrowthInsideBLast = insideB
}

var maxUint64Big = new(big.Int).SetUint64(^uint64(0))

// saturatingAddOwed adds floor(liquidity * feeGrowthDelta / 2^64) to
// owed, saturating at u64::MAX per spec.md §4.6 step 3.
func saturatingAddOwed(owed sdkmath.Int, liquidity, feeGrowthDelta uint128.Uint128) sdkmath.Int {
	q64 := new(big.Int).Lsh(big.NewInt(1), 64)
	accrued := new(big.Int).Mul(liquidity.Big(), feeGrowthDelta.Big())
	accrued.Quo(accrued, q64)

	next := new(big.Int).Add(owed.BigInt(), accrued)
	if next.Cmp(maxUint64Big) > 0 {
		return sdkmath.NewIntFromBigInt(maxUint64Big)
	}
	return sdkmath.NewIntFromBigInt(next)
}

// Modify changes a position's liquidity by a signed delta: increase adds
// Δ, decrease removes Δ (Δ itself is always the unsigned magnitude; the
// isIncrease flag selects direction), per spec.md §4.6.
func Modify(pl *pool.Pool, p *Position, delta uint128.Uint128, isIncrease bool) (sdkmath.Int, sdkmath.Int, error) {
	if !isIncrease && delta.Cmp(p.Liquidity) > 0 {
		return sdkmath.Int{}, sdkmath.Int{}, clmmerrors.ErrPositionLiquidityTooLow
	}
	settleFees(pl, p)

	magnitude := delta.Big()
	rounding := clmmmath.RoundCeil
	poolDelta := magnitude
	if !isIncrease {
		poolDelta = new(big.Int).Neg(magnitude)
		rounding = clmmmath.RoundFloor
	}

	// A position holds exactly one reference on each boundary tick while
	// its liquidity is nonzero. Increase folds the liquidity into each
	// boundary tick with UpdateForAdd and decrease takes it out with
	// UpdateForRemove; reference_count is left unchanged unless the
	// position goes from zero to nonzero liquidity (a reference is taken)
	// or from nonzero to zero (the reference is dropped, deinitializing
	// and unflipping the tick once no reference remains). Both use the
	// same lower=+magnitude/upper=-magnitude sign convention Open
	// establishes, since UpdateForRemove must be called with the same
	// signed delta that was originally added in order to net back to
	// zero (spec.md:62, §8 testable property 10).
	keepsReference := (isIncrease && !p.Liquidity.IsZero()) || (!isIncrease && delta.Cmp(p.Liquidity) != 0)
	if isIncrease {
		if err := pl.Ticks.UpdateForAdd(p.TickLower, pl.TickSpacing, magnitude); err != nil {
			return sdkmath.Int{}, sdkmath.Int{}, err
		}
		if err := pl.Ticks.UpdateForAdd(p.TickUpper, pl.TickSpacing, new(big.Int).Neg(magnitude)); err != nil {
			return sdkmath.Int{}, sdkmath.Int{}, err
		}
		if keepsReference {
			pl.Ticks.Get(p.TickLower).ReferenceCount--
			pl.Ticks.Get(p.TickUpper).ReferenceCount--
		}
	} else {
		if keepsReference {
			for _, boundary := range []int32{p.TickLower, p.TickUpper} {
				if t := pl.Ticks.Get(boundary); t != nil {
					t.ReferenceCount++
				}
			}
		}
		if err := pl.Ticks.UpdateForRemove(p.TickLower, pl.TickSpacing, magnitude); err != nil {
			return sdkmath.Int{}, sdkmath.Int{}, err
		}
		if err := pl.Ticks.UpdateForRemove(p.TickUpper, pl.TickSpacing, new(big.Int).Neg(magnitude)); err != nil {
			return sdkmath.Int{}, sdkmath.Int{}, err
		}
	}
	if err := addToPoolLiquidityIfInRange(pl, p.TickLower, p.TickUpper, poolDelta); err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}

	amountA, amountB, err := tokenAmountsForRange(pl, p.TickLower, p.TickUpper, delta, rounding)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}

	if isIncrease {
		p.Liquidity = uint128.FromBig(new(big.Int).Add(p.Liquidity.Big(), delta.Big()))
	} else {
		p.Liquidity = uint128.FromBig(new(big.Int).Sub(p.Liquidity.Big(), delta.Big()))
	}
	p.DisplayPriceX1e6 = displayPrice(p.TickLower)

	return amountA, amountB, nil
}

// Collect runs fee settlement and returns the position's full owed
// balances, zeroing them, per spec.md §4.6.
func Collect(pl *pool.Pool, p *Position) (sdkmath.Int, sdkmath.Int) {
	settleFees(pl, p)
	a, b := p.TokensOwedA, p.TokensOwedB
	p.TokensOwedA = sdkmath.ZeroInt()
	p.TokensOwedB = sdkmath.ZeroInt()
	return a, b
}

// Close validates that a position has nothing left to withdraw or
// collect, per spec.md §4.6. It does not remove the position from any
// external index; callers discard their own reference.
func Close(p *Position) error {
	if !p.Liquidity.IsZero() {
		return clmmerrors.ErrPositionNotEmpty
	}
	if p.TokensOwedA.IsPositive() || p.TokensOwedB.IsPositive() {
		return clmmerrors.ErrPositionFeesNotCollected
	}
	return nil
}
