package tickmap

import (
	"math/big"

	"github.com/fluxa-go/clmm-core/clmmerrors"
	"lukechampine.com/uint128"
)

// Tick holds the per-tick state keyed by raw tick index inside a Pool's
// tick arena. LiquidityNet is signed (a tick can remove as much
// liquidity as it adds), staged through math/big so add/remove never
// silently wraps; LiquidityGross and the fee-growth-outside counters are
// the unsigned Q64.64 values spec.md §3/§4.3 describe.
type Tick struct {
	Initialized       bool
	ReferenceCount    uint32
	LiquidityNet      *big.Int
	LiquidityGross    uint128.Uint128
	FeeGrowthOutsideA uint128.Uint128
	FeeGrowthOutsideB uint128.Uint128
}

func newTick() *Tick {
	return &Tick{LiquidityNet: new(big.Int)}
}

var maxUint128Big = func() *big.Int {
	v := new(big.Int).Lsh(big.NewInt(1), 128)
	return v.Sub(v, big.NewInt(1))
}()

func absBig(v *big.Int) *big.Int {
	return new(big.Int).Abs(v)
}

// updateForAdd applies a signed liquidity delta when a position edge is
// opened at this tick. bitmap/tick/spacing let it flip the sparse index
// on the uninitialized -> initialized transition, per spec.md §4.3.
func (t *Tick) updateForAdd(delta *big.Int, bitmap *Bitmap, tick, spacing int32) error {
	if !t.Initialized {
		t.LiquidityNet = new(big.Int).Set(delta)
		gross := absBig(delta)
		if gross.BitLen() > 128 {
			return clmmerrors.ErrMathOverflow
		}
		t.LiquidityGross = uint128.FromBig(gross)
		t.ReferenceCount = 1
		t.Initialized = true
		return bitmap.Flip(tick, spacing, true)
	}

	newNet := new(big.Int).Add(t.LiquidityNet, delta)
	if newNet.BitLen() > 128 {
		return clmmerrors.ErrMathOverflow
	}
	newGross := new(big.Int).Add(t.LiquidityGross.Big(), absBig(delta))
	if newGross.Cmp(maxUint128Big) > 0 {
		return clmmerrors.ErrMathOverflow
	}

	t.LiquidityNet = newNet
	t.LiquidityGross = uint128.FromBig(newGross)
	t.ReferenceCount++
	return nil
}

// updateForRemove reverses a previous updateForAdd, deinitializing (and
// flipping the bitmap off) once the reference count reaches zero.
func (t *Tick) updateForRemove(delta *big.Int, bitmap *Bitmap, tick, spacing int32) error {
	if !t.Initialized || t.ReferenceCount == 0 {
		return clmmerrors.ErrInvalidTickReference
	}

	t.LiquidityNet = new(big.Int).Sub(t.LiquidityNet, delta)
	newGross := new(big.Int).Sub(t.LiquidityGross.Big(), absBig(delta))
	if newGross.Sign() < 0 {
		return clmmerrors.ErrMathOverflow
	}
	t.LiquidityGross = uint128.FromBig(newGross)
	t.ReferenceCount--

	if t.ReferenceCount == 0 {
		t.Initialized = false
		t.LiquidityNet = new(big.Int)
		t.LiquidityGross = uint128.Zero
		t.FeeGrowthOutsideA = uint128.Zero
		t.FeeGrowthOutsideB = uint128.Zero
		return bitmap.Flip(tick, spacing, false)
	}
	return nil
}

// cross flips the fee-growth-outside counters via wrapping (modular)
// subtraction when price crosses this tick, and returns the signed
// liquidity_net to be folded into the pool's active liquidity (added
// when crossing upward, subtracted when crossing downward), per
// spec.md §4.3.
func (t *Tick) cross(feeGrowthGlobalA, feeGrowthGlobalB uint128.Uint128) *big.Int {
	t.FeeGrowthOutsideA = feeGrowthGlobalA.SubWrap(t.FeeGrowthOutsideA)
	t.FeeGrowthOutsideB = feeGrowthGlobalB.SubWrap(t.FeeGrowthOutsideB)
	return new(big.Int).Set(t.LiquidityNet)
}
