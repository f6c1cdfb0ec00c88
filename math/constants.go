// Package math implements the fixed-point arithmetic primitives of the
// concentrated liquidity core: Q64.64 sqrt-price <-> tick conversion,
// liquidity <-> token amount deltas, and the swap step's next-sqrt-price
// formulas. Every exported function takes and returns canonical Q64.64
// values (lukechampine.com/uint128.Uint128), and Q64.64 is the only
// fixed-point form the package uses: there is no Q64.96 conversion path
// (see SPEC_FULL.md §8, decision 3).
//
// Internally, multiplies and divides that could overflow a plain uint128
// are staged through math/big so that overflow is detected rather than
// silently wrapped; results are only folded back into a Uint128 once they
// are known to fit in 128 bits.
package math

import (
	"math/big"

	"github.com/fluxa-go/clmm-core/clmmerrors"
	"lukechampine.com/uint128"
)

// MinTick and MaxTick bound every tick index this core can represent.
// 1.0001^887272 is just inside the range a Q64.64 sqrt-price can encode.
const (
	MinTick int32 = -887272
	MaxTick int32 = 887272
)

// Fee tiers are fixed at three presets; extending the set is a governance
// operation outside this core (spec.md §6).
const (
	FeeTierLow    uint32 = 500   // 0.05%, hundredths of a basis point
	FeeTierMedium uint32 = 3000  // 0.30%
	FeeTierHigh   uint32 = 10000 // 1.00%

	// FeeDenominator is the scale fee tiers and the protocol fee rate are
	// expressed against: a fee tier of 3000 means 3000/1e6 = 0.3%.
	FeeDenominator uint64 = 1_000_000
)

// TickSpacingForFeeTier returns the fixed tick spacing for one of the
// three allowed fee tiers, or clmmerrors.ErrInvalidFeeTier.
func TickSpacingForFeeTier(feeTier uint32) (int32, error) {
	switch feeTier {
	case FeeTierLow:
		return 10, nil
	case FeeTierMedium:
		return 60, nil
	case FeeTierHigh:
		return 200, nil
	default:
		return 0, clmmerrors.ErrInvalidFeeTier
	}
}

var (
	one          = big.NewInt(1)
	q64Big       = new(big.Int).Lsh(one, 64)
	q96Big       = new(big.Int).Lsh(one, 96)
	q128Big      = new(big.Int).Lsh(one, 128)
	decimalScale = new(big.Int).SetUint64(100_000_000_000_000_000) // 1e17

	// MinSqrtPrice and MaxSqrtPrice are the Q64.64 sqrt-prices of MinTick
	// and MaxTick respectively; computed once at init from the same
	// binary-exponentiation routine TickToSqrtPrice uses, so they are
	// exact rather than independently hand-copied constants.
	MinSqrtPrice uint128.Uint128
	MaxSqrtPrice uint128.Uint128
)

// sqrtRatioPowersE15 holds sqrt(1.0001)^(2^k) scaled by 1e15, for
// k = 0..16; init rescales them to the 1e17 decimalScale into
// sqrtRatioPowersScaled. These 17 entries are ported verbatim from the original
// Fluxa Rust core (programs/amm_core/src/math.rs); entries for k = 17..19
// are derived at init time by repeated squaring (sqrt(1.0001)^(2^(k+1)) =
// (sqrt(1.0001)^(2^k))^2) since the Rust table only covered k <= 16,
// which decomposes tick magnitudes up to 2^17-1 and is too short for the
// full +-887272 range this core needs.
var sqrtRatioPowersE15 = [17]uint64{
	1_000050000000000, // k=0
	1_000100002500000, // k=1
	1_000200010000000, // k=2
	1_000400040001000, // k=3
	1_000800160008000, // k=4
	1_001601280064000, // k=5
	1_003204640128000, // k=6
	1_006415808256000, // k=7
	1_012867840512000, // k=8
	1_025857067264000, // k=9
	1_052213753312000, // k=10
	1_106801830144000, // k=11
	1_225785703184000, // k=12
	1_503213729408000, // k=13
	2_259689019904000, // k=14
	5_105885570048000, // k=15
	26_090033976320000, // k=16
}

const numPowers = 20 // k = 0..19, covers |tick| up to 2^20-1 > MaxTick

var sqrtRatioPowersScaled [numPowers]*big.Int

func init() {
	for k := 0; k < len(sqrtRatioPowersE15); k++ {
		// scale from 1e15 to the 1e17 DECIMAL_SCALE used throughout.
		sqrtRatioPowersScaled[k] = new(big.Int).Mul(big.NewInt(int64(sqrtRatioPowersE15[k])), big.NewInt(100))
	}
	for k := len(sqrtRatioPowersE15); k < numPowers; k++ {
		prev := sqrtRatioPowersScaled[k-1]
		squared := new(big.Int).Mul(prev, prev)
		sqrtRatioPowersScaled[k] = squared.Div(squared, decimalScale)
	}

	var err error
	MinSqrtPrice, err = tickToSqrtPriceUnclamped(MinTick)
	if err != nil {
		panic(err)
	}
	MaxSqrtPrice, err = tickToSqrtPriceUnclamped(MaxTick)
	if err != nil {
		panic(err)
	}
}

func bigToUint128(v *big.Int) (uint128.Uint128, error) {
	if v.Sign() < 0 || v.BitLen() > 128 {
		return uint128.Zero, clmmerrors.ErrMathOverflow
	}
	return uint128.FromBig(v), nil
}
