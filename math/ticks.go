package math

import (
	"math/big"

	"github.com/fluxa-go/clmm-core/clmmerrors"
	"lukechampine.com/uint128"
)

// tickToSqrtPriceUnclamped implements the binary-exponentiation routine
// without bounds checking, so it can be used at package init time to
// derive MinSqrtPrice/MaxSqrtPrice themselves.
func tickToSqrtPriceUnclamped(tick int32) (uint128.Uint128, error) {
	absTick := tick
	if absTick < 0 {
		absTick = -absTick
	}

	sqrtPrice := new(big.Int).Set(decimalScale) // 1.0 in the 1e17 decimal scale
	for k := 0; k < numPowers; k++ {
		if absTick&(1<<uint(k)) != 0 {
			sqrtPrice.Mul(sqrtPrice, sqrtRatioPowersScaled[k])
			sqrtPrice.Div(sqrtPrice, decimalScale)
		}
	}

	if tick < 0 {
		numerator := new(big.Int).Mul(decimalScale, decimalScale)
		sqrtPrice = numerator.Div(numerator, sqrtPrice)
	}

	result := new(big.Int).Mul(sqrtPrice, q64Big)
	result.Div(result, decimalScale)
	return bigToUint128(result)
}

// TickToSqrtPrice returns sqrt(1.0001^tick) in Q64.64, per spec.md §4.1.
// It is monotonically non-decreasing in tick and satisfies
// TickToSqrtPrice(MinTick) == MinSqrtPrice, TickToSqrtPrice(MaxTick) ==
// MaxSqrtPrice by construction.
func TickToSqrtPrice(tick int32) (uint128.Uint128, error) {
	if tick < MinTick || tick > MaxTick {
		return uint128.Zero, clmmerrors.ErrInvalidTickRange
	}
	return tickToSqrtPriceUnclamped(tick)
}

// SqrtPriceToTick inverts TickToSqrtPrice via binary search over
// [MinTick, MaxTick], returning the greatest tick t such that
// TickToSqrtPrice(t) <= sqrtPrice. A zero sqrtPrice is treated as an
// unset/sentinel price and clamps to MinTick rather than erroring;
// any other value strictly below MinSqrtPrice is PriceOutOfRange.
func SqrtPriceToTick(sqrtPrice uint128.Uint128) (int32, error) {
	if sqrtPrice.IsZero() {
		return MinTick, nil
	}
	if sqrtPrice.Cmp(MinSqrtPrice) < 0 {
		return 0, clmmerrors.ErrPriceOutOfRange
	}
	if sqrtPrice.Cmp(MinSqrtPrice) == 0 {
		return MinTick, nil
	}
	if sqrtPrice.Cmp(MaxSqrtPrice) >= 0 {
		return MaxTick, nil
	}

	lo, hi := MinTick, MaxTick
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		midPrice, err := tickToSqrtPriceUnclamped(mid)
		if err != nil {
			return 0, err
		}
		if midPrice.Cmp(sqrtPrice) <= 0 {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, nil
}

// NearestUsableTick rounds tick to the nearest multiple of spacing,
// clamped to the outermost multiples of spacing inside [MinTick, MaxTick].
// Grounded on the original Rust source's nearest_usable_tick helper
// (programs/amm_core/src/math.rs). It is a standalone convenience: the
// position-open path does not call it, and rejects a misaligned tick
// with a plain ErrInvalidTickRange.
func NearestUsableTick(tick, spacing int32) int32 {
	if spacing <= 0 {
		return tick
	}

	quotient := tick / spacing
	remainder := tick % spacing
	if remainder != 0 {
		absRemainder := remainder
		if absRemainder < 0 {
			absRemainder = -absRemainder
		}
		if absRemainder*2 >= spacing {
			if tick > 0 {
				quotient++
			} else {
				quotient--
			}
		}
	}

	rounded := quotient * spacing
	if rounded < MinTick {
		rounded = MinTick / spacing * spacing
	}
	if rounded > MaxTick {
		rounded = MaxTick / spacing * spacing
	}
	return rounded
}
