// Package swap implements SwapEngine: the single-pool exact-in swap loop
// that walks sqrt_price across initialized ticks, charging a fee on each
// step and routing it through Pool.ApplySwapStepOutput. Grounded on
// spec.md §4.7; the original Fluxa Rust core has no standalone swap-step
// module to ground against (its swap instruction is folded directly into
// the program entrypoint), so compute_step is built straight off the
// FixedMath primitives in the math package per the spec's literal
// algorithm.
package swap

import (
	sdkmath "cosmossdk.io/math"
	"github.com/fluxa-go/clmm-core/clmmerrors"
	clmmmath "github.com/fluxa-go/clmm-core/math"
	"github.com/fluxa-go/clmm-core/pool"
	"lukechampine.com/uint128"
)

// computeStep advances sqrtPrice toward sqrtPriceTarget by consuming up
// to amountRemaining of the input token against liquidity, charging a fee
// on the input at feeTier. Fees are computed on the input before the
// price moves, so amountInStep+feeStep is the total consumed by the step
// (spec.md §4.7).
func computeStep(sqrtPrice, sqrtPriceTarget, liquidity uint128.Uint128, amountRemaining sdkmath.Int, feeTier uint32, isTokenAInput bool) (sqrtPriceNext uint128.Uint128, amountInStep, amountOutStep, feeStep sdkmath.Int, err error) {
	var amountInMax sdkmath.Int
	if isTokenAInput {
		amountInMax, err = clmmmath.GetAmountADelta(sqrtPrice, sqrtPriceTarget, liquidity, clmmmath.RoundCeil)
	} else {
		amountInMax, err = clmmmath.GetAmountBDelta(sqrtPrice, sqrtPriceTarget, liquidity, clmmmath.RoundCeil)
	}
	if err != nil {
		return uint128.Zero, sdkmath.Int{}, sdkmath.Int{}, sdkmath.Int{}, err
	}
	feeOnMax := clmmmath.ComputeFee(amountInMax, feeTier)

	if amountRemaining.GTE(amountInMax.Add(feeOnMax)) {
		amountInStep = amountInMax
		feeStep = feeOnMax
		sqrtPriceNext = sqrtPriceTarget
	} else {
		amountInStep = amountRemaining.MulRaw(int64(clmmmath.FeeDenominator) - int64(feeTier)).QuoRaw(int64(clmmmath.FeeDenominator))
		feeStep = amountRemaining.Sub(amountInStep)
		sqrtPriceNext, err = clmmmath.NextSqrtPriceFromAmountIn(sqrtPrice, liquidity, amountInStep, isTokenAInput)
		if err != nil {
			return uint128.Zero, sdkmath.Int{}, sdkmath.Int{}, sdkmath.Int{}, err
		}
	}

	if isTokenAInput {
		amountOutStep, err = clmmmath.GetAmountBDelta(sqrtPriceNext, sqrtPrice, liquidity, clmmmath.RoundFloor)
	} else {
		amountOutStep, err = clmmmath.GetAmountADelta(sqrtPrice, sqrtPriceNext, liquidity, clmmmath.RoundFloor)
	}
	if err != nil {
		return uint128.Zero, sdkmath.Int{}, sdkmath.Int{}, sdkmath.Int{}, err
	}
	return sqrtPriceNext, amountInStep, amountOutStep, feeStep, nil
}

// clampTarget bounds a candidate tick price to sqrtPriceLimit on the side
// the swap must not cross: a token-A input must not push sqrt_price below
// the limit, a token-B input must not push it above.
func clampTarget(tickPrice, limit uint128.Uint128, isTokenAInput bool) uint128.Uint128 {
	if isTokenAInput {
		if tickPrice.Cmp(limit) < 0 {
			return limit
		}
		return tickPrice
	}
	if tickPrice.Cmp(limit) > 0 {
		return limit
	}
	return tickPrice
}

func crossAndAdvance(pl *pool.Pool, tick int32, isTokenAInput bool) error {
	if isTokenAInput {
		if err := pl.CrossTickDownward(tick); err != nil {
			return err
		}
		pl.CurrentTick = tick - 1
		return nil
	}
	if err := pl.CrossTickUpward(tick); err != nil {
		return err
	}
	pl.CurrentTick = tick
	return nil
}

// ExactIn runs the exact-in swap loop of spec.md §4.7 against pl,
// mutating its sqrt_price, current_tick, liquidity and fee-growth state,
// and returns (amount_in_used, amount_out, protocol_fee_a,
// protocol_fee_b): the last two are the total protocol share routed into
// ProtocolFeesOwedA/B by this swap (always zero on the side opposite
// isTokenAInput), letting a caller emit a genuine accrual-time event
// distinct from collect_protocol_fees' withdrawal event.
//
// Note on tick-search direction: spec.md §4.7's inline pseudocode reads
// `lte = !is_token_a_input`, but its own closing "tick direction
// convention" paragraph states the next tick for a token-A (price-
// falling) input is the greatest initialized tick <= current_tick — i.e.
// lte = is_token_a_input, the pseudocode's negation undone. Scenario S3
// confirms this: a token-B input (is_token_a_input = false) crossing
// tick 60 must be searching ascending (lte = false) to land on
// current_tick >= 60 afterward, which only follows from lte =
// is_token_a_input. This implementation follows the prose and the
// worked scenario over the inline pseudocode's evident sign inversion
// (see DESIGN.md).
func ExactIn(pl *pool.Pool, amountIn sdkmath.Int, isTokenAInput bool, sqrtPriceLimit uint128.Uint128, minAmountOut sdkmath.Int, timestamp int64) (amountInUsed, amountOut, protocolFeeA, protocolFeeB sdkmath.Int, err error) {
	if !amountIn.IsPositive() {
		return sdkmath.Int{}, sdkmath.Int{}, sdkmath.Int{}, sdkmath.Int{}, clmmerrors.ErrZeroOutputAmount
	}

	remaining := amountIn
	amountInUsed = sdkmath.ZeroInt()
	amountOut = sdkmath.ZeroInt()
	protocolFeeA = sdkmath.ZeroInt()
	protocolFeeB = sdkmath.ZeroInt()
	lte := isTokenAInput

	for remaining.IsPositive() && pl.SqrtPrice.Cmp(sqrtPriceLimit) != 0 {
		// After an upward cross CurrentTick sits on the crossed tick, and
		// the ascending search includes its starting tick, so it starts
		// one above to avoid finding that tick again.
		searchFrom := pl.CurrentTick
		if !lte {
			searchFrom++
		}
		nextTick, found, err := pl.Ticks.Bitmap.NextInitialized(searchFrom, pl.TickSpacing, lte)
		if err != nil {
			return amountInUsed, amountOut, protocolFeeA, protocolFeeB, err
		}

		var target uint128.Uint128
		var tickPrice uint128.Uint128
		if found {
			tickPrice, err = clmmmath.TickToSqrtPrice(nextTick)
			if err != nil {
				return amountInUsed, amountOut, protocolFeeA, protocolFeeB, err
			}
			target = clampTarget(tickPrice, sqrtPriceLimit, isTokenAInput)
		} else {
			target = sqrtPriceLimit
		}

		if pl.Liquidity.IsZero() {
			if !found {
				return amountInUsed, amountOut, protocolFeeA, protocolFeeB, clmmerrors.ErrInsufficientLiquidity
			}
			pl.SqrtPrice = target
			if target.Cmp(tickPrice) == 0 {
				if err := crossAndAdvance(pl, nextTick, isTokenAInput); err != nil {
					return amountInUsed, amountOut, protocolFeeA, protocolFeeB, err
				}
			}
			continue
		}

		sqrtPriceNext, amountInStep, amountOutStep, feeStep, err := computeStep(pl.SqrtPrice, target, pl.Liquidity, remaining, pl.FeeTier, isTokenAInput)
		if err != nil {
			return amountInUsed, amountOut, protocolFeeA, protocolFeeB, err
		}

		consumed := amountInStep.Add(feeStep)
		remaining = remaining.Sub(consumed)
		amountInUsed = amountInUsed.Add(consumed)
		amountOut = amountOut.Add(amountOutStep)
		protocolShare := pl.ApplySwapStepOutput(feeStep, isTokenAInput)
		if isTokenAInput {
			protocolFeeA = protocolFeeA.Add(protocolShare)
		} else {
			protocolFeeB = protocolFeeB.Add(protocolShare)
		}
		pl.SqrtPrice = sqrtPriceNext

		if found && sqrtPriceNext.Cmp(tickPrice) == 0 {
			if err := crossAndAdvance(pl, nextTick, isTokenAInput); err != nil {
				return amountInUsed, amountOut, protocolFeeA, protocolFeeB, err
			}
		} else {
			tick, err := clmmmath.SqrtPriceToTick(sqrtPriceNext)
			if err != nil {
				return amountInUsed, amountOut, protocolFeeA, protocolFeeB, err
			}
			pl.CurrentTick = tick
		}
	}

	if err := pl.WriteOracle(timestamp); err != nil {
		return amountInUsed, amountOut, protocolFeeA, protocolFeeB, err
	}

	if amountOut.IsZero() {
		return amountInUsed, amountOut, protocolFeeA, protocolFeeB, clmmerrors.ErrZeroOutputAmount
	}
	if amountOut.LT(minAmountOut) {
		return amountInUsed, amountOut, protocolFeeA, protocolFeeB, clmmerrors.ErrSlippageExceeded
	}
	return amountInUsed, amountOut, protocolFeeA, protocolFeeB, nil
}
