package engine

import (
	"context"

	sdkmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"golang.org/x/time/rate"
	"lukechampine.com/uint128"
)

// RateLimitedEngine wraps an Engine with a token-bucket limiter over
// swap_exact_in, the one operation a host integration is likely to field
// directly from untrusted request volume. Grounded on the teacher's
// rate-limited RPC client construction (pkg/sol.NewClient takes a
// requests-per-second budget); this core has no network calls of its own,
// so the limiter here throttles swap submissions instead of RPC calls.
type RateLimitedEngine struct {
	*Engine
	limiter *rate.Limiter
}

// NewRateLimitedEngine wraps e with a limiter allowing burst immediate
// calls and refilling at ratePerSecond thereafter.
func NewRateLimitedEngine(e *Engine, ratePerSecond float64, burst int) *RateLimitedEngine {
	return &RateLimitedEngine{
		Engine:  e,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

// SwapExactIn blocks until the limiter admits the call, then delegates to
// the wrapped Engine. ctx cancellation surfaces as ctx.Err().
func (r *RateLimitedEngine) SwapExactIn(ctx context.Context, poolId solana.PublicKey, amountIn sdkmath.Int, isTokenAInput bool, sqrtPriceLimit uint128.Uint128, minAmountOut sdkmath.Int, timestamp int64) (sdkmath.Int, sdkmath.Int, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	return r.Engine.SwapExactIn(poolId, amountIn, isTokenAInput, sqrtPriceLimit, minAmountOut, timestamp)
}
