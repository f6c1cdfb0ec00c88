// Package eventlog emits the three event classes spec.md §6 documents:
// protocol-fee accrual (fired as a swap routes a protocol share into
// fee_growth accounting), protocol-fee collection (fired as an
// authority withdraws that accrued balance), and swap completion.
// Grounded on the teacher's plain log.Printf style (cmd/quote-service
// uses log.Printf directly, no structured-logging library), kept
// behind a small Logger interface so tests can swap in a no-op sink.
package eventlog

import (
	"log"

	sdkmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// Logger receives the core's event classes. Implementations must not
// block or panic; the swap/fee paths that emit these events have already
// committed their state mutations by the time they call out here.
type Logger interface {
	// ProtocolFeeAccrued fires once per swap that routed a nonzero
	// protocol share into ProtocolFeesOwedA/B, at the moment of accrual
	// (spec.md:248) -- distinct from, and earlier than, collection.
	ProtocolFeeAccrued(poolId solana.PublicKey, amountA, amountB sdkmath.Int, timestamp int64)
	// ProtocolFeesCollected fires when collect_protocol_fees withdraws a
	// previously accrued balance.
	ProtocolFeesCollected(poolId solana.PublicKey, amountA, amountB sdkmath.Int, timestamp int64)
	SwapCompleted(poolId solana.PublicKey, amountIn, amountOut sdkmath.Int, isTokenAInput bool, newSqrtPrice uint128.Uint128, newLiquidity uint128.Uint128, newTick int32, timestamp int64)
}

// StdLogger writes every event class via the standard library logger,
// the same way the teacher's services report progress.
type StdLogger struct{}

func (StdLogger) ProtocolFeeAccrued(poolId solana.PublicKey, amountA, amountB sdkmath.Int, timestamp int64) {
	log.Printf("clmm: protocol fee accrued pool=%s amount_a=%s amount_b=%s ts=%d", poolId, amountA, amountB, timestamp)
}

func (StdLogger) ProtocolFeesCollected(poolId solana.PublicKey, amountA, amountB sdkmath.Int, timestamp int64) {
	log.Printf("clmm: protocol fees collected pool=%s amount_a=%s amount_b=%s ts=%d", poolId, amountA, amountB, timestamp)
}

func (StdLogger) SwapCompleted(poolId solana.PublicKey, amountIn, amountOut sdkmath.Int, isTokenAInput bool, newSqrtPrice, newLiquidity uint128.Uint128, newTick int32, timestamp int64) {
	signedIn := amountIn
	if isTokenAInput {
		log.Printf("clmm: swap pool=%s token_a_in=%s out=%s sqrt_price=%s liquidity=%s tick=%d ts=%d",
			poolId, signedIn, amountOut, newSqrtPrice, newLiquidity, newTick, timestamp)
	} else {
		log.Printf("clmm: swap pool=%s token_b_in=%s out=%s sqrt_price=%s liquidity=%s tick=%d ts=%d",
			poolId, signedIn, amountOut, newSqrtPrice, newLiquidity, newTick, timestamp)
	}
}

// Nop discards every event; useful in tests that don't want log noise.
type Nop struct{}

func (Nop) ProtocolFeeAccrued(solana.PublicKey, sdkmath.Int, sdkmath.Int, int64)    {}
func (Nop) ProtocolFeesCollected(solana.PublicKey, sdkmath.Int, sdkmath.Int, int64) {}
func (Nop) SwapCompleted(solana.PublicKey, sdkmath.Int, sdkmath.Int, bool, uint128.Uint128, uint128.Uint128, int32, int64) {
}
