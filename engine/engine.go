// Package engine wires PoolState, PositionEngine and SwapEngine behind
// the single library surface spec.md §6 names: the External Interfaces
// table's ten operations. Grounded on the teacher's SimpleRouter
// (pkg/router/router.go), which plays the analogous role of a single
// façade type holding a registry of pools behind a mutex-free,
// single-threaded API (spec.md §5: each operation commits atomically,
// no internal concurrency).
package engine

import (
	"crypto/sha256"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/fluxa-go/clmm-core/clmmerrors"
	"github.com/fluxa-go/clmm-core/internal/eventlog"
	"github.com/fluxa-go/clmm-core/pool"
	"github.com/fluxa-go/clmm-core/position"
	"github.com/fluxa-go/clmm-core/swap"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// Engine is the single mutable registry of pools this process knows
// about, addressed by the PoolId create_pool hands back. It carries no
// position registry: a Position's own PoolId field is its handle back to
// the owning pool, so open_position's returned *position.Position is the
// only reference a caller needs to keep.
type Engine struct {
	pools      map[solana.PublicKey]*pool.Pool
	authority  map[solana.PublicKey]solana.PublicKey
	logger     eventlog.Logger
}

// New returns an Engine with no pools registered, logging events via the
// given Logger (eventlog.StdLogger{} for production use, eventlog.Nop{}
// in tests).
func New(logger eventlog.Logger) *Engine {
	return &Engine{
		pools:     make(map[solana.PublicKey]*pool.Pool),
		authority: make(map[solana.PublicKey]solana.PublicKey),
		logger:    logger,
	}
}

// derivePoolId hashes the ordered token pair and fee tier into a
// deterministic 32-byte identifier, the same role Solana's program-
// derived-address scheme plays for the teacher's pool accounts, without
// depending on an actual on-chain derivation.
func derivePoolId(tokenA, tokenB solana.PublicKey, feeTier uint32) solana.PublicKey {
	h := sha256.New()
	h.Write(tokenA[:])
	h.Write(tokenB[:])
	fmt.Fprintf(h, "%d", feeTier)
	var id solana.PublicKey
	copy(id[:], h.Sum(nil))
	return id
}

// CreatePool implements the create_pool external interface.
func (e *Engine) CreatePool(tokenA, tokenB solana.PublicKey, feeTier uint32, initialSqrtPrice uint128.Uint128, protocolFeeRateBps uint16, authority solana.PublicKey, timestamp int64) (solana.PublicKey, error) {
	pl, err := pool.Initialize(initialSqrtPrice, feeTier, protocolFeeRateBps, timestamp)
	if err != nil {
		return solana.PublicKey{}, err
	}
	poolId := derivePoolId(tokenA, tokenB, feeTier)
	if _, exists := e.pools[poolId]; exists {
		return solana.PublicKey{}, clmmerrors.ErrInvalidPool
	}
	e.pools[poolId] = pl
	e.authority[poolId] = authority
	return poolId, nil
}

func (e *Engine) lookupPool(poolId solana.PublicKey) (*pool.Pool, error) {
	pl, ok := e.pools[poolId]
	if !ok {
		return nil, clmmerrors.ErrInvalidPool
	}
	return pl, nil
}

// OpenPosition implements open_position.
func (e *Engine) OpenPosition(poolId solana.PublicKey, owner solana.PublicKey, tickLower, tickUpper int32, liquidity uint128.Uint128) (*position.Position, sdkmath.Int, sdkmath.Int, error) {
	pl, err := e.lookupPool(poolId)
	if err != nil {
		return nil, sdkmath.Int{}, sdkmath.Int{}, err
	}
	return position.Open(pl, owner, poolId, tickLower, tickUpper, liquidity)
}

// IncreaseLiquidity implements increase_liquidity.
func (e *Engine) IncreaseLiquidity(pos *position.Position, delta uint128.Uint128) (sdkmath.Int, sdkmath.Int, error) {
	pl, err := e.lookupPool(pos.PoolId)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	return position.Modify(pl, pos, delta, true)
}

// DecreaseLiquidity implements decrease_liquidity.
func (e *Engine) DecreaseLiquidity(pos *position.Position, delta uint128.Uint128) (sdkmath.Int, sdkmath.Int, error) {
	pl, err := e.lookupPool(pos.PoolId)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	return position.Modify(pl, pos, delta, false)
}

// CollectFees implements collect_fees.
func (e *Engine) CollectFees(pos *position.Position) (sdkmath.Int, sdkmath.Int, error) {
	pl, err := e.lookupPool(pos.PoolId)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	a, b := position.Collect(pl, pos)
	return a, b, nil
}

// ClosePosition implements close_position.
func (e *Engine) ClosePosition(pos *position.Position) error {
	return position.Close(pos)
}

// SwapExactIn implements swap_exact_in, emitting a protocol-fee-accrual
// event (when this swap routed a nonzero protocol share) followed by a
// swap-completion event, per spec.md §6's logging requirement and
// spec.md:248's distinct accrual/completion event classes.
func (e *Engine) SwapExactIn(poolId solana.PublicKey, amountIn sdkmath.Int, isTokenAInput bool, sqrtPriceLimit uint128.Uint128, minAmountOut sdkmath.Int, timestamp int64) (sdkmath.Int, sdkmath.Int, error) {
	pl, err := e.lookupPool(poolId)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	amountInUsed, amountOut, protocolFeeA, protocolFeeB, err := swap.ExactIn(pl, amountIn, isTokenAInput, sqrtPriceLimit, minAmountOut, timestamp)
	if err != nil {
		return amountInUsed, amountOut, err
	}
	if protocolFeeA.IsPositive() || protocolFeeB.IsPositive() {
		e.logger.ProtocolFeeAccrued(poolId, protocolFeeA, protocolFeeB, timestamp)
	}
	e.logger.SwapCompleted(poolId, amountInUsed, amountOut, isTokenAInput, pl.SqrtPrice, pl.Liquidity, pl.CurrentTick, timestamp)
	return amountInUsed, amountOut, nil
}

// CollectProtocolFees implements collect_protocol_fees, checking caller
// against the pool's registered authority.
func (e *Engine) CollectProtocolFees(poolId, caller solana.PublicKey, timestamp int64) (sdkmath.Int, sdkmath.Int, error) {
	pl, err := e.lookupPool(poolId)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	if e.authority[poolId] != caller {
		return sdkmath.Int{}, sdkmath.Int{}, clmmerrors.ErrInvalidAuthority
	}
	a, b, err := pl.CollectProtocolFees()
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	e.logger.ProtocolFeesCollected(poolId, a, b, timestamp)
	return a, b, nil
}

// IncreaseOracleCardinality implements increase_oracle_cardinality.
func (e *Engine) IncreaseOracleCardinality(poolId solana.PublicKey, target uint32) error {
	pl, err := e.lookupPool(poolId)
	if err != nil {
		return err
	}
	return pl.Oracle.IncreaseCardinalityNext(target)
}

// ObserveTWAP implements observe_twap.
func (e *Engine) ObserveTWAP(poolId solana.PublicKey, secondsAgo, currentTimestamp int64) (int32, error) {
	pl, err := e.lookupPool(poolId)
	if err != nil {
		return 0, err
	}
	return pl.Oracle.TWAP(currentTimestamp, secondsAgo, pl.CurrentTick, pl.Liquidity)
}
