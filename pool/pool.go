// Package pool implements PoolState: the global per-pool invariants,
// fee-growth accumulators, tick crossing and price advancement that
// PositionEngine and SwapEngine both operate on. Grounded on the
// teacher's WhirlpoolPool (pkg/pool/whirlpool/whirlpoolPool.go) for
// field shape and binary layout, and on the original Fluxa Rust core's
// Pool/PoolManager (programs/amm_core/src/pool_state.rs) for the
// tick-crossing and fee-routing operations themselves.
package pool

import (
	"math/big"

	bin "github.com/gagliardetto/binary"
	sdkmath "cosmossdk.io/math"
	"github.com/fluxa-go/clmm-core/clmmerrors"
	clmmmath "github.com/fluxa-go/clmm-core/math"
	"github.com/fluxa-go/clmm-core/oracle"
	"github.com/fluxa-go/clmm-core/tickmap"
	"lukechampine.com/uint128"
)

// ProtocolFeeDenominator is the scale protocol_fee_rate is expressed
// against: a rate of 2000 means 2000/10000 = 20% of swap fees routed to
// the protocol. Matches the original Rust core's PROTOCOL_FEE_DENOMINATOR
// (programs/amm_core/src/pool_state.rs).
const ProtocolFeeDenominator = 10_000

var q64Big = new(big.Int).Lsh(big.NewInt(1), 64)

// Pool is the single mutable root of a concentrated-liquidity market:
// current price/tick, active liquidity, fee-growth globals, and the
// tick arena + oracle it owns. Positions reference a Pool by identity
// but never mutate it directly.
type Pool struct {
	SqrtPrice          uint128.Uint128
	CurrentTick        int32
	Liquidity          uint128.Uint128
	FeeTier            uint32
	TickSpacing        int32
	FeeGrowthGlobalA   uint128.Uint128
	FeeGrowthGlobalB   uint128.Uint128
	ProtocolFeeRateBps uint16
	ProtocolFeesOwedA  sdkmath.Int
	ProtocolFeesOwedB  sdkmath.Int
	PositionCount      uint64

	Oracle *oracle.Oracle
	Ticks  *tickmap.TickMap
}

// Initialize constructs a new Pool at the given initial price and fee
// tier, per spec.md §4.5. The oracle's first observation is written at
// the supplied timestamp.
func Initialize(initialSqrtPrice uint128.Uint128, feeTier uint32, protocolFeeRateBps uint16, timestamp int64) (*Pool, error) {
	spacing, err := clmmmath.TickSpacingForFeeTier(feeTier)
	if err != nil {
		return nil, err
	}
	if initialSqrtPrice.Cmp(clmmmath.MinSqrtPrice) < 0 || initialSqrtPrice.Cmp(clmmmath.MaxSqrtPrice) > 0 {
		return nil, clmmerrors.ErrInvalidInitialPrice
	}
	if protocolFeeRateBps > ProtocolFeeDenominator {
		return nil, clmmerrors.ErrInvalidInitialPrice
	}

	currentTick, err := clmmmath.SqrtPriceToTick(initialSqrtPrice)
	if err != nil {
		return nil, err
	}

	return &Pool{
		SqrtPrice:          initialSqrtPrice,
		CurrentTick:        currentTick,
		Liquidity:          uint128.Zero,
		FeeTier:            feeTier,
		TickSpacing:        spacing,
		FeeGrowthGlobalA:   uint128.Zero,
		FeeGrowthGlobalB:   uint128.Zero,
		ProtocolFeeRateBps: protocolFeeRateBps,
		ProtocolFeesOwedA:  sdkmath.ZeroInt(),
		ProtocolFeesOwedB:  sdkmath.ZeroInt(),
		PositionCount:      0,
		Oracle:             oracle.New(timestamp, currentTick),
		Ticks:              tickmap.NewTickMap(),
	}, nil
}

// addLiquidityDelta folds a signed delta into an unsigned Q64.64
// liquidity value, reporting MathOverflow on underflow past zero or
// past the 128-bit ceiling.
func addLiquidityDelta(liquidity uint128.Uint128, delta *big.Int) (uint128.Uint128, error) {
	next := new(big.Int).Add(liquidity.Big(), delta)
	if next.Sign() < 0 || next.BitLen() > 128 {
		return uint128.Zero, clmmerrors.ErrMathOverflow
	}
	return uint128.FromBig(next), nil
}

// CrossTickUpward applies tick's liquidity_net when price advances
// across it from below, per spec.md §4.5. It does not move CurrentTick;
// the caller (SwapEngine) owns that per its own traversal convention.
func (p *Pool) CrossTickUpward(tick int32) error {
	delta := p.Ticks.Cross(tick, p.FeeGrowthGlobalA, p.FeeGrowthGlobalB)
	next, err := addLiquidityDelta(p.Liquidity, delta)
	if err != nil {
		return err
	}
	p.Liquidity = next
	return nil
}

// CrossTickDownward applies the negation of tick's liquidity_net when
// price advances across it from above, per spec.md §4.5.
func (p *Pool) CrossTickDownward(tick int32) error {
	delta := p.Ticks.Cross(tick, p.FeeGrowthGlobalA, p.FeeGrowthGlobalB)
	next, err := addLiquidityDelta(p.Liquidity, new(big.Int).Neg(delta))
	if err != nil {
		return err
	}
	p.Liquidity = next
	return nil
}

// feeGrowthDelta computes floor(amount * 2^64 / liquidity) as a Q64.64
// uint128, the per-L share of a fee amount. liquidity must be nonzero.
func feeGrowthDelta(amount sdkmath.Int, liquidity uint128.Uint128) uint128.Uint128 {
	numerator := new(big.Int).Mul(amount.BigInt(), q64Big)
	numerator.Quo(numerator, liquidity.Big())
	if numerator.BitLen() > 128 {
		return uint128.Max
	}
	return uint128.FromBig(numerator)
}

// ApplySwapStepOutput routes one swap step's fee to the LPs (via the
// fee-growth-global accumulator) and the protocol, per spec.md §4.5 and
// the original Rust core's record_swap_fees (pool_state.rs): the
// protocol's cut is split OUT of fee_amount before the remainder is
// credited to fee growth, so the two routes are conservative rather
// than both drawing on the full fee independently (see DESIGN.md).
// When liquidity is zero the entire fee, including any protocol share,
// is dropped per spec.md §9's zero-liquidity note. Returns the protocol
// share actually routed.
func (p *Pool) ApplySwapStepOutput(feeAmount sdkmath.Int, isTokenAInput bool) sdkmath.Int {
	if !feeAmount.IsPositive() || p.Liquidity.IsZero() {
		return sdkmath.ZeroInt()
	}

	protocolFee := sdkmath.ZeroInt()
	lpFee := feeAmount
	if p.ProtocolFeeRateBps > 0 {
		protocolFee = feeAmount.MulRaw(int64(p.ProtocolFeeRateBps)).QuoRaw(ProtocolFeeDenominator)
		lpFee = feeAmount.Sub(protocolFee)
	}

	delta := feeGrowthDelta(lpFee, p.Liquidity)
	if isTokenAInput {
		p.FeeGrowthGlobalA = p.FeeGrowthGlobalA.AddWrap(delta)
		p.ProtocolFeesOwedA = p.ProtocolFeesOwedA.Add(protocolFee)
	} else {
		p.FeeGrowthGlobalB = p.FeeGrowthGlobalB.AddWrap(delta)
		p.ProtocolFeesOwedB = p.ProtocolFeesOwedB.Add(protocolFee)
	}
	return protocolFee
}

// WriteOracle records an observation at the pool's current tick and
// liquidity, the lazy-write hook spec.md §4.4 requires before any Pool
// operation that reads the oracle.
func (p *Pool) WriteOracle(timestamp int64) error {
	return p.Oracle.Write(timestamp, p.CurrentTick, p.Liquidity)
}

// CollectProtocolFees zeroes and returns the accrued protocol fee
// totals, per the collect_protocol_fees external interface (spec.md §6).
func (p *Pool) CollectProtocolFees() (sdkmath.Int, sdkmath.Int, error) {
	if !p.ProtocolFeesOwedA.IsPositive() && !p.ProtocolFeesOwedB.IsPositive() {
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), clmmerrors.ErrNoFeesToCollect
	}
	a, b := p.ProtocolFeesOwedA, p.ProtocolFeesOwedB
	p.ProtocolFeesOwedA = sdkmath.ZeroInt()
	p.ProtocolFeesOwedB = sdkmath.ZeroInt()
	return a, b, nil
}

// record is the fixed-width scalar snapshot (de)serialized by
// MarshalBinary/UnmarshalBinary. Ticks and Oracle are not part of the
// wire record; a host integration persists those sub-objects
// separately, the same division WhirlpoolPool.Decode draws between the
// pool account itself and its TickArray accounts.
type record struct {
	SqrtPrice          uint128.Uint128
	CurrentTick        int32
	Liquidity          uint128.Uint128
	FeeTier            uint32
	TickSpacing        int32
	FeeGrowthGlobalA   uint128.Uint128
	FeeGrowthGlobalB   uint128.Uint128
	ProtocolFeeRateBps uint16
	ProtocolFeesOwedA  uint64
	ProtocolFeesOwedB  uint64
	PositionCount      uint64
}

func saturateToUint64(v sdkmath.Int) uint64 {
	if !v.IsPositive() {
		return 0
	}
	maxU64 := new(big.Int).SetUint64(^uint64(0))
	if v.BigInt().Cmp(maxU64) > 0 {
		return ^uint64(0)
	}
	return v.BigInt().Uint64()
}

// MarshalBinary encodes the pool's scalar state in the fixed-offset
// style of the teacher's WhirlpoolPool.Decode, for host-integration
// snapshotting. Token amounts wider than 64 bits saturate on encode,
// matching the teacher's own u64 account layout.
func (p *Pool) MarshalBinary() ([]byte, error) {
	rec := record{
		SqrtPrice:          p.SqrtPrice,
		CurrentTick:        p.CurrentTick,
		Liquidity:          p.Liquidity,
		FeeTier:            p.FeeTier,
		TickSpacing:        p.TickSpacing,
		FeeGrowthGlobalA:   p.FeeGrowthGlobalA,
		FeeGrowthGlobalB:   p.FeeGrowthGlobalB,
		ProtocolFeeRateBps: p.ProtocolFeeRateBps,
		ProtocolFeesOwedA:  saturateToUint64(p.ProtocolFeesOwedA),
		ProtocolFeesOwedB:  saturateToUint64(p.ProtocolFeesOwedB),
		PositionCount:      p.PositionCount,
	}

	enc := bin.NewBinEncoder(nil)
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return enc.GetWrittenBytes(), nil
}

// UnmarshalBinary decodes a record written by MarshalBinary into p.
// Ticks and Oracle are left untouched; the caller restores those
// separately, then wires Oracle/Ticks back in before use.
func (p *Pool) UnmarshalBinary(data []byte) error {
	var rec record
	dec := bin.NewBinDecoder(data)
	if err := dec.Decode(&rec); err != nil {
		return err
	}

	p.SqrtPrice = rec.SqrtPrice
	p.CurrentTick = rec.CurrentTick
	p.Liquidity = rec.Liquidity
	p.FeeTier = rec.FeeTier
	p.TickSpacing = rec.TickSpacing
	p.FeeGrowthGlobalA = rec.FeeGrowthGlobalA
	p.FeeGrowthGlobalB = rec.FeeGrowthGlobalB
	p.ProtocolFeeRateBps = rec.ProtocolFeeRateBps
	p.ProtocolFeesOwedA = sdkmath.NewIntFromUint64(rec.ProtocolFeesOwedA)
	p.ProtocolFeesOwedB = sdkmath.NewIntFromUint64(rec.ProtocolFeesOwedB)
	p.PositionCount = rec.PositionCount
	return nil
}
