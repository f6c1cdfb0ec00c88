// Package oracle implements the pool's TWAP price oracle: a
// fixed-capacity, lazily-growing ring buffer of (tick_cumulative,
// seconds_per_liquidity_cumulative) observations and the binary-search
// read path over it. Grounded on spec.md §4.4; the teacher has no
// analogous component (it only ever reads a host chain's own oracle
// accounts), so this package is built directly from the specification's
// algorithm description rather than adapted from teacher code.
package oracle

import (
	"math/big"
	"sort"

	"github.com/fluxa-go/clmm-core/clmmerrors"
	"lukechampine.com/uint128"
)

// Observation is a single ring-buffer entry.
type Observation struct {
	BlockTimestamp                int64
	TickCumulative                *big.Int
	SecondsPerLiquidityCumulative uint128.Uint128
	Initialized                   bool
}

// MaxCardinality bounds how far increase_oracle_cardinality may grow the
// ring: the index into it is a uint16, so cardinality itself must fit.
const MaxCardinality = 65535

var q128Mask = func() *big.Int {
	v := new(big.Int).Lsh(big.NewInt(1), 128)
	return v.Sub(v, big.NewInt(1))
}()

// Oracle is the observation ring buffer owned by a Pool. Storage is
// sparse (a map keyed by slot index) since cardinality may grow well
// past what has actually been written.
type Oracle struct {
	observations    map[uint16]Observation
	index           uint16
	cardinality     uint16
	cardinalityNext uint16
	// lastTick is the tick value most recently passed to Write (or the
	// initial tick from New); it is not part of the persisted
	// Observation record, only the running state needed to integrate
	// tick_cumulative across the interval ending at the next Write.
	lastTick int32
}

// New initializes the oracle with a single observation at the pool's
// creation timestamp and tick, per spec.md §4.5 Initialize.
func New(timestamp int64, tick int32) *Oracle {
	o := &Oracle{
		observations:    make(map[uint16]Observation),
		index:           0,
		cardinality:     1,
		cardinalityNext: 1,
		lastTick:        tick,
	}
	o.observations[0] = Observation{
		BlockTimestamp:                timestamp,
		TickCumulative:                new(big.Int),
		SecondsPerLiquidityCumulative: uint128.Zero,
		Initialized:                   true,
	}
	return o
}

// Cardinality and CardinalityNext report the ring's current and target
// capacity.
func (o *Oracle) Cardinality() uint16     { return o.cardinality }
func (o *Oracle) CardinalityNext() uint16 { return o.cardinalityNext }

// IncreaseCardinalityNext raises the ring's target capacity; growth to
// that target happens lazily: the next Write that would wrap the index
// back to slot 0 raises cardinality to the target in one step instead
// (spec.md §4.4). target is a uint32
// so a caller-supplied value past MaxCardinality (a uint16's ceiling) can
// actually be represented and rejected, rather than overflowing on the
// way in.
func (o *Oracle) IncreaseCardinalityNext(target uint32) error {
	if target > MaxCardinality {
		return clmmerrors.ErrOracleCardinalityTooLarge
	}
	if uint16(target) > o.cardinalityNext {
		o.cardinalityNext = uint16(target)
	}
	return nil
}

// averageTick floor-divides a+b by 2, rounding toward negative infinity
// so the result is stable regardless of the sign of either tick.
func averageTick(a, b int32) int32 {
	sum := int64(a) + int64(b)
	q := sum / 2
	if sum%2 != 0 && sum < 0 {
		q--
	}
	return int32(q)
}

func truncateToUint128(v *big.Int) uint128.Uint128 {
	truncated := new(big.Int).And(v, q128Mask)
	return uint128.FromBig(truncated)
}

// Write records a new observation, invoked lazily at most once per
// unique block timestamp before any Pool operation reads the oracle.
func (o *Oracle) Write(timestamp int64, tick int32, liquidity uint128.Uint128) error {
	last := o.observations[o.index]

	if timestamp == last.BlockTimestamp {
		return nil
	}
	if timestamp < last.BlockTimestamp {
		return clmmerrors.ErrOracleInvalidTimestamp
	}

	delta := timestamp - last.BlockTimestamp
	if delta > (1<<31 - 1) {
		return clmmerrors.ErrMathOverflow
	}

	// The interval [last.BlockTimestamp, timestamp) is integrated using
	// the average of the tick held entering it and the tick now being
	// recorded, not a single endpoint value: a pool's tick can itself
	// move across that whole span by the time the next write lands (the
	// write cadence is lazy, at most once per unique timestamp, not
	// once per tick change), so a single-endpoint step sum would bias
	// the cumulative average toward whichever side happens to call
	// Write. Averaging the two endpoints keeps tick_cumulative additive
	// and reversible regardless of write cadence.
	avgTick := averageTick(o.lastTick, tick)
	tickCumulative := new(big.Int).Add(last.TickCumulative, big.NewInt(int64(avgTick)*delta))
	o.lastTick = tick

	denom := liquidity
	if denom.IsZero() {
		denom = uint128.From64(1)
	}
	addend := new(big.Int).Lsh(big.NewInt(delta), 128)
	addend.Quo(addend, denom.Big())
	splAddend := truncateToUint128(addend)
	secondsPerLiquidityCumulative := last.SecondsPerLiquidityCumulative.AddWrap(splAddend)

	nextIndex := (o.index + 1) % o.cardinality
	if o.cardinality < o.cardinalityNext && nextIndex == 0 {
		o.cardinality = o.cardinalityNext
		nextIndex = (o.index + 1) % o.cardinality
	}

	o.observations[nextIndex] = Observation{
		BlockTimestamp:                timestamp,
		TickCumulative:                tickCumulative,
		SecondsPerLiquidityCumulative: secondsPerLiquidityCumulative,
		Initialized:                   true,
	}
	o.index = nextIndex
	return nil
}

func (o *Oracle) sortedObservations() []Observation {
	out := make([]Observation, 0, len(o.observations))
	for _, obs := range o.observations {
		if obs.Initialized {
			out = append(out, obs)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BlockTimestamp < out[j].BlockTimestamp })
	return out
}

func interpolateBig(loTime, hiTime, targetTime int64, loVal, hiVal *big.Int) *big.Int {
	totalDelta := hiTime - loTime
	if totalDelta == 0 {
		return new(big.Int).Set(loVal)
	}
	diff := new(big.Int).Sub(hiVal, loVal)
	diff.Mul(diff, big.NewInt(targetTime-loTime))
	diff.Quo(diff, big.NewInt(totalDelta))
	return new(big.Int).Add(loVal, diff)
}

func interpolateUint128(loTime, hiTime, targetTime int64, loVal, hiVal uint128.Uint128) uint128.Uint128 {
	result := interpolateBig(loTime, hiTime, targetTime, loVal.Big(), hiVal.Big())
	return truncateToUint128(result)
}

// Observe locates (or interpolates/extrapolates) the observation at
// `now - secondsAgo`, per spec.md §4.4. currentTick and currentLiquidity
// are the pool's live values, used to extrapolate past the most recent
// recorded write when the request lands after it.
func (o *Oracle) Observe(now, secondsAgo int64, currentTick int32, currentLiquidity uint128.Uint128) (tickCumulative *big.Int, secondsPerLiquidityCumulative uint128.Uint128, err error) {
	if secondsAgo < 0 {
		return nil, uint128.Zero, clmmerrors.ErrOracleInvalidTimestamp
	}
	target := now - secondsAgo

	obs := o.sortedObservations()
	if len(obs) == 0 {
		return nil, uint128.Zero, clmmerrors.ErrOracleNotInitialized
	}

	oldest := obs[0]
	if target < oldest.BlockTimestamp {
		return nil, uint128.Zero, clmmerrors.ErrOracleInsufficientData
	}

	newest := obs[len(obs)-1]
	if target >= newest.BlockTimestamp {
		dt := target - newest.BlockTimestamp
		avgTick := averageTick(o.lastTick, currentTick)
		tc := new(big.Int).Add(newest.TickCumulative, big.NewInt(int64(avgTick)*dt))

		denom := currentLiquidity
		if denom.IsZero() {
			denom = uint128.From64(1)
		}
		addend := new(big.Int).Lsh(big.NewInt(dt), 128)
		addend.Quo(addend, denom.Big())
		spl := newest.SecondsPerLiquidityCumulative.AddWrap(truncateToUint128(addend))
		return tc, spl, nil
	}

	lo, hi := 0, len(obs)-1
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		if obs[mid].BlockTimestamp <= target {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	before := obs[lo]
	if before.BlockTimestamp == target || lo == len(obs)-1 {
		return new(big.Int).Set(before.TickCumulative), before.SecondsPerLiquidityCumulative, nil
	}
	after := obs[lo+1]

	tc := interpolateBig(before.BlockTimestamp, after.BlockTimestamp, target, before.TickCumulative, after.TickCumulative)
	spl := interpolateUint128(before.BlockTimestamp, after.BlockTimestamp, target, before.SecondsPerLiquidityCumulative, after.SecondsPerLiquidityCumulative)
	return tc, spl, nil
}

// TWAP returns the average tick over the window [now-window, now], per
// spec.md §4.4: avg_tick = (tc_end - tc_start) / window.
func (o *Oracle) TWAP(now, window int64, currentTick int32, currentLiquidity uint128.Uint128) (int32, error) {
	if window <= 0 {
		return 0, clmmerrors.ErrOracleInsufficientData
	}
	tcEnd, _, err := o.Observe(now, 0, currentTick, currentLiquidity)
	if err != nil {
		return 0, err
	}
	tcStart, _, err := o.Observe(now, window, currentTick, currentLiquidity)
	if err != nil {
		return 0, err
	}
	diff := new(big.Int).Sub(tcEnd, tcStart)
	avg := new(big.Int).Quo(diff, big.NewInt(window))
	return int32(avg.Int64()), nil
}
