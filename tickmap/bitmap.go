// Package tickmap implements the sparse tick index of a pool: a
// TickBitmap for locating the next initialized tick in a direction, and
// per-tick state (liquidity net/gross, fee-growth-outside) keyed by raw
// tick. Grounded on the teacher's WhirlpoolPool/TickArray role of
// indexing per-tick state, reshaped from the teacher's dense on-chain
// array into the sparse word map spec.md §4.2 calls for.
package tickmap

import (
	"sort"

	"github.com/fluxa-go/clmm-core/clmmerrors"
)

const wordBits = 64

// Bitmap is a sparse, word-indexed bitmap over compressed tick indices
// (tick / spacing). Only words with at least one set bit are stored.
type Bitmap struct {
	words map[int16]uint64
}

// NewBitmap returns an empty bitmap.
func NewBitmap() *Bitmap {
	return &Bitmap{words: make(map[int16]uint64)}
}

// floorDivMod performs Euclidean division of c by 64, returning a
// quotient and a remainder always in [0, 64) even for negative c.
func floorDivMod(c int32) (wordIdx int32, bitPos uint) {
	wordIdx = c >> 6 // arithmetic shift: floor division by 64 for two's complement ints
	bitPos = uint(c & (wordBits - 1))
	return
}

// floorDivSpacing floor-divides tick by spacing (spacing > 0), rounding
// toward negative infinity rather than toward zero.
func floorDivSpacing(tick, spacing int32) int32 {
	q := tick / spacing
	if tick%spacing != 0 && (tick < 0) != (spacing < 0) {
		q--
	}
	return q
}

// compress is used by Flip/IsInitialized, which operate on ticks that
// are themselves initializable positions and therefore must already be
// aligned to spacing.
func compress(tick, spacing int32) (int32, error) {
	if spacing <= 0 {
		return 0, clmmerrors.ErrInvalidTickSpacing
	}
	if tick%spacing != 0 {
		return 0, clmmerrors.ErrInvalidTickSpacing
	}
	return tick / spacing, nil
}

// compressQuery is used by NextInitialized, which is queried with an
// arbitrary current_tick that need not itself be spacing-aligned.
func compressQuery(tick, spacing int32) (int32, error) {
	if spacing <= 0 {
		return 0, clmmerrors.ErrInvalidTickSpacing
	}
	return floorDivSpacing(tick, spacing), nil
}

func wordIndexAsInt16(wordIdx int32) (int16, error) {
	if wordIdx < -32768 || wordIdx > 32767 {
		return 0, clmmerrors.ErrTickWordIndexOutOfBounds
	}
	return int16(wordIdx), nil
}

// Flip toggles the initialized bit for tick to newState. tick must
// already be a multiple of spacing.
func (b *Bitmap) Flip(tick, spacing int32, newState bool) error {
	c, err := compress(tick, spacing)
	if err != nil {
		return err
	}
	wordIdxRaw, bitPos := floorDivMod(c)
	wordIdx, err := wordIndexAsInt16(wordIdxRaw)
	if err != nil {
		return err
	}

	mask := uint64(1) << bitPos
	word := b.words[wordIdx]
	if newState {
		word |= mask
	} else {
		word &^= mask
	}
	if word == 0 {
		delete(b.words, wordIdx)
	} else {
		b.words[wordIdx] = word
	}
	return nil
}

// IsInitialized reports whether tick's bit is set.
func (b *Bitmap) IsInitialized(tick, spacing int32) (bool, error) {
	c, err := compress(tick, spacing)
	if err != nil {
		return false, err
	}
	wordIdxRaw, bitPos := floorDivMod(c)
	wordIdx, err := wordIndexAsInt16(wordIdxRaw)
	if err != nil {
		return false, err
	}
	word, ok := b.words[wordIdx]
	if !ok {
		return false, nil
	}
	return word&(uint64(1)<<bitPos) != 0, nil
}

func (b *Bitmap) sortedWordIndices() []int16 {
	keys := make([]int16, 0, len(b.words))
	for k := range b.words {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// highestSetBit returns the position of the highest set bit at or below
// bitPos, masking off everything above it first.
func highestSetBit(word uint64, bitPos uint) (uint, bool) {
	if bitPos < 63 {
		word &= (uint64(1) << (bitPos + 1)) - 1
	}
	if word == 0 {
		return 0, false
	}
	pos := uint(63)
	for ; pos > 0; pos-- {
		if word&(uint64(1)<<pos) != 0 {
			return pos, true
		}
	}
	return 0, word&1 != 0
}

// lowestSetBit returns the position of the lowest set bit at or above
// bitPos, masking off everything below it first.
func lowestSetBit(word uint64, bitPos uint) (uint, bool) {
	word &^= (uint64(1) << bitPos) - 1
	if word == 0 {
		return 0, false
	}
	for pos := uint(0); pos < wordBits; pos++ {
		if word&(uint64(1)<<pos) != 0 {
			return pos, true
		}
	}
	return 0, false
}

// NextInitialized returns the next initialized raw tick relative to
// tick: the greatest initialized tick <= tick if lte, otherwise the
// least initialized tick >= tick. found is false if no such tick exists
// on the requested side.
func (b *Bitmap) NextInitialized(tick, spacing int32, lte bool) (result int32, found bool, err error) {
	c, err := compressQuery(tick, spacing)
	if err != nil {
		return 0, false, err
	}
	wordIdxRaw, bitPos := floorDivMod(c)
	wordIdx, err := wordIndexAsInt16(wordIdxRaw)
	if err != nil {
		return 0, false, err
	}

	if lte {
		if word, ok := b.words[wordIdx]; ok {
			if pos, hit := highestSetBit(word, bitPos); hit {
				return (int32(wordIdx)*wordBits + int32(pos)) * spacing, true, nil
			}
		}
		keys := b.sortedWordIndices()
		for i := len(keys) - 1; i >= 0; i-- {
			if keys[i] >= wordIdx {
				continue
			}
			word := b.words[keys[i]]
			pos, hit := highestSetBit(word, wordBits-1)
			if hit {
				return (int32(keys[i])*wordBits + int32(pos)) * spacing, true, nil
			}
		}
		return 0, false, nil
	}

	// The compressed bucket reconstructs to tick' = c*spacing <= tick
	// (floor division). For the >= search, that reconstructed tick is
	// only itself a valid candidate when it equals tick exactly;
	// otherwise the whole bucket (and its bitPos bit) sits strictly
	// below tick and must be excluded, scanning strictly past it.
	searchFromBit := bitPos
	if c*spacing != tick {
		searchFromBit = bitPos + 1
	}

	if searchFromBit < wordBits {
		if word, ok := b.words[wordIdx]; ok {
			if pos, hit := lowestSetBit(word, searchFromBit); hit {
				return (int32(wordIdx)*wordBits + int32(pos)) * spacing, true, nil
			}
		}
	}
	keys := b.sortedWordIndices()
	for _, k := range keys {
		if k <= wordIdx {
			continue
		}
		word := b.words[k]
		pos, hit := lowestSetBit(word, 0)
		if hit {
			return (int32(k)*wordBits + int32(pos)) * spacing, true, nil
		}
	}
	return 0, false, nil
}
