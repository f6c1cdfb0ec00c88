package math_test

import (
	"testing"

	clmmmath "github.com/fluxa-go/clmm-core/math"
	"lukechampine.com/uint128"
)

func TestTickToSqrtPriceBounds(t *testing.T) {
	lo, err := clmmmath.TickToSqrtPrice(clmmmath.MinTick)
	if err != nil {
		t.Fatalf("MinTick: %v", err)
	}
	if lo.Cmp(clmmmath.MinSqrtPrice) != 0 {
		t.Errorf("TickToSqrtPrice(MinTick) = %s, want MinSqrtPrice %s", lo, clmmmath.MinSqrtPrice)
	}

	hi, err := clmmmath.TickToSqrtPrice(clmmmath.MaxTick)
	if err != nil {
		t.Fatalf("MaxTick: %v", err)
	}
	if hi.Cmp(clmmmath.MaxSqrtPrice) != 0 {
		t.Errorf("TickToSqrtPrice(MaxTick) = %s, want MaxSqrtPrice %s", hi, clmmmath.MaxSqrtPrice)
	}
}

func TestTickToSqrtPriceOutOfRange(t *testing.T) {
	if _, err := clmmmath.TickToSqrtPrice(clmmmath.MinTick - 1); err == nil {
		t.Error("expected error below MinTick")
	}
	if _, err := clmmmath.TickToSqrtPrice(clmmmath.MaxTick + 1); err == nil {
		t.Error("expected error above MaxTick")
	}
}

func TestTickToSqrtPriceMonotonic(t *testing.T) {
	ticks := []int32{-500000, -100000, -1000, -1, 0, 1, 1000, 100000, 500000}
	prev := uint128.Zero
	for i, tick := range ticks {
		sp, err := clmmmath.TickToSqrtPrice(tick)
		if err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
		if i > 0 && sp.Cmp(prev) < 0 {
			t.Errorf("sqrt price not monotonic at tick %d", tick)
		}
		prev = sp
	}
}

func TestSqrtPriceToTickRoundTrip(t *testing.T) {
	for _, tick := range []int32{clmmmath.MinTick, -887000, -1000, -1, 0, 1, 1000, 887000, clmmmath.MaxTick} {
		sp, err := clmmmath.TickToSqrtPrice(tick)
		if err != nil {
			t.Fatalf("TickToSqrtPrice(%d): %v", tick, err)
		}
		got, err := clmmmath.SqrtPriceToTick(sp)
		if err != nil {
			t.Fatalf("SqrtPriceToTick round trip for tick %d: %v", tick, err)
		}
		if got != tick {
			t.Errorf("round trip tick %d -> sqrtPrice -> %d", tick, got)
		}
	}
}

func TestSqrtPriceToTickZeroIsSentinel(t *testing.T) {
	tick, err := clmmmath.SqrtPriceToTick(uint128.Zero)
	if err != nil {
		t.Fatalf("zero sqrt price should not error: %v", err)
	}
	if tick != clmmmath.MinTick {
		t.Errorf("zero sqrt price should clamp to MinTick, got %d", tick)
	}
}

func TestNearestUsableTick(t *testing.T) {
	tests := []struct {
		tick    int32
		spacing int32
		want    int32
	}{
		{0, 60, 0},
		{29, 60, 0},
		{30, 60, 60},
		{31, 60, 60},
		{-29, 60, 0},
		{-30, 60, -60},
		{-31, 60, -60},
		{clmmmath.MaxTick, 60, clmmmath.MaxTick / 60 * 60},
	}
	for _, tt := range tests {
		got := clmmmath.NearestUsableTick(tt.tick, tt.spacing)
		if got != tt.want {
			t.Errorf("NearestUsableTick(%d, %d) = %d, want %d", tt.tick, tt.spacing, got, tt.want)
		}
	}
}

func TestTickSpacingForFeeTier(t *testing.T) {
	tests := []struct {
		feeTier uint32
		want    int32
	}{
		{clmmmath.FeeTierLow, 10},
		{clmmmath.FeeTierMedium, 60},
		{clmmmath.FeeTierHigh, 200},
	}
	for _, tt := range tests {
		got, err := clmmmath.TickSpacingForFeeTier(tt.feeTier)
		if err != nil {
			t.Fatalf("fee tier %d: %v", tt.feeTier, err)
		}
		if got != tt.want {
			t.Errorf("TickSpacingForFeeTier(%d) = %d, want %d", tt.feeTier, got, tt.want)
		}
	}
	if _, err := clmmmath.TickSpacingForFeeTier(1234); err == nil {
		t.Error("expected error for unknown fee tier")
	}
}
