// Command clmmsim drives engine.Engine through a full pool lifecycle —
// create, open, swap, collect, observe — the way the teacher's
// cmd/quote-service drives a live router from the command line, except
// everything here runs against in-process state with no network calls.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	sdkmath "cosmossdk.io/math"
	"github.com/fluxa-go/clmm-core/clmmerrors"
	"github.com/fluxa-go/clmm-core/engine"
	"github.com/fluxa-go/clmm-core/internal/eventlog"
	clmmmath "github.com/fluxa-go/clmm-core/math"
	"github.com/fluxa-go/clmm-core/pkg/config"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

func main() {
	if err := config.LoadEnv(".env"); err != nil {
		log.Printf("warning: failed to load .env: %v", err)
	}

	feeTier := flag.Uint("fee-tier", uint(config.GetDefaultFeeTierBps(clmmmath.FeeTierMedium)), "fee tier (500, 3000, or 10000)")
	liquidityFlag := flag.Uint64("liquidity", 10_000_000_000, "liquidity to deposit into the opening position")
	swapAmount := flag.Uint64("swap-amount", 1_000_000, "token A amount to swap in")
	tickLower := flag.Int("tick-lower", -60, "lower tick bound of the opening position")
	tickUpper := flag.Int("tick-upper", 60, "upper tick bound of the opening position")
	flag.Parse()

	if err := run(uint32(*feeTier), *liquidityFlag, *swapAmount, int32(*tickLower), int32(*tickUpper)); err != nil {
		fmt.Fprintln(os.Stderr, "clmmsim:", err)
		os.Exit(1)
	}
}

func run(feeTier uint32, liquidity, swapAmount uint64, tickLower, tickUpper int32) error {
	eng := engine.New(eventlog.StdLogger{})

	tokenA := solana.PublicKey{1}
	tokenB := solana.PublicKey{2}
	owner := solana.PublicKey{3}
	authority := solana.PublicKey{4}

	initialSqrtPrice, err := clmmmath.TickToSqrtPrice(0)
	if err != nil {
		return fmt.Errorf("deriving initial sqrt price: %w", err)
	}

	protocolFeeRateBps := config.GetDefaultProtocolFeeRateBps(2000)
	poolId, err := eng.CreatePool(tokenA, tokenB, feeTier, initialSqrtPrice, protocolFeeRateBps, authority, 0)
	if err != nil {
		return fmt.Errorf("create_pool: %w", err)
	}
	log.Printf("created pool %s (fee tier %d)", engine.FormatPoolId(poolId), feeTier)

	pos, amountA, amountB, err := eng.OpenPosition(poolId, owner, tickLower, tickUpper, uint128.From64(liquidity))
	if err != nil {
		return fmt.Errorf("open_position: %w", err)
	}
	log.Printf("opened position [%d, %d) L=%d: deposited amount_a=%s amount_b=%s", tickLower, tickUpper, liquidity, amountA, amountB)

	amountInUsed, amountOut, err := eng.SwapExactIn(poolId, sdkmath.NewInt(int64(swapAmount)), true, clmmmath.MinSqrtPrice, sdkmath.ZeroInt(), 1)
	if err != nil {
		return fmt.Errorf("swap_exact_in: %w", err)
	}
	log.Printf("swapped amount_in_used=%s for amount_out=%s", amountInUsed, amountOut)

	feeA, feeB, err := eng.CollectFees(pos)
	if err != nil {
		return fmt.Errorf("collect_fees: %w", err)
	}
	log.Printf("collected fees amount_a=%s amount_b=%s", feeA, feeB)

	avgTick, err := eng.ObserveTWAP(poolId, 1, 2)
	if err != nil {
		return fmt.Errorf("observe_twap: %w", err)
	}
	log.Printf("avg_tick over the last second=%d", avgTick)

	protocolA, protocolB, err := eng.CollectProtocolFees(poolId, authority, 1)
	if err != nil && !errors.Is(err, clmmerrors.ErrNoFeesToCollect) {
		return fmt.Errorf("collect_protocol_fees: %w", err)
	}
	log.Printf("collected protocol fees amount_a=%s amount_b=%s", protocolA, protocolB)

	return nil
}
