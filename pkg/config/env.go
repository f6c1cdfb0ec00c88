package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadEnv loads environment variables from .env file if it exists
func LoadEnv(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		// .env file is optional
		return nil
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Only set if not already set in environment
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}

	return scanner.Err()
}

// GetDefaultFeeTierBps returns the default fee tier (hundredths of a basis
// point) from the environment, or the given fallback if unset or malformed.
func GetDefaultFeeTierBps(fallback uint32) uint32 {
	raw := os.Getenv("CLMM_DEFAULT_FEE_TIER")
	if raw == "" {
		return fallback
	}

	var parsed uint32
	if _, err := fmt.Sscanf(raw, "%d", &parsed); err != nil {
		return fallback
	}
	return parsed
}

// GetDefaultProtocolFeeRateBps returns the protocol's share of swap fees
// (basis points of the fee, not of the swap) from the environment, or the
// given fallback if unset or malformed.
func GetDefaultProtocolFeeRateBps(fallback uint16) uint16 {
	raw := os.Getenv("CLMM_PROTOCOL_FEE_RATE_BPS")
	if raw == "" {
		return fallback
	}

	var parsed uint16
	if _, err := fmt.Sscanf(raw, "%d", &parsed); err != nil {
		return fallback
	}
	return parsed
}
