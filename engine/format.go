package engine

import (
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// FormatPoolId renders a PoolId the way the teacher's CLI tools print
// Solana addresses: base58, with no padding or prefix. solana.PublicKey
// already exposes an equivalent String() method; this helper produces
// the same text by encoding the key's 32 bytes directly.
func FormatPoolId(poolId solana.PublicKey) string {
	return base58.Encode(poolId[:])
}
