// Package position implements the leveraged long/short lifecycle: open,
// close, and permissionless liquidate, all settled against a pool's
// effective reserves via delta-K accounting.
package position

import (
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// MaxLeverageTenths is the compile-time cap on leverage, expressed in the
// same tenths-of-a-unit convention as the public leverage argument (1000 =
// 100.0x). Spec.md leaves the exact cap unspecified ("above a compile-time
// cap"); this engine fixes it at 100x.
const MaxLeverageTenths = 1000

// MinLeverageTenths is the floor below which a position is just spot
// exposure and should go through Pool.Swap instead (10 = 1.0x).
const MinLeverageTenths = 10

// Position is a single open leveraged trade, keyed by (pool, owner, nonce)
// at the store layer so one owner may hold many positions concurrently.
type Position struct {
	ID        uuid.UUID
	Mint      solana.PublicKey
	Authority solana.PublicKey
	IsLong    bool

	Collateral *uint256.Int
	Size       *uint256.Int
	DeltaK     *uint256.Int

	// EntryFundingAccumulator snapshots the pool's cumulative funding
	// accumulator at open time; the position's effective size is always
	// recomputed against it rather than mutating the stored fields.
	EntryFundingAccumulator *uint256.Int

	Nonce uint64
}
