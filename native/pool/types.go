// Package pool implements the constant-product AMM state that every
// graduated token trades against: effective/real reserve accounting, the
// funding accumulator that rebalances leveraged open interest back into
// spot liquidity, and the EMA oracle used to gate liquidations.
package pool

import (
	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"github.com/facemelt/engine/fixedpoint"
)

// Status tags the lifecycle stage of a Pool.
type Status uint8

const (
	// StatusUninitialized marks a pool awaiting bonding-curve graduation or
	// direct launch.
	StatusUninitialized Status = iota
	// StatusLive marks a pool open for spot swaps and leveraged positions.
	StatusLive
)

// EMAHalfLife is the half-life, in seconds, used to decay the EMA price
// oracle toward the current spot price on every funding update.
const EMAHalfLife = 300

// Pool is the single per-mint AMM record. Amounts are stored as *uint256.Int
// so every mutation goes through the checked arithmetic in fixedpoint.
type Pool struct {
	Authority  solana.PublicKey
	TokenMint  solana.PublicKey
	TokenVault solana.PublicKey

	SolReserve   *uint256.Int
	TokenReserve *uint256.Int

	EffectiveSolReserve   *uint256.Int
	EffectiveTokenReserve *uint256.Int

	TotalDeltaKLongs  *uint256.Int
	TotalDeltaKShorts *uint256.Int

	CumulativeFundingAccumulator *uint256.Int
	LastUpdatedTimestamp         int64

	EMAPrice       *uint256.Int
	EMAInitialized bool

	FundingConstantC                  *uint256.Int
	LiquidationDivergenceThresholdPct uint64

	Status Status
}

// New returns a zeroed Pool with every counter initialised to zero and the
// funding constant/threshold set to the caller-supplied defaults.
func New(authority, mint, vault solana.PublicKey, fundingConstantC *uint256.Int, liqThresholdPct uint64) *Pool {
	return &Pool{
		Authority:                          authority,
		TokenMint:                          mint,
		TokenVault:                         vault,
		SolReserve:                         fixedpoint.Zero(),
		TokenReserve:                       fixedpoint.Zero(),
		EffectiveSolReserve:                fixedpoint.Zero(),
		EffectiveTokenReserve:              fixedpoint.Zero(),
		TotalDeltaKLongs:                   fixedpoint.Zero(),
		TotalDeltaKShorts:                  fixedpoint.Zero(),
		CumulativeFundingAccumulator:       fixedpoint.Zero(),
		EMAPrice:                           fixedpoint.Zero(),
		FundingConstantC:                   fundingConstantC,
		LiquidationDivergenceThresholdPct:  liqThresholdPct,
		Status:                             StatusUninitialized,
	}
}

// DefaultFundingConstantC is PRECISION/10_000, i.e. 1e-4 per second at full
// leverage, per spec.md's configuration defaults.
func DefaultFundingConstantC() *uint256.Int {
	return new(uint256.Int).Div(fixedpoint.Precision, fixedpoint.FromUint64(10_000))
}

// DefaultLiquidationDivergenceThresholdPct is the default percent divergence
// between EMA and spot above which liquidations are blocked.
const DefaultLiquidationDivergenceThresholdPct = 10
