package api

import (
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/facemelt/engine/native/curve"
	"github.com/facemelt/engine/native/pool"
	"github.com/facemelt/engine/native/position"
)

// LaunchDirectRequest creates a Live pool with no bonding-curve phase.
type LaunchDirectRequest struct {
	Authority   solana.PublicKey
	Mint        solana.PublicKey
	Vault       solana.PublicKey
	InitialBase *uint256.Int
	TotalSupply *uint256.Int
	Name        string
	Ticker      string
	MetadataURI string

	// FundingConstantC and LiquidationDivergenceThresholdPct are optional;
	// a nil/zero value falls back to the configured default.
	FundingConstantC                  *uint256.Int
	LiquidationDivergenceThresholdPct uint64
}

// LaunchDirectResponse carries the pool state a caller needs to persist.
type LaunchDirectResponse struct {
	Pool *pool.Pool
}

// LaunchOnCurveRequest creates an Uninitialized pool paired with an Active
// bonding curve.
type LaunchOnCurveRequest struct {
	Authority    solana.PublicKey
	Mint         solana.PublicKey
	Vault        solana.PublicKey
	TotalSupply  *uint256.Int
	TargetBase   *uint256.Int
	TargetTokens *uint256.Int
	Name         string
	Ticker       string
	MetadataURI  string

	FundingConstantC                  *uint256.Int
	LiquidationDivergenceThresholdPct uint64
}

// LaunchOnCurveResponse carries the pool and curve state a caller needs to
// persist.
type LaunchOnCurveResponse struct {
	Pool  *pool.Pool
	Curve *curve.BondingCurve
}

// SwapOnCurveRequest executes a primary-market buy or sell against an
// active bonding curve.
type SwapOnCurveRequest struct {
	Mint        solana.PublicKey
	AmountIn    *uint256.Int
	InputIsBase bool
	Now         int64
}

// SwapOnCurveResponse reports the primary-market trade outcome. Refund is
// only nonzero on a buy that overshoots the curve's target.
type SwapOnCurveResponse struct {
	AmountOut *uint256.Int
	Refund    *uint256.Int
	Graduated bool
}

// SwapRequest executes a live-phase constant-product trade.
type SwapRequest struct {
	Mint         solana.PublicKey
	AmountIn     *uint256.Int
	MinAmountOut *uint256.Int
	InputIsBase  bool
	Now          int64
}

// SwapResponse reports the live-phase trade outcome.
type SwapResponse struct {
	AmountOut *uint256.Int
}

// LeverageSwapRequest opens a leveraged long or short position. Nonce
// together with Authority must be unique per pool; callers that need many
// concurrent positions increment it themselves. LeverageTenths is leverage
// in tenths of a unit (50 = 5.0x), accepted from position.MinLeverageTenths
// to position.MaxLeverageTenths.
type LeverageSwapRequest struct {
	Mint           solana.PublicKey
	Authority      solana.PublicKey
	Collateral     *uint256.Int
	MinSizeOut     *uint256.Int
	IsLong         bool
	LeverageTenths uint64
	Nonce          uint64
	Now            int64
}

// LeverageSwapResponse reports the opened position.
type LeverageSwapResponse struct {
	Position *position.Position
}

// ClosePositionRequest voluntarily closes a position; Caller must equal the
// position's authority.
type ClosePositionRequest struct {
	PositionID uuid.UUID
	Caller     solana.PublicKey
	Now        int64
}

// ClosePositionResponse reports the settlement payout.
type ClosePositionResponse struct {
	Payout *uint256.Int
}

// LiquidateRequest permissionlessly liquidates an underwater position.
type LiquidateRequest struct {
	PositionID uuid.UUID
	Liquidator solana.PublicKey
	Now        int64
}

// LiquidateResponse reports the liquidation payout.
type LiquidateResponse struct {
	Payout *uint256.Int
}
