package position

import "errors"

var (
	// ErrInvalidCollateral is returned for a non-positive collateral amount.
	ErrInvalidCollateral = errors.New("position engine: collateral must be positive")
	// ErrInvalidLeverage is returned when leverage is below 1.0x or above
	// MaxLeverageTenths.
	ErrInvalidLeverage = errors.New("position engine: leverage out of range")
	// ErrSlippageExceeded is returned by open when the computed size falls
	// below the caller's minimum.
	ErrSlippageExceeded = errors.New("position engine: slippage exceeded")
	// ErrUnauthorized is returned when close is attempted by anyone other
	// than the position's authority.
	ErrUnauthorized = errors.New("position engine: caller is not the position authority")
	// ErrLiquidationPriceManipulation is returned by liquidate when the EMA
	// divergence gate is tripped.
	ErrLiquidationPriceManipulation = errors.New("position engine: liquidation blocked by EMA divergence")
	// ErrPositionUnderwater is returned by liquidate when the computed
	// payout is zero or negative.
	ErrPositionUnderwater = errors.New("position engine: position payout is non-positive")
	// ErrPositionNotLiquidatable is returned by liquidate when the payout
	// exceeds the 5% gross-value threshold.
	ErrPositionNotLiquidatable = errors.New("position engine: position is not within the liquidation threshold")
)
