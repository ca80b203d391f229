package curve

import "errors"

var (
	// ErrInvalidBondingCurveParams is returned when launch targets are zero
	// or the minted supply is less than twice the target token count.
	ErrInvalidBondingCurveParams = errors.New("curve engine: invalid bonding curve params")
	// ErrBondingCurveNotActive is returned by buy/sell on a curve that does
	// not exist yet or has already graduated.
	ErrBondingCurveNotActive = errors.New("curve engine: bonding curve not active")
	// ErrBondingCurveAlreadyGraduated is returned by any trade attempted
	// after graduation.
	ErrBondingCurveAlreadyGraduated = errors.New("curve engine: bonding curve already graduated")
	// ErrInsufficientTokensSold is returned by sell when the requested
	// amount exceeds what has been sold on the curve.
	ErrInsufficientTokensSold = errors.New("curve engine: insufficient tokens sold")
	// ErrInsufficientCurveSol is returned by sell when the curve's raised
	// BASE cannot cover the proceeds owed.
	ErrInsufficientCurveSol = errors.New("curve engine: insufficient curve sol")
	// ErrInvalidAmount is returned for a non-positive trade input.
	ErrInvalidAmount = errors.New("curve engine: amount must be positive")
)
