// Package curve implements the linear bonding-curve primary market used to
// bootstrap a token from zero seed capital before it graduates onto the
// constant-product pool.
package curve

import (
	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"github.com/facemelt/engine/fixedpoint"
)

// Status tags the lifecycle stage of a BondingCurve.
type Status uint8

const (
	// StatusActive marks a curve still accepting buy/sell.
	StatusActive Status = iota
	// StatusGraduated marks a curve that has handed its liquidity to the
	// live pool; it accepts no further trades.
	StatusGraduated
)

// BondingCurve is the per-mint primary-market record. It exists only before
// graduation.
type BondingCurve struct {
	Mint solana.PublicKey

	SlopeM       *uint256.Int // Q-format: BASE per token, scaled by fixedpoint.Precision
	TokensSold   *uint256.Int
	BaseRaised   *uint256.Int
	TargetBase   *uint256.Int
	TargetTokens *uint256.Int
	TotalSupply  *uint256.Int
	Status       Status
}

// slope computes slope_m = 2*target_base/target_tokens^2 in Q-format.
func slope(targetBase, targetTokens *uint256.Int) (*uint256.Int, error) {
	twiceBase, err := fixedpoint.Mul(fixedpoint.FromUint64(2), targetBase)
	if err != nil {
		return nil, err
	}
	targetTokensSquared, err := fixedpoint.Mul(targetTokens, targetTokens)
	if err != nil {
		return nil, err
	}
	return fixedpoint.QDiv(twiceBase, targetTokensSquared)
}

// curveCost computes slope_m * (q2^2 - q1^2) / 2, the BASE cost (or
// proceeds) of moving sold supply between q1 and q2, where q2 >= q1.
func curveCost(slopeM, q1, q2 *uint256.Int) (*uint256.Int, error) {
	q2Sq, err := fixedpoint.Mul(q2, q2)
	if err != nil {
		return nil, err
	}
	q1Sq, err := fixedpoint.Mul(q1, q1)
	if err != nil {
		return nil, err
	}
	diff, err := fixedpoint.Sub(q2Sq, q1Sq)
	if err != nil {
		return nil, err
	}
	twoPrecision, err := fixedpoint.Mul(fixedpoint.FromUint64(2), fixedpoint.Precision)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDiv(slopeM, diff, twoPrecision)
}
