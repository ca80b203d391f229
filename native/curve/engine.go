package curve

import (
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"github.com/facemelt/engine/fixedpoint"
	"github.com/facemelt/engine/native/pool"
)

const moduleName = "curve"

// Engine is a stateless collection of bonding-curve state transitions,
// mirroring native/pool.Engine's shape: callers own the BondingCurve and
// Pool records, the engine only computes and mutates them in place.
type Engine struct {
	log *slog.Logger
}

// NewEngine constructs a curve engine that logs through the supplied
// logger. A nil logger falls back to slog.Default().
func NewEngine(log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{log: log.With("module", moduleName)}
}

// Launch creates an Uninitialized Pool and an Active BondingCurve, minting
// totalSupply to the vault. It fails with ErrInvalidBondingCurveParams if
// either target is zero or totalSupply is less than 2*targetTokens.
func (e *Engine) Launch(authority, mint, vault solana.PublicKey, totalSupply, targetBase, targetTokens *uint256.Int, fundingConstantC *uint256.Int, liqThresholdPct uint64) (*pool.Pool, *BondingCurve, error) {
	if targetBase.IsZero() || targetTokens.IsZero() {
		return nil, nil, ErrInvalidBondingCurveParams
	}
	twiceTarget, err := fixedpoint.Mul(fixedpoint.FromUint64(2), targetTokens)
	if err != nil {
		return nil, nil, err
	}
	if totalSupply.Lt(twiceTarget) {
		return nil, nil, ErrInvalidBondingCurveParams
	}
	slopeM, err := slope(targetBase, targetTokens)
	if err != nil {
		return nil, nil, err
	}

	p := pool.New(authority, mint, vault, fundingConstantC, liqThresholdPct)
	p.Status = pool.StatusUninitialized
	p.TokenReserve = new(uint256.Int).Set(totalSupply)

	c := &BondingCurve{
		Mint:         mint,
		SlopeM:       slopeM,
		TokensSold:   fixedpoint.Zero(),
		BaseRaised:   fixedpoint.Zero(),
		TargetBase:   new(uint256.Int).Set(targetBase),
		TargetTokens: new(uint256.Int).Set(targetTokens),
		TotalSupply:  new(uint256.Int).Set(totalSupply),
		Status:       StatusActive,
	}
	e.log.Info("curve launched", "targetBase", targetBase.String(), "targetTokens", targetTokens.String(), "slope", slopeM.String())
	return p, c, nil
}

// Buy executes a primary-market purchase. It returns the tokens transferred
// to the buyer and any BASE refund owed when the purchase would overshoot
// the curve's target. If the purchase reaches either target, Buy graduates
// the curve and pool in place before returning.
func (e *Engine) Buy(p *pool.Pool, c *BondingCurve, baseIn *uint256.Int, now int64) (tokensOut, refund *uint256.Int, err error) {
	if c.Status != StatusActive {
		return nil, nil, curveNotActiveErr(c)
	}
	if baseIn.IsZero() {
		return nil, nil, ErrInvalidAmount
	}

	q1 := c.TokensSold
	twiceBaseIn, err := fixedpoint.Mul(fixedpoint.FromUint64(2), baseIn)
	if err != nil {
		return nil, nil, err
	}
	term, err := fixedpoint.QDiv(twiceBaseIn, c.SlopeM)
	if err != nil {
		return nil, nil, err
	}
	q1Sq, err := fixedpoint.Mul(q1, q1)
	if err != nil {
		return nil, nil, err
	}
	sum, err := fixedpoint.Add(q1Sq, term)
	if err != nil {
		return nil, nil, err
	}
	q2 := fixedpoint.Sqrt(sum)

	adjustedBaseIn := new(uint256.Int).Set(baseIn)
	refund = fixedpoint.Zero()
	if q2.Gt(c.TargetTokens) {
		q2 = new(uint256.Int).Set(c.TargetTokens)
		cost, err := curveCost(c.SlopeM, q1, q2)
		if err != nil {
			return nil, nil, err
		}
		adjustedBaseIn = cost
		if refund, err = fixedpoint.Sub(baseIn, cost); err != nil {
			return nil, nil, err
		}
	}

	if tokensOut, err = fixedpoint.Sub(q2, q1); err != nil {
		return nil, nil, err
	}
	c.TokensSold = q2
	if c.BaseRaised, err = fixedpoint.Add(c.BaseRaised, adjustedBaseIn); err != nil {
		return nil, nil, err
	}

	if !c.BaseRaised.Lt(c.TargetBase) || !c.TokensSold.Lt(c.TargetTokens) {
		if err := e.Graduate(p, c, now); err != nil {
			return nil, nil, err
		}
	}

	e.log.Info("curve buy", "baseIn", adjustedBaseIn.String(), "tokensOut", tokensOut.String(), "refund", refund.String())
	return tokensOut, refund, nil
}

// Sell executes a primary-market sale back into the curve.
func (e *Engine) Sell(c *BondingCurve, tokensIn *uint256.Int) (baseOut *uint256.Int, err error) {
	if c.Status != StatusActive {
		return nil, curveNotActiveErr(c)
	}
	if tokensIn.IsZero() {
		return nil, ErrInvalidAmount
	}
	q1 := c.TokensSold
	if tokensIn.Gt(q1) {
		return nil, ErrInsufficientTokensSold
	}
	q2, err := fixedpoint.Sub(q1, tokensIn)
	if err != nil {
		return nil, err
	}
	baseOut, err = curveCost(c.SlopeM, q2, q1)
	if err != nil {
		return nil, err
	}
	if baseOut.Gt(c.BaseRaised) {
		return nil, ErrInsufficientCurveSol
	}
	c.TokensSold = q2
	if c.BaseRaised, err = fixedpoint.Sub(c.BaseRaised, baseOut); err != nil {
		return nil, err
	}
	e.log.Info("curve sell", "tokensIn", tokensIn.String(), "baseOut", baseOut.String())
	return baseOut, nil
}

// Graduate transitions a BondingCurve to Graduated and seeds the live Pool
// per spec.md §4.E. It is invoked internally by Buy once a target is
// reached, and may also be called directly for a manual graduation path.
func (e *Engine) Graduate(p *pool.Pool, c *BondingCurve, now int64) error {
	if c.Status == StatusGraduated {
		return ErrBondingCurveAlreadyGraduated
	}
	c.Status = StatusGraduated

	p.SolReserve = new(uint256.Int).Set(c.BaseRaised)
	p.EffectiveSolReserve = new(uint256.Int).Set(c.BaseRaised)

	lpTokens := new(uint256.Int).Div(c.TargetTokens, fixedpoint.FromUint64(2))
	remainingUnsold, err := fixedpoint.Sub(c.TotalSupply, c.TokensSold)
	if err != nil {
		return err
	}
	if p.TokenReserve, err = fixedpoint.Add(lpTokens, remainingUnsold); err != nil {
		return err
	}
	p.EffectiveTokenReserve = lpTokens

	p.Status = pool.StatusLive
	p.LastUpdatedTimestamp = now
	p.CumulativeFundingAccumulator = fixedpoint.Zero()
	p.EMAInitialized = false

	e.log.Info("curve graduated", "baseRaised", c.BaseRaised.String(), "lpTokens", lpTokens.String())
	return nil
}

func curveNotActiveErr(c *BondingCurve) error {
	if c.Status == StatusGraduated {
		return ErrBondingCurveAlreadyGraduated
	}
	return ErrBondingCurveNotActive
}
