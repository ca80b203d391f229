package pool

import (
	"log/slog"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/facemelt/engine/fixedpoint"
	"github.com/facemelt/engine/observability/metrics"
)

const moduleName = "pool"

// Engine is a stateless collection of the pool state transitions. It never
// persists anything itself: callers load a Pool, invoke an Engine method,
// and persist the (possibly mutated) result themselves.
type Engine struct {
	log       *slog.Logger
	telemetry *metrics.EngineMetrics
}

// NewEngine constructs a pool engine that logs through the supplied logger.
// A nil logger falls back to slog.Default().
func NewEngine(log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{log: log.With("module", moduleName), telemetry: metrics.Engine()}
}

// UpdateFunding advances the funding accumulator and EMA oracle to time now.
// Every live-phase operation must call this before its own math; no other
// code path may mutate funding state.
func (e *Engine) UpdateFunding(p *Pool, now int64) error {
	if p == nil {
		return ErrPoolNotLive
	}
	deltaT := now - p.LastUpdatedTimestamp
	if deltaT <= 0 {
		return nil
	}
	deltaTQ := fixedpoint.FromUint64(uint64(deltaT))

	debt, err := fixedpoint.Add(p.TotalDeltaKLongs, p.TotalDeltaKShorts)
	if err != nil {
		return err
	}
	if debt.IsZero() {
		p.LastUpdatedTimestamp = now
		return e.updateEMA(p, deltaTQ)
	}

	effectiveK, err := fixedpoint.Mul(p.EffectiveSolReserve, p.EffectiveTokenReserve)
	if err != nil {
		return err
	}
	if effectiveK.IsZero() {
		return ErrZeroReserve
	}

	leverageRatio, err := fixedpoint.QDiv(debt, effectiveK)
	if err != nil {
		return err
	}
	ratioSquared, err := fixedpoint.QMul(leverageRatio, leverageRatio)
	if err != nil {
		return err
	}
	fundingRate, err := fixedpoint.QMul(p.FundingConstantC, ratioSquared)
	if err != nil {
		return err
	}
	deltaAcc, err := fixedpoint.Mul(fundingRate, deltaTQ)
	if err != nil {
		return err
	}

	room, err := fixedpoint.Sub(fixedpoint.Precision, p.CumulativeFundingAccumulator)
	if err != nil {
		return err
	}
	if deltaAcc.Gt(room) {
		deltaAcc = room
	}

	feesLongSide, err := fixedpoint.QMul(deltaAcc, p.TotalDeltaKLongs)
	if err != nil {
		return err
	}
	feesShortSide, err := fixedpoint.QMul(deltaAcc, p.TotalDeltaKShorts)
	if err != nil {
		return err
	}

	if !feesLongSide.IsZero() {
		tokenCredit, err := fixedpoint.Div(feesLongSide, p.EffectiveSolReserve)
		if err != nil {
			return err
		}
		if p.EffectiveTokenReserve, err = fixedpoint.Add(p.EffectiveTokenReserve, tokenCredit); err != nil {
			return err
		}
	}
	if !feesShortSide.IsZero() {
		solCredit, err := fixedpoint.Div(feesShortSide, p.EffectiveTokenReserve)
		if err != nil {
			return err
		}
		if p.EffectiveSolReserve, err = fixedpoint.Add(p.EffectiveSolReserve, solCredit); err != nil {
			return err
		}
	}

	if p.TotalDeltaKLongs, err = fixedpoint.Sub(p.TotalDeltaKLongs, feesLongSide); err != nil {
		return err
	}
	if p.TotalDeltaKShorts, err = fixedpoint.Sub(p.TotalDeltaKShorts, feesShortSide); err != nil {
		return err
	}
	if p.CumulativeFundingAccumulator, err = fixedpoint.Add(p.CumulativeFundingAccumulator, deltaAcc); err != nil {
		return err
	}

	p.LastUpdatedTimestamp = now
	if err := e.updateEMA(p, deltaTQ); err != nil {
		return err
	}
	e.log.Debug("funding update", "deltaT", deltaT, "fundingRate", fundingRate.String(), "acc", p.CumulativeFundingAccumulator.String())
	e.reportGauges(p)
	return nil
}

func (e *Engine) reportGauges(p *Pool) {
	mint := p.TokenMint.String()
	accF, _ := new(big.Float).SetInt(p.CumulativeFundingAccumulator.ToBig()).Float64()
	e.telemetry.SetFundingAccumulator(mint, accF)
	if p.EMAInitialized {
		emaF, _ := new(big.Float).SetInt(p.EMAPrice.ToBig()).Float64()
		e.telemetry.SetEMAPrice(mint, emaF)
	}
	if k, err := fixedpoint.Mul(p.EffectiveSolReserve, p.EffectiveTokenReserve); err == nil {
		kF, _ := new(big.Float).SetInt(k.ToBig()).Float64()
		e.telemetry.SetPoolK(mint, kF)
	}
}

func (e *Engine) updateEMA(p *Pool, deltaTQ *uint256.Int) error {
	spot, err := fixedpoint.QDiv(p.EffectiveSolReserve, p.EffectiveTokenReserve)
	if err != nil {
		return err
	}
	if !p.EMAInitialized {
		p.EMAPrice = spot
		p.EMAInitialized = true
		return nil
	}
	halfLife := fixedpoint.FromUint64(EMAHalfLife)
	denom, err := fixedpoint.Add(halfLife, deltaTQ)
	if err != nil {
		return err
	}
	alpha, err := fixedpoint.QDiv(deltaTQ, denom)
	if err != nil {
		return err
	}
	oneMinusAlpha, err := fixedpoint.Sub(fixedpoint.One(), alpha)
	if err != nil {
		return err
	}
	decayed, err := fixedpoint.QMul(p.EMAPrice, oneMinusAlpha)
	if err != nil {
		return err
	}
	fresh, err := fixedpoint.QMul(spot, alpha)
	if err != nil {
		return err
	}
	p.EMAPrice, err = fixedpoint.Add(decayed, fresh)
	return err
}

// RemainingFactor returns 1 - (pool.CumulativeFundingAccumulator -
// entryFundingAccumulator), clamped to [0, PRECISION].
func RemainingFactor(p *Pool, entryFundingAccumulator *uint256.Int) (*uint256.Int, error) {
	decayed, err := fixedpoint.Sub(p.CumulativeFundingAccumulator, entryFundingAccumulator)
	if err != nil {
		// CumulativeFundingAccumulator only ever increases, but guard
		// against an entry snapshot taken after the current accumulator.
		return fixedpoint.One(), nil
	}
	remaining, err := fixedpoint.Sub(fixedpoint.One(), decayed)
	if err != nil {
		return fixedpoint.Zero(), nil
	}
	return fixedpoint.Clamp(remaining, fixedpoint.Zero(), fixedpoint.One()), nil
}

// CalculateOutput is the constant-product swap formula on raw reserves:
// a_out = R_out - (R_in * R_out) / (R_in + a_in).
func CalculateOutput(reserveIn, reserveOut, amountIn *uint256.Int) (*uint256.Int, error) {
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, ErrZeroReserve
	}
	newReserveIn, err := fixedpoint.Add(reserveIn, amountIn)
	if err != nil {
		return nil, err
	}
	k, err := fixedpoint.Mul(reserveIn, reserveOut)
	if err != nil {
		return nil, err
	}
	quotient, err := fixedpoint.Div(k, newReserveIn)
	if err != nil {
		return nil, err
	}
	return fixedpoint.Sub(reserveOut, quotient)
}

// CheckLiquidationSafety implements the EMA manipulation gate: liquidations
// are blocked whenever spot has dropped more than the configured percentage
// below the EMA.
func CheckLiquidationSafety(p *Pool) (bool, error) {
	if !p.EMAInitialized {
		return true, nil
	}
	spot, err := fixedpoint.QDiv(p.EffectiveSolReserve, p.EffectiveTokenReserve)
	if err != nil {
		return false, err
	}
	if !spot.Lt(p.EMAPrice) {
		return true, nil
	}
	diff, err := fixedpoint.Sub(p.EMAPrice, spot)
	if err != nil {
		return false, err
	}
	// (diff/EMA)*100 <= threshold, compared without truncating the percent.
	scaledDiff, err := fixedpoint.Mul(diff, fixedpoint.FromUint64(100))
	if err != nil {
		return false, err
	}
	allowed, err := fixedpoint.Mul(p.EMAPrice, fixedpoint.FromUint64(p.LiquidationDivergenceThresholdPct))
	if err != nil {
		return false, err
	}
	return !scaledDiff.Gt(allowed), nil
}

// Swap performs a spot trade against effective reserves (mirrored onto real
// reserves, which stay in parity outside of leveraged positions). It begins
// with a funding update per spec.md's ordering guarantee.
func (e *Engine) Swap(p *Pool, amountIn *uint256.Int, inputIsBase bool, minAmountOut *uint256.Int, now int64) (*uint256.Int, error) {
	if p.Status != StatusLive {
		return nil, ErrPoolNotLive
	}
	if amountIn.IsZero() {
		return nil, ErrInvalidAmount
	}
	if err := e.UpdateFunding(p, now); err != nil {
		return nil, err
	}

	var reserveIn, reserveOut *uint256.Int
	if inputIsBase {
		reserveIn, reserveOut = p.EffectiveSolReserve, p.EffectiveTokenReserve
	} else {
		reserveIn, reserveOut = p.EffectiveTokenReserve, p.EffectiveSolReserve
	}
	amountOut, err := CalculateOutput(reserveIn, reserveOut, amountIn)
	if err != nil {
		return nil, err
	}
	if amountOut.Lt(minAmountOut) {
		return nil, ErrSlippageExceeded
	}

	if inputIsBase {
		if p.EffectiveSolReserve, err = fixedpoint.Add(p.EffectiveSolReserve, amountIn); err != nil {
			return nil, err
		}
		if p.EffectiveTokenReserve, err = fixedpoint.Sub(p.EffectiveTokenReserve, amountOut); err != nil {
			return nil, err
		}
		if p.SolReserve, err = fixedpoint.Add(p.SolReserve, amountIn); err != nil {
			return nil, err
		}
		if p.TokenReserve, err = fixedpoint.Sub(p.TokenReserve, amountOut); err != nil {
			return nil, err
		}
	} else {
		if p.EffectiveTokenReserve, err = fixedpoint.Add(p.EffectiveTokenReserve, amountIn); err != nil {
			return nil, err
		}
		if p.EffectiveSolReserve, err = fixedpoint.Sub(p.EffectiveSolReserve, amountOut); err != nil {
			return nil, err
		}
		if p.TokenReserve, err = fixedpoint.Add(p.TokenReserve, amountIn); err != nil {
			return nil, err
		}
		if p.SolReserve, err = fixedpoint.Sub(p.SolReserve, amountOut); err != nil {
			return nil, err
		}
	}
	e.log.Info("swap", "inputIsBase", inputIsBase, "amountIn", amountIn.String(), "amountOut", amountOut.String())
	direction := "token_to_base"
	if inputIsBase {
		direction = "base_to_token"
	}
	e.telemetry.ObserveSwap(p.TokenMint.String(), direction)
	return amountOut, nil
}
