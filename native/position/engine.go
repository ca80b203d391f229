package position

import (
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/facemelt/engine/fixedpoint"
	"github.com/facemelt/engine/native/pool"
	"github.com/facemelt/engine/observability/logging"
	"github.com/facemelt/engine/observability/metrics"
)

const moduleName = "position"

// Engine is a stateless collection of the leveraged position state
// transitions. It depends on pool.Engine for the funding update and
// constant-product math a leveraged trade is settled against.
type Engine struct {
	log       *slog.Logger
	pools     *pool.Engine
	telemetry *metrics.EngineMetrics
}

// NewEngine constructs a position engine wired to the given pool engine for
// funding updates and reserve math.
func NewEngine(pools *pool.Engine, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{pools: pools, log: log.With("module", moduleName), telemetry: metrics.Engine()}
}

// Open creates a leveraged position by mutating the pool's effective
// reserves only; the real reserve on the input side receives the
// collateral, but the virtual output side is never actually paid out.
func (e *Engine) Open(p *pool.Pool, authority solana.PublicKey, collateral *uint256.Int, isLong bool, leverageTenths uint64, minSizeOut *uint256.Int, nonce uint64, now int64) (*Position, error) {
	if p.Status != pool.StatusLive {
		return nil, pool.ErrPoolNotLive
	}
	if collateral.IsZero() {
		return nil, ErrInvalidCollateral
	}
	if leverageTenths < MinLeverageTenths || leverageTenths > MaxLeverageTenths {
		return nil, ErrInvalidLeverage
	}
	if err := e.pools.UpdateFunding(p, now); err != nil {
		return nil, err
	}

	notional, err := fixedpoint.MulDiv(collateral, fixedpoint.FromUint64(leverageTenths), fixedpoint.FromUint64(10))
	if err != nil {
		return nil, err
	}

	var reserveIn, reserveOut *uint256.Int
	if isLong {
		reserveIn, reserveOut = p.EffectiveSolReserve, p.EffectiveTokenReserve
	} else {
		reserveIn, reserveOut = p.EffectiveTokenReserve, p.EffectiveSolReserve
	}
	size, err := pool.CalculateOutput(reserveIn, reserveOut, notional)
	if err != nil {
		return nil, err
	}
	if size.Lt(minSizeOut) {
		return nil, ErrSlippageExceeded
	}

	kBefore, err := fixedpoint.Mul(p.EffectiveSolReserve, p.EffectiveTokenReserve)
	if err != nil {
		return nil, err
	}

	if isLong {
		if p.EffectiveSolReserve, err = fixedpoint.Add(p.EffectiveSolReserve, collateral); err != nil {
			return nil, err
		}
		if p.EffectiveTokenReserve, err = fixedpoint.Sub(p.EffectiveTokenReserve, size); err != nil {
			return nil, err
		}
		if p.SolReserve, err = fixedpoint.Add(p.SolReserve, collateral); err != nil {
			return nil, err
		}
	} else {
		if p.EffectiveTokenReserve, err = fixedpoint.Add(p.EffectiveTokenReserve, collateral); err != nil {
			return nil, err
		}
		if p.EffectiveSolReserve, err = fixedpoint.Sub(p.EffectiveSolReserve, size); err != nil {
			return nil, err
		}
		if p.TokenReserve, err = fixedpoint.Add(p.TokenReserve, collateral); err != nil {
			return nil, err
		}
	}

	kAfter, err := fixedpoint.Mul(p.EffectiveSolReserve, p.EffectiveTokenReserve)
	if err != nil {
		return nil, err
	}
	deltaK, err := fixedpoint.Sub(kBefore, kAfter)
	if err != nil {
		return nil, err
	}

	if isLong {
		if p.TotalDeltaKLongs, err = fixedpoint.Add(p.TotalDeltaKLongs, deltaK); err != nil {
			return nil, err
		}
	} else {
		if p.TotalDeltaKShorts, err = fixedpoint.Add(p.TotalDeltaKShorts, deltaK); err != nil {
			return nil, err
		}
	}

	pos := &Position{
		ID:                      uuid.New(),
		Mint:                    p.TokenMint,
		Authority:               authority,
		IsLong:                  isLong,
		Collateral:              new(uint256.Int).Set(collateral),
		Size:                    size,
		DeltaK:                  deltaK,
		EntryFundingAccumulator: new(uint256.Int).Set(p.CumulativeFundingAccumulator),
		Nonce:                   nonce,
	}
	e.log.Info("position opened", "id", pos.ID, logging.MaskField("authority", authority.String()), "isLong", isLong, "size", size.String(), "deltaK", deltaK.String())
	e.telemetry.ObservePositionOpened(p.TokenMint.String(), isLong)
	return pos, nil
}

// effectiveAmounts recomputes a position's effective size and effective
// delta-K against the pool's current funding accumulator without mutating
// the stored fields.
func (e *Engine) effectiveAmounts(p *pool.Pool, pos *Position) (effectiveSize, effectiveDeltaK *uint256.Int, err error) {
	remaining, err := pool.RemainingFactor(p, pos.EntryFundingAccumulator)
	if err != nil {
		return nil, nil, err
	}
	if effectiveSize, err = fixedpoint.QMul(pos.Size, remaining); err != nil {
		return nil, nil, err
	}
	if effectiveDeltaK, err = fixedpoint.QMul(pos.DeltaK, remaining); err != nil {
		return nil, nil, err
	}
	return effectiveSize, effectiveDeltaK, nil
}

// settlePayout computes the close/liquidate payout in the output asset
// without mutating the pool; applySettlement applies the mirror of the
// open-time accounting. It floors the payout at
// zero rather than erroring when decay has pushed it negative, since that
// is an expected economic outcome (the position is wiped out), not an
// arithmetic fault.
func settlePayout(p *pool.Pool, pos *Position, effectiveSize, effectiveDeltaK *uint256.Int) (*uint256.Int, error) {
	var numerator, denominator *uint256.Int
	var err error
	if pos.IsLong {
		gross, mulErr := fixedpoint.Mul(p.EffectiveSolReserve, effectiveSize)
		if mulErr != nil {
			return nil, mulErr
		}
		numerator = subFloorZero(gross, effectiveDeltaK)
		if denominator, err = fixedpoint.Add(p.EffectiveTokenReserve, effectiveSize); err != nil {
			return nil, err
		}
	} else {
		gross, mulErr := fixedpoint.Mul(p.EffectiveTokenReserve, effectiveSize)
		if mulErr != nil {
			return nil, mulErr
		}
		numerator = subFloorZero(gross, effectiveDeltaK)
		if denominator, err = fixedpoint.Add(p.EffectiveSolReserve, effectiveSize); err != nil {
			return nil, err
		}
	}
	if denominator.IsZero() {
		return nil, pool.ErrZeroReserve
	}
	return fixedpoint.Div(numerator, denominator)
}

func subFloorZero(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return fixedpoint.Zero()
	}
	return new(uint256.Int).Sub(a, b)
}

// applySettlement subtracts effectiveDeltaK from the pool's corresponding
// debt counter and mirrors the open-time reserve mutation, crediting the
// output side back and debiting the real reserve that funds the payout.
func applySettlement(p *pool.Pool, pos *Position, effectiveSize, effectiveDeltaK, payout *uint256.Int) error {
	var err error
	if pos.IsLong {
		if p.TotalDeltaKLongs, err = fixedpoint.Sub(p.TotalDeltaKLongs, effectiveDeltaK); err != nil {
			return err
		}
		if p.EffectiveTokenReserve, err = fixedpoint.Add(p.EffectiveTokenReserve, effectiveSize); err != nil {
			return err
		}
		if p.EffectiveSolReserve, err = fixedpoint.Sub(p.EffectiveSolReserve, payout); err != nil {
			return err
		}
		if p.SolReserve, err = fixedpoint.Sub(p.SolReserve, payout); err != nil {
			return err
		}
	} else {
		if p.TotalDeltaKShorts, err = fixedpoint.Sub(p.TotalDeltaKShorts, effectiveDeltaK); err != nil {
			return err
		}
		if p.EffectiveSolReserve, err = fixedpoint.Add(p.EffectiveSolReserve, effectiveSize); err != nil {
			return err
		}
		if p.EffectiveTokenReserve, err = fixedpoint.Sub(p.EffectiveTokenReserve, payout); err != nil {
			return err
		}
		if p.TokenReserve, err = fixedpoint.Sub(p.TokenReserve, payout); err != nil {
			return err
		}
	}
	return nil
}

// Close settles a position at the request of its authority.
func (e *Engine) Close(p *pool.Pool, pos *Position, caller solana.PublicKey, now int64) (*uint256.Int, error) {
	if caller != pos.Authority {
		return nil, ErrUnauthorized
	}
	if err := e.pools.UpdateFunding(p, now); err != nil {
		return nil, err
	}
	effectiveSize, effectiveDeltaK, err := e.effectiveAmounts(p, pos)
	if err != nil {
		return nil, err
	}
	payout, err := settlePayout(p, pos, effectiveSize, effectiveDeltaK)
	if err != nil {
		return nil, err
	}
	if err := applySettlement(p, pos, effectiveSize, effectiveDeltaK, payout); err != nil {
		return nil, err
	}
	e.log.Info("position closed", "id", pos.ID, "payout", payout.String())
	e.telemetry.ObservePositionClosed(p.TokenMint.String(), pos.IsLong)
	return payout, nil
}

// Liquidate settles a position on behalf of a permissionless liquidator,
// gated by the EMA manipulation check and the 5% gross-value threshold.
func (e *Engine) Liquidate(p *pool.Pool, pos *Position, liquidator solana.PublicKey, now int64) (*uint256.Int, error) {
	if err := e.pools.UpdateFunding(p, now); err != nil {
		return nil, err
	}
	safe, err := pool.CheckLiquidationSafety(p)
	if err != nil {
		return nil, err
	}
	if !safe {
		return nil, ErrLiquidationPriceManipulation
	}

	effectiveSize, effectiveDeltaK, err := e.effectiveAmounts(p, pos)
	if err != nil {
		return nil, err
	}

	var grossValue *uint256.Int
	if pos.IsLong {
		grossValue, err = pool.CalculateOutput(p.EffectiveTokenReserve, p.EffectiveSolReserve, effectiveSize)
	} else {
		grossValue, err = pool.CalculateOutput(p.EffectiveSolReserve, p.EffectiveTokenReserve, effectiveSize)
	}
	if err != nil {
		return nil, err
	}

	payout, err := settlePayout(p, pos, effectiveSize, effectiveDeltaK)
	if err != nil {
		return nil, err
	}
	if payout.IsZero() {
		return nil, ErrPositionUnderwater
	}

	threshold, err := fixedpoint.MulDiv(grossValue, fixedpoint.FromUint64(5), fixedpoint.FromUint64(100))
	if err != nil {
		return nil, err
	}
	if payout.Gt(threshold) {
		return nil, ErrPositionNotLiquidatable
	}

	if err := applySettlement(p, pos, effectiveSize, effectiveDeltaK, payout); err != nil {
		return nil, err
	}
	e.log.Info("position liquidated", "id", pos.ID, logging.MaskField("liquidator", liquidator.String()), "payout", payout.String())
	e.telemetry.ObserveLiquidation(p.TokenMint.String(), "margin_below_threshold")
	return payout, nil
}
