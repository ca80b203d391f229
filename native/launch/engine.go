// Package launch wires the two pool creation paths named in spec.md §4.E:
// a direct launch straight onto the live AMM, and a bonding-curve launch
// that graduates into the live AMM once its target is reached.
package launch

import (
	"errors"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"github.com/facemelt/engine/fixedpoint"
	"github.com/facemelt/engine/native/curve"
	"github.com/facemelt/engine/native/pool"
)

const moduleName = "launch"

// ErrInvalidInitialDeposit is returned by LaunchDirect when the caller
// supplies a zero initial BASE deposit or zero token supply.
var ErrInvalidInitialDeposit = errors.New("launch engine: invalid initial deposit or supply")

// Engine wires curve.Engine into the two pool-creation entry points.
type Engine struct {
	log    *slog.Logger
	curves *curve.Engine
}

// NewEngine constructs a launch engine. A nil logger falls back to
// slog.Default().
func NewEngine(curves *curve.Engine, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{curves: curves, log: log.With("module", moduleName)}
}

// LaunchDirect creates a Live Pool with the caller-supplied initial BASE
// deposited into both real and effective reserves, and the fixed token
// supply minted to both the vault and the effective token reserve.
func (e *Engine) LaunchDirect(authority, mint, vault solana.PublicKey, initialBase, totalSupply *uint256.Int, fundingConstantC *uint256.Int, liqThresholdPct uint64) (*pool.Pool, error) {
	if initialBase.IsZero() || totalSupply.IsZero() {
		return nil, ErrInvalidInitialDeposit
	}
	if fundingConstantC == nil {
		fundingConstantC = pool.DefaultFundingConstantC()
	}
	if liqThresholdPct == 0 {
		liqThresholdPct = pool.DefaultLiquidationDivergenceThresholdPct
	}

	p := pool.New(authority, mint, vault, fundingConstantC, liqThresholdPct)
	p.SolReserve = new(uint256.Int).Set(initialBase)
	p.EffectiveSolReserve = new(uint256.Int).Set(initialBase)
	p.TokenReserve = new(uint256.Int).Set(totalSupply)
	p.EffectiveTokenReserve = new(uint256.Int).Set(totalSupply)
	p.Status = pool.StatusLive

	e.log.Info("pool launched directly", "initialBase", initialBase.String(), "totalSupply", totalSupply.String())
	return p, nil
}

// LaunchOnCurve creates an Uninitialized Pool and an Active BondingCurve;
// the token trades on the curve until graduation transitions the pool to
// Live (native/curve.Engine.Graduate, invoked internally by Buy).
func (e *Engine) LaunchOnCurve(authority, mint, vault solana.PublicKey, totalSupply, targetBase, targetTokens *uint256.Int, fundingConstantC *uint256.Int, liqThresholdPct uint64) (*pool.Pool, *curve.BondingCurve, error) {
	if fundingConstantC == nil {
		fundingConstantC = pool.DefaultFundingConstantC()
	}
	if liqThresholdPct == 0 {
		liqThresholdPct = pool.DefaultLiquidationDivergenceThresholdPct
	}
	p, c, err := e.curves.Launch(authority, mint, vault, totalSupply, targetBase, targetTokens, fundingConstantC, liqThresholdPct)
	if err != nil {
		return nil, nil, err
	}
	e.log.Info("pool launched on curve", "targetBase", targetBase.String(), "targetTokens", targetTokens.String())
	return p, c, nil
}

// DefaultTargetBase and DefaultTargetTokens are the curve defaults named in
// spec.md §6: 200 BASE units and 280M six-decimal tokens.
var (
	DefaultTargetBase   = fixedpoint.FromUint64(200_000_000_000)
	DefaultTargetTokens = fixedpoint.FromUint64(280_000_000_000_000)
)
