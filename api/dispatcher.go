package api

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"github.com/facemelt/engine/core/events"
	"github.com/facemelt/engine/fixedpoint"
	"github.com/facemelt/engine/native/common"
	"github.com/facemelt/engine/native/curve"
	"github.com/facemelt/engine/native/launch"
	"github.com/facemelt/engine/native/pool"
	"github.com/facemelt/engine/native/position"
	"github.com/facemelt/engine/observability/logging"
	"github.com/facemelt/engine/observability/metrics"
	"github.com/facemelt/engine/store"
)

// ErrQuotaNotConfigured reports a missing quota configuration. Neither
// NewDispatcher nor any dispatch method returns it: a zero Quota is treated
// as "unlimited".
var ErrQuotaNotConfigured = errors.New("api: quota must be non-zero or explicitly Quota{}")

// ErrNonceAlreadyUsed is returned by LeverageSwap when the (mint, authority,
// nonce) triple already backs an open position, per spec.md P6.
var ErrNonceAlreadyUsed = errors.New("api: nonce already used by an open position")

const moduleName = "api"

// Dispatcher routes each of the seven external commands to the
// corresponding native engine, handling load/save through a Store, event
// emission, command metrics, and per-authority rate limiting. It never
// holds business state itself — every mutation happens on a record loaded
// fresh from the Store and is persisted back before the method returns.
type Dispatcher struct {
	log *slog.Logger

	store     store.Store
	pools     *pool.Engine
	curves    *curve.Engine
	positions *position.Engine
	launches  *launch.Engine

	emitter    events.Emitter
	cmdMetrics *metrics.CommandMetrics

	quota      common.Quota
	quotaMu    sync.Mutex
	quotaNow   map[solana.PublicKey]common.QuotaNow
	reqLimiter *common.RequestLimiter
}

// NewDispatcher wires the four native engines together: position depends on
// pool for funding updates, and launch depends on curve for the
// bonding-curve launch path. Passing a zero Quota disables rate limiting. A
// nil log builds one via logging.Setup rather than falling back to
// slog.Default(), so every deployment gets the same JSON handler and
// severity remapping regardless of how it constructs the dispatcher.
func NewDispatcher(s store.Store, quota common.Quota, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = logging.Setup("facemelt-engine", "")
	}
	log = log.With("module", moduleName)
	poolEngine := pool.NewEngine(log)
	curveEngine := curve.NewEngine(log)
	return &Dispatcher{
		log:        log,
		store:      s,
		pools:      poolEngine,
		curves:     curveEngine,
		positions:  position.NewEngine(poolEngine, log),
		launches:   launch.NewEngine(curveEngine, log),
		emitter:    events.NoopEmitter{},
		cmdMetrics: metrics.Command(),
		quota:      quota,
		quotaNow:   make(map[solana.PublicKey]common.QuotaNow),
		reqLimiter: common.NewRequestLimiter(quota),
	}
}

// SetEmitter configures the event emitter used by the dispatcher. Passing
// nil resets it to a NoopEmitter.
func (d *Dispatcher) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	d.emitter = emitter
}

// checkQuota enforces the per-authority request and volume limits. A zero
// Dispatcher.quota disables the check entirely.
func (d *Dispatcher) checkQuota(authority solana.PublicKey, now int64, volume uint64) error {
	if d.quota.MaxRequestsPerMin == 0 && d.quota.MaxVolumePerEpoch == 0 {
		return nil
	}
	if !d.reqLimiter.Allow(authority) {
		return common.ErrRequestRateExceeded
	}
	epochSeconds := d.quota.EpochSeconds
	if epochSeconds == 0 {
		epochSeconds = 60
	}
	nowEpoch := uint64(now) / uint64(epochSeconds)

	d.quotaMu.Lock()
	defer d.quotaMu.Unlock()
	next, err := common.CheckQuota(d.quota, nowEpoch, d.quotaNow[authority], 1, volume)
	if err != nil {
		return err
	}
	d.quotaNow[authority] = next
	return nil
}

// observe wraps a dispatch call with command metrics, recording outcome and
// latency regardless of how the call resolves.
func (d *Dispatcher) observe(command string, fn func() error) error {
	start := time.Now()
	err := fn()
	d.cmdMetrics.Observe(command, err, time.Since(start))
	return err
}

// LaunchDirect creates a Live pool with no bonding-curve phase and persists
// it, per spec.md §6's launch_direct command.
func (d *Dispatcher) LaunchDirect(req LaunchDirectRequest) (*LaunchDirectResponse, error) {
	var resp *LaunchDirectResponse
	err := d.observe("launch_direct", func() error {
		p, err := d.launches.LaunchDirect(req.Authority, req.Mint, req.Vault, req.InitialBase, req.TotalSupply, req.FundingConstantC, req.LiquidationDivergenceThresholdPct)
		if err != nil {
			return err
		}
		if err := d.store.SavePool(p); err != nil {
			return fmt.Errorf("api: save pool: %w", err)
		}
		d.emitter.Emit(events.PoolLaunched{Mint: req.Mint.String(), InitialBase: req.InitialBase.String()})
		resp = &LaunchDirectResponse{Pool: p}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// LaunchOnCurve creates an Uninitialized pool and an Active bonding curve
// and persists both, per spec.md §6's launch_on_curve command.
func (d *Dispatcher) LaunchOnCurve(req LaunchOnCurveRequest) (*LaunchOnCurveResponse, error) {
	var resp *LaunchOnCurveResponse
	err := d.observe("launch_on_curve", func() error {
		p, c, err := d.launches.LaunchOnCurve(req.Authority, req.Mint, req.Vault, req.TotalSupply, req.TargetBase, req.TargetTokens, req.FundingConstantC, req.LiquidationDivergenceThresholdPct)
		if err != nil {
			return err
		}
		if err := d.store.SavePool(p); err != nil {
			return fmt.Errorf("api: save pool: %w", err)
		}
		if err := d.store.SaveCurve(c); err != nil {
			return fmt.Errorf("api: save curve: %w", err)
		}
		d.emitter.Emit(events.BondingCurveLaunched{
			Mint:         req.Mint.String(),
			TargetBase:   c.TargetBase.String(),
			TargetTokens: c.TargetTokens.String(),
			Slope:        c.SlopeM.String(),
		})
		resp = &LaunchOnCurveResponse{Pool: p, Curve: c}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// SwapOnCurve executes a primary-market buy or sell, graduating the curve
// in place if the trade reaches a target, per spec.md §6's swap_on_curve
// command.
func (d *Dispatcher) SwapOnCurve(req SwapOnCurveRequest) (*SwapOnCurveResponse, error) {
	var resp *SwapOnCurveResponse
	err := d.observe("swap_on_curve", func() error {
		c, err := d.store.LoadCurve(req.Mint)
		if err != nil {
			return err
		}
		p, err := d.store.LoadPool(req.Mint)
		if err != nil {
			return err
		}

		wasActive := c.Status == curve.StatusActive

		var amountOut, refund *uint256.Int
		if req.InputIsBase {
			amountOut, refund, err = d.curves.Buy(p, c, req.AmountIn, req.Now)
		} else {
			amountOut, err = d.curves.Sell(c, req.AmountIn)
			refund = fixedpoint.Zero()
		}
		if err != nil {
			return err
		}

		if err := d.store.SavePool(p); err != nil {
			return fmt.Errorf("api: save pool: %w", err)
		}
		graduated := wasActive && c.Status == curve.StatusGraduated
		if !graduated {
			if err := d.store.SaveCurve(c); err != nil {
				return fmt.Errorf("api: save curve: %w", err)
			}
		}

		d.emitter.Emit(events.BondingCurveSwapped{
			Mint:            req.Mint.String(),
			IsBuy:           req.InputIsBase,
			In:              req.AmountIn.String(),
			Out:             amountOut.String(),
			TokensSoldAfter: c.TokensSold.String(),
			BaseRaisedAfter: c.BaseRaised.String(),
		})
		if graduated {
			lpTokens := new(uint256.Int).Div(c.TargetTokens, fixedpoint.FromUint64(2))
			d.emitter.Emit(events.BondingCurveGraduated{
				Mint:            req.Mint.String(),
				BaseRaisedFinal: c.BaseRaised.String(),
				LPTokens:        lpTokens.String(),
			})
		}
		resp = &SwapOnCurveResponse{AmountOut: amountOut, Refund: refund, Graduated: graduated}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Swap executes a live-phase constant-product trade, per spec.md §6's swap
// command.
func (d *Dispatcher) Swap(req SwapRequest) (*SwapResponse, error) {
	var resp *SwapResponse
	err := d.observe("swap", func() error {
		p, err := d.store.LoadPool(req.Mint)
		if err != nil {
			return err
		}
		if err := d.checkQuota(p.Authority, req.Now, req.AmountIn.Uint64()); err != nil {
			return err
		}
		amountOut, err := d.pools.Swap(p, req.AmountIn, req.InputIsBase, req.MinAmountOut, req.Now)
		if err != nil {
			return err
		}
		if err := d.store.SavePool(p); err != nil {
			return fmt.Errorf("api: save pool: %w", err)
		}
		d.emitter.Emit(events.Swapped{
			Mint:        req.Mint.String(),
			In:          req.AmountIn.String(),
			Out:         amountOut.String(),
			InputIsBase: req.InputIsBase,
		})
		resp = &SwapResponse{AmountOut: amountOut}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// LeverageSwap opens a leveraged long or short position, per spec.md §6's
// leverage_swap command. It fails if the (mint, authority, nonce) triple
// collides with an already-open position, per property P6.
func (d *Dispatcher) LeverageSwap(req LeverageSwapRequest) (*LeverageSwapResponse, error) {
	var resp *LeverageSwapResponse
	err := d.observe("leverage_swap", func() error {
		p, err := d.store.LoadPool(req.Mint)
		if err != nil {
			return err
		}
		if err := d.checkNonceUnique(req.Mint, req.Authority, req.Nonce); err != nil {
			return err
		}
		if err := d.checkQuota(req.Authority, req.Now, req.Collateral.Uint64()); err != nil {
			return err
		}
		pos, err := d.positions.Open(p, req.Authority, req.Collateral, req.IsLong, req.LeverageTenths, req.MinSizeOut, req.Nonce, req.Now)
		if err != nil {
			return err
		}
		if err := d.store.SavePool(p); err != nil {
			return fmt.Errorf("api: save pool: %w", err)
		}
		if err := d.store.SavePosition(pos); err != nil {
			return fmt.Errorf("api: save position: %w", err)
		}
		d.emitter.Emit(events.PositionOpened{
			PositionID: pos.ID.String(),
			IsLong:     pos.IsLong,
			Collateral: pos.Collateral.String(),
			Size:       pos.Size.String(),
			DeltaK:     pos.DeltaK.String(),
		})
		resp = &LeverageSwapResponse{Position: pos}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// checkNonceUnique enforces spec.md P6: a (pool, owner, nonce) triple may
// back at most one open position at a time.
func (d *Dispatcher) checkNonceUnique(mint, authority solana.PublicKey, nonce uint64) error {
	open, err := d.store.ListOpenPositions(mint)
	if err != nil {
		return err
	}
	for _, pos := range open {
		if pos.Authority == authority && pos.Nonce == nonce {
			return ErrNonceAlreadyUsed
		}
	}
	return nil
}

// ClosePosition voluntarily settles a position at its authority's request,
// per spec.md §6's close_position command.
func (d *Dispatcher) ClosePosition(req ClosePositionRequest) (*ClosePositionResponse, error) {
	var resp *ClosePositionResponse
	err := d.observe("close_position", func() error {
		pos, err := d.store.LoadPosition(req.PositionID)
		if err != nil {
			return err
		}
		p, err := d.store.LoadPool(pos.Mint)
		if err != nil {
			return err
		}
		payout, err := d.positions.Close(p, pos, req.Caller, req.Now)
		if err != nil {
			return err
		}
		if err := d.store.SavePool(p); err != nil {
			return fmt.Errorf("api: save pool: %w", err)
		}
		if err := d.store.DeletePosition(pos.ID); err != nil {
			return fmt.Errorf("api: delete position: %w", err)
		}
		d.emitter.Emit(events.PositionClosed{PositionID: pos.ID.String(), Payout: payout.String()})
		resp = &ClosePositionResponse{Payout: payout}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Liquidate permissionlessly settles an underwater position, per spec.md
// §6's liquidate command.
func (d *Dispatcher) Liquidate(req LiquidateRequest) (*LiquidateResponse, error) {
	var resp *LiquidateResponse
	err := d.observe("liquidate", func() error {
		pos, err := d.store.LoadPosition(req.PositionID)
		if err != nil {
			return err
		}
		p, err := d.store.LoadPool(pos.Mint)
		if err != nil {
			return err
		}
		payout, err := d.positions.Liquidate(p, pos, req.Liquidator, req.Now)
		if err != nil {
			return err
		}
		if err := d.store.SavePool(p); err != nil {
			return fmt.Errorf("api: save pool: %w", err)
		}
		if err := d.store.DeletePosition(pos.ID); err != nil {
			return fmt.Errorf("api: delete position: %w", err)
		}
		d.emitter.Emit(events.PositionLiquidated{
			PositionID: pos.ID.String(),
			Liquidator: req.Liquidator.String(),
			Reward:     payout.String(),
		})
		resp = &LiquidateResponse{Payout: payout}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
