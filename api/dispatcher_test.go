package api

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/facemelt/engine/native/common"
	"github.com/facemelt/engine/native/position"
	"github.com/facemelt/engine/store"
)

func newTestDispatcher() *Dispatcher {
	return NewDispatcher(store.NewMemStore(), common.Quota{}, nil)
}

// TestDispatcherBondingCurveFillExactGraduates drives spec.md §8 scenario 1
// end to end through the public command surface.
func TestDispatcherBondingCurveFillExactGraduates(t *testing.T) {
	d := newTestDispatcher()
	mint := solana.PublicKey{1}
	targetBase := uint256.NewInt(200_000_000_000)
	targetTokens := uint256.NewInt(280_000_000_000_000)
	totalSupply := new(uint256.Int).Mul(targetTokens, uint256.NewInt(2))

	_, err := d.LaunchOnCurve(LaunchOnCurveRequest{
		Authority:    solana.PublicKey{0},
		Mint:         mint,
		Vault:        solana.PublicKey{2},
		TotalSupply:  totalSupply,
		TargetBase:   targetBase,
		TargetTokens: targetTokens,
	})
	require.NoError(t, err)

	_, err = d.SwapOnCurve(SwapOnCurveRequest{
		Mint: mint, AmountIn: uint256.NewInt(100_000_000_000), InputIsBase: true, Now: 1000,
	})
	require.NoError(t, err)

	resp, err := d.SwapOnCurve(SwapOnCurveRequest{
		Mint: mint, AmountIn: uint256.NewInt(100_000_000_000), InputIsBase: true, Now: 1001,
	})
	require.NoError(t, err)
	require.True(t, resp.Graduated, "expected graduation flagged on the response")

	pool, err := d.store.LoadPool(mint)
	require.NoError(t, err)
	require.Equal(t, uint64(200_000_000_000), pool.EffectiveSolReserve.Uint64())
	require.Equal(t, uint64(140_000_000_000_000), pool.EffectiveTokenReserve.Uint64())

	_, err = d.store.LoadCurve(mint)
	require.ErrorIs(t, err, store.ErrNotFound, "expected curve record retired after graduation")
}

// TestDispatcherLeverageOpenCloseParity drives spec.md §8 scenario 4 and
// property P6 (nonce collisions rejected) through the dispatcher.
func TestDispatcherLeverageOpenCloseParity(t *testing.T) {
	d := newTestDispatcher()
	mint := solana.PublicKey{9}
	authority := solana.PublicKey{10}

	_, err := d.LaunchDirect(LaunchDirectRequest{
		Authority:   solana.PublicKey{0},
		Mint:        mint,
		Vault:       solana.PublicKey{11},
		InitialBase: uint256.NewInt(1_000_000_000_000),
		TotalSupply: uint256.NewInt(1_000_000_000_000_000_000),
	})
	require.NoError(t, err)

	openResp, err := d.LeverageSwap(LeverageSwapRequest{
		Mint:           mint,
		Authority:      authority,
		Collateral:     uint256.NewInt(20_000_000_000),
		MinSizeOut:     uint256.NewInt(0),
		IsLong:         true,
		LeverageTenths: 50,
		Nonce:          1,
		Now:            1000,
	})
	require.NoError(t, err)

	_, err = d.LeverageSwap(LeverageSwapRequest{
		Mint: mint, Authority: authority, Collateral: uint256.NewInt(1_000_000),
		MinSizeOut: uint256.NewInt(0), IsLong: true, LeverageTenths: 50, Nonce: 1, Now: 1000,
	})
	require.ErrorIs(t, err, ErrNonceAlreadyUsed)

	closeResp, err := d.ClosePosition(ClosePositionRequest{
		PositionID: openResp.Position.ID,
		Caller:     authority,
		Now:        1000,
	})
	require.NoError(t, err)
	require.False(t, closeResp.Payout.IsZero(), "expected non-zero payout on immediate close")
	require.InDelta(t, float64(20_000_000_000), float64(closeResp.Payout.Uint64()), 20_000_000_000/10_000, "expected payout within 0.01% of collateral")

	_, err = d.store.LoadPosition(openResp.Position.ID)
	require.ErrorIs(t, err, store.ErrNotFound, "expected position deleted after close")
}

// TestDispatcherLiquidateBlockedByEMADivergence drives spec.md §8 scenario 5:
// a manipulated spot dump must block liquidate but never block close.
func TestDispatcherLiquidateBlockedByEMADivergence(t *testing.T) {
	d := newTestDispatcher()
	mint := solana.PublicKey{20}
	authority := solana.PublicKey{21}

	_, err := d.LaunchDirect(LaunchDirectRequest{
		Authority:   solana.PublicKey{0},
		Mint:        mint,
		Vault:       solana.PublicKey{22},
		InitialBase: uint256.NewInt(1_000_000_000_000),
		TotalSupply: uint256.NewInt(1_000_000_000_000_000_000),
	})
	require.NoError(t, err)

	openResp, err := d.LeverageSwap(LeverageSwapRequest{
		Mint: mint, Authority: authority, Collateral: uint256.NewInt(10_000_000_000),
		MinSizeOut: uint256.NewInt(0), IsLong: true, LeverageTenths: 30, Nonce: 1, Now: 1000,
	})
	require.NoError(t, err)

	dumpAmount := uint256.NewInt(280_000_000_000_000_000)
	_, err = d.Swap(SwapRequest{
		Mint: mint, AmountIn: dumpAmount, MinAmountOut: uint256.NewInt(0), InputIsBase: false, Now: 1001,
	})
	require.NoError(t, err)

	_, err = d.Liquidate(LiquidateRequest{
		PositionID: openResp.Position.ID, Liquidator: solana.PublicKey{99}, Now: 1002,
	})
	require.ErrorIs(t, err, position.ErrLiquidationPriceManipulation)

	_, err = d.ClosePosition(ClosePositionRequest{
		PositionID: openResp.Position.ID, Caller: authority, Now: 1003,
	})
	require.NoError(t, err, "close must still succeed once liquidate is blocked")
}
