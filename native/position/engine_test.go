package position

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"github.com/facemelt/engine/fixedpoint"
	"github.com/facemelt/engine/native/pool"
)

func newLivePool(solReserve, tokenReserve uint64) *pool.Pool {
	p := pool.New(solana.PublicKey{}, solana.PublicKey{}, solana.PublicKey{}, pool.DefaultFundingConstantC(), pool.DefaultLiquidationDivergenceThresholdPct)
	p.Status = pool.StatusLive
	p.SolReserve = fixedpoint.FromUint64(solReserve)
	p.TokenReserve = fixedpoint.FromUint64(tokenReserve)
	p.EffectiveSolReserve = fixedpoint.FromUint64(solReserve)
	p.EffectiveTokenReserve = fixedpoint.FromUint64(tokenReserve)
	return p
}

func TestOpenRejectsLeverageOutOfRange(t *testing.T) {
	pools := pool.NewEngine(nil)
	e := NewEngine(pools, nil)
	p := newLivePool(1000_000_000_000, 1_000_000_000_000)
	authority := solana.PublicKey{1}

	if _, err := e.Open(p, authority, fixedpoint.FromUint64(20_000_000_000), true, 5, fixedpoint.Zero(), 1, 1000); err != ErrInvalidLeverage {
		t.Fatalf("expected ErrInvalidLeverage for leverage below 1.0x, got %v", err)
	}
	if _, err := e.Open(p, authority, fixedpoint.FromUint64(20_000_000_000), true, MaxLeverageTenths+1, fixedpoint.Zero(), 1, 1000); err != ErrInvalidLeverage {
		t.Fatalf("expected ErrInvalidLeverage above cap, got %v", err)
	}
}

func TestOpenCloseParity(t *testing.T) {
	pools := pool.NewEngine(nil)
	e := NewEngine(pools, nil)
	p := newLivePool(1000_000_000_000, 1_000_000_000_000_000_000)
	authority := solana.PublicKey{1}

	kBefore, err := fixedpoint.Mul(p.EffectiveSolReserve, p.EffectiveTokenReserve)
	if err != nil {
		t.Fatalf("Mul: %v", err)
	}

	pos, err := e.Open(p, authority, fixedpoint.FromUint64(20_000_000_000), true, 50, fixedpoint.Zero(), 1, 1000)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	payout, err := e.Close(p, pos, authority, 1000)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}

	kAfter, err := fixedpoint.Mul(p.EffectiveSolReserve, p.EffectiveTokenReserve)
	if err != nil {
		t.Fatalf("Mul: %v", err)
	}

	// K must return within a small tolerance of its pre-open value (no
	// funding elapsed between open and close, so no funding credit either).
	kDelta := absDiff(kBefore, kAfter)
	tolerance := fixedpoint.FromUint64(1_000_000) // generous ulp tolerance on a ~1e30 product
	if kDelta.Gt(tolerance) {
		t.Fatalf("K drifted by %s across open+close", kDelta)
	}

	collateral := fixedpoint.FromUint64(20_000_000_000)
	payoutDelta := absDiff(payout, collateral)
	// 0.01% of collateral tolerance.
	payoutTolerance, err := fixedpoint.Div(collateral, fixedpoint.FromUint64(10_000))
	if err != nil {
		t.Fatalf("Div: %v", err)
	}
	if payoutDelta.Gt(payoutTolerance) {
		t.Fatalf("expected payout close to collateral, got payout=%s collateral=%s", payout, collateral)
	}
}

func TestCloseRejectsNonAuthority(t *testing.T) {
	pools := pool.NewEngine(nil)
	e := NewEngine(pools, nil)
	p := newLivePool(1000_000_000_000, 1_000_000_000_000_000_000)
	authority := solana.PublicKey{1}
	other := solana.PublicKey{2}

	pos, err := e.Open(p, authority, fixedpoint.FromUint64(20_000_000_000), true, 50, fixedpoint.Zero(), 1, 1000)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := e.Close(p, pos, other, 1000); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestLiquidateBlockedByEMADivergence(t *testing.T) {
	pools := pool.NewEngine(nil)
	e := NewEngine(pools, nil)
	p := newLivePool(1000_000_000_000, 1_000_000_000_000_000_000)
	authority := solana.PublicKey{1}

	pos, err := e.Open(p, authority, fixedpoint.FromUint64(10_000_000_000), true, 30, fixedpoint.Zero(), 1, 1000)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	// Force a diverged EMA well above current spot to simulate a price dump.
	p.EMAInitialized = true
	p.EMAPrice = fixedpoint.One()

	if _, err := e.Liquidate(p, pos, solana.PublicKey{9}, 1001); err != ErrLiquidationPriceManipulation {
		t.Fatalf("expected ErrLiquidationPriceManipulation, got %v", err)
	}
}

func absDiff(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return new(uint256.Int).Sub(b, a)
	}
	return new(uint256.Int).Sub(a, b)
}
