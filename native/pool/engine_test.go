package pool

import (
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/facemelt/engine/fixedpoint"
)

func newLivePool(solReserve, tokenReserve uint64) *Pool {
	p := New(solana.PublicKey{}, solana.PublicKey{}, solana.PublicKey{}, DefaultFundingConstantC(), DefaultLiquidationDivergenceThresholdPct)
	p.Status = StatusLive
	p.SolReserve = fixedpoint.FromUint64(solReserve)
	p.TokenReserve = fixedpoint.FromUint64(tokenReserve)
	p.EffectiveSolReserve = fixedpoint.FromUint64(solReserve)
	p.EffectiveTokenReserve = fixedpoint.FromUint64(tokenReserve)
	return p
}

func TestUpdateFundingNoOpWithoutDebt(t *testing.T) {
	e := NewEngine(nil)
	p := newLivePool(1000, 1_000_000)
	p.LastUpdatedTimestamp = 100
	if err := e.UpdateFunding(p, 200); err != nil {
		t.Fatalf("UpdateFunding: %v", err)
	}
	if p.LastUpdatedTimestamp != 200 {
		t.Fatalf("expected timestamp advanced, got %d", p.LastUpdatedTimestamp)
	}
	if !p.EMAInitialized {
		t.Fatalf("expected EMA seeded on first update")
	}
}

func TestUpdateFundingAccumulatorMonotonic(t *testing.T) {
	e := NewEngine(nil)
	p := newLivePool(1000, 1_000_000)
	p.TotalDeltaKLongs = fixedpoint.FromUint64(1000 * 1_000_000 / 10) // 10% of K outstanding as debt
	p.LastUpdatedTimestamp = 0

	prevAcc := fixedpoint.Zero()
	prevK, _ := fixedpoint.Mul(p.EffectiveSolReserve, p.EffectiveTokenReserve)
	for i := int64(1); i <= 5; i++ {
		if err := e.UpdateFunding(p, i*60); err != nil {
			t.Fatalf("UpdateFunding: %v", err)
		}
		if p.CumulativeFundingAccumulator.Lt(prevAcc) {
			t.Fatalf("accumulator decreased at step %d", i)
		}
		k, err := fixedpoint.Mul(p.EffectiveSolReserve, p.EffectiveTokenReserve)
		if err != nil {
			t.Fatalf("Mul: %v", err)
		}
		if k.Lt(prevK) {
			t.Fatalf("K decreased from funding alone at step %d", i)
		}
		prevAcc = p.CumulativeFundingAccumulator
		prevK = k
	}
	if prevAcc.IsZero() {
		t.Fatalf("expected accumulator to have advanced")
	}
	if prevAcc.Gt(fixedpoint.Precision) {
		t.Fatalf("accumulator exceeded PRECISION: %s", prevAcc)
	}
}

func TestCalculateOutputConstantProduct(t *testing.T) {
	out, err := CalculateOutput(fixedpoint.FromUint64(1000), fixedpoint.FromUint64(1000), fixedpoint.FromUint64(100))
	if err != nil {
		t.Fatalf("CalculateOutput: %v", err)
	}
	// 1000 - (1000*1000)/(1100) = 1000 - 909 = 91
	if out.Uint64() != 91 {
		t.Fatalf("expected 91, got %s", out)
	}
}

func TestCheckLiquidationSafetyBlocksOnDivergence(t *testing.T) {
	p := newLivePool(700, 1_000_000)
	p.EMAInitialized = true
	p.EMAPrice = fixedpoint.One() // EMA at a much higher price than spot
	safe, err := CheckLiquidationSafety(p)
	if err != nil {
		t.Fatalf("CheckLiquidationSafety: %v", err)
	}
	if safe {
		t.Fatalf("expected unsafe due to divergence")
	}
}

func TestCheckLiquidationSafetyWhenSpotAboveEMA(t *testing.T) {
	p := newLivePool(1000, 1000)
	p.EMAInitialized = true
	p.EMAPrice = fixedpoint.Zero()
	safe, err := CheckLiquidationSafety(p)
	if err != nil {
		t.Fatalf("CheckLiquidationSafety: %v", err)
	}
	if !safe {
		t.Fatalf("expected safe when spot >= EMA")
	}
}

func TestSwapSlippageRejected(t *testing.T) {
	e := NewEngine(nil)
	p := newLivePool(1000, 1000)
	_, err := e.Swap(p, fixedpoint.FromUint64(100), true, fixedpoint.FromUint64(1000), 1)
	if err != ErrSlippageExceeded {
		t.Fatalf("expected ErrSlippageExceeded, got %v", err)
	}
}

func TestSwapUpdatesReservesInParity(t *testing.T) {
	e := NewEngine(nil)
	p := newLivePool(1000, 1000)
	out, err := e.Swap(p, fixedpoint.FromUint64(100), true, fixedpoint.Zero(), 1)
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}
	if out.Uint64() != 91 {
		t.Fatalf("expected 91, got %s", out)
	}
	if p.SolReserve.Cmp(p.EffectiveSolReserve) != 0 || p.TokenReserve.Cmp(p.EffectiveTokenReserve) != 0 {
		t.Fatalf("real and effective reserves diverged on a plain spot swap")
	}
}
