package launch

import (
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/facemelt/engine/fixedpoint"
	"github.com/facemelt/engine/native/curve"
	"github.com/facemelt/engine/native/pool"
)

func TestLaunchDirectCreatesLivePool(t *testing.T) {
	e := NewEngine(curve.NewEngine(nil), nil)
	p, err := e.LaunchDirect(solana.PublicKey{}, solana.PublicKey{}, solana.PublicKey{}, fixedpoint.FromUint64(100_000_000_000), fixedpoint.FromUint64(1_000_000_000_000), nil, 0)
	if err != nil {
		t.Fatalf("LaunchDirect: %v", err)
	}
	if p.Status != pool.StatusLive {
		t.Fatalf("expected pool live immediately after direct launch")
	}
	if p.EffectiveSolReserve.Uint64() != 100_000_000_000 {
		t.Fatalf("unexpected effective sol reserve: %s", p.EffectiveSolReserve)
	}
}

func TestLaunchDirectRejectsZeroDeposit(t *testing.T) {
	e := NewEngine(curve.NewEngine(nil), nil)
	_, err := e.LaunchDirect(solana.PublicKey{}, solana.PublicKey{}, solana.PublicKey{}, fixedpoint.Zero(), fixedpoint.FromUint64(1_000_000_000_000), nil, 0)
	if err != ErrInvalidInitialDeposit {
		t.Fatalf("expected ErrInvalidInitialDeposit, got %v", err)
	}
}

func TestLaunchOnCurveCreatesUninitializedPool(t *testing.T) {
	e := NewEngine(curve.NewEngine(nil), nil)
	totalSupply := fixedpoint.FromUint64(560_000_000_000_000)
	p, c, err := e.LaunchOnCurve(solana.PublicKey{}, solana.PublicKey{}, solana.PublicKey{}, totalSupply, DefaultTargetBase, DefaultTargetTokens, nil, 0)
	if err != nil {
		t.Fatalf("LaunchOnCurve: %v", err)
	}
	if p.Status != pool.StatusUninitialized {
		t.Fatalf("expected pool uninitialized before graduation")
	}
	if c.Status != curve.StatusActive {
		t.Fatalf("expected curve active")
	}
}
