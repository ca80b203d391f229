package store

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/facemelt/engine/fixedpoint"
	"github.com/facemelt/engine/native/curve"
	"github.com/facemelt/engine/native/pool"
	"github.com/facemelt/engine/native/position"
)

func newTestSqliteStore(t *testing.T) *SqliteStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	s, err := OpenSqliteStore(dsn)
	if err != nil {
		t.Fatalf("OpenSqliteStore: %v", err)
	}
	return s
}

func newTestLevelDBStore(t *testing.T) *LevelDBStore {
	t.Helper()
	s, err := OpenLevelDBStore(filepath.Join(t.TempDir(), "engine.leveldb"))
	if err != nil {
		t.Fatalf("OpenLevelDBStore: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	})
	return s
}

func testPool() *pool.Pool {
	p := pool.New(solana.PublicKey{1}, solana.PublicKey{2}, solana.PublicKey{3}, pool.DefaultFundingConstantC(), pool.DefaultLiquidationDivergenceThresholdPct)
	p.Status = pool.StatusLive
	p.SolReserve = fixedpoint.FromUint64(1_000_000)
	p.TokenReserve = fixedpoint.FromUint64(2_000_000)
	p.EffectiveSolReserve = fixedpoint.FromUint64(1_000_000)
	p.EffectiveTokenReserve = fixedpoint.FromUint64(2_000_000)
	return p
}

func runPoolRoundTrip(t *testing.T, s Store) {
	t.Helper()
	p := testPool()
	if err := s.SavePool(p); err != nil {
		t.Fatalf("SavePool: %v", err)
	}
	loaded, err := s.LoadPool(p.TokenMint)
	if err != nil {
		t.Fatalf("LoadPool: %v", err)
	}
	if loaded.SolReserve.Cmp(p.SolReserve) != 0 {
		t.Fatalf("sol reserve mismatch: got %s want %s", loaded.SolReserve, p.SolReserve)
	}
	if loaded.Status != pool.StatusLive {
		t.Fatalf("expected status live, got %v", loaded.Status)
	}

	if _, err := s.LoadPool(solana.PublicKey{9, 9, 9}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for unknown mint, got %v", err)
	}
}

func TestMemStorePoolRoundTrip(t *testing.T) {
	runPoolRoundTrip(t, NewMemStore())
}

func TestSqliteStorePoolRoundTrip(t *testing.T) {
	runPoolRoundTrip(t, newTestSqliteStore(t))
}

func TestLevelDBStorePoolRoundTrip(t *testing.T) {
	runPoolRoundTrip(t, newTestLevelDBStore(t))
}

func runCurveRoundTrip(t *testing.T, s Store) {
	t.Helper()
	c := &curve.BondingCurve{
		Mint:         solana.PublicKey{5},
		SlopeM:       fixedpoint.FromUint64(42),
		TokensSold:   fixedpoint.FromUint64(100),
		BaseRaised:   fixedpoint.FromUint64(200),
		TargetBase:   fixedpoint.FromUint64(200_000_000_000),
		TargetTokens: fixedpoint.FromUint64(280_000_000_000_000),
		TotalSupply:  fixedpoint.FromUint64(560_000_000_000_000),
		Status:       curve.StatusActive,
	}
	if err := s.SaveCurve(c); err != nil {
		t.Fatalf("SaveCurve: %v", err)
	}
	loaded, err := s.LoadCurve(c.Mint)
	if err != nil {
		t.Fatalf("LoadCurve: %v", err)
	}
	if loaded.TokensSold.Cmp(c.TokensSold) != 0 {
		t.Fatalf("tokens sold mismatch: got %s want %s", loaded.TokensSold, c.TokensSold)
	}
}

func TestMemStoreCurveRoundTrip(t *testing.T) {
	runCurveRoundTrip(t, NewMemStore())
}

func TestSqliteStoreCurveRoundTrip(t *testing.T) {
	runCurveRoundTrip(t, newTestSqliteStore(t))
}

func TestLevelDBStoreCurveRoundTrip(t *testing.T) {
	runCurveRoundTrip(t, newTestLevelDBStore(t))
}

func runPositionLifecycle(t *testing.T, s Store) {
	t.Helper()
	mint := solana.PublicKey{7}
	pos := &position.Position{
		ID:                      uuid.New(),
		Mint:                    mint,
		Authority:               solana.PublicKey{8},
		IsLong:                  true,
		Collateral:              fixedpoint.FromUint64(1_000),
		Size:                    fixedpoint.FromUint64(10_000),
		DeltaK:                  fixedpoint.FromUint64(5_000),
		EntryFundingAccumulator: fixedpoint.Zero(),
		Nonce:                   1,
	}
	if err := s.SavePosition(pos); err != nil {
		t.Fatalf("SavePosition: %v", err)
	}
	loaded, err := s.LoadPosition(pos.ID)
	if err != nil {
		t.Fatalf("LoadPosition: %v", err)
	}
	if loaded.Size.Cmp(pos.Size) != 0 {
		t.Fatalf("size mismatch: got %s want %s", loaded.Size, pos.Size)
	}

	open, err := s.ListOpenPositions(mint)
	if err != nil {
		t.Fatalf("ListOpenPositions: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("expected 1 open position, got %d", len(open))
	}

	if err := s.DeletePosition(pos.ID); err != nil {
		t.Fatalf("DeletePosition: %v", err)
	}
	if _, err := s.LoadPosition(pos.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemStorePositionLifecycle(t *testing.T) {
	runPositionLifecycle(t, NewMemStore())
}

func TestSqliteStorePositionLifecycle(t *testing.T) {
	runPositionLifecycle(t, newTestSqliteStore(t))
}

func TestLevelDBStorePositionLifecycle(t *testing.T) {
	runPositionLifecycle(t, newTestLevelDBStore(t))
}
