package store

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"gorm.io/gorm"

	"github.com/facemelt/engine/native/curve"
	"github.com/facemelt/engine/native/pool"
	"github.com/facemelt/engine/native/position"
)

// poolRow is the gorm model backing native/pool.Pool. uint256 amounts are
// stored as base-10 strings since SQLite has no native 256-bit integer.
type poolRow struct {
	Mint       string `gorm:"primaryKey;size:64"`
	Authority  string `gorm:"size:64"`
	TokenVault string `gorm:"size:64"`

	SolReserve   string
	TokenReserve string

	EffectiveSolReserve   string
	EffectiveTokenReserve string

	TotalDeltaKLongs  string
	TotalDeltaKShorts string

	CumulativeFundingAccumulator string
	LastUpdatedTimestamp         int64

	EMAPrice       string
	EMAInitialized bool

	FundingConstantC                  string
	LiquidationDivergenceThresholdPct uint64

	Status uint8
}

type curveRow struct {
	Mint string `gorm:"primaryKey;size:64"`

	SlopeM       string
	TokensSold   string
	BaseRaised   string
	TargetBase   string
	TargetTokens string
	TotalSupply  string

	Status uint8
}

type positionRow struct {
	ID        string `gorm:"primaryKey;size:36"`
	Mint      string `gorm:"index;size:64"`
	Authority string `gorm:"index;size:64"`
	IsLong    bool

	Collateral string
	Size       string
	DeltaK     string

	EntryFundingAccumulator string
	Nonce                   uint64
}

// SqliteStore persists Pool, BondingCurve, and Position records through
// gorm, so the same engine packages run unmodified whether the caller hands
// them a MemStore in tests or a SqliteStore in a long-lived process.
type SqliteStore struct {
	db *gorm.DB
}

// OpenSqliteStore opens (creating if necessary) a SQLite-backed store at
// the given DSN and runs schema migration for the three record tables.
func OpenSqliteStore(dsn string) (*SqliteStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	if err := db.AutoMigrate(&poolRow{}, &curveRow{}, &positionRow{}); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) SavePool(p *pool.Pool) error {
	row := poolToRow(p)
	return s.db.Save(&row).Error
}

func (s *SqliteStore) LoadPool(mint solana.PublicKey) (*pool.Pool, error) {
	var row poolRow
	if err := s.db.First(&row, "mint = ?", mint.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rowToPool(mint, row)
}

func (s *SqliteStore) SaveCurve(c *curve.BondingCurve) error {
	row := curveToRow(c)
	return s.db.Save(&row).Error
}

func (s *SqliteStore) LoadCurve(mint solana.PublicKey) (*curve.BondingCurve, error) {
	var row curveRow
	if err := s.db.First(&row, "mint = ?", mint.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rowToCurve(mint, row)
}

func (s *SqliteStore) SavePosition(pos *position.Position) error {
	row := positionToRow(pos)
	return s.db.Save(&row).Error
}

func (s *SqliteStore) LoadPosition(id uuid.UUID) (*position.Position, error) {
	var row positionRow
	if err := s.db.First(&row, "id = ?", id.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rowToPosition(row)
}

func (s *SqliteStore) DeletePosition(id uuid.UUID) error {
	return s.db.Delete(&positionRow{}, "id = ?", id.String()).Error
}

func (s *SqliteStore) ListOpenPositions(mint solana.PublicKey) ([]*position.Position, error) {
	var rows []positionRow
	if err := s.db.Find(&rows, "mint = ?", mint.String()).Error; err != nil {
		return nil, err
	}
	out := make([]*position.Position, 0, len(rows))
	for _, row := range rows {
		pos, err := rowToPosition(row)
		if err != nil {
			return nil, err
		}
		out = append(out, pos)
	}
	return out, nil
}

// poolToRow, rowToPool, curveToRow, rowToCurve, and positionToRow are shared
// between SqliteStore and LevelDBStore: both encode the same three record
// kinds as base-10 amount strings, they just differ in where those strings
// end up (a gorm row vs. a JSON-encoded leveldb value).

func poolToRow(p *pool.Pool) poolRow {
	return poolRow{
		Mint:                               p.TokenMint.String(),
		Authority:                          p.Authority.String(),
		TokenVault:                         p.TokenVault.String(),
		SolReserve:                         p.SolReserve.String(),
		TokenReserve:                       p.TokenReserve.String(),
		EffectiveSolReserve:                p.EffectiveSolReserve.String(),
		EffectiveTokenReserve:              p.EffectiveTokenReserve.String(),
		TotalDeltaKLongs:                   p.TotalDeltaKLongs.String(),
		TotalDeltaKShorts:                  p.TotalDeltaKShorts.String(),
		CumulativeFundingAccumulator:       p.CumulativeFundingAccumulator.String(),
		LastUpdatedTimestamp:               p.LastUpdatedTimestamp,
		EMAPrice:                           p.EMAPrice.String(),
		EMAInitialized:                     p.EMAInitialized,
		FundingConstantC:                   p.FundingConstantC.String(),
		LiquidationDivergenceThresholdPct:  p.LiquidationDivergenceThresholdPct,
		Status:                             uint8(p.Status),
	}
}

func rowToPool(mint solana.PublicKey, row poolRow) (*pool.Pool, error) {
	authority, err := solana.PublicKeyFromBase58(row.Authority)
	if err != nil {
		return nil, fmt.Errorf("store: decode authority: %w", err)
	}
	vault, err := solana.PublicKeyFromBase58(row.TokenVault)
	if err != nil {
		return nil, fmt.Errorf("store: decode vault: %w", err)
	}

	p := &pool.Pool{
		Authority:  authority,
		TokenMint:  mint,
		TokenVault: vault,
		Status:     pool.Status(row.Status),

		LastUpdatedTimestamp:              row.LastUpdatedTimestamp,
		EMAInitialized:                    row.EMAInitialized,
		LiquidationDivergenceThresholdPct: row.LiquidationDivergenceThresholdPct,
	}
	fields := []struct {
		dst **uint256.Int
		src string
	}{
		{&p.SolReserve, row.SolReserve},
		{&p.TokenReserve, row.TokenReserve},
		{&p.EffectiveSolReserve, row.EffectiveSolReserve},
		{&p.EffectiveTokenReserve, row.EffectiveTokenReserve},
		{&p.TotalDeltaKLongs, row.TotalDeltaKLongs},
		{&p.TotalDeltaKShorts, row.TotalDeltaKShorts},
		{&p.CumulativeFundingAccumulator, row.CumulativeFundingAccumulator},
		{&p.EMAPrice, row.EMAPrice},
		{&p.FundingConstantC, row.FundingConstantC},
	}
	for _, f := range fields {
		v, err := parseAmount(f.src)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	return p, nil
}

func curveToRow(c *curve.BondingCurve) curveRow {
	return curveRow{
		Mint:         c.Mint.String(),
		SlopeM:       c.SlopeM.String(),
		TokensSold:   c.TokensSold.String(),
		BaseRaised:   c.BaseRaised.String(),
		TargetBase:   c.TargetBase.String(),
		TargetTokens: c.TargetTokens.String(),
		TotalSupply:  c.TotalSupply.String(),
		Status:       uint8(c.Status),
	}
}

func rowToCurve(mint solana.PublicKey, row curveRow) (*curve.BondingCurve, error) {
	c := &curve.BondingCurve{Mint: mint, Status: curve.Status(row.Status)}
	fields := []struct {
		dst **uint256.Int
		src string
	}{
		{&c.SlopeM, row.SlopeM},
		{&c.TokensSold, row.TokensSold},
		{&c.BaseRaised, row.BaseRaised},
		{&c.TargetBase, row.TargetBase},
		{&c.TargetTokens, row.TargetTokens},
		{&c.TotalSupply, row.TotalSupply},
	}
	for _, f := range fields {
		v, err := parseAmount(f.src)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	return c, nil
}

func positionToRow(pos *position.Position) positionRow {
	return positionRow{
		ID:                      pos.ID.String(),
		Mint:                    pos.Mint.String(),
		Authority:               pos.Authority.String(),
		IsLong:                  pos.IsLong,
		Collateral:              pos.Collateral.String(),
		Size:                    pos.Size.String(),
		DeltaK:                  pos.DeltaK.String(),
		EntryFundingAccumulator: pos.EntryFundingAccumulator.String(),
		Nonce:                   pos.Nonce,
	}
}

func rowToPosition(row positionRow) (*position.Position, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, fmt.Errorf("store: decode position id: %w", err)
	}
	mint, err := solana.PublicKeyFromBase58(row.Mint)
	if err != nil {
		return nil, fmt.Errorf("store: decode mint: %w", err)
	}
	authority, err := solana.PublicKeyFromBase58(row.Authority)
	if err != nil {
		return nil, fmt.Errorf("store: decode authority: %w", err)
	}
	collateral, err := parseAmount(row.Collateral)
	if err != nil {
		return nil, err
	}
	size, err := parseAmount(row.Size)
	if err != nil {
		return nil, err
	}
	deltaK, err := parseAmount(row.DeltaK)
	if err != nil {
		return nil, err
	}
	entryAcc, err := parseAmount(row.EntryFundingAccumulator)
	if err != nil {
		return nil, err
	}
	return &position.Position{
		ID:                      id,
		Mint:                    mint,
		Authority:               authority,
		IsLong:                  row.IsLong,
		Collateral:              collateral,
		Size:                    size,
		DeltaK:                  deltaK,
		EntryFundingAccumulator: entryAcc,
		Nonce:                   row.Nonce,
	}, nil
}

func parseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("store: decode amount %q: %w", s, err)
	}
	return v, nil
}
