// Package store persists the three per-mint records the engine packages
// operate on: the bonding curve, the live pool, and open leveraged
// positions. Engines never import store directly — callers load a record,
// run it through an Engine method, and persist the result themselves.
package store

import (
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/facemelt/engine/native/curve"
	"github.com/facemelt/engine/native/pool"
	"github.com/facemelt/engine/native/position"
)

// ErrNotFound is returned when a lookup key has no matching record.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence boundary for the three record kinds. Pool and
// BondingCurve are keyed by the token mint; Position is additionally keyed
// by its own ID since a mint may have many concurrently open positions.
type Store interface {
	SavePool(p *pool.Pool) error
	LoadPool(mint solana.PublicKey) (*pool.Pool, error)

	SaveCurve(c *curve.BondingCurve) error
	LoadCurve(mint solana.PublicKey) (*curve.BondingCurve, error)

	SavePosition(pos *position.Position) error
	LoadPosition(id uuid.UUID) (*position.Position, error)
	DeletePosition(id uuid.UUID) error
	ListOpenPositions(mint solana.PublicKey) ([]*position.Position, error)
}
