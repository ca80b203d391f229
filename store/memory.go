package store

import (
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/facemelt/engine/native/curve"
	"github.com/facemelt/engine/native/pool"
	"github.com/facemelt/engine/native/position"
)

// MemStore is an in-process Store backed by maps, intended for tests and
// single-process deployments that don't need the records to survive a
// restart.
type MemStore struct {
	mu        sync.RWMutex
	pools     map[solana.PublicKey]*pool.Pool
	curves    map[solana.PublicKey]*curve.BondingCurve
	positions map[uuid.UUID]*position.Position
}

// NewMemStore constructs an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		pools:     make(map[solana.PublicKey]*pool.Pool),
		curves:    make(map[solana.PublicKey]*curve.BondingCurve),
		positions: make(map[uuid.UUID]*position.Position),
	}
}

func (s *MemStore) SavePool(p *pool.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools[p.TokenMint] = p
	return nil
}

func (s *MemStore) LoadPool(mint solana.PublicKey) (*pool.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pools[mint]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *MemStore) SaveCurve(c *curve.BondingCurve) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.curves[c.Mint] = c
	return nil
}

func (s *MemStore) LoadCurve(mint solana.PublicKey) (*curve.BondingCurve, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.curves[mint]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *MemStore) SavePosition(pos *position.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[pos.ID] = pos
	return nil
}

func (s *MemStore) LoadPosition(id uuid.UUID) (*position.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.positions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return pos, nil
}

func (s *MemStore) DeletePosition(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.positions, id)
	return nil
}

func (s *MemStore) ListOpenPositions(mint solana.PublicKey) ([]*position.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*position.Position, 0)
	for _, pos := range s.positions {
		if pos.Mint == mint {
			out = append(out, pos)
		}
	}
	return out, nil
}
