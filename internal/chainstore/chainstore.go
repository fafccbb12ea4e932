// Package chainstore persists the checkpoint chain in LevelDB and serves
// reads through a fixed-size LRU of decoded checkpoints.
package chainstore

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/mskd12/skip-checkpoint-chain/skipchain"
)

// DefaultCacheSize is the number of decoded checkpoints kept in memory.
// Authentication walks touch a logarithmic slice of the chain, so even a
// small cache absorbs almost every read of a busy chain's recent tail.
const DefaultCacheSize = 4096

// Key layout. Sequence numbers are big-endian so the keyspace iterates in
// chain order.
//
//	'c' + seq(8) -> canonical checkpoint encoding
//	'p' + seq(8) -> payload bytes
//	'h'          -> seq(8) of the head
//	'm'          -> chain params, JSON
var (
	headKey   = []byte{'h'}
	paramsKey = []byte{'m'}
)

func checkpointKey(seq uint64) []byte {
	key := make([]byte, 9)
	key[0] = 'c'
	binary.BigEndian.PutUint64(key[1:], seq)
	return key
}

func payloadKey(seq uint64) []byte {
	key := make([]byte, 9)
	key[0] = 'p'
	binary.BigEndian.PutUint64(key[1:], seq)
	return key
}

type Store struct {
	db    *leveldb.DB
	cache *lruCache
}

func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("opening chain store at %s: %w", path, err)
	}
	return &Store{
		db:    db,
		cache: newLRUCache(DefaultCacheSize),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Append persists a checkpoint, its payload and the head marker in one
// batch. LevelDB applies the batch atomically, so a crash either keeps the
// old head or exposes the fully written new checkpoint.
func (s *Store) Append(c *skipchain.Checkpoint, payload []byte) error {
	var seqBytes [8]byte
	binary.BigEndian.PutUint64(seqBytes[:], c.Seq)

	batch := new(leveldb.Batch)
	batch.Put(checkpointKey(c.Seq), skipchain.EncodeCheckpoint(c))
	batch.Put(payloadKey(c.Seq), payload)
	batch.Put(headKey, seqBytes[:])
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("writing checkpoint %d: %w", c.Seq, err)
	}
	s.cache.insert(c.Seq, c)
	return nil
}

func (s *Store) Head() (*skipchain.Checkpoint, bool, error) {
	raw, err := s.db.Get(headKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading head marker: %w", err)
	}
	if len(raw) != 8 {
		return nil, false, fmt.Errorf("head marker is %d bytes", len(raw))
	}
	head, err := s.CheckpointBySeq(binary.BigEndian.Uint64(raw))
	if err != nil {
		return nil, false, err
	}
	return head, true, nil
}

func (s *Store) CheckpointBySeq(seq uint64) (*skipchain.Checkpoint, error) {
	if c, ok := s.cache.get(seq); ok {
		return c, nil
	}
	raw, err := s.db.Get(checkpointKey(seq), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("checkpoint %d: %w", seq, skipchain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint %d: %w", seq, err)
	}
	c, err := skipchain.DecodeCheckpoint(raw)
	if err != nil {
		return nil, fmt.Errorf("stored checkpoint %d: %w", seq, err)
	}
	s.cache.insert(seq, c)
	return c, nil
}

func (s *Store) Payload(seq uint64) ([]byte, error) {
	raw, err := s.db.Get(payloadKey(seq), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("payload %d: %w", seq, skipchain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading payload %d: %w", seq, err)
	}
	return raw, nil
}

// Params returns the chain params this store was created with, if any.
func (s *Store) Params() (skipchain.Params, bool, error) {
	raw, err := s.db.Get(paramsKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return skipchain.Params{}, false, nil
	}
	if err != nil {
		return skipchain.Params{}, false, fmt.Errorf("reading chain params: %w", err)
	}
	var p skipchain.Params
	if err := json.Unmarshal(raw, &p); err != nil {
		return skipchain.Params{}, false, fmt.Errorf("stored chain params: %w", err)
	}
	return p, true, nil
}

// SetParams pins the chain params. A store carries exactly one params
// record for its whole life; reopening under different params must fail
// loudly instead of silently rebuilding finger heights.
func (s *Store) SetParams(p skipchain.Params) error {
	if existing, ok, err := s.Params(); err != nil {
		return err
	} else if ok && existing != p {
		return fmt.Errorf("store already pinned to params %+v", existing)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding chain params: %w", err)
	}
	if err := s.db.Put(paramsKey, raw, nil); err != nil {
		return fmt.Errorf("writing chain params: %w", err)
	}
	return nil
}
