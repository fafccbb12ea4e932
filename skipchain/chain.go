package skipchain

import (
	"fmt"
	"sync"
)

// Store is the durable arena a chain persists into. Append must be atomic:
// either the checkpoint, its payload and the head marker all land, or none
// do.
type Store interface {
	Resolver
	// Head returns the newest checkpoint, or ok=false on an empty store.
	Head() (c *Checkpoint, ok bool, err error)
	// Append persists a checkpoint with its payload and moves the head.
	Append(c *Checkpoint, payload []byte) error
	// Payload returns the payload bytes committed by PayloadHash at seq.
	Payload(seq uint64) ([]byte, error)
}

// Chain is the single-writer view over a checkpoint arena. Exactly one
// goroutine may call Bootstrap and Extend; any number of goroutines may
// read concurrently. Checkpoints handed out are shared and must be treated
// as read-only.
type Chain struct {
	mu       sync.RWMutex
	builder  *Builder
	store    Store
	pathfind *PathFinder
	head     *Checkpoint
}

// NewChain opens a chain over store, adopting the stored head if one
// exists. A fresh store yields a headless chain that only Bootstrap can
// grow.
func NewChain(builder *Builder, store Store) (*Chain, error) {
	head, ok, err := store.Head()
	if err != nil {
		return nil, fmt.Errorf("loading chain head: %w", err)
	}
	c := &Chain{builder: builder, store: store}
	c.pathfind = NewPathFinder(store, builder.Params())
	if ok {
		c.head = head
	}
	return c, nil
}

func (c *Chain) Params() Params  { return c.builder.Params() }
func (c *Chain) Hasher() *Hasher { return c.builder.Hasher() }

// Head returns the newest checkpoint, or nil before Bootstrap.
func (c *Chain) Head() *Checkpoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.head
}

// Bootstrap writes the genesis checkpoint. It fails on a chain that
// already has one.
func (c *Chain) Bootstrap(payload []byte) (*Checkpoint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.head != nil {
		return nil, fmt.Errorf("chain already has a head at %d", c.head.Seq)
	}
	genesis := c.builder.Genesis(payload)
	if err := c.store.Append(genesis, payload); err != nil {
		return nil, fmt.Errorf("persisting genesis: %w", err)
	}
	c.head = genesis
	return genesis, nil
}

// Extend appends the next checkpoint over payload and returns it.
func (c *Chain) Extend(payload []byte) (*Checkpoint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.head == nil {
		return nil, fmt.Errorf("cannot extend an empty chain, bootstrap first")
	}
	next, err := c.builder.Next(c.head, payload)
	if err != nil {
		return nil, err
	}
	if err := c.store.Append(next, payload); err != nil {
		return nil, fmt.Errorf("persisting checkpoint %d: %w", next.Seq, err)
	}
	c.head = next
	return next, nil
}

// CheckpointBySeq makes Chain a Resolver backed by its store.
func (c *Chain) CheckpointBySeq(seq uint64) (*Checkpoint, error) {
	return c.store.CheckpointBySeq(seq)
}

// Payload returns the stored payload bytes for seq.
func (c *Chain) Payload(seq uint64) ([]byte, error) {
	return c.store.Payload(seq)
}

// Authenticate walks from the current head down to targetSeq.
func (c *Chain) Authenticate(targetSeq uint64) (uint64, *Checkpoint, error) {
	return c.pathfind.Authenticate(c.Head(), targetSeq)
}

// AncestryPath builds a verifiable path from startSeq down to targetSeq.
func (c *Chain) AncestryPath(startSeq, targetSeq uint64) ([]*Checkpoint, error) {
	head := c.Head()
	if head == nil {
		return nil, fmt.Errorf("%w: chain is empty", ErrInvalidRange)
	}
	if startSeq > head.Seq {
		return nil, fmt.Errorf("%w: start %d is past head %d", ErrInvalidRange, startSeq, head.Seq)
	}
	start := head
	if startSeq < head.Seq {
		var err error
		if start, err = c.store.CheckpointBySeq(startSeq); err != nil {
			return nil, fmt.Errorf("resolving start %d: %w", startSeq, err)
		}
	}
	return c.pathfind.Path(start, targetSeq)
}

// VerifyTail recomputes the digests of the newest n checkpoints and checks
// each against its predecessor link. It is the startup integrity pass; n
// larger than the chain clamps to genesis.
func (c *Chain) VerifyTail(n uint64) error {
	cur := c.Head()
	if cur == nil || n == 0 {
		return nil
	}
	hasher := c.builder.Hasher()
	for i := uint64(0); i < n; i++ {
		if err := cur.CheckShape(c.builder.Params()); err != nil {
			return fmt.Errorf("%w: %v", ErrDigestMismatch, err)
		}
		if hasher.Recompute(cur) != cur.Digest {
			return fmt.Errorf("%w: stored checkpoint %d", ErrDigestMismatch, cur.Seq)
		}
		if cur.Seq == 0 {
			return nil
		}
		prev, err := c.store.CheckpointBySeq(cur.Seq - 1)
		if err != nil {
			return fmt.Errorf("loading checkpoint %d: %w", cur.Seq-1, err)
		}
		if want, _ := cur.PrevDigest(); prev.Digest != want {
			return fmt.Errorf("%w: checkpoint %d does not match the link from %d",
				ErrDigestMismatch, prev.Seq, cur.Seq)
		}
		cur = prev
	}
	return nil
}
