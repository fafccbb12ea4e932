package skipchain

import (
	"encoding/hex"
	"fmt"
)

// Finger is a backward reference to a strictly older checkpoint. Fingers
// carry (seq, digest) pairs rather than pointers: the referenced ancestor
// is shared by every later checkpoint that points at it and is resolved
// through the chain arena only when a walk actually visits it.
type Finger struct {
	Seq    uint64
	Digest [DigestSize]byte
}

// Checkpoint is one node of the append-only chain. Once built it is
// immutable; extending the chain never revisits an older checkpoint.
type Checkpoint struct {
	Seq uint64
	// Digest authenticates the whole prefix of the chain up to this
	// checkpoint. It covers Seq, the predecessor digest, every finger and
	// PayloadHash.
	Digest [DigestSize]byte
	// PayloadHash commits to the application payload summarised by this
	// checkpoint. Keeping the hash instead of the bytes keeps checkpoint
	// records fixed-shape; the payload itself is stored separately.
	PayloadHash [DigestSize]byte
	// Fingers reference older checkpoints, sorted ascending by Seq, at
	// most one per notch height. The immediate predecessor is always
	// present. Genesis has none.
	Fingers []Finger
}

// PrevDigest returns the digest of the immediate predecessor, taken from
// the finger set. The second return is false for genesis.
func (c *Checkpoint) PrevDigest() ([DigestSize]byte, bool) {
	if c.Seq == 0 {
		return [DigestSize]byte{}, false
	}
	for _, f := range c.Fingers {
		if f.Seq == c.Seq-1 {
			return f.Digest, true
		}
	}
	return [DigestSize]byte{}, false
}

// CheckShape verifies the structural invariants a well-formed checkpoint
// satisfies under the given params: fingers strictly ascending, all older
// than the checkpoint, at most one per height, and the predecessor finger
// present on non-genesis checkpoints. It does not touch any digest.
func (c *Checkpoint) CheckShape(p Params) error {
	if c.Seq == 0 {
		if len(c.Fingers) != 0 {
			return fmt.Errorf("genesis checkpoint carries %d fingers", len(c.Fingers))
		}
		return nil
	}
	if len(c.Fingers) == 0 {
		return fmt.Errorf("checkpoint %d has no fingers", c.Seq)
	}
	if limit := int(p.HeightCap + 1); len(c.Fingers) > limit {
		return fmt.Errorf("checkpoint %d has %d fingers, at most %d possible", c.Seq, len(c.Fingers), limit)
	}
	seen := make(map[uint64]bool, len(c.Fingers))
	for i, f := range c.Fingers {
		if f.Seq >= c.Seq {
			return fmt.Errorf("checkpoint %d fingers non-ancestor %d", c.Seq, f.Seq)
		}
		if i > 0 && f.Seq <= c.Fingers[i-1].Seq {
			return fmt.Errorf("checkpoint %d fingers out of order at %d", c.Seq, f.Seq)
		}
		h := p.Notch(f.Seq)
		if seen[h] {
			return fmt.Errorf("checkpoint %d has two fingers at height %d", c.Seq, h)
		}
		seen[h] = true
	}
	if _, ok := c.PrevDigest(); !ok {
		return fmt.Errorf("checkpoint %d is missing its predecessor finger", c.Seq)
	}
	return nil
}

// Clone returns a deep copy. Checkpoints handed out by the chain are
// shared between readers and must not be mutated; Clone is for callers
// that need a private copy anyway.
func (c *Checkpoint) Clone() *Checkpoint {
	out := *c
	out.Fingers = make([]Finger, len(c.Fingers))
	copy(out.Fingers, c.Fingers)
	return &out
}

func (c *Checkpoint) String() string {
	return fmt.Sprintf("checkpoint{seq=%d digest=%s fingers=%d}",
		c.Seq, hex.EncodeToString(c.Digest[:8]), len(c.Fingers))
}
