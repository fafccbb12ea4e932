package skipchain

import (
	"bytes"
	"fmt"
	"sort"
)

// Builder derives checkpoints. Building is a pure function of the
// predecessor and the payload bytes; a Builder carries no chain state and
// one instance may serve any number of independent chains that share its
// params.
type Builder struct {
	params Params
	hasher *Hasher
}

func NewBuilder(params Params) (*Builder, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chain params: %w", err)
	}
	hasher, err := NewHasher(params)
	if err != nil {
		return nil, err
	}
	return &Builder{params: params, hasher: hasher}, nil
}

func (b *Builder) Params() Params  { return b.params }
func (b *Builder) Hasher() *Hasher { return b.hasher }

// Genesis builds checkpoint zero. It has no fingers and its predecessor
// digest is all zero.
func (b *Builder) Genesis(payload []byte) *Checkpoint {
	c := &Checkpoint{Seq: 0, PayloadHash: b.hasher.Sum(payload)}
	c.Digest = b.hasher.Checkpoint(c.Seq, zeroDigest, nil, c.PayloadHash)
	return c
}

// Next builds the checkpoint after prev. The new finger set is selected
// from prev itself plus prev's own fingers, so the whole chain never has
// to be consulted and building stays O(HeightCap).
func (b *Builder) Next(prev *Checkpoint, payload []byte) (*Checkpoint, error) {
	if prev == nil {
		return nil, fmt.Errorf("cannot extend a nil checkpoint")
	}
	if prev.Seq+1 == 0 {
		return nil, fmt.Errorf("sequence number space exhausted at %d", prev.Seq)
	}
	c := &Checkpoint{
		Seq:         prev.Seq + 1,
		PayloadHash: b.hasher.Sum(payload),
		Fingers:     b.selectFingers(prev),
	}
	c.Digest = b.hasher.Checkpoint(c.Seq, prev.Digest, c.Fingers, c.PayloadHash)
	return c, nil
}

type candidate struct {
	height uint64
	Finger
}

// selectFingers picks the fingers of prev's successor. Candidates are prev
// and everything prev fingers, ordered by (height, seq, digest) descending;
// the scan keeps the first candidate and then each candidate whose height
// strictly drops below the last kept one. That retains exactly one
// candidate per height, and always retains prev itself: prev has the
// largest seq, so it wins the tie at its height. The result is re-sorted
// ascending by seq, the canonical order.
func (b *Builder) selectFingers(prev *Checkpoint) []Finger {
	cands := make([]candidate, 0, len(prev.Fingers)+1)
	cands = append(cands, candidate{
		height: b.params.Notch(prev.Seq),
		Finger: Finger{Seq: prev.Seq, Digest: prev.Digest},
	})
	for _, f := range prev.Fingers {
		cands = append(cands, candidate{height: b.params.Notch(f.Seq), Finger: f})
	}
	sort.Slice(cands, func(i, j int) bool {
		x, y := cands[i], cands[j]
		if x.height != y.height {
			return x.height > y.height
		}
		if x.Seq != y.Seq {
			return x.Seq > y.Seq
		}
		return bytes.Compare(x.Digest[:], y.Digest[:]) > 0
	})

	fingers := make([]Finger, 0, len(cands))
	var lastHeight uint64
	for i, cand := range cands {
		if i == 0 || cand.height < lastHeight {
			fingers = append(fingers, cand.Finger)
			lastHeight = cand.height
		}
	}
	sort.Slice(fingers, func(i, j int) bool { return fingers[i].Seq < fingers[j].Seq })
	return fingers
}
