package skipchain

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers match them with errors.Is; the wrapped messages
// carry the offending sequence numbers.
var (
	// ErrInvalidRange reports a target outside [0, start.Seq].
	ErrInvalidRange = errors.New("skipchain: target outside chain range")
	// ErrUnreachableTarget reports a walk that cannot reach its target.
	// On a well-formed chain every older checkpoint is reachable, so this
	// always means a corrupt or tampered arena.
	ErrUnreachableTarget = errors.New("skipchain: target unreachable through fingers")
	// ErrDigestMismatch reports a checkpoint whose recorded digest does
	// not match the digest recomputed from its contents.
	ErrDigestMismatch = errors.New("skipchain: checkpoint digest mismatch")
	// ErrNotFound reports a sequence number absent from the arena.
	ErrNotFound = errors.New("skipchain: checkpoint not found")
)

// Resolver returns the checkpoint stored under a sequence number. The
// durable store and the in-memory chain both implement it.
type Resolver interface {
	CheckpointBySeq(seq uint64) (*Checkpoint, error)
}

// PathFinder walks authentication paths across a checkpoint arena.
//
// Each hop moves from the current checkpoint to its finger with the
// smallest seq still at or above the target, so the walk descends as far
// as possible without overshooting. On a well-formed chain this takes
// O(Base * log(distance)) hops.
type PathFinder struct {
	resolver Resolver
	params   Params
}

func NewPathFinder(resolver Resolver, params Params) *PathFinder {
	return &PathFinder{resolver: resolver, params: params}
}

// Authenticate walks from start down to targetSeq and returns the number
// of hops taken together with the target checkpoint. A start that already
// sits at targetSeq authenticates in zero hops.
func (pf *PathFinder) Authenticate(start *Checkpoint, targetSeq uint64) (uint64, *Checkpoint, error) {
	var (
		hops uint64
		last = start
	)
	err := pf.walk(start, targetSeq, func(c *Checkpoint) {
		hops++
		last = c
	})
	if err != nil {
		return 0, nil, err
	}
	return hops, last, nil
}

// Path returns every checkpoint an authentication walk visits, start and
// target included, in walk order. The result is a verifiable ancestry
// proof: each element's finger set commits to the next element's digest.
func (pf *PathFinder) Path(start *Checkpoint, targetSeq uint64) ([]*Checkpoint, error) {
	path := []*Checkpoint{start}
	err := pf.walk(start, targetSeq, func(c *Checkpoint) {
		path = append(path, c)
	})
	if err != nil {
		return nil, err
	}
	return path, nil
}

func (pf *PathFinder) walk(start *Checkpoint, targetSeq uint64, visit func(*Checkpoint)) error {
	if start == nil {
		return fmt.Errorf("%w: no start checkpoint", ErrInvalidRange)
	}
	if targetSeq > start.Seq {
		return fmt.Errorf("%w: target %d is past %d", ErrInvalidRange, targetSeq, start.Seq)
	}
	// Every hop strictly decreases the sequence number, so the walk
	// terminates regardless of chain state. The ceiling turns a walk
	// degenerated by corrupt fingers into an error instead of a
	// start.Seq-length crawl.
	limit := pf.params.HopCeiling(start.Seq - targetSeq)
	cur := start
	for hops := uint64(0); cur.Seq != targetSeq; hops++ {
		if hops >= limit {
			return fmt.Errorf("%w: gave up after %d hops between %d and %d",
				ErrUnreachableTarget, hops, start.Seq, targetSeq)
		}
		next, ok := closestFinger(cur.Fingers, targetSeq)
		if !ok {
			return fmt.Errorf("%w: checkpoint %d has no finger at or above %d",
				ErrUnreachableTarget, cur.Seq, targetSeq)
		}
		if next.Seq >= cur.Seq {
			return fmt.Errorf("%w: finger %d of checkpoint %d does not point backwards",
				ErrUnreachableTarget, next.Seq, cur.Seq)
		}
		resolved, err := pf.resolver.CheckpointBySeq(next.Seq)
		if err != nil {
			return fmt.Errorf("resolving hop %d: %w", next.Seq, err)
		}
		if resolved.Seq != next.Seq || resolved.Digest != next.Digest {
			return fmt.Errorf("%w: arena entry %d does not match the finger pointing at it",
				ErrUnreachableTarget, next.Seq)
		}
		cur = resolved
		visit(cur)
	}
	return nil
}

// closestFinger returns the finger with the smallest seq not below target.
// Fingers are sorted ascending, so the first match wins; the slice is a
// dozen entries at most and a linear scan beats a binary search here.
func closestFinger(fingers []Finger, target uint64) (Finger, bool) {
	for _, f := range fingers {
		if f.Seq >= target {
			return f, true
		}
	}
	return Finger{}, false
}

// HopCeiling bounds the hop count of a walk over distance sequence
// numbers. A well-formed walk needs at most Base-1 hops per finger level;
// above the height cap the structure repeats with period Base^HeightCap
// and each full period costs one extra lateral hop. Proof verifiers use
// the same bound to reject oversized paths.
func (p Params) HopCeiling(distance uint64) uint64 {
	span := uint64(1)
	for i := uint64(0); i < p.HeightCap && span <= distance/p.Base; i++ {
		span *= p.Base
	}
	return (p.Base-1)*(p.HeightCap+1) + distance/span + 1
}
