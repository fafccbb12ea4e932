package apis

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/mskd12/skip-checkpoint-chain/skipchain"
)

// Client-side verification. A consumer holds the chain params and one
// trusted digest (usually the head digest from an announcement record or
// a previous session) and checks served proofs against it; nothing the
// service says is taken on faith.

func ParseDigest(digest string) ([skipchain.DigestSize]byte, error) {
	var out [skipchain.DigestSize]byte
	raw, err := hex.DecodeString(digest)
	if err != nil {
		return out, err
	}
	if len(raw) != skipchain.DigestSize {
		return out, fmt.Errorf("digest is %d bytes, want %d", len(raw), skipchain.DigestSize)
	}
	copy(out[:], raw)
	return out, nil
}

func ParsePath(proof string) ([]*skipchain.Checkpoint, error) {
	raw, err := base64.StdEncoding.DecodeString(proof)
	if err != nil {
		return nil, err
	}
	return skipchain.DecodePath(raw)
}

// VerifyAncestryPath checks that path proves the checkpoint at targetSeq
// is an ancestor of the checkpoint with the trusted digest. Every hop's
// digest is recomputed from its own contents, so a forged finger set
// breaks the very digest that vouches for it; every step must follow a
// finger of the previous hop.
func VerifyAncestryPath(params skipchain.Params, trusted [skipchain.DigestSize]byte, targetSeq uint64, path []*skipchain.Checkpoint) error {
	hasher, err := skipchain.NewHasher(params)
	if err != nil {
		return err
	}
	if len(path) == 0 {
		return fmt.Errorf("empty path")
	}
	start, target := path[0], path[len(path)-1]
	if start.Digest != trusted {
		return fmt.Errorf("%w: path starts at an untrusted checkpoint", skipchain.ErrDigestMismatch)
	}
	if target.Seq != targetSeq {
		return fmt.Errorf("%w: path ends at %d, want %d", skipchain.ErrUnreachableTarget, target.Seq, targetSeq)
	}
	if targetSeq > start.Seq {
		return fmt.Errorf("%w: target %d is past %d", skipchain.ErrInvalidRange, targetSeq, start.Seq)
	}
	if ceiling := params.HopCeiling(start.Seq - targetSeq); uint64(len(path)-1) > ceiling {
		return fmt.Errorf("%w: %d hops exceed the ceiling %d", skipchain.ErrUnreachableTarget, len(path)-1, ceiling)
	}

	for i, hop := range path {
		if err := hop.CheckShape(params); err != nil {
			return fmt.Errorf("hop %d: %w", i, err)
		}
		if hasher.Recompute(hop) != hop.Digest {
			return fmt.Errorf("%w: hop %d does not recompute", skipchain.ErrDigestMismatch, i)
		}
		if i == len(path)-1 {
			break
		}
		next := path[i+1]
		if !fingersContain(hop.Fingers, next.Seq, next.Digest) {
			return fmt.Errorf("%w: hop %d is not fingered by hop %d", skipchain.ErrUnreachableTarget, i+1, i)
		}
	}
	return nil
}

// fingersContain reports whether (seq, digest) is among fingers. Finger
// sets hold a dozen entries at most.
func fingersContain(fingers []skipchain.Finger, seq uint64, digest [skipchain.DigestSize]byte) bool {
	for _, f := range fingers {
		if f.Seq == seq {
			return f.Digest == digest
		}
	}
	return false
}

// VerifyAncestryProofResponse validates a served proof end to end: the
// envelope, the binary proof against the trusted digest, and the display
// path against the binary one.
func VerifyAncestryProofResponse(params skipchain.Params, trusted [skipchain.DigestSize]byte, targetSeq uint64, resp *AncestryProofResponse) (bool, error) {
	if resp.Error != nil {
		return false, fmt.Errorf("service reported: %s", *resp.Error)
	}
	if resp.Proof == nil || resp.Result == nil {
		return false, fmt.Errorf("response carries no proof")
	}
	path, err := ParsePath(*resp.Proof)
	if err != nil {
		return false, fmt.Errorf("decoding proof: %w", err)
	}
	if err := VerifyAncestryPath(params, trusted, targetSeq, path); err != nil {
		return false, err
	}
	if hops, err := strconv.ParseUint(resp.Result.Hops, 10, 64); err != nil || hops != uint64(len(path)-1) {
		return false, fmt.Errorf("result claims %s hops, proof has %d", resp.Result.Hops, len(path)-1)
	}
	if len(resp.Result.Path) != len(path) {
		return false, fmt.Errorf("result path has %d entries, proof has %d", len(resp.Result.Path), len(path))
	}
	for i, hop := range path {
		if resp.Result.Path[i].Digest != hex.EncodeToString(hop.Digest[:]) {
			return false, fmt.Errorf("result path diverges from the proof at hop %d", i)
		}
	}
	return true, nil
}
