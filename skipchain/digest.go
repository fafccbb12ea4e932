package skipchain

import (
	"encoding/binary"
	"fmt"
)

// digestDomainTag separates checkpoint digests from any other use of the
// same hash function.
const digestDomainTag = "skipchain:checkpoint:v1"

var zeroDigest [DigestSize]byte

// Hasher computes the chain's digests with the algorithm fixed by Params.
// It holds no state between calls and is safe for concurrent use.
type Hasher struct {
	algo string
}

func NewHasher(p Params) (*Hasher, error) {
	if _, err := newHash(p.HashAlgo); err != nil {
		return nil, err
	}
	return &Hasher{algo: p.HashAlgo}, nil
}

// Sum hashes arbitrary bytes. Payload commitments use this.
func (h *Hasher) Sum(data []byte) [DigestSize]byte {
	hs, err := newHash(h.algo)
	if err != nil {
		// The algorithm was checked in NewHasher.
		panic(fmt.Sprintf("skipchain: %v", err))
	}
	hs.Write(data)
	var out [DigestSize]byte
	copy(out[:], hs.Sum(nil))
	return out
}

// Checkpoint computes a checkpoint digest over the domain tag, the
// sequence number, the predecessor digest (all zero for genesis), the
// fingers in ascending seq order and the payload commitment. Integers are
// big-endian; every field is fixed-width, so no length prefixes are
// needed.
func (h *Hasher) Checkpoint(seq uint64, prevDigest [DigestSize]byte, fingers []Finger, payloadHash [DigestSize]byte) [DigestSize]byte {
	hs, err := newHash(h.algo)
	if err != nil {
		panic(fmt.Sprintf("skipchain: %v", err))
	}
	var u64 [8]byte
	hs.Write([]byte(digestDomainTag))
	binary.BigEndian.PutUint64(u64[:], seq)
	hs.Write(u64[:])
	hs.Write(prevDigest[:])
	for _, f := range fingers {
		binary.BigEndian.PutUint64(u64[:], f.Seq)
		hs.Write(u64[:])
		hs.Write(f.Digest[:])
	}
	hs.Write(payloadHash[:])
	var out [DigestSize]byte
	copy(out[:], hs.Sum(nil))
	return out
}

// Recompute derives the digest a well-formed checkpoint must carry, using
// the predecessor digest recorded in its own finger set. It does not
// compare anything; callers check the result against c.Digest.
func (h *Hasher) Recompute(c *Checkpoint) [DigestSize]byte {
	prev, _ := c.PrevDigest()
	return h.Checkpoint(c.Seq, prev, c.Fingers, c.PayloadHash)
}
