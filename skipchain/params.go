package skipchain

import (
	"fmt"
	"hash"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/sha3"
)

const (
	// DefaultBase is the radix used to compute notch heights.
	DefaultBase = 10
	// DefaultHeightCap bounds the notch height and therefore the finger
	// fan-out of every checkpoint.
	DefaultHeightCap = 11

	// DigestSize is shared by both supported hash algorithms, so the
	// canonical checkpoint encoding has one shape per deployment.
	DigestSize = 32
)

// Supported digest algorithms.
const (
	HashSHA3   = "sha3-256"
	HashBlake3 = "blake3"
)

// Params are the chain-wide parameters. Every participant of a chain must
// use identical values; they are advertised alongside the genesis
// checkpoint and never change for the lifetime of the chain. Changing the
// base or the height cap silently invalidates every previously computed
// notch height.
type Params struct {
	Base      uint64 `json:"base"`
	HeightCap uint64 `json:"heightCap"`
	HashAlgo  string `json:"hashAlgo"`
}

func DefaultParams() Params {
	return Params{
		Base:      DefaultBase,
		HeightCap: DefaultHeightCap,
		HashAlgo:  HashSHA3,
	}
}

func (p Params) Validate() error {
	if p.Base < 2 {
		return fmt.Errorf("chain base must be at least 2, got %d", p.Base)
	}
	if p.Base > 1<<16 {
		return fmt.Errorf("chain base too large: %d", p.Base)
	}
	// Heights past 64 cannot occur for 64-bit sequence numbers, even in
	// base 2.
	if p.HeightCap < 1 || p.HeightCap > 64 {
		return fmt.Errorf("height cap must be within [1, 64], got %d", p.HeightCap)
	}
	if _, err := newHash(p.HashAlgo); err != nil {
		return err
	}
	return nil
}

func newHash(algo string) (hash.Hash, error) {
	switch algo {
	case HashSHA3, "":
		return sha3.New256(), nil
	case HashBlake3:
		return blake3.New(), nil
	default:
		return nil, fmt.Errorf("unknown hash algorithm: %q", algo)
	}
}
