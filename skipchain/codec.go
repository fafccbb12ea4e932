package skipchain

import (
	"encoding/binary"
	"fmt"
)

// Canonical checkpoint encoding:
//
//	seq          uint64, big-endian
//	digest       DigestSize bytes
//	payloadHash  DigestSize bytes
//	fingerCount  uint32, big-endian
//	fingers      fingerCount x (seq uint64 BE, digest DigestSize bytes),
//	             ascending by seq
//
// Two equal checkpoints always encode to identical bytes, so the encoding
// is safe to hash, sign and compare.

const (
	encHeaderLen = 8 + DigestSize + DigestSize + 4
	encFingerLen = 8 + DigestSize
)

// EncodedLen returns the exact size of EncodeCheckpoint's output.
func EncodedLen(fingers int) int {
	return encHeaderLen + fingers*encFingerLen
}

// EncodeCheckpoint serialises c into the canonical form. The checkpoint is
// assumed well-formed; fingers are written in the order they are held,
// which is ascending for every checkpoint produced by a Builder or
// accepted by DecodeCheckpoint.
func EncodeCheckpoint(c *Checkpoint) []byte {
	buf := make([]byte, 0, EncodedLen(len(c.Fingers)))
	buf = binary.BigEndian.AppendUint64(buf, c.Seq)
	buf = append(buf, c.Digest[:]...)
	buf = append(buf, c.PayloadHash[:]...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(c.Fingers)))
	for _, f := range c.Fingers {
		buf = binary.BigEndian.AppendUint64(buf, f.Seq)
		buf = append(buf, f.Digest[:]...)
	}
	return buf
}

// DecodeCheckpoint parses the canonical form. It rejects truncated input,
// trailing bytes, fingers out of ascending order, duplicate fingers and
// fingers that do not point strictly backwards. Digest correctness is not
// checked here; that needs the chain's Hasher.
func DecodeCheckpoint(data []byte) (*Checkpoint, error) {
	if len(data) < encHeaderLen {
		return nil, fmt.Errorf("checkpoint encoding too short: %d bytes", len(data))
	}
	c := &Checkpoint{}
	c.Seq = binary.BigEndian.Uint64(data[:8])
	off := 8
	copy(c.Digest[:], data[off:off+DigestSize])
	off += DigestSize
	copy(c.PayloadHash[:], data[off:off+DigestSize])
	off += DigestSize
	count := binary.BigEndian.Uint32(data[off : off+4])
	off += 4

	want := EncodedLen(int(count))
	if len(data) != want {
		return nil, fmt.Errorf("checkpoint encoding is %d bytes, want %d for %d fingers", len(data), want, count)
	}
	if count == 0 {
		return c, nil
	}
	c.Fingers = make([]Finger, count)
	for i := range c.Fingers {
		f := &c.Fingers[i]
		f.Seq = binary.BigEndian.Uint64(data[off : off+8])
		off += 8
		copy(f.Digest[:], data[off:off+DigestSize])
		off += DigestSize
		if f.Seq >= c.Seq {
			return nil, fmt.Errorf("checkpoint %d encodes non-ancestor finger %d", c.Seq, f.Seq)
		}
		if i > 0 && f.Seq <= c.Fingers[i-1].Seq {
			return nil, fmt.Errorf("checkpoint %d encodes fingers out of order at %d", c.Seq, f.Seq)
		}
	}
	return c, nil
}

// EncodePath serialises an authentication path as a big-endian uint32 hop
// count followed by each hop's canonical encoding, walk order preserved.
// Checkpoint encodings are self-delimiting, so no per-hop length prefix is
// needed.
func EncodePath(path []*Checkpoint) []byte {
	size := 4
	for _, c := range path {
		size += EncodedLen(len(c.Fingers))
	}
	buf := make([]byte, 0, size)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(path)))
	for _, c := range path {
		buf = append(buf, EncodeCheckpoint(c)...)
	}
	return buf
}

// DecodePath parses an EncodePath serialisation.
func DecodePath(data []byte) ([]*Checkpoint, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("path encoding too short: %d bytes", len(data))
	}
	count := binary.BigEndian.Uint32(data[:4])
	data = data[4:]
	if uint64(count) > uint64(len(data))/encHeaderLen {
		return nil, fmt.Errorf("path encoding claims %d hops in %d bytes", count, len(data))
	}
	path := make([]*Checkpoint, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(data) < encHeaderLen {
			return nil, fmt.Errorf("path encoding truncated at hop %d", i)
		}
		fingers := binary.BigEndian.Uint32(data[encHeaderLen-4 : encHeaderLen])
		hopLen := EncodedLen(int(fingers))
		if len(data) < hopLen {
			return nil, fmt.Errorf("path encoding truncated at hop %d", i)
		}
		c, err := DecodeCheckpoint(data[:hopLen])
		if err != nil {
			return nil, fmt.Errorf("hop %d: %w", i, err)
		}
		path = append(path, c)
		data = data[hopLen:]
	}
	if len(data) != 0 {
		return nil, fmt.Errorf("path encoding has %d trailing bytes", len(data))
	}
	return path, nil
}
