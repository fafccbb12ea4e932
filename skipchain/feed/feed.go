// Package feed supplies the application events a checkpoint summarises.
// The chain does not care where events come from; anything implementing
// EventGetter can drive it.
package feed

import (
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/mskd12/skip-checkpoint-chain/skipchain"
)

// Event is one row of the application's event stream. IDs ascend strictly
// and never repeat.
type Event struct {
	ID      uint64
	Kind    string
	Account string
	Amount  *uint256.Int
}

type EventGetter interface {
	// GetLatestEventID returns the newest event ID, zero on an empty feed.
	GetLatestEventID() (uint64, error)
	// GetEventsAfter returns up to limit events with ID > afterID in
	// ascending ID order.
	GetEventsAfter(afterID uint64, limit int) ([]Event, error)
}

// Summary condenses a batch of events into the fixed-shape record a
// checkpoint payload carries. TotalAmount saturates nothing: amounts are
// 256-bit and summed modulo 2^256 like every uint256 computation.
type Summary struct {
	FirstID     uint64
	LastID      uint64
	Count       uint64
	TotalAmount *uint256.Int
	EventsHash  [skipchain.DigestSize]byte
}

// Summarize folds events, which must be in ascending ID order, into a
// Summary. An empty batch yields FirstID == LastID == watermark, so the
// payload still records how far the feed has been drained. The events
// hash covers every field of every event through the chain's digest
// algorithm, so two deployments with different hash algos produce
// different payloads for identical events.
func Summarize(hasher *skipchain.Hasher, watermark uint64, events []Event) Summary {
	s := Summary{
		FirstID:     watermark,
		LastID:      watermark,
		Count:       uint64(len(events)),
		TotalAmount: uint256.NewInt(0),
	}
	buf := make([]byte, 0, len(events)*64)
	for i, ev := range events {
		if i == 0 {
			s.FirstID = ev.ID
		}
		s.LastID = ev.ID
		if ev.Amount != nil {
			s.TotalAmount.Add(s.TotalAmount, ev.Amount)
		}
		buf = appendEvent(buf, ev)
	}
	s.EventsHash = hasher.Sum(buf)
	return s
}

func appendEvent(buf []byte, ev Event) []byte {
	buf = binary.BigEndian.AppendUint64(buf, ev.ID)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(ev.Kind)))
	buf = append(buf, ev.Kind...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(ev.Account)))
	buf = append(buf, ev.Account...)
	var amount [32]byte
	if ev.Amount != nil {
		amount = ev.Amount.Bytes32()
	}
	return append(buf, amount[:]...)
}

// EncodedSummaryLen is the exact size of Summary.Encode output.
const EncodedSummaryLen = 8 + 8 + 8 + 32 + skipchain.DigestSize

// Encode returns the canonical payload bytes: three big-endian uint64s,
// the 32-byte big-endian total and the events hash.
func (s Summary) Encode() []byte {
	buf := make([]byte, 0, EncodedSummaryLen)
	buf = binary.BigEndian.AppendUint64(buf, s.FirstID)
	buf = binary.BigEndian.AppendUint64(buf, s.LastID)
	buf = binary.BigEndian.AppendUint64(buf, s.Count)
	var total [32]byte
	if s.TotalAmount != nil {
		total = s.TotalAmount.Bytes32()
	}
	buf = append(buf, total[:]...)
	buf = append(buf, s.EventsHash[:]...)
	return buf
}

// DecodeSummary parses an Encode serialisation. The service uses it to
// recover its feed watermark from the head checkpoint's payload after a
// restart.
func DecodeSummary(data []byte) (Summary, error) {
	if len(data) != EncodedSummaryLen {
		return Summary{}, fmt.Errorf("summary encoding is %d bytes, want %d", len(data), EncodedSummaryLen)
	}
	var s Summary
	s.FirstID = binary.BigEndian.Uint64(data[:8])
	s.LastID = binary.BigEndian.Uint64(data[8:16])
	s.Count = binary.BigEndian.Uint64(data[16:24])
	s.TotalAmount = new(uint256.Int).SetBytes(data[24:56])
	copy(s.EventsHash[:], data[56:])
	if s.Count == 0 && s.FirstID != s.LastID {
		return Summary{}, fmt.Errorf("summary claims IDs %d..%d with zero events", s.FirstID, s.LastID)
	}
	if s.FirstID > s.LastID {
		return Summary{}, fmt.Errorf("summary ID range %d..%d inverted", s.FirstID, s.LastID)
	}
	return s, nil
}
