package feed

import (
	"fmt"

	"github.com/holiman/uint256"
)

var syntheticKinds = [...]string{"transfer", "mint", "burn"}

// SyntheticGetter is an in-memory feed that derives every event from its
// ID, so any two instances agree on the whole stream. It backs the --test
// run mode and the unit tests; Advance moves the tip as if the
// application had written more rows.
type SyntheticGetter struct {
	LatestID uint64
}

func NewSyntheticGetter(latestID uint64) *SyntheticGetter {
	return &SyntheticGetter{LatestID: latestID}
}

// Advance grows the feed by n events.
func (s *SyntheticGetter) Advance(n uint64) {
	s.LatestID += n
}

func (s *SyntheticGetter) GetLatestEventID() (uint64, error) {
	return s.LatestID, nil
}

func (s *SyntheticGetter) GetEventsAfter(afterID uint64, limit int) ([]Event, error) {
	events := make([]Event, 0, limit)
	for id := afterID + 1; id <= s.LatestID && len(events) < limit; id++ {
		events = append(events, SyntheticEvent(id))
	}
	return events, nil
}

// SyntheticEvent is the deterministic event for an ID.
func SyntheticEvent(id uint64) Event {
	return Event{
		ID:      id,
		Kind:    syntheticKinds[id%uint64(len(syntheticKinds))],
		Account: fmt.Sprintf("acct-%04d", id%101),
		Amount:  uint256.NewInt(id*7919 + 1),
	}
}
