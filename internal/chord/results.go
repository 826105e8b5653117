package chord

import (
	"fmt"

	"github.com/zde37/ringlookup/pkg"
)

// ResultStore holds the completed lookups of one participant, indexed by
// sequence number. Each slot is written exactly once.
type ResultStore struct {
	slots     []LookupMessage
	filled    []bool
	completed int
}

// NewResultStore creates a store for size locally issued lookups.
func NewResultStore(size int) *ResultStore {
	return &ResultStore{
		slots:  make([]LookupMessage, size),
		filled: make([]bool, size),
	}
}

// Put stores a completed lookup in its sequence slot.
func (s *ResultStore) Put(msg LookupMessage) error {
	if msg.Seq < 0 || msg.Seq >= len(s.slots) {
		return fmt.Errorf("reply seq %d, issued %d: %w", msg.Seq, len(s.slots), pkg.ErrSequenceOutOfRange)
	}
	if s.filled[msg.Seq] {
		return fmt.Errorf("reply seq %d: %w", msg.Seq, pkg.ErrDuplicateReply)
	}
	s.slots[msg.Seq] = msg
	s.filled[msg.Seq] = true
	s.completed++
	return nil
}

// Size returns the number of lookups the store was sized for.
func (s *ResultStore) Size() int {
	return len(s.slots)
}

// Completed returns how many slots have been filled.
func (s *ResultStore) Completed() int {
	return s.completed
}

// Ordered returns the stored lookups by ascending sequence number.
func (s *ResultStore) Ordered() []LookupMessage {
	out := make([]LookupMessage, 0, s.completed)
	for i, ok := range s.filled {
		if ok {
			out = append(out, s.slots[i])
		}
	}
	return out
}
