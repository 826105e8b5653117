package chord

import (
	"fmt"

	"github.com/zde37/ringlookup/pkg/ring"
)

// BuildFingerTable computes the m finger entries of self.
// finger[i] points to the first participant at or after (self + 2^i) mod 2^m.
// The ring is static, so the table is built exactly once.
func BuildFingerTable(dir *RingDirectory, self ring.ID) []FingerEntry {
	space := dir.Space()
	fingers := make([]FingerEntry, space.Bits)
	for i := 0; i < space.Bits; i++ {
		start := space.AddPowerOfTwo(self, i)
		fingers[i] = FingerEntry{
			Start: start,
			Node:  dir.FirstIDAtOrAfter(start),
		}
	}
	return fingers
}

// NewNodeState derives the full routing state of participant self.
func NewNodeState(dir *RingDirectory, self ring.ID) (NodeState, error) {
	succ, err := dir.SuccessorOf(self)
	if err != nil {
		return NodeState{}, fmt.Errorf("failed to build node state: %w", err)
	}
	pred, err := dir.PredecessorOf(self)
	if err != nil {
		return NodeState{}, fmt.Errorf("failed to build node state: %w", err)
	}

	return NodeState{
		ID:          self,
		Successor:   succ,
		Predecessor: pred,
		Fingers:     BuildFingerTable(dir, self),
	}, nil
}
