package chord

import (
	"fmt"

	"github.com/zde37/ringlookup/pkg/ring"
)

// ClosestPrecedingFinger returns the furthest finger that still precedes key.
// Fingers equal to self or to key are skipped; if none lies in (self, key),
// the successor is returned.
func ClosestPrecedingFinger(state NodeState, key ring.ID) ring.ID {
	for i := len(state.Fingers) - 1; i >= 0; i-- {
		node := state.Fingers[i].Node
		if node == state.ID || node == key {
			continue
		}
		if ring.InInterval(node, state.ID, key) {
			return node
		}
	}
	return state.Successor
}

// Route takes one routing step for msg at the participant described by state.
// It returns the single outbound message and the address to send it to: a
// Reply to the initiator when the successor owns the key, otherwise a
// RouteRequest to the closest preceding finger. msg is not modified.
func Route(dir *RingDirectory, state NodeState, msg LookupMessage) (Message, Address, error) {
	if ring.InInterval(msg.Key, state.ID, state.Successor) {
		done := msg.withHop(state.ID, state.Successor)
		to, err := dir.AddressOf(done.InitiatorID)
		if err != nil {
			return nil, 0, fmt.Errorf("reply for lookup %d of %d: %w", msg.Seq, msg.InitiatorID, err)
		}
		return Reply{Lookup: done}, to, nil
	}

	next := ClosestPrecedingFinger(state, msg.Key)
	fwd := msg.withHop(state.ID)
	to, err := dir.AddressOf(next)
	if err != nil {
		return nil, 0, fmt.Errorf("forward lookup %d of %d to %d: %w", msg.Seq, msg.InitiatorID, next, err)
	}
	return RouteRequest{Lookup: fwd}, to, nil
}
