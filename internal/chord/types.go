package chord

import (
	"fmt"
	"strings"

	"github.com/zde37/ringlookup/pkg/ring"
)

// Address identifies the participant to contact for a ring id. In the
// simulator it is the participant's rank.
type Address int

// Member is one participant's contribution to the all-gather: its ring id and
// the address it can be reached at.
type Member struct {
	ID   ring.ID
	Addr Address
}

// FingerEntry represents an entry in the finger table.
// Start is (n + 2^i) mod 2^m, Node is the first participant at or after Start.
type FingerEntry struct {
	Start ring.ID
	Node  ring.ID
}

// String returns a human-readable representation of the finger entry.
func (f FingerEntry) String() string {
	return fmt.Sprintf("FingerEntry{Start: %d, Node: %d}", f.Start, f.Node)
}

// NodeState is the routing state of a single participant. It is computed once
// from the ring directory and never mutated.
type NodeState struct {
	ID          ring.ID
	Successor   ring.ID
	Predecessor ring.ID
	Fingers     []FingerEntry
}

// LookupMessage carries one lookup through the ring.
type LookupMessage struct {
	InitiatorID ring.ID
	Seq         int
	Key         ring.ID
	Path        []ring.ID // visited ids, initiator first
}

// Owner returns the last id on the path, the participant responsible for Key
// once the lookup has completed.
func (m LookupMessage) Owner() (ring.ID, bool) {
	if len(m.Path) == 0 {
		return 0, false
	}
	return m.Path[len(m.Path)-1], true
}

// PathString renders the path as "a -> b -> c".
func (m LookupMessage) PathString() string {
	parts := make([]string, len(m.Path))
	for i, id := range m.Path {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, " -> ")
}

// withHop returns a copy of m with ids appended to the path. The receiver's
// path is never shared with the copy.
func (m LookupMessage) withHop(ids ...ring.ID) LookupMessage {
	path := make([]ring.ID, 0, len(m.Path)+len(ids))
	path = append(path, m.Path...)
	path = append(path, ids...)
	m.Path = path
	return m
}

// Message kinds, used in logs and on the wire.
const (
	KindRoute = "route"
	KindReply = "reply"
	KindDone  = "done"
)

// Message is one of RouteRequest, Reply or Done.
type Message interface {
	Kind() string
	isMessage()
}

// RouteRequest asks the receiver to take the next routing step for a lookup.
type RouteRequest struct {
	Lookup LookupMessage
}

// Reply returns a completed lookup to its initiator.
type Reply struct {
	Lookup LookupMessage
}

// Done announces that the sender has completed all of its own lookups.
// The handshake only counts Done messages; From is for logs.
type Done struct {
	From Address
}

func (RouteRequest) Kind() string { return KindRoute }
func (Reply) Kind() string        { return KindReply }
func (Done) Kind() string         { return KindDone }

func (RouteRequest) isMessage() {}
func (Reply) isMessage()        {}
func (Done) isMessage()         {}
