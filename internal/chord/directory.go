package chord

import (
	"fmt"
	"sort"

	"github.com/zde37/ringlookup/pkg"
	"github.com/zde37/ringlookup/pkg/ring"
)

// RingDirectory is the globally agreed mapping from ring id to participant
// address, plus the sorted cyclic list of ids. It is built once from the
// all-gathered members and is read-only afterwards, so it can be shared by
// every participant without locking.
type RingDirectory struct {
	space  ring.Space
	sorted []ring.ID
	index  map[ring.ID]int // id -> position in sorted
	addrs  map[ring.ID]Address
}

// NewRingDirectory validates the members and builds the directory.
func NewRingDirectory(space ring.Space, members []Member) (*RingDirectory, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("ring directory needs at least one member")
	}

	d := &RingDirectory{
		space:  space,
		sorted: make([]ring.ID, 0, len(members)),
		index:  make(map[ring.ID]int, len(members)),
		addrs:  make(map[ring.ID]Address, len(members)),
	}

	for _, m := range members {
		if !space.Contains(m.ID) {
			return nil, fmt.Errorf("member %d (address %d): %w", m.ID, m.Addr, pkg.ErrIDOutOfRange)
		}
		if prev, ok := d.addrs[m.ID]; ok {
			return nil, fmt.Errorf("id %d claimed by addresses %d and %d: %w", m.ID, prev, m.Addr, pkg.ErrDuplicateID)
		}
		d.addrs[m.ID] = m.Addr
		d.sorted = append(d.sorted, m.ID)
	}

	sort.Slice(d.sorted, func(i, j int) bool { return d.sorted[i] < d.sorted[j] })
	for i, id := range d.sorted {
		d.index[id] = i
	}

	return d, nil
}

// Space returns the identifier space of the ring.
func (d *RingDirectory) Space() ring.Space {
	return d.space
}

// Len returns the number of participants.
func (d *RingDirectory) Len() int {
	return len(d.sorted)
}

// IDs returns a copy of the participant ids in ascending order.
func (d *RingDirectory) IDs() []ring.ID {
	out := make([]ring.ID, len(d.sorted))
	copy(out, d.sorted)
	return out
}

// Addresses returns every participant address, in ascending id order.
func (d *RingDirectory) Addresses() []Address {
	out := make([]Address, len(d.sorted))
	for i, id := range d.sorted {
		out[i] = d.addrs[id]
	}
	return out
}

// Contains reports whether id belongs to a participant.
func (d *RingDirectory) Contains(id ring.ID) bool {
	_, ok := d.index[id]
	return ok
}

// SuccessorOf returns the next participant id in cyclic order.
func (d *RingDirectory) SuccessorOf(id ring.ID) (ring.ID, error) {
	i, ok := d.index[id]
	if !ok {
		return 0, fmt.Errorf("successor of %d: %w", id, pkg.ErrNotAParticipant)
	}
	return d.sorted[(i+1)%len(d.sorted)], nil
}

// PredecessorOf returns the previous participant id in cyclic order.
func (d *RingDirectory) PredecessorOf(id ring.ID) (ring.ID, error) {
	i, ok := d.index[id]
	if !ok {
		return 0, fmt.Errorf("predecessor of %d: %w", id, pkg.ErrNotAParticipant)
	}
	n := len(d.sorted)
	return d.sorted[(i-1+n)%n], nil
}

// AddressOf resolves the participant to contact for a participant id.
func (d *RingDirectory) AddressOf(id ring.ID) (Address, error) {
	addr, ok := d.addrs[id]
	if !ok {
		return 0, fmt.Errorf("address of %d: %w", id, pkg.ErrUnknownID)
	}
	return addr, nil
}

// FirstIDAtOrAfter returns the smallest participant id >= key, wrapping to
// the minimum id. This is the owner of key.
func (d *RingDirectory) FirstIDAtOrAfter(key ring.ID) ring.ID {
	i := sort.Search(len(d.sorted), func(i int) bool { return d.sorted[i] >= key })
	if i == len(d.sorted) {
		return d.sorted[0]
	}
	return d.sorted[i]
}
