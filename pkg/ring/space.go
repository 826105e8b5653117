package ring

import "fmt"

// MaxBits is the widest identifier space supported. Ids are uint64 and
// 2^m must stay representable.
const MaxBits = 62

// ID is a position on the ring, in [0, 2^m).
type ID uint64

// Space is an m-bit circular identifier space.
type Space struct {
	Bits int
}

// NewSpace returns the identifier space of the given width.
func NewSpace(bits int) (Space, error) {
	if bits <= 0 || bits > MaxBits {
		return Space{}, fmt.Errorf("bits must be between 1 and %d, got %d", MaxBits, bits)
	}
	return Space{Bits: bits}, nil
}

// Size returns 2^m, the number of slots on the ring.
func (s Space) Size() uint64 {
	return uint64(1) << uint(s.Bits)
}

// Contains reports whether id lies in [0, 2^m).
func (s Space) Contains(id ID) bool {
	return uint64(id) < s.Size()
}

// Normalize returns x mod 2^m.
func (s Space) Normalize(x uint64) ID {
	return ID(x & (s.Size() - 1))
}

// AddPowerOfTwo computes (id + 2^exponent) mod 2^m.
// This is the start of finger[exponent].
func (s Space) AddPowerOfTwo(id ID, exponent int) ID {
	return s.Normalize(uint64(id) + uint64(1)<<uint(exponent))
}

// Distance computes the clockwise distance from start to end.
func (s Space) Distance(start, end ID) uint64 {
	return uint64(s.Normalize(uint64(end) - uint64(start)))
}

// InInterval checks if x is in the cyclic range (a, b].
//
// Examples:
//   - InInterval(5, 3, 7)  = true   // 5 is in (3, 7]
//   - InInterval(3, 3, 7)  = false  // exclusive start
//   - InInterval(7, 3, 7)  = true   // inclusive end
//   - InInterval(1, 14, 3) = true   // wraps past 0
//   - InInterval(x, 4, 4)  = true   // a == b covers the whole circle
func InInterval(x, a, b ID) bool {
	switch {
	case a < b:
		return x > a && x <= b
	case a > b:
		return x > a || x <= b
	default:
		return true
	}
}
