package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSpace(t *testing.T) {
	tests := []struct {
		name    string
		bits    int
		wantErr bool
	}{
		{name: "reference width", bits: 4},
		{name: "one bit", bits: 1},
		{name: "max width", bits: MaxBits},
		{name: "zero", bits: 0, wantErr: true},
		{name: "too wide", bits: 63, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSpace(tt.bits)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uint64(1)<<uint(tt.bits), s.Size())
		})
	}
}

func TestInInterval(t *testing.T) {
	tests := []struct {
		name    string
		x, a, b ID
		want    bool
	}{
		{"inside", 5, 3, 7, true},
		{"exclusive start", 3, 3, 7, false},
		{"inclusive end", 7, 3, 7, true},
		{"past end", 8, 3, 7, false},
		{"wrap high side", 15, 14, 3, true},
		{"wrap low side", 1, 14, 3, true},
		{"wrap zero", 0, 14, 3, true},
		{"wrap outside", 10, 14, 3, false},
		{"wrap exclusive start", 14, 14, 3, false},
		{"full circle self", 4, 4, 4, true},
		{"full circle other", 11, 4, 4, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InInterval(tt.x, tt.a, tt.b))
		})
	}
}

func TestAddPowerOfTwo(t *testing.T) {
	s := Space{Bits: 4}

	assert.Equal(t, ID(5), s.AddPowerOfTwo(4, 0))
	assert.Equal(t, ID(6), s.AddPowerOfTwo(4, 1))
	assert.Equal(t, ID(8), s.AddPowerOfTwo(4, 2))
	assert.Equal(t, ID(12), s.AddPowerOfTwo(4, 3))
	assert.Equal(t, ID(6), s.AddPowerOfTwo(14, 3), "wraps modulo 16")
	assert.Equal(t, ID(0), s.AddPowerOfTwo(15, 0))
}

func TestDistanceAndContains(t *testing.T) {
	s := Space{Bits: 4}

	assert.Equal(t, uint64(4), s.Distance(3, 7))
	assert.Equal(t, uint64(12), s.Distance(7, 3))
	assert.Equal(t, uint64(0), s.Distance(9, 9))

	assert.True(t, s.Contains(0))
	assert.True(t, s.Contains(15))
	assert.False(t, s.Contains(16))
	assert.Equal(t, ID(3), s.Normalize(19))
}
