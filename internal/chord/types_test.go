package chord

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zde37/ringlookup/pkg"
	"github.com/zde37/ringlookup/pkg/ring"
)

func TestFingerEntry_String(t *testing.T) {
	f := FingerEntry{Start: 5, Node: 9}
	assert.Equal(t, "FingerEntry{Start: 5, Node: 9}", f.String())
}

func TestLookupMessage_Owner(t *testing.T) {
	tests := []struct {
		name  string
		path  []ring.ID
		owner ring.ID
		ok    bool
	}{
		{name: "empty path", path: nil, ok: false},
		{name: "single hop", path: []ring.ID{7, 7}, owner: 7, ok: true},
		{name: "multi hop", path: []ring.ID{4, 14, 1}, owner: 1, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, ok := LookupMessage{Path: tt.path}.Owner()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.owner, owner)
		})
	}
}

func TestLookupMessage_PathString(t *testing.T) {
	assert.Equal(t, "", LookupMessage{}.PathString())
	assert.Equal(t, "4", LookupMessage{Path: []ring.ID{4}}.PathString())
	assert.Equal(t, "4 -> 14 -> 1 -> 4", LookupMessage{Path: []ring.ID{4, 14, 1, 4}}.PathString())
}

func TestLookupMessage_WithHop(t *testing.T) {
	base := LookupMessage{InitiatorID: 4, Seq: 1, Key: 10, Path: make([]ring.ID, 1, 8)}
	base.Path[0] = 4

	a := base.withHop(9)
	b := base.withHop(14)
	assert.Equal(t, []ring.ID{4, 9}, a.Path)
	assert.Equal(t, []ring.ID{4, 14}, b.Path, "copies never share a backing array")
	assert.Equal(t, []ring.ID{4}, base.Path)
	assert.Equal(t, base.Key, a.Key)
	assert.Equal(t, base.Seq, a.Seq)
}

func TestMessageKinds(t *testing.T) {
	tests := []struct {
		msg  Message
		kind string
	}{
		{RouteRequest{}, KindRoute},
		{Reply{}, KindReply},
		{Done{}, KindDone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.kind, tt.msg.Kind())
	}
}

func TestResultStore(t *testing.T) {
	s := NewResultStore(3)
	assert.Equal(t, 3, s.Size())
	assert.Equal(t, 0, s.Completed())

	// replies may arrive in any order
	require.NoError(t, s.Put(LookupMessage{Seq: 2, Key: 15}))
	require.NoError(t, s.Put(LookupMessage{Seq: 0, Key: 10}))
	assert.Equal(t, 2, s.Completed())

	assert.ErrorIs(t, s.Put(LookupMessage{Seq: 2, Key: 15}), pkg.ErrDuplicateReply)
	assert.ErrorIs(t, s.Put(LookupMessage{Seq: 3}), pkg.ErrSequenceOutOfRange)
	assert.ErrorIs(t, s.Put(LookupMessage{Seq: -1}), pkg.ErrSequenceOutOfRange)
	assert.Equal(t, 2, s.Completed())

	require.NoError(t, s.Put(LookupMessage{Seq: 1, Key: 4}))
	var keys []ring.ID
	for _, m := range s.Ordered() {
		keys = append(keys, m.Key)
	}
	assert.Equal(t, []ring.ID{10, 4, 15}, keys)
}

func TestWriteReport(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, WriteReport(&out, []LookupMessage{
		{Key: 10, Path: []ring.ID{4, 9, 14}},
		{Key: 3, Path: []ring.ID{7, 7}},
	}))
	assert.Equal(t, "Lookup 10: 4 -> 9 -> 14\nLookup 3: 7 -> 7\n", out.String())

	out.Reset()
	require.NoError(t, WriteReport(&out, nil))
	assert.Empty(t, out.String())
}
