package transport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zde37/ringlookup/internal/chord"
	"github.com/zde37/ringlookup/pkg"
	"github.com/zde37/ringlookup/pkg/ring"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		require.NoError(t, q.Push(chord.Done{From: chord.Address(i)}))
	}
	assert.Equal(t, 100, q.Len())

	for i := 0; i < 100; i++ {
		msg, err := q.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, chord.Done{From: chord.Address(i)}, msg)
	}
	assert.Equal(t, 0, q.Len())
}

func TestQueueBlocksUntilPush(t *testing.T) {
	q := NewQueue()

	got := make(chan chord.Message, 1)
	go func() {
		msg, err := q.Receive(context.Background())
		if err == nil {
			got <- msg
		}
	}()

	select {
	case <-got:
		t.Fatal("receive returned before any push")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, q.Push(chord.Done{From: 3}))
	select {
	case msg := <-got:
		assert.Equal(t, chord.Done{From: 3}, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("receive never woke up")
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := NewQueue()
	const producers, perProducer = 8, 200

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(chord.RouteRequest{Lookup: chord.LookupMessage{InitiatorID: ring.ID(p), Seq: i}})
			}
		}(p)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// per producer order is preserved even while producers interleave
	next := make([]int, producers)
	for received := 0; received < producers*perProducer; received++ {
		msg, err := q.Receive(ctx)
		require.NoError(t, err)
		l := msg.(chord.RouteRequest).Lookup
		require.Equal(t, next[l.InitiatorID], l.Seq)
		next[l.InitiatorID]++
	}
	wg.Wait()
	assert.Equal(t, 0, q.Len())
}

func TestQueueClose(t *testing.T) {
	q := NewQueue()
	require.NoError(t, q.Push(chord.Done{From: 1}))
	q.Close()
	q.Close() // idempotent

	assert.ErrorIs(t, q.Push(chord.Done{From: 2}), pkg.ErrTransportClosed)

	msg, err := q.Receive(context.Background())
	require.NoError(t, err, "queued messages survive close")
	assert.Equal(t, chord.Done{From: 1}, msg)

	_, err = q.Receive(context.Background())
	assert.ErrorIs(t, err, pkg.ErrTransportClosed)
}

func TestQueueContextCancel(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Receive(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalFabric(t *testing.T) {
	f := NewLocalFabric(3)
	defer f.Close()
	ctx := context.Background()

	assert.Equal(t, 3, f.Size())

	a, err := f.Endpoint(0)
	require.NoError(t, err)
	b, err := f.Endpoint(2)
	require.NoError(t, err)
	assert.Equal(t, chord.Address(2), b.Address())

	for i := 0; i < 5; i++ {
		require.NoError(t, a.Send(ctx, 2, chord.Done{From: chord.Address(i)}))
	}
	for i := 0; i < 5; i++ {
		msg, err := b.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, chord.Done{From: chord.Address(i)}, msg)
	}

	assert.ErrorIs(t, a.Send(ctx, 3, chord.Done{}), pkg.ErrUnknownID)
	_, err = f.Endpoint(-1)
	assert.ErrorIs(t, err, pkg.ErrUnknownID)
}

func TestNewFabric(t *testing.T) {
	f, err := NewFabric(Options{Kind: KindLocal, Size: 2}, nil)
	require.NoError(t, err)
	assert.IsType(t, &LocalFabric{}, f)
	require.NoError(t, f.Close())

	_, err = NewFabric(Options{Kind: "carrier-pigeon", Size: 2}, nil)
	assert.Error(t, err)

	_, err = NewFabric(Options{Kind: KindLocal, Size: 0}, nil)
	assert.Error(t, err)
}
