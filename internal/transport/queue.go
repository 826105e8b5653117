package transport

import (
	"context"
	"sync"

	"github.com/zde37/ringlookup/internal/chord"
	"github.com/zde37/ringlookup/pkg"
)

// Queue is an unbounded FIFO mailbox with a single consumer.
type Queue struct {
	mu     sync.Mutex
	items  []chord.Message
	closed bool

	notify chan struct{} // capacity 1, signalled on every push
	done   chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Push appends msg. It never blocks.
func (q *Queue) Push(msg chord.Message) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return pkg.ErrTransportClosed
	}
	q.items = append(q.items, msg)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Receive blocks until a message is available, the queue is closed or ctx
// is done.
func (q *Queue) Receive(ctx context.Context) (chord.Message, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			msg := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.mu.Unlock()
			return msg, nil
		}
		if q.closed {
			q.mu.Unlock()
			return nil, pkg.ErrTransportClosed
		}
		q.mu.Unlock()

		select {
		case <-q.notify:
		case <-q.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Len returns the number of queued messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close rejects further pushes. Queued messages can still be received.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.done)
	}
}
