package transport

import (
	"context"
	"fmt"

	"github.com/zde37/ringlookup/internal/chord"
	"github.com/zde37/ringlookup/pkg"
)

// LocalFabric connects participants of one process through in-memory queues.
type LocalFabric struct {
	queues []*Queue
}

// NewLocalFabric creates a fabric for n participants.
func NewLocalFabric(n int) *LocalFabric {
	queues := make([]*Queue, n)
	for i := range queues {
		queues[i] = NewQueue()
	}
	return &LocalFabric{queues: queues}
}

// Size returns the number of participants.
func (f *LocalFabric) Size() int {
	return len(f.queues)
}

// Endpoint returns the endpoint of participant addr.
func (f *LocalFabric) Endpoint(addr chord.Address) (Endpoint, error) {
	if int(addr) < 0 || int(addr) >= len(f.queues) {
		return nil, fmt.Errorf("address %d: %w", addr, pkg.ErrUnknownID)
	}
	return &localEndpoint{fabric: f, addr: addr}, nil
}

// Close closes every queue.
func (f *LocalFabric) Close() error {
	for _, q := range f.queues {
		q.Close()
	}
	return nil
}

type localEndpoint struct {
	fabric *LocalFabric
	addr   chord.Address
}

func (e *localEndpoint) Address() chord.Address {
	return e.addr
}

func (e *localEndpoint) Send(ctx context.Context, to chord.Address, msg chord.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if int(to) < 0 || int(to) >= len(e.fabric.queues) {
		return fmt.Errorf("address %d: %w", to, pkg.ErrUnknownID)
	}
	return e.fabric.queues[to].Push(msg)
}

func (e *localEndpoint) Receive(ctx context.Context) (chord.Message, error) {
	return e.fabric.queues[e.addr].Receive(ctx)
}
