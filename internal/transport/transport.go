// Package transport carries chord messages between participants.
//
// Every implementation is reliable and delivers messages from one sender to
// one receiver in the order they were sent. Sends never wait for the
// receiver to consume a message: each participant's mailbox is an unbounded
// queue, so two service loops sending to each other cannot deadlock.
package transport

import (
	"fmt"

	"github.com/zde37/ringlookup/internal/chord"
	"github.com/zde37/ringlookup/pkg"
)

// Transport kinds accepted by NewFabric.
const (
	KindLocal = "local"
	KindGRPC  = "grpc"
)

// Endpoint is one participant's view of the transport.
type Endpoint interface {
	chord.Sender
	chord.Mailbox
	Address() chord.Address
}

// Fabric connects a fixed set of participants, addressed 0..n-1.
type Fabric interface {
	Endpoint(addr chord.Address) (Endpoint, error)
	Size() int
	Close() error
}

// Options configures NewFabric.
type Options struct {
	Kind      string
	Size      int
	Host      string // grpc only
	BasePort  int    // grpc only; 0 picks free ports
	AuthToken string // grpc only
}

// NewFabric creates the fabric selected by opts.Kind.
func NewFabric(opts Options, logger *pkg.Logger) (Fabric, error) {
	if opts.Size <= 0 {
		return nil, fmt.Errorf("fabric size must be positive, got %d", opts.Size)
	}

	switch opts.Kind {
	case KindLocal, "":
		return NewLocalFabric(opts.Size), nil
	case KindGRPC:
		return NewGRPCFabric(opts, logger)
	default:
		return nil, fmt.Errorf("unknown transport %q", opts.Kind)
	}
}
