package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/zde37/ringlookup/internal/chord"
	"github.com/zde37/ringlookup/pkg"
)

// GRPCFabric gives every participant its own gRPC server and client. Rank r
// listens on Host:BasePort+r, or on a free port when BasePort is 0.
type GRPCFabric struct {
	servers []*GRPCServer
	clients []*GRPCClient
	peers   []string // listening address per rank
	logger  *pkg.Logger
}

// NewGRPCFabric starts one server per participant.
func NewGRPCFabric(opts Options, logger *pkg.Logger) (*GRPCFabric, error) {
	if logger == nil {
		logger = pkg.Nop()
	}
	if opts.BasePort > 0 && opts.BasePort+opts.Size-1 > 65535 {
		return nil, fmt.Errorf("base port %d leaves no room for %d participants", opts.BasePort, opts.Size)
	}
	host := opts.Host
	if host == "" {
		host = "127.0.0.1"
	}

	f := &GRPCFabric{
		servers: make([]*GRPCServer, 0, opts.Size),
		clients: make([]*GRPCClient, 0, opts.Size),
		peers:   make([]string, 0, opts.Size),
		logger:  logger.WithFields(pkg.Fields{"component": "grpc_fabric"}),
	}

	for r := 0; r < opts.Size; r++ {
		port := 0
		if opts.BasePort > 0 {
			port = opts.BasePort + r
		}
		addr := net.JoinHostPort(host, strconv.Itoa(port))

		srv, err := NewGRPCServer(NewQueue(), addr, opts.AuthToken, logger.WithFields(pkg.Fields{"rank": r}))
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := srv.Start(); err != nil {
			f.Close()
			return nil, fmt.Errorf("rank %d: %w", r, err)
		}

		f.servers = append(f.servers, srv)
		f.clients = append(f.clients, NewGRPCClient(opts.AuthToken, logger.WithFields(pkg.Fields{"rank": r})))
		f.peers = append(f.peers, srv.Addr())
	}

	f.logger.Info().
		Int("participants", opts.Size).
		Strs("peers", f.peers).
		Msg("gRPC fabric started")

	return f, nil
}

// Size returns the number of participants.
func (f *GRPCFabric) Size() int {
	return len(f.peers)
}

// Peers returns the listening address of every rank.
func (f *GRPCFabric) Peers() []string {
	out := make([]string, len(f.peers))
	copy(out, f.peers)
	return out
}

// Endpoint returns the endpoint of participant addr.
func (f *GRPCFabric) Endpoint(addr chord.Address) (Endpoint, error) {
	if int(addr) < 0 || int(addr) >= len(f.peers) {
		return nil, fmt.Errorf("address %d: %w", addr, pkg.ErrUnknownID)
	}
	return &grpcEndpoint{fabric: f, addr: addr}, nil
}

// Close closes clients, then stops servers.
func (f *GRPCFabric) Close() error {
	var firstErr error
	for _, c := range f.clients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, s := range f.servers {
		if err := s.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type grpcEndpoint struct {
	fabric *GRPCFabric
	addr   chord.Address
}

func (e *grpcEndpoint) Address() chord.Address {
	return e.addr
}

func (e *grpcEndpoint) Send(ctx context.Context, to chord.Address, msg chord.Message) error {
	if int(to) < 0 || int(to) >= len(e.fabric.peers) {
		return fmt.Errorf("address %d: %w", to, pkg.ErrUnknownID)
	}
	return e.fabric.clients[e.addr].Deliver(ctx, e.fabric.peers[to], msg)
}

func (e *grpcEndpoint) Receive(ctx context.Context) (chord.Message, error) {
	return e.fabric.servers[e.addr].queue.Receive(ctx)
}
