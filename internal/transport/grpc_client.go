package transport

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/zde37/ringlookup/internal/chord"
	"github.com/zde37/ringlookup/pkg"
)

// GRPCClient manages connections to remote participants.
type GRPCClient struct {
	logger    *pkg.Logger
	authToken string

	connections map[string]*grpc.ClientConn
	connMu      sync.RWMutex
}

// NewGRPCClient creates a new gRPC client.
func NewGRPCClient(authToken string, logger *pkg.Logger) *GRPCClient {
	if logger == nil {
		logger = pkg.Nop()
	}

	return &GRPCClient{
		logger:      logger.WithFields(pkg.Fields{"component": "grpc_client"}),
		authToken:   authToken,
		connections: make(map[string]*grpc.ClientConn),
	}
}

// getConnection returns a connection to the given address, creating one if needed.
func (c *GRPCClient) getConnection(address string) (*grpc.ClientConn, error) {
	c.connMu.RLock()
	conn, exists := c.connections[address]
	c.connMu.RUnlock()

	if exists && conn.GetState() != connectivity.Shutdown {
		return conn, nil
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()

	// Double-check after acquiring write lock
	conn, exists = c.connections[address]
	if exists && conn.GetState() != connectivity.Shutdown {
		return conn, nil
	}

	newConn, err := grpc.NewClient("passthrough:///"+address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", address, err)
	}

	c.connections[address] = newConn
	c.logger.Debug().Str("address", address).Msg("Created new gRPC connection")

	return newConn, nil
}

// Deliver sends msg to the participant listening at address. It returns once
// the receiver has queued the message, which keeps sends from one caller in
// order. Messages wait for the connection to become ready instead of failing
// fast.
func (c *GRPCClient) Deliver(ctx context.Context, address string, msg chord.Message) error {
	conn, err := c.getConnection(address)
	if err != nil {
		return err
	}

	in, err := EncodeMessage(msg)
	if err != nil {
		return err
	}

	if c.authToken != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, RunTokenHeader, c.authToken)
	}

	if err := conn.Invoke(ctx, deliverMethod, in, new(emptypb.Empty), grpc.WaitForReady(true)); err != nil {
		return fmt.Errorf("Deliver RPC to %s failed: %w", address, err)
	}
	return nil
}

// Close closes all connections.
func (c *GRPCClient) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	var firstErr error
	for addr, conn := range c.connections {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close connection to %s: %w", addr, err)
		}
		delete(c.connections, addr)
	}
	return firstErr
}
