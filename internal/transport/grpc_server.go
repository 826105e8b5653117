package transport

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/zde37/ringlookup/pkg"
)

const (
	mailboxServiceName = "ringlookup.Mailbox"
	deliverMethod      = "/" + mailboxServiceName + "/Deliver"
)

// mailboxServer is the server API of the Mailbox service.
type mailboxServer interface {
	Deliver(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error)
}

func deliverHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(mailboxServer).Deliver(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: deliverMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(mailboxServer).Deliver(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// mailboxServiceDesc describes the single-method Mailbox service. Request
// and response are protobuf well-known types, so no generated code is needed.
var mailboxServiceDesc = grpc.ServiceDesc{
	ServiceName: mailboxServiceName,
	HandlerType: (*mailboxServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Deliver",
			Handler:    deliverHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ringlookup/mailbox",
}

// GRPCServer receives messages for one participant and pushes them into its
// queue.
type GRPCServer struct {
	queue     *Queue
	server    *grpc.Server
	logger    *pkg.Logger
	authToken string

	address  string
	listener net.Listener
}

// NewGRPCServer creates a new gRPC server delivering into queue.
func NewGRPCServer(queue *Queue, address string, authToken string, logger *pkg.Logger) (*GRPCServer, error) {
	if queue == nil {
		return nil, fmt.Errorf("queue cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &GRPCServer{
		queue:     queue,
		address:   address,
		authToken: authToken,
		logger:    logger.WithFields(pkg.Fields{"component": "grpc_server"}),
	}, nil
}

// Start starts the gRPC server.
func (s *GRPCServer) Start() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener

	opts := []grpc.ServerOption{
		grpc.MaxRecvMsgSize(4 * 1024 * 1024), // 4MB
		grpc.MaxSendMsgSize(4 * 1024 * 1024), // 4MB
		grpc.UnaryInterceptor(RunTokenInterceptor(s.authToken)),
	}

	s.server = grpc.NewServer(opts...)
	s.server.RegisterService(&mailboxServiceDesc, s)

	s.logger.Debug().
		Str("address", listener.Addr().String()).
		Msg("Starting gRPC server")

	go func() {
		if err := s.server.Serve(listener); err != nil {
			s.logger.Error().Err(err).Msg("gRPC server error")
		}
	}()

	return nil
}

// Addr returns the address the server is listening on.
func (s *GRPCServer) Addr() string {
	if s.listener == nil {
		return s.address
	}
	return s.listener.Addr().String()
}

// Stop gracefully stops the gRPC server.
func (s *GRPCServer) Stop() error {
	if s.server != nil {
		s.server.GracefulStop()
	}
	s.queue.Close()
	return nil
}

// Deliver handles an inbound message.
func (s *GRPCServer) Deliver(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	msg, err := DecodeMessage(in)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode: %v", err)
	}

	if err := s.queue.Push(msg); err != nil {
		return nil, status.Errorf(codes.Unavailable, "deliver %s: %v", msg.Kind(), err)
	}
	return &emptypb.Empty{}, nil
}
