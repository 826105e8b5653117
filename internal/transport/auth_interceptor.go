package transport

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	// RunTokenHeader is the metadata key for the shared run token
	RunTokenHeader = "x-run-token"
)

// RunTokenInterceptor creates a gRPC unary interceptor that only accepts
// messages carrying the run's shared token, so participants of different
// runs on the same ports cannot leak into each other.
// If expectedToken is empty, the check is disabled.
func RunTokenInterceptor(expectedToken string) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if expectedToken == "" {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		tokens := md.Get(RunTokenHeader)
		if len(tokens) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing run token")
		}

		if tokens[0] != expectedToken {
			return nil, status.Error(codes.Unauthenticated, "invalid run token")
		}

		return handler(ctx, req)
	}
}
