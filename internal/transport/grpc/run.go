package grpcx

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
)

// NewGRPCServer builds a grpc.Server with the admin service and interceptors registered.
func NewGRPCServer(srv AdminServer, log *slog.Logger, callTimeout time.Duration) *grpc.Server {
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor(log, callTimeout)),
	)
	Register(s, srv)
	return s
}

// Serve listens on addr until ctx is done, then stops gracefully.
func Serve(ctx context.Context, s *grpc.Server, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(lis) }()

	select {
	case <-ctx.Done():
		s.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}
