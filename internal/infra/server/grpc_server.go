package server

import (
	"context"
	"errors"
	"net"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/peitalin/dt-auth-service/internal/adapters/transport/grpc/middleware"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const shutdownTimeout = 5 * time.Second

type GRPCOptions struct {
	Address  string
	CertFile string
	KeyFile  string
	// RateLimit <= 0 disables per-IP limiting.
	RateLimit int
	RateBurst int
}

// NewGRPCServer builds a server exposing the standard health service with
// the recovery, logging, metrics and rate-limit interceptors.
func NewGRPCServer(opts GRPCOptions, hs *health.Server, logger *zap.Logger) (*grpc.Server, error) {
	serverOpts := []grpc.ServerOption{
		grpc.UnaryInterceptor(middleware.ChainUnaryServer(logger, opts.RateLimit, opts.RateBurst)),
	}
	if opts.CertFile != "" && opts.KeyFile != "" {
		creds, err := credentials.NewServerTLSFromFile(opts.CertFile, opts.KeyFile)
		if err != nil {
			return nil, err
		}
		serverOpts = append(serverOpts, grpc.Creds(creds))
	}

	grpcServer := grpc.NewServer(serverOpts...)
	healthpb.RegisterHealthServer(grpcServer, hs)
	grpc_prometheus.Register(grpcServer)
	grpc_prometheus.EnableHandlingTimeHistogram()
	reflection.Register(grpcServer)
	return grpcServer, nil
}

// ServeGRPC serves on lis until ctx is cancelled, then stops gracefully,
// forcing the stop after shutdownTimeout.
func ServeGRPC(ctx context.Context, lis net.Listener, grpcServer *grpc.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("ctx cancelled, stopping gRPC server")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-stopCtx.Done():
		grpcServer.Stop()
	case <-done:
	}
	logger.Info("gRPC server stopped")
	return nil
}

func StartGRPCServer(ctx context.Context, opts GRPCOptions, hs *health.Server, logger *zap.Logger) error {
	grpcServer, err := NewGRPCServer(opts, hs, logger)
	if err != nil {
		return err
	}
	lis, err := net.Listen("tcp", opts.Address)
	if err != nil {
		return err
	}
	return ServeGRPC(ctx, lis, grpcServer, logger)
}
