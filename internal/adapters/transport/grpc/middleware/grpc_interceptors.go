package middleware

import (
	"time"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_zap "github.com/grpc-ecosystem/go-grpc-middleware/logging/zap"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func RecoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return grpc_recovery.UnaryServerInterceptor(
		grpc_recovery.WithRecoveryHandler(func(p any) error {
			logger.Error("grpc handler panic", zap.Any("panic", p))
			return status.Error(codes.Internal, "internal error")
		}),
	)
}

func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return grpc_zap.UnaryServerInterceptor(logger.Named("grpc"))
}

func MetricsInterceptor() grpc.UnaryServerInterceptor {
	return grpc_prometheus.UnaryServerInterceptor
}

// ChainUnaryServer is the interceptor stack for the health endpoint.
// limit <= 0 disables rate limiting.
func ChainUnaryServer(logger *zap.Logger, limit, burst int) grpc.UnaryServerInterceptor {
	chain := []grpc.UnaryServerInterceptor{
		RecoveryInterceptor(logger),
		LoggingInterceptor(logger),
		MetricsInterceptor(),
	}
	if limit > 0 {
		chain = append(chain, NewRateLimitPerIP(limit, burst, 10_000, time.Hour))
	}
	return grpc_middleware.ChainUnaryServer(chain...)
}
