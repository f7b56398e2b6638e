package server

import (
	"context"
	"log/slog"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// RegistrationFunc registers a grpc service with the server.
type RegistrationFunc func(*grpc.Server)

// NewGRPCServer creates a gRPC server with tracing, request logging and panic
// recovery, optional reflection, and the given services registered.
func NewGRPCServer(logger *slog.Logger, enableReflection bool, registerFunc ...RegistrationFunc) *grpc.Server {
	grpcLogger := logger.With("component", "grpc")
	recoveryOpt := recovery.WithRecoveryHandlerContext(func(ctx context.Context, p any) error {
		grpcLogger.ErrorContext(ctx, "Panic recovered", "panic", p)
		return status.Error(codes.Internal, "internal error")
	})

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			logging.UnaryServerInterceptor(InterceptorLogger(grpcLogger)),
			recovery.UnaryServerInterceptor(recoveryOpt),
		),
		grpc.ChainStreamInterceptor(
			logging.StreamServerInterceptor(InterceptorLogger(grpcLogger)),
			recovery.StreamServerInterceptor(recoveryOpt),
		),
	)

	if enableReflection {
		reflection.Register(grpcServer)
	}

	for _, regFunc := range registerFunc {
		regFunc(grpcServer)
	}

	return grpcServer
}

// InterceptorLogger adapts slog to the go-grpc-middleware logging interface.
func InterceptorLogger(l *slog.Logger) logging.Logger {
	return logging.LoggerFunc(func(ctx context.Context, lvl logging.Level, msg string, fields ...any) {
		l.Log(ctx, slog.Level(lvl), msg, fields...)
	})
}
