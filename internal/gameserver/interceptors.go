package gameserver

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// APIKeyHeader is the metadata key clients send their API key in.
const APIKeyHeader = "x-api-key"

// APIKeyInterceptor rejects calls whose x-api-key does not match hash.
// An empty hash disables the check.
//
// Precondition: hash is empty or a bcrypt hash.
// Postcondition: Unauthenticated calls never reach the handler.
func APIKeyInterceptor(hash string, logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if hash == "" {
			return handler(ctx, req)
		}
		md, _ := metadata.FromIncomingContext(ctx)
		keys := md.Get(APIKeyHeader)
		if len(keys) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing api key")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(keys[0])); err != nil {
			logger.Warn("rejected api key", zap.String("method", info.FullMethod))
			return nil, status.Error(codes.Unauthenticated, "invalid api key")
		}
		return handler(ctx, req)
	}
}

// ObserveInterceptor wraps each call in a span and logs its outcome.
func ObserveInterceptor(tracer trace.Tracer, logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		ctx, span := tracer.Start(ctx, info.FullMethod, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		resp, err := handler(ctx, req)
		code := status.Code(err)
		span.SetAttributes(attribute.String("rpc.grpc.status_code", code.String()))
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
		}

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("elapsed", time.Since(start)),
		}
		switch code {
		case codes.OK:
			logger.Debug("rpc completed", fields...)
		case codes.Internal, codes.Unknown:
			logger.Error("rpc failed", append(fields, zap.Error(err))...)
		default:
			logger.Info("rpc rejected", append(fields, zap.Error(err))...)
		}
		return resp, err
	}
}

// TimeoutInterceptor bounds each call, including lock waits, by d.
func TimeoutInterceptor(d time.Duration) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if d <= 0 {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return handler(ctx, req)
	}
}

// NewGRPCServer builds a grpc.Server with the combat service registered
// behind the observe, auth and timeout interceptors.
func NewGRPCServer(srv CombatServiceServer, apiKeyHash string, timeout time.Duration, tracer trace.Tracer, logger *zap.Logger) *grpc.Server {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(
		ObserveInterceptor(tracer, logger),
		APIKeyInterceptor(apiKeyHash, logger),
		TimeoutInterceptor(timeout),
	))
	RegisterCombatServiceServer(s, srv)
	return s
}
