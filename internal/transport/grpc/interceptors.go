package grpc

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/bolttesting/Bookly-sub001/internal/ratelimit"
)

const requestIDHeader = "x-request-id"

// DefaultRequestTimeout bounds calls that arrive without a deadline.
func DefaultRequestTimeout(timeout time.Duration) grpc.UnaryServerInterceptor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := ctx.Deadline(); ok {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return handler(ctx, req)
	}
}

// RequestID echoes the caller's x-request-id, or a fresh one, in the
// response headers.
func RequestID() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		id := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if values := md.Get(requestIDHeader); len(values) > 0 {
				id = strings.TrimSpace(values[0])
			}
		}
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDHeader, id))
		return handler(ctx, req)
	}
}

// RateLimit applies limiter per tenant. Requests that carry no tenant are
// left to the handler's validation.
func RateLimit(limiter ratelimit.Limiter, log *slog.Logger) grpc.UnaryServerInterceptor {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "grpc.ratelimit"))

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if limiter == nil {
			return handler(ctx, req)
		}
		scoped, ok := req.(tenantScoped)
		if !ok || scoped.TenantKey() == "" {
			return handler(ctx, req)
		}

		err := limiter.Allow(ctx, scoped.TenantKey())
		switch {
		case err == nil:
			return handler(ctx, req)
		case errors.Is(err, ratelimit.ErrLimited):
			log.Info("rate limited", slog.String("business_id", scoped.TenantKey()), slog.String("method", info.FullMethod))
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
		default:
			log.Error("rate limiter failed", slog.Any("err", err), slog.String("method", info.FullMethod))
			return nil, status.Error(codes.Unavailable, "rate limiter unavailable")
		}
	}
}
