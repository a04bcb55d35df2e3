package auth

import (
	"chat-relay/errors"
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

type contextKey string

const claimsKey contextKey = "claims"

// WithClaims injects the caller identity for downstream service layers.
func WithClaims(ctx context.Context, claims *CustomClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the identity set by the interceptor or the middleware.
func ClaimsFromContext(ctx context.Context) (*CustomClaims, error) {
	claims, ok := ctx.Value(claimsKey).(*CustomClaims)
	if !ok || claims == nil {
		return nil, errors.ErrAuthRequired
	}
	return claims, nil
}

// AuthInterceptor handles JWT validation for incoming gRPC calls.
// Every method of the fallback surface is protected.
func AuthInterceptor(tokens *TokenManager) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, errors.MapToGRPCError(errors.ErrMissingToken)
		}

		values := md.Get("authorization")
		if len(values) == 0 {
			return nil, errors.MapToGRPCError(errors.ErrMissingToken)
		}

		tokenStr, ok := bearerToken(values[0])
		if !ok {
			return nil, errors.MapToGRPCError(errors.ErrMissingToken)
		}

		claims, err := tokens.ValidateToken(tokenStr)
		if err != nil {
			return nil, errors.MapToGRPCError(err)
		}
		return handler(WithClaims(ctx, claims), req)
	}
}

// bearerToken expects the standard "Bearer <token>" format.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
