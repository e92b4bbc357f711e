package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// VerifyTokenFunc checks a presented session token and returns its subject.
// Typically accountd.TokenIssuer.Verify.
type VerifyTokenFunc func(tokenString string) (subject string, err error)

// InterceptorConfig configures the auth interceptor.
type InterceptorConfig struct {
	// Verify validates the session token. Required.
	Verify VerifyTokenFunc

	// MetadataKey carrying the token. Defaults to "authorization"; a
	// "Bearer " prefix is stripped if present.
	MetadataKey string

	// RequireAuth when true rejects unauthenticated requests. When
	// false, requests proceed and UserIDFromContext returns "".
	RequireAuth bool

	// PublicMethods don't require auth even when RequireAuth is set.
	// Keys are full method names like "/package.Service/Method".
	PublicMethods map[string]bool
}

func (c *InterceptorConfig) metadataKey() string {
	if c.MetadataKey == "" {
		return DefaultMetadataKey
	}
	return c.MetadataKey
}

// UnaryAuthInterceptor returns a unary interceptor gating methods behind a
// valid session token. Like the HTTP guard it is a pure gate: verification
// is in-process and every failure collapses to Unauthenticated.
func UnaryAuthInterceptor(config *InterceptorConfig) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		userID := resolveUserID(ctx, config)
		if userID == "" && config.RequireAuth && !config.PublicMethods[info.FullMethod] {
			return nil, status.Error(codes.Unauthenticated, "authentication required")
		}
		if userID != "" {
			ctx = withUserID(ctx, userID)
		}
		return handler(ctx, req)
	}
}

func resolveUserID(ctx context.Context, config *InterceptorConfig) string {
	if config.Verify == nil {
		return ""
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, value := range md.Get(config.metadataKey()) {
		token := strings.TrimPrefix(value, "Bearer ")
		if token == "" {
			continue
		}
		if subject, err := config.Verify(token); err == nil && subject != "" {
			return subject
		}
	}
	return ""
}
