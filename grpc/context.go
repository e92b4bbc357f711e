// Package grpc lets gRPC services sitting next to the HTTP surface reuse
// the same stateless session tokens: an interceptor verifies the token
// from request metadata and exposes the account id on the context.
package grpc

import "context"

type userIdKey struct{}

// DefaultMetadataKey is the metadata key carrying the session token.
const DefaultMetadataKey = "authorization"

// UserIDFromContext returns the account id the interceptor resolved for
// this request, or "" if the request was not authenticated.
func UserIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(userIdKey{}).(string)
	return v
}

func withUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIdKey{}, userID)
}
