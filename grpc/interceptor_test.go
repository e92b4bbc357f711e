package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	ad "github.com/accountd-io/accountd"
)

func invoke(t *testing.T, interceptor grpc.UnaryServerInterceptor, ctx context.Context, method string) (string, error) {
	t.Helper()
	var seen string
	_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: method},
		func(ctx context.Context, req any) (any, error) {
			seen = UserIDFromContext(ctx)
			return nil, nil
		})
	return seen, err
}

func TestUnaryAuthInterceptor(t *testing.T) {
	issuer := ad.NewTokenIssuer("grpc-secret", time.Minute)
	interceptor := UnaryAuthInterceptor(&InterceptorConfig{
		Verify:      issuer.Verify,
		RequireAuth: true,
		PublicMethods: map[string]bool{
			"/accountd.Accounts/Health": true,
		},
	})

	token, err := issuer.Issue("user-42")
	require.NoError(t, err)

	t.Run("valid bearer token", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(),
			metadata.Pairs("authorization", "Bearer "+token))
		seen, err := invoke(t, interceptor, ctx, "/accountd.Accounts/Get")
		require.NoError(t, err)
		assert.Equal(t, "user-42", seen)
	})

	t.Run("raw token without prefix", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(),
			metadata.Pairs("authorization", token))
		seen, err := invoke(t, interceptor, ctx, "/accountd.Accounts/Get")
		require.NoError(t, err)
		assert.Equal(t, "user-42", seen)
	})

	t.Run("missing metadata", func(t *testing.T) {
		_, err := invoke(t, interceptor, context.Background(), "/accountd.Accounts/Get")
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("invalid token", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(),
			metadata.Pairs("authorization", "Bearer garbage"))
		_, err := invoke(t, interceptor, ctx, "/accountd.Accounts/Get")
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("public method bypasses the gate", func(t *testing.T) {
		seen, err := invoke(t, interceptor, context.Background(), "/accountd.Accounts/Health")
		require.NoError(t, err)
		assert.Equal(t, "", seen)
	})
}

func TestUnaryAuthInterceptorOptional(t *testing.T) {
	issuer := ad.NewTokenIssuer("grpc-secret", time.Minute)
	interceptor := UnaryAuthInterceptor(&InterceptorConfig{Verify: issuer.Verify})

	// Unauthenticated requests pass, with no subject on the context.
	seen, err := invoke(t, interceptor, context.Background(), "/accountd.Accounts/Get")
	require.NoError(t, err)
	assert.Equal(t, "", seen)

	token, err := issuer.Issue("user-7")
	require.NoError(t, err)
	ctx := metadata.NewIncomingContext(context.Background(),
		metadata.Pairs("authorization", "Bearer "+token))
	seen, err = invoke(t, interceptor, ctx, "/accountd.Accounts/Get")
	require.NoError(t, err)
	assert.Equal(t, "user-7", seen)
}
