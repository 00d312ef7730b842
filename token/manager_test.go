package token_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-gopay-client/apierror"
	"github.com/jrsteele09/go-gopay-client/credentials"
	"github.com/jrsteele09/go-gopay-client/internal/gatewayfake"
	"github.com/jrsteele09/go-gopay-client/token"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, gw *gatewayfake.Gateway, secret string, opts ...token.ManagerOption) *token.Manager {
	t.Helper()
	creds, err := credentials.New(gatewayfake.ClientID, secret, credentials.WithBaseURL(gw.BaseURL()))
	require.NoError(t, err)
	opts = append([]token.ManagerOption{
		token.WithHTTPClient(gw.Client()),
		token.WithLogger(zerolog.Nop()),
	}, opts...)
	return token.New(creds, opts...)
}

func TestManager_EnsureValidToken(t *testing.T) {
	t.Run("reuses an unexpired token", func(t *testing.T) {
		gw := gatewayfake.New(t)
		m := newManager(t, gw, gatewayfake.ClientSecret)

		first, err := m.EnsureValidToken(context.Background())
		require.NoError(t, err)
		second, err := m.EnsureValidToken(context.Background())
		require.NoError(t, err)

		require.Equal(t, first.Value, second.Value)
		require.Equal(t, 1, gw.TokenCalls())
	})

	t.Run("refreshes an expired token exactly once", func(t *testing.T) {
		gw := gatewayfake.New(t)
		m := newManager(t, gw, gatewayfake.ClientSecret)
		m.SetToken(token.Token{Value: "stale", Type: "Bearer", ExpiresAt: time.Now().Add(-time.Minute)})

		tok, err := m.EnsureValidToken(context.Background())
		require.NoError(t, err)
		require.NotEqual(t, "stale", tok.Value)
		require.True(t, tok.ExpiresAt.After(time.Now()))
		require.Equal(t, 1, gw.TokenCalls())
	})

	t.Run("invalidate forces a new exchange", func(t *testing.T) {
		gw := gatewayfake.New(t)
		m := newManager(t, gw, gatewayfake.ClientSecret)

		first, err := m.EnsureValidToken(context.Background())
		require.NoError(t, err)
		m.Invalidate()
		_, ok := m.Current()
		require.False(t, ok)

		second, err := m.EnsureValidToken(context.Background())
		require.NoError(t, err)
		require.NotEqual(t, first.Value, second.Value)
		require.Equal(t, 2, gw.TokenCalls())
	})

	t.Run("posts client credentials grant with scope", func(t *testing.T) {
		gw := gatewayfake.New(t)
		m := newManager(t, gw, gatewayfake.ClientSecret)

		_, err := m.EnsureValidToken(context.Background())
		require.NoError(t, err)

		forms := gw.TokenForms()
		require.Len(t, forms, 1)
		require.Equal(t, "client_credentials", forms[0].Get("grant_type"))
		require.Equal(t, "payment-all", forms[0].Get("scope"))
	})
}

func TestManager_BasicAuth(t *testing.T) {
	const secret = "s3cr+t/key=="
	gw := gatewayfake.New(t, gatewayfake.WithClientSecret(secret))
	m := newManager(t, gw, secret)

	_, err := m.EnsureValidToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, gw.TokenCalls())
}

func TestManager_Lifetime(t *testing.T) {
	t.Run("expires_in minus safety margin", func(t *testing.T) {
		gw := gatewayfake.New(t, gatewayfake.WithExpiresIn(600))
		now := time.Now()
		m := newManager(t, gw, gatewayfake.ClientSecret,
			token.WithNowFunc(func() time.Time { return now }),
			token.WithSafetyMargin(5*time.Second))

		tok, err := m.EnsureValidToken(context.Background())
		require.NoError(t, err)
		require.True(t, tok.ExpiresAt.Equal(now.Add(595*time.Second)), "got %s", tok.ExpiresAt)
		require.Equal(t, "Bearer", tok.Type)
		require.Equal(t, "Bearer "+tok.Value, tok.Authorization())
	})

	t.Run("falls back to the jwt exp claim", func(t *testing.T) {
		gw := gatewayfake.New(t, gatewayfake.WithExpiresIn(600), gatewayfake.WithoutExpiresIn())
		m := newManager(t, gw, gatewayfake.ClientSecret)

		tok, err := m.EnsureValidToken(context.Background())
		require.NoError(t, err)
		require.WithinDuration(t, time.Now().Add(600*time.Second-token.DefaultSafetyMargin), tok.ExpiresAt, 3*time.Second)
	})

	t.Run("opaque token without expires_in uses the default lifetime", func(t *testing.T) {
		gw := gatewayfake.New(t)
		gw.EnqueueToken(gatewayfake.Response{Body: `{"access_token":"opaque-token","token_type":"bearer"}`})
		m := newManager(t, gw, gatewayfake.ClientSecret)

		tok, err := m.EnsureValidToken(context.Background())
		require.NoError(t, err)
		require.Equal(t, "opaque-token", tok.Value)
		require.WithinDuration(t, time.Now().Add(token.DefaultLifetime-token.DefaultSafetyMargin), tok.ExpiresAt, 3*time.Second)
	})

	t.Run("already expired token is rejected", func(t *testing.T) {
		expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"exp": time.Now().Add(-time.Hour).Unix(),
		}).SignedString([]byte("k"))
		require.NoError(t, err)

		gw := gatewayfake.New(t)
		gw.EnqueueToken(gatewayfake.Response{Body: fmt.Sprintf(`{"access_token":%q,"token_type":"bearer"}`, expired)})
		m := newManager(t, gw, gatewayfake.ClientSecret)

		_, err = m.EnsureValidToken(context.Background())
		var authErr *apierror.AuthenticationError
		require.ErrorAs(t, err, &authErr)
		_, ok := m.Current()
		require.False(t, ok)
	})
}

func TestManager_Failures(t *testing.T) {
	t.Run("rejected credentials", func(t *testing.T) {
		gw := gatewayfake.New(t)
		m := newManager(t, gw, "wrong-secret")

		_, err := m.EnsureValidToken(context.Background())
		var authErr *apierror.AuthenticationError
		require.ErrorAs(t, err, &authErr)
		require.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
		require.Equal(t, "invalid_client", authErr.Code)
		require.False(t, authErr.Retried)

		_, ok := m.Current()
		require.False(t, ok)
	})

	t.Run("server error from token endpoint", func(t *testing.T) {
		gw := gatewayfake.New(t)
		gw.EnqueueToken(gatewayfake.Response{Status: http.StatusServiceUnavailable, Body: "maintenance", ContentType: "text/plain"})
		m := newManager(t, gw, gatewayfake.ClientSecret)

		_, err := m.EnsureValidToken(context.Background())
		var authErr *apierror.AuthenticationError
		require.ErrorAs(t, err, &authErr)
		require.Equal(t, http.StatusServiceUnavailable, authErr.StatusCode)
	})

	t.Run("malformed body stores nothing", func(t *testing.T) {
		gw := gatewayfake.New(t)
		gw.EnqueueToken(gatewayfake.Response{Body: "definitely not a token", ContentType: "text/plain"})
		m := newManager(t, gw, gatewayfake.ClientSecret)

		_, err := m.EnsureValidToken(context.Background())
		var authErr *apierror.AuthenticationError
		require.ErrorAs(t, err, &authErr)
		_, ok := m.Current()
		require.False(t, ok)
	})

	t.Run("failed refresh leaves the previous slot untouched", func(t *testing.T) {
		gw := gatewayfake.New(t)
		gw.EnqueueToken(gatewayfake.Response{Status: http.StatusBadGateway, Body: "{}"})
		m := newManager(t, gw, gatewayfake.ClientSecret)
		stale := token.Token{Value: "stale", Type: "Bearer", ExpiresAt: time.Now().Add(-time.Second)}
		m.SetToken(stale)

		_, err := m.EnsureValidToken(context.Background())
		require.Error(t, err)
		current, ok := m.Current()
		require.True(t, ok)
		require.Equal(t, stale, current)
	})

	t.Run("timeout surfaces as a transport error", func(t *testing.T) {
		gw := gatewayfake.New(t)
		gw.EnqueueToken(gatewayfake.Response{Delay: time.Second, Body: `{}`})
		m := newManager(t, gw, gatewayfake.ClientSecret, token.WithTimeout(50*time.Millisecond))

		_, err := m.EnsureValidToken(context.Background())
		var authErr *apierror.AuthenticationError
		require.ErrorAs(t, err, &authErr)
		var transportErr *apierror.TransportError
		require.ErrorAs(t, err, &transportErr)
		require.True(t, transportErr.Timeout)
		require.Equal(t, "token exchange", transportErr.Op)
		_, ok := m.Current()
		require.False(t, ok)
	})
}
