package session_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jrsteele09/go-gopay-client/apierror"
	"github.com/jrsteele09/go-gopay-client/credentials"
	"github.com/jrsteele09/go-gopay-client/session"
	"github.com/jrsteele09/go-gopay-client/token"
	"github.com/stretchr/testify/require"
)

func testCredentials(t *testing.T) credentials.Credentials {
	t.Helper()
	c, err := credentials.New("client-1", "secret-1",
		credentials.WithBaseURL("https://gw.example.com/api"),
		credentials.WithScope("payment-create"),
		credentials.WithGoID("8123456789"))
	require.NoError(t, err)
	return c
}

func TestEncodeDecode(t *testing.T) {
	t.Run("with token", func(t *testing.T) {
		expires := time.Date(2026, 10, 19, 12, 30, 0, 0, time.UTC)
		state := session.State{
			Credentials: testCredentials(t),
			Token:       &token.Token{Value: "abc", Type: "Bearer", ExpiresAt: expires},
		}

		data, err := session.Encode(state, time.Now())
		require.NoError(t, err)

		var raw map[string]any
		require.NoError(t, json.Unmarshal(data, &raw))
		require.Equal(t, session.CurrentVersion, raw["version"])

		got, err := session.Decode(data)
		require.NoError(t, err)
		require.Equal(t, state.Credentials, got.Credentials)
		require.NotNil(t, got.Token)
		require.Equal(t, "abc", got.Token.Value)
		require.True(t, got.Token.ExpiresAt.Equal(expires))
	})

	t.Run("without token", func(t *testing.T) {
		data, err := session.Encode(session.State{Credentials: testCredentials(t)}, time.Now())
		require.NoError(t, err)

		got, err := session.Decode(data)
		require.NoError(t, err)
		require.Nil(t, got.Token)
	})
}

func TestDecode_Defaults(t *testing.T) {
	blob := []byte(`{"version":"1","credentials":{"client_id":"c","client_secret":"s"},"token":{"access_token":"t","expires_at":"2030-01-01T00:00:00Z"}}`)

	got, err := session.Decode(blob)
	require.NoError(t, err)
	require.Equal(t, "payment-all", got.Credentials.Scope())
	require.Equal(t, credentials.Sandbox.BaseURL(), got.Credentials.BaseURL())
	require.Equal(t, "Bearer", got.Token.Type)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		blob    string
		version string
	}{
		{name: "unsupported version", blob: `{"version":"99","credentials":{"client_id":"c","client_secret":"s"}}`, version: "99"},
		{name: "missing version", blob: `{"credentials":{"client_id":"c","client_secret":"s"}}`},
		{name: "not json", blob: `gopay`},
		{name: "no credentials", blob: `{"version":"1"}`, version: "1"},
		{name: "invalid credentials", blob: `{"version":"1","credentials":{"client_id":"","client_secret":"s"}}`, version: "1"},
		{name: "bad base url", blob: `{"version":"1","credentials":{"client_id":"c","client_secret":"s","base_url":"not a url"}}`, version: "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := session.Decode([]byte(tt.blob))
			var derr *apierror.DeserializationError
			require.ErrorAs(t, err, &derr)
			require.Equal(t, tt.version, derr.Version)
		})
	}
}
