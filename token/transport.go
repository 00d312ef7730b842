package token

import (
	"net/http"
)

// rawBasicAuth replaces the Basic credentials of the token request with the
// unescaped client id and secret. x/oauth2 form-escapes both before encoding,
// which changes secrets containing '+', '/' or '=' and the gateway rejects them.
type rawBasicAuth struct {
	base         http.RoundTripper
	clientID     string
	clientSecret string
}

func (t rawBasicAuth) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.clientID, t.clientSecret)
	return t.base.RoundTrip(req)
}

// exchangeClient wraps client so token requests carry raw Basic credentials.
func (m *Manager) exchangeClient() *http.Client {
	client := *m.httpClient
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	client.Transport = rawBasicAuth{
		base:         base,
		clientID:     m.creds.ClientID(),
		clientSecret: m.creds.ClientSecret(),
	}
	return &client
}
