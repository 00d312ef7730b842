package token

import (
	"strings"
	"time"

	"github.com/jrsteele09/go-gopay-client/oauth2"
)

// Token is an access token issued by the gateway. It is replaced wholesale on
// refresh and never mutated in place.
type Token struct {
	Value     string    // Opaque access token
	Type      string    // Authorization scheme, normally "Bearer"
	ExpiresAt time.Time // Absolute expiry, already reduced by the safety margin
}

// IsZero reports whether t carries no token.
func (t Token) IsZero() bool {
	return t.Value == ""
}

// Valid reports whether t can still be attached to a request at now.
func (t Token) Valid(now time.Time) bool {
	return t.Value != "" && now.Before(t.ExpiresAt)
}

// Authorization returns the Authorization header value, "<type> <value>".
func (t Token) Authorization() string {
	return NormalizeType(t.Type) + " " + t.Value
}

// NormalizeType canonicalises the token type the way the gateway expects it
// in the Authorization header. An empty type means bearer.
func NormalizeType(tokenType string) string {
	switch {
	case tokenType == "", strings.EqualFold(tokenType, string(oauth2.BearerTokenType)):
		return string(oauth2.BearerTokenType)
	}
	return tokenType
}
