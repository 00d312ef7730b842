// Package credentials holds the client identity and target environment used
// to authenticate against the payment gateway.
package credentials

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-gopay-client/oauth2"
	"github.com/rs/zerolog"
)

var (
	ErrMissingClientID     = errors.New("client id is required")
	ErrMissingClientSecret = errors.New("client secret is required")
	ErrInvalidBaseURL      = errors.New("base url must be an absolute http(s) url")
	ErrUnknownEnvironment  = errors.New("unknown environment")
)

// Environment selects which gateway deployment the client talks to.
type Environment string

const (
	Sandbox    Environment = "sandbox"
	Production Environment = "production"
)

// BaseURL returns the API root of the environment.
func (e Environment) BaseURL() string {
	switch e {
	case Production:
		return "https://gate.gopay.cz/api"
	default:
		return "https://gw.sandbox.gopay.com/api"
	}
}

// ParseEnvironment accepts "sandbox"/"production" in any case. An empty value
// selects the sandbox.
func ParseEnvironment(s string) (Environment, error) {
	switch Environment(strings.ToLower(strings.TrimSpace(s))) {
	case "", Sandbox, "test", "dev":
		return Sandbox, nil
	case Production, "prod", "live":
		return Production, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEnvironment, s)
}

// Credentials is the immutable client identity. Construct it with New so the
// invariants are checked once.
type Credentials struct {
	clientID     string
	clientSecret string
	scope        string
	baseURL      string
	goID         string
}

type Option func(*Credentials)

// WithScope overrides the default "payment-all" scope.
func WithScope(scope string) Option {
	return func(c *Credentials) {
		c.scope = scope
	}
}

// WithEnvironment selects the environment's base URL.
func WithEnvironment(env Environment) Option {
	return func(c *Credentials) {
		c.baseURL = env.BaseURL()
	}
}

// WithBaseURL points the client at an explicit API root, e.g. a test server.
func WithBaseURL(baseURL string) Option {
	return func(c *Credentials) {
		c.baseURL = baseURL
	}
}

// WithGoID sets the merchant e-shop identifier used by payment helpers.
func WithGoID(goID string) Option {
	return func(c *Credentials) {
		c.goID = goID
	}
}

// New builds validated credentials. Without options the sandbox environment
// and the payment-all scope are used.
func New(clientID, clientSecret string, opts ...Option) (Credentials, error) {
	c := Credentials{
		clientID:     clientID,
		clientSecret: clientSecret,
		scope:        oauth2.ScopePaymentAll,
		baseURL:      Sandbox.BaseURL(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	c.scope = strings.TrimSpace(c.scope)
	if c.scope == "" {
		c.scope = oauth2.ScopePaymentAll
	}
	c.baseURL = strings.TrimRight(strings.TrimSpace(c.baseURL), "/")

	if err := c.Validate(); err != nil {
		return Credentials{}, err
	}
	return c, nil
}

// Validate reports the first missing or malformed field.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.clientID) == "" {
		return ErrMissingClientID
	}
	if strings.TrimSpace(c.clientSecret) == "" {
		return ErrMissingClientSecret
	}
	u, err := url.Parse(c.baseURL)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.baseURL)
	}
	return nil
}

func (c Credentials) ClientID() string     { return c.clientID }
func (c Credentials) ClientSecret() string { return c.clientSecret }
func (c Credentials) Scope() string        { return c.scope }
func (c Credentials) BaseURL() string      { return c.baseURL }
func (c Credentials) GoID() string         { return c.goID }

// Scopes splits the space-separated scope string.
func (c Credentials) Scopes() []string {
	return strings.Fields(c.scope)
}

// TokenURL is the credentials-exchange endpoint.
func (c Credentials) TokenURL() string {
	return c.baseURL + "/oauth2/token"
}

// String never includes the client secret.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{ClientID: %s, Scope: %s, BaseURL: %s, GoID: %s}", c.clientID, c.scope, c.baseURL, c.goID)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler without the secret.
func (c Credentials) MarshalZerologObject(e *zerolog.Event) {
	e.Str("client_id", c.clientID).
		Str("scope", c.scope).
		Str("base_url", c.baseURL)
	if c.goID != "" {
		e.Str("goid", c.goID)
	}
}
