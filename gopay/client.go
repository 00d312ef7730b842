// Package gopay is the entry point of the gateway client. A Client combines
// credentials, the current access token and request dispatch, and can be
// snapshotted and restored so another process reuses its token instead of
// authenticating again.
//
//	creds, _ := credentials.New(id, secret, credentials.WithGoID(goid))
//	client, _ := gopay.New(creds)
//	resp, err := client.PaymentStatus(ctx, 3000006529)
//
//	blob, _ := client.Snapshot()
//	// ... later, possibly in another process
//	client, err = gopay.Restore(blob)
//
// A Client is not safe for concurrent use; confine it to one goroutine or
// serialise calls with a mutex.
package gopay

import (
	"context"
	"net/http"
	"time"

	"github.com/jrsteele09/go-gopay-client/credentials"
	"github.com/jrsteele09/go-gopay-client/dispatch"
	"github.com/jrsteele09/go-gopay-client/session"
	"github.com/jrsteele09/go-gopay-client/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Client struct {
	creds      credentials.Credentials
	tokens     *token.Manager
	dispatcher *dispatch.Dispatcher
	last       *dispatch.Response
	methods    *PaymentMethods

	httpClient   *http.Client
	timeout      time.Duration
	safetyMargin time.Duration
	userAgent    string
	sealer       *session.Sealer
	nowFunc      func() time.Time
	logger       zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout bounds every network call (token exchange and each request attempt).
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

func WithSafetyMargin(margin time.Duration) Option {
	return func(c *Client) {
		c.safetyMargin = margin
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithSealer encrypts snapshots and is required to restore sealed ones.
func WithSealer(sealer *session.Sealer) Option {
	return func(c *Client) {
		c.sealer = sealer
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(c *Client) {
		c.nowFunc = now
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New builds a client without a token. No network call is made; the first
// request acquires the token.
func New(creds credentials.Credentials, opts ...Option) (*Client, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return build(creds, opts), nil
}

func build(creds credentials.Credentials, opts []Option) *Client {
	c := configure(opts)
	c.creds = creds

	c.tokens = token.New(creds,
		token.WithHTTPClient(c.httpClient),
		token.WithNowFunc(c.nowFunc),
		token.WithSafetyMargin(c.safetyMargin),
		token.WithTimeout(c.timeout),
		token.WithLogger(c.logger.With().Str("component", "token").Logger()),
	)
	c.dispatcher = dispatch.New(creds.BaseURL(), c.tokens,
		dispatch.WithHTTPClient(c.httpClient),
		dispatch.WithTimeout(c.timeout),
		dispatch.WithUserAgent(c.userAgent),
		dispatch.WithLogger(c.logger.With().Str("component", "dispatch").Logger()),
	)
	return c
}

func configure(opts []Option) *Client {
	c := &Client{
		safetyMargin: token.DefaultSafetyMargin,
		userAgent:    dispatch.DefaultUserAgent,
		logger:       log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.nowFunc == nil {
		c.nowFunc = time.Now
	}
	return c
}

// Send performs an arbitrary gateway call. See dispatch.Dispatcher.Send for
// the retry policy and error types.
func (c *Client) Send(ctx context.Context, req dispatch.Request) (*dispatch.Response, error) {
	resp, err := c.dispatcher.Send(ctx, req)
	if resp != nil {
		c.last = resp
	}
	return resp, err
}

// Token returns a valid access token, authenticating if needed.
func (c *Client) Token(ctx context.Context) (token.Token, error) {
	return c.tokens.EnsureValidToken(ctx)
}

// Invalidate drops the current token so the next call re-authenticates.
func (c *Client) Invalidate() {
	c.tokens.Invalidate()
}

func (c *Client) Credentials() credentials.Credentials {
	return c.creds
}

// LastResponse is the response of the most recent call that reached the gateway.
func (c *Client) LastResponse() *dispatch.Response {
	return c.last
}

// Snapshot captures the credentials and current token, if any, as a
// versioned blob. The blob contains the client secret; configure WithSealer
// before storing it anywhere shared.
func (c *Client) Snapshot() ([]byte, error) {
	state := session.State{Credentials: c.creds}
	if tok, ok := c.tokens.Current(); ok {
		state.Token = &tok
	}
	return session.Marshal(state, c.nowFunc(), c.sealer)
}

// Restore rebuilds a client from a Snapshot without any network I/O. A still
// valid embedded token is used as is; an expired or missing one is replaced
// on the next call. Malformed or unsupported snapshots yield
// *apierror.DeserializationError and no client.
func Restore(blob []byte, opts ...Option) (*Client, error) {
	sealer := configure(opts).sealer
	state, err := session.Unmarshal(blob, sealer)
	if err != nil {
		return nil, err
	}

	c := build(state.Credentials, opts)
	if state.Token != nil {
		c.tokens.SetToken(*state.Token)
	}
	c.logger.Debug().
		Object("credentials", state.Credentials).
		Bool("has_token", state.Token != nil).
		Msg("session restored")
	return c, nil
}
