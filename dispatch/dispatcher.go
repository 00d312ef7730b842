// Package dispatch sends authorized requests to the gateway and performs the
// single token-refresh retry when a call is rejected as unauthorized.
package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-gopay-client/apierror"
	"github.com/jrsteele09/go-gopay-client/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultUserAgent = "go-gopay-client"

// TransportError operations.
const (
	OpRequest  = "request"
	OpReadBody = "read body"
)

// TokenSource is the part of the token manager the dispatcher depends on.
type TokenSource interface {
	EnsureValidToken(ctx context.Context) (token.Token, error)
	Invalidate()
}

type Dispatcher struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
	logger     zerolog.Logger
}

type Option func(*Dispatcher)

func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) {
		d.httpClient = client
	}
}

func WithUserAgent(userAgent string) Option {
	return func(d *Dispatcher) {
		d.userAgent = userAgent
	}
}

// WithTimeout bounds every HTTP attempt. Zero leaves only the caller's context.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.timeout = timeout
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func New(baseURL string, tokens TokenSource, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		baseURL:   strings.TrimRight(baseURL, "/"),
		tokens:    tokens,
		userAgent: DefaultUserAgent,
		logger:    log.With().Str("component", "dispatch").Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.httpClient == nil {
		d.httpClient = http.DefaultClient
	}
	return d
}

// Send performs req with the current token attached. An unauthorized reply
// invalidates the token and the identical request is sent exactly once more.
//
// On a gateway-level failure both the response and a typed error are
// returned: *apierror.AuthenticationError for a repeated 401 and
// *apierror.GatewayError for any other non-2xx status. Connection failures
// return *apierror.TransportError and no response; its Op is OpRequest when
// nothing was received and OpReadBody when the connection failed after the
// status line, in which case the status is lost as well.
func (d *Dispatcher) Send(ctx context.Context, req Request) (*Response, error) {
	target, err := d.resolve(req.Path, req.Query)
	if err != nil {
		return nil, err
	}
	payload, contentType, err := req.encode()
	if err != nil {
		return nil, err
	}
	call := outgoing{
		method:      req.method(),
		url:         target,
		payload:     payload,
		contentType: contentType,
		headers:     req.Headers,
		requestID:   uuid.NewString(),
	}

	tok, err := d.tokens.EnsureValidToken(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := d.attempt(ctx, call, tok)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		d.logger.Info().Str("request_id", call.requestID).Msg("token rejected, refreshing and retrying once")
		d.tokens.Invalidate()
		if tok, err = d.tokens.EnsureValidToken(ctx); err != nil {
			return nil, err
		}
		if resp, err = d.attempt(ctx, call, tok); err != nil {
			return nil, err
		}
		resp.Attempts = 2
		if resp.StatusCode == http.StatusUnauthorized {
			return resp, apierror.NewAuthenticationError(resp.StatusCode, resp.Body, true)
		}
	}

	if !resp.Success {
		return resp, apierror.ParseGatewayError(resp.StatusCode, resp.Body)
	}
	return resp, nil
}

type outgoing struct {
	method      string
	url         string
	payload     []byte
	contentType string
	headers     http.Header
	requestID   string
}

func (d *Dispatcher) attempt(ctx context.Context, call outgoing, tok token.Token) (*Response, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	var body io.Reader
	if call.payload != nil {
		body = bytes.NewReader(call.payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, call.method, call.url, body)
	if err != nil {
		return nil, errors.Wrap(err, "Dispatcher.attempt NewRequestWithContext")
	}
	for k, values := range call.headers {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", d.userAgent)
	httpReq.Header.Set("X-Request-ID", call.requestID)
	httpReq.Header.Set("Authorization", tok.Authorization())
	if call.contentType != "" {
		httpReq.Header.Set("Content-Type", call.contentType)
	}

	start := time.Now()
	httpResp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return nil, d.transportError(OpRequest, call, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, d.transportError(OpReadBody, call, err)
	}

	d.logger.Info().
		Str("method", call.method).
		Str("url", call.url).
		Int("status", httpResp.StatusCode).
		Str("request_id", call.requestID).
		Dur("duration", time.Since(start)).
		Msg("gateway request")

	return &Response{
		Success:     httpResp.StatusCode >= 200 && httpResp.StatusCode < 300,
		StatusCode:  httpResp.StatusCode,
		ContentType: httpResp.Header.Get("Content-Type"),
		Body:        data,
		RequestID:   call.requestID,
		Attempts:    1,
	}, nil
}

func (d *Dispatcher) transportError(op string, call outgoing, err error) error {
	timeout := errors.Is(err, context.DeadlineExceeded)
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		timeout = true
	}
	d.logger.Warn().Err(err).
		Str("method", call.method).
		Str("url", call.url).
		Str("request_id", call.requestID).
		Str("op", op).
		Msg("gateway request failed")
	return &apierror.TransportError{
		Op:      op,
		Method:  call.method,
		URL:     call.url,
		Timeout: timeout,
		Cause:   err,
	}
}

// resolve joins path onto the base URL, keeping the base path (e.g. "/api").
// Absolute URLs are refused so the token never leaves the gateway host.
func (d *Dispatcher) resolve(path string, query url.Values) (string, error) {
	if p, err := url.Parse(path); err == nil && p.IsAbs() {
		return "", fmt.Errorf("path %q must be relative to the gateway base url", path)
	}
	target, err := url.Parse(d.baseURL + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return "", errors.Wrap(err, "Dispatcher.resolve url.Parse")
	}
	if len(query) > 0 {
		q := target.Query()
		for k, values := range query {
			for _, v := range values {
				q.Add(k, v)
			}
		}
		target.RawQuery = q.Encode()
	}
	return target.String(), nil
}
