package token

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-gopay-client/apierror"
	"github.com/jrsteele09/go-gopay-client/credentials"
	"github.com/jrsteele09/go-gopay-client/internal/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	xoauth2 "golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// DefaultLifetime is the gateway's documented access token lifetime, used
	// when neither expires_in nor a JWT exp claim is available.
	DefaultLifetime = 30 * time.Minute

	// DefaultSafetyMargin is subtracted from the lifetime to absorb clock skew
	// and request latency.
	DefaultSafetyMargin = 10 * time.Second
)

// Manager owns the single current token of a client and refreshes it through
// the gateway's client-credentials exchange.
//
// Manager does no internal locking. Confine an instance to one goroutine or
// guard EnsureValidToken and Invalidate with an external mutex.
type Manager struct {
	creds           credentials.Credentials
	httpClient      *http.Client
	current         *Token
	nowFunc         func() time.Time
	safetyMargin    time.Duration
	defaultLifetime time.Duration
	timeout         time.Duration
	logger          zerolog.Logger
}

type ManagerOption func(*Manager)

// WithHTTPClient sets the client used for the token exchange.
func WithHTTPClient(client *http.Client) ManagerOption {
	return func(m *Manager) {
		m.httpClient = client
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithSafetyMargin(margin time.Duration) ManagerOption {
	return func(m *Manager) {
		m.safetyMargin = margin
	}
}

func WithDefaultLifetime(lifetime time.Duration) ManagerOption {
	return func(m *Manager) {
		m.defaultLifetime = lifetime
	}
}

// WithTimeout bounds each token exchange. Zero leaves only the caller's context.
func WithTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.timeout = timeout
	}
}

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

func New(creds credentials.Credentials, options ...ManagerOption) *Manager {
	m := &Manager{
		creds:        creds,
		safetyMargin: DefaultSafetyMargin,
		logger:       log.With().Str("component", "token").Logger(),
	}

	for _, opt := range options {
		opt(m)
	}

	if m.httpClient == nil {
		m.httpClient = http.DefaultClient
	}
	if m.defaultLifetime <= 0 {
		m.defaultLifetime = DefaultLifetime
	}
	if m.safetyMargin < 0 {
		m.safetyMargin = 0
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m
}

// EnsureValidToken returns the current token while it is unexpired, otherwise
// it exchanges the credentials for a new one and stores it. A failed exchange
// leaves the token slot untouched.
func (m *Manager) EnsureValidToken(ctx context.Context) (Token, error) {
	if m.current != nil && m.current.Valid(m.nowFunc()) {
		return *m.current, nil
	}

	tok, err := m.exchange(ctx)
	if err != nil {
		return Token{}, err
	}
	m.current = &tok
	return tok, nil
}

// Invalidate discards the current token unconditionally.
func (m *Manager) Invalidate() {
	if m.current != nil {
		m.logger.Debug().Str("token", utils.Preview(m.current.Value, 12)).Msg("token invalidated")
	}
	m.current = nil
}

// Current returns the stored token, whether or not it has expired.
func (m *Manager) Current() (Token, bool) {
	if m.current == nil {
		return Token{}, false
	}
	return *m.current, true
}

// SetToken installs a previously issued token, e.g. one restored from a
// snapshot. A zero token clears the slot.
func (m *Manager) SetToken(tok Token) {
	if tok.IsZero() {
		m.current = nil
		return
	}
	m.current = &tok
}

func (m *Manager) exchange(ctx context.Context) (Token, error) {
	cfg := clientcredentials.Config{
		ClientID:     m.creds.ClientID(),
		ClientSecret: m.creds.ClientSecret(),
		TokenURL:     m.creds.TokenURL(),
		Scopes:       m.creds.Scopes(),
		AuthStyle:    xoauth2.AuthStyleInHeader,
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	ctx = context.WithValue(ctx, xoauth2.HTTPClient, m.exchangeClient())

	issuedAt := m.nowFunc()
	m.logger.Debug().Str("token_url", cfg.TokenURL).Strs("scopes", cfg.Scopes).Msg("requesting access token")

	raw, err := cfg.Token(ctx)
	if err != nil {
		authErr := m.authenticationError(err)
		m.logger.Error().Err(authErr).Str("token_url", cfg.TokenURL).Msg("token exchange failed")
		return Token{}, authErr
	}

	lifetime := m.lifetime(raw, issuedAt)
	margin := m.safetyMargin
	if margin > lifetime/2 {
		margin = lifetime / 2
	}
	tok := Token{
		Value:     raw.AccessToken,
		Type:      NormalizeType(raw.TokenType),
		ExpiresAt: issuedAt.Add(lifetime - margin),
	}
	if !tok.Valid(m.nowFunc()) {
		return Token{}, &apierror.AuthenticationError{
			StatusCode:  http.StatusOK,
			Description: "token endpoint returned an already expired token",
		}
	}

	m.logger.Info().
		Str("token", utils.Preview(tok.Value, 12)).
		Time("expires_at", tok.ExpiresAt).
		Msg("access token acquired")
	return tok, nil
}

// lifetime prefers expires_in, then the JWT exp claim, then the default.
func (m *Manager) lifetime(raw *xoauth2.Token, issuedAt time.Time) time.Duration {
	if secs, ok := expiresIn(raw.Extra("expires_in")); ok && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if exp, err := jwtExpiry(raw.AccessToken); err == nil {
		return exp.Sub(issuedAt)
	}
	return m.defaultLifetime
}

func (m *Manager) authenticationError(err error) error {
	var re *xoauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		ae := apierror.NewAuthenticationError(status, re.Body, false)
		if ae.Code == "" {
			ae.Code = re.ErrorCode
		}
		if ae.Description == "" {
			ae.Description = re.ErrorDescription
		}
		ae.Cause = err
		return ae
	}

	var ue *url.Error
	if errors.As(err, &ue) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &apierror.AuthenticationError{
			Cause: &apierror.TransportError{
				Op:      "token exchange",
				Method:  http.MethodPost,
				URL:     m.creds.TokenURL(),
				Timeout: isTimeout(err),
				Cause:   err,
			},
		}
	}

	return &apierror.AuthenticationError{
		Description: "malformed token response",
		Cause:       errors.Wrap(err, "Manager.exchange Token"),
	}
}

func expiresIn(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}

// jwtExpiry reads the exp claim without verifying the signature; the token is
// opaque to the client and only the lifetime is of interest.
func jwtExpiry(accessToken string) (time.Time, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(accessToken, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, err
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, errors.New("no exp claim")
	}
	return exp.Time, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
