// Package gatewayfake is an in-process stand-in for the payment gateway used
// by tests. It issues signed JWT access tokens, counts token exchanges and
// resource calls, and replays scripted responses.
package gatewayfake

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-gopay-client/internal/utils"
	"github.com/jrsteele09/go-gopay-client/oauth2"
)

const (
	ClientID     = "fake-client"
	ClientSecret = "fake-secret"
	GoID         = "8123456789"
	APIPrefix    = "/api"
)

// Response is a scripted reply.
type Response struct {
	Status      int
	Body        string
	ContentType string
	Delay       time.Duration
}

// Request is what the gateway recorded for a resource call.
type Request struct {
	Method        string
	Path          string
	Query         url.Values
	Authorization string
	ContentType   string
	Accept        string
	RequestID     string
	Body          []byte
}

type Gateway struct {
	server *httptest.Server

	mu             sync.Mutex
	signingKey     []byte
	clientSecret   string
	expiresIn      int
	omitExpiresIn  bool
	tokenCalls     int
	resourceCalls  int
	validTokens    map[string]struct{}
	issued         []string
	tokenScript    []Response
	resourceScript []Response
	requests       []Request
	tokenForms     []url.Values
}

type Option func(*Gateway)

// WithExpiresIn sets the expires_in value of issued tokens.
func WithExpiresIn(seconds int) Option {
	return func(g *Gateway) {
		g.expiresIn = seconds
	}
}

// WithClientSecret changes the secret the token endpoint accepts.
func WithClientSecret(secret string) Option {
	return func(g *Gateway) {
		g.clientSecret = secret
	}
}

// WithoutExpiresIn omits expires_in so clients must fall back to the JWT exp claim.
func WithoutExpiresIn() Option {
	return func(g *Gateway) {
		g.omitExpiresIn = true
	}
}

func New(t testing.TB, opts ...Option) *Gateway {
	t.Helper()

	g := &Gateway{
		signingKey:   []byte("gatewayfake-signing-key"),
		clientSecret: ClientSecret,
		expiresIn:    1800,
		validTokens:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(APIPrefix+"/oauth2/token", g.handleToken)
	mux.HandleFunc(APIPrefix+"/", g.handleResource)
	g.server = httptest.NewServer(mux)
	t.Cleanup(g.server.Close)
	return g
}

// BaseURL is the API root to configure the client with.
func (g *Gateway) BaseURL() string {
	return g.server.URL + APIPrefix
}

// Client returns an http.Client wired to the test server.
func (g *Gateway) Client() *http.Client {
	return g.server.Client()
}

// EnqueueToken scripts the next token endpoint replies; once drained the
// gateway issues tokens normally.
func (g *Gateway) EnqueueToken(responses ...Response) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokenScript = append(g.tokenScript, responses...)
}

// EnqueueResource scripts the next resource replies for authorized calls.
func (g *Gateway) EnqueueResource(responses ...Response) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resourceScript = append(g.resourceScript, responses...)
}

// RevokeAll makes every token issued so far unusable.
func (g *Gateway) RevokeAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.validTokens = make(map[string]struct{})
}

func (g *Gateway) TokenCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tokenCalls
}

func (g *Gateway) ResourceCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resourceCalls
}

func (g *Gateway) IssuedTokens() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.issued...)
}

func (g *Gateway) Requests() []Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Request(nil), g.requests...)
}

// LastRequest returns the most recent resource request.
func (g *Gateway) LastRequest() Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.requests) == 0 {
		return Request{}
	}
	return g.requests[len(g.requests)-1]
}

// TokenForms returns the form bodies posted to the token endpoint.
func (g *Gateway) TokenForms() []url.Values {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]url.Values(nil), g.tokenForms...)
}

func (g *Gateway) handleToken(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	g.tokenCalls++
	var scripted *Response
	if len(g.tokenScript) > 0 {
		scripted = &g.tokenScript[0]
		g.tokenScript = g.tokenScript[1:]
	}
	g.mu.Unlock()

	_ = r.ParseForm()
	g.mu.Lock()
	g.tokenForms = append(g.tokenForms, r.PostForm)
	g.mu.Unlock()

	if scripted != nil {
		g.write(w, r, *scripted)
		return
	}

	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, oauth2.ErrorResponse{Error: "invalid_request"})
		return
	}
	id, secret, ok := r.BasicAuth()
	if !ok || id != ClientID || secret != g.clientSecret {
		writeJSON(w, http.StatusUnauthorized, oauth2.ErrorResponse{Error: "invalid_client", ErrorDescription: "client authentication failed"})
		return
	}
	if r.PostForm.Get("grant_type") != string(oauth2.ClientCredentialsGrant) {
		writeJSON(w, http.StatusBadRequest, oauth2.ErrorResponse{Error: "unsupported_grant_type"})
		return
	}

	accessToken, err := g.issue(r.PostForm.Get("scope"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, oauth2.ErrorResponse{Error: "server_error", ErrorDescription: err.Error()})
		return
	}

	resp := oauth2.TokenResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
		Scope:       r.PostForm.Get("scope"),
	}
	if !g.omitExpiresIn {
		resp.ExpiresIn = utils.Ptr(g.expiresIn)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (g *Gateway) issue(scope string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   "gatewayfake",
		"sub":   ClientID,
		"scope": scope,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Duration(g.expiresIn) * time.Second).Unix(),
		"jti":   uuid.New().String(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.signingKey)
	if err != nil {
		return "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.validTokens[signed] = struct{}{}
	g.issued = append(g.issued, signed)
	return signed, nil
}

func (g *Gateway) handleResource(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	authz := r.Header.Get("Authorization")

	g.mu.Lock()
	g.resourceCalls++
	g.requests = append(g.requests, Request{
		Method:        r.Method,
		Path:          strings.TrimPrefix(r.URL.Path, APIPrefix),
		Query:         r.URL.Query(),
		Authorization: authz,
		ContentType:   r.Header.Get("Content-Type"),
		Accept:        r.Header.Get("Accept"),
		RequestID:     r.Header.Get("X-Request-ID"),
		Body:          body,
	})
	_, authorized := g.validTokens[strings.TrimPrefix(authz, "Bearer ")]
	authorized = authorized && strings.HasPrefix(authz, "Bearer ")
	var scripted *Response
	if authorized && len(g.resourceScript) > 0 {
		scripted = &g.resourceScript[0]
		g.resourceScript = g.resourceScript[1:]
	}
	g.mu.Unlock()

	if !authorized {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"date_issued": time.Now().Format("2006-01-02T15:04:05.000-0700"),
			"errors": []map[string]any{{
				"scope":      "G",
				"error_code": 202,
				"error_name": "AUTH_WRONG_CREDENTIALS",
				"message":    "Wrong credentials",
			}},
		})
		return
	}
	if scripted != nil {
		g.write(w, r, *scripted)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"method": r.Method,
		"path":   strings.TrimPrefix(r.URL.Path, APIPrefix),
	})
}

func (g *Gateway) write(w http.ResponseWriter, r *http.Request, resp Response) {
	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}
	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = io.WriteString(w, resp.Body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
