// Package session turns an authenticated client's state into a versioned,
// self-describing byte blob and back, and persists those blobs.
//
// The blob is built from explicit fields (credentials and current token), not
// from the client's internal representation, so the format can evolve: newer
// optional fields fall back to defaults when missing, and unknown versions are
// refused with *apierror.DeserializationError.
package session

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/jrsteele09/go-gopay-client/apierror"
	"github.com/jrsteele09/go-gopay-client/credentials"
	"github.com/jrsteele09/go-gopay-client/oauth2"
	"github.com/jrsteele09/go-gopay-client/token"
	"github.com/pkg/errors"
)

// CurrentVersion is written into every new snapshot.
const CurrentVersion = "1"

// State is what a snapshot captures.
type State struct {
	Credentials credentials.Credentials
	Token       *token.Token // nil when no token has been acquired yet
}

type envelope struct {
	Version     string         `json:"version"`
	Credentials *credentialsV1 `json:"credentials"`
	Token       *tokenV1       `json:"token"`
	SavedAt     time.Time      `json:"saved_at"`
}

type credentialsV1 struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Scope        string `json:"scope,omitempty"`
	BaseURL      string `json:"base_url,omitempty"`
	GoID         string `json:"goid,omitempty"`
}

type tokenV1 struct {
	Value     string    `json:"access_token"`
	Type      string    `json:"token_type,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Encode writes state in the current schema version.
func Encode(state State, savedAt time.Time) ([]byte, error) {
	c := state.Credentials
	env := envelope{
		Version: CurrentVersion,
		Credentials: &credentialsV1{
			ClientID:     c.ClientID(),
			ClientSecret: c.ClientSecret(),
			Scope:        c.Scope(),
			BaseURL:      c.BaseURL(),
			GoID:         c.GoID(),
		},
		SavedAt: savedAt.UTC(),
	}
	if state.Token != nil && !state.Token.IsZero() {
		env.Token = &tokenV1{
			Value:     state.Token.Value,
			Type:      state.Token.Type,
			ExpiresAt: state.Token.ExpiresAt.UTC(),
		}
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, errors.Wrap(err, "session.Encode json.Marshal")
	}
	return data, nil
}

// Decode reads a snapshot produced by Encode. It performs no I/O.
func Decode(data []byte) (State, error) {
	var head struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return State{}, &apierror.DeserializationError{Reason: "snapshot is not valid json", Cause: err}
	}

	switch strings.TrimSpace(head.Version) {
	case "":
		return State{}, &apierror.DeserializationError{Reason: "snapshot has no schema version"}
	case "1":
		return decodeV1(data)
	}
	return State{}, &apierror.DeserializationError{Version: head.Version, Reason: "unsupported schema version"}
}

func decodeV1(data []byte) (State, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return State{}, &apierror.DeserializationError{Version: "1", Reason: "malformed snapshot", Cause: err}
	}
	if env.Credentials == nil {
		return State{}, &apierror.DeserializationError{Version: "1", Reason: "snapshot has no credentials"}
	}

	opts := []credentials.Option{credentials.WithScope(env.Credentials.Scope)}
	if env.Credentials.BaseURL != "" {
		opts = append(opts, credentials.WithBaseURL(env.Credentials.BaseURL))
	}
	if env.Credentials.GoID != "" {
		opts = append(opts, credentials.WithGoID(env.Credentials.GoID))
	}
	creds, err := credentials.New(env.Credentials.ClientID, env.Credentials.ClientSecret, opts...)
	if err != nil {
		return State{}, &apierror.DeserializationError{Version: "1", Reason: "invalid credentials", Cause: err}
	}

	state := State{Credentials: creds}
	if env.Token != nil && env.Token.Value != "" {
		tokenType := env.Token.Type
		if tokenType == "" {
			tokenType = string(oauth2.BearerTokenType)
		}
		state.Token = &token.Token{
			Value:     env.Token.Value,
			Type:      tokenType,
			ExpiresAt: env.Token.ExpiresAt,
		}
	}
	return state, nil
}
