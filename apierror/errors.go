// Package apierror holds the typed errors returned by the gateway client.
//
// Every failure carries structured detail (status code, remote error code,
// transport reason) so callers can branch with errors.As instead of matching
// on strings.
package apierror

import (
	"fmt"
	"net/http"
	"strings"
)

// AuthenticationError is returned when the credentials exchange fails or when
// a resource call is still rejected as unauthorized after the single retry.
type AuthenticationError struct {
	StatusCode  int    // HTTP status of the rejecting response, 0 when none was received
	Code        string // Remote error code, e.g. "invalid_client"
	Description string // Remote error description
	Retried     bool   // True when the failure happened on the retry of a resource call
	Cause       error
}

func (e *AuthenticationError) Error() string {
	var b strings.Builder
	b.WriteString("gopay: authentication failed")
	if e.Retried {
		b.WriteString(" after token refresh")
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Code != "" {
		b.WriteString(": " + e.Code)
		if e.Description != "" {
			b.WriteString(" - " + e.Description)
		}
	} else if e.Cause != nil {
		b.WriteString(": " + e.Cause.Error())
	}
	return b.String()
}

func (e *AuthenticationError) Unwrap() error {
	return e.Cause
}

// ErrorDetail is a single entry of the gateway's error list.
type ErrorDetail struct {
	Scope       string `json:"scope,omitempty"`
	Field       string `json:"field,omitempty"`
	Code        int    `json:"error_code,omitempty"`
	Name        string `json:"error_name,omitempty"`
	Message     string `json:"message,omitempty"`
	Description string `json:"description,omitempty"`
}

// GatewayError is a non-authentication 4xx/5xx response from the gateway.
type GatewayError struct {
	StatusCode  int
	DateIssued  string
	Errors      []ErrorDetail
	Code        string // OAuth-style error code when the body used that shape
	Description string
	RawBody     string // Undecodable body text, kept verbatim
}

func (e *GatewayError) Error() string {
	msg := fmt.Sprintf("gopay: gateway returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	switch {
	case len(e.Errors) > 0:
		parts := make([]string, 0, len(e.Errors))
		for _, d := range e.Errors {
			part := fmt.Sprintf("%d %s", d.Code, d.Name)
			if d.Field != "" {
				part += " [" + d.Field + "]"
			}
			if d.Message != "" {
				part += ": " + d.Message
			}
			parts = append(parts, part)
		}
		msg += ": " + strings.Join(parts, "; ")
	case e.Code != "":
		msg += ": " + e.Code
		if e.Description != "" {
			msg += " - " + e.Description
		}
	case e.RawBody != "":
		msg += ": " + truncate(e.RawBody, 200)
	}
	return msg
}

// HasErrorCode reports whether the gateway error list contains code.
func (e *GatewayError) HasErrorCode(code int) bool {
	for _, d := range e.Errors {
		if d.Code == code {
			return true
		}
	}
	return false
}

// TransportError is a connection-level failure before a complete response
// was obtained. No client state was changed, so it is safe to retry.
type TransportError struct {
	Op      string // "token exchange", "request" or "read body"
	Method  string
	URL     string
	Timeout bool
	Cause   error
}

func (e *TransportError) Error() string {
	reason := "transport failure"
	if e.Timeout {
		reason = "timeout"
	}
	msg := fmt.Sprintf("gopay: %s %s during %s %s", e.Op, reason, e.Method, e.URL)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// DeserializationError is returned by restore when a snapshot is malformed or
// was written with an unsupported schema version.
type DeserializationError struct {
	Version string
	Reason  string
	Cause   error
}

func (e *DeserializationError) Error() string {
	msg := "gopay: cannot restore session"
	if e.Version != "" {
		msg += fmt.Sprintf(" (version %q)", e.Version)
	}
	msg += ": " + e.Reason
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *DeserializationError) Unwrap() error {
	return e.Cause
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
