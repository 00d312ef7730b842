package apierror

import (
	"encoding/json"
	"strings"

	"github.com/jrsteele09/go-gopay-client/oauth2"
)

// gatewayErrorBody is the error envelope used by the payment endpoints.
type gatewayErrorBody struct {
	DateIssued string        `json:"date_issued"`
	Errors     []ErrorDetail `json:"errors"`
}

// ParseGatewayError decodes an error response body. GoPay error lists and
// OAuth-style {error, error_description} bodies are recognised; anything else
// is kept as raw text.
func ParseGatewayError(statusCode int, body []byte) *GatewayError {
	ge := &GatewayError{StatusCode: statusCode}

	var list gatewayErrorBody
	if err := json.Unmarshal(body, &list); err == nil && len(list.Errors) > 0 {
		ge.DateIssued = list.DateIssued
		ge.Errors = list.Errors
		return ge
	}

	var oauthErr oauth2.ErrorResponse
	if err := json.Unmarshal(body, &oauthErr); err == nil && oauthErr.Error != "" {
		ge.Code = oauthErr.Error
		ge.Description = oauthErr.ErrorDescription
		return ge
	}

	ge.RawBody = strings.TrimSpace(string(body))
	return ge
}

// NewAuthenticationError builds an AuthenticationError from an unauthorized
// response, reusing whatever structure ParseGatewayError could find.
func NewAuthenticationError(statusCode int, body []byte, retried bool) *AuthenticationError {
	ge := ParseGatewayError(statusCode, body)
	ae := &AuthenticationError{
		StatusCode:  statusCode,
		Code:        ge.Code,
		Description: ge.Description,
		Retried:     retried,
	}
	if ae.Code == "" && len(ge.Errors) > 0 {
		ae.Code = ge.Errors[0].Name
		ae.Description = ge.Errors[0].Message
	}
	if ae.Code == "" && ge.RawBody != "" {
		ae.Description = truncate(ge.RawBody, 200)
	}
	return ae
}
