package oauth2

// TokenResponse represents the response from the gateway's /oauth2/token endpoint.
// This is the standard OAuth2 token endpoint response format as defined in RFC 6749.
type TokenResponse struct {
	// AccessToken is the credential attached to every resource call.
	// Example: "AAArt6RuJm..."
	// Usage: Include in Authorization header: "<token_type> <access_token>"
	// Lifespan: Short-lived (30 minutes on GoPay)
	AccessToken string `json:"access_token"`

	// TokenType indicates how to use the access token.
	// Example: "bearer"
	// Usage: Tells client to use "Authorization: Bearer <token>" header
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token.
	// Example: 1800
	// Usage: Client computes an absolute expiry from it and refreshes before that
	// Note: Optional; when absent the client falls back to the JWT exp claim
	ExpiresIn *int `json:"expires_in,omitempty"`

	// Scope indicates the access token's granted permissions.
	// Example: "payment-all"
	Scope string `json:"scope,omitempty"`
}

// ErrorResponse is the RFC 6749 section 5.2 error body returned by the token endpoint.
type ErrorResponse struct {
	// Error is the machine-readable error code.
	// Example: "invalid_client", "invalid_scope"
	Error string `json:"error"`

	// ErrorDescription is optional human-readable detail.
	ErrorDescription string `json:"error_description,omitempty"`
}
