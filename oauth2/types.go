package oauth2

// GrantType represents the OAuth 2.0 grant type sent to the gateway's token endpoint.
type GrantType string

const (
	// ClientCredentialsGrant allows machine-to-machine authentication.
	// Used in: Every token exchange performed by this client
	// Token request includes: grant_type, scope (client_id/client_secret go in the Basic auth header)
	// Returns: access_token, token_type, expires_in (no refresh_token)
	ClientCredentialsGrant GrantType = "client_credentials"
)

// Scope values understood by the GoPay token endpoint.
const (
	// ScopePaymentCreate permits creating payments only.
	ScopePaymentCreate = "payment-create"

	// ScopePaymentAll permits every payment operation (status, refund, recurrence, ...).
	// Default scope requested by this client.
	ScopePaymentAll = "payment-all"
)

// TokenType is the scheme placed in front of the access token in the Authorization header.
type TokenType string

const (
	// BearerTokenType is the only token type issued by the gateway.
	// Usage: "Authorization: Bearer <access_token>"
	BearerTokenType TokenType = "Bearer"
)
