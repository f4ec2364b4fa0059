package upstream

import (
	"time"

	"golang.org/x/oauth2"
)

// Token is a bearer credential minted by the ChatHub token endpoint.
// Tokens are immutable values; a refresh produces a replacement, never a
// mutation of a cached entry.
type Token struct {
	// AccessToken is the bearer token presented to the upstream API.
	AccessToken string `json:"access_token"`

	// TokenType is typically "Bearer".
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the token lifetime in seconds, as declared by the token
	// endpoint. Zero means the endpoint omitted it.
	ExpiresIn int `json:"expires_in,omitempty"`

	// ExpiresAt is the absolute expiry computed by the exchanger, already
	// reduced by the safety margin.
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Valid reports whether the token may still be presented upstream at the
// given instant.
func (t Token) Valid(now time.Time) bool {
	if t.AccessToken == "" {
		return false
	}
	if t.ExpiresAt.IsZero() {
		return true
	}
	return t.ExpiresAt.After(now)
}

// ToOAuth2Token converts the token for use with golang.org/x/oauth2
// transports.
func (t Token) ToOAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken: t.AccessToken,
		TokenType:   t.TokenType,
		Expiry:      t.ExpiresAt,
	}
}
