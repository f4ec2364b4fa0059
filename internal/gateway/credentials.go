package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"chatgate/internal/upstream"
	"chatgate/pkg/logging"
)

// Header names for the credential channels accepted on initialization.
const (
	apiIDHeader     = "X-Api-Id"
	apiSecretHeader = "X-Api-Secret"
)

// ErrNoCredentials is returned when none of the three credential channels
// yields a usable token.
var ErrNoCredentials = errors.New("no usable credentials in request")

// Credentials carries the authentication material extracted from a
// session-initialization request. Fields are checked in precedence order;
// the channels are never combined.
type Credentials struct {
	// Bearer is the token from the standard Authorization header.
	Bearer string
	// APIID and APISecret are the custom-header credential pair.
	APIID     string
	APISecret string
	// BodyToken is the legacy token embedded in the initialization payload.
	BodyToken string
}

// CredentialsFromRequest extracts the three credential channels from an
// initialization request. bodyToken is the legacy top-level "token" field
// already parsed out of the POST body.
func CredentialsFromRequest(r *http.Request, bodyToken string) Credentials {
	creds := Credentials{
		APIID:     r.Header.Get(apiIDHeader),
		APISecret: r.Header.Get(apiSecretHeader),
		BodyToken: bodyToken,
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		creds.Bearer = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}

	return creds
}

// TokenExchanger mints a token from an API id/secret pair. Satisfied by
// *upstream.Exchanger; narrowed to an interface so resolver tests can count
// exchanges without a network.
type TokenExchanger interface {
	Exchange(ctx context.Context, apiID, apiSecret string) (upstream.Token, error)
}

// CredentialResolver turns the extracted credentials into exactly one bearer
// token, consulting the token cache before performing an OAuth exchange.
type CredentialResolver struct {
	cache     *upstream.TokenCache
	exchanger TokenExchanger
}

// NewCredentialResolver creates a resolver over the given cache and
// exchanger.
func NewCredentialResolver(cache *upstream.TokenCache, exchanger TokenExchanger) *CredentialResolver {
	return &CredentialResolver{
		cache:     cache,
		exchanger: exchanger,
	}
}

// Resolve applies the credential precedence order: bearer header first, then
// the API id/secret pair through the cache/exchanger, then the legacy body
// token. First match wins; no combination. Failure means ErrNoCredentials
// and no session is established.
//
// The cache read and the subsequent write deliberately do not span one
// critical section: two sessions resolving the same API id concurrently may
// both exchange, and the last write wins. Both tokens are valid, so the race
// is benign.
func (cr *CredentialResolver) Resolve(ctx context.Context, creds Credentials) (string, error) {
	if creds.Bearer != "" {
		return creds.Bearer, nil
	}

	if creds.APIID != "" && creds.APISecret != "" {
		if token, ok := cr.cache.Get(creds.APIID); ok {
			logging.Debug("Credentials", "Token cache hit for api id %s", creds.APIID)
			return token.AccessToken, nil
		}

		token, err := cr.exchanger.Exchange(ctx, creds.APIID, creds.APISecret)
		if err != nil {
			logging.Warn("Credentials", "Exchange failed for api id %s: %v", creds.APIID, err)
			return "", ErrNoCredentials
		}
		cr.cache.Put(creds.APIID, token)
		return token.AccessToken, nil
	}

	if creds.BodyToken != "" {
		return creds.BodyToken, nil
	}

	return "", ErrNoCredentials
}
