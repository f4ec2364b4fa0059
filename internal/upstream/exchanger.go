package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chatgate/pkg/logging"
)

const (
	// DefaultHTTPTimeout is the default timeout for token endpoint requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ExpiryMargin is subtracted from the declared token lifetime so a cached
	// token is never presented upstream in its last minute of validity.
	ExpiryMargin = 60 * time.Second

	// DefaultTokenLifetime applies when the token endpoint omits expires_in.
	DefaultTokenLifetime = 3600 * time.Second
)

// Exchanger performs client-credentials grants against the ChatHub OAuth
// token endpoint.
type Exchanger struct {
	tokenURL   string
	httpClient *http.Client
	now        func() time.Time
}

// ExchangerOption configures the exchanger.
type ExchangerOption func(*Exchanger)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ExchangerOption {
	return func(e *Exchanger) {
		e.httpClient = httpClient
	}
}

// WithClock sets a custom clock, for deterministic expiry tests.
func WithClock(now func() time.Time) ExchangerOption {
	return func(e *Exchanger) {
		e.now = now
	}
}

// NewExchanger creates an exchanger bound to a token endpoint URL.
func NewExchanger(tokenURL string, opts ...ExchangerOption) *Exchanger {
	e := &Exchanger{
		tokenURL:   tokenURL,
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Exchange trades an API identifier and secret for a bearer token.
//
// A non-success status or a response body without an access token is an
// error; the caller treats any error as "no token obtainable". The returned
// token carries an absolute expiry computed from the declared lifetime
// (DefaultTokenLifetime when omitted) minus ExpiryMargin.
func (e *Exchanger) Exchange(ctx context.Context, apiID, apiSecret string) (Token, error) {
	data := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {apiID},
		"client_secret": {apiSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		logging.Warn("OAuth", "Token request for api id %s failed: %v", apiID, err)
		return Token{}, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Token{}, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		logging.Warn("OAuth", "Token request for api id %s returned status %d", apiID, resp.StatusCode)
		return Token{}, fmt.Errorf("token request failed with status %d", resp.StatusCode)
	}

	var token Token
	if err := json.Unmarshal(body, &token); err != nil {
		return Token{}, fmt.Errorf("failed to parse token response: %w", err)
	}
	if token.AccessToken == "" {
		logging.Warn("OAuth", "Token response for api id %s is missing access_token", apiID)
		return Token{}, fmt.Errorf("token response missing access_token")
	}

	lifetime := DefaultTokenLifetime
	if token.ExpiresIn > 0 {
		lifetime = time.Duration(token.ExpiresIn) * time.Second
	}
	token.ExpiresAt = e.now().Add(lifetime - ExpiryMargin)

	logging.Debug("OAuth", "Exchanged credentials for api id %s, token valid until %s",
		apiID, token.ExpiresAt.Format(time.RFC3339))

	return token, nil
}
