package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"chatgate/pkg/logging"

	"golang.org/x/oauth2"
)

// Channel identifies one of the messaging platforms fronted by ChatHub.
// Each channel has its own upstream path prefix and its own payload
// conventions for equivalent logical actions.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelTelegram Channel = "telegram"
)

// channelPrefixes maps each supported channel to its upstream path prefix.
var channelPrefixes = map[Channel]string{
	ChannelWhatsApp: "/v1/whatsapp",
	ChannelTelegram: "/v1/telegram",
}

// ChannelPath resolves a channel-scoped upstream path. It returns false for
// an unrecognized channel tag.
func ChannelPath(channel Channel, suffix string) (string, bool) {
	prefix, ok := channelPrefixes[channel]
	if !ok {
		return "", false
	}
	return prefix + suffix, true
}

// SupportedChannels returns the fixed set of channel tags.
func SupportedChannels() []string {
	return []string{string(ChannelTelegram), string(ChannelWhatsApp)}
}

// Result is the uniform shape every upstream call resolves to. Upstream
// failures are data, not errors: tools forward this value to the caller
// verbatim so upstream error detail is never swallowed.
type Result struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// RequestOptions describes a single upstream call.
type RequestOptions struct {
	// Method defaults to GET.
	Method string
	// Query is appended to the request URL.
	Query url.Values
	// Body, when non-nil, is marshaled as the JSON request body.
	Body any
}

// Client issues authenticated requests against the ChatHub REST API.
//
// A Client created by NewClient carries no credential; WithToken derives a
// per-session copy whose transport attaches the bearer token.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures the upstream client.
type ClientOption func(*Client)

// WithClientHTTPClient sets a custom HTTP client, used as the base transport
// for token-bound copies as well.
func WithClientHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates an upstream client for the given API base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithToken returns a copy of the client bound to a bearer token. The token
// is attached by an oauth2 transport wrapped around the base HTTP client.
func (c *Client) WithToken(ctx context.Context, accessToken string) *Client {
	token := Token{AccessToken: accessToken, TokenType: "Bearer"}
	src := oauth2.StaticTokenSource(token.ToOAuth2Token())

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	httpClient := oauth2.NewClient(ctx, src)
	httpClient.Timeout = c.httpClient.Timeout

	return &Client{
		baseURL:    c.baseURL,
		httpClient: httpClient,
	}
}

// Request performs one upstream call and normalizes the outcome into a
// Result. Transport failures and non-JSON bodies collapse to a generic
// "unexpected error"; non-success statuses carry the status code and the raw
// response body in Details.
func (c *Client) Request(ctx context.Context, path string, opts RequestOptions) Result {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	reqURL := c.baseURL + path
	if len(opts.Query) > 0 {
		reqURL += "?" + opts.Query.Encode()
	}

	var bodyReader *bytes.Reader
	if opts.Body != nil {
		payload, err := json.Marshal(opts.Body)
		if err != nil {
			logging.Error("Upstream", err, "Failed to encode request body for %s %s", method, path)
			return unexpectedErrorResult()
		}
		bodyReader = bytes.NewReader(payload)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		logging.Error("Upstream", err, "Failed to build request for %s %s", method, path)
		return unexpectedErrorResult()
	}
	req.Header.Set("Accept", "application/json")
	if opts.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.Warn("Upstream", "Request %s %s failed: %v", method, path, err)
		return unexpectedErrorResult()
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		logging.Warn("Upstream", "Failed to read response for %s %s: %v", method, path, err)
		return unexpectedErrorResult()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logging.Debug("Upstream", "Request %s %s returned status %d", method, path, resp.StatusCode)
		return Result{
			Success: false,
			Error:   fmt.Sprintf("API request failed with status %d", resp.StatusCode),
			Details: rawDetails(body),
		}
	}

	if len(body) == 0 {
		return Result{Success: true}
	}
	if !json.Valid(body) {
		logging.Warn("Upstream", "Request %s %s returned a non-JSON body", method, path)
		return unexpectedErrorResult()
	}

	return Result{Success: true, Data: json.RawMessage(body)}
}

func unexpectedErrorResult() Result {
	return Result{Success: false, Error: "unexpected error"}
}

// rawDetails preserves the upstream error body. Non-JSON bodies are wrapped
// as a JSON string so the Result itself stays marshalable.
func rawDetails(body []byte) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	quoted, err := json.Marshal(string(body))
	if err != nil {
		return nil
	}
	return json.RawMessage(quoted)
}

func readBody(resp *http.Response) ([]byte, error) {
	// Upstream error bodies are small; the limit is a guard against a
	// misbehaving endpoint, not a protocol feature.
	const maxBodyBytes = 4 << 20
	return readAllLimit(resp, maxBodyBytes)
}

func readAllLimit(resp *http.Response, limit int64) ([]byte, error) {
	var buf bytes.Buffer
	_, err := buf.ReadFrom(http.MaxBytesReader(nil, resp.Body, limit))
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
