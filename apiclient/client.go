package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// HeaderRetry marks a request replayed after a token refresh
	HeaderRetry = "X-Retry"
	// HeaderInternalAPIKey carries the server-only key on service calls
	HeaderInternalAPIKey = "X-Internal-API-Key"
	// RefreshEndpoint exchanges a refresh token for a new access token
	RefreshEndpoint = "/api/auth/refresh"

	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "figureshelf/dev"
)

// Request describes one backend call
type Request struct {
	Method   string
	Endpoint string
	// Body is JSON-encoded when non-nil
	Body   any
	Header http.Header
}

// Retried reports whether the request carries the refresh retry marker
func (r Request) Retried() bool {
	return r.Header.Get(HeaderRetry) != ""
}

// withRetryMarker returns a copy of the request with the retry marker set
func (r Request) withRetryMarker() Request {
	h := r.Header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set(HeaderRetry, "true")
	r.Header = h
	return r
}

// Response describes a completed call
type Response struct {
	StatusCode int
	// NoContent is set for 204 responses; the output value is left untouched
	NoContent bool
}

// Client issues authenticated, validated requests against the figure backend
type Client struct {
	endpoints      Endpoints
	internalAPIKey string
	scope          Scope
	creds          Credentials
	httpClient     *http.Client
	coordinator    *Coordinator
	decoder        Decoder
	userAgent      string
	logger         zerolog.Logger
}

// NewClient creates a service-scoped client. Use ForUser for calls made on behalf of an end user.
func NewClient(endpoints Endpoints, internalAPIKey string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	for name, raw := range map[string]string{"origin": endpoints.Origin, "proxy url": endpoints.ProxyURL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("%w: %s %q must be an absolute URL", ErrInvalidConfig, name, raw)
		}
	}

	c := &Client{
		endpoints:      endpoints,
		internalAPIKey: internalAPIKey,
		scope:          ScopeService,
		httpClient:     &http.Client{Timeout: defaultTimeout},
		coordinator:    NewCoordinator(),
		decoder:        NewDecoder(),
		userAgent:      defaultUserAgent,
		logger:         logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// ForUser returns a user-scoped view of the client.
// The view shares the HTTP client and the refresh coordinator with c.
func (c *Client) ForUser(creds Credentials) *Client {
	view := *c
	view.scope = ScopeUser
	view.creds = creds
	return &view
}

// Scope returns the client's scope
func (c *Client) Scope() Scope {
	return c.scope
}

// BaseURL returns the base URL requests of this client are sent to
func (c *Client) BaseURL() string {
	return ResolveBaseURL(c.scope, c.endpoints)
}

// Get performs a GET and decodes the response into out
func (c *Client) Get(ctx context.Context, endpoint string, out any) error {
	_, err := c.Do(ctx, Request{Method: http.MethodGet, Endpoint: endpoint}, out)
	return err
}

// Post performs a POST with a JSON body and decodes the response into out
func (c *Client) Post(ctx context.Context, endpoint string, body, out any) error {
	_, err := c.Do(ctx, Request{Method: http.MethodPost, Endpoint: endpoint, Body: body}, out)
	return err
}

// Put performs a PUT with a JSON body and decodes the response into out
func (c *Client) Put(ctx context.Context, endpoint string, body, out any) error {
	_, err := c.Do(ctx, Request{Method: http.MethodPut, Endpoint: endpoint, Body: body}, out)
	return err
}

// Patch performs a PATCH with a JSON body and decodes the response into out
func (c *Client) Patch(ctx context.Context, endpoint string, body, out any) error {
	_, err := c.Do(ctx, Request{Method: http.MethodPatch, Endpoint: endpoint, Body: body}, out)
	return err
}

// Delete performs a DELETE and decodes the response into out
func (c *Client) Delete(ctx context.Context, endpoint string, out any) error {
	_, err := c.Do(ctx, Request{Method: http.MethodDelete, Endpoint: endpoint}, out)
	return err
}

// Do sends the request. A 401 on a user-scoped request that has not been retried yet
// triggers a single-flight token refresh followed by exactly one replay of the request.
func (c *Client) Do(ctx context.Context, req Request, out any) (*Response, error) {
	resp, sentToken, err := c.send(ctx, req, out)
	if err == nil {
		return resp, nil
	}
	if !c.shouldRefresh(req, err) {
		return nil, err
	}

	// Another caller already swapped the token after this request went out.
	if current := c.creds.AccessToken(); current != "" && current != sentToken {
		c.logger.Debug().Str("endpoint", req.Endpoint).Msg("Access token changed meanwhile, replaying request")
		return c.Do(ctx, req.withRetryMarker(), out)
	}

	tokens, leader, refreshErr := c.coordinator.Do(ctx, c.creds.Key(), c.refreshTokens)
	if refreshErr != nil {
		if leader && errors.Is(refreshErr, ErrNoRefreshToken) {
			return nil, err
		}
		return nil, refreshErr
	}
	// Waiters may hold their own store for the same key.
	c.creds.SetTokens(tokens)

	c.logger.Debug().Str("endpoint", req.Endpoint).Bool("leader", leader).Msg("Replaying request after token refresh")
	return c.Do(ctx, req.withRetryMarker(), out)
}

// shouldRefresh checks the refresh trigger: 401, user scope, not already retried
func (c *Client) shouldRefresh(req Request, err error) bool {
	if c.scope != ScopeUser || c.creds == nil || req.Retried() {
		return false
	}
	return IsStatus(err, http.StatusUnauthorized)
}

// send performs a single HTTP round trip. It returns the access token it attached, if any.
func (c *Client) send(ctx context.Context, req Request, out any) (*Response, string, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	requestURL := c.BaseURL() + req.Endpoint

	var body io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	var token string
	switch c.scope {
	case ScopeUser:
		if c.creds != nil {
			token = c.creds.AccessToken()
		}
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	case ScopeService:
		if c.internalAPIKey != "" {
			httpReq.Header.Set(HeaderInternalAPIKey, c.internalAPIKey)
		}
	}
	for key, values := range req.Header {
		httpReq.Header[key] = append([]string(nil), values...)
	}

	c.logger.Debug().
		Str("method", method).
		Str("url", requestURL).
		Str("scope", c.scope.String()).
		Bool("retry", req.Retried()).
		Msg("Making figureshelf API request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, token, &TransportError{Method: method, URL: requestURL, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, token, &TransportError{Method: method, URL: requestURL, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, token, newAPIError(resp, data)
	}

	if resp.StatusCode == http.StatusNoContent {
		return &Response{StatusCode: resp.StatusCode, NoContent: true}, token, nil
	}

	if out != nil {
		if err := c.decoder.Decode(data, out); err != nil {
			return nil, token, &ValidationError{Endpoint: req.Endpoint, Err: err}
		}
	}

	return &Response{StatusCode: resp.StatusCode}, token, nil
}

// refreshTokens exchanges the stored refresh token and stores the new tokens
func (c *Client) refreshTokens(ctx context.Context) (TokenPair, error) {
	refreshToken := c.creds.RefreshToken()
	if refreshToken == "" {
		return TokenPair{}, ErrNoRefreshToken
	}

	payload, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return TokenPair{}, &RefreshError{Err: err}
	}

	refreshURL := c.BaseURL() + RefreshEndpoint
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, refreshURL, bytes.NewReader(payload))
	if err != nil {
		return TokenPair{}, &RefreshError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug().Str("key", c.creds.Key()).Msg("Refreshing access token")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return TokenPair{}, &RefreshError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return TokenPair{}, &RefreshError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return TokenPair{}, &RefreshError{StatusCode: resp.StatusCode, Err: errors.New("refresh rejected")}
	}

	var tokens TokenPair
	if len(bytes.TrimSpace(data)) > 0 {
		// A body without tokens is fine, the backend may only set cookies.
		_ = json.Unmarshal(data, &tokens)
	}
	for _, cookie := range resp.Cookies() {
		switch cookie.Name {
		case AccessTokenName:
			if tokens.AccessToken == "" {
				tokens.AccessToken = cookie.Value
			}
		case RefreshTokenName:
			if tokens.RefreshToken == "" {
				tokens.RefreshToken = cookie.Value
			}
		}
	}
	c.creds.SetTokens(tokens)

	c.logger.Info().Str("key", c.creds.Key()).Msg("Access token refreshed")
	return tokens, nil
}

func newAPIError(resp *http.Response, data []byte) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Status:     strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))),
		Body:       map[string]any{},
	}
	if len(bytes.TrimSpace(data)) > 0 {
		var parsed map[string]any
		if err := json.Unmarshal(data, &parsed); err == nil && parsed != nil {
			apiErr.Body = parsed
		}
	}
	return apiErr
}
