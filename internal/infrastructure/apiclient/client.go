// Package apiclient talks to a running Drape backend on behalf of a signed-in user.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/drape/backend/internal/domain"
	"github.com/rs/zerolog"
)

// TokenSource supplies the current session token. An empty token sends no Authorization header.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token
type StaticToken string

// Token implements TokenSource
func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

// Options configures a Client
type Options struct {
	BaseURL    string
	Tokens     TokenSource
	UserID     string
	HTTPClient *http.Client
	// OnUnauthorized runs on every 401, typically to send the user back to login
	OnUnauthorized func()
}

// Client is the single place backend requests go through: base URL, bearer token and 401 handling
type Client struct {
	baseURL        *url.URL
	httpClient     *http.Client
	tokens         TokenSource
	userID         string
	onUnauthorized func()
	logger         zerolog.Logger
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// New creates a backend client
func New(opts Options, logger zerolog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid base URL %q", domain.ErrInvalidRequest, opts.BaseURL)
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	tokens := opts.Tokens
	if tokens == nil {
		tokens = StaticToken("")
	}
	return &Client{
		baseURL:        base,
		httpClient:     client,
		tokens:         tokens,
		userID:         opts.UserID,
		onUnauthorized: opts.OnUnauthorized,
		logger:         logger.With().Str("component", "apiclient").Logger(),
	}, nil
}

// Do sends a JSON request to path (relative to the base URL) and decodes a JSON response into out.
// A 401 runs OnUnauthorized and returns domain.ErrUnauthorized.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	endpoint := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", domain.ErrUpstreamFailure, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Warn().Str("path", path).Msg("session rejected")
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return domain.ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d, body: %s", statusError(resp.StatusCode), resp.StatusCode, errorMessage(raw))
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", domain.ErrUpstreamFailure, err)
	}
	return nil
}

// statusError maps backend status codes back onto domain errors
func statusError(status int) error {
	switch status {
	case http.StatusBadRequest:
		return domain.ErrInvalidRequest
	case http.StatusNotImplemented:
		return domain.ErrFeatureDisabled
	case http.StatusUnsupportedMediaType:
		return domain.ErrUnsupportedMedia
	case http.StatusRequestEntityTooLarge:
		return domain.ErrMediaTooLarge
	}
	return domain.ErrUpstreamFailure
}

func errorMessage(raw []byte) string {
	var e errorBody
	if json.Unmarshal(raw, &e) == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	s := string(raw)
	if len(s) > 256 {
		s = s[:256]
	}
	return s
}
