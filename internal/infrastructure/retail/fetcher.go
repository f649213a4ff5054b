package retail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/drape/backend/internal/domain"
	"golang.org/x/time/rate"
)

// maxBodyBytes caps how much of an upstream response is read
const maxBodyBytes = 8 << 20

// Fetcher performs rate-limited HTTP requests against one retailer's hosts
type Fetcher struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

// NewLimiter converts a requests-per-minute budget into a token bucket.
// A non-positive budget disables limiting.
func NewLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := perMinute / 6
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
}

// NewFetcher creates a fetcher with its own timeout sharing the given limiter
func NewFetcher(timeout time.Duration, limiter *rate.Limiter, userAgent string) *Fetcher {
	if limiter == nil {
		limiter = NewLimiter(0)
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		userAgent:  userAgent,
	}
}

// Get fetches a URL and returns the body of a 2xx response
func (f *Fetcher) Get(ctx context.Context, reqURL string, header http.Header) ([]byte, error) {
	return f.do(ctx, http.MethodGet, reqURL, nil, header)
}

// GetJSON fetches a URL and decodes its JSON body into out
func (f *Fetcher) GetJSON(ctx context.Context, reqURL string, header http.Header, out any) error {
	body, err := f.Get(ctx, reqURL, withJSONAccept(header))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// PostJSON sends in as a JSON body and decodes the JSON response into out
func (f *Fetcher) PostJSON(ctx context.Context, reqURL string, header http.Header, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	h := withJSONAccept(header)
	h.Set("Content-Type", "application/json")

	body, err := f.do(ctx, http.MethodPost, reqURL, bytes.NewReader(payload), h)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (f *Fetcher) do(ctx context.Context, method, reqURL string, body io.Reader, header http.Header) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" && f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", domain.ErrUpstreamFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d, body: %s", domain.ErrUpstreamFailure, resp.StatusCode, truncate(string(data), 200))
	}
	return data, nil
}

func withJSONAccept(header http.Header) http.Header {
	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}
	if h.Get("Accept") == "" {
		h.Set("Accept", "application/json")
	}
	return h
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
