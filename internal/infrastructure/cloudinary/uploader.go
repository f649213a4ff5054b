package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/drape/backend/internal/domain"
	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://api.cloudinary.com/v1_1"

// Config holds media host credentials
type Config struct {
	CloudName  string
	APIKey     string
	APISecret  string
	Folder     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Uploader stores images with signed Cloudinary uploads
type Uploader struct {
	httpClient *http.Client
	cloudName  string
	apiKey     string
	apiSecret  string
	folder     string
	baseURL    string
	now        func() time.Time
	logger     zerolog.Logger
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
	PublicID  string `json:"public_id"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Format    string `json:"format"`
	Bytes     int    `json:"bytes"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewUploader returns nil when credentials are incomplete so callers can treat uploads as disabled
func NewUploader(cfg Config, logger zerolog.Logger) *Uploader {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Uploader{
		httpClient: client,
		cloudName:  cfg.CloudName,
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		folder:     strings.Trim(cfg.Folder, "/"),
		baseURL:    baseURL,
		now:        time.Now,
		logger:     logger.With().Str("component", "cloudinary").Logger(),
	}
}

// Upload sends the image as a multipart form and returns the hosted asset
func (u *Uploader) Upload(ctx context.Context, filename string, data []byte) (*domain.MediaAsset, error) {
	params := map[string]string{
		"timestamp": strconv.FormatInt(u.now().Unix(), 10),
	}
	if u.folder != "" {
		params["folder"] = u.folder
	}
	params["signature"] = Sign(params, u.apiSecret)
	params["api_key"] = u.apiKey

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, k := range sortedKeys(params) {
		if err := mw.WriteField(k, params[k]); err != nil {
			return nil, fmt.Errorf("failed to write form field: %w", err)
		}
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close form: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/image/upload", u.baseURL, u.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", domain.ErrUpstreamFailure, err)
	}

	var out uploadResponse
	decodeErr := json.Unmarshal(raw, &out)
	if resp.StatusCode != http.StatusOK {
		msg := string(raw)
		if decodeErr == nil && out.Error != nil {
			msg = out.Error.Message
		}
		return nil, fmt.Errorf("%w: status %d, body: %s", domain.ErrUpstreamFailure, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode response: %w", decodeErr)
	}

	url := out.SecureURL
	if url == "" {
		url = out.URL
	}
	u.logger.Debug().Str("public_id", out.PublicID).Int("bytes", out.Bytes).Msg("image uploaded")
	return &domain.MediaAsset{
		URL:      url,
		PublicID: out.PublicID,
		Width:    out.Width,
		Height:   out.Height,
		Format:   out.Format,
		Bytes:    out.Bytes,
	}, nil
}

// Sign computes the upload signature: SHA-1 over the sorted key=value pairs joined by '&', followed by the secret.
// file, api_key, resource_type and cloud_name are never signed.
func Sign(params map[string]string, secret string) string {
	pairs := make([]string, 0, len(params))
	for _, k := range sortedKeys(params) {
		switch k {
		case "file", "api_key", "resource_type", "cloud_name", "signature":
			continue
		}
		if params[k] == "" {
			continue
		}
		pairs = append(pairs, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
