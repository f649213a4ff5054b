package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/drape/backend/internal/domain"
	"github.com/rs/zerolog"
)

const (
	defaultEndpoint = "https://fcm.googleapis.com/fcm/send"
	// maxTokensPerRequest is the legacy API's registration_ids limit
	maxTokensPerRequest = 1000
)

// FCMSender delivers notifications through the FCM legacy HTTP API
type FCMSender struct {
	httpClient *http.Client
	endpoint   string
	serverKey  string
	logger     zerolog.Logger
}

type fcmMessage struct {
	RegistrationIDs []string          `json:"registration_ids"`
	Notification    fcmNotification   `json:"notification"`
	Data            map[string]string `json:"data,omitempty"`
	Priority        string            `json:"priority,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
	Results []struct {
		MessageID string `json:"message_id"`
		Error     string `json:"error"`
	} `json:"results"`
}

// NewFCMSender returns nil without a server key so the push channel is disabled
func NewFCMSender(serverKey, endpoint string, client *http.Client, logger zerolog.Logger) *FCMSender {
	if strings.TrimSpace(serverKey) == "" {
		return nil
	}
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &FCMSender{
		httpClient: client,
		endpoint:   endpoint,
		serverKey:  serverKey,
		logger:     logger.With().Str("component", "fcm").Logger(),
	}
}

// SendPush delivers n to every token. It fails only when no token accepted the message.
func (s *FCMSender) SendPush(ctx context.Context, tokens []string, n *domain.Notification) error {
	if len(tokens) == 0 {
		return fmt.Errorf("%w: no device tokens", domain.ErrInvalidRequest)
	}

	data := map[string]string{
		"notificationId": n.ID.String(),
		"type":           string(n.Type),
	}
	for k, v := range n.Data {
		data[k] = v
	}

	delivered := 0
	var lastErr error
	for start := 0; start < len(tokens); start += maxTokensPerRequest {
		end := min(start+maxTokensPerRequest, len(tokens))
		msg := fcmMessage{
			RegistrationIDs: tokens[start:end],
			Notification:    fcmNotification{Title: n.Title, Body: n.Body},
			Data:            data,
			Priority:        "high",
		}
		ok, err := s.send(ctx, msg)
		if err != nil {
			lastErr = err
			continue
		}
		delivered += ok
	}

	if delivered == 0 {
		if lastErr == nil {
			lastErr = fmt.Errorf("%w: fcm rejected all %d tokens", domain.ErrUpstreamFailure, len(tokens))
		}
		return lastErr
	}
	s.logger.Debug().Str("notification_id", n.ID.String()).Int("delivered", delivered).Int("tokens", len(tokens)).Msg("push sent")
	return nil
}

func (s *FCMSender) send(ctx context.Context, msg fcmMessage) (int, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to encode push message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+s.serverKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: status %d, body: %s", domain.ErrUpstreamFailure, resp.StatusCode, string(body))
	}

	var out fcmResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("%w: failed to decode response: %v", domain.ErrUpstreamFailure, err)
	}
	for i, r := range out.Results {
		if r.Error != "" && i < len(msg.RegistrationIDs) {
			s.logger.Warn().Str("error", r.Error).Str("token_suffix", tokenSuffix(msg.RegistrationIDs[i])).Msg("push token rejected")
		}
	}
	return out.Success, nil
}

func tokenSuffix(token string) string {
	if len(token) <= 6 {
		return token
	}
	return token[len(token)-6:]
}
