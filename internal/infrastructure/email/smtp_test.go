package email

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/drape/backend/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedMail struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  string
}

func newTestSender(t *testing.T, sendErr error) (*SMTPSender, *capturedMail) {
	t.Helper()
	s, err := NewSMTPSender(Config{
		Host:     "smtp.example.com",
		Port:     2525,
		Username: "mailer",
		Password: "secret",
		From:     "Drape <no-reply@drape.app>",
	}, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, s)

	captured := &capturedMail{}
	s.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		captured.addr, captured.auth, captured.from, captured.to, captured.msg = addr, a, from, to, string(msg)
		return sendErr
	}
	s.now = func() time.Time { return time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC) }
	return s, captured
}

func TestNewSMTPSender(t *testing.T) {
	t.Run("disabled without host", func(t *testing.T) {
		s, err := NewSMTPSender(Config{}, zerolog.Nop())
		assert.NoError(t, err)
		assert.Nil(t, s)
	})

	t.Run("rejects bad from address", func(t *testing.T) {
		_, err := NewSMTPSender(Config{Host: "smtp.example.com", From: "not an address"}, zerolog.Nop())
		assert.Error(t, err)
	})

	t.Run("defaults the port", func(t *testing.T) {
		s, err := NewSMTPSender(Config{Host: "smtp.example.com", From: "a@b.co"}, zerolog.Nop())
		require.NoError(t, err)
		assert.Equal(t, "smtp.example.com:587", s.addr)
		assert.Nil(t, s.auth)
	})
}

func TestSendEmail(t *testing.T) {
	n := &domain.Notification{
		ID:    uuid.MustParse("0b7e6a8e-34a4-4f7c-9d9b-7b1e2c3d4e5f"),
		Title: "Your outfit\r\nBcc: victim@example.com",
		Body:  "Line one\nLine two",
		Data:  map[string]string{"productUrl": "https://www.myntra.com/123"},
	}

	t.Run("builds a plain-text message", func(t *testing.T) {
		s, captured := newTestSender(t, nil)

		require.NoError(t, s.SendEmail(context.Background(), "Asha <asha@example.com>", n))
		assert.Equal(t, "smtp.example.com:2525", captured.addr)
		assert.NotNil(t, captured.auth)
		assert.Equal(t, "no-reply@drape.app", captured.from)
		assert.Equal(t, []string{"asha@example.com"}, captured.to)

		headers, body, found := strings.Cut(captured.msg, "\r\n\r\n")
		require.True(t, found)
		assert.Contains(t, headers, "Subject: Your outfit  Bcc: victim@example.com")
		assert.NotContains(t, headers, "\r\nBcc:")
		assert.Contains(t, headers, "Content-Type: text/plain; charset=UTF-8")
		assert.Contains(t, headers, "Date: Tue, 03 Feb 2026 04:05:06 +0000")
		assert.True(t, strings.HasPrefix(body, "Line one\r\nLine two"))
		assert.Contains(t, body, "https://www.myntra.com/123")
	})

	t.Run("wraps transport errors", func(t *testing.T) {
		s, _ := newTestSender(t, errors.New("535 authentication failed"))
		err := s.SendEmail(context.Background(), "asha@example.com", n)
		assert.ErrorIs(t, err, domain.ErrUpstreamFailure)
	})

	t.Run("rejects bad recipient", func(t *testing.T) {
		s, captured := newTestSender(t, nil)
		err := s.SendEmail(context.Background(), "nope", n)
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
		assert.Empty(t, captured.to)
	})

	t.Run("honours a cancelled context", func(t *testing.T) {
		s, _ := newTestSender(t, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, s.SendEmail(ctx, "asha@example.com", n), context.Canceled)
	})
}
