package email

import (
	"context"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/drape/backend/internal/domain"
	"github.com/rs/zerolog"
)

// Config holds SMTP settings
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers notifications as plain-text mail
type SMTPSender struct {
	addr     string
	auth     smtp.Auth
	from     *mail.Address
	sendMail sendMailFunc
	now      func() time.Time
	logger   zerolog.Logger
}

// NewSMTPSender returns nil when no host is configured so the email channel is disabled
func NewSMTPSender(cfg Config, logger zerolog.Logger) (*SMTPSender, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, nil
	}
	from, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("invalid from address %q: %w", cfg.From, err)
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return &SMTPSender{
		addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		auth:     auth,
		from:     from,
		sendMail: smtp.SendMail,
		now:      time.Now,
		logger:   logger.With().Str("component", "smtp").Logger(),
	}, nil
}

// SendEmail sends n to a single recipient. net/smtp has no context support, so ctx is only checked before dialing.
func (s *SMTPSender) SendEmail(ctx context.Context, to string, n *domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rcpt, err := mail.ParseAddress(to)
	if err != nil {
		return fmt.Errorf("%w: invalid recipient %q", domain.ErrInvalidRequest, to)
	}

	msg := s.buildMessage(rcpt, n)
	if err := s.sendMail(s.addr, s.auth, s.from.Address, []string{rcpt.Address}, msg); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
	}
	s.logger.Debug().Str("notification_id", n.ID.String()).Msg("email sent")
	return nil
}

func (s *SMTPSender) buildMessage(to *mail.Address, n *domain.Notification) []byte {
	var b strings.Builder
	writeHeader(&b, "From", s.from.String())
	writeHeader(&b, "To", to.String())
	writeHeader(&b, "Subject", sanitizeHeader(n.Title))
	writeHeader(&b, "Date", s.now().UTC().Format(time.RFC1123Z))
	writeHeader(&b, "MIME-Version", "1.0")
	writeHeader(&b, "Content-Type", "text/plain; charset=UTF-8")
	writeHeader(&b, "X-Drape-Notification", n.ID.String())
	b.WriteString("\r\n")

	body := strings.ReplaceAll(n.Body, "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	if url := n.Data["productUrl"]; url != "" {
		b.WriteString("\r\n\r\n")
		b.WriteString(url)
	}
	b.WriteString("\r\n")
	return []byte(b.String())
}

func writeHeader(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\r\n")
}

// sanitizeHeader strips line breaks to prevent header injection
func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}
