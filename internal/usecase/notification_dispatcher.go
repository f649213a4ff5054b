package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/drape/backend/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// NotificationDispatcher persists notifications and delivers them over the channels each user enabled
type NotificationDispatcher struct {
	repo   domain.NotificationRepository
	push   domain.PushSender
	email  domain.EmailSender
	now    func() time.Time
	logger zerolog.Logger
}

// NewNotificationDispatcher creates a dispatcher. Nil senders disable their channel.
func NewNotificationDispatcher(
	repo domain.NotificationRepository,
	push domain.PushSender,
	email domain.EmailSender,
	logger zerolog.Logger,
) *NotificationDispatcher {
	return &NotificationDispatcher{
		repo:   repo,
		push:   push,
		email:  email,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// Dispatch creates one notification per user and sends it by push and email according to preferences.
// A notification is marked sent when any channel delivered it, or when the user has no channel enabled.
// Per-user failures are counted in the report and never stop the remaining users.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, req domain.NotificationRequest) (*domain.DispatchReport, error) {
	userIDs := uniqueNonEmpty(req.UserIDs)
	if len(userIDs) == 0 || strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Body) == "" {
		return nil, domain.ErrInvalidRequest
	}
	if req.Type == "" {
		req.Type = domain.NotificationGeneral
	}

	prefs, err := d.repo.Preferences(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("loading notification preferences: %w", err)
	}

	report := &domain.DispatchReport{}
	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		n := &domain.Notification{
			ID:        uuid.New(),
			UserID:    userID,
			Type:      req.Type,
			Title:     req.Title,
			Body:      req.Body,
			Data:      req.Data,
			CreatedAt: d.now(),
		}
		if err := d.repo.Create(ctx, n); err != nil {
			report.CreateFailed++
			d.logger.Error().Err(err).Str("user_id", userID).Msg("failed to create notification")
			continue
		}
		report.Created++

		if d.deliver(ctx, n, prefs[userID], report) {
			sentAt := d.now()
			if err := d.repo.MarkSent(ctx, n.ID, sentAt); err != nil {
				d.logger.Error().Err(err).Str("notification_id", n.ID.String()).Msg("failed to mark notification sent")
				continue
			}
			n.Sent = true
			n.SentAt = &sentAt
			report.Sent++
		}
	}

	d.logger.Info().
		Str("type", string(req.Type)).
		Int("created", report.Created).
		Int("sent", report.Sent).
		Int("push_failed", report.PushFailed).
		Int("email_failed", report.EmailFailed).
		Msg("notifications dispatched")
	return report, nil
}

// deliver sends over each enabled channel and reports whether the notification counts as sent
func (d *NotificationDispatcher) deliver(ctx context.Context, n *domain.Notification, pref domain.NotificationPreference, report *domain.DispatchReport) bool {
	attempted, delivered := false, false

	if d.push != nil && pref.PushEnabled && len(pref.DeviceTokens) > 0 {
		attempted = true
		if err := d.push.SendPush(ctx, pref.DeviceTokens, n); err != nil {
			report.PushFailed++
			d.logger.Warn().Err(err).Str("user_id", n.UserID).Msg("push delivery failed")
		} else {
			delivered = true
		}
	}

	if d.email != nil && pref.EmailEnabled && pref.Email != "" {
		attempted = true
		if err := d.email.SendEmail(ctx, pref.Email, n); err != nil {
			report.EmailFailed++
			d.logger.Warn().Err(err).Str("user_id", n.UserID).Msg("email delivery failed")
		} else {
			delivered = true
		}
	}

	return delivered || !attempted
}

func uniqueNonEmpty(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
