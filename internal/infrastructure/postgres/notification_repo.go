package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/drape/backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// maxListedNotifications caps a single "updates since" page
const maxListedNotifications = 100

const schema = `
CREATE TABLE IF NOT EXISTS notifications (
	id         UUID PRIMARY KEY,
	user_id    TEXT NOT NULL,
	type       TEXT NOT NULL,
	title      TEXT NOT NULL,
	body       TEXT NOT NULL,
	data       JSONB,
	sent       BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	sent_at    TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS notifications_user_created_idx ON notifications (user_id, created_at);

CREATE TABLE IF NOT EXISTS notification_preferences (
	user_id       TEXT PRIMARY KEY,
	push_enabled  BOOLEAN NOT NULL DEFAULT TRUE,
	email_enabled BOOLEAN NOT NULL DEFAULT FALSE,
	email         TEXT,
	device_tokens TEXT[] NOT NULL DEFAULT '{}',
	trending      BOOLEAN NOT NULL DEFAULT TRUE
);`

// DB is the subset of pgxpool.Pool the repository uses
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// NotificationRepository implements domain.NotificationRepository on Postgres
type NotificationRepository struct {
	db DB
}

// NewNotificationRepository returns a repository backed by db
func NewNotificationRepository(db DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// EnsureSchema creates the tables when they are missing. Intended for local runs.
func (r *NotificationRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensureSchema: %w", err)
	}
	return nil
}

// Create inserts a notification row
func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	data, err := encodeData(n.Data)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO notifications (id, user_id, type, title, body, data, sent, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.UserID, string(n.Type), n.Title, n.Body, data, n.Sent, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// MarkSent flags a notification as delivered
func (r *NotificationRepository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE notifications SET sent = TRUE, sent_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark sent: notification %s not found", id)
	}
	return nil
}

// ListSince returns the user's notifications created strictly after since, oldest first
func (r *NotificationRepository) ListSince(ctx context.Context, userID string, since time.Time) ([]domain.Notification, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, type, title, body, data, sent, created_at, sent_at
		 FROM notifications
		 WHERE user_id = $1 AND created_at > $2
		 ORDER BY created_at ASC
		 LIMIT $3`,
		userID, since, maxListedNotifications,
	)
	if err != nil {
		return nil, fmt.Errorf("listSince query: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Notification, 0)
	for rows.Next() {
		var (
			n      domain.Notification
			typ    string
			data   []byte
			sentAt *time.Time
		)
		if err := rows.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Body, &data, &n.Sent, &n.CreatedAt, &sentAt); err != nil {
			return nil, fmt.Errorf("listSince scan: %w", err)
		}
		n.Type = domain.NotificationType(typ)
		n.SentAt = sentAt
		if n.Data, err = decodeData(data); err != nil {
			return nil, fmt.Errorf("listSince data: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listSince rows: %w", err)
	}
	return out, nil
}

// Preferences loads delivery preferences for the given users. Users without a row are absent from the map.
func (r *NotificationRepository) Preferences(ctx context.Context, userIDs []string) (map[string]domain.NotificationPreference, error) {
	prefs := make(map[string]domain.NotificationPreference, len(userIDs))
	if len(userIDs) == 0 {
		return prefs, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT user_id, push_enabled, email_enabled, COALESCE(email, ''), device_tokens, trending
		 FROM notification_preferences
		 WHERE user_id = ANY($1)`,
		userIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("preferences query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.NotificationPreference
		if err := rows.Scan(&p.UserID, &p.PushEnabled, &p.EmailEnabled, &p.Email, &p.DeviceTokens, &p.Trending); err != nil {
			return nil, fmt.Errorf("preferences scan: %w", err)
		}
		prefs[p.UserID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("preferences rows: %w", err)
	}
	return prefs, nil
}

// TrendingSubscribers lists users who opted into trending-outfit notifications
func (r *NotificationRepository) TrendingSubscribers(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT user_id FROM notification_preferences WHERE trending ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("trendingSubscribers query: %w", err)
	}
	defer rows.Close()

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("trendingSubscribers scan: %w", err)
	}
	return ids, nil
}

// SavePreference upserts a user's delivery preferences
func (r *NotificationRepository) SavePreference(ctx context.Context, p domain.NotificationPreference) error {
	tokens := p.DeviceTokens
	if tokens == nil {
		tokens = []string{}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO notification_preferences (user_id, push_enabled, email_enabled, email, device_tokens, trending)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
		 ON CONFLICT (user_id) DO UPDATE SET
		   push_enabled = EXCLUDED.push_enabled,
		   email_enabled = EXCLUDED.email_enabled,
		   email = EXCLUDED.email,
		   device_tokens = EXCLUDED.device_tokens,
		   trending = EXCLUDED.trending`,
		p.UserID, p.PushEnabled, p.EmailEnabled, p.Email, tokens, p.Trending,
	)
	if err != nil {
		return fmt.Errorf("save preference: %w", err)
	}
	return nil
}

func encodeData(data map[string]string) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return json.Marshal(data)
}

func decodeData(raw []byte) (map[string]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var data map[string]string
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}
