package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ProductSearcher is a single retailer's search path
type ProductSearcher interface {
	Platform() Platform
	Search(ctx context.Context, query string, limit int) ([]RealProductResult, error)
}

// ChatCompleter sends one system + user message pair to a chat-completion endpoint
type ChatCompleter interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// MediaUploader stores image bytes on the managed media host
type MediaUploader interface {
	Upload(ctx context.Context, filename string, data []byte) (*MediaAsset, error)
}

// NotificationRepository persists notifications and reads user preferences
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	ListSince(ctx context.Context, userID string, since time.Time) ([]Notification, error)
	Preferences(ctx context.Context, userIDs []string) (map[string]NotificationPreference, error)
	TrendingSubscribers(ctx context.Context) ([]string, error)
}

// PushSender delivers a push notification to device tokens
type PushSender interface {
	SendPush(ctx context.Context, tokens []string, n *Notification) error
}

// EmailSender delivers a notification by email
type EmailSender interface {
	SendEmail(ctx context.Context, to string, n *Notification) error
}

// DashboardSource fetches dashboard updates newer than a timestamp
type DashboardSource interface {
	FetchUpdates(ctx context.Context, since time.Time) (*DashboardUpdate, error)
}
