package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType classifies a notification row
type NotificationType string

const (
	NotificationTrendingOutfit NotificationType = "trending_outfit"
	NotificationOutfitReady    NotificationType = "outfit_ready"
	NotificationPriceDrop      NotificationType = "price_drop"
	NotificationGeneral        NotificationType = "general"
)

// Notification is a persisted notification for a single user
type Notification struct {
	ID        uuid.UUID         `json:"id"`
	UserID    string            `json:"userId"`
	Type      NotificationType  `json:"type"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	Sent      bool              `json:"sent"`
	CreatedAt time.Time         `json:"createdAt"`
	SentAt    *time.Time        `json:"sentAt,omitempty"`
}

// NotificationPreference holds a user's delivery channels
type NotificationPreference struct {
	UserID       string   `json:"userId"`
	PushEnabled  bool     `json:"pushEnabled"`
	EmailEnabled bool     `json:"emailEnabled"`
	Email        string   `json:"email,omitempty"`
	DeviceTokens []string `json:"deviceTokens,omitempty"`
	Trending     bool     `json:"trending"`
}

// NotificationRequest asks the dispatcher to notify a set of users
type NotificationRequest struct {
	UserIDs []string          `json:"userIds" binding:"required"`
	Type    NotificationType  `json:"type"`
	Title   string            `json:"title" binding:"required"`
	Body    string            `json:"body" binding:"required"`
	Data    map[string]string `json:"data,omitempty"`
}

// DispatchReport summarizes one dispatch run
type DispatchReport struct {
	Created      int `json:"created"`
	Sent         int `json:"sent"`
	PushFailed   int `json:"pushFailed"`
	EmailFailed  int `json:"emailFailed"`
	CreateFailed int `json:"createFailed"`
}
