package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/drape/backend/internal/domain"
)

// DashboardService answers "what changed since" queries for a user's dashboard
type DashboardService struct {
	repo domain.NotificationRepository
	now  func() time.Time
}

// NewDashboardService creates a dashboard service
func NewDashboardService(repo domain.NotificationRepository) *DashboardService {
	return &DashboardService{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Updates returns notifications created after since.
// Timestamp is the newest returned row's creation time, so a caller that reuses it as its next cursor misses nothing;
// with no updates it is the current server time.
func (s *DashboardService) Updates(ctx context.Context, userID string, since time.Time) (*domain.DashboardUpdate, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrInvalidRequest
	}

	notifications, err := s.repo.ListSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	update := &domain.DashboardUpdate{
		HasUpdates:    len(notifications) > 0,
		Timestamp:     s.now(),
		Notifications: notifications,
	}
	if update.Notifications == nil {
		update.Notifications = []domain.Notification{}
	}
	if update.HasUpdates {
		latest := notifications[0].CreatedAt
		for _, n := range notifications[1:] {
			if n.CreatedAt.After(latest) {
				latest = n.CreatedAt
			}
		}
		update.Timestamp = latest
	}
	return update, nil
}
